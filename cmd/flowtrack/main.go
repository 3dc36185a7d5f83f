package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"flowtrack/internal/api"
	"flowtrack/internal/config"
	"flowtrack/internal/repository"
	"flowtrack/internal/service"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	db, err := repository.NewDB(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	sqlDB, err := db.DB()
	if err == nil {
		defer sqlDB.Close()
	}

	taskRepo := repository.NewTaskRepository(db)
	subtaskRepo := repository.NewSubtaskRepository(db)
	progressRepo := repository.NewProgressRepository(db)
	timerRepo := repository.NewTimerRepository(db)

	progressSvc := service.NewProgressService(progressRepo)
	recurrenceSvc := service.NewRecurrenceService(taskRepo, subtaskRepo)
	taskSvc := service.NewTaskService(db, taskRepo, subtaskRepo, progressSvc, recurrenceSvc)
	timerSvc := service.NewTimerService(timerRepo, taskSvc)

	scheduler := service.NewSchedulerService(time.UTC)
	reconcile := func() {
		jobCtx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()
		if err := recurrenceSvc.ReconcileEveryone(jobCtx); err != nil {
			log.Printf("reconcile: %v", err)
		}
	}
	if _, err := scheduler.ScheduleDaily("00:00", reconcile); err != nil {
		log.Fatalf("schedule daily reconcile: %v", err)
	}
	if cfg.ReconcileInterval > 0 {
		if _, err := scheduler.ScheduleInterval(cfg.ReconcileInterval, reconcile); err != nil {
			log.Fatalf("schedule interval reconcile: %v", err)
		}
	}
	scheduler.Start()
	defer scheduler.Stop()

	handler := api.NewHandler(taskSvc, progressSvc, recurrenceSvc, timerSvc)
	server := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: api.SetupRouter(handler),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("shutdown: %v", err)
		}
	}()

	log.Printf("FlowTrack listening on %s", cfg.HTTPAddr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("server stopped with error: %v", err)
	}
	log.Println("Shutdown complete.")
}
