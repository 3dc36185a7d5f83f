package service

import (
	"context"
	"path/filepath"
	"testing"

	"gorm.io/gorm"

	"flowtrack/internal/model"
	"flowtrack/internal/repository"
)

type testEnv struct {
	db         *gorm.DB
	tasks      *TaskService
	progress   *ProgressService
	recurrence *RecurrenceService
	timers     *TimerService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := repository.NewDB(filepath.Join(t.TempDir(), "flowtrack_test.db"))
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}

	taskRepo := repository.NewTaskRepository(db)
	subtaskRepo := repository.NewSubtaskRepository(db)
	progressRepo := repository.NewProgressRepository(db)
	timerRepo := repository.NewTimerRepository(db)

	progressSvc := NewProgressService(progressRepo)
	recurrenceSvc := NewRecurrenceService(taskRepo, subtaskRepo)
	taskSvc := NewTaskService(db, taskRepo, subtaskRepo, progressSvc, recurrenceSvc)
	timerSvc := NewTimerService(timerRepo, taskSvc)

	return &testEnv{
		db:         db,
		tasks:      taskSvc,
		progress:   progressSvc,
		recurrence: recurrenceSvc,
		timers:     timerSvc,
	}
}

func (e *testEnv) countTasks(t *testing.T, where string, args ...interface{}) int64 {
	t.Helper()
	var n int64
	if err := e.db.Model(&model.Task{}).Where(where, args...).Count(&n).Error; err != nil {
		t.Fatalf("count tasks: %v", err)
	}
	return n
}

func strPtr(s string) *string { return &s }

func testCtx() context.Context { return context.Background() }
