package service

import (
	"errors"
	"testing"
	"time"

	"flowtrack/internal/model"
)

func TestTimerStartMarksInProgress(t *testing.T) {
	env := newTestEnv(t)
	task := createPlainTask(t, env, TaskInput{Title: "deep work", WorkspaceID: "ws"})

	if err := env.timers.Start(testCtx(), task.ID); err != nil {
		t.Fatalf("start: %v", err)
	}
	got, _ := env.tasks.Get(testCtx(), task.ID)
	if got.Status != model.StatusInProgress {
		t.Errorf("status = %s, want in_progress", got.Status)
	}
	if got.PreviousStatus == nil || *got.PreviousStatus != model.StatusBacklog {
		t.Errorf("previous_status = %v, want backlog", got.PreviousStatus)
	}
}

func TestTimerStopRecordsSessionWithMinuteFloor(t *testing.T) {
	env := newTestEnv(t)
	task := createPlainTask(t, env, TaskInput{Title: "quick fix", WorkspaceID: "ws"})

	start := time.Now().UTC().Add(-20 * time.Second)
	session, _, err := env.timers.Stop(testCtx(), StopInput{
		TaskID:    task.ID,
		StartedAt: start,
		StoppedAt: start.Add(20 * time.Second),
	})
	if err != nil {
		t.Fatalf("stop: %v", err)
	}
	if session.DurationSeconds != 20 {
		t.Errorf("seconds = %d, want 20", session.DurationSeconds)
	}
	if session.DurationMinutes != 1 {
		t.Errorf("minutes = %d, want floor of 1", session.DurationMinutes)
	}
	if session.RecurringTemplateID != nil {
		t.Error("standalone session must not carry a template id")
	}
}

func TestTimerStopCompletesTask(t *testing.T) {
	env := newTestEnv(t)
	task := createPlainTask(t, env, TaskInput{Title: "finish it", WorkspaceID: "ws", Priority: model.PriorityLow})

	start := time.Now().UTC().Add(-10 * time.Minute)
	session, result, err := env.timers.Stop(testCtx(), StopInput{
		TaskID:      task.ID,
		StartedAt:   start,
		StoppedAt:   start.Add(10 * time.Minute),
		FinalStatus: model.StatusDone,
	})
	if err != nil {
		t.Fatalf("stop: %v", err)
	}
	if session.FinalStatus != model.StatusDone {
		t.Errorf("final status = %s, want done", session.FinalStatus)
	}
	if result.XPEarned != 10 {
		t.Errorf("xp = %d, want 10", result.XPEarned)
	}

	got, _ := env.tasks.Get(testCtx(), task.ID)
	if got.Status != model.StatusDone {
		t.Errorf("task status = %s, want done", got.Status)
	}
}

func TestTimerHistoryRollsUpToTemplate(t *testing.T) {
	env := newTestEnv(t)
	occ, templateID := createRecurring(t, env, "practice", nil)

	start := time.Now().UTC().Add(-30 * time.Minute)
	session, _, err := env.timers.Stop(testCtx(), StopInput{
		TaskID:    occ.ID,
		StartedAt: start,
		StoppedAt: start.Add(25 * time.Minute),
	})
	if err != nil {
		t.Fatalf("stop: %v", err)
	}
	if session.RecurringTemplateID == nil || *session.RecurringTemplateID != templateID {
		t.Fatalf("session template id = %v, want %s", session.RecurringTemplateID, templateID)
	}

	// History queried via either family member returns the same sessions.
	byOcc, err := env.timers.HistoryForTask(testCtx(), occ.ID)
	if err != nil {
		t.Fatalf("history by occurrence: %v", err)
	}
	byTpl, err := env.timers.HistoryForTask(testCtx(), templateID)
	if err != nil {
		t.Fatalf("history by template: %v", err)
	}
	if len(byOcc) != 1 || len(byTpl) != 1 {
		t.Errorf("history lengths = %d/%d, want 1/1", len(byOcc), len(byTpl))
	}
}

func TestTimerHistoryRange(t *testing.T) {
	env := newTestEnv(t)
	task := createPlainTask(t, env, TaskInput{Title: "ranged", WorkspaceID: "ws"})

	today := model.Today()
	start := today.Add(12 * time.Hour)
	if _, _, err := env.timers.Stop(testCtx(), StopInput{
		TaskID:    task.ID,
		StartedAt: start,
		StoppedAt: start.Add(5 * time.Minute),
	}); err != nil {
		t.Fatalf("stop: %v", err)
	}

	sessions, err := env.timers.HistoryRange(testCtx(), testUser, today, today.AddDate(0, 0, 1))
	if err != nil {
		t.Fatalf("range: %v", err)
	}
	if len(sessions) != 1 {
		t.Errorf("sessions in today's range = %d, want 1", len(sessions))
	}

	sessions, err = env.timers.HistoryRange(testCtx(), testUser, today.AddDate(0, 0, -7), today.AddDate(0, 0, -6))
	if err != nil {
		t.Fatalf("range: %v", err)
	}
	if len(sessions) != 0 {
		t.Errorf("sessions last week = %d, want 0", len(sessions))
	}

	if _, err := env.timers.HistoryRange(testCtx(), testUser, today, today); !errors.Is(err, ErrValidation) {
		t.Errorf("empty range error = %v, want validation failure", err)
	}
}

func TestTimerStats(t *testing.T) {
	env := newTestEnv(t)
	task := createPlainTask(t, env, TaskInput{Title: "sessions", WorkspaceID: "ws"})

	start := time.Now().UTC().Add(-2 * time.Hour)
	for _, minutes := range []int{10, 30} {
		if _, _, err := env.timers.Stop(testCtx(), StopInput{
			TaskID:    task.ID,
			StartedAt: start,
			StoppedAt: start.Add(time.Duration(minutes) * time.Minute),
		}); err != nil {
			t.Fatalf("stop: %v", err)
		}
	}

	stats, err := env.timers.Stats(testCtx(), testUser)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.TotalSessions != 2 || stats.TotalMinutes != 40 {
		t.Errorf("stats = %+v, want 2 sessions / 40 minutes", stats)
	}
	if stats.LongestSessionMinutes != 30 || stats.AverageSessionMinutes != 20 {
		t.Errorf("stats = %+v, want longest 30 / average 20", stats)
	}
	if stats.MostProductiveDay == "" {
		t.Error("most productive day missing")
	}
}
