package service

import (
	"context"
	"fmt"
	"time"

	"flowtrack/internal/model"
	"flowtrack/internal/repository"
)

// TimerService logs time-tracking sessions and routes the task's final
// status when a timer stops.
type TimerService struct {
	timers *repository.TimerRepository
	tasks  *TaskService
}

func NewTimerService(timers *repository.TimerRepository, tasks *TaskService) *TimerService {
	return &TimerService{timers: timers, tasks: tasks}
}

// StopInput is what the caller supplies when a timer stops.
type StopInput struct {
	TaskID      string
	StartedAt   time.Time
	StoppedAt   time.Time
	FinalStatus model.Status
}

// Start begins tracking a task: the task moves to in_progress. Wall-clock
// persistence of the running timer stays with the caller.
func (s *TimerService) Start(ctx context.Context, taskID string) error {
	return s.tasks.MarkInProgress(ctx, taskID)
}

// Stop records a finished session and applies the requested final status.
// Recorded durations floor at one minute so zero-value noise entries never
// land in history. Sessions on recurring occurrences carry the template id
// so they roll up across days. Returns the session and, when the final
// status was done, the completion's XP result.
func (s *TimerService) Stop(ctx context.Context, input StopInput) (*model.TimerSession, ToggleResult, error) {
	task, err := s.tasks.Get(ctx, input.TaskID)
	if err != nil {
		return nil, ToggleResult{}, err
	}
	if input.StoppedAt.Before(input.StartedAt) {
		return nil, ToggleResult{}, fmt.Errorf("stop before start: %w", ErrValidation)
	}

	seconds := int(input.StoppedAt.Sub(input.StartedAt).Seconds())
	minutes := seconds / 60
	if minutes < 1 {
		minutes = 1
	}

	var templateID *string
	switch task.Kind() {
	case model.KindOccurrence:
		templateID = task.OriginalTaskID
	case model.KindTemplate:
		templateID = &task.ID
	}

	var result ToggleResult
	finalStatus := task.Status
	if input.FinalStatus != "" && input.FinalStatus != task.Status {
		switch input.FinalStatus {
		case model.StatusDone:
			result, err = s.tasks.ToggleCompletion(ctx, task.ID)
		case model.StatusInProgress:
			err = s.tasks.MarkInProgress(ctx, task.ID)
		default:
			err = s.tasks.UpdateStatus(ctx, task.ID, input.FinalStatus)
		}
		if err != nil {
			return nil, ToggleResult{}, err
		}
		finalStatus = input.FinalStatus
	}

	session := &model.TimerSession{
		UserID:              task.UserID,
		TaskID:              task.ID,
		TaskTitle:           task.Title,
		StartedAt:           input.StartedAt,
		StoppedAt:           input.StoppedAt,
		DurationSeconds:     seconds,
		DurationMinutes:     minutes,
		FinalStatus:         finalStatus,
		RecurringTemplateID: templateID,
	}
	if err := s.timers.Create(ctx, session); err != nil {
		return nil, ToggleResult{}, err
	}
	return session, result, nil
}

// History returns the user's sessions, newest first.
func (s *TimerService) History(ctx context.Context, userID string, limit int) ([]model.TimerSession, error) {
	return s.timers.ListByUser(ctx, userID, limit)
}

// HistoryRange returns the user's sessions started within [from, to).
func (s *TimerService) HistoryRange(ctx context.Context, userID string, from, to time.Time) ([]model.TimerSession, error) {
	if !to.After(from) {
		return nil, fmt.Errorf("%w: range end must be after start", ErrValidation)
	}
	return s.timers.ListRange(ctx, userID, from, to)
}

// HistoryForTask returns sessions for a task. For members of a recurring
// series the whole series' history is returned, occurrences included.
func (s *TimerService) HistoryForTask(ctx context.Context, taskID string) ([]model.TimerSession, error) {
	task, err := s.tasks.Get(ctx, taskID)
	if err != nil {
		return nil, err
	}
	switch task.Kind() {
	case model.KindOccurrence:
		return s.timers.ListByTemplate(ctx, *task.OriginalTaskID)
	case model.KindTemplate:
		return s.timers.ListByTemplate(ctx, task.ID)
	default:
		return s.timers.ListByTask(ctx, task.ID)
	}
}

// TimerStats aggregates a user's session history.
type TimerStats struct {
	TotalSessions         int    `json:"total_sessions"`
	TotalMinutes          int    `json:"total_minutes"`
	AverageSessionMinutes int    `json:"average_session_minutes"`
	LongestSessionMinutes int    `json:"longest_session_minutes"`
	MostProductiveDay     string `json:"most_productive_day,omitempty"`
}

// Stats summarizes all of the user's sessions.
func (s *TimerService) Stats(ctx context.Context, userID string) (TimerStats, error) {
	sessions, err := s.timers.ListByUser(ctx, userID, 0)
	if err != nil {
		return TimerStats{}, err
	}

	stats := TimerStats{TotalSessions: len(sessions)}
	byDay := map[string]int{}
	for _, sess := range sessions {
		stats.TotalMinutes += sess.DurationMinutes
		if sess.DurationMinutes > stats.LongestSessionMinutes {
			stats.LongestSessionMinutes = sess.DurationMinutes
		}
		byDay[model.DayOf(sess.StartedAt).Format("2006-01-02")] += sess.DurationMinutes
	}
	if stats.TotalSessions > 0 {
		stats.AverageSessionMinutes = stats.TotalMinutes / stats.TotalSessions
	}
	best := 0
	for day, minutes := range byDay {
		if minutes > best || (minutes == best && day > stats.MostProductiveDay) {
			best = minutes
			stats.MostProductiveDay = day
		}
	}
	return stats, nil
}
