package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"gorm.io/gorm"

	"flowtrack/internal/model"
	"flowtrack/internal/repository"
	"flowtrack/internal/retry"
	"flowtrack/internal/xp"
)

// Progress fetches after a create may lag behind the write on a replicated
// store; they retry a few times before giving up.
const (
	progressFetchAttempts = 5
	progressFetchDelay    = 400 * time.Millisecond
)

// ProgressService owns per-user aggregate progress and the per-day
// completion rollups that drive streaks.
type ProgressService struct {
	repo *repository.ProgressRepository
}

func NewProgressService(repo *repository.ProgressRepository) *ProgressService {
	return &ProgressService{repo: repo}
}

// WithTx returns a copy of the service whose store calls run inside tx.
func (s *ProgressService) WithTx(tx *gorm.DB) *ProgressService {
	return &ProgressService{repo: s.repo.WithTx(tx)}
}

// EnsureProgress returns the user's progress row, creating a zeroed one if
// none exists yet.
func (s *ProgressService) EnsureProgress(ctx context.Context, userID string) (*model.UserProgress, error) {
	progress, err := s.repo.GetByUser(ctx, userID)
	if err == nil {
		return progress, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("ensure progress %s: %w", userID, err)
	}

	if _, err := s.repo.Create(ctx, userID); err != nil {
		// Lost a create race with another session; fall through to the read.
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("ensure progress %s: %w", userID, err)
		}
	}

	err = retry.Do(ctx, progressFetchAttempts, progressFetchDelay, func() error {
		progress, err = s.repo.GetByUser(ctx, userID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("ensure progress %s: %w", userID, err)
	}
	return progress, nil
}

// Bundle is the progress view handed to the UI layer.
type Bundle struct {
	Progress         *model.UserProgress      `json:"progress"`
	Requirements     []model.LevelRequirement `json:"requirements"`
	DailyCompletions []model.DailyCompletion  `json:"daily_completions"`
	LevelProgress    xp.Progress              `json:"level_progress"`
	Streak           int                      `json:"streak"`
}

// FetchProgress bundles the progress row, the level table, recent daily
// rollups, and the derived level progress and streak.
func (s *ProgressService) FetchProgress(ctx context.Context, userID string) (*Bundle, error) {
	progress, err := s.EnsureProgress(ctx, userID)
	if err != nil {
		return nil, err
	}
	reqs, err := s.repo.LevelRequirements(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch progress %s: %w", userID, err)
	}
	daily, err := s.repo.ListDaily(ctx, userID, 0)
	if err != nil {
		return nil, fmt.Errorf("fetch progress %s: %w", userID, err)
	}
	return &Bundle{
		Progress:         progress,
		Requirements:     reqs,
		DailyCompletions: daily,
		LevelProgress:    xp.ProgressToNext(progress.TotalXP, progress.Level, reqs),
		Streak:           CalculateStreak(daily),
	}, nil
}

// RecordCompletion applies a completion's XP to the user: atomic XP and
// counter increments, level recompute against the full requirement table,
// and today's rollup bump. Returns the level after the award.
func (s *ProgressService) RecordCompletion(ctx context.Context, userID string, xpEarned int) (int, error) {
	if _, err := s.EnsureProgress(ctx, userID); err != nil {
		return 0, err
	}
	if err := s.repo.AddXP(ctx, userID, xpEarned, 1); err != nil {
		return 0, fmt.Errorf("record completion %s: %w", userID, err)
	}
	level, err := s.recomputeLevel(ctx, userID)
	if err != nil {
		return 0, err
	}
	if err := s.repo.IncrementDaily(ctx, userID, model.Today(), xpEarned); err != nil {
		return 0, fmt.Errorf("record completion %s: %w", userID, err)
	}
	return level, nil
}

// RecordUncompletion reverses a completion. XP and counters floor at zero;
// only today's rollup is decremented, so reversing an old completion leaves
// historical daily stats untouched.
func (s *ProgressService) RecordUncompletion(ctx context.Context, userID string, xpRemoved int) (int, error) {
	if _, err := s.EnsureProgress(ctx, userID); err != nil {
		return 0, err
	}
	if err := s.repo.AddXP(ctx, userID, -xpRemoved, -1); err != nil {
		return 0, fmt.Errorf("record uncompletion %s: %w", userID, err)
	}
	level, err := s.recomputeLevel(ctx, userID)
	if err != nil {
		return 0, err
	}
	if err := s.repo.DecrementDaily(ctx, userID, model.Today(), xpRemoved); err != nil {
		return 0, fmt.Errorf("record uncompletion %s: %w", userID, err)
	}
	return level, nil
}

func (s *ProgressService) recomputeLevel(ctx context.Context, userID string) (int, error) {
	progress, err := s.repo.GetByUser(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("recompute level %s: %w", userID, err)
	}
	reqs, err := s.repo.LevelRequirements(ctx)
	if err != nil {
		return 0, fmt.Errorf("recompute level %s: %w", userID, err)
	}
	level := xp.Level(progress.TotalXP, reqs)
	if level != progress.Level {
		if err := s.repo.SetLevel(ctx, userID, level); err != nil {
			return 0, fmt.Errorf("recompute level %s: %w", userID, err)
		}
	}
	return level, nil
}

// CompleteTask records a task completion: snapshot row, XP award, level
// recompute, daily rollup. XP counts the subtasks that were already checked
// when the task was completed, so the caller passes the pre-toggle task.
func (s *ProgressService) CompleteTask(ctx context.Context, task *model.Task) (xpEarned, newLevel int, leveledUp bool, err error) {
	before, err := s.EnsureProgress(ctx, task.UserID)
	if err != nil {
		return 0, 0, false, err
	}

	xpEarned = xp.TaskXP(task.Priority, task.CompletedSubtasks())

	snapshot := &model.CompletedTask{
		TaskID:          task.ID,
		UserID:          task.UserID,
		Title:           task.Title,
		Description:     task.Description,
		Priority:        task.Priority,
		EstimateMinutes: task.EstimateMinutes,
		Tags:            task.Tags,
		WorkspaceID:     task.WorkspaceID,
		XPEarned:        xpEarned,
		CompletedAt:     time.Now().UTC(),
	}
	if err := s.repo.InsertCompleted(ctx, snapshot); err != nil {
		return 0, 0, false, fmt.Errorf("complete task %s: %w", task.ID, err)
	}

	newLevel, err = s.RecordCompletion(ctx, task.UserID, xpEarned)
	if err != nil {
		return 0, 0, false, err
	}
	return xpEarned, newLevel, newLevel > before.Level, nil
}

// UncompleteTask reverses a completion: deletes the snapshot row and removes
// its XP. A missing snapshot is a zero-XP no-op.
func (s *ProgressService) UncompleteTask(ctx context.Context, task *model.Task) (int, error) {
	row, err := s.repo.FindCompleted(ctx, task.UserID, task.ID)
	if err != nil {
		return 0, fmt.Errorf("uncomplete task %s: %w", task.ID, err)
	}
	if row == nil {
		log.Printf("uncomplete task %s: no completion record, skipping XP removal", task.ID)
		return 0, nil
	}

	if err := s.repo.DeleteCompleted(ctx, row.ID); err != nil {
		return 0, fmt.Errorf("uncomplete task %s: %w", task.ID, err)
	}
	if _, err := s.RecordUncompletion(ctx, task.UserID, row.XPEarned); err != nil {
		return 0, err
	}
	return row.XPEarned, nil
}

// ListCompleted returns the user's completion history, newest first.
func (s *ProgressService) ListCompleted(ctx context.Context, userID string, limit int) ([]model.CompletedTask, error) {
	return s.repo.ListCompleted(ctx, userID, limit)
}

// Stats summarizes completions inside a date range.
type Stats struct {
	TotalXP    int `json:"total_xp"`
	TasksCount int `json:"tasks_count"`
	AverageXP  int `json:"average_xp"`
}

func (s *ProgressService) StatsRange(ctx context.Context, userID string, from, to time.Time) (Stats, error) {
	rows, err := s.repo.CompletedRange(ctx, userID, from, to)
	if err != nil {
		return Stats{}, err
	}
	stats := Stats{TasksCount: len(rows)}
	for _, row := range rows {
		stats.TotalXP += row.XPEarned
	}
	if stats.TasksCount > 0 {
		stats.AverageXP = stats.TotalXP / stats.TasksCount
	}
	return stats, nil
}

// CalculateStreak counts consecutive days with at least one completion,
// ending at today or yesterday. A day lived without a completion only breaks
// the streak once it is in the past: today having no completions yet reports
// the prior run rather than zero.
func CalculateStreak(completions []model.DailyCompletion) int {
	days := make(map[time.Time]bool, len(completions))
	for _, c := range completions {
		if c.TasksCompleted > 0 {
			days[model.DayOf(c.Day)] = true
		}
	}

	today := model.Today()
	streak := 0
	if days[today] {
		streak = 1
	}
	for day := today.AddDate(0, 0, -1); days[day]; day = day.AddDate(0, 0, -1) {
		streak++
	}
	return streak
}
