package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"flowtrack/internal/model"
)

// ProgressRepository owns user_progress, completed_tasks, daily_completions,
// and the read-only level_requirements reference table.
type ProgressRepository struct {
	db *gorm.DB
}

func NewProgressRepository(db *gorm.DB) *ProgressRepository {
	return &ProgressRepository{db: db}
}

// WithTx returns a copy of the repository bound to the given transaction.
func (r *ProgressRepository) WithTx(tx *gorm.DB) *ProgressRepository {
	return &ProgressRepository{db: tx}
}

func (r *ProgressRepository) GetByUser(ctx context.Context, userID string) (*model.UserProgress, error) {
	var progress model.UserProgress
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&progress).Error; err != nil {
		return nil, err
	}
	return &progress, nil
}

func (r *ProgressRepository) Create(ctx context.Context, userID string) (*model.UserProgress, error) {
	progress := model.UserProgress{
		ID:     uuid.NewString(),
		UserID: userID,
		Level:  1,
	}
	if err := r.db.WithContext(ctx).Create(&progress).Error; err != nil {
		return nil, fmt.Errorf("create progress: %w", err)
	}
	return &progress, nil
}

// AddXP applies an XP and task-count delta as a single SQL-side update so
// concurrent completions cannot lose increments. Negative deltas floor at
// zero.
func (r *ProgressRepository) AddXP(ctx context.Context, userID string, xpDelta, tasksDelta int) error {
	res := r.db.WithContext(ctx).Model(&model.UserProgress{}).
		Where("user_id = ?", userID).
		Updates(map[string]interface{}{
			"current_xp":      gorm.Expr("MAX(current_xp + ?, 0)", xpDelta),
			"total_xp":        gorm.Expr("MAX(total_xp + ?, 0)", xpDelta),
			"tasks_completed": gorm.Expr("MAX(tasks_completed + ?, 0)", tasksDelta),
			"updated_at":      time.Now().UTC(),
		})
	if res.Error != nil {
		return fmt.Errorf("add xp: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *ProgressRepository) SetLevel(ctx context.Context, userID string, level int) error {
	if err := r.db.WithContext(ctx).Model(&model.UserProgress{}).
		Where("user_id = ?", userID).
		Update("level", level).Error; err != nil {
		return fmt.Errorf("set level: %w", err)
	}
	return nil
}

// LevelRequirements returns the reference table sorted by level ascending.
func (r *ProgressRepository) LevelRequirements(ctx context.Context) ([]model.LevelRequirement, error) {
	var reqs []model.LevelRequirement
	if err := r.db.WithContext(ctx).Order("level ASC").Find(&reqs).Error; err != nil {
		return nil, fmt.Errorf("level requirements: %w", err)
	}
	return reqs, nil
}

func (r *ProgressRepository) InsertCompleted(ctx context.Context, row *model.CompletedTask) error {
	if row.ID == "" {
		row.ID = uuid.NewString()
	}
	if err := r.db.WithContext(ctx).Create(row).Error; err != nil {
		return fmt.Errorf("insert completed task: %w", err)
	}
	return nil
}

// FindCompleted returns the most recent completion record for a task, or nil.
func (r *ProgressRepository) FindCompleted(ctx context.Context, userID, taskID string) (*model.CompletedTask, error) {
	var row model.CompletedTask
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND task_id = ?", userID, taskID).
		Order("completed_at DESC").
		First(&row).Error
	switch {
	case err == nil:
		return &row, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil, nil
	default:
		return nil, fmt.Errorf("find completed task: %w", err)
	}
}

func (r *ProgressRepository) DeleteCompleted(ctx context.Context, id string) error {
	if err := r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.CompletedTask{}).Error; err != nil {
		return fmt.Errorf("delete completed task: %w", err)
	}
	return nil
}

func (r *ProgressRepository) ListCompleted(ctx context.Context, userID string, limit int) ([]model.CompletedTask, error) {
	if limit <= 0 {
		limit = 50
	}
	var rows []model.CompletedTask
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("completed_at DESC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list completed tasks: %w", err)
	}
	return rows, nil
}

// CompletedRange returns completion records inside [from, to] for stats.
func (r *ProgressRepository) CompletedRange(ctx context.Context, userID string, from, to time.Time) ([]model.CompletedTask, error) {
	var rows []model.CompletedTask
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND completed_at >= ? AND completed_at <= ?", userID, from, to).
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("completed range: %w", err)
	}
	return rows, nil
}

// IncrementDaily bumps the user's rollup for the given day, creating the row
// with a count of one on the first completion. The upsert is a single
// statement so concurrent completions both land.
func (r *ProgressRepository) IncrementDaily(ctx context.Context, userID string, day time.Time, xpEarned int) error {
	now := time.Now().UTC()
	row := model.DailyCompletion{
		ID:             uuid.NewString(),
		UserID:         userID,
		Day:            model.DayOf(day),
		TasksCompleted: 1,
		XPEarned:       xpEarned,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "day"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"tasks_completed": gorm.Expr("tasks_completed + 1"),
			"xp_earned":       gorm.Expr("xp_earned + ?", xpEarned),
			"updated_at":      now,
		}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("increment daily: %w", err)
	}
	return nil
}

// DecrementDaily reverses one completion from the given day's rollup and
// deletes the row once its counter reaches zero. Only the targeted day is
// touched.
func (r *ProgressRepository) DecrementDaily(ctx context.Context, userID string, day time.Time, xpRemoved int) error {
	db := r.db.WithContext(ctx)
	d := model.DayOf(day)
	err := db.Model(&model.DailyCompletion{}).
		Where("user_id = ? AND day = ?", userID, d).
		Updates(map[string]interface{}{
			"tasks_completed": gorm.Expr("MAX(tasks_completed - 1, 0)"),
			"xp_earned":       gorm.Expr("MAX(xp_earned - ?, 0)", xpRemoved),
			"updated_at":      time.Now().UTC(),
		}).Error
	if err != nil {
		return fmt.Errorf("decrement daily: %w", err)
	}
	err = db.Where("user_id = ? AND day = ? AND tasks_completed = 0", userID, d).
		Delete(&model.DailyCompletion{}).Error
	if err != nil {
		return fmt.Errorf("prune daily: %w", err)
	}
	return nil
}

// ListDaily returns the user's most recent daily rollups, newest first.
func (r *ProgressRepository) ListDaily(ctx context.Context, userID string, limit int) ([]model.DailyCompletion, error) {
	if limit <= 0 {
		limit = 60
	}
	var rows []model.DailyCompletion
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("day DESC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list daily: %w", err)
	}
	return rows, nil
}
