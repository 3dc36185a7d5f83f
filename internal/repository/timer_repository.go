package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"flowtrack/internal/model"
)

// TimerRepository stores logged time-tracking sessions.
type TimerRepository struct {
	db *gorm.DB
}

func NewTimerRepository(db *gorm.DB) *TimerRepository {
	return &TimerRepository{db: db}
}

func (r *TimerRepository) Create(ctx context.Context, session *model.TimerSession) error {
	if session.ID == "" {
		session.ID = uuid.NewString()
	}
	if err := r.db.WithContext(ctx).Create(session).Error; err != nil {
		return fmt.Errorf("create timer session: %w", err)
	}
	return nil
}

func (r *TimerRepository) ListByUser(ctx context.Context, userID string, limit int) ([]model.TimerSession, error) {
	q := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("started_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var sessions []model.TimerSession
	if err := q.Find(&sessions).Error; err != nil {
		return nil, fmt.Errorf("list timer sessions: %w", err)
	}
	return sessions, nil
}

// ListByTask returns sessions for a plain task, excluding any that belong to
// a recurring series.
func (r *TimerRepository) ListByTask(ctx context.Context, taskID string) ([]model.TimerSession, error) {
	var sessions []model.TimerSession
	if err := r.db.WithContext(ctx).
		Where("task_id = ? AND recurring_template_id IS NULL", taskID).
		Order("started_at DESC").
		Find(&sessions).Error; err != nil {
		return nil, fmt.Errorf("list task sessions: %w", err)
	}
	return sessions, nil
}

// ListByTemplate returns every session recorded against a recurring series,
// across all of its daily occurrences.
func (r *TimerRepository) ListByTemplate(ctx context.Context, templateID string) ([]model.TimerSession, error) {
	var sessions []model.TimerSession
	if err := r.db.WithContext(ctx).
		Where("recurring_template_id = ?", templateID).
		Order("started_at DESC").
		Find(&sessions).Error; err != nil {
		return nil, fmt.Errorf("list template sessions: %w", err)
	}
	return sessions, nil
}

func (r *TimerRepository) ListRange(ctx context.Context, userID string, from, to time.Time) ([]model.TimerSession, error) {
	var sessions []model.TimerSession
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND started_at >= ? AND started_at < ?", userID, from, to).
		Order("started_at DESC").
		Find(&sessions).Error; err != nil {
		return nil, fmt.Errorf("list sessions range: %w", err)
	}
	return sessions, nil
}
