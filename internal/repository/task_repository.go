package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"flowtrack/internal/model"
)

// TaskRepository handles CRUD for tasks.
type TaskRepository struct {
	db *gorm.DB
}

func NewTaskRepository(db *gorm.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

// WithTx returns a copy of the repository bound to the given transaction.
func (r *TaskRepository) WithTx(tx *gorm.DB) *TaskRepository {
	return &TaskRepository{db: tx}
}

func (r *TaskRepository) Create(ctx context.Context, task *model.Task) error {
	if task.ID == "" {
		task.ID = uuid.NewString()
	}
	if err := r.db.WithContext(ctx).Create(task).Error; err != nil {
		return fmt.Errorf("create task: %w", err)
	}
	return nil
}

func (r *TaskRepository) FindByID(ctx context.Context, taskID string) (*model.Task, error) {
	var task model.Task
	err := r.db.WithContext(ctx).
		Preload("Subtasks", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Where("id = ?", taskID).
		First(&task).Error
	if err != nil {
		return nil, err
	}
	return &task, nil
}

// ListByWorkspace returns the workspace's tasks newest first. Bare recurring
// templates are hidden; their dated occurrences show up instead.
func (r *TaskRepository) ListByWorkspace(ctx context.Context, workspaceID string) ([]model.Task, error) {
	var tasks []model.Task
	err := r.db.WithContext(ctx).
		Preload("Subtasks", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Where("workspace_id = ?", workspaceID).
		Where("is_recurring = ? OR original_task_id IS NOT NULL", false).
		Order("created_at DESC").
		Find(&tasks).Error
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return tasks, nil
}

// ListTemplates returns the user's recurring templates.
func (r *TaskRepository) ListTemplates(ctx context.Context, userID string) ([]model.Task, error) {
	var tasks []model.Task
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND is_recurring = ? AND original_task_id IS NULL", userID, true).
		Find(&tasks).Error
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	return tasks, nil
}

// TemplateOwners returns the distinct user ids that own at least one
// recurring template.
func (r *TaskRepository) TemplateOwners(ctx context.Context) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).Model(&model.Task{}).
		Where("is_recurring = ? AND original_task_id IS NULL", true).
		Distinct().
		Pluck("user_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("template owners: %w", err)
	}
	return ids, nil
}

// FindOccurrence returns the template's occurrence for the given day, or nil
// when none exists.
func (r *TaskRepository) FindOccurrence(ctx context.Context, templateID string, day time.Time) (*model.Task, error) {
	var task model.Task
	err := r.db.WithContext(ctx).
		Where("original_task_id = ? AND due_date = ?", templateID, model.DayOf(day)).
		First(&task).Error
	switch {
	case err == nil:
		return &task, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil, nil
	default:
		return nil, fmt.Errorf("find occurrence: %w", err)
	}
}

// DeleteOccurrence removes the template's occurrence for the given day along
// with its subtasks.
func (r *TaskRepository) DeleteOccurrence(ctx context.Context, templateID string, day time.Time) error {
	occ, err := r.FindOccurrence(ctx, templateID, day)
	if err != nil || occ == nil {
		return err
	}
	return r.deleteWithSubtasks(ctx, occ.ID)
}

// DeleteFamily removes a template and every occurrence spawned from it.
func (r *TaskRepository) DeleteFamily(ctx context.Context, templateID string) error {
	db := r.db.WithContext(ctx)
	var ids []string
	if err := db.Model(&model.Task{}).
		Where("id = ? OR original_task_id = ?", templateID, templateID).
		Pluck("id", &ids).Error; err != nil {
		return fmt.Errorf("collect family: %w", err)
	}
	if len(ids) == 0 {
		return nil
	}
	if err := db.Where("task_id IN ?", ids).Delete(&model.Subtask{}).Error; err != nil {
		return fmt.Errorf("delete family subtasks: %w", err)
	}
	if err := db.Where("id IN ?", ids).Delete(&model.Task{}).Error; err != nil {
		return fmt.Errorf("delete family: %w", err)
	}
	return nil
}

func (r *TaskRepository) Delete(ctx context.Context, taskID string) error {
	return r.deleteWithSubtasks(ctx, taskID)
}

func (r *TaskRepository) deleteWithSubtasks(ctx context.Context, taskID string) error {
	db := r.db.WithContext(ctx)
	if err := db.Where("task_id = ?", taskID).Delete(&model.Subtask{}).Error; err != nil {
		return fmt.Errorf("delete subtasks: %w", err)
	}
	if err := db.Where("id = ?", taskID).Delete(&model.Task{}).Error; err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	return nil
}

// Patch applies a partial column update to one task.
func (r *TaskRepository) Patch(ctx context.Context, taskID string, fields map[string]interface{}) error {
	if err := r.db.WithContext(ctx).Model(&model.Task{}).
		Where("id = ?", taskID).
		Updates(fields).Error; err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	return nil
}
