package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"flowtrack/internal/model"
)

// SubtaskRepository handles checklist items under tasks.
type SubtaskRepository struct {
	db *gorm.DB
}

func NewSubtaskRepository(db *gorm.DB) *SubtaskRepository {
	return &SubtaskRepository{db: db}
}

// WithTx returns a copy of the repository bound to the given transaction.
func (r *SubtaskRepository) WithTx(tx *gorm.DB) *SubtaskRepository {
	return &SubtaskRepository{db: tx}
}

// CreateBatch inserts fresh uncompleted subtasks with contiguous positions.
func (r *SubtaskRepository) CreateBatch(ctx context.Context, taskID string, titles []string) error {
	if len(titles) == 0 {
		return nil
	}
	rows := make([]model.Subtask, 0, len(titles))
	for i, title := range titles {
		rows = append(rows, model.Subtask{
			ID:       uuid.NewString(),
			TaskID:   taskID,
			Title:    title,
			Position: i,
		})
	}
	if err := r.db.WithContext(ctx).Create(&rows).Error; err != nil {
		return fmt.Errorf("create subtasks: %w", err)
	}
	return nil
}

// ReplaceAll swaps a task's checklist wholesale: delete everything, reinsert
// in order.
func (r *SubtaskRepository) ReplaceAll(ctx context.Context, taskID string, titles []string) error {
	if err := r.db.WithContext(ctx).Where("task_id = ?", taskID).Delete(&model.Subtask{}).Error; err != nil {
		return fmt.Errorf("clear subtasks: %w", err)
	}
	return r.CreateBatch(ctx, taskID, titles)
}

// SetCompletedForTask flips every subtask of a task at once.
func (r *SubtaskRepository) SetCompletedForTask(ctx context.Context, taskID string, completed bool) error {
	if err := r.db.WithContext(ctx).Model(&model.Subtask{}).
		Where("task_id = ?", taskID).
		Update("completed", completed).Error; err != nil {
		return fmt.Errorf("set subtasks completed: %w", err)
	}
	return nil
}

// SubtaskPatch is a partial update for a single subtask.
type SubtaskPatch struct {
	Title     *string
	Completed *bool
	Position  *int
}

func (r *SubtaskRepository) Patch(ctx context.Context, subtaskID string, patch SubtaskPatch) error {
	fields := map[string]interface{}{}
	if patch.Title != nil {
		fields["title"] = *patch.Title
	}
	if patch.Completed != nil {
		fields["completed"] = *patch.Completed
	}
	if patch.Position != nil {
		fields["position"] = *patch.Position
	}
	if len(fields) == 0 {
		return nil
	}
	res := r.db.WithContext(ctx).Model(&model.Subtask{}).
		Where("id = ?", subtaskID).
		Updates(fields)
	if res.Error != nil {
		return fmt.Errorf("update subtask: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *SubtaskRepository) ListByTask(ctx context.Context, taskID string) ([]model.Subtask, error) {
	var subtasks []model.Subtask
	if err := r.db.WithContext(ctx).
		Where("task_id = ?", taskID).
		Order("position ASC").
		Find(&subtasks).Error; err != nil {
		return nil, fmt.Errorf("list subtasks: %w", err)
	}
	return subtasks, nil
}
