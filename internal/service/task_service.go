package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"flowtrack/internal/model"
	"flowtrack/internal/repository"
	"flowtrack/internal/status"
	"flowtrack/internal/xp"
)

// TaskInput carries the fields a caller may set when creating or editing a
// task.
type TaskInput struct {
	Title           string
	Description     *string
	WorkspaceID     string
	DueDate         *time.Time
	DueTime         *string
	Priority        model.Priority
	Status          model.Status
	EstimateMinutes int
	Tags            []string
	IsRecurring     bool
	Subtasks        []string
}

// ToggleResult reports the gamification outcome of a completion toggle.
// Breakdown is set only when a task was completed.
type ToggleResult struct {
	XPEarned  int           `json:"xp_earned"`
	LeveledUp bool          `json:"leveled_up"`
	NewLevel  int           `json:"new_level"`
	Breakdown *xp.Breakdown `json:"breakdown,omitempty"`
}

// TaskService orchestrates the task lifecycle: CRUD with recurrence
// handling, completion toggles with XP awards, archiving, and timer-driven
// status changes.
type TaskService struct {
	db         *gorm.DB
	tasks      *repository.TaskRepository
	subtasks   *repository.SubtaskRepository
	progress   *ProgressService
	recurrence *RecurrenceService
}

func NewTaskService(
	db *gorm.DB,
	tasks *repository.TaskRepository,
	subtasks *repository.SubtaskRepository,
	progress *ProgressService,
	recurrence *RecurrenceService,
) *TaskService {
	return &TaskService{
		db:         db,
		tasks:      tasks,
		subtasks:   subtasks,
		progress:   progress,
		recurrence: recurrence,
	}
}

// Get returns a task with its subtasks.
func (s *TaskService) Get(ctx context.Context, taskID string) (*model.Task, error) {
	task, err := s.tasks.FindByID(ctx, taskID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("task %s: %w", taskID, ErrNotFound)
		}
		return nil, fmt.Errorf("task %s: %w", taskID, err)
	}
	return task, nil
}

// ListByWorkspace returns the workspace's visible tasks (templates hidden).
func (s *TaskService) ListByWorkspace(ctx context.Context, workspaceID string) ([]model.Task, error) {
	return s.tasks.ListByWorkspace(ctx, workspaceID)
}

// Create inserts a new task. Recurring tasks never carry a concrete date;
// the template is stored dateless and today's occurrence is materialized
// immediately, and the occurrence is what the caller gets back.
func (s *TaskService) Create(ctx context.Context, userID string, input TaskInput) (*model.Task, error) {
	if strings.TrimSpace(input.Title) == "" {
		return nil, fmt.Errorf("title is required: %w", ErrValidation)
	}

	task := model.Task{
		UserID:          userID,
		WorkspaceID:     input.WorkspaceID,
		Title:           input.Title,
		Description:     input.Description,
		DueTime:         input.DueTime,
		Priority:        input.Priority,
		Status:          input.Status,
		EstimateMinutes: input.EstimateMinutes,
		Tags:            datatypes.JSONSlice[string](input.Tags),
		IsRecurring:     input.IsRecurring,
	}
	if task.Priority == "" {
		task.Priority = model.PriorityMedium
	}
	if task.Status == "" {
		task.Status = model.StatusBacklog
	}
	if !input.IsRecurring && input.DueDate != nil {
		day := model.DayOf(*input.DueDate)
		task.DueDate = &day
		task.Status = status.OnDeadlineSet(task.Status)
	}

	if err := s.tasks.Create(ctx, &task); err != nil {
		return nil, err
	}
	if err := s.subtasks.CreateBatch(ctx, task.ID, input.Subtasks); err != nil {
		return nil, err
	}

	resultID := task.ID
	if input.IsRecurring {
		copyTask, err := s.recurrence.MaterializeToday(ctx, task.ID)
		if err != nil {
			return nil, err
		}
		if copyTask != nil {
			resultID = copyTask.ID
		}
	}
	return s.Get(ctx, resultID)
}

// Update edits a task. Editing an occurrence propagates the shared fields
// back onto its template, which stays the canonical source for future days;
// the occurrence keeps its own status and date. Editing a template (or
// turning recurrence on) re-materializes today's occurrence so the current
// day reflects the edit.
func (s *TaskService) Update(ctx context.Context, taskID string, input TaskInput) (*model.Task, error) {
	current, err := s.Get(ctx, taskID)
	if err != nil {
		return nil, err
	}

	if current.Kind() == model.KindOccurrence {
		return s.updateOccurrence(ctx, current, input)
	}
	return s.updateRegular(ctx, current, input)
}

func (s *TaskService) updateOccurrence(ctx context.Context, occ *model.Task, input TaskInput) (*model.Task, error) {
	templateID := *occ.OriginalTaskID

	shared := s.sharedFields(input)
	shared["due_date"] = nil
	shared["is_recurring"] = input.IsRecurring
	if err := s.tasks.Patch(ctx, templateID, shared); err != nil {
		return nil, err
	}
	if input.Subtasks != nil {
		if err := s.subtasks.ReplaceAll(ctx, templateID, input.Subtasks); err != nil {
			return nil, err
		}
	}

	own := s.sharedFields(input)
	if input.Status != "" {
		own["status"] = input.Status
	}
	if err := s.tasks.Patch(ctx, occ.ID, own); err != nil {
		return nil, err
	}
	if input.Subtasks != nil {
		if err := s.subtasks.ReplaceAll(ctx, occ.ID, input.Subtasks); err != nil {
			return nil, err
		}
	}
	return s.Get(ctx, occ.ID)
}

func (s *TaskService) updateRegular(ctx context.Context, task *model.Task, input TaskInput) (*model.Task, error) {
	fields := s.sharedFields(input)
	fields["is_recurring"] = input.IsRecurring
	if input.Status != "" {
		fields["status"] = input.Status
	}
	if input.IsRecurring {
		fields["due_date"] = nil
	} else if input.DueDate != nil {
		fields["due_date"] = model.DayOf(*input.DueDate)
	} else {
		fields["due_date"] = nil
	}

	if err := s.tasks.Patch(ctx, task.ID, fields); err != nil {
		return nil, err
	}
	if input.Subtasks != nil {
		if err := s.subtasks.ReplaceAll(ctx, task.ID, input.Subtasks); err != nil {
			return nil, err
		}
	}

	if input.IsRecurring {
		if _, err := s.recurrence.Rematerialize(ctx, task.ID); err != nil {
			return nil, err
		}
	}
	return s.Get(ctx, task.ID)
}

func (s *TaskService) sharedFields(input TaskInput) map[string]interface{} {
	return map[string]interface{}{
		"title":            input.Title,
		"description":      input.Description,
		"workspace_id":     input.WorkspaceID,
		"due_time":         input.DueTime,
		"priority":         input.Priority,
		"estimate_minutes": input.EstimateMinutes,
		"tags":             datatypes.JSONSlice[string](input.Tags),
	}
}

// Delete removes a task. Deleting any member of a recurring series removes
// the whole family, template and occurrences alike; only standalone tasks
// are deleted in isolation.
func (s *TaskService) Delete(ctx context.Context, taskID string) error {
	task, err := s.Get(ctx, taskID)
	if err != nil {
		return err
	}
	switch task.Kind() {
	case model.KindTemplate:
		return s.tasks.DeleteFamily(ctx, task.ID)
	case model.KindOccurrence:
		return s.tasks.DeleteFamily(ctx, *task.OriginalTaskID)
	default:
		return s.tasks.Delete(ctx, task.ID)
	}
}

// ToggleCompletion flips a task between done and not-done, moving XP,
// completion records, and daily rollups in the same direction. The whole
// sequence runs in one store transaction.
func (s *TaskService) ToggleCompletion(ctx context.Context, taskID string) (ToggleResult, error) {
	task, err := s.Get(ctx, taskID)
	if err != nil {
		return ToggleResult{}, err
	}

	checking := !status.IsCompleted(task.Status)
	newStatus := status.OnCheckboxToggle(task.Status, checking, task.PreviousStatus, task.DueDate != nil)
	if newStatus == task.Status {
		return ToggleResult{}, nil
	}

	var result ToggleResult
	err = s.db.Transaction(func(tx *gorm.DB) error {
		tasks := s.tasks.WithTx(tx)
		subtasks := s.subtasks.WithTx(tx)
		progress := s.progress.WithTx(tx)

		prev := task.Status
		if newStatus == model.StatusDone {
			if err := subtasks.SetCompletedForTask(ctx, task.ID, true); err != nil {
				return err
			}
			now := time.Now().UTC()
			if err := tasks.Patch(ctx, task.ID, map[string]interface{}{
				"status":          newStatus,
				"completed_at":    now,
				"previous_status": prev,
			}); err != nil {
				return err
			}
			xpEarned, newLevel, leveledUp, err := progress.CompleteTask(ctx, task)
			if err != nil {
				return err
			}
			breakdown := xp.XPBreakdown(task.Priority, task.CompletedSubtasks())
			result = ToggleResult{XPEarned: xpEarned, LeveledUp: leveledUp, NewLevel: newLevel, Breakdown: &breakdown}
			return nil
		}

		if err := subtasks.SetCompletedForTask(ctx, task.ID, false); err != nil {
			return err
		}
		if err := tasks.Patch(ctx, task.ID, map[string]interface{}{
			"status":          newStatus,
			"completed_at":    nil,
			"previous_status": prev,
		}); err != nil {
			return err
		}
		xpRemoved, err := progress.UncompleteTask(ctx, task)
		if err != nil {
			return err
		}
		result = ToggleResult{XPEarned: -xpRemoved}
		return nil
	})
	if err != nil {
		return ToggleResult{}, fmt.Errorf("toggle completion %s: %w", taskID, err)
	}
	return result, nil
}

// Archive parks a task, recording where it came from. Archiving never
// touches XP or progress.
func (s *TaskService) Archive(ctx context.Context, taskID string) error {
	task, err := s.Get(ctx, taskID)
	if err != nil {
		return err
	}
	if status.IsArchived(task.Status) {
		return nil
	}
	return s.tasks.Patch(ctx, taskID, map[string]interface{}{
		"status":          model.StatusArchived,
		"previous_status": task.Status,
	})
}

// Unarchive restores an archived task to its previous status, or derives
// one from the presence of a due date.
func (s *TaskService) Unarchive(ctx context.Context, taskID string) error {
	task, err := s.Get(ctx, taskID)
	if err != nil {
		return err
	}
	if !status.IsArchived(task.Status) {
		return nil
	}
	target := status.RestoreTarget(task.PreviousStatus, task.DueDate != nil)
	return s.tasks.Patch(ctx, taskID, map[string]interface{}{"status": target})
}

// MarkInProgress moves a task to in_progress, remembering the prior status.
// Used by timer start.
func (s *TaskService) MarkInProgress(ctx context.Context, taskID string) error {
	task, err := s.Get(ctx, taskID)
	if err != nil {
		return err
	}
	target := status.OnTimerStart(task.Status)
	if target == task.Status {
		return nil
	}
	return s.tasks.Patch(ctx, taskID, map[string]interface{}{
		"status":          target,
		"previous_status": task.Status,
	})
}

// UpdateStatus applies a direct status change, validating the transition.
func (s *TaskService) UpdateStatus(ctx context.Context, taskID string, to model.Status) error {
	if !to.Valid() {
		return fmt.Errorf("status %q: %w", to, ErrValidation)
	}
	task, err := s.Get(ctx, taskID)
	if err != nil {
		return err
	}
	if !status.CanTransition(task.Status, to) {
		return fmt.Errorf("%s -> %s: %w", task.Status, to, ErrInvalidTransition)
	}
	if task.Status == to {
		return nil
	}
	return s.tasks.Patch(ctx, taskID, map[string]interface{}{
		"status":          to,
		"previous_status": task.Status,
	})
}

// ListSubtasks returns a task's checklist in position order.
func (s *TaskService) ListSubtasks(ctx context.Context, taskID string) ([]model.Subtask, error) {
	if _, err := s.Get(ctx, taskID); err != nil {
		return nil, err
	}
	return s.subtasks.ListByTask(ctx, taskID)
}

// UpdateSubtask applies a single-field patch to a subtask.
func (s *TaskService) UpdateSubtask(ctx context.Context, subtaskID string, patch repository.SubtaskPatch) error {
	err := s.subtasks.Patch(ctx, subtaskID, patch)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("subtask %s: %w", subtaskID, ErrNotFound)
	}
	return err
}
