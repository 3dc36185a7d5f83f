package service

import (
	"context"
	"errors"
	"fmt"
	"log"

	"gorm.io/gorm"

	"flowtrack/internal/model"
	"flowtrack/internal/repository"
)

// RecurrenceService maintains the one-occurrence-per-template-per-day
// invariant for recurring tasks.
type RecurrenceService struct {
	tasks    *repository.TaskRepository
	subtasks *repository.SubtaskRepository
}

func NewRecurrenceService(tasks *repository.TaskRepository, subtasks *repository.SubtaskRepository) *RecurrenceService {
	return &RecurrenceService{tasks: tasks, subtasks: subtasks}
}

// MaterializeToday ensures the template has an occurrence dated today and
// returns it, or nil when one already exists. The existence check is
// re-verified by the store's unique (template, day) index, so a concurrent
// insert surfaces as ErrDuplicatedKey and is treated as "already exists"
// rather than an error. Best effort, not linearizable.
func (s *RecurrenceService) MaterializeToday(ctx context.Context, templateID string) (*model.Task, error) {
	template, err := s.tasks.FindByID(ctx, templateID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("materialize %s: %w", templateID, ErrNotFound)
		}
		return nil, fmt.Errorf("materialize %s: %w", templateID, err)
	}
	if template.Kind() != model.KindTemplate {
		return nil, fmt.Errorf("materialize %s: not a recurring template: %w", templateID, ErrValidation)
	}

	today := model.Today()
	existing, err := s.tasks.FindOccurrence(ctx, templateID, today)
	if err != nil {
		return nil, fmt.Errorf("materialize %s: %w", templateID, err)
	}
	if existing != nil {
		return nil, nil
	}

	occurrence := &model.Task{
		UserID:          template.UserID,
		WorkspaceID:     template.WorkspaceID,
		Title:           template.Title,
		Description:     template.Description,
		DueDate:         &today,
		DueTime:         template.DueTime,
		Priority:        template.Priority,
		Status:          model.StatusBacklog,
		EstimateMinutes: template.EstimateMinutes,
		Tags:            template.Tags,
		IsRecurring:     true,
		OriginalTaskID:  &template.ID,
	}
	if err := s.tasks.Create(ctx, occurrence); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// Another session won the race for today; that copy stands.
			return nil, nil
		}
		return nil, fmt.Errorf("materialize %s: %w", templateID, err)
	}

	if len(template.Subtasks) > 0 {
		titles := make([]string, 0, len(template.Subtasks))
		for _, st := range template.Subtasks {
			titles = append(titles, st.Title)
		}
		if err := s.subtasks.CreateBatch(ctx, occurrence.ID, titles); err != nil {
			return nil, fmt.Errorf("materialize %s subtasks: %w", templateID, err)
		}
	}

	return s.tasks.FindByID(ctx, occurrence.ID)
}

// ReconcileAll materializes today's occurrence for every template the user
// owns. Safe to call repeatedly; failures on one template do not stop the
// rest.
func (s *RecurrenceService) ReconcileAll(ctx context.Context, userID string) error {
	templates, err := s.tasks.ListTemplates(ctx, userID)
	if err != nil {
		return fmt.Errorf("reconcile user %s: %w", userID, err)
	}
	var firstErr error
	for _, tpl := range templates {
		if _, err := s.MaterializeToday(ctx, tpl.ID); err != nil {
			log.Printf("reconcile template %s: %v", tpl.ID, err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// ReconcileEveryone runs ReconcileAll for every user that owns a template.
// Called from the scheduler at day boundaries.
func (s *RecurrenceService) ReconcileEveryone(ctx context.Context) error {
	owners, err := s.tasks.TemplateOwners(ctx)
	if err != nil {
		return fmt.Errorf("reconcile everyone: %w", err)
	}
	var firstErr error
	for _, userID := range owners {
		if err := s.ReconcileAll(ctx, userID); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Rematerialize drops today's occurrence for a template and spawns a fresh
// one, so same-day copies pick up template edits immediately.
func (s *RecurrenceService) Rematerialize(ctx context.Context, templateID string) (*model.Task, error) {
	if err := s.tasks.DeleteOccurrence(ctx, templateID, model.Today()); err != nil {
		return nil, fmt.Errorf("rematerialize %s: %w", templateID, err)
	}
	return s.MaterializeToday(ctx, templateID)
}
