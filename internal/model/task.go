package model

import (
	"time"

	"gorm.io/datatypes"
)

// Status is the lifecycle state of a task.
type Status string

const (
	StatusBacklog    Status = "backlog"
	StatusPlanned    Status = "planned"
	StatusInProgress Status = "in_progress"
	StatusDone       Status = "done"
	StatusArchived   Status = "archived"
)

// Statuses lists every task status in display order.
var Statuses = []Status{StatusBacklog, StatusPlanned, StatusInProgress, StatusDone, StatusArchived}

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	for _, known := range Statuses {
		if s == known {
			return true
		}
	}
	return false
}

// Priority weighs a task for XP purposes.
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// Kind classifies a task by its role in a recurring series. It is derived
// once at load time instead of re-inspecting nullable fields at every call
// site.
type Kind int

const (
	KindStandalone Kind = iota
	KindTemplate
	KindOccurrence
)

// Task represents a single unit of work.
//
// A task is either standalone, a recurring template (no concrete date, the
// canonical source for its occurrences), or a dated occurrence pointing back
// at its template. At most one occurrence per template per calendar day may
// exist; the unique index on (original_task_id, due_date) enforces that in
// the store.
type Task struct {
	ID              string                      `gorm:"primaryKey;size:36" json:"id"`
	UserID          string                      `gorm:"index;size:36" json:"user_id"`
	WorkspaceID     string                      `gorm:"index;size:36" json:"workspace_id"`
	Title           string                      `json:"title"`
	Description     *string                     `json:"description"`
	DueDate         *time.Time                  `gorm:"index:idx_template_day,unique" json:"due_date"`
	DueTime         *string                     `json:"due_time"`
	Priority        Priority                    `gorm:"default:'medium'" json:"priority"`
	Status          Status                      `gorm:"default:'backlog'" json:"status"`
	PreviousStatus  *Status                     `json:"previous_status,omitempty"`
	EstimateMinutes int                         `json:"estimate_minutes"`
	Tags            datatypes.JSONSlice[string] `json:"tags"`
	CompletedAt     *time.Time                  `json:"completed_at"`
	IsRecurring     bool                        `gorm:"default:false" json:"is_recurring"`
	OriginalTaskID  *string                     `gorm:"size:36;index:idx_template_day,unique" json:"original_task_id"`
	CreatedAt       time.Time                   `json:"created_at"`
	UpdatedAt       time.Time                   `json:"updated_at"`
	Subtasks        []Subtask                   `gorm:"foreignKey:TaskID" json:"subtasks,omitempty"`
}

// Kind derives the task's role in a recurring series.
func (t *Task) Kind() Kind {
	switch {
	case t.OriginalTaskID != nil:
		return KindOccurrence
	case t.IsRecurring:
		return KindTemplate
	default:
		return KindStandalone
	}
}

// CompletedSubtasks counts subtasks marked completed.
func (t *Task) CompletedSubtasks() int {
	n := 0
	for _, st := range t.Subtasks {
		if st.Completed {
			n++
		}
	}
	return n
}

// Subtask is a checklist item owned by a task. Subtasks are replaced
// wholesale on task edit; position stays contiguous from zero.
type Subtask struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	TaskID    string    `gorm:"index;size:36" json:"task_id"`
	Title     string    `json:"title"`
	Completed bool      `gorm:"default:false" json:"completed"`
	Position  int       `json:"position"`
	CreatedAt time.Time `json:"created_at"`
}

// DayOf truncates t to its UTC calendar day. Every "today" comparison in the
// system goes through DayOf or Today so the day-boundary policy stays uniform.
func DayOf(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Today returns the current UTC calendar day.
func Today() time.Time {
	return DayOf(time.Now())
}
