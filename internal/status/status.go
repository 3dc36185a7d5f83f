// Package status implements the task status state machine. Everything here
// is pure: callers apply the returned statuses themselves.
package status

import "flowtrack/internal/model"

// transitions maps each status to the statuses directly reachable from it.
// Self-transitions are always allowed and not listed. Archived tasks must
// re-enter an active status first; archived -> done is not a legal move.
var transitions = map[model.Status][]model.Status{
	model.StatusBacklog:    {model.StatusPlanned, model.StatusDone, model.StatusArchived},
	model.StatusPlanned:    {model.StatusInProgress, model.StatusDone, model.StatusBacklog, model.StatusArchived},
	model.StatusInProgress: {model.StatusDone, model.StatusPlanned, model.StatusArchived},
	model.StatusDone:       {model.StatusArchived, model.StatusPlanned, model.StatusBacklog, model.StatusInProgress},
	model.StatusArchived:   {model.StatusBacklog, model.StatusPlanned, model.StatusInProgress},
}

// CanTransition reports whether moving from one status to the other is legal.
func CanTransition(from, to model.Status) bool {
	if from == to {
		return true
	}
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Available returns the statuses directly reachable from current.
func Available(current model.Status) []model.Status {
	next := transitions[current]
	out := make([]model.Status, len(next))
	copy(out, next)
	return out
}

// OnDeadlineSet derives the status after a due date is attached. Backlog
// tasks move to planned; everything else keeps its status.
func OnDeadlineSet(current model.Status) model.Status {
	if current == model.StatusBacklog {
		return model.StatusPlanned
	}
	return current
}

// OnTimerStart derives the status after a timer starts on the task.
func OnTimerStart(current model.Status) model.Status {
	if current == model.StatusBacklog || current == model.StatusPlanned {
		return model.StatusInProgress
	}
	return current
}

// OnCheckboxToggle derives the status after the completion checkbox changes.
// Checking completes any non-done, non-archived task. Unchecking a done task
// restores the recorded previous status when it is a meaningful restore
// target, otherwise falls back based on whether the task has a due date.
func OnCheckboxToggle(current model.Status, checking bool, previous *model.Status, hasDueDate bool) model.Status {
	if checking {
		if current != model.StatusDone && current != model.StatusArchived {
			return model.StatusDone
		}
		return current
	}
	if current == model.StatusDone {
		return RestoreTarget(previous, hasDueDate)
	}
	return current
}

// RestoreTarget picks the status a task returns to when leaving done or
// archived. Done and archived are never restore targets.
func RestoreTarget(previous *model.Status, hasDueDate bool) model.Status {
	if previous != nil && previous.Valid() && *previous != model.StatusDone && *previous != model.StatusArchived {
		return *previous
	}
	if hasDueDate {
		return model.StatusPlanned
	}
	return model.StatusBacklog
}

// IsCompleted reports whether the status counts as completed.
func IsCompleted(s model.Status) bool { return s == model.StatusDone }

// IsArchived reports whether the status is archived.
func IsArchived(s model.Status) bool { return s == model.StatusArchived }

// CanCheck reports whether the completion checkbox is usable in this status.
func CanCheck(s model.Status) bool { return s != model.StatusArchived }
