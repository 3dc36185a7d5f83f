// Package xp computes experience points, levels, and level progress. All
// functions are deterministic and never fail; out-of-domain input falls back
// to neutral defaults.
package xp

import "flowtrack/internal/model"

const (
	baseXP       = 10
	subtaskBonus = 5
)

func multiplier(p model.Priority) float64 {
	switch p {
	case model.PriorityLow:
		return 1.0
	case model.PriorityMedium:
		return 1.5
	case model.PriorityHigh:
		return 2.0
	case model.PriorityCritical:
		return 3.0
	default:
		return 1.0
	}
}

// TaskXP returns the XP awarded for completing a task of the given priority
// with completedSubtasks subtasks checked at completion time.
func TaskXP(priority model.Priority, completedSubtasks int) int {
	if completedSubtasks < 0 {
		completedSubtasks = 0
	}
	return int(baseXP*multiplier(priority)) + completedSubtasks*subtaskBonus
}

// Breakdown itemizes an XP award for display.
type Breakdown struct {
	BaseXP        int `json:"base_xp"`
	PriorityBonus int `json:"priority_bonus"`
	SubtaskBonus  int `json:"subtask_bonus"`
	TotalXP       int `json:"total_xp"`
}

// XPBreakdown splits a task's XP into base, priority bonus, and subtask
// bonus parts.
func XPBreakdown(priority model.Priority, completedSubtasks int) Breakdown {
	if completedSubtasks < 0 {
		completedSubtasks = 0
	}
	total := TaskXP(priority, completedSubtasks)
	sub := completedSubtasks * subtaskBonus
	return Breakdown{
		BaseXP:        baseXP,
		PriorityBonus: total - sub - baseXP,
		SubtaskBonus:  sub,
		TotalXP:       total,
	}
}

// Level returns the highest level whose cumulative threshold is within
// totalXP. Requirements are expected sorted by level ascending; the scan runs
// highest-first so ties resolve to the higher level. An empty table yields
// level 1.
func Level(totalXP int, requirements []model.LevelRequirement) int {
	for i := len(requirements) - 1; i >= 0; i-- {
		if totalXP >= requirements[i].XPTotal {
			return requirements[i].Level
		}
	}
	return 1
}

// Progress describes how far into the current level a user is.
type Progress struct {
	CurrentLevelXP     int `json:"current_level_xp"`
	NextLevelXP        int `json:"next_level_xp"`
	ProgressXP         int `json:"progress_xp"`
	ProgressPercentage int `json:"progress_percentage"`
}

// ProgressToNext reports progress from the current level toward the next
// one. When either level is missing from the table the user is treated as
// maxed out: percentage 100, XP fields zeroed.
func ProgressToNext(totalXP, currentLevel int, requirements []model.LevelRequirement) Progress {
	var current, next *model.LevelRequirement
	for i := range requirements {
		switch requirements[i].Level {
		case currentLevel:
			current = &requirements[i]
		case currentLevel + 1:
			next = &requirements[i]
		}
	}
	if current == nil || next == nil {
		return Progress{ProgressPercentage: 100}
	}

	progress := totalXP - current.XPTotal
	needed := next.XPTotal - current.XPTotal
	pct := 100
	if needed > 0 {
		pct = progress * 100 / needed
		if pct > 100 {
			pct = 100
		}
	}
	return Progress{
		CurrentLevelXP:     current.XPTotal,
		NextLevelXP:        next.XPTotal,
		ProgressXP:         progress,
		ProgressPercentage: pct,
	}
}

// SubtaskSummary is a checklist completion rollup.
type SubtaskSummary struct {
	Completed  int `json:"completed"`
	Total      int `json:"total"`
	Percentage int `json:"percentage"`
}

// SubtaskProgress rolls up how much of a checklist is done. An empty
// checklist reports zero percent.
func SubtaskProgress(subtasks []model.Subtask) SubtaskSummary {
	summary := SubtaskSummary{Total: len(subtasks)}
	for _, st := range subtasks {
		if st.Completed {
			summary.Completed++
		}
	}
	if summary.Total > 0 {
		summary.Percentage = summary.Completed * 100 / summary.Total
	}
	return summary
}
