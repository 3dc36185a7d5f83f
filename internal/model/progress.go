package model

import (
	"time"

	"gorm.io/datatypes"
)

// UserProgress holds one user's aggregate gamification state. current_xp and
// total_xp are kept equal; levels never reset earned XP.
type UserProgress struct {
	ID             string    `gorm:"primaryKey;size:36" json:"id"`
	UserID         string    `gorm:"uniqueIndex;size:36" json:"user_id"`
	Level          int       `gorm:"default:1" json:"level"`
	CurrentXP      int       `gorm:"column:current_xp;default:0" json:"current_xp"`
	TotalXP        int       `gorm:"column:total_xp;default:0" json:"total_xp"`
	TasksCompleted int       `gorm:"default:0" json:"tasks_completed"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func (UserProgress) TableName() string { return "user_progress" }

// CompletedTask snapshots a task at the moment it was completed. At most one
// row exists per (task, user); uncompleting removes it again.
type CompletedTask struct {
	ID              string                      `gorm:"primaryKey;size:36" json:"id"`
	TaskID          string                      `gorm:"index;size:36" json:"task_id"`
	UserID          string                      `gorm:"index;size:36" json:"user_id"`
	Title           string                      `json:"title"`
	Description     *string                     `json:"description"`
	Priority        Priority                    `json:"priority"`
	EstimateMinutes int                         `json:"estimate_minutes"`
	Tags            datatypes.JSONSlice[string] `json:"tags"`
	WorkspaceID     string                      `gorm:"size:36" json:"workspace_id"`
	XPEarned        int                         `gorm:"column:xp_earned" json:"xp_earned"`
	CompletedAt     time.Time                   `json:"completed_at"`
	CreatedAt       time.Time                   `json:"created_at"`
}

// DailyCompletion is the per-user per-day completion rollup that feeds streak
// and "today" stats. The row is created on the first completion of the day
// and deleted once its counter drops back to zero.
type DailyCompletion struct {
	ID             string    `gorm:"primaryKey;size:36" json:"id"`
	UserID         string    `gorm:"size:36;index:idx_user_day,unique" json:"user_id"`
	Day            time.Time `gorm:"index:idx_user_day,unique" json:"day"`
	TasksCompleted int       `gorm:"default:0" json:"tasks_completed"`
	XPEarned       int       `gorm:"column:xp_earned;default:0" json:"xp_earned"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// LevelRequirement maps a level to the XP needed within it (xp_required) and
// the cumulative XP threshold to reach it (xp_total). Reference data, read
// only.
type LevelRequirement struct {
	Level      int `gorm:"primaryKey" json:"level"`
	XPRequired int `gorm:"column:xp_required" json:"xp_required"`
	XPTotal    int `gorm:"column:xp_total" json:"xp_total"`
}
