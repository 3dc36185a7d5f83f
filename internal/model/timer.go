package model

import "time"

// TimerSession is one logged time-tracking run against a task. Sessions on a
// recurring occurrence carry the template id so history rolls up across days.
type TimerSession struct {
	ID                  string    `gorm:"primaryKey;size:36" json:"id"`
	UserID              string    `gorm:"index;size:36" json:"user_id"`
	TaskID              string    `gorm:"index;size:36" json:"task_id"`
	TaskTitle           string    `json:"task_title"`
	StartedAt           time.Time `gorm:"index" json:"started_at"`
	StoppedAt           time.Time `json:"stopped_at"`
	DurationSeconds     int       `json:"duration_seconds"`
	DurationMinutes     int       `json:"duration_minutes"`
	FinalStatus         Status    `json:"final_status"`
	RecurringTemplateID *string   `gorm:"index;size:36" json:"recurring_template_id"`
	CreatedAt           time.Time `json:"created_at"`
}

func (TimerSession) TableName() string { return "timer_history" }
