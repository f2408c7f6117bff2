package model

import "time"

const (
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusAborted   = "aborted"
)

// BacktestRun groups the persisted output rows of one engine run. ConfigJSON
// is the exact strategy config the run was started with, kept for
// reproducibility.
type BacktestRun struct {
	ID         string     `gorm:"type:varchar(36);primaryKey" json:"id"`
	Name       string     `gorm:"size:255" json:"name"`
	ConfigJSON string     `gorm:"type:text" json:"config_json"`
	StartDate  time.Time  `json:"start_date"`
	EndDate    time.Time  `json:"end_date"`
	Status     string     `gorm:"size:20;not null" json:"status"`
	Error      string     `gorm:"type:text" json:"error,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

func (BacktestRun) TableName() string {
	return "backtest_runs"
}
