package sweeper

import (
	"time"

	"gorm.io/gorm"
)

// SweepRun is the outcome of one sweep of one day
type SweepRun struct {
	ID         uint64    `gorm:"primaryKey" json:"id"`
	CreatedAt  time.Time `json:"created_at"`
	Day        string    `gorm:"type:varchar(10);index" json:"day"`
	Trigger    string    `gorm:"type:varchar(20)" json:"trigger"`
	Absent     int       `json:"absent"`
	Skipped    int       `json:"skipped"`
	Pending    int       `json:"pending"`
	Failed     int       `json:"failed"`
	DurationMs int64     `json:"duration_ms"`
	Error      string    `gorm:"type:varchar(300)" json:"error,omitempty"`
}

// RunLog keeps sweep history in the SQL database
type RunLog struct {
	db *gorm.DB
}

func NewRunLog(db *gorm.DB) (*RunLog, error) {
	if err := db.AutoMigrate(&SweepRun{}); err != nil {
		return nil, err
	}
	return &RunLog{db: db}, nil
}

func (l *RunLog) Save(run *SweepRun) error {
	return l.db.Create(run).Error
}

// Recent returns the latest runs, newest first
func (l *RunLog) Recent(limit int) (runs []SweepRun, err error) {
	err = l.db.Order("id DESC").Limit(limit).Find(&runs).Error
	return
}
