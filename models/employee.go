package models

import "time"

type Shift string

const (
	ShiftDay   Shift = "Day Shift"
	ShiftNight Shift = "Night Shift"
)

func (s Shift) Valid() bool {
	return s == ShiftDay || s == ShiftNight
}

// Employee is a roster entry. Only active employees are expected to check in
// and only they are marked absent by the sweeper.
type Employee struct {
	ID        string    `gorm:"type:varchar(64);primaryKey" bson:"_id" json:"id"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
	Name      string    `gorm:"type:varchar(200)" bson:"name" json:"name"`
	Shift     Shift     `gorm:"type:varchar(20)" bson:"shift" json:"shift"`
	BranchID  string    `gorm:"type:varchar(64);index" bson:"branch_id,omitempty" json:"branch_id"`
	Active    bool      `gorm:"index" bson:"active" json:"active"`
}
