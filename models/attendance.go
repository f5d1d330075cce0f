package models

import "time"

type AttendanceStatus string

const (
	StatusOnTime AttendanceStatus = "On-Time"
	StatusLate   AttendanceStatus = "Late"
	StatusAbsent AttendanceStatus = "Absent"
)

// AttendanceRecord is the single ledger entry of an employee for a work day.
// CheckinTime and CheckinImageRef are nil only for absences written by the sweeper.
type AttendanceRecord struct {
	ID                 string           `gorm:"type:varchar(36);primaryKey" bson:"_id" json:"id"`
	CreatedAt          time.Time        `bson:"created_at" json:"created_at"`
	EmployeeID         string           `gorm:"type:varchar(64);not null;index:uniq_employee_day,unique,priority:1" bson:"employee_id" json:"employee_id"`
	EmployeeName       string           `gorm:"type:varchar(200)" bson:"employee_name" json:"employee_name"`
	Day                string           `gorm:"type:varchar(10);not null;index:uniq_employee_day,unique,priority:2;index:idx_attendance_day" bson:"day" json:"day"` // YYYY-MM-DD
	CheckinTime        *time.Time       `bson:"checkin_time,omitempty" json:"checkin_time"`
	CheckinImageRef    *string          `gorm:"type:varchar(300)" bson:"checkin_image_ref,omitempty" json:"checkin_image_ref"`
	CheckoutTime       *time.Time       `bson:"checkout_time,omitempty" json:"checkout_time"`
	ClaimedCheckinTime *time.Time       `bson:"claimed_checkin_time,omitempty" json:"claimed_checkin_time,omitempty"` // informational only
	Shift              Shift            `gorm:"type:varchar(20)" bson:"shift" json:"shift"`
	Status             AttendanceStatus `gorm:"type:varchar(20)" bson:"status" json:"status"`
	MatchDistance      *float64         `bson:"match_distance,omitempty" json:"match_distance,omitempty"`
	MatchConfidence    *float64         `bson:"match_confidence,omitempty" json:"match_confidence,omitempty"`
}

func (r *AttendanceRecord) CheckedIn() bool {
	return r.CheckinTime != nil && r.Status != StatusAbsent
}

func (r *AttendanceRecord) CheckedOut() bool {
	return r.CheckoutTime != nil
}
