package models

import "time"

type EnrollmentStatus string

const (
	EnrollmentPending  EnrollmentStatus = "pending"
	EnrollmentEnrolled EnrollmentStatus = "enrolled"
	EnrollmentFailed   EnrollmentStatus = "failed"
)

// EnrolledIdentity holds the reference face of an employee. Re-enrollment replaces the row.
type EnrolledIdentity struct {
	EmployeeID string           `gorm:"type:varchar(64);primaryKey" bson:"_id" json:"employee_id"`
	Descriptor []byte           `gorm:"type:blob" bson:"descriptor" json:"-"` // 128 little-endian float32
	Status     EnrollmentStatus `gorm:"type:varchar(20)" bson:"status" json:"status"`
	Confidence float64          `bson:"confidence" json:"confidence"`
	ImageRef   *string          `gorm:"type:varchar(300)" bson:"image_ref,omitempty" json:"image_ref"`
	Error      string           `gorm:"type:varchar(300)" bson:"error,omitempty" json:"error,omitempty"`
	EnrolledAt time.Time        `bson:"enrolled_at" json:"enrolled_at"`
}
