// Package store defines the persistence boundary of the attendance workflow.
// Backends live in gormstore (MySQL/SQLite) and mongostore (MongoDB).
package store

import (
	"context"
	"errors"
	"time"

	"rollcall/models"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrDuplicateRecord   = errors.New("attendance record already exists for this day")
	ErrAlreadyCheckedOut = errors.New("attendance record already checked out")
)

type IdentityStore interface {
	// GetEnrolledIdentity returns ErrNotFound when the employee was never enrolled
	GetEnrolledIdentity(ctx context.Context, employeeID string) (*models.EnrolledIdentity, error)
	// SaveEnrolledIdentity replaces any previous enrollment of the employee
	SaveEnrolledIdentity(ctx context.Context, identity *models.EnrolledIdentity) error
}

type Ledger interface {
	// FindRecord returns nil, nil when the employee has no record for day
	FindRecord(ctx context.Context, employeeID, day string) (*models.AttendanceRecord, error)
	// CreateRecord fails with ErrDuplicateRecord when (employee, day) already has a record.
	// The check is atomic in the backend.
	CreateRecord(ctx context.Context, record *models.AttendanceRecord) error
	// UpdateCheckout sets the checkout time only if it is still empty
	UpdateCheckout(ctx context.Context, recordID string, t time.Time) error
	// ListEmployeesWithoutRecord returns active employees that have no record for day
	ListEmployeesWithoutRecord(ctx context.Context, day string) ([]models.Employee, error)
	ListRecords(ctx context.Context, day string) ([]models.AttendanceRecord, error)
}

type Roster interface {
	GetEmployee(ctx context.Context, id string) (*models.Employee, error)
	SaveEmployee(ctx context.Context, employee *models.Employee) error
	ListEmployees(ctx context.Context) ([]models.Employee, error)
	GetBranch(ctx context.Context, id string) (*models.Branch, error)
	SaveBranch(ctx context.Context, branch *models.Branch) error
	ListBranches(ctx context.Context) ([]models.Branch, error)
}

// Store is implemented by every backend
type Store interface {
	IdentityStore
	Ledger
	Roster
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

// ImageStore keeps probe and enrollment images. References are opaque to callers.
type ImageStore interface {
	Store(ctx context.Context, kind string, data []byte) (ref string, err error)
	Delete(ctx context.Context, ref string) error
}
