package gormstore

import (
	"context"
	"errors"
	"strings"
	"time"

	"rollcall/models"
	"rollcall/store"

	"github.com/go-sql-driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const mysqlDuplicateEntry = 1062

type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Migrate creates the roster, identity and attendance tables including the
// (employee_id, day) unique index the ledger relies on
func (s *Store) Migrate() error {
	return s.db.AutoMigrate(&models.Branch{}, &models.Employee{}, &models.EnrolledIdentity{}, &models.AttendanceRecord{})
}

func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close is a no-op, the connection is shared with the account tables
func (s *Store) Close(ctx context.Context) error {
	return nil
}

func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) && myErr.Number == mysqlDuplicateEntry {
		return true
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return store.ErrNotFound
	}
	return err
}

//
// IdentityStore
//

func (s *Store) GetEnrolledIdentity(ctx context.Context, employeeID string) (*models.EnrolledIdentity, error) {
	identity := models.EnrolledIdentity{}
	if err := s.db.WithContext(ctx).First(&identity, "employee_id = ?", employeeID).Error; err != nil {
		return nil, notFound(err)
	}
	return &identity, nil
}

func (s *Store) SaveEnrolledIdentity(ctx context.Context, identity *models.EnrolledIdentity) error {
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(identity).Error
}

//
// Ledger
//

func (s *Store) FindRecord(ctx context.Context, employeeID, day string) (*models.AttendanceRecord, error) {
	var records []models.AttendanceRecord
	err := s.db.WithContext(ctx).
		Where("employee_id = ? AND day = ?", employeeID, day).
		Limit(1).
		Find(&records).Error
	if err != nil || len(records) == 0 {
		return nil, err
	}
	return &records[0], nil
}

func (s *Store) CreateRecord(ctx context.Context, record *models.AttendanceRecord) error {
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now()
	}
	err := s.db.WithContext(ctx).Create(record).Error
	if err != nil && isDuplicateKey(err) {
		return store.ErrDuplicateRecord
	}
	return err
}

func (s *Store) UpdateCheckout(ctx context.Context, recordID string, t time.Time) error {
	result := s.db.WithContext(ctx).
		Model(&models.AttendanceRecord{}).
		Where("id = ? AND checkout_time IS NULL", recordID).
		Update("checkout_time", t)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected > 0 {
		return nil
	}
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.AttendanceRecord{}).Where("id = ?", recordID).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return store.ErrNotFound
	}
	return store.ErrAlreadyCheckedOut
}

func (s *Store) ListEmployeesWithoutRecord(ctx context.Context, day string) (employees []models.Employee, err error) {
	err = s.db.WithContext(ctx).
		Where("active = ?", true).
		Where("NOT EXISTS (SELECT 1 FROM attendance_records ar WHERE ar.employee_id = employees.id AND ar.day = ?)", day).
		Order("id").
		Find(&employees).Error
	return
}

func (s *Store) ListRecords(ctx context.Context, day string) (records []models.AttendanceRecord, err error) {
	err = s.db.WithContext(ctx).Where("day = ?", day).Order("employee_name, employee_id").Find(&records).Error
	return
}

//
// Roster
//

func (s *Store) GetEmployee(ctx context.Context, id string) (*models.Employee, error) {
	employee := models.Employee{}
	if err := s.db.WithContext(ctx).First(&employee, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &employee, nil
}

func (s *Store) SaveEmployee(ctx context.Context, employee *models.Employee) error {
	return s.db.WithContext(ctx).Save(employee).Error
}

func (s *Store) ListEmployees(ctx context.Context) (employees []models.Employee, err error) {
	err = s.db.WithContext(ctx).Order("name, id").Find(&employees).Error
	return
}

func (s *Store) GetBranch(ctx context.Context, id string) (*models.Branch, error) {
	branch := models.Branch{}
	if err := s.db.WithContext(ctx).First(&branch, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &branch, nil
}

func (s *Store) SaveBranch(ctx context.Context, branch *models.Branch) error {
	return s.db.WithContext(ctx).Save(branch).Error
}

func (s *Store) ListBranches(ctx context.Context) (branches []models.Branch, err error) {
	err = s.db.WithContext(ctx).Order("name, id").Find(&branches).Error
	return
}
