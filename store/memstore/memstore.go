// Package memstore is a process-local store.Store, used for STORE_BACKEND=memory
// and by tests. Everything is lost on restart.
package memstore

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"rollcall/models"
	"rollcall/store"

	"github.com/google/uuid"
)

type Store struct {
	mu         sync.Mutex
	employees  map[string]models.Employee
	branches   map[string]models.Branch
	identities map[string]models.EnrolledIdentity
	records    map[string]models.AttendanceRecord // by id
	byDay      map[string]string                  // employee_id|day -> record id
}

func New() *Store {
	return &Store{
		employees:  map[string]models.Employee{},
		branches:   map[string]models.Branch{},
		identities: map[string]models.EnrolledIdentity{},
		records:    map[string]models.AttendanceRecord{},
		byDay:      map[string]string{},
	}
}

func dayKey(employeeID, day string) string {
	return employeeID + "|" + day
}

func (s *Store) Ping(ctx context.Context) error {
	return nil
}

func (s *Store) Close(ctx context.Context) error {
	return nil
}

func (s *Store) GetEnrolledIdentity(ctx context.Context, employeeID string) (*models.EnrolledIdentity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	identity, ok := s.identities[employeeID]
	if !ok {
		return nil, store.ErrNotFound
	}
	identity.Descriptor = bytes.Clone(identity.Descriptor)
	return &identity, nil
}

func (s *Store) SaveEnrolledIdentity(ctx context.Context, identity *models.EnrolledIdentity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := *identity
	stored.Descriptor = bytes.Clone(identity.Descriptor)
	s.identities[identity.EmployeeID] = stored
	return nil
}

func (s *Store) FindRecord(ctx context.Context, employeeID, day string) (*models.AttendanceRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.byDay[dayKey(employeeID, day)]
	if !ok {
		return nil, nil
	}
	record := s.records[id]
	return &record, nil
}

func (s *Store) CreateRecord(ctx context.Context, record *models.AttendanceRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	key := dayKey(record.EmployeeID, record.Day)
	if _, ok := s.byDay[key]; ok {
		return store.ErrDuplicateRecord
	}
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now()
	}
	s.records[record.ID] = *record
	s.byDay[key] = record.ID
	return nil
}

func (s *Store) UpdateCheckout(ctx context.Context, recordID string, t time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.records[recordID]
	if !ok {
		return store.ErrNotFound
	}
	if record.CheckoutTime != nil {
		return store.ErrAlreadyCheckedOut
	}
	record.CheckoutTime = &t
	s.records[recordID] = record
	return nil
}

func (s *Store) ListEmployeesWithoutRecord(ctx context.Context, day string) ([]models.Employee, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	result := []models.Employee{}
	for _, e := range s.employees {
		if _, ok := s.byDay[dayKey(e.ID, day)]; e.Active && !ok {
			result = append(result, e)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (s *Store) ListRecords(ctx context.Context, day string) ([]models.AttendanceRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	result := []models.AttendanceRecord{}
	for _, r := range s.records {
		if r.Day == day {
			result = append(result, r)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].EmployeeName != result[j].EmployeeName {
			return result[i].EmployeeName < result[j].EmployeeName
		}
		return result[i].EmployeeID < result[j].EmployeeID
	})
	return result, nil
}

func (s *Store) GetEmployee(ctx context.Context, id string) (*models.Employee, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.employees[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &e, nil
}

func (s *Store) SaveEmployee(ctx context.Context, employee *models.Employee) error {
	if employee.ID == "" {
		return fmt.Errorf("employee without id")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	employee.UpdatedAt = time.Now()
	if employee.CreatedAt.IsZero() {
		employee.CreatedAt = employee.UpdatedAt
	}
	s.employees[employee.ID] = *employee
	return nil
}

func (s *Store) ListEmployees(ctx context.Context) ([]models.Employee, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	result := make([]models.Employee, 0, len(s.employees))
	for _, e := range s.employees {
		result = append(result, e)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Name != result[j].Name {
			return result[i].Name < result[j].Name
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}

func (s *Store) GetBranch(ctx context.Context, id string) (*models.Branch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.branches[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &b, nil
}

func (s *Store) SaveBranch(ctx context.Context, branch *models.Branch) error {
	if branch.ID == "" {
		return fmt.Errorf("branch without id")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	branch.UpdatedAt = time.Now()
	if branch.CreatedAt.IsZero() {
		branch.CreatedAt = branch.UpdatedAt
	}
	s.branches[branch.ID] = *branch
	return nil
}

func (s *Store) ListBranches(ctx context.Context) ([]models.Branch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	result := make([]models.Branch, 0, len(s.branches))
	for _, b := range s.branches {
		result = append(result, b)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

// Images is an in-memory store.ImageStore
type Images struct {
	mu     sync.Mutex
	images map[string][]byte
}

func NewImages() *Images {
	return &Images{images: map[string][]byte{}}
}

func (i *Images) Store(ctx context.Context, kind string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	ref := kind + "/" + uuid.NewString() + ".jpg"
	i.mu.Lock()
	defer i.mu.Unlock()
	i.images[ref] = bytes.Clone(data)
	return ref, nil
}

func (i *Images) Delete(ctx context.Context, ref string) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if _, ok := i.images[ref]; !ok {
		return store.ErrNotFound
	}
	delete(i.images, ref)
	return nil
}

func (i *Images) Len() int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return len(i.images)
}
