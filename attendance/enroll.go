package attendance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"rollcall/faces"
	"rollcall/models"
	"rollcall/store"

	"go.uber.org/zap"
)

// Enroll computes the reference descriptor of an employee from one or more photos and
// replaces the previous enrollment. A failed re-enrollment keeps a working previous one.
func (s *Service) Enroll(ctx context.Context, employeeID string, images ...[]byte) (*models.EnrolledIdentity, error) {
	if len(images) == 0 {
		return nil, fmt.Errorf("%w: at least one image is required", ErrInvalid)
	}
	employee, err := s.store.GetEmployee(ctx, employeeID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, reject(ReasonUnknownEmployee, nil, nil)
	}
	if err != nil {
		return nil, storageFailure("get employee", err)
	}

	previous, err := s.store.GetEnrolledIdentity(ctx, employee.ID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, storageFailure("get enrolled identity", err)
	}
	keepPrevious := previous != nil && previous.Status == models.EnrollmentEnrolled

	identity := &models.EnrolledIdentity{
		EmployeeID: employee.ID,
		Status:     models.EnrollmentPending,
		EnrolledAt: s.now(),
	}
	if !keepPrevious {
		if err := s.store.SaveEnrolledIdentity(ctx, identity); err != nil {
			return nil, storageFailure("save enrolled identity", err)
		}
	}

	enrollment, err := s.matcher.Enroll(ctx, images...)
	if err != nil {
		zap.S().Infof("Enrollment of %s failed: %v", employee.ID, err)
		if !keepPrevious {
			s.enrollmentFailed(ctx, identity, err)
		}
		switch {
		case errors.Is(err, faces.ErrNoFaceDetected), errors.Is(err, faces.ErrInvalidImage):
			return nil, reject(ReasonNoFaceDetected, nil, err)
		case errors.Is(err, faces.ErrProcessingTimeout), errors.Is(err, context.Canceled):
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", ErrProcessing, err)
	}

	ref, err := s.images.Store(ctx, ImageKindEnrollment, images[0])
	if err != nil {
		if !keepPrevious {
			s.enrollmentFailed(ctx, identity, err)
		}
		return nil, storageFailure("store image", err)
	}
	identity.Descriptor = enrollment.Descriptor.Bytes()
	identity.Confidence = enrollment.Confidence
	identity.Status = models.EnrollmentEnrolled
	identity.ImageRef = &ref
	identity.Error = ""
	identity.EnrolledAt = s.now()
	if err := s.store.SaveEnrolledIdentity(ctx, identity); err != nil {
		s.discardImage(ctx, ref)
		return nil, storageFailure("save enrolled identity", err)
	}
	if keepPrevious && previous.ImageRef != nil {
		s.discardImage(ctx, *previous.ImageRef)
	}
	zap.S().Infof("Enrolled %s from %d image(s), confidence %.2f", employee.ID, len(images), enrollment.Confidence)
	return identity, nil
}

// enrollmentFailed records why a first enrollment did not complete, even when ctx is done
func (s *Service) enrollmentFailed(ctx context.Context, identity *models.EnrolledIdentity, cause error) {
	identity.Status = models.EnrollmentFailed
	identity.Error = truncate(cause.Error(), 300)
	if err := s.store.SaveEnrolledIdentity(context.WithoutCancel(ctx), identity); err != nil {
		zap.S().Warnf("Save failed enrollment of %s: %v", identity.EmployeeID, err)
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// SaveEmployee validates and stores a roster entry
func (s *Service) SaveEmployee(ctx context.Context, employee *models.Employee) error {
	if employee.ID == "" || employee.Name == "" {
		return fmt.Errorf("%w: employee id and name are required", ErrInvalid)
	}
	if !employee.Shift.Valid() {
		return fmt.Errorf("%w: shift %q", ErrInvalid, employee.Shift)
	}
	if employee.BranchID != "" {
		if _, err := s.store.GetBranch(ctx, employee.BranchID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return fmt.Errorf("%w: unknown branch %q", ErrInvalid, employee.BranchID)
			}
			return storageFailure("get branch", err)
		}
	}
	if existing, err := s.store.GetEmployee(ctx, employee.ID); err == nil {
		employee.CreatedAt = existing.CreatedAt
	}
	if err := s.store.SaveEmployee(ctx, employee); err != nil {
		return storageFailure("save employee", err)
	}
	return nil
}

// SaveBranch derives the timezone from GPS coordinates when missing
func (s *Service) SaveBranch(ctx context.Context, branch *models.Branch) error {
	if branch.ID == "" || branch.Name == "" {
		return fmt.Errorf("%w: branch id and name are required", ErrInvalid)
	}
	branch.ResolveTimezone()
	if branch.Timezone != "" {
		if _, err := time.LoadLocation(branch.Timezone); err != nil {
			return fmt.Errorf("%w: timezone %q", ErrInvalid, branch.Timezone)
		}
	}
	if existing, err := s.store.GetBranch(ctx, branch.ID); err == nil {
		branch.CreatedAt = existing.CreatedAt
	}
	if err := s.store.SaveBranch(ctx, branch); err != nil {
		return storageFailure("save branch", err)
	}
	return nil
}

func (s *Service) Employees(ctx context.Context) ([]models.Employee, error) {
	employees, err := s.store.ListEmployees(ctx)
	if err != nil {
		return nil, storageFailure("list employees", err)
	}
	return employees, nil
}

func (s *Service) Branches(ctx context.Context) ([]models.Branch, error) {
	branches, err := s.store.ListBranches(ctx)
	if err != nil {
		return nil, storageFailure("list branches", err)
	}
	return branches, nil
}
