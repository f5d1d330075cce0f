// Package attendance verifies an employee's face on check-in and keeps the
// once-a-day ledger: NotCheckedIn -> CheckedIn -> CheckedOut.
package attendance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"rollcall/events"
	"rollcall/faces"
	"rollcall/models"
	"rollcall/store"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	ImageKindCheckin    = "checkin"
	ImageKindEnrollment = "enrollment"
)

type Matcher interface {
	Match(ctx context.Context, probe []byte, enrolled faces.Descriptor) (faces.MatchDecision, error)
	Enroll(ctx context.Context, images ...[]byte) (faces.Enrollment, error)
}

type Outcome string

const (
	OutcomeCheckedIn         Outcome = "checked_in"
	OutcomeAlreadyCheckedIn  Outcome = "already_checked_in"
	OutcomeCheckedOut        Outcome = "checked_out"
	OutcomeAlreadyCheckedOut Outcome = "already_checked_out"
)

type CheckInResult struct {
	Outcome  Outcome                  `json:"outcome"`
	Record   *models.AttendanceRecord `json:"record"`
	Decision *faces.MatchDecision     `json:"decision,omitempty"` // nil unless a face was compared
}

type CheckOutResult struct {
	Outcome Outcome                  `json:"outcome"`
	Record  *models.AttendanceRecord `json:"record"`
}

type Deps struct {
	Store    store.Store
	Matcher  Matcher
	Images   store.ImageStore
	Events   events.Sink
	Schedule Schedule
	// Location is used for employees without a branch timezone
	Location    *time.Location
	MaxAttempts int
	Now         func() time.Time
}

type Service struct {
	store    store.Store
	matcher  Matcher
	images   store.ImageStore
	events   events.Sink
	schedule Schedule
	location *time.Location
	attempts *AttemptTracker
	now      func() time.Time
}

func NewService(d Deps) *Service {
	s := &Service{
		store:    d.Store,
		matcher:  d.Matcher,
		images:   d.Images,
		events:   d.Events,
		schedule: d.Schedule,
		location: d.Location,
		attempts: NewAttemptTracker(d.MaxAttempts),
		now:      d.Now,
	}
	if s.events == nil {
		s.events = events.Discard{}
	}
	if s.location == nil {
		s.location = time.Local
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

func (s *Service) Schedule() Schedule {
	return s.schedule
}

func (s *Service) Attempts() *AttemptTracker {
	return s.attempts
}

// employee returns an active employee and the location of its branch
func (s *Service) employee(ctx context.Context, employeeID string) (*models.Employee, *time.Location, error) {
	employee, err := s.store.GetEmployee(ctx, employeeID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil, reject(ReasonUnknownEmployee, nil, nil)
	}
	if err != nil {
		return nil, nil, storageFailure("get employee", err)
	}
	if !employee.Active {
		return nil, nil, reject(ReasonUnknownEmployee, nil, nil)
	}
	return employee, s.EmployeeLocation(ctx, employee), nil
}

// EmployeeLocation is the timezone of the employee's branch, or the default one
func (s *Service) EmployeeLocation(ctx context.Context, employee *models.Employee) *time.Location {
	if employee.BranchID == "" {
		return s.location
	}
	branch, err := s.store.GetBranch(ctx, employee.BranchID)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			zap.S().Warnf("Branch %s of employee %s: %v", employee.BranchID, employee.ID, err)
		}
		return s.location
	}
	return branch.Location(s.location)
}

// CheckIn verifies the face in image and writes the day's record. An existing record is
// reported as OutcomeAlreadyCheckedIn. Match failures are *Rejection errors; storage
// failures and timeouts are plain errors. claimed is the client's clock, stored for reference only.
func (s *Service) CheckIn(ctx context.Context, employeeID string, image []byte, claimed *time.Time) (*CheckInResult, error) {
	employee, loc, err := s.employee(ctx, employeeID)
	if err != nil {
		return nil, err
	}
	now := s.now().In(loc)
	workDay := s.schedule.WorkDay(employee.Shift, now)
	day := DayOf(workDay)

	existing, err := s.store.FindRecord(ctx, employee.ID, day)
	if err != nil {
		return nil, storageFailure("find record", err)
	}
	if existing != nil {
		return alreadyCheckedIn(existing)
	}

	enrolled, err := s.enrolledDescriptor(ctx, employee.ID)
	if err != nil {
		return nil, err
	}
	if s.attempts.Exceeded(employee.ID, day) {
		return nil, reject(ReasonTooManyAttempts, nil, nil)
	}

	decision, err := s.matcher.Match(ctx, image, enrolled)
	if err != nil {
		if errors.Is(err, faces.ErrProcessingTimeout) || errors.Is(err, context.Canceled) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", ErrProcessing, err)
	}
	switch {
	case decision.Reason == faces.ReasonNoEnrollment:
		return nil, reject(ReasonNoEnrollment, nil, nil)
	case decision.Reason == faces.ReasonNoFaceDetected:
		count := s.attempts.Fail(employee.ID, day)
		zap.S().Infof("Check-in of %s: no single face detected (attempt %d)", employee.ID, count)
		return nil, reject(ReasonNoFaceDetected, nil, nil)
	case !decision.Passed:
		count := s.attempts.Fail(employee.ID, day)
		zap.S().Infof("Check-in of %s: distance %.3f above threshold (attempt %d)", employee.ID, decision.Distance, count)
		return nil, reject(ReasonBelowThreshold, &decision, nil)
	}

	ref, err := s.images.Store(ctx, ImageKindCheckin, image)
	if err != nil {
		return nil, storageFailure("store image", err)
	}
	record := &models.AttendanceRecord{
		ID:                 uuid.NewString(),
		EmployeeID:         employee.ID,
		EmployeeName:       employee.Name,
		Day:                day,
		CheckinTime:        &now,
		CheckinImageRef:    &ref,
		ClaimedCheckinTime: claimed,
		Shift:              employee.Shift,
		Status:             s.schedule.Status(employee.Shift, workDay, now),
		MatchDistance:      &decision.Distance,
		MatchConfidence:    &decision.Confidence,
	}
	if err = s.store.CreateRecord(ctx, record); err != nil {
		// the image must not outlive a record that was never written
		s.discardImage(ctx, ref)
		if !errors.Is(err, store.ErrDuplicateRecord) {
			return nil, storageFailure("create record", err)
		}
		existing, err = s.store.FindRecord(context.WithoutCancel(ctx), employee.ID, day)
		if err != nil || existing == nil {
			return nil, storageFailure("find record", fmt.Errorf("record vanished after duplicate: %v", err))
		}
		return alreadyCheckedIn(existing)
	}
	s.attempts.Reset(employee.ID)
	if claimed != nil {
		if skew := now.Sub(*claimed); skew > time.Minute || skew < -time.Minute {
			zap.S().Infof("Check-in of %s: client clock off by %v", employee.ID, skew.Round(time.Second))
		}
	}
	zap.S().Infof("Check-in of %s for %s: %s, distance %.3f", employee.ID, day, record.Status, decision.Distance)
	s.events.Publish(events.Event{Type: events.TypeCheckin, Day: day, At: now, Record: record})
	return &CheckInResult{Outcome: OutcomeCheckedIn, Record: record, Decision: &decision}, nil
}

func alreadyCheckedIn(existing *models.AttendanceRecord) (*CheckInResult, error) {
	if existing.Status == models.StatusAbsent {
		return nil, reject(ReasonDayClosed, nil, nil)
	}
	return &CheckInResult{Outcome: OutcomeAlreadyCheckedIn, Record: existing}, nil
}

func (s *Service) enrolledDescriptor(ctx context.Context, employeeID string) (faces.Descriptor, error) {
	identity, err := s.store.GetEnrolledIdentity(ctx, employeeID)
	if errors.Is(err, store.ErrNotFound) {
		return faces.Descriptor{}, reject(ReasonNoEnrollment, nil, nil)
	}
	if err != nil {
		return faces.Descriptor{}, storageFailure("get enrolled identity", err)
	}
	if identity.Status != models.EnrollmentEnrolled {
		return faces.Descriptor{}, reject(ReasonNoEnrollment, nil, fmt.Errorf("enrollment %s", identity.Status))
	}
	descriptor, err := faces.DescriptorFromBytes(identity.Descriptor)
	if err != nil {
		return faces.Descriptor{}, reject(ReasonNoEnrollment, nil, err)
	}
	return descriptor, nil
}

func (s *Service) discardImage(ctx context.Context, ref string) {
	if err := s.images.Delete(context.WithoutCancel(ctx), ref); err != nil {
		zap.S().Warnf("Discard image %s: %v", ref, err)
	}
}

// openRecord finds the record a check-out at now applies to. Night shifts may check out
// after the day shift started, so yesterday's open record is considered as well.
func (s *Service) openRecord(ctx context.Context, employee *models.Employee, now time.Time) (*models.AttendanceRecord, error) {
	workDay := s.schedule.WorkDay(employee.Shift, now)
	record, err := s.store.FindRecord(ctx, employee.ID, DayOf(workDay))
	if err != nil || record != nil || employee.Shift != models.ShiftNight {
		return record, err
	}
	previous, err := s.store.FindRecord(ctx, employee.ID, DayOf(workDay.AddDate(0, 0, -1)))
	if err != nil || previous == nil || !previous.CheckedIn() || previous.CheckedOut() {
		return nil, err
	}
	return previous, nil
}

// CheckOut closes the open record without face verification
func (s *Service) CheckOut(ctx context.Context, employeeID string, claimed *time.Time) (*CheckOutResult, error) {
	employee, loc, err := s.employee(ctx, employeeID)
	if err != nil {
		return nil, err
	}
	now := s.now().In(loc)
	record, err := s.openRecord(ctx, employee, now)
	if err != nil {
		return nil, storageFailure("find record", err)
	}
	if record == nil || !record.CheckedIn() {
		return nil, reject(ReasonNotCheckedInYet, nil, nil)
	}
	if record.CheckedOut() {
		return &CheckOutResult{Outcome: OutcomeAlreadyCheckedOut, Record: record}, nil
	}

	err = s.store.UpdateCheckout(ctx, record.ID, now)
	if errors.Is(err, store.ErrAlreadyCheckedOut) {
		if current, findErr := s.store.FindRecord(ctx, employee.ID, record.Day); findErr == nil && current != nil {
			record = current
		}
		return &CheckOutResult{Outcome: OutcomeAlreadyCheckedOut, Record: record}, nil
	}
	if err != nil {
		return nil, storageFailure("update checkout", err)
	}
	record.CheckoutTime = &now
	if claimed != nil {
		zap.S().Debugf("Check-out of %s: client time %s", employee.ID, claimed.Format(time.RFC3339))
	}
	zap.S().Infof("Check-out of %s for %s", employee.ID, record.Day)
	s.events.Publish(events.Event{Type: events.TypeCheckout, Day: record.Day, At: now, Record: record})
	return &CheckOutResult{Outcome: OutcomeCheckedOut, Record: record}, nil
}

// Current returns the record a check-out would apply to, or today's record, nil if none
func (s *Service) Current(ctx context.Context, employeeID string) (*models.AttendanceRecord, error) {
	employee, loc, err := s.employee(ctx, employeeID)
	if err != nil {
		return nil, err
	}
	record, err := s.openRecord(ctx, employee, s.now().In(loc))
	if err != nil {
		return nil, storageFailure("find record", err)
	}
	return record, nil
}

// Today is the current work day in the default location
func (s *Service) Today() string {
	return DayOf(s.now().In(s.location))
}

// Yesterday is the latest day a sweep can close
func (s *Service) Yesterday() string {
	return DayOf(s.now().In(s.location).AddDate(0, 0, -1))
}

func (s *Service) List(ctx context.Context, day string) ([]models.AttendanceRecord, error) {
	if _, err := time.Parse(time.DateOnly, day); err != nil {
		return nil, fmt.Errorf("%w: day %q", ErrInvalid, day)
	}
	records, err := s.store.ListRecords(ctx, day)
	if err != nil {
		return nil, storageFailure("list records", err)
	}
	return records, nil
}
