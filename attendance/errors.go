package attendance

import (
	"errors"
	"fmt"

	"rollcall/faces"
)

type Reason string

const (
	ReasonNoFaceDetected  Reason = Reason(faces.ReasonNoFaceDetected)
	ReasonNoEnrollment    Reason = Reason(faces.ReasonNoEnrollment)
	ReasonBelowThreshold  Reason = Reason(faces.ReasonBelowThreshold)
	ReasonNotCheckedInYet Reason = "NOT_CHECKED_IN_YET"
	ReasonDayClosed       Reason = "DAY_CLOSED"
	ReasonTooManyAttempts Reason = "TOO_MANY_ATTEMPTS"
	ReasonUnknownEmployee Reason = "UNKNOWN_EMPLOYEE"
)

var (
	ErrNoFaceDetected      = errors.New("no single face detected, retake the photo")
	ErrNoEnrollment        = errors.New("no face enrolled for employee")
	ErrBelowMatchThreshold = errors.New("face does not match the enrolled face, retake the photo")
	ErrNotCheckedInYet     = errors.New("not checked in yet")
	ErrDayClosed           = errors.New("day already closed as absent")
	ErrTooManyAttempts     = errors.New("too many failed check-in attempts today")
	ErrUnknownEmployee     = errors.New("unknown or inactive employee")
	ErrInvalid             = errors.New("invalid input")

	// Processing errors, never rejections
	ErrStorageFailure = errors.New("storage failure")
	ErrProcessing     = errors.New("face processing failed")
)

var reasonErrors = map[Reason]error{
	ReasonNoFaceDetected:  ErrNoFaceDetected,
	ReasonNoEnrollment:    ErrNoEnrollment,
	ReasonBelowThreshold:  ErrBelowMatchThreshold,
	ReasonNotCheckedInYet: ErrNotCheckedInYet,
	ReasonDayClosed:       ErrDayClosed,
	ReasonTooManyAttempts: ErrTooManyAttempts,
	ReasonUnknownEmployee: ErrUnknownEmployee,
}

// Rejection is a check-in or check-out the employee can act on (retake, ask HR to enroll...).
// Decision is set when a face was compared.
type Rejection struct {
	Reason   Reason
	Decision *faces.MatchDecision
	cause    error
}

func reject(reason Reason, decision *faces.MatchDecision, cause error) *Rejection {
	return &Rejection{Reason: reason, Decision: decision, cause: cause}
}

func (r *Rejection) Error() string {
	msg := reasonErrors[r.Reason].Error()
	if r.Decision != nil && r.Reason == ReasonBelowThreshold {
		msg = fmt.Sprintf("%s (distance %.3f, confidence %.2f)", msg, r.Decision.Distance, r.Decision.Confidence)
	}
	if r.cause != nil {
		msg += ": " + r.cause.Error()
	}
	return msg
}

func (r *Rejection) Unwrap() []error {
	if r.cause == nil {
		return []error{reasonErrors[r.Reason]}
	}
	return []error{reasonErrors[r.Reason], r.cause}
}

// AsRejection returns the rejection wrapped in err, if any
func AsRejection(err error) (*Rejection, bool) {
	var r *Rejection
	ok := errors.As(err, &r)
	return r, ok
}

func storageFailure(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrStorageFailure, err)
}
