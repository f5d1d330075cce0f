// Package sweeper writes Absent records for active employees that never checked in.
package sweeper

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"rollcall/attendance"
	"rollcall/events"
	"rollcall/models"
	"rollcall/store"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var ErrSweepInProgress = errors.New("absence sweep already in progress")

const (
	TriggerScheduled = "scheduled"
	TriggerManual    = "manual"
)

type Result struct {
	Day     string `json:"day"`
	Absent  int    `json:"absent"`  // records created
	Skipped int    `json:"skipped"` // already had a record or joined after the day
	Pending int    `json:"pending"` // work day not over yet in the employee's timezone
	Failed  int    `json:"failed"`
}

type Config struct {
	At          string // daily run time "HH:MM"
	CatchUpDays int    // days before yesterday re-swept on every scheduled run
	// DayEnd is when a work day is over on the next calendar day. Night check-ins
	// before the day shift start still count for the previous day.
	DayEnd   attendance.Clock
	Location *time.Location
	// Locate returns the timezone of an employee; nil means Location for everyone
	Locate func(ctx context.Context, employee *models.Employee) *time.Location
	Now    func() time.Time
}

// Sweeper runs one sweep at a time: manual sweeps fail fast while another runs,
// scheduled sweeps wait for it.
type Sweeper struct {
	ledger   store.Ledger
	events   events.Sink
	runs     *RunLog
	at       attendance.Clock
	catchUp  int
	dayEnd   attendance.Clock
	location *time.Location
	locate   func(ctx context.Context, employee *models.Employee) *time.Location
	now      func() time.Time
	running  sync.Mutex
}

// New builds a sweeper. runs may be nil when no run history is kept.
func New(ledger store.Ledger, sink events.Sink, runs *RunLog, cfg Config) (*Sweeper, error) {
	at, err := attendance.ParseClock(cfg.At)
	if err != nil {
		return nil, err
	}
	s := &Sweeper{
		ledger:   ledger,
		events:   sink,
		runs:     runs,
		at:       at,
		catchUp:  max(cfg.CatchUpDays, 0),
		dayEnd:   cfg.DayEnd,
		location: cfg.Location,
		locate:   cfg.Locate,
		now:      cfg.Now,
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
	if s.locate == nil {
		s.locate = func(context.Context, *models.Employee) *time.Location { return s.location }
	}
	return s, nil
}

// Sweep marks everyone without a record for day as absent and returns what it did.
// Employees whose work day has not ended yet are left alone and counted as pending.
func (s *Sweeper) Sweep(ctx context.Context, day string) (Result, error) {
	if !s.running.TryLock() {
		return Result{Day: day}, ErrSweepInProgress
	}
	defer s.running.Unlock()
	return s.sweep(ctx, day, TriggerManual)
}

func (s *Sweeper) sweep(ctx context.Context, day, trigger string) (res Result, err error) {
	res.Day = day
	start := time.Now()
	defer func() {
		s.record(day, trigger, res, time.Since(start), err)
	}()

	date, err := time.ParseInLocation(time.DateOnly, day, s.location)
	if err != nil {
		return res, fmt.Errorf("invalid day %q: %w", day, err)
	}
	dayEnd := date.AddDate(0, 0, 1)
	now := s.now()

	employees, err := s.ledger.ListEmployeesWithoutRecord(ctx, day)
	if err != nil {
		return res, fmt.Errorf("list employees without record: %w", err)
	}
	for _, employee := range employees {
		if err = ctx.Err(); err != nil {
			return res, err
		}
		if !employee.CreatedAt.IsZero() && !employee.CreatedAt.Before(dayEnd) {
			res.Skipped++
			continue
		}
		if now.Before(s.closesAt(date, s.locate(ctx, &employee))) {
			res.Pending++
			continue
		}
		record := &models.AttendanceRecord{
			ID:           uuid.NewString(),
			EmployeeID:   employee.ID,
			EmployeeName: employee.Name,
			Day:          day,
			Shift:        employee.Shift,
			Status:       models.StatusAbsent,
		}
		switch err := s.ledger.CreateRecord(ctx, record); {
		case err == nil:
			res.Absent++
		case errors.Is(err, store.ErrDuplicateRecord):
			// checked in while the sweep was running
			res.Skipped++
		default:
			res.Failed++
			zap.L().Warn("Absence not recorded",
				zap.String("employee", employee.ID),
				zap.String("day", day),
				zap.Error(err))
		}
	}
	zap.S().Infof("Sweep %s (%s): absent %d, skipped %d, pending %d, failed %d, time: %v",
		day, trigger, res.Absent, res.Skipped, res.Pending, res.Failed, time.Since(start).Round(time.Millisecond))
	if res.Absent > 0 || res.Failed > 0 {
		s.events.Publish(events.Event{Type: events.TypeAbsence, Day: day, At: now, Absent: res.Absent, Failed: res.Failed})
	}
	return res, nil
}

// closesAt is the moment the work day of date ends in loc
func (s *Sweeper) closesAt(date time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = s.location
	}
	next := time.Date(date.Year(), date.Month(), date.Day()+1, 0, 0, 0, 0, loc)
	return s.dayEnd.On(next)
}

func (s *Sweeper) record(day, trigger string, res Result, took time.Duration, err error) {
	if s.runs == nil {
		return
	}
	run := &SweepRun{
		Day:        day,
		Trigger:    trigger,
		Absent:     res.Absent,
		Skipped:    res.Skipped,
		Pending:    res.Pending,
		Failed:     res.Failed,
		DurationMs: took.Milliseconds(),
	}
	if err != nil {
		run.Error = truncate(err.Error(), 300)
	}
	if saveErr := s.runs.Save(run); saveErr != nil {
		zap.S().Warnf("Save sweep run %s: %v", day, saveErr)
	}
}

// NextRun returns the first scheduled run strictly after now
func (s *Sweeper) NextRun(now time.Time) time.Time {
	now = now.In(s.location)
	next := s.at.On(now)
	if !next.After(now) {
		next = s.at.On(now.AddDate(0, 0, 1))
	}
	return next
}

// RunScheduled sweeps yesterday and the catch-up days before it, oldest first. Today is
// never swept: night shifts and branches west of Location are still working. Failures
// and pending employees of earlier runs are picked up here, never within the same run.
func (s *Sweeper) RunScheduled(ctx context.Context) []Result {
	s.running.Lock()
	defer s.running.Unlock()

	today := s.now().In(s.location)
	results := make([]Result, 0, s.catchUp+1)
	for i := s.catchUp + 1; i >= 1; i-- {
		day := attendance.DayOf(today.AddDate(0, 0, -i))
		res, err := s.sweep(ctx, day, TriggerScheduled)
		if err != nil {
			zap.S().Errorf("Sweep %s: %v", day, err)
			if ctx.Err() != nil {
				break
			}
			continue
		}
		results = append(results, res)
	}
	return results
}

// Run sweeps once a day until ctx is done
func (s *Sweeper) Run(ctx context.Context) {
	for {
		next := s.NextRun(s.now())
		zap.S().Infof("Next absence sweep at %s", next.Format(time.RFC3339))
		timer := time.NewTimer(next.Sub(s.now()))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
		s.RunScheduled(ctx)
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
