package attendance

import (
	"fmt"
	"time"

	"rollcall/models"
)

type Clock struct {
	Hour, Minute int
}

// ParseClock parses "HH:MM" (24h)
func ParseClock(s string) (Clock, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return Clock{}, fmt.Errorf("invalid time of day %q: %w", s, err)
	}
	return Clock{Hour: t.Hour(), Minute: t.Minute()}, nil
}

func (c Clock) On(day time.Time) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), c.Hour, c.Minute, 0, 0, day.Location())
}

func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

// Schedule knows when shifts start and how late a check-in may be to still count as on time.
// Night shifts run past midnight: a night-shift check-in before the day shift start belongs
// to the previous work day.
type Schedule struct {
	DayStart   Clock
	NightStart Clock
	Grace      time.Duration
}

func NewSchedule(dayStart, nightStart string, grace time.Duration) (Schedule, error) {
	day, err := ParseClock(dayStart)
	if err != nil {
		return Schedule{}, err
	}
	night, err := ParseClock(nightStart)
	if err != nil {
		return Schedule{}, err
	}
	if grace < 0 {
		return Schedule{}, fmt.Errorf("negative grace period %v", grace)
	}
	return Schedule{DayStart: day, NightStart: night, Grace: grace}, nil
}

func (s Schedule) start(shift models.Shift) Clock {
	if shift == models.ShiftNight {
		return s.NightStart
	}
	return s.DayStart
}

// WorkDay returns midnight of the work day t belongs to, in t's location
func (s Schedule) WorkDay(shift models.Shift, t time.Time) time.Time {
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	if shift == models.ShiftNight && t.Before(s.DayStart.On(day)) {
		day = day.AddDate(0, 0, -1)
	}
	return day
}

func (s Schedule) ShiftStart(shift models.Shift, workDay time.Time) time.Time {
	return s.start(shift).On(workDay)
}

// Status is On-Time up to and including shift start + grace, Late afterwards
func (s Schedule) Status(shift models.Shift, workDay, checkin time.Time) models.AttendanceStatus {
	if checkin.After(s.ShiftStart(shift, workDay).Add(s.Grace)) {
		return models.StatusLate
	}
	return models.StatusOnTime
}

// DayOf formats the ledger key of a work day
func DayOf(t time.Time) string {
	return t.Format(time.DateOnly)
}
