package attendance

import (
	cmap "github.com/orcaman/concurrent-map/v2"
)

type attempts struct {
	day   string
	count int
}

// AttemptTracker counts failed face matches per employee for the current work day.
// Counts live in memory only and reset when the day changes.
type AttemptTracker struct {
	max    int
	counts cmap.ConcurrentMap[string, attempts]
}

// NewAttemptTracker allows max failed attempts a day, 0 - unlimited
func NewAttemptTracker(max int) *AttemptTracker {
	return &AttemptTracker{max: max, counts: cmap.New[attempts]()}
}

func (t *AttemptTracker) Count(employeeID, day string) int {
	a, ok := t.counts.Get(employeeID)
	if !ok || a.day != day {
		return 0
	}
	return a.count
}

func (t *AttemptTracker) Exceeded(employeeID, day string) bool {
	return t.max > 0 && t.Count(employeeID, day) >= t.max
}

// Fail records a failed attempt and returns the count for the day
func (t *AttemptTracker) Fail(employeeID, day string) int {
	a := t.counts.Upsert(employeeID, attempts{day: day, count: 1}, func(exist bool, old, new attempts) attempts {
		if !exist || old.day != day {
			return new
		}
		old.count++
		return old
	})
	return a.count
}

func (t *AttemptTracker) Reset(employeeID string) {
	t.counts.Remove(employeeID)
}
