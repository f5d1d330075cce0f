// Package events carries attendance activity to the live feed and HR notifications.
package events

import (
	"time"

	"rollcall/models"
)

type Type string

const (
	TypeCheckin  Type = "checkin"
	TypeCheckout Type = "checkout"
	TypeAbsence  Type = "absence"
)

type Event struct {
	Type   Type                     `json:"type"`
	Day    string                   `json:"day"`
	At     time.Time                `json:"at"`
	Record *models.AttendanceRecord `json:"record,omitempty"`
	Absent int                      `json:"absent,omitempty"` // absence summaries only
	Failed int                      `json:"failed,omitempty"` // absence summaries only
}

// Sink receives events. Publish must not block the caller for long.
type Sink interface {
	Publish(e Event)
}

type Fanout []Sink

func (f Fanout) Publish(e Event) {
	for _, s := range f {
		if s != nil {
			s.Publish(e)
		}
	}
}

type Discard struct{}

func (Discard) Publish(Event) {}
