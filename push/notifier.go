package push

import (
	"strconv"

	"rollcall/events"
	"rollcall/i18n"
	"rollcall/models"

	"go.uber.org/zap"
)

// Notifier tells HR about late check-ins and absence sweeps. It implements events.Sink,
// sending in the background so attendance requests never wait for the push server.
type Notifier struct {
	server string
	locale string
	tokens func() []string
	send   func(n *Notification) // overridden in tests
}

// NewNotifier returns nil when server is empty; a nil *Notifier drops every event
func NewNotifier(server, locale string, tokens func() []string) *Notifier {
	if server == "" {
		return nil
	}
	n := &Notifier{server: server, locale: locale, tokens: tokens}
	n.send = func(notification *Notification) {
		go func() {
			if err := notification.Send(n.server); err != nil {
				zap.S().Warnf("Push notification %s: %v", notification.Type, err)
			}
		}()
	}
	return n
}

// HRTokens returns the push tokens of users with the HR permission
func HRTokens() []string {
	return models.PushTokensWith(models.PermissionHR)
}

func (n *Notifier) Publish(e events.Event) {
	if n == nil {
		return
	}
	notification := n.build(e)
	if notification == nil {
		return
	}
	tokens := n.tokens()
	if len(tokens) == 0 {
		return
	}
	notification.UserTokens = tokens
	n.send(notification)
}

func (n *Notifier) build(e events.Event) *Notification {
	switch e.Type {
	case events.TypeCheckin:
		r := e.Record
		if r == nil || r.Status != models.StatusLate || r.CheckinTime == nil {
			return nil
		}
		return &Notification{
			Type:  NotificationTypeLateCheckin,
			Title: i18n.T(n.locale, "push.late.title"),
			Body: i18n.T(n.locale, "push.late.body", map[string]any{
				"Name":  r.EmployeeName,
				"Time":  r.CheckinTime.Format("15:04"),
				"Shift": string(r.Shift),
			}),
			Data: map[string]string{
				"type":     NotificationTypeLateCheckin,
				"employee": r.EmployeeID,
				"day":      r.Day,
			},
		}
	case events.TypeAbsence:
		body := "push.absence.body"
		if e.Failed > 0 {
			body = "push.absence.failed"
		}
		return &Notification{
			Type:  NotificationTypeAbsence,
			Title: i18n.T(n.locale, "push.absence.title", map[string]any{"Day": e.Day}),
			Body:  i18n.T(n.locale, body, map[string]any{"Absent": e.Absent, "Failed": e.Failed}),
			Data: map[string]string{
				"type":   NotificationTypeAbsence,
				"day":    e.Day,
				"absent": strconv.Itoa(e.Absent),
			},
		}
	}
	return nil
}
