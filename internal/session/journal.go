package session

import (
	"github.com/pngnest/pngnest/internal/journal"
	"github.com/pngnest/pngnest/unsplash"
)

// Journal is the slice of the delivery journal a Session writes to. Journal failures
// are logged and swallowed; history is telemetry, not part of the delivery flow.
type Journal interface {
	RecordDelivery(*journal.DeliveryRecord) error
	RecordNotification(*journal.NotificationRecord) error
}

type NilJournal struct{}

func (j NilJournal) RecordDelivery(_ *journal.DeliveryRecord) error {
	return nil
}

func (j NilJournal) RecordNotification(_ *journal.NotificationRecord) error {
	return nil
}

// Notifier dispatches provider compliance notifications. The session only ever
// observes results for journaling; they never influence a delivery.
type Notifier interface {
	Dispatch(action unsplash.Action, observers ...func(unsplash.Result))
}

type NilNotifier struct{}

func (n NilNotifier) Dispatch(_ unsplash.Action, observers ...func(unsplash.Result)) {
	for _, observe := range observers {
		observe(unsplash.Result{Skipped: true})
	}
}
