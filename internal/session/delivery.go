package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pngnest/pngnest"
	"github.com/pngnest/pngnest/generic"
	"github.com/pngnest/pngnest/internal/journal"
	"github.com/pngnest/pngnest/internal/lpc"
	"github.com/pngnest/pngnest/internal/pubsub"
	"github.com/pngnest/pngnest/internal/syncutil"
	"github.com/pngnest/pngnest/unsplash"
)

var (
	ErrDeliveryClosed = errors.New("delivery closed")
	ErrSessionClosed  = errors.New("session closed")
)

type DeliveryID string

func NewDeliveryID() DeliveryID {
	return DeliveryID(generic.Unwrap(uuid.NewRandom()).String())
}

type deliveryStoredFields struct {
	ID        DeliveryID
	AssetSlug string
	Variant   pngnest.Variant
	URL       string
	Filename  string
	AddedAt   time.Time
	Status    journal.DeliveryStatus
	Error     string

	// Data from the settled delivery
	Strategy string
	Path     string
}

type deliveryEphemeralFields struct {
	// Byte progress of the active strategy's fetch, when one is fetching.
	Transferred int
	Expected    int
}

type DeliveryState struct {
	deliveryStoredFields
	deliveryEphemeralFields
}

// Record maps the persistent subset of the state onto a journal row.
func (s *DeliveryState) Record() *journal.DeliveryRecord {
	return &journal.DeliveryRecord{
		ID:        string(s.ID),
		AssetSlug: s.AssetSlug,
		Variant:   string(s.Variant),
		URL:       s.URL,
		Filename:  s.Filename,
		Strategy:  s.Strategy,
		Path:      s.Path,
		Status:    s.Status,
		Error:     s.Error,
		CreatedAt: s.AddedAt,
	}
}

type stateCommand = *lpc.Command[generic.Void, DeliveryState]

type Delivery struct {
	DeliveryState

	session   *Session
	ctx       context.Context
	ctxCancel context.CancelFunc
	action    unsplash.Action

	events pubsub.Publisher[Event]

	running  syncutil.Event
	stopped  syncutil.Event
	complete syncutil.Event
	done     chan struct{}

	startCommand  chan struct{}
	stopCommand   chan struct{}
	stateCommands chan stateCommand
	workProgress  chan workProgress
	workResults   chan workResult

	// Owned by the run goroutine.
	workCancel        context.CancelFunc
	lastProgressEvent time.Time
}

func newDelivery(session *Session, state DeliveryState, action unsplash.Action) (*Delivery, error) {
	ctx, cancel := context.WithCancel(session.ctx)
	d := &Delivery{
		DeliveryState: state,

		session:   session,
		ctx:       ctx,
		ctxCancel: cancel,
		action:    action,

		events: pubsub.NewPublisher[Event](),

		done:          make(chan struct{}),
		startCommand:  make(chan struct{}),
		stopCommand:   make(chan struct{}),
		stateCommands: make(chan stateCommand),
		workProgress:  make(chan workProgress),
		workResults:   make(chan workResult),
	}
	go d.run()
	return d, nil
}

func (d *Delivery) String() string {
	return fmt.Sprintf("Delivery{ID:%q, Asset:%q, Status:%q}", d.ID, d.AssetSlug, d.Status)
}

func (d *Delivery) log() *zap.SugaredLogger {
	return zap.S().Named("session").With("delivery_id", d.ID)
}
