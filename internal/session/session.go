package session

import (
	"context"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/pngnest/pngnest"
	"github.com/pngnest/pngnest/internal/delivery"
	"github.com/pngnest/pngnest/internal/pubsub"
	"github.com/pngnest/pngnest/internal/syncutil"
)

type Config struct {
	// TargetDir is where saved files land when no explicit Sink is given.
	TargetDir string
	Journal   Journal
	Notifier  Notifier
	// Sink receives delivery effects; nil means a LocalSink over TargetDir.
	Sink delivery.Sink
	// Strategies overrides the delivery chain; empty means delivery.DefaultStrategies.
	Strategies []delivery.Strategy
	// Client is used for asset fetches; nil means http.DefaultClient.
	Client *http.Client
	// Filenames names files for deliveries added without an explicit filename.
	Filenames pngnest.FilenameConfig
	// Minimum interval between DeliveryUpdated events from progress updates.
	ProgressUpdateInterval time.Duration
}

var DefaultConfig = Config{
	TargetDir:              ".",
	Journal:                NilJournal{},
	Notifier:               NilNotifier{},
	ProgressUpdateInterval: 500 * time.Millisecond,
}

type deliveriesByID = map[DeliveryID]*Delivery

type Session struct {
	config    Config
	ctx       context.Context
	ctxCancel context.CancelFunc
	log       *zap.SugaredLogger

	sink     delivery.Sink
	pipeline *delivery.Pipeline
	names    pngnest.FilenameConfig

	deliveries *syncutil.RWMutexed[deliveriesByID]
	events     pubsub.Publisher[Event]
}

func New(config Config, ctx context.Context) (*Session, error) {
	ctx, cancel := context.WithCancel(ctx)
	if config.Journal == nil {
		config.Journal = NilJournal{}
	}
	if config.Notifier == nil {
		config.Notifier = NilNotifier{}
	}
	if config.Filenames == nil {
		config.Filenames = pngnest.NewFilenameConfig()
	}
	if config.ProgressUpdateInterval <= 0 {
		config.ProgressUpdateInterval = DefaultConfig.ProgressUpdateInterval
	}
	sink := config.Sink
	if sink == nil {
		var opts []delivery.LocalSinkOption
		if config.Client != nil {
			opts = append(opts, delivery.WithClient(config.Client))
		}
		localSink, err := delivery.NewLocalSink(config.TargetDir, opts...)
		if err != nil {
			cancel()
			return nil, err
		}
		sink = localSink
	}
	s := &Session{
		config:    config,
		ctx:       ctx,
		ctxCancel: cancel,
		log:       zap.S().Named("session"),

		sink:     sink,
		pipeline: delivery.NewPipeline(config.Strategies...),
		names:    config.Filenames,

		deliveries: syncutil.NewRWMutexed(make(deliveriesByID)),
	}
	s.events = pubsub.NewPublisher[Event]()
	return s, nil
}

func (s *Session) Subscribe() (pubsub.ReceiverCloser[Event], error) {
	return s.events.Subscribe()
}

// AddSubscriber registers an externally built sender for session events, e.g. a
// filtered one; close controls whether the session closes it on teardown.
func (s *Session) AddSubscriber(sender pubsub.SenderCloser[Event], close bool) error {
	return s.events.AddSubscriber(sender, close)
}

// Announce publishes a session-level event to all subscribers, e.g. a catalog
// reload observed outside the session.
func (s *Session) Announce(event Event) {
	s.events.Send(event)
}

func (s *Session) ListDeliveries() []*Delivery {
	var list []*Delivery
	_ = s.deliveries.RLocked(func(deliveries deliveriesByID) error {
		list = make([]*Delivery, 0, len(deliveries))
		for _, d := range deliveries {
			list = append(list, d)
		}
		return nil
	})
	return list
}

func (s *Session) GetDelivery(id DeliveryID) (d *Delivery) {
	_ = s.deliveries.RLocked(func(deliveries deliveriesByID) error {
		d = deliveries[id]
		return nil
	})
	return d
}

// deliver runs one delivery attempt through the strategy chain on behalf of a
// Delivery's worker goroutine.
func (s *Session) deliver(
	ctx context.Context,
	url string,
	filename string,
	onProgress func(downloaded int, expected int),
) (*delivery.Outcome, error) {
	builder := delivery.NewDeliveryBuilder().
		WithContext(ctx).
		WithURL(url).
		WithFilename(filename).
		WithSink(s.sink).
		WithProgressCallback(onProgress)
	if s.config.Client != nil {
		builder = builder.WithClient(s.config.Client)
	}
	d, err := builder.Build()
	if err != nil {
		return nil, err
	}
	return s.pipeline.Deliver(d)
}

func (s *Session) Close() {
	s.ctxCancel()
	deliveries := s.deliveries.Swap(nil)
	var wg sync.WaitGroup
	wg.Add(len(deliveries))
	for _, d := range deliveries {
		go func(d *Delivery) {
			d.Close()
			wg.Done()
		}(d)
	}
	wg.Wait()
	s.events.Close()
}
