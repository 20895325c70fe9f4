package delivery

import (
	"context"
	"fmt"

	"github.com/hashicorp/go-multierror"
	"go.uber.org/zap"
)

// An Attempt records one strategy's run within a delivery.
type Attempt struct {
	Strategy string
	Err      error
}

// An Outcome describes how a delivery ended: which strategy won, where the file
// landed (when the sink saved locally) and what every attempted strategy reported.
type Outcome struct {
	Strategy string
	URL      string
	Filename string
	Path     string
	Attempts []Attempt
	// Failures accumulates the errors of the strategies that ran before the
	// winning one, nil when the first strategy succeeded.
	Failures error
}

// Saved reports whether some strategy materialized a local file.
func (o *Outcome) Saved() bool {
	return o.Path != ""
}

// HandedOff reports whether the delivery fell through to the terminal URL handoff.
func (o *Outcome) HandedOff() bool {
	return o.Strategy == StrategyNewTab
}

// A Pipeline runs an ordered strategy chain over deliveries. Strategies within one
// delivery run strictly sequentially, each at most once, and the first success
// short-circuits the rest.
type Pipeline struct {
	strategies []Strategy
	log        *zap.SugaredLogger
}

// NewPipeline builds a pipeline over the given strategies, or DefaultStrategies
// when none are given.
func NewPipeline(strategies ...Strategy) *Pipeline {
	if len(strategies) == 0 {
		strategies = DefaultStrategies()
	}
	return &Pipeline{
		strategies: strategies,
		log:        zap.S().Named("delivery"),
	}
}

// Strategies lists the chain in run order.
func (p *Pipeline) Strategies() []string {
	names := make([]string, 0, len(p.strategies))
	for _, s := range p.strategies {
		names = append(names, s.Name())
	}
	return names
}

// Deliver runs the chain for a built delivery. The returned error is non-nil only
// when every strategy failed, which cannot happen for a chain ending in NewTab
// with a conforming sink.
func (p *Pipeline) Deliver(d Delivery) (*Outcome, error) {
	outcome := &Outcome{
		URL:      d.URL(),
		Filename: d.Filename(),
	}
	var failures error
	for _, s := range p.strategies {
		if err := d.Context().Err(); err != nil {
			outcome.Failures = multierror.Append(failures, err)
			return outcome, outcome.Failures
		}
		err := s.Deliver(d)
		outcome.Attempts = append(outcome.Attempts, Attempt{Strategy: s.Name(), Err: err})
		if err == nil {
			outcome.Strategy = s.Name()
			outcome.Path = d.SavedPath()
			outcome.Failures = failures
			if failures != nil {
				p.log.Infow("delivery recovered",
					"strategy", s.Name(), "url", d.URL(), "failures", failures)
			}
			return outcome, nil
		}
		p.log.Debugw("delivery strategy failed",
			"strategy", s.Name(), "url", d.URL(), "error", err)
		failures = multierror.Append(failures, multierror.Prefix(err, fmt.Sprintf("[%s]", s.Name())))
	}
	outcome.Failures = failures
	return outcome, failures
}

// DeliverURL builds a delivery for the URL and runs the chain over it.
func (p *Pipeline) DeliverURL(ctx context.Context, url string, filename string, sink Sink) (*Outcome, error) {
	d, err := NewDeliveryBuilder().
		WithContext(ctx).
		WithURL(url).
		WithFilename(filename).
		WithSink(sink).
		Build()
	if err != nil {
		return nil, err
	}
	return p.Deliver(d)
}
