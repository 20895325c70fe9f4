package gallery

import (
	"context"

	"github.com/pngnest/pngnest/internal/pubsub"
	"github.com/pngnest/pngnest/internal/syncutil"
)

const DefaultMargin = 200

// An Approach event reports the sentinel element's distance from the viewport
// edge; values at or below the margin mean the user is about to reach it.
type Approach struct {
	Distance float64
}

type SentinelOption func(*Sentinel)

// WithMargin sets how close an approach must be to trigger growth.
func WithMargin(margin float64) SentinelOption {
	return func(s *Sentinel) {
		s.margin = margin
	}
}

// WithOnGrow registers a callback invoked with the window after each growth.
func WithOnGrow(f func(*Window)) SentinelOption {
	return func(s *Sentinel) {
		s.onGrow = f
	}
}

// A Sentinel grows a window whenever its approach feed reports a distance within
// the margin. It owns the feed for its whole life: once the window is exhausted
// or the context ends, the feed is closed and further producer sends fail.
type Sentinel struct {
	window  *Window
	margin  float64
	onGrow  func(*Window)
	feed    pubsub.SenderCloser[Approach]
	events  pubsub.ReceiverCloser[Approach]
	pipe    pubsub.Pipe[Approach]
	stopped syncutil.Event
}

func NewSentinel(ctx context.Context, window *Window, opts ...SentinelOption) *Sentinel {
	feed, events, pipe := pubsub.NewPipe[Approach]()
	s := &Sentinel{
		window: window,
		margin: DefaultMargin,
		feed:   feed,
		events: events,
		pipe:   pipe,
	}
	for _, opt := range opts {
		opt(s)
	}
	go s.run(ctx)
	return s
}

// Feed is the producer side of the sentinel: send an event per distance report.
// Sends fail once the sentinel has torn down.
func (s *Sentinel) Feed() pubsub.Sender[Approach] {
	return s.feed
}

// Close tears the sentinel down early and waits until the feed is gone.
func (s *Sentinel) Close() {
	s.pipe.Close()
	<-s.stopped.Wait()
}

// Stopped is closed once the sentinel has torn down its feed.
func (s *Sentinel) Stopped() <-chan struct{} {
	return s.stopped.Wait()
}

func (s *Sentinel) run(ctx context.Context) {
	defer s.stopped.Set()
	defer s.pipe.Close()
	if s.window.Exhausted() {
		return
	}
	for {
		select {
		case approach, ok := <-s.events.Receive():
			if !ok {
				return
			}
			if approach.Distance > s.margin {
				continue
			}
			s.window.Grow()
			if s.onGrow != nil {
				s.onGrow(s.window)
			}
			if s.window.Exhausted() {
				return
			}
		case <-ctx.Done():
			return
		}
	}
}
