package session

import (
	"context"
	"time"

	"github.com/pngnest/pngnest/internal/delivery"
	"github.com/pngnest/pngnest/internal/journal"
	"github.com/pngnest/pngnest/internal/metrics"
	"github.com/pngnest/pngnest/unsplash"
)

type workProgress struct {
	transferred int
	expected    int
}

type workResult struct {
	outcome *delivery.Outcome
	err     error
}

func (d *Delivery) run() {
	d.stopped.Set()

	for {
		select {
		case <-d.ctx.Done():
			d.close()
			close(d.done)
			return
		case cmd := <-d.stateCommands:
			_ = cmd.Respond(d.DeliveryState)
		case <-d.startCommand:
			d.start()
		case <-d.stopCommand:
			d.stop(nil)
		case p := <-d.workProgress:
			d.progress(p)
		case r := <-d.workResults:
			d.finish(r)
		}
	}
}

func (d *Delivery) close() {
	d.stop(nil)
	d.events.Close()
}

func (d *Delivery) start() {
	if !d.stopped.Clear() {
		// Already running (or being started) so nothing to do
		return
	}
	d.complete.Clear()
	d.running.Set()
	metrics.DeliveriesActive.Inc()

	workCtx, workCancel := context.WithCancel(d.ctx)
	d.workCancel = workCancel
	d.updateState(func(ds *DeliveryState) {
		ds.Status = journal.DeliveryStatusRunning
		ds.Error = ""
		ds.Transferred = 0
		ds.Expected = 0
	})
	d.events.Send(DeliveryStarted{deliveryEvent{d}})
	d.notify()
	go d.work(workCtx, d.URL, d.Filename)
}

// stop interrupts an in-flight delivery. The interrupted record goes back to pending,
// so a later Start (or a restart of the whole service) can pick it up again.
func (d *Delivery) stop(err error) {
	if d.workCancel != nil {
		d.workCancel()
		d.workCancel = nil
	}
	if !d.running.Clear() {
		// Not running (or already stopping) so nothing to do
		return
	}
	metrics.DeliveriesActive.Dec()
	d.updateState(func(ds *DeliveryState) {
		ds.Status = ds.Status.Interrupted()
		if err != nil {
			ds.Error = err.Error()
		}
	})
	d.stopped.Set()
	d.events.Send(DeliveryStopped{deliveryEvent{d}, err})
}

// work runs the strategy chain outside the run goroutine, reporting progress and the
// eventual outcome back into it. Both channels are abandoned once ctx ends, so a
// stopped delivery never blocks its worker.
func (d *Delivery) work(ctx context.Context, url string, filename string) {
	onProgress := func(transferred int, expected int) {
		select {
		case d.workProgress <- workProgress{transferred, expected}:
		case <-ctx.Done():
		}
	}
	outcome, err := d.session.deliver(ctx, url, filename, onProgress)
	select {
	case d.workResults <- workResult{outcome, err}:
	case <-ctx.Done():
	}
}

func (d *Delivery) finish(r workResult) {
	if !d.running.Clear() {
		// A late result from work that was already stopped
		return
	}
	d.workCancel = nil
	metrics.DeliveriesActive.Dec()

	d.updateState(func(ds *DeliveryState) {
		switch {
		case r.err != nil:
			ds.Status = journal.DeliveryStatusFailed
			ds.Error = r.err.Error()
		case r.outcome.Saved():
			ds.Status = journal.DeliveryStatusComplete
			ds.Strategy = r.outcome.Strategy
			ds.Path = r.outcome.Path
			ds.Error = ""
		default:
			ds.Status = journal.DeliveryStatusHandedOff
			ds.Strategy = r.outcome.Strategy
			ds.Error = ""
		}
	})
	metrics.DeliveriesTotal.WithLabelValues(d.Strategy, string(d.Status)).Inc()
	if r.outcome != nil {
		for _, attempt := range r.outcome.Attempts {
			if attempt.Err != nil {
				metrics.DeliveryStrategyFailures.WithLabelValues(attempt.Strategy).Inc()
			}
		}
	}

	if r.err == nil {
		d.complete.Set()
		if r.outcome.Saved() {
			d.events.Send(DeliveryFileComplete{deliveryEvent{d}, r.outcome.Path})
		}
	}
	d.stopped.Set()
	d.events.Send(DeliveryStopped{deliveryEvent{d}, r.err})
}

// notify dispatches the provider compliance notification for this delivery. The
// observer only journals and counts the result; nothing here feeds back into the
// delivery itself.
func (d *Delivery) notify() {
	id := string(d.ID)
	action := d.action
	journ := d.session.config.Journal
	log := d.log()
	d.session.config.Notifier.Dispatch(action, func(result unsplash.Result) {
		rec := &journal.NotificationRecord{
			ID:         journal.NewRecordID(),
			DeliveryID: id,
			UnsplashID: action.ID,
			Dispatched: result.Dispatched,
			Skipped:    result.Skipped,
			StatusCode: result.StatusCode,
			CreatedAt:  time.Now(),
		}
		if result.Err != nil {
			rec.Error = result.Err.Error()
		}
		if err := journ.RecordNotification(rec); err != nil {
			log.Warnw("failed to journal notification", "err", err)
		}
		metrics.NotificationsTotal.
			WithLabelValues(metrics.NotificationResult(result.Skipped, result.Err, result.StatusCode)).
			Inc()
	})
}

func (d *Delivery) progress(p workProgress) {
	if !d.running.IsSet() {
		return
	}
	if delta := p.transferred - d.Transferred; delta > 0 {
		metrics.DeliveryBytes.Add(float64(delta))
	}
	// Progress always lands in the state; the update events are rate-limited.
	old := d.DeliveryState
	d.Transferred = p.transferred
	d.Expected = p.expected
	if now := time.Now(); now.Sub(d.lastProgressEvent) >= d.session.config.ProgressUpdateInterval {
		d.lastProgressEvent = now
		if d.DeliveryState != old {
			d.events.Send(DeliveryUpdated{deliveryEvent{d}, old, d.DeliveryState})
		}
	}
}

func (d *Delivery) updateState(f func(ds *DeliveryState)) {
	old := d.DeliveryState
	f(&d.DeliveryState)
	if err := d.session.config.Journal.RecordDelivery(d.DeliveryState.Record()); err != nil {
		d.log().Warnw("failed to journal delivery", "err", err)
	}
	if d.DeliveryState != old {
		d.events.Send(DeliveryUpdated{deliveryEvent{d}, old, d.DeliveryState})
	}
}
