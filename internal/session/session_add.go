package session

import (
	"errors"
	"time"

	"github.com/pngnest/pngnest"
	"github.com/pngnest/pngnest/generic"
	"github.com/pngnest/pngnest/internal/journal"
	"github.com/pngnest/pngnest/unsplash"
)

// AddDeliveryOptions adjusts how an asset is delivered.
type AddDeliveryOptions struct {
	// Variant selects the asset rendition, VariantPNG when empty.
	Variant pngnest.Variant
	// Filename overrides the name produced by the session's FilenameConfig.
	Filename string
}

// AddDelivery creates a delivery for the asset and adds it to the session. The
// delivery starts out pending; use Delivery.Start to run it.
func (s *Session) AddDelivery(asset *pngnest.Asset, opt AddDeliveryOptions) (*Delivery, error) {
	if s.ctx.Err() != nil {
		return nil, ErrSessionClosed
	}
	variant := opt.Variant
	if variant == "" {
		variant = pngnest.VariantPNG
	}
	url, err := asset.URL(variant)
	if err != nil {
		return nil, err
	}
	filename := opt.Filename
	if filename == "" {
		if filename, err = s.names.Filename(asset, variant); err != nil {
			return nil, err
		}
	}
	ds := DeliveryState{}
	ds.ID = NewDeliveryID()
	ds.AssetSlug = asset.Slug
	ds.Variant = variant
	ds.URL = url
	ds.Filename = filename
	ds.AddedAt = time.Now()
	ds.Status = journal.DeliveryStatusPending
	return s.insertDelivery(ds, unsplash.ActionForAsset(asset))
}

func (s *Session) insertDelivery(ds DeliveryState, action unsplash.Action) (*Delivery, error) {
	d, err := newDelivery(s, ds, action)
	if err != nil {
		return nil, err
	}
	err = s.deliveries.Locked(func(deliveries deliveriesByID) error {
		if deliveries == nil {
			return ErrSessionClosed
		}
		if _, ok := deliveries[d.ID]; ok {
			return errors.New("duplicate delivery ID")
		}
		deliveries[d.ID] = d
		return nil
	})
	if err != nil {
		d.Close()
		return nil, err
	}
	if err := s.config.Journal.RecordDelivery(d.DeliveryState.Record()); err != nil {
		s.log.Warnw("failed to journal delivery", "err", err)
	}
	generic.Unwrap_(d.events.AddSubscriber(s.events, false))
	s.log.Debugf("delivery added: %v", d)
	s.events.Send(DeliveryAdded{deliveryEvent{d}})
	return d, nil
}

// RemoveDelivery closes and removes the delivery with the given ID, reporting
// whether it existed.
func (s *Session) RemoveDelivery(id DeliveryID) bool {
	var d *Delivery
	_ = s.deliveries.Locked(func(deliveries deliveriesByID) error {
		if existing, ok := deliveries[id]; ok {
			d = existing
			delete(deliveries, id)
		}
		return nil
	})
	if d == nil {
		return false
	}
	d.Close()
	s.events.Send(DeliveryRemoved{deliveryEvent{d}})
	return true
}
