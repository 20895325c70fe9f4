package session

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	assert_ "github.com/stretchr/testify/assert"

	"github.com/pngnest/pngnest"
	"github.com/pngnest/pngnest/internal/journal"
	"github.com/pngnest/pngnest/unsplash"
)

// recordingJournal captures journal writes for inspection. Records arrive from the
// delivery run goroutines, so everything is mutex'd.
type recordingJournal struct {
	mu            sync.Mutex
	deliveries    []journal.DeliveryRecord
	notifications []journal.NotificationRecord
}

func (j *recordingJournal) RecordDelivery(rec *journal.DeliveryRecord) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.deliveries = append(j.deliveries, *rec)
	return nil
}

func (j *recordingJournal) RecordNotification(rec *journal.NotificationRecord) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.notifications = append(j.notifications, *rec)
	return nil
}

// statuses returns the journaled status sequence for one delivery, in write order.
func (j *recordingJournal) statuses(id DeliveryID) []journal.DeliveryStatus {
	j.mu.Lock()
	defer j.mu.Unlock()
	var statuses []journal.DeliveryStatus
	for _, rec := range j.deliveries {
		if rec.ID == string(id) {
			statuses = append(statuses, rec.Status)
		}
	}
	return statuses
}

func (j *recordingJournal) notificationRecords() []journal.NotificationRecord {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]journal.NotificationRecord(nil), j.notifications...)
}

// recordingNotifier answers every dispatch with a canned result, synchronously.
type recordingNotifier struct {
	mu      sync.Mutex
	actions []unsplash.Action
	result  unsplash.Result
}

func (n *recordingNotifier) Dispatch(action unsplash.Action, observers ...func(unsplash.Result)) {
	n.mu.Lock()
	n.actions = append(n.actions, action)
	result := n.result
	n.mu.Unlock()
	for _, observe := range observers {
		observe(result)
	}
}

func (n *recordingNotifier) dispatched() []unsplash.Action {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]unsplash.Action(nil), n.actions...)
}

func unsplashOK() unsplash.Result {
	return unsplash.Result{Dispatched: true, StatusCode: http.StatusOK}
}

func testAsset(url string) *pngnest.Asset {
	return &pngnest.Asset{
		ID:               "alvan-nee-ZCHj_2lJP00-unsplash",
		Caption:          "Corgi Puppy",
		Tags:             []string{"dog", "cute"},
		Slug:             "corgi-puppy",
		PNGURL:           url,
		StickerURL:       "https://cdn.example.com/stickers/corgi-puppy.png",
		UnsplashID:       "ZCHj_2lJP00",
		DownloadLocation: "https://api.unsplash.com/photos/ZCHj_2lJP00/download?ixid=abc123",
	}
}

func newTestSession(t *testing.T, config Config) *Session {
	t.Helper()
	s, err := New(config, context.Background())
	if err != nil {
		t.Fatalf("failed to create session: %v", err)
	}
	t.Cleanup(s.Close)
	return s
}

func waitClosed(t *testing.T, ch <-chan struct{}, what string) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(10 * time.Second):
		t.Fatalf("timed out waiting for %s", what)
	}
}

func TestSessionAddDeliveryDefaults(t *testing.T) {
	assert := assert_.New(t)
	rj := &recordingJournal{}
	s := newTestSession(t, Config{TargetDir: t.TempDir(), Journal: rj})

	asset := testAsset("https://cdn.example.com/photos/corgi-puppy.png")
	d, err := s.AddDelivery(asset, AddDeliveryOptions{})
	assert.Nil(err)
	assert.NotEmpty(d.ID)

	state, err := d.State()
	assert.Nil(err)
	assert.Equal("corgi-puppy", state.AssetSlug)
	assert.Equal(pngnest.VariantPNG, state.Variant)
	assert.Equal("https://cdn.example.com/photos/corgi-puppy.png", state.URL)
	assert.Equal("corgi-puppy.png", state.Filename)
	assert.Equal(journal.DeliveryStatusPending, state.Status)
	assert.False(state.AddedAt.IsZero())
	assert.False(d.IsComplete())

	assert.Equal([]journal.DeliveryStatus{journal.DeliveryStatusPending}, rj.statuses(d.ID))
}

func TestSessionAddDeliveryStickerVariant(t *testing.T) {
	assert := assert_.New(t)
	s := newTestSession(t, Config{TargetDir: t.TempDir()})

	asset := testAsset("https://cdn.example.com/photos/corgi-puppy.png")
	d, err := s.AddDelivery(asset, AddDeliveryOptions{Variant: pngnest.VariantSticker})
	assert.Nil(err)

	state, err := d.State()
	assert.Nil(err)
	assert.Equal(pngnest.VariantSticker, state.Variant)
	assert.Equal(asset.StickerURL, state.URL)
	assert.Equal("corgi-puppy-sticker.png", state.Filename)
}

func TestSessionAddDeliveryExplicitFilename(t *testing.T) {
	assert := assert_.New(t)
	s := newTestSession(t, Config{TargetDir: t.TempDir()})

	asset := testAsset("https://cdn.example.com/photos/corgi-puppy.png")
	d, err := s.AddDelivery(asset, AddDeliveryOptions{Filename: "best-dog.png"})
	assert.Nil(err)

	state, err := d.State()
	assert.Nil(err)
	assert.Equal("best-dog.png", state.Filename)
}

func TestSessionListAndRemove(t *testing.T) {
	assert := assert_.New(t)
	s := newTestSession(t, Config{TargetDir: t.TempDir()})

	asset := testAsset("https://cdn.example.com/photos/corgi-puppy.png")
	d1, err := s.AddDelivery(asset, AddDeliveryOptions{})
	assert.Nil(err)
	d2, err := s.AddDelivery(asset, AddDeliveryOptions{})
	assert.Nil(err)

	list := s.ListDeliveries()
	assert.Len(list, 2)
	assert.Same(d1, s.GetDelivery(d1.ID))
	assert.Same(d2, s.GetDelivery(d2.ID))

	assert.True(s.RemoveDelivery(d1.ID))
	assert.Nil(s.GetDelivery(d1.ID))
	assert.Len(s.ListDeliveries(), 1)
	// Removing again is a no-op.
	assert.False(s.RemoveDelivery(d1.ID))

	// The removed delivery is closed.
	waitClosed(t, d1.Done(), "removed delivery to close")
}

func TestSessionClose(t *testing.T) {
	assert := assert_.New(t)
	s := newTestSession(t, Config{TargetDir: t.TempDir()})

	asset := testAsset("https://cdn.example.com/photos/corgi-puppy.png")
	d, err := s.AddDelivery(asset, AddDeliveryOptions{})
	assert.Nil(err)

	s.Close()
	waitClosed(t, d.Done(), "delivery to close with session")

	_, err = d.State()
	assert.ErrorIs(err, ErrDeliveryClosed)
	_, err = s.AddDelivery(asset, AddDeliveryOptions{})
	assert.ErrorIs(err, ErrSessionClosed)
	assert.Empty(s.ListDeliveries())
	assert.Nil(s.GetDelivery(d.ID))
}

func TestSessionEvents(t *testing.T) {
	assert := assert_.New(t)
	payload := []byte("not really a png")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		w.Write(payload)
	}))
	defer server.Close()

	s := newTestSession(t, Config{
		TargetDir: t.TempDir(),
		Client:    server.Client(),
	})
	sub, err := s.Subscribe()
	assert.Nil(err)
	var events []Event
	drained := make(chan struct{})
	go func() {
		defer close(drained)
		for e := range sub.Receive() {
			events = append(events, e)
		}
	}()

	asset := testAsset(server.URL + "/photos/corgi-puppy.png")
	d, err := s.AddDelivery(asset, AddDeliveryOptions{})
	assert.Nil(err)
	d.Start()
	waitClosed(t, d.Complete(), "delivery to complete")

	s.Announce(CatalogReloaded{Checksum: "abc123", Assets: 7})
	s.Close()
	waitClosed(t, drained, "event subscriber to drain")

	assert.NotEmpty(events)
	added, ok := events[0].(DeliveryAdded)
	assert.True(ok, "first event should be DeliveryAdded, got %T", events[0])
	assert.Same(d, added.Delivery())

	var sawStarted, sawRunning, sawFileComplete, sawReloaded bool
	var stopped *DeliveryStopped
	for _, e := range events {
		switch e := e.(type) {
		case DeliveryStarted:
			sawStarted = true
		case DeliveryUpdated:
			if e.OldState.Status == journal.DeliveryStatusPending && e.NewState.Status == journal.DeliveryStatusRunning {
				sawRunning = true
			}
		case DeliveryFileComplete:
			sawFileComplete = true
			assert.NotEmpty(e.Path)
		case DeliveryStopped:
			stopped = &e
		case CatalogReloaded:
			sawReloaded = true
			assert.Equal("abc123", e.Checksum)
			assert.Equal(7, e.Assets)
			assert.Nil(e.Delivery())
		}
	}
	assert.True(sawStarted)
	assert.True(sawRunning)
	assert.True(sawFileComplete)
	assert.True(sawReloaded)
	if assert.NotNil(stopped) {
		assert.Nil(stopped.Err)
		assert.Same(d, stopped.Delivery())
	}
}

func TestNilNotifierSkips(t *testing.T) {
	assert := assert_.New(t)
	var results []unsplash.Result
	NilNotifier{}.Dispatch(unsplash.Action{ID: "x"}, func(r unsplash.Result) {
		results = append(results, r)
	})
	assert.Len(results, 1)
	assert.True(results[0].Skipped)
	assert.False(results[0].Dispatched)
}
