package journal

import (
	"path/filepath"
	"testing"
	"time"

	assert_ "github.com/stretchr/testify/assert"
)

func newTestJournal(t *testing.T) *Journal {
	t.Helper()
	j, err := NewJournal(filepath.Join(t.TempDir(), "journal.db"))
	if err != nil {
		t.Fatalf("failed to open journal: %v", err)
	}
	t.Cleanup(j.Close)
	return j
}

func TestJournalDeliveryRoundTrip(t *testing.T) {
	assert := assert_.New(t)
	j := newTestJournal(t)

	rec := DeliveryRecord{
		ID:        NewRecordID(),
		AssetSlug: "tabby-cat",
		Variant:   "png",
		URL:       "https://assets.example.com/tabby-cat.png",
		Filename:  "tabby-cat.png",
		Status:    DeliveryStatusPending,
	}
	assert.NoError(j.RecordDelivery(&rec))
	assert.False(rec.CreatedAt.IsZero())

	got, err := j.GetDelivery(rec.ID)
	assert.NoError(err)
	assert.NotNil(got)
	assert.Equal(rec.ID, got.ID)
	assert.Equal("tabby-cat", got.AssetSlug)
	assert.Equal("png", got.Variant)
	assert.Equal(DeliveryStatusPending, got.Status)
	assert.WithinDuration(rec.CreatedAt, got.CreatedAt, time.Second)

	// Recording again with the same ID overwrites rather than duplicating.
	rec.Status = DeliveryStatusComplete
	rec.Strategy = "direct-link"
	rec.Path = "/tmp/tabby-cat.png"
	assert.NoError(j.RecordDelivery(&rec))

	got, err = j.GetDelivery(rec.ID)
	assert.NoError(err)
	assert.Equal(DeliveryStatusComplete, got.Status)
	assert.Equal("direct-link", got.Strategy)
	assert.Equal("/tmp/tabby-cat.png", got.Path)

	all, err := j.ListDeliveries(0)
	assert.NoError(err)
	assert.Len(all, 1)
}

func TestJournalGetDeliveryMiss(t *testing.T) {
	assert := assert_.New(t)
	j := newTestJournal(t)

	got, err := j.GetDelivery("no-such-id")
	assert.NoError(err)
	assert.Nil(got)
}

func TestJournalListDeliveries(t *testing.T) {
	assert := assert_.New(t)
	j := newTestJournal(t)

	base := time.Date(2023, 6, 1, 12, 0, 0, 0, time.UTC)
	for i, id := range []string{"oldest", "middle", "newest"} {
		rec := DeliveryRecord{
			ID:        id,
			AssetSlug: "tabby-cat",
			Status:    DeliveryStatusComplete,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}
		assert.NoError(j.RecordDelivery(&rec))
	}

	all, err := j.ListDeliveries(0)
	assert.NoError(err)
	assert.Len(all, 3)
	assert.Equal("newest", all[0].ID)
	assert.Equal("middle", all[1].ID)
	assert.Equal("oldest", all[2].ID)

	limited, err := j.ListDeliveries(2)
	assert.NoError(err)
	assert.Len(limited, 2)
	assert.Equal("newest", limited[0].ID)
	assert.Equal("middle", limited[1].ID)
}

func TestJournalDeliveriesForAsset(t *testing.T) {
	assert := assert_.New(t)
	j := newTestJournal(t)

	base := time.Date(2023, 6, 1, 12, 0, 0, 0, time.UTC)
	recs := []DeliveryRecord{
		{ID: "a1", AssetSlug: "tabby-cat", CreatedAt: base},
		{ID: "b1", AssetSlug: "birthday-cake", CreatedAt: base.Add(time.Minute)},
		{ID: "a2", AssetSlug: "tabby-cat", CreatedAt: base.Add(2 * time.Minute)},
	}
	for i := range recs {
		assert.NoError(j.RecordDelivery(&recs[i]))
	}

	got, err := j.DeliveriesForAsset("tabby-cat")
	assert.NoError(err)
	assert.Len(got, 2)
	assert.Equal("a2", got[0].ID)
	assert.Equal("a1", got[1].ID)

	got, err = j.DeliveriesForAsset("no-such-asset")
	assert.NoError(err)
	assert.Len(got, 0)
}

func TestJournalNotificationRoundTrip(t *testing.T) {
	assert := assert_.New(t)
	j := newTestJournal(t)

	delivery := DeliveryRecord{ID: NewRecordID(), AssetSlug: "tabby-cat"}
	assert.NoError(j.RecordDelivery(&delivery))

	base := time.Date(2023, 6, 1, 12, 0, 0, 0, time.UTC)
	first := NotificationRecord{
		ID:         NewRecordID(),
		DeliveryID: delivery.ID,
		UnsplashID: "V09Io5ln-Qo",
		Dispatched: true,
		StatusCode: 503,
		CreatedAt:  base,
	}
	second := NotificationRecord{
		ID:         NewRecordID(),
		DeliveryID: delivery.ID,
		UnsplashID: "V09Io5ln-Qo",
		Dispatched: true,
		StatusCode: 200,
		CreatedAt:  base.Add(time.Minute),
	}
	assert.NoError(j.RecordNotification(&first))
	assert.NoError(j.RecordNotification(&second))

	got, err := j.NotificationsForDelivery(delivery.ID)
	assert.NoError(err)
	assert.Len(got, 2)
	assert.Equal(first.ID, got[0].ID)
	assert.Equal(second.ID, got[1].ID)
	assert.False(got[0].Acknowledged())
	assert.True(got[1].Acknowledged())
	assert.True(got[0].Dispatched)
	assert.False(got[0].Skipped)

	got, err = j.NotificationsForDelivery("no-such-delivery")
	assert.NoError(err)
	assert.Len(got, 0)
}

func TestJournalResumeInterrupted(t *testing.T) {
	assert := assert_.New(t)
	j := newTestJournal(t)

	recs := []DeliveryRecord{
		{ID: "running", Status: DeliveryStatusRunning},
		{ID: "pending", Status: DeliveryStatusPending},
		{ID: "complete", Status: DeliveryStatusComplete},
	}
	for i := range recs {
		assert.NoError(j.RecordDelivery(&recs[i]))
	}

	assert.NoError(j.ResumeInterrupted())

	for id, status := range map[string]DeliveryStatus{
		"running":  DeliveryStatusPending,
		"pending":  DeliveryStatusPending,
		"complete": DeliveryStatusComplete,
	} {
		got, err := j.GetDelivery(id)
		assert.NoError(err)
		assert.Equal(status, got.Status, "record %q", id)
	}
}

func TestDeliveryStatusIsTerminal(t *testing.T) {
	assert := assert_.New(t)
	assert.False(DeliveryStatusUndefined.IsTerminal())
	assert.False(DeliveryStatusPending.IsTerminal())
	assert.False(DeliveryStatusRunning.IsTerminal())
	assert.True(DeliveryStatusComplete.IsTerminal())
	assert.True(DeliveryStatusHandedOff.IsTerminal())
	assert.True(DeliveryStatusFailed.IsTerminal())
}
