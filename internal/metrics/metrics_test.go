package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	assert_ "github.com/stretchr/testify/assert"
)

func TestNotificationResult(t *testing.T) {
	assert := assert_.New(t)
	assert.Equal(ResultSkipped, NotificationResult(true, nil, 0))
	assert.Equal(ResultSkipped, NotificationResult(true, errors.New("ignored"), 500))
	assert.Equal(ResultFailed, NotificationResult(false, errors.New("connection refused"), 0))
	assert.Equal(ResultRejected, NotificationResult(false, nil, 404))
	assert.Equal(ResultRejected, NotificationResult(false, nil, 0))
	assert.Equal(ResultAcknowledged, NotificationResult(false, nil, 200))
	assert.Equal(ResultAcknowledged, NotificationResult(false, nil, 204))
}

func TestCountersAccumulate(t *testing.T) {
	assert := assert_.New(t)

	before := testutil.ToFloat64(DeliveriesTotal.WithLabelValues("direct-link", "complete"))
	DeliveriesTotal.WithLabelValues("direct-link", "complete").Inc()
	after := testutil.ToFloat64(DeliveriesTotal.WithLabelValues("direct-link", "complete"))
	assert.Equal(before+1, after)

	before = testutil.ToFloat64(NotificationsTotal.WithLabelValues(ResultAcknowledged))
	NotificationsTotal.WithLabelValues(ResultAcknowledged).Inc()
	after = testutil.ToFloat64(NotificationsTotal.WithLabelValues(ResultAcknowledged))
	assert.Equal(before+1, after)

	CatalogAssets.Set(42)
	assert.Equal(float64(42), testutil.ToFloat64(CatalogAssets))
}
