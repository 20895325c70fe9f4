// Package metrics exposes the service's Prometheus instrumentation. Metrics
// are registered on the default registry at import time; the HTTP server
// serves them on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	DeliveriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pngnest_deliveries_total",
			Help: "Total number of settled deliveries by winning strategy and final status",
		},
		[]string{"strategy", "status"},
	)

	DeliveryStrategyFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pngnest_delivery_strategy_failures_total",
			Help: "Total number of individual strategy failures on the way to a settled delivery",
		},
		[]string{"strategy"},
	)

	DeliveriesActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "pngnest_deliveries_active",
			Help: "Number of deliveries currently running",
		},
	)

	DeliveryBytes = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pngnest_delivery_bytes_total",
			Help: "Total bytes written by deliveries",
		},
	)

	NotificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pngnest_notifications_total",
			Help: "Total number of compliance notifications by result",
		},
		[]string{"result"},
	)

	CatalogAssets = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "pngnest_catalog_assets",
			Help: "Number of assets in the current catalog snapshot",
		},
	)

	CatalogReloads = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pngnest_catalog_reloads_total",
			Help: "Total number of catalog reloads since startup",
		},
	)
)

// Notification result label values.
const (
	ResultAcknowledged = "acknowledged"
	ResultRejected     = "rejected"
	ResultFailed       = "failed"
	ResultSkipped      = "skipped"
)

// NotificationResult maps a notification outcome onto its metric label: skipped
// (nothing to notify), failed (no response), rejected (non-2xx response) or
// acknowledged.
func NotificationResult(skipped bool, err error, statusCode int) string {
	switch {
	case skipped:
		return ResultSkipped
	case err != nil:
		return ResultFailed
	case statusCode < 200 || statusCode >= 300:
		return ResultRejected
	default:
		return ResultAcknowledged
	}
}
