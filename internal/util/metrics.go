package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	OrdersCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orders_created_total",
		Help: "Total number of orders created",
	})

	OrderTransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "order_transitions_total",
		Help: "Total number of accepted order state transitions",
	}, []string{"to"})

	OrderTransitionsRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "order_transitions_rejected_total",
		Help: "Total number of rejected order state transitions",
	}, []string{"reason"})

	PaymentAttemptsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "payment_attempts_total",
		Help: "Total number of payment attempts",
	})

	PaymentCompletedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "payment_completed_total",
		Help: "Total number of completed payments",
	})

	PaymentFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_failed_total",
		Help: "Total number of failed payment attempts",
	}, []string{"reason"})

	GatewayCaptureLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "gateway_capture_latency_seconds",
		Help:    "Latency of payment gateway capture calls",
		Buckets: prometheus.DefBuckets,
	})

	ShipmentsCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "shipments_created_total",
		Help: "Total number of courier-confirmed shipments",
	})

	ShipmentsFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "shipments_failed_total",
		Help: "Total number of failed shipment creations",
	}, []string{"reason"})

	CourierCallLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "courier_call_latency_seconds",
		Help:    "Latency of courier network calls",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})

	ComparisonsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "price_comparisons_total",
		Help: "Total number of price comparison queries",
	})

	ComparisonCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "price_comparison_cache_hits_total",
		Help: "Total number of comparison queries served from cache",
	})

	ComparisonSourceFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "price_comparison_source_failures_total",
		Help: "Total number of failed competitor source fetches",
	}, []string{"mode"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
)
