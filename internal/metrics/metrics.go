package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "curated_http_requests_total",
		Help: "HTTP requests by route and status code.",
	}, []string{"method", "route", "status"})

	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "curated_http_request_duration_seconds",
		Help:    "HTTP request latency by route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})

	CheckoutSessions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "curated_checkout_total",
		Help: "Checkout attempts by booking type and outcome.",
	}, []string{"booking_type", "result"})

	WebhookEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "curated_webhook_events_total",
		Help: "Payment webhook events by type and outcome.",
	}, []string{"type", "result"})

	NotificationsSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "curated_notifications_total",
		Help: "Outbound notifications by channel and outcome.",
	}, []string{"channel", "result"})

	CacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "curated_cache_lookups_total",
		Help: "Shared cache lookups by cache name and result.",
	}, []string{"cache", "result"})
)
