package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "frontline",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total admin HTTP requests.",
		},
		[]string{"instance", "method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "frontline",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Admin HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"instance", "method", "path", "status"},
	)

	// SessionsActive tracks currently bound session slots.
	SessionsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "frontline",
			Subsystem: "relay",
			Name:      "sessions_active",
			Help:      "Currently bound session slots.",
		},
	)
	// SessionsRejected counts connections refused at capacity or while the
	// backend is down.
	SessionsRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "frontline",
			Subsystem: "relay",
			Name:      "sessions_rejected_total",
			Help:      "Connections refused before a session was bound.",
		},
		[]string{"reason"},
	)
	// MessagesTotal counts frames by direction and numeric message type.
	MessagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "frontline",
			Subsystem: "relay",
			Name:      "messages_total",
			Help:      "Frames handled, by direction and message type.",
		},
		[]string{"dir", "type"},
	)
	BroadcastsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "frontline",
			Subsystem: "relay",
			Name:      "broadcasts_total",
			Help:      "Room broadcasts delivered.",
		},
	)
	BackendReconnects = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "frontline",
			Subsystem: "relay",
			Name:      "backend_reconnects_total",
			Help:      "Backend link reconnect attempts.",
		},
	)
	CookiesIssued = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "frontline",
			Subsystem: "relay",
			Name:      "cookies_issued_total",
			Help:      "Handoff cookies stored.",
		},
	)
	CookiesValidated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "frontline",
			Subsystem: "relay",
			Name:      "cookies_validated_total",
			Help:      "Handoff cookie validation outcomes.",
		},
		[]string{"result"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			httpRequests, httpDuration,
			SessionsActive, SessionsRejected, MessagesTotal,
			BroadcastsTotal, BackendReconnects,
			CookiesIssued, CookiesValidated,
		)
	})
}

func RecordHTTPRequest(instance, method, path string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(instance, method, path, statusLabel).Inc()
	httpDuration.WithLabelValues(instance, method, path, statusLabel).Observe(duration.Seconds())
}
