package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	EmergencyRequestsTotal = promauto.NewCounter(prometheus.CounterOpts{Namespace: "dispatch", Name: "emergency_requests_total", Help: "Emergency requests created"})
	MatchesTotal           = promauto.NewCounter(prometheus.CounterOpts{Namespace: "dispatch", Name: "matches_total", Help: "Driver alerts sent after a successful match"})
	MatchMissesTotal       = promauto.NewCounter(prometheus.CounterOpts{Namespace: "dispatch", Name: "match_misses_total", Help: "Match attempts that found no eligible driver"})
	DroppedSendsTotal      = promauto.NewCounter(prometheus.CounterOpts{Namespace: "dispatch", Name: "dropped_sends_total", Help: "Outbound events dropped because the actor had no usable connection"})
	DistanceFallbacksTotal = promauto.NewCounter(prometheus.CounterOpts{Namespace: "dispatch", Name: "distance_fallbacks_total", Help: "Distance computations degraded to 0 on malformed input"})

	ActivePatients = promauto.NewGauge(prometheus.GaugeOpts{Namespace: "dispatch", Name: "active_patients", Help: "Patients currently registered"})
	ActiveDrivers  = promauto.NewGauge(prometheus.GaugeOpts{Namespace: "dispatch", Name: "active_drivers", Help: "Drivers currently registered"})

	WSEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "dispatch", Name: "ws_events_total", Help: "Inbound WebSocket events by name"},
		[]string{"event"},
	)

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "dispatch", Name: "http_requests_total", Help: "Total HTTP requests handled"},
		[]string{"method", "path", "status"},
	)
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "dispatch",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency distribution",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
