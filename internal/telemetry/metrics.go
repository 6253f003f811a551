package telemetry

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// FramesReceived counts frames handed to the tracker by a source
	FramesReceived = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "netrack",
			Name:      "frames_received_total",
			Help:      "Total number of classified frames received from capture sources",
		},
		[]string{"source"},
	)

	// FramesTracked counts frames accepted by the classification engine, by category
	FramesTracked = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "netrack",
			Name:      "frames_tracked_total",
			Help:      "Total number of frames accepted for tracking",
		},
		[]string{"category"},
	)

	// FramesRejected counts filtered frames
	FramesRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "netrack",
			Name:      "frames_rejected_total",
			Help:      "Total number of frames filtered out before tracking",
		},
		[]string{"reason"},
	)

	// NetworksTracked is the current size of the tracking table
	NetworksTracked = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "netrack",
			Name:      "networks_tracked",
			Help:      "Number of networks currently in the tracking table",
		},
	)

	// NetworksCreated counts new network records, by type
	NetworksCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "netrack",
			Name:      "networks_created_total",
			Help:      "Total number of network records created",
		},
		[]string{"type"},
	)

	// Decloaks counts cloaked networks resolved, by origin (cache, probe_resp)
	Decloaks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "netrack",
			Name:      "decloaks_total",
			Help:      "Total number of cloaked SSIDs resolved",
		},
		[]string{"origin"},
	)

	// CacheEntries is the number of entries held by each persistent cache
	CacheEntries = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "netrack",
			Name:      "cache_entries",
			Help:      "Entries held in memory by each persistent cache",
		},
		[]string{"cache"},
	)

	// CacheErrors counts cache file problems
	CacheErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "netrack",
			Name:      "cache_errors_total",
			Help:      "Total number of cache file read/write problems",
		},
		[]string{"cache", "op"},
	)

	// ProtocolPushes counts lines pushed to protocol consumers
	ProtocolPushes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "netrack",
			Name:      "protocol_pushes_total",
			Help:      "Total number of protocol lines sent to consumers",
		},
		[]string{"protocol"},
	)

	// ProtocolSessions is the number of connected protocol consumers
	ProtocolSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "netrack",
			Name:      "protocol_sessions",
			Help:      "Number of connected protocol consumers",
		},
	)

	// Ensure metrics are only registered once
	once sync.Once
)

// InitMetrics registers all metrics with the global Prometheus registry
// This function is idempotent and can be called multiple times safely
func InitMetrics() {
	once.Do(func() {
		// Register metrics, ignoring errors if already registered
		prometheus.DefaultRegisterer.Register(FramesReceived)
		prometheus.DefaultRegisterer.Register(FramesTracked)
		prometheus.DefaultRegisterer.Register(FramesRejected)
		prometheus.DefaultRegisterer.Register(NetworksTracked)
		prometheus.DefaultRegisterer.Register(NetworksCreated)
		prometheus.DefaultRegisterer.Register(Decloaks)
		prometheus.DefaultRegisterer.Register(CacheEntries)
		prometheus.DefaultRegisterer.Register(CacheErrors)
		prometheus.DefaultRegisterer.Register(ProtocolPushes)
		prometheus.DefaultRegisterer.Register(ProtocolSessions)
	})
}
