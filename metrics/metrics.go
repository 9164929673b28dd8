// Package metrics wires ConnectionEngine and TDMACoordinator into
// Prometheus, following the same package-level CounterVec/GaugeVec plus
// sync.Once registration idiom used by danmuck-edgectl's
// internal/observability/metrics.go and ryandielhenn-zephyrcache's
// internal/telemetry/metrics.go.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	framesSent = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "linkproto",
			Name:      "frames_sent_total",
			Help:      "Frames (including ACKs and SYNCs) accepted into the outbound queue by Send.",
		},
		[]string{"connection"},
	)
	framesCorrupted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "linkproto",
			Name:      "frames_corrupted_total",
			Help:      "Frames whose trailer byte failed validation.",
		},
		[]string{"connection"},
	)
	framesRetried = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "linkproto",
			Name:      "frames_retried_total",
			Help:      "Retry attempts beyond a frame's first emission.",
		},
		[]string{"connection"},
	)
	framesDropped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "linkproto",
			Name:      "frames_dropped_total",
			Help:      "Frames disposed after exhausting their retry budget.",
		},
		[]string{"connection"},
	)
	queueDepth = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "linkproto",
			Name:      "queue_depth_bytes",
			Help:      "Current size of a connection's outbound buffer in bytes.",
		},
		[]string{"connection"},
	)
	tokenHolder = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "linkproto",
			Subsystem: "tdma",
			Name:      "token_holder",
			Help:      "Peer ID this coordinator currently believes holds the transmit token.",
		},
		[]string{"connection"},
	)
	estimatedLatency = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "linkproto",
			Subsystem: "tdma",
			Name:      "estimated_latency_ms",
			Help:      "Current round-trip latency estimate derived from SYNC/ACK timing.",
		},
		[]string{"connection"},
	)
)

// Register registers every linkproto metric with reg exactly once,
// regardless of how many Sets are created afterwards.
func Register(reg prometheus.Registerer) {
	registerOnce.Do(func() {
		reg.MustRegister(framesSent, framesCorrupted, framesRetried, framesDropped,
			queueDepth, tokenHolder, estimatedLatency)
	})
}

// Set is the metrics handle for a single named connection (or TDMA peer).
// Engines hold a nil *Set by default and pay nothing unless one is
// assigned to Engine.Metrics (or, for a Coordinator, its embedded
// Engine's Metrics field) after construction.
type Set struct {
	connection string
}

// NewSet registers the package's metrics with reg (a no-op after the
// first call) and returns a Set scoped to connection's label value.
func NewSet(reg prometheus.Registerer, connection string) *Set {
	Register(reg)
	return &Set{connection: connection}
}

func (s *Set) FrameSent() {
	if s == nil {
		return
	}
	framesSent.WithLabelValues(s.connection).Inc()
}

func (s *Set) FrameCorrupted() {
	if s == nil {
		return
	}
	framesCorrupted.WithLabelValues(s.connection).Inc()
}

func (s *Set) FrameRetried() {
	if s == nil {
		return
	}
	framesRetried.WithLabelValues(s.connection).Inc()
}

func (s *Set) FrameDropped() {
	if s == nil {
		return
	}
	framesDropped.WithLabelValues(s.connection).Inc()
}

func (s *Set) SetQueueDepth(n int) {
	if s == nil {
		return
	}
	queueDepth.WithLabelValues(s.connection).Set(float64(n))
}

// SetTokenHolder records which peer tdma.Coordinator currently believes
// holds the transmit token.
func (s *Set) SetTokenHolder(holder byte) {
	if s == nil {
		return
	}
	tokenHolder.WithLabelValues(s.connection).Set(float64(holder))
}

// SetEstimatedLatency records tdma.Coordinator's current round-trip
// latency estimate, in milliseconds.
func (s *Set) SetEstimatedLatency(ms uint16) {
	if s == nil {
		return
	}
	estimatedLatency.WithLabelValues(s.connection).Set(float64(ms))
}
