package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ChannelsEstablished tracks channels that reached StateReady, by
	// role and outcome (always "ready"; aborts are counted in
	// ChannelsAborted).
	ChannelsEstablished = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "channels",
			Name:      "established_total",
			Help:      "Total number of channels that completed the handshake and identity exchange",
		},
		[]string{"role", "outcome"},
	)

	// ChannelsActive tracks channels currently between construction and
	// Ready or Abort.
	ChannelsActive = promauto.With(Registry).NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "channels",
			Name:      "active",
			Help:      "Number of channels currently in progress",
		},
	)

	// ChannelsAborted tracks channels aborted before reaching Ready, by
	// state at the time of abort.
	ChannelsAborted = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "channels",
			Name:      "aborted_total",
			Help:      "Total number of channels aborted, by state at abort time",
		},
		[]string{"state"},
	)

	// ChannelStepDuration tracks wall-clock time spent in each channel
	// method call (EncodeMsg1, DecodeMsg2, ...).
	ChannelStepDuration = promauto.With(Registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "channels",
			Name:      "step_duration_seconds",
			Help:      "Duration of individual channel state-machine steps",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 15), // 0.1ms to 1.6s
		},
		[]string{"step"},
	)
)
