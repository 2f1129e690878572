package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// FramesSent tracks AEAD frames encrypted by any data-phase Cipher,
	// including the identity frames and WorkerPair traffic.
	FramesSent = promauto.With(Registry).NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "datachannel",
			Name:      "frames_sent_total",
			Help:      "Total number of data-phase frames encrypted",
		},
	)

	// FramesReceived tracks AEAD frames successfully decrypted.
	FramesReceived = promauto.With(Registry).NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "datachannel",
			Name:      "frames_received_total",
			Help:      "Total number of data-phase frames decrypted",
		},
	)

	// FramesRejected tracks frames that failed AEAD verification, by
	// errs.Kind (VerificationFailed covers both tampering and
	// out-of-order/replayed counters since the cipher enforces a
	// strictly increasing nonce).
	FramesRejected = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "datachannel",
			Name:      "frames_rejected_total",
			Help:      "Total number of data-phase frames rejected, by error kind",
		},
		[]string{"kind"},
	)

	// FrameSize tracks plaintext frame sizes passed to Cipher.Encrypt.
	FrameSize = promauto.With(Registry).NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "datachannel",
			Name:      "frame_size_bytes",
			Help:      "Plaintext size of data-phase frames",
			Buckets:   prometheus.ExponentialBuckets(64, 4, 10), // 64B to 16MB
		},
	)

	// PendingCollectorStreams tracks multi-part payload streams
	// awaiting reassembly in a Collector.
	PendingCollectorStreams = promauto.With(Registry).NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "datachannel",
			Name:      "collector_pending_streams",
			Help:      "Number of multi-part payload streams awaiting reassembly",
		},
	)
)
