package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// VaultOperations tracks vault key-material operations, by kind
	// (generate/import/export/destroy/sign/verify/dh) and algorithm
	// (ed25519/x25519/p256/secp256k1/aesgcm/chacha20poly1305).
	VaultOperations = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "vault",
			Name:      "operations_total",
			Help:      "Total number of vault key-material operations",
		},
		[]string{"operation", "algorithm"},
	)

	// VaultErrors tracks vault operation failures, by operation.
	VaultErrors = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "vault",
			Name:      "errors_total",
			Help:      "Total number of vault operation failures",
		},
		[]string{"operation"},
	)

	// VaultOperationDuration tracks vault operation latency.
	VaultOperationDuration = promauto.With(Registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "vault",
			Name:      "operation_duration_seconds",
			Help:      "Vault operation duration in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.00001, 2, 15), // 10us to 163ms
		},
		[]string{"operation", "algorithm"},
	)

	// VaultHandlesLive tracks the number of key handles currently held
	// open in the vault (not yet destroyed).
	VaultHandlesLive = promauto.With(Registry).NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "vault",
			Name:      "handles_live",
			Help:      "Number of vault key handles currently live",
		},
	)
)
