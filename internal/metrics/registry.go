// Package metrics exposes Prometheus instrumentation for the
// handshake, channel, data-phase and vault components.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Registry is the engine's private Prometheus registry, passed
// explicitly to promauto.With(...) rather than relying on the global
// default, so multiple engine instances in one process don't collide.
var Registry = prometheus.NewRegistry()

const namespace = "xxcore"
