package datachannel

import (
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/noisecore/xxcore/internal/metrics"
)

// Collector reassembles a sequence of AEAD-decrypted frames tagged
// with the same streamID into one logical payload. It is a pure,
// allocation-only component with no transport dependency of its own.
type Collector struct {
	mu      sync.Mutex
	streams map[uuid.UUID]*partial
}

type partial struct {
	total uint16
	parts map[uint16][]byte
}

// NewCollector returns an empty Collector.
func NewCollector() *Collector {
	return &Collector{streams: make(map[uuid.UUID]*partial)}
}

// Add ingests one part of a multi-part message. It returns the
// reassembled payload and true once totalParts distinct parts for
// streamID have arrived, in ascending partIndex order; otherwise it
// returns (nil, false).
func (c *Collector) Add(streamID uuid.UUID, partIndex, totalParts uint16, payload []byte) ([]byte, bool, error) {
	if totalParts == 0 {
		return nil, false, fmt.Errorf("datachannel: totalParts must be positive")
	}
	if partIndex >= totalParts {
		return nil, false, fmt.Errorf("datachannel: partIndex %d out of range for totalParts %d", partIndex, totalParts)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	p, ok := c.streams[streamID]
	if !ok {
		p = &partial{total: totalParts, parts: make(map[uint16][]byte, totalParts)}
		c.streams[streamID] = p
		metrics.PendingCollectorStreams.Set(float64(len(c.streams)))
	}
	if p.total != totalParts {
		return nil, false, fmt.Errorf("datachannel: stream %s totalParts changed from %d to %d", streamID, p.total, totalParts)
	}
	if _, dup := p.parts[partIndex]; dup {
		return nil, false, fmt.Errorf("datachannel: stream %s duplicate part %d", streamID, partIndex)
	}
	p.parts[partIndex] = append([]byte(nil), payload...)

	if uint16(len(p.parts)) < p.total {
		return nil, false, nil
	}

	out := make([]byte, 0)
	for i := uint16(0); i < p.total; i++ {
		out = append(out, p.parts[i]...)
	}
	delete(c.streams, streamID)
	metrics.PendingCollectorStreams.Set(float64(len(c.streams)))
	return out, true, nil
}

// Abandon discards any partial state held for streamID, e.g. on
// channel abort.
func (c *Collector) Abandon(streamID uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.streams, streamID)
	metrics.PendingCollectorStreams.Set(float64(len(c.streams)))
}

// PendingStreams reports how many incomplete streams are buffered, for
// tests and metrics.
func (c *Collector) PendingStreams() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.streams)
}
