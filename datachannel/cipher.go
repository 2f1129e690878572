// Package datachannel implements the post-handshake data phase: a
// directional AEAD cipher with the data-phase nonce format (distinct
// from the handshake's), an encryptor/decryptor worker pair, and a
// multi-part payload collector.
package datachannel

import (
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/noisecore/xxcore/errs"
	"github.com/noisecore/xxcore/internal/metrics"
	"github.com/noisecore/xxcore/vault"
)

// buildNonce renders a data-phase AEAD nonce: 4 zero bytes followed by
// the 8-byte big-endian counter. This is deliberately a different
// layout from the handshake's [0;10]||u16_be(counter) nonce: the two
// phases must never share a nonce space.
func buildNonce(counter uint64) [12]byte {
	var n [12]byte
	binary.BigEndian.PutUint64(n[4:], counter)
	return n
}

// Cipher is one direction of the data phase: a vault-held key, a
// monotonic counter, and a fixed associated-data value (the
// handshake's final transcript hash, binding every data frame to the
// channel that produced it).
type Cipher struct {
	mu      sync.Mutex
	v       vault.Vault
	key     vault.Handle
	ad      [32]byte
	counter uint64
}

// NewCipher wraps key for one direction of traffic, AAD'd with
// transcriptHash.
func NewCipher(v vault.Vault, key vault.Handle, transcriptHash [32]byte) *Cipher {
	return &Cipher{v: v, key: key, ad: transcriptHash}
}

// Encrypt seals plaintext under the next nonce, advancing the counter.
func (c *Cipher) Encrypt(plaintext []byte) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	nonce := buildNonce(c.counter)
	ct, err := c.v.AEADEncrypt(c.key, nonce, c.ad[:], plaintext)
	if err != nil {
		metrics.FramesRejected.WithLabelValues(string(errs.InternalVault)).Inc()
		return nil, errs.New(errs.InternalVault, errs.PhaseData, fmt.Errorf("data-phase encrypt at counter %d: %w", c.counter, err))
	}
	c.counter++
	metrics.FramesSent.Inc()
	metrics.FrameSize.Observe(float64(len(plaintext)))
	return ct, nil
}

// Decrypt opens ciphertext against the next expected nonce, advancing
// the counter. A counter that never repeats across the channel's
// lifetime is sufficient replay rejection: any out-of-order or
// resubmitted frame fails AEAD authentication against the wrong nonce.
func (c *Cipher) Decrypt(ciphertext []byte) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	nonce := buildNonce(c.counter)
	pt, err := c.v.AEADDecrypt(c.key, nonce, c.ad[:], ciphertext)
	if err != nil {
		metrics.FramesRejected.WithLabelValues(string(errs.VerificationFailed)).Inc()
		return nil, errs.New(errs.VerificationFailed, errs.PhaseData, fmt.Errorf("data-phase decrypt at counter %d: %w", c.counter, err))
	}
	c.counter++
	metrics.FramesReceived.Inc()
	return pt, nil
}

// Counter reports the next nonce counter that will be used, for tests
// and metrics.
func (c *Cipher) Counter() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.counter
}

// Destroy releases the underlying vault handle.
func (c *Cipher) Destroy() error {
	return c.v.Destroy(c.key)
}
