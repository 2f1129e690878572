package channel

import (
	"fmt"
	"time"

	"github.com/noisecore/xxcore/datachannel"
	"github.com/noisecore/xxcore/errs"
	"github.com/noisecore/xxcore/handshake"
	"github.com/noisecore/xxcore/identity"
	"github.com/noisecore/xxcore/internal/metrics"
	"github.com/noisecore/xxcore/vault"
)

// Responder drives DecodeMsg1 -> EncodeMsg2 -> DecodeMsg3 ->
// ExchangeIdentity -> Ready.
type Responder struct {
	v       vault.Vault
	hs      *handshake.Responder
	opts    Options
	onReady CompletionFunc

	state    State
	deadline time.Time

	completed *Completed
}

func NewResponder(v vault.Vault, identityKey *vault.Handle, opts Options, onReady CompletionFunc) (*Responder, error) {
	hs, err := handshake.NewResponder(v, opts.Suite, identityKey, opts.Prologue)
	if err != nil {
		return nil, fmt.Errorf("channel: new responder handshake: %w", err)
	}
	metrics.HandshakesInitiated.WithLabelValues("responder").Inc()
	metrics.ChannelsActive.Inc()
	return &Responder{
		v:        v,
		hs:       hs,
		opts:     opts,
		onReady:  onReady,
		state:    StateDecodeMsg1,
		deadline: opts.deadline(),
	}, nil
}

func (c *Responder) State() State { return c.state }

func (c *Responder) requireState(want State) error {
	if c.state != want {
		return errs.New(errs.InvalidState, phaseFor(want), fmt.Errorf("expected state %s, got %s", want, c.state))
	}
	return checkDeadline(c.deadline)
}

// DecodeMsg1 consumes the initiator's first handshake message.
func (c *Responder) DecodeMsg1(msg []byte) ([]byte, error) {
	if err := c.requireState(StateDecodeMsg1); err != nil {
		return nil, err
	}
	payload, err := c.hs.DecodeMessage1(msg)
	if err != nil {
		c.abortInternal()
		return nil, err
	}
	c.state = StateEncodeMsg2
	return payload, nil
}

// EncodeMsg2 produces the second handshake wire message.
func (c *Responder) EncodeMsg2(payload []byte) ([]byte, error) {
	if err := c.requireState(StateEncodeMsg2); err != nil {
		return nil, err
	}
	out, err := c.hs.EncodeMessage2(payload)
	if err != nil {
		c.abortInternal()
		return nil, err
	}
	c.state = StateDecodeMsg3
	return out, nil
}

// DecodeMsg3 consumes the third and final handshake message and
// immediately finalizes: the responder completes as soon as it
// verifies message 3.
func (c *Responder) DecodeMsg3(msg []byte) ([]byte, error) {
	if err := c.requireState(StateDecodeMsg3); err != nil {
		return nil, err
	}
	payload, err := c.hs.DecodeMessage3(msg)
	if err != nil {
		c.abortInternal()
		return nil, err
	}
	cke, err := c.hs.Finalize()
	if err != nil {
		c.abortInternal()
		return nil, err
	}
	c.completed = &Completed{
		TranscriptHash: cke.TranscriptHash,
		Encrypt:        datachannel.NewCipher(c.v, cke.EncryptKey, cke.TranscriptHash),
		Decrypt:        datachannel.NewCipher(c.v, cke.DecryptKey, cke.TranscriptHash),
	}
	c.state = StateExchangeIdentity
	return payload, nil
}

// DecodeIdentity consumes the initiator's identity frame: the first
// data-phase frame, so the responder always decodes before it encodes
// its own.
func (c *Responder) DecodeIdentity(ciphertext []byte) (*identity.VerifiedPeer, error) {
	if err := c.requireState(StateExchangeIdentity); err != nil {
		return nil, err
	}
	frame, err := c.completed.Decrypt.Decrypt(ciphertext)
	if err != nil {
		c.abortInternal()
		return nil, err
	}
	verified, err := identity.VerifyFrame(c.v, frame, c.completed.TranscriptHash, c.opts.TrustContext, c.opts.TrustPolicy)
	if err != nil {
		c.abortInternal()
		return nil, err
	}
	c.completed.PeerIdentityID = verified.Remote.ID()
	c.completed.Credential = verified.Credential
	return verified, nil
}

// EncodeIdentity builds and encrypts the responder's own identity
// frame and transitions into Ready, firing the one-time completion
// event. Must be called after DecodeIdentity.
func (c *Responder) EncodeIdentity() ([]byte, error) {
	if err := c.requireState(StateExchangeIdentity); err != nil {
		return nil, err
	}
	if c.completed.PeerIdentityID == "" {
		return nil, errs.New(errs.InvalidState, errs.PhaseIdentity, fmt.Errorf("EncodeIdentity called before the peer's identity frame was verified"))
	}
	frame, err := identity.BuildFrame(c.opts.Local, c.completed.TranscriptHash, c.opts.Credential)
	if err != nil {
		c.abortInternal()
		return nil, err
	}
	ct, err := c.completed.Encrypt.Encrypt(frame)
	if err != nil {
		c.abortInternal()
		return nil, err
	}
	c.state = StateReady
	metrics.HandshakesCompleted.WithLabelValues("responder", suiteLabel(c.opts.Suite)).Inc()
	metrics.ChannelsEstablished.WithLabelValues("responder", "ready").Inc()
	metrics.ChannelsActive.Dec()

	if c.onReady != nil {
		c.onReady(CompletionEvent{
			PeerIdentityID: c.completed.PeerIdentityID,
			TranscriptHash: c.completed.TranscriptHash,
		})
	}
	return ct, nil
}

func (c *Responder) IsReady() bool { return c.state == StateReady }

// Finalize returns the completed channel once Ready; InvalidState
// otherwise.
func (c *Responder) Finalize() (*Completed, error) {
	if c.state != StateReady {
		return nil, errs.New(errs.InvalidState, errs.PhaseFinalize, fmt.Errorf("finalize called in state %s, not Ready", c.state))
	}
	return c.completed, nil
}

func (c *Responder) abortInternal() {
	c.hs.Abort()
	if c.completed != nil {
		_ = c.completed.Encrypt.Destroy()
		_ = c.completed.Decrypt.Destroy()
	}
	metrics.HandshakesFailed.WithLabelValues("responder", "aborted").Inc()
	metrics.ChannelsAborted.WithLabelValues(c.state.String()).Inc()
	metrics.ChannelsActive.Dec()
	c.state = StateAborted
}

// Abort idempotently tears down the channel.
func (c *Responder) Abort() {
	if c.state == StateAborted {
		return
	}
	c.abortInternal()
}
