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

// Initiator drives EncodeMsg1 -> DecodeMsg2 -> EncodeMsg3 ->
// AwaitIdentity -> Ready.
type Initiator struct {
	v       vault.Vault
	hs      *handshake.Initiator
	opts    Options
	onReady CompletionFunc

	state    State
	deadline time.Time

	completed *Completed
}

func NewInitiator(v vault.Vault, identityKey *vault.Handle, opts Options, onReady CompletionFunc) (*Initiator, error) {
	hs, err := handshake.NewInitiator(v, opts.Suite, identityKey, opts.Prologue)
	if err != nil {
		return nil, fmt.Errorf("channel: new initiator handshake: %w", err)
	}
	metrics.HandshakesInitiated.WithLabelValues("initiator").Inc()
	metrics.ChannelsActive.Inc()
	return &Initiator{
		v:        v,
		hs:       hs,
		opts:     opts,
		onReady:  onReady,
		state:    StateEncodeMsg1,
		deadline: opts.deadline(),
	}, nil
}

func (c *Initiator) State() State { return c.state }

func (c *Initiator) requireState(want State) error {
	if c.state != want {
		return errs.New(errs.InvalidState, phaseFor(want), fmt.Errorf("expected state %s, got %s", want, c.state))
	}
	return checkDeadline(c.deadline)
}

// EncodeMsg1 produces the first handshake wire message.
func (c *Initiator) EncodeMsg1(payload []byte) ([]byte, error) {
	if err := c.requireState(StateEncodeMsg1); err != nil {
		return nil, err
	}
	out, err := c.hs.EncodeMessage1(payload)
	if err != nil {
		c.abortInternal()
		return nil, err
	}
	c.state = StateDecodeMsg2
	return out, nil
}

// DecodeMsg2 consumes the responder's second handshake message.
func (c *Initiator) DecodeMsg2(msg []byte) ([]byte, error) {
	if err := c.requireState(StateDecodeMsg2); err != nil {
		return nil, err
	}
	payload, err := c.hs.DecodeMessage2(msg)
	if err != nil {
		c.abortInternal()
		return nil, err
	}
	c.state = StateEncodeMsg3
	return payload, nil
}

// EncodeMsg3 produces the third, final handshake wire message and
// immediately finalizes the local handshake state: per the XX
// pattern, the initiator completes as soon as it sends message 3.
func (c *Initiator) EncodeMsg3(payload []byte) ([]byte, error) {
	if err := c.requireState(StateEncodeMsg3); err != nil {
		return nil, err
	}
	out, err := c.hs.EncodeMessage3(payload)
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
	c.state = StateAwaitIdentity
	return out, nil
}

// EncodeIdentity builds and encrypts this side's identity frame: the
// first data-phase frame. Must be called before DecodeIdentity.
func (c *Initiator) EncodeIdentity() ([]byte, error) {
	if err := c.requireState(StateAwaitIdentity); err != nil {
		return nil, err
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
	return ct, nil
}

// DecodeIdentity consumes the responder's identity frame, verifies it,
// and transitions into Ready, firing the one-time completion event.
func (c *Initiator) DecodeIdentity(ciphertext []byte) (*identity.VerifiedPeer, error) {
	if err := c.requireState(StateAwaitIdentity); err != nil {
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
	c.state = StateReady
	metrics.HandshakesCompleted.WithLabelValues("initiator", suiteLabel(c.opts.Suite)).Inc()
	metrics.ChannelsEstablished.WithLabelValues("initiator", "ready").Inc()
	metrics.ChannelsActive.Dec()

	if c.onReady != nil {
		c.onReady(CompletionEvent{
			PeerIdentityID: verified.Remote.ID(),
			TranscriptHash: c.completed.TranscriptHash,
		})
	}
	return verified, nil
}

func (c *Initiator) IsReady() bool { return c.state == StateReady }

// Finalize returns the completed channel once Ready; InvalidState
// otherwise.
func (c *Initiator) Finalize() (*Completed, error) {
	if c.state != StateReady {
		return nil, errs.New(errs.InvalidState, errs.PhaseFinalize, fmt.Errorf("finalize called in state %s, not Ready", c.state))
	}
	return c.completed, nil
}

func (c *Initiator) abortInternal() {
	c.hs.Abort()
	if c.completed != nil {
		_ = c.completed.Encrypt.Destroy()
		_ = c.completed.Decrypt.Destroy()
	}
	metrics.HandshakesFailed.WithLabelValues("initiator", "aborted").Inc()
	metrics.ChannelsAborted.WithLabelValues(c.state.String()).Inc()
	metrics.ChannelsActive.Dec()
	c.state = StateAborted
}

// Abort idempotently tears down the channel, destroying all ephemeral
// handles. The static identity handle, externally owned, survives.
func (c *Initiator) Abort() {
	if c.state == StateAborted {
		return
	}
	c.abortInternal()
}
