// Package channel drives a completed XX handshake and its layered
// identity exchange through to Ready, emitting a completion event and
// handing off the two split session keys to the data phase. Expressed
// as direct step-by-step methods rather than an actor/router, since
// message-bus/address-table dispatch is out of scope transport
// framing.
package channel

import (
	"bytes"
	"fmt"
	"time"

	"github.com/noisecore/xxcore/datachannel"
	"github.com/noisecore/xxcore/errs"
	"github.com/noisecore/xxcore/identity"
	"github.com/noisecore/xxcore/symmetric"
	"github.com/noisecore/xxcore/vault"
)

// suiteLabel renders a cipher suite as a stable metrics label, derived
// from its wire protocol name rather than the Go int constant.
func suiteLabel(s symmetric.Suite) string {
	name := s.ProtocolName()
	return string(bytes.TrimRight(name[:], "\x00"))
}

// State names the step of the channel's handshake/identity state
// machine the channel is in. Initiator and Responder each follow
// their own named sequence; both terminate in Ready.
type State int

const (
	StateEncodeMsg1 State = iota
	StateDecodeMsg1
	StateDecodeMsg2
	StateEncodeMsg2
	StateEncodeMsg3
	StateDecodeMsg3
	StateAwaitIdentity
	StateExchangeIdentity
	StateReady
	StateAborted
)

func (s State) String() string {
	switch s {
	case StateEncodeMsg1:
		return "EncodeMsg1"
	case StateDecodeMsg1:
		return "DecodeMsg1"
	case StateDecodeMsg2:
		return "DecodeMsg2"
	case StateEncodeMsg2:
		return "EncodeMsg2"
	case StateEncodeMsg3:
		return "EncodeMsg3"
	case StateDecodeMsg3:
		return "DecodeMsg3"
	case StateAwaitIdentity:
		return "AwaitIdentity"
	case StateExchangeIdentity:
		return "ExchangeIdentity"
	case StateReady:
		return "Ready"
	case StateAborted:
		return "Aborted"
	default:
		return "unknown"
	}
}

// CompletionEvent is fired once, when a channel transitions into
// Ready.
type CompletionEvent struct {
	PeerIdentityID identity.ID
	EncryptHandle  vault.Handle
	DecryptHandle  vault.Handle
	TranscriptHash [32]byte
}

// CompletionFunc receives the one-time completion event.
type CompletionFunc func(CompletionEvent)

// Completed is what Finalize returns once the channel is Ready: the
// peer's verified identity plus the two data-phase ciphers (one per
// direction) holding the split keys and continuing the same nonce
// counters the identity frames advanced.
type Completed struct {
	PeerIdentityID identity.ID
	Credential     *identity.Credential
	TranscriptHash [32]byte
	Encrypt        *datachannel.Cipher
	Decrypt        *datachannel.Cipher
}

func checkDeadline(deadline time.Time) error {
	if !deadline.IsZero() && time.Now().After(deadline) {
		return errs.New(errs.Timeout, errs.PhaseIdentity, fmt.Errorf("channel did not reach Ready before the configured deadline"))
	}
	return nil
}

// Options configures the identity phase of a channel; Suite and
// Prologue are consumed when constructing the underlying handshake.
type Options struct {
	Suite             symmetric.Suite
	Prologue          []byte
	Local             *identity.LocalIdentity
	Credential        *identity.Credential
	TrustContext      *identity.TrustContext
	TrustPolicy       identity.TrustPolicy
	HandshakeTimeout  time.Duration
}

func phaseFor(s State) errs.Phase {
	switch s {
	case StateEncodeMsg1, StateDecodeMsg1:
		return errs.PhaseMsg1
	case StateDecodeMsg2, StateEncodeMsg2:
		return errs.PhaseMsg2
	case StateEncodeMsg3, StateDecodeMsg3:
		return errs.PhaseMsg3
	case StateAwaitIdentity, StateExchangeIdentity:
		return errs.PhaseIdentity
	default:
		return errs.PhaseFinalize
	}
}

func (o Options) deadline() time.Time {
	if o.HandshakeTimeout <= 0 {
		return time.Time{}
	}
	return time.Now().Add(o.HandshakeTimeout)
}
