// Package errs defines the error taxonomy shared by every layer of the
// handshake engine (symmetric state, XX handshake, identity exchange,
// channel state machine, data-phase AEAD). A typed error carries a
// stable, machine-checkable code alongside a human message, so callers
// can errors.As to the kind rather than matching strings.
package errs

import "fmt"

// Kind is one of the handshake engine's fixed error kinds.
type Kind string

const (
	MessageLenMismatch Kind = "message_len_mismatch"
	InvalidState       Kind = "invalid_state"
	InternalVault      Kind = "internal_vault"
	VerificationFailed Kind = "verification_failed"
	TrustCheckFailed   Kind = "trust_check_failed"
	Timeout            Kind = "timeout"
)

// Phase names the step of the protocol in which an error occurred.
type Phase string

const (
	PhasePrologue   Phase = "prologue"
	PhaseMsg1       Phase = "msg1"
	PhaseMsg2       Phase = "msg2"
	PhaseMsg3       Phase = "msg3"
	PhaseIdentity   Phase = "identity"
	PhaseFinalize   Phase = "finalize"
	PhaseData       Phase = "data"
	PhaseMix        Phase = "mix"
)

// Error is the concrete error type returned across the engine. Callers
// use errors.As(&errs.Error{}) to recover Kind and Phase.
type Error struct {
	Kind  Kind
	Phase Phase
	Err   error
}

func New(kind Kind, phase Phase, err error) *Error {
	return &Error{Kind: kind, Phase: phase, Err: err}
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s at %s: %v", e.Kind, e.Phase, e.Err)
	}
	return fmt.Sprintf("%s at %s", e.Kind, e.Phase)
}

func (e *Error) Unwrap() error { return e.Err }

// Is allows errors.Is(err, &errs.Error{Kind: errs.MessageLenMismatch})
// style checks by comparing Kind when the target is also an *Error.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}
