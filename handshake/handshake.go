// Package handshake implements the Noise XX three-message pattern on
// top of the symmetric and vault packages: wire encode/decode for
// messages 1-3, ephemeral/static key ownership, and finalize into a
// CompletedKeyExchange.
package handshake

import (
	"fmt"

	"github.com/noisecore/xxcore/errs"
	"github.com/noisecore/xxcore/symmetric"
	"github.com/noisecore/xxcore/vault"
)

// CompletedKeyExchange is the terminal output of a successful
// handshake: the transcript hash for identity-signature binding, the
// two split session keys, and the peer's static public key.
type CompletedKeyExchange struct {
	TranscriptHash      [32]byte
	EncryptKey          vault.Handle
	DecryptKey          vault.Handle
	LocalStaticIdentity vault.Handle
	RemoteStaticPublic  []byte
}

type initiatorState int

const (
	iEncodeMsg1 initiatorState = iota
	iDecodeMsg2
	iEncodeMsg3
	iDone
)

type responderState int

const (
	rDecodeMsg1 responderState = iota
	rEncodeMsg2
	rDecodeMsg3
	rDone
)

// keypair holds the handshake-local DH keys, shared by Initiator and
// Responder.
type keypair struct {
	v   vault.Vault
	sym *symmetric.State

	static    vault.Handle
	staticPub []byte

	eph    vault.Handle
	ephPub []byte

	remoteEphPub    []byte
	remoteStaticPub []byte
}

func newKeypair(v vault.Vault, suite symmetric.Suite, staticKey, ephemeralKey *vault.Handle, prologue []byte) (*keypair, error) {
	sym, err := symmetric.New(v, suite)
	if err != nil {
		return nil, err
	}
	// symmetric.New already applies the empty-prologue MixHash, so only a
	// non-empty application prologue is mixed in here.
	if len(prologue) > 0 {
		sym.MixHash(prologue)
	}

	kp := &keypair{v: v, sym: sym}

	if staticKey != nil {
		kp.static = *staticKey
	} else {
		h, err := v.Generate(vault.Attributes{Kind: suite.DHKind(), Persistence: vault.Persistent, Length: 32})
		if err != nil {
			return nil, errs.New(errs.InternalVault, errs.PhasePrologue, err)
		}
		kp.static = h
	}
	staticPub, err := v.PublicKeyOf(kp.static)
	if err != nil {
		return nil, errs.New(errs.InternalVault, errs.PhasePrologue, err)
	}
	kp.staticPub = staticPub

	if ephemeralKey != nil {
		kp.eph = *ephemeralKey
	} else {
		h, err := v.Generate(vault.Attributes{Kind: suite.DHKind(), Persistence: vault.Ephemeral, Length: 32})
		if err != nil {
			return nil, errs.New(errs.InternalVault, errs.PhasePrologue, err)
		}
		kp.eph = h
	}
	ephPub, err := v.PublicKeyOf(kp.eph)
	if err != nil {
		return nil, errs.New(errs.InternalVault, errs.PhasePrologue, err)
	}
	kp.ephPub = ephPub

	return kp, nil
}

// dhAndMixKey performs ECDH(secret, peerPublic), mixes the result into
// the symmetric state, and destroys the ephemeral shared-secret handle
// once consumed: every derived secret is destroyed at the point it is
// subsumed by mix_key.
func (kp *keypair) dhAndMixKey(secret vault.Handle, peerPublic []byte) error {
	shared, err := kp.v.ECDiffieHellman(secret, peerPublic)
	if err != nil {
		return errs.New(errs.InternalVault, errs.PhaseMix, err)
	}
	defer kp.v.Destroy(shared)
	return kp.sym.MixKey(shared)
}

// abort destroys all handshake-owned handles. The static handle
// survives (it is externally owned / ref-counted).
func (kp *keypair) abort() {
	kp.sym.Destroy()
	_ = kp.v.Destroy(kp.eph)
}

// Initiator drives the XX pattern's initiator role.
type Initiator struct {
	kp    *keypair
	suite symmetric.Suite
	state initiatorState
}

// NewInitiator begins a handshake as the initiator. staticKey may be
// nil to have the vault generate a fresh static identity key.
func NewInitiator(v vault.Vault, suite symmetric.Suite, staticKey *vault.Handle, prologue []byte) (*Initiator, error) {
	return NewInitiatorWithEphemeral(v, suite, staticKey, nil, prologue)
}

// NewInitiatorWithEphemeral is NewInitiator with an explicit ephemeral
// key, used to reproduce the normative wire test vectors deterministically.
func NewInitiatorWithEphemeral(v vault.Vault, suite symmetric.Suite, staticKey, ephemeralKey *vault.Handle, prologue []byte) (*Initiator, error) {
	kp, err := newKeypair(v, suite, staticKey, ephemeralKey, prologue)
	if err != nil {
		return nil, err
	}
	return &Initiator{kp: kp, suite: suite, state: iEncodeMsg1}, nil
}

// EncodeMessage1 produces msg1 = e || payload (cleartext).
func (i *Initiator) EncodeMessage1(payload []byte) ([]byte, error) {
	if i.state != iEncodeMsg1 {
		return nil, errs.New(errs.InvalidState, errs.PhaseMsg1, fmt.Errorf("encode_message_1 called out of order"))
	}
	i.kp.sym.MixHash(i.kp.ephPub)
	i.kp.sym.MixHash(payload)
	out := make([]byte, 0, len(i.kp.ephPub)+len(payload))
	out = append(out, i.kp.ephPub...)
	out = append(out, payload...)
	i.state = iDecodeMsg2
	return out, nil
}

// DecodeMessage2 parses msg2 = e || c1(s) || c2(payload), storing the
// responder's static public key, and returns the decrypted payload.
func (i *Initiator) DecodeMessage2(msg []byte) ([]byte, error) {
	if i.state != iDecodeMsg2 {
		return nil, errs.New(errs.InvalidState, errs.PhaseMsg2, fmt.Errorf("decode_message_2 called out of order"))
	}
	k := i.suite.PublicKeySize()
	minLen := 2*k + 16
	if len(msg) < minLen {
		return nil, errs.New(errs.MessageLenMismatch, errs.PhaseMsg2, fmt.Errorf("msg2 too short: got %d want >= %d", len(msg), minLen))
	}
	re := msg[:k]
	c1 := msg[k : k+k+16]
	c2 := msg[k+k+16:]

	i.kp.sym.MixHash(re)
	i.kp.remoteEphPub = re

	if err := i.kp.dhAndMixKey(i.kp.eph, re); err != nil {
		return nil, err
	}
	rs, err := i.kp.sym.DecryptAndMixHash(c1)
	if err != nil {
		return nil, errs.New(errs.InternalVault, errs.PhaseMsg2, err)
	}
	i.kp.remoteStaticPub = rs

	if err := i.kp.dhAndMixKey(i.kp.eph, rs); err != nil {
		return nil, err
	}
	payload, err := i.kp.sym.DecryptAndMixHash(c2)
	if err != nil {
		return nil, errs.New(errs.InternalVault, errs.PhaseMsg2, err)
	}
	i.state = iEncodeMsg3
	return payload, nil
}

// EncodeMessage3 produces msg3 = c1(s) || c2(payload).
func (i *Initiator) EncodeMessage3(payload []byte) ([]byte, error) {
	if i.state != iEncodeMsg3 {
		return nil, errs.New(errs.InvalidState, errs.PhaseMsg3, fmt.Errorf("encode_message_3 called out of order"))
	}
	c1, err := i.kp.sym.EncryptAndMixHash(i.kp.staticPub)
	if err != nil {
		return nil, errs.New(errs.InternalVault, errs.PhaseMsg3, err)
	}
	if err := i.kp.dhAndMixKey(i.kp.static, i.kp.remoteEphPub); err != nil {
		return nil, err
	}
	c2, err := i.kp.sym.EncryptAndMixHash(payload)
	if err != nil {
		return nil, errs.New(errs.InternalVault, errs.PhaseMsg3, err)
	}
	i.state = iDone
	out := make([]byte, 0, len(c1)+len(c2))
	out = append(out, c1...)
	out = append(out, c2...)
	return out, nil
}

// IsComplete reports whether the three-message pattern has run.
func (i *Initiator) IsComplete() bool { return i.state == iDone }

// RemoteStaticPublic returns the peer's static public key, valid once
// DecodeMessage2 has run.
func (i *Initiator) RemoteStaticPublic() []byte { return i.kp.remoteStaticPub }

// Finalize splits the symmetric state into the initiator's directional
// keys: encrypt_key = k2, decrypt_key = k1. This asymmetric assignment
// is mandatory; swapping it silently produces a dead channel.
func (i *Initiator) Finalize() (*CompletedKeyExchange, error) {
	if i.state != iDone {
		return nil, errs.New(errs.InvalidState, errs.PhaseFinalize, fmt.Errorf("finalize before message 3"))
	}
	k1, k2, err := i.kp.sym.Split()
	if err != nil {
		return nil, err
	}
	out := &CompletedKeyExchange{
		TranscriptHash:      i.kp.sym.H(),
		EncryptKey:          k2,
		DecryptKey:          k1,
		LocalStaticIdentity: i.kp.static,
		RemoteStaticPublic:  i.kp.remoteStaticPub,
	}
	i.kp.sym.Destroy()
	_ = i.kp.v.Destroy(i.kp.eph)
	return out, nil
}

// Abort destroys all handshake-owned ephemeral state. Safe to call
// multiple times.
func (i *Initiator) Abort() {
	i.kp.abort()
	i.state = iDone
}

// Responder drives the XX pattern's responder role.
type Responder struct {
	kp    *keypair
	suite symmetric.Suite
	state responderState
}

// NewResponder begins a handshake as the responder.
func NewResponder(v vault.Vault, suite symmetric.Suite, staticKey *vault.Handle, prologue []byte) (*Responder, error) {
	return NewResponderWithEphemeral(v, suite, staticKey, nil, prologue)
}

// NewResponderWithEphemeral is NewResponder with an explicit ephemeral
// key, used to reproduce the normative wire test vectors deterministically.
func NewResponderWithEphemeral(v vault.Vault, suite symmetric.Suite, staticKey, ephemeralKey *vault.Handle, prologue []byte) (*Responder, error) {
	kp, err := newKeypair(v, suite, staticKey, ephemeralKey, prologue)
	if err != nil {
		return nil, err
	}
	return &Responder{kp: kp, suite: suite, state: rDecodeMsg1}, nil
}

// DecodeMessage1 parses msg1 = e || payload (cleartext) and returns
// the payload.
func (r *Responder) DecodeMessage1(msg []byte) ([]byte, error) {
	if r.state != rDecodeMsg1 {
		return nil, errs.New(errs.InvalidState, errs.PhaseMsg1, fmt.Errorf("decode_message_1 called out of order"))
	}
	k := r.suite.PublicKeySize()
	if len(msg) < k {
		return nil, errs.New(errs.MessageLenMismatch, errs.PhaseMsg1, fmt.Errorf("msg1 too short: got %d want >= %d", len(msg), k))
	}
	re := msg[:k]
	payload := msg[k:]
	r.kp.sym.MixHash(re)
	r.kp.remoteEphPub = re
	r.kp.sym.MixHash(payload)
	r.state = rEncodeMsg2
	return payload, nil
}

// EncodeMessage2 produces msg2 = e || c1(s) || c2(payload).
func (r *Responder) EncodeMessage2(payload []byte) ([]byte, error) {
	if r.state != rEncodeMsg2 {
		return nil, errs.New(errs.InvalidState, errs.PhaseMsg2, fmt.Errorf("encode_message_2 called out of order"))
	}
	r.kp.sym.MixHash(r.kp.ephPub)

	if err := r.kp.dhAndMixKey(r.kp.eph, r.kp.remoteEphPub); err != nil {
		return nil, err
	}
	c1, err := r.kp.sym.EncryptAndMixHash(r.kp.staticPub)
	if err != nil {
		return nil, errs.New(errs.InternalVault, errs.PhaseMsg2, err)
	}
	if err := r.kp.dhAndMixKey(r.kp.static, r.kp.remoteEphPub); err != nil {
		return nil, err
	}
	c2, err := r.kp.sym.EncryptAndMixHash(payload)
	if err != nil {
		return nil, errs.New(errs.InternalVault, errs.PhaseMsg2, err)
	}
	r.state = rDecodeMsg3
	out := make([]byte, 0, len(r.kp.ephPub)+len(c1)+len(c2))
	out = append(out, r.kp.ephPub...)
	out = append(out, c1...)
	out = append(out, c2...)
	return out, nil
}

// DecodeMessage3 parses msg3 = c1(s) || c2(payload), stores the
// initiator's static public key, and returns the decrypted payload.
func (r *Responder) DecodeMessage3(msg []byte) ([]byte, error) {
	if r.state != rDecodeMsg3 {
		return nil, errs.New(errs.InvalidState, errs.PhaseMsg3, fmt.Errorf("decode_message_3 called out of order"))
	}
	k := r.suite.PublicKeySize()
	minLen := k + 16
	if len(msg) < minLen {
		return nil, errs.New(errs.MessageLenMismatch, errs.PhaseMsg3, fmt.Errorf("msg3 too short: got %d want >= %d", len(msg), minLen))
	}
	c1 := msg[:minLen]
	c2 := msg[minLen:]

	rs, err := r.kp.sym.DecryptAndMixHash(c1)
	if err != nil {
		return nil, errs.New(errs.InternalVault, errs.PhaseMsg3, err)
	}
	r.kp.remoteStaticPub = rs

	if err := r.kp.dhAndMixKey(r.kp.eph, r.kp.remoteStaticPub); err != nil {
		return nil, err
	}
	payload, err := r.kp.sym.DecryptAndMixHash(c2)
	if err != nil {
		return nil, errs.New(errs.InternalVault, errs.PhaseMsg3, err)
	}
	r.state = rDone
	return payload, nil
}

// IsComplete reports whether the three-message pattern has run.
func (r *Responder) IsComplete() bool { return r.state == rDone }

// RemoteStaticPublic returns the peer's static public key, valid once
// DecodeMessage3 has run.
func (r *Responder) RemoteStaticPublic() []byte { return r.kp.remoteStaticPub }

// Finalize splits the symmetric state into the responder's directional
// keys: encrypt_key = k1, decrypt_key = k2 (mirrored from the
// initiator's assignment).
func (r *Responder) Finalize() (*CompletedKeyExchange, error) {
	if r.state != rDone {
		return nil, errs.New(errs.InvalidState, errs.PhaseFinalize, fmt.Errorf("finalize before message 3"))
	}
	k1, k2, err := r.kp.sym.Split()
	if err != nil {
		return nil, err
	}
	out := &CompletedKeyExchange{
		TranscriptHash:      r.kp.sym.H(),
		EncryptKey:          k1,
		DecryptKey:          k2,
		LocalStaticIdentity: r.kp.static,
		RemoteStaticPublic:  r.kp.remoteStaticPub,
	}
	r.kp.sym.Destroy()
	_ = r.kp.v.Destroy(r.kp.eph)
	return out, nil
}

// Abort destroys all handshake-owned ephemeral state. Safe to call
// multiple times.
func (r *Responder) Abort() {
	r.kp.abort()
	r.state = rDone
}
