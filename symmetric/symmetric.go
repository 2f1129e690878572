// Package symmetric implements the Noise symmetric state: the running
// transcript hash h, chaining key ck, cipher key k and nonce counter
// n, and the five operations that mutate them.
package symmetric

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/noisecore/xxcore/errs"
	"github.com/noisecore/xxcore/vault"
)

// State holds (h, ck, k, n) for one handshake. Not safe for concurrent
// use; a handshake is strictly sequential per spec.
type State struct {
	suite Suite
	v     vault.Vault

	h [32]byte

	ck    vault.Handle
	ckSet bool

	k    vault.Handle
	kSet bool

	n uint64
}

// New initializes a symmetric state for suite: h is set to the
// zero-padded protocol name, ck imports those same bytes as a buffer,
// then h is re-hashed (Noise's InitializeSymmetric followed by the
// empty-prologue MixHash).
func New(v vault.Vault, suite Suite) (*State, error) {
	name := suite.ProtocolName()
	ck, err := v.Import(vault.Attributes{Kind: vault.KindBuffer, Persistence: vault.Ephemeral, Length: 32}, name[:])
	if err != nil {
		return nil, errs.New(errs.InternalVault, errs.PhasePrologue, err)
	}
	s := &State{
		suite: suite,
		v:     v,
		h:     v.SHA256(name[:]),
		ck:    ck,
		ckSet: true,
	}
	return s, nil
}

// H returns the current transcript hash.
func (s *State) H() [32]byte { return s.h }

// MixHash folds data into the running transcript hash.
func (s *State) MixHash(data []byte) {
	buf := make([]byte, 0, 32+len(data))
	buf = append(buf, s.h[:]...)
	buf = append(buf, data...)
	s.h = s.v.SHA256(buf)
}

// MixKey re-derives (ck, k) from the current ck and the given input
// key material, destroying the previous ck and k, and resets n to 0.
// ikm is destroyed by the caller, not here — the caller (handshake
// layer) owns the ECDH output handle's lifetime.
func (s *State) MixKey(ikm vault.Handle) error {
	outs, err := s.v.HKDFSHA256(s.ck, &ikm, nil, []vault.Attributes{
		{Kind: vault.KindBuffer, Persistence: vault.Ephemeral, Length: 32},
		s.suite.CipherAttrs(),
	})
	if err != nil {
		return errs.New(errs.InternalVault, errs.PhaseMix, err)
	}
	oldCk, oldCkSet := s.ck, s.ckSet
	oldK, oldKSet := s.k, s.kSet
	s.ck, s.ckSet = outs[0], true
	s.k, s.kSet = outs[1], true
	s.n = 0
	if oldCkSet {
		_ = s.v.Destroy(oldCk)
	}
	if oldKSet {
		_ = s.v.Destroy(oldK)
	}
	return nil
}

// EncryptAndMixHash encrypts plaintext under k with AD = h at the
// current handshake nonce, mixes the ciphertext into h, and advances
// n. Fails with InvalidState if k has not yet been derived.
func (s *State) EncryptAndMixHash(plaintext []byte) ([]byte, error) {
	if !s.kSet {
		return nil, errs.New(errs.InvalidState, errs.PhaseMix, fmt.Errorf("encrypt_and_mix_hash before first mix_key"))
	}
	nonce, err := handshakeNonce(s.n)
	if err != nil {
		return nil, err
	}
	ct, err := s.v.AEADEncrypt(s.k, nonce, s.h[:], plaintext)
	if err != nil {
		return nil, errs.New(errs.InternalVault, errs.PhaseMix, err)
	}
	s.MixHash(ct)
	s.n++
	return ct, nil
}

// DecryptAndMixHash decrypts ciphertext under k with AD = h, mixes the
// *ciphertext* (not the plaintext) into h, and advances n. The
// ciphertext-not-plaintext mix ordering is protocol-critical.
func (s *State) DecryptAndMixHash(ciphertext []byte) ([]byte, error) {
	if !s.kSet {
		return nil, errs.New(errs.InvalidState, errs.PhaseMix, fmt.Errorf("decrypt_and_mix_hash before first mix_key"))
	}
	nonce, err := handshakeNonce(s.n)
	if err != nil {
		return nil, err
	}
	pt, err := s.v.AEADDecrypt(s.k, nonce, s.h[:], ciphertext)
	if err != nil {
		return nil, errs.New(errs.InternalVault, errs.PhaseMix, err)
	}
	s.MixHash(ciphertext)
	s.n++
	return pt, nil
}

// Split derives the two terminal session keys from ck via HKDF with
// empty ikm and info, without destroying ck or k — the caller discards
// the whole State after Split.
func (s *State) Split() (k1, k2 vault.Handle, err error) {
	outs, err := s.v.HKDFSHA256(s.ck, nil, nil, []vault.Attributes{
		s.suite.CipherAttrs(),
		s.suite.CipherAttrs(),
	})
	if err != nil {
		return vault.Handle{}, vault.Handle{}, errs.New(errs.InternalVault, errs.PhaseFinalize, err)
	}
	return outs[0], outs[1], nil
}

// Destroy releases the ck and k handles, used on handshake abort.
func (s *State) Destroy() {
	if s.ckSet {
		_ = s.v.Destroy(s.ck)
		s.ckSet = false
	}
	if s.kSet {
		_ = s.v.Destroy(s.k)
		s.kSet = false
	}
}

// handshakeNonce builds the handshake-phase AEAD nonce: 10 zero bytes
// followed by a big-endian uint16 counter. The 10-byte prefix is
// required for wire compatibility.
func handshakeNonce(n uint64) ([12]byte, error) {
	var out [12]byte
	if n > math.MaxUint16 {
		return out, errs.New(errs.InternalVault, errs.PhaseMix, fmt.Errorf("handshake nonce counter overflow: %d", n))
	}
	binary.BigEndian.PutUint16(out[10:], uint16(n))
	return out, nil
}
