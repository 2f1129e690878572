// Package identity implements the identity-exchange layer that rides
// on top of a completed XX handshake: long-term Ed25519/secp256k1
// identities, the IdentityAndCredentials wire frame, and trust
// evaluation.
package identity

import (
	"crypto/ed25519"
	"encoding/hex"
	"fmt"

	"github.com/noisecore/xxcore/vault"
)

// ID identifies an identity: hex(sha256(public_key))[:16].
type ID string

func deriveID(v vault.Vault, pub []byte) ID {
	sum := v.SHA256(pub)
	return ID(hex.EncodeToString(sum[:])[:16])
}

// Identity is the minimal opaque surface every identity kind exposes:
// export, verify_signature, and an identifier accessor.
type Identity interface {
	ID() ID
	Export() []byte
	VerifySignature(sig, data []byte) bool
}

// LocalIdentity is a vault-backed Ed25519 identity whose signing key
// never leaves the vault except for the brief export a JWT library
// requires (see credential.go).
type LocalIdentity struct {
	v      vault.Vault
	handle vault.Handle
	pub    ed25519.PublicKey
	id     ID
}

// NewLocalIdentity generates a fresh Ed25519 identity key in v.
func NewLocalIdentity(v vault.Vault) (*LocalIdentity, error) {
	h, err := v.Generate(vault.Attributes{Kind: vault.KindBuffer, Persistence: vault.Persistent, Length: ed25519.SeedSize})
	if err != nil {
		return nil, fmt.Errorf("identity: generate local key: %w", err)
	}
	return newLocalIdentityFromHandle(v, h)
}

// ImportLocalIdentity installs an existing Ed25519 seed as the local
// identity key.
func ImportLocalIdentity(v vault.Vault, seed []byte) (*LocalIdentity, error) {
	h, err := v.Import(vault.Attributes{Kind: vault.KindBuffer, Persistence: vault.Persistent, Length: ed25519.SeedSize}, seed)
	if err != nil {
		return nil, fmt.Errorf("identity: import local key: %w", err)
	}
	return newLocalIdentityFromHandle(v, h)
}

func newLocalIdentityFromHandle(v vault.Vault, h vault.Handle) (*LocalIdentity, error) {
	pub, err := v.PublicKeyOf(h)
	if err != nil {
		return nil, fmt.Errorf("identity: public key: %w", err)
	}
	return &LocalIdentity{v: v, handle: h, pub: pub, id: deriveID(v, pub)}, nil
}

func (l *LocalIdentity) ID() ID            { return l.id }
func (l *LocalIdentity) Export() []byte    { return append([]byte(nil), l.pub...) }
func (l *LocalIdentity) Handle() vault.Handle { return l.handle }

// Sign produces a signature over data (in this engine, always the
// handshake's final transcript hash) using the vault-held key.
func (l *LocalIdentity) Sign(data []byte) ([]byte, error) {
	return l.v.Sign(l.handle, data)
}

// VerifySignature lets a LocalIdentity also satisfy Identity.
func (l *LocalIdentity) VerifySignature(sig, data []byte) bool {
	return ed25519.Verify(l.pub, data, sig)
}

// RemoteIdentity is a peer's identity as parsed off the wire: just a
// public key and its derived ID.
type RemoteIdentity struct {
	pub ed25519.PublicKey
	id  ID
}

// ParseRemoteIdentity validates and wraps a peer's raw Ed25519 public
// key bytes.
func ParseRemoteIdentity(v vault.Vault, raw []byte) (*RemoteIdentity, error) {
	if len(raw) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("identity: expected %d-byte public key, got %d", ed25519.PublicKeySize, len(raw))
	}
	pub := ed25519.PublicKey(append([]byte(nil), raw...))
	return &RemoteIdentity{pub: pub, id: deriveID(v, pub)}, nil
}

func (r *RemoteIdentity) ID() ID         { return r.id }
func (r *RemoteIdentity) Export() []byte { return append([]byte(nil), r.pub...) }
func (r *RemoteIdentity) VerifySignature(sig, data []byte) bool {
	return ed25519.Verify(r.pub, data, sig)
}

var (
	_ Identity = (*LocalIdentity)(nil)
	_ Identity = (*RemoteIdentity)(nil)
)
