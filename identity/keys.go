package identity

import (
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
)

// KeyType names the signing algorithm of a KeyPair held outside the
// vault: provisioned authority material (trust-context issuers) rather
// than a channel's own Noise-bound secrets, which always live in the
// vault.
type KeyType string

const (
	KeyTypeEd25519   KeyType = "Ed25519"
	KeyTypeSecp256k1 KeyType = "Secp256k1"
)

// ErrInvalidSignature indicates a signature failed verification against
// its claimed public key.
var ErrInvalidSignature = errors.New("identity: invalid signature")

// KeyPair is an algorithm-agnostic signing identity, used for
// provisioning trust-context authorities outside the per-channel
// vault (vault.Vault only models Noise's own ephemeral/static DH and
// Ed25519 identity secrets; a credential-issuing authority's key is
// external, long-lived material with no Noise role of its own).
type KeyPair interface {
	PublicKeyBytes() []byte
	Type() KeyType
	Sign(message []byte) ([]byte, error)
	Verify(message, signature []byte) error
	ID() string
}

func idFromPublicKey(pub []byte) string {
	sum := sha256.Sum256(pub)
	return hex.EncodeToString(sum[:8])
}

type ed25519KeyPair struct {
	priv ed25519.PrivateKey
	pub  ed25519.PublicKey
	id   string
}

// GenerateEd25519KeyPair mints a fresh Ed25519 authority key.
func GenerateEd25519KeyPair() (KeyPair, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("identity: generate ed25519 key: %w", err)
	}
	return &ed25519KeyPair{priv: priv, pub: pub, id: idFromPublicKey(pub)}, nil
}

func (kp *ed25519KeyPair) PublicKeyBytes() []byte { return append([]byte(nil), kp.pub...) }
func (kp *ed25519KeyPair) Type() KeyType          { return KeyTypeEd25519 }
func (kp *ed25519KeyPair) ID() string             { return kp.id }

func (kp *ed25519KeyPair) Sign(message []byte) ([]byte, error) {
	return ed25519.Sign(kp.priv, message), nil
}

func (kp *ed25519KeyPair) Verify(message, signature []byte) error {
	if !ed25519.Verify(kp.pub, message, signature) {
		return ErrInvalidSignature
	}
	return nil
}

// secp256k1KeyPair implements KeyPair for Secp256k1 authorities: ECDSA
// over the secp256k1 curve, SHA-256 message digest, fixed-width r||s
// signature encoding.
type secp256k1KeyPair struct {
	priv *secp256k1.PrivateKey
	pub  *secp256k1.PublicKey
	id   string
}

// GenerateSecp256k1KeyPair mints a fresh Secp256k1 authority key.
func GenerateSecp256k1KeyPair() (KeyPair, error) {
	priv, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		return nil, fmt.Errorf("identity: generate secp256k1 key: %w", err)
	}
	pub := priv.PubKey()
	return &secp256k1KeyPair{priv: priv, pub: pub, id: idFromPublicKey(pub.SerializeCompressed())}, nil
}

func (kp *secp256k1KeyPair) PublicKeyBytes() []byte { return kp.pub.SerializeCompressed() }
func (kp *secp256k1KeyPair) Type() KeyType          { return KeyTypeSecp256k1 }
func (kp *secp256k1KeyPair) ID() string             { return kp.id }

func (kp *secp256k1KeyPair) Sign(message []byte) ([]byte, error) {
	hash := sha256.Sum256(message)
	r, s, err := ecdsa.Sign(rand.Reader, kp.priv.ToECDSA(), hash[:])
	if err != nil {
		return nil, fmt.Errorf("identity: secp256k1 sign: %w", err)
	}
	return serializeRS(r, s), nil
}

func (kp *secp256k1KeyPair) Verify(message, signature []byte) error {
	hash := sha256.Sum256(message)
	r, s, err := deserializeRS(signature)
	if err != nil {
		return ErrInvalidSignature
	}
	if !ecdsa.Verify(kp.pub.ToECDSA(), hash[:], r, s) {
		return ErrInvalidSignature
	}
	return nil
}

func serializeRS(r, s *big.Int) []byte {
	rb, sb := r.Bytes(), s.Bytes()
	out := make([]byte, 64)
	copy(out[32-len(rb):32], rb)
	copy(out[64-len(sb):64], sb)
	return out
}

func deserializeRS(data []byte) (*big.Int, *big.Int, error) {
	if len(data) != 64 {
		return nil, nil, ErrInvalidSignature
	}
	return new(big.Int).SetBytes(data[:32]), new(big.Int).SetBytes(data[32:]), nil
}
