// Package vault implements an opaque-handle abstraction over the
// primitive cryptographic operations the Noise XX engine needs:
// generation, import, export, destruction, ECDH, AEAD, HKDF, and
// signing. Raw key bytes leave the vault only through Export.
package vault

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/ecdh"
	"crypto/ed25519"
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"
	"sync"

	"golang.org/x/crypto/hkdf"
)

// Kind identifies the cryptographic type of a secret held by the vault.
type Kind int

const (
	KindX25519 Kind = iota
	KindP256
	KindAES128
	KindAES256
	KindBuffer
)

func (k Kind) String() string {
	switch k {
	case KindX25519:
		return "X25519"
	case KindP256:
		return "P256"
	case KindAES128:
		return "AES128"
	case KindAES256:
		return "AES256"
	case KindBuffer:
		return "Buffer"
	default:
		return "unknown"
	}
}

// Persistence marks whether a secret survives past the handshake.
type Persistence int

const (
	Ephemeral Persistence = iota
	Persistent
)

// Attributes describes a secret's shape. The (Kind, Length) pairs the
// vault accepts are restricted to the Noise engine's actual needs.
type Attributes struct {
	Kind        Kind
	Persistence Persistence
	Length      int
}

func (a Attributes) validate() error {
	switch a.Kind {
	case KindX25519, KindP256:
		if a.Length != 32 {
			return fmt.Errorf("vault: %s secrets must be 32 bytes, got %d", a.Kind, a.Length)
		}
	case KindAES128:
		if a.Length != 16 {
			return fmt.Errorf("vault: AES128 secrets must be 16 bytes, got %d", a.Length)
		}
	case KindAES256:
		if a.Length != 32 {
			return fmt.Errorf("vault: AES256 secrets must be 32 bytes, got %d", a.Length)
		}
	case KindBuffer:
		if a.Length <= 0 {
			return fmt.Errorf("vault: buffer length must be positive, got %d", a.Length)
		}
	default:
		return fmt.Errorf("vault: unknown kind %v", a.Kind)
	}
	return nil
}

// Handle is an opaque reference to a secret. The zero Handle is never
// valid; Handles are minted only by a Vault.
type Handle struct {
	id uint64
}

func (h Handle) IsZero() bool { return h.id == 0 }

type entry struct {
	attrs    Attributes
	material []byte
	refs     int
}

// Vault is the capability surface the handshake, identity and
// data-channel layers are built against. A single Vault may be shared
// across many channels; all methods are safe for concurrent use.
type Vault interface {
	Generate(attrs Attributes) (Handle, error)
	Import(attrs Attributes, material []byte) (Handle, error)
	Export(h Handle) ([]byte, error)
	Destroy(h Handle) error
	Retain(h Handle) error
	PublicKeyOf(h Handle) ([]byte, error)
	SHA256(data []byte) [32]byte
	HKDFSHA256(salt Handle, ikm *Handle, info []byte, outAttrs []Attributes) ([]Handle, error)
	ECDiffieHellman(secret Handle, peerPublic []byte) (Handle, error)
	AEADEncrypt(key Handle, nonce [12]byte, ad, plaintext []byte) ([]byte, error)
	AEADDecrypt(key Handle, nonce [12]byte, ad, ciphertext []byte) ([]byte, error)
	Sign(key Handle, data []byte) ([]byte, error)
	Verify(publicKey, data, sig []byte) (bool, error)
	Stats() (liveEphemeral, livePersistent int)
}

// SoftwareVault is an in-memory Vault implementation: a map of ID'd
// entries behind an RWMutex, with explicit destroy on key removal.
type SoftwareVault struct {
	mu      sync.RWMutex
	entries map[uint64]*entry
	nextID  uint64
}

// New returns an empty SoftwareVault.
func New() *SoftwareVault {
	return &SoftwareVault{entries: make(map[uint64]*entry)}
}

var _ Vault = (*SoftwareVault)(nil)

func (v *SoftwareVault) insert(attrs Attributes, material []byte) Handle {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.nextID++
	id := v.nextID
	v.entries[id] = &entry{attrs: attrs, material: material, refs: 1}
	return Handle{id: id}
}

func (v *SoftwareVault) lookup(h Handle) (*entry, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	e, ok := v.entries[h.id]
	if !ok {
		return nil, fmt.Errorf("vault: handle %d not found", h.id)
	}
	return e, nil
}

// Generate creates a new secret of the requested shape using the
// system CSPRNG.
func (v *SoftwareVault) Generate(attrs Attributes) (Handle, error) {
	if err := attrs.validate(); err != nil {
		return Handle{}, err
	}
	switch attrs.Kind {
	case KindX25519:
		priv, err := ecdh.X25519().GenerateKey(rand.Reader)
		if err != nil {
			return Handle{}, fmt.Errorf("vault: generate x25519: %w", err)
		}
		return v.insert(attrs, priv.Bytes()), nil
	case KindP256:
		priv, err := ecdh.P256().GenerateKey(rand.Reader)
		if err != nil {
			return Handle{}, fmt.Errorf("vault: generate p256: %w", err)
		}
		return v.insert(attrs, priv.Bytes()), nil
	default:
		buf := make([]byte, attrs.Length)
		if _, err := io.ReadFull(rand.Reader, buf); err != nil {
			return Handle{}, fmt.Errorf("vault: generate random material: %w", err)
		}
		return v.insert(attrs, buf), nil
	}
}

// Import installs caller-supplied key material under the given
// attributes.
func (v *SoftwareVault) Import(attrs Attributes, material []byte) (Handle, error) {
	if err := attrs.validate(); err != nil {
		return Handle{}, err
	}
	if len(material) != attrs.Length {
		return Handle{}, fmt.Errorf("vault: import length mismatch: want %d got %d", attrs.Length, len(material))
	}
	buf := make([]byte, len(material))
	copy(buf, material)
	return v.insert(attrs, buf), nil
}

// Export returns a copy of the raw secret bytes.
func (v *SoftwareVault) Export(h Handle) ([]byte, error) {
	e, err := v.lookup(h)
	if err != nil {
		return nil, err
	}
	v.mu.RLock()
	defer v.mu.RUnlock()
	out := make([]byte, len(e.material))
	copy(out, e.material)
	return out, nil
}

// Retain increments the reference count of a handle, modeling
// shared ownership of persistent secrets (e.g. a static identity key
// referenced by several channels).
func (v *SoftwareVault) Retain(h Handle) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	e, ok := v.entries[h.id]
	if !ok {
		return fmt.Errorf("vault: handle %d not found", h.id)
	}
	e.refs++
	return nil
}

// Destroy zeroes and removes a secret, decrementing its reference
// count first. The secret is only actually erased once the count
// reaches zero.
func (v *SoftwareVault) Destroy(h Handle) error {
	if h.IsZero() {
		return nil
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	e, ok := v.entries[h.id]
	if !ok {
		return nil
	}
	e.refs--
	if e.refs > 0 {
		return nil
	}
	for i := range e.material {
		e.material[i] = 0
	}
	delete(v.entries, h.id)
	return nil
}

// PublicKeyOf derives the public key for an asymmetric secret. Buffer
// secrets of length 32 are treated as Ed25519 seeds, the convention
// the identity package relies on for signing keys.
func (v *SoftwareVault) PublicKeyOf(h Handle) ([]byte, error) {
	e, err := v.lookup(h)
	if err != nil {
		return nil, err
	}
	v.mu.RLock()
	material := append([]byte(nil), e.material...)
	kind := e.attrs.Kind
	v.mu.RUnlock()

	switch kind {
	case KindX25519:
		priv, err := ecdh.X25519().NewPrivateKey(material)
		if err != nil {
			return nil, fmt.Errorf("vault: public key of x25519: %w", err)
		}
		return priv.PublicKey().Bytes(), nil
	case KindP256:
		priv, err := ecdh.P256().NewPrivateKey(material)
		if err != nil {
			return nil, fmt.Errorf("vault: public key of p256: %w", err)
		}
		return priv.PublicKey().Bytes(), nil
	case KindBuffer:
		if len(material) == ed25519.SeedSize {
			priv := ed25519.NewKeyFromSeed(material)
			return priv.Public().(ed25519.PublicKey), nil
		}
		return nil, fmt.Errorf("vault: no public key for buffer of length %d", len(material))
	default:
		return nil, fmt.Errorf("vault: kind %s has no public key", kind)
	}
}

// SHA256 hashes data. Not handle-based since the engine only ever
// hashes already-public bytes (the transcript).
func (v *SoftwareVault) SHA256(data []byte) [32]byte {
	return sha256.Sum256(data)
}

// HKDFSHA256 derives len(outAttrs) secrets from consecutive 32-byte
// slices of HKDF-SHA256 expand output, salted by salt and keyed by the
// (optional) ikm handle.
func (v *SoftwareVault) HKDFSHA256(salt Handle, ikm *Handle, info []byte, outAttrs []Attributes) ([]Handle, error) {
	saltBytes, err := v.Export(salt)
	if err != nil {
		return nil, fmt.Errorf("vault: hkdf salt: %w", err)
	}
	var ikmBytes []byte
	if ikm != nil {
		ikmBytes, err = v.Export(*ikm)
		if err != nil {
			return nil, fmt.Errorf("vault: hkdf ikm: %w", err)
		}
	}
	for _, a := range outAttrs {
		if a.Length > 32 {
			return nil, fmt.Errorf("vault: hkdf output attribute length %d exceeds 32", a.Length)
		}
	}

	r := hkdf.New(sha256.New, ikmBytes, saltBytes, info)
	out := make([]Handle, 0, len(outAttrs))
	for _, a := range outAttrs {
		slice := make([]byte, 32)
		if _, err := io.ReadFull(r, slice); err != nil {
			return nil, fmt.Errorf("vault: hkdf expand: %w", err)
		}
		h, err := v.Import(a, slice[:a.Length])
		if err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, nil
}

// ECDiffieHellman performs a Diffie-Hellman exchange between a local
// secret handle and a peer's raw public key, returning the shared
// secret as a 32-byte buffer handle.
func (v *SoftwareVault) ECDiffieHellman(secret Handle, peerPublic []byte) (Handle, error) {
	e, err := v.lookup(secret)
	if err != nil {
		return Handle{}, err
	}
	v.mu.RLock()
	material := append([]byte(nil), e.material...)
	kind := e.attrs.Kind
	v.mu.RUnlock()

	var curve ecdh.Curve
	switch kind {
	case KindX25519:
		curve = ecdh.X25519()
	case KindP256:
		curve = ecdh.P256()
	default:
		return Handle{}, fmt.Errorf("vault: ecdh on non-DH kind %s", kind)
	}

	priv, err := curve.NewPrivateKey(material)
	if err != nil {
		return Handle{}, fmt.Errorf("vault: ecdh private key: %w", err)
	}
	pub, err := curve.NewPublicKey(peerPublic)
	if err != nil {
		return Handle{}, fmt.Errorf("vault: ecdh peer public key: %w", err)
	}
	shared, err := priv.ECDH(pub)
	if err != nil {
		return Handle{}, fmt.Errorf("vault: ecdh: %w", err)
	}
	return v.insert(Attributes{Kind: KindBuffer, Persistence: Ephemeral, Length: len(shared)}, shared), nil
}

func aeadFor(kind Kind, key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("vault: aes cipher: %w", err)
	}
	return cipher.NewGCM(block)
}

// AEADEncrypt encrypts plaintext under key with the given 12-byte
// nonce and associated data, returning ciphertext||tag.
func (v *SoftwareVault) AEADEncrypt(key Handle, nonce [12]byte, ad, plaintext []byte) ([]byte, error) {
	e, err := v.lookup(key)
	if err != nil {
		return nil, err
	}
	v.mu.RLock()
	material := append([]byte(nil), e.material...)
	kind := e.attrs.Kind
	v.mu.RUnlock()
	aead, err := aeadFor(kind, material)
	if err != nil {
		return nil, err
	}
	return aead.Seal(nil, nonce[:], plaintext, ad), nil
}

// AEADDecrypt is the inverse of AEADEncrypt.
func (v *SoftwareVault) AEADDecrypt(key Handle, nonce [12]byte, ad, ciphertext []byte) ([]byte, error) {
	e, err := v.lookup(key)
	if err != nil {
		return nil, err
	}
	v.mu.RLock()
	material := append([]byte(nil), e.material...)
	kind := e.attrs.Kind
	v.mu.RUnlock()
	aead, err := aeadFor(kind, material)
	if err != nil {
		return nil, err
	}
	return aead.Open(nil, nonce[:], ciphertext, ad)
}

// Sign produces an Ed25519 signature over data using a Buffer-32
// handle treated as a seed.
func (v *SoftwareVault) Sign(key Handle, data []byte) ([]byte, error) {
	e, err := v.lookup(key)
	if err != nil {
		return nil, err
	}
	v.mu.RLock()
	material := append([]byte(nil), e.material...)
	kind := e.attrs.Kind
	v.mu.RUnlock()
	if kind != KindBuffer || len(material) != ed25519.SeedSize {
		return nil, fmt.Errorf("vault: sign requires a %d-byte buffer seed, got kind %s len %d", ed25519.SeedSize, kind, len(material))
	}
	priv := ed25519.NewKeyFromSeed(material)
	return ed25519.Sign(priv, data), nil
}

// Verify checks an Ed25519 signature against a raw public key.
func (v *SoftwareVault) Verify(publicKey, data, sig []byte) (bool, error) {
	if len(publicKey) != ed25519.PublicKeySize {
		return false, fmt.Errorf("vault: verify requires a %d-byte public key, got %d", ed25519.PublicKeySize, len(publicKey))
	}
	return ed25519.Verify(ed25519.PublicKey(publicKey), data, sig), nil
}

// Stats reports the number of live handles by persistence class, used
// by tests to assert handle destruction (spec testable property 6).
func (v *SoftwareVault) Stats() (liveEphemeral, livePersistent int) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	for _, e := range v.entries {
		if e.attrs.Persistence == Ephemeral {
			liveEphemeral++
		} else {
			livePersistent++
		}
	}
	return
}
