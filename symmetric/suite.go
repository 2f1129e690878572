package symmetric

import "github.com/noisecore/xxcore/vault"

// Suite identifies a Noise XX cipher suite.
type Suite int

const (
	XX25519AESGCMSHA256 Suite = iota
	XXP256AES128GCMSHA256
)

// ProtocolName returns the 32-byte, NUL-padded protocol name mixed
// into h during initialization.
func (s Suite) ProtocolName() [32]byte {
	var out [32]byte
	switch s {
	case XX25519AESGCMSHA256:
		copy(out[:], "Noise_XX_25519_AESGCM_SHA256")
	case XXP256AES128GCMSHA256:
		copy(out[:], "Noise_XX_P256_AES128GCM_SHA256")
	}
	return out
}

// PublicKeySize returns the wire size of a raw public key for this
// suite's DH curve: 32 for X25519, 65 for uncompressed P-256.
func (s Suite) PublicKeySize() int {
	switch s {
	case XX25519AESGCMSHA256:
		return 32
	case XXP256AES128GCMSHA256:
		return 65
	default:
		return 0
	}
}

// DHKind returns the vault.Kind to generate/import DH keys under.
func (s Suite) DHKind() vault.Kind {
	switch s {
	case XX25519AESGCMSHA256:
		return vault.KindX25519
	case XXP256AES128GCMSHA256:
		return vault.KindP256
	default:
		return vault.KindBuffer
	}
}

// CipherAttrs returns the vault.Attributes for this suite's symmetric
// cipher key.
func (s Suite) CipherAttrs() vault.Attributes {
	switch s {
	case XX25519AESGCMSHA256:
		return vault.Attributes{Kind: vault.KindAES256, Persistence: vault.Ephemeral, Length: 32}
	case XXP256AES128GCMSHA256:
		return vault.Attributes{Kind: vault.KindAES128, Persistence: vault.Ephemeral, Length: 16}
	default:
		return vault.Attributes{}
	}
}

func (s Suite) String() string {
	switch s {
	case XX25519AESGCMSHA256:
		return "XX_25519_AESGCM_SHA256"
	case XXP256AES128GCMSHA256:
		return "XX_P256_AES128GCM_SHA256"
	default:
		return "unknown"
	}
}
