package handshake

import (
	"testing"

	"github.com/noisecore/xxcore/symmetric"
	"github.com/noisecore/xxcore/vault"
	"github.com/stretchr/testify/require"
)

func runFullHandshake(t *testing.T, vi, vr vault.Vault, suite symmetric.Suite) (*CompletedKeyExchange, *CompletedKeyExchange) {
	t.Helper()
	initiator, err := NewInitiator(vi, suite, nil, nil)
	require.NoError(t, err)
	responder, err := NewResponder(vr, suite, nil, nil)
	require.NoError(t, err)

	msg1, err := initiator.EncodeMessage1(nil)
	require.NoError(t, err)
	_, err = responder.DecodeMessage1(msg1)
	require.NoError(t, err)

	msg2, err := responder.EncodeMessage2(nil)
	require.NoError(t, err)
	_, err = initiator.DecodeMessage2(msg2)
	require.NoError(t, err)

	msg3, err := initiator.EncodeMessage3(nil)
	require.NoError(t, err)
	_, err = responder.DecodeMessage3(msg3)
	require.NoError(t, err)

	ci, err := initiator.Finalize()
	require.NoError(t, err)
	cr, err := responder.Finalize()
	require.NoError(t, err)
	return ci, cr
}

func TestFullHandshakeGeneratedKeys(t *testing.T) {
	vi := vault.New()
	vr := vault.New()
	ci, cr := runFullHandshake(t, vi, vr, symmetric.XX25519AESGCMSHA256)

	require.Equal(t, ci.TranscriptHash, cr.TranscriptHash)

	iEnc, err := vi.Export(ci.EncryptKey)
	require.NoError(t, err)
	rDec, err := vr.Export(cr.DecryptKey)
	require.NoError(t, err)
	require.Equal(t, iEnc, rDec)

	iDec, err := vi.Export(ci.DecryptKey)
	require.NoError(t, err)
	rEnc, err := vr.Export(cr.EncryptKey)
	require.NoError(t, err)
	require.Equal(t, iDec, rEnc)

	require.NotEqual(t, iEnc, iDec)
}

func TestHandleDestructionAfterFinalize(t *testing.T) {
	vi := vault.New()
	vr := vault.New()
	before, _ := vi.Stats()
	require.Equal(t, 0, before)

	ci, _ := runFullHandshake(t, vi, vr, symmetric.XX25519AESGCMSHA256)

	// Every intermediate handle (the handshake ephemeral DH key, the
	// chaining/cipher keys produced by each mix_key, the per-message
	// ECDH shared secrets) must be gone. Only the two split session
	// keys, now owned by the CompletedKeyExchange, and the persistent
	// static identity key remain.
	liveEph, livePersistent := vi.Stats()
	require.Equal(t, 2, liveEph, "only the two split session keys should remain live")
	require.Equal(t, 1, livePersistent, "the static identity key survives finalize")

	_, err := vi.Export(ci.EncryptKey)
	require.NoError(t, err)
	_, err = vi.Export(ci.DecryptKey)
	require.NoError(t, err)
}

func TestHandleDestructionOnAbort(t *testing.T) {
	vi := vault.New()
	initiator, err := NewInitiator(vi, symmetric.XX25519AESGCMSHA256, nil, nil)
	require.NoError(t, err)
	_, err = initiator.EncodeMessage1(nil)
	require.NoError(t, err)

	initiator.Abort()
	liveEph, _ := vi.Stats()
	require.Equal(t, 0, liveEph)

	// Idempotent.
	initiator.Abort()
}

func TestP256Suite(t *testing.T) {
	vi := vault.New()
	vr := vault.New()
	ci, cr := runFullHandshake(t, vi, vr, symmetric.XXP256AES128GCMSHA256)
	require.Equal(t, ci.TranscriptHash, cr.TranscriptHash)
}
