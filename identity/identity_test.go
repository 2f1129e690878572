package identity

import (
	"crypto/ed25519"
	"testing"
	"time"

	"github.com/noisecore/xxcore/vault"
	"github.com/stretchr/testify/require"
)

func TestLocalIdentityRoundTrip(t *testing.T) {
	v := vault.New()
	local, err := NewLocalIdentity(v)
	require.NoError(t, err)
	require.Len(t, local.ID(), 16)

	data := []byte("transcript hash stand-in")
	sig, err := local.Sign(data)
	require.NoError(t, err)
	require.True(t, local.VerifySignature(sig, data))
	require.False(t, local.VerifySignature(sig, []byte("tampered")))
}

func TestParseRemoteIdentity(t *testing.T) {
	v := vault.New()
	local, err := NewLocalIdentity(v)
	require.NoError(t, err)

	remote, err := ParseRemoteIdentity(v, local.Export())
	require.NoError(t, err)
	require.Equal(t, local.ID(), remote.ID())

	_, err = ParseRemoteIdentity(v, []byte("too short"))
	require.Error(t, err)
}

func TestCredentialIssueAndVerify(t *testing.T) {
	v := vault.New()
	issuer, err := NewLocalIdentity(v)
	require.NoError(t, err)
	subject, err := NewLocalIdentity(v)
	require.NoError(t, err)

	cred, err := IssueCredential(issuer, subject.ID(), map[string]string{"role": "peer"}, time.Hour)
	require.NoError(t, err)
	require.Equal(t, subject.ID(), cred.Subject())
	require.Equal(t, issuer.ID(), cred.Issuer())

	tc := NewTrustContext(map[ID]ed25519.PublicKey{issuer.ID(): ed25519.PublicKey(issuer.Export())})
	verified, err := tc.VerifyCredential(cred.Raw(), subject.ID())
	require.NoError(t, err)
	role, ok := verified.Attribute("role")
	require.True(t, ok)
	require.Equal(t, "peer", role)

	_, err = tc.VerifyCredential(cred.Raw(), "wrong-subject-id")
	require.Error(t, err)
}

func TestFrameBuildAndVerifyRejectsCredentialWithoutTrustContext(t *testing.T) {
	v := vault.New()
	local, err := NewLocalIdentity(v)
	require.NoError(t, err)
	issuer, err := NewLocalIdentity(v)
	require.NoError(t, err)

	var transcriptHash [32]byte
	copy(transcriptHash[:], []byte("deterministic-test-transcript-h"))

	cred, err := IssueCredential(issuer, local.ID(), map[string]string{"role": "peer"}, time.Hour)
	require.NoError(t, err)

	frame, err := BuildFrame(local, transcriptHash, cred)
	require.NoError(t, err)

	_, err = VerifyFrame(v, frame, transcriptHash, nil, nil)
	require.Error(t, err, "credential present but no trust context must be rejected")

	tc := NewTrustContext(map[ID]ed25519.PublicKey{issuer.ID(): ed25519.PublicKey(issuer.Export())})
	verified, err := VerifyFrame(v, frame, transcriptHash, tc, AllowAll)
	require.NoError(t, err)
	require.Equal(t, local.ID(), verified.Remote.ID())
	require.Equal(t, "peer", mustAttr(t, verified.Credential, "role"))
}

func TestFrameVerifyNoCredentialOk(t *testing.T) {
	v := vault.New()
	local, err := NewLocalIdentity(v)
	require.NoError(t, err)

	var transcriptHash [32]byte
	copy(transcriptHash[:], []byte("another-deterministic-transcrip"))

	frame, err := BuildFrame(local, transcriptHash, nil)
	require.NoError(t, err)

	verified, err := VerifyFrame(v, frame, transcriptHash, nil, AllowAll)
	require.NoError(t, err)
	require.Nil(t, verified.Credential)
}

func TestFrameVerifyRejectsWrongTranscript(t *testing.T) {
	v := vault.New()
	local, err := NewLocalIdentity(v)
	require.NoError(t, err)

	var transcriptHash, other [32]byte
	copy(transcriptHash[:], []byte("transcript-a-32-bytes-long-xxxx"))
	copy(other[:], []byte("transcript-b-32-bytes-long-yyyy"))

	frame, err := BuildFrame(local, transcriptHash, nil)
	require.NoError(t, err)

	_, err = VerifyFrame(v, frame, other, nil, AllowAll)
	require.Error(t, err)
}

func mustAttr(t *testing.T, cred *Credential, key string) string {
	t.Helper()
	v, ok := cred.Attribute(key)
	require.True(t, ok)
	return v
}
