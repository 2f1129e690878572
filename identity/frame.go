package identity

import (
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/noisecore/xxcore/errs"
	"github.com/noisecore/xxcore/vault"
)

// IdentityAndCredentials is the JSON frame exchanged over the first
// data-phase AEAD frame once the handshake proper is done: identity
// exchange is a payload carried by the channel, not folded into the
// Noise messages themselves.
type IdentityAndCredentials struct {
	PublicKey  string `json:"public_key"`          // hex-encoded Ed25519 public key
	Signature  string `json:"signature"`            // hex-encoded signature over the transcript hash
	Credential string `json:"credential,omitempty"` // optional JWT
}

// BuildFrame signs transcriptHash with local's identity key and
// packages it, optionally attaching cred, into the wire frame.
func BuildFrame(local *LocalIdentity, transcriptHash [32]byte, cred *Credential) ([]byte, error) {
	sig, err := local.Sign(transcriptHash[:])
	if err != nil {
		return nil, errs.New(errs.InternalVault, errs.PhaseIdentity, fmt.Errorf("sign transcript hash: %w", err))
	}
	frame := IdentityAndCredentials{
		PublicKey: hex.EncodeToString(local.Export()),
		Signature: hex.EncodeToString(sig),
	}
	if cred != nil {
		frame.Credential = cred.Raw()
	}
	out, err := json.Marshal(frame)
	if err != nil {
		return nil, errs.New(errs.InvalidState, errs.PhaseIdentity, fmt.Errorf("marshal identity frame: %w", err))
	}
	return out, nil
}

// VerifiedPeer is what VerifyFrame produces once a peer's identity and
// (if present) credential have been checked out.
type VerifiedPeer struct {
	Remote     *RemoteIdentity
	Credential *Credential
}

// VerifyFrame parses the frame, verifies the signature against the
// just-completed transcript hash, then — if a credential is present —
// verifies it against tc. A credential with no TrustContext is a hard
// failure, not a silent downgrade to bare authentication. A non-nil
// policy is evaluated whether or not a credential is present, and its
// rejection is returned ahead of any credential failure; a nil policy
// is skipped.
func VerifyFrame(v vault.Vault, raw []byte, transcriptHash [32]byte, tc *TrustContext, policy TrustPolicy) (*VerifiedPeer, error) {
	var frame IdentityAndCredentials
	if err := json.Unmarshal(raw, &frame); err != nil {
		return nil, errs.New(errs.InvalidState, errs.PhaseIdentity, fmt.Errorf("unmarshal identity frame: %w", err))
	}
	pubBytes, err := hex.DecodeString(frame.PublicKey)
	if err != nil {
		return nil, errs.New(errs.InvalidState, errs.PhaseIdentity, fmt.Errorf("decode public key: %w", err))
	}
	sigBytes, err := hex.DecodeString(frame.Signature)
	if err != nil {
		return nil, errs.New(errs.InvalidState, errs.PhaseIdentity, fmt.Errorf("decode signature: %w", err))
	}

	remote, err := ParseRemoteIdentity(v, pubBytes)
	if err != nil {
		return nil, errs.New(errs.InvalidState, errs.PhaseIdentity, err)
	}
	if !remote.VerifySignature(sigBytes, transcriptHash[:]) {
		return nil, errs.New(errs.VerificationFailed, errs.PhaseIdentity, fmt.Errorf("identity signature does not match transcript hash"))
	}

	var cred *Credential
	var credErr error
	if frame.Credential != "" {
		if tc == nil {
			credErr = errs.New(errs.VerificationFailed, errs.PhaseIdentity, fmt.Errorf("credential presented but no trust context configured"))
		} else if cred, err = tc.VerifyCredential(frame.Credential, remote.ID()); err != nil {
			credErr = errs.New(errs.VerificationFailed, errs.PhaseIdentity, err)
		}
	}

	if policy != nil {
		if err := policy.Authorize(remote, cred); err != nil {
			return nil, errs.New(errs.TrustCheckFailed, errs.PhaseIdentity, err)
		}
	}

	if credErr != nil {
		return nil, credErr
	}

	return &VerifiedPeer{Remote: remote, Credential: cred}, nil
}
