package identity

import (
	"crypto/ed25519"
	"fmt"
	"sync"
)

// TrustContext holds the set of credential issuers this engine
// accepts, keyed by issuer ID. Without a TrustContext, a channel that
// receives any credential at all must reject the identity exchange
// rather than silently accept an unverifiable credential.
type TrustContext struct {
	mu      sync.RWMutex
	issuers map[ID]ed25519.PublicKey
}

// NewTrustContext builds a TrustContext trusting the given issuers.
func NewTrustContext(issuers map[ID]ed25519.PublicKey) *TrustContext {
	tc := &TrustContext{issuers: make(map[ID]ed25519.PublicKey, len(issuers))}
	for id, pub := range issuers {
		tc.issuers[id] = pub
	}
	return tc
}

// IssuerKey looks up a trusted issuer's public key.
func (tc *TrustContext) IssuerKey(issuer ID) (ed25519.PublicKey, bool) {
	tc.mu.RLock()
	defer tc.mu.RUnlock()
	pub, ok := tc.issuers[issuer]
	return pub, ok
}

// VerifyCredential parses raw against tc's known issuers and confirms
// the credential's subject matches subject.
func (tc *TrustContext) VerifyCredential(raw string, subject ID) (*Credential, error) {
	// The issuer claim is untrusted until we've matched it against a
	// known key, so parse once loosely to read it, then re-verify with
	// the resolved key.
	unverified, err := jwtIssuerOf(raw)
	if err != nil {
		return nil, fmt.Errorf("identity: read credential issuer: %w", err)
	}
	pub, ok := tc.IssuerKey(unverified)
	if !ok {
		return nil, fmt.Errorf("identity: untrusted credential issuer %q", unverified)
	}
	cred, err := ParseCredential(raw, pub)
	if err != nil {
		return nil, err
	}
	if cred.Subject() != subject {
		return nil, fmt.Errorf("identity: credential subject %q does not match peer identity %q", cred.Subject(), subject)
	}
	return cred, nil
}

// TrustPolicy decides whether a verified remote identity (and its
// credential, if any) is acceptable for this channel. Mirrors the
// Rust TrustPolicy trait's is_authorized surface.
type TrustPolicy interface {
	Authorize(remote *RemoteIdentity, cred *Credential) error
}

// TrustPolicyFunc adapts a function to TrustPolicy.
type TrustPolicyFunc func(remote *RemoteIdentity, cred *Credential) error

func (f TrustPolicyFunc) Authorize(remote *RemoteIdentity, cred *Credential) error {
	return f(remote, cred)
}

// AllowAll accepts any identity, with or without a credential. It is
// the degenerate policy for channels that only need authentication,
// not authorization.
var AllowAll TrustPolicy = TrustPolicyFunc(func(*RemoteIdentity, *Credential) error { return nil })

// RequireAttribute builds a TrustPolicy that rejects identities whose
// credential lacks a matching key/value attribute pair.
func RequireAttribute(key, value string) TrustPolicy {
	return TrustPolicyFunc(func(_ *RemoteIdentity, cred *Credential) error {
		if cred == nil {
			return fmt.Errorf("identity: policy requires attribute %q but no credential was presented", key)
		}
		got, ok := cred.Attribute(key)
		if !ok || got != value {
			return fmt.Errorf("identity: credential attribute %q=%q does not satisfy required %q", key, got, value)
		}
		return nil
	})
}
