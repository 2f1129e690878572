package identity

import (
	"crypto/ed25519"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// claims is the JWT payload shape a credential carries: the subject's
// identity ID plus arbitrary attester-assigned attributes (role,
// org-unit, clearance, whatever the caller's TrustPolicy cares about).
type claims struct {
	jwt.RegisteredClaims
	Attributes map[string]string `json:"attrs,omitempty"`
}

// Credential is a signed attestation binding an identity ID to a set
// of attributes, valid for a bounded lifetime.
type Credential struct {
	raw    string
	claims claims
}

// IssueCredential signs a credential for subject, asserting attrs,
// valid from now for ttl, using issuer's vault-held signing key.
func IssueCredential(issuer *LocalIdentity, subject ID, attrs map[string]string, ttl time.Duration) (*Credential, error) {
	seed, err := issuer.v.Export(issuer.handle)
	if err != nil {
		return nil, fmt.Errorf("identity: export issuer seed for signing: %w", err)
	}
	defer zero(seed)
	priv := ed25519.NewKeyFromSeed(seed)

	now := time.Now()
	c := claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   string(subject),
			Issuer:    string(issuer.ID()),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Attributes: attrs,
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodEdDSA, c)
	raw, err := tok.SignedString(priv)
	if err != nil {
		return nil, fmt.Errorf("identity: sign credential: %w", err)
	}
	return &Credential{raw: raw, claims: c}, nil
}

// ParseCredential parses and structurally validates (but does not
// trust-evaluate) a credential's JWT encoding, verifying it against
// issuerPub.
func ParseCredential(raw string, issuerPub ed25519.PublicKey) (*Credential, error) {
	var c claims
	_, err := jwt.ParseWithClaims(raw, &c, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodEd25519); !ok {
			return nil, fmt.Errorf("identity: unexpected signing method %v", t.Method.Alg())
		}
		return issuerPub, nil
	})
	if err != nil {
		return nil, fmt.Errorf("identity: parse credential: %w", err)
	}
	return &Credential{raw: raw, claims: c}, nil
}

func (c *Credential) Subject() ID                     { return ID(c.claims.Subject) }
func (c *Credential) Issuer() ID                      { return ID(c.claims.Issuer) }
func (c *Credential) Attribute(key string) (string, bool) {
	v, ok := c.claims.Attributes[key]
	return v, ok
}
func (c *Credential) Raw() string { return c.raw }

// jwtIssuerOf reads the issuer claim without verifying the signature,
// used only to select which trusted key to re-verify against.
func jwtIssuerOf(raw string) (ID, error) {
	var c claims
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(raw, &c); err != nil {
		return "", fmt.Errorf("identity: parse unverified credential: %w", err)
	}
	return ID(c.Issuer), nil
}

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
