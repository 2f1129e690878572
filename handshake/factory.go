package handshake

import (
	"github.com/noisecore/xxcore/symmetric"
	"github.com/noisecore/xxcore/vault"
)

// KeyExchanger mints Initiator/Responder channels for one cipher
// suite against one vault.
type KeyExchanger struct {
	v     vault.Vault
	suite symmetric.Suite
}

// NewKeyExchanger binds a suite to a vault.
func NewKeyExchanger(v vault.Vault, suite symmetric.Suite) *KeyExchanger {
	return &KeyExchanger{v: v, suite: suite}
}

// Initiator starts a handshake in the initiator role. identityKey, if
// non-nil, is the long-term static key to reuse; otherwise one is
// generated.
func (ke *KeyExchanger) Initiator(identityKey *vault.Handle, prologue []byte) (*Initiator, error) {
	return NewInitiator(ke.v, ke.suite, identityKey, prologue)
}

// Responder starts a handshake in the responder role.
func (ke *KeyExchanger) Responder(identityKey *vault.Handle, prologue []byte) (*Responder, error) {
	return NewResponder(ke.v, ke.suite, identityKey, prologue)
}
