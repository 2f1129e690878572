// Package repository persists the identities a channel has seen: the
// long-lived record of which peer IDs this process has completed an
// identity exchange with, independent of any single channel's
// lifetime. Grounded on pkg/storage's Store/DIDStore split, narrowed
// to the one record type this engine needs.
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/noisecore/xxcore/identity"
)

// ErrNotFound is returned by Get and Delete when no record matches id.
var ErrNotFound = errors.New("repository: identity record not found")

// IdentityRecord is the durable record of a peer identity this engine
// has completed at least one identity exchange with.
type IdentityRecord struct {
	ID        identity.ID
	PublicKey []byte
	FirstSeen time.Time
	LastSeen  time.Time
}

// Repository persists IdentityRecords. Upsert is the only write path:
// a peer seen again simply advances LastSeen rather than erroring,
// since re-establishing a channel with a known peer is the expected
// steady state, not an edge case.
type Repository interface {
	Upsert(ctx context.Context, rec *IdentityRecord) error
	Get(ctx context.Context, id identity.ID) (*IdentityRecord, error)
	Delete(ctx context.Context, id identity.ID) error
	Count(ctx context.Context) (int64, error)
	Close() error
}
