// Package postgres implements repository.Repository against
// PostgreSQL, grounded on pkg/storage/postgres's pgxpool connection
// and parameterized-query conventions.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/noisecore/xxcore/identity"
	"github.com/noisecore/xxcore/repository"
)

// Config holds PostgreSQL connection configuration.
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

// Store is a PostgreSQL-backed repository.Repository.
type Store struct {
	pool *pgxpool.Pool
}

// New connects to PostgreSQL and returns a Store, pinging the
// connection before returning so callers fail fast on misconfiguration.
func New(ctx context.Context, cfg *Config) (*Store, error) {
	connString := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database, cfg.SSLMode,
	)

	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("repository/postgres: create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("repository/postgres: ping database: %w", err)
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Upsert(ctx context.Context, rec *repository.IdentityRecord) error {
	query := `
		INSERT INTO identity_records (id, public_key, first_seen, last_seen)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE
		SET public_key = EXCLUDED.public_key, last_seen = EXCLUDED.last_seen
	`
	_, err := s.pool.Exec(ctx, query, string(rec.ID), rec.PublicKey, rec.FirstSeen, rec.LastSeen)
	if err != nil {
		return fmt.Errorf("repository/postgres: upsert %s: %w", rec.ID, err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, id identity.ID) (*repository.IdentityRecord, error) {
	query := `SELECT id, public_key, first_seen, last_seen FROM identity_records WHERE id = $1`

	var rec repository.IdentityRecord
	var idStr string
	err := s.pool.QueryRow(ctx, query, string(id)).Scan(&idStr, &rec.PublicKey, &rec.FirstSeen, &rec.LastSeen)
	if err == pgx.ErrNoRows {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("repository/postgres: get %s: %w", id, err)
	}
	rec.ID = identity.ID(idStr)
	return &rec, nil
}

func (s *Store) Delete(ctx context.Context, id identity.ID) error {
	result, err := s.pool.Exec(ctx, `DELETE FROM identity_records WHERE id = $1`, string(id))
	if err != nil {
		return fmt.Errorf("repository/postgres: delete %s: %w", id, err)
	}
	if result.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (s *Store) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM identity_records`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("repository/postgres: count: %w", err)
	}
	return count, nil
}

// Close closes the underlying connection pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}
