// Package persistence loads and stores the oblivious map's opaque snapshot.
// It mirrors the original_source's bitservice-peer/src/repository.rs: a
// single-row table keyed by a fixed id, upserted after every successful
// write, loaded once at peer startup.
package persistence

import (
	"context"
	goerrors "errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
)

// mapRowID is the fixed primary key of the single row bitservice persists
// its snapshot under, matching repository.rs's `id` column convention.
const mapRowID = 0

// Store persists and loads the oblivious map's opaque snapshot.
type Store interface {
	// LoadOrInit returns the persisted snapshot, or (nil, false, nil) if no
	// row exists yet (a fresh peer).
	LoadOrInit(ctx context.Context) (data []byte, found bool, err error)

	// Store upserts the snapshot, replacing any previous one.
	Store(ctx context.Context, data []byte) error

	// Close releases underlying resources.
	Close()
}

// PostgresStore is a Store backed by a Postgres connection pool via
// jackc/pgx/v5/pgxpool.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// Open connects to dsn and returns a ready PostgresStore. The caller is
// responsible for having applied the `map(id int primary key, data bytea)`
// schema migration beforehand, per spec.md section 4.6.
func Open(ctx context.Context, dsn string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, errors.Wrap(err, "persistence: opening pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, errors.Wrap(err, "persistence: pinging database")
	}
	return &PostgresStore{pool: pool}, nil
}

// FromPool wraps an already-constructed pool, used by tests that spin up
// their own pgxpool against a throwaway database.
func FromPool(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) LoadOrInit(ctx context.Context) ([]byte, bool, error) {
	var data []byte
	err := s.pool.QueryRow(ctx, `SELECT data FROM map WHERE id = $1`, mapRowID).Scan(&data)
	if err != nil {
		if goerrors.Is(err, pgx.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, errors.Wrap(err, "persistence: loading map snapshot")
	}
	return data, true, nil
}

func (s *PostgresStore) Store(ctx context.Context, data []byte) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO map (id, data) VALUES ($1, $2)
		ON CONFLICT (id) DO UPDATE SET data = EXCLUDED.data`, mapRowID, data)
	if err != nil {
		return errors.Wrap(err, "persistence: storing map snapshot")
	}
	return nil
}

func (s *PostgresStore) Close() {
	s.pool.Close()
}
