package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"lendingScope/internal/model"
)

const schema = `
	CREATE TABLE IF NOT EXISTS private_addresses (
		owner      TEXT NOT NULL,
		identity   TEXT NOT NULL,
		secret     TEXT NOT NULL,
		position   INTEGER NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		PRIMARY KEY (owner, identity)
	)
`

// Store provides Postgres persistence for shielded address entries.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// EnsureSchema creates the private_addresses table when missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Load returns the entries of owner in insertion order.
func (s *Store) Load(ctx context.Context, owner common.Address) ([]model.AddressEntry, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT identity, secret FROM private_addresses
		WHERE owner = $1
		ORDER BY position
	`, ownerKey(owner))
	if err != nil {
		return nil, fmt.Errorf("query addresses: %w", err)
	}
	defer rows.Close()

	entries := make([]model.AddressEntry, 0)
	for rows.Next() {
		var identity, secret string
		if err := rows.Scan(&identity, &secret); err != nil {
			return nil, fmt.Errorf("scan address: %w", err)
		}
		if !common.IsHexAddress(identity) {
			return nil, fmt.Errorf("invalid stored identity: %s", identity)
		}
		entries = append(entries, model.AddressEntry{
			Identity: common.HexToAddress(identity),
			Secret:   common.HexToHash(secret),
		})
	}
	return entries, rows.Err()
}

// Save replaces the entries of owner in one transaction.
func (s *Store) Save(ctx context.Context, owner common.Address, entries []model.AddressEntry) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	key := ownerKey(owner)
	if _, err := tx.Exec(ctx, `DELETE FROM private_addresses WHERE owner = $1`, key); err != nil {
		return fmt.Errorf("delete addresses: %w", err)
	}

	if len(entries) > 0 {
		batch := &pgx.Batch{}
		for i, entry := range entries {
			batch.Queue(`
				INSERT INTO private_addresses (owner, identity, secret, position)
				VALUES ($1, $2, $3, $4)
				ON CONFLICT (owner, identity) DO UPDATE SET secret = EXCLUDED.secret, position = EXCLUDED.position
			`,
				key,
				strings.ToLower(entry.Identity.Hex()),
				entry.Secret.Hex(),
				i,
			)
		}

		br := tx.SendBatch(ctx, batch)
		for range entries {
			if _, err := br.Exec(); err != nil {
				br.Close()
				return fmt.Errorf("insert address: %w", err)
			}
		}
		if err := br.Close(); err != nil {
			return fmt.Errorf("close batch: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func ownerKey(owner common.Address) string {
	return strings.ToLower(owner.Hex())
}
