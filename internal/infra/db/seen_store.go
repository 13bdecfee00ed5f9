package db

// Postgres backed store for seen tokens
// (source, token_id) is the primary key; inserts of known pairs are ignored so the
// first-seen timestamp of a record never changes

import (
	"context"
	"fmt"
	"xrpl-listing-bot/internal/features/detector"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	selectSeenTokens = `SELECT source, token_id, first_seen FROM seen_tokens ORDER BY source, first_seen, token_id`
	insertSeenToken  = `INSERT INTO seen_tokens (source, token_id, first_seen) VALUES ($1, $2, $3)
ON CONFLICT (source, token_id) DO NOTHING`
)

type SeenTokenStore struct {
	pool *pgxpool.Pool
}

// OpenSeenTokenStore migrates the schema and connects a pool
func OpenSeenTokenStore(ctx context.Context, dsn string) (*SeenTokenStore, error) {
	if err := Migrate(dsn, "up"); err != nil {
		return nil, err
	}
	pool, err := Connect(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &SeenTokenStore{pool: pool}, nil
}

func NewSeenTokenStore(pool *pgxpool.Pool) *SeenTokenStore {
	return &SeenTokenStore{pool: pool}
}

func (s *SeenTokenStore) LoadAll(ctx context.Context) ([]detector.SeenToken, error) {
	rows, err := s.pool.Query(ctx, selectSeenTokens)
	if err != nil {
		return nil, fmt.Errorf("query seen tokens: %w", err)
	}
	records, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (detector.SeenToken, error) {
		var r detector.SeenToken
		err := row.Scan(&r.Source, &r.TokenID, &r.FirstSeen)
		r.FirstSeen = r.FirstSeen.UTC()
		return r, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan seen tokens: %w", err)
	}
	return records, nil
}

func (s *SeenTokenStore) Append(ctx context.Context, records []detector.SeenToken) error {
	if len(records) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, r := range records {
		batch.Queue(insertSeenToken, r.Source, r.TokenID, r.FirstSeen)
	}
	if err := s.pool.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("insert seen tokens: %w", err)
	}
	return nil
}

func (s *SeenTokenStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *SeenTokenStore) Close() error {
	s.pool.Close()
	return nil
}
