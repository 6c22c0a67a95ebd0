package feedstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/signupassist/provider-pipeline/internal/program"
)

// PostgresStore persists feeds in a program_feeds table, one row per
// (org, category). Programs are stored as a JSONB document; the listing
// shape changes too often to deserve a relational schema of its own.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, errors.New("postgres dsn is required")
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("create postgres pool: %w", err)
	}

	store := &PostgresStore{pool: pool}
	if err := store.initSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return store, nil
}

func (s *PostgresStore) Close() {
	s.pool.Close()
}

func (s *PostgresStore) Upsert(ctx context.Context, feed Feed) error {
	feed.OrgRef = normalizeOrgRef(feed.OrgRef)
	feed.Category = normalizeCategory(feed.Category)
	if feed.OrgRef == "" {
		return errors.New("org ref is required")
	}
	if feed.CachedAt.IsZero() {
		feed.CachedAt = time.Now().UTC()
	}

	programsJSON, err := json.Marshal(feed.Programs)
	if err != nil {
		return fmt.Errorf("marshal programs: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
INSERT INTO program_feeds (org_ref, category, programs, cached_at)
VALUES ($1, $2, $3::jsonb, $4)
ON CONFLICT (org_ref, category)
DO UPDATE SET programs = EXCLUDED.programs, cached_at = EXCLUDED.cached_at
`, feed.OrgRef, feed.Category, programsJSON, feed.CachedAt.UTC())
	if err != nil {
		return fmt.Errorf("upsert program feed: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, orgRef, category string) (Feed, bool, error) {
	orgRef = normalizeOrgRef(orgRef)
	if orgRef == "" {
		return Feed{}, false, errors.New("org ref is required")
	}

	row := s.pool.QueryRow(ctx, `
SELECT org_ref, category, programs, cached_at
FROM program_feeds
WHERE org_ref = $1 AND category = $2
`, orgRef, normalizeCategory(category))

	feed, err := scanFeed(row)
	if err == nil {
		return feed, true, nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return Feed{}, false, nil
	}
	return Feed{}, false, err
}

func (s *PostgresStore) List(ctx context.Context, orgRef string) ([]Feed, error) {
	orgRef = normalizeOrgRef(orgRef)
	if orgRef == "" {
		return nil, errors.New("org ref is required")
	}

	rows, err := s.pool.Query(ctx, `
SELECT org_ref, category, programs, cached_at
FROM program_feeds
WHERE org_ref = $1
ORDER BY category ASC
`, orgRef)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	feeds := make([]Feed, 0)
	for rows.Next() {
		feed, err := scanFeed(rows)
		if err != nil {
			return nil, err
		}
		feeds = append(feeds, feed)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return feeds, nil
}

func (s *PostgresStore) initSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
CREATE TABLE IF NOT EXISTS program_feeds (
	org_ref TEXT NOT NULL,
	category TEXT NOT NULL,
	programs JSONB NOT NULL DEFAULT '[]'::jsonb,
	cached_at TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (org_ref, category)
);
`)
	if err != nil {
		return fmt.Errorf("initialize program_feeds schema: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanFeed(row rowScanner) (Feed, error) {
	var feed Feed
	var programsJSON []byte

	if err := row.Scan(&feed.OrgRef, &feed.Category, &programsJSON, &feed.CachedAt); err != nil {
		return Feed{}, err
	}

	feed.Programs = []program.Program{}
	if len(programsJSON) > 0 {
		if err := json.Unmarshal(programsJSON, &feed.Programs); err != nil {
			return Feed{}, fmt.Errorf("decode feed programs: %w", err)
		}
	}
	feed.CachedAt = feed.CachedAt.UTC()
	return feed, nil
}
