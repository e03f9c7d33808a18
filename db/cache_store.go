package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/frc5881/tba-slackbot/tba"
)

// CacheStore keeps upstream API responses in the api_cache table.
// Concurrent writers are last-writer-wins.
type CacheStore struct {
	db *sql.DB
}

var _ tba.CacheStore = (*CacheStore)(nil)

// NewCacheStore returns a CacheStore on db.
func NewCacheStore(db *sql.DB) *CacheStore { return &CacheStore{db: db} }

// Get returns the entry for key, or nil when none is stored.
func (s *CacheStore) Get(ctx context.Context, key string) (*tba.CacheEntry, error) {
	var (
		e            = tba.CacheEntry{Key: key}
		lastModified sql.NullTime
		expiresAt    sql.NullTime
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT last_modified, payload, retrieved_at, expires_at FROM api_cache WHERE key=$1`, key,
	).Scan(&lastModified, &e.Payload, &e.RetrievedAt, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get cache entry %s: %w", key, err)
	}
	e.LastModified = timePtr(lastModified)
	e.ExpiresAt = timePtr(expiresAt)
	return &e, nil
}

// Put stores entry, replacing any previous one.
func (s *CacheStore) Put(ctx context.Context, e tba.CacheEntry) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO api_cache(key, last_modified, payload, retrieved_at, expires_at)
		VALUES($1,$2,$3,$4,$5)
		ON CONFLICT(key) DO UPDATE SET last_modified=EXCLUDED.last_modified, payload=EXCLUDED.payload,
			retrieved_at=EXCLUDED.retrieved_at, expires_at=EXCLUDED.expires_at`,
		e.Key, nullTime(e.LastModified), e.Payload, e.RetrievedAt, nullTime(e.ExpiresAt))
	if err != nil {
		return fmt.Errorf("put cache entry %s: %w", e.Key, err)
	}
	return nil
}

// Touch updates the freshness timestamps of an existing entry.
func (s *CacheStore) Touch(ctx context.Context, key string, retrievedAt time.Time, expiresAt *time.Time) error {
	_, err := s.db.ExecContext(ctx, `UPDATE api_cache SET retrieved_at=$2, expires_at=$3 WHERE key=$1`,
		key, retrievedAt, nullTime(expiresAt))
	if err != nil {
		return fmt.Errorf("touch cache entry %s: %w", key, err)
	}
	return nil
}

// Purge deletes entries that expired before cutoff and reports how many went.
func (s *CacheStore) Purge(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM api_cache WHERE COALESCE(expires_at, retrieved_at) < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge cache: %w", err)
	}
	return res.RowsAffected()
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time.UTC()
	return &v
}
