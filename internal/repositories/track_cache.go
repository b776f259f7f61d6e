package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/desertthunder/radiosync/internal/cache"
	"github.com/desertthunder/radiosync/internal/models"
	"github.com/desertthunder/radiosync/internal/shared"
)

// TrackCacheStore implements [cache.Store] on a SQLite database.
type TrackCacheStore struct {
	db *sql.DB
}

// NewTrackCacheStore creates a TrackCacheStore with the given database connection.
//
// Migrations must already be applied, which [shared.NewDatabase] does.
func NewTrackCacheStore(db *sql.DB) *TrackCacheStore {
	return &TrackCacheStore{db: db}
}

// OpenTrackCacheStore opens (creating if needed) the database at path.
func OpenTrackCacheStore(path string) (*TrackCacheStore, error) {
	db, err := shared.NewDatabase(path)
	if err != nil {
		return nil, err
	}
	return NewTrackCacheStore(db), nil
}

// Load reads every row, expired ones included.
func (s *TrackCacheStore) Load(ctx context.Context) (map[string]cache.Entry, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT cache_key, track_json, expires_at FROM track_cache")
	if err != nil {
		return nil, fmt.Errorf("failed to query track cache: %w", err)
	}
	defer rows.Close()

	entries := make(map[string]cache.Entry)
	for rows.Next() {
		var (
			key       string
			trackJSON sql.NullString
			expiresAt time.Time
		)
		if err := rows.Scan(&key, &trackJSON, &expiresAt); err != nil {
			return nil, fmt.Errorf("failed to scan track cache row: %w", err)
		}

		entry := cache.Entry{ExpiresAt: expiresAt}
		if trackJSON.Valid {
			var track models.ResolvedTrack
			if err := json.Unmarshal([]byte(trackJSON.String), &track); err != nil {
				return nil, fmt.Errorf("%w: track cache row %q: %v", shared.ErrParse, key, err)
			}
			entry.Track = &track
		}
		entries[key] = entry
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate track cache: %w", err)
	}
	return entries, nil
}

// Save replaces the table contents in one transaction.
func (s *TrackCacheStore) Save(ctx context.Context, entries map[string]cache.Entry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM track_cache"); err != nil {
		return fmt.Errorf("failed to clear track cache: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, "INSERT INTO track_cache (cache_key, track_json, expires_at) VALUES (?, ?, ?)")
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for key, e := range entries {
		var trackJSON sql.NullString
		if e.Track != nil {
			data, err := json.Marshal(e.Track)
			if err != nil {
				return fmt.Errorf("failed to encode track: %w", err)
			}
			trackJSON = sql.NullString{String: string(data), Valid: true}
		}
		if _, err := stmt.ExecContext(ctx, key, trackJSON, e.ExpiresAt.UTC()); err != nil {
			return fmt.Errorf("failed to insert %q: %w", key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit track cache: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *TrackCacheStore) Close() error {
	return s.db.Close()
}

var _ cache.Store = (*TrackCacheStore)(nil)
