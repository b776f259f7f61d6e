package repositories

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/desertthunder/radiosync/internal/cache"
	"github.com/desertthunder/radiosync/internal/models"
	"github.com/desertthunder/radiosync/internal/shared"
	tu "github.com/desertthunder/radiosync/internal/testing"
)

// setupTestStore creates an in-memory SQLite store with migrations applied
func setupTestStore(t *testing.T) *TrackCacheStore {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	store := NewTrackCacheStore(db)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestTrackCacheStore(t *testing.T) {
	ctx := context.Background()
	expires := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)

	t.Run("Save and Load", func(t *testing.T) {
		store := setupTestStore(t)
		err := store.Save(ctx, map[string]cache.Entry{
			"Loscil - Bell Flame": {
				Track:     &models.ResolvedTrack{ID: "1", Name: "Bell Flame", Artists: []string{"Loscil"}, URI: "spotify:track:1"},
				ExpiresAt: expires,
			},
			"Nobody - Nothing": {ExpiresAt: expires},
		})
		if err != nil {
			t.Fatalf("Save() error = %v", err)
		}

		entries, err := store.Load(ctx)
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if len(entries) != 2 {
			t.Fatalf("expected 2 entries, got %d", len(entries))
		}

		hit := entries["Loscil - Bell Flame"]
		if hit.Track == nil || hit.Track.URI != "spotify:track:1" || hit.Track.Artists[0] != "Loscil" {
			t.Errorf("unexpected track %+v", hit.Track)
		}
		if !hit.ExpiresAt.Equal(expires) {
			t.Errorf("expected expiry %v, got %v", expires, hit.ExpiresAt)
		}
		if miss := entries["Nobody - Nothing"]; miss.Track != nil {
			t.Errorf("expected cached absence, got %+v", miss.Track)
		}
	})

	t.Run("Save replaces contents", func(t *testing.T) {
		store := setupTestStore(t)
		store.Save(ctx, map[string]cache.Entry{"a": {ExpiresAt: expires}, "b": {ExpiresAt: expires}})
		if err := store.Save(ctx, map[string]cache.Entry{"c": {ExpiresAt: expires}}); err != nil {
			t.Fatal(err)
		}

		entries, _ := store.Load(ctx)
		if _, ok := entries["c"]; len(entries) != 1 || !ok {
			t.Errorf("expected only c, got %v", entries)
		}
	})

	t.Run("backs a cache across reopen", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "cache", "tracks.db")
		now := func() time.Time { return expires }

		store, err := OpenTrackCacheStore(path)
		if err != nil {
			t.Fatalf("OpenTrackCacheStore() error = %v", err)
		}
		c, err := cache.Open(ctx, store, cache.WithClock(now))
		if err != nil {
			t.Fatal(err)
		}
		c.Put("A - B", &models.ResolvedTrack{ID: "x", URI: "spotify:track:x"})
		if err := c.Save(ctx); err != nil {
			t.Fatal(err)
		}
		c.Close()
		tu.AssertFileExists(t, path)

		store, err = OpenTrackCacheStore(path)
		if err != nil {
			t.Fatal(err)
		}
		reopened, err := cache.Open(ctx, store, cache.WithClock(now))
		if err != nil {
			t.Fatal(err)
		}
		defer reopened.Close()
		if e, ok := reopened.Get("A - B"); !ok || e.Track.ID != "x" {
			t.Errorf("entry lost across reopen: %+v", e)
		}
	})
}
