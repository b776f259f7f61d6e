package tasks

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/desertthunder/radiosync/internal/models"
	"github.com/desertthunder/radiosync/internal/shared"
)

func TestCacheKey(t *testing.T) {
	got := CacheKey(models.Track{Artist: "  Loscil ", Song: "Endless Falls  "})
	if got != "Loscil - Endless Falls" {
		t.Errorf("CacheKey() = %q", got)
	}
	if CacheKey(models.Track{Artist: "loscil", Song: "endless falls"}) == got {
		t.Error("cache key should keep case")
	}
}

func TestTrackResolver(t *testing.T) {
	ctx := context.Background()

	t.Run("write-through cache", func(t *testing.T) {
		h := newHarness(t, ReconcilerOptions{})
		track := models.Track{Artist: "Loscil", Song: "Endless Falls"}

		first, hit, err := h.resolver.Resolve(ctx, track)
		if err != nil || hit || first == nil {
			t.Fatalf("expected live resolution, got %+v hit=%v err=%v", first, hit, err)
		}
		if h.store.Saves != 1 {
			t.Errorf("expected cache saved after the search, got %d saves", h.store.Saves)
		}

		second, hit, err := h.resolver.Resolve(ctx, track)
		if err != nil || !hit || second.URI != first.URI {
			t.Errorf("expected cache hit with same uri, got %+v hit=%v err=%v", second, hit, err)
		}
		if n := len(h.fake.CallsMatching(http.MethodGet, "/search")); n != 1 {
			t.Errorf("expected one search, got %d", n)
		}
	})

	t.Run("absence is cached", func(t *testing.T) {
		h := newHarness(t, ReconcilerOptions{})
		h.fake.Misses["Nobody - Nothing"] = true
		track := models.Track{Artist: "Nobody", Song: "Nothing"}

		for i := range 2 {
			got, hit, err := h.resolver.Resolve(ctx, track)
			if err != nil || got != nil {
				t.Fatalf("expected no match, got %+v, %v", got, err)
			}
			if hit != (i == 1) {
				t.Errorf("call %d: hit = %v", i, hit)
			}
		}
		if h.cache.Stats().NoMatch != 1 {
			t.Error("expected one cached absence")
		}
	})

	t.Run("search failure is not cached", func(t *testing.T) {
		h := newHarness(t, ReconcilerOptions{})
		h.fake.FailSearch = true

		_, _, err := h.resolver.Resolve(ctx, models.Track{Artist: "Loscil", Song: "Endless Falls"})
		if !errors.Is(err, shared.ErrAPI) {
			t.Fatalf("expected api error, got %v", err)
		}
		if h.cache.Len() != 0 || h.resolver.LiveSearches() != 0 {
			t.Errorf("failed search must leave no entry, got %d entries", h.cache.Len())
		}
	})

	t.Run("pauses every ten live searches", func(t *testing.T) {
		h := newHarness(t, ReconcilerOptions{})
		for _, track := range numberedTracks(25) {
			if _, _, err := h.resolver.Resolve(ctx, track); err != nil {
				t.Fatal(err)
			}
		}
		for _, track := range numberedTracks(25) {
			if _, _, err := h.resolver.Resolve(ctx, track); err != nil {
				t.Fatal(err)
			}
		}

		if len(h.pauses) != 2 {
			t.Fatalf("expected 2 pauses, got %d", len(h.pauses))
		}
		for i, d := range h.pauses {
			if d != searchPause {
				t.Errorf("pause %d = %v, want %v", i, d, searchPause)
			}
		}
	})
}

func TestSleepContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := sleepContext(ctx, time.Hour); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if err := sleepContext(context.Background(), 0); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}
