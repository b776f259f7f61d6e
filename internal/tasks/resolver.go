package tasks

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/radiosync/internal/cache"
	"github.com/desertthunder/radiosync/internal/models"
	"github.com/desertthunder/radiosync/internal/services"
)

const (
	// searchPauseEvery is the number of live searches between pauses.
	searchPauseEvery = 10
	// searchPause is how long the resolver yields after every searchPauseEvery live searches.
	searchPause = 100 * time.Millisecond
)

// Resolver maps a played track to a remote track. A nil track with a nil error means no match.
type Resolver interface {
	Resolve(ctx context.Context, t models.Track) (track *models.ResolvedTrack, hit bool, err error)
}

// CacheKey is the lookup key of a track in the search cache: trimmed "artist - song".
//
// Unlike the dedup key it keeps case, so "Loscil" and "loscil" are cached separately.
func CacheKey(t models.Track) string {
	return strings.TrimSpace(t.Artist) + " - " + strings.TrimSpace(t.Song)
}

// TrackResolver resolves tracks through a write-through TTL cache in front of remote search.
type TrackResolver struct {
	search services.TrackSearcher
	cache  *cache.Cache
	logger *log.Logger
	pause  time.Duration
	sleep  func(ctx context.Context, d time.Duration) error

	live   int
	pauses int
}

// NewTrackResolver creates a resolver owning c for the rest of the run.
func NewTrackResolver(search services.TrackSearcher, c *cache.Cache, logger *log.Logger) *TrackResolver {
	return &TrackResolver{search: search, cache: c, logger: logger, pause: searchPause, sleep: sleepContext}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Resolve returns the cached outcome for t when present, otherwise searches, caches the
// outcome and saves the cache before returning.
//
// Search and save failures are returned; a failed search is not cached.
func (r *TrackResolver) Resolve(ctx context.Context, t models.Track) (*models.ResolvedTrack, bool, error) {
	key := CacheKey(t)
	if e, ok := r.cache.Get(key); ok {
		return e.Track, true, nil
	}

	found, err := r.search.SearchTrack(ctx, strings.TrimSpace(t.Artist), strings.TrimSpace(t.Song))
	if err != nil {
		return nil, false, fmt.Errorf("search %q: %w", key, err)
	}

	r.live++
	var resolved *models.ResolvedTrack
	if found != nil {
		resolved = found.Resolved()
	} else {
		r.logger.Debug("no match", "track", key)
	}

	r.cache.Put(key, resolved)
	if err := r.cache.Save(ctx); err != nil {
		return nil, false, err
	}

	if r.live%searchPauseEvery == 0 {
		r.pauses++
		if err := r.sleep(ctx, r.pause); err != nil {
			return resolved, false, err
		}
	}
	return resolved, false, nil
}

// Flush saves the cache, purging expired entries.
func (r *TrackResolver) Flush(ctx context.Context) error {
	return r.cache.Save(ctx)
}

// LiveSearches returns how many searches reached the remote system.
func (r *TrackResolver) LiveSearches() int { return r.live }
