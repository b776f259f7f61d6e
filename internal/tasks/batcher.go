package tasks

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/radiosync/internal/models"
	"github.com/desertthunder/radiosync/internal/services"
)

// DefaultMaxTracks bounds the tracks processed by one [TrackBatcher.AddTracks] call.
const DefaultMaxTracks = 5000

// AddResult counts the outcome of [TrackBatcher.AddTracks]. On error it reflects the
// chunks applied before the failure.
type AddResult struct {
	Processed  int
	Added      int
	Unresolved int
	CacheHits  int
	Truncated  int
	Chunks     []int
}

// TrackBatcher lists, clears and fills playlists within the per-request ceiling.
type TrackBatcher struct {
	svc       services.PlaylistService
	resolver  Resolver
	maxTracks int
	logger    *log.Logger
}

// NewTrackBatcher creates a batcher. A maxTracks below 1 means [DefaultMaxTracks].
func NewTrackBatcher(svc services.PlaylistService, resolver Resolver, maxTracks int, logger *log.Logger) *TrackBatcher {
	if maxTracks < 1 {
		maxTracks = DefaultMaxTracks
	}
	return &TrackBatcher{svc: svc, resolver: resolver, maxTracks: maxTracks, logger: logger}
}

// ListTracks returns every track reference of a playlist in page order.
func (b *TrackBatcher) ListTracks(ctx context.Context, playlistID string) ([]string, error) {
	var uris []string
	next := ""
	for {
		page, err := b.svc.PlaylistItems(ctx, playlistID, next)
		if err != nil {
			return uris, fmt.Errorf("list tracks of %s: %w", playlistID, err)
		}
		uris = append(uris, page.URIs()...)
		if page.Next == nil || *page.Next == "" {
			return uris, nil
		}
		next = *page.Next
	}
}

// Clear removes every track from a playlist and returns how many distinct references were removed.
func (b *TrackBatcher) Clear(ctx context.Context, playlistID string) (int, error) {
	current, err := b.ListTracks(ctx, playlistID)
	if err != nil {
		return 0, err
	}
	uris := unique(current)
	if len(uris) == 0 {
		return 0, nil
	}

	removed := 0
	for _, chunk := range chunks(uris, services.MaxBatchSize) {
		if err := b.svc.RemoveItems(ctx, playlistID, chunk); err != nil {
			return removed, fmt.Errorf("clear %s: %w", playlistID, err)
		}
		removed += len(chunk)
	}
	b.logger.Debug("cleared playlist", "playlist", playlistID, "removed", removed)
	return removed, nil
}

// AddTracks resolves tracks and appends the found references, submitting a chunk each
// time [services.MaxBatchSize] references are pending.
//
// A failed chunk aborts the call; earlier chunks stay applied.
func (b *TrackBatcher) AddTracks(ctx context.Context, playlistID string, tracks []models.Track) (AddResult, error) {
	var res AddResult
	if len(tracks) > b.maxTracks {
		res.Truncated = len(tracks) - b.maxTracks
		b.logger.Warn("track list truncated", "playlist", playlistID, "dropped", res.Truncated)
		tracks = tracks[:b.maxTracks]
	}

	seen := make(map[string]struct{}, len(tracks))
	pending := make([]string, 0, services.MaxBatchSize)
	flush := func() error {
		if len(pending) == 0 {
			return nil
		}
		if err := b.svc.AddItems(ctx, playlistID, pending); err != nil {
			return fmt.Errorf("add tracks to %s: %w", playlistID, err)
		}
		res.Added += len(pending)
		res.Chunks = append(res.Chunks, len(pending))
		pending = make([]string, 0, services.MaxBatchSize)
		return nil
	}

	for _, t := range tracks {
		resolved, hit, err := b.resolver.Resolve(ctx, t)
		if err != nil {
			return res, err
		}
		res.Processed++
		if hit {
			res.CacheHits++
		}
		if resolved == nil {
			res.Unresolved++
			continue
		}
		if _, dup := seen[resolved.URI]; dup {
			continue
		}
		seen[resolved.URI] = struct{}{}

		pending = append(pending, resolved.URI)
		if len(pending) == services.MaxBatchSize {
			if err := flush(); err != nil {
				return res, err
			}
		}
	}
	return res, flush()
}

func unique(uris []string) []string {
	seen := make(map[string]struct{}, len(uris))
	out := make([]string, 0, len(uris))
	for _, u := range uris {
		if _, ok := seen[u]; ok {
			continue
		}
		seen[u] = struct{}{}
		out = append(out, u)
	}
	return out
}

func chunks(items []string, size int) [][]string {
	var out [][]string
	for len(items) > size {
		out = append(out, items[:size])
		items = items[size:]
	}
	if len(items) > 0 {
		out = append(out, items)
	}
	return out
}
