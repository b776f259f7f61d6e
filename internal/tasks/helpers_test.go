package tasks

import (
	"context"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/desertthunder/radiosync/internal/cache"
	"github.com/desertthunder/radiosync/internal/models"
	"github.com/desertthunder/radiosync/internal/services"
	"github.com/desertthunder/radiosync/internal/shared"
	tu "github.com/desertthunder/radiosync/internal/testing"
)

var fixedNow = time.Date(2026, 10, 13, 12, 0, 0, 0, time.UTC)

// harness wires the real services against a fake API.
type harness struct {
	fake       *tu.FakeSpotify
	tokens     *services.TokenManager
	svc        *services.SpotifyService
	store      *cache.MemoryStore
	cache      *cache.Cache
	resolver   *TrackResolver
	batcher    *TrackBatcher
	reconciler *PlaylistReconciler
	pauses     []time.Duration
}

func newHarness(t *testing.T, opts ReconcilerOptions) *harness {
	t.Helper()
	return newHarnessWith(t, tu.NewFakeSpotify(t), opts, DefaultMaxTracks)
}

func newHarnessWith(t *testing.T, fake *tu.FakeSpotify, opts ReconcilerOptions, maxTracks int) *harness {
	t.Helper()
	logger := shared.NewLogger(io.Discard)

	cfg := shared.DefaultConfig().Spotify
	cfg.APIURL = fake.APIURL()
	cfg.AccountsURL = fake.AccountsURL()
	cfg.RequestsPerSecond = 0

	creds := services.Credentials{ClientID: tu.FakeClientID, ClientSecret: tu.FakeClientSecret, RefreshToken: tu.FakeRefreshToken}
	tokens := services.NewTokenManager(creds, cfg, fake.Server.Client(), logger)
	svc := services.NewSpotifyService(cfg, tokens, fake.Server.Client(), logger)

	store := cache.NewMemoryStore(nil)
	c, err := cache.Open(context.Background(), store, cache.WithClock(func() time.Time { return fixedNow }))
	if err != nil {
		t.Fatalf("failed to open cache: %v", err)
	}

	h := &harness{fake: fake, tokens: tokens, svc: svc, store: store, cache: c}
	h.resolver = NewTrackResolver(svc, c, logger)
	h.resolver.sleep = func(_ context.Context, d time.Duration) error {
		h.pauses = append(h.pauses, d)
		return nil
	}
	h.batcher = NewTrackBatcher(svc, h.resolver, maxTracks, logger)

	if opts.Now == nil {
		opts.Now = func() time.Time { return fixedNow }
	}
	h.reconciler = NewPlaylistReconciler(svc, tokens, h.batcher, opts, logger)
	return h
}

func numberedTracks(n int) []models.Track {
	out := make([]models.Track, n)
	for i := range out {
		out[i] = models.Track{Artist: fmt.Sprintf("Artist %d", i), Song: fmt.Sprintf("Song %d", i)}
	}
	return out
}

func showGroup(station, title string, id uint64, tracks []models.Track) models.ShowGroup {
	return models.ShowGroup{
		Station:  station,
		Title:    title,
		Episodes: []models.ShowEpisode{{Show: models.Show{ID: id, Title: title}, Tracks: tracks}},
	}
}

func itemCounts(calls []tu.Call) []int {
	out := make([]int, 0, len(calls))
	for _, c := range calls {
		out = append(out, c.Items)
	}
	return out
}

func equalInts(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
