package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/desertthunder/radiosync/internal/shared"
	tu "github.com/desertthunder/radiosync/internal/testing"
)

// staticToken is a [TokenSource] that never refreshes.
type staticToken string

func (s staticToken) Token(context.Context) (string, error) { return string(s), nil }

func newTestService(t *testing.T) (*SpotifyService, *tu.FakeSpotify) {
	t.Helper()
	fake := tu.NewFakeSpotify(t)
	tm := newTokenManager(fake, fakeCredentials())
	return NewSpotifyService(fakeConfig(fake), tm, fake.Server.Client(), shared.NewLogger(io.Discard)), fake
}

func uris(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("spotify:track:%04d", i)
	}
	return out
}

func TestSpotifyService(t *testing.T) {
	ctx := context.Background()

	t.Run("Name", func(t *testing.T) {
		srv, _ := newTestService(t)
		if srv.Name() != "Spotify" {
			t.Errorf("expected service name 'Spotify', got %s", srv.Name())
		}
	})

	t.Run("CurrentUser", func(t *testing.T) {
		srv, fake := newTestService(t)
		user, err := srv.CurrentUser(ctx)
		if err != nil {
			t.Fatalf("CurrentUser() error = %v", err)
		}
		if user.ID != fake.UserID {
			t.Errorf("expected %s, got %s", fake.UserID, user.ID)
		}
	})

	t.Run("UserPlaylists follows the next cursor", func(t *testing.T) {
		srv, fake := newTestService(t)
		for i := range 120 {
			fake.AddPlaylist(tu.FakePlaylist{Name: fmt.Sprintf("P%03d", i)})
		}

		var names []string
		next := ""
		pages := 0
		for {
			page, err := srv.UserPlaylists(ctx, next)
			if err != nil {
				t.Fatalf("UserPlaylists() error = %v", err)
			}
			pages++
			for _, p := range page.Items {
				names = append(names, p.Name)
			}
			if page.Next == nil {
				break
			}
			next = *page.Next
		}

		if pages != 3 || len(names) != 120 {
			t.Fatalf("expected 120 playlists over 3 pages, got %d over %d", len(names), pages)
		}
		if names[0] != "P000" || names[119] != "P119" {
			t.Errorf("listing out of order: first %s last %s", names[0], names[119])
		}
	})

	t.Run("CreatePlaylist and mutate items", func(t *testing.T) {
		srv, fake := newTestService(t)
		created, err := srv.CreatePlaylist(ctx, fake.UserID, "KALX - Show", "Generated from Spinitron playlists.")
		if err != nil {
			t.Fatalf("CreatePlaylist() error = %v", err)
		}
		if created.ID == "" || created.ExternalURLs.Spotify == "" {
			t.Errorf("incomplete created playlist: %+v", created)
		}

		if err := srv.AddItems(ctx, created.ID, uris(3)); err != nil {
			t.Fatalf("AddItems() error = %v", err)
		}
		if err := srv.RemoveItems(ctx, created.ID, uris(3)[:1]); err != nil {
			t.Fatalf("RemoveItems() error = %v", err)
		}
		if err := srv.UpdateDescription(ctx, created.ID, "new"); err != nil {
			t.Fatalf("UpdateDescription() error = %v", err)
		}

		page, err := srv.PlaylistItems(ctx, created.ID, "")
		if err != nil {
			t.Fatalf("PlaylistItems() error = %v", err)
		}
		got := page.URIs()
		if len(got) != 2 || got[0] != uris(3)[1] {
			t.Errorf("unexpected items %v", got)
		}

		p, _ := fake.PlaylistNamed("KALX - Show")
		if p.Description != "new" || !p.Public {
			t.Errorf("unexpected playlist state %+v", p)
		}

		if err := srv.Unfollow(ctx, created.ID); err != nil {
			t.Fatalf("Unfollow() error = %v", err)
		}
		if _, ok := fake.PlaylistNamed("KALX - Show"); ok {
			t.Error("playlist should be gone after unfollow")
		}
	})

	t.Run("batch ceiling", func(t *testing.T) {
		srv, fake := newTestService(t)
		err := srv.AddItems(ctx, "pl", uris(MaxBatchSize+1))
		if !errors.Is(err, shared.ErrValidation) {
			t.Errorf("expected ErrValidation, got %v", err)
		}
		if err := srv.RemoveItems(ctx, "pl", nil); !errors.Is(err, shared.ErrValidation) {
			t.Errorf("expected ErrValidation for empty batch, got %v", err)
		}
		if len(fake.Calls()) != 0 {
			t.Errorf("oversized batches must not reach the API, got %v", fake.Calls())
		}
	})

	t.Run("SearchTrack", func(t *testing.T) {
		srv, fake := newTestService(t)
		fake.Misses["Nobody - Nothing"] = true

		track, err := srv.SearchTrack(ctx, "Loscil", "Bell Flame")
		if err != nil {
			t.Fatalf("SearchTrack() error = %v", err)
		}
		if track == nil || track.URI != fake.TrackURI("Loscil", "Bell Flame") {
			t.Fatalf("unexpected track %+v", track)
		}
		resolved := track.Resolved()
		if len(resolved.Artists) != 1 || resolved.Artists[0] != "Loscil" {
			t.Errorf("unexpected artists %v", resolved.Artists)
		}

		missing, err := srv.SearchTrack(ctx, "Nobody", "Nothing")
		if err != nil || missing != nil {
			t.Errorf("expected no match, got %+v, %v", missing, err)
		}
	})

	t.Run("non-success status is an APIError", func(t *testing.T) {
		srv, _ := newTestService(t)
		err := srv.UpdateDescription(ctx, "does-not-exist", "x")

		var apiErr *shared.APIError
		if !errors.As(err, &apiErr) {
			t.Fatalf("expected APIError, got %v", err)
		}
		if apiErr.StatusCode != http.StatusNotFound || apiErr.Endpoint != "/v1/playlists/does-not-exist" {
			t.Errorf("unexpected error %+v", apiErr)
		}
		if !IsNotFound(err) || !errors.Is(err, shared.ErrAPI) {
			t.Errorf("expected a not found API error")
		}
	})

	t.Run("401 propagates without retry", func(t *testing.T) {
		srv, fake := newTestService(t)
		if _, err := srv.CurrentUser(ctx); err != nil {
			t.Fatal(err)
		}
		fake.ExpireToken()

		_, err := srv.CurrentUser(ctx)
		if !shared.IsUnauthorized(err) {
			t.Errorf("expected 401, got %v", err)
		}
		if fake.TokenRequests() != 1 {
			t.Errorf("read calls must not reauthenticate, got %d exchanges", fake.TokenRequests())
		}
	})

	t.Run("transport failure is a NetworkError", func(t *testing.T) {
		rt := tu.NewMockRoundTripper(nil, errors.New("connection reset"))
		srv := NewSpotifyService(shared.DefaultConfig().Spotify, staticToken("t"), &http.Client{Transport: rt}, shared.NewLogger(io.Discard))

		if _, err := srv.CurrentUser(ctx); !errors.Is(err, shared.ErrNetwork) {
			t.Errorf("expected ErrNetwork, got %v", err)
		}
	})

	t.Run("unreadable body is a NetworkError", func(t *testing.T) {
		resp := &http.Response{StatusCode: http.StatusOK, Body: &tu.FCloser{}, Header: http.Header{}}
		srv := NewSpotifyService(shared.DefaultConfig().Spotify, staticToken("t"), &http.Client{Transport: tu.NewMockRoundTripper(resp, nil)}, shared.NewLogger(io.Discard))

		if _, err := srv.CurrentUser(ctx); !errors.Is(err, shared.ErrNetwork) {
			t.Errorf("expected ErrNetwork, got %v", err)
		}
	})

	t.Run("missing token reports not authenticated", func(t *testing.T) {
		srv := NewSpotifyService(shared.DefaultConfig().Spotify, nil, nil, shared.NewLogger(io.Discard))
		if _, err := srv.CurrentUser(ctx); !errors.Is(err, shared.ErrNotAuthenticated) {
			t.Errorf("expected ErrNotAuthenticated, got %v", err)
		}
	})
}

func TestSpotifyServiceParseErrors(t *testing.T) {
	ctx := context.Background()

	tc := []struct {
		name string
		body string
		call func(s *SpotifyService) error
	}{
		{
			name: "malformed json",
			body: `{"id":`,
			call: func(s *SpotifyService) error { _, err := s.CurrentUser(ctx); return err },
		},
		{
			name: "user without id",
			body: `{"display_name":"x"}`,
			call: func(s *SpotifyService) error { _, err := s.CurrentUser(ctx); return err },
		},
		{
			name: "playlist without name",
			body: `{"items":[{"id":"p1"}],"next":null}`,
			call: func(s *SpotifyService) error { _, err := s.UserPlaylists(ctx, ""); return err },
		},
		{
			name: "search without tracks",
			body: `{}`,
			call: func(s *SpotifyService) error { _, err := s.SearchTrack(ctx, "a", "b"); return err },
		},
		{
			name: "search track without uri",
			body: `{"tracks":{"items":[{"id":"t1","name":"b"}]}}`,
			call: func(s *SpotifyService) error { _, err := s.SearchTrack(ctx, "a", "b"); return err },
		},
		{
			name: "item without uri",
			body: `{"items":[{"track":{}}],"next":null}`,
			call: func(s *SpotifyService) error { _, err := s.PlaylistItems(ctx, "p1", ""); return err },
		},
		{
			name: "add without snapshot",
			body: `{}`,
			call: func(s *SpotifyService) error { return s.AddItems(ctx, "p1", []string{"spotify:track:1"}) },
		},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if !strings.HasPrefix(r.Header.Get("Authorization"), "Bearer ") {
					t.Errorf("missing bearer token")
				}
				w.Header().Set("Content-Type", "application/json")
				io.WriteString(w, tt.body)
			}))
			defer server.Close()

			cfg := shared.DefaultConfig().Spotify
			cfg.APIURL = server.URL
			cfg.RequestsPerSecond = 0
			srv := NewSpotifyService(cfg, staticToken("t"), server.Client(), shared.NewLogger(io.Discard))

			if err := tt.call(srv); !errors.Is(err, shared.ErrParse) {
				t.Errorf("expected ErrParse, got %v", err)
			}
		})
	}
}

func TestPlaylistItemsSkipsUnavailableTracks(t *testing.T) {
	page := SpotifyPaginatedItems{Items: []SpotifyPlaylistItem{{Track: &trackRef{URI: "a"}}, {Track: nil}, {Track: &trackRef{URI: "b"}}}}
	got := page.URIs()
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Errorf("URIs() = %v", got)
	}
}

func TestRequestLimiter(t *testing.T) {
	cfg := shared.DefaultConfig().Spotify
	cfg.RequestsPerSecond = 5
	srv := NewSpotifyService(cfg, staticToken("t"), nil, shared.NewLogger(io.Discard))
	if srv.limiter == nil {
		t.Fatal("expected limiter when requests_per_second is positive")
	}

	cfg.RequestsPerSecond = 0
	if NewSpotifyService(cfg, staticToken("t"), nil, nil).limiter != nil {
		t.Error("expected no limiter when requests_per_second is zero")
	}
}
