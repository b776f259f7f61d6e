package services

import "context"

// PlaylistService is the set of playlist system operations the sync engine drives.
//
// [SpotifyService] implements it; tests substitute the in-memory fake server instead of a mock.
type PlaylistService interface {
	// CurrentUser returns the profile of the authenticated user.
	CurrentUser(ctx context.Context) (*SpotifyUser, error)

	// UserPlaylists returns one page of the user's playlists, starting at cursor next ("" for the first page).
	UserPlaylists(ctx context.Context, next string) (*SpotifyPaginatedPlaylists, error)

	// CreatePlaylist creates a public playlist.
	CreatePlaylist(ctx context.Context, userID, name, description string) (*SpotifySimplePlaylist, error)

	// PlaylistItems returns one page of a playlist's track references.
	PlaylistItems(ctx context.Context, playlistID, next string) (*SpotifyPaginatedItems, error)

	// AddItems appends at most [MaxBatchSize] references.
	AddItems(ctx context.Context, playlistID string, uris []string) error

	// RemoveItems removes at most [MaxBatchSize] references.
	RemoveItems(ctx context.Context, playlistID string, uris []string) error

	// UpdateDescription replaces the playlist description.
	UpdateDescription(ctx context.Context, playlistID, description string) error

	// Unfollow removes the playlist from the user's library.
	Unfollow(ctx context.Context, playlistID string) error
}

// TrackSearcher finds the remote track for an (artist, song) pair. A nil track with a nil error means no match.
type TrackSearcher interface {
	SearchTrack(ctx context.Context, artist, song string) (*SpotifyTrack, error)
}

// Authenticator re-runs the credential exchange after an authorization failure.
type Authenticator interface {
	Acquire(ctx context.Context) (string, error)
}

var (
	_ PlaylistService = (*SpotifyService)(nil)
	_ TrackSearcher   = (*SpotifyService)(nil)
	_ Authenticator   = (*TokenManager)(nil)
	_ TokenSource     = (*TokenManager)(nil)
)
