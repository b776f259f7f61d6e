// Spotify Web API client used by the sync engine.
//
// Response types are based on https://developer.spotify.com/documentation/web-api/reference/
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/radiosync/internal/models"
	"github.com/desertthunder/radiosync/internal/shared"
	"golang.org/x/time/rate"
)

// MaxBatchSize is the number of track references accepted by one mutating call.
const MaxBatchSize = 100

const (
	playlistPageSize = 50
	itemsPageSize    = 100
	maxErrorBody     = 4096
)

// validator is implemented by response types with required fields.
type validator interface {
	validate() error
}

func missing(kind, field string) error {
	return fmt.Errorf("%w: %s without %s", shared.ErrParse, kind, field)
}

// SpotifyUser is the profile returned by GET /me.
type SpotifyUser struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

func (u *SpotifyUser) validate() error {
	if u.ID == "" {
		return missing("user", "id")
	}
	return nil
}

// SpotifyArtist is the simplified artist object.
type SpotifyArtist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// SpotifyTrack is the track object returned by search.
type SpotifyTrack struct {
	ID      string          `json:"id"`
	Name    string          `json:"name"`
	Artists []SpotifyArtist `json:"artists"`
	URI     string          `json:"uri"`
}

func (t *SpotifyTrack) validate() error {
	if t.ID == "" {
		return missing("track", "id")
	}
	if t.URI == "" {
		return missing("track", "uri")
	}
	return nil
}

// Resolved converts t to the cacheable model.
func (t *SpotifyTrack) Resolved() *models.ResolvedTrack {
	artists := make([]string, 0, len(t.Artists))
	for _, a := range t.Artists {
		artists = append(artists, a.Name)
	}
	return &models.ResolvedTrack{ID: t.ID, Name: t.Name, Artists: artists, URI: t.URI}
}

// Owner identifies the user owning a playlist.
type Owner struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

type externalURLs struct {
	Spotify string `json:"spotify"`
}

type playlistTracksRef struct {
	Total int `json:"total"`
}

// SpotifySimplePlaylist is the playlist object used in listings and returned on create.
type SpotifySimplePlaylist struct {
	ID           string            `json:"id"`
	Name         string            `json:"name"`
	Description  string            `json:"description"`
	Owner        Owner             `json:"owner"`
	Public       bool              `json:"public"`
	Tracks       playlistTracksRef `json:"tracks"`
	ExternalURLs externalURLs      `json:"external_urls"`
}

func (p *SpotifySimplePlaylist) validate() error {
	if p.ID == "" {
		return missing("playlist", "id")
	}
	if p.Name == "" {
		return missing("playlist", "name")
	}
	return nil
}

// SpotifyPaginatedPlaylists is one page of GET /me/playlists.
type SpotifyPaginatedPlaylists struct {
	Items []SpotifySimplePlaylist `json:"items"`
	Total int                     `json:"total"`
	Next  *string                 `json:"next"`
}

func (p *SpotifyPaginatedPlaylists) validate() error {
	for i := range p.Items {
		if err := p.Items[i].validate(); err != nil {
			return err
		}
	}
	return nil
}

type trackRef struct {
	URI string `json:"uri"`
}

// SpotifyPlaylistItem is an entry of a playlist. Track is nil for items that are no longer available.
type SpotifyPlaylistItem struct {
	Track *trackRef `json:"track"`
}

// SpotifyPaginatedItems is one page of GET /playlists/{id}/tracks.
type SpotifyPaginatedItems struct {
	Items []SpotifyPlaylistItem `json:"items"`
	Total int                   `json:"total"`
	Next  *string               `json:"next"`
}

func (p *SpotifyPaginatedItems) validate() error {
	for _, item := range p.Items {
		if item.Track != nil && item.Track.URI == "" {
			return missing("playlist item", "uri")
		}
	}
	return nil
}

// URIs returns the references of every available item in page order.
func (p *SpotifyPaginatedItems) URIs() []string {
	uris := make([]string, 0, len(p.Items))
	for _, item := range p.Items {
		if item.Track != nil {
			uris = append(uris, item.Track.URI)
		}
	}
	return uris
}

type searchResponse struct {
	Tracks *struct {
		Items []SpotifyTrack `json:"items"`
	} `json:"tracks"`
}

func (s *searchResponse) validate() error {
	if s.Tracks == nil {
		return missing("search response", "tracks")
	}
	for i := range s.Tracks.Items {
		if err := s.Tracks.Items[i].validate(); err != nil {
			return err
		}
	}
	return nil
}

type snapshotResponse struct {
	SnapshotID string `json:"snapshot_id"`
}

func (s *snapshotResponse) validate() error {
	if s.SnapshotID == "" {
		return missing("mutation response", "snapshot_id")
	}
	return nil
}

// TokenSource supplies bearer tokens for API calls.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// SpotifyService is a typed client for the playlist endpoints the sync engine needs.
//
// Calls are issued one at a time by the caller; the service adds no retries.
type SpotifyService struct {
	baseURL    string
	tokens     TokenSource
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *log.Logger
}

// NewSpotifyService creates a client for the API at cfg.APIURL.
//
// A positive cfg.RequestsPerSecond throttles every call through a [rate.Limiter].
func NewSpotifyService(cfg shared.SpotifyConfig, tokens TokenSource, httpClient *http.Client, logger *log.Logger) *SpotifyService {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	s := &SpotifyService{
		baseURL:    strings.TrimRight(cfg.APIURL, "/"),
		tokens:     tokens,
		httpClient: httpClient,
		logger:     logger,
	}
	if cfg.RequestsPerSecond > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}
	return s
}

func (s *SpotifyService) Name() string {
	return "Spotify"
}

// doRequest performs an authenticated request and decodes the response into result.
//
// endpoint is either a path relative to the base URL or an absolute pagination URL.
// Transport failures wrap [shared.ErrNetwork], non-2xx responses are [*shared.APIError]
// and undecodable or incomplete payloads wrap [shared.ErrParse].
func (s *SpotifyService) doRequest(ctx context.Context, method, endpoint string, body, result any) error {
	if s.tokens == nil {
		return shared.ErrNotAuthenticated
	}

	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("%w: rate limiter: %w", shared.ErrNetwork, err)
		}
	}

	token, err := s.tokens.Token(ctx)
	if err != nil {
		return err
	}

	apiURL := endpoint
	if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		apiURL = s.baseURL + endpoint
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, apiURL, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	s.logger.Debug("spotify request", "method", method, "endpoint", endpointPath(apiURL))

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %w", shared.ErrNetwork, method, endpointPath(apiURL), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &shared.APIError{
			Method:     method,
			Endpoint:   endpointPath(apiURL),
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(msg)),
		}
	}

	if result == nil {
		return nil
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %w", shared.ErrNetwork, method, endpointPath(apiURL), err)
	}
	if err := json.Unmarshal(data, result); err != nil {
		return fmt.Errorf("%w: %s %s: %v", shared.ErrParse, method, endpointPath(apiURL), err)
	}
	if v, ok := result.(validator); ok {
		if err := v.validate(); err != nil {
			return fmt.Errorf("%s %s: %w", method, endpointPath(apiURL), err)
		}
	}
	return nil
}

// endpointPath strips scheme, host and query so errors and logs stay readable.
func endpointPath(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	return u.Path
}

// CurrentUser retrieves the profile of the token's owner.
func (s *SpotifyService) CurrentUser(ctx context.Context) (*SpotifyUser, error) {
	var user SpotifyUser
	if err := s.doRequest(ctx, http.MethodGet, "/me", nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// UserPlaylists retrieves one page of the current user's playlists.
//
// An empty next starts from the first page; otherwise next is the cursor of the previous page.
func (s *SpotifyService) UserPlaylists(ctx context.Context, next string) (*SpotifyPaginatedPlaylists, error) {
	endpoint := next
	if endpoint == "" {
		endpoint = fmt.Sprintf("/me/playlists?limit=%d&offset=0", playlistPageSize)
	}

	var page SpotifyPaginatedPlaylists
	if err := s.doRequest(ctx, http.MethodGet, endpoint, nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// CreatePlaylist creates a public playlist owned by userID.
func (s *SpotifyService) CreatePlaylist(ctx context.Context, userID, name, description string) (*SpotifySimplePlaylist, error) {
	body := map[string]any{"name": name, "description": description, "public": true}
	endpoint := fmt.Sprintf("/users/%s/playlists", url.PathEscape(userID))

	var playlist SpotifySimplePlaylist
	if err := s.doRequest(ctx, http.MethodPost, endpoint, body, &playlist); err != nil {
		return nil, err
	}
	return &playlist, nil
}

// PlaylistItems retrieves one page of a playlist's track references.
func (s *SpotifyService) PlaylistItems(ctx context.Context, playlistID, next string) (*SpotifyPaginatedItems, error) {
	endpoint := next
	if endpoint == "" {
		endpoint = fmt.Sprintf("/playlists/%s/tracks?limit=%d&offset=0&fields=%s",
			url.PathEscape(playlistID), itemsPageSize, url.QueryEscape("items(track(uri)),next,total"))
	}

	var page SpotifyPaginatedItems
	if err := s.doRequest(ctx, http.MethodGet, endpoint, nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

func checkBatch(uris []string) error {
	if len(uris) == 0 {
		return fmt.Errorf("%w: empty track batch", shared.ErrValidation)
	}
	if len(uris) > MaxBatchSize {
		return fmt.Errorf("%w: %d tracks exceeds the batch limit of %d", shared.ErrValidation, len(uris), MaxBatchSize)
	}
	return nil
}

// AddItems appends up to [MaxBatchSize] track references to a playlist.
func (s *SpotifyService) AddItems(ctx context.Context, playlistID string, uris []string) error {
	if err := checkBatch(uris); err != nil {
		return err
	}
	endpoint := fmt.Sprintf("/playlists/%s/tracks", url.PathEscape(playlistID))
	return s.doRequest(ctx, http.MethodPost, endpoint, map[string]any{"uris": uris}, &snapshotResponse{})
}

// RemoveItems removes every occurrence of up to [MaxBatchSize] track references from a playlist.
func (s *SpotifyService) RemoveItems(ctx context.Context, playlistID string, uris []string) error {
	if err := checkBatch(uris); err != nil {
		return err
	}
	tracks := make([]trackRef, 0, len(uris))
	for _, uri := range uris {
		tracks = append(tracks, trackRef{URI: uri})
	}
	endpoint := fmt.Sprintf("/playlists/%s/tracks", url.PathEscape(playlistID))
	return s.doRequest(ctx, http.MethodDelete, endpoint, map[string]any{"tracks": tracks}, &snapshotResponse{})
}

// UpdateDescription replaces a playlist's description.
func (s *SpotifyService) UpdateDescription(ctx context.Context, playlistID, description string) error {
	endpoint := fmt.Sprintf("/playlists/%s", url.PathEscape(playlistID))
	return s.doRequest(ctx, http.MethodPut, endpoint, map[string]any{"description": description}, nil)
}

// Unfollow removes a playlist from the current user's library, which deletes owned playlists.
func (s *SpotifyService) Unfollow(ctx context.Context, playlistID string) error {
	endpoint := fmt.Sprintf("/playlists/%s/followers", url.PathEscape(playlistID))
	return s.doRequest(ctx, http.MethodDelete, endpoint, nil, nil)
}

// SearchTrack returns the first track matching song and artist exactly, or nil when there is none.
func (s *SpotifyService) SearchTrack(ctx context.Context, artist, song string) (*SpotifyTrack, error) {
	params := url.Values{}
	params.Set("q", fmt.Sprintf("track:%s artist:%s", song, artist))
	params.Set("type", "track")
	params.Set("limit", "1")

	var response searchResponse
	if err := s.doRequest(ctx, http.MethodGet, "/search?"+params.Encode(), nil, &response); err != nil {
		return nil, err
	}
	if len(response.Tracks.Items) == 0 {
		return nil, nil
	}
	return &response.Tracks.Items[0], nil
}

// IsNotFound reports whether err is a 404 from the API.
func IsNotFound(err error) bool {
	var apiErr *shared.APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}
