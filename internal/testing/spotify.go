package testing

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
)

// Credentials accepted by [FakeSpotify] on its token endpoint.
const (
	FakeClientID     = "client-id"
	FakeClientSecret = "client-secret"
	FakeRefreshToken = "refresh-token"
	FakeAuthCode     = "auth-code"
)

// FakePlaylist is a playlist held by [FakeSpotify].
type FakePlaylist struct {
	ID          string
	Name        string
	Description string
	OwnerID     string
	Public      bool
	URIs        []string
}

// Call is one request received by [FakeSpotify].
type Call struct {
	Method string
	Path   string
	// Items is the number of track references in a mutating body.
	Items int
}

// FakeSpotify is an in-memory stand-in for the playlist API served over httptest.
//
// Every field may be set before the first request; use the methods afterwards.
type FakeSpotify struct {
	Server *httptest.Server

	UserID string
	// Misses lists "artist - song" pairs that search finds nothing for.
	Misses map[string]bool
	// RejectCreates is the number of create calls answered with 401 before succeeding.
	RejectCreates int
	// OmitAccessToken makes the token endpoint answer without an access_token.
	OmitAccessToken bool
	// RotateRefreshToken, when set, is returned as the new refresh token.
	RotateRefreshToken string
	// FailMutationAfter fails the nth add-tracks call (1-based) with 500; 0 disables.
	FailMutationAfter int
	// FailSearch answers every search with 503.
	FailSearch bool

	mu          sync.Mutex
	accessToken string
	tokenSerial int
	nextID      int
	playlists   []*FakePlaylist
	catalog     map[string]string
	calls       []Call
	adds        int
}

// NewFakeSpotify starts a fake API that is closed when the test ends.
func NewFakeSpotify(t *testing.T) *FakeSpotify {
	t.Helper()
	f := &FakeSpotify{UserID: "radio-user", Misses: map[string]bool{}, catalog: map[string]string{}}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/token", f.handleToken)
	mux.HandleFunc("GET /v1/me", f.authorized(f.handleMe))
	mux.HandleFunc("GET /v1/me/playlists", f.authorized(f.handleListPlaylists))
	mux.HandleFunc("POST /v1/users/{user}/playlists", f.authorized(f.handleCreate))
	mux.HandleFunc("GET /v1/playlists/{id}/tracks", f.authorized(f.handleListItems))
	mux.HandleFunc("POST /v1/playlists/{id}/tracks", f.authorized(f.handleAddItems))
	mux.HandleFunc("DELETE /v1/playlists/{id}/tracks", f.authorized(f.handleRemoveItems))
	mux.HandleFunc("PUT /v1/playlists/{id}", f.authorized(f.handleUpdate))
	mux.HandleFunc("DELETE /v1/playlists/{id}/followers", f.authorized(f.handleUnfollow))
	mux.HandleFunc("GET /v1/search", f.authorized(f.handleSearch))

	f.Server = httptest.NewServer(mux)
	t.Cleanup(f.Server.Close)
	return f
}

// APIURL is the base URL of the web API.
func (f *FakeSpotify) APIURL() string { return f.Server.URL + "/v1" }

// AccountsURL is the base URL of the accounts service.
func (f *FakeSpotify) AccountsURL() string { return f.Server.URL }

// TokenURL is the refresh endpoint.
func (f *FakeSpotify) TokenURL() string { return f.Server.URL + "/api/token" }

// AddPlaylist seeds a playlist, assigning an ID and owner when empty.
func (f *FakeSpotify) AddPlaylist(p FakePlaylist) *FakePlaylist {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p.ID == "" {
		p.ID = f.newID("pl")
	}
	if p.OwnerID == "" {
		p.OwnerID = f.UserID
	}
	f.playlists = append(f.playlists, &p)
	return &p
}

// Playlists returns a snapshot of every playlist still followed.
func (f *FakeSpotify) Playlists() []FakePlaylist {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]FakePlaylist, 0, len(f.playlists))
	for _, p := range f.playlists {
		cp := *p
		cp.URIs = append([]string(nil), p.URIs...)
		out = append(out, cp)
	}
	return out
}

// PlaylistNamed returns the first playlist with that name.
func (f *FakeSpotify) PlaylistNamed(name string) (FakePlaylist, bool) {
	for _, p := range f.Playlists() {
		if p.Name == name {
			return p, true
		}
	}
	return FakePlaylist{}, false
}

// Calls returns every API request received so far, excluding token requests.
func (f *FakeSpotify) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Call(nil), f.calls...)
}

// CallsMatching returns calls with that method whose path ends with suffix.
func (f *FakeSpotify) CallsMatching(method, suffix string) []Call {
	var out []Call
	for _, c := range f.Calls() {
		if c.Method == method && strings.HasSuffix(c.Path, suffix) {
			out = append(out, c)
		}
	}
	return out
}

// TokenRequests returns how many times the token endpoint issued a token.
func (f *FakeSpotify) TokenRequests() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.tokenSerial
}

// ResetCalls forgets recorded calls.
func (f *FakeSpotify) ResetCalls() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = nil
}

// ExpireToken invalidates the issued access token so the next API call gets a 401.
func (f *FakeSpotify) ExpireToken() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.accessToken = "expired"
}

// TrackURI returns the URI search resolves "artist - song" to.
func (f *FakeSpotify) TrackURI(artist, song string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return "spotify:track:" + f.trackID(artist, song)
}

func (f *FakeSpotify) trackID(artist, song string) string {
	key := strings.ToLower(artist + " - " + song)
	id, ok := f.catalog[key]
	if !ok {
		id = fmt.Sprintf("trk%05d", len(f.catalog)+1)
		f.catalog[key] = id
	}
	return id
}

func (f *FakeSpotify) newID(prefix string) string {
	f.nextID++
	return fmt.Sprintf("%s%04d", prefix, f.nextID)
}

func (f *FakeSpotify) find(id string) *FakePlaylist {
	for _, p := range f.playlists {
		if p.ID == id {
			return p
		}
	}
	return nil
}

func (f *FakeSpotify) record(r *http.Request, items int) {
	f.calls = append(f.calls, Call{Method: r.Method, Path: r.URL.Path, Items: items})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"error": map[string]any{"status": status, "message": msg}})
}

func (f *FakeSpotify) authorized(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		ok := f.accessToken != "" && r.Header.Get("Authorization") == "Bearer "+f.accessToken
		f.mu.Unlock()
		if !ok {
			writeError(w, http.StatusUnauthorized, "The access token expired")
			return
		}
		next(w, r)
	}
}

func (f *FakeSpotify) handleToken(w http.ResponseWriter, r *http.Request) {
	id, secret, ok := r.BasicAuth()
	if !ok || id != FakeClientID || secret != FakeClientSecret {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid_client"})
		return
	}
	if err := r.ParseForm(); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_request"})
		return
	}

	switch r.PostForm.Get("grant_type") {
	case "refresh_token":
		f.mu.Lock()
		valid := r.PostForm.Get("refresh_token") == FakeRefreshToken || (f.RotateRefreshToken != "" && r.PostForm.Get("refresh_token") == f.RotateRefreshToken)
		f.mu.Unlock()
		if !valid {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_grant"})
			return
		}
	case "authorization_code":
		if r.PostForm.Get("code") != FakeAuthCode {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_grant"})
			return
		}
	default:
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unsupported_grant_type"})
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.OmitAccessToken {
		writeJSON(w, http.StatusOK, map[string]any{"token_type": "Bearer", "expires_in": 3600})
		return
	}
	f.tokenSerial++
	f.accessToken = fmt.Sprintf("access-%d", f.tokenSerial)
	body := map[string]any{"access_token": f.accessToken, "token_type": "Bearer", "expires_in": 3600}
	if r.PostForm.Get("grant_type") == "authorization_code" {
		body["refresh_token"] = FakeRefreshToken
	} else if f.RotateRefreshToken != "" {
		body["refresh_token"] = f.RotateRefreshToken
	}
	writeJSON(w, http.StatusOK, body)
}

func (f *FakeSpotify) handleMe(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record(r, 0)
	writeJSON(w, http.StatusOK, map[string]any{"id": f.UserID, "display_name": "Radio"})
}

// page slices n items by the limit and offset query parameters, returning the next URL.
func (f *FakeSpotify) page(r *http.Request, n, maxLimit int) (start, end int, next any) {
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit <= 0 || limit > maxLimit {
		limit = maxLimit
	}
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	start = min(offset, n)
	end = min(offset+limit, n)
	if end < n {
		next = fmt.Sprintf("%s%s?limit=%d&offset=%d", f.Server.URL, r.URL.Path, limit, end)
	}
	return start, end, next
}

func (f *FakeSpotify) handleListPlaylists(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record(r, 0)

	start, end, next := f.page(r, len(f.playlists), 50)
	items := make([]map[string]any, 0, end-start)
	for _, p := range f.playlists[start:end] {
		items = append(items, map[string]any{
			"id":            p.ID,
			"name":          p.Name,
			"description":   p.Description,
			"public":        p.Public,
			"owner":         map[string]any{"id": p.OwnerID},
			"tracks":        map[string]any{"total": len(p.URIs)},
			"external_urls": map[string]any{"spotify": "https://open.spotify.com/playlist/" + p.ID},
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items, "total": len(f.playlists), "next": next})
}

func (f *FakeSpotify) handleCreate(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name        string `json:"name"`
		Description string `json:"description"`
		Public      bool   `json:"public"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Name == "" {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.record(r, 0)
	if f.RejectCreates > 0 {
		f.RejectCreates--
		writeError(w, http.StatusUnauthorized, "The access token expired")
		return
	}
	if r.PathValue("user") != f.UserID {
		writeError(w, http.StatusForbidden, "cannot create playlists for another user")
		return
	}

	p := &FakePlaylist{ID: f.newID("pl"), Name: body.Name, Description: body.Description, OwnerID: f.UserID, Public: body.Public}
	f.playlists = append(f.playlists, p)
	writeJSON(w, http.StatusCreated, map[string]any{
		"id":            p.ID,
		"name":          p.Name,
		"description":   p.Description,
		"public":        p.Public,
		"owner":         map[string]any{"id": p.OwnerID},
		"tracks":        map[string]any{"total": 0},
		"external_urls": map[string]any{"spotify": "https://open.spotify.com/playlist/" + p.ID},
	})
}

func (f *FakeSpotify) handleListItems(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record(r, 0)

	p := f.find(r.PathValue("id"))
	if p == nil {
		writeError(w, http.StatusNotFound, "playlist not found")
		return
	}
	start, end, next := f.page(r, len(p.URIs), 100)
	items := make([]map[string]any, 0, end-start)
	for _, uri := range p.URIs[start:end] {
		items = append(items, map[string]any{"track": map[string]any{"uri": uri}})
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items, "total": len(p.URIs), "next": next})
}

func (f *FakeSpotify) handleAddItems(w http.ResponseWriter, r *http.Request) {
	var body struct {
		URIs []string `json:"uris"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.record(r, len(body.URIs))
	f.adds++
	if f.FailMutationAfter > 0 && f.adds == f.FailMutationAfter {
		writeError(w, http.StatusInternalServerError, "server error")
		return
	}
	if len(body.URIs) > 100 {
		writeError(w, http.StatusBadRequest, "too many tracks")
		return
	}
	p := f.find(r.PathValue("id"))
	if p == nil {
		writeError(w, http.StatusNotFound, "playlist not found")
		return
	}
	p.URIs = append(p.URIs, body.URIs...)
	writeJSON(w, http.StatusCreated, map[string]any{"snapshot_id": f.newID("snap")})
}

func (f *FakeSpotify) handleRemoveItems(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Tracks []struct {
			URI string `json:"uri"`
		} `json:"tracks"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.record(r, len(body.Tracks))
	if len(body.Tracks) > 100 {
		writeError(w, http.StatusBadRequest, "too many tracks")
		return
	}
	p := f.find(r.PathValue("id"))
	if p == nil {
		writeError(w, http.StatusNotFound, "playlist not found")
		return
	}
	remove := make(map[string]bool, len(body.Tracks))
	for _, t := range body.Tracks {
		remove[t.URI] = true
	}
	kept := p.URIs[:0]
	for _, uri := range p.URIs {
		if !remove[uri] {
			kept = append(kept, uri)
		}
	}
	p.URIs = kept
	writeJSON(w, http.StatusOK, map[string]any{"snapshot_id": f.newID("snap")})
}

func (f *FakeSpotify) handleUpdate(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Description *string `json:"description"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.record(r, 0)
	p := f.find(r.PathValue("id"))
	if p == nil {
		writeError(w, http.StatusNotFound, "playlist not found")
		return
	}
	if body.Description != nil {
		p.Description = *body.Description
	}
	w.WriteHeader(http.StatusOK)
}

func (f *FakeSpotify) handleUnfollow(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record(r, 0)
	id := r.PathValue("id")
	for i, p := range f.playlists {
		if p.ID == id {
			f.playlists = append(f.playlists[:i], f.playlists[i+1:]...)
			w.WriteHeader(http.StatusOK)
			return
		}
	}
	writeError(w, http.StatusNotFound, "playlist not found")
}

func (f *FakeSpotify) handleSearch(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record(r, 0)
	if f.FailSearch {
		writeError(w, http.StatusServiceUnavailable, "search unavailable")
		return
	}

	q := r.URL.Query().Get("q")
	song, artist, ok := strings.Cut(strings.TrimPrefix(q, "track:"), " artist:")
	if !ok || r.URL.Query().Get("type") != "track" {
		writeError(w, http.StatusBadRequest, "unsupported query")
		return
	}

	items := []map[string]any{}
	if !f.Misses[artist+" - "+song] {
		id := f.trackID(artist, song)
		items = append(items, map[string]any{
			"id":      id,
			"name":    song,
			"uri":     "spotify:track:" + id,
			"artists": []map[string]any{{"id": "art-" + id, "name": artist}},
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"tracks": map[string]any{"items": items, "next": nil}})
}
