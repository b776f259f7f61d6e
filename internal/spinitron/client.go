// Package spinitron reads station calendars and show playlists from spinitron.com.
package spinitron

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/radiosync/internal/models"
	"github.com/desertthunder/radiosync/internal/shared"
)

// DefaultBaseURL is the public site root.
const DefaultBaseURL = "https://spinitron.com"

const (
	feedTimeslot = "15"
	maxBody      = 8 << 20
)

// feedTimeLayouts are tried in order on calendar start and end values.
var feedTimeLayouts = []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02 15:04:05"}

// Client fetches calendar feeds and playlist pages. Playlist pages are cached below
// cacheDir when it is set; calendar feeds never are.
type Client struct {
	baseURL    string
	httpClient *http.Client
	cacheDir   string
	logger     *log.Logger
	now        func() time.Time
}

// Option configures a [Client].
type Option func(*Client)

// WithBaseURL points the client at another host.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

// WithCacheDir enables the on-disk page cache.
func WithCacheDir(dir string) Option {
	return func(c *Client) { c.cacheDir = dir }
}

// NewClient creates a client. A nil httpClient uses [http.DefaultClient].
func NewClient(httpClient *http.Client, logger *log.Logger, opts ...Option) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	c := &Client{baseURL: DefaultBaseURL, httpClient: httpClient, logger: logger, now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type feedItem struct {
	ID    uint64 `json:"id"`
	Title string `json:"title"`
	URL   string `json:"url"`
	Start string `json:"start"`
	End   string `json:"end"`
}

// FeedURL is the calendar feed address for one day of a station.
func (c *Client) FeedURL(station string, day time.Time) string {
	date := day.Format(time.DateOnly)
	q := url.Values{}
	q.Set("timeslot", feedTimeslot)
	q.Set("start", date+"T00:00:00")
	q.Set("end", date+"T23:59:59")
	q.Set("_", strconv.FormatInt(c.now().UnixMilli(), 10))
	return fmt.Sprintf("%s/%s/calendar-feed?%s", c.baseURL, url.PathEscape(station), q.Encode())
}

// ShowsForDate lists the shows a station aired on day. Items missing an id, title or
// url are dropped.
func (c *Client) ShowsForDate(ctx context.Context, station string, day time.Time) ([]models.Show, error) {
	body, err := c.get(ctx, c.FeedURL(station, day))
	if err != nil {
		return nil, err
	}

	var items []feedItem
	if err := json.Unmarshal(body, &items); err != nil {
		return nil, fmt.Errorf("%w: calendar feed for %s: %v", shared.ErrParse, station, err)
	}

	shows := make([]models.Show, 0, len(items))
	for _, it := range items {
		if it.ID == 0 || it.Title == "" || it.URL == "" {
			continue
		}
		shows = append(shows, models.Show{
			ID:    it.ID,
			Title: it.Title,
			URL:   c.absolute(it.URL),
			Start: parseFeedTime(it.Start),
			End:   parseFeedTime(it.End),
		})
	}
	c.logger.Debug("listed shows", "station", station, "date", day.Format(time.DateOnly), "shows", len(shows))
	return shows, nil
}

// Playlist fetches and parses the playlist page of show.
func (c *Client) Playlist(ctx context.Context, show models.Show) ([]models.Track, error) {
	if show.URL == "" {
		return nil, fmt.Errorf("%w: show %d has no url", shared.ErrInvalidArgument, show.ID)
	}

	if page, ok := c.cached(show.URL); ok {
		c.logger.Debug("using cached playlist", "show", show.ID)
		return ParsePlaylist(bytes.NewReader(page))
	}

	page, err := c.get(ctx, show.URL)
	if err != nil {
		return nil, err
	}
	c.store(show.URL, page)
	return ParsePlaylist(bytes.NewReader(page))
}

func (c *Client) absolute(ref string) string {
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		return ref
	}
	return c.baseURL + "/" + strings.TrimLeft(ref, "/")
}

func (c *Client) get(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: GET %s: %w", shared.ErrNetwork, req.URL.Path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, fmt.Errorf("%w: GET %s: %w", shared.ErrNetwork, req.URL.Path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &shared.APIError{
			Method:     http.MethodGet,
			Endpoint:   req.URL.Path,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(body[:min(len(body), 512)])),
		}
	}
	return body, nil
}

var cacheNameReplacer = strings.NewReplacer("/", "_", ":", "_", "?", "_", "&", "_", "=", "_")

// CachePath returns where the page at rawURL is cached, or "" when caching is off.
func (c *Client) CachePath(rawURL string) string {
	if c.cacheDir == "" {
		return ""
	}
	return filepath.Join(c.cacheDir, cacheNameReplacer.Replace(rawURL)+".html")
}

func (c *Client) cached(rawURL string) ([]byte, bool) {
	path := c.CachePath(rawURL)
	if path == "" {
		return nil, false
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, false
	}
	return data, true
}

// store writes a page to the cache. Failures only log.
func (c *Client) store(rawURL string, page []byte) {
	path := c.CachePath(rawURL)
	if path == "" {
		return
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		c.logger.Warn("could not create page cache", "err", err)
		return
	}
	if err := os.WriteFile(path, page, 0644); err != nil {
		c.logger.Warn("could not cache page", "path", path, "err", err)
	}
}

func parseFeedTime(s string) time.Time {
	for _, layout := range feedTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
