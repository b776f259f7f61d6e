package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/desertthunder/radiosync/internal/models"
)

// DefaultTTL is the lifetime of a search result.
const DefaultTTL = 14 * 24 * time.Hour

// Entry is a cached search outcome. A nil Track records that the search found nothing.
type Entry struct {
	Track     *models.ResolvedTrack
	ExpiresAt time.Time
}

// Expired reports whether now is past the entry's expiry.
func (e Entry) Expired(now time.Time) bool {
	return now.After(e.ExpiresAt)
}

// Store is the durable backing of a [Cache].
type Store interface {
	// Load returns every persisted entry, expired ones included.
	Load(ctx context.Context) (map[string]Entry, error)
	// Save replaces the persisted contents with entries.
	Save(ctx context.Context, entries map[string]Entry) error
	// Close releases the store's resources.
	Close() error
}

// Stats summarizes the cache contents.
type Stats struct {
	Entries int
	Expired int
	NoMatch int
	Hits    int
	Misses  int
}

// Option configures a [Cache].
type Option func(*Cache)

// WithTTL sets the lifetime of new entries.
func WithTTL(ttl time.Duration) Option {
	return func(c *Cache) { c.ttl = ttl }
}

// WithStrictExpiry makes [Cache.Get] report expired entries as misses.
func WithStrictExpiry(strict bool) Option {
	return func(c *Cache) { c.strict = strict }
}

// WithClock replaces [time.Now].
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// Cache is the in-memory view of a [Store]. It is safe for concurrent use.
type Cache struct {
	store  Store
	ttl    time.Duration
	strict bool
	now    func() time.Time

	mu      sync.Mutex
	entries map[string]Entry
	hits    int
	misses  int
}

// Open loads store into a new [Cache].
func Open(ctx context.Context, store Store, opts ...Option) (*Cache, error) {
	c := &Cache{store: store, ttl: DefaultTTL, now: time.Now}
	for _, opt := range opts {
		opt(c)
	}

	entries, err := store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load track cache: %w", err)
	}
	if entries == nil {
		entries = make(map[string]Entry)
	}
	c.entries = entries
	return c, nil
}

// Get returns the entry for key.
func (c *Cache) Get(key string) (Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if ok && c.strict && e.Expired(c.now()) {
		ok = false
	}
	if ok {
		c.hits++
	} else {
		c.misses++
	}
	return e, ok
}

// Put records a search outcome expiring one TTL from now.
func (c *Cache) Put(key string, track *models.ResolvedTrack) Entry {
	c.mu.Lock()
	defer c.mu.Unlock()
	e := Entry{Track: track, ExpiresAt: c.now().Add(c.ttl)}
	c.entries[key] = e
	return e
}

// Purge drops every expired entry from memory and returns how many were removed.
func (c *Cache) Purge() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.purge()
}

func (c *Cache) purge() int {
	now := c.now()
	n := 0
	for key, e := range c.entries {
		if e.Expired(now) {
			delete(c.entries, key)
			n++
		}
	}
	return n
}

// Save purges expired entries and rewrites the store.
func (c *Cache) Save(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.purge()
	snapshot := make(map[string]Entry, len(c.entries))
	for key, e := range c.entries {
		snapshot[key] = e
	}
	if err := c.store.Save(ctx, snapshot); err != nil {
		return fmt.Errorf("failed to save track cache: %w", err)
	}
	return nil
}

// Clear drops every entry from memory. Call [Cache.Save] to persist.
func (c *Cache) Clear() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := len(c.entries)
	c.entries = make(map[string]Entry)
	return n
}

// Len returns the number of resident entries, expired ones included.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Stats reports counts of the resident entries and of lookups since [Open].
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	s := Stats{Entries: len(c.entries), Hits: c.hits, Misses: c.misses}
	for _, e := range c.entries {
		if e.Expired(now) {
			s.Expired++
		}
		if e.Track == nil {
			s.NoMatch++
		}
	}
	return s
}

// Close closes the underlying store.
func (c *Cache) Close() error {
	return c.store.Close()
}
