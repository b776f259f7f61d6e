package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/desertthunder/radiosync/internal/models"
	"github.com/desertthunder/radiosync/internal/shared"
)

// FileVersion is the current layout of the JSON cache file.
const FileVersion = 1

type fileEntry struct {
	Track     *models.ResolvedTrack `json:"track"`
	ExpiresAt time.Time             `json:"expires_at"`
}

type fileDocument struct {
	Version int                        `json:"version"`
	Tracks  map[string]json.RawMessage `json:"tracks"`
}

// legacyTrack is the unversioned layout: the track object itself, artists as objects.
type legacyTrack struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Artists []struct {
		Name string `json:"name"`
	} `json:"artists"`
	URI string `json:"uri"`
}

// FileStore persists the cache as one JSON document.
//
//	{"version":1,"tracks":{"Artist - Song":{"track":{...}|null,"expires_at":"RFC3339"}}}
//
// Unversioned files map keys straight to track objects; their entries load with a zero
// expiry and are purged by the first save.
type FileStore struct {
	path string
}

// NewFileStore returns a store at path. The file is created on first save.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the file location.
func (s *FileStore) Path() string { return s.path }

func (s *FileStore) Load(ctx context.Context) (map[string]Entry, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]Entry{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", s.path, err)
	}

	var doc fileDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: cache file %s: %v", shared.ErrParse, s.path, err)
	}

	entries := make(map[string]Entry, len(doc.Tracks))
	for key, raw := range doc.Tracks {
		if doc.Version >= FileVersion {
			var fe fileEntry
			if err := json.Unmarshal(raw, &fe); err != nil {
				return nil, fmt.Errorf("%w: cache entry %q: %v", shared.ErrParse, key, err)
			}
			entries[key] = Entry{Track: fe.Track, ExpiresAt: fe.ExpiresAt}
			continue
		}

		var lt *legacyTrack
		if err := json.Unmarshal(raw, &lt); err != nil {
			return nil, fmt.Errorf("%w: legacy cache entry %q: %v", shared.ErrParse, key, err)
		}
		entries[key] = Entry{Track: lt.resolved()}
	}
	return entries, nil
}

func (lt *legacyTrack) resolved() *models.ResolvedTrack {
	if lt == nil {
		return nil
	}
	artists := make([]string, 0, len(lt.Artists))
	for _, a := range lt.Artists {
		artists = append(artists, a.Name)
	}
	return &models.ResolvedTrack{ID: lt.ID, Name: lt.Name, Artists: artists, URI: lt.URI}
}

// Save writes entries to a temp file in the same directory and renames it over the target.
func (s *FileStore) Save(ctx context.Context, entries map[string]Entry) error {
	doc := struct {
		Version int                  `json:"version"`
		Tracks  map[string]fileEntry `json:"tracks"`
	}{Version: FileVersion, Tracks: make(map[string]fileEntry, len(entries))}
	for key, e := range entries {
		doc.Tracks[key] = fileEntry{Track: e.Track, ExpiresAt: e.ExpiresAt.UTC()}
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode cache: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write cache: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write cache: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("failed to replace cache file: %w", err)
	}
	return nil
}

func (s *FileStore) Close() error { return nil }

// MemoryStore keeps entries in process. Saves counts calls to [MemoryStore.Save].
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]Entry
	Saves   int
}

// NewMemoryStore returns a store seeded with entries.
func NewMemoryStore(entries map[string]Entry) *MemoryStore {
	s := &MemoryStore{entries: make(map[string]Entry, len(entries))}
	for k, v := range entries {
		s.entries[k] = v
	}
	return s
}

func (s *MemoryStore) Load(context.Context) (map[string]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]Entry, len(s.entries))
	for k, v := range s.entries {
		out[k] = v
	}
	return out, nil
}

func (s *MemoryStore) Save(_ context.Context, entries map[string]Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[string]Entry, len(entries))
	for k, v := range entries {
		s.entries[k] = v
	}
	s.Saves++
	return nil
}

func (s *MemoryStore) Close() error { return nil }
