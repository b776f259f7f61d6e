package tasks

import (
	"context"
	"fmt"
	"strings"

	"github.com/desertthunder/radiosync/internal/grouping"
	"github.com/desertthunder/radiosync/internal/models"
	"github.com/desertthunder/radiosync/internal/services"
)

// OwnershipRules decide which remote playlists this tool manages.
type OwnershipRules struct {
	// Stations enables the legacy fallback: a "{station} -" name prefix plus an id label.
	Stations []string
}

// Owns reports whether a playlist with this name and description is managed here.
//
// The structured marker or the generated phrase suffice; otherwise the name must carry
// a configured station prefix and the description an id label.
func (o OwnershipRules) Owns(name, description string) bool {
	if grouping.HasMarker(description) || strings.Contains(description, grouping.GeneratedPhrase) {
		return true
	}
	if !strings.Contains(description, grouping.LatestIDLabel) && !strings.Contains(description, grouping.LegacyIDLabel) {
		return false
	}
	for _, station := range o.Stations {
		if strings.HasPrefix(name, station+" -") {
			return true
		}
	}
	return false
}

// Record converts a listed playlist into a [models.PlaylistRecord] keyed by its watermark,
// falling back to the name hash when the description carries none.
func Record(p services.SpotifySimplePlaylist) models.PlaylistRecord {
	w, ok := grouping.ParseWatermark(p.Description)
	if !ok {
		w = grouping.NameHash(p.Name)
	}
	return models.PlaylistRecord{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		ExternalURL: p.ExternalURLs.Spotify,
		TrackCount:  p.Tracks.Total,
		Watermark:   w,
	}
}

// OwnershipIndex is the run's view of owned playlists, in listing order.
type OwnershipIndex struct {
	records     []models.PlaylistRecord
	byWatermark map[uint64]int
}

// NewOwnershipIndex returns an empty index.
func NewOwnershipIndex() *OwnershipIndex {
	return &OwnershipIndex{byWatermark: make(map[uint64]int)}
}

// Put inserts rec, replacing any record with the same ID.
func (x *OwnershipIndex) Put(rec models.PlaylistRecord) {
	for i := range x.records {
		if x.records[i].ID == rec.ID {
			x.records[i] = rec
			x.reindex()
			return
		}
	}
	x.records = append(x.records, rec)
	x.byWatermark[rec.Watermark] = len(x.records) - 1
}

func (x *OwnershipIndex) reindex() {
	x.byWatermark = make(map[uint64]int, len(x.records))
	for i, rec := range x.records {
		x.byWatermark[rec.Watermark] = i
	}
}

// ByName returns the first owned playlist whose name equals name exactly.
func (x *OwnershipIndex) ByName(name string) (models.PlaylistRecord, bool) {
	for _, rec := range x.records {
		if rec.Name == name {
			return rec, true
		}
	}
	return models.PlaylistRecord{}, false
}

// ByWatermark returns the playlist indexed under w, the last one put when several share it.
func (x *OwnershipIndex) ByWatermark(w uint64) (models.PlaylistRecord, bool) {
	i, ok := x.byWatermark[w]
	if !ok {
		return models.PlaylistRecord{}, false
	}
	return x.records[i], true
}

// Records returns a copy of every record.
func (x *OwnershipIndex) Records() []models.PlaylistRecord {
	return append([]models.PlaylistRecord(nil), x.records...)
}

// Len returns the number of owned playlists.
func (x *OwnershipIndex) Len() int { return len(x.records) }

// Duplicate is a set of owned playlists sharing one name.
type Duplicate struct {
	Name   string
	Keep   models.PlaylistRecord
	Remove []models.PlaylistRecord
}

// Duplicates groups playlists sharing a name. The highest watermark is kept; ties keep
// the one listed first.
func (x *OwnershipIndex) Duplicates() []Duplicate {
	var order []string
	byName := make(map[string][]models.PlaylistRecord)
	for _, rec := range x.records {
		if _, ok := byName[rec.Name]; !ok {
			order = append(order, rec.Name)
		}
		byName[rec.Name] = append(byName[rec.Name], rec)
	}

	var dups []Duplicate
	for _, name := range order {
		recs := byName[name]
		if len(recs) < 2 {
			continue
		}
		keep := 0
		for i, rec := range recs {
			if rec.Watermark > recs[keep].Watermark {
				keep = i
			}
		}
		d := Duplicate{Name: name, Keep: recs[keep]}
		for i, rec := range recs {
			if i != keep {
				d.Remove = append(d.Remove, rec)
			}
		}
		dups = append(dups, d)
	}
	return dups
}

// LoadOwnershipIndex lists every playlist of userID and indexes the owned ones.
// Playlists owned by other users are ignored even when they look generated.
func LoadOwnershipIndex(ctx context.Context, svc services.PlaylistService, userID string, rules OwnershipRules) (*OwnershipIndex, error) {
	index := NewOwnershipIndex()
	next := ""
	for {
		page, err := svc.UserPlaylists(ctx, next)
		if err != nil {
			return nil, fmt.Errorf("list playlists: %w", err)
		}
		for _, p := range page.Items {
			if p.Owner.ID != "" && p.Owner.ID != userID {
				continue
			}
			if rules.Owns(p.Name, p.Description) {
				index.Put(Record(p))
			}
		}
		if page.Next == nil || *page.Next == "" {
			return index, nil
		}
		next = *page.Next
	}
}
