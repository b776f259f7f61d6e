package tasks

import (
	"context"
	"fmt"
	"testing"

	"github.com/desertthunder/radiosync/internal/grouping"
	"github.com/desertthunder/radiosync/internal/models"
	"github.com/desertthunder/radiosync/internal/services"
	tu "github.com/desertthunder/radiosync/internal/testing"
)

func TestOwnershipRules(t *testing.T) {
	rules := OwnershipRules{Stations: []string{"KALX", "WFMU"}}

	tc := []struct {
		name        string
		playlist    string
		description string
		want        bool
	}{
		{name: "structured marker", playlist: "Anything", description: "notes " + grouping.Marker(3), want: true},
		{name: "generated phrase", playlist: "Anything", description: grouping.GeneratedPhrase + ". Station: KALX", want: true},
		{name: "legacy latest id", playlist: "KALX - Morning", description: "Latest ID: 12", want: true},
		{name: "legacy accented label", playlist: "WFMU - Night", description: "Spinítron ID: [4, 5]", want: true},
		{name: "label without station prefix", playlist: "KQED - Night", description: "Latest ID: 12"},
		{name: "prefix without label", playlist: "KALX - Morning", description: "my favourites"},
		{name: "unrelated", playlist: "Road Trip", description: ""},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			if got := rules.Owns(tt.playlist, tt.description); got != tt.want {
				t.Errorf("Owns(%q, %q) = %v, want %v", tt.playlist, tt.description, got, tt.want)
			}
		})
	}
}

func TestRecord(t *testing.T) {
	p := services.SpotifySimplePlaylist{ID: "pl1", Name: "KALX - Morning", Description: "Latest ID: 77"}
	if rec := Record(p); rec.Watermark != 77 || rec.ID != "pl1" {
		t.Errorf("unexpected record: %+v", rec)
	}

	p.Description = grouping.GeneratedPhrase
	if rec := Record(p); rec.Watermark != grouping.NameHash("KALX - Morning") {
		t.Errorf("expected name hash fallback, got %d", rec.Watermark)
	}
}

func TestOwnershipIndex(t *testing.T) {
	t.Run("Put replaces by id", func(t *testing.T) {
		x := NewOwnershipIndex()
		x.Put(models.PlaylistRecord{ID: "a", Name: "KALX - A", Watermark: 1})
		x.Put(models.PlaylistRecord{ID: "a", Name: "KALX - A", Watermark: 5})

		if x.Len() != 1 {
			t.Fatalf("expected 1 record, got %d", x.Len())
		}
		if _, ok := x.ByWatermark(1); ok {
			t.Error("stale watermark should be gone")
		}
		if rec, ok := x.ByWatermark(5); !ok || rec.ID != "a" {
			t.Errorf("expected record a under 5, got %+v", rec)
		}
	})

	t.Run("Duplicates keeps the highest watermark", func(t *testing.T) {
		x := NewOwnershipIndex()
		x.Put(models.PlaylistRecord{ID: "old", Name: "KALX - A", Watermark: 3})
		x.Put(models.PlaylistRecord{ID: "new", Name: "KALX - A", Watermark: 9})
		x.Put(models.PlaylistRecord{ID: "tie", Name: "KALX - A", Watermark: 9})
		x.Put(models.PlaylistRecord{ID: "solo", Name: "KALX - B", Watermark: 2})

		dups := x.Duplicates()
		if len(dups) != 1 {
			t.Fatalf("expected 1 duplicate set, got %d", len(dups))
		}
		d := dups[0]
		if d.Keep.ID != "new" {
			t.Errorf("expected to keep new, got %s", d.Keep.ID)
		}
		if len(d.Remove) != 2 || d.Remove[0].ID != "old" || d.Remove[1].ID != "tie" {
			t.Errorf("unexpected removals: %+v", d.Remove)
		}
	})
}

func TestLoadOwnershipIndex(t *testing.T) {
	h := newHarness(t, ReconcilerOptions{})
	for i := range 60 {
		h.fake.AddPlaylist(tu.FakePlaylist{Name: fmt.Sprintf("KALX - Show %d", i), Description: grouping.Marker(uint64(i))})
	}
	h.fake.AddPlaylist(tu.FakePlaylist{Name: "Road Trip"})
	h.fake.AddPlaylist(tu.FakePlaylist{Name: "KALX - Show 1", Description: grouping.Marker(1), OwnerID: "someone-else"})

	index, err := LoadOwnershipIndex(context.Background(), h.svc, h.fake.UserID, OwnershipRules{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if index.Len() != 60 {
		t.Errorf("expected 60 owned playlists across pages, got %d", index.Len())
	}
	if len(index.Duplicates()) != 0 {
		t.Error("playlists of other users must not count as duplicates")
	}
	if rec, ok := index.ByName("KALX - Show 59"); !ok || rec.Watermark != 59 {
		t.Errorf("expected last page indexed, got %+v", rec)
	}
}
