package tasks

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/desertthunder/radiosync/internal/models"
	"github.com/desertthunder/radiosync/internal/shared"
)

// scripted returns canned outcomes keyed by show title.
type scripted struct {
	results map[string]*ReconcileResult
	errs    map[string]error
	seen    []string
}

func (s *scripted) Reconcile(_ context.Context, g models.ShowGroup) (*ReconcileResult, error) {
	s.seen = append(s.seen, g.Title)
	return s.results[g.Title], s.errs[g.Title]
}

func TestSyncEngine(t *testing.T) {
	t.Run("continues past failures", func(t *testing.T) {
		rec := &scripted{
			results: map[string]*ReconcileResult{
				"A": {State: Created, Tracks: 3, Add: AddResult{Added: 3}},
				"C": {State: Updated, Tracks: 2, Add: AddResult{Added: 1, Unresolved: 1}},
				"D": {State: UpToDate},
			},
			errs: map[string]error{"B": shared.ErrAPI},
		}
		groups := []models.ShowGroup{
			showGroup("KALX", "A", 1, nil),
			showGroup("KALX", "B", 2, nil),
			showGroup("KALX", "C", 3, nil),
			showGroup("KALX", "D", 4, nil),
			showGroup("KALX", "E", 5, nil),
		}
		progress := make(chan ProgressUpdate, 32)

		summary := NewSyncEngine(rec, "run-1", shared.NewLogger(io.Discard)).Run(context.Background(), groups, progress)
		close(progress)

		if len(rec.seen) != 5 {
			t.Fatalf("every group should be attempted, got %v", rec.seen)
		}
		if summary.Created != 1 || summary.Updated != 1 || summary.UpToDate != 1 || summary.Failed != 1 || summary.Skipped != 1 {
			t.Errorf("unexpected summary: %s", summary)
		}
		if summary.RunID != "run-1" {
			t.Errorf("expected run id, got %q", summary.RunID)
		}
		errs := summary.Errors()
		if len(errs) != 1 || !errors.Is(errs[0], shared.ErrAPI) {
			t.Errorf("expected one api error, got %v", errs)
		}
		if summary.Results[2].Unresolved != 1 || summary.Results[2].Name != "KALX - C" {
			t.Errorf("unexpected result: %+v", summary.Results[2])
		}

		var last ProgressUpdate
		n := 0
		for u := range progress {
			last = u
			n++
		}
		if n != 11 || last.Phase != Complete {
			t.Errorf("expected 11 updates ending with complete, got %d ending with %s", n, last.Phase)
		}
	})

	t.Run("cancelled context fails remaining groups", func(t *testing.T) {
		rec := &scripted{}
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		summary := NewSyncEngine(rec, "run-2", shared.NewLogger(io.Discard)).Run(ctx, []models.ShowGroup{showGroup("KALX", "A", 1, nil)}, nil)
		if summary.Failed != 1 || len(rec.seen) != 0 {
			t.Errorf("expected one failure without reconciling, got %s", summary)
		}
	})

	t.Run("end to end", func(t *testing.T) {
		h := newHarness(t, ReconcilerOptions{})
		groups := []models.ShowGroup{
			showGroup("KALX", "Morning", 1, numberedTracks(5)),
			showGroup("KALX", "Silent", 2, nil),
		}
		engine := NewSyncEngine(h.reconciler, "run-3", shared.NewLogger(io.Discard))

		first := engine.Run(context.Background(), groups, nil)
		if first.Created != 1 || first.Skipped != 1 {
			t.Fatalf("unexpected first summary: %s", first)
		}
		second := engine.Run(context.Background(), groups, nil)
		if second.Updated != 1 || len(h.fake.Playlists()) != 1 {
			t.Errorf("second run should update the same playlist, got %s with %d playlists", second, len(h.fake.Playlists()))
		}
	})
}

func TestSendProgressDoesNotBlock(t *testing.T) {
	full := make(chan ProgressUpdate)
	sendProgress(full, ProgressUpdate{Phase: FetchShows})
	sendProgress(nil, ProgressUpdate{Phase: FetchShows})
}
