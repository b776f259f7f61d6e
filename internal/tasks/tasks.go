package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/radiosync/internal/grouping"
	"github.com/desertthunder/radiosync/internal/models"
)

// GroupReconciler is the per-group step of a run.
type GroupReconciler interface {
	Reconcile(ctx context.Context, g models.ShowGroup) (*ReconcileResult, error)
}

// GroupResult records what happened to one show group.
type GroupResult struct {
	Station    string
	Title      string
	Name       string
	Episodes   int
	Tracks     int
	State      State
	Playlist   *models.PlaylistRecord
	Added      int
	Unresolved int
	CacheHits  int
	Err        error
	Duration   time.Duration
}

// RunSummary aggregates a run.
type RunSummary struct {
	RunID    string
	Results  []GroupResult
	Created  int
	Updated  int
	UpToDate int
	Skipped  int
	Failed   int
}

func (s *RunSummary) String() string {
	return fmt.Sprintf("%d groups: %d created, %d updated, %d up to date, %d skipped, %d failed",
		len(s.Results), s.Created, s.Updated, s.UpToDate, s.Skipped, s.Failed)
}

// Errors returns the errors of failed groups in run order.
func (s *RunSummary) Errors() []error {
	var errs []error
	for _, r := range s.Results {
		if r.Err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", r.Name, r.Err))
		}
	}
	return errs
}

// SyncEngine reconciles show groups strictly one after another.
//
// A failing group is recorded and the run moves on to the next one.
type SyncEngine struct {
	reconciler GroupReconciler
	logger     *log.Logger
	runID      string
}

// NewSyncEngine creates an engine whose log lines carry runID.
func NewSyncEngine(reconciler GroupReconciler, runID string, logger *log.Logger) *SyncEngine {
	return &SyncEngine{reconciler: reconciler, runID: runID, logger: logger.With("run", runID)}
}

// Run reconciles every group in order. Cancelling ctx marks the remaining groups failed.
func (e *SyncEngine) Run(ctx context.Context, groups []models.ShowGroup, progress chan<- ProgressUpdate) *RunSummary {
	summary := &RunSummary{RunID: e.runID, Results: make([]GroupResult, 0, len(groups))}
	total := len(groups)

	for i, g := range groups {
		res := GroupResult{
			Station:  g.Station,
			Title:    g.Title,
			Name:     grouping.PlaylistName(g.Station, g.Title),
			Episodes: grouping.Episodes(g.Episodes),
		}
		sendProgress(progress, reconcileStartUpdate(i+1, total, res.Name))

		start := time.Now()
		if err := ctx.Err(); err != nil {
			res.Err = err
		} else {
			out, err := e.reconciler.Reconcile(ctx, g)
			res.Err = err
			if out != nil {
				res.State = out.State
				res.Tracks = out.Tracks
				res.Added = out.Add.Added
				res.Unresolved = out.Add.Unresolved
				res.CacheHits = out.Add.CacheHits
				playlist := out.Playlist
				res.Playlist = &playlist
			}
		}
		res.Duration = time.Since(start)

		switch {
		case res.Err != nil:
			summary.Failed++
			e.logger.Error("sync failed", "playlist", res.Name, "err", res.Err)
		case res.Playlist == nil:
			summary.Skipped++
		case res.State == Created:
			summary.Created++
		case res.State == Updated:
			summary.Updated++
		case res.State == UpToDate:
			summary.UpToDate++
		}

		summary.Results = append(summary.Results, res)
		sendProgress(progress, reconcileDoneUpdate(i+1, total, &summary.Results[len(summary.Results)-1]))
	}

	e.logger.Info("sync finished", "summary", summary.String())
	sendProgress(progress, completeUpdate(summary))
	return summary
}
