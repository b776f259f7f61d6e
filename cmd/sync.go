package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/radiosync/internal/grouping"
	"github.com/desertthunder/radiosync/internal/models"
	"github.com/desertthunder/radiosync/internal/shared"
	"github.com/desertthunder/radiosync/internal/tasks"
	"github.com/urfave/cli/v3"
)

// tuiLogPath receives log output while the TUI owns the terminal.
const tuiLogPath = "./tmp/radiosync-tui.log"

// window resolves --date and --days against the configured defaults. The window ends
// yesterday unless a date is given.
func (r *Runner) window(cmd *cli.Command) (tasks.Window, error) {
	days := r.config.Sync.Days
	if n := cmd.Int("days"); n != 0 {
		if n < 1 {
			return tasks.Window{}, fmt.Errorf("%w: --days must be at least 1", shared.ErrInvalidArgument)
		}
		days = n
	}

	now := r.now()
	end := now.AddDate(0, 0, -1)
	if raw := cmd.String("date"); raw != "" {
		d, err := time.ParseInLocation(time.DateOnly, raw, now.Location())
		if err != nil {
			return tasks.Window{}, fmt.Errorf("%w: --date %q is not YYYY-MM-DD", shared.ErrInvalidArgument, raw)
		}
		end = d
	}
	return tasks.NewWindow(end, days), nil
}

// Sync collects the window, groups the shows and reconciles one playlist per group.
func (r *Runner) Sync(ctx context.Context, cmd *cli.Command) error {
	w, err := r.window(cmd)
	if err != nil {
		return err
	}
	stations, err := r.stationFilters()
	if err != nil {
		return err
	}

	if cmd.Bool("tui") {
		fileLogger, err := shared.NewFileLogger(tuiLogPath)
		if err != nil {
			return fmt.Errorf("failed to create file logger: %w", err)
		}
		fileLogger.SetLevel(r.logger.GetLevel())
		r.SetLogger(fileLogger)
	}

	runID := shared.GenerateID()
	logger := r.logger.With("run", runID)
	logger.Info("collecting shows", "start", w.Start.Format(time.DateOnly), "end", w.End.Format(time.DateOnly), "stations", len(stations))

	if cmd.Bool("dry-run") {
		groups, err := tasks.CollectWindow(ctx, r.showSource(), stations, w, r.config.Sync.Concurrency, logger, nil)
		if err != nil {
			return err
		}
		return r.printPlan(w, groups)
	}

	c, err := r.openCache(ctx)
	if err != nil {
		return err
	}
	defer c.Close()

	tokens, svc, err := r.spotifyClient()
	if err != nil {
		return err
	}

	resolver := tasks.NewTrackResolver(svc, c, logger)
	batcher := tasks.NewTrackBatcher(svc, resolver, r.config.Sync.MaxTracks, logger)
	reconciler := tasks.NewPlaylistReconciler(svc, tokens, batcher, tasks.ReconcilerOptions{
		Rules:       r.ownershipRules(),
		SkipCurrent: r.config.Sync.SkipCurrent || cmd.Bool("skip-current"),
		Now:         r.now,
	}, logger)
	engine := tasks.NewSyncEngine(reconciler, runID, r.logger)

	run := func(ctx context.Context, progress chan<- tasks.ProgressUpdate) (*tasks.RunSummary, error) {
		groups, err := tasks.CollectWindow(ctx, r.showSource(), stations, w, r.config.Sync.Concurrency, logger, progress)
		if err != nil {
			return nil, err
		}
		summary := engine.Run(ctx, groups, progress)
		if err := resolver.Flush(ctx); err != nil {
			logger.Warn("failed to save track cache", "err", err)
		}
		logger.Info("searches", "live", resolver.LiveSearches(), "cached", c.Len())
		return summary, nil
	}

	var summary *tasks.RunSummary
	if cmd.Bool("tui") {
		summary, err = r.runTUI(ctx, run)
	} else {
		summary, err = run(ctx, nil)
	}
	if err != nil {
		return err
	}
	if summary == nil {
		return nil
	}

	if !cmd.Bool("tui") {
		if err := r.printSummary(summary); err != nil {
			return err
		}
	}
	if summary.Failed > 0 {
		return fmt.Errorf("%d of %d groups failed: %w", summary.Failed, len(summary.Results), errors.Join(summary.Errors()...))
	}
	return nil
}

// printPlan lists what a sync of groups would do.
func (r *Runner) printPlan(w tasks.Window, groups []models.ShowGroup) error {
	r.writePlainHeader(fmt.Sprintf("Dry run: %s to %s", w.Start.Format(time.DateOnly), w.End.Format(time.DateOnly)))
	for _, g := range groups {
		if err := r.writePlain("%s\n  episodes: %d  tracks: %d  watermark: %d\n",
			grouping.PlaylistName(g.Station, g.Title),
			grouping.Episodes(g.Episodes),
			len(grouping.Dedupe(g.Episodes)),
			grouping.Watermark(g.Episodes),
		); err != nil {
			return err
		}
	}
	return r.writePlainln("%d playlists planned", len(groups))
}

func resultLabel(res tasks.GroupResult) string {
	switch {
	case res.Err != nil:
		return "failed"
	case res.Playlist == nil:
		return "skipped"
	default:
		return res.State.String()
	}
}

// printSummary writes one line per group and the totals.
func (r *Runner) printSummary(summary *tasks.RunSummary) error {
	r.writePlainHeader("Sync " + summary.RunID)
	for _, res := range summary.Results {
		line := fmt.Sprintf("%-10s %s", resultLabel(res), res.Name)
		switch {
		case res.Err != nil:
			line += fmt.Sprintf(" (%v)", res.Err)
		case res.Playlist != nil:
			line += fmt.Sprintf(" (%d tracks, %d added, %d unmatched)", res.Tracks, res.Added, res.Unresolved)
		}
		if err := r.writePlain("%s\n", line); err != nil {
			return err
		}
	}
	return r.writePlainln("%s", summary.String())
}
