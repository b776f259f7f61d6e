package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/radiosync/internal/formatter"
	"github.com/desertthunder/radiosync/internal/services"
	"github.com/desertthunder/radiosync/internal/tasks"
	"github.com/urfave/cli/v3"
)

// ReportTitle heads the Markdown playlist report.
const ReportTitle = "Radio Show Playlists"

// ownedIndex lists the user's playlists and indexes the generated ones.
func (r *Runner) ownedIndex(ctx context.Context) (*services.SpotifyService, *tasks.OwnershipIndex, error) {
	_, svc, err := r.spotifyClient()
	if err != nil {
		return nil, nil, err
	}
	user, err := svc.CurrentUser(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("identify user: %w", err)
	}
	index, err := tasks.LoadOwnershipIndex(ctx, svc, user.ID, r.ownershipRules())
	if err != nil {
		return nil, nil, err
	}
	return svc, index, nil
}

// PlaylistsList renders the generated playlists as a report.
func (r *Runner) PlaylistsList(ctx context.Context, cmd *cli.Command) error {
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	_, index, err := r.ownedIndex(ctx)
	if err != nil {
		return err
	}
	records := index.Records()
	r.logger.Info("listed generated playlists", "count", len(records))

	if path := cmd.String("output"); path != "" {
		if err := formatter.WriteReport(path, format, records, ReportTitle, r.now()); err != nil {
			return err
		}
		return r.writePlain("✓ Wrote %d playlists to %s\n", len(records), path)
	}
	return formatter.Render(r.output, format, records, ReportTitle, r.now())
}

// PlaylistsPrune unfollows every duplicate generated playlist except the one with the
// highest watermark. Without --yes it only reports what it would remove.
func (r *Runner) PlaylistsPrune(ctx context.Context, cmd *cli.Command) error {
	svc, index, err := r.ownedIndex(ctx)
	if err != nil {
		return err
	}

	dups := index.Duplicates()
	if len(dups) == 0 {
		return r.writePlain("No duplicate playlists\n")
	}

	confirm := cmd.Bool("yes")
	removed := 0
	for _, d := range dups {
		r.writePlain("%s: keeping %s (watermark %d)\n", d.Name, d.Keep.ID, d.Keep.Watermark)
		for _, rec := range d.Remove {
			if !confirm {
				r.writePlain("  would unfollow %s (watermark %d)\n", rec.ID, rec.Watermark)
				continue
			}
			if err := svc.Unfollow(ctx, rec.ID); err != nil {
				return fmt.Errorf("unfollow %s: %w", rec.ID, err)
			}
			r.logger.Info("unfollowed duplicate playlist", "name", d.Name, "id", rec.ID)
			r.writePlain("  unfollowed %s (watermark %d)\n", rec.ID, rec.Watermark)
			removed++
		}
	}

	if !confirm {
		return r.writePlainln("Run again with --yes to unfollow")
	}
	return r.writePlainln("✓ Unfollowed %d playlists", removed)
}
