package main

import (
	"context"

	"github.com/urfave/cli/v3"
)

// CacheStats prints entry counts of the configured track cache.
func (r *Runner) CacheStats(ctx context.Context, cmd *cli.Command) error {
	c, err := r.openCache(ctx)
	if err != nil {
		return err
	}
	defer c.Close()

	stats := c.Stats()
	r.writePlainHeader("Track cache (" + r.config.Cache.Backend + ")")
	r.writePlain("Entries:  %d\n", stats.Entries)
	r.writePlain("Matched:  %d\n", stats.Entries-stats.NoMatch)
	r.writePlain("No match: %d\n", stats.NoMatch)
	return r.writePlain("Expired:  %d\n", stats.Expired)
}

// CachePurge drops expired entries, or every entry with --all, and saves the cache.
func (r *Runner) CachePurge(ctx context.Context, cmd *cli.Command) error {
	c, err := r.openCache(ctx)
	if err != nil {
		return err
	}
	defer c.Close()

	var n int
	if cmd.Bool("all") {
		n = c.Clear()
	} else {
		n = c.Purge()
	}
	if err := c.Save(ctx); err != nil {
		return err
	}

	r.logger.Info("purged track cache", "removed", n, "remaining", c.Len())
	return r.writePlain("✓ Removed %d entries, %d remaining\n", n, c.Len())
}
