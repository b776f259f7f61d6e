// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

// globalFlags are read by [Runner.Before] for every command.
func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Path to configuration file",
			Value:   "config.toml",
		},
		&cli.StringFlag{
			Name:  "log-level",
			Usage: "Log level (debug, info, warn, error)",
		},
	}
}

// syncCommand scrapes the window and reconciles one playlist per show.
func syncCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "sync",
		Usage: "Sync the trailing window of Spinitron shows into Spotify playlists",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "date",
				Usage: "Last day of the window (YYYY-MM-DD, default yesterday)",
			},
			&cli.IntFlag{
				Name:  "days",
				Usage: "Number of days in the window (default from config)",
			},
			&cli.BoolFlag{
				Name:  "dry-run",
				Usage: "Collect and group shows without touching Spotify or the cache",
			},
			&cli.BoolFlag{
				Name:  "skip-current",
				Usage: "Leave playlists whose watermark is already current untouched",
			},
			&cli.BoolFlag{
				Name:  "tui",
				Usage: "Show live progress in an interactive terminal UI",
			},
		},
		Action: r.Sync,
	}
}

// playlistsCommand handles operations on the owned playlists.
func playlistsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "playlists",
		Aliases: []string{"pl"},
		Usage:   "Inspect and maintain generated playlists",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List generated playlists",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "Output format (markdown, jsonl, csv)",
						Value:   "markdown",
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Write the report to a file instead of stdout",
					},
				},
				Action: r.PlaylistsList,
			},
			{
				Name:  "prune",
				Usage: "Unfollow duplicate generated playlists, keeping the most recent per name",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "yes",
						Usage: "Unfollow without asking; otherwise only list what would be removed",
					},
				},
				Action: r.PlaylistsPrune,
			},
		},
	}
}

// cacheCommand handles the track search cache.
func cacheCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "cache",
		Usage: "Inspect and maintain the track search cache",
		Commands: []*cli.Command{
			{
				Name:   "stats",
				Usage:  "Show cache entry counts",
				Action: r.CacheStats,
			},
			{
				Name:  "purge",
				Usage: "Remove expired entries from the cache",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "all",
						Usage: "Remove every entry, not only expired ones",
					},
				},
				Action: r.CachePurge,
			},
		},
	}
}

// authCommand obtains a refresh token through the authorization code flow.
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Authorize with Spotify and print a refresh token",
		Flags: []cli.Flag{
			&cli.DurationFlag{
				Name:  "timeout",
				Usage: "How long to wait for the browser callback",
				Value: authTimeout,
			},
			&cli.BoolFlag{
				Name:  "no-browser",
				Usage: "Print the authorization URL without opening a browser",
			},
		},
		Action: r.Auth,
	}
}

// setupCommand writes the config file and prepares the cache backend.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "setup",
		Usage:  "Create config.toml from the template and initialize the cache backend",
		Action: r.Setup,
	}
}
