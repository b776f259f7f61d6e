package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/desertthunder/radiosync/internal/shared"
	"github.com/urfave/cli/v3"
)

func main() {
	logger := shared.NewLogger(nil)

	if err := shared.LoadEnv(); err != nil {
		logger.Fatalf("failed to load environment: %v", err)
	}

	runner := NewRunner(RunnerOpts{Logger: logger})
	app := newApp(runner)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.Run(ctx, os.Args); err != nil {
		runner.logger.Fatalf("application error: %v", err)
	}
}

func newApp(r *Runner) *cli.Command {
	return &cli.Command{
		Name:     "radiosync",
		Usage:    "Sync Spinitron radio show playlists into Spotify",
		Version:  "0.1.0",
		Flags:    globalFlags(),
		Before:   r.Before,
		Commands: r.register(),
	}
}
