package main

import (
	"context"
	"errors"
	"os"

	"github.com/desertthunder/spotx/internal/shared"
	"github.com/urfave/cli/v3"
)

func main() {
	logger := shared.NewLogger(nil)
	runner := NewRunner(RunnerOpts{ConfigPath: "config.toml", Logger: logger})

	err := newApp(runner).Run(context.Background(), os.Args)
	if closeErr := runner.Close(); closeErr != nil {
		logger.Warn("failed to close token store", "error", closeErr)
	}

	switch {
	case err == nil:
	case errors.Is(err, shared.ErrNotImplemented):
		logger.Warn("not implemented")
	case errors.Is(err, shared.ErrCancelled):
		logger.Info("cancelled")
	default:
		logger.Fatalf("application error: %v", err)
	}
}

// newApp builds the root command around r.
func newApp(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "spotx",
		Usage:   "Spotify Web API client with self-refreshing tokens",
		Version: "0.1.0",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   "config.toml",
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "Enable debug logging",
			},
			&cli.BoolFlag{
				Name:  "env",
				Usage: "Read Spotify credentials from the environment variables named in [environment]",
			},
			&cli.StringFlag{
				Name:  "user",
				Usage: "Spotify user id whose stored token is used (default: store.current_user)",
			},
		},
		Before:   r.Before,
		Commands: r.register(),
	}
}
