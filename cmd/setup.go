package main

import (
	"context"
	"fmt"
	"os"

	"github.com/desertthunder/spotx/internal/repositories"
	"github.com/desertthunder/spotx/internal/shared"
	"github.com/urfave/cli/v3"
)

// Setup creates the config file when missing and opens the configured token store, which runs the
// SQLite migrations or checks the Redis connection.
func (r *Runner) Setup(ctx context.Context, cmd *cli.Command) error {
	if _, err := os.Stat(r.configPath); err != nil {
		r.logger.Info("config file not found, creating from template", "path", r.configPath)
		if err := shared.CreateConfigFile(r.configPath); err != nil {
			return fmt.Errorf("failed to create config file: %w", err)
		}
		config, err := shared.LoadConfig(r.configPath)
		if err != nil {
			return err
		}
		r.config = config
		r.writePlain("✓ Config written to %s\n", r.configPath)
	}

	storeType := repositories.ParseStoreType(r.config.Store.Type)
	r.logger.Info("initializing token store", "type", storeType)

	if _, err := r.openStore(); err != nil {
		return err
	}

	switch storeType {
	case repositories.StoreTypeSQLite:
		r.writePlain("✓ Database ready at %s\n", r.config.Database.Path)
	case repositories.StoreTypeRedis:
		r.writePlain("✓ Redis reachable at %s\n", r.config.Store.Redis.Addr)
	default:
		r.writePlain("✓ Using the in-memory token store; tokens are not kept between runs\n")
	}

	if !r.config.Credentials.Spotify.Complete() {
		r.writePlainln("Next: set credentials.spotify in %s, then run 'spotx auth login'", r.configPath)
	}
	return nil
}
