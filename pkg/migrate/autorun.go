package migrate

import (
	"context"
	"fmt"

	"github.com/civicgrid/resident-portal/pkg/config"
	"github.com/civicgrid/resident-portal/pkg/db"
	"github.com/civicgrid/resident-portal/pkg/logger"
)

// MaybeRunDev applies pending migrations at boot. It only acts in the dev
// environment with PORTAL_AUTO_MIGRATE set, so shared databases are always
// migrated through cmd/migrate.
func MaybeRunDev(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	if cfg == nil || !cfg.App.IsDev() || !cfg.FeatureFlags.AutoMigrate {
		return nil
	}
	sqlDB, err := client.DB().DB()
	if err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}
	UseDriver(cfg.DB.Driver)

	ctx = logg.WithFields(ctx, map[string]any{"dialect": dialect, "dir": DefaultDir})
	if err := Run(ctx, sqlDB, DefaultDir, "up"); err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}
	logg.Info(ctx, "migrate.auto_applied")
	return nil
}
