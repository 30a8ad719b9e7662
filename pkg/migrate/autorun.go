package migrate

import (
	"context"
	"fmt"

	"github.com/kledje/storefront-backend/pkg/config"
	"github.com/kledje/storefront-backend/pkg/db"
	"github.com/kledje/storefront-backend/pkg/db/models"
	"github.com/kledje/storefront-backend/pkg/logger"
)

// MaybeRunDev executes migrations automatically when the app is running in dev mode and
// the feature flag is enabled. SQLite databases are created from the gorm models because
// the goose files use postgres-only types.
func MaybeRunDev(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	if !cfg.App.IsDev() || !cfg.FeatureFlags.AutoMigrate {
		return nil
	}

	if client.Dialect() == config.DBDriverSQLite {
		ctx = logg.WithField(ctx, "env", cfg.App.Env)
		logg.Info(ctx, "running gorm auto-migrate (sqlite)")
		if err := AutoMigrateModels(client); err != nil {
			return fmt.Errorf("auto-migrating sqlite schema: %w", err)
		}
		return nil
	}

	sqlDB, err := client.DB().DB()
	if err != nil {
		return fmt.Errorf("extracting sql.DB: %w", err)
	}

	meta := map[string]any{"env": cfg.App.Env, "dir": DefaultDir}
	ctx = logg.WithFields(ctx, meta)
	logg.Info(ctx, "running Goose migrations (dev auto-run)")

	if err := Run(ctx, sqlDB, DefaultDir, "up"); err != nil {
		return fmt.Errorf("running goose up: %w", err)
	}

	logg.Info(ctx, "Goose migrations completed")
	return nil
}

// AutoMigrateModels creates every storefront table from its gorm model.
func AutoMigrateModels(client *db.Client) error {
	return client.DB().AutoMigrate(
		&models.Product{},
		&models.ProductImage{},
		&models.User{},
		&models.Admin{},
		&models.Cart{},
		&models.CartItem{},
		&models.Order{},
		&models.OrderItem{},
		&models.OutboxEvent{},
	)
}
