package migrate

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/angelmondragon/franchisefund-backend/pkg/config"
	"github.com/angelmondragon/franchisefund-backend/pkg/db"
	"github.com/angelmondragon/franchisefund-backend/pkg/db/models"
	"github.com/angelmondragon/franchisefund-backend/pkg/logger"
)

// OutstandingApprovalIndex enforces one undecided approval per round. The
// statement is valid for both postgres and sqlite.
const OutstandingApprovalIndex = `CREATE UNIQUE INDEX IF NOT EXISTS ux_approvals_outstanding
ON approvals (franchise_id) WHERE status IN ('pending', 'under_review')`

// MaybeRunDev executes migrations automatically when the app is running in dev mode and
// the feature flag is enabled. sqlite databases are built from the models instead
// of the postgres SQL files.
func MaybeRunDev(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	if !cfg.App.IsDev() || !cfg.FeatureFlags.AutoMigrate {
		return nil
	}

	if cfg.DB.IsSQLite() {
		logg.Info(logg.WithField(ctx, "driver", cfg.DB.Driver), "auto-migrating sqlite schema")
		return AutoMigrateModels(client.DB().WithContext(ctx))
	}

	sqlDB, err := client.DB().DB()
	if err != nil {
		return fmt.Errorf("extracting sql.DB: %w", err)
	}
	migrator, err := New(sqlDB, Embedded())
	if err != nil {
		return err
	}
	steps, err := migrator.Up(ctx)
	for _, step := range steps {
		logg.Info(logg.WithFields(ctx, map[string]any{
			"version":  step.Version,
			"path":     step.Path,
			"duration": step.Duration,
		}), "migration applied")
	}
	if err != nil {
		return err
	}
	logg.Info(logg.WithField(ctx, "applied", len(steps)), "dev migrations up to date")
	return nil
}

// AutoMigrateModels creates the ledger tables from the GORM models.
func AutoMigrateModels(conn *gorm.DB) error {
	if err := conn.AutoMigrate(models.LedgerModels()...); err != nil {
		return fmt.Errorf("auto-migrate models: %w", err)
	}
	if err := conn.Exec(OutstandingApprovalIndex).Error; err != nil {
		return fmt.Errorf("create outstanding approval index: %w", err)
	}
	return nil
}
