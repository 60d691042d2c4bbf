package migrate

import (
	"context"
	"fmt"

	"github.com/angelmondragon/haulbook-backend/pkg/config"
	"github.com/angelmondragon/haulbook-backend/pkg/db"
	"github.com/angelmondragon/haulbook-backend/pkg/db/models"
	"github.com/angelmondragon/haulbook-backend/pkg/logger"
)

// Models lists every table the booking service owns, in dependency order.
func Models() []any {
	return []any{
		&models.Admin{},
		&models.Customer{},
		&models.Request{},
		&models.Item{},
		&models.Quotation{},
		&models.Payment{},
		&models.DiscountCode{},
		&models.RequestStatusEvent{},
	}
}

// MaybeRunDev brings the schema up to date in dev when HAULBOOK_AUTO_MIGRATE
// is set. Postgres gets the goose migrations; a sqlite file gets AutoMigrate
// since the SQL is postgres specific.
func MaybeRunDev(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	if !cfg.App.IsDev() || !cfg.FeatureFlags.AutoMigrate {
		return nil
	}
	ctx = logg.WithField(ctx, "driver", cfg.DB.Driver)

	if cfg.DB.Driver == db.DriverSQLite {
		if err := client.DB().WithContext(ctx).AutoMigrate(Models()...); err != nil {
			return fmt.Errorf("sqlite automigrate: %w", err)
		}
		logg.Info(ctx, "sqlite schema synced")
		return nil
	}

	sqlDB, err := client.DB().DB()
	if err != nil {
		return fmt.Errorf("extracting sql.DB: %w", err)
	}
	m, err := New(sqlDB, Embedded())
	if err != nil {
		return err
	}

	applied, err := m.Run(ctx, "up")
	if err != nil {
		return err
	}
	logg.Info(logg.WithField(ctx, "applied", len(applied)), "dev migrations applied")
	return nil
}
