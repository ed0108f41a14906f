package seed

import (
	"github.com/smallbiznis/frontdesk/internal/clock"
	"github.com/smallbiznis/frontdesk/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Module seeds the demo floor when SEED_DEMO is set outside production.
// It must be listed after the migration module.
var Module = fx.Module("seed",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config, clk clock.Clock, log *zap.Logger) error {
		if !cfg.SeedDemo || cfg.IsProduction() {
			return nil
		}
		created, err := EnsureDemoFloor(conn, clk.Now())
		if err != nil {
			return err
		}
		log.Named("seed").Info("demo floor seeded", zap.Int("bookings", created))
		return nil
	}),
)
