package migration

import (
	"github.com/smallbiznis/atrium/internal/config"
	identitydomain "github.com/smallbiznis/atrium/internal/identity/domain"
	profiledomain "github.com/smallbiznis/atrium/internal/profile/domain"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config) error {
		// Versioned SQL migrations are postgres only. The other dialects
		// exist for development and tests, where AutoMigrate is enough.
		if cfg.DBType != "postgres" {
			return conn.AutoMigrate(
				&identitydomain.Identity{},
				&identitydomain.Session{},
				&profiledomain.Profile{},
			)
		}

		sqlDB, err := conn.DB()
		if err != nil {
			return err
		}
		return RunMigrations(sqlDB)
	}),
)
