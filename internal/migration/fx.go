package migration

import (
	"github.com/smallbiznis/streamgate/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg db.Config, log *zap.Logger) error {
		switch cfg.Type {
		case db.TypePostgres:
		case db.TypeSQLite:
			return EnsureSQLiteSchema(conn)
		default:
			log.Info("skipping embedded migrations", zap.String("db_type", cfg.Type))
			return nil
		}

		sqlDB, err := conn.DB()
		if err != nil {
			return err
		}
		return RunMigrations(sqlDB)
	}),
)
