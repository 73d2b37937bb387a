package database

import (
	"fmt"

	mysqlDriver "github.com/go-sql-driver/mysql"
	"github.com/mx-space/memory-explorer/internal/config"
	"github.com/mx-space/memory-explorer/internal/models"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Connect opens a MySQL connection and optionally runs auto-migration.
func Connect(cfg *config.AppConfig, autoMigrate bool) (*gorm.DB, error) {
	dsn := cfg.Storage.Database.DSNValue()
	if _, err := mysqlDriver.ParseDSN(dsn); err != nil {
		return nil, fmt.Errorf("invalid database dsn: %w", err)
	}
	db, err := gorm.Open(mysql.New(mysql.Config{
		DSN:               dsn,
		DefaultStringSize: 191,
	}), &gorm.Config{
		Logger:                 logger.Default.LogMode(resolveLogLevel(cfg)),
		SkipDefaultTransaction: true,
	})
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	if autoMigrate {
		if err := Migrate(db); err != nil {
			return nil, fmt.Errorf("migration failed: %w", err)
		}
	}
	return db, nil
}

// Close releases the underlying connection pool.
func Close(db *gorm.DB) error {
	if db == nil {
		return nil
	}
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("resolve sql db: %w", err)
	}
	return sqlDB.Close()
}

func resolveLogLevel(cfg *config.AppConfig) logger.LogLevel {
	if cfg.IsDev() {
		return logger.Info
	}
	return logger.Warn
}

// Migrate runs GORM auto-migration for the persisted explorer state.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&models.KVEntry{})
}
