package database

import (
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/Agustinnra/turicanje-bot/internal/config"
	"github.com/Agustinnra/turicanje-bot/internal/logger"
	"github.com/Agustinnra/turicanje-bot/internal/models"
)

type DB struct {
	*gorm.DB
}

// Connect opens the catalog database. The pool stays small: the bot is
// webhook-driven, so 8 connections with no idle floor covers its burst
// traffic.
func Connect(cfg *config.Config) (*DB, error) {
	log := logger.GetLogger("database")

	logLevel := gormlogger.Silent
	if cfg.ServerEnv == "development" {
		logLevel = gormlogger.Info
	}

	db, err := gorm.Open(postgres.Open(cfg.DB.DSN()), &gorm.Config{
		Logger:                                   gormlogger.Default.LogMode(logLevel),
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		return nil, err
	}

	if err := db.Use(&MetricsPlugin{}); err != nil {
		log.Warnf("failed to register metrics plugin: %v", err)
	}

	sqlDB, err := db.DB()
	if err == nil {
		sqlDB.SetMaxOpenConns(8)
		sqlDB.SetMaxIdleConns(0)
		sqlDB.SetConnMaxLifetime(300 * time.Second)
		log.Info("connection pool configured")
	}

	return &DB{db}, nil
}

// Migrate runs AutoMigrate for the catalog models.
// Errors are logged but not fatal: the places table usually already
// exists with a schema managed outside this service.
func Migrate(db *DB) error {
	log := logger.GetLogger("database")
	if err := db.AutoMigrate(&models.Place{}); err != nil {
		log.Warnf("automigrate warning (non-fatal): %v", err)
	}
	return nil
}
