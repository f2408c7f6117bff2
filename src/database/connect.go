package database

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"newsbacktest/src/model"
)

// MainDB is the primary database connection used by the application.
var MainDB *gorm.DB

// InitMainDB initializes the database connection and runs migrations.
// This should be called once at application startup (e.g. in main()).
func InitMainDB() error {
	config := GetConfig()

	gormCfg := &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.LogLevel(config.GormLogLevel)),
	}

	var (
		db  *gorm.DB
		err error
	)
	switch config.Driver {
	case "postgres":
		db, err = gorm.Open(postgres.Open(config.DatabaseURL), gormCfg)
	case "sqlite":
		db, err = gorm.Open(sqlite.Open(config.SQLitePath), gormCfg)
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", config.Driver)
	}
	if err != nil {
		return fmt.Errorf("failed to connect to %s database: %w", config.Driver, err)
	}

	if config.Driver == "postgres" {
		sqlDB, err := db.DB()
		if err != nil {
			return fmt.Errorf("failed to get DB from GORM: %w", err)
		}
		sqlDB.SetMaxOpenConns(20)
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetConnMaxLifetime(1 * time.Hour)
	}

	// Assign to the global variable only after a successful connection.
	MainDB = db
	logrus.WithField("driver", config.Driver).Info("[database] MainDB connection established")

	if err := MainDB.AutoMigrate(
		&model.Bar{},
		&model.NewsItem{},
		&model.BacktestRun{},
		&model.PnLRecord{},
		&model.PositionRecord{},
		&model.Exception{},
	); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}
