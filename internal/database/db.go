package database

import (
	"errors"
	"fmt"
	"time"

	"dinein-system/internal/database/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func NewConnection(dsn string) (*gorm.DB, error) {
	if dsn == "" {
		return nil, errors.New("DSN is required")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(20)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping DB: %w", err)
	}

	return db, nil
}

func MigrateOrderingDB(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Restaurant{},
		&models.Category{},
		&models.Product{},
		&models.ProductVariant{},
		&models.ProductExtra{},
		&models.ModifierGroup{},
		&models.ModifierOption{},
		&models.Promotion{},
		&models.Order{},
		&models.OrderItem{},
		&models.ChatContact{},
		&models.NotificationRecipient{},
	)
}
