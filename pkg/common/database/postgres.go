package database

import (
	"fmt"

	"github.com/glucomind-ai/assistant/pkg/common/config"
	"github.com/glucomind-ai/assistant/pkg/common/logger"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// ConnectPostgres opens the relational store. The connection is created once
// in main and handed to the repositories; there is no package-level handle.
func ConnectPostgres(cfg *config.Config) (*gorm.DB, error) {
	dsn := fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		cfg.PostgresHost,
		cfg.PostgresUser,
		cfg.PostgresPassword,
		cfg.PostgresDB,
		cfg.PostgresPort,
		cfg.PostgresSSLMode,
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	logger.Log.Info("Connected to PostgreSQL")
	return db, nil
}

func ClosePostgres(db *gorm.DB) error {
	if db == nil {
		return nil
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
