package main

import (
	"fmt"

	"github.com/fekuna/omnipos-catalog-service/internal/platform/postgres"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func runMigrate(cmd *cobra.Command, _ []string) error {
	cfg := loadConfig()
	appLogger := newLogger(cfg)
	defer appLogger.Sync()

	db, err := postgres.NewPostgres(postgresConfig(cfg))
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()

	if err := postgres.Migrate(cmd.Context(), db); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	appLogger.Info("Schema applied", zap.String("db_name", cfg.Postgres.DBName))
	return nil
}
