package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xaenox/askbot/pkg/config"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the database schema and exit",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := setup(false)
		if err != nil {
			return err
		}
		defer logger.Sync()

		if cfg.Database.Driver == config.DriverMemory {
			logger.Info("In-memory storage has no schema to apply")
			return nil
		}

		// Opening a SQL store applies the embedded schema.
		store, err := openStorage(cfg.Database, logger)
		if err != nil {
			logger.Error("Migration failed", zap.Error(err))
			return err
		}
		logger.Info("Schema is up to date", zap.String("driver", cfg.Database.Driver))
		return store.Close()
	},
}
