package main

import (
	"errors"
	"todoTracker/internal/logger"
	"todoTracker/internal/migrations"

	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:       "migrate [up|down]",
	Short:     "Apply or roll back the PostgreSQL schema",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"up", "down"},
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cfg.Database.URL == "" {
			return errors.New("database.url is not set")
		}
		if err := logger.Init(cfg.Logging.Development, cfg.Logging.Level); err != nil {
			return err
		}
		defer logger.Sync()

		switch args[0] {
		case "up":
			return migrations.Up(cfg.Database.URL)
		case "down":
			return migrations.Down(cfg.Database.URL)
		}
		return errors.New(`expected "up" or "down"`)
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
