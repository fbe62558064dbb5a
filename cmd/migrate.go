package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"epguest/internal/app/db"
	"epguest/internal/configs"
	"epguest/internal/pkg/logx"
)

var migrateCmd = &cobra.Command{
	Use:       "migrate [up|down|status]",
	Short:     "Manage the PostgreSQL session schema",
	Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{"up", "down", "status"},
	RunE:      runMigrate,
}

func runMigrate(cmd *cobra.Command, args []string) error {
	command := "up"
	if len(args) == 1 {
		command = args[0]
	}

	cfg, err := configs.LoadConfig(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	logx.InitGlobalLogger(cfg.IsDevelopment())

	if cfg.DatabaseURL == "" {
		return errors.New("database_url is not set")
	}

	if err := db.Migrate(cmd.Context(), cfg.DatabaseURL, command); err != nil {
		return fmt.Errorf("migrate %s: %w", command, err)
	}

	logx.Info("Migration finished.", "command", command)
	return nil
}
