package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/scenedex/scenedex/internal/infrastructure/database/postgres"
)

func newMigrateCmd() *cobra.Command {
	var (
		configPath string
		dir        string
	)

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Long:  "Connects to the configured PostgreSQL instance and applies every\nmigration not yet recorded in the schema version table.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}

			log, err := newCLILogger(cfg)
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}

			conn, err := postgres.NewConnection(cmd.Context(), cfg.Database, log)
			if err != nil {
				return err
			}
			defer conn.Close()

			migrationsDir := dir
			if migrationsDir == "" {
				migrationsDir = cfg.Database.MigrationPath
			}
			return conn.RunMigrations(migrationsDir)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "config file path (default: environment variables only)")
	cmd.Flags().StringVar(&dir, "dir", "", "migrations directory (overrides config)")
	return cmd
}
