// Package cli implements the scenedex command-line interface: local entity
// detection, database migrations, and build information.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/scenedex/scenedex/internal/config"
	"github.com/scenedex/scenedex/internal/infrastructure/monitoring/logging"
)

// Build-time variables injected via ldflags.
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// NewRootCommand creates the root cobra command with all subcommands
// attached.
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "scenedex",
		Short:   "Scenedex CLI for screenplay entity detection and pipeline administration",
		Long:    "Scenedex ingests screenplay documents, detects production entities\n(characters, locations, props) and reconciles them across script revisions.\nThis CLI runs detection locally and administers the backing database.",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", Version, GitCommit, BuildDate),

		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(newDetectCmd())
	cmd.AddCommand(newMigrateCmd())

	return cmd
}

// Execute runs the root command against os.Args.
func Execute() error {
	root := NewRootCommand()
	if err := root.Execute(); err != nil {
		fmt.Fprintf(root.ErrOrStderr(), "Error: %v\n", err)
		return err
	}
	return nil
}

// loadConfig resolves the effective configuration: an explicit file when
// given, otherwise environment variables only.
func loadConfig(configPath string) (*config.Config, error) {
	if configPath != "" {
		return config.Load(configPath)
	}
	return config.LoadFromEnv()
}

// newCLILogger builds a console logger writing to stderr so command output
// on stdout stays machine-readable.
func newCLILogger(cfg *config.Config) (logging.Logger, error) {
	return logging.NewLogger(logging.LogConfig{
		Level:            cfg.Log.Level,
		Format:           "console",
		OutputPaths:      []string{"stderr"},
		ErrorOutputPaths: []string{"stderr"},
	})
}
