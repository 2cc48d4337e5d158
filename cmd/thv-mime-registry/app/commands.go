// Package app provides the command line interface of the media type registry.
package app

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/stacklok/toolhive-mime-registry/internal/config"
	"github.com/stacklok/toolhive-mime-registry/internal/versions"
)

const (
	flagConfig       = "config"
	flagDataDir      = "data-dir"
	flagSyncInterval = "sync-interval"
)

var rootCmd = &cobra.Command{
	Use:               "thv-mime-registry",
	DisableAutoGenTag: true,
	SilenceUsage:      true,
	Short:             "Media type registry synchronizer",
	Long: `thv-mime-registry keeps a registry of file extensions and media types in sync
with the Apache, Debian and NGINX mime.types documents, and answers lookups
from the persisted snapshot.`,
	Run: func(cmd *cobra.Command, _ []string) {
		// If no subcommand is provided, print help
		if err := cmd.Help(); err != nil {
			zap.S().Errorw("Error displaying help", "error", err)
		}
	},
}

// NewRootCmd creates the root command with every subcommand attached
func NewRootCmd() *cobra.Command {
	viper.SetEnvPrefix(config.EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	viper.AutomaticEnv()

	flags := rootCmd.PersistentFlags()
	flags.String(flagConfig, "", "Path to configuration file (YAML format)")
	flags.String(flagDataDir, "", "Directory holding the registry snapshot (overrides dataDir)")
	flags.String(flagSyncInterval, "",
		"Interval between scheduled synchronizations: a duration, milliseconds or 'disabled' (overrides syncInterval)")

	for _, name := range []string{flagConfig, flagDataDir, flagSyncInterval} {
		if err := viper.BindPFlag(name, flags.Lookup(name)); err != nil {
			zap.S().Errorw("Error binding flag", "flag", name, "error", err)
		}
	}

	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(lookupCmd)
	rootCmd.AddCommand(setCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(applyCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(versionCmd)

	return rootCmd
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	RunE: func(cmd *cobra.Command, _ []string) error {
		info := versions.GetVersionInfo()
		format, err := cmd.Flags().GetString("format")
		if err != nil {
			return fmt.Errorf("failed to read format flag: %w", err)
		}

		if format == formatJSON {
			return writeJSON(cmd.OutOrStdout(), info)
		}
		_, err = fmt.Fprintf(cmd.OutOrStdout(), "thv-mime-registry %s\n", info)
		return err
	},
}

func init() {
	versionCmd.Flags().String("format", "", "Output format (json)")
}
