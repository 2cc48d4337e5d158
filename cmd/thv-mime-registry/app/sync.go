package app

import (
	"fmt"

	"github.com/spf13/cobra"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Run one synchronization cycle",
	Long: `Probe every enabled source, fetch the ones whose version token changed and
merge their associations into the registry. With --force every source is
fetched regardless of its version token.

The cycle report is printed as a table, or as JSON with --format json.
Sources that fail are reported but do not fail the command; only a snapshot
persistence failure does.`,
	Args: cobra.NoArgs,
	RunE: runSync,
}

func init() {
	syncCmd.Flags().Bool("force", false, "Fetch every source even when its version token is unchanged")
	addFormatFlag(syncCmd)
}

func runSync(cmd *cobra.Command, _ []string) error {
	force, err := cmd.Flags().GetBool("force")
	if err != nil {
		return fmt.Errorf("failed to read force flag: %w", err)
	}
	format, err := outputFormat(cmd)
	if err != nil {
		return err
	}

	return withComponents(cmd.Context(), func(c *components) error {
		_, syncErr := c.manager.Synchronize(cmd.Context(), force)
		if err := writeReport(cmd.OutOrStdout(), format, c.manager.LastReport()); err != nil {
			return err
		}
		return syncErr
	})
}
