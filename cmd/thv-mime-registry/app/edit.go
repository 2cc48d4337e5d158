package app

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
)

var lookupCmd = &cobra.Command{
	Use:   "lookup <path>...",
	Short: "Print the media types registered for the extension of each path",
	Long: `Print the media types registered for the extension of each path, one row
per path. A bare name without a dot ("jpg") is taken as an extension.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := outputFormat(cmd)
		if err != nil {
			return err
		}
		return withComponents(cmd.Context(), func(c *components) error {
			results := make([]lookupResult, 0, len(args))
			for _, path := range args {
				types, err := c.manager.Lookup(path)
				if err != nil {
					return err
				}
				results = append(results, lookupResult{Path: path, MediaTypes: types})
			}
			return writeLookup(cmd.OutOrStdout(), format, results)
		})
	},
}

func init() {
	addFormatFlag(lookupCmd)
}

type lookupResult struct {
	Path       string   `json:"path"`
	MediaTypes []string `json:"mediaTypes"`
}

func writeLookup(w io.Writer, format string, results []lookupResult) error {
	if format == formatJSON {
		return writeJSON(w, results)
	}
	rows := make([][]string, 0, len(results))
	for _, r := range results {
		rows = append(rows, []string{r.Path, strings.Join(r.MediaTypes, ", ")})
	}
	return writeTable(w, []string{"Path", "Media Types"}, rows)
}

var setCmd = &cobra.Command{
	Use:   "set <extension> <media-type>",
	Short: "Associate a media type with an extension",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withComponents(cmd.Context(), func(c *components) error {
			added, err := c.manager.SetOne(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			return printEditResult(cmd, opSet, added)
		})
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete <extension> <media-type>",
	Short: "Remove a media type from an extension",
	Long: `Remove a media type from an extension. The media type is matched by its
essence, so parameters are ignored.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withComponents(cmd.Context(), func(c *components) error {
			removed, err := c.manager.DeleteOne(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			return printEditResult(cmd, opDelete, removed)
		})
	},
}

func printEditResult(cmd *cobra.Command, op string, changed bool) error {
	result := "unchanged"
	if changed {
		result = map[string]string{opSet: "added", opDelete: "removed"}[op]
	}
	_, err := fmt.Fprintln(cmd.OutOrStdout(), result)
	return err
}
