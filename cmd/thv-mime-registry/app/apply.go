package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	pkgsync "github.com/stacklok/toolhive-mime-registry/internal/sync"
	"github.com/stacklok/toolhive-mime-registry/internal/validators"
)

const (
	opSet    = "set"
	opDelete = "delete"
)

var applyCmd = &cobra.Command{
	Use:   "apply -f <file>",
	Short: "Apply a YAML list of manual edits",
	Long: `Apply a YAML list of manual edits in order. Each edit has the form

  - op: set            # or delete
    extension: webp
    mediaType: image/webp

Edits are persisted one at a time. The first invalid edit stops the run and
the edits before it stay applied. Use "-f -" to read from stdin.`,
	Args: cobra.NoArgs,
	RunE: runApply,
}

func init() {
	applyCmd.Flags().StringP("file", "f", "", "Path to the YAML edit list, or - for stdin")
	if err := applyCmd.MarkFlagRequired("file"); err != nil {
		zap.S().Fatalw("Failed to mark file flag as required", "error", err)
	}
}

// editResult is the outcome of one applied edit
type editResult struct {
	Op        string
	Extension string
	MediaType string
	Changed   bool
}

func runApply(cmd *cobra.Command, _ []string) error {
	path, err := cmd.Flags().GetString("file")
	if err != nil {
		return fmt.Errorf("failed to read file flag: %w", err)
	}

	edits, err := readEdits(cmd.InOrStdin(), path)
	if err != nil {
		return err
	}

	return withComponents(cmd.Context(), func(c *components) error {
		results, err := applyEdits(cmd.Context(), c.manager, edits)
		for _, r := range results {
			state := "unchanged"
			if r.Changed {
				state = "changed"
			}
			if _, werr := fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\t%s\n", r.Op, r.Extension, r.MediaType, state); werr != nil {
				return werr
			}
		}
		return err
	})
}

// readEdits decodes the edit list from path, or from stdin when path is "-"
func readEdits(stdin io.Reader, path string) ([]map[string]any, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read edits: %w", err)
	}

	var edits []map[string]any
	if err := yaml.Unmarshal(data, &edits); err != nil {
		return nil, fmt.Errorf("failed to parse edits: %w", err)
	}
	return edits, nil
}

// applyEdits applies edits in order and returns the results of those that
// were applied. Values are decoded dynamically, so a non-string field is
// reported with validators.ErrWrongType.
func applyEdits(ctx context.Context, manager pkgsync.Manager, edits []map[string]any) ([]editResult, error) {
	results := make([]editResult, 0, len(edits))
	for i, edit := range edits {
		result, err := applyEdit(ctx, manager, edit)
		if err != nil {
			return results, fmt.Errorf("edit %d: %w", i, err)
		}
		results = append(results, result)
	}
	return results, nil
}

func applyEdit(ctx context.Context, manager pkgsync.Manager, edit map[string]any) (editResult, error) {
	op, err := validators.StringArg("op", edit["op"])
	if err != nil {
		return editResult{}, err
	}
	extension, extErr := validators.StringArg("extension", edit["extension"])
	mediaType, mtErr := validators.StringArg("mediaType", edit["mediaType"])
	if extErr != nil || mtErr != nil {
		// report every violation of the edit, not only the type error
		if extErr == nil {
			_, extErr = validators.ValidateExtension(extension)
		}
		if mtErr == nil {
			_, mtErr = validators.ParseMediaType(mediaType)
		}
		return editResult{}, errors.Join(extErr, mtErr)
	}

	result := editResult{Op: op, Extension: extension, MediaType: mediaType}
	switch op {
	case opSet:
		result.Changed, err = manager.SetOne(ctx, extension, mediaType)
	case opDelete:
		result.Changed, err = manager.DeleteOne(ctx, extension, mediaType)
	default:
		err = &validators.ValidationError{
			Kind:   validators.ErrMalformed,
			Field:  "op",
			Value:  op,
			Reason: fmt.Sprintf("op must be %s or %s", opSet, opDelete),
		}
	}
	if err != nil {
		return editResult{}, err
	}
	return result, nil
}
