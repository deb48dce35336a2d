package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/matzehuels/histatlas/pkg/hierarchy"
	"github.com/matzehuels/histatlas/pkg/pipeline"
)

// Hierarchy output formats.
const (
	formatDOT  = "dot"
	formatSVG  = "svg"
	formatJSON = "json"
)

// hierarchyCommand validates a hierarchy table and renders the resulting tree.
func (c *CLI) hierarchyCommand() *cobra.Command {
	var (
		configPath string
		format     string
		output     string
	)

	cmd := &cobra.Command{
		Use:   "hierarchy [table.csv]",
		Short: "Validate the hierarchy table and render it as DOT, SVG or JSON",
		Long: `Hierarchy builds the anatomical tree from a positionally indexed table and
renders it. Misplaced, duplicate or orphaned rows are reported with their row
number. Without an argument, the table named in the config is used.`,
		Example: `  # Render the configured hierarchy to SVG
  histatlas hierarchy -f svg -o hierarchy.svg

  # Check a table and print the tree as JSON
  histatlas hierarchy data/brain-hierarchy.csv -f json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) == 1 {
				path = args[0]
			} else {
				cfg, err := loadConfig(configPath)
				if err != nil {
					return err
				}
				path = cfg.Hierarchy
			}

			root, err := pipeline.LoadHierarchy(path)
			if err != nil {
				return err
			}
			loggerFromContext(cmd.Context()).Debug("built hierarchy", "nodes", root.Count(), "path", path)

			data, err := renderHierarchy(cmd, root, format)
			if err != nil {
				return err
			}
			if output == "" {
				_, err := cmd.OutOrStdout().Write(data)
				return err
			}
			if err := os.WriteFile(output, data, 0o644); err != nil {
				return err
			}
			out := printer{w: cmd.ErrOrStderr()}
			out.success("Rendered hierarchy")
			out.file(output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "config file (toml or json, default ./atlas.toml)")
	cmd.Flags().StringVarP(&format, "format", "f", formatDOT, "output format: dot, svg, json")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write to file instead of stdout")

	return cmd
}

func renderHierarchy(cmd *cobra.Command, root *hierarchy.Node, format string) ([]byte, error) {
	switch format {
	case formatDOT:
		return []byte(hierarchy.ToDOT(root)), nil
	case formatSVG:
		return hierarchy.RenderSVG(cmd.Context(), root)
	case formatJSON:
		data, err := json.MarshalIndent([]*hierarchy.Node{root}, "", "  ")
		if err != nil {
			return nil, err
		}
		return append(data, '\n'), nil
	default:
		return nil, fmt.Errorf("invalid format: %q (must be one of: dot, svg, json)", format)
	}
}
