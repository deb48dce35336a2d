package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/matzehuels/histatlas/pkg/catalog"
	"github.com/matzehuels/histatlas/pkg/hierarchy"
	"github.com/matzehuels/histatlas/pkg/pipeline"
)

// catalogDocument is the histology-free atlas document: the region catalog
// and tree without any layer data.
type catalogDocument struct {
	Regions     map[string]string             `json:"regions"`
	RegionOrder []string                      `json:"regionOrder"`
	Colors      map[string]string             `json:"colors"`
	Hierarchy   []*hierarchy.Node             `json:"hierarchy"`
	Breadcrumbs map[string]catalog.Breadcrumb `json:"breadcrumbs"`
}

func newCatalogDocument(root *hierarchy.Node, cat *catalog.Catalog) catalogDocument {
	return catalogDocument{
		Regions:     cat.Regions(),
		RegionOrder: cat.Keys(),
		Colors:      cat.Colors(),
		Hierarchy:   []*hierarchy.Node{root},
		Breadcrumbs: cat.Breadcrumbs(),
	}
}

// catalogCommand prints the region catalog built from the hierarchy and
// color dataset, and reports mismatches between the two.
func (c *CLI) catalogCommand() *cobra.Command {
	var (
		configPath string
		asJSON     bool
		output     string
	)

	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "List atlas regions and check them against the color dataset",
		Long: `Catalog builds the region catalog from the hierarchy table and color dataset
and lists it. With --json or --output it emits the catalog document
{regions, regionOrder, colors, hierarchy, breadcrumbs}, an atlas without
histology layers.`,
		Example: `  # Write the catalog document for a region-only atlas
  histatlas catalog -c body.toml -o body.json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			runner := pipeline.NewRunner(nil, nil, loggerFromContext(cmd.Context()))
			root, cat, err := runner.LoadCatalog(cmd.Context(), cfg)
			if err != nil {
				return err
			}

			doc := newCatalogDocument(root, cat)
			if output != "" {
				data, err := json.Marshal(doc)
				if err != nil {
					return err
				}
				if err := os.WriteFile(output, data, 0o644); err != nil {
					return err
				}
				out := printer{w: cmd.ErrOrStderr()}
				out.success("Wrote catalog with %d regions", cat.Len())
				out.file(output)
				return nil
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(doc)
			}

			out := printer{w: cmd.OutOrStdout()}
			out.line(StyleTitle.Render("Regions"))
			for _, key := range cat.Keys() {
				color, _ := cat.Color(key)
				crumb, _ := cat.Breadcrumb(key)
				out.line(fmt.Sprintf("%s %-8s %s", swatch(color), key, cat.Name(key)))
				out.detail("%s", crumb.Path)
			}
			out.line("")
			out.success("%s regions", StyleNumber.Render(fmt.Sprint(cat.Len())))
			for _, name := range cat.UnknownColors() {
				out.warning("color %s has no matching region", name)
			}
			for _, key := range cat.Uncolored() {
				out.warning("region %s has no color", key)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "config file (toml or json, default ./atlas.toml)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the catalog document as JSON")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write the catalog document to this file")

	return cmd
}
