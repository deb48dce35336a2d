package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/histatlas/pkg/blob"
	"github.com/matzehuels/histatlas/pkg/geometry"
	"github.com/matzehuels/histatlas/pkg/pipeline"
)

// dimsCommand prints per-orientation crop and resize dimensions in a form
// shell image tooling can source directly.
func (c *CLI) dimsCommand() *cobra.Command {
	var (
		configPath string
		input      string
		verbose    bool
	)

	cmd := &cobra.Command{
		Use:   "dims",
		Short: "Print crop and resize dimensions for each orientation",
		Long: `Dims resolves every orientation's layout crop into raw pixel space and prints
shell variable assignments:

  coronalCropDims="w h left top"
  coronalResizeDims="w"

Raw sizes come from the config, or from each orientation's reference image.`,
		Example: `  # Source crop dimensions into a shell script
  eval "$(histatlas dims -c brain.toml)"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			if input != "" {
				cfg.Input = blob.Config{Driver: blob.DriverFilesystem, Root: input}
			}
			if err := cfg.ValidateAndSetDefaults(); err != nil {
				return err
			}

			runner := pipeline.NewRunner(nil, nil, loggerFromContext(cmd.Context()))
			store, err := runner.OpenInput(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			resolved, err := runner.ResolveOrientations(cmd.Context(), cfg, store)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			for _, r := range resolved {
				fmt.Fprint(w, geometry.DimsLines(r))
				if verbose {
					fmt.Fprintf(w, "# %s: raw %dx%d, scale %.4f, resize %dx%d\n",
						r.Name, r.RawWidth, r.RawHeight, r.ScaleFactor, r.Width, r.Height)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "config file (toml or json, default ./atlas.toml)")
	cmd.Flags().StringVar(&input, "input", "", "read reference images from this directory")
	cmd.Flags().BoolVar(&verbose, "details", false, "add a comment line with raw size and scale")

	return cmd
}
