package cli

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/matzehuels/histatlas/pkg/blob"
	"github.com/matzehuels/histatlas/pkg/observability"
	"github.com/matzehuels/histatlas/pkg/pipeline"
)

// buildFlags holds flags for the build command.
type buildFlags struct {
	config  string
	input   string
	output  string
	workers int
	runID   string
	cache   cacheFlags
}

// buildCommand creates the build command for producing a full atlas.
func (c *CLI) buildCommand() *cobra.Command {
	var flags buildFlags

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Trace region masks into layer SVGs and write the atlas metadata",
		Long: `Build reads the hierarchy table and color dataset named in the config, traces
every <orientation>/parts/<region>/<NN>.<ext> mask, and writes one SVG per layer
to <orientation>/svgs/<NN>.svg plus the aggregate metadata document.

Masks that fail to read or trace are reported and skipped; the rest of the
atlas is still written, and the command exits non-zero.`,
		Example: `  # Build with ./atlas.toml
  histatlas build

  # Override the input and output directories
  histatlas build -c brain.toml --input ./histology --output ./dist

  # Share traced fragments between machines
  histatlas build --redis localhost:6379`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runBuild(cmd, flags)
		},
	}

	cmd.Flags().StringVarP(&flags.config, "config", "c", "", "config file (toml or json, default ./atlas.toml)")
	cmd.Flags().StringVar(&flags.input, "input", "", "read masks from this directory instead of the configured input store")
	cmd.Flags().StringVarP(&flags.output, "output", "o", "", "write artifacts to this directory instead of the configured output store")
	cmd.Flags().IntVarP(&flags.workers, "workers", "w", 0, "maximum concurrent traces (default: config or number of CPUs)")
	cmd.Flags().StringVar(&flags.runID, "run-id", "", "label for this run in the metadata (default: random UUID)")
	flags.cache.register(cmd)

	return cmd
}

func (c *CLI) runBuild(cmd *cobra.Command, flags buildFlags) error {
	ctx := cmd.Context()
	logger := loggerFromContext(ctx)
	out := printer{w: cmd.OutOrStdout()}

	cfg, err := loadConfig(flags.config)
	if err != nil {
		return err
	}
	applyBuildFlags(cfg, flags)

	runner, err := c.newRunner(ctx, flags.cache)
	if err != nil {
		return fmt.Errorf("open cache: %w", err)
	}
	defer runner.Cache.Close()

	counters := &observability.Counters{}
	observability.SetPipelineHooks(counters)
	observability.SetCacheHooks(counters)
	defer observability.Reset()

	prog := newProgress(logger)
	result, err := runner.Execute(ctx, cfg)
	if err != nil {
		return err
	}
	prog.done("Built atlas")

	printBuildSummary(out, result, counters.Snapshot())
	return result.Err()
}

// applyBuildFlags lets command-line flags override the config file.
func applyBuildFlags(cfg *pipeline.Config, flags buildFlags) {
	if flags.input != "" {
		cfg.Input = blob.Config{Driver: blob.DriverFilesystem, Root: flags.input}
	}
	if flags.output != "" {
		cfg.Output = blob.Config{Driver: blob.DriverFilesystem, Root: flags.output}
	}
	if flags.workers > 0 {
		cfg.Workers = flags.workers
	}
	if flags.runID != "" {
		cfg.RunID = flags.runID
	}
}

func printBuildSummary(out printer, result *pipeline.Result, snap observability.Snapshot) {
	s := result.Stats
	if err := result.Err(); err != nil {
		out.warning("Atlas written with errors")
	} else {
		out.success("Atlas written")
	}
	out.keyValue("Run", result.RunID)
	out.stats(
		fmt.Sprintf("%d regions", s.Regions),
		fmt.Sprintf("%d layers", s.Layers),
		fmt.Sprintf("%d region shapes", s.Presences),
		fmt.Sprintf("%s written", humanize.Bytes(uint64(result.Writes.Bytes))),
	)
	out.stats(
		fmt.Sprintf("%d traced", snap.Traces-snap.TraceErrors),
		fmt.Sprintf("%d cached", snap.CacheHits),
		fmt.Sprintf("compose %s", s.ComposeTime.Round(time.Millisecond)),
		fmt.Sprintf("write %s", s.WriteTime.Round(time.Millisecond)),
	)

	for _, f := range result.Failures {
		out.failure("%s layer %d: %s", f.Orientation, f.Layer, f.Region)
		out.detail("%s: %v", f.Key, f.Err)
	}
	for _, f := range result.Writes.Failed {
		out.failure("write %s", f.Key)
		out.detail("%v", f.Err)
	}
	if n := len(result.Catalog.Uncolored()); n > 0 {
		out.info("%d region(s) drawn with the unassigned color", n)
	}
}
