// Package cli implements the histatlas command-line interface.
package cli

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/histatlas/pkg/buildinfo"
	"github.com/matzehuels/histatlas/pkg/cache"
	"github.com/matzehuels/histatlas/pkg/pipeline"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// appName is the application name used for directories and display.
	appName = "histatlas"

	// defaultConfig is looked up in the working directory when --config is not set.
	defaultConfig = "atlas.toml"
)

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	// Out receives command output; logs go to the Logger.
	Out io.Writer
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger: newLogger(w, level),
		Out:    os.Stdout,
	}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   appName,
		Short: "histatlas builds vector histology atlases from region masks",
		Long: `histatlas turns an anatomical hierarchy table, a region color dataset and
per-region microscopy masks into a browsable vector atlas: one SVG per imaging
layer plus an aggregate metadata document for the viewer.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			cmd.SetContext(withLogger(cmd.Context(), c.Logger))
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.SetOut(c.Out)

	// Register all subcommands
	root.AddCommand(c.buildCommand())
	root.AddCommand(c.catalogCommand())
	root.AddCommand(c.dimsCommand())
	root.AddCommand(c.hierarchyCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// =============================================================================
// Runner Factory
// =============================================================================

// cacheFlags selects the trace cache backend.
type cacheFlags struct {
	noCache       bool
	redisAddr     string
	redisPassword string
	redisDB       int
}

func (f *cacheFlags) register(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&f.noCache, "no-cache", false, "disable the trace cache")
	cmd.Flags().StringVar(&f.redisAddr, "redis", "", "share the trace cache through Redis at this address")
	cmd.Flags().StringVar(&f.redisPassword, "redis-password", os.Getenv("HISTATLAS_REDIS_PASSWORD"), "Redis password")
	cmd.Flags().IntVar(&f.redisDB, "redis-db", 0, "Redis database number")
}

// newRunner creates a pipeline runner for CLI use.
func (c *CLI) newRunner(ctx context.Context, f cacheFlags) (*pipeline.Runner, error) {
	cc, err := c.newCache(ctx, f)
	if err != nil {
		return nil, err
	}
	var keyer cache.Keyer
	if f.redisAddr != "" && !f.noCache {
		// A shared Redis may hold other applications' keys.
		keyer = cache.NewScopedKeyer(nil, appName+":")
	}
	return pipeline.NewRunner(cc, keyer, c.Logger), nil
}

func (c *CLI) newCache(ctx context.Context, f cacheFlags) (cache.Cache, error) {
	switch {
	case f.noCache:
		return cache.NewNullCache(), nil
	case f.redisAddr != "":
		rc, err := cache.NewRedisCache(ctx, f.redisAddr, f.redisPassword, f.redisDB)
		if err != nil {
			return nil, err
		}
		c.Logger.Debug("using redis trace cache", "addr", f.redisAddr)
		return rc, nil
	}
	dir, err := cacheDir()
	if err != nil {
		c.Logger.Warn("no cache directory; tracing without cache", "error", err)
		return cache.NewNullCache(), nil
	}
	return cache.NewFileCache(dir)
}

// =============================================================================
// Paths
// =============================================================================

// cacheDir returns the cache directory using XDG standard (~/.cache/histatlas/).
func cacheDir() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}

// loadConfig reads the config at path, defaulting to ./atlas.toml.
func loadConfig(path string) (*pipeline.Config, error) {
	if path == "" {
		path = defaultConfig
	}
	return pipeline.LoadConfig(path)
}
