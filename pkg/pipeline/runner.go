package pipeline

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/matzehuels/histatlas/pkg/artifact"
	"github.com/matzehuels/histatlas/pkg/blob"
	"github.com/matzehuels/histatlas/pkg/cache"
	"github.com/matzehuels/histatlas/pkg/catalog"
	"github.com/matzehuels/histatlas/pkg/compositor"
	aerr "github.com/matzehuels/histatlas/pkg/errors"
	"github.com/matzehuels/histatlas/pkg/geometry"
	"github.com/matzehuels/histatlas/pkg/hierarchy"
	"github.com/matzehuels/histatlas/pkg/trace"
)

// tracerName identifies the built-in tracer in cache keys.
const tracerName = "contour/v1"

// Runner encapsulates pipeline execution with caching.
//
// The Runner is stateless except for the cache, logger and optional store
// overrides - it doesn't store pipeline results. Multiple goroutines can
// safely use the same Runner with different configs.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger

	// Input and Output override the stores described by the config.
	Input  blob.Store
	Output blob.Store

	// Tracer overrides the built-in contour tracer. It is used as is,
	// without the trace cache.
	Tracer trace.Tracer
}

// NewRunner creates a runner with the given cache and keyer.
// If keyer is nil, a DefaultKeyer is used.
// If cache is nil, a NullCache is used (caching disabled).
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Runner{
		Cache:  c,
		Keyer:  keyer,
		Logger: logger,
	}
}

// Execute runs the catalog → geometry → compose → write pipeline.
//
// Configuration errors (bad hierarchy, duplicate regions, unreadable
// reference image) abort before anything is written. Per-mask and per-write
// failures do not abort; they are reported through Result.Err.
func (r *Runner) Execute(ctx context.Context, cfg *Config) (*Result, error) {
	if err := cfg.ValidateAndSetDefaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	result := &Result{RunID: cfg.RunID}
	if result.RunID == "" {
		result.RunID = uuid.NewString()
	}
	logger := r.Logger.With("run", shortID(result.RunID))

	// Stage 1: Catalog
	start := time.Now()
	root, cat, err := r.LoadCatalog(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("catalog: %w", err)
	}
	result.Hierarchy, result.Catalog = root, cat
	result.Stats.Regions = cat.Len()
	result.Stats.CatalogTime = time.Since(start)
	logger.Info("built region catalog",
		"regions", cat.Len(),
		"uncolored", len(cat.Uncolored()),
		"duration", result.Stats.CatalogTime)

	input, output, err := r.stores(ctx, cfg)
	if err != nil {
		return nil, err
	}

	// Stage 2: Geometry
	orients, err := r.ResolveOrientations(ctx, cfg, input)
	if err != nil {
		return nil, fmt.Errorf("geometry: %w", err)
	}
	result.Orientations = orients
	for _, o := range orients {
		logger.Info("resolved orientation",
			"orientation", o.Name,
			"layers", o.LayerCount,
			"raw", fmt.Sprintf("%dx%d", o.RawWidth, o.RawHeight),
			"scale", o.ScaleFactor)
	}

	// Stage 3: Compose
	start = time.Now()
	comp := compositor.New(input, r.tracer(cfg), cat, compositor.Options{
		Extension: cfg.Extension,
		PadWidth:  cfg.PadWidth,
		Workers:   cfg.Workers,
		Logger:    logger,
	})
	layers, err := comp.Compose(ctx, orients)
	if err != nil {
		return nil, fmt.Errorf("compose: %w", err)
	}
	result.Layers = layers
	result.Stats.Layers = len(layers)

	idx := compositor.NewPresenceIndex(orients, cat.Keys())
	for _, l := range layers {
		idx.Add(l)
		result.Stats.Presences += len(l.Regions)
		result.Failures = append(result.Failures, l.Failures...)
	}
	if err := idx.Check(); err != nil {
		return nil, aerr.Wrap(aerr.ErrCodeInternal, err, "presence index")
	}
	result.Index = idx
	result.Stats.ComposeTime = time.Since(start)
	logger.Info("composed layers",
		"layers", len(layers),
		"presences", result.Stats.Presences,
		"failures", len(result.Failures),
		"duration", result.Stats.ComposeTime)

	// Stage 4: Write
	start = time.Now()
	writer := artifact.NewWriter(output, artifact.Options{
		MetadataKey: cfg.MetadataKey,
		PadWidth:    cfg.PadWidth,
		Workers:     cfg.Workers,
		Logger:      logger,
	})
	meta := artifact.NewMetadata(artifact.MetadataInput{
		Catalog:         cat,
		Hierarchy:       root,
		Index:           idx,
		Orientations:    orients,
		Stains:          cfg.Stains,
		ResizeFactor:    cfg.ResizeFactor,
		TotalImageCount: cfg.TotalImageCount,
		RunID:           result.RunID,
	})
	sum, err := writer.WriteAll(ctx, layers, meta)
	if err != nil {
		return nil, fmt.Errorf("write: %w", err)
	}
	result.Writes = sum
	result.Stats.WriteTime = time.Since(start)

	return result, nil
}

// LoadCatalog reads the hierarchy table and color dataset and builds the
// region catalog.
func (r *Runner) LoadCatalog(ctx context.Context, cfg *Config) (*hierarchy.Node, *catalog.Catalog, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	root, err := LoadHierarchy(cfg.Hierarchy)
	if err != nil {
		return nil, nil, err
	}

	var colors []catalog.ColorEntry
	if cfg.Colors != "" {
		f, err := os.Open(cfg.Colors)
		if err != nil {
			return nil, nil, aerr.Wrap(aerr.ErrCodeFileNotFound, err, "open color dataset")
		}
		defer f.Close()
		if colors, err = catalog.DecodeColorDataset(f); err != nil {
			return nil, nil, aerr.Wrap(aerr.ErrCodeInvalidInput, err, "color dataset %s", cfg.Colors)
		}
	} else {
		r.Logger.Warn("no color dataset configured; every region is unassigned")
	}

	cat, err := catalog.Build(root, colors, catalog.Options{Extra: cfg.ExtraColors, Logger: r.Logger})
	if err != nil {
		return nil, nil, err
	}
	return root, cat, nil
}

// LoadHierarchy reads and builds the hierarchy CSV at path.
func LoadHierarchy(path string) (*hierarchy.Node, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, aerr.Wrap(aerr.ErrCodeFileNotFound, err, "open hierarchy")
	}
	defer f.Close()
	rows, err := hierarchy.ReadCSV(f)
	if err != nil {
		return nil, err
	}
	return hierarchy.Build(rows)
}

// ResolveOrientations computes the pixel-space geometry of every configured
// orientation, probing reference images for sizes the config leaves out.
func (r *Runner) ResolveOrientations(ctx context.Context, cfg *Config, input blob.Store) ([]geometry.Resolved, error) {
	out := make([]geometry.Resolved, 0, len(cfg.Orientations))
	for _, o := range cfg.Orientations {
		w, h := o.Width, o.Height
		if w == 0 {
			var err error
			if w, h, err = geometry.ProbeSize(ctx, input, cfg.ReferenceKey(o.Name)); err != nil {
				return nil, err
			}
		}
		res, err := geometry.Resolve(o.Orientation, w, h, cfg.ResizeFactor)
		if err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	return out, nil
}

// OpenInput returns the input store, honoring the Runner override.
func (r *Runner) OpenInput(ctx context.Context, cfg *Config) (blob.Store, error) {
	if r.Input != nil {
		return r.Input, nil
	}
	s, err := blob.Open(ctx, cfg.Input)
	if err != nil {
		return nil, aerr.Wrap(aerr.ErrCodeInvalidConfig, err, "open input store")
	}
	return s, nil
}

func (r *Runner) stores(ctx context.Context, cfg *Config) (blob.Store, blob.Store, error) {
	input, err := r.OpenInput(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	output := r.Output
	if output == nil {
		if output, err = blob.Open(ctx, cfg.Output); err != nil {
			return nil, nil, aerr.Wrap(aerr.ErrCodeInvalidConfig, err, "open output store")
		}
	}
	return input, output, nil
}

func (r *Runner) tracer(cfg *Config) trace.Tracer {
	if r.Tracer != nil {
		return r.Tracer
	}
	base := trace.ContourTracer{Threshold: uint8(cfg.Trace.Threshold), TurdSize: cfg.Trace.TurdSize}
	ct := trace.NewCachingTracer(base, r.Cache, cache.TraceKeyOpts{
		Tracer:    tracerName,
		Threshold: base.Threshold,
		TurdSize:  base.TurdSize,
	}, r.Logger)
	if r.Keyer != nil {
		ct.Keyer = r.Keyer
	}
	return ct
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
