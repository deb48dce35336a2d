package compositor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"runtime"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/matzehuels/histatlas/pkg/blob"
	"github.com/matzehuels/histatlas/pkg/catalog"
	aerr "github.com/matzehuels/histatlas/pkg/errors"
	"github.com/matzehuels/histatlas/pkg/geometry"
	"github.com/matzehuels/histatlas/pkg/observability"
	"github.com/matzehuels/histatlas/pkg/retry"
	"github.com/matzehuels/histatlas/pkg/trace"
)

// Defaults for Options.
const (
	DefaultExtension = "jpg"
	DefaultPadWidth  = 2
	DefaultPartsDir  = "parts"
)

// Options configures a Compositor.
type Options struct {
	// Extension of mask bitmaps, without the dot.
	Extension string

	// PadWidth is the zero-padded width of layer numbers in file names.
	PadWidth int

	// PartsDir is the per-orientation directory holding region masks.
	PartsDir string

	// Workers bounds concurrent layer tasks, and separately the number of
	// masks being read or traced at once across all layers.
	Workers int

	Logger *log.Logger
}

func (o *Options) setDefaults() {
	if o.Extension == "" {
		o.Extension = DefaultExtension
	}
	o.Extension = strings.TrimPrefix(o.Extension, ".")
	if o.PadWidth <= 0 {
		o.PadWidth = DefaultPadWidth
	}
	if o.PartsDir == "" {
		o.PartsDir = DefaultPartsDir
	}
	if o.Workers <= 0 {
		o.Workers = runtime.GOMAXPROCS(0)
	}
	if o.Logger == nil {
		o.Logger = log.New(io.Discard)
	}
}

// Failure is a mask that exists but could not be read or traced.
type Failure struct {
	Orientation string
	Layer       int
	Region      string
	Key         string
	Err         error
}

func (f Failure) Error() string {
	return fmt.Sprintf("%s layer %d region %s (%s): %v", f.Orientation, f.Layer, f.Region, f.Key, f.Err)
}

func (f Failure) Unwrap() error { return f.Err }

// LayerResult is the immutable output of one (orientation, layer) task.
type LayerResult struct {
	Orientation string
	Layer       int

	// Document is the composed SVG. It is never nil.
	Document []byte

	// Regions lists the regions drawn into Document, in catalog order.
	Regions []string

	Failures []Failure
}

// Compositor traces and composes layer documents. It holds no per-run state
// and is safe for concurrent use.
type Compositor struct {
	store   blob.Store
	tracer  trace.Tracer
	catalog *catalog.Catalog
	opts    Options
	sem     *semaphore.Weighted
}

// New returns a Compositor reading masks from store.
func New(store blob.Store, tracer trace.Tracer, cat *catalog.Catalog, opts Options) *Compositor {
	opts.setDefaults()
	return &Compositor{
		store:   store,
		tracer:  tracer,
		catalog: cat,
		opts:    opts,
		sem:     semaphore.NewWeighted(int64(opts.Workers)),
	}
}

// BitmapKey returns the storage key of a region's mask in one layer.
func (c *Compositor) BitmapKey(orientation, region string, layer int) string {
	return BitmapKey(c.opts.PartsDir, orientation, region, layer, c.opts.PadWidth, c.opts.Extension)
}

// BitmapKey builds <orientation>/<partsDir>/<region>/<NN>.<ext>.
func BitmapKey(partsDir, orientation, region string, layer, padWidth int, ext string) string {
	return fmt.Sprintf("%s/%s/%s/%s.%s", orientation, partsDir, region, PadLayer(layer, padWidth), ext)
}

// PadLayer zero-pads a layer number to width digits.
func PadLayer(layer, width int) string {
	return fmt.Sprintf("%0*d", width, layer)
}

// Compose runs every (orientation, layer) task with bounded parallelism.
// Results are returned in orientation order, then ascending layer.
func (c *Compositor) Compose(ctx context.Context, orientations []geometry.Resolved) ([]LayerResult, error) {
	total := 0
	for _, o := range orientations {
		total += o.LayerCount
	}
	results := make([]LayerResult, total)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.opts.Workers)

	slot := 0
	for _, o := range orientations {
		for layer := 0; layer < o.LayerCount; layer++ {
			i, o, layer := slot, o, layer
			slot++
			g.Go(func() error {
				res, err := c.ComposeLayer(gctx, o, layer)
				if err != nil {
					return err
				}
				results[i] = res
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// regionOutcome is the result of looking up and tracing one region.
type regionOutcome struct {
	fragment trace.Fragment
	present  bool
	failure  *Failure
}

// ComposeLayer produces the document for one layer of o. It returns an error
// only when ctx is done; per-region problems are recorded in Failures.
func (c *Compositor) ComposeLayer(ctx context.Context, o geometry.Resolved, layer int) (LayerResult, error) {
	if err := ctx.Err(); err != nil {
		return LayerResult{}, err
	}
	start := time.Now()
	hooks := observability.Pipeline()
	hooks.OnLayerStart(ctx, o.Name, layer)

	keys := c.catalog.Keys()
	outcomes := make([]regionOutcome, len(keys))

	g, gctx := errgroup.WithContext(ctx)
	for i, region := range keys {
		i, region := i, region
		g.Go(func() error {
			out, err := c.traceRegion(gctx, o.Name, region, layer)
			if err != nil {
				return err
			}
			outcomes[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		hooks.OnLayerComplete(ctx, o.Name, layer, 0, time.Since(start), err)
		return LayerResult{}, err
	}

	res := LayerResult{Orientation: o.Name, Layer: layer, Regions: []string{}}
	var doc Document
	doc.Width, doc.Height = o.RawWidth, o.RawHeight
	for i, region := range keys {
		out := outcomes[i]
		if out.failure != nil {
			res.Failures = append(res.Failures, *out.failure)
			continue
		}
		if !out.present {
			continue
		}
		doc.Paths = append(doc.Paths, c.style(region, out.fragment))
		res.Regions = append(res.Regions, region)
	}
	res.Document = doc.Bytes()

	var layerErr error
	if len(res.Failures) > 0 {
		layerErr = fmt.Errorf("%d region(s) failed", len(res.Failures))
	}
	hooks.OnLayerComplete(ctx, o.Name, layer, len(res.Regions), time.Since(start), layerErr)
	c.opts.Logger.Debug("composed layer",
		"orientation", o.Name,
		"layer", layer,
		"regions", len(res.Regions),
		"duration", time.Since(start))
	return res, nil
}

// traceRegion looks up and traces one mask. The returned error is non-nil
// only on context cancellation. A worker slot is held from the existence
// check until the trace returns, so at most Workers masks are in memory.
func (c *Compositor) traceRegion(ctx context.Context, orientation, region string, layer int) (regionOutcome, error) {
	if err := c.sem.Acquire(ctx, 1); err != nil {
		return regionOutcome{}, err
	}
	defer c.sem.Release(1)

	key := c.BitmapKey(orientation, region, layer)
	logger := c.opts.Logger.With("orientation", orientation, "layer", layer, "region", region)
	fail := func(err error) (regionOutcome, error) {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return regionOutcome{}, ctxErr
		}
		logger.Error("region failed", "path", key, "error", err)
		return regionOutcome{failure: &Failure{
			Orientation: orientation, Layer: layer, Region: region, Key: key, Err: err,
		}}, nil
	}

	var exists bool
	err := retry.WithBackoff(ctx, func() error {
		var err error
		exists, err = c.store.Exists(ctx, key)
		return err
	})
	if err != nil {
		return fail(aerr.Wrap(aerr.ErrCodeIO, err, "check %s", key))
	}
	if !exists {
		logger.Debug("no bitmap", "path", key)
		return regionOutcome{}, nil
	}

	var data []byte
	err = retry.WithBackoff(ctx, func() error {
		var err error
		data, err = blob.ReadAll(ctx, c.store, key)
		return err
	})
	if errors.Is(err, blob.ErrNotFound) {
		logger.Debug("bitmap vanished", "path", key)
		return regionOutcome{}, nil
	}
	if err != nil {
		return fail(aerr.Wrap(aerr.ErrCodeIO, err, "read %s", key))
	}

	start := time.Now()
	frag, err := c.tracer.Trace(ctx, bytes.NewReader(data))
	observability.Pipeline().OnTrace(ctx, region, time.Since(start), err)
	if err != nil {
		if !aerr.Is(err, aerr.ErrCodeTraceFailed) {
			err = aerr.Wrap(aerr.ErrCodeTraceFailed, err, "trace %s", key)
		}
		return fail(err)
	}
	if frag.Empty() {
		logger.Info("empty trace", "path", key)
		return regionOutcome{}, nil
	}
	return regionOutcome{fragment: frag, present: true}, nil
}
