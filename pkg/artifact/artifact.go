// Package artifact persists composed layer documents and the aggregate atlas
// metadata to a blob store.
//
// Layer documents land at <orientation>/svgs/<NN>.svg. Every write is
// independent: a failed write is recorded in the [Summary] and the remaining
// writes proceed. Metadata is written once, after all layers.
package artifact

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"runtime"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/histatlas/pkg/blob"
	"github.com/matzehuels/histatlas/pkg/compositor"
	"github.com/matzehuels/histatlas/pkg/observability"
	"github.com/matzehuels/histatlas/pkg/retry"
)

// Defaults for Options.
const (
	DefaultSVGDir      = "svgs"
	DefaultMetadataKey = "atlas.json"
	DefaultPadWidth    = 2
)

const (
	contentTypeSVG  = "image/svg+xml"
	contentTypeJSON = "application/json"
)

// Options configures a Writer.
type Options struct {
	SVGDir      string
	MetadataKey string
	PadWidth    int
	Workers     int
	Logger      *log.Logger
}

// Failure is a write that did not complete.
type Failure struct {
	Key string
	Err error
}

func (f Failure) Error() string { return fmt.Sprintf("write %s: %v", f.Key, f.Err) }
func (f Failure) Unwrap() error { return f.Err }

// Summary reports the outcome of a set of writes.
type Summary struct {
	Written []string
	Failed  []Failure
	Bytes   int64
}

// Err returns a non-nil error when any write failed.
func (s *Summary) Err() error {
	if len(s.Failed) == 0 {
		return nil
	}
	if len(s.Failed) == 1 {
		return s.Failed[0]
	}
	return fmt.Errorf("%d writes failed; first: %w", len(s.Failed), s.Failed[0])
}

func (s *Summary) merge(o Summary) {
	s.Written = append(s.Written, o.Written...)
	s.Failed = append(s.Failed, o.Failed...)
	s.Bytes += o.Bytes
}

// Writer persists artifacts to a store.
type Writer struct {
	store blob.Store
	opts  Options
}

// NewWriter returns a Writer for store.
func NewWriter(store blob.Store, opts Options) *Writer {
	if opts.SVGDir == "" {
		opts.SVGDir = DefaultSVGDir
	}
	if opts.MetadataKey == "" {
		opts.MetadataKey = DefaultMetadataKey
	}
	if opts.PadWidth <= 0 {
		opts.PadWidth = DefaultPadWidth
	}
	if opts.Workers <= 0 {
		opts.Workers = runtime.GOMAXPROCS(0)
	}
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard)
	}
	return &Writer{store: store, opts: opts}
}

// LayerKey returns the key of a layer document.
func (w *Writer) LayerKey(orientation string, layer int) string {
	return fmt.Sprintf("%s/%s/%s.svg", orientation, w.opts.SVGDir, compositor.PadLayer(layer, w.opts.PadWidth))
}

// MetadataKey returns the key of the metadata document.
func (w *Writer) MetadataKey() string { return w.opts.MetadataKey }

// WriteLayers writes every layer document with bounded parallelism. It
// returns an error only when ctx is done; write failures are in the Summary.
// Written keys are reported in input order.
func (w *Writer) WriteLayers(ctx context.Context, layers []compositor.LayerResult) (Summary, error) {
	type outcome struct {
		key  string
		size int
		err  error
	}
	outcomes := make([]outcome, len(layers))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.opts.Workers)
	for i, l := range layers {
		i, l := i, l
		g.Go(func() error {
			key := w.LayerKey(l.Orientation, l.Layer)
			err := w.put(gctx, key, l.Document, contentTypeSVG)
			if err != nil && gctx.Err() != nil {
				return gctx.Err()
			}
			outcomes[i] = outcome{key: key, size: len(l.Document), err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Summary{}, err
	}

	var sum Summary
	for _, o := range outcomes {
		if o.err != nil {
			w.opts.Logger.Error("write failed", "path", o.key, "error", o.err)
			sum.Failed = append(sum.Failed, Failure{Key: o.key, Err: o.err})
			continue
		}
		sum.Written = append(sum.Written, o.key)
		sum.Bytes += int64(o.size)
	}
	return sum, nil
}

// WriteMetadata encodes meta as JSON and writes it to the metadata key.
func (w *Writer) WriteMetadata(ctx context.Context, meta *Metadata) (Summary, error) {
	data, err := json.Marshal(meta)
	if err != nil {
		return Summary{}, fmt.Errorf("encode metadata: %w", err)
	}
	key := w.opts.MetadataKey
	if err := w.put(ctx, key, data, contentTypeJSON); err != nil {
		if ctx.Err() != nil {
			return Summary{}, ctx.Err()
		}
		w.opts.Logger.Error("write failed", "path", key, "error", err)
		return Summary{Failed: []Failure{{Key: key, Err: err}}}, nil
	}
	return Summary{Written: []string{key}, Bytes: int64(len(data))}, nil
}

// WriteAll writes the layers, then the metadata, and returns the combined
// summary. Metadata is written even when some layer writes failed.
func (w *Writer) WriteAll(ctx context.Context, layers []compositor.LayerResult, meta *Metadata) (Summary, error) {
	start := time.Now()
	sum, err := w.WriteLayers(ctx, layers)
	if err != nil {
		return sum, err
	}
	ms, err := w.WriteMetadata(ctx, meta)
	if err != nil {
		return sum, err
	}
	sum.merge(ms)
	w.opts.Logger.Info("wrote artifacts",
		"written", len(sum.Written),
		"failed", len(sum.Failed),
		"duration", time.Since(start))
	return sum, nil
}

func (w *Writer) put(ctx context.Context, key string, data []byte, contentType string) error {
	err := retry.WithBackoff(ctx, func() error {
		return w.store.Put(ctx, key, bytes.NewReader(data), blob.PutOptions{ContentType: contentType})
	})
	observability.Pipeline().OnWrite(ctx, key, len(data), err)
	return err
}
