// Package pkg provides the core libraries for histatlas, a builder for
// vector histology atlases.
//
// # Overview
//
// histatlas turns three inputs into the static assets of an atlas viewer:
//
//   - a positionally indexed hierarchy table of anatomical regions (CSV)
//   - a color dataset mapping region keys to display colors (JSON)
//   - one binary mask bitmap per region per imaging layer
//
// Each layer becomes one SVG with a styled path per region present in it,
// and the whole atlas is described by a single metadata document.
//
// # Architecture
//
// The data flow through histatlas:
//
//	hierarchy.csv + colors.json
//	         ↓
//	    [hierarchy] package (validated tree)
//	         ↓
//	    [catalog] package (region keys, names, colors, breadcrumbs)
//	         ↓
//	    [geometry] package (layout crop → raw pixel space)
//	         ↓
//	    [compositor] package (trace masks, one SVG per layer)
//	         ↓
//	    [artifact] package (layer SVGs + metadata document)
//
// [pipeline] runs these stages and is shared by the CLI and library callers.
//
// # Quick Start
//
//	cfg, _ := pipeline.LoadConfig("atlas.toml")
//	fc, _ := cache.NewFileCache(dir)
//	runner := pipeline.NewRunner(fc, nil, logger)
//	result, err := runner.Execute(ctx, cfg)
//	if err != nil {
//	    return err // configuration or input error, nothing written
//	}
//	return result.Err() // masks that failed, if any
//
// # Main Packages
//
// [hierarchy] - CSV ingestion and tree construction. Rows must appear in
// pre-order; misplaced, duplicate and orphaned rows are rejected with their
// row number.
//
// [catalog] - Expands bilateral regions into left/right keys and joins the
// tree with the color dataset.
//
// [trace] - Raster-to-vector tracing. [trace.ContourTracer] follows the
// outlines of dark pixels; [trace.CachingTracer] memoizes fragments by mask
// content hash.
//
// [compositor] - Concurrent per-layer composition and the presence index
// linking regions to the layers they appear in.
//
// [artifact] - Writes layer documents and the metadata document to a
// [blob] store.
//
// ## Infrastructure
//
// [blob] - Storage backends for masks and artifacts: filesystem, S3 and
// in-memory.
//
// [cache] - Trace cache backends: file, Redis and null.
//
// [retry] - Exponential backoff for transient store errors.
//
// [observability] - Hooks for pipeline and cache events.
//
// [errors] - Coded errors shared by every package.
//
// [hierarchy]: https://pkg.go.dev/github.com/matzehuels/histatlas/pkg/hierarchy
// [catalog]: https://pkg.go.dev/github.com/matzehuels/histatlas/pkg/catalog
// [geometry]: https://pkg.go.dev/github.com/matzehuels/histatlas/pkg/geometry
// [trace]: https://pkg.go.dev/github.com/matzehuels/histatlas/pkg/trace
// [compositor]: https://pkg.go.dev/github.com/matzehuels/histatlas/pkg/compositor
// [artifact]: https://pkg.go.dev/github.com/matzehuels/histatlas/pkg/artifact
// [pipeline]: https://pkg.go.dev/github.com/matzehuels/histatlas/pkg/pipeline
// [blob]: https://pkg.go.dev/github.com/matzehuels/histatlas/pkg/blob
// [cache]: https://pkg.go.dev/github.com/matzehuels/histatlas/pkg/cache
// [retry]: https://pkg.go.dev/github.com/matzehuels/histatlas/pkg/retry
// [observability]: https://pkg.go.dev/github.com/matzehuels/histatlas/pkg/observability
// [errors]: https://pkg.go.dev/github.com/matzehuels/histatlas/pkg/errors
// [trace.ContourTracer]: https://pkg.go.dev/github.com/matzehuels/histatlas/pkg/trace#ContourTracer
// [trace.CachingTracer]: https://pkg.go.dev/github.com/matzehuels/histatlas/pkg/trace#CachingTracer
package pkg
