// Package pipeline builds a histology atlas end to end.
//
// The pipeline consists of four stages:
//
//  1. Catalog: read the hierarchy table and color dataset, build the region catalog
//  2. Geometry: size each orientation from its reference bitmap and resolve crops
//  3. Compose: trace every (orientation, region, layer) mask into layer documents
//  4. Write: persist layer documents, then the aggregate metadata
//
// [Config] is the single source of the pipeline constants (stains, resize
// factor, image count, orientations and paths). CLI flags override it.
//
// # Usage
//
//	cfg, err := pipeline.LoadConfig("atlas.toml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	runner := pipeline.NewRunner(cache, nil, logger)
//	result, err := runner.Execute(ctx, cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := result.Err(); err != nil {
//	    // some masks or writes failed; the rest of the atlas was written
//	}
package pipeline

import (
	"time"

	"github.com/matzehuels/histatlas/pkg/artifact"
	"github.com/matzehuels/histatlas/pkg/catalog"
	"github.com/matzehuels/histatlas/pkg/compositor"
	"github.com/matzehuels/histatlas/pkg/geometry"
	"github.com/matzehuels/histatlas/pkg/hierarchy"
)

// Result contains the outputs of a pipeline run.
type Result struct {
	RunID string

	Hierarchy    *hierarchy.Node
	Catalog      *catalog.Catalog
	Orientations []geometry.Resolved
	Index        *compositor.PresenceIndex

	// Layers holds one result per (orientation, layer), orientation-major.
	Layers []compositor.LayerResult

	// Failures are masks that existed but could not be read or traced.
	Failures []compositor.Failure

	// Writes summarises layer and metadata writes.
	Writes artifact.Summary

	Stats Stats
}

// Stats contains pipeline execution statistics.
type Stats struct {
	Regions     int
	Layers      int
	Presences   int
	CatalogTime time.Duration
	ComposeTime time.Duration
	WriteTime   time.Duration
}

// Err reports whether any mask or write failed. The atlas is still written
// around such failures, but the run should be treated as unsuccessful.
func (r *Result) Err() error {
	if len(r.Failures) > 0 {
		return &PartialError{Failures: r.Failures, Writes: r.Writes}
	}
	if err := r.Writes.Err(); err != nil {
		return &PartialError{Writes: r.Writes}
	}
	return nil
}
