package artifact

import (
	"time"

	"github.com/google/uuid"

	"github.com/matzehuels/histatlas/pkg/catalog"
	"github.com/matzehuels/histatlas/pkg/compositor"
	"github.com/matzehuels/histatlas/pkg/geometry"
	"github.com/matzehuels/histatlas/pkg/hierarchy"
)

// Metadata is the aggregate atlas document consumed by the viewer.
type Metadata struct {
	Regions         map[string]string             `json:"regions"`
	RegionOrder     []string                      `json:"regionOrder"`
	Colors          map[string]string             `json:"colors"`
	Hierarchy       []*hierarchy.Node             `json:"hierarchy"`
	Breadcrumbs     map[string]catalog.Breadcrumb `json:"breadcrumbs"`
	Orientations    []geometry.Resolved           `json:"orientations"`
	Stains          []string                      `json:"stains"`
	ResizeFactor    float64                       `json:"resizeFactor"`
	PartsInLayer    map[string]map[int][]string   `json:"partsInLayer"`
	LayersWithPart  map[string]map[string][]int   `json:"layersWithPart"`
	TotalImageCount int                           `json:"totalImageCount"`
	RunID           string                        `json:"runId"`
	GeneratedAt     time.Time                     `json:"generatedAt"`
}

// MetadataInput gathers what a build has produced by the time all layers
// are composed.
type MetadataInput struct {
	Catalog         *catalog.Catalog
	Hierarchy       *hierarchy.Node
	Index           *compositor.PresenceIndex
	Orientations    []geometry.Resolved
	Stains          []string
	ResizeFactor    float64
	TotalImageCount int
	RunID           string
}

// NewMetadata assembles the metadata document. A blank RunID gets a fresh
// UUID; nil inputs become empty collections.
func NewMetadata(in MetadataInput) *Metadata {
	m := &Metadata{
		Regions:         map[string]string{},
		RegionOrder:     []string{},
		Colors:          map[string]string{},
		Hierarchy:       []*hierarchy.Node{},
		Breadcrumbs:     map[string]catalog.Breadcrumb{},
		Orientations:    append([]geometry.Resolved{}, in.Orientations...),
		Stains:          append([]string{}, in.Stains...),
		ResizeFactor:    in.ResizeFactor,
		PartsInLayer:    map[string]map[int][]string{},
		LayersWithPart:  map[string]map[string][]int{},
		TotalImageCount: in.TotalImageCount,
		RunID:           in.RunID,
		GeneratedAt:     time.Now().UTC(),
	}
	if m.RunID == "" {
		m.RunID = uuid.NewString()
	}
	if in.Catalog != nil {
		m.Regions = in.Catalog.Regions()
		m.RegionOrder = in.Catalog.Keys()
		m.Colors = in.Catalog.Colors()
		m.Breadcrumbs = in.Catalog.Breadcrumbs()
	}
	if in.Hierarchy != nil {
		m.Hierarchy = []*hierarchy.Node{in.Hierarchy}
	}
	if in.Index != nil {
		m.PartsInLayer = in.Index.PartsInLayer
		m.LayersWithPart = in.Index.LayersWithPart
	}
	return m
}
