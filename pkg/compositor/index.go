package compositor

import (
	"fmt"
	"slices"

	"github.com/matzehuels/histatlas/pkg/geometry"
)

// PresenceIndex maps layers to the regions visible in them and back.
type PresenceIndex struct {
	// PartsInLayer[orientation][layer] lists regions in catalog order.
	PartsInLayer map[string]map[int][]string `json:"partsInLayer"`

	// LayersWithPart[orientation][region] lists layers in ascending order.
	LayersWithPart map[string]map[string][]int `json:"layersWithPart"`
}

// NewPresenceIndex returns an index in which every orientation has an empty
// list for each of its layers and for each region.
func NewPresenceIndex(orientations []geometry.Resolved, regions []string) *PresenceIndex {
	idx := &PresenceIndex{
		PartsInLayer:   make(map[string]map[int][]string, len(orientations)),
		LayersWithPart: make(map[string]map[string][]int, len(orientations)),
	}
	for _, o := range orientations {
		layers := make(map[int][]string, o.LayerCount)
		for l := 0; l < o.LayerCount; l++ {
			layers[l] = []string{}
		}
		parts := make(map[string][]int, len(regions))
		for _, r := range regions {
			parts[r] = []int{}
		}
		idx.PartsInLayer[o.Name] = layers
		idx.LayersWithPart[o.Name] = parts
	}
	return idx
}

// Add records a layer result in both mappings. Results may be added in any
// order; layer lists stay sorted.
func (idx *PresenceIndex) Add(res LayerResult) {
	layers, ok := idx.PartsInLayer[res.Orientation]
	if !ok {
		layers = map[int][]string{}
		idx.PartsInLayer[res.Orientation] = layers
	}
	parts, ok := idx.LayersWithPart[res.Orientation]
	if !ok {
		parts = map[string][]int{}
		idx.LayersWithPart[res.Orientation] = parts
	}

	layers[res.Layer] = append([]string{}, res.Regions...)
	for _, region := range res.Regions {
		ls := parts[region]
		i, found := slices.BinarySearch(ls, res.Layer)
		if !found {
			ls = slices.Insert(ls, i, res.Layer)
		}
		parts[region] = ls
	}
}

// Check verifies that the two mappings agree.
func (idx *PresenceIndex) Check() error {
	for o, layers := range idx.PartsInLayer {
		for l, regions := range layers {
			for _, r := range regions {
				if !slices.Contains(idx.LayersWithPart[o][r], l) {
					return fmt.Errorf("%s: region %s in layer %d but layer missing from its layer list", o, r, l)
				}
			}
		}
	}
	for o, parts := range idx.LayersWithPart {
		for r, ls := range parts {
			for _, l := range ls {
				if !slices.Contains(idx.PartsInLayer[o][l], r) {
					return fmt.Errorf("%s: layer %d listed for region %s but region missing from layer", o, l, r)
				}
			}
		}
	}
	return nil
}
