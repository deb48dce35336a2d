// Package catalog derives the region catalog from the anatomical hierarchy and
// an independently authored color dataset.
//
// The catalog maps every RegionKey to a display name, an optional color and a
// breadcrumb trail. Bilateral regions expand into "l"/"r" suffixed keys. The
// iteration order of [Catalog.Keys] is hierarchy pre-order; the layer
// compositor draws regions in exactly this order.
package catalog

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/log"

	aerr "github.com/matzehuels/histatlas/pkg/errors"
	"github.com/matzehuels/histatlas/pkg/hierarchy"
)

// Defaults for Options.
const (
	DefaultSeparator = " > "
	LeftSuffix       = "l"
	RightSuffix      = "r"
)

// ColorEntry is one {name, color} pair of the color dataset.
// Name is a RegionKey.
type ColorEntry struct {
	Name  string `json:"name" toml:"name"`
	Color string `json:"color" toml:"color"`
}

// Breadcrumb is the navigation context of a region.
type Breadcrumb struct {
	Path     string  `json:"path"`
	Function *string `json:"function"`
}

// Options configures Build.
type Options struct {
	// Separator joins breadcrumb path segments. Defaults to DefaultSeparator.
	Separator string

	// Extra colors applied after the dataset, for regions the color dataset
	// does not cover.
	Extra []ColorEntry

	Logger *log.Logger
}

// Catalog is the immutable region catalog of one run.
type Catalog struct {
	keys        []string
	names       map[string]string
	colors      map[string]string
	breadcrumbs map[string]Breadcrumb
	unknown     []string
}

// Build traverses root depth-first and reconciles the result with colors.
//
// A color whose key is not produced by the hierarchy is logged as a warning
// and still recorded. A RegionKey produced twice (for example "HYl" from both
// a bilateral "HY" and a literal "HYl" row) is a configuration error.
func Build(root *hierarchy.Node, colors []ColorEntry, opts Options) (*Catalog, error) {
	if opts.Separator == "" {
		opts.Separator = DefaultSeparator
	}
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard)
	}

	c := &Catalog{
		names:       make(map[string]string),
		colors:      make(map[string]string),
		breadcrumbs: make(map[string]Breadcrumb),
	}
	if root != nil {
		if err := c.collect(root.Children, nil, opts.Separator); err != nil {
			return nil, err
		}
	}

	for _, e := range colors {
		if _, ok := c.names[e.Name]; !ok {
			opts.Logger.Warn("color has no matching region in hierarchy", "region", e.Name)
			c.unknown = append(c.unknown, e.Name)
		}
		c.colors[e.Name] = e.Color
	}
	for _, e := range opts.Extra {
		c.colors[e.Name] = e.Color
	}
	for _, k := range c.keys {
		if _, ok := c.colors[k]; !ok {
			opts.Logger.Debug("region has no color", "region", k)
		}
	}
	return c, nil
}

func (c *Catalog) collect(nodes []*hierarchy.Node, path []string, sep string) error {
	for _, n := range nodes {
		trail := append(path[:len(path):len(path)], n.Name)
		if !n.IsGroup() {
			for _, r := range expand(n) {
				if _, dup := c.names[r.key]; dup {
					return aerr.New(aerr.ErrCodeDuplicateRegion, "region key %q is defined more than once (%s)", r.key, n.Name)
				}
				c.keys = append(c.keys, r.key)
				c.names[r.key] = r.name
				c.breadcrumbs[r.key] = Breadcrumb{
					Path:     strings.Join(trail, sep),
					Function: nullable(n.Function),
				}
			}
		}
		if err := c.collect(n.Children, trail, sep); err != nil {
			return err
		}
	}
	return nil
}

type keyedName struct{ key, name string }

// expand produces the RegionKeys of an abbreviated node. Bilateral names drop
// exactly one trailing character, assumed to be a plural marker.
func expand(n *hierarchy.Node) []keyedName {
	if !n.HasSides {
		return []keyedName{{n.Abbreviation, n.Name}}
	}
	base := StripPlural(n.Name)
	return []keyedName{
		{n.Abbreviation + LeftSuffix, base + " (left)"},
		{n.Abbreviation + RightSuffix, base + " (right)"},
	}
}

// StripPlural removes the final rune of name ("Nuclei" -> "Nucle").
func StripPlural(name string) string {
	r := []rune(name)
	if len(r) == 0 {
		return name
	}
	return string(r[:len(r)-1])
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Keys returns the RegionKeys in hierarchy pre-order.
func (c *Catalog) Keys() []string {
	return append([]string{}, c.keys...)
}

// Len returns the number of RegionKeys.
func (c *Catalog) Len() int { return len(c.keys) }

// Has reports whether key is a RegionKey of the hierarchy.
func (c *Catalog) Has(key string) bool {
	_, ok := c.names[key]
	return ok
}

// Name returns the display name of key.
func (c *Catalog) Name(key string) string { return c.names[key] }

// Color returns the color registered for key. Absence is not an error.
func (c *Catalog) Color(key string) (string, bool) {
	col, ok := c.colors[key]
	return col, ok && col != ""
}

// Breadcrumb returns the breadcrumb of key.
func (c *Catalog) Breadcrumb(key string) (Breadcrumb, bool) {
	b, ok := c.breadcrumbs[key]
	return b, ok
}

// UnknownColors returns color keys that the hierarchy does not define,
// in dataset order.
func (c *Catalog) UnknownColors() []string {
	return append([]string(nil), c.unknown...)
}

// Uncolored returns RegionKeys without a color, in catalog order.
func (c *Catalog) Uncolored() []string {
	var out []string
	for _, k := range c.keys {
		if _, ok := c.Color(k); !ok {
			out = append(out, k)
		}
	}
	return out
}

// Regions returns a copy of the key → display name index.
func (c *Catalog) Regions() map[string]string { return cloneMap(c.names) }

// Colors returns a copy of the key → color map.
func (c *Catalog) Colors() map[string]string { return cloneMap(c.colors) }

// Breadcrumbs returns a copy of the key → breadcrumb map.
func (c *Catalog) Breadcrumbs() map[string]Breadcrumb { return cloneMap(c.breadcrumbs) }

func cloneMap[V any](m map[string]V) map[string]V {
	out := make(map[string]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// DecodeColorDataset reads the color dataset document
// ({"params": {"colors": [{"name": ..., "color": ...}]}}).
func DecodeColorDataset(r io.Reader) ([]ColorEntry, error) {
	var doc struct {
		Params struct {
			Colors []ColorEntry `json:"colors"`
		} `json:"params"`
	}
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode color dataset: %w", err)
	}
	return doc.Params.Colors, nil
}
