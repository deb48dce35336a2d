package pipeline

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/histatlas/pkg/blob"
	"github.com/matzehuels/histatlas/pkg/catalog"
	aerr "github.com/matzehuels/histatlas/pkg/errors"
	"github.com/matzehuels/histatlas/pkg/geometry"
	"github.com/matzehuels/histatlas/pkg/trace"
)

// =============================================================================
// Default Values - Single Source of Truth for the CLI and library callers
// =============================================================================

const (
	// DefaultResizeFactor scales cropped images down for the viewer.
	DefaultResizeFactor = 0.4

	// DefaultPadWidth is the zero-padded width of layer numbers in file names.
	DefaultPadWidth = 2

	// DefaultExtension is the mask bitmap extension.
	DefaultExtension = "jpg"

	// DefaultMetadataKey is where the aggregate metadata document is written.
	DefaultMetadataKey = "atlas.json"

	// DefaultReferenceImage is the per-orientation bitmap whose size defines
	// the raw pixel space.
	DefaultReferenceImage = "parts/AAB/00.jpg"
)

// DefaultStains are the stains imaged for every layer.
var DefaultStains = []string{"neurotrace", "phalloidin"}

// OrientationConfig is one orientation as authored in the config file.
type OrientationConfig struct {
	geometry.Orientation

	// Width and Height are the raw pixel size. When zero, the size is read
	// from the orientation's reference image.
	Width  int `json:"width,omitempty" toml:"width"`
	Height int `json:"height,omitempty" toml:"height"`
}

// TraceConfig tunes the contour tracer.
type TraceConfig struct {
	Threshold int `json:"threshold,omitempty" toml:"threshold"`
	TurdSize  int `json:"turdSize,omitempty" toml:"turdSize"`
}

// Config contains all configuration for an atlas build.
type Config struct {
	Orientations    []OrientationConfig `json:"orientations" toml:"orientations"`
	Stains          []string            `json:"stains" toml:"stains"`
	ResizeFactor    float64             `json:"resizeFactor" toml:"resizeFactor"`
	TotalImageCount int                 `json:"totalImageCount,omitempty" toml:"totalImageCount"`

	// Hierarchy is the path of the hierarchy CSV; Colors the path of the
	// color dataset JSON. Relative paths resolve against the config file.
	Hierarchy string `json:"hierarchy" toml:"hierarchy"`
	Colors    string `json:"colors,omitempty" toml:"colors"`

	// ExtraColors are applied after the color dataset, for regions the
	// dataset does not cover.
	ExtraColors []catalog.ColorEntry `json:"extraColors,omitempty" toml:"extraColors"`

	Input  blob.Config `json:"input" toml:"input"`
	Output blob.Config `json:"output" toml:"output"`

	Extension      string      `json:"extension,omitempty" toml:"extension"`
	PadWidth       int         `json:"padWidth,omitempty" toml:"padWidth"`
	Workers        int         `json:"workers,omitempty" toml:"workers"`
	MetadataKey    string      `json:"metadataKey,omitempty" toml:"metadataKey"`
	ReferenceImage string      `json:"referenceImage,omitempty" toml:"referenceImage"`
	Trace          TraceConfig `json:"trace" toml:"trace"`

	// RunID labels the metadata document. Blank generates one.
	RunID string `json:"runId,omitempty" toml:"runId"`

	validated bool
}

// LoadConfig reads a TOML or JSON config file, chosen by extension.
// Unknown keys are rejected so typos do not silently fall back to defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, aerr.Wrap(aerr.ErrCodeFileNotFound, err, "read config %s", path)
	}
	cfg, err := ParseConfig(data, filepath.Ext(path))
	if err != nil {
		return nil, err
	}
	cfg.resolvePaths(filepath.Dir(path))
	return cfg, nil
}

// ParseConfig decodes config data in the given format (".toml" or ".json").
func ParseConfig(data []byte, format string) (*Config, error) {
	var cfg Config
	switch strings.ToLower(strings.TrimPrefix(format, ".")) {
	case "toml":
		md, err := toml.NewDecoder(bytes.NewReader(data)).Decode(&cfg)
		if err != nil {
			return nil, aerr.Wrap(aerr.ErrCodeInvalidConfig, err, "parse toml config")
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return nil, aerr.New(aerr.ErrCodeInvalidConfig, "unknown config key %q", undecoded[0].String())
		}
	case "json":
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&cfg); err != nil {
			return nil, aerr.Wrap(aerr.ErrCodeInvalidConfig, err, "parse json config")
		}
	default:
		return nil, aerr.New(aerr.ErrCodeInvalidConfig, "unsupported config format %q (must be toml or json)", format)
	}
	return &cfg, nil
}

func (c *Config) resolvePaths(dir string) {
	abs := func(p string) string {
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(dir, p)
	}
	c.Hierarchy = abs(c.Hierarchy)
	c.Colors = abs(c.Colors)
	if c.Input.Driver == "" || c.Input.Driver == blob.DriverFilesystem {
		c.Input.Root = abs(c.Input.Root)
	}
	if c.Output.Driver == "" || c.Output.Driver == blob.DriverFilesystem {
		c.Output.Root = abs(c.Output.Root)
	}
}

// ValidateAndSetDefaults checks required fields and applies defaults.
// This method is idempotent - calling it multiple times has the same effect as calling it once.
func (c *Config) ValidateAndSetDefaults() error {
	if c.validated {
		return nil
	}
	if c.Hierarchy == "" {
		return aerr.New(aerr.ErrCodeInvalidConfig, "hierarchy path is required")
	}
	if len(c.Orientations) == 0 {
		return aerr.New(aerr.ErrCodeInvalidConfig, "at least one orientation is required")
	}
	seen := make(map[string]bool, len(c.Orientations))
	for _, o := range c.Orientations {
		if err := o.Validate(); err != nil {
			return err
		}
		if seen[o.Name] {
			return aerr.New(aerr.ErrCodeInvalidConfig, "orientation %q is defined more than once", o.Name)
		}
		seen[o.Name] = true
		if o.Width < 0 || o.Height < 0 || (o.Width == 0) != (o.Height == 0) {
			return aerr.New(aerr.ErrCodeInvalidConfig, "orientation %q: width and height must both be set or both be zero", o.Name)
		}
	}

	switch {
	case c.ResizeFactor == 0:
		c.ResizeFactor = DefaultResizeFactor
	case c.ResizeFactor < 0:
		return aerr.New(aerr.ErrCodeInvalidConfig, "resizeFactor must be positive, got %g", c.ResizeFactor)
	}
	if c.TotalImageCount < 0 {
		return aerr.New(aerr.ErrCodeInvalidConfig, "totalImageCount must not be negative")
	}
	if c.Stains == nil {
		c.Stains = append([]string(nil), DefaultStains...)
	}
	if c.TotalImageCount == 0 {
		c.TotalImageCount = c.imageCount()
	}

	if c.Extension == "" {
		c.Extension = DefaultExtension
	}
	c.Extension = strings.TrimPrefix(c.Extension, ".")
	switch {
	case c.PadWidth == 0:
		c.PadWidth = DefaultPadWidth
	case c.PadWidth < 0:
		return aerr.New(aerr.ErrCodeInvalidConfig, "padWidth must be positive, got %d", c.PadWidth)
	}
	if c.Workers <= 0 {
		c.Workers = runtime.GOMAXPROCS(0)
	}
	if c.MetadataKey == "" {
		c.MetadataKey = DefaultMetadataKey
	}
	if c.ReferenceImage == "" {
		c.ReferenceImage = DefaultReferenceImage
	}

	switch {
	case c.Trace.Threshold == 0:
		c.Trace.Threshold = trace.DefaultThreshold
	case c.Trace.Threshold < 0 || c.Trace.Threshold > 255:
		return aerr.New(aerr.ErrCodeInvalidConfig, "trace.threshold must be in 1..255, got %d", c.Trace.Threshold)
	}
	if c.Trace.TurdSize == 0 {
		c.Trace.TurdSize = trace.DefaultTurdSize
	}

	c.validated = true
	return nil
}

// imageCount is one image per stain for every layer of every orientation.
func (c *Config) imageCount() int {
	n := 0
	for _, o := range c.Orientations {
		n += o.LayerCount
	}
	return n * len(c.Stains)
}

// ReferenceKey returns the storage key of an orientation's reference image.
func (c *Config) ReferenceKey(orientation string) string {
	return orientation + "/" + strings.TrimPrefix(c.ReferenceImage, "/")
}
