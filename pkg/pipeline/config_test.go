package pipeline

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/matzehuels/histatlas/pkg/blob"
	aerr "github.com/matzehuels/histatlas/pkg/errors"
	"github.com/matzehuels/histatlas/pkg/geometry"
)

const sampleTOML = `
hierarchy = "data/brain-hierarchy.csv"
colors = "data/brain-scene.json"
stains = ["neurotrace", "phalloidin"]
resizeFactor = 0.5
extension = "png"

extraColors = [{ name = "SB", color = "#d2e400" }]

[input]
root = "histology"

[output]
driver = "s3"
bucket = "atlas"
prefix = "v1"

[[orientations]]
name = "coronal"
layerCount = 30
cssDims = { width = 1000, height = 700 }
cssCrop = { width = 800, height = 600, left = 100, top = 50 }

[[orientations]]
name = "sagittal"
layerCount = 12
width = 4000
height = 2800
cssDims = { width = 1000, height = 700 }
cssCrop = { width = 1000, height = 700, left = 0, top = 0 }

[trace]
threshold = 100
`

func TestLoadConfig_TOML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "atlas.toml")
	if err := os.WriteFile(path, []byte(sampleTOML), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if err := cfg.ValidateAndSetDefaults(); err != nil {
		t.Fatalf("ValidateAndSetDefaults: %v", err)
	}

	if cfg.Hierarchy != filepath.Join(dir, "data/brain-hierarchy.csv") {
		t.Errorf("Hierarchy = %q, want resolved against config dir", cfg.Hierarchy)
	}
	if cfg.Input.Root != filepath.Join(dir, "histology") {
		t.Errorf("Input.Root = %q", cfg.Input.Root)
	}
	if cfg.Output.Driver != blob.DriverS3 || cfg.Output.Bucket != "atlas" || cfg.Output.Root != "" {
		t.Errorf("Output = %+v", cfg.Output)
	}

	want := []OrientationConfig{
		{
			Orientation: geometry.Orientation{
				Name:       "coronal",
				LayerCount: 30,
				CSSDims:    geometry.Size{Width: 1000, Height: 700},
				CSSCrop:    geometry.Rect{Width: 800, Height: 600, Left: 100, Top: 50},
			},
		},
		{
			Orientation: geometry.Orientation{
				Name:       "sagittal",
				LayerCount: 12,
				CSSDims:    geometry.Size{Width: 1000, Height: 700},
				CSSCrop:    geometry.Rect{Width: 1000, Height: 700},
			},
			Width:  4000,
			Height: 2800,
		},
	}
	if diff := cmp.Diff(want, cfg.Orientations); diff != "" {
		t.Errorf("orientations (-want +got):\n%s", diff)
	}

	if cfg.ResizeFactor != 0.5 {
		t.Errorf("ResizeFactor = %g, want 0.5", cfg.ResizeFactor)
	}
	if cfg.TotalImageCount != (30+12)*2 {
		t.Errorf("TotalImageCount = %d, want %d", cfg.TotalImageCount, (30+12)*2)
	}
	if cfg.Trace.Threshold != 100 || cfg.Trace.TurdSize != 2 {
		t.Errorf("Trace = %+v", cfg.Trace)
	}
	if len(cfg.ExtraColors) != 1 || cfg.ExtraColors[0].Name != "SB" {
		t.Errorf("ExtraColors = %+v", cfg.ExtraColors)
	}
}

func TestParseConfig_JSON(t *testing.T) {
	data := []byte(`{
		"hierarchy": "/abs/h.csv",
		"orientations": [{"name": "coronal", "layerCount": 2,
			"cssDims": {"width": 10, "height": 10},
			"cssCrop": {"width": 10, "height": 10, "left": 0, "top": 0}}]
	}`)
	cfg, err := ParseConfig(data, ".json")
	if err != nil {
		t.Fatal(err)
	}
	if err := cfg.ValidateAndSetDefaults(); err != nil {
		t.Fatal(err)
	}
	if cfg.Orientations[0].Name != "coronal" {
		t.Errorf("orientation name = %q", cfg.Orientations[0].Name)
	}
	if diff := cmp.Diff(DefaultStains, cfg.Stains); diff != "" {
		t.Errorf("stains (-want +got):\n%s", diff)
	}
}

func TestParseConfig_Errors(t *testing.T) {
	tests := []struct {
		name   string
		data   string
		format string
	}{
		{"unknown toml key", "hierarchy = \"h.csv\"\nresizeFator = 0.3\n", "toml"},
		{"unknown json key", `{"hierarchy": "h.csv", "stain": []}`, "json"},
		{"bad toml", "hierarchy = ", "toml"},
		{"bad json", `{"hierarchy": `, "json"},
		{"unsupported format", "hierarchy: h.csv", "yaml"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseConfig([]byte(tt.data), tt.format)
			if err == nil {
				t.Fatal("expected error")
			}
			if !aerr.Is(err, aerr.ErrCodeInvalidConfig) {
				t.Errorf("code = %s, want %s", aerr.GetCode(err), aerr.ErrCodeInvalidConfig)
			}
		})
	}
}

func validConfig() *Config {
	return &Config{
		Hierarchy: "h.csv",
		Orientations: []OrientationConfig{{Orientation: geometry.Orientation{
			Name:       "coronal",
			LayerCount: 3,
			CSSDims:    geometry.Size{Width: 100, Height: 100},
			CSSCrop:    geometry.Rect{Width: 50, Height: 50},
		}}},
	}
}

func TestValidateAndSetDefaults(t *testing.T) {
	cfg := validConfig()
	if err := cfg.ValidateAndSetDefaults(); err != nil {
		t.Fatal(err)
	}

	if cfg.ResizeFactor != DefaultResizeFactor {
		t.Errorf("ResizeFactor = %g, want %g", cfg.ResizeFactor, DefaultResizeFactor)
	}
	if cfg.PadWidth != DefaultPadWidth {
		t.Errorf("PadWidth = %d, want %d", cfg.PadWidth, DefaultPadWidth)
	}
	if cfg.Extension != DefaultExtension {
		t.Errorf("Extension = %q, want %q", cfg.Extension, DefaultExtension)
	}
	if cfg.MetadataKey != DefaultMetadataKey {
		t.Errorf("MetadataKey = %q, want %q", cfg.MetadataKey, DefaultMetadataKey)
	}
	if cfg.Workers != runtime.GOMAXPROCS(0) {
		t.Errorf("Workers = %d, want GOMAXPROCS", cfg.Workers)
	}
	if cfg.TotalImageCount != 3*len(DefaultStains) {
		t.Errorf("TotalImageCount = %d, want %d", cfg.TotalImageCount, 3*len(DefaultStains))
	}
	if got := cfg.ReferenceKey("coronal"); got != "coronal/parts/AAB/00.jpg" {
		t.Errorf("ReferenceKey = %q", got)
	}

	// Idempotent
	cfg.Workers = 7
	if err := cfg.ValidateAndSetDefaults(); err != nil {
		t.Fatal(err)
	}
	if cfg.Workers != 7 {
		t.Error("second ValidateAndSetDefaults should be a no-op")
	}
}

func TestValidateAndSetDefaults_KeepsExplicitValues(t *testing.T) {
	cfg := validConfig()
	cfg.TotalImageCount = 656
	cfg.Stains = []string{}
	cfg.Extension = ".png"
	if err := cfg.ValidateAndSetDefaults(); err != nil {
		t.Fatal(err)
	}
	if cfg.TotalImageCount != 656 {
		t.Errorf("TotalImageCount = %d, want 656", cfg.TotalImageCount)
	}
	if len(cfg.Stains) != 0 {
		t.Errorf("explicit empty stains replaced: %v", cfg.Stains)
	}
	if cfg.Extension != "png" {
		t.Errorf("Extension = %q, want png", cfg.Extension)
	}
}

func TestValidateAndSetDefaults_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"no hierarchy", func(c *Config) { c.Hierarchy = "" }},
		{"no orientations", func(c *Config) { c.Orientations = nil }},
		{"zero css width", func(c *Config) { c.Orientations[0].CSSDims.Width = 0 }},
		{"negative layers", func(c *Config) { c.Orientations[0].LayerCount = -1 }},
		{"duplicate orientation", func(c *Config) { c.Orientations = append(c.Orientations, c.Orientations[0]) }},
		{"half raw size", func(c *Config) { c.Orientations[0].Width = 100 }},
		{"negative resize", func(c *Config) { c.ResizeFactor = -0.4 }},
		{"negative pad", func(c *Config) { c.PadWidth = -1 }},
		{"threshold too high", func(c *Config) { c.Trace.Threshold = 300 }},
		{"negative image count", func(c *Config) { c.TotalImageCount = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.ValidateAndSetDefaults()
			if err == nil {
				t.Fatal("expected error")
			}
			if !aerr.IsConfig(err) {
				t.Errorf("error %v should be a configuration error", err)
			}
		})
	}
}
