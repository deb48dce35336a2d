// Package geometry maps the UI-layout coordinate space of each imaging
// orientation onto raw image pixels.
//
// The viewer lays each orientation out in CSS pixels (cssDims) and crops it
// to a rectangle in the same space (cssCrop). The raw microscopy images are
// much larger; [Resolve] derives a single scale factor from both axes and
// applies it uniformly to the crop, then computes the resize target used when
// exporting the cropped images.
package geometry

import (
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"math"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/matzehuels/histatlas/pkg/blob"
	aerr "github.com/matzehuels/histatlas/pkg/errors"
)

// Size is a width/height pair.
type Size struct {
	Width  float64 `json:"width" toml:"width"`
	Height float64 `json:"height" toml:"height"`
}

// Rect is a width/height/left/top rectangle.
type Rect struct {
	Width  float64 `json:"width" toml:"width"`
	Height float64 `json:"height" toml:"height"`
	Left   float64 `json:"left" toml:"left"`
	Top    float64 `json:"top" toml:"top"`
}

// Scale returns r with all four fields multiplied by f.
func (r Rect) Scale(f float64) Rect {
	return Rect{Width: r.Width * f, Height: r.Height * f, Left: r.Left * f, Top: r.Top * f}
}

// Round returns r rounded to whole pixels.
func (r Rect) Round() PixelRect {
	return PixelRect{
		Width:  int(math.Round(r.Width)),
		Height: int(math.Round(r.Height)),
		Left:   int(math.Round(r.Left)),
		Top:    int(math.Round(r.Top)),
	}
}

// PixelRect is a rectangle in whole pixels.
type PixelRect struct {
	Width  int `json:"width"`
	Height int `json:"height"`
	Left   int `json:"left"`
	Top    int `json:"top"`
}

// Orientation is the authored configuration of one imaging orientation.
type Orientation struct {
	Name       string `json:"name" toml:"name"`
	CSSDims    Size   `json:"cssDims" toml:"cssDims"`
	CSSCrop    Rect   `json:"cssCrop" toml:"cssCrop"`
	LayerCount int    `json:"layerCount" toml:"layerCount"`
}

// Validate rejects orientations that cannot be resolved.
func (o Orientation) Validate() error {
	switch {
	case o.Name == "":
		return aerr.New(aerr.ErrCodeInvalidConfig, "orientation name is empty")
	case o.CSSDims.Width <= 0 || o.CSSDims.Height <= 0:
		return aerr.New(aerr.ErrCodeInvalidConfig, "orientation %q: cssDims must be positive, got %gx%g",
			o.Name, o.CSSDims.Width, o.CSSDims.Height)
	case o.CSSCrop.Width < 0 || o.CSSCrop.Height < 0:
		return aerr.New(aerr.ErrCodeInvalidConfig, "orientation %q: cssCrop size must not be negative", o.Name)
	case o.LayerCount < 0:
		return aerr.New(aerr.ErrCodeInvalidConfig, "orientation %q: layerCount must not be negative", o.Name)
	}
	return nil
}

// Resolved is the pixel-space geometry of one orientation.
type Resolved struct {
	Name        string    `json:"name"`
	LayerCount  int       `json:"layerCount"`
	ScaleFactor float64   `json:"scaleFactor"`
	Crop        PixelRect `json:"crop"`

	// RawWidth and RawHeight are the reference image size, which is also the
	// layer document canvas. The viewer reads them as width and height.
	RawWidth  int `json:"width"`
	RawHeight int `json:"height"`

	// Width and Height are the resize target of the cropped image.
	Width  int `json:"resizeWidth"`
	Height int `json:"resizeHeight"`

	// crop keeps full precision; rounding happens once, at output.
	crop Rect
}

// ExactCrop returns the unrounded raw-pixel crop rectangle.
func (r Resolved) ExactCrop() Rect { return r.crop }

// Resolve computes the raw-pixel geometry of o.
//
// The scale factor is the mean of the horizontal and vertical ratios between
// raw and layout dimensions, which absorbs small aspect-ratio drift between
// the layout and the image.
func Resolve(o Orientation, rawWidth, rawHeight int, resizeFactor float64) (Resolved, error) {
	if err := o.Validate(); err != nil {
		return Resolved{}, err
	}
	if rawWidth <= 0 || rawHeight <= 0 {
		return Resolved{}, aerr.New(aerr.ErrCodeInvalidConfig, "orientation %q: raw dimensions must be positive, got %dx%d",
			o.Name, rawWidth, rawHeight)
	}
	if resizeFactor <= 0 {
		return Resolved{}, aerr.New(aerr.ErrCodeInvalidConfig, "resizeFactor must be positive, got %g", resizeFactor)
	}

	scale := ScaleFactor(o.CSSDims, float64(rawWidth), float64(rawHeight))
	crop := o.CSSCrop.Scale(scale)

	return Resolved{
		Name:        o.Name,
		LayerCount:  o.LayerCount,
		RawWidth:    rawWidth,
		RawHeight:   rawHeight,
		ScaleFactor: scale,
		Crop:        crop.Round(),
		Width:       int(math.Round(crop.Width * resizeFactor)),
		Height:      int(math.Round(crop.Height * resizeFactor)),
		crop:        crop,
	}, nil
}

// ScaleFactor returns 0.5 * (rawW/cssW + rawH/cssH).
// css must be validated non-zero.
func ScaleFactor(css Size, rawWidth, rawHeight float64) float64 {
	return 0.5 * (rawWidth/css.Width + rawHeight/css.Height)
}

// DimsLines returns the shell-friendly crop/resize assignments consumed by
// the image export scripts:
//
//	coronalCropDims="w h left top"
//	coronalResizeDims="w"
func DimsLines(r Resolved) string {
	return fmt.Sprintf("%sCropDims=\"%d %d %d %d\"\n%sResizeDims=\"%d\"\n",
		r.Name, r.Crop.Width, r.Crop.Height, r.Crop.Left, r.Crop.Top,
		r.Name, r.Width)
}

// ProbeSize reports the intrinsic pixel size of the bitmap stored at key.
// Only the image header is decoded.
func ProbeSize(ctx context.Context, store blob.Store, key string) (int, int, error) {
	rc, err := store.Get(ctx, key)
	if err != nil {
		return 0, 0, aerr.Wrap(aerr.ErrCodeFileNotFound, err, "reference bitmap %s", key)
	}
	defer rc.Close()

	cfg, _, err := image.DecodeConfig(rc)
	if err != nil {
		return 0, 0, aerr.Wrap(aerr.ErrCodeInvalidInput, err, "decode reference bitmap %s", key)
	}
	return cfg.Width, cfg.Height, nil
}
