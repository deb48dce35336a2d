package trace

import (
	"context"
	"image"
	"image/color"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"strconv"
	"strings"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	aerr "github.com/matzehuels/histatlas/pkg/errors"
)

// Defaults for ContourTracer.
const (
	DefaultThreshold = 128
	DefaultTurdSize  = 2
)

// Fragment is the traced outline of one mask.
type Fragment struct {
	// D is SVG path data; empty when the mask has no drawable area.
	D string `json:"d"`

	// Width and Height are the pixel size of the traced bitmap.
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Empty reports whether the fragment has no drawable geometry.
func (f Fragment) Empty() bool { return strings.TrimSpace(f.D) == "" }

// Tracer converts an encoded bitmap into a path fragment.
type Tracer interface {
	Trace(ctx context.Context, r io.Reader) (Fragment, error)
}

// ContourTracer traces pixel-edge contours of the dark areas of a bitmap.
// The zero value uses DefaultThreshold and DefaultTurdSize.
type ContourTracer struct {
	// Threshold is the luminance below which a pixel belongs to the region.
	Threshold uint8

	// TurdSize drops boundaries whose enclosed area is at most this many pixels.
	// Negative keeps everything.
	TurdSize int
}

// Trace decodes r and traces it.
func (t ContourTracer) Trace(ctx context.Context, r io.Reader) (Fragment, error) {
	img, _, err := image.Decode(r)
	if err != nil {
		return Fragment{}, aerr.Wrap(aerr.ErrCodeTraceFailed, err, "decode bitmap")
	}
	if err := ctx.Err(); err != nil {
		return Fragment{}, err
	}
	return t.TraceImage(img), nil
}

// TraceImage traces an already decoded image.
func (t ContourTracer) TraceImage(img image.Image) Fragment {
	threshold := t.Threshold
	if threshold == 0 {
		threshold = DefaultThreshold
	}
	turd := t.TurdSize
	if turd == 0 {
		turd = DefaultTurdSize
	}

	bm := NewBitmap(img, threshold)
	return Fragment{
		D:      pathData(bm.Contours(), turd),
		Width:  bm.Width,
		Height: bm.Height,
	}
}

// Bitmap is a binary mask; true marks a region pixel.
type Bitmap struct {
	Width, Height int
	bits          []bool
}

// NewBitmap thresholds img by luminance. Mostly transparent pixels are
// background.
func NewBitmap(img image.Image, threshold uint8) *Bitmap {
	b := img.Bounds()
	bm := &Bitmap{Width: b.Dx(), Height: b.Dy(), bits: make([]bool, b.Dx()*b.Dy())}

	switch src := img.(type) {
	case *image.Gray:
		for y := 0; y < bm.Height; y++ {
			row := src.Pix[y*src.Stride : y*src.Stride+bm.Width]
			for x, v := range row {
				bm.bits[y*bm.Width+x] = v < threshold
			}
		}
	case *image.YCbCr:
		for y := 0; y < bm.Height; y++ {
			for x := 0; x < bm.Width; x++ {
				bm.bits[y*bm.Width+x] = src.Y[src.YOffset(b.Min.X+x, b.Min.Y+y)] < threshold
			}
		}
	default:
		for y := 0; y < bm.Height; y++ {
			for x := 0; x < bm.Width; x++ {
				bm.bits[y*bm.Width+x] = isDark(img.At(b.Min.X+x, b.Min.Y+y), threshold)
			}
		}
	}
	return bm
}

func isDark(c color.Color, threshold uint8) bool {
	if _, _, _, a := c.RGBA(); a < 0x8000 {
		return false
	}
	return color.GrayModel.Convert(c).(color.Gray).Y < threshold
}

// At reports whether (x, y) is a region pixel. Out of range is background.
func (bm *Bitmap) At(x, y int) bool {
	if x < 0 || y < 0 || x >= bm.Width || y >= bm.Height {
		return false
	}
	return bm.bits[y*bm.Width+x]
}

// Set marks (x, y) as a region pixel.
func (bm *Bitmap) Set(x, y int, v bool) {
	bm.bits[y*bm.Width+x] = v
}

// NewEmptyBitmap returns an all-background bitmap.
func NewEmptyBitmap(w, h int) *Bitmap {
	return &Bitmap{Width: w, Height: h, bits: make([]bool, w*h)}
}

// Point is a lattice corner between pixels.
type Point struct{ X, Y int }

// Contours returns every boundary of the mask as a closed polygon of lattice
// points. Outer boundaries run clockwise (y down) and holes counter-clockwise,
// so the nonzero and evenodd fill rules agree.
func (bm *Bitmap) Contours() [][]Point {
	stride := bm.Width + 1
	vid := func(x, y int) int { return y*stride + x }

	// Each lattice corner has at most two outgoing boundary edges (two at
	// diagonal saddles).
	out := make([][2]int32, stride*(bm.Height+1))
	used := make([][2]bool, len(out))
	for i := range out {
		out[i] = [2]int32{-1, -1}
	}
	add := func(from, to int) {
		if out[from][0] < 0 {
			out[from][0] = int32(to)
		} else {
			out[from][1] = int32(to)
		}
	}

	for y := 0; y < bm.Height; y++ {
		for x := 0; x < bm.Width; x++ {
			if !bm.At(x, y) {
				continue
			}
			if !bm.At(x, y-1) {
				add(vid(x, y), vid(x+1, y))
			}
			if !bm.At(x+1, y) {
				add(vid(x+1, y), vid(x+1, y+1))
			}
			if !bm.At(x, y+1) {
				add(vid(x+1, y+1), vid(x, y+1))
			}
			if !bm.At(x-1, y) {
				add(vid(x, y+1), vid(x, y))
			}
		}
	}

	next := func(v int) (int, bool) {
		for s := 0; s < 2; s++ {
			if out[v][s] >= 0 && !used[v][s] {
				used[v][s] = true
				return int(out[v][s]), true
			}
		}
		return 0, false
	}

	var loops [][]Point
	for start := range out {
		for {
			v, ok := next(start)
			if !ok {
				break
			}
			loop := []Point{{start % stride, start / stride}}
			for v != start {
				loop = append(loop, Point{v % stride, v / stride})
				n, ok := next(v)
				if !ok {
					break
				}
				v = n
			}
			loops = append(loops, simplify(loop))
		}
	}
	return loops
}

// simplify drops vertices that continue in the same direction.
func simplify(loop []Point) []Point {
	n := len(loop)
	if n < 3 {
		return loop
	}
	dir := func(a, b Point) Point { return Point{sign(b.X - a.X), sign(b.Y - a.Y)} }
	out := make([]Point, 0, n)
	for i, p := range loop {
		prev := loop[(i-1+n)%n]
		next := loop[(i+1)%n]
		if dir(prev, p) != dir(p, next) {
			out = append(out, p)
		}
	}
	return out
}

func sign(v int) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}

// Area returns the absolute enclosed area of a closed lattice polygon.
func Area(loop []Point) int {
	sum := 0
	for i, p := range loop {
		q := loop[(i+1)%len(loop)]
		sum += p.X*q.Y - q.X*p.Y
	}
	if sum < 0 {
		sum = -sum
	}
	return sum / 2
}

func pathData(loops [][]Point, turd int) string {
	var sb strings.Builder
	for _, loop := range loops {
		if len(loop) < 4 || Area(loop) <= turd {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString("M")
		sb.WriteString(strconv.Itoa(loop[0].X))
		sb.WriteByte(' ')
		sb.WriteString(strconv.Itoa(loop[0].Y))
		for i := 1; i < len(loop); i++ {
			prev, p := loop[i-1], loop[i]
			if p.X != prev.X {
				sb.WriteString("H")
				sb.WriteString(strconv.Itoa(p.X))
			} else {
				sb.WriteString("V")
				sb.WriteString(strconv.Itoa(p.Y))
			}
		}
		sb.WriteString("Z")
	}
	return sb.String()
}
