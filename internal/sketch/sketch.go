// Package sketch stands in for the drawing canvas: it models pen strokes,
// rasterizes them, and shrinks drawings to the size a model expects.
package sketch

import (
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"math"
	"strings"

	"github.com/fogleman/gg"
	"github.com/nfnt/resize"
	"golang.org/x/image/draw"
)

var (
	ErrEmptyDrawing = errors.New("drawing has no points")
	// ErrCanvasTooLarge is returned for canvases wider or taller than MaxCanvas.
	ErrCanvasTooLarge = errors.New("canvas too large")
)

// MaxCanvas bounds each side of a rendered canvas in pixels.
const MaxCanvas = 4096

// Stroke is one pen-down to pen-up polyline.
type Stroke struct {
	X []float64 `json:"x"`
	Y []float64 `json:"y"`
}

// UnmarshalJSON accepts {"x":[...],"y":[...]} as well as the Quick Draw
// simplified form [[x...],[y...]] (an optional third timing row is ignored).
func (s *Stroke) UnmarshalJSON(data []byte) error {
	var rows [][]float64
	if err := json.Unmarshal(data, &rows); err == nil {
		if len(rows) < 2 {
			return fmt.Errorf("stroke needs x and y rows, got %d", len(rows))
		}
		s.X, s.Y = rows[0], rows[1]
		return s.validate()
	}

	type plain Stroke
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*s = Stroke(p)
	return s.validate()
}

func (s Stroke) validate() error {
	if len(s.X) != len(s.Y) {
		return fmt.Errorf("stroke has %d x and %d y values", len(s.X), len(s.Y))
	}
	return nil
}

// Drawing is an ordered set of strokes in canvas coordinates.
type Drawing []Stroke

// Bounds returns the bounding box of all points.
func (d Drawing) Bounds() (minX, minY, maxX, maxY float64, ok bool) {
	minX, minY = math.Inf(1), math.Inf(1)
	maxX, maxY = math.Inf(-1), math.Inf(-1)
	for _, s := range d {
		for i := range s.X {
			minX, maxX = math.Min(minX, s.X[i]), math.Max(maxX, s.X[i])
			minY, maxY = math.Min(minY, s.Y[i]), math.Max(maxY, s.Y[i])
			ok = true
		}
	}
	return
}

// RenderOptions controls rasterization. With Width or Height unset the
// canvas is fitted around the strokes with Padding on every side.
type RenderOptions struct {
	Width     int
	Height    int
	LineWidth float64
	Padding   float64
}

var DefaultRenderOptions = RenderOptions{LineWidth: 16, Padding: 16}

// Render draws d as black round-capped lines on a white canvas.
func Render(d Drawing, opt RenderOptions) (image.Image, error) {
	minX, minY, maxX, maxY, ok := d.Bounds()
	if !ok {
		return nil, ErrEmptyDrawing
	}
	if opt.LineWidth <= 0 {
		opt.LineWidth = DefaultRenderOptions.LineWidth
	}

	var dx, dy float64
	w, h := opt.Width, opt.Height
	if w <= 0 || h <= 0 {
		pad := opt.Padding + opt.LineWidth/2
		// square so a later scale keeps the aspect ratio
		side := math.Max(math.Max(maxX-minX, maxY-minY)+2*pad, 1)
		// also rejects NaN and Inf coordinates
		if !(side <= MaxCanvas) {
			return nil, fmt.Errorf("%w: fitted side %g exceeds %d", ErrCanvasTooLarge, side, MaxCanvas)
		}
		w, h = int(math.Ceil(side)), int(math.Ceil(side))
		dx = pad - minX + (side-2*pad-(maxX-minX))/2
		dy = pad - minY + (side-2*pad-(maxY-minY))/2
	}
	if w > MaxCanvas || h > MaxCanvas {
		return nil, fmt.Errorf("%w: %dx%d exceeds %d", ErrCanvasTooLarge, w, h, MaxCanvas)
	}

	dc := gg.NewContext(w, h)
	dc.SetColor(color.White)
	dc.Clear()
	dc.SetColor(color.Black)
	dc.SetLineWidth(opt.LineWidth)
	dc.SetLineCap(gg.LineCapRound)
	dc.SetLineJoin(gg.LineJoinRound)

	for _, s := range d {
		if len(s.X) == 0 {
			continue
		}
		if len(s.X) == 1 {
			dc.DrawPoint(s.X[0]+dx, s.Y[0]+dy, opt.LineWidth/2)
			dc.Fill()
			continue
		}
		dc.MoveTo(s.X[0]+dx, s.Y[0]+dy)
		for i := 1; i < len(s.X); i++ {
			dc.LineTo(s.X[i]+dx, s.Y[i]+dy)
		}
		dc.Stroke()
	}
	return dc.Image(), nil
}

// Decode reads a PNG or JPEG, refusing images with a side longer than
// MaxCanvas before any pixel memory is allocated.
func Decode(r io.ReadSeeker) (image.Image, string, error) {
	start, err := r.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, "", err
	}
	cfg, format, err := image.DecodeConfig(r)
	if err != nil {
		return nil, "", err
	}
	if cfg.Width > MaxCanvas || cfg.Height > MaxCanvas {
		return nil, format, fmt.Errorf("%w: %dx%d exceeds %d", ErrCanvasTooLarge, cfg.Width, cfg.Height, MaxCanvas)
	}
	if _, err := r.Seek(start, io.SeekStart); err != nil {
		return nil, format, err
	}
	return image.Decode(r)
}

// Flatten composites img over opaque white, so transparent regions of an
// exported canvas read as blank paper.
func Flatten(img image.Image) *image.NRGBA {
	b := img.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), image.White, image.Point{}, draw.Src)
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Over)
	return dst
}

// Filter names a resampling kernel.
type Filter string

const (
	Nearest  Filter = "nearest"
	Bilinear Filter = "bilinear"
	Bicubic  Filter = "bicubic"
	Lanczos3 Filter = "lanczos3"
)

var filters = map[Filter]resize.InterpolationFunction{
	Nearest:  resize.NearestNeighbor,
	Bilinear: resize.Bilinear,
	Bicubic:  resize.Bicubic,
	Lanczos3: resize.Lanczos3,
}

// ParseFilter resolves a filter name; empty means Nearest.
func ParseFilter(name string) (Filter, error) {
	f := Filter(strings.ToLower(name))
	if f == "" {
		return Nearest, nil
	}
	if _, ok := filters[f]; !ok {
		return "", fmt.Errorf("unknown filter %q", name)
	}
	return f, nil
}

// Scale resizes img to exactly w x h. Nearest neighbour matches an
// unfiltered bitmap scale and is the default.
func Scale(img image.Image, w, h int, f Filter) image.Image {
	interp, ok := filters[f]
	if !ok {
		interp = resize.NearestNeighbor
	}
	return resize.Resize(uint(w), uint(h), img, interp)
}

// Prepare flattens and scales img for a w x h model input.
func Prepare(img image.Image, w, h int, f Filter) image.Image {
	return Scale(Flatten(img), w, h, f)
}
