package rasterkit

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
	"strconv"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"

	"github.com/rasterkit/rasterkit/internal/colormap"
	"github.com/rasterkit/rasterkit/internal/rasterio"
)

type renderOptions struct {
	cmap     string
	vmin     float64
	vmax     float64
	hasRange bool
	width    int
	height   int
	legend   bool
}

// RenderOption configures Render and SavePNG.
type RenderOption func(*renderOptions)

// RenderColormap selects the color ramp: "gray" (the default), "viridis",
// or "terrain".
func RenderColormap(name string) RenderOption {
	return func(o *renderOptions) { o.cmap = name }
}

// RenderRange fixes the values mapped to the ends of the color ramp. The
// default is the band's data minimum and maximum.
func RenderRange(vmin, vmax float64) RenderOption {
	return func(o *renderOptions) {
		o.vmin = vmin
		o.vmax = vmax
		o.hasRange = true
	}
}

// RenderSize rescales the rendered image to width x height pixels with
// Catmull-Rom interpolation.
func RenderSize(width, height int) RenderOption {
	return func(o *renderOptions) {
		o.width = width
		o.height = height
	}
}

// RenderLegend adds a labeled colorbar strip below the image.
func RenderLegend(on bool) RenderOption {
	return func(o *renderOptions) { o.legend = on }
}

const (
	legendBarHeight  = 14
	legendTextHeight = 16
	legendPad        = 4
)

// Render draws one band as an image. Null cells are transparent; values
// map linearly from the render range onto the color ramp, clamping at the
// ends.
func (r *Raster) Render(ctx context.Context, band int, opts ...RenderOption) (*image.NRGBA, error) {
	o := renderOptions{cmap: "gray"}
	for _, opt := range opts {
		opt(&o)
	}
	cm, err := colormap.Get(o.cmap)
	if err != nil {
		return nil, fmt.Errorf("rasterkit: Render: %w", err)
	}
	if o.width < 0 || o.height < 0 || (o.width > 0) != (o.height > 0) {
		return nil, fmt.Errorf("rasterkit: Render: size must give positive width and height, got (%d, %d)", o.width, o.height)
	}
	sel, err := r.GetBands(band)
	if err != nil {
		return nil, fmt.Errorf("rasterkit: Render: %w", err)
	}
	cu, err := sel.materialize(ctx)
	if err != nil {
		return nil, err
	}

	vmin, vmax := o.vmin, o.vmax
	if o.hasRange {
		if math.IsNaN(vmin) || math.IsNaN(vmax) || vmin > vmax {
			return nil, fmt.Errorf("rasterkit: Render: bad range [%v, %v]", vmin, vmax)
		}
	} else {
		vmin, vmax = dataRange(cu)
	}
	span := vmax - vmin

	rows, cols := r.shape.Rows, r.shape.Cols
	img := image.NewNRGBA(image.Rect(0, 0, cols, rows))
	for row := 0; row < rows; row++ {
		for col := 0; col < cols; col++ {
			i := row*cols + col
			v := cu.values[i]
			if (cu.mask != nil && cu.mask[i]) || math.IsNaN(v) {
				continue
			}
			t := 0.5
			if span > 0 {
				t = (v - vmin) / span
			}
			cr, cg, cb := cm.At(t)
			img.SetNRGBA(col, row, color.NRGBA{R: cr, G: cg, B: cb, A: 0xff})
		}
	}

	if o.width > 0 {
		scaled := image.NewNRGBA(image.Rect(0, 0, o.width, o.height))
		xdraw.CatmullRom.Scale(scaled, scaled.Bounds(), img, img.Bounds(), xdraw.Src, nil)
		img = scaled
	}
	if o.legend {
		img, err = attachLegend(img, cm, vmin, vmax)
		if err != nil {
			return nil, fmt.Errorf("rasterkit: Render: %w", err)
		}
	}
	return img, nil
}

// dataRange returns the min and max of the valid cells, or [0, 1] when no
// cell carries a value.
func dataRange(cu *cube) (vmin, vmax float64) {
	vmin, vmax = math.Inf(1), math.Inf(-1)
	for i, v := range cu.values {
		if (cu.mask != nil && cu.mask[i]) || math.IsNaN(v) {
			continue
		}
		vmin = math.Min(vmin, v)
		vmax = math.Max(vmax, v)
	}
	if vmin > vmax {
		return 0, 1
	}
	return vmin, vmax
}

// attachLegend appends a white strip holding the color ramp and its range
// labels below the image.
func attachLegend(img *image.NRGBA, cm colormap.Map, vmin, vmax float64) (*image.NRGBA, error) {
	fnt, err := opentype.Parse(goregular.TTF)
	if err != nil {
		return nil, err
	}
	face, err := opentype.NewFace(fnt, &opentype.FaceOptions{
		Size:    11,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, err
	}
	defer face.Close()

	b := img.Bounds()
	w := b.Dx()
	stripTop := b.Dy()
	out := image.NewNRGBA(image.Rect(0, 0, w, stripTop+legendBarHeight+legendTextHeight+2*legendPad))
	xdraw.Draw(out, b, img, b.Min, xdraw.Src)
	xdraw.Draw(out, image.Rect(0, stripTop, w, out.Bounds().Max.Y),
		image.NewUniform(color.White), image.Point{}, xdraw.Src)

	barTop := stripTop + legendPad
	for x := 0; x < w; x++ {
		t := 0.5
		if w > 1 {
			t = float64(x) / float64(w-1)
		}
		cr, cg, cb := cm.At(t)
		for y := barTop; y < barTop+legendBarHeight; y++ {
			out.SetNRGBA(x, y, color.NRGBA{R: cr, G: cg, B: cb, A: 0xff})
		}
	}

	d := font.Drawer{Dst: out, Src: image.Black, Face: face}
	baseline := barTop + legendBarHeight + legendTextHeight - legendPad
	lo := strconv.FormatFloat(vmin, 'g', 4, 64)
	hi := strconv.FormatFloat(vmax, 'g', 4, 64)
	d.Dot = fixed.P(legendPad, baseline)
	d.DrawString(lo)
	d.Dot = fixed.P(w-legendPad-d.MeasureString(hi).Ceil(), baseline)
	d.DrawString(hi)
	return out, nil
}

// SavePNG renders one band and writes it as a PNG. Georeferenced rasters
// rendered at their native size also get a world file and, when a CRS is
// set, a .prj sidecar.
func (r *Raster) SavePNG(ctx context.Context, path string, band int, opts ...RenderOption) error {
	img, err := r.Render(ctx, band, opts...)
	if err != nil {
		return err
	}
	var o renderOptions
	for _, opt := range opts {
		opt(&o)
	}
	if r.georef && o.width == 0 {
		return rasterio.WritePNG(path, img, r.tf, r.crs)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("rasterkit: SavePNG: creating %s: %w", path, err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		return fmt.Errorf("rasterkit: SavePNG: encoding %s: %w", path, err)
	}
	return nil
}
