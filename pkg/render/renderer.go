package render

import (
	"image/color"
	"math"

	"github.com/llgcode/draw2d/draw2dimg"

	"github.com/gravitas-games/hexrange/pkg/hex"
)

// DefaultBorderWidth is the outline width in pixels.
const DefaultBorderWidth = 1.0

// Renderer paints hex grids for a single geometry.
type Renderer struct {
	geom        hex.Geometry
	palette     Palette
	borderWidth float64
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithPalette overrides DefaultPalette.
func WithPalette(p Palette) Option {
	return func(r *Renderer) { r.palette = p }
}

// WithBorderWidth sets the outline width; zero or less disables outlines.
func WithBorderWidth(w float64) Option {
	return func(r *Renderer) { r.borderWidth = w }
}

// NewRenderer validates geom and returns a renderer for it.
func NewRenderer(geom hex.Geometry, opts ...Option) (*Renderer, error) {
	if err := geom.Validate(); err != nil {
		return nil, err
	}
	r := &Renderer{
		geom:        geom,
		palette:     DefaultPalette,
		borderWidth: DefaultBorderWidth,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Geometry returns the layout the renderer draws with.
func (r *Renderer) Geometry() hex.Geometry { return r.geom }

// Result is the outcome of one render pass.
type Result struct {
	Canvas      *Canvas
	Drawn       []hex.Axial // every hex whose bounding box meets the viewport, row-major
	Highlighted int         // how many of Drawn were painted with the accent color
}

// Render draws every hex overlapping the viewport. Hexes in highlighted get the
// accent color, all others the base color; outlines are drawn on top in a
// second pass. Output is byte-identical for identical inputs.
func (r *Renderer) Render(v Viewport, highlighted hex.Set) (*Result, error) {
	canvas, err := NewCanvas(v, r.palette.Background)
	if err != nil {
		return nil, err
	}

	cells := r.Visible(v)
	res := &Result{Canvas: canvas, Drawn: cells}

	gc := draw2dimg.NewGraphicContext(canvas.img)
	for _, h := range cells {
		if highlighted.Contains(h) {
			res.Highlighted++
		}
		r.polygon(gc, h)
		gc.SetFillColor(r.ColorOf(h, highlighted))
		gc.Fill()
	}

	if r.borderWidth > 0 {
		gc.SetStrokeColor(r.palette.Border)
		gc.SetLineWidth(r.borderWidth)
		for _, h := range cells {
			r.polygon(gc, h)
			gc.Stroke()
		}
	}
	return res, nil
}

func (r *Renderer) polygon(gc *draw2dimg.GraphicContext, h hex.Axial) {
	corners := r.geom.Corners(h)
	gc.BeginPath()
	gc.MoveTo(corners[0].X, corners[0].Y)
	for _, p := range corners[1:] {
		gc.LineTo(p.X, p.Y)
	}
	gc.Close()
}

// Visible lists, in row-major order (R then Q), the hexes whose bounding box
// intersects the viewport.
func (r *Renderer) Visible(v Viewport) []hex.Axial {
	if v.Validate() != nil {
		return nil
	}
	halfW, halfH := r.geom.Bounds()
	w, h := float64(v.Width), float64(v.Height)

	// The layout is affine, so the extreme axial values of the expanded
	// viewport are reached at its corners.
	qMin, qMax := math.Inf(1), math.Inf(-1)
	rMin, rMax := math.Inf(1), math.Inf(-1)
	for _, p := range []hex.Point{
		{X: -halfW, Y: -halfH}, {X: w + halfW, Y: -halfH},
		{X: -halfW, Y: h + halfH}, {X: w + halfW, Y: h + halfH},
	} {
		f := r.geom.FractionalHex(p)
		qMin, qMax = math.Min(qMin, f.Q), math.Max(qMax, f.Q)
		rMin, rMax = math.Min(rMin, f.R), math.Max(rMax, f.R)
	}

	var out []hex.Axial
	for rr := int(math.Floor(rMin)) - 1; rr <= int(math.Ceil(rMax))+1; rr++ {
		for q := int(math.Floor(qMin)) - 1; q <= int(math.Ceil(qMax))+1; q++ {
			a := hex.Axial{Q: q, R: rr}
			c := r.geom.HexToPixel(a)
			if c.X+halfW <= 0 || c.X-halfW >= w || c.Y+halfH <= 0 || c.Y-halfH >= h {
				continue
			}
			out = append(out, a)
		}
	}
	return out
}

// ColorOf reports the fill color the renderer uses for h.
func (r *Renderer) ColorOf(h hex.Axial, highlighted hex.Set) color.RGBA {
	if highlighted.Contains(h) {
		return r.palette.Accent
	}
	return r.palette.Base
}
