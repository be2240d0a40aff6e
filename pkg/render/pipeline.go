package render

import (
	"github.com/gravitas-games/hexrange/pkg/hex"
)

// Request describes one end-to-end render: locate the hex under Point, collect
// every hex within Range of it and paint the grid.
type Request struct {
	Geometry    hex.Geometry
	Viewport    Viewport
	Point       hex.Point
	Range       int
	Palette     Palette // zero value selects DefaultPalette
	BorderWidth float64 // zero selects DefaultBorderWidth, negative disables outlines
}

// Validate checks the request before any pixel is touched.
func (req Request) Validate() error {
	if err := req.Viewport.Validate(); err != nil {
		return err
	}
	if err := req.Geometry.Validate(); err != nil {
		return err
	}
	if req.Range < 0 {
		return &hex.InvalidRangeError{Range: req.Range}
	}
	return nil
}

// Output carries the rendered canvas together with the query that produced it.
type Output struct {
	*Result
	Query hex.RangeQuery
	Hexes hex.Set
}

// Run validates req, resolves the range query and renders the grid.
func Run(req Request) (*Output, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	center, err := req.Geometry.PixelToHex(req.Point)
	if err != nil {
		return nil, err
	}
	query := hex.RangeQuery{Center: center, Range: req.Range}
	hexes, err := hex.HexesInRange(query)
	if err != nil {
		return nil, err
	}
	if req.Palette == (Palette{}) {
		req.Palette = DefaultPalette
	}
	if req.BorderWidth == 0 {
		req.BorderWidth = DefaultBorderWidth
	}
	r, err := NewRenderer(req.Geometry, WithPalette(req.Palette), WithBorderWidth(req.BorderWidth))
	if err != nil {
		return nil, err
	}
	res, err := r.Render(req.Viewport, hexes)
	if err != nil {
		return nil, err
	}
	return &Output{Result: res, Query: query, Hexes: hexes}, nil
}
