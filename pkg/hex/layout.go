package hex

import (
	"fmt"
	"math"
	"strings"
)

// Orientation selects how hexes sit on the pixel plane.
type Orientation uint8

const (
	// PointyTop hexes have a vertex at the top; rows are offset horizontally.
	PointyTop Orientation = iota
	// FlatTop hexes have an edge at the top; columns are offset vertically.
	FlatTop
)

// ParseOrientation accepts "pointy", "pointy-top", "flat" and "flat-top".
func ParseOrientation(s string) (Orientation, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "pointy", "pointy-top", "pointytop":
		return PointyTop, nil
	case "flat", "flat-top", "flattop":
		return FlatTop, nil
	}
	return PointyTop, fmt.Errorf("unknown hex orientation %q", s)
}

func (o Orientation) String() string {
	switch o {
	case PointyTop:
		return "pointy"
	case FlatTop:
		return "flat"
	}
	return fmt.Sprintf("Orientation(%d)", uint8(o))
}

// matrix holds the forward (f) and backward (b) layout matrices and the
// angle of the first corner in sixths of a turn.
type matrix struct {
	f0, f1, f2, f3 float64
	b0, b1, b2, b3 float64
	startAngle     float64
}

var (
	sqrt3 = math.Sqrt(3)

	pointyMatrix = matrix{
		f0: sqrt3, f1: sqrt3 / 2, f2: 0, f3: 1.5,
		b0: sqrt3 / 3, b1: -1.0 / 3, b2: 0, b3: 2.0 / 3,
		startAngle: 0.5,
	}
	flatMatrix = matrix{
		f0: 1.5, f1: 0, f2: sqrt3 / 2, f3: sqrt3,
		b0: 2.0 / 3, b1: 0, b2: -1.0 / 3, b3: sqrt3 / 3,
		startAngle: 0,
	}
)

func (o Orientation) matrix() matrix {
	if o == FlatTop {
		return flatMatrix
	}
	return pointyMatrix
}

// Point is a location in image (pixel) space. Y grows downwards.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Geometry describes the pixel layout of a grid. SizeX and SizeY are the
// horizontal and vertical hex radii (center to corner); Origin is the pixel
// position of hex (0,0).
type Geometry struct {
	SizeX       float64
	SizeY       float64
	Origin      Point
	Orientation Orientation
}

// NewGeometry returns a validated pointy-top geometry anchored at (0,0).
func NewGeometry(sizeX, sizeY float64) (Geometry, error) {
	g := Geometry{SizeX: sizeX, SizeY: sizeY}
	return g, g.Validate()
}

// Validate reports an *InvalidGeometryError unless both sizes are positive and finite.
func (g Geometry) Validate() error {
	if !(g.SizeX > 0) || !(g.SizeY > 0) {
		return &InvalidGeometryError{SizeX: g.SizeX, SizeY: g.SizeY}
	}
	if math.IsInf(g.SizeX, 0) || math.IsInf(g.SizeY, 0) {
		return &InvalidGeometryError{SizeX: g.SizeX, SizeY: g.SizeY, Reason: "sizes must be finite"}
	}
	if g.Orientation != PointyTop && g.Orientation != FlatTop {
		return &InvalidGeometryError{SizeX: g.SizeX, SizeY: g.SizeY, Reason: "unknown orientation " + g.Orientation.String()}
	}
	if math.IsNaN(g.Origin.X) || math.IsNaN(g.Origin.Y) {
		return &InvalidGeometryError{SizeX: g.SizeX, SizeY: g.SizeY, Reason: "origin is NaN"}
	}
	return nil
}

// HexToPixel returns the pixel center of h. No rounding is applied.
func (g Geometry) HexToPixel(h Axial) Point {
	m := g.Orientation.matrix()
	q, r := float64(h.Q), float64(h.R)
	x := (m.f0*q + m.f1*r) * g.SizeX
	y := (m.f2*q + m.f3*r) * g.SizeY
	return Point{X: x + g.Origin.X, Y: y + g.Origin.Y}
}

// FractionalAxial is an axial coordinate before rounding to a cell.
type FractionalAxial struct {
	Q float64
	R float64
}

// FractionalHex inverts the layout equations without rounding.
// The geometry must be valid.
func (g Geometry) FractionalHex(p Point) FractionalAxial {
	m := g.Orientation.matrix()
	px := (p.X - g.Origin.X) / g.SizeX
	py := (p.Y - g.Origin.Y) / g.SizeY
	return FractionalAxial{
		Q: m.b0*px + m.b1*py,
		R: m.b2*px + m.b3*py,
	}
}

// PixelToHex returns the hex containing p.
func (g Geometry) PixelToHex(p Point) (Axial, error) {
	if err := g.Validate(); err != nil {
		return Axial{}, err
	}
	return g.FractionalHex(p).Round(), nil
}

// Round snaps a fractional coordinate to the nearest cell. Each cube component
// is rounded independently, then the one with the largest rounding error is
// recomputed from the other two so that x+y+z=0 holds exactly.
func (f FractionalAxial) Round() Axial {
	x, z := f.Q, f.R
	y := -x - z

	rx, ry, rz := math.Round(x), math.Round(y), math.Round(z)
	dx, dy, dz := math.Abs(rx-x), math.Abs(ry-y), math.Abs(rz-z)

	if dx > dy && dx > dz {
		rx = -ry - rz
	} else if dy > dz {
		ry = -rx - rz
	} else {
		rz = -rx - ry
	}
	return Cube{X: int(rx), Y: int(ry), Z: int(rz)}.ToAxial()
}

// CornerOffsets returns the six polygon vertex offsets relative to a hex center.
func (g Geometry) CornerOffsets() [6]Point {
	m := g.Orientation.matrix()
	var out [6]Point
	for i := range out {
		angle := 2 * math.Pi * (m.startAngle + float64(i)) / 6
		out[i] = Point{X: g.SizeX * math.Cos(angle), Y: g.SizeY * math.Sin(angle)}
	}
	return out
}

// Corners returns the six polygon vertices of h in pixel space.
func (g Geometry) Corners(h Axial) [6]Point {
	c := g.HexToPixel(h)
	out := g.CornerOffsets()
	for i := range out {
		out[i].X += c.X
		out[i].Y += c.Y
	}
	return out
}

// Bounds returns the half-width and half-height of a single hex polygon.
func (g Geometry) Bounds() (halfW, halfH float64) {
	for _, p := range g.CornerOffsets() {
		halfW = math.Max(halfW, math.Abs(p.X))
		halfH = math.Max(halfH, math.Abs(p.Y))
	}
	return halfW, halfH
}
