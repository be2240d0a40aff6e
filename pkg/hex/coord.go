// Package hex implements axial/cube hexagon coordinates, the pixel layout of a
// hex grid, and exact neighbor, ring and range queries over it.
package hex

import (
	"fmt"
	"strconv"
	"strings"
)

// Axial represents axial coordinates (q, r) of a single hex cell.
type Axial struct {
	Q int `json:"q"`
	R int `json:"r"`
}

// Cube represents cube coordinates (x, y, z) with x+y+z=0.
type Cube struct {
	X int
	Y int
	Z int
}

// Directions holds the six neighbor offsets in clockwise screen order
// (y grows downwards): E, SE, SW, W, NW, NE. Ring walks depend on this order.
var Directions = [6]Axial{
	{+1, 0}, {0, +1}, {-1, +1}, {-1, 0}, {0, -1}, {+1, -1},
}

// Add returns a+b in axial space.
func (a Axial) Add(b Axial) Axial { return Axial{a.Q + b.Q, a.R + b.R} }

// Sub returns a-b in axial space.
func (a Axial) Sub(b Axial) Axial { return Axial{a.Q - b.Q, a.R - b.R} }

// Scale multiplies an axial vector by k.
func (a Axial) Scale(k int) Axial { return Axial{a.Q * k, a.R * k} }

// S returns the implicit third cube coordinate.
func (a Axial) S() int { return -a.Q - a.R }

// ToCube converts axial to cube.
func (a Axial) ToCube() Cube {
	x := a.Q
	z := a.R
	y := -x - z
	return Cube{X: x, Y: y, Z: z}
}

// ToAxial converts cube to axial.
func (c Cube) ToAxial() Axial { return Axial{Q: c.X, R: c.Z} }

// Length returns the distance from the origin.
func (a Axial) Length() int {
	c := a.ToCube()
	return max(abs(c.X), abs(c.Y), abs(c.Z))
}

// Distance returns the graph distance between two hexes: the number of
// single-cell steps needed to walk from a to b.
func Distance(a, b Axial) int {
	return a.Sub(b).Length()
}

// Neighbor returns the adjacent hex in direction dir (taken modulo 6).
func (a Axial) Neighbor(dir int) Axial {
	dir %= 6
	if dir < 0 {
		dir += 6
	}
	return a.Add(Directions[dir])
}

// Neighbors returns the six adjacent hexes in Directions order.
func (a Axial) Neighbors() [6]Axial {
	var out [6]Axial
	for i, d := range Directions {
		out[i] = a.Add(d)
	}
	return out
}

func (a Axial) String() string {
	return fmt.Sprintf("Hex(%d,%d)", a.Q, a.R)
}

// Key returns the "q:r" form used to bin hexes by string key.
func (a Axial) Key() string {
	return strconv.Itoa(a.Q) + ":" + strconv.Itoa(a.R)
}

// ParseKey parses the output of Key.
func ParseKey(key string) (Axial, error) {
	lhs, rhs, ok := strings.Cut(key, ":")
	if !ok {
		return Axial{}, fmt.Errorf("invalid hex key %q: missing ':'", key)
	}
	q, err := strconv.Atoi(strings.TrimSpace(lhs))
	if err != nil {
		return Axial{}, fmt.Errorf("invalid hex key %q: %w", key, err)
	}
	r, err := strconv.Atoi(strings.TrimSpace(rhs))
	if err != nil {
		return Axial{}, fmt.Errorf("invalid hex key %q: %w", key, err)
	}
	return Axial{Q: q, R: r}, nil
}

// Nume packs the hex into a single integer: q in the high 32 bits, r in the low 32.
// Components outside the int32 range are truncated.
func (a Axial) Nume() uint64 {
	return uint64(uint32(int32(a.Q)))<<32 | uint64(uint32(int32(a.R)))
}

// FromNume unpacks a value produced by Nume.
func FromNume(n uint64) Axial {
	return Axial{
		Q: int(int32(uint32(n >> 32))),
		R: int(int32(uint32(n))),
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
