package hex

import "math"

// Capacity hints are clamped so a large range grows its result instead of
// reserving it up front.
const preallocLimit = 1 << 16

// RangeQuery selects every hex within Range steps of Center.
type RangeQuery struct {
	Center Axial `json:"center"`
	Range  int   `json:"range"`
}

// DiskSize returns the number of hexes within distance n of a cell: 3n²+3n+1.
// It returns 0 for a negative n and -1 when the count does not fit in an int.
func DiskSize(n int) int {
	if n < 0 {
		return 0
	}
	if rangeOverflows(n) {
		return -1
	}
	return 3*n*n + 3*n + 1
}

// rangeOverflows reports whether 3n(n+1)+1 exceeds math.MaxInt. Every ring
// and coordinate offset of a smaller range fits as well.
func rangeOverflows(n int) bool {
	if n > math.MaxInt/6 {
		return true
	}
	return n > (math.MaxInt-1)/3/(n+1)
}

func checkRange(n int) error {
	if n < 0 || rangeOverflows(n) {
		return &InvalidRangeError{Range: n}
	}
	return nil
}

func capHint(n int) int {
	return min(n, preallocLimit)
}

// HexesInRange returns the set of hexes at distance <= q.Range from q.Center.
func HexesInRange(q RangeQuery) (Set, error) {
	if err := checkRange(q.Range); err != nil {
		return nil, err
	}
	set := make(Set, capHint(DiskSize(q.Range)))
	for _, a := range Disk(q.Center, q.Range) {
		set.Add(a)
	}
	return set, nil
}

// Disk returns all hexes at distance <= n from c, ordered by cube x offset
// then cube y offset. A negative or overflowing n yields nil.
func Disk(c Axial, n int) []Axial {
	if checkRange(n) != nil {
		return nil
	}
	res := make([]Axial, 0, capHint(DiskSize(n)))
	for dx := -n; dx <= n; dx++ {
		for dy := max(-n, -dx-n); dy <= min(n, -dx+n); dy++ {
			dz := -dx - dy
			res = append(res, c.Add(Cube{X: dx, Y: dy, Z: dz}.ToAxial()))
		}
	}
	return res
}

// Ring returns the hexes at exactly distance radius from c, starting at
// c + radius*Directions[4] and walking each of the six directions in turn.
// A radius of zero yields [c].
func Ring(c Axial, radius int) ([]Axial, error) {
	if err := checkRange(radius); err != nil {
		return nil, err
	}
	if radius == 0 {
		return []Axial{c}, nil
	}
	res := make([]Axial, 0, capHint(6*radius))
	cur := c.Add(Directions[4].Scale(radius))
	for side := 0; side < 6; side++ {
		for step := 0; step < radius; step++ {
			res = append(res, cur)
			cur = cur.Neighbor(side)
		}
	}
	return res, nil
}

// Spiral returns rings 0..n around c, concatenated in order.
func Spiral(c Axial, n int) ([]Axial, error) {
	if err := checkRange(n); err != nil {
		return nil, err
	}
	res := make([]Axial, 0, capHint(DiskSize(n)))
	for k := 0; k <= n; k++ {
		ring, err := Ring(c, k)
		if err != nil {
			return nil, err
		}
		res = append(res, ring...)
	}
	return res, nil
}
