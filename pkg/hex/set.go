package hex

import "sort"

// Set is an unordered collection of hexes.
type Set map[Axial]struct{}

// NewSet returns a set holding the given hexes.
func NewSet(hexes ...Axial) Set {
	s := make(Set, len(hexes))
	for _, h := range hexes {
		s.Add(h)
	}
	return s
}

// Add inserts h.
func (s Set) Add(h Axial) { s[h] = struct{}{} }

// Contains reports whether h is in the set. A nil set contains nothing.
func (s Set) Contains(h Axial) bool {
	_, ok := s[h]
	return ok
}

// Len returns the number of hexes.
func (s Set) Len() int { return len(s) }

// Equal reports whether both sets hold the same hexes.
func (s Set) Equal(o Set) bool {
	if len(s) != len(o) {
		return false
	}
	for h := range s {
		if !o.Contains(h) {
			return false
		}
	}
	return true
}

// Sorted returns the hexes ordered by R, then Q.
func (s Set) Sorted() []Axial {
	out := make([]Axial, 0, len(s))
	for h := range s {
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].R != out[j].R {
			return out[i].R < out[j].R
		}
		return out[i].Q < out[j].Q
	})
	return out
}
