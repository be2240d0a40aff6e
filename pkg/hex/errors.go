package hex

import "fmt"

// InvalidGeometryError reports a cell size or orientation that cannot describe a grid.
type InvalidGeometryError struct {
	SizeX  float64
	SizeY  float64
	Reason string
}

func (e *InvalidGeometryError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("invalid hex geometry (sizeX=%g, sizeY=%g): %s", e.SizeX, e.SizeY, e.Reason)
	}
	return fmt.Sprintf("invalid hex geometry: sizes must be positive, got sizeX=%g, sizeY=%g", e.SizeX, e.SizeY)
}

// InvalidRangeError reports a negative range or ring radius, or one whose hex
// count does not fit in an int.
type InvalidRangeError struct {
	Range int
}

func (e *InvalidRangeError) Error() string {
	if e.Range < 0 {
		return fmt.Sprintf("invalid range %d: must not be negative", e.Range)
	}
	return fmt.Sprintf("invalid range %d: hex count overflows", e.Range)
}
