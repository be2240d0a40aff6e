package render

import (
	"fmt"
	"image/color"
	"strconv"
	"strings"
)

// Palette holds the fixed colors of a render pass.
type Palette struct {
	Background color.RGBA // pixels not covered by any hex
	Base       color.RGBA
	Accent     color.RGBA // hexes inside the range query
	Border     color.RGBA
}

// DefaultPalette is used when no palette is configured.
var DefaultPalette = Palette{
	Background: color.RGBA{0xff, 0xff, 0xff, 0xff},
	Base:       color.RGBA{0xdc, 0xdc, 0xdc, 0xff},
	Accent:     color.RGBA{0xe4, 0x57, 0x2e, 0xff},
	Border:     color.RGBA{0x50, 0x50, 0x50, 0xff},
}

// ParseHexColor parses "#rrggbb" or "#rrggbbaa" (the '#' is optional).
func ParseHexColor(s string) (color.RGBA, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(s) != 6 && len(s) != 8 {
		return color.RGBA{}, fmt.Errorf("invalid color %q: expected #rrggbb or #rrggbbaa", s)
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("invalid color %q: %w", s, err)
	}
	if len(s) == 6 {
		v = v<<8 | 0xff
	}
	return color.RGBA{
		R: uint8(v >> 24),
		G: uint8(v >> 16),
		B: uint8(v >> 8),
		A: uint8(v),
	}, nil
}

// FormatHexColor is the inverse of ParseHexColor for opaque colors.
func FormatHexColor(c color.RGBA) string {
	if c.A == 0xff {
		return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
	}
	return fmt.Sprintf("#%02x%02x%02x%02x", c.R, c.G, c.B, c.A)
}
