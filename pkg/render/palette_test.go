package render

import (
	"image/color"
	"testing"
)

func TestParseHexColor(t *testing.T) {
	cases := map[string]color.RGBA{
		"#e4572e":   {0xe4, 0x57, 0x2e, 0xff},
		"FFFFFF":    {0xff, 0xff, 0xff, 0xff},
		"#00000080": {0, 0, 0, 0x80},
	}
	for in, want := range cases {
		got, err := ParseHexColor(in)
		if err != nil {
			t.Fatalf("unexpected error for %q: %v", in, err)
		}
		if got != want {
			t.Fatalf("ParseHexColor(%q): expected %v, got %v", in, want, got)
		}
	}
	for _, bad := range []string{"", "#fff", "#gggggg", "#1234567"} {
		if _, err := ParseHexColor(bad); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
	if s := FormatHexColor(DefaultPalette.Accent); s != "#e4572e" {
		t.Fatalf("expected #e4572e, got %s", s)
	}
}
