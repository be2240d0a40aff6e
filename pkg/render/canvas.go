// Package render paints a hex grid into an RGBA canvas and hands it to a PNG encoder.
package render

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
)

// Viewport is the pixel area [0,Width)x[0,Height) to render.
type Viewport struct {
	Width  int
	Height int
}

// Validate returns an *InvalidDimensionsError unless both sides are positive.
func (v Viewport) Validate() error {
	if v.Width <= 0 || v.Height <= 0 {
		return &InvalidDimensionsError{Width: v.Width, Height: v.Height}
	}
	return nil
}

// InvalidDimensionsError reports a non-positive image size.
type InvalidDimensionsError struct {
	Width  int
	Height int
}

func (e *InvalidDimensionsError) Error() string {
	return fmt.Sprintf("invalid image dimensions %dx%d: width and height must be positive", e.Width, e.Height)
}

// Canvas is the pixel buffer produced by a render pass.
type Canvas struct {
	img *image.RGBA
}

// NewCanvas allocates a canvas filled with bg.
func NewCanvas(v Viewport, bg color.RGBA) (*Canvas, error) {
	if err := v.Validate(); err != nil {
		return nil, err
	}
	img := image.NewRGBA(image.Rect(0, 0, v.Width, v.Height))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i+0] = bg.R
		img.Pix[i+1] = bg.G
		img.Pix[i+2] = bg.B
		img.Pix[i+3] = bg.A
	}
	return &Canvas{img: img}, nil
}

// Width returns the canvas width in pixels.
func (c *Canvas) Width() int { return c.img.Rect.Dx() }

// Height returns the canvas height in pixels.
func (c *Canvas) Height() int { return c.img.Rect.Dy() }

// At returns the pixel at (x, y).
func (c *Canvas) At(x, y int) color.RGBA { return c.img.RGBAAt(x, y) }

// Image exposes the underlying buffer. Callers must not modify it.
func (c *Canvas) Image() *image.RGBA { return c.img }

// EncodePNG writes the canvas as PNG to w.
func (c *Canvas) EncodePNG(w io.Writer) error {
	return png.Encode(w, c.img)
}
