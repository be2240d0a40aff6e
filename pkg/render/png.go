package render

import (
	"fmt"

	"github.com/llgcode/draw2d/draw2dimg"
)

// OutputWriteError wraps a failure to persist a rendered image.
type OutputWriteError struct {
	Path string
	Err  error
}

func (e *OutputWriteError) Error() string {
	return fmt.Sprintf("failed to write %s: %v", e.Path, e.Err)
}

func (e *OutputWriteError) Unwrap() error { return e.Err }

// WritePNG encodes c as a PNG file at path.
func WritePNG(path string, c *Canvas) error {
	if err := draw2dimg.SaveToPngFile(path, c.img); err != nil {
		return &OutputWriteError{Path: path, Err: err}
	}
	return nil
}
