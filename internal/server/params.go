package server

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"

	"github.com/gravitas-games/hexrange/pkg/hex"
	"github.com/gravitas-games/hexrange/pkg/render"
)

// paramError reports a query parameter that could not be parsed
type paramError struct {
	name  string
	value string
	err   error
}

func (e *paramError) Error() string {
	return fmt.Sprintf("invalid %s=%q: %v", e.name, e.value, e.err)
}

func (e *paramError) Unwrap() error { return e.err }

// rangeLimitError reports a range or ring radius above the configured limit
type rangeLimitError struct {
	Range int
	Max   int
}

func (e *rangeLimitError) Error() string {
	return fmt.Sprintf("range %d exceeds the limit of %d", e.Range, e.Max)
}

// checkRange rejects ranges above server.max_range before anything is allocated
func (s *Server) checkRange(n int) error {
	if n > s.config.Server.MaxRange {
		return &rangeLimitError{Range: n, Max: s.config.Server.MaxRange}
	}
	return nil
}

// lookup returns the first non-empty value among names
func lookup(q url.Values, names ...string) (string, string, bool) {
	for _, n := range names {
		if v := q.Get(n); v != "" {
			return n, v, true
		}
	}
	return "", "", false
}

func intParam(q url.Values, dst *int, names ...string) error {
	name, v, ok := lookup(q, names...)
	if !ok {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return &paramError{name: name, value: v, err: err}
	}
	*dst = n
	return nil
}

func floatParam(q url.Values, dst *float64, names ...string) error {
	name, v, ok := lookup(q, names...)
	if !ok {
		return nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return &paramError{name: name, value: v, err: err}
	}
	*dst = f
	return nil
}

// requestFrom overlays query parameters on the configured render request.
// The result is not validated.
func (s *Server) requestFrom(q url.Values) (render.Request, error) {
	req, err := s.config.Request()
	if err != nil {
		return render.Request{}, err
	}
	for _, e := range []error{
		intParam(q, &req.Viewport.Width, "w", "imgW"),
		intParam(q, &req.Viewport.Height, "h", "imgH"),
		floatParam(q, &req.Geometry.SizeX, "sizeX"),
		floatParam(q, &req.Geometry.SizeY, "sizeY"),
		floatParam(q, &req.Point.X, "x"),
		floatParam(q, &req.Point.Y, "y"),
		intParam(q, &req.Range, "range", "r"),
	} {
		if e != nil {
			return render.Request{}, e
		}
	}
	if name, v, ok := lookup(q, "orientation"); ok {
		o, err := hex.ParseOrientation(v)
		if err != nil {
			return render.Request{}, &paramError{name: name, value: v, err: err}
		}
		req.Geometry.Orientation = o
	}
	if err := s.checkRange(req.Range); err != nil {
		return render.Request{}, err
	}
	return req, nil
}

// errorCode maps validation errors to stable client-facing codes
func errorCode(err error) string {
	var (
		geomErr  *hex.InvalidGeometryError
		rangeErr *hex.InvalidRangeError
		dimErr   *render.InvalidDimensionsError
		pErr     *paramError
		limitErr *rangeLimitError
	)
	switch {
	case errors.As(err, &limitErr):
		return "range_too_large"
	case errors.As(err, &geomErr):
		return "invalid_geometry"
	case errors.As(err, &rangeErr):
		return "invalid_range"
	case errors.As(err, &dimErr):
		return "invalid_dimensions"
	case errors.As(err, &pErr):
		return "invalid_parameter"
	}
	return "bad_request"
}
