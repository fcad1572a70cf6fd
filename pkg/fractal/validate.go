package fractal

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// Sentinel errors returned by validation. Use errors.Is to test for them.
var (
	// ErrInvalidParameters reports a value outside the kernel's domain.
	ErrInvalidParameters = errors.New("fractal: invalid parameters")

	// ErrLimitExceeded reports a request larger than the configured Limits.
	// It also matches ErrInvalidParameters.
	ErrLimitExceeded = fmt.Errorf("%w: resource limit exceeded", ErrInvalidParameters)
)

// FieldError describes one rejected field.
type FieldError struct {
	Field  string `json:"field"`
	Value  string `json:"value"`
	Reason string `json:"reason"`
}

func (e FieldError) String() string {
	return fmt.Sprintf("%s=%s: %s", e.Field, e.Value, e.Reason)
}

// ValidationError lists every field that failed validation.
type ValidationError struct {
	Fields []FieldError
	kind   error
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = f.String()
	}
	return e.kind.Error() + ": " + strings.Join(parts, "; ")
}

// Unwrap returns ErrInvalidParameters or ErrLimitExceeded.
func (e *ValidationError) Unwrap() error {
	return e.kind
}

type fieldChecker struct {
	fields []FieldError
}

func (c *fieldChecker) check(ok bool, field string, value any, reason string) {
	if !ok {
		c.fields = append(c.fields, FieldError{Field: field, Value: fmt.Sprint(value), Reason: reason})
	}
}

func (c *fieldChecker) err(kind error) error {
	if len(c.fields) == 0 {
		return nil
	}
	return &ValidationError{Fields: c.fields, kind: kind}
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// Validate reports whether v satisfies the kernel's preconditions.
func (v ViewParameters) Validate() error {
	var c fieldChecker
	v.check(&c)
	return c.err(ErrInvalidParameters)
}

func (v ViewParameters) check(c *fieldChecker) {
	c.check(finite(v.CenterX), "center_x", v.CenterX, "must be a finite number")
	c.check(finite(v.CenterY), "center_y", v.CenterY, "must be a finite number")
	c.check(finite(v.Zoom) && v.Zoom > 0, "zoom", v.Zoom, "must be a finite number greater than 0")
	c.check(v.MaxIterations >= 0, "max_iterations", v.MaxIterations, "must be greater than or equal to 0")
}

// Validate reports whether d describes a non-empty grid.
func (d GridDimensions) Validate() error {
	var c fieldChecker
	d.check(&c)
	return c.err(ErrInvalidParameters)
}

func (d GridDimensions) check(c *fieldChecker) {
	c.check(d.Width > 0, "width", d.Width, "must be greater than 0")
	c.check(d.Height > 0, "height", d.Height, "must be greater than 0")
	c.check(d.fits(), "width*height", d.String(), "must not overflow")
}

// Validate checks view and dims together and reports all violations at once.
func Validate(view ViewParameters, dims GridDimensions) error {
	var c fieldChecker
	view.check(&c)
	dims.check(&c)
	return c.err(ErrInvalidParameters)
}

// NewViewParameters returns validated view parameters.
func NewViewParameters(centerX, centerY, zoom float64, maxIterations int) (ViewParameters, error) {
	v := ViewParameters{
		CenterX:       centerX,
		CenterY:       centerY,
		Zoom:          zoom,
		MaxIterations: maxIterations,
	}
	if err := v.Validate(); err != nil {
		return ViewParameters{}, err
	}
	return v, nil
}

// NewGridDimensions returns validated grid dimensions.
func NewGridDimensions(width, height int) (GridDimensions, error) {
	d := GridDimensions{Width: width, Height: height}
	if err := d.Validate(); err != nil {
		return GridDimensions{}, err
	}
	return d, nil
}

// Limits bounds the work a single computation may request.
// A zero field means no limit.
type Limits struct {
	MaxWidth      int `toml:"max_width"`
	MaxHeight     int `toml:"max_height"`
	MaxPixels     int `toml:"max_pixels"`
	MaxIterations int `toml:"max_iterations"`
}

// DefaultLimits keeps a single request around a few seconds of CPU time.
func DefaultLimits() Limits {
	return Limits{
		MaxWidth:      4096,
		MaxHeight:     4096,
		MaxPixels:     4 << 20,
		MaxIterations: 100_000,
	}
}

// Check returns an error matching ErrLimitExceeded if view or dims exceed l.
func (l Limits) Check(view ViewParameters, dims GridDimensions) error {
	var c fieldChecker
	c.check(l.MaxWidth <= 0 || dims.Width <= l.MaxWidth, "width", dims.Width,
		fmt.Sprintf("must be at most %d", l.MaxWidth))
	c.check(l.MaxHeight <= 0 || dims.Height <= l.MaxHeight, "height", dims.Height,
		fmt.Sprintf("must be at most %d", l.MaxHeight))
	c.check(l.MaxPixels <= 0 || dims.Height <= 0 || dims.Width <= l.MaxPixels/dims.Height, "width*height", dims.String(),
		fmt.Sprintf("must be at most %d", l.MaxPixels))
	c.check(l.MaxIterations <= 0 || view.MaxIterations <= l.MaxIterations, "max_iterations", view.MaxIterations,
		fmt.Sprintf("must be at most %d", l.MaxIterations))
	return c.err(ErrLimitExceeded)
}
