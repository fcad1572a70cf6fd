// Package escapetime computes Mandelbrot escape-time grids.
//
// Example usage:
//
//	view, err := escapetime.NewViewParameters(-0.65, 0, 0.4, 150)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	dims, err := escapetime.NewGridDimensions(800, 600)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	grid := escapetime.Compute(view, dims)
//
// The kernel itself lives in pkg/fractal; the HTTP server is cmd/escapetime.
package escapetime

import "github.com/bft-labs/escapetime/pkg/fractal"

// ViewParameters is the logical camera over the complex plane.
type ViewParameters = fractal.ViewParameters

// GridDimensions is the pixel size of a grid.
type GridDimensions = fractal.GridDimensions

// IterationGrid holds one iteration count per pixel.
type IterationGrid = fractal.IterationGrid

// Limits bounds the work a single computation may request.
type Limits = fractal.Limits

// Compute returns the iteration grid for view at dims.
func Compute(view ViewParameters, dims GridDimensions) IterationGrid {
	return fractal.Compute(view, dims)
}

// NewViewParameters returns validated view parameters.
func NewViewParameters(centerX, centerY, zoom float64, maxIterations int) (ViewParameters, error) {
	return fractal.NewViewParameters(centerX, centerY, zoom, maxIterations)
}

// NewGridDimensions returns validated grid dimensions.
func NewGridDimensions(width, height int) (GridDimensions, error) {
	return fractal.NewGridDimensions(width, height)
}

// DefaultLimits returns the limits the server applies unless configured.
func DefaultLimits() Limits {
	return fractal.DefaultLimits()
}
