package fractal

import (
	"context"
	"fmt"
	"math"
	"runtime"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

// escapeRadiusSq is |z|^2 at the escape radius 2.
const escapeRadiusSq = 4.0

// minNormal replaces a zero or subnormal zoom*size product so the
// scale factors stay finite.
const minNormal = 0x1p-1022

// mapping holds the precomputed pixel to plane transform of one grid.
type mapping struct {
	offsetX, offsetY float64
	scaleX, scaleY   float64
}

func newMapping(view ViewParameters, dims GridDimensions) mapping {
	scaleX := 1 / guardDivisor(view.Zoom*float64(dims.Width))
	scaleY := 1 / guardDivisor(view.Zoom*float64(dims.Height))
	return mapping{
		offsetX: view.CenterX - (float64(dims.Width)/2)*scaleX,
		offsetY: view.CenterY - (float64(dims.Height)/2)*scaleY,
		scaleX:  scaleX,
		scaleY:  scaleY,
	}
}

func guardDivisor(d float64) float64 {
	if math.IsNaN(d) || math.Abs(d) < minNormal {
		return minNormal
	}
	return d
}

func (m mapping) re(col int) float64 { return m.offsetX + float64(col)*m.scaleX }
func (m mapping) im(row int) float64 { return m.offsetY + float64(row)*m.scaleY }

// fillRow writes the counts of one row into dst.
func (m mapping) fillRow(dst []int, row, maxIter int) {
	cy := m.im(row)
	for col := range dst {
		dst[col] = escape(m.re(col), cy, maxIter)
	}
}

// escape returns the number of completed iterations of z = z*z + c,
// starting at z = 0, before |z| >= 2 or maxIter is reached.
func escape(cx, cy float64, maxIter int) int {
	var zx, zy float64
	i := 0
	for zx*zx+zy*zy < escapeRadiusSq && i < maxIter {
		zx, zy = zx*zx-zy*zy+cx, 2*zx*zy+cy
		i++
	}
	return i
}

// PixelToPoint returns the complex plane point pixel (col, row) maps to.
func PixelToPoint(view ViewParameters, dims GridDimensions, col, row int) ComplexPoint {
	m := newMapping(view, dims)
	return ComplexPoint{Re: m.re(col), Im: m.im(row)}
}

// Escape returns the iteration count of a single point.
func Escape(c ComplexPoint, maxIterations int) int {
	return escape(c.Re, c.Im, maxIterations)
}

// Option configures a Kernel.
type Option func(*Kernel)

// WithWorkers bounds the number of goroutines computing rows.
// Values below one select runtime.GOMAXPROCS(0).
func WithWorkers(n int) Option {
	return func(k *Kernel) {
		k.workers = n
	}
}

// Kernel computes iteration grids with a bounded pool of row workers.
// A Kernel holds no per-computation state and is safe for concurrent use.
type Kernel struct {
	workers int
}

// NewKernel creates a kernel. Without options it uses one worker per
// available CPU.
func NewKernel(opts ...Option) *Kernel {
	k := &Kernel{}
	for _, opt := range opts {
		opt(k)
	}
	if k.workers < 1 {
		k.workers = runtime.GOMAXPROCS(0)
	}
	return k
}

// Workers returns the worker bound.
func (k *Kernel) Workers() int {
	return k.workers
}

var defaultKernel = NewKernel()

// Compute returns the iteration grid for view over dims using one worker
// per available CPU. The caller must pass valid input (see Validate); the
// result always has dims.Height rows of dims.Width counts.
func Compute(view ViewParameters, dims GridDimensions) IterationGrid {
	return defaultKernel.Compute(view, dims)
}

// Compute returns the iteration grid for view over dims. Dimensions whose
// pixel count overflows an int yield an empty grid.
func (k *Kernel) Compute(view ViewParameters, dims GridDimensions) IterationGrid {
	grid := newIterationGrid(dims)
	// A background context never cancels, so run cannot fail here.
	_ = k.run(context.Background(), view, dims, grid, nil)
	return grid
}

// ComputeContext is like Compute but stops scheduling rows once ctx is done.
// The partial grid is discarded and the context error is returned.
func (k *Kernel) ComputeContext(ctx context.Context, view ViewParameters, dims GridDimensions) (IterationGrid, error) {
	if !dims.fits() {
		return IterationGrid{}, dims.Validate()
	}
	grid := newIterationGrid(dims)
	if err := k.run(ctx, view, dims, grid, nil); err != nil {
		return IterationGrid{}, fmt.Errorf("compute %s grid: %w", dims, err)
	}
	return grid, nil
}

// RowFunc receives one finished row. The slice is only valid for the
// duration of the call.
type RowFunc func(row int, counts []int) error

// Stream computes the grid and calls emit once per row in ascending row
// order from the calling goroutine. Rows are computed in parallel ahead of
// emission. An error from emit or ctx stops the computation and is returned.
func (k *Kernel) Stream(ctx context.Context, view ViewParameters, dims GridDimensions, emit RowFunc) error {
	if !dims.fits() {
		return dims.Validate()
	}
	grid := newIterationGrid(dims)
	ready := make([]chan struct{}, grid.height)
	for i := range ready {
		ready[i] = make(chan struct{})
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- k.run(ctx, view, dims, grid, func(row int) { close(ready[row]) })
	}()

	for row := range ready {
		select {
		case <-ready[row]:
		case <-ctx.Done():
			<-done
			return fmt.Errorf("stream %s grid: %w", dims, ctx.Err())
		}
		if err := emit(row, grid.row(row)); err != nil {
			cancel()
			<-done
			return fmt.Errorf("emit row %d: %w", row, err)
		}
	}
	return <-done
}

// run fills grid. Workers claim rows in ascending order from a shared
// counter; each row is written by exactly one worker. finished, when set,
// is called after a row is complete.
func (k *Kernel) run(ctx context.Context, view ViewParameters, dims GridDimensions, grid IterationGrid, finished func(row int)) error {
	if len(grid.cells) == 0 {
		return nil
	}
	m := newMapping(view, dims)
	maxIter := view.MaxIterations

	workers := k.workers
	if workers > dims.Height {
		workers = dims.Height
	}

	var next atomic.Int64
	g, ctx := errgroup.WithContext(ctx)
	for w := 0; w < workers; w++ {
		g.Go(func() error {
			for {
				if err := ctx.Err(); err != nil {
					return err
				}
				row := int(next.Add(1) - 1)
				if row >= grid.height {
					return nil
				}
				m.fillRow(grid.row(row), row, maxIter)
				if finished != nil {
					finished(row)
				}
			}
		})
	}
	return g.Wait()
}
