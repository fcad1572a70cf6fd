// Package fractal computes escape-time iteration grids for the Mandelbrot set.
//
// A grid is described by a [ViewParameters] (the logical camera over the
// complex plane) and a [GridDimensions] (the pixel size of the output).
// Every pixel (col, row) is mapped to a point c of the complex plane and the
// recurrence z = z*z + c is iterated from z = 0 until |z| reaches 2 or the
// iteration budget runs out. The number of completed iterations is stored in
// the resulting [IterationGrid].
//
// # Usage
//
// The package-level [Compute] function is pure and always succeeds for valid
// input:
//
//	view, err := fractal.NewViewParameters(-0.65, 0, 0.4, 150)
//	if err != nil {
//	    return err
//	}
//	dims, err := fractal.NewGridDimensions(800, 600)
//	if err != nil {
//	    return err
//	}
//	grid := fractal.Compute(view, dims)
//
// Use a [Kernel] to bound the number of worker goroutines, to abandon a
// computation through a context, or to receive rows as they complete:
//
//	k := fractal.NewKernel(fractal.WithWorkers(4))
//	grid, err := k.ComputeContext(ctx, view, dims)
//
// # Coordinate mapping
//
// One pixel spans 1/(zoom*width) units of the real axis and 1/(zoom*height)
// units of the imaginary axis, and the point (CenterX, CenterY) sits at pixel
// (width/2, height/2). Row indices grow downward together with the imaginary
// part.
package fractal
