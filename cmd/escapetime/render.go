package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/bft-labs/escapetime/internal/render"
	"github.com/bft-labs/escapetime/pkg/fractal"
)

type renderOptions struct {
	centerX, centerY, zoom float64
	maxIterations          int
	width, height          int
	workers                int
	format                 string
	output                 string
}

func newRenderCmd() *cobra.Command {
	// Same opening view as the web explorer.
	opts := renderOptions{
		centerX:       -0.65,
		zoom:          0.4,
		maxIterations: 150,
		width:         fractal.DefaultWidth,
		height:        fractal.DefaultHeight,
		format:        "png",
		output:        "mandelbrot.png",
	}

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Compute one grid and write it as a PNG image or JSON rows",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRender(cmd.Context(), cmd.OutOrStdout(), opts)
		},
	}

	cmd.Flags().Float64Var(&opts.centerX, "center-x", opts.centerX, "real part of the view center")
	cmd.Flags().Float64Var(&opts.centerY, "center-y", opts.centerY, "imaginary part of the view center")
	cmd.Flags().Float64Var(&opts.zoom, "zoom", opts.zoom, "magnification (greater than 0)")
	cmd.Flags().IntVar(&opts.maxIterations, "max-iterations", opts.maxIterations, "iteration budget per pixel")
	cmd.Flags().IntVar(&opts.width, "width", opts.width, "grid width in pixels")
	cmd.Flags().IntVar(&opts.height, "height", opts.height, "grid height in pixels")
	cmd.Flags().IntVar(&opts.workers, "workers", opts.workers, "row workers (0 = one per CPU)")
	cmd.Flags().StringVar(&opts.format, "format", opts.format, "output format (png or json)")
	cmd.Flags().StringVarP(&opts.output, "output", "o", opts.output, "output file (- for stdout)")

	return cmd
}

func runRender(ctx context.Context, stdout io.Writer, opts renderOptions) (err error) {
	if opts.format != "png" && opts.format != "json" {
		return fmt.Errorf("unknown format %q (want png or json)", opts.format)
	}

	view, err := fractal.NewViewParameters(opts.centerX, opts.centerY, opts.zoom, opts.maxIterations)
	if err != nil {
		return err
	}
	dims, err := fractal.NewGridDimensions(opts.width, opts.height)
	if err != nil {
		return err
	}

	grid, err := fractal.NewKernel(fractal.WithWorkers(opts.workers)).ComputeContext(ctx, view, dims)
	if err != nil {
		return err
	}

	out := stdout
	if opts.output != "-" {
		f, ferr := os.Create(opts.output)
		if ferr != nil {
			return ferr
		}
		defer func() {
			if cerr := f.Close(); err == nil {
				err = cerr
			}
		}()
		out = f
	}

	if opts.format == "json" {
		return json.NewEncoder(out).Encode(grid)
	}
	return render.EncodePNG(out, grid, view.MaxIterations)
}
