package render

import (
	"fmt"
	"image"
	"image/png"
	"io"

	"github.com/bft-labs/escapetime/pkg/fractal"
)

// Image paints grid with the palette for maxIterations.
func Image(grid fractal.IterationGrid, maxIterations int) *image.RGBA {
	p := NewPalette(maxIterations)
	img := image.NewRGBA(image.Rect(0, 0, grid.Width(), grid.Height()))
	for row := 0; row < grid.Height(); row++ {
		for col := 0; col < grid.Width(); col++ {
			img.SetRGBA(col, row, p.At(grid.At(col, row)))
		}
	}
	return img
}

// EncodePNG writes grid to w as a PNG image.
func EncodePNG(w io.Writer, grid fractal.IterationGrid, maxIterations int) error {
	if err := png.Encode(w, Image(grid, maxIterations)); err != nil {
		return fmt.Errorf("encode png: %w", err)
	}
	return nil
}
