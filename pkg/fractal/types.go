package fractal

import (
	"fmt"
	"math"
	"strconv"
)

// Default grid size used when a request does not name one.
const (
	DefaultWidth  = 800
	DefaultHeight = 600
)

// ViewParameters is the camera over the complex plane.
type ViewParameters struct {
	// CenterX and CenterY are the plane coordinates of the image center.
	CenterX float64
	CenterY float64

	// Zoom must be positive; larger values magnify.
	Zoom float64

	// MaxIterations bounds the escape-time search. Zero yields an all-zero grid.
	MaxIterations int
}

// GridDimensions is the pixel size of an iteration grid.
type GridDimensions struct {
	Width  int
	Height int
}

// Pixels returns Width*Height, or math.MaxInt when the product does not
// fit in an int.
func (d GridDimensions) Pixels() int {
	if !d.fits() {
		return math.MaxInt
	}
	return d.Width * d.Height
}

// fits reports whether Width*Height is representable as an int.
func (d GridDimensions) fits() bool {
	return d.Width <= 0 || d.Height <= 0 || d.Width <= math.MaxInt/d.Height
}

// String returns "WxH".
func (d GridDimensions) String() string {
	return fmt.Sprintf("%dx%d", d.Width, d.Height)
}

// ComplexPoint is a point of the complex plane.
type ComplexPoint struct {
	Re float64
	Im float64
}

// IterationGrid holds one iteration count per pixel.
// Cells are stored row-major; the zero value is an empty grid.
// A grid returned by this package is never modified afterwards.
type IterationGrid struct {
	width  int
	height int
	cells  []int
}

func newIterationGrid(dims GridDimensions) IterationGrid {
	if dims.Width <= 0 || dims.Height <= 0 || !dims.fits() {
		return IterationGrid{}
	}
	return IterationGrid{
		width:  dims.Width,
		height: dims.Height,
		cells:  make([]int, dims.Width*dims.Height),
	}
}

// Width returns the number of columns.
func (g IterationGrid) Width() int { return g.width }

// Height returns the number of rows.
func (g IterationGrid) Height() int { return g.height }

// Dimensions returns the grid size.
func (g IterationGrid) Dimensions() GridDimensions {
	return GridDimensions{Width: g.width, Height: g.height}
}

// At returns the count stored for pixel (col, row).
// It panics if the pixel lies outside the grid.
func (g IterationGrid) At(col, row int) int {
	if col < 0 || col >= g.width || row < 0 || row >= g.height {
		panic(fmt.Sprintf("fractal: pixel (%d,%d) outside %dx%d grid", col, row, g.width, g.height))
	}
	return g.cells[row*g.width+col]
}

// Row returns a copy of the given row.
func (g IterationGrid) Row(row int) []int {
	out := make([]int, g.width)
	copy(out, g.row(row))
	return out
}

// Rows returns a copy of the grid as a slice of rows, grid[row][col].
func (g IterationGrid) Rows() [][]int {
	rows := make([][]int, g.height)
	for r := range rows {
		rows[r] = g.Row(r)
	}
	return rows
}

func (g IterationGrid) row(row int) []int {
	return g.cells[row*g.width : (row+1)*g.width]
}

// MarshalJSON encodes the grid as an array of rows.
func (g IterationGrid) MarshalJSON() ([]byte, error) {
	// Counts are small non-negative ints; four bytes per cell is a good first guess.
	buf := make([]byte, 0, 2+g.height*2+len(g.cells)*4)
	buf = append(buf, '[')
	for r := 0; r < g.height; r++ {
		if r > 0 {
			buf = append(buf, ',')
		}
		buf = AppendRowJSON(buf, g.row(r))
	}
	buf = append(buf, ']')
	return buf, nil
}

// AppendRowJSON appends counts to dst as a JSON array of integers.
func AppendRowJSON(dst []byte, counts []int) []byte {
	dst = append(dst, '[')
	for i, v := range counts {
		if i > 0 {
			dst = append(dst, ',')
		}
		dst = strconv.AppendInt(dst, int64(v), 10)
	}
	return append(dst, ']')
}
