// Package render turns iteration grids into images.
package render

import (
	"image/color"
	"math"
)

// Palette maps an iteration count to a color. Index maxIterations is the
// color of points that never escaped.
type Palette []color.RGBA

// band endpoints, interpolated linearly across each quarter of the budget:
// deep cyan, bright cyan, electric blue, deep purple, magenta.
var bands = [4][2][3]float64{
	{{0, 50, 150}, {20, 250, 255}},
	{{20, 250, 255}, {40, 150, 255}},
	{{40, 150, 255}, {140, 20, 200}},
	{{140, 20, 200}, {240, 50, 150}},
}

// NewPalette builds the four-band palette for a given iteration budget.
// Points inside the set are black.
func NewPalette(maxIterations int) Palette {
	if maxIterations < 0 {
		maxIterations = 0
	}
	p := make(Palette, maxIterations+1)
	for i := 0; i < maxIterations; i++ {
		t := float64(i) / float64(maxIterations) * 4
		band := int(t) % 4
		local := math.Mod(t-float64(band), 1)

		from, to := bands[band][0], bands[band][1]
		p[i] = color.RGBA{
			R: channel(from[0], to[0], local),
			G: channel(from[1], to[1], local),
			B: channel(from[2], to[2], local),
			A: 0xff,
		}
	}
	p[maxIterations] = color.RGBA{A: 0xff}
	return p
}

func channel(from, to, t float64) uint8 {
	return uint8(math.Round(from + (to-from)*t))
}

// At returns the color for count, clamping out-of-range values.
func (p Palette) At(count int) color.RGBA {
	switch {
	case count < 0:
		count = 0
	case count >= len(p):
		count = len(p) - 1
	}
	return p[count]
}
