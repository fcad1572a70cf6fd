package render

import (
	"bytes"
	"image/color"
	"image/png"
	"testing"

	"github.com/bft-labs/escapetime/pkg/fractal"
)

func TestNewPalette(t *testing.T) {
	p := NewPalette(100)

	if len(p) != 101 {
		t.Fatalf("len(palette) = %d, want 101", len(p))
	}

	tests := []struct {
		count int
		want  color.RGBA
	}{
		{0, color.RGBA{0, 50, 150, 255}},
		{25, color.RGBA{20, 250, 255, 255}},
		{50, color.RGBA{40, 150, 255, 255}},
		{75, color.RGBA{140, 20, 200, 255}},
		{100, color.RGBA{0, 0, 0, 255}},
	}
	for _, tt := range tests {
		if got := p.At(tt.count); got != tt.want {
			t.Errorf("At(%d) = %v, want %v", tt.count, got, tt.want)
		}
	}
}

func TestPalette_AtClamps(t *testing.T) {
	p := NewPalette(10)

	if got := p.At(-5); got != p[0] {
		t.Errorf("At(-5) = %v, want %v", got, p[0])
	}
	if got := p.At(500); got != p[10] {
		t.Errorf("At(500) = %v, want inside color %v", got, p[10])
	}
}

func TestNewPalette_ZeroIterations(t *testing.T) {
	p := NewPalette(0)
	if len(p) != 1 || p[0] != (color.RGBA{A: 255}) {
		t.Errorf("NewPalette(0) = %v, want a single black entry", p)
	}
}

func TestEncodePNG(t *testing.T) {
	view := fractal.ViewParameters{CenterX: 0, CenterY: 0, Zoom: 0.25, MaxIterations: 100}
	dims := fractal.GridDimensions{Width: 4, Height: 4}
	grid := fractal.Compute(view, dims)

	var buf bytes.Buffer
	if err := EncodePNG(&buf, grid, view.MaxIterations); err != nil {
		t.Fatalf("EncodePNG() error = %v", err)
	}

	img, err := png.Decode(&buf)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 4 || b.Dy() != 4 {
		t.Fatalf("bounds = %v, want 4x4", b)
	}

	// The origin never escapes.
	r, g, b, a := img.At(2, 2).RGBA()
	if r != 0 || g != 0 || b != 0 || a != 0xffff {
		t.Errorf("origin pixel = (%d,%d,%d,%d), want opaque black", r, g, b, a)
	}
}
