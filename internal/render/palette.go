package render

import (
	"math"

	"github.com/wcharczuk/go-chart/v2/drawing"
)

// Palette is the series colour cycle. Pie slices use it in order; other
// charts use the first colour.
var Palette = []drawing.Color{
	hsl(175, 0.80, 0.50),
	hsl(190, 0.80, 0.45),
	hsl(200, 0.70, 0.50),
	hsl(220, 0.70, 0.55),
	hsl(260, 0.60, 0.55),
	hsl(300, 0.60, 0.50),
}

// PaletteColor returns the colour for the i-th series or slice.
func PaletteColor(i int) drawing.Color {
	return Palette[i%len(Palette)]
}

// hsl converts hue (degrees), saturation and lightness (0..1) to an opaque
// colour.
func hsl(h, s, l float64) drawing.Color {
	c := (1 - math.Abs(2*l-1)) * s
	hp := math.Mod(h, 360) / 60
	x := c * (1 - math.Abs(math.Mod(hp, 2)-1))
	var r, g, b float64
	switch {
	case hp < 1:
		r, g, b = c, x, 0
	case hp < 2:
		r, g, b = x, c, 0
	case hp < 3:
		r, g, b = 0, c, x
	case hp < 4:
		r, g, b = 0, x, c
	case hp < 5:
		r, g, b = x, 0, c
	default:
		r, g, b = c, 0, x
	}
	m := l - c/2
	return drawing.Color{
		R: uint8(math.Round((r + m) * 255)),
		G: uint8(math.Round((g + m) * 255)),
		B: uint8(math.Round((b + m) * 255)),
		A: 255,
	}
}
