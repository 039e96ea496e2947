package visualization

import (
	"fmt"
	"image/color"
	"math"

	"github.com/lucasb-eyer/go-colorful"
	"gonum.org/v1/plot/palette"
)

// viridisStops are ten evenly spaced samples of matplotlib's viridis map.
var viridisStops = []string{
	"#440154", "#482777", "#3e4989", "#31688e", "#26828e",
	"#1f9e89", "#35b779", "#6ece58", "#b5de2b", "#fde725",
}

// ViridisHex exposes the stops for renderers that take CSS colors.
func ViridisHex() []string {
	out := make([]string, len(viridisStops))
	copy(out, viridisStops)
	return out
}

var viridisColors = func() []colorful.Color {
	cs := make([]colorful.Color, len(viridisStops))
	for i, hex := range viridisStops {
		c, err := colorful.Hex(hex)
		if err != nil {
			panic(fmt.Sprintf("bad viridis stop %q: %v", hex, err))
		}
		cs[i] = c
	}
	return cs
}()

// viridisAt maps t in [0, 1] onto the viridis ramp by Lab blending of the
// two nearest stops.
func viridisAt(t float64) color.Color {
	if math.IsNaN(t) || t <= 0 {
		return viridisColors[0].Clamped()
	}
	if t >= 1 {
		return viridisColors[len(viridisColors)-1].Clamped()
	}
	pos := t * float64(len(viridisColors)-1)
	i := int(pos)
	return viridisColors[i].BlendLab(viridisColors[i+1], pos-float64(i)).Clamped()
}

// Viridis returns an n-color viridis palette.
func Viridis(n int) palette.Palette {
	if n < 2 {
		n = 2
	}
	cs := make([]color.Color, n)
	for i := range cs {
		cs[i] = viridisAt(float64(i) / float64(n-1))
	}
	return colors(cs)
}

type colors []color.Color

func (c colors) Colors() []color.Color { return c }

// ViridisMap is a palette.ColorMap over [Min, Max], used for color bars.
type ViridisMap struct {
	min, max float64
	alpha    float64
}

// NewViridisMap returns a color map spanning [lo, hi].
func NewViridisMap(lo, hi float64) *ViridisMap {
	return &ViridisMap{min: lo, max: hi, alpha: 1}
}

func (m *ViridisMap) At(v float64) (color.Color, error) {
	switch {
	case math.IsNaN(v):
		return nil, palette.ErrNaN
	case v < m.min:
		return nil, palette.ErrUnderflow
	case v > m.max:
		return nil, palette.ErrOverflow
	}
	t := 0.0
	if m.max > m.min {
		t = (v - m.min) / (m.max - m.min)
	}
	c := viridisAt(t)
	if m.alpha >= 1 {
		return c, nil
	}
	r, g, b, _ := c.RGBA()
	a := m.alpha
	return color.NRGBA64{R: uint16(r), G: uint16(g), B: uint16(b), A: uint16(a * 0xffff)}, nil
}

func (m *ViridisMap) Max() float64       { return m.max }
func (m *ViridisMap) Min() float64       { return m.min }
func (m *ViridisMap) SetMax(v float64)   { m.max = v }
func (m *ViridisMap) SetMin(v float64)   { m.min = v }
func (m *ViridisMap) Alpha() float64     { return m.alpha }
func (m *ViridisMap) SetAlpha(a float64) { m.alpha = a }

func (m *ViridisMap) Palette(n int) palette.Palette { return Viridis(n) }
