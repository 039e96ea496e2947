package visualization

import (
	"fmt"
	"math"
	"os"
	"strconv"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	apperrors "polcam/internal/errors"
	"polcam/internal/models"
	"polcam/pkg/polarization"
)

// paletteSize is the number of colors in the heatmap ramp.
const paletteSize = 256

// colorBarWidth is the strip reserved on the right for the color bar.
const colorBarWidth = 1.1 * vg.Inch

// fieldGrid adapts a Field to plotter.GridXYZ. Rows are flipped so that row
// 0 lands at the top of the plot, like an image.
type fieldGrid struct {
	f models.Field
}

func (g fieldGrid) Dims() (c, r int)   { return g.f.Cols, g.f.Rows }
func (g fieldGrid) Z(c, r int) float64 { return g.f.At(g.f.Rows-1-r, c) }
func (g fieldGrid) X(c int) float64    { return float64(c) }
func (g fieldGrid) Y(r int) float64    { return float64(r) }

// rowTicker labels the flipped Y axis with image row numbers.
type rowTicker struct {
	rows int
}

func (t rowTicker) Ticks(min, max float64) []plot.Tick {
	ticks := plot.DefaultTicks{}.Ticks(min, max)
	for i := range ticks {
		if ticks[i].Label == "" {
			continue
		}
		ticks[i].Label = strconv.FormatFloat(float64(t.rows-1)-ticks[i].Value, 'g', -1, 64)
	}
	return ticks
}

// ColorRange returns the range a descriptor is drawn with: the fixed display
// range for angle descriptors, the data range otherwise. A flat field gets a
// unit-wide range so the palette stays well defined.
func ColorRange(name string, f models.Field) (lo, hi float64) {
	if l, h, ok := polarization.DisplayRange(name); ok {
		return l, h
	}
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, v := range f.Data {
		if math.IsNaN(v) {
			continue
		}
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if math.IsInf(lo, 1) {
		return 0, 1
	}
	if hi <= lo {
		return lo - 0.5, lo + 0.5
	}
	return lo, hi
}

// SaveHeatmap renders a descriptor as a viridis heatmap with a color bar and
// writes it as PNG. The title is the descriptor's display name.
func SaveHeatmap(path, name string, f models.Field, width, height vg.Length) error {
	if f.Empty() {
		return apperrors.NewShapeError(name, fmt.Sprintf("cannot render an empty %s field", f))
	}
	if width <= colorBarWidth || height <= 0 {
		return apperrors.NewValidationError(fmt.Sprintf("heatmap size %vx%v is too small", width, height), nil)
	}

	lo, hi := ColorRange(name, f)
	field := polarization.DisplayClamp(name, f)

	hm := plotter.NewHeatMap(fieldGrid{f: field}, Viridis(paletteSize))
	hm.Min, hm.Max = lo, hi

	p := plot.New()
	p.Title.Text = models.DisplayName(name)
	p.X.Label.Text = "column"
	p.Y.Label.Text = "row"
	p.Y.Tick.Marker = rowTicker{rows: f.Rows}
	p.Add(hm)

	bar := plot.New()
	bar.Title.Text = name
	bar.HideX()
	bar.X.Padding = 0
	bar.Add(&plotter.ColorBar{ColorMap: NewViridisMap(lo, hi), Vertical: true})

	img := vgimg.New(width, height)
	dc := draw.New(img)
	p.Draw(draw.Crop(dc, 0, -colorBarWidth, 0, 0))
	bar.Draw(draw.Crop(dc, width-colorBarWidth, 0, 0, 0))

	return writePNG(path, img)
}

func writePNG(path string, img *vgimg.Canvas) error {
	file, err := os.Create(path)
	if err != nil {
		return apperrors.NewIOError(fmt.Sprintf("failed to create %s", path), err)
	}
	defer file.Close()

	if _, err := (vgimg.PngCanvas{Canvas: img}).WriteTo(file); err != nil {
		return apperrors.NewIOError(fmt.Sprintf("failed to write %s", path), err)
	}
	return nil
}
