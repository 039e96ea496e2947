package visualization

import (
	"fmt"
	"image/color"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	apperrors "polcam/internal/errors"
	"polcam/pkg/ellipse"
)

// ellipseColor is matplotlib's default first line color.
var ellipseColor = color.RGBA{R: 0x1f, G: 0x77, B: 0xb4, A: 0xff}

// closedXYs returns a curve's vertices with the first repeated at the end.
func closedXYs(c ellipse.Curve) plotter.XYs {
	pts := make(plotter.XYs, 0, len(c.Points)+1)
	for _, p := range c.Points {
		pts = append(pts, plotter.XY{X: p.X, Y: p.Y})
	}
	if len(c.Points) > 0 {
		pts = append(pts, pts[0])
	}
	return pts
}

// SaveEllipsePlot draws every curve as a closed line and writes the figure
// as PNG.
func SaveEllipsePlot(path string, curves []ellipse.Curve, width, height vg.Length) error {
	if width <= 0 || height <= 0 {
		return apperrors.NewValidationError(fmt.Sprintf("ellipse plot size %vx%v is invalid", width, height), nil)
	}

	p := plot.New()
	p.Title.Text = "Polarization Ellipses"
	p.X.Label.Text = "X (column)"
	p.Y.Label.Text = "Y (row)"
	p.Add(plotter.NewGrid())

	for _, c := range curves {
		line, err := plotter.NewLine(closedXYs(c))
		if err != nil {
			return apperrors.NewNumericalError("", fmt.Sprintf("ellipse at (%d, %d) cannot be drawn: %v", c.Row, c.Col, err))
		}
		line.Color = ellipseColor
		line.Width = vg.Points(0.75)
		p.Add(line)
	}

	if len(curves) > 0 {
		minX, minY, maxX, maxY := ellipse.Bounds(curves)
		p.X.Min, p.X.Max = minX-1, maxX+1
		p.Y.Min, p.Y.Max = minY-1, maxY+1
	}

	img := vgimg.New(width, height)
	p.Draw(draw.New(img))
	return writePNG(path, img)
}
