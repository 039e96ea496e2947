// Package ellipse samples the polarization-ellipse field on a sparse grid
// and turns each sample into a closed polyline for plotting.
package ellipse

import (
	"fmt"
	"math"

	apperrors "polcam/internal/errors"
	"polcam/internal/models"
)

const (
	DefaultStride = 20
	DefaultPoints = 50
)

// Params controls sampling density.
type Params struct {
	// Stride is the distance, in pixels, between sampled grid points
	Stride int

	// Points is the number of samples along each curve
	Points int
}

// DefaultParams returns a stride of 20 pixels and 50 points per curve.
func DefaultParams() Params {
	return Params{Stride: DefaultStride, Points: DefaultPoints}
}

// Point is a curve vertex in raster coordinates: X is the column axis and
// Y the row axis.
type Point struct {
	X, Y float64
}

// Curve is one polarization ellipse anchored at a grid location.
type Curve struct {
	Row, Col int

	// Major and Minor are the semi-axis lengths; Minor is signed by
	// handedness
	Major, Minor float64

	// Theta is the rotation of the major axis, radians
	Theta float64

	Points []Point
}

// Build samples OA, EA and the amplitude pair every Params.Stride pixels
// along both axes, row-major. At each sample
//
//	major = sqrt(Ex² + Ey²)
//	minor = major * tan(clamp(EA, -π/2, π/2))
//
// and the axis-aligned ellipse (major cos φ, minor sin φ), φ = 2πk/Points,
// is rotated by OA and centred on (x = col, y = row).
func Build(p Params, oa, ea, ex, ey models.Field) ([]Curve, error) {
	if p.Stride <= 0 {
		return nil, apperrors.NewValidationError(fmt.Sprintf("ellipse stride must be positive, got %d", p.Stride), nil)
	}
	if p.Points <= 0 {
		return nil, apperrors.NewValidationError(fmt.Sprintf("ellipse points must be positive, got %d", p.Points), nil)
	}
	for _, f := range []struct {
		name  string
		field models.Field
	}{{models.EA, ea}, {models.ExAmptd, ex}, {models.EyAmptd, ey}} {
		if !f.field.SameShape(oa) {
			return nil, apperrors.NewShapeError(f.name,
				fmt.Sprintf("shape %s does not match %s shape %s", f.field, models.OA, oa))
		}
	}

	cos, sin := unitCircle(p.Points)
	curves := make([]Curve, 0, gridCount(oa.Rows, p.Stride)*gridCount(oa.Cols, p.Stride))

	for i := 0; i < oa.Rows; i += p.Stride {
		for j := 0; j < oa.Cols; j += p.Stride {
			theta := oa.At(i, j)
			major := math.Hypot(ex.At(i, j), ey.At(i, j))
			minor := major * math.Tan(clampEA(ea.At(i, j)))

			curves = append(curves, trace(i, j, major, minor, theta, cos, sin))
		}
	}

	return curves, nil
}

func trace(row, col int, major, minor, theta float64, cos, sin []float64) Curve {
	ct, st := math.Cos(theta), math.Sin(theta)
	pts := make([]Point, len(cos))
	for k := range cos {
		a, b := major*cos[k], minor*sin[k]
		pts[k] = Point{
			X: a*ct - b*st + float64(col),
			Y: a*st + b*ct + float64(row),
		}
	}
	return Curve{Row: row, Col: col, Major: major, Minor: minor, Theta: theta, Points: pts}
}

// unitCircle precomputes cos φ and sin φ for φ = 2πk/n, k = 0..n-1.
func unitCircle(n int) ([]float64, []float64) {
	cos := make([]float64, n)
	sin := make([]float64, n)
	for k := 0; k < n; k++ {
		phi := 2 * math.Pi * float64(k) / float64(n)
		cos[k], sin[k] = math.Cos(phi), math.Sin(phi)
	}
	return cos, sin
}

// clampEA limits EA to [-π/2, π/2] before it enters tan.
func clampEA(v float64) float64 {
	return math.Max(-math.Pi/2, math.Min(math.Pi/2, v))
}

func gridCount(n, stride int) int {
	if n <= 0 {
		return 0
	}
	return (n + stride - 1) / stride
}

// Bounds returns the extent of all curves, for fixing plot axes.
func Bounds(curves []Curve) (minX, minY, maxX, maxY float64) {
	minX, minY = math.Inf(1), math.Inf(1)
	maxX, maxY = math.Inf(-1), math.Inf(-1)
	for _, c := range curves {
		for _, pt := range c.Points {
			minX, maxX = math.Min(minX, pt.X), math.Max(maxX, pt.X)
			minY, maxY = math.Min(minY, pt.Y), math.Max(maxY, pt.Y)
		}
	}
	return minX, minY, maxX, maxY
}
