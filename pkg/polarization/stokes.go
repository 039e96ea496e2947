package polarization

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	apperrors "polcam/internal/errors"
	"polcam/internal/models"
)

// Stokes is a set of Stokes fields: LinearStokes for single-frame data or
// FullStokes when S3 is available. The same types carry both raw and
// normalized values; see Normalize.
type Stokes interface {
	Mode() models.Mode
	linear() LinearStokes
}

// LinearStokes holds S0, S1 and S2.
type LinearStokes struct {
	S0, S1, S2 models.Field
}

// FullStokes adds the circular component S3.
type FullStokes struct {
	LinearStokes
	S3 models.Field
}

func (l LinearStokes) Mode() models.Mode    { return models.SingleFrame }
func (l LinearStokes) linear() LinearStokes { return l }
func (f FullStokes) Mode() models.Mode      { return models.DualFrame }
func (f FullStokes) linear() LinearStokes   { return f.LinearStokes }

// ComputeStokes combines validated orientation images into raw Stokes
// fields. Inputs must already share one shape (see Input.Validate).
func ComputeStokes(in Input) Stokes {
	switch v := in.(type) {
	case DualFrame:
		return ComputeFull(v)
	default:
		return ComputeLinear(in.base())
	}
}

// ComputeLinear evaluates
//
//	S0 = I00 + I90
//	S1 = I00 - I90
//	S2 = 2*I45 - I00 - I90
func ComputeLinear(in SingleFrame) LinearStokes {
	rows, cols := in.I00.Rows, in.I00.Cols

	s0 := models.NewField(rows, cols)
	floats.AddTo(s0.Data, in.I00.Data, in.I90.Data)

	s1 := models.NewField(rows, cols)
	floats.SubTo(s1.Data, in.I00.Data, in.I90.Data)

	return LinearStokes{S0: s0, S1: s1, S2: twiceMinusPair(in.I45, in.I00, in.I90)}
}

// ComputeFull evaluates the linear components plus S3 = 2*I45_90 - I00 - I90.
func ComputeFull(in DualFrame) FullStokes {
	return FullStokes{
		LinearStokes: ComputeLinear(in.SingleFrame),
		S3:           twiceMinusPair(in.I4590, in.I00, in.I90),
	}
}

// twiceMinusPair returns 2*a - b - c.
func twiceMinusPair(a, b, c models.Field) models.Field {
	out := models.NewField(a.Rows, a.Cols)
	floats.ScaleTo(out.Data, 2, a.Data)
	floats.Sub(out.Data, b.Data)
	floats.Sub(out.Data, c.Data)
	return out
}

// Normalize divides every component by the scalar maximum of S0 over the
// whole field, so that all components share one scale. A non-positive (or
// NaN) maximum has no meaningful normalization and is reported as an error
// rather than producing Inf/NaN fields.
func Normalize(s Stokes) (Stokes, error) {
	lin := s.linear()
	if lin.S0.Empty() {
		return nil, apperrors.NewShapeError(models.S0, "cannot normalize an empty field")
	}

	scale := lin.S0.Max()
	if scale <= 0 || math.IsNaN(scale) {
		return nil, apperrors.NewDegenerateNormalizationError(models.S0,
			fmt.Sprintf("max(S0) = %g; input frame has no signal in the 0° and 90° quadrants", scale))
	}

	div := func(v float64) float64 { return v / scale }
	norm := LinearStokes{
		S0: lin.S0.Map(div),
		S1: lin.S1.Map(div),
		S2: lin.S2.Map(div),
	}

	if full, ok := s.(FullStokes); ok {
		return FullStokes{LinearStokes: norm, S3: full.S3.Map(div)}, nil
	}
	return norm, nil
}

// NormalizationScale returns max(S0), the divisor used by Normalize.
func NormalizationScale(s Stokes) float64 {
	lin := s.linear()
	if lin.S0.Empty() {
		return 0
	}
	return lin.S0.Max()
}
