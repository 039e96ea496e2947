package polarization

import (
	"fmt"
	"math"

	apperrors "polcam/internal/errors"
	"polcam/internal/models"
)

// Epsilon keeps DOP and EA finite where S0 is zero.
const Epsilon = 1e-10

// Descriptors is the set of polarization-ellipse fields derived from one
// Stokes set: LinearDescriptors from LinearStokes, FullDescriptors from
// FullStokes.
type Descriptors interface {
	Mode() models.Mode
	// Fields returns every descriptor keyed by its output name.
	Fields() map[string]models.Field
	linear() LinearDescriptors
}

// LinearDescriptors are available from single-frame data.
type LinearDescriptors struct {
	OA      models.Field // orientation angle, radians, [-π/2, π/2]
	ExAmptd models.Field
	EyAmptd models.Field
}

// FullDescriptors need S3 and therefore a second frame.
type FullDescriptors struct {
	LinearDescriptors
	DOP models.Field
	EA  models.Field // ellipticity angle, radians, [-π/4, π/4]
	PD  models.Field
}

func (l LinearDescriptors) Mode() models.Mode         { return models.SingleFrame }
func (l LinearDescriptors) linear() LinearDescriptors { return l }
func (l LinearDescriptors) Fields() map[string]models.Field {
	return map[string]models.Field{
		models.OA:      l.OA,
		models.ExAmptd: l.ExAmptd,
		models.EyAmptd: l.EyAmptd,
	}
}

func (f FullDescriptors) Mode() models.Mode         { return models.DualFrame }
func (f FullDescriptors) linear() LinearDescriptors { return f.LinearDescriptors }
func (f FullDescriptors) Fields() map[string]models.Field {
	out := f.LinearDescriptors.Fields()
	out[models.DOP] = f.DOP
	out[models.EA] = f.EA
	out[models.PD] = f.PD
	return out
}

// Derive computes descriptors from raw (unnormalized) Stokes fields. The
// returned warnings describe samples that were clamped to stay in domain;
// they never invalidate the result.
func Derive(s Stokes) (Descriptors, []*apperrors.AppError) {
	switch v := s.(type) {
	case FullStokes:
		return DeriveFull(v)
	default:
		return DeriveLinear(s.linear())
	}
}

// DeriveLinear computes OA = atan2(S2, S1)/2 and the field amplitudes
// Ex = sqrt((S0+S1)/2), Ey = sqrt((S0-S1)/2). Where S1 = S2 = 0, OA is 0.
// Negative radicands are clamped to zero and counted in a warning.
func DeriveLinear(s LinearStokes) (LinearDescriptors, []*apperrors.AppError) {
	rows, cols := s.S0.Rows, s.S0.Cols
	oa := models.NewField(rows, cols)
	ex := models.NewField(rows, cols)
	ey := models.NewField(rows, cols)

	var exClamped, eyClamped int
	for i := range s.S0.Data {
		s0, s1, s2 := s.S0.Data[i], s.S1.Data[i], s.S2.Data[i]
		oa.Data[i] = math.Atan2(s2, s1) / 2

		var clamped bool
		ex.Data[i], clamped = clampedSqrt((s0 + s1) / 2)
		if clamped {
			exClamped++
		}
		ey.Data[i], clamped = clampedSqrt((s0 - s1) / 2)
		if clamped {
			eyClamped++
		}
	}

	var warnings []*apperrors.AppError
	if exClamped > 0 {
		warnings = append(warnings, radicandWarning(models.ExAmptd, exClamped, len(s.S0.Data)))
	}
	if eyClamped > 0 {
		warnings = append(warnings, radicandWarning(models.EyAmptd, eyClamped, len(s.S0.Data)))
	}

	return LinearDescriptors{OA: oa, ExAmptd: ex, EyAmptd: ey}, warnings
}

// DeriveFull adds, on top of DeriveLinear,
//
//	DOP = sqrt((S1² + S2² + S3²) / (S0² + ε))
//	EA  = asin(clip(S3 / (S0 + ε), -1, 1)) / 2
//	PD  = atan2(S3, S2) / 2
func DeriveFull(s FullStokes) (FullDescriptors, []*apperrors.AppError) {
	lin, warnings := DeriveLinear(s.LinearStokes)

	rows, cols := s.S0.Rows, s.S0.Cols
	dop := models.NewField(rows, cols)
	ea := models.NewField(rows, cols)
	pd := models.NewField(rows, cols)

	for i := range s.S0.Data {
		s0, s1, s2, s3 := s.S0.Data[i], s.S1.Data[i], s.S2.Data[i], s.S3.Data[i]

		dop.Data[i] = math.Sqrt((s1*s1 + s2*s2 + s3*s3) / (s0*s0 + Epsilon))
		ea.Data[i] = math.Asin(clip(s3/(s0+Epsilon), -1, 1)) / 2
		pd.Data[i] = math.Atan2(s3, s2) / 2
	}

	return FullDescriptors{LinearDescriptors: lin, DOP: dop, EA: ea, PD: pd}, warnings
}

// DisplayRange returns the fixed heatmap range for angle descriptors:
// [0, π] for OA and [-π/4, π/4] for EA. ok is false for every other
// descriptor, whose range follows the data.
func DisplayRange(name string) (lo, hi float64, ok bool) {
	switch name {
	case models.OA:
		return 0, math.Pi, true
	case models.EA:
		return -math.Pi / 4, math.Pi / 4, true
	}
	return 0, 0, false
}

// DisplayClamp returns the copy of a descriptor used for heatmap export.
// OA and EA are clamped to their display range; other fields are returned
// unchanged. The geometry step must use the unclamped field.
func DisplayClamp(name string, f models.Field) models.Field {
	lo, hi, ok := DisplayRange(name)
	if !ok {
		return f
	}
	return f.Map(func(v float64) float64 { return clip(v, lo, hi) })
}

// clip limits v to [lo, hi]. The 0/0 case (NaN) maps to zero so EA stays
// defined where S0 = -ε.
func clip(v, lo, hi float64) float64 {
	switch {
	case math.IsNaN(v):
		return 0
	case v < lo:
		return lo
	case v > hi:
		return hi
	}
	return v
}

func clampedSqrt(v float64) (float64, bool) {
	if v < 0 {
		return 0, true
	}
	return math.Sqrt(v), false
}

func radicandWarning(name string, count, total int) *apperrors.AppError {
	return apperrors.NewNumericalError(name,
		fmt.Sprintf("%d of %d samples had a negative radicand and were clamped to 0", count, total))
}
