package polarization

import (
	apperrors "polcam/internal/errors"
	"polcam/internal/models"
)

// Set is everything one run derives from its input: the orientation
// images, the normalized Stokes fields and the descriptors.
type Set struct {
	Input       Input
	Stokes      Stokes // normalized by Scale
	Scale       float64
	Descriptors Descriptors
	Warnings    []*apperrors.AppError
}

// Process validates the input and runs split output through Stokes
// computation, normalization and descriptor derivation. Raw Stokes fields
// are dropped once the descriptors exist.
func Process(in Input) (*Set, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	raw := ComputeStokes(in)
	norm, err := Normalize(raw)
	if err != nil {
		return nil, err
	}

	desc, warnings := Derive(raw)

	return &Set{
		Input:       in,
		Stokes:      norm,
		Scale:       NormalizationScale(raw),
		Descriptors: desc,
		Warnings:    warnings,
	}, nil
}

// Mode reports whether the set came from one or two frames.
func (s *Set) Mode() models.Mode { return s.Input.Mode() }

// Fields returns every output field keyed by descriptor name. The key set
// is exactly models.DescriptorNames(s.Mode()).
func (s *Set) Fields() map[string]models.Field {
	base := s.Input.base()
	lin := s.Stokes.linear()

	out := map[string]models.Field{
		models.I00: base.I00,
		models.I45: base.I45,
		models.I90: base.I90,
		models.S0:  lin.S0,
		models.S1:  lin.S1,
		models.S2:  lin.S2,
	}
	if dual, ok := s.Input.(DualFrame); ok {
		out[models.I4590] = dual.I4590
	}
	if full, ok := s.Stokes.(FullStokes); ok {
		out[models.S3] = full.S3
	}
	for name, f := range s.Descriptors.Fields() {
		out[name] = f
	}
	return out
}

// EllipseInputs returns OA, EA and the amplitude pair when the set carries
// ellipticity, i.e. only for dual-frame data.
func (s *Set) EllipseInputs() (oa, ea, ex, ey models.Field, ok bool) {
	full, ok := s.Descriptors.(FullDescriptors)
	if !ok {
		return models.Field{}, models.Field{}, models.Field{}, models.Field{}, false
	}
	return full.OA, full.EA, full.ExAmptd, full.EyAmptd, true
}
