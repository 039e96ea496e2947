package polarization

import (
	"fmt"

	apperrors "polcam/internal/errors"
	"polcam/internal/models"
)

// Input is the orientation data for one run: either a SingleFrame or a
// DualFrame. The set of descriptors that can be derived follows from the
// concrete type, so no stage needs to check for the presence of S3.
type Input interface {
	Mode() models.Mode
	// Validate checks that every orientation image is non-empty and that
	// all of them share one shape.
	Validate() error
	base() SingleFrame
}

// SingleFrame holds the three orientation images of one raw frame.
type SingleFrame struct {
	I00, I45, I90 models.Field
}

// DualFrame adds the 45°/90° proxy image taken from a second raw frame.
type DualFrame struct {
	SingleFrame
	I4590 models.Field
}

// NewSingleFrame splits one raw frame.
func NewSingleFrame(frame models.Field) SingleFrame {
	q := SplitFrame(frame)
	return SingleFrame{I00: q.I00, I45: q.I45, I90: q.I90}
}

// NewDualFrame splits the main frame and takes I_45_90 from the second.
func NewDualFrame(main, second models.Field) DualFrame {
	return DualFrame{
		SingleFrame: NewSingleFrame(main),
		I4590:       SplitSecondFrame(second),
	}
}

func (s SingleFrame) Mode() models.Mode { return models.SingleFrame }
func (s SingleFrame) base() SingleFrame { return s }

func (s SingleFrame) Validate() error {
	named := []struct {
		name  string
		field models.Field
	}{
		{models.I00, s.I00},
		{models.I45, s.I45},
		{models.I90, s.I90},
	}
	for _, n := range named {
		if n.field.Empty() {
			return apperrors.NewShapeError(n.name,
				fmt.Sprintf("orientation image is empty (%s); raw frame must be at least 2x2", n.field))
		}
	}
	for _, n := range named[1:] {
		if !n.field.SameShape(s.I00) {
			return apperrors.NewShapeError(n.name,
				fmt.Sprintf("shape %s does not match %s shape %s", n.field, models.I00, s.I00))
		}
	}
	return nil
}

func (d DualFrame) Mode() models.Mode { return models.DualFrame }
func (d DualFrame) base() SingleFrame { return d.SingleFrame }

func (d DualFrame) Validate() error {
	if err := d.SingleFrame.Validate(); err != nil {
		return err
	}
	if d.I4590.Empty() {
		return apperrors.NewShapeError(models.I4590, "second frame yields an empty quadrant; it must be at least 2x2")
	}
	if !d.I4590.SameShape(d.I00) {
		return apperrors.NewShapeError(models.I4590,
			fmt.Sprintf("second frame quadrant %s does not match first frame quadrant %s", d.I4590, d.I00))
	}
	return nil
}
