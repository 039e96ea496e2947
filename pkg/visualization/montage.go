package visualization

import (
	"fmt"
	"math"

	"github.com/fogleman/gg"

	apperrors "polcam/internal/errors"
)

const (
	// MontageCell is the side of the square cell each panel is fitted into
	MontageCell = 400

	montageTitle  = 24
	montageMargin = 12
)

// SaveMontage lays out the named descriptors on a two-column grid, each
// panel scaled to fit its cell and titled with the descriptor name, and
// writes the result as PNG.
func (v *Viewer) SaveMontage(path string, names []string) error {
	if len(names) == 0 {
		return apperrors.NewValidationError("montage needs at least one panel", nil)
	}

	cols := 2
	if len(names) == 1 {
		cols = 1
	}
	rows := (len(names) + cols - 1) / cols

	cellW := MontageCell + 2*montageMargin
	cellH := MontageCell + montageTitle + 2*montageMargin
	dc := gg.NewContext(cols*cellW, rows*cellH)
	dc.SetRGB(1, 1, 1)
	dc.Clear()

	for i, name := range names {
		img, err := v.ExtractImage(name)
		if err != nil {
			return fmt.Errorf("montage panel %s: %w", name, err)
		}

		x0 := float64((i%cols)*cellW + montageMargin)
		y0 := float64((i/cols)*cellH + montageMargin)

		dc.SetRGB(0, 0, 0)
		dc.DrawStringAnchored(name, x0+MontageCell/2, y0+montageTitle/2, 0.5, 0.5)

		b := img.Bounds()
		scale := math.Min(float64(MontageCell)/float64(b.Dx()), float64(MontageCell)/float64(b.Dy()))
		offX := (MontageCell - scale*float64(b.Dx())) / 2
		offY := (MontageCell - scale*float64(b.Dy())) / 2

		dc.Push()
		dc.Translate(x0+offX, y0+montageTitle+offY)
		dc.Scale(scale, scale)
		dc.DrawImage(img, 0, 0)
		dc.Pop()
	}

	if err := dc.SavePNG(path); err != nil {
		return apperrors.NewIOError(fmt.Sprintf("failed to write %s", path), err)
	}
	return nil
}
