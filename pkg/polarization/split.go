// Package polarization turns raw micro-polarizer frames into Stokes fields
// and the polarization-ellipse descriptors derived from them.
package polarization

import (
	"polcam/internal/models"
)

// Quadrants holds the orientation images cut from one raw frame. The
// top-right quadrant carries no polarizer in this layout and is discarded.
type Quadrants struct {
	I00 models.Field // top-left
	I45 models.Field // bottom-left
	I90 models.Field // bottom-right
}

// SplitFrame cuts a raw frame into its three orientation images. Each is
// rows/2 × cols/2; with odd dimensions the last row or column is dropped.
// A frame smaller than 2×2 yields empty fields, which callers must reject.
func SplitFrame(frame models.Field) Quadrants {
	halfRows, halfCols := frame.Rows/2, frame.Cols/2

	return Quadrants{
		I00: quadrant(frame, models.TopLeft, halfRows, halfCols),
		I45: quadrant(frame, models.BottomLeft, halfRows, halfCols),
		I90: quadrant(frame, models.BottomRight, halfRows, halfCols),
	}
}

// SplitSecondFrame extracts the 45°/90° proxy image from the second frame
// of a dual-frame acquisition, using the same geometry as SplitFrame.
func SplitSecondFrame(frame models.Field) models.Field {
	return quadrant(frame, models.BottomLeft, frame.Rows/2, frame.Cols/2)
}

func quadrant(frame models.Field, q models.Quadrant, halfRows, halfCols int) models.Field {
	r0 := (int(q) / 2) * halfRows
	c0 := (int(q) % 2) * halfCols
	return frame.Block(r0, c0, halfRows, halfCols)
}
