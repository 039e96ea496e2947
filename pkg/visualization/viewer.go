package visualization

import (
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"

	apperrors "polcam/internal/errors"
	"polcam/internal/models"
	"polcam/pkg/polarization"
)

// Viewer holds one run's descriptor fields and turns them into images.
type Viewer struct {
	// fields maps descriptor names to their rasters
	fields map[string]models.Field

	// names is the display order
	names []string
}

// NewViewer creates a viewer over a run's fields. Names without a field are
// dropped.
func NewViewer(fields map[string]models.Field, names []string) *Viewer {
	kept := make([]string, 0, len(names))
	for _, n := range names {
		if _, ok := fields[n]; ok {
			kept = append(kept, n)
		}
	}
	return &Viewer{fields: fields, names: kept}
}

// Names returns the viewable descriptors in display order.
func (v *Viewer) Names() []string {
	out := make([]string, len(v.names))
	copy(out, v.names)
	return out
}

// Field returns a descriptor's raster.
func (v *Viewer) Field(name string) (models.Field, error) {
	f, ok := v.fields[name]
	if !ok {
		return models.Field{}, apperrors.NewValidationError(fmt.Sprintf("unknown descriptor %q", name), nil)
	}
	return f, nil
}

// ExtractImage maps a descriptor onto the viridis ramp at one pixel per
// sample, using the same color range as the heatmaps.
func (v *Viewer) ExtractImage(name string) (image.Image, error) {
	f, err := v.Field(name)
	if err != nil {
		return nil, err
	}
	if f.Empty() {
		return nil, apperrors.NewShapeError(name, fmt.Sprintf("cannot render an empty %s field", f))
	}

	lo, hi := ColorRange(name, f)
	f = polarization.DisplayClamp(name, f)

	img := image.NewRGBA(image.Rect(0, 0, f.Cols, f.Rows))
	for r := 0; r < f.Rows; r++ {
		for c := 0; c < f.Cols; c++ {
			img.Set(c, r, viridisAt((f.At(r, c)-lo)/(hi-lo)))
		}
	}
	return img, nil
}

// SaveImage writes an extracted image as PNG.
func (v *Viewer) SaveImage(img image.Image, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return apperrors.NewIOError(fmt.Sprintf("failed to create %s", filename), err)
	}
	defer file.Close()

	if err := png.Encode(file, img); err != nil {
		return apperrors.NewIOError(fmt.Sprintf("failed to encode %s", filename), err)
	}
	return nil
}

// SaveImageSequence writes one raw-resolution image per descriptor into
// outputDir, named <descriptor>_raw.png.
func (v *Viewer) SaveImageSequence(outputDir string) error {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return apperrors.NewIOError(fmt.Sprintf("failed to create %s", outputDir), err)
	}

	for _, name := range v.names {
		img, err := v.ExtractImage(name)
		if err != nil {
			return err
		}
		if err := v.SaveImage(img, filepath.Join(outputDir, name+"_raw.png")); err != nil {
			return err
		}
	}
	return nil
}
