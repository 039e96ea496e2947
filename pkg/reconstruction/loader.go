package reconstruction

import (
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/rwcarlsen/goexif/exif"
	exiftiff "github.com/rwcarlsen/goexif/tiff"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"

	apperrors "polcam/internal/errors"
	"polcam/internal/models"
)

// frameExtensions lists the file types LoadFrame can decode.
var frameExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".tif":  true,
	".tiff": true,
	".bmp":  true,
}

// metadataFields are the EXIF tags copied into the run manifest.
var metadataFields = []exif.FieldName{
	exif.Make,
	exif.Model,
	exif.Software,
	exif.DateTimeOriginal,
	exif.ExposureTime,
	exif.FNumber,
	exif.ISOSpeedRatings,
	exif.FocalLength,
}

// LoadFrame decodes an image file as a single-channel frame. Color images
// are reduced to luma; 16-bit grayscale keeps its full range.
func LoadFrame(path string) (models.RawFrame, error) {
	file, err := os.Open(path)
	if err != nil {
		return models.RawFrame{}, apperrors.NewIOError(fmt.Sprintf("failed to open frame %s", path), err)
	}
	defer file.Close()

	img, _, err := image.Decode(file)
	if err != nil {
		return models.RawFrame{}, apperrors.NewIOError(fmt.Sprintf("failed to decode frame %s", path), err)
	}

	field, depth := imageToField(img)
	return models.RawFrame{Field: field, Source: path, BitDepth: depth}, nil
}

// imageToField converts an image to raw gray levels (not rescaled).
func imageToField(img image.Image) (models.Field, int) {
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()
	f := models.NewField(height, width)

	switch src := img.(type) {
	case *image.Gray:
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				f.Set(y, x, float64(src.GrayAt(bounds.Min.X+x, bounds.Min.Y+y).Y))
			}
		}
		return f, 8

	case *image.Gray16:
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				f.Set(y, x, float64(src.Gray16At(bounds.Min.X+x, bounds.Min.Y+y).Y))
			}
		}
		return f, 16
	}

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			g := color.GrayModel.Convert(img.At(bounds.Min.X+x, bounds.Min.Y+y)).(color.Gray)
			f.Set(y, x, float64(g.Y))
		}
	}
	return f, 8
}

// ReadFrameMetadata returns the EXIF tags of interest from an image file.
// Files without EXIF yield an error, which callers treat as "no metadata".
func ReadFrameMetadata(path string) (map[string]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, apperrors.NewIOError(fmt.Sprintf("failed to open %s", path), err)
	}
	defer file.Close()

	ex, err := exif.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("exif parsing '%s': %w", path, err)
	}

	meta := make(map[string]string)
	for _, name := range metadataFields {
		tag, err := ex.Get(name)
		if err != nil {
			continue
		}
		switch tag.Format() {
		case exiftiff.StringVal:
			if s, err := tag.StringVal(); err == nil {
				meta[string(name)] = strings.TrimRight(s, "\x00 ")
			}
		case exiftiff.RatVal:
			if num, denom, err := tag.Rat2(0); err == nil {
				meta[string(name)] = fmt.Sprintf("%d/%d", num, denom)
			}
		default:
			meta[string(name)] = tag.String()
		}
	}
	return meta, nil
}

// DiscoverFrames lists the decodable images in dir, ordered by the number
// embedded in each file name and then by name.
func DiscoverFrames(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, apperrors.NewIOError(fmt.Sprintf("failed to read %s", dir), err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if frameExtensions[strings.ToLower(filepath.Ext(e.Name()))] {
			names = append(names, e.Name())
		}
	}
	if len(names) == 0 {
		return nil, apperrors.NewValidationError(fmt.Sprintf("no image files found in %s", dir), nil)
	}

	sort.SliceStable(names, func(i, j int) bool {
		ni, nj := extractNumber(names[i]), extractNumber(names[j])
		if ni != nj {
			return ni < nj
		}
		return names[i] < names[j]
	})

	paths := make([]string, len(names))
	for i, n := range names {
		paths[i] = filepath.Join(dir, n)
	}
	return paths, nil
}

// extractNumber returns the digits of a file name read as one integer, or
// zero when there are none.
func extractNumber(filename string) int {
	var digits strings.Builder
	for _, c := range filepath.Base(filename) {
		if c >= '0' && c <= '9' {
			digits.WriteRune(c)
		}
	}
	if digits.Len() == 0 {
		return 0
	}
	n, err := strconv.Atoi(digits.String())
	if err != nil {
		return 0
	}
	return n
}
