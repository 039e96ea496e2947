package reconstruction

import (
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	apperrors "polcam/internal/errors"
	"polcam/internal/models"
	"polcam/pkg/config"
	"polcam/pkg/export"
)

// createTestImage creates an 8-bit grayscale image with the given pattern
func createTestImage(width, height int, pattern func(x, y int) uint8) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetGray(x, y, color.Gray{Y: pattern(x, y)})
		}
	}
	return img
}

// writePNG saves an image into dir and returns its path
func writePNG(t *testing.T, dir, name string, img image.Image) string {
	t.Helper()
	path := filepath.Join(dir, name)
	file, err := os.Create(path)
	if err != nil {
		t.Fatalf("Failed to create %s: %v", path, err)
	}
	defer file.Close()
	if err := png.Encode(file, img); err != nil {
		t.Fatalf("Failed to encode %s: %v", path, err)
	}
	return path
}

func constant(v uint8) func(x, y int) uint8 {
	return func(x, y int) uint8 { return v }
}

// lightConfig keeps file output but skips the slow renderers
func lightConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Output.Heatmaps = false
	cfg.Output.Interactive = false
	cfg.Output.Montage = false
	return cfg
}

func TestResolveMode(t *testing.T) {
	tests := []struct {
		name    string
		params  Params
		want    models.Mode
		wantErr bool
	}{
		{"inferred single", Params{MainPath: "a.png"}, models.SingleFrame, false},
		{"inferred dual", Params{MainPath: "a.png", SecondPath: "b.png"}, models.DualFrame, false},
		{"forced single", Params{MainPath: "a.png", Mode: "single"}, models.SingleFrame, false},
		{"forced dual", Params{MainPath: "a.png", SecondPath: "b.png", Mode: "dual"}, models.DualFrame, false},
		{"dual without second", Params{MainPath: "a.png", Mode: "dual"}, 0, true},
		{"single with second", Params{MainPath: "a.png", SecondPath: "b.png", Mode: "single"}, 0, true},
		{"unknown mode", Params{MainPath: "a.png", Mode: "triple"}, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolveMode(&tt.params)
			if tt.wantErr {
				if err == nil {
					t.Fatal("Expected an error")
				}
				if !apperrors.IsType(err, apperrors.ErrorTypeValidation) {
					t.Errorf("Expected a validation error, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestLoadFrameGray8(t *testing.T) {
	dir := t.TempDir()
	path := writePNG(t, dir, "frame.png", createTestImage(6, 4, func(x, y int) uint8 { return uint8(x + 10*y) }))

	frame, err := LoadFrame(path)
	if err != nil {
		t.Fatalf("LoadFrame failed: %v", err)
	}
	if frame.Rows != 4 || frame.Cols != 6 {
		t.Fatalf("Expected 4x6 frame, got %s", frame.Field)
	}
	if frame.BitDepth != 8 {
		t.Errorf("Expected bit depth 8, got %d", frame.BitDepth)
	}
	if got := frame.At(3, 5); got != 35 {
		t.Errorf("Expected pixel (3,5) = 35, got %f", got)
	}
	if frame.Source != path {
		t.Errorf("Expected source %s, got %s", path, frame.Source)
	}
}

func TestLoadFrameGray16(t *testing.T) {
	dir := t.TempDir()
	img := image.NewGray16(image.Rect(0, 0, 4, 4))
	img.SetGray16(1, 2, color.Gray16{Y: 40000})
	path := writePNG(t, dir, "frame16.png", img)

	frame, err := LoadFrame(path)
	if err != nil {
		t.Fatalf("LoadFrame failed: %v", err)
	}
	if frame.BitDepth != 16 {
		t.Errorf("Expected bit depth 16, got %d", frame.BitDepth)
	}
	if got := frame.At(2, 1); got != 40000 {
		t.Errorf("Expected 16-bit value 40000, got %f", got)
	}
}

func TestLoadFrameColorUsesLuma(t *testing.T) {
	dir := t.TempDir()
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	for y := 0; y < 2; y++ {
		for x := 0; x < 2; x++ {
			img.Set(x, y, color.RGBA{R: 90, G: 90, B: 90, A: 255})
		}
	}
	path := writePNG(t, dir, "color.png", img)

	frame, err := LoadFrame(path)
	if err != nil {
		t.Fatalf("LoadFrame failed: %v", err)
	}
	if got := frame.At(0, 0); got != 90 {
		t.Errorf("Expected gray level 90, got %f", got)
	}
}

func TestLoadFrameMissingFile(t *testing.T) {
	_, err := LoadFrame(filepath.Join(t.TempDir(), "missing.png"))
	if !apperrors.IsType(err, apperrors.ErrorTypeIO) {
		t.Errorf("Expected an io error, got %v", err)
	}
}

func TestReadFrameMetadataWithoutExif(t *testing.T) {
	dir := t.TempDir()
	path := writePNG(t, dir, "plain.png", createTestImage(2, 2, constant(1)))
	if _, err := ReadFrameMetadata(path); err == nil {
		t.Error("Expected an error for a file without EXIF")
	}
}

func TestExtractNumber(t *testing.T) {
	tests := []struct {
		filename string
		want     int
	}{
		{"frame_12.png", 12},
		{"cap3_b.tif", 3},
		{"no_digits.png", 0},
		{"/some/dir/007.bmp", 7},
	}
	for _, tt := range tests {
		if got := extractNumber(tt.filename); got != tt.want {
			t.Errorf("extractNumber(%q): expected %d, got %d", tt.filename, tt.want, got)
		}
	}
}

func TestDiscoverFrames(t *testing.T) {
	dir := t.TempDir()
	img := createTestImage(2, 2, constant(1))
	for _, name := range []string{"frame_10.png", "frame_2.png", "frame_1.png"} {
		writePNG(t, dir, name, img)
	}
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("skip me"), 0644); err != nil {
		t.Fatalf("Failed to write notes: %v", err)
	}

	paths, err := DiscoverFrames(dir)
	if err != nil {
		t.Fatalf("DiscoverFrames failed: %v", err)
	}
	want := []string{"frame_1.png", "frame_2.png", "frame_10.png"}
	if len(paths) != len(want) {
		t.Fatalf("Expected %d frames, got %d: %v", len(want), len(paths), paths)
	}
	for i, w := range want {
		if filepath.Base(paths[i]) != w {
			t.Errorf("Position %d: expected %s, got %s", i, w, filepath.Base(paths[i]))
		}
	}

	if _, err := DiscoverFrames(t.TempDir()); err == nil {
		t.Error("Expected an error for a directory without images")
	}
}

func TestRunDir(t *testing.T) {
	if got := RunDir("outputs", "/data/capture_01.png"); got != filepath.Join("outputs", "capture_01") {
		t.Errorf("Expected outputs/capture_01, got %s", got)
	}
}

func TestProcessFramesConstantScenario(t *testing.T) {
	frame := models.RawFrame{Field: models.NewField(8, 8)}
	for i := range frame.Data {
		frame.Data[i] = 100
	}

	r := NewReconstructor(&Params{})
	res, err := r.ProcessFrames(context.Background(), frame)
	if err != nil {
		t.Fatalf("ProcessFrames failed: %v", err)
	}

	if res.Mode != models.SingleFrame {
		t.Errorf("Expected single mode, got %v", res.Mode)
	}
	if res.Scale != 200 {
		t.Errorf("Expected scale 200, got %f", res.Scale)
	}
	if len(res.Ellipses) != 0 {
		t.Errorf("Expected no ellipses in single mode, got %d", len(res.Ellipses))
	}
	for _, name := range res.Names {
		if _, ok := res.Fields[name]; !ok {
			t.Errorf("Missing field %s", name)
		}
		if _, ok := res.Stats[name]; !ok {
			t.Errorf("Missing stats for %s", name)
		}
	}
	if s := res.Stats[models.S0]; s.Min != 1 || s.Max != 1 {
		t.Errorf("Expected normalized S0 of 1, got [%f, %f]", s.Min, s.Max)
	}
	if s := res.Stats[models.OA]; s.Min != 0 || s.Max != 0 {
		t.Errorf("Expected OA of 0, got [%f, %f]", s.Min, s.Max)
	}
}

func TestProcessFramesDualBuildsEllipses(t *testing.T) {
	main := models.RawFrame{Field: models.NewField(60, 80)}
	second := models.RawFrame{Field: models.NewField(60, 80)}
	for i := range main.Data {
		main.Data[i] = float64(50 + i%7)
		second.Data[i] = float64(60 + i%5)
	}

	r := NewReconstructor(&Params{})
	res, err := r.ProcessFrames(context.Background(), main, second)
	if err != nil {
		t.Fatalf("ProcessFrames failed: %v", err)
	}
	if res.Mode != models.DualFrame {
		t.Errorf("Expected dual mode, got %v", res.Mode)
	}
	if len(res.Names) != 14 {
		t.Errorf("Expected 14 descriptors, got %d", len(res.Names))
	}
	// 30x40 quadrants sampled every 20 px
	if len(res.Ellipses) != 4 {
		t.Errorf("Expected 4 ellipses, got %d", len(res.Ellipses))
	}
}

func TestProcessFramesRejectsTinyFrame(t *testing.T) {
	frame := models.RawFrame{Field: models.NewField(1, 1)}
	frame.Data[0] = 5

	_, err := NewReconstructor(&Params{}).ProcessFrames(context.Background(), frame)
	if !apperrors.IsType(err, apperrors.ErrorTypeShape) {
		t.Errorf("Expected a shape error, got %v", err)
	}
}

func TestProcessAllBlackFrame(t *testing.T) {
	dir := t.TempDir()
	path := writePNG(t, dir, "black.png", createTestImage(8, 8, constant(0)))

	_, err := NewReconstructor(&Params{MainPath: path}).Process(context.Background())
	if !apperrors.IsType(err, apperrors.ErrorTypeDegenerateNormalization) {
		t.Errorf("Expected a degenerate normalization error, got %v", err)
	}
}

func TestProcessCancelled(t *testing.T) {
	dir := t.TempDir()
	path := writePNG(t, dir, "frame.png", createTestImage(8, 8, constant(100)))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewReconstructor(&Params{MainPath: path}).Process(ctx)
	if !apperrors.IsType(err, apperrors.ErrorTypeCancelled) {
		t.Errorf("Expected a cancelled error, got %v", err)
	}
}

func TestProcessWritesSingleFrameOutputs(t *testing.T) {
	inputDir := t.TempDir()
	outputDir := t.TempDir()
	path := writePNG(t, inputDir, "capture.png", createTestImage(8, 8, constant(100)))

	res, err := NewReconstructor(&Params{MainPath: path, OutputDir: outputDir, Config: lightConfig()}).Process(context.Background())
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}

	runDir := filepath.Join(outputDir, "capture")
	if res.OutputDir != runDir {
		t.Errorf("Expected output dir %s, got %s", runDir, res.OutputDir)
	}

	for _, name := range models.DescriptorNames(models.SingleFrame) {
		if _, err := os.Stat(filepath.Join(runDir, name+".txt")); err != nil {
			t.Errorf("Expected %s.txt: %v", name, err)
		}
	}
	for _, name := range []string{"matrices.xlsx", "manifest.yaml"} {
		if _, err := os.Stat(filepath.Join(runDir, name)); err != nil {
			t.Errorf("Expected %s: %v", name, err)
		}
	}
	if _, err := os.Stat(filepath.Join(runDir, "Ellipses.png")); !os.IsNotExist(err) {
		t.Error("Expected no ellipse figure in single mode")
	}

	s0, err := export.ReadText(filepath.Join(runDir, "S0.txt"))
	if err != nil {
		t.Fatalf("ReadText failed: %v", err)
	}
	if s0.Rows != 4 || s0.Cols != 4 {
		t.Fatalf("Expected 4x4 S0, got %s", s0)
	}
	for _, v := range s0.Data {
		if v != 1 {
			t.Fatalf("Expected normalized S0 of 1, got %f", v)
		}
	}

	m, err := export.ReadManifest(filepath.Join(runDir, "manifest.yaml"))
	if err != nil {
		t.Fatalf("ReadManifest failed: %v", err)
	}
	if m.RunID != res.RunID {
		t.Errorf("Expected run id %s, got %s", res.RunID, m.RunID)
	}
	if m.Mode != "single" {
		t.Errorf("Expected single mode in manifest, got %s", m.Mode)
	}
	if len(m.Inputs) != 1 || m.Inputs[0].Rows != 8 {
		t.Errorf("Expected one 8-row input, got %+v", m.Inputs)
	}
}

func TestProcessWritesDualFrameOutputs(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping full render in short mode")
	}

	inputDir := t.TempDir()
	outputDir := t.TempDir()
	mainPath := writePNG(t, inputDir, "main.png", createTestImage(48, 48, func(x, y int) uint8 { return uint8(80 + (x+y)%40) }))
	secondPath := writePNG(t, inputDir, "second.png", createTestImage(48, 48, func(x, y int) uint8 { return uint8(90 + (x*y)%30) }))

	params := &Params{MainPath: mainPath, SecondPath: secondPath, OutputDir: outputDir, ExtractImages: true}
	res, err := NewReconstructor(params).Process(context.Background())
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}

	runDir := filepath.Join(outputDir, "main")
	expected := []string{"Ellipses.png", "Ellipses.html", "I_Subplots.png", "matrices.xlsx", "manifest.yaml"}
	for _, name := range models.DescriptorNames(models.DualFrame) {
		expected = append(expected, name+".png", name+".txt", name+".html", filepath.Join("raw", name+"_raw.png"))
	}
	for _, name := range expected {
		if _, err := os.Stat(filepath.Join(runDir, name)); err != nil {
			t.Errorf("Expected %s: %v", name, err)
		}
	}
	if len(res.Ellipses) != 4 {
		t.Errorf("Expected 4 ellipses for 24x24 quadrants, got %d", len(res.Ellipses))
	}
}
