// Package reconstruction drives one polarization run end to end: it loads
// the raw frames, runs the quadrant split, Stokes and descriptor stages,
// samples the ellipse field and hands the results to the exporters.
package reconstruction

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gonum.org/v1/plot/vg"

	apperrors "polcam/internal/errors"
	"polcam/internal/logger"
	"polcam/internal/models"
	"polcam/pkg/config"
	"polcam/pkg/ellipse"
	"polcam/pkg/export"
	"polcam/pkg/polarization"
	"polcam/pkg/visualization"
)

// Params holds the inputs of one run.
type Params struct {
	// MainPath is the raw frame carrying the 0°, 45° and 90° quadrants
	MainPath string

	// SecondPath is the optional second frame whose bottom-left quadrant
	// is the I_45_90 proxy; setting it selects dual-frame mode
	SecondPath string

	// Mode forces "single" or "dual"; empty infers it from SecondPath
	Mode string

	// OutputDir is the root output folder. Each run writes into
	// OutputDir/<main frame name>. Empty disables all file output.
	OutputDir string

	// RunName overrides the run folder name under OutputDir
	RunName string

	// ExtractImages also writes every descriptor at one pixel per sample
	// into a raw/ subfolder
	ExtractImages bool

	// Config supplies ellipse sampling and output switches; nil means
	// config.DefaultConfig()
	Config *config.Config
}

// Result is everything a run produced.
type Result struct {
	RunID string
	Mode  models.Mode

	// Names lists the descriptors in presentation order
	Names []string

	// Fields maps every name in Names to its raster
	Fields map[string]models.Field

	// Ellipses is empty in single-frame mode
	Ellipses []ellipse.Curve

	// Scale is max(S0) of the raw Stokes field
	Scale float64

	Warnings []*apperrors.AppError
	Stats    map[string]export.FieldStats

	// OutputDir is the folder the run wrote to, if any
	OutputDir string

	// Files lists the written outputs relative to OutputDir
	Files []string
}

// Reconstructor runs the polarization pipeline for one set of frames.
type Reconstructor struct {
	params *Params
	cfg    *config.Config
	runID  string
	log    *logrus.Entry

	frames   []models.RawFrame
	metadata []map[string]string
}

// NewReconstructor creates a reconstructor for the given run parameters.
func NewReconstructor(params *Params) *Reconstructor {
	cfg := params.Config
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	runID := uuid.NewString()
	return &Reconstructor{
		params: params,
		cfg:    cfg,
		runID:  runID,
		log:    logger.WithField("run_id", runID),
	}
}

// RunID identifies this run in logs and the manifest.
func (r *Reconstructor) RunID() string { return r.runID }

// ResolveMode decides the acquisition mode from the params. A forced mode
// must agree with whether a second frame was given.
func ResolveMode(p *Params) (models.Mode, error) {
	inferred := models.SingleFrame
	if p.SecondPath != "" {
		inferred = models.DualFrame
	}
	if p.Mode == "" {
		return inferred, nil
	}

	forced, err := models.ParseMode(p.Mode)
	if err != nil {
		return 0, apperrors.NewValidationError("invalid mode", err)
	}
	if forced != inferred {
		if forced == models.DualFrame {
			return 0, apperrors.NewValidationError("dual mode requires a second frame", nil)
		}
		return 0, apperrors.NewValidationError("single mode does not take a second frame", nil)
	}
	return forced, nil
}

// Process loads the frames named in the params, runs the pipeline and
// writes the configured outputs.
func (r *Reconstructor) Process(ctx context.Context) (*Result, error) {
	if r.params.MainPath == "" {
		return nil, apperrors.NewValidationError("a main frame is required", nil)
	}
	mode, err := ResolveMode(r.params)
	if err != nil {
		return nil, err
	}
	r.log = r.log.WithField("mode", mode.String())

	// Step 1: Load raw frames
	r.log.WithField("step", "load").Info("Loading raw frames")
	paths := []string{r.params.MainPath}
	if mode == models.DualFrame {
		paths = append(paths, r.params.SecondPath)
	}
	if err := r.loadFrames(paths); err != nil {
		return nil, err
	}
	if err := checkCancelled(ctx, "load"); err != nil {
		return nil, err
	}

	res, err := r.ProcessFrames(ctx, r.frames...)
	if err != nil {
		return nil, err
	}

	if r.params.OutputDir != "" {
		if err := checkCancelled(ctx, "compute"); err != nil {
			return nil, err
		}
		if err := r.writeOutputs(ctx, res); err != nil {
			return nil, err
		}
	}

	r.log.WithFields(logrus.Fields{
		"descriptors": len(res.Names),
		"ellipses":    len(res.Ellipses),
		"warnings":    len(res.Warnings),
		"output":      res.OutputDir,
	}).Info("Run complete")
	return res, nil
}

// ProcessFrames runs the numerical pipeline on frames that are already in
// memory. One frame selects single-frame mode, two select dual-frame mode.
// Nothing is written to disk.
func (r *Reconstructor) ProcessFrames(ctx context.Context, frames ...models.RawFrame) (*Result, error) {
	// Step 2: Split frames into orientation images
	r.log.WithField("step", "split").Info("Splitting frames into quadrants")
	var in polarization.Input
	switch len(frames) {
	case 1:
		in = polarization.NewSingleFrame(frames[0].Field)
	case 2:
		in = polarization.NewDualFrame(frames[0].Field, frames[1].Field)
	default:
		return nil, apperrors.NewValidationError(fmt.Sprintf("expected 1 or 2 frames, got %d", len(frames)), nil)
	}

	// Step 3: Stokes components, normalization and descriptors
	r.log.WithField("step", "stokes").Info("Computing Stokes parameters and descriptors")
	set, err := polarization.Process(in)
	if err != nil {
		r.log.WithError(err).WithField("descriptor", apperrors.DescriptorOf(err)).Error("Pipeline failed")
		return nil, err
	}
	for _, w := range set.Warnings {
		r.log.WithField("descriptor", w.Descriptor).Warn(w.Message)
	}
	if err := checkCancelled(ctx, "stokes"); err != nil {
		return nil, err
	}

	res := &Result{
		RunID:    r.runID,
		Mode:     set.Mode(),
		Names:    models.DescriptorNames(set.Mode()),
		Fields:   set.Fields(),
		Scale:    set.Scale,
		Warnings: set.Warnings,
		Stats:    make(map[string]export.FieldStats),
	}

	// Step 4: Ellipse field, dual-frame only
	if oa, ea, ex, ey, ok := set.EllipseInputs(); ok {
		r.log.WithField("step", "ellipses").Info("Sampling polarization ellipses")
		params := ellipse.Params{Stride: r.cfg.Processing.EllipseStride, Points: r.cfg.Processing.EllipsePoints}
		curves, err := ellipse.Build(params, oa, ea, ex, ey)
		if err != nil {
			return nil, err
		}
		res.Ellipses = curves
	}

	// Step 5: Summary statistics
	for _, name := range res.Names {
		res.Stats[name] = export.Summarize(res.Fields[name])
	}

	return res, nil
}

func (r *Reconstructor) loadFrames(paths []string) error {
	r.frames = r.frames[:0]
	r.metadata = r.metadata[:0]
	for _, path := range paths {
		frame, err := LoadFrame(path)
		if err != nil {
			return err
		}
		meta, err := ReadFrameMetadata(path)
		if err != nil {
			r.log.WithField("frame", path).Debugf("No EXIF metadata: %v", err)
		}

		r.log.WithFields(logrus.Fields{
			"frame":     path,
			"size":      frame.Field.String(),
			"bit_depth": frame.BitDepth,
		}).Info("Loaded frame")

		r.frames = append(r.frames, frame)
		r.metadata = append(r.metadata, meta)
	}
	return nil
}

// RunDir is the folder a run writes into: root/<main frame name without
// extension>.
func RunDir(root, mainPath string) string {
	return filepath.Join(root, frameStem(mainPath))
}

func (p *Params) runDir() string {
	if p.RunName != "" {
		return filepath.Join(p.OutputDir, p.RunName)
	}
	return RunDir(p.OutputDir, p.MainPath)
}

// writeOutputs persists the result according to the output switches.
func (r *Reconstructor) writeOutputs(ctx context.Context, res *Result) error {
	out := r.cfg.Output
	dir := r.params.runDir()
	if err := os.MkdirAll(dir, 0755); err != nil {
		return apperrors.NewIOError(fmt.Sprintf("failed to create output directory %s", dir), err)
	}
	res.OutputDir = dir

	record := func(name string) { res.Files = append(res.Files, name) }
	log := r.log.WithField("step", "export")

	// Step 6: Per-descriptor heatmaps, text matrices and interactive pages
	for _, name := range res.Names {
		if err := checkCancelled(ctx, "export"); err != nil {
			return err
		}
		f := res.Fields[name]
		dlog := log.WithField("descriptor", name)

		if out.Heatmaps {
			file := name + ".png"
			if err := visualization.SaveHeatmap(filepath.Join(dir, file), name, f, vg.Points(out.HeatmapWidth), vg.Points(out.HeatmapHeight)); err != nil {
				return err
			}
			record(file)
		}
		if out.Text {
			file := name + ".txt"
			if err := export.WriteText(filepath.Join(dir, file), f); err != nil {
				return apperrors.NewIOError(fmt.Sprintf("failed to save %s", file), err)
			}
			record(file)
		}
		if out.Interactive {
			file := name + ".html"
			if err := visualization.SaveInteractiveHeatmap(filepath.Join(dir, file), name, f); err != nil {
				return err
			}
			record(file)
		}
		dlog.Debug("Descriptor saved")
	}

	// Step 7: Workbook of all matrices
	if out.Workbook {
		log.Info("Writing workbook")
		if err := export.WriteWorkbook(filepath.Join(dir, "matrices.xlsx"), res.Names, res.Fields); err != nil {
			return apperrors.NewIOError("failed to save matrices.xlsx", err)
		}
		record("matrices.xlsx")
	}

	// Step 8: Ellipse figures
	if len(res.Ellipses) > 0 {
		log.WithField("ellipses", len(res.Ellipses)).Info("Writing ellipse figures")
		if err := visualization.SaveEllipsePlot(filepath.Join(dir, "Ellipses.png"), res.Ellipses, 10*vg.Inch, 8*vg.Inch); err != nil {
			return err
		}
		record("Ellipses.png")
		if out.Interactive {
			if err := visualization.SaveInteractiveEllipses(filepath.Join(dir, "Ellipses.html"), res.Ellipses); err != nil {
				return err
			}
			record("Ellipses.html")
		}
	}

	viewer := visualization.NewViewer(res.Fields, res.Names)

	// Step 9: Orientation montage
	if out.Montage {
		if err := viewer.SaveMontage(filepath.Join(dir, "I_Subplots.png"), models.OrientationNames(res.Mode)); err != nil {
			return err
		}
		record("I_Subplots.png")
	}

	if r.params.ExtractImages {
		if err := viewer.SaveImageSequence(filepath.Join(dir, "raw")); err != nil {
			return err
		}
		record("raw/")
	}

	// Step 10: Manifest
	if out.Manifest {
		if err := export.WriteManifest(filepath.Join(dir, "manifest.yaml"), r.manifest(res)); err != nil {
			return apperrors.NewIOError("failed to save manifest.yaml", err)
		}
		record("manifest.yaml")
	}

	log.WithField("files", len(res.Files)).Info("Outputs written")
	return nil
}

func (r *Reconstructor) manifest(res *Result) *export.Manifest {
	m := &export.Manifest{
		RunID:              res.RunID,
		CreatedAt:          time.Now().UTC(),
		Mode:               res.Mode.String(),
		NormalizationScale: res.Scale,
		Descriptors:        res.Names,
		Stats:              res.Stats,
		Ellipses:           len(res.Ellipses),
		Files:              res.Files,
	}
	if len(res.Ellipses) > 0 {
		m.EllipseStride = r.cfg.Processing.EllipseStride
	}
	for i, frame := range r.frames {
		rec := export.InputRecord{
			Path:     frame.Source,
			Rows:     frame.Rows,
			Cols:     frame.Cols,
			BitDepth: frame.BitDepth,
		}
		if i < len(r.metadata) {
			rec.Metadata = r.metadata[i]
		}
		m.Inputs = append(m.Inputs, rec)
	}
	for _, w := range res.Warnings {
		m.Warnings = append(m.Warnings, export.WarningRecord{
			Type:       string(w.Type),
			Descriptor: w.Descriptor,
			Message:    w.Message,
		})
	}
	return m
}

func checkCancelled(ctx context.Context, step string) error {
	if err := ctx.Err(); err != nil {
		return apperrors.NewCancelledError(fmt.Sprintf("run abandoned after %s", step), err)
	}
	return nil
}
