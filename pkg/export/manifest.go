package export

import (
	"fmt"
	"math"
	"os"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"
	"gopkg.in/yaml.v3"

	"polcam/internal/models"
)

// FieldStats summarizes one descriptor field. NaN samples are excluded
// and counted separately.
type FieldStats struct {
	Rows   int     `yaml:"rows"`
	Cols   int     `yaml:"cols"`
	Min    float64 `yaml:"min"`
	Max    float64 `yaml:"max"`
	Mean   float64 `yaml:"mean"`
	StdDev float64 `yaml:"stdDev"`
	Median float64 `yaml:"median"`
	NaN    int     `yaml:"nan,omitempty"`
}

// Summarize computes FieldStats for a field.
func Summarize(f models.Field) FieldStats {
	s := FieldStats{Rows: f.Rows, Cols: f.Cols}

	values := make([]float64, 0, len(f.Data))
	for _, v := range f.Data {
		if math.IsNaN(v) {
			s.NaN++
			continue
		}
		values = append(values, v)
	}
	if len(values) == 0 {
		return s
	}

	sort.Float64s(values)
	s.Min = values[0]
	s.Max = values[len(values)-1]
	s.Mean, s.StdDev = stat.MeanStdDev(values, nil)
	if len(values) < 2 {
		s.StdDev = 0
	}
	s.Median = stat.Quantile(0.5, stat.Empirical, values, nil)
	return s
}

// InputRecord describes one raw frame fed to the run.
type InputRecord struct {
	Path     string            `yaml:"path"`
	Rows     int               `yaml:"rows"`
	Cols     int               `yaml:"cols"`
	BitDepth int               `yaml:"bitDepth"`
	Metadata map[string]string `yaml:"metadata,omitempty"`
}

// WarningRecord is a clamped-sample notice from descriptor derivation.
type WarningRecord struct {
	Type       string `yaml:"type"`
	Descriptor string `yaml:"descriptor,omitempty"`
	Message    string `yaml:"message"`
}

// Manifest is the machine-readable record of one run.
type Manifest struct {
	RunID              string                `yaml:"runId"`
	CreatedAt          time.Time             `yaml:"createdAt"`
	Mode               string                `yaml:"mode"`
	Inputs             []InputRecord         `yaml:"inputs"`
	NormalizationScale float64               `yaml:"normalizationScale"`
	Descriptors        []string              `yaml:"descriptors"`
	Stats              map[string]FieldStats `yaml:"stats"`
	Ellipses           int                   `yaml:"ellipses"`
	EllipseStride      int                   `yaml:"ellipseStride,omitempty"`
	Files              []string              `yaml:"files,omitempty"`
	Warnings           []WarningRecord       `yaml:"warnings,omitempty"`
}

// WriteManifest saves the manifest as YAML.
func WriteManifest(path string, m *Manifest) error {
	data, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("error marshaling manifest: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("error writing manifest: %w", err)
	}
	return nil
}

// ReadManifest loads a manifest written by WriteManifest.
func ReadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading manifest: %w", err)
	}
	m := &Manifest{}
	if err := yaml.Unmarshal(data, m); err != nil {
		return nil, fmt.Errorf("error parsing manifest: %w", err)
	}
	return m, nil
}
