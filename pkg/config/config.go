// Package config provides configuration loading and management for polcam.
// It handles loading configuration from YAML files and provides default values.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration loaded from YAML
type Config struct {
	// Processing parameters
	Processing struct {
		// NumWorkers bounds how many frame sets a batch run processes at once
		NumWorkers int `yaml:"numWorkers"`

		// EllipseStride is the pixel distance between sampled polarization ellipses
		EllipseStride int `yaml:"ellipseStride"`

		// EllipsePoints is the number of vertices per ellipse curve
		EllipsePoints int `yaml:"ellipsePoints"`
	} `yaml:"processing"`

	// Output parameters
	Output struct {
		// Dir is the root directory; each run writes to Dir/<main frame name>
		Dir string `yaml:"dir"`

		// Heatmaps writes <name>.png for every descriptor
		Heatmaps bool `yaml:"heatmaps"`

		// Text writes <name>.txt matrices with 4 decimal places
		Text bool `yaml:"text"`

		// Workbook writes matrices.xlsx with one sheet per descriptor
		Workbook bool `yaml:"workbook"`

		// Interactive writes HTML heatmap and ellipse pages
		Interactive bool `yaml:"interactive"`

		// Montage writes I_Subplots.png with the orientation images
		Montage bool `yaml:"montage"`

		// Manifest writes manifest.yaml describing the run
		Manifest bool `yaml:"manifest"`

		// HeatmapWidth and HeatmapHeight size the static heatmaps, in points
		HeatmapWidth  float64 `yaml:"heatmapWidth"`
		HeatmapHeight float64 `yaml:"heatmapHeight"`

		// Verbose controls the level of logging output
		Verbose bool `yaml:"verbose"`
	} `yaml:"output"`

	// Logging parameters
	Logging struct {
		// Level is one of debug, info, warn, error
		Level string `yaml:"level"`

		// Format is text or json
		Format string `yaml:"format"`
	} `yaml:"logging"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Processing.NumWorkers = runtime.NumCPU()
	cfg.Processing.EllipseStride = 20
	cfg.Processing.EllipsePoints = 50

	cfg.Output.Dir = "outputs"
	cfg.Output.Heatmaps = true
	cfg.Output.Text = true
	cfg.Output.Workbook = true
	cfg.Output.Interactive = true
	cfg.Output.Montage = true
	cfg.Output.Manifest = true
	cfg.Output.HeatmapWidth = 600
	cfg.Output.HeatmapHeight = 500
	cfg.Output.Verbose = false

	cfg.Logging.Level = "info"
	cfg.Logging.Format = "text"

	return cfg
}

// Validate rejects values the pipeline cannot run with
func (c *Config) Validate() error {
	if c.Processing.EllipseStride <= 0 {
		return fmt.Errorf("processing.ellipseStride must be > 0 (got %d)", c.Processing.EllipseStride)
	}
	if c.Processing.EllipsePoints <= 0 {
		return fmt.Errorf("processing.ellipsePoints must be > 0 (got %d)", c.Processing.EllipsePoints)
	}
	if c.Processing.NumWorkers < 0 {
		return fmt.Errorf("processing.numWorkers must be >= 0 (got %d)", c.Processing.NumWorkers)
	}
	if c.Output.Dir == "" {
		return fmt.Errorf("output.dir must not be empty")
	}
	if c.Output.HeatmapWidth <= 0 || c.Output.HeatmapHeight <= 0 {
		return fmt.Errorf("heatmap size must be > 0 (got %gx%g)", c.Output.HeatmapWidth, c.Output.HeatmapHeight)
	}
	switch c.Logging.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("logging.format must be text or json (got %q)", c.Logging.Format)
	}
	return nil
}

// LoadConfig loads configuration from a YAML file
// If the file doesn't exist, it returns the default configuration
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	// Check if config file exists
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	// Read config file
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	// Parse YAML
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", configPath, err)
	}

	return cfg, nil
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(cfg *Config, configPath string) error {
	// Create directory if it doesn't exist
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	// Marshal config to YAML
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	// Write to file
	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}

// CreateDefaultConfigFile creates a default configuration file at the specified path
func CreateDefaultConfigFile(configPath string) error {
	cfg := DefaultConfig()
	return SaveConfig(cfg, configPath)
}
