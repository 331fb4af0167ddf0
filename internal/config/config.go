// Package config loads and validates the startup configuration for the
// tree census service.
//
// Configuration comes from a JSON file with optional fields; the Get*
// accessors fall back to documented defaults for anything the file omits.
// The calibration factor scale_cm_per_pixel has no default: it depends on
// camera distance and optics and must be calibrated per deployment, so a
// missing or non-positive value refuses startup rather than silently
// producing meaningless measurements.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrInvalidConfig is wrapped by every configuration validation failure,
// including species registry problems detected at load time. Match with
// errors.Is.
var ErrInvalidConfig = errors.New("invalid configuration")

// Defaults for optional settings.
const (
	DefaultEdgeThresholdLow  = 100
	DefaultEdgeThresholdHigh = 200
	DefaultBlurKernelSize    = 5
	DefaultListenAddr        = ":5000"
	DefaultDBPath            = "treecensus.db"
)

// maxFileSize caps config files at 1MB.
const maxFileSize = 1 * 1024 * 1024

// Config holds the measurement service configuration.
//
// Fields are pointers so partial JSON files are safe: omitted fields keep
// their defaults. ScaleCmPerPixel is the only required field.
type Config struct {
	// ScaleCmPerPixel converts pixel diameters to centimeters. Required,
	// must be > 0. Calibrate against camera distance or a known reference
	// object in frame.
	ScaleCmPerPixel *float64 `json:"scale_cm_per_pixel,omitempty"`

	// EdgeThresholdLow and EdgeThresholdHigh are the hysteresis thresholds
	// for edge detection. Low admits weak edges connected to strong ones,
	// high seeds strong edges. Must satisfy 0 < low < high.
	EdgeThresholdLow  *int `json:"edge_threshold_low,omitempty"`
	EdgeThresholdHigh *int `json:"edge_threshold_high,omitempty"`

	// BlurKernelSize is the side of the square Gaussian kernel applied
	// before edge detection. Must be a positive odd integer.
	BlurKernelSize *int `json:"blur_kernel_size,omitempty"`

	// ListenAddr is the HTTP listen address for the service.
	ListenAddr *string `json:"listen_addr,omitempty"`

	// DBPath is the SQLite file for the census measurement log.
	// An empty string disables persistence.
	DBPath *string `json:"db_path,omitempty"`

	// SpeciesPath optionally overrides the compiled-in species coefficient
	// table with an external JSON file.
	SpeciesPath *string `json:"species_path,omitempty"`
}

// Load reads a Config from a JSON file and validates it.
// The file must have a .json extension and be under the max file size.
func Load(path string) (*Config, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("%w: config file must have .json extension, got %q", ErrInvalidConfig, ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("%w: config file too large: %d bytes (max %d)", ErrInvalidConfig, fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: failed to parse config JSON: %v", ErrInvalidConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that the configuration values are usable. Any failure
// here is fatal at startup.
func (c *Config) Validate() error {
	if c.ScaleCmPerPixel == nil {
		return fmt.Errorf("%w: scale_cm_per_pixel is required", ErrInvalidConfig)
	}
	if *c.ScaleCmPerPixel <= 0 {
		return fmt.Errorf("%w: scale_cm_per_pixel must be > 0, got %g", ErrInvalidConfig, *c.ScaleCmPerPixel)
	}

	low := c.GetEdgeThresholdLow()
	high := c.GetEdgeThresholdHigh()
	if low <= 0 {
		return fmt.Errorf("%w: edge_threshold_low must be positive, got %d", ErrInvalidConfig, low)
	}
	if high <= 0 {
		return fmt.Errorf("%w: edge_threshold_high must be positive, got %d", ErrInvalidConfig, high)
	}
	if low >= high {
		return fmt.Errorf("%w: edge_threshold_low (%d) must be less than edge_threshold_high (%d)", ErrInvalidConfig, low, high)
	}

	if k := c.GetBlurKernelSize(); k <= 0 || k%2 == 0 {
		return fmt.Errorf("%w: blur_kernel_size must be a positive odd integer, got %d", ErrInvalidConfig, k)
	}

	return nil
}

// GetScaleCmPerPixel returns the calibration factor. Zero when unset;
// Validate rejects that before the pipeline ever sees it.
func (c *Config) GetScaleCmPerPixel() float64 {
	if c.ScaleCmPerPixel == nil {
		return 0
	}
	return *c.ScaleCmPerPixel
}

// GetEdgeThresholdLow returns the weak-edge threshold or the default.
func (c *Config) GetEdgeThresholdLow() int {
	if c.EdgeThresholdLow == nil {
		return DefaultEdgeThresholdLow
	}
	return *c.EdgeThresholdLow
}

// GetEdgeThresholdHigh returns the strong-edge threshold or the default.
func (c *Config) GetEdgeThresholdHigh() int {
	if c.EdgeThresholdHigh == nil {
		return DefaultEdgeThresholdHigh
	}
	return *c.EdgeThresholdHigh
}

// GetBlurKernelSize returns the Gaussian kernel size or the default.
func (c *Config) GetBlurKernelSize() int {
	if c.BlurKernelSize == nil {
		return DefaultBlurKernelSize
	}
	return *c.BlurKernelSize
}

// GetListenAddr returns the HTTP listen address or the default.
func (c *Config) GetListenAddr() string {
	if c.ListenAddr == nil || *c.ListenAddr == "" {
		return DefaultListenAddr
	}
	return *c.ListenAddr
}

// GetDBPath returns the census database path. Empty disables persistence;
// only an explicit "db_path": "" does that, an omitted field gets the
// default path.
func (c *Config) GetDBPath() string {
	if c.DBPath == nil {
		return DefaultDBPath
	}
	return *c.DBPath
}

// GetSpeciesPath returns the species table override path, or empty to use
// the compiled-in table.
func (c *Config) GetSpeciesPath() string {
	if c.SpeciesPath == nil {
		return ""
	}
	return *c.SpeciesPath
}
