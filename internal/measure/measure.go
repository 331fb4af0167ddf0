package measure

import (
	"fmt"
	"log"

	"github.com/arborworks/tree-census/internal/allometry"
	"github.com/arborworks/tree-census/internal/config"
	"github.com/arborworks/tree-census/internal/detection"
	"github.com/arborworks/tree-census/internal/imaging"
	"github.com/arborworks/tree-census/internal/units"
)

// Stage identifies one step of the measurement pipeline. StageError carries
// the stage that failed.
type Stage string

const (
	StageLoading          Stage = "loading"
	StageEdgeDetecting    Stage = "edge-detecting"
	StageContourSelecting Stage = "contour-selecting"
	StageMeasuring        Stage = "measuring"
	StageEstimating       Stage = "estimating"
)

// StageError wraps a pipeline failure with the stage that raised it. The
// underlying cause (imaging.ErrImageNotFound, imaging.ErrImageDecode,
// detection.ErrNoContour) stays reachable through errors.Is.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// Options holds the measurement tuning. The zero value is not usable: the
// calibration factor must be calibrated per deployment and has no default.
type Options struct {
	// ScaleCmPerPixel converts pixel diameters to centimeters. Must be > 0.
	ScaleCmPerPixel float64

	// EdgeThresholdLow and EdgeThresholdHigh are the hysteresis thresholds
	// for edge detection, 0-255 scale. Must satisfy 0 < low < high.
	EdgeThresholdLow  int
	EdgeThresholdHigh int

	// BlurKernelSize is the side of the square Gaussian kernel applied
	// before edge detection. Must be a positive odd integer.
	BlurKernelSize int
}

// FromConfig copies the measurement tuning out of startup configuration,
// applying the documented defaults for absent fields.
func FromConfig(cfg *config.Config) Options {
	return Options{
		ScaleCmPerPixel:   cfg.GetScaleCmPerPixel(),
		EdgeThresholdLow:  cfg.GetEdgeThresholdLow(),
		EdgeThresholdHigh: cfg.GetEdgeThresholdHigh(),
		BlurKernelSize:    cfg.GetBlurKernelSize(),
	}
}

// Result is the complete outcome of one successful measurement. It is only
// ever fully populated; a failed run returns an error and no Result.
type Result struct {
	// DBHCm is the trunk diameter at breast height in centimeters.
	DBHCm float64 `json:"dbh_cm"`

	// GirthCm is the trunk circumference in centimeters, derived from DBH
	// assuming a circular cross-section.
	GirthCm float64 `json:"girth_cm"`

	// HeightM and CanopyM are the allometric projections in meters.
	HeightM float64 `json:"height_m"`
	CanopyM float64 `json:"canopy_m"`

	// Species is the canonical registry entry the estimate used, which is
	// the Default entry when the requested name was not recognized.
	Species string `json:"species"`

	// PixelDiameter is the fitted circle's diameter before calibration,
	// kept for census records and threshold tuning.
	PixelDiameter float64 `json:"pixel_diameter"`
}

// Measurer runs the measurement pipeline with fixed tuning and a fixed
// species registry. Immutable after New; safe for concurrent use.
type Measurer struct {
	opts     Options
	registry *allometry.Registry
}

// New validates the tuning and builds a Measurer.
//
// Validation failures wrap config.ErrInvalidConfig and are meant to abort
// startup: a service running with a bad calibration factor would produce
// meaningless numbers on every request rather than failing loudly once.
func New(opts Options, registry *allometry.Registry) (*Measurer, error) {
	if registry == nil {
		return nil, fmt.Errorf("%w: species registry is required", config.ErrInvalidConfig)
	}
	if opts.ScaleCmPerPixel <= 0 {
		return nil, fmt.Errorf("%w: calibration factor must be > 0, got %g", config.ErrInvalidConfig, opts.ScaleCmPerPixel)
	}
	if opts.EdgeThresholdLow <= 0 || opts.EdgeThresholdHigh <= 0 {
		return nil, fmt.Errorf("%w: edge thresholds must be positive, got (%d, %d)", config.ErrInvalidConfig, opts.EdgeThresholdLow, opts.EdgeThresholdHigh)
	}
	if opts.EdgeThresholdLow >= opts.EdgeThresholdHigh {
		return nil, fmt.Errorf("%w: edge threshold low (%d) must be less than high (%d)", config.ErrInvalidConfig, opts.EdgeThresholdLow, opts.EdgeThresholdHigh)
	}
	if opts.BlurKernelSize <= 0 || opts.BlurKernelSize%2 == 0 {
		return nil, fmt.Errorf("%w: blur kernel size must be a positive odd integer, got %d", config.ErrInvalidConfig, opts.BlurKernelSize)
	}

	return &Measurer{opts: opts, registry: registry}, nil
}

// Options returns the tuning the Measurer was built with.
func (m *Measurer) Options() Options {
	return m.opts
}

// Measure estimates tree metrics from the trunk photo at imagePath.
//
// The species name selects the allometric coefficients; an empty or
// unrecognized name uses the Default entry, and the Result reports which
// entry was applied. Failures return a *StageError and no Result.
func (m *Measurer) Measure(imagePath, species string) (*Result, error) {
	// Loading
	img, err := imaging.LoadImage(imagePath)
	if err != nil {
		return nil, &StageError{Stage: StageLoading, Err: err}
	}

	// A dark or flat photo still measures; the advisory explains the blank
	// edge map that tends to follow.
	if q := imaging.AssessQuality(img); q.Flagged() {
		log.Printf("quality advisory for %s: mean lightness %.1f, contrast span %d", imagePath, q.MeanLightness, q.ContrastSpan)
	}

	// EdgeDetecting: cannot fail, a featureless photo yields a blank map.
	edges := imaging.DetectEdges(img, m.edgeOptions())

	// ContourSelecting
	contour, err := detection.LargestContour(edges)
	if err != nil {
		return nil, &StageError{Stage: StageContourSelecting, Err: err}
	}

	// Measuring: a degenerate contour yields a zero diameter, not an error.
	circle := detection.EnclosingCircle(contour)
	dbh := units.DBHCm(circle.Diameter(), m.opts.ScaleCmPerPixel)
	girth := units.GirthCm(dbh)

	// Estimating
	name, coeffs := m.registry.Resolve(species)
	height, canopy := coeffs.Estimate(dbh)

	return &Result{
		DBHCm:         dbh,
		GirthCm:       girth,
		HeightM:       height,
		CanopyM:       canopy,
		Species:       name,
		PixelDiameter: circle.Diameter(),
	}, nil
}

func (m *Measurer) edgeOptions() imaging.EdgeOptions {
	return imaging.EdgeOptions{
		ThresholdLow:   m.opts.EdgeThresholdLow,
		ThresholdHigh:  m.opts.EdgeThresholdHigh,
		BlurKernelSize: m.opts.BlurKernelSize,
	}
}
