package imaging

import (
	"image"

	"github.com/anthonynsimon/bild/histogram"
	"github.com/lucasb-eyer/go-colorful"
)

// Exposure limits below which a trunk photo is flagged. Flagged photos still
// measure; the report explains a likely empty or noisy edge map.
const (
	darkLightnessLimit = 20.0
	lowContrastSpan    = 40
)

// QualityReport summarizes the exposure of a trunk photo.
type QualityReport struct {
	// MeanLightness is the CIE L* of the average image color, from 0
	// (black) to 100 (white).
	MeanLightness float64 `json:"mean_lightness"`

	// ContrastSpan is the widest 5th-to-95th percentile spread across the
	// three color channels, on the 0-255 scale.
	ContrastSpan int `json:"contrast_span"`

	// Dark flags photos too dim for reliable gradients.
	Dark bool `json:"dark"`

	// LowContrast flags photos whose tonal range is too narrow for the
	// hysteresis thresholds to seed strong edges.
	LowContrast bool `json:"low_contrast"`
}

// Flagged reports whether the photo tripped any exposure limit.
func (q QualityReport) Flagged() bool {
	return q.Dark || q.LowContrast
}

// AssessQuality inspects channel histograms and reports exposure problems
// that commonly precede a failed trunk detection.
func AssessQuality(img image.Image) QualityReport {
	hist := histogram.NewRGBAHistogram(img)

	span := channelSpan(hist.R)
	if s := channelSpan(hist.G); s > span {
		span = s
	}
	if s := channelSpan(hist.B); s > span {
		span = s
	}

	mean := colorful.Color{
		R: channelMean(hist.R) / 255.0,
		G: channelMean(hist.G) / 255.0,
		B: channelMean(hist.B) / 255.0,
	}
	l, _, _ := mean.Lab()
	lightness := l * 100

	return QualityReport{
		MeanLightness: lightness,
		ContrastSpan:  span,
		Dark:          lightness < darkLightnessLimit,
		LowContrast:   span < lowContrastSpan,
	}
}

// channelMean is the average 8-bit value of one channel.
func channelMean(h histogram.Histogram) float64 {
	var total, weighted int
	for v, count := range h.Bins {
		total += count
		weighted += v * count
	}
	if total == 0 {
		return 0
	}
	return float64(weighted) / float64(total)
}

// channelSpan is the distance in bin values between the 5th and 95th
// percentiles of one channel.
func channelSpan(h histogram.Histogram) int {
	cum := h.Cumulative()
	if len(cum.Bins) == 0 {
		return 0
	}
	total := cum.Bins[len(cum.Bins)-1]
	if total == 0 {
		return 0
	}

	var lo, hi int
	for i, c := range cum.Bins {
		if float64(c) >= 0.05*float64(total) {
			lo = i
			break
		}
	}
	for i, c := range cum.Bins {
		if float64(c) >= 0.95*float64(total) {
			hi = i
			break
		}
	}
	return hi - lo
}
