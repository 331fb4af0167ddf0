// Package units converts pixel-space trunk measurements into physical units.
//
// The calibration factor (centimeters per pixel) depends on camera distance
// and optics and is validated once at startup; everything here assumes it is
// positive.
package units

import "math"

// DBHCm converts a pixel-space trunk diameter to centimeters using the
// calibration factor.
func DBHCm(pixelDiameter, cmPerPixel float64) float64 {
	return pixelDiameter * cmPerPixel
}

// GirthCm derives the trunk circumference from its diameter, treating the
// cross-section as circular.
func GirthCm(dbhCm float64) float64 {
	return math.Pi * dbhCm
}

// Round1 rounds a measurement to one decimal place, the precision the
// census reports use.
func Round1(v float64) float64 {
	return math.Round(v*10) / 10
}
