// Package measure orchestrates the trunk measurement pipeline.
//
// A Measurer turns one trunk photo into one set of physical tree metrics.
// Each run walks a fixed sequence of stages:
//
//	Loading -> EdgeDetecting -> ContourSelecting -> Measuring -> Estimating -> Done
//
// Loading decodes the photo from disk. EdgeDetecting reduces it to a binary
// edge map. ContourSelecting traces the closed boundaries in the map and
// keeps the one enclosing the largest area, assumed to be the trunk.
// Measuring fits the minimum enclosing circle to that contour and converts
// its pixel diameter to centimeters with the calibration factor. Estimating
// projects height and canopy width from the diameter with the species'
// allometric power laws.
//
// A failure at any stage stops the run: the error is a *StageError naming
// the stage that raised it, and no partial result is returned. Only Loading
// (missing or undecodable file) and ContourSelecting (no boundary found) can
// fail; the remaining stages are total functions over their inputs. Nothing
// is retried; every stage is deterministic, so an identical input would fail
// identically.
//
// # Concurrency
//
// A Measurer is immutable after construction. All per-run state (pixels,
// edge map, contour) is local to the call, so one Measurer may serve any
// number of goroutines with no synchronization. Repeated runs over the same
// photo with the same options return bit-identical results.
package measure
