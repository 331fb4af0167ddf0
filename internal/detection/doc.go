// Package detection locates the tree trunk silhouette in an edge map and
// reduces it to a single representative circle.
//
// The package implements the two geometric stages of the measurement
// pipeline:
//
//   - Contour tracing: connected groups of edge pixels are found and the
//     outer boundary of each group is followed to produce a closed polygon.
//     Holes and internal structure are ignored; only external boundaries
//     are traced.
//   - Circle fitting: the smallest circle containing every vertex of a
//     contour is computed, and its diameter stands in for the trunk's
//     pixel-space diameter.
//
// # Trunk Selection
//
// A trunk photo yields many contours: the trunk silhouette, bark texture
// that survived blurring, background foliage. The trunk is assumed to be
// the contour enclosing the largest area (not the longest one), computed
// with the shoelace formula over the traced polygon. LargestContour applies
// that rule and reports ErrNoContour for an edge map with no edge pixels.
//
// # Coordinate System
//
// All coordinates use the standard image convention:
//   - Origin (0, 0) at top-left corner
//   - X increases rightward
//   - Y increases downward
//
// Edge maps are addressed from (0, 0) regardless of the bounds of the image
// they came from; contour vertices live in that same translated space.
//
// # Determinism
//
// Detection runs inside a pipeline that promises bit-identical results for
// identical inputs, so nothing in this package is randomized. Contours are
// discovered in row-major scan order, boundary tracing always walks
// clockwise, area ties keep the earliest contour, and the enclosing-circle
// search processes hull vertices in a fixed order. Two calls with the same
// edge map return the same polygon and the same circle, bit for bit.
//
// # Degenerate Input
//
// A contour needs at least three distinct vertices to describe a
// cross-section. Below that there is nothing to measure: EnclosingCircle
// returns a zero-radius circle rather than an error, and the caller's
// plausibility checks deal with the zero diameter.
package detection
