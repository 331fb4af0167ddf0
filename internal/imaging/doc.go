// Package imaging provides the pixel-level operations of the measurement
// pipeline: loading trunk photos, detecting edges, assessing exposure, and
// rendering inspection overlays.
//
// All operations work with standard Go image.Image types and use a coordinate
// system where (0,0) is at the top-left corner, X increases rightward, and Y
// increases downward. Loaded images keep their source dimensions; edge maps
// translate the origin to (0,0) regardless of the decoded image bounds.
//
// # Determinism
//
// Every function in this package is a pure transformation of its inputs.
// Detecting edges on the same image with the same options always produces the
// same EdgeMap, bit for bit. Nothing here caches, samples randomly, or
// depends on wall-clock time, so repeated measurements of one photo agree
// exactly.
//
// # Thread Safety
//
// All operations are stateless and can be called concurrently on different
// images. Operations on the same image should be synchronized by the caller
// if the image is mutable.
//
// # Error Handling
//
// Only loading and PNG encoding can fail. LoadImage distinguishes a missing
// file (ErrImageNotFound) from an unreadable one (ErrImageDecode) so callers
// can report them separately. DetectEdges and AssessQuality accept any
// decoded image and cannot fail; an image with no usable gradients simply
// yields an empty edge map.
package imaging
