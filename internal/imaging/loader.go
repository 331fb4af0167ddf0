package imaging

import (
	"errors"
	"fmt"
	"image"
	"os"

	"github.com/disintegration/imaging"
)

// Sentinel errors distinguishing the two ways a trunk photo can fail to
// load. Match with errors.Is; the HTTP layer maps them onto its error
// strings.
var (
	// ErrImageNotFound means the path does not resolve to an existing file.
	ErrImageNotFound = errors.New("image not found")

	// ErrImageDecode means the file exists but is not a decodable raster
	// image (or not a supported format).
	ErrImageDecode = errors.New("image decode failed")
)

// LoadImage reads and decodes the image file at path.
//
// Supported formats are JPEG, PNG, GIF, TIFF, and BMP. JPEG EXIF
// orientation is applied during decode so a phone photo measures the same
// however the camera stored it.
//
// Returns:
//   - image.Image: the decoded picture, oriented for display.
//   - error: wraps ErrImageNotFound when the path does not exist, or
//     ErrImageDecode when the file cannot be decoded. No other failure
//     modes; the file is only read, never written.
func LoadImage(path string) (image.Image, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrImageNotFound, path)
	}

	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrImageDecode, path, err)
	}

	return img, nil
}
