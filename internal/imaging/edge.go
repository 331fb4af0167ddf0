package imaging

import (
	"image"
	"math"
)

// EdgeOptions controls edge detection sensitivity.
type EdgeOptions struct {
	// ThresholdLow is the low hysteresis threshold (0-255 scale). Gradient
	// magnitudes below it are discarded.
	ThresholdLow int

	// ThresholdHigh is the high hysteresis threshold (0-255 scale). Gradient
	// magnitudes at or above it always become edges. Magnitudes between the
	// two thresholds become edges only when connected to a strong edge.
	ThresholdHigh int

	// BlurKernelSize is the side length of the square Gaussian kernel applied
	// before gradient computation. Must be odd; a size of 1 disables
	// smoothing. A non-positive or even size is rounded up to the nearest
	// valid value.
	BlurKernelSize int
}

// EdgeMap is the binary result of edge detection. Pixels[y][x] is true where
// an edge was detected. Dimensions always match the source image, with the
// origin translated to (0, 0).
type EdgeMap struct {
	Width  int
	Height int
	Pixels [][]bool
}

// At reports whether the pixel at (x, y) is an edge. Out-of-range coordinates
// are never edges.
func (m *EdgeMap) At(x, y int) bool {
	if x < 0 || x >= m.Width || y < 0 || y >= m.Height {
		return false
	}
	return m.Pixels[y][x]
}

// EdgeCount returns the total number of edge pixels.
func (m *EdgeMap) EdgeCount() int {
	count := 0
	for y := 0; y < m.Height; y++ {
		for x := 0; x < m.Width; x++ {
			if m.Pixels[y][x] {
				count++
			}
		}
	}
	return count
}

// DetectEdges performs Canny-style edge detection on an image.
//
// The output marks the boundaries between regions, which for a trunk photo
// against a contrasting background traces the trunk silhouette. The result
// is fully determined by the input pixels and options; repeated calls yield
// identical maps.
//
// # Algorithm
//
//  1. Grayscale conversion: RGB -> luminance using ITU-R BT.601 weights
//     (0.299*R + 0.587*G + 0.114*B)
//
//  2. Gaussian blur: square kernel of the configured size to reduce noise,
//     sigma derived from the kernel size
//
//  3. Gradient computation: Sobel operators for X and Y gradients
//     magnitude = sqrt(Gx² + Gy²)
//     direction = atan2(Gy, Gx)
//
//  4. Non-maximum suppression: thin edges to 1-pixel width by keeping only
//     local maxima along the gradient direction
//
//  5. Hysteresis thresholding: magnitudes at or above ThresholdHigh seed
//     edges; magnitudes at or above ThresholdLow join when a chain of
//     adjacent weak pixels connects them to a seed
//
// # Threshold Selection
//
// Lower thresholds detect more edges but admit noise; higher thresholds
// produce cleaner silhouettes but may break faint boundaries. For trunk
// photos in daylight, 100/200 works well. For low-contrast bark against
// foliage, try 50/150.
func DetectEdges(img image.Image, opts EdgeOptions) *EdgeMap {
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	// Convert to grayscale
	gray := make([][]float64, height)
	for y := 0; y < height; y++ {
		gray[y] = make([]float64, width)
		for x := 0; x < width; x++ {
			r, g, b, _ := img.At(x+bounds.Min.X, y+bounds.Min.Y).RGBA()
			// Convert to 8-bit and compute luminance
			rf := float64(r>>8) / 255.0
			gf := float64(g>>8) / 255.0
			bf := float64(b>>8) / 255.0
			gray[y][x] = 0.299*rf + 0.587*gf + 0.114*bf
		}
	}

	// Apply Gaussian blur to reduce noise
	blurred := gaussianBlur(gray, width, height, gaussianKernel(oddKernelSize(opts.BlurKernelSize)))

	// Compute gradients using Sobel operator
	magnitude := make([][]float64, height)
	direction := make([][]float64, height)

	sobelX := [][]float64{
		{-1, 0, 1},
		{-2, 0, 2},
		{-1, 0, 1},
	}
	sobelY := [][]float64{
		{-1, -2, -1},
		{0, 0, 0},
		{1, 2, 1},
	}

	for y := 0; y < height; y++ {
		magnitude[y] = make([]float64, width)
		direction[y] = make([]float64, width)

		for x := 0; x < width; x++ {
			var gx, gy float64
			for ky := -1; ky <= 1; ky++ {
				for kx := -1; kx <= 1; kx++ {
					py := clamp(y+ky, 0, height-1)
					px := clamp(x+kx, 0, width-1)
					gx += blurred[py][px] * sobelX[ky+1][kx+1]
					gy += blurred[py][px] * sobelY[ky+1][kx+1]
				}
			}
			magnitude[y][x] = math.Sqrt(gx*gx + gy*gy)
			direction[y][x] = math.Atan2(gy, gx)
		}
	}

	// Non-maximum suppression
	suppressed := make([][]float64, height)
	for y := 0; y < height; y++ {
		suppressed[y] = make([]float64, width)
		for x := 0; x < width; x++ {
			if y == 0 || y == height-1 || x == 0 || x == width-1 {
				continue
			}

			angle := direction[y][x]
			mag := magnitude[y][x]

			// Determine neighbors to compare based on gradient direction
			var n1, n2 float64
			if (angle >= -math.Pi/8 && angle < math.Pi/8) || (angle >= 7*math.Pi/8 || angle < -7*math.Pi/8) {
				n1 = magnitude[y][x-1]
				n2 = magnitude[y][x+1]
			} else if (angle >= math.Pi/8 && angle < 3*math.Pi/8) || (angle >= -7*math.Pi/8 && angle < -5*math.Pi/8) {
				n1 = magnitude[y-1][x+1]
				n2 = magnitude[y+1][x-1]
			} else if (angle >= 3*math.Pi/8 && angle < 5*math.Pi/8) || (angle >= -5*math.Pi/8 && angle < -3*math.Pi/8) {
				n1 = magnitude[y-1][x]
				n2 = magnitude[y+1][x]
			} else {
				n1 = magnitude[y-1][x-1]
				n2 = magnitude[y+1][x+1]
			}

			if mag >= n1 && mag >= n2 {
				suppressed[y][x] = mag
			}
		}
	}

	// Double threshold and edge tracking by hysteresis. Strong pixels seed a
	// breadth-first walk; weak pixels join when a chain of adjacent weak
	// pixels reaches back to a seed.
	lowThresh := float64(opts.ThresholdLow) / 255.0
	highThresh := float64(opts.ThresholdHigh) / 255.0

	edges := make([][]bool, height)
	for y := 0; y < height; y++ {
		edges[y] = make([]bool, width)
	}

	type coord struct{ x, y int }
	queue := make([]coord, 0, width+height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if suppressed[y][x] >= highThresh {
				edges[y][x] = true
				queue = append(queue, coord{x, y})
			}
		}
	}

	for len(queue) > 0 {
		c := queue[0]
		queue = queue[1:]
		for ky := -1; ky <= 1; ky++ {
			for kx := -1; kx <= 1; kx++ {
				px := c.x + kx
				py := c.y + ky
				if px < 0 || px >= width || py < 0 || py >= height {
					continue
				}
				if edges[py][px] || suppressed[py][px] < lowThresh {
					continue
				}
				edges[py][px] = true
				queue = append(queue, coord{px, py})
			}
		}
	}

	return &EdgeMap{Width: width, Height: height, Pixels: edges}
}

// oddKernelSize normalizes a configured kernel size to a positive odd value.
func oddKernelSize(size int) int {
	if size < 1 {
		return 1
	}
	if size%2 == 0 {
		return size + 1
	}
	return size
}

// gaussianKernel builds a normalized size×size Gaussian kernel. Sigma is
// derived from the kernel size as 0.3*((size-1)*0.5 - 1) + 0.8, the same
// relation OpenCV applies when no sigma is given, so a size-5 kernel here
// smooths like a size-5 kernel there.
func gaussianKernel(size int) [][]float64 {
	sigma := 0.3*((float64(size)-1)*0.5-1) + 0.8

	kernel := make([][]float64, size)
	half := size / 2
	var sum float64
	for ky := 0; ky < size; ky++ {
		kernel[ky] = make([]float64, size)
		for kx := 0; kx < size; kx++ {
			dx := float64(kx - half)
			dy := float64(ky - half)
			v := math.Exp(-(dx*dx + dy*dy) / (2 * sigma * sigma))
			kernel[ky][kx] = v
			sum += v
		}
	}
	for ky := 0; ky < size; ky++ {
		for kx := 0; kx < size; kx++ {
			kernel[ky][kx] /= sum
		}
	}
	return kernel
}

// gaussianBlur convolves the image with a pre-normalized kernel.
// Border pixels use clamped (replicated) edge values.
func gaussianBlur(img [][]float64, width, height int, kernel [][]float64) [][]float64 {
	half := len(kernel) / 2

	result := make([][]float64, height)
	for y := 0; y < height; y++ {
		result[y] = make([]float64, width)
		for x := 0; x < width; x++ {
			var sum float64
			for ky := -half; ky <= half; ky++ {
				for kx := -half; kx <= half; kx++ {
					py := clamp(y+ky, 0, height-1)
					px := clamp(x+kx, 0, width-1)
					sum += img[py][px] * kernel[ky+half][kx+half]
				}
			}
			result[y][x] = sum
		}
	}
	return result
}

// clamp constrains an integer value to the range [min, max].
// Used for boundary handling in convolution operations.
func clamp(val, min, max int) int {
	if val < min {
		return min
	}
	if val > max {
		return max
	}
	return val
}
