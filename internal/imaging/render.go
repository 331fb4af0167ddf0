package imaging

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"math"
)

// EdgeOverlay is a rendered inspection image encoded as base64 PNG.
type EdgeOverlay struct {
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	ImageBase64 string `json:"image_base64"`
	MimeType    string `json:"mime_type"`
}

// RenderEdgeMap rasterizes an edge map for inspection: edge pixels white on
// an opaque black background.
func RenderEdgeMap(m *EdgeMap) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, m.Width, m.Height))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.Black), image.Point{}, draw.Src)

	white := color.RGBA{255, 255, 255, 255}
	for y := 0; y < m.Height; y++ {
		for x := 0; x < m.Width; x++ {
			if m.Pixels[y][x] {
				img.Set(x, y, white)
			}
		}
	}
	return img
}

// DrawCircle marks a circle outline on the image. The center may be
// fractional; each sample is rounded to the nearest pixel and out-of-bounds
// samples are skipped. A non-positive radius marks the center with a small
// cross instead.
func DrawCircle(img *image.RGBA, cx, cy, radius float64, col color.Color) {
	bounds := img.Bounds()
	set := func(x, y int) {
		if x >= bounds.Min.X && x < bounds.Max.X && y >= bounds.Min.Y && y < bounds.Max.Y {
			img.Set(x, y, col)
		}
	}

	if radius <= 0 {
		px := int(math.Round(cx))
		py := int(math.Round(cy))
		for d := -3; d <= 3; d++ {
			set(px+d, py)
			set(px, py+d)
		}
		return
	}

	// Sample the circumference at half-pixel arc steps so the outline stays
	// connected at any radius.
	steps := int(math.Ceil(4 * math.Pi * radius))
	if steps < 16 {
		steps = 16
	}
	for i := 0; i < steps; i++ {
		theta := 2 * math.Pi * float64(i) / float64(steps)
		set(int(math.Round(cx+radius*math.Cos(theta))), int(math.Round(cy+radius*math.Sin(theta))))
	}
}

// EncodeOverlay encodes a rendered inspection image as base64 PNG.
func EncodeOverlay(img image.Image) (*EdgeOverlay, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode overlay image: %w", err)
	}

	bounds := img.Bounds()
	return &EdgeOverlay{
		Width:       bounds.Dx(),
		Height:      bounds.Dy(),
		ImageBase64: base64.StdEncoding.EncodeToString(buf.Bytes()),
		MimeType:    "image/png",
	}, nil
}
