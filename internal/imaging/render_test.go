package imaging

import (
	"encoding/base64"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"
)

func newTestEdgeMap(width, height int) *EdgeMap {
	pixels := make([][]bool, height)
	for y := range pixels {
		pixels[y] = make([]bool, width)
	}
	return &EdgeMap{Width: width, Height: height, Pixels: pixels}
}

func TestRenderEdgeMap(t *testing.T) {
	m := newTestEdgeMap(8, 6)
	m.Pixels[3][2] = true

	img := RenderEdgeMap(m)

	if img.Bounds().Dx() != 8 || img.Bounds().Dy() != 6 {
		t.Errorf("dimensions: got %dx%d, want 8x6", img.Bounds().Dx(), img.Bounds().Dy())
	}

	r, g, b, _ := img.At(2, 3).RGBA()
	if r>>8 != 255 || g>>8 != 255 || b>>8 != 255 {
		t.Errorf("edge pixel: got (%d,%d,%d), want white", r>>8, g>>8, b>>8)
	}

	r, g, b, a := img.At(0, 0).RGBA()
	if r != 0 || g != 0 || b != 0 || a>>8 != 255 {
		t.Errorf("background pixel: got (%d,%d,%d,%d), want opaque black", r>>8, g>>8, b>>8, a>>8)
	}
}

func TestDrawCircle(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 41, 41))
	red := color.RGBA{255, 0, 0, 255}

	DrawCircle(img, 20, 20, 10, red)

	// Rightmost point of the circumference is painted
	if r, _, _, _ := img.At(30, 20).RGBA(); r>>8 != 255 {
		t.Error("circumference point (30,20) not painted")
	}
	// Center stays untouched
	if r, _, _, _ := img.At(20, 20).RGBA(); r != 0 {
		t.Error("center should not be painted for a positive radius")
	}
}

func TestDrawCircle_DegenerateMarksCenter(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 41, 41))
	red := color.RGBA{255, 0, 0, 255}

	DrawCircle(img, 20, 20, 0, red)

	if r, _, _, _ := img.At(20, 20).RGBA(); r>>8 != 255 {
		t.Error("zero radius should mark the center")
	}
	if r, _, _, _ := img.At(30, 20).RGBA(); r != 0 {
		t.Error("zero radius should not paint a circumference")
	}
}

func TestDrawCircle_OutOfBounds(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 10, 10))

	// Circle mostly outside the image must clip, not panic
	DrawCircle(img, -5, -5, 8, color.RGBA{255, 0, 0, 255})
	DrawCircle(img, 5, 5, 100, color.RGBA{255, 0, 0, 255})
}

func TestEncodeOverlay(t *testing.T) {
	m := newTestEdgeMap(12, 9)
	m.Pixels[4][6] = true

	overlay, err := EncodeOverlay(RenderEdgeMap(m))
	if err != nil {
		t.Fatalf("EncodeOverlay failed: %v", err)
	}

	if overlay.Width != 12 || overlay.Height != 9 {
		t.Errorf("dimensions: got %dx%d, want 12x9", overlay.Width, overlay.Height)
	}
	if overlay.MimeType != "image/png" {
		t.Errorf("MimeType: got %s, want image/png", overlay.MimeType)
	}

	decoded, err := base64.StdEncoding.DecodeString(overlay.ImageBase64)
	if err != nil {
		t.Fatalf("failed to decode base64: %v", err)
	}

	img, err := png.Decode(strings.NewReader(string(decoded)))
	if err != nil {
		t.Fatalf("failed to decode PNG: %v", err)
	}

	if img.Bounds().Dx() != 12 || img.Bounds().Dy() != 9 {
		t.Errorf("decoded dimensions: got %dx%d, want 12x9",
			img.Bounds().Dx(), img.Bounds().Dy())
	}
	if r, _, _, _ := img.At(6, 4).RGBA(); r>>8 != 255 {
		t.Error("edge pixel lost in the encoded overlay")
	}
}
