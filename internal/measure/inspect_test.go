package measure

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/arborworks/tree-census/internal/imaging"
)

func TestInspect_TrunkImage(t *testing.T) {
	path := writeTrunkPNG(t, 60)
	m := newTestMeasurer(t, testOptions())

	insp, err := m.Inspect(path, false)
	if err != nil {
		t.Fatalf("Inspect failed: %v", err)
	}

	if insp.ImageWidth != 150 || insp.ImageHeight != 150 {
		t.Errorf("dimensions: got %dx%d, want 150x150", insp.ImageWidth, insp.ImageHeight)
	}
	if insp.EdgePixels == 0 {
		t.Error("disc boundary produced no edge pixels")
	}
	if insp.ContourCount == 0 {
		t.Error("disc boundary produced no contours")
	}
	if !insp.TrunkFound {
		t.Fatal("trunk not found in a clean disc image")
	}
	if insp.ContourVertices < 3 {
		t.Errorf("contour vertices: got %d, want >= 3", insp.ContourVertices)
	}
	if insp.ContourArea <= 0 {
		t.Errorf("contour area: got %g, want > 0", insp.ContourArea)
	}
	if insp.EnclosingCircle == nil {
		t.Fatal("enclosing circle missing")
	}
	if got := insp.PixelDiameter; got < 110 || got > 130 {
		t.Errorf("pixel diameter: got %.2f, want ~120 for a radius-60 disc", got)
	}
	if insp.EdgeMap != nil {
		t.Error("edge map included without being requested")
	}
}

func TestInspect_IncludeEdgeMap(t *testing.T) {
	path := writeTrunkPNG(t, 40)
	m := newTestMeasurer(t, testOptions())

	insp, err := m.Inspect(path, true)
	if err != nil {
		t.Fatalf("Inspect failed: %v", err)
	}

	if insp.EdgeMap == nil {
		t.Fatal("edge map missing despite being requested")
	}
	if insp.EdgeMap.Width != insp.ImageWidth || insp.EdgeMap.Height != insp.ImageHeight {
		t.Errorf("edge map dimensions %dx%d do not match image %dx%d",
			insp.EdgeMap.Width, insp.EdgeMap.Height, insp.ImageWidth, insp.ImageHeight)
	}
	if insp.EdgeMap.MimeType != "image/png" {
		t.Errorf("MimeType: got %s, want image/png", insp.EdgeMap.MimeType)
	}
	if insp.EdgeMap.ImageBase64 == "" {
		t.Error("edge map payload is empty")
	}
}

func TestInspect_FeaturelessImage(t *testing.T) {
	path := writeUniformPNG(t)
	m := newTestMeasurer(t, testOptions())

	insp, err := m.Inspect(path, true)
	if err != nil {
		t.Fatalf("Inspect on a featureless image should diagnose, not fail: %v", err)
	}

	if insp.EdgePixels != 0 {
		t.Errorf("edge pixels: got %d, want 0", insp.EdgePixels)
	}
	if insp.ContourCount != 0 {
		t.Errorf("contour count: got %d, want 0", insp.ContourCount)
	}
	if insp.TrunkFound {
		t.Error("trunk reported found in a featureless image")
	}
	if insp.EnclosingCircle != nil {
		t.Errorf("enclosing circle: got %+v, want nil", insp.EnclosingCircle)
	}
	if insp.PixelDiameter != 0 {
		t.Errorf("pixel diameter: got %g, want 0", insp.PixelDiameter)
	}
	if !insp.Quality.LowContrast {
		t.Error("uniform gray should flag low contrast")
	}
	if insp.EdgeMap == nil {
		t.Error("blank edge map should still render when requested")
	}
}

func TestInspect_MissingFile(t *testing.T) {
	m := newTestMeasurer(t, testOptions())

	insp, err := m.Inspect(filepath.Join(t.TempDir(), "absent.png"), false)

	if insp != nil {
		t.Errorf("missing file returned diagnostics: %+v", insp)
	}
	if !errors.Is(err, imaging.ErrImageNotFound) {
		t.Errorf("want ErrImageNotFound, got %v", err)
	}

	var stageErr *StageError
	if !errors.As(err, &stageErr) {
		t.Fatalf("want *StageError, got %T", err)
	}
	if stageErr.Stage != StageLoading {
		t.Errorf("stage: got %q, want %q", stageErr.Stage, StageLoading)
	}
}
