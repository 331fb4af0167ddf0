package measure

import (
	"image/color"

	"github.com/arborworks/tree-census/internal/detection"
	"github.com/arborworks/tree-census/internal/imaging"
)

// Inspection reports per-stage diagnostics for one photo instead of a
// measurement. Field crews use it to calibrate edge thresholds: a blank
// edge map or a trunk contour that is obviously foliage shows up here long
// before anyone wonders why a 40 cm oak reported 3 cm.
type Inspection struct {
	ImageWidth  int                   `json:"image_width"`
	ImageHeight int                   `json:"image_height"`
	Quality     imaging.QualityReport `json:"quality"`

	// EdgePixels counts the set pixels in the edge map; ContourCount is the
	// number of closed boundaries traced from them.
	EdgePixels   int `json:"edge_pixels"`
	ContourCount int `json:"contour_count"`

	// TrunkFound reports whether any contour was selected. When false the
	// remaining fields are zero and a measurement of this photo would fail
	// with detection.ErrNoContour.
	TrunkFound      bool              `json:"trunk_found"`
	ContourVertices int               `json:"contour_vertices,omitempty"`
	ContourArea     float64           `json:"contour_area,omitempty"`
	EnclosingCircle *detection.Circle `json:"enclosing_circle,omitempty"`
	PixelDiameter   float64           `json:"pixel_diameter,omitempty"`

	// EdgeMap is the rendered edge map with the fitted circle drawn in,
	// included only on request.
	EdgeMap *imaging.EdgeOverlay `json:"edge_map,omitempty"`
}

// Inspect runs the pipeline stages on the photo at imagePath and reports
// what each one saw.
//
// Unlike Measure, finding no contour is not a failure here; the point of
// the diagnostics is to show the zero. Only the Loading stage can fail.
func (m *Measurer) Inspect(imagePath string, includeEdgeMap bool) (*Inspection, error) {
	img, err := imaging.LoadImage(imagePath)
	if err != nil {
		return nil, &StageError{Stage: StageLoading, Err: err}
	}

	edges := imaging.DetectEdges(img, m.edgeOptions())
	contours := detection.TraceContours(edges)

	insp := &Inspection{
		ImageWidth:   img.Bounds().Dx(),
		ImageHeight:  img.Bounds().Dy(),
		Quality:      imaging.AssessQuality(img),
		EdgePixels:   edges.EdgeCount(),
		ContourCount: len(contours),
	}

	var circle detection.Circle
	if best, ok := detection.Largest(contours); ok {
		circle = detection.EnclosingCircle(best)
		insp.TrunkFound = true
		insp.ContourVertices = len(best.Points)
		insp.ContourArea = best.Area()
		insp.EnclosingCircle = &circle
		insp.PixelDiameter = circle.Diameter()
	}

	if includeEdgeMap {
		rendered := imaging.RenderEdgeMap(edges)
		if insp.TrunkFound {
			imaging.DrawCircle(rendered, circle.X, circle.Y, circle.Radius, color.RGBA{R: 255, A: 255})
		}
		overlay, err := imaging.EncodeOverlay(rendered)
		if err != nil {
			return nil, err
		}
		insp.EdgeMap = overlay
	}

	return insp, nil
}
