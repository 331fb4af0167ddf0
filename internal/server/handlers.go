package server

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/arborworks/tree-census/internal/allometry"
	"github.com/arborworks/tree-census/internal/census"
	"github.com/arborworks/tree-census/internal/detection"
	"github.com/arborworks/tree-census/internal/httputil"
	"github.com/arborworks/tree-census/internal/imaging"
	"github.com/arborworks/tree-census/internal/measure"
	"github.com/arborworks/tree-census/internal/units"
)

// measureRequest is the body of POST /qc and POST /qc/inspect. Species and
// IncludeEdgeMap are optional; IncludeEdgeMap only applies to inspect.
type measureRequest struct {
	ImagePath      string `json:"image_path"`
	Species        string `json:"species"`
	IncludeEdgeMap bool   `json:"include_edge_map"`
}

// measureResponse is the QC payload: dbh and girth in centimeters, height
// and canopy in meters, all rounded to one decimal place.
type measureResponse struct {
	DBH    float64 `json:"dbh"`
	Girth  float64 `json:"girth"`
	Height float64 `json:"height"`
	Canopy float64 `json:"canopy"`
}

type speciesResponse struct {
	Species      []string                          `json:"species"`
	Coefficients map[string]allometry.Coefficients `json:"coefficients"`
}

// handleMeasure serves POST /qc: measure the trunk photo named in the body
// and return the rounded estimates.
func (s *Server) handleMeasure(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}

	var req measureRequest
	if err := httputil.DecodeJSON(r, &req); err != nil || req.ImagePath == "" {
		httputil.BadRequest(w, "No image_path provided")
		return
	}

	result, err := s.measurer.Measure(req.ImagePath, req.Species)
	if err != nil {
		httputil.BadRequest(w, measureErrorMessage(err, req.ImagePath))
		return
	}

	s.record(req.ImagePath, result)

	httputil.WriteJSON(w, http.StatusOK, measureResponse{
		DBH:    units.Round1(result.DBHCm),
		Girth:  units.Round1(result.GirthCm),
		Height: units.Round1(result.HeightM),
		Canopy: units.Round1(result.CanopyM),
	})
}

// handleInspect serves POST /qc/inspect: run the pipeline on the photo and
// return per-stage diagnostics instead of a measurement.
func (s *Server) handleInspect(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}

	var req measureRequest
	if err := httputil.DecodeJSON(r, &req); err != nil || req.ImagePath == "" {
		httputil.BadRequest(w, "No image_path provided")
		return
	}

	insp, err := s.measurer.Inspect(req.ImagePath, req.IncludeEdgeMap)
	if err != nil {
		var stageErr *measure.StageError
		if errors.As(err, &stageErr) {
			httputil.BadRequest(w, measureErrorMessage(err, req.ImagePath))
			return
		}
		httputil.InternalServerError(w, "Failed to render edge map")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, insp)
}

// handleSpecies serves GET /species: the registry contents, for client
// dropdowns and coefficient review.
func (s *Server) handleSpecies(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, speciesResponse{
		Species:      s.registry.Names(),
		Coefficients: s.registry.Table(),
	})
}

// handleHealth serves GET /health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "Tree Census QC Tool",
	})
}

// handleCensusMeasurements serves GET /census/measurements?limit=N, newest
// first.
func (s *Server) handleCensusMeasurements(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	if s.store == nil {
		httputil.NotFound(w, "census recording is not enabled")
		return
	}

	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 1 {
			httputil.BadRequest(w, "Invalid 'limit' parameter")
			return
		}
		limit = parsed
	}

	measurements, err := s.store.ListRecent(limit)
	if err != nil {
		log.Printf("failed to list census measurements: %v", err)
		httputil.InternalServerError(w, "Failed to retrieve measurements")
		return
	}
	if measurements == nil {
		measurements = []*census.Measurement{}
	}

	httputil.WriteJSON(w, http.StatusOK, measurements)
}

// handleCensusStats serves GET /census/stats: one DBH rollup per species.
func (s *Server) handleCensusStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	if s.store == nil {
		httputil.NotFound(w, "census recording is not enabled")
		return
	}

	summaries, err := s.store.SpeciesStats()
	if err != nil {
		log.Printf("failed to compute species stats: %v", err)
		httputil.InternalServerError(w, "Failed to compute species stats")
		return
	}
	if summaries == nil {
		summaries = []*census.SpeciesSummary{}
	}

	httputil.WriteJSON(w, http.StatusOK, summaries)
}

// measureErrorMessage maps a pipeline failure to the QC tool's client-facing
// error strings. Unmapped errors pass through as-is.
func measureErrorMessage(err error, imagePath string) string {
	switch {
	case errors.Is(err, imaging.ErrImageNotFound):
		return "Image not found: " + imagePath
	case errors.Is(err, imaging.ErrImageDecode):
		return "Failed to load image"
	case errors.Is(err, detection.ErrNoContour):
		return "No trunk contour found in image"
	}
	return err.Error()
}

// record persists a completed measurement when a census store is configured.
// Recording is best effort; a storage failure must not fail the request that
// produced the measurement.
func (s *Server) record(imagePath string, result *measure.Result) {
	if s.store == nil {
		return
	}

	m := &census.Measurement{
		ImagePath:     imagePath,
		Species:       result.Species,
		PixelDiameter: result.PixelDiameter,
		DBHCm:         result.DBHCm,
		GirthCm:       result.GirthCm,
		HeightM:       result.HeightM,
		CanopyM:       result.CanopyM,
	}
	if err := s.store.Insert(m); err != nil {
		log.Printf("failed to record census measurement for %s: %v", imagePath, err)
	}
}
