package server

import (
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/arborworks/tree-census/internal/allometry"
	"github.com/arborworks/tree-census/internal/census"
	"github.com/arborworks/tree-census/internal/measure"
)

// ANSI escape codes for request log coloring.
const (
	colorCyan      = "\033[36m"
	colorYellow    = "\033[33m"
	colorBoldGreen = "\033[1;32m"
	colorBoldRed   = "\033[1;31m"
	colorReset     = "\033[0m"
)

// Server exposes the measurement pipeline over HTTP.
type Server struct {
	measurer *measure.Measurer
	registry *allometry.Registry
	store    *census.Store
}

// NewServer builds the API server. store may be nil, which disables census
// recording; measurement endpoints work either way.
func NewServer(measurer *measure.Measurer, registry *allometry.Registry, store *census.Store) *Server {
	return &Server{
		measurer: measurer,
		registry: registry,
		store:    store,
	}
}

// ServeMux routes the API endpoints.
func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/qc", s.handleMeasure)
	mux.HandleFunc("/qc/inspect", s.handleInspect)
	mux.HandleFunc("/species", s.handleSpecies)
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/census/measurements", s.handleCensusMeasurements)
	mux.HandleFunc("/census/stats", s.handleCensusStats)
	return mux
}

// Handler wraps the routes with the middleware stack: request logging on the
// outside, CORS inside it so preflight responses are logged too.
func (s *Server) Handler() http.Handler {
	return LoggingMiddleware(CORSMiddleware(s.ServeMux()))
}

// CORSMiddleware allows cross-origin requests from any origin. The QC tool
// is driven from field laptops on ad hoc addresses, so the origin cannot be
// pinned down.
func CORSMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func statusCodeColor(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return colorBoldGreen + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 300 && statusCode < 400:
		return colorYellow + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 400:
		return colorBoldRed + strconv.Itoa(statusCode) + colorReset
	default:
		return strconv.Itoa(statusCode)
	}
}

// LoggingMiddleware logs method, path, status, and duration for every request.
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{w, http.StatusOK}
		next.ServeHTTP(lrw, r)
		log.Printf(
			"[%s] %s %s%s%s %vms",
			statusCodeColor(lrw.statusCode), r.Method,
			colorCyan, r.RequestURI, colorReset,
			float64(time.Since(start).Nanoseconds())/1e6,
		)
	})
}
