// Package server exposes the tree measurement pipeline as a JSON HTTP API.
//
// The API is the quality-control surface field crews hit after photographing
// a trunk: submit the photo's path, get back the calibrated estimates or a
// specific reason the photo was unusable.
//
// # Endpoints
//
// Measurement:
//   - POST /qc: body {"image_path": "...", "species": "..."}. Species is
//     optional and defaults to the registry's Default entry. Success returns
//     {"dbh", "girth", "height", "canopy"} rounded to one decimal place
//     (dbh and girth in centimeters, height and canopy in meters).
//   - POST /qc/inspect: same body plus optional "include_edge_map". Returns
//     per-stage diagnostics (image dimensions, quality advisory, edge pixel
//     count, contour count, fitted circle) instead of a measurement, and the
//     rendered edge map as base64 PNG when requested.
//
// Reference:
//   - GET /species: registry contents, {"species": [...], "coefficients": {...}}.
//   - GET /health: liveness probe.
//
// Census (404 unless a database is configured):
//   - GET /census/measurements?limit=N: recorded measurements, newest first.
//   - GET /census/stats: per-species DBH rollups.
//
// # Error Handling
//
// Every error is {"error": "..."}. Pipeline failures map to fixed strings
// clients match on:
//   - "No image_path provided" (empty or unreadable request body)
//   - "Image not found: <path>"
//   - "Failed to load image"
//   - "No trunk contour found in image"
//
// All four return HTTP 400; the photo, not the service, is at fault.
//
// # Middleware
//
// Handler wraps the mux with request logging (colored status codes, duration)
// and permissive CORS, in that order. OPTIONS preflight requests short-circuit
// with 204.
//
// # Usage
//
//	srv := server.NewServer(measurer, registry, store)
//	http.ListenAndServe(addr, srv.Handler())
package server
