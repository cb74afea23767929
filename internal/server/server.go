// Package server implements the HTTP API around the resampling
// pipeline: a health endpoint and a resample endpoint accepting jobs
// that reference rasters on the local filesystem.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kiesman99/regrid/internal/pipeline"
	"github.com/kiesman99/regrid/pkg/raster"
)

// Runner runs one resample job. *pipeline.Pipeline implements it; tests
// substitute a fake.
type Runner interface {
	Run(ctx context.Context, opts pipeline.Options) (*pipeline.Report, error)
}

// HealthResponse is the payload of GET /health.
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Uptime    int       `json:"uptime"`
	Version   string    `json:"version"`
}

// ResampleRequest is the payload of POST /resample.
type ResampleRequest struct {
	SourcePath       string  `json:"source_path"`
	OutputPath       string  `json:"output_path"`
	NamingScheme     string  `json:"naming_scheme,omitempty"`
	TargetResolution float64 `json:"target_resolution,omitempty"`
	ResamplingMethod string  `json:"resampling_method,omitempty"`
	Resampler        string  `json:"resampler,omitempty"`
	Workers          int     `json:"workers,omitempty"`
}

// SubdatasetFailure reports one isolated subdataset failure.
type SubdatasetFailure struct {
	Index int    `json:"index"`
	Path  string `json:"path"`
	Error string `json:"error"`
}

// ResampleResponse reports the outcome of a resample job.
type ResampleResponse struct {
	Written  []pipeline.WrittenRaster `json:"written"`
	Failures []SubdatasetFailure      `json:"failures"`
}

// ErrorResponse is the standard error payload.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// Server implements the HTTP handlers.
type Server struct {
	startTime time.Time
	version   string
	runner    Runner
}

// NewServer creates a new server instance.
func NewServer(version string, runner Runner) *Server {
	return &Server{
		startTime: time.Now(),
		version:   version,
		runner:    runner,
	}
}

// Routes registers the API endpoints on r.
func (s *Server) Routes(r chi.Router) {
	r.Get("/health", s.GetHealth)
	r.Post("/resample", s.CreateResample)
}

// GetHealth implements the health check endpoint
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	response := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now(),
		Uptime:    int(time.Since(s.startTime).Seconds()),
		Version:   s.version,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	if err := json.NewEncoder(w).Encode(response); err != nil {
		log.Printf("Error encoding health response: %v", err)
	}
}

// CreateResample implements the resample endpoint
func (s *Server) CreateResample(w http.ResponseWriter, r *http.Request) {
	var req ResampleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeErrorResponse(w, http.StatusBadRequest, "INVALID_JSON",
			"Invalid JSON in request body")
		return
	}

	opts, err := s.convertToPipelineOptions(&req)
	if err != nil {
		s.writeErrorResponse(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}

	// Reject missing sources before any raster work happens.
	if _, err := os.Stat(req.SourcePath); err != nil {
		s.writeErrorResponse(w, http.StatusNotFound, "SOURCE_NOT_FOUND",
			fmt.Sprintf("file %s not found", req.SourcePath))
		return
	}

	report, err := s.runner.Run(r.Context(), *opts)
	if err != nil {
		s.handleResampleError(w, err)
		return
	}

	response := ResampleResponse{
		Written:  report.Written,
		Failures: make([]SubdatasetFailure, 0, len(report.Failures)),
	}
	for _, f := range report.Failures {
		response.Failures = append(response.Failures, SubdatasetFailure{
			Index: f.Index,
			Path:  f.Path,
			Error: f.Err.Error(),
		})
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		log.Printf("Error writing response: %v", err)
	}
}

// convertToPipelineOptions validates the request and applies defaults.
func (s *Server) convertToPipelineOptions(req *ResampleRequest) (*pipeline.Options, error) {
	if req.SourcePath == "" {
		return nil, fmt.Errorf("source_path is required")
	}
	if req.OutputPath == "" {
		return nil, fmt.Errorf("output_path is required")
	}

	targetRes := req.TargetResolution
	if targetRes == 0 {
		targetRes = 10
	}
	if targetRes < 0 {
		return nil, fmt.Errorf("target_resolution must be positive")
	}

	method := req.ResamplingMethod
	if method == "" {
		method = "nearest"
	}
	policy, err := raster.ParsePolicy(method)
	if err != nil {
		return nil, err
	}

	resampler := req.Resampler
	if resampler == "" {
		resampler = "fixed-nearest"
	}
	strategy, err := raster.ParseStrategy(resampler)
	if err != nil {
		return nil, err
	}

	return &pipeline.Options{
		SourcePath:       req.SourcePath,
		OutputPath:       req.OutputPath,
		NamingScheme:     req.NamingScheme,
		TargetResolution: targetRes,
		Policy:           policy,
		Strategy:         strategy,
		Workers:          req.Workers,
	}, nil
}

// handleResampleError maps pipeline errors to HTTP responses.
func (s *Server) handleResampleError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, raster.ErrFileNotFound):
		s.writeErrorResponse(w, http.StatusNotFound, "SOURCE_NOT_FOUND", err.Error())
	case errors.Is(err, raster.ErrNoSubdatasets):
		s.writeErrorResponse(w, http.StatusUnprocessableEntity, "NO_SUBDATASETS", err.Error())
	case errors.Is(err, raster.ErrUnreadableFormat):
		s.writeErrorResponse(w, http.StatusUnprocessableEntity, "UNREADABLE_FORMAT", err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		s.writeErrorResponse(w, http.StatusGatewayTimeout, "TIMEOUT", "resample job timed out")
	default:
		s.writeErrorResponse(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error")
	}
}

// writeErrorResponse writes a standard error response
func (s *Server) writeErrorResponse(w http.ResponseWriter, statusCode int, errorCode, message string) {
	response := ErrorResponse{
		Error:   errorCode,
		Message: message,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(response)
}
