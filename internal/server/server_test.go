package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/kiesman99/regrid/internal/pipeline"
	"github.com/kiesman99/regrid/pkg/raster"
)

// fakeRunner substitutes the GDAL-backed pipeline in tests.
type fakeRunner struct {
	report  *pipeline.Report
	err     error
	lastRun *pipeline.Options
}

func (f *fakeRunner) Run(ctx context.Context, opts pipeline.Options) (*pipeline.Report, error) {
	f.lastRun = &opts
	if f.err != nil {
		return nil, f.err
	}
	return f.report, nil
}

// Test server setup
func setupTestServer(runner Runner) *httptest.Server {
	r := chi.NewRouter()

	// Add middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.Timeout(30 * time.Second))

	apiServer := NewServer("1.0.0-test", runner)

	// Mount API routes at /api/v1
	r.Route("/api/v1", func(r chi.Router) {
		apiServer.Routes(r)
	})

	return httptest.NewServer(r)
}

// tempSource creates an empty stand-in source file so the existence
// check passes.
func tempSource(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scene.xml")
	if err := os.WriteFile(path, []byte("<scene/>"), 0o644); err != nil {
		t.Fatalf("Failed to create temp source: %v", err)
	}
	return path
}

func postResample(t *testing.T, url string, req ResampleRequest) *http.Response {
	t.Helper()
	body, err := json.Marshal(req)
	if err != nil {
		t.Fatalf("Failed to marshal request: %v", err)
	}
	resp, err := http.Post(url+"/api/v1/resample", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("Failed to make request: %v", err)
	}
	return resp
}

func TestHealthEndpoint(t *testing.T) {
	server := setupTestServer(&fakeRunner{})
	defer server.Close()

	resp, err := http.Get(server.URL + "/api/v1/health")
	if err != nil {
		t.Fatalf("Failed to make request: %v", err)
	}
	defer resp.Body.Close()

	// Check status code
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200, got %d", resp.StatusCode)
	}

	// Check content type
	contentType := resp.Header.Get("Content-Type")
	if contentType != "application/json" {
		t.Errorf("Expected Content-Type application/json, got %s", contentType)
	}

	// Parse response
	var healthResp HealthResponse
	if err := json.NewDecoder(resp.Body).Decode(&healthResp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}

	// Validate response
	if healthResp.Status != "healthy" {
		t.Errorf("Expected status 'healthy', got %s", healthResp.Status)
	}

	if healthResp.Version != "1.0.0-test" {
		t.Errorf("Expected version '1.0.0-test', got %s", healthResp.Version)
	}

	if healthResp.Uptime < 0 {
		t.Errorf("Expected valid uptime, got %d", healthResp.Uptime)
	}

	// Check timestamp is recent
	if time.Since(healthResp.Timestamp) > time.Minute {
		t.Errorf("Timestamp seems too old: %v", healthResp.Timestamp)
	}
}

func TestResampleEndpoint_Success(t *testing.T) {
	runner := &fakeRunner{
		report: &pipeline.Report{
			Written: []pipeline.WrittenRaster{
				{Index: 0, Path: "/out/output_0.tiff", Width: 5490, Height: 5490, Count: 4},
				{Index: 2, Path: "/out/output_2.tiff", Width: 5490, Height: 5490, Count: 4},
			},
			Failures: []*pipeline.SubdatasetError{
				{Index: 1, Path: "SENTINEL2:scene.xml:1", Err: raster.ErrShapeMismatch},
			},
		},
	}
	server := setupTestServer(runner)
	defer server.Close()

	resp := postResample(t, server.URL, ResampleRequest{
		SourcePath:       tempSource(t),
		OutputPath:       t.TempDir(),
		TargetResolution: 10,
		ResamplingMethod: "bilinear",
		Resampler:        "policy-aware",
	})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", resp.StatusCode)
	}

	var result ResampleResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}

	if len(result.Written) != 2 {
		t.Errorf("Expected 2 written rasters, got %d", len(result.Written))
	}
	if len(result.Failures) != 1 || result.Failures[0].Index != 1 {
		t.Errorf("Expected failure for subdataset 1, got %v", result.Failures)
	}

	if runner.lastRun == nil {
		t.Fatal("Runner was not invoked")
	}
	if runner.lastRun.Policy != raster.Bilinear || runner.lastRun.Strategy != raster.PolicyAware {
		t.Errorf("Options not converted: policy=%v strategy=%v", runner.lastRun.Policy, runner.lastRun.Strategy)
	}
}

func TestResampleEndpoint_Defaults(t *testing.T) {
	runner := &fakeRunner{report: &pipeline.Report{}}
	server := setupTestServer(runner)
	defer server.Close()

	resp := postResample(t, server.URL, ResampleRequest{
		SourcePath: tempSource(t),
		OutputPath: t.TempDir(),
	})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", resp.StatusCode)
	}

	if runner.lastRun.TargetResolution != 10 {
		t.Errorf("Default target resolution = %v, want 10", runner.lastRun.TargetResolution)
	}
	if runner.lastRun.Policy != raster.NearestNeighbor {
		t.Errorf("Default policy = %v, want nearest", runner.lastRun.Policy)
	}
	if runner.lastRun.Strategy != raster.FixedNearest {
		t.Errorf("Default strategy = %v, want fixed-nearest", runner.lastRun.Strategy)
	}
}

func TestResampleEndpoint_ValidationErrors(t *testing.T) {
	tests := []struct {
		name string
		req  ResampleRequest
	}{
		{"missing source path", ResampleRequest{OutputPath: "/out"}},
		{"missing output path", ResampleRequest{SourcePath: "/in.xml"}},
		{"negative resolution", ResampleRequest{SourcePath: "/in.xml", OutputPath: "/out", TargetResolution: -5}},
		{"unknown method", ResampleRequest{SourcePath: "/in.xml", OutputPath: "/out", ResamplingMethod: "lanczos"}},
		{"unknown resampler", ResampleRequest{SourcePath: "/in.xml", OutputPath: "/out", Resampler: "gpu"}},
	}

	server := setupTestServer(&fakeRunner{report: &pipeline.Report{}})
	defer server.Close()

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := postResample(t, server.URL, tt.req)
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusBadRequest {
				t.Errorf("Expected status 400, got %d", resp.StatusCode)
			}

			var errResp ErrorResponse
			if err := json.NewDecoder(resp.Body).Decode(&errResp); err != nil {
				t.Fatalf("Failed to decode error response: %v", err)
			}
			if errResp.Error != "VALIDATION_ERROR" {
				t.Errorf("Expected VALIDATION_ERROR, got %s", errResp.Error)
			}
		})
	}
}

func TestResampleEndpoint_InvalidJSON(t *testing.T) {
	server := setupTestServer(&fakeRunner{})
	defer server.Close()

	resp, err := http.Post(server.URL+"/api/v1/resample", "application/json", bytes.NewReader([]byte("{not json")))
	if err != nil {
		t.Fatalf("Failed to make request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", resp.StatusCode)
	}
}

func TestResampleEndpoint_SourceNotFound(t *testing.T) {
	server := setupTestServer(&fakeRunner{report: &pipeline.Report{}})
	defer server.Close()

	resp := postResample(t, server.URL, ResampleRequest{
		SourcePath: "/does/not/exist.xml",
		OutputPath: "/out",
	})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", resp.StatusCode)
	}
}

func TestResampleEndpoint_NoSubdatasets(t *testing.T) {
	runner := &fakeRunner{err: fmt.Errorf("scene.xml: %w", raster.ErrNoSubdatasets)}
	server := setupTestServer(runner)
	defer server.Close()

	resp := postResample(t, server.URL, ResampleRequest{
		SourcePath: tempSource(t),
		OutputPath: t.TempDir(),
	})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("Expected status 422, got %d", resp.StatusCode)
	}

	var errResp ErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&errResp); err != nil {
		t.Fatalf("Failed to decode error response: %v", err)
	}
	if errResp.Error != "NO_SUBDATASETS" {
		t.Errorf("Expected NO_SUBDATASETS, got %s", errResp.Error)
	}
}
