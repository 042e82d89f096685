package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tilak559/gutter-estimate/internal/model"
)

type stubService struct {
	report *model.Report
	err    error
}

func (s *stubService) Estimate(ctx context.Context, address string) (*model.Report, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.report, nil
}

func testRouter(t *testing.T, svc estimateService) (http.Handler, string) {
	t.Helper()
	dir := t.TempDir()
	return newRouter(svc, dir, []string{"*"}), dir
}

func TestServe_Health(t *testing.T) {
	router, _ := testRouter(t, &stubService{})

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))

	var body map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
}

func TestServe_EstimateSuccess(t *testing.T) {
	svc := &stubService{report: &model.Report{
		ID:      "est-1",
		Success: true,
		Address: "123 Main St, Austin, TX 78701, USA",
		GutterEstimate: model.GutterEstimate{
			TotalGutterFt:      154.0,
			DownspoutsEstimate: 5,
			RoofType:           model.RoofTypeGable,
		},
	}}
	router, _ := testRouter(t, svc)

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/estimate",
		strings.NewReader(`{"address":"123 Main St, Austin, TX"}`))
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var report model.Report
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &report))
	assert.True(t, report.Success)
	assert.Equal(t, "est-1", report.ID)
	assert.InDelta(t, 154.0, report.GutterEstimate.TotalGutterFt, 1e-9)
	assert.Equal(t, 5, report.GutterEstimate.DownspoutsEstimate)
}

func TestServe_EstimateErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantKind   string
	}{
		{"address not found", model.NewAddressNotFound(eris.New("no match")), http.StatusNotFound, "address_not_found"},
		{"imagery unavailable", model.NewImageryUnavailable(eris.New("no layers")), http.StatusServiceUnavailable, "imagery_unavailable"},
		{"geometry error", model.NewGeometryError(eris.New("degenerate ring")), http.StatusUnprocessableEntity, "geometry_error"},
		{"internal", eris.New("boom"), http.StatusInternalServerError, "internal_error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router, _ := testRouter(t, &stubService{err: tt.err})

			rr := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/api/estimate",
				strings.NewReader(`{"address":"123 Main St"}`))
			router.ServeHTTP(rr, req)

			assert.Equal(t, tt.wantStatus, rr.Code)
			var body struct {
				Success bool   `json:"success"`
				Kind    string `json:"kind"`
				Error   string `json:"error"`
			}
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
			assert.False(t, body.Success)
			assert.Equal(t, tt.wantKind, body.Kind)
			assert.NotEmpty(t, body.Error)
		})
	}
}

func TestServe_EstimateBadRequests(t *testing.T) {
	router, _ := testRouter(t, &stubService{})

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/estimate", strings.NewReader("{not json")))
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/estimate", strings.NewReader(`{"address":""}`)))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestServe_ImagesServed(t *testing.T) {
	router, dir := testRouter(t, &stubService{})
	require.NoError(t, os.WriteFile(filepath.Join(dir, "rgb_1.png"), []byte("png-bytes"), 0o644))

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/images/rgb_1.png", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "png-bytes", rr.Body.String())
}

func TestServe_ImagesMissing(t *testing.T) {
	router, _ := testRouter(t, &stubService{})

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/images/nope.png", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestServe_ImagesPathTraversalRejected(t *testing.T) {
	router, dir := testRouter(t, &stubService{})

	// A file outside the images dir must not be reachable.
	secret := filepath.Join(filepath.Dir(dir), "secret.txt")
	require.NoError(t, os.WriteFile(secret, []byte("secret"), 0o644))

	for _, path := range []string{
		"/api/images/..%2Fsecret.txt",
		"/api/images/.hidden",
	} {
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
		assert.NotEqual(t, http.StatusOK, rr.Code, "path %s must be rejected", path)
		assert.NotEqual(t, "secret", rr.Body.String())
	}
}
