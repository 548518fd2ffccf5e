package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/vsinha/forecast-recon/pkg/application/dto"
	"github.com/vsinha/forecast-recon/pkg/infrastructure/config"
	"github.com/vsinha/forecast-recon/pkg/infrastructure/container"
	"github.com/vsinha/forecast-recon/pkg/infrastructure/logging"
	"github.com/vsinha/forecast-recon/pkg/infrastructure/repositories/csv"
)

func newTestServer(t *testing.T, mutate func(*config.Config)) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dir := t.TempDir()
	forecast := "period,brand,series,supply,item_code,item_name,forecast_qty\n" +
		"2026-02,A,T60,X,C1-RED,Chair,1000\n" +
		"2026-02,A,S20,X,C2,Sofa,100\n" +
		"2026-02,B,K10,Y,C5,Lamp,300\n"
	actual := "period,item_code,actual_qty\n" +
		"2026-02,C1-RED,950\n" +
		"2026-02,C5,250\n" +
		"2026-02,C9,70\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, csv.ForecastFile), []byte(forecast), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, csv.ActualFile), []byte(actual), 0o644))

	cfg := config.Default()
	cfg.Source.ScenarioDir = dir
	cfg.Server.RateLimit = 0
	if mutate != nil {
		mutate(cfg)
	}
	require.NoError(t, cfg.Validate())

	app, err := container.New(context.Background(), cfg, logging.Discard())
	require.NoError(t, err)
	t.Cleanup(app.Close)
	return NewServer(app)
}

func do(s *Server, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func reload(t *testing.T, s *Server) {
	t.Helper()
	w := do(s, http.MethodPost, "/api/v1/dataset/reload", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func TestServer_NoDataLoaded(t *testing.T) {
	s := newTestServer(t, nil)

	w := do(s, http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, w.Code)
	var health HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &health))
	assert.False(t, health.DataLoaded)

	w = do(s, http.MethodPost, "/api/v1/query", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	var errResp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &errResp))
	assert.Equal(t, "source_unavailable", errResp.Kind)
	assert.NotEmpty(t, errResp.RequestID)
}

func TestServer_HealthReportsFailedReload(t *testing.T) {
	s := newTestServer(t, nil)
	reload(t, s)

	require.NoError(t, os.Remove(filepath.Join(s.app.Config.Source.ScenarioDir, csv.ActualFile)))
	w := do(s, http.MethodPost, "/api/v1/dataset/reload", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	w = do(s, http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, w.Code)
	var health HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &health))
	assert.Equal(t, "degraded", health.Status)
	assert.True(t, health.DataLoaded, "the previous dataset is still served")
	assert.NotEmpty(t, health.LastLoadError)

	w = do(s, http.MethodPost, "/api/v1/query", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestServer_ReloadAndQuery(t *testing.T) {
	s := newTestServer(t, nil)

	w := do(s, http.MethodPost, "/api/v1/dataset/reload", "")
	require.Equal(t, http.StatusOK, w.Code)
	var reloaded ReloadResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &reloaded))
	assert.NotEmpty(t, reloaded.DatasetVersion)
	assert.Equal(t, 3, reloaded.Normalization.ForecastKept)

	w = do(s, http.MethodPost, "/api/v1/query", `{"filter":{"brands":["A"]},"group_by":["series"],"sort":"rate_asc"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var result dto.QueryResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Equal(t, reloaded.DatasetVersion, result.DatasetVersion)
	assert.Equal(t, 2, result.MatchedRecords)
	require.Len(t, result.Buckets, 2)
	assert.Equal(t, "S20", result.Buckets[0].Key.Series)
	assert.Equal(t, 0.0, result.Buckets[0].AchievementRate)
	assert.Equal(t, 95.0, result.Buckets[1].AchievementRate)
	assert.Equal(t, dto.DefaultTopK, result.Query.TopK, "omitted fields keep their defaults")
	require.Len(t, result.OrphanActuals, 1)
}

func TestServer_QueryValidation(t *testing.T) {
	s := newTestServer(t, nil)
	reload(t, s)

	tests := []struct {
		name string
		body string
	}{
		{"unknown sort", `{"sort":"alphabetical"}`},
		{"inverted thresholds", `{"low_threshold":120,"high_threshold":100}`},
		{"empty group by", `{"group_by":[]}`},
		{"unknown field", `{"colour":"red"}`},
		{"malformed json", `{"sort":`},
		{"trailing garbage", `{"sort":"rate_desc"} garbage`},
		{"second object", `{"sort":"rate_desc"}{"top_k":1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(s, http.MethodPost, "/api/v1/query", tt.body)
			if w.Code != http.StatusBadRequest {
				t.Errorf("expected status 400, got %d: %s", w.Code, w.Body.String())
			}
		})
	}
}

func TestServer_QueryAllowsTrailingWhitespace(t *testing.T) {
	s := newTestServer(t, nil)
	reload(t, s)

	w := do(s, http.MethodPost, "/api/v1/query", "{\"sort\":\"rate_desc\"}\n\t ")
	if w.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}
}

func TestServer_Catalog(t *testing.T) {
	s := newTestServer(t, nil)
	reload(t, s)

	w := do(s, http.MethodGet, "/api/v1/catalog?brand=A", "")
	require.Equal(t, http.StatusOK, w.Code)
	var catalog dto.Catalog
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &catalog))
	assert.Equal(t, []string{"A", "B"}, catalog.Brands)
	assert.Equal(t, []string{"S20", "T60"}, catalog.Series)
}

func TestServer_ExportCSV(t *testing.T) {
	s := newTestServer(t, nil)
	reload(t, s)

	w := do(s, http.MethodPost, "/api/v1/export?format=csv&item_parts=true", `{"filter":{"periods":["2026-02"]}}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "text/csv; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "analysis_2026-02.csv")

	body := w.Body.String()
	require.True(t, strings.HasPrefix(body, "\ufeff"))
	lines := strings.Split(strings.TrimSpace(strings.TrimPrefix(body, "\ufeff")), "\n")
	require.Len(t, lines, 4)
	assert.True(t, strings.HasSuffix(lines[0], ",code,color"))
	assert.Equal(t, "2026-02,A,T60,X,C1-RED,Chair,1000,950,-50,50,95.0,C1,RED", lines[1])
}

func TestServer_ExportXLSX(t *testing.T) {
	s := newTestServer(t, nil)
	reload(t, s)

	w := do(s, http.MethodPost, "/api/v1/export?format=xlsx", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	f, err := excelize.OpenReader(bytes.NewReader(w.Body.Bytes()))
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows("records")
	require.NoError(t, err)
	assert.Len(t, rows, 4)
}

func TestServer_ExportUnknownFormat(t *testing.T) {
	s := newTestServer(t, nil)
	reload(t, s)

	w := do(s, http.MethodPost, "/api/v1/export?format=pdf", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestServer_RateLimit(t *testing.T) {
	s := newTestServer(t, func(c *config.Config) {
		c.Server.RateLimit = 0.001
		c.Server.RateBurst = 1
	})

	first := do(s, http.MethodGet, "/api/v1/catalog", "")
	assert.NotEqual(t, http.StatusTooManyRequests, first.Code)
	second := do(s, http.MethodGet, "/api/v1/catalog", "")
	assert.Equal(t, http.StatusTooManyRequests, second.Code)

	health := do(s, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, health.Code, "health checks are not rate limited")
}

func TestServer_RequestIDAndGzip(t *testing.T) {
	s := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-ID", "req-123")
	req.Header.Set("Accept-Encoding", "gzip")
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	assert.Equal(t, "req-123", w.Header().Get("X-Request-ID"))
	assert.Equal(t, "gzip", w.Header().Get("Content-Encoding"))
}
