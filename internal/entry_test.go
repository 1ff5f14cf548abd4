package internal

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *Config {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "ioc"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ioc", "feed.txt"), []byte("evil.example.com\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "dns.txt"), []byte("query evil.example.com\n"), 0o644))

	cfg := NewDefaultConfig()
	cfg.Case.BaseDir = dir
	// Keep the test hermetic regardless of what is installed.
	cfg.Extraction.Pdftotext = "perthro-missing-pdftotext"
	cfg.Extraction.Pdftoppm = "perthro-missing-pdftoppm"
	cfg.Extraction.Tesseract = "perthro-missing-tesseract"
	require.NoError(t, cfg.Validate())
	return cfg
}

func TestNewHTTPHandler_Routes(t *testing.T) {
	cfg := testConfig(t)
	h := NewHTTPHandler(cfg, NewService(cfg), nil)

	for _, path := range []string{"/health/live", "/health/ready", "/api/indicators", "/api/artifacts"} {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, w.Code, path)
	}

	w := httptest.NewRecorder()
	body := `{"anomalies":[{"id":"ioc_0","query":"evil.example.com"}],"artifact_types":["dns.txt"]}`
	h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/search", strings.NewReader(body)))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"line_number":1`)
}

func TestNewHTTPHandler_ReadyFailsWithoutBaseDir(t *testing.T) {
	cfg := testConfig(t)
	cfg.Case.BaseDir = filepath.Join(cfg.Case.BaseDir, "gone")
	h := NewHTTPHandler(cfg, NewService(cfg), nil)

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestNewHTTPHandler_AuthAppliesToAPIOnly(t *testing.T) {
	cfg := testConfig(t)
	cfg.Auth = AuthConfig{Mode: AuthModeToken, Token: "s3cret"}
	h := NewHTTPHandler(cfg, NewService(cfg), nil)

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/indicators", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRun_RequiresConfig(t *testing.T) {
	err := Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config is required")
}

func TestRun_UnknownMode(t *testing.T) {
	var logs bytes.Buffer
	err := Run(context.Background(), WithConfig(testConfig(t)), WithMode("batch"), WithLogOutput(&logs))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown mode "batch"`)
	assert.Contains(t, logs.String(), "Configuration loaded")
}
