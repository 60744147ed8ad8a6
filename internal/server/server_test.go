package server

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/rehber/rehber/internal/config"
	"github.com/rehber/rehber/internal/middleware"
	"github.com/rehber/rehber/internal/repository"
	"github.com/rehber/rehber/internal/service"
)

func newTestServer(t *testing.T) (*Server, *config.Config) {
	t.Helper()
	dataDir := t.TempDir()
	staticDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(staticDir, "index.html"), []byte("<h1>Rehber</h1>"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(staticDir, "js"), 0o755))

	cfg := &config.Config{
		Env:       "test",
		Host:      "127.0.0.1",
		Port:      0,
		DataDir:   dataDir,
		StaticDir: staticDir,
		CORS:      config.CORSConfig{AllowedOrigins: []string{"*"}},
		Server: config.ServerConfig{
			RequestTimeout:  5 * time.Second,
			ShutdownTimeout: 2 * time.Second,
			MaxUploadBytes:  1 << 20,
		},
	}
	repo, err := repository.NewJSONRepository(dataDir)
	require.NoError(t, err)
	images, err := repository.NewFileImageStore(dataDir, cfg.Server.MaxUploadBytes)
	require.NoError(t, err)
	metrics := middleware.NewMetrics()
	svc := service.NewContactService(service.Deps{Repo: repo, Images: images, Metrics: metrics})

	return New(cfg, Deps{Contacts: svc, Repo: repo, Images: images, Metrics: metrics, Version: "test"}), cfg
}

func TestRoutes(t *testing.T) {
	s, cfg := newTestServer(t)
	h := s.Handler()

	get := func(path string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		return rec
	}

	rec := get("/")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Rehber")

	assert.Equal(t, http.StatusNotFound, get("/js/").Code, "no directory listings")
	assert.Equal(t, http.StatusNotFound, get("/js").Code)
	assert.Equal(t, http.StatusNotFound, get("/missing.css").Code)

	img := filepath.Join(cfg.DataDir, repository.ImagesDirName, "ali_1.png")
	require.NoError(t, os.WriteFile(img, []byte("png"), 0o644))
	rec = get("/contact_images/ali_1.png")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "png", rec.Body.String())
	assert.Equal(t, http.StatusNotFound, get("/contact_images/").Code)

	assert.Equal(t, http.StatusOK, get("/api/contacts").Code)
	assert.Equal(t, http.StatusOK, get("/api/contacts/view").Code)
	assert.Equal(t, http.StatusNotFound, get("/api/contacts/unknown").Code)
	missing := get("/api/nope")
	assert.Equal(t, http.StatusNotFound, missing.Code)
	assert.JSONEq(t, `{"error":{"code":404,"message":"Not found"}}`, missing.Body.String())
	assert.Equal(t, http.StatusOK, get("/api/phone/countries").Code)
	assert.Equal(t, http.StatusOK, get("/health").Code)

	rec = get("/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `rehber_http_requests_total{method="GET",route="/api/phone/countries",status="200"} 1`)
}

func TestCORSPreflight(t *testing.T) {
	s, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodOptions, "/api/upload", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "X-File-Ext")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestRunPortZeroAndShutdown(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	s, _ := newTestServer(t)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	select {
	case <-s.Ready():
	case <-time.After(5 * time.Second):
		t.Fatal("server never became ready")
	}
	require.NotNil(t, s.Addr())

	c := &http.Client{Transport: &http.Transport{DisableKeepAlives: true}}
	resp, err := c.Get("http://" + s.Addr().String() + "/live")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	c.CloseIdleConnections()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "live")

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
