// Package server assembles the HTTP surface and runs it.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/handlers"

	"github.com/rehber/rehber/internal/client"
	"github.com/rehber/rehber/internal/config"
	"github.com/rehber/rehber/internal/handler"
	"github.com/rehber/rehber/internal/middleware"
	"github.com/rehber/rehber/internal/repository"
	"github.com/rehber/rehber/internal/service"
	"github.com/rehber/rehber/internal/telemetry"
	"github.com/rehber/rehber/internal/util/logger"
)

// Deps are the collaborators the router needs.
type Deps struct {
	Contacts service.ContactService
	Repo     repository.ContactRepository
	Images   repository.ImageStore
	Metrics  *middleware.Metrics
	Audit    telemetry.Publisher
	Redis    *client.RedisClient // optional
	Version  string
}

type Server struct {
	cfg     *config.Config
	handler http.Handler

	mu    sync.Mutex
	addr  net.Addr
	ready chan struct{}
}

func New(cfg *config.Config, d Deps) *Server {
	if d.Metrics == nil {
		d.Metrics = middleware.NewMetrics()
	}
	return &Server{
		cfg:     cfg,
		handler: newRouter(cfg, d),
		ready:   make(chan struct{}),
	}
}

// Handler returns the full middleware-wrapped router.
func (s *Server) Handler() http.Handler { return s.handler }

// Ready is closed once the listener is bound.
func (s *Server) Ready() <-chan struct{} { return s.ready }

// Addr is the bound address, nil before Ready.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

func newRouter(cfg *config.Config, d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID, chimw.RealIP, chimw.Recoverer)
	r.Use(d.Metrics.Handler)
	r.Use(middleware.NewRequestAuditMW(d.Audit).Handler)
	if cfg.RateLimit.Enabled {
		r.Use(middleware.NewRateLimiter(middleware.LimiterConfig{
			RatePerInterval: cfg.RateLimit.RatePerInterval,
			Interval:        cfg.RateLimit.Interval,
			Burst:           cfg.RateLimit.Burst,
			Redis:           d.Redis,
			KeyPrefix:       cfg.RateLimit.KeyPrefix,
			BucketTTL:       cfg.RateLimit.BucketTTL,
		}).Handler)
	}
	if cfg.Server.RequestTimeout > 0 {
		r.Use(chimw.Timeout(cfg.Server.RequestTimeout))
	}

	checkers := []handler.HealthChecker{&handler.StoreHealthChecker{Repo: d.Repo}}
	if d.Redis != nil {
		checkers = append(checkers, &handler.RedisHealthChecker{Client: d.Redis})
	}
	health := handler.NewHealthHandler(cfg, d.Version, checkers...)
	contacts := handler.NewContactHandler(d.Contacts, cfg.Server.MaxUploadBytes)
	phones := handler.NewPhoneHandler()
	exports := handler.NewExportHandler(d.Contacts)
	uploads := handler.NewUploadHandler(d.Images)

	r.Get("/health", health.ServeHTTP)
	r.Get("/ready", health.ReadinessHandler)
	r.Get("/live", health.LivenessHandler)
	r.Method(http.MethodGet, "/metrics", d.Metrics.Exposition())

	r.Route("/api", func(r chi.Router) {
		r.NotFound(handler.NotFound)
		r.Route("/contacts", func(r chi.Router) {
			r.Get("/", contacts.List)
			r.Post("/", contacts.Create)
			r.Post("/import", contacts.Import)
			r.Get("/view", contacts.View)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", contacts.Get)
				r.Put("/", contacts.Update)
				r.Delete("/", contacts.Delete)
				r.Get("/card", contacts.Card)
				r.Post("/merge", contacts.Merge)
				r.Post("/favorite", contacts.ToggleFavorite)
			})
		})
		r.Route("/phone", func(r chi.Router) {
			r.Post("/format", phones.Format)
			r.Post("/validate", phones.Validate)
			r.Get("/countries", phones.Countries)
		})
		r.Route("/export", func(r chi.Router) {
			r.Get("/vcf", exports.VCard)
			r.Get("/csv", exports.CSV)
			r.Get("/json", exports.JSON)
		})
		r.Post("/upload", uploads.Upload)
	})

	r.Handle(repository.ImagesURLPrefix+"*", http.StripPrefix(repository.ImagesURLPrefix, fileOnly(d.Images.Dir())))
	if cfg.StaticDir != "" {
		r.Handle("/*", fileOnly(cfg.StaticDir))
	}

	return handlers.CORS(
		handlers.AllowedOrigins(cfg.CORS.AllowedOrigins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Content-Type", "X-File-Ext", "X-Contact-Name"}),
	)(r)
}

// fileOnly serves files from root without directory listings. The root
// itself maps to index.html when there is one.
func fileOnly(root string) http.Handler {
	fs := http.FileServer(http.Dir(root))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p := r.URL.Path
		if p == "" || p == "/" {
			if _, err := os.Stat(filepath.Join(root, "index.html")); err != nil {
				http.NotFound(w, r)
				return
			}
			fs.ServeHTTP(w, r)
			return
		}
		if strings.HasSuffix(p, "/") {
			http.NotFound(w, r)
			return
		}
		fi, err := os.Stat(filepath.Join(root, filepath.FromSlash(path.Clean("/"+p))))
		if err == nil && fi.IsDir() {
			http.NotFound(w, r)
			return
		}
		fs.ServeHTTP(w, r)
	})
}

// Run listens on cfg.Addr() and serves until ctx is cancelled, then shuts
// down gracefully. With port 0 the OS picks a port; the bound address is
// logged once the listener is up.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr())
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.cfg.Addr(), err)
	}

	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       s.cfg.Server.ReadTimeout,
		WriteTimeout:      s.cfg.Server.WriteTimeout,
	}

	s.mu.Lock()
	s.addr = ln.Addr()
	s.mu.Unlock()
	close(s.ready)
	logger.Infof("Server running at http://%s/", ln.Addr())

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	timeout := s.cfg.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	logger.Info("shutting down http server")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	<-errCh
	return nil
}
