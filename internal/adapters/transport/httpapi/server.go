package httpapi

import (
	"context"
	stderrs "errors"
	"net/http"
	"time"

	"github.com/aws/aws-lambda-go/cfn"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/atomic"

	"github.com/olusolaa/fleet-provisioner/internal/adapters/hook"
	"github.com/olusolaa/fleet-provisioner/internal/core/domain"
	"github.com/olusolaa/fleet-provisioner/internal/core/ports"
	"github.com/olusolaa/fleet-provisioner/internal/errors"
	"github.com/olusolaa/fleet-provisioner/internal/metrics"
)

const (
	RouteHook      = "/v1/hook"
	RouteLifecycle = "/v1/lifecycle"
)

type Config struct {
	ListenAddr               string        `mapstructure:"listen_addr" validate:"required"`
	ReadTimeout              time.Duration `mapstructure:"read_timeout" validate:"gte=0"`
	WriteTimeout             time.Duration `mapstructure:"write_timeout" validate:"gte=0"`
	GracefulShutdownDuration time.Duration `mapstructure:"graceful_shutdown" validate:"gte=0"`
	DrainDuration            time.Duration `mapstructure:"drain_duration" validate:"gte=0"`
	MaxBodyBytes             int64         `mapstructure:"max_body_bytes" validate:"gt=0"`
	EnablePprof              bool          `mapstructure:"enable_pprof"`
}

func DefaultConfig() Config {
	return Config{
		ListenAddr:               ":8080",
		ReadTimeout:              10 * time.Second,
		WriteTimeout:             60 * time.Second,
		GracefulShutdownDuration: 15 * time.Second,
		DrainDuration:            5 * time.Second,
		MaxBodyBytes:             1 << 20,
	}
}

type HookHandler interface {
	Handle(ctx context.Context, raw []byte) hook.Response
}

type LifecycleHandler interface {
	Handle(ctx context.Context, event cfn.Event) domain.LifecycleResult
}

type Server struct {
	cfg       Config
	isReady   atomic.Bool
	logger    ports.Logger
	hook      HookHandler
	lifecycle LifecycleHandler
	metrics   *metrics.Metrics
	srv       *http.Server
}

func New(cfg Config, hookHandler HookHandler, lifecycleHandler LifecycleHandler, m *metrics.Metrics, logger ports.Logger) (*Server, error) {
	if hookHandler == nil || lifecycleHandler == nil {
		return nil, errors.New(errors.CodeConfigValidation, "http server needs both hook and lifecycle handlers")
	}
	if logger == nil {
		return nil, errors.New(errors.CodeConfigValidation, "logger cannot be nil for http server")
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = DefaultConfig().MaxBodyBytes
	}
	s := &Server{
		cfg:       cfg,
		logger:    logger,
		hook:      hookHandler,
		lifecycle: lifecycleHandler,
		metrics:   m,
	}
	s.isReady.Store(true)
	s.srv = &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      s.Router(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	return s, nil
}

func (s *Server) Router() http.Handler {
	mux := chi.NewRouter()
	mux.Use(middleware.RequestID)
	mux.Use(middleware.Recoverer)

	mux.With(s.accessLog).Method(http.MethodPost, RouteHook, s.metrics.InstrumentHandler(RouteHook, http.HandlerFunc(s.handleHook)))
	mux.With(s.accessLog).Method(http.MethodPost, RouteLifecycle, s.metrics.InstrumentHandler(RouteLifecycle, http.HandlerFunc(s.handleLifecycle)))

	mux.Get("/livez", s.handleLivenessCheck)
	mux.Get("/readyz", s.handleReadinessCheck)
	mux.With(s.accessLog).Post("/drain", s.handleDrain)
	mux.With(s.accessLog).Post("/undrain", s.handleUndrain)
	if s.metrics != nil {
		mux.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}
	if s.cfg.EnablePprof {
		s.logger.Infof(context.Background(), "pprof API enabled")
		mux.Mount("/debug", middleware.Profiler())
	}
	return mux
}

func (s *Server) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.WithFields(map[string]any{
			"method":      r.Method,
			"path":        r.URL.Path,
			"status":      ww.Status(),
			"duration_ms": time.Since(start).Milliseconds(),
			"request_id":  middleware.GetReqID(r.Context()),
		}).Debugf(r.Context(), "HTTP request served")
	})
}

func (s *Server) handleLivenessCheck(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "alive"})
}

func (s *Server) handleReadinessCheck(w http.ResponseWriter, _ *http.Request) {
	if !s.isReady.Load() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not ready"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) handleDrain(w http.ResponseWriter, r *http.Request) {
	if !s.isReady.Swap(false) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "already draining"})
		return
	}
	s.logger.Infof(r.Context(), "Server marked as not ready")
	writeJSON(w, http.StatusOK, map[string]string{"status": "draining"})
}

func (s *Server) handleUndrain(w http.ResponseWriter, r *http.Request) {
	if s.isReady.Swap(true) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "already ready"})
		return
	}
	s.logger.Infof(r.Context(), "Server marked as ready")
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// Run serves until ctx is cancelled, then drains and shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Infof(ctx, "Starting HTTP server on %s", s.cfg.ListenAddr)
		if err := s.srv.ListenAndServe(); err != nil && !stderrs.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return errors.Wrap(err, errors.CodeInternal, "HTTP server failed")
		}
		return nil
	case <-ctx.Done():
	}

	s.isReady.Store(false)
	if s.cfg.DrainDuration > 0 {
		s.logger.Infof(context.Background(), "Draining for %s before shutdown", s.cfg.DrainDuration)
		time.Sleep(s.cfg.DrainDuration)
	}
	return s.Shutdown()
}

func (s *Server) Shutdown() error {
	timeout := s.cfg.GracefulShutdownDuration
	if timeout <= 0 {
		timeout = DefaultConfig().GracefulShutdownDuration
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := s.srv.Shutdown(ctx); err != nil {
		s.logger.Errorf(ctx, err, "Graceful HTTP server shutdown failed")
		return errors.Wrap(err, errors.CodeTimeout, "graceful HTTP server shutdown failed")
	}
	s.logger.Infof(ctx, "HTTP server gracefully stopped")
	return nil
}
