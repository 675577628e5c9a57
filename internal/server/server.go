// Package server exposes the chaser over HTTP for the operator UI.
package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/compliance-chaser/internal/config"
	"github.com/sells-group/compliance-chaser/internal/model"
	"github.com/sells-group/compliance-chaser/internal/pipeline"
	"github.com/sells-group/compliance-chaser/internal/source"
	"github.com/sells-group/compliance-chaser/internal/store"
)

// Options configures a Server.
type Options struct {
	UploadDir       string
	Concurrency     int
	AllowedOrigins  []string
	RateLimitPerSec float64
	RateLimitBurst  int
	MaxUploadBytes  int64
}

// OptionsFromConfig maps the loaded configuration onto server options.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		UploadDir:       cfg.Source.Dir,
		Concurrency:     cfg.Batch.MaxConcurrentDocuments,
		AllowedOrigins:  cfg.Server.AllowedOrigins,
		RateLimitPerSec: cfg.Server.RateLimitPerSec,
		RateLimitBurst:  cfg.Server.RateLimitBurst,
		MaxUploadBytes:  int64(cfg.Server.MaxUploadMB) << 20,
	}
}

// Server serves the ingest and chase endpoints.
type Server struct {
	store store.Store
	proc  *pipeline.Processor
	src   source.Source
	opts  Options
	now   func() time.Time
}

// New creates a Server. src is what POST /run processes; uploads land in
// opts.UploadDir.
func New(st store.Store, proc *pipeline.Processor, src source.Source, opts Options) *Server {
	if opts.Concurrency <= 0 {
		opts.Concurrency = pipeline.DefaultConcurrency
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 20 << 20
	}
	return &Server{
		store: st,
		proc:  proc,
		src:   src,
		opts:  opts,
		now:   time.Now,
	}
}

// Handler builds the routed handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.opts.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)
	r.Get("/tasks", s.handleListTasks)
	r.Get("/chaser/tasks", s.handleChaserTasks)
	r.Get("/chaser/summary", s.handleChaserSummary)
	r.Get("/profiles/{clientID}", s.handleGetProfile)
	r.Get("/failures", s.handleListFailures)

	r.Group(func(r chi.Router) {
		r.Use(newIPLimiter(s.opts.RateLimitPerSec, s.opts.RateLimitBurst).middleware)
		r.Post("/upload", s.handleUpload)
		r.Post("/run", s.handleRun)
		r.Post("/chaser/run", s.handleRun)
		r.Post("/chaser/apply", s.handleApply)
		r.Post("/tasks/complete", s.handleComplete)
	})

	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("server: encode response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeErr maps err onto a status code and logs server-side failures.
func writeErr(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		zap.L().Error("server: request failed",
			zap.String("path", r.URL.Path),
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.Error(err),
		)
	}
	writeError(w, status, err.Error())
}

func statusFor(err error) int {
	switch {
	case eris.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case eris.Is(err, model.ErrInvalidEnum),
		eris.Is(err, model.ErrInvalidTask),
		eris.Is(err, model.ErrMissingDueDate),
		eris.Is(err, source.ErrInvalidFileName):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
