// Package api exposes the escape-time kernel over HTTP.
//
// Routes:
//
//	GET  /healthz
//	POST /api/mandelbrot
//	GET  /api/mandelbrot.png
//	GET  /api/mandelbrot/ws
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/bft-labs/escapetime/pkg/fractal"
	"github.com/bft-labs/escapetime/pkg/log"
)

// Options configures the HTTP handlers.
type Options struct {
	// Kernel computes grids. Defaults to fractal.NewKernel().
	Kernel *fractal.Kernel

	// Limits returns the resource limits in force for a request.
	// It is called once per request so limits may change at runtime.
	// Nil means fractal.DefaultLimits.
	Limits func() fractal.Limits

	Logger         log.Logger
	AllowedOrigins []string

	// RequestTimeout bounds a single computation. Zero disables it.
	RequestTimeout time.Duration

	// MaxBodyBytes caps request bodies and websocket messages.
	MaxBodyBytes int64
}

type handler struct {
	kernel  *fractal.Kernel
	limits  func() fractal.Limits
	logger  log.Logger
	timeout time.Duration
	maxBody int64
	origins []string
}

// NewRouter returns the service's HTTP handler.
func NewRouter(opts Options) http.Handler {
	h := &handler{
		kernel:  opts.Kernel,
		limits:  opts.Limits,
		logger:  opts.Logger,
		timeout: opts.RequestTimeout,
		maxBody: opts.MaxBodyBytes,
		origins: opts.AllowedOrigins,
	}
	if h.kernel == nil {
		h.kernel = fractal.NewKernel()
	}
	if h.limits == nil {
		h.limits = fractal.DefaultLimits
	}
	if h.logger == nil {
		h.logger = log.NewNoopLogger()
	}
	if h.maxBody <= 0 {
		h.maxBody = 1 << 20
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(accessLog(h.logger))
	r.Use(middleware.Recoverer)
	r.Use(cors(h.origins))

	r.Get("/healthz", h.health)
	h.RegisterHTTP(r)
	return r
}

// RegisterHTTP mounts the computation routes on r.
func (h *handler) RegisterHTTP(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.With(maxBytes(h.maxBody)).Post("/mandelbrot", h.compute)
		r.Get("/mandelbrot.png", h.image)
		r.Get("/mandelbrot/ws", h.stream)
	})
}

func (h *handler) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
