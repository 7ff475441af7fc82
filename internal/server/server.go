// Package server exposes the transcription pipeline over HTTP.
//
// Routes:
//
//	POST /transcribe          — transcribe a WAV clip to Bengali text
//	POST /transcribe/phonetic — transcribe with phonetic output (Latin/IPA)
//	POST /corrections         — submit a corrected transcript
//	GET  /healthz, /readyz    — liveness and readiness probes
//	GET  /metrics             — Prometheus scrape endpoint
package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/brac-ds/shruti/internal/corrections"
	"github.com/brac-ds/shruti/internal/health"
	"github.com/brac-ds/shruti/internal/observe"
	"github.com/brac-ds/shruti/internal/resolve"
	"github.com/brac-ds/shruti/pkg/provider/acoustic"
)

// DefaultMaxAudioSeconds caps uploaded clip duration when the configuration
// does not override it.
const DefaultMaxAudioSeconds = 60.0

// Server wires the acoustic provider, resolver, and correction queue behind
// the HTTP API. It is read-only after construction.
type Server struct {
	provider acoustic.Provider
	resolver *resolve.Resolver
	queue    *corrections.Queue
	registry *corrections.Registry
	health   *health.Handler
	metrics  *observe.Metrics

	providerName    string
	maxAudioSeconds float64
}

// Option is a functional option for configuring a [Server].
type Option func(*Server)

// WithMaxAudioSeconds caps the duration of uploaded clips. Values at or
// below zero keep the default of 60 seconds.
func WithMaxAudioSeconds(s float64) Option {
	return func(srv *Server) {
		if s > 0 {
			srv.maxAudioSeconds = s
		}
	}
}

// WithProviderName sets the provider name used in metrics and health info.
func WithProviderName(name string) Option {
	return func(srv *Server) {
		srv.providerName = name
	}
}

// WithHealth replaces the health handler. Default: a handler with no
// readiness checkers.
func WithHealth(h *health.Handler) Option {
	return func(srv *Server) {
		if h != nil {
			srv.health = h
		}
	}
}

// WithMetrics replaces the metrics instance. Default: [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(srv *Server) {
		if m != nil {
			srv.metrics = m
		}
	}
}

// New constructs a [Server]. provider, resolver, queue, and registry are
// required; the remaining collaborators have defaults overridable through
// options.
func New(provider acoustic.Provider, resolver *resolve.Resolver, queue *corrections.Queue, registry *corrections.Registry, opts ...Option) *Server {
	srv := &Server{
		provider:        provider,
		resolver:        resolver,
		queue:           queue,
		registry:        registry,
		health:          health.New(health.Info{}),
		maxAudioSeconds: DefaultMaxAudioSeconds,
	}
	for _, o := range opts {
		o(srv)
	}
	if srv.metrics == nil {
		srv.metrics = observe.DefaultMetrics()
	}
	return srv
}

// Router builds the chi handler tree with its middleware stack.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(observe.Middleware(s.metrics))

	r.Get("/healthz", s.health.Healthz)
	r.Get("/readyz", s.health.Readyz)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Post("/transcribe", s.handleTranscribe)
	r.Post("/transcribe/phonetic", s.handleTranscribePhonetic)
	r.Post("/corrections", s.handleCorrection)

	return r
}
