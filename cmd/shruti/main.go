// Command shruti is the Bengali transcription resolution server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/brac-ds/shruti/internal/config"
	"github.com/brac-ds/shruti/internal/corrections"
	"github.com/brac-ds/shruti/internal/health"
	"github.com/brac-ds/shruti/internal/langmodel"
	"github.com/brac-ds/shruti/internal/observe"
	"github.com/brac-ds/shruti/internal/resilience"
	"github.com/brac-ds/shruti/internal/resolve"
	"github.com/brac-ds/shruti/internal/server"
	"github.com/brac-ds/shruti/pkg/provider/acoustic"
	"github.com/brac-ds/shruti/pkg/provider/acoustic/mock"
	"github.com/brac-ds/shruti/pkg/provider/acoustic/whisper"
)

// version is stamped at build time via -ldflags "-X main.version=...".
var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	flag.Parse()

	// ── Load configuration ────────────────────────────────────────────────────
	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "shruti: config file %q not found — copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "shruti: %v\n", err)
		}
		return 1
	}

	// ── Logger ────────────────────────────────────────────────────────────────
	logger := newLogger(cfg.Server.LogLevel)
	slog.SetDefault(logger)

	slog.Info("shruti starting",
		"version", version,
		"config", *configPath,
		"listen_addr", cfg.Server.ListenAddr,
		"log_level", cfg.Server.LogLevel,
	)

	// ── Signal context ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Telemetry ─────────────────────────────────────────────────────────────
	otelShutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{
		ServiceName:    "shruti",
		ServiceVersion: version,
	})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := otelShutdown(shutdownCtx); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()

	// ── Acoustic provider ─────────────────────────────────────────────────────
	reg := config.NewRegistry()
	registerBuiltinProviders(reg)

	provider, err := buildAcoustic(cfg, reg)
	if err != nil {
		slog.Error("failed to build acoustic provider", "err", err)
		return 1
	}
	slog.Info("acoustic provider ready", "name", cfg.Acoustic.Provider.Name)

	// ── Language model ────────────────────────────────────────────────────────
	var scorer resolve.Scorer
	if path := cfg.LanguageModel.Path; path != "" {
		model, err := langmodel.Load(path)
		if err != nil {
			slog.Error("failed to load language model", "path", path, "err", err)
			return 1
		}
		scorer = model
		slog.Info("language model loaded", "path", path, "order", model.Order(), "vocab", model.VocabSize())
	} else {
		slog.Warn("no language model configured — reranker disabled")
	}

	// ── Resolver ──────────────────────────────────────────────────────────────
	resolver := buildResolver(cfg, scorer)

	// ── Corrections ───────────────────────────────────────────────────────────
	sink, err := buildSink(ctx, cfg.Corrections)
	if err != nil {
		slog.Error("failed to build corrections sink", "err", err)
		return 1
	}
	registry := corrections.NewRegistry(cfg.Corrections.RegistryCapacity)
	queue := corrections.NewQueue(registry, sink)

	// ── HTTP server ───────────────────────────────────────────────────────────
	healthHandler := health.New(health.Info{
		Model:           cfg.Acoustic.Provider.Name,
		RerankerEnabled: scorer != nil,
		Version:         version,
	}, readinessCheckers(provider, cfg, scorer)...)

	srv := server.New(provider, resolver, queue, registry,
		server.WithProviderName(cfg.Acoustic.Provider.Name),
		server.WithMaxAudioSeconds(cfg.Server.MaxAudioSeconds),
		server.WithHealth(healthHandler),
	)

	httpServer := &http.Server{
		Addr:              cfg.Server.ListenAddr,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("listening", "addr", cfg.Server.ListenAddr)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "err", err)
			return 1
		}
	case <-ctx.Done():
	}

	// ── Graceful shutdown ─────────────────────────────────────────────────────
	slog.Info("shutdown signal received, stopping…")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "err", err)
		return 1
	}
	slog.Info("goodbye")
	return 0
}

// ── Provider wiring ───────────────────────────────────────────────────────────

// registerBuiltinProviders wires the acoustic provider factories that ship
// with Shruti into reg.
func registerBuiltinProviders(reg *config.Registry) {
	reg.RegisterAcoustic("whisper", func(entry config.ProviderEntry) (acoustic.Provider, error) {
		var opts []whisper.Option
		if model := optString(entry.Options, "model"); model != "" {
			opts = append(opts, whisper.WithModel(model))
		}
		if lang := optString(entry.Options, "language"); lang != "" {
			opts = append(opts, whisper.WithLanguage(lang))
		}
		return whisper.New(entry.BaseURL, opts...)
	})

	reg.RegisterAcoustic("whisper-native", func(entry config.ProviderEntry) (acoustic.Provider, error) {
		var opts []whisper.NativeOption
		if lang := optString(entry.Options, "language"); lang != "" {
			opts = append(opts, whisper.WithNativeLanguage(lang))
		}
		return whisper.NewNative(entry.ModelPath, opts...)
	})

	// mock serves smoke tests and local development without a model.
	reg.RegisterAcoustic("mock", func(entry config.ProviderEntry) (acoustic.Provider, error) {
		return &mock.Provider{}, nil
	})
}

// buildAcoustic creates the primary provider and, when configured, wraps it
// with the circuit-breaking fallback chain.
func buildAcoustic(cfg *config.Config, reg *config.Registry) (acoustic.Provider, error) {
	primary, err := reg.CreateAcoustic(cfg.Acoustic.Provider)
	if err != nil {
		return nil, fmt.Errorf("create acoustic provider %q: %w", cfg.Acoustic.Provider.Name, err)
	}
	if cfg.Acoustic.Fallback == nil {
		return primary, nil
	}

	secondary, err := reg.CreateAcoustic(*cfg.Acoustic.Fallback)
	if err != nil {
		return nil, fmt.Errorf("create fallback provider %q: %w", cfg.Acoustic.Fallback.Name, err)
	}
	chain := resilience.NewAcousticFallback(primary, cfg.Acoustic.Provider.Name, resilience.FallbackConfig{})
	chain.AddFallback(cfg.Acoustic.Fallback.Name, secondary)
	slog.Info("acoustic fallback configured", "secondary", cfg.Acoustic.Fallback.Name)
	return chain, nil
}

// readinessCheckers builds the named checks behind /readyz: an "acoustic"
// check when the provider exposes a backend probe, and a "language_model"
// check when a model artifact is configured.
func readinessCheckers(provider acoustic.Provider, cfg *config.Config, scorer resolve.Scorer) []health.Checker {
	var checkers []health.Checker
	if pinger, ok := provider.(acoustic.Pinger); ok {
		checkers = append(checkers, health.Checker{
			Name:  "acoustic",
			Check: pinger.Ping,
		})
	}
	if cfg.LanguageModel.Path != "" {
		checkers = append(checkers, health.Checker{
			Name: "language_model",
			Check: func(context.Context) error {
				if scorer == nil {
					return errors.New("language model not loaded")
				}
				return nil
			},
		})
	}
	return checkers
}

func buildResolver(cfg *config.Config, scorer resolve.Scorer) *resolve.Resolver {
	var opts []resolve.Option
	if t := cfg.Resolver.ConfidenceThreshold; t > 0 {
		opts = append(opts, resolve.WithThreshold(t))
	}
	if scorer != nil {
		opts = append(opts, resolve.WithScorer(scorer))
	}

	var genOpts []resolve.GeneratorOption
	if len(cfg.Resolver.Confusables) > 0 {
		genOpts = append(genOpts, resolve.WithConfusables(cfg.Resolver.Confusables))
	}
	if cfg.Resolver.MaxCandidates > 0 {
		genOpts = append(genOpts, resolve.WithMaxCandidates(cfg.Resolver.MaxCandidates))
	}
	if len(genOpts) > 0 {
		opts = append(opts, resolve.WithGenerator(resolve.NewGenerator(genOpts...)))
	}
	return resolve.NewResolver(opts...)
}

// buildSink constructs the corrections sink named in cfg. The postgres sink
// creates its table on startup.
func buildSink(ctx context.Context, cfg config.CorrectionsConfig) (corrections.Sink, error) {
	switch cfg.Sink {
	case config.SinkPostgres:
		pool, err := pgxpool.New(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("connect to postgres: %w", err)
		}
		sink := corrections.NewPostgresSink(pool)
		if err := sink.Migrate(ctx); err != nil {
			return nil, fmt.Errorf("migrate corrections table: %w", err)
		}
		return sink, nil
	case config.SinkFile, "":
		path := cfg.Path
		if path == "" {
			path = "corrections.jsonl"
		}
		return corrections.NewFileStore(path), nil
	default:
		return nil, fmt.Errorf("unknown corrections sink %q", cfg.Sink)
	}
}

// ── Logger ─────────────────────────────────────────────────────────────────────

func newLogger(level config.LogLevel) *slog.Logger {
	var lvl slog.Level
	switch level {
	case config.LogDebug:
		lvl = slog.LevelDebug
	case config.LogWarn:
		lvl = slog.LevelWarn
	case config.LogError:
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}

// ── Helpers ───────────────────────────────────────────────────────────────────

// optString extracts a string value from a provider Options map[string]any.
// Returns "" if the map is nil, the key is absent, or the value is not a string.
func optString(opts map[string]any, key string) string {
	if opts == nil {
		return ""
	}
	v, ok := opts[key]
	if !ok {
		return ""
	}
	s, ok := v.(string)
	if !ok {
		return ""
	}
	return s
}
