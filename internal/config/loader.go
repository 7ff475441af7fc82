package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// ValidProviderNames lists known acoustic provider names.
// Used by [Validate] to warn about unrecognised provider names.
var ValidProviderNames = []string{"whisper", "whisper-native", "mock"}

// Load reads the YAML configuration file at path and returns a validated [Config].
// It is a convenience wrapper around [LoadFromReader] and [Validate].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r and validates the result.
// Useful in tests where configs are constructed from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	// Server
	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}
	if cfg.Server.MaxAudioSeconds < 0 {
		errs = append(errs, fmt.Errorf("server.max_audio_seconds %.2f is negative", cfg.Server.MaxAudioSeconds))
	}

	// Acoustic providers — warn for unknown names, error on missing wiring.
	validateProviderName("acoustic.provider", cfg.Acoustic.Provider.Name)
	if cfg.Acoustic.Fallback != nil {
		validateProviderName("acoustic.fallback", cfg.Acoustic.Fallback.Name)
		if cfg.Acoustic.Fallback.Name == "" {
			errs = append(errs, errors.New("acoustic.fallback.name is required when a fallback block is present"))
		}
	}
	if cfg.Acoustic.Provider.Name == "" {
		errs = append(errs, errors.New("acoustic.provider.name is required"))
	}

	// Resolver
	if t := cfg.Resolver.ConfidenceThreshold; t < 0 || t > 1 {
		errs = append(errs, fmt.Errorf("resolver.confidence_threshold %.2f is out of range [0, 1]", t))
	}
	if cfg.Resolver.MaxCandidates < 0 {
		errs = append(errs, fmt.Errorf("resolver.max_candidates %d is negative", cfg.Resolver.MaxCandidates))
	}
	for i, group := range cfg.Resolver.Confusables {
		if len(group) < 2 {
			errs = append(errs, fmt.Errorf("resolver.confusables[%d] has %d phonemes; a group needs at least 2", i, len(group)))
		}
	}

	// Language model
	if cfg.LanguageModel.Path == "" {
		slog.Warn("language_model.path is empty; candidate reranking runs in disabled mode")
	}

	// Corrections sink ↔ backend cross-validation
	if cfg.Corrections.Sink != "" && !cfg.Corrections.Sink.IsValid() {
		errs = append(errs, fmt.Errorf("corrections.sink %q is invalid; valid values: file, postgres", cfg.Corrections.Sink))
	}
	if cfg.Corrections.Sink == SinkFile && cfg.Corrections.Path == "" {
		errs = append(errs, errors.New("corrections.path is required when sink is file"))
	}
	if cfg.Corrections.Sink == SinkPostgres && cfg.Corrections.PostgresDSN == "" {
		errs = append(errs, errors.New("corrections.postgres_dsn is required when sink is postgres"))
	}
	if cfg.Corrections.RegistryCapacity < 0 {
		errs = append(errs, fmt.Errorf("corrections.registry_capacity %d is negative", cfg.Corrections.RegistryCapacity))
	}

	return errors.Join(errs...)
}

// validateProviderName logs a warning if name is non-empty and not found in
// [ValidProviderNames].
func validateProviderName(field, name string) {
	if name == "" || slices.Contains(ValidProviderNames, name) {
		return
	}
	slog.Warn("unknown provider name — may be a typo or third-party provider",
		"field", field,
		"name", name,
		"known", ValidProviderNames,
	)
}
