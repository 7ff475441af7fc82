// This file contains the NativeProvider implementation backed by the
// whisper.cpp CGO bindings. The whisper.cpp static library (libwhisper.a)
// and headers (whisper.h) must be available at link time via LIBRARY_PATH
// and C_INCLUDE_PATH environment variables.

package whisper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	whisperlib "github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"

	"github.com/brac-ds/shruti/pkg/audio"
	"github.com/brac-ds/shruti/pkg/provider/acoustic"
)

// Compile-time assertion that NativeProvider satisfies acoustic.Provider.
var _ acoustic.Provider = (*NativeProvider)(nil)

// NativeProvider implements acoustic.Provider using whisper.cpp Go bindings
// (CGO). The model is loaded once at startup and shared across all calls.
type NativeProvider struct {
	model    whisperlib.Model
	language string
}

// NativeOption is a functional option for configuring a NativeProvider.
type NativeOption func(*NativeProvider)

// WithNativeLanguage sets the BCP-47 language code for transcription.
// Defaults to "bn".
func WithNativeLanguage(lang string) NativeOption {
	return func(p *NativeProvider) { p.language = lang }
}

// NewNative creates a NativeProvider that loads the whisper.cpp model from
// the given file path. The model is loaded once and shared across all
// concurrent calls. The caller must call Close when the provider is no
// longer needed.
func NewNative(modelPath string, opts ...NativeOption) (*NativeProvider, error) {
	if modelPath == "" {
		return nil, errors.New("whisper: modelPath must not be empty")
	}
	model, err := whisperlib.New(modelPath)
	if err != nil {
		return nil, fmt.Errorf("whisper: load model %q: %w: %w", modelPath, acoustic.ErrModelUnavailable, err)
	}

	p := &NativeProvider{
		model:    model,
		language: defaultLanguage,
	}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

// Close releases the whisper model. Must be called when the provider is no
// longer needed.
func (p *NativeProvider) Close() error {
	if p.model != nil {
		err := p.model.Close()
		p.model = nil
		return err
	}
	return nil
}

// Ping reports whether the in-process model is loaded. There is no remote
// backend to probe; a loaded model means the provider can serve.
func (p *NativeProvider) Ping(_ context.Context) error {
	if p.model == nil {
		return fmt.Errorf("whisper: ping: model closed: %w", acoustic.ErrModelUnavailable)
	}
	return nil
}

// Infer runs whisper.cpp inference over the clip and returns the hypothesis.
// The confidence is the mean token probability across all segments.
//
// Each call creates a fresh whisper context: contexts are not thread-safe,
// but the underlying model can be shared across goroutines.
func (p *NativeProvider) Infer(ctx context.Context, clip *audio.Clip) (acoustic.Hypothesis, error) {
	var zero acoustic.Hypothesis
	if err := ctx.Err(); err != nil {
		return zero, err
	}
	if clip == nil || clip.SampleCount() == 0 {
		return zero, errors.New("whisper: empty clip")
	}

	wctx, err := p.model.NewContext()
	if err != nil {
		return zero, fmt.Errorf("whisper: create context: %w: %w", acoustic.ErrModelUnavailable, err)
	}

	if err := wctx.SetLanguage(p.language); err != nil {
		slog.Warn("whisper: failed to set language, using default", "language", p.language, "error", err)
	}

	if err := wctx.Process(clip.Samples(), nil, nil, nil); err != nil {
		return zero, fmt.Errorf("whisper: process audio: %w", err)
	}

	var (
		parts      []string
		probSum    float64
		tokenCount int
	)
	for {
		segment, err := wctx.NextSegment()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return zero, fmt.Errorf("whisper: read segment: %w", err)
		}
		text := strings.TrimSpace(segment.Text)
		if text != "" {
			parts = append(parts, text)
		}
		for _, tok := range segment.Tokens {
			probSum += float64(tok.P)
			tokenCount++
		}
	}

	confidence := 0.0
	if tokenCount > 0 {
		confidence = clamp01(probSum / float64(tokenCount))
	}

	text := strings.Join(parts, " ")
	return acoustic.Hypothesis{
		Text:       text,
		Tokens:     strings.Fields(text),
		Confidence: confidence,
	}, nil
}
