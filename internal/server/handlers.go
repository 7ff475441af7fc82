package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/metric"

	"github.com/brac-ds/shruti/internal/corrections"
	"github.com/brac-ds/shruti/internal/observe"
	"github.com/brac-ds/shruti/internal/resolve"
	"github.com/brac-ds/shruti/internal/script"
	"github.com/brac-ds/shruti/pkg/audio"
	"github.com/brac-ds/shruti/pkg/provider/acoustic"
)

// maxUploadBytes bounds a transcription request body and the multipart form
// held in memory. A minute of 16 kHz 16-bit mono audio is under 2 MiB, so
// 32 MiB leaves ample headroom.
const maxUploadBytes = 32 << 20

// maxCorrectionBytes bounds a correction JSON body. Corrections hold two
// short transcripts and a reference, so 1 MiB is already generous.
const maxCorrectionBytes = 1 << 20

// requiredSampleRate is the only rate the acoustic models accept. The service
// does not resample; clients upload 16 kHz audio.
const requiredSampleRate = 16000

type transcribeResponse struct {
	TranscriptBangla string           `json:"transcript_bangla"`
	TranscriptLatin  string           `json:"transcript_latin,omitempty"`
	TranscriptIPA    string           `json:"transcript_ipa,omitempty"`
	Confidence       float64          `json:"confidence"`
	Method           string           `json:"method"`
	Tokens           []string         `json:"tokens,omitempty"`
	Alternates       []alternateEntry `json:"alternates,omitempty"`
	AudioRef         string           `json:"audio_ref"`
	ProcessingTimeMS int64            `json:"processing_time_ms"`
}

type alternateEntry struct {
	Text           string  `json:"text"`
	Origin         string  `json:"origin"`
	LogProbability float64 `json:"log_probability"`
}

type correctionResponse struct {
	Accepted bool   `json:"accepted"`
	Error    string `json:"error,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleTranscribe(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	result, hyp, ok := s.transcribe(w, r)
	if !ok {
		return
	}

	resp := transcribeResponse{
		TranscriptBangla: result.FinalText,
		Confidence:       result.Confidence,
		Method:           string(result.Method),
		Tokens:           hyp.Tokens,
		Alternates:       alternates(result),
		AudioRef:         s.registry.Issue(),
		ProcessingTimeMS: time.Since(start).Milliseconds(),
	}
	if r.FormValue("include_latin") == "true" {
		resp.TranscriptLatin = result.FinalTextLatin
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleTranscribePhonetic(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	format, ok := outputFormat(r.FormValue("output_format"))
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Error: fmt.Sprintf("unknown output_format %q (want bangla, latin, or ipa)", r.FormValue("output_format")),
		})
		return
	}

	result, hyp, ok := s.transcribe(w, r)
	if !ok {
		return
	}

	resp := transcribeResponse{
		TranscriptBangla: result.FinalText,
		TranscriptLatin:  result.FinalTextLatin,
		Confidence:       result.Confidence,
		Method:           string(result.Method),
		Tokens:           hyp.Tokens,
		Alternates:       alternates(result),
		AudioRef:         s.registry.Issue(),
		ProcessingTimeMS: time.Since(start).Milliseconds(),
	}
	if format == script.IPA {
		resp.TranscriptIPA = result.FinalTextIPA
	}
	writeJSON(w, http.StatusOK, resp)
}

// outputFormat maps the output_format form value onto a [script.Script].
// "bangla" is the public alias for Bengali orthography; an empty value
// defaults to Latin.
func outputFormat(v string) (script.Script, bool) {
	switch v {
	case "", "latin":
		return script.Latin, true
	case "bangla", "bengali":
		return script.Bengali, true
	case "ipa":
		return script.IPA, true
	}
	return "", false
}

// transcribe runs the shared upload → inference → resolution path of both
// transcription endpoints. On failure it has already written the error
// response and returns ok=false.
func (s *Server) transcribe(w http.ResponseWriter, r *http.Request) (*resolve.Result, acoustic.Hypothesis, bool) {
	ctx := r.Context()

	s.metrics.ActiveRequests.Add(ctx, 1)
	defer s.metrics.ActiveRequests.Add(ctx, -1)

	clip, ok := s.readClip(w, r)
	if !ok {
		return nil, acoustic.Hypothesis{}, false
	}

	inferStart := time.Now()
	hyp, err := s.provider.Infer(ctx, clip)
	s.metrics.AcousticDuration.Record(ctx, time.Since(inferStart).Seconds(),
		metric.WithAttributes(observe.Attr("provider", s.providerName)))
	if err != nil {
		s.metrics.RecordAcousticRequest(ctx, s.providerName, "error")
		status := http.StatusInternalServerError
		if errors.Is(err, acoustic.ErrModelUnavailable) {
			status = http.StatusServiceUnavailable
		}
		slog.ErrorContext(ctx, "acoustic inference failed", "provider", s.providerName, "error", err)
		writeJSON(w, status, errorResponse{Error: "transcription failed"})
		return nil, acoustic.Hypothesis{}, false
	}
	s.metrics.RecordAcousticRequest(ctx, s.providerName, "ok")

	resolveStart := time.Now()
	result, err := s.resolver.Resolve(ctx, hyp)
	s.metrics.ResolveDuration.Record(ctx, time.Since(resolveStart).Seconds())
	if err != nil {
		slog.ErrorContext(ctx, "resolution failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "transcription failed"})
		return nil, acoustic.Hypothesis{}, false
	}
	s.metrics.RecordResolution(ctx, string(result.Method), len(result.Alternates))

	return result, hyp, true
}

// readClip extracts and validates the uploaded WAV clip. On failure it has
// already written the error response and returns ok=false.
func (s *Server) readClip(w http.ResponseWriter, r *http.Request) (*audio.Clip, bool) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "expected multipart form data"})
		return nil, false
	}
	file, _, err := r.FormFile("audio")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "missing audio file"})
		return nil, false
	}
	defer file.Close()

	clip, err := audio.DecodeWAV(file)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: fmt.Sprintf("invalid WAV data: %v", err)})
		return nil, false
	}
	if clip.SampleRate() != requiredSampleRate {
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Error: fmt.Sprintf("unsupported sample rate %d Hz (want %d)", clip.SampleRate(), requiredSampleRate),
		})
		return nil, false
	}
	if dur := clip.Duration().Seconds(); dur > s.maxAudioSeconds {
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Error: fmt.Sprintf("audio duration %.1fs exceeds the %.0fs limit", dur, s.maxAudioSeconds),
		})
		return nil, false
	}
	return clip, true
}

func (s *Server) handleCorrection(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	r.Body = http.MaxBytesReader(w, r.Body, maxCorrectionBytes)

	var rec corrections.Record
	if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
		writeJSON(w, http.StatusBadRequest, correctionResponse{Accepted: false, Error: "invalid JSON body"})
		return
	}

	accepted, err := s.queue.Submit(ctx, rec)
	s.metrics.RecordCorrection(ctx, accepted)
	if err != nil {
		var unknownRef *corrections.UnknownReferenceError
		switch {
		case errors.Is(err, corrections.ErrEmptyCorrection),
			errors.Is(err, corrections.ErrNotBengali):
			writeJSON(w, http.StatusBadRequest, correctionResponse{Accepted: false, Error: err.Error()})
		case errors.As(err, &unknownRef):
			writeJSON(w, http.StatusBadRequest, correctionResponse{Accepted: false, Error: err.Error()})
		default:
			slog.ErrorContext(ctx, "correction append failed", "error", err)
			writeJSON(w, http.StatusInternalServerError, correctionResponse{Accepted: false, Error: "correction could not be stored"})
		}
		return
	}

	writeJSON(w, http.StatusAccepted, correctionResponse{Accepted: accepted})
}

func alternates(result *resolve.Result) []alternateEntry {
	if len(result.Alternates) == 0 {
		return nil
	}
	out := make([]alternateEntry, 0, len(result.Alternates))
	for _, alt := range result.Alternates {
		out = append(out, alternateEntry{
			Text:           alt.Text,
			Origin:         string(alt.Origin),
			LogProbability: alt.LogProbability,
		})
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}
