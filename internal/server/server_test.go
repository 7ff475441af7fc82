package server_test

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"io"
	"math"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/brac-ds/shruti/internal/corrections"
	"github.com/brac-ds/shruti/internal/health"
	"github.com/brac-ds/shruti/internal/resolve"
	"github.com/brac-ds/shruti/internal/server"
	"github.com/brac-ds/shruti/pkg/provider/acoustic"
	"github.com/brac-ds/shruti/pkg/provider/acoustic/mock"
)

// wavBytes builds a canonical 16-bit mono PCM WAV payload.
func wavBytes(t *testing.T, samples []float32, sampleRate int) []byte {
	t.Helper()
	var buf bytes.Buffer
	dataLen := len(samples) * 2

	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, uint32(36+dataLen))
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	binary.Write(&buf, binary.LittleEndian, uint32(16))
	binary.Write(&buf, binary.LittleEndian, uint16(1)) // PCM
	binary.Write(&buf, binary.LittleEndian, uint16(1)) // mono
	binary.Write(&buf, binary.LittleEndian, uint32(sampleRate))
	binary.Write(&buf, binary.LittleEndian, uint32(sampleRate*2))
	binary.Write(&buf, binary.LittleEndian, uint16(2))
	binary.Write(&buf, binary.LittleEndian, uint16(16))

	buf.WriteString("data")
	binary.Write(&buf, binary.LittleEndian, uint32(dataLen))
	for _, s := range samples {
		binary.Write(&buf, binary.LittleEndian, int16(s*32767))
	}
	return buf.Bytes()
}

func testSamples(n int) []float32 {
	samples := make([]float32, n)
	for i := range samples {
		samples[i] = float32(0.25 * math.Sin(2*math.Pi*440*float64(i)/16000))
	}
	return samples
}

// multipartAudio builds a multipart body with an audio file plus extra form
// fields.
func multipartAudio(t *testing.T, wav []byte, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("audio", "clip.wav")
	if err != nil {
		t.Fatalf("CreateFormFile: %v", err)
	}
	if _, err := fw.Write(wav); err != nil {
		t.Fatalf("write wav: %v", err)
	}
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatalf("WriteField(%s): %v", k, err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}
	return &body, mw.FormDataContentType()
}

// mapScorer scores sentences by exact token-sequence lookup; unknown
// sentences get a poor but valid score.
type mapScorer struct {
	scores map[string]float64
}

func (s *mapScorer) SentenceLogProb(words []string) float64 {
	if p, ok := s.scores[strings.Join(words, " ")]; ok {
		return p
	}
	return -50
}

// memorySink collects appended records in memory.
type memorySink struct {
	records []corrections.Record
	err     error
}

func (s *memorySink) Append(_ context.Context, rec corrections.Record) error {
	if s.err != nil {
		return s.err
	}
	s.records = append(s.records, rec)
	return nil
}

type fixture struct {
	provider *mock.Provider
	sink     *memorySink
	registry *corrections.Registry
	srv      *httptest.Server
}

func newFixture(t *testing.T, provider *mock.Provider, resolver *resolve.Resolver, opts ...server.Option) *fixture {
	t.Helper()
	sink := &memorySink{}
	registry := corrections.NewRegistry(16)
	queue := corrections.NewQueue(registry, sink)

	s := server.New(provider, resolver, queue, registry, opts...)
	ts := httptest.NewServer(s.Router())
	t.Cleanup(ts.Close)

	return &fixture{provider: provider, sink: sink, registry: registry, srv: ts}
}

func postAudio(t *testing.T, f *fixture, path string, fields map[string]string) (*http.Response, map[string]any) {
	t.Helper()
	body, contentType := multipartAudio(t, wavBytes(t, testSamples(1600), 16000), fields)
	resp, err := http.Post(f.srv.URL+path, contentType, body)
	if err != nil {
		t.Fatalf("POST %s: %v", path, err)
	}
	t.Cleanup(func() { resp.Body.Close() })

	var decoded map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp, decoded
}

func TestTranscribeHighConfidence(t *testing.T) {
	t.Parallel()
	provider := &mock.Provider{
		Hypotheses: []acoustic.Hypothesis{
			{Text: "আমি ভাত খাই", Tokens: []string{"আমি", "ভাত", "খাই"}, Confidence: 0.93},
		},
	}
	f := newFixture(t, provider, resolve.NewResolver())

	resp, body := postAudio(t, f, "/transcribe", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if got := body["transcript_bangla"]; got != "আমি ভাত খাই" {
		t.Errorf("transcript_bangla = %v", got)
	}
	if got := body["method"]; got != string(resolve.MethodAcceptedDirect) {
		t.Errorf("method = %v, want accepted_direct", got)
	}
	if got := body["confidence"].(float64); math.Abs(got-0.93) > 1e-9 {
		t.Errorf("confidence = %v", got)
	}
	if ref, _ := body["audio_ref"].(string); ref == "" {
		t.Error("audio_ref missing")
	} else if !f.registry.Known(ref) {
		t.Errorf("audio_ref %q not registered", ref)
	}
	if _, ok := body["transcript_latin"]; ok {
		t.Error("transcript_latin present without include_latin")
	}
	if _, ok := body["processing_time_ms"]; !ok {
		t.Error("processing_time_ms missing")
	}
	if len(f.provider.InferCalls) != 1 {
		t.Errorf("Infer calls = %d, want 1", len(f.provider.InferCalls))
	}
}

func TestTranscribeIncludeLatin(t *testing.T) {
	t.Parallel()
	provider := &mock.Provider{
		Hypotheses: []acoustic.Hypothesis{{Text: "আমি", Tokens: []string{"আমি"}, Confidence: 0.9}},
	}
	f := newFixture(t, provider, resolve.NewResolver())

	_, body := postAudio(t, f, "/transcribe", map[string]string{"include_latin": "true"})
	if latin, _ := body["transcript_latin"].(string); latin == "" {
		t.Error("transcript_latin missing with include_latin=true")
	}
}

func TestTranscribeLowConfidenceReranked(t *testing.T) {
	t.Parallel()
	provider := &mock.Provider{
		Hypotheses: []acoustic.Hypothesis{
			{Text: "আমি শুনি", Tokens: []string{"আমি", "শুনি"}, Confidence: 0.3},
		},
	}
	scorer := &mapScorer{scores: map[string]float64{
		"আমি সুনি": -2,
		"আমি শুনি": -9,
	}}
	f := newFixture(t, provider, resolve.NewResolver(resolve.WithScorer(scorer)))

	resp, body := postAudio(t, f, "/transcribe", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if got := body["transcript_bangla"]; got != "আমি সুনি" {
		t.Errorf("transcript_bangla = %v, want আমি সুনি", got)
	}
	if got := body["method"]; got != string(resolve.MethodAcceptedFallback) {
		t.Errorf("method = %v, want accepted_fallback", got)
	}
	alts, _ := body["alternates"].([]any)
	if len(alts) == 0 {
		t.Fatal("alternates missing on fallback path")
	}
	top, _ := alts[0].(map[string]any)
	if top["text"] != "আমি সুনি" {
		t.Errorf("alternates[0].text = %v", top["text"])
	}
}

func TestTranscribePhoneticIPA(t *testing.T) {
	t.Parallel()
	provider := &mock.Provider{
		Hypotheses: []acoustic.Hypothesis{{Text: "আমি", Tokens: []string{"আমি"}, Confidence: 0.9}},
	}
	f := newFixture(t, provider, resolve.NewResolver())

	resp, body := postAudio(t, f, "/transcribe/phonetic", map[string]string{"output_format": "ipa"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if ipa, _ := body["transcript_ipa"].(string); ipa == "" {
		t.Error("transcript_ipa missing for output_format=ipa")
	}
	if latin, _ := body["transcript_latin"].(string); latin == "" {
		t.Error("transcript_latin missing")
	}
}

func TestTranscribePhoneticDefaultsToLatin(t *testing.T) {
	t.Parallel()
	provider := &mock.Provider{
		Hypotheses: []acoustic.Hypothesis{{Text: "আমি", Tokens: []string{"আমি"}, Confidence: 0.9}},
	}
	f := newFixture(t, provider, resolve.NewResolver())

	resp, body := postAudio(t, f, "/transcribe/phonetic", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if latin, _ := body["transcript_latin"].(string); latin == "" {
		t.Error("transcript_latin missing")
	}
	if _, ok := body["transcript_ipa"]; ok {
		t.Error("transcript_ipa present without output_format=ipa")
	}
}

func TestTranscribePhoneticRejectsUnknownFormat(t *testing.T) {
	t.Parallel()
	provider := &mock.Provider{}
	f := newFixture(t, provider, resolve.NewResolver())

	resp, body := postAudio(t, f, "/transcribe/phonetic", map[string]string{"output_format": "cyrillic"})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
	if msg, _ := body["error"].(string); !strings.Contains(msg, "output_format") {
		t.Errorf("error = %q, want mention of output_format", msg)
	}
	if len(f.provider.InferCalls) != 0 {
		t.Error("provider called despite invalid format")
	}
}

func TestTranscribeMissingAudio(t *testing.T) {
	t.Parallel()
	f := newFixture(t, &mock.Provider{}, resolve.NewResolver())

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	mw.WriteField("language", "bn")
	mw.Close()

	resp, err := http.Post(f.srv.URL+"/transcribe", mw.FormDataContentType(), &body)
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestTranscribeRejectsInvalidWAV(t *testing.T) {
	t.Parallel()
	f := newFixture(t, &mock.Provider{}, resolve.NewResolver())

	body, contentType := multipartAudio(t, []byte("not a wav file"), nil)
	resp, err := http.Post(f.srv.URL+"/transcribe", contentType, body)
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
	if len(f.provider.InferCalls) != 0 {
		t.Error("provider called with undecodable audio")
	}
}

func TestTranscribeRejectsOverlongAudio(t *testing.T) {
	t.Parallel()
	f := newFixture(t, &mock.Provider{}, resolve.NewResolver(), server.WithMaxAudioSeconds(0.05))

	// 1600 samples at 16 kHz is 100 ms, over the 50 ms cap.
	resp, body := postAudio(t, f, "/transcribe", nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
	if msg, _ := body["error"].(string); !strings.Contains(msg, "duration") {
		t.Errorf("error = %q, want duration message", msg)
	}
	if len(f.provider.InferCalls) != 0 {
		t.Error("provider called with overlong audio")
	}
}

func TestTranscribeRejectsOversizedChunkClaim(t *testing.T) {
	t.Parallel()
	f := newFixture(t, &mock.Provider{}, resolve.NewResolver())

	// A ~50-byte upload whose data chunk claims ~4 GiB must be rejected as
	// malformed, not allocated for.
	wav := wavBytes(t, testSamples(1), 16000)
	binary.LittleEndian.PutUint32(wav[40:], 0xFFFFFFF0)
	body, contentType := multipartAudio(t, wav[:44], nil)

	resp, err := http.Post(f.srv.URL+"/transcribe", contentType, body)
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
	if len(f.provider.InferCalls) != 0 {
		t.Error("provider called with malformed audio")
	}
}

func TestTranscribeRejectsOversizedBody(t *testing.T) {
	t.Parallel()
	f := newFixture(t, &mock.Provider{}, resolve.NewResolver())

	// 33 MiB of junk wrapped in a multipart form exceeds the request body
	// limit and must not reach the decoder.
	body, contentType := multipartAudio(t, bytes.Repeat([]byte{0}, 33<<20), nil)
	resp, err := http.Post(f.srv.URL+"/transcribe", contentType, body)
	if err == nil {
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", resp.StatusCode)
		}
	}
	// The server may also cut the connection mid-upload once the limit is
	// hit; either way the provider must stay untouched.
	if len(f.provider.InferCalls) != 0 {
		t.Error("provider called with oversized body")
	}
}

func TestCorrectionRejectsOversizedBody(t *testing.T) {
	t.Parallel()
	f := newFixture(t, &mock.Provider{}, resolve.NewResolver())
	ref := f.registry.Issue()

	padded := corrections.Record{
		CorrectedText: "আমি সুনি" + strings.Repeat("ক", 2<<20),
		AudioRef:      ref,
	}
	payload, err := json.Marshal(padded)
	if err != nil {
		t.Fatalf("marshal record: %v", err)
	}
	resp, err := http.Post(f.srv.URL+"/corrections", "application/json", bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
	if len(f.sink.records) != 0 {
		t.Errorf("sink touched on oversized submission: %d records", len(f.sink.records))
	}
}

func TestTranscribeRejectsWrongSampleRate(t *testing.T) {
	t.Parallel()
	f := newFixture(t, &mock.Provider{}, resolve.NewResolver())

	body, contentType := multipartAudio(t, wavBytes(t, testSamples(800), 8000), nil)
	resp, err := http.Post(f.srv.URL+"/transcribe", contentType, body)
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
	if len(f.provider.InferCalls) != 0 {
		t.Error("provider called with unsupported sample rate")
	}
}

func TestTranscribeModelUnavailable(t *testing.T) {
	t.Parallel()
	f := newFixture(t, &mock.Provider{InferErr: acoustic.ErrModelUnavailable}, resolve.NewResolver())

	resp, _ := postAudio(t, f, "/transcribe", nil)
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", resp.StatusCode)
	}
}

func postCorrection(t *testing.T, f *fixture, rec corrections.Record) (*http.Response, map[string]any) {
	t.Helper()
	payload, err := json.Marshal(rec)
	if err != nil {
		t.Fatalf("marshal record: %v", err)
	}
	resp, err := http.Post(f.srv.URL+"/corrections", "application/json", bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("POST /corrections: %v", err)
	}
	t.Cleanup(func() { resp.Body.Close() })

	var decoded map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp, decoded
}

func TestCorrectionAccepted(t *testing.T) {
	t.Parallel()
	f := newFixture(t, &mock.Provider{}, resolve.NewResolver())
	ref := f.registry.Issue()

	resp, body := postCorrection(t, f, corrections.Record{
		OriginalHypothesis: "আমি শুনি",
		CorrectedText:      "আমি সুনি",
		AudioRef:           ref,
	})
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", resp.StatusCode)
	}
	if body["accepted"] != true {
		t.Errorf("accepted = %v, want true", body["accepted"])
	}
	if len(f.sink.records) != 1 {
		t.Fatalf("sink records = %d, want 1", len(f.sink.records))
	}
	if f.sink.records[0].CorrectedText != "আমি সুনি" {
		t.Errorf("stored corrected text = %q", f.sink.records[0].CorrectedText)
	}
}

func TestCorrectionRejectedEmpty(t *testing.T) {
	t.Parallel()
	f := newFixture(t, &mock.Provider{}, resolve.NewResolver())
	ref := f.registry.Issue()

	resp, body := postCorrection(t, f, corrections.Record{
		CorrectedText: "   ",
		AudioRef:      ref,
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
	if body["accepted"] != false {
		t.Errorf("accepted = %v, want false", body["accepted"])
	}
	if len(f.sink.records) != 0 {
		t.Errorf("sink touched on rejected submission: %d records", len(f.sink.records))
	}
}

func TestCorrectionRejectedUnknownReference(t *testing.T) {
	t.Parallel()
	f := newFixture(t, &mock.Provider{}, resolve.NewResolver())

	resp, body := postCorrection(t, f, corrections.Record{
		CorrectedText: "আমি সুনি",
		AudioRef:      "no-such-ref",
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
	if msg, _ := body["error"].(string); !strings.Contains(msg, "no-such-ref") {
		t.Errorf("error = %q, want unknown reference mention", msg)
	}
}

func TestCorrectionSinkFailure(t *testing.T) {
	t.Parallel()
	f := newFixture(t, &mock.Provider{}, resolve.NewResolver())
	f.sink.err = io.ErrClosedPipe
	ref := f.registry.Issue()

	resp, _ := postCorrection(t, f, corrections.Record{
		CorrectedText: "আমি সুনি",
		AudioRef:      ref,
	})
	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", resp.StatusCode)
	}
}

func TestCorrectionInvalidJSON(t *testing.T) {
	t.Parallel()
	f := newFixture(t, &mock.Provider{}, resolve.NewResolver())

	resp, err := http.Post(f.srv.URL+"/corrections", "application/json", strings.NewReader("{not json"))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestHealthEndpoints(t *testing.T) {
	t.Parallel()
	f := newFixture(t, &mock.Provider{}, resolve.NewResolver())

	for _, path := range []string{"/healthz", "/readyz"} {
		resp, err := http.Get(f.srv.URL + path)
		if err != nil {
			t.Fatalf("GET %s: %v", path, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Errorf("GET %s = %d, want 200", path, resp.StatusCode)
		}
	}
}

func TestReadyzFailingChecker(t *testing.T) {
	t.Parallel()
	h := health.New(health.Info{Model: "mock"},
		health.Checker{Name: "acoustic", Check: func(context.Context) error { return nil }},
		health.Checker{Name: "language_model", Check: func(context.Context) error {
			return errors.New("language model not loaded")
		}},
	)
	f := newFixture(t, &mock.Provider{}, resolve.NewResolver(), server.WithHealth(h))

	resp, err := http.Get(f.srv.URL + "/readyz")
	if err != nil {
		t.Fatalf("GET /readyz: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", resp.StatusCode)
	}

	var body struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body.Status != "fail" {
		t.Errorf("status = %q, want %q", body.Status, "fail")
	}
	if got := body.Checks["acoustic"]; got != "ok" {
		t.Errorf("checks[acoustic] = %q, want %q", got, "ok")
	}
	if got := body.Checks["language_model"]; !strings.Contains(got, "fail") {
		t.Errorf("checks[language_model] = %q, want failure", got)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	t.Parallel()
	f := newFixture(t, &mock.Provider{}, resolve.NewResolver())

	resp, err := http.Get(f.srv.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("GET /metrics = %d, want 200", resp.StatusCode)
	}
}
