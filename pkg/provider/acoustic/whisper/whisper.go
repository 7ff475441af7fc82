// Package whisper provides whisper.cpp-backed acoustic providers.
//
// Two implementations exist:
//
//   - [Provider] connects to a running whisper-server binary (which exposes a
//     REST API at POST /inference) and submits each clip as a batch inference
//     request.
//   - [NativeProvider] loads the model in-process through the whisper.cpp CGO
//     bindings, eliminating HTTP overhead entirely.
//
// Both return an [acoustic.Hypothesis] whose confidence is derived from the
// model's token probabilities.
package whisper

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/brac-ds/shruti/pkg/audio"
	"github.com/brac-ds/shruti/pkg/provider/acoustic"
)

const (
	// bitsPerSample is fixed at 16 for the 16-bit signed little-endian PCM
	// audio that whisper.cpp expects.
	bitsPerSample = 16

	defaultLanguage = "bn"
)

// Compile-time assertion that Provider implements acoustic.Provider.
var _ acoustic.Provider = (*Provider)(nil)

// Option is a functional option for configuring a Provider.
type Option func(*Provider)

// WithModel sets the model identifier forwarded to the whisper.cpp server
// (e.g., "small", "medium"). When empty the server uses whichever model it
// was started with — this is the default.
func WithModel(model string) Option {
	return func(p *Provider) {
		p.model = model
	}
}

// WithLanguage sets the BCP-47 language code sent to the whisper.cpp server.
// Defaults to "bn".
func WithLanguage(lang string) Option {
	return func(p *Provider) {
		p.language = lang
	}
}

// WithHTTPClient replaces the default HTTP client (30 s timeout). Useful in
// tests and for deployments with custom transport requirements.
func WithHTTPClient(c *http.Client) Option {
	return func(p *Provider) {
		if c != nil {
			p.httpClient = c
		}
	}
}

// Provider implements acoustic.Provider backed by a whisper.cpp HTTP server.
// It is safe for concurrent use; every call is an independent batch request.
type Provider struct {
	serverURL  string
	model      string
	language   string
	httpClient *http.Client
}

// New creates a new Provider that connects to the whisper.cpp HTTP server at
// serverURL (e.g., "http://localhost:8080"). serverURL must be non-empty.
// Functional options may be provided to override defaults.
func New(serverURL string, opts ...Option) (*Provider, error) {
	if serverURL == "" {
		return nil, errors.New("whisper: serverURL must not be empty")
	}
	p := &Provider{
		serverURL:  serverURL,
		language:   defaultLanguage,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

// Ping verifies the whisper-server is reachable. Any HTTP response counts as
// reachable; only transport-level failures are reported, wrapped with
// [acoustic.ErrModelUnavailable].
func (p *Provider) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.serverURL+"/", nil)
	if err != nil {
		return fmt.Errorf("whisper: create ping request: %w", err)
	}
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("whisper: ping: %w: %w", acoustic.ErrModelUnavailable, err)
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	return nil
}

// inferenceResponse is the verbose JSON body returned by whisper-server.
type inferenceResponse struct {
	Text     string `json:"text"`
	Segments []struct {
		Text       string  `json:"text"`
		AvgLogProb float64 `json:"avg_logprob"`
	} `json:"segments"`
}

// Infer encodes clip as a WAV file and POSTs it to the whisper.cpp
// /inference endpoint as multipart/form-data. The hypothesis confidence is
// the exponentiated mean of the per-segment average log probabilities; when
// the server returns no segment detail the confidence is 0 so the resolution
// pipeline treats the hypothesis as unvetted.
//
// Connection failures and 5xx responses wrap [acoustic.ErrModelUnavailable].
func (p *Provider) Infer(ctx context.Context, clip *audio.Clip) (acoustic.Hypothesis, error) {
	var zero acoustic.Hypothesis
	if clip == nil || clip.SampleCount() == 0 {
		return zero, errors.New("whisper: empty clip")
	}

	wav := encodeWAV(clip.Samples(), clip.SampleRate())

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	fw, err := mw.CreateFormFile("file", "audio.wav")
	if err != nil {
		return zero, fmt.Errorf("whisper: create form file: %w", err)
	}
	if _, err := fw.Write(wav); err != nil {
		return zero, fmt.Errorf("whisper: write wav data: %w", err)
	}

	fields := map[string]string{
		"response_format": "verbose_json",
	}
	if p.language != "" {
		fields["language"] = p.language
	}
	if p.model != "" {
		fields["model"] = p.model
	}
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			return zero, fmt.Errorf("whisper: write %s field: %w", k, err)
		}
	}

	if err := mw.Close(); err != nil {
		return zero, fmt.Errorf("whisper: close multipart writer: %w", err)
	}

	endpoint := p.serverURL + "/inference"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &body)
	if err != nil {
		return zero, fmt.Errorf("whisper: create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return zero, fmt.Errorf("whisper: http request: %w: %w", acoustic.ErrModelUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		return zero, fmt.Errorf("whisper: server returned HTTP %d: %w", resp.StatusCode, acoustic.ErrModelUnavailable)
	}
	if resp.StatusCode != http.StatusOK {
		return zero, fmt.Errorf("whisper: server returned HTTP %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return zero, fmt.Errorf("whisper: read response body: %w", err)
	}

	var result inferenceResponse
	if err := json.Unmarshal(data, &result); err != nil {
		return zero, fmt.Errorf("whisper: parse JSON response: %w", err)
	}

	text := strings.TrimSpace(result.Text)
	return acoustic.Hypothesis{
		Text:       text,
		Tokens:     strings.Fields(text),
		Confidence: segmentConfidence(result),
	}, nil
}

// segmentConfidence converts the per-segment average log probabilities into a
// single [0, 1] confidence value.
func segmentConfidence(r inferenceResponse) float64 {
	if len(r.Segments) == 0 {
		return 0
	}
	var sum float64
	for _, seg := range r.Segments {
		sum += seg.AvgLogProb
	}
	conf := math.Exp(sum / float64(len(r.Segments)))
	return clamp01(conf)
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}

// encodeWAV wraps samples in a standard RIFF/WAV container as 16-bit signed
// little-endian mono PCM. The returned byte slice is suitable for direct
// inclusion in a multipart form upload.
func encodeWAV(samples []float32, sampleRate int) []byte {
	const channels = 1
	bps := bitsPerSample
	byteRate := sampleRate * channels * bps / 8
	blockAlign := channels * bps / 8
	dataSize := len(samples) * 2

	buf := make([]byte, 44+dataSize)

	// RIFF chunk descriptor
	copy(buf[0:4], "RIFF")
	binary.LittleEndian.PutUint32(buf[4:8], uint32(36+dataSize)) // file size − 8
	copy(buf[8:12], "WAVE")

	// fmt sub-chunk
	copy(buf[12:16], "fmt ")
	binary.LittleEndian.PutUint32(buf[16:20], 16)                 // sub-chunk size (PCM)
	binary.LittleEndian.PutUint16(buf[20:22], 1)                  // audio format: PCM
	binary.LittleEndian.PutUint16(buf[22:24], uint16(channels))   // num channels
	binary.LittleEndian.PutUint32(buf[24:28], uint32(sampleRate)) // sample rate
	binary.LittleEndian.PutUint32(buf[28:32], uint32(byteRate))   // byte rate
	binary.LittleEndian.PutUint16(buf[32:34], uint16(blockAlign)) // block align
	binary.LittleEndian.PutUint16(buf[34:36], uint16(bps))        // bits per sample

	// data sub-chunk
	copy(buf[36:40], "data")
	binary.LittleEndian.PutUint32(buf[40:44], uint32(dataSize))
	for i, s := range samples {
		v := int16(math.Round(float64(clampSample(s)) * 32767))
		binary.LittleEndian.PutUint16(buf[44+i*2:46+i*2], uint16(v))
	}

	return buf
}

func clampSample(s float32) float32 {
	switch {
	case s < -1:
		return -1
	case s > 1:
		return 1
	}
	return s
}
