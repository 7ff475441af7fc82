// Package audio provides decoding of uploaded audio into the mono 16 kHz
// PCM clips the acoustic models consume.
//
// Only canonical 16-bit PCM WAV is handled here; format conversion and
// resampling happen upstream of the service. A [Clip] is an opaque handle
// owned by the caller — the pipeline reads samples but never retains or
// persists them.
package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"time"
)

// ModelSampleRate is the sample rate (Hz) the acoustic models expect.
const ModelSampleRate = 16000

// ErrFormat indicates the input is not a canonical 16-bit PCM WAV file.
var ErrFormat = errors.New("audio: unsupported format")

// maxChunkBytes caps a single declared chunk size. Chunk sizes arrive from
// the uploader and must be validated before any allocation; 32 MiB holds a
// quarter hour of 16 kHz mono 16-bit PCM.
const maxChunkBytes = 32 << 20

// Clip holds decoded mono PCM samples normalised to [-1, 1].
type Clip struct {
	samples    []float32
	sampleRate int
}

// NewClip wraps already-decoded samples in a Clip. Used by tests and by
// callers that produce PCM directly.
func NewClip(samples []float32, sampleRate int) *Clip {
	return &Clip{samples: samples, sampleRate: sampleRate}
}

// Samples returns the decoded mono samples. The slice is owned by the Clip;
// callers must not modify it.
func (c *Clip) Samples() []float32 { return c.samples }

// SampleRate returns the clip's sample rate in Hz.
func (c *Clip) SampleRate() int { return c.sampleRate }

// SampleCount returns the number of mono samples.
func (c *Clip) SampleCount() int { return len(c.samples) }

// Duration returns the clip length.
func (c *Clip) Duration() time.Duration {
	if c.sampleRate <= 0 {
		return 0
	}
	return time.Duration(float64(len(c.samples)) / float64(c.sampleRate) * float64(time.Second))
}

// DecodeWAV reads a canonical 16-bit PCM WAV stream and returns its samples
// as a mono [Clip]. Multi-channel audio is down-mixed by averaging channels.
// Returns an error wrapping [ErrFormat] for compressed or non-16-bit files,
// and for chunks declaring more than an internal size cap; declared sizes
// are validated before anything is allocated.
func DecodeWAV(r io.Reader) (*Clip, error) {
	var header [12]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, fmt.Errorf("audio: read RIFF header: %w", err)
	}
	if string(header[0:4]) != "RIFF" || string(header[8:12]) != "WAVE" {
		return nil, fmt.Errorf("%w: missing RIFF/WAVE header", ErrFormat)
	}

	var (
		sampleRate int
		channels   int
		haveFmt    bool
	)

	for {
		var chunk [8]byte
		if _, err := io.ReadFull(r, chunk[:]); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return nil, fmt.Errorf("%w: no data chunk", ErrFormat)
			}
			return nil, fmt.Errorf("audio: read chunk header: %w", err)
		}
		id := string(chunk[0:4])
		size := binary.LittleEndian.Uint32(chunk[4:8])
		if size > maxChunkBytes {
			return nil, fmt.Errorf("%w: %s chunk declares %d bytes", ErrFormat, id, size)
		}

		switch id {
		case "fmt ":
			body := make([]byte, size)
			if _, err := io.ReadFull(r, body); err != nil {
				return nil, fmt.Errorf("audio: read fmt chunk: %w", err)
			}
			if len(body) < 16 {
				return nil, fmt.Errorf("%w: truncated fmt chunk", ErrFormat)
			}
			format := binary.LittleEndian.Uint16(body[0:2])
			channels = int(binary.LittleEndian.Uint16(body[2:4]))
			sampleRate = int(binary.LittleEndian.Uint32(body[4:8]))
			bits := binary.LittleEndian.Uint16(body[14:16])
			if format != 1 || bits != 16 {
				return nil, fmt.Errorf("%w: need 16-bit PCM, got format %d with %d bits", ErrFormat, format, bits)
			}
			if channels < 1 {
				return nil, fmt.Errorf("%w: %d channels", ErrFormat, channels)
			}
			haveFmt = true

		case "data":
			if !haveFmt {
				return nil, fmt.Errorf("%w: data chunk before fmt chunk", ErrFormat)
			}
			body := make([]byte, size)
			if _, err := io.ReadFull(r, body); err != nil {
				return nil, fmt.Errorf("audio: read data chunk: %w", err)
			}
			return &Clip{
				samples:    pcmToMono(body, channels),
				sampleRate: sampleRate,
			}, nil

		default:
			// Skip unrelated chunks (LIST, fact, …). Chunk bodies are padded
			// to even length.
			skip := int64(size)
			if size%2 == 1 {
				skip++
			}
			if _, err := io.CopyN(io.Discard, r, skip); err != nil {
				return nil, fmt.Errorf("audio: skip %s chunk: %w", id, err)
			}
		}
	}
}

// pcmToMono converts 16-bit little-endian PCM to mono float32 samples in
// [-1, 1], averaging channels per frame.
func pcmToMono(pcm []byte, channels int) []float32 {
	frames := len(pcm) / (2 * channels)
	mono := make([]float32, frames)
	for i := range frames {
		var sum float32
		for ch := range channels {
			idx := (i*channels + ch) * 2
			sample := int16(binary.LittleEndian.Uint16(pcm[idx : idx+2]))
			sum += float32(sample) / 32768.0
		}
		mono[i] = sum / float32(channels)
	}
	return mono
}
