package audio

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrInvalidChunk is returned when a chunk is not valid base64 PCM.
var ErrInvalidChunk = errors.New("invalid audio chunk")

// Format describes raw PCM sample layout.
type Format struct {
	SampleRate    int
	Channels      int
	BitsPerSample int
}

// PCM16Mono returns 16-bit mono PCM at sampleRate (24kHz when not positive).
func PCM16Mono(sampleRate int) Format {
	if sampleRate <= 0 {
		sampleRate = 24000
	}
	return Format{SampleRate: sampleRate, Channels: 1, BitsPerSample: 16}
}

// BlockAlign is the byte size of one sample frame.
func (f Format) BlockAlign() int {
	return f.Channels * f.BitsPerSample / 8
}

// ByteRate is the number of bytes per second of audio.
func (f Format) ByteRate() int {
	return f.SampleRate * f.BlockAlign()
}

// Duration converts a PCM byte length to playback time.
func Duration(pcmLen int, f Format) time.Duration {
	rate := f.ByteRate()
	if rate <= 0 || pcmLen <= 0 {
		return 0
	}
	return time.Duration(int64(pcmLen) * int64(time.Second) / int64(rate))
}

// Silence returns a base64 chunk of zeroed samples lasting d.
func Silence(d time.Duration, f Format) string {
	if d <= 0 || f.BlockAlign() <= 0 {
		return ""
	}
	frames := int64(d) * int64(f.SampleRate) / int64(time.Second)
	return base64.StdEncoding.EncodeToString(make([]byte, frames*int64(f.BlockAlign())))
}

// Decode returns the raw PCM bytes of a base64 chunk.
func Decode(chunk string) ([]byte, error) {
	chunk = strings.TrimSpace(chunk)
	if chunk == "" {
		return nil, nil
	}
	raw, err := base64.StdEncoding.DecodeString(chunk)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidChunk, err)
	}
	return raw, nil
}

// Merge decodes chunks in order, concatenates the bytes, and re-encodes them.
// An empty list yields "" which is a valid silent buffer.
func Merge(chunks []string) (string, error) {
	if len(chunks) == 0 {
		return "", nil
	}
	var merged []byte
	for i, chunk := range chunks {
		raw, err := Decode(chunk)
		if err != nil {
			return "", fmt.Errorf("merge chunk %d: %w", i, err)
		}
		merged = append(merged, raw...)
	}
	return base64.StdEncoding.EncodeToString(merged), nil
}
