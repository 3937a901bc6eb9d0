package audio

import (
	"fmt"
	"time"
)

const (
	DefaultSampleRate = 16000
	DefaultFormat     = "pcm"
)

func GetDefaultEncodingInfo() EncodingInfo {
	return EncodingInfo{SampleRate: DefaultSampleRate, Format: EncodingPCM}
}

type EncodingInfo struct {
	SampleRate int
	Format     encodingFormat
}

func (e EncodingInfo) IsZero() bool {
	return e.SampleRate == 0 || e.Format.Name() == ""
}

// Validate reports whether the encoding can be used for a realtime session.
func (e EncodingInfo) Validate() error {
	switch e.SampleRate {
	case 8000, 16000, 24000, 48000:
	default:
		return fmt.Errorf("unsupported sample rate %d", e.SampleRate)
	}
	if !e.Format.Known() {
		return fmt.Errorf("unsupported audio format %q", e.Format)
	}
	return nil
}

// Duration returns how long n bytes of raw audio last. It is zero for
// compressed formats.
func (e EncodingInfo) Duration(n int) time.Duration {
	size := e.Format.ByteSize()
	if size <= 0 || e.SampleRate <= 0 {
		return 0
	}
	samples := n / size
	return time.Duration(samples) * time.Second / time.Duration(e.SampleRate)
}

// BytesFor returns the number of raw audio bytes that last d.
func (e EncodingInfo) BytesFor(d time.Duration) int {
	size := e.Format.ByteSize()
	if size <= 0 {
		return 0
	}
	return int(int64(e.SampleRate) * int64(d) / int64(time.Second) * int64(size))
}

type encodingFormat string

func (e encodingFormat) Name() string {
	return string(e)
}

func (e encodingFormat) Known() bool {
	switch e {
	case EncodingPCM, EncodingWAV, EncodingMP3, EncodingOpus:
		return true
	}
	return false
}

// ByteSize is the size of one mono sample, or -1 for compressed formats.
func (e encodingFormat) ByteSize() int {
	switch e {
	case EncodingPCM:
		return 2
	}
	return -1
}

func (e encodingFormat) ContentType() string {
	switch e {
	case EncodingPCM:
		return "audio/L16"
	case EncodingWAV:
		return "audio/wav"
	case EncodingMP3:
		return "audio/mpeg"
	case EncodingOpus:
		return "audio/opus"
	}
	return "application/octet-stream"
}

// ParseFormat converts a wire format name.
func ParseFormat(name string) (encodingFormat, error) {
	format := encodingFormat(name)
	if !format.Known() {
		return "", fmt.Errorf("unsupported audio format %q", name)
	}
	return format, nil
}

const (
	EncodingPCM  encodingFormat = "pcm"
	EncodingWAV  encodingFormat = "wav"
	EncodingMP3  encodingFormat = "mp3"
	EncodingOpus encodingFormat = "opus"
)
