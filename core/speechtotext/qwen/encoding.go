package qwen

import (
	"fmt"

	"github.com/koscakluka/ema-realtime/core/audio"
)

// chunkDuration is how much audio Recognize sends per append.
const chunkDuration = 100

type encodingInfo struct {
	SampleRate int
	Format     string
	ChunkSize  int
}

func convertEncoding(encoding audio.EncodingInfo) (*encodingInfo, error) {
	qwenEncoding := encodingInfo{}
	switch encoding.SampleRate {
	case 8000, 16000:
		qwenEncoding.SampleRate = encoding.SampleRate
	default:
		return nil, fmt.Errorf("unsupported sample rate %d", encoding.SampleRate)
	}

	switch encoding.Format {
	case audio.EncodingPCM:
		qwenEncoding.Format = encoding.Format.Name()
		qwenEncoding.ChunkSize = encoding.SampleRate * encoding.Format.ByteSize() * chunkDuration / 1000
	case audio.EncodingOpus:
		qwenEncoding.Format = encoding.Format.Name()
		qwenEncoding.ChunkSize = defaultChunkSize
	default:
		return nil, fmt.Errorf("unsupported encoding %q", encoding.Format)
	}

	return &qwenEncoding, nil
}

const defaultChunkSize = 3200
