package qwen

import (
	"fmt"

	"github.com/koscakluka/ema-realtime/core/audio"
)

const DefaultSampleRate = 24000

func defaultEncodingInfo() audio.EncodingInfo {
	return audio.EncodingInfo{SampleRate: DefaultSampleRate, Format: audio.EncodingPCM}
}

type encodingInfo struct {
	SampleRate int
	Format     string
}

func convertEncoding(encoding audio.EncodingInfo) (*encodingInfo, error) {
	qwenEncoding := encodingInfo{}
	switch encoding.SampleRate {
	case 8000, 16000, 24000, 48000:
		qwenEncoding.SampleRate = encoding.SampleRate
	default:
		return nil, fmt.Errorf("unsupported sample rate %d", encoding.SampleRate)
	}

	switch encoding.Format {
	case audio.EncodingPCM, audio.EncodingWAV, audio.EncodingMP3, audio.EncodingOpus:
		qwenEncoding.Format = encoding.Format.Name()
	default:
		return nil, fmt.Errorf("unsupported encoding %q", encoding.Format)
	}

	return &qwenEncoding, nil
}
