package main

import (
	"testing"

	"github.com/koscakluka/ema-realtime/core/audio"
)

func TestUnknownAudioBackendIsRejected(t *testing.T) {
	encoding := audio.EncodingInfo{SampleRate: 16000, Format: audio.EncodingPCM}
	if _, err := openCaptureDevice("alsa", encoding); err == nil {
		t.Fatalf("expected unknown capture backend to fail")
	}
	if _, err := openPlaybackDevice("", encoding); err == nil {
		t.Fatalf("expected unknown playback backend to fail")
	}
}
