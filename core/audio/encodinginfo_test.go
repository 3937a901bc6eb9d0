package audio

import (
	"testing"
	"time"
)

func TestEncodingInfoDuration(t *testing.T) {
	e := EncodingInfo{SampleRate: 16000, Format: EncodingPCM}
	if got := e.Duration(3200); got != 100*time.Millisecond {
		t.Fatalf("expected 3200 bytes of 16kHz pcm to last 100ms, got %s", got)
	}
	if got := e.BytesFor(100 * time.Millisecond); got != 3200 {
		t.Fatalf("expected 100ms of 16kHz pcm to be 3200 bytes, got %d", got)
	}

	mp3 := EncodingInfo{SampleRate: 24000, Format: EncodingMP3}
	if got := mp3.Duration(3200); got != 0 {
		t.Fatalf("expected no duration for compressed audio, got %s", got)
	}
}

func TestEncodingInfoValidate(t *testing.T) {
	if err := GetDefaultEncodingInfo().Validate(); err != nil {
		t.Fatalf("expected default encoding to be valid, got %v", err)
	}
	if err := (EncodingInfo{SampleRate: 11025, Format: EncodingPCM}).Validate(); err == nil {
		t.Fatalf("expected unsupported sample rate to fail")
	}
	if err := (EncodingInfo{SampleRate: 16000, Format: "linear16"}).Validate(); err == nil {
		t.Fatalf("expected unsupported format to fail")
	}
}

func TestParseFormat(t *testing.T) {
	format, err := ParseFormat("mp3")
	if err != nil || format != EncodingMP3 {
		t.Fatalf("expected mp3, got %q (%v)", format, err)
	}
	if format.ContentType() != "audio/mpeg" {
		t.Fatalf("expected audio/mpeg, got %s", format.ContentType())
	}
	if _, err := ParseFormat("flac"); err == nil {
		t.Fatalf("expected flac to be rejected")
	}
}
