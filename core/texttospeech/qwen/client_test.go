package qwen

import (
	"context"
	"encoding/base64"
	"errors"
	"sync"
	"testing"

	"github.com/koscakluka/ema-realtime/core/audio"
	"github.com/koscakluka/ema-realtime/core/realtime"
	"github.com/koscakluka/ema-realtime/core/realtime/protocol"
	"github.com/koscakluka/ema-realtime/core/realtime/realtimetest"
	"github.com/koscakluka/ema-realtime/core/texttospeech"
)

func newTestClient(t *testing.T, tr *realtimetest.Transport, opts ...ClientOption) *SpeechClient {
	t.Helper()
	opts = append(opts, WithSessionOptions(realtime.WithTransport(tr)))
	client, err := NewSpeechClient("test-key", opts...)
	if err != nil {
		t.Fatalf("expected client to be created, got %v", err)
	}
	return client
}

type synthesis struct {
	audio []byte
	err   error
}

func synthesizeAsync(client *SpeechClient, text string, opts ...texttospeech.TextToSpeechOption) <-chan synthesis {
	results := make(chan synthesis, 1)
	go func() {
		audio, err := client.Synthesize(context.Background(), text, opts...)
		results <- synthesis{audio, err}
	}()
	return results
}

func delta(chunk string) map[string]any {
	return map[string]any{
		"type":  protocol.TypeResponseAudioDelta,
		"delta": base64.StdEncoding.EncodeToString([]byte(chunk)),
	}
}

func TestSynthesizeAssemblesAudio(t *testing.T) {
	tr := realtimetest.NewTransport()
	client := newTestClient(t, tr)

	var mu sync.Mutex
	var chunks []string
	var report texttospeech.SpeechEndedReport
	results := synthesizeAsync(client, "Hello there",
		texttospeech.WithSpeechAudioCallback(func(b []byte) {
			mu.Lock()
			defer mu.Unlock()
			chunks = append(chunks, string(b))
		}),
		texttospeech.WithSpeechEndedCallback(func(r texttospeech.SpeechEndedReport) {
			mu.Lock()
			defer mu.Unlock()
			report = r
		}))

	srv := tr.NextServer(t)
	update := srv.Accept(t, "sess_tts")
	session := update["session"].(map[string]any)
	if session["mode"] != "commit" || session["voice"] != "Cherry" {
		t.Fatalf("unexpected session config %v", session)
	}
	if session["response_format"] != "pcm" || session["sample_rate"] != float64(24000) {
		t.Fatalf("expected 24kHz pcm, got %v", session)
	}

	if msg := srv.Expect(t, protocol.TypeInputTextBufferAppend); msg["text"] != "Hello there" {
		t.Fatalf("expected the text to be appended, got %v", msg["text"])
	}
	srv.Expect(t, protocol.TypeInputTextBufferCommit)
	srv.SendJSON(t, map[string]any{"type": protocol.TypeInputTextBufferCommitted})
	srv.SendJSON(t, map[string]any{"type": protocol.TypeResponseCreated})
	srv.SendJSON(t, delta("chunk0"))
	srv.SendJSON(t, delta("chunk1"))
	srv.SendJSON(t, map[string]any{"type": protocol.TypeResponseAudioDone})
	srv.SendJSON(t, map[string]any{"type": protocol.TypeResponseDone})
	srv.Expect(t, protocol.TypeSessionFinish)
	srv.SendJSON(t, map[string]any{"type": protocol.TypeSessionFinished})

	r := <-results
	if r.err != nil {
		t.Fatalf("expected synthesis to succeed, got %v", r.err)
	}
	if string(r.audio) != "chunk0chunk1" {
		t.Fatalf("expected audio %q, got %q", "chunk0chunk1", r.audio)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(chunks) != 2 || chunks[0] != "chunk0" || chunks[1] != "chunk1" {
		t.Fatalf("expected two chunk callbacks in order, got %v", chunks)
	}
	if report.Bytes != len("chunk0chunk1") || report.Chunks != 2 {
		t.Fatalf("unexpected speech ended report %+v", report)
	}
}

func TestSynthesizeServerErrorCallsErrorCallback(t *testing.T) {
	tr := realtimetest.NewTransport()
	client := newTestClient(t, tr)

	var callbackErr error
	results := synthesizeAsync(client, "Hello", texttospeech.WithErrorCallback(func(err error) { callbackErr = err }))

	srv := tr.NextServer(t)
	srv.Accept(t, "sess")
	srv.Expect(t, protocol.TypeInputTextBufferAppend)
	srv.Expect(t, protocol.TypeInputTextBufferCommit)
	srv.SendJSON(t, map[string]any{
		"type":  protocol.TypeError,
		"error": map[string]any{"code": "Throttling", "message": "too many requests"},
	})

	r := <-results
	var serverErr *realtime.ServerError
	if !errors.As(r.err, &serverErr) || serverErr.Code != "Throttling" {
		t.Fatalf("expected throttling server error, got %v", r.err)
	}
	if !errors.As(callbackErr, &serverErr) {
		t.Fatalf("expected the error callback to receive the server error, got %v", callbackErr)
	}
}

func TestSynthesizeOptionsOverrideDefaults(t *testing.T) {
	tr := realtimetest.NewTransport()
	client := newTestClient(t, tr, WithDefaultSpeechOptions(texttospeech.WithLanguageType("English")))

	results := synthesizeAsync(client, "Hi",
		texttospeech.WithVoice("Ethan"),
		texttospeech.WithEncodingInfo(audio.EncodingInfo{SampleRate: 16000, Format: audio.EncodingMP3}))

	srv := tr.NextServer(t)
	session := srv.Accept(t, "sess")["session"].(map[string]any)
	if session["voice"] != "Ethan" || session["language_type"] != "English" {
		t.Fatalf("expected voice and language to be applied, got %v", session)
	}
	if session["response_format"] != "mp3" || session["sample_rate"] != float64(16000) {
		t.Fatalf("expected 16kHz mp3, got %v", session)
	}
	srv.Close(1006, "")
	<-results
}

func TestSynthesizeRejectsEmptyTextAndUnknownVoice(t *testing.T) {
	tr := realtimetest.NewTransport()
	client := newTestClient(t, tr)

	if _, err := client.Synthesize(context.Background(), "  "); err == nil {
		t.Fatalf("expected empty text to be rejected")
	}
	if _, err := client.Synthesize(context.Background(), "hi", texttospeech.WithVoice("Nobody")); err == nil {
		t.Fatalf("expected unknown voice to be rejected")
	}
	if len(tr.Dials()) != 0 {
		t.Fatalf("expected no connection for invalid requests")
	}
	if _, err := NewSpeechClient("key", WithDefaultVoice("Nobody")); err == nil {
		t.Fatalf("expected client with unknown voice to fail")
	}
}
