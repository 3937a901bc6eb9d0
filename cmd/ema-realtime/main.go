package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/koscakluka/ema-realtime/core/audio"
	"github.com/koscakluka/ema-realtime/core/audio/miniaudio"
	"github.com/koscakluka/ema-realtime/core/audio/portaudio"
	"github.com/koscakluka/ema-realtime/core/speechtotext"
	asrqwen "github.com/koscakluka/ema-realtime/core/speechtotext/qwen"
	"github.com/koscakluka/ema-realtime/core/texttospeech"
	ttsqwen "github.com/koscakluka/ema-realtime/core/texttospeech/qwen"
	"github.com/koscakluka/ema-realtime/internal/config"
	"github.com/koscakluka/ema-realtime/internal/httpapi"
	"github.com/koscakluka/ema-realtime/internal/observability"
)

const usage = `usage: ema-realtime <command> [flags]

commands:
  recognize   transcribe a raw pcm file or the microphone
  synthesize  turn text into audio
  serve       run the http gateway`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}

	if err := config.LoadDotEnv(); err != nil {
		log.Fatalf("dotenv error: %v", err)
	}
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	args := os.Args[2:]
	switch os.Args[1] {
	case "recognize":
		err = runRecognize(cfg, args)
	case "synthesize":
		err = runSynthesize(cfg, args)
	case "serve":
		err = runServe(cfg)
	default:
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "ema-realtime: %v\n", err)
		os.Exit(1)
	}
}

func newTranscriptionClient(cfg config.Config) (*asrqwen.TranscriptionClient, error) {
	defaults := []speechtotext.TranscriptionOption{speechtotext.WithEncodingInfo(cfg.ASREncoding())}
	if cfg.ASRLanguage != "" {
		defaults = append(defaults, speechtotext.WithLanguage(cfg.ASRLanguage))
	}
	if cfg.ASRServerVAD {
		defaults = append(defaults, speechtotext.WithServerVAD(speechtotext.DefaultTurnDetection()))
	}
	return asrqwen.NewTranscriptionClient(cfg.APIKey,
		asrqwen.WithRegion(cfg.Region),
		asrqwen.WithModel(cfg.ASRModel),
		asrqwen.WithBaseURL(cfg.WSBaseURL),
		asrqwen.WithDefaultTranscriptionOptions(defaults...),
		asrqwen.WithSessionOptions(cfg.SessionOptions()...))
}

func newSpeechClient(cfg config.Config) (*ttsqwen.SpeechClient, error) {
	encoding, err := cfg.TTSEncoding()
	if err != nil {
		return nil, err
	}
	return ttsqwen.NewSpeechClient(cfg.APIKey,
		ttsqwen.WithRegion(cfg.Region),
		ttsqwen.WithModel(cfg.TTSModel),
		ttsqwen.WithBaseURL(cfg.WSBaseURL),
		ttsqwen.WithDefaultVoice(cfg.TTSVoice),
		ttsqwen.WithDefaultSpeechOptions(texttospeech.WithEncodingInfo(encoding)),
		ttsqwen.WithSessionOptions(cfg.SessionOptions()...))
}

type captureDevice interface {
	StartCapture(ctx context.Context, onAudio func(audio []byte)) error
	StopCapture() error
	Close()
}

type playbackDevice interface {
	SendAudio(audio []byte) error
	AwaitPlayback(ctx context.Context) error
	Close()
}

func openCaptureDevice(backend string, encoding audio.EncodingInfo) (captureDevice, error) {
	switch backend {
	case "miniaudio":
		return miniaudio.NewClient(miniaudio.WithCapture(encoding))
	case "portaudio":
		return portaudio.NewClient(portaudio.WithCapture(encoding))
	}
	return nil, fmt.Errorf("unknown audio backend %q", backend)
}

func openPlaybackDevice(backend string, encoding audio.EncodingInfo) (playbackDevice, error) {
	switch backend {
	case "miniaudio":
		return miniaudio.NewClient(miniaudio.WithPlayback(encoding))
	case "portaudio":
		return portaudio.NewClient(portaudio.WithPlayback(encoding))
	}
	return nil, fmt.Errorf("unknown audio backend %q", backend)
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func runRecognize(cfg config.Config, args []string) error {
	fs := flag.NewFlagSet("recognize", flag.ExitOnError)
	in := fs.String("in", "", "raw 16-bit little-endian pcm file, - for stdin")
	mic := fs.Bool("mic", false, "capture from the default microphone")
	duration := fs.Duration("duration", 5*time.Second, "how long to capture from the microphone")
	language := fs.String("language", "", "language hint, overrides ASR_LANGUAGE")
	partials := fs.Bool("partials", true, "print interim transcripts to stderr")
	backend := fs.String("backend", "miniaudio", "audio device backend for -mic: miniaudio or portaudio")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if (*in == "") == !*mic {
		return errors.New("exactly one of -in or -mic is required")
	}

	client, err := newTranscriptionClient(cfg)
	if err != nil {
		return fmt.Errorf("failed to create transcription client: %w", err)
	}

	var opts []speechtotext.TranscriptionOption
	if *language != "" {
		opts = append(opts, speechtotext.WithLanguage(*language))
	}
	if *partials {
		opts = append(opts, speechtotext.WithInterimTranscriptionCallback(func(transcript string) {
			fmt.Fprintf(os.Stderr, "... %s\n", transcript)
		}))
	}

	ctx, cancel := signalContext()
	defer cancel()

	var transcript string
	if *mic {
		transcript, err = recognizeMicrophone(ctx, cfg, client, *backend, *duration, opts)
	} else {
		var r io.Reader = os.Stdin
		if *in != "-" {
			f, err := os.Open(*in)
			if err != nil {
				return fmt.Errorf("failed to open audio: %w", err)
			}
			defer f.Close()
			r = f
		}
		transcript, err = client.Recognize(ctx, r, opts...)
	}
	if err != nil {
		return err
	}

	fmt.Println(transcript)
	return nil
}

func recognizeMicrophone(ctx context.Context, cfg config.Config, client *asrqwen.TranscriptionClient, backend string, duration time.Duration, opts []speechtotext.TranscriptionOption) (string, error) {
	session, err := client.NewSession(opts...)
	if err != nil {
		return "", err
	}
	if err := session.Connect(ctx); err != nil {
		return "", err
	}
	defer session.Disconnect()

	device, err := openCaptureDevice(backend, cfg.ASREncoding())
	if err != nil {
		return "", err
	}
	defer device.Close()

	if err := device.StartCapture(ctx, func(chunk []byte) {
		if err := session.SendAudio(chunk); err != nil {
			log.Printf("failed to send audio: %v", err)
		}
	}); err != nil {
		return "", fmt.Errorf("failed to start capture: %w", err)
	}

	fmt.Fprintf(os.Stderr, "listening for %s\n", duration)
	select {
	case <-time.After(duration):
	case <-ctx.Done():
	}
	if err := device.StopCapture(); err != nil {
		log.Printf("failed to stop capture: %v", err)
	}
	if ctx.Err() != nil {
		return "", ctx.Err()
	}

	if err := session.CommitAudio(); err != nil {
		return "", err
	}
	return session.Finish(ctx)
}

func runSynthesize(cfg config.Config, args []string) error {
	fs := flag.NewFlagSet("synthesize", flag.ExitOnError)
	text := fs.String("text", "", "text to speak")
	voice := fs.String("voice", "", "voice, overrides TTS_VOICE")
	out := fs.String("out", "", "write the audio to this file, - for stdout")
	play := fs.Bool("play", false, "play the audio on the default speaker as it arrives")
	backend := fs.String("backend", "miniaudio", "audio device backend for -play: miniaudio or portaudio")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *text == "" {
		return errors.New("-text is required")
	}
	if *out == "" && !*play {
		return errors.New("at least one of -out or -play is required")
	}

	client, err := newSpeechClient(cfg)
	if err != nil {
		return fmt.Errorf("failed to create speech client: %w", err)
	}

	var opts []texttospeech.TextToSpeechOption
	if *voice != "" {
		opts = append(opts, texttospeech.WithVoice(*voice))
	}

	var device playbackDevice
	if *play {
		encoding, err := cfg.TTSEncoding()
		if err != nil {
			return err
		}
		device, err = openPlaybackDevice(*backend, encoding)
		if err != nil {
			return err
		}
		defer device.Close()
		opts = append(opts, texttospeech.WithSpeechAudioCallback(func(chunk []byte) {
			if err := device.SendAudio(chunk); err != nil {
				log.Printf("failed to play audio: %v", err)
			}
		}))
	}

	ctx, cancel := signalContext()
	defer cancel()

	audio, err := client.Synthesize(ctx, *text, opts...)
	if err != nil {
		return err
	}

	switch *out {
	case "":
	case "-":
		if _, err := os.Stdout.Write(audio); err != nil {
			return fmt.Errorf("failed to write audio: %w", err)
		}
	default:
		if err := os.WriteFile(*out, audio, 0o644); err != nil {
			return fmt.Errorf("failed to write audio: %w", err)
		}
	}

	if device != nil {
		return device.AwaitPlayback(ctx)
	}
	return nil
}

func runServe(cfg config.Config) error {
	recognizer, err := newTranscriptionClient(cfg)
	if err != nil {
		return fmt.Errorf("failed to create transcription client: %w", err)
	}
	synthesizer, err := newSpeechClient(cfg)
	if err != nil {
		return fmt.Errorf("failed to create speech client: %w", err)
	}

	metrics := observability.NewMetrics(cfg.MetricsNamespace)
	api := httpapi.New(cfg, recognizer, synthesizer, metrics)
	httpServer := &http.Server{
		Addr:    cfg.BindAddr,
		Handler: api.Router(),
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("server listening on %s", cfg.BindAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigCh:
		log.Printf("shutdown signal received")
	case err := <-errCh:
		return fmt.Errorf("listen error: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
		_ = httpServer.Close()
	}

	log.Printf("shutdown complete")
	return nil
}
