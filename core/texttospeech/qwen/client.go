package qwen

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/koscakluka/ema-realtime/core/realtime"
	"github.com/koscakluka/ema-realtime/core/realtime/endpoint"
	"github.com/koscakluka/ema-realtime/core/texttospeech"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const DefaultModel = "qwen-tts-realtime"

type SpeechClient struct {
	endpoint       endpoint.Endpoint
	model          string
	voice          Voice
	defaults       []texttospeech.TextToSpeechOption
	sessionOptions []realtime.Option
}

type clientOptions struct {
	region         endpoint.Region
	model          string
	baseURL        string
	voice          Voice
	defaults       []texttospeech.TextToSpeechOption
	sessionOptions []realtime.Option
}

type ClientOption func(*clientOptions)

func WithRegion(region endpoint.Region) ClientOption {
	return func(o *clientOptions) { o.region = region }
}

func WithModel(model string) ClientOption {
	return func(o *clientOptions) {
		if model != "" {
			o.model = model
		}
	}
}

// WithBaseURL points the client at a different websocket host.
func WithBaseURL(baseURL string) ClientOption {
	return func(o *clientOptions) { o.baseURL = baseURL }
}

func WithDefaultVoice(voice string) ClientOption {
	return func(o *clientOptions) {
		if voice != "" {
			o.voice = Voice(voice)
		}
	}
}

// WithDefaultSpeechOptions are applied to every session before the options
// passed to NewSession or Synthesize.
func WithDefaultSpeechOptions(opts ...texttospeech.TextToSpeechOption) ClientOption {
	return func(o *clientOptions) { o.defaults = append(o.defaults, opts...) }
}

func WithSessionOptions(opts ...realtime.Option) ClientOption {
	return func(o *clientOptions) { o.sessionOptions = append(o.sessionOptions, opts...) }
}

func NewSpeechClient(apiKey string, opts ...ClientOption) (*SpeechClient, error) {
	options := clientOptions{region: endpoint.RegionInternational, model: DefaultModel, voice: defaultVoice}
	for _, opt := range opts {
		opt(&options)
	}

	if !slices.Contains(GetAvailableVoices(), options.voice) {
		return nil, fmt.Errorf("invalid voice %q", options.voice)
	}

	ep, err := endpoint.Resolve(endpoint.Config{
		Region:  options.region,
		Model:   options.model,
		APIKey:  apiKey,
		BaseURL: options.baseURL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to resolve endpoint: %w", err)
	}

	return &SpeechClient{
		endpoint:       ep,
		model:          options.model,
		voice:          options.voice,
		defaults:       options.defaults,
		sessionOptions: options.sessionOptions,
	}, nil
}

func (c *SpeechClient) options(opts []texttospeech.TextToSpeechOption) texttospeech.TextToSpeechOptions {
	options := texttospeech.TextToSpeechOptions{
		EncodingInfo: defaultEncodingInfo(),
		Voice:        string(c.voice),
	}
	for _, opt := range c.defaults {
		opt(&options)
	}
	for _, opt := range opts {
		opt(&options)
	}
	return options
}

// Synthesize converts text to audio in a single session and returns the
// assembled audio in the configured response format.
func (c *SpeechClient) Synthesize(ctx context.Context, text string, opts ...texttospeech.TextToSpeechOption) ([]byte, error) {
	ctx, span := tracer.Start(ctx, "synthesize speech")
	defer span.End()
	span.SetAttributes(
		attribute.String("tts.model", c.model),
		attribute.Int("tts.text_length", len(text)),
	)

	session, err := c.NewSession(opts...)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	audio, err := session.synthesize(ctx, text)
	if err != nil {
		if session.options.ErrorCallback != nil {
			session.options.ErrorCallback(err)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(attribute.Int("tts.audio_bytes", len(audio)))
	return audio, nil
}

func (s *SynthesisSession) synthesize(ctx context.Context, text string) ([]byte, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("text is required")
	}

	if err := s.Connect(ctx); err != nil {
		return nil, fmt.Errorf("failed to connect: %w", err)
	}

	if err := s.SendText(text); err != nil {
		if cause := s.session.Err(); cause != nil {
			err = cause
		}
		s.Disconnect()
		return nil, fmt.Errorf("failed to send text: %w", err)
	}
	if err := s.Commit(); err != nil {
		s.Disconnect()
		return nil, fmt.Errorf("failed to commit text: %w", err)
	}

	audio, err := s.Wait(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to synthesize: %w", err)
	}
	return audio, nil
}
