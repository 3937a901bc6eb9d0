package qwen

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/koscakluka/ema-realtime/core/audio"
	"github.com/koscakluka/ema-realtime/core/realtime"
	"github.com/koscakluka/ema-realtime/core/realtime/endpoint"
	"github.com/koscakluka/ema-realtime/core/speechtotext"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const DefaultModel = "qwen3-asr-flash-realtime"

type TranscriptionClient struct {
	endpoint       endpoint.Endpoint
	model          string
	defaults       []speechtotext.TranscriptionOption
	sessionOptions []realtime.Option
}

type clientOptions struct {
	region         endpoint.Region
	model          string
	baseURL        string
	defaults       []speechtotext.TranscriptionOption
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

// WithDefaultTranscriptionOptions are applied to every session before the
// options passed to NewSession or Recognize.
func WithDefaultTranscriptionOptions(opts ...speechtotext.TranscriptionOption) ClientOption {
	return func(o *clientOptions) { o.defaults = append(o.defaults, opts...) }
}

func WithSessionOptions(opts ...realtime.Option) ClientOption {
	return func(o *clientOptions) { o.sessionOptions = append(o.sessionOptions, opts...) }
}

func NewTranscriptionClient(apiKey string, opts ...ClientOption) (*TranscriptionClient, error) {
	options := clientOptions{region: endpoint.RegionInternational, model: DefaultModel}
	for _, opt := range opts {
		opt(&options)
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

	return &TranscriptionClient{
		endpoint:       ep,
		model:          options.model,
		defaults:       options.defaults,
		sessionOptions: options.sessionOptions,
	}, nil
}

func (c *TranscriptionClient) options(opts []speechtotext.TranscriptionOption) speechtotext.TranscriptionOptions {
	options := speechtotext.TranscriptionOptions{EncodingInfo: audio.GetDefaultEncodingInfo()}
	for _, opt := range c.defaults {
		opt(&options)
	}
	for _, opt := range opts {
		opt(&options)
	}
	return options
}

// Recognize streams all of r to a new session and returns the transcript.
// Audio is sent in chunks of ~100ms; in manual commit mode the buffer is
// committed once r is exhausted.
func (c *TranscriptionClient) Recognize(ctx context.Context, r io.Reader, opts ...speechtotext.TranscriptionOption) (string, error) {
	ctx, span := tracer.Start(ctx, "recognize speech")
	defer span.End()
	span.SetAttributes(attribute.String("asr.model", c.model))

	transcript, err := c.recognize(ctx, r, opts)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}

	span.SetAttributes(attribute.Int("asr.transcript_length", len(transcript)))
	return transcript, nil
}

func (c *TranscriptionClient) recognize(ctx context.Context, r io.Reader, opts []speechtotext.TranscriptionOption) (string, error) {
	session, err := c.NewSession(opts...)
	if err != nil {
		return "", err
	}

	if err := session.Connect(ctx); err != nil {
		return "", fmt.Errorf("failed to connect: %w", err)
	}

	sent, err := session.stream(ctx, r)
	if err != nil {
		if cause := session.session.Err(); cause != nil {
			err = cause
		}
		session.Disconnect()
		return "", err
	}
	logger.Debug("audio streamed", "bytes", sent, "session_id", session.SessionID())

	if session.operation.manualCommit() {
		if err := session.CommitAudio(); err != nil {
			if cause := session.session.Err(); cause != nil {
				err = cause
			}
			session.Disconnect()
			return "", fmt.Errorf("failed to commit audio: %w", err)
		}
	}

	transcript, err := session.Finish(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to finish recognition: %w", err)
	}
	return transcript, nil
}

func (s *TranscriptionSession) stream(ctx context.Context, r io.Reader) (int, error) {
	chunk := make([]byte, s.chunkSize)
	sent := 0
	for {
		if err := ctx.Err(); err != nil {
			return sent, err
		}

		n, readErr := io.ReadFull(r, chunk)
		if n > 0 {
			if err := s.SendAudio(chunk[:n]); err != nil {
				return sent, fmt.Errorf("failed to send audio: %w", err)
			}
			sent += n
		}

		switch {
		case readErr == nil:
		case errors.Is(readErr, io.EOF), errors.Is(readErr, io.ErrUnexpectedEOF):
			return sent, nil
		default:
			return sent, fmt.Errorf("failed to read audio: %w", readErr)
		}
	}
}
