package miniaudio

import (
	"context"
	"fmt"

	"github.com/gen2brain/malgo"
	"github.com/koscakluka/ema-realtime/core/audio"
)

type Client struct {
	// audioContext is only saved to be able to uninitialize it, it is an
	// ownership thing
	audioContext *malgo.AllocatedContext
	playbackClient
	captureClient
}

type clientOptions struct {
	capture  *audio.EncodingInfo
	playback *audio.EncodingInfo
}

type ClientOption func(*clientOptions)

// WithCapture enables the microphone with the given raw pcm encoding.
func WithCapture(encoding audio.EncodingInfo) ClientOption {
	return func(o *clientOptions) { o.capture = &encoding }
}

// WithPlayback enables the speaker with the given raw pcm encoding.
func WithPlayback(encoding audio.EncodingInfo) ClientOption {
	return func(o *clientOptions) { o.playback = &encoding }
}

func NewClient(opts ...ClientOption) (*Client, error) {
	var options clientOptions
	for _, opt := range opts {
		opt(&options)
	}
	for _, encoding := range []*audio.EncodingInfo{options.capture, options.playback} {
		if encoding != nil && encoding.Format != audio.EncodingPCM {
			return nil, fmt.Errorf("unsupported device encoding %q", encoding.Format)
		}
	}

	audioCtx, err := malgo.InitContext(nil, malgo.ContextConfig{}, func(message string) {
		logger.Debug("malgo", "message", message)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize audio context: %w", err)
	}

	client := Client{audioContext: audioCtx}

	if options.playback != nil {
		if err := client.playbackClient.Init(audioCtx, *options.playback); err != nil {
			client.Close()
			return nil, fmt.Errorf("failed to initialize playback client: %w", err)
		}
		if err := client.playbackClient.Start(); err != nil {
			client.Close()
			return nil, fmt.Errorf("failed to start playback device: %w", err)
		}
	}

	if options.capture != nil {
		if err := client.captureClient.Init(audioCtx, *options.capture); err != nil {
			client.Close()
			return nil, fmt.Errorf("failed to initialize capture client: %w", err)
		}
	}

	return &client, nil
}

func (c *Client) StartCapture(_ context.Context, onAudio func(audio []byte)) error {
	return c.captureClient.Start(onAudio)
}

func (c *Client) StopCapture() error {
	return c.captureClient.Stop()
}

func (c *Client) Close() {
	_ = c.captureClient.Uninit()
	_ = c.playbackClient.Uninit()
	_ = c.audioContext.Uninit()
	c.audioContext.Free()
}

func (c *Client) SendAudio(audio []byte) error {
	return c.playbackClient.SendAudio(audio)
}

func (c *Client) ClearBuffer() {
	c.playbackClient.ClearBuffer()
}

// AwaitPlayback blocks until everything sent so far has been played.
func (c *Client) AwaitPlayback(ctx context.Context) error {
	return c.playbackClient.AwaitDrained(ctx)
}
