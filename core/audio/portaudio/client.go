package portaudio

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/gordonklaus/portaudio"
	"github.com/koscakluka/ema-realtime/core/audio"
)

// Client drives the default input and output devices through blocking
// PortAudio streams. It has the same surface as the miniaudio client.
type Client struct {
	capture  *captureStream
	playback *playbackStream
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

	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize PortAudio: %w", err)
	}

	client := &Client{}
	if options.capture != nil {
		capture, err := openCapture(*options.capture)
		if err != nil {
			client.Close()
			return nil, err
		}
		client.capture = capture
	}
	if options.playback != nil {
		playback, err := openPlayback(*options.playback)
		if err != nil {
			client.Close()
			return nil, err
		}
		client.playback = playback
	}

	return client, nil
}

func (c *Client) StartCapture(ctx context.Context, onAudio func(audio []byte)) error {
	if c.capture == nil {
		return fmt.Errorf("capture not enabled")
	}
	return c.capture.start(ctx, onAudio)
}

func (c *Client) StopCapture() error {
	if c.capture == nil {
		return fmt.Errorf("capture not enabled")
	}
	return c.capture.stop()
}

func (c *Client) SendAudio(audio []byte) error {
	if c.playback == nil {
		return fmt.Errorf("playback not enabled")
	}
	c.playback.enqueue(audio)
	return nil
}

func (c *Client) ClearBuffer() {
	if c.playback != nil {
		c.playback.clear()
	}
}

// AwaitPlayback blocks until everything sent so far has been written to the
// device.
func (c *Client) AwaitPlayback(ctx context.Context) error {
	if c.playback == nil {
		return nil
	}
	return c.playback.awaitDrained(ctx)
}

func (c *Client) Close() {
	if c.capture != nil {
		_ = c.capture.stop()
		_ = c.capture.stream.Close()
	}
	if c.playback != nil {
		c.playback.close()
	}
	_ = portaudio.Terminate()
}

type captureStream struct {
	stream *portaudio.Stream
	in     []int16

	mu      sync.Mutex
	stopped chan struct{}
	done    chan struct{}
}

func openCapture(encoding audio.EncodingInfo) (*captureStream, error) {
	// ~20ms of audio per read
	in := make([]int16, encoding.SampleRate/50)
	stream, err := portaudio.OpenDefaultStream(1, 0, float64(encoding.SampleRate), len(in), in)
	if err != nil {
		return nil, fmt.Errorf("failed to open capture stream: %w", err)
	}
	return &captureStream{stream: stream, in: in}, nil
}

func (c *captureStream) start(ctx context.Context, onAudio func(audio []byte)) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.done != nil {
		return nil
	}
	if err := c.stream.Start(); err != nil {
		return fmt.Errorf("failed to start capture stream: %w", err)
	}

	c.stopped = make(chan struct{})
	c.done = make(chan struct{})
	go c.read(ctx, onAudio, c.stopped, c.done)
	return nil
}

func (c *captureStream) read(ctx context.Context, onAudio func(audio []byte), stopped, done chan struct{}) {
	defer close(done)
	for {
		select {
		case <-ctx.Done():
			return
		case <-stopped:
			return
		default:
		}

		if err := c.stream.Read(); err != nil {
			logger.Warn("failed to read from capture stream", "error", err)
			continue
		}
		buf := bytes.Buffer{}
		_ = binary.Write(&buf, binary.LittleEndian, c.in)
		onAudio(buf.Bytes())
	}
}

func (c *captureStream) stop() error {
	c.mu.Lock()
	stopped, done := c.stopped, c.done
	c.stopped, c.done = nil, nil
	c.mu.Unlock()
	if done == nil {
		return nil
	}

	close(stopped)
	<-done
	if err := c.stream.Stop(); err != nil {
		return fmt.Errorf("failed to stop capture stream: %w", err)
	}
	return nil
}

// playbackStream feeds queued audio to a blocking output stream from its own
// goroutine.
type playbackStream struct {
	stream *portaudio.Stream
	out    []int16

	mu        sync.Mutex
	pending   []byte
	drained   chan struct{}
	isDrained bool

	notify chan struct{}
	quit   chan struct{}
	done   chan struct{}
}

func openPlayback(encoding audio.EncodingInfo) (*playbackStream, error) {
	// ~100ms of audio per write
	out := make([]int16, encoding.SampleRate/10)
	stream, err := portaudio.OpenDefaultStream(0, 1, float64(encoding.SampleRate), len(out), out)
	if err != nil {
		return nil, fmt.Errorf("failed to open playback stream: %w", err)
	}
	if err := stream.Start(); err != nil {
		_ = stream.Close()
		return nil, fmt.Errorf("failed to start playback stream: %w", err)
	}

	p := &playbackStream{
		stream:    stream,
		out:       out,
		drained:   make(chan struct{}),
		isDrained: true,
		notify:    make(chan struct{}, 1),
		quit:      make(chan struct{}),
		done:      make(chan struct{}),
	}
	close(p.drained)
	go p.write()
	return p, nil
}

func (p *playbackStream) enqueue(audio []byte) {
	if len(audio) == 0 {
		return
	}
	p.mu.Lock()
	if p.isDrained {
		p.drained = make(chan struct{})
		p.isDrained = false
	}
	p.pending = append(p.pending, audio...)
	p.mu.Unlock()

	select {
	case p.notify <- struct{}{}:
	default:
	}
}

func (p *playbackStream) clear() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pending = nil
	p.signalDrainedLocked()
}

func (p *playbackStream) awaitDrained(ctx context.Context) error {
	p.mu.Lock()
	drained := p.drained
	p.mu.Unlock()

	select {
	case <-drained:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *playbackStream) signalDrainedLocked() {
	if !p.isDrained {
		close(p.drained)
		p.isDrained = true
	}
}

func (p *playbackStream) write() {
	defer close(p.done)
	frameBytes := len(p.out) * 2
	for {
		p.mu.Lock()
		if len(p.pending) == 0 {
			p.signalDrainedLocked()
			p.mu.Unlock()
			select {
			case <-p.notify:
				continue
			case <-p.quit:
				return
			}
		}
		n := min(len(p.pending), frameBytes) &^ 1
		chunk := p.pending[:n]
		p.pending = p.pending[n:]
		if len(p.pending) == 1 {
			// a dangling half sample cannot be played
			p.pending = nil
		}
		p.mu.Unlock()

		// a short final chunk is padded with silence
		clear(p.out)
		_ = binary.Read(bytes.NewReader(chunk), binary.LittleEndian, p.out[:n/2])
		if err := p.stream.Write(); err != nil {
			logger.Warn("failed to write to playback stream", "error", err)
		}

		select {
		case <-p.quit:
			return
		default:
		}
	}
}

func (p *playbackStream) close() {
	close(p.quit)
	<-p.done
	_ = p.stream.Stop()
	_ = p.stream.Close()
}
