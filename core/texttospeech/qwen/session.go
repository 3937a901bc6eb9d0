package qwen

import (
	"context"
	"fmt"
	"slices"

	"github.com/koscakluka/ema-realtime/core/realtime"
	"github.com/koscakluka/ema-realtime/core/realtime/protocol"
	"github.com/koscakluka/ema-realtime/core/texttospeech"
)

// SynthesisSession is a single synthesis session. Text may be appended in
// several pieces before it is committed.
type SynthesisSession struct {
	session *realtime.Session[[]byte]
	options texttospeech.TextToSpeechOptions
}

func (c *SpeechClient) NewSession(opts ...texttospeech.TextToSpeechOption) (*SynthesisSession, error) {
	options := c.options(opts)
	if !slices.Contains(GetAvailableVoices(), Voice(options.Voice)) {
		return nil, fmt.Errorf("invalid voice %q", options.Voice)
	}

	operation, err := newSynthesisOperation(options)
	if err != nil {
		return nil, err
	}

	sessionOptions := append([]realtime.Option{realtime.WithLogger(logger)}, c.sessionOptions...)
	return &SynthesisSession{
		session: realtime.NewSession[[]byte](c.endpoint, operation, sessionOptions...),
		options: options,
	}, nil
}

func (s *SynthesisSession) Connect(ctx context.Context) error {
	return s.session.Connect(ctx)
}

func (s *SynthesisSession) SendText(text string) error {
	return s.session.Send(protocol.AppendText(text))
}

// Commit asks the server to synthesize the text appended so far.
func (s *SynthesisSession) Commit() error {
	return s.session.Commit(protocol.CommitText())
}

// Wait returns the assembled audio once the server has finished the
// response.
func (s *SynthesisSession) Wait(ctx context.Context) ([]byte, error) {
	return s.session.Wait(ctx)
}

// Finish ends the session early and returns the audio produced so far.
func (s *SynthesisSession) Finish(ctx context.Context) ([]byte, error) {
	return s.session.Finish(ctx)
}

func (s *SynthesisSession) Disconnect() {
	s.session.Disconnect()
}

func (s *SynthesisSession) State() realtime.State {
	return s.session.State()
}

func (s *SynthesisSession) SessionID() string {
	return s.session.SessionID()
}
