package qwen

import (
	"context"
	"fmt"

	"github.com/koscakluka/ema-realtime/core/realtime"
	"github.com/koscakluka/ema-realtime/core/realtime/protocol"
	"github.com/koscakluka/ema-realtime/core/speechtotext"
)

// TranscriptionSession is a single recognition session for callers that
// stream audio themselves, e.g. from a microphone.
type TranscriptionSession struct {
	session   *realtime.Session[string]
	operation *transcriptionOperation
	chunkSize int
}

func (c *TranscriptionClient) NewSession(opts ...speechtotext.TranscriptionOption) (*TranscriptionSession, error) {
	options := c.options(opts)

	operation, err := newTranscriptionOperation(options)
	if err != nil {
		return nil, err
	}

	encoding, _ := convertEncoding(options.EncodingInfo)
	sessionOptions := append([]realtime.Option{realtime.WithLogger(logger)}, c.sessionOptions...)
	return &TranscriptionSession{
		session:   realtime.NewSession[string](c.endpoint, operation, sessionOptions...),
		operation: operation,
		chunkSize: encoding.ChunkSize,
	}, nil
}

func (s *TranscriptionSession) Connect(ctx context.Context) error {
	return s.session.Connect(ctx)
}

func (s *TranscriptionSession) SendAudio(chunk []byte) error {
	if len(chunk) == 0 {
		return nil
	}
	return s.session.Send(protocol.AppendAudio(chunk))
}

// CommitAudio ends the current turn when the session uses manual commits.
// With server VAD the commit is left to the server and this is a no-op.
func (s *TranscriptionSession) CommitAudio() error {
	if !s.operation.manualCommit() {
		return nil
	}
	if err := s.session.Commit(protocol.CommitAudio()); err != nil {
		return fmt.Errorf("failed to commit audio buffer: %w", err)
	}
	return nil
}

// Finish ends the session and returns the full transcript.
func (s *TranscriptionSession) Finish(ctx context.Context) (string, error) {
	return s.session.Finish(ctx)
}

func (s *TranscriptionSession) Disconnect() {
	s.session.Disconnect()
}

func (s *TranscriptionSession) State() realtime.State {
	return s.session.State()
}

func (s *TranscriptionSession) SessionID() string {
	return s.session.SessionID()
}
