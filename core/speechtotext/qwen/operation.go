package qwen

import (
	"fmt"

	"github.com/jinzhu/copier"
	"github.com/koscakluka/ema-realtime/core/realtime"
	"github.com/koscakluka/ema-realtime/core/realtime/protocol"
	"github.com/koscakluka/ema-realtime/core/speechtotext"
)

const operationName = "recognize"

// transcriptionOperation turns transcription events into callbacks and the
// final transcript.
//
// In manual commit mode the completed transcript of the committed buffer is
// the end of the operation. With server VAD every turn completes on its own
// and the session runs until it is finished.
type transcriptionOperation struct {
	options speechtotext.TranscriptionOptions
	session protocol.TranscriptionSession

	text realtime.TextAssembler
}

func newTranscriptionOperation(options speechtotext.TranscriptionOptions) (*transcriptionOperation, error) {
	encoding, err := convertEncoding(options.EncodingInfo)
	if err != nil {
		return nil, fmt.Errorf("invalid encoding: %w", err)
	}

	session := protocol.TranscriptionSession{
		Modalities:       []string{"text"},
		InputAudioFormat: encoding.Format,
		SampleRate:       encoding.SampleRate,
	}
	if options.Language != "" {
		session.InputAudioTranscription = &protocol.InputAudioTranscription{Language: options.Language}
	}
	if options.TurnDetection != nil {
		session.TurnDetection = &protocol.TurnDetection{Type: protocol.TurnDetectionServerVAD}
		if err := copier.Copy(session.TurnDetection, options.TurnDetection); err != nil {
			return nil, fmt.Errorf("failed to convert turn detection: %w", err)
		}
	}

	return &transcriptionOperation{options: options, session: session}, nil
}

func (o *transcriptionOperation) Name() string { return operationName }

func (o *transcriptionOperation) SessionUpdate() protocol.ClientEvent {
	return protocol.UpdateSession(o.session)
}

func (o *transcriptionOperation) manualCommit() bool { return o.options.TurnDetection == nil }

func (o *transcriptionOperation) HandleEvent(ev protocol.Event) (bool, error) {
	switch e := ev.(type) {
	case *protocol.SpeechStarted:
		if o.options.SpeechStartedCallback != nil {
			o.options.SpeechStartedCallback()
		}

	case *protocol.SpeechStopped:
		if o.options.SpeechEndedCallback != nil {
			o.options.SpeechEndedCallback()
		}

	case *protocol.TranscriptionText:
		partial := e.Partial()
		o.text.SetPartial(partial)
		if o.options.InterimTranscriptionCallback != nil {
			o.options.InterimTranscriptionCallback(partial)
		}
		if o.options.TranscriptUpdateCallback != nil {
			o.options.TranscriptUpdateCallback(speechtotext.TranscriptUpdate{Text: partial, IsPartial: true})
		}

	case *protocol.TranscriptionCompleted:
		o.text.AddFinal(e.Transcript)
		if o.options.TranscriptionCallback != nil {
			o.options.TranscriptionCallback(e.Transcript)
		}
		if o.options.TranscriptUpdateCallback != nil {
			o.options.TranscriptUpdateCallback(speechtotext.TranscriptUpdate{Text: e.Transcript})
		}
		return o.manualCommit(), nil

	case *protocol.TranscriptionFailed:
		return false, &realtime.ServerError{Code: e.Error.Code, Message: e.Error.Message}
	}

	return false, nil
}

func (o *transcriptionOperation) Result() string { return o.text.Text() }
