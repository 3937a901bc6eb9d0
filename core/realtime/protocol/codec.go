package protocol

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrMalformedFrame is returned by Decode for frames that are not a valid
// wire event. Sessions skip such frames.
var ErrMalformedFrame = errors.New("malformed frame")

// Decode parses a single text frame.
func Decode(frame []byte) (Event, error) {
	var envelope struct {
		Type EventType `json:"type"`
	}
	if err := json.Unmarshal(frame, &envelope); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedFrame, err)
	}
	if envelope.Type == "" {
		return nil, fmt.Errorf("%w: missing type", ErrMalformedFrame)
	}

	ev := newEvent(envelope.Type)
	if ev == nil {
		return &Unknown{EventType: envelope.Type, Raw: append(json.RawMessage(nil), frame...)}, nil
	}
	if err := json.Unmarshal(frame, ev); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrMalformedFrame, envelope.Type, err)
	}

	if delta, ok := ev.(*ResponseAudioDelta); ok && delta.Delta != "" {
		audio, err := base64.StdEncoding.DecodeString(delta.Delta)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: invalid base64 audio: %w", ErrMalformedFrame, envelope.Type, err)
		}
		delta.Audio = audio
	}

	return ev, nil
}

func newEvent(t EventType) Event {
	switch t {
	case TypeSessionCreated:
		return &SessionCreated{}
	case TypeSessionUpdated:
		return &SessionUpdated{}
	case TypeSessionFinished:
		return &SessionFinished{}
	case TypeSpeechStarted:
		return &SpeechStarted{}
	case TypeSpeechStopped:
		return &SpeechStopped{}
	case TypeInputAudioBufferCommitted:
		return &InputAudioBufferCommitted{}
	case TypeConversationItemCreated:
		return &ConversationItemCreated{}
	case TypeTranscriptionText:
		return &TranscriptionText{}
	case TypeTranscriptionCompleted:
		return &TranscriptionCompleted{}
	case TypeTranscriptionFailed:
		return &TranscriptionFailed{}
	case TypeInputTextBufferCommitted:
		return &InputTextBufferCommitted{}
	case TypeResponseCreated:
		return &ResponseCreated{}
	case TypeResponseAudioDelta:
		return &ResponseAudioDelta{}
	case TypeResponseAudioDone:
		return &ResponseAudioDone{}
	case TypeResponseDone:
		return &ResponseDone{}
	case TypeError:
		return &Error{}
	}
	return nil
}

// Encode serializes a client event, assigning an event id if it has none.
func Encode(ev ClientEvent) ([]byte, error) {
	if ev == nil {
		return nil, fmt.Errorf("nil client event")
	}
	if h := ev.header(); h.EventID == "" {
		h.EventID = newEventID()
	}
	data, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s: %w", ev.header().Type, err)
	}
	return data, nil
}
