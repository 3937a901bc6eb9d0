package protocol

import "encoding/json"

type EventType string

const (
	TypeSessionUpdate          EventType = "session.update"
	TypeInputAudioBufferAppend EventType = "input_audio_buffer.append"
	TypeInputAudioBufferCommit EventType = "input_audio_buffer.commit"
	TypeInputTextBufferAppend  EventType = "input_text_buffer.append"
	TypeInputTextBufferCommit  EventType = "input_text_buffer.commit"
	TypeSessionFinish          EventType = "session.finish"

	TypeSessionCreated            EventType = "session.created"
	TypeSessionUpdated            EventType = "session.updated"
	TypeSessionFinished           EventType = "session.finished"
	TypeSpeechStarted             EventType = "input_audio_buffer.speech_started"
	TypeSpeechStopped             EventType = "input_audio_buffer.speech_stopped"
	TypeInputAudioBufferCommitted EventType = "input_audio_buffer.committed"
	TypeConversationItemCreated   EventType = "conversation.item.created"
	TypeTranscriptionText         EventType = "conversation.item.input_audio_transcription.text"
	TypeTranscriptionCompleted    EventType = "conversation.item.input_audio_transcription.completed"
	TypeTranscriptionFailed       EventType = "conversation.item.input_audio_transcription.failed"
	TypeInputTextBufferCommitted  EventType = "input_text_buffer.committed"
	TypeResponseCreated           EventType = "response.created"
	TypeResponseAudioDelta        EventType = "response.audio.delta"
	TypeResponseAudioDone         EventType = "response.audio.done"
	TypeResponseDone              EventType = "response.done"
	TypeError                     EventType = "error"
)

// Event is a decoded server event.
type Event interface {
	Type() EventType
}

type SessionInfo struct {
	ID    string `json:"id"`
	Model string `json:"model,omitempty"`
}

type SessionCreated struct {
	EventID string      `json:"event_id"`
	Session SessionInfo `json:"session"`
}

func (*SessionCreated) Type() EventType { return TypeSessionCreated }

type SessionUpdated struct {
	EventID string      `json:"event_id"`
	Session SessionInfo `json:"session"`
}

func (*SessionUpdated) Type() EventType { return TypeSessionUpdated }

type SessionFinished struct {
	EventID string `json:"event_id"`
}

func (*SessionFinished) Type() EventType { return TypeSessionFinished }

type SpeechStarted struct {
	EventID      string `json:"event_id"`
	ItemID       string `json:"item_id"`
	AudioStartMs int    `json:"audio_start_ms"`
}

func (*SpeechStarted) Type() EventType { return TypeSpeechStarted }

type SpeechStopped struct {
	EventID    string `json:"event_id"`
	ItemID     string `json:"item_id"`
	AudioEndMs int    `json:"audio_end_ms"`
}

func (*SpeechStopped) Type() EventType { return TypeSpeechStopped }

type InputAudioBufferCommitted struct {
	EventID string `json:"event_id"`
	ItemID  string `json:"item_id"`
}

func (*InputAudioBufferCommitted) Type() EventType { return TypeInputAudioBufferCommitted }

type ConversationItemCreated struct {
	EventID string `json:"event_id"`
	Item    struct {
		ID string `json:"id"`
	} `json:"item"`
}

func (*ConversationItemCreated) Type() EventType { return TypeConversationItemCreated }

// TranscriptionText carries the current partial transcript of an item. Text
// is the part the server has confirmed, Stash the tail that may still change.
type TranscriptionText struct {
	EventID string `json:"event_id"`
	ItemID  string `json:"item_id"`
	Text    string `json:"text"`
	Stash   string `json:"stash,omitempty"`
}

func (*TranscriptionText) Type() EventType { return TypeTranscriptionText }

// Partial is the full partial transcript as it should be shown to a user.
func (e *TranscriptionText) Partial() string { return e.Text + e.Stash }

type TranscriptionCompleted struct {
	EventID    string `json:"event_id"`
	ItemID     string `json:"item_id"`
	Transcript string `json:"transcript"`
}

func (*TranscriptionCompleted) Type() EventType { return TypeTranscriptionCompleted }

type TranscriptionFailed struct {
	EventID string      `json:"event_id"`
	ItemID  string      `json:"item_id"`
	Error   ErrorDetail `json:"error"`
}

func (*TranscriptionFailed) Type() EventType { return TypeTranscriptionFailed }

type InputTextBufferCommitted struct {
	EventID string `json:"event_id"`
	ItemID  string `json:"item_id"`
}

func (*InputTextBufferCommitted) Type() EventType { return TypeInputTextBufferCommitted }

type ResponseCreated struct {
	EventID  string `json:"event_id"`
	Response struct {
		ID string `json:"id"`
	} `json:"response"`
}

func (*ResponseCreated) Type() EventType { return TypeResponseCreated }

// ResponseAudioDelta is a chunk of synthesized audio. Audio holds the decoded
// bytes of Delta and is empty when the server sent no payload.
type ResponseAudioDelta struct {
	EventID    string `json:"event_id"`
	ResponseID string `json:"response_id"`
	ItemID     string `json:"item_id"`
	Delta      string `json:"delta"`
	Audio      []byte `json:"-"`
}

func (*ResponseAudioDelta) Type() EventType { return TypeResponseAudioDelta }

type ResponseAudioDone struct {
	EventID    string `json:"event_id"`
	ResponseID string `json:"response_id"`
}

func (*ResponseAudioDone) Type() EventType { return TypeResponseAudioDone }

type ResponseDone struct {
	EventID  string `json:"event_id"`
	Response struct {
		ID     string `json:"id"`
		Status string `json:"status,omitempty"`
	} `json:"response"`
}

func (*ResponseDone) Type() EventType { return TypeResponseDone }

type ErrorDetail struct {
	Type    string `json:"type,omitempty"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Param   string `json:"param,omitempty"`
}

type Error struct {
	EventID string      `json:"event_id"`
	Error   ErrorDetail `json:"error"`
}

func (*Error) Type() EventType { return TypeError }

// Unknown is any well formed event of a kind this package does not model.
type Unknown struct {
	EventType EventType
	Raw       json.RawMessage
}

func (e *Unknown) Type() EventType { return e.EventType }
