package protocol

import (
	"encoding/base64"

	"github.com/google/uuid"
)

// ClientEvent is an event sent by the client. Only the constructors in this
// package produce client events.
type ClientEvent interface {
	header() *ClientHeader
}

type ClientHeader struct {
	EventID string    `json:"event_id"`
	Type    EventType `json:"type"`
}

func (h *ClientHeader) header() *ClientHeader { return h }

func newHeader(t EventType) ClientHeader {
	return ClientHeader{EventID: newEventID(), Type: t}
}

func newEventID() string { return "event_" + uuid.NewString() }

// TypeOf reports the wire type of a client event.
func TypeOf(ev ClientEvent) EventType { return ev.header().Type }

type SessionUpdate struct {
	ClientHeader
	Session any `json:"session"`
}

func UpdateSession(session any) *SessionUpdate {
	return &SessionUpdate{ClientHeader: newHeader(TypeSessionUpdate), Session: session}
}

type InputAudioBufferAppend struct {
	ClientHeader
	Audio string `json:"audio"`
}

func AppendAudio(chunk []byte) *InputAudioBufferAppend {
	return &InputAudioBufferAppend{
		ClientHeader: newHeader(TypeInputAudioBufferAppend),
		Audio:        base64.StdEncoding.EncodeToString(chunk),
	}
}

type InputAudioBufferCommit struct {
	ClientHeader
}

func CommitAudio() *InputAudioBufferCommit {
	return &InputAudioBufferCommit{ClientHeader: newHeader(TypeInputAudioBufferCommit)}
}

type InputTextBufferAppend struct {
	ClientHeader
	Text string `json:"text"`
}

func AppendText(text string) *InputTextBufferAppend {
	return &InputTextBufferAppend{ClientHeader: newHeader(TypeInputTextBufferAppend), Text: text}
}

type InputTextBufferCommit struct {
	ClientHeader
}

func CommitText() *InputTextBufferCommit {
	return &InputTextBufferCommit{ClientHeader: newHeader(TypeInputTextBufferCommit)}
}

type SessionFinish struct {
	ClientHeader
}

func FinishSession() *SessionFinish {
	return &SessionFinish{ClientHeader: newHeader(TypeSessionFinish)}
}

// TranscriptionSession is the session.update payload of a recognition
// session. A nil TurnDetection is sent as null and selects manual commits.
type TranscriptionSession struct {
	Modalities              []string                 `json:"modalities,omitempty"`
	InputAudioFormat        string                   `json:"input_audio_format"`
	SampleRate              int                      `json:"sample_rate"`
	InputAudioTranscription *InputAudioTranscription `json:"input_audio_transcription,omitempty"`
	TurnDetection           *TurnDetection           `json:"turn_detection"`
}

type InputAudioTranscription struct {
	Language string `json:"language,omitempty"`
}

const TurnDetectionServerVAD = "server_vad"

type TurnDetection struct {
	Type              string  `json:"type"`
	Threshold         float64 `json:"threshold"`
	SilenceDurationMs int     `json:"silence_duration_ms"`
	PrefixPaddingMs   int     `json:"prefix_padding_ms,omitempty"`
}

const (
	SpeechModeCommit       = "commit"
	SpeechModeServerCommit = "server_commit"
)

// SpeechSession is the session.update payload of a synthesis session.
type SpeechSession struct {
	Mode           string `json:"mode"`
	Voice          string `json:"voice"`
	ResponseFormat string `json:"response_format"`
	SampleRate     int    `json:"sample_rate"`
	LanguageType   string `json:"language_type,omitempty"`
}
