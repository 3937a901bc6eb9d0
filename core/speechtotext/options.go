package speechtotext

import "github.com/koscakluka/ema-realtime/core/audio"

type TranscriptionOptions struct {
	// InterimTranscriptionCallback is called with the current partial
	// transcript whenever it changes.
	InterimTranscriptionCallback func(transcript string)
	// TranscriptionCallback is called once per finalized segment.
	TranscriptionCallback func(transcript string)
	// TranscriptUpdateCallback receives both partial and final updates in
	// arrival order.
	TranscriptUpdateCallback func(TranscriptUpdate)

	SpeechStartedCallback func()
	SpeechEndedCallback   func()

	EncodingInfo audio.EncodingInfo
	Language     string
	// TurnDetection selects server side voice activity detection. Nil means
	// the client commits the audio buffer itself.
	TurnDetection *TurnDetection
}

type TranscriptUpdate struct {
	Text      string
	IsPartial bool
}

type TurnDetection struct {
	Threshold         float64
	SilenceDurationMs int
	PrefixPaddingMs   int
}

func DefaultTurnDetection() TurnDetection {
	return TurnDetection{Threshold: 0.2, SilenceDurationMs: 800}
}

type TranscriptionOption func(*TranscriptionOptions)

func WithTranscriptionCallback(callback func(transcript string)) TranscriptionOption {
	return func(o *TranscriptionOptions) {
		o.TranscriptionCallback = callback
	}
}

func WithInterimTranscriptionCallback(callback func(transcript string)) TranscriptionOption {
	return func(o *TranscriptionOptions) {
		o.InterimTranscriptionCallback = callback
	}
}

func WithTranscriptUpdateCallback(callback func(TranscriptUpdate)) TranscriptionOption {
	return func(o *TranscriptionOptions) {
		o.TranscriptUpdateCallback = callback
	}
}

func WithSpeechStartedCallback(callback func()) TranscriptionOption {
	return func(o *TranscriptionOptions) {
		o.SpeechStartedCallback = callback
	}
}

func WithSpeechEndedCallback(callback func()) TranscriptionOption {
	return func(o *TranscriptionOptions) {
		o.SpeechEndedCallback = callback
	}
}

func WithEncodingInfo(encodingInfo audio.EncodingInfo) TranscriptionOption {
	return func(o *TranscriptionOptions) {
		if encodingInfo.IsZero() {
			return
		}
		o.EncodingInfo = encodingInfo
	}
}

func WithLanguage(language string) TranscriptionOption {
	return func(o *TranscriptionOptions) {
		o.Language = language
	}
}

// WithServerVAD lets the server detect turns. Zero fields fall back to
// [DefaultTurnDetection].
func WithServerVAD(turnDetection TurnDetection) TranscriptionOption {
	return func(o *TranscriptionOptions) {
		defaults := DefaultTurnDetection()
		if turnDetection.Threshold == 0 {
			turnDetection.Threshold = defaults.Threshold
		}
		if turnDetection.SilenceDurationMs == 0 {
			turnDetection.SilenceDurationMs = defaults.SilenceDurationMs
		}
		o.TurnDetection = &turnDetection
	}
}

// WithManualCommit disables server side turn detection.
func WithManualCommit() TranscriptionOption {
	return func(o *TranscriptionOptions) {
		o.TurnDetection = nil
	}
}
