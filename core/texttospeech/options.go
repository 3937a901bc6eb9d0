package texttospeech

import "github.com/koscakluka/ema-realtime/core/audio"

type TextToSpeechOptions struct {
	// SpeechAudioCallback is called with every chunk of synthesized audio, in
	// the order the chunks are produced
	SpeechAudioCallback func(audio []byte)
	// SpeechEndedCallback is called when the TTS client has finished producing
	// speech and provides a report of the speech generation
	SpeechEndedCallback func(SpeechEndedReport)
	// ErrorCallback is called when the TTS client encounters an error, this
	// usually means the synthesis has been cancelled
	ErrorCallback func(error)

	EncodingInfo audio.EncodingInfo
	Voice        string
	// LanguageType hints the language of the text, e.g. "Chinese" or
	// "English". Empty lets the server detect it.
	LanguageType string
}

type TextToSpeechOption func(*TextToSpeechOptions)

func WithSpeechAudioCallback(callback func([]byte)) TextToSpeechOption {
	return func(o *TextToSpeechOptions) {
		o.SpeechAudioCallback = callback
	}
}

// WithSpeechEndedCallback sets the callback for when the TTS client has
// finished producing all required speech
func WithSpeechEndedCallback(callback func(SpeechEndedReport)) TextToSpeechOption {
	return func(o *TextToSpeechOptions) { o.SpeechEndedCallback = callback }
}

func WithErrorCallback(callback func(error)) TextToSpeechOption {
	return func(o *TextToSpeechOptions) { o.ErrorCallback = callback }
}

func WithEncodingInfo(encodingInfo audio.EncodingInfo) TextToSpeechOption {
	return func(o *TextToSpeechOptions) {
		if encodingInfo.IsZero() {
			logger.Warn("ignoring empty encoding info")
			return
		}

		o.EncodingInfo = encodingInfo
	}
}

func WithVoice(voice string) TextToSpeechOption {
	return func(o *TextToSpeechOptions) {
		if voice != "" {
			o.Voice = voice
		}
	}
}

func WithLanguageType(languageType string) TextToSpeechOption {
	return func(o *TextToSpeechOptions) { o.LanguageType = languageType }
}

type SpeechEndedReport struct {
	// Bytes is the total amount of audio produced
	Bytes int
	// Chunks is the number of audio deltas the audio arrived in
	Chunks int
}
