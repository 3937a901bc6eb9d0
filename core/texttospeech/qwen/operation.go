package qwen

import (
	"fmt"

	"github.com/jinzhu/copier"
	"github.com/koscakluka/ema-realtime/core/realtime"
	"github.com/koscakluka/ema-realtime/core/realtime/protocol"
	"github.com/koscakluka/ema-realtime/core/texttospeech"
)

const operationName = "synthesize"

// synthesisOperation assembles audio deltas until the response is done.
type synthesisOperation struct {
	options texttospeech.TextToSpeechOptions
	session protocol.SpeechSession

	audio realtime.AudioAssembler
}

func newSynthesisOperation(options texttospeech.TextToSpeechOptions) (*synthesisOperation, error) {
	encoding, err := convertEncoding(options.EncodingInfo)
	if err != nil {
		return nil, fmt.Errorf("invalid encoding: %w", err)
	}

	session := protocol.SpeechSession{
		Mode:           protocol.SpeechModeCommit,
		ResponseFormat: encoding.Format,
		SampleRate:     encoding.SampleRate,
	}
	// Voice and LanguageType carry over by name
	if err := copier.Copy(&session, &options); err != nil {
		return nil, fmt.Errorf("failed to convert speech options: %w", err)
	}

	return &synthesisOperation{options: options, session: session}, nil
}

func (o *synthesisOperation) Name() string { return operationName }

func (o *synthesisOperation) SessionUpdate() protocol.ClientEvent {
	return protocol.UpdateSession(o.session)
}

func (o *synthesisOperation) HandleEvent(ev protocol.Event) (bool, error) {
	switch e := ev.(type) {
	case *protocol.ResponseAudioDelta:
		o.audio.Append(e.Audio)
		if o.options.SpeechAudioCallback != nil && len(e.Audio) > 0 {
			o.options.SpeechAudioCallback(e.Audio)
		}

	case *protocol.ResponseAudioDone:
		logger.Debug("response audio done", "response_id", e.ResponseID, "bytes", o.audio.Len())

	case *protocol.ResponseDone:
		if o.options.SpeechEndedCallback != nil {
			o.options.SpeechEndedCallback(o.report())
		}
		return true, nil
	}

	return false, nil
}

func (o *synthesisOperation) report() texttospeech.SpeechEndedReport {
	return texttospeech.SpeechEndedReport{Bytes: o.audio.Len(), Chunks: o.audio.Chunks()}
}

func (o *synthesisOperation) Result() []byte { return o.audio.Bytes() }
