// Package protocol defines the wire events of the DashScope realtime session
// protocol shared by the speech recognition and speech synthesis sessions.
//
// Every frame is a JSON object tagged by its "type" field. Binary audio travels
// base64 encoded inside the frame, in both directions.
//
// Client events
//
//   - SessionUpdate (session.update): session configuration, sent once the
//     socket is open.
//   - InputAudioBufferAppend (input_audio_buffer.append): audio chunk.
//   - InputAudioBufferCommit (input_audio_buffer.commit): end of the current
//     audio turn in manual turn detection mode.
//   - InputTextBufferAppend (input_text_buffer.append): text to synthesize.
//   - InputTextBufferCommit (input_text_buffer.commit): end of text input.
//   - SessionFinish (session.finish): no more input, the server should drain
//     and end the session.
//
// Server events
//
//   - SessionCreated, SessionUpdated, SessionFinished: session lifecycle.
//   - SpeechStarted, SpeechStopped, InputAudioBufferCommitted: server VAD and
//     audio buffer notifications.
//   - TranscriptionText: mutable partial transcript, replaces earlier partials.
//   - TranscriptionCompleted: final transcript of an audio item.
//   - TranscriptionFailed: the server could not transcribe an audio item.
//   - InputTextBufferCommitted, ResponseCreated, ResponseAudioDelta,
//     ResponseAudioDone, ResponseDone: speech synthesis progress.
//   - Error: server side failure, terminal for the session.
//
// Kinds this package does not know decode to Unknown so that new server events
// never break a running session.
package protocol
