// Package capture owns the lifecycle of one continuous-listening
// speech recognition engine instance and re-emits its chunks and
// errors as domain transcripts.
package capture

// ErrorCode is the raw error identifier reported by a recognition
// engine. The codes mirror the engine event contract; Session maps
// them onto the domain error taxonomy.
type ErrorCode string

const (
	CodeNotAllowed        ErrorCode = "not-allowed"
	CodeServiceNotAllowed ErrorCode = "service-not-allowed"
	CodeNoSpeech          ErrorCode = "no-speech"
	CodeAborted           ErrorCode = "aborted"
	CodeAudioCapture      ErrorCode = "audio-capture"
	CodeNetwork           ErrorCode = "network"
)

// Handlers receives engine events. Any handler may be nil.
type Handlers struct {
	OnStart  func()
	OnResult func(chunks []string, isFinal bool)
	OnError  func(code ErrorCode)
	OnEnd    func()
}

// Engine is a single-utterance-at-a-time recognition engine. The
// engine itself does not loop; restarting after it ends is the
// caller's responsibility.
type Engine interface {
	// SetHandlers registers event callbacks. Must be called before Start.
	SetHandlers(h Handlers)

	// Start begins recognition. The engine emits OnStart once active,
	// OnResult for every chunk, and OnEnd when it stops.
	Start() error

	// Stop ends recognition gracefully; buffered results may still be
	// delivered before OnEnd. Idempotent.
	Stop()

	// Abort ends recognition immediately, discarding buffered results.
	// Idempotent.
	Abort()
}
