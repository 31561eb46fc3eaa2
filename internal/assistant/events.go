package assistant

import (
	"github.com/carepulse/voiceassist/internal/voice"
)

// eventKind enumerates everything that can drive the state machine:
// user commands, capture callbacks, debouncer finalization, resolver
// results, playback completion, and timer expiries. All of them funnel
// through one channel consumed by the run goroutine, so transitions
// are dispatched one at a time.
type eventKind int

const (
	evToggleListen eventKind = iota
	evEnterHandsFree
	evExitHandsFree
	evUtterance
	evOutcome
	evCaptureError
	evCaptureEnded
	evPlaybackComplete
	evRetryElapsed
)

type event struct {
	kind      eventKind
	utterance voice.Utterance
	outcome   voice.CommandOutcome
	turn      uint64 // evOutcome: the turn the outcome belongs to
	errKind   voice.ErrorKind
}

func (k eventKind) String() string {
	switch k {
	case evToggleListen:
		return "toggle_listen"
	case evEnterHandsFree:
		return "enter_hands_free"
	case evExitHandsFree:
		return "exit_hands_free"
	case evUtterance:
		return "utterance"
	case evOutcome:
		return "outcome"
	case evCaptureError:
		return "capture_error"
	case evCaptureEnded:
		return "capture_ended"
	case evPlaybackComplete:
		return "playback_complete"
	case evRetryElapsed:
		return "retry_elapsed"
	default:
		return "unknown"
	}
}
