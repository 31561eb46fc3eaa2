// Package voice provides the shared domain types for the hands-free
// voice assistant session: transcripts, finalized utterances, command
// outcomes, and the assistant state enum.
package voice

import (
	"errors"
	"time"
)

// Common errors
var (
	ErrNotSupported     = errors.New("speech recognition not supported on this platform")
	ErrPermissionDenied = errors.New("microphone permission denied")
)

// Transcript is a single partial or final chunk of recognized speech.
// Transcripts are immutable; later deltas supersede earlier ones.
type Transcript struct {
	Text      string    `json:"text"`
	IsFinal   bool      `json:"isFinal"`
	Timestamp time.Time `json:"timestamp"`
}

// Utterance is the finalized text produced after a period of silence
// following one or more transcript updates. Turn is a monotonically
// increasing counter identifying the processing turn this utterance
// belongs to; late classification results carrying a stale turn are
// discarded.
type Utterance struct {
	Text        string    `json:"text"`
	FinalizedAt time.Time `json:"finalizedAt"`
	Turn        uint64    `json:"turn"`
}

// OutcomeKind discriminates CommandOutcome variants.
type OutcomeKind string

const (
	OutcomeNavigate      OutcomeKind = "navigate"
	OutcomeLogData       OutcomeKind = "log_data"
	OutcomeSpeak         OutcomeKind = "speak"
	OutcomeExitHandsFree OutcomeKind = "exit_hands_free"
	OutcomeUnknown       OutcomeKind = "unknown"
)

// CommandOutcome is the resolved action for one utterance.
// Exactly the fields for the given Kind are populated.
type CommandOutcome struct {
	Kind    OutcomeKind `json:"kind"`
	Target  string      `json:"target,omitempty"`  // navigate: route to open
	Payload string      `json:"payload,omitempty"` // log_data: text to pre-fill downstream
	Text    string      `json:"text,omitempty"`    // speak: reply to synthesize
}

// AssistantState is the overall state of the assistant session.
type AssistantState string

const (
	StateIdle       AssistantState = "idle"
	StateListening  AssistantState = "listening"
	StateProcessing AssistantState = "processing"
	StateSpeaking   AssistantState = "speaking"
)

// String returns the state name.
func (s AssistantState) String() string {
	return string(s)
}

// ErrorKind classifies capture failures per the recovery policy:
// permission failures are fatal, no-speech is benign, everything else
// is retried with a fixed backoff.
type ErrorKind string

const (
	ErrorPermissionDenied ErrorKind = "permission_denied"
	ErrorServiceDenied    ErrorKind = "service_denied"
	ErrorNoSpeech         ErrorKind = "no_speech"
	ErrorOther            ErrorKind = "other"
)

// Fatal reports whether the error kind disables capture until an
// external reset.
func (k ErrorKind) Fatal() bool {
	return k == ErrorPermissionDenied || k == ErrorServiceDenied
}
