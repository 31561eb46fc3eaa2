// Package synth owns the text-to-speech engine and guarantees at most
// one utterance is audible at a time.
package synth

import (
	"sync"

	"github.com/rs/zerolog"
)

// Request is one utterance to synthesize. Rate and pitch are neutral
// (1.0) for every assistant reply.
type Request struct {
	Text  string  `json:"text"`
	Rate  float64 `json:"rate"`
	Pitch float64 `json:"pitch"`
}

// Engine is an asynchronous speech synthesizer. Speak starts playback
// and invokes done exactly once when the utterance finishes naturally;
// a cancelled utterance reports done(true) or never reports at all.
type Engine interface {
	Speak(req Request, done func(cancelled bool)) error
	Cancel()
}

// Queue serializes speech output: a new Speak cancels any in-flight
// utterance instead of enqueueing behind it. OnComplete fires exactly
// once per Speak that runs to the end (or fails outright) and never
// for a cancelled one, so callers must track their own follow-up state
// across CancelAll.
type Queue struct {
	engine Engine
	logger zerolog.Logger

	mu         sync.Mutex
	gen        uint64
	speaking   bool
	onComplete func()
}

// NewQueue creates a playback queue around engine.
func NewQueue(engine Engine, onComplete func(), logger zerolog.Logger) *Queue {
	return &Queue{
		engine:     engine,
		onComplete: onComplete,
		logger:     logger.With().Str("component", "synth").Logger(),
	}
}

// Speak cancels any current utterance and synthesizes text. Empty text
// is a no-op.
func (q *Queue) Speak(text string) {
	if text == "" {
		return
	}

	q.mu.Lock()
	q.gen++
	gen := q.gen
	q.speaking = true
	q.mu.Unlock()

	q.engine.Cancel()

	req := Request{Text: text, Rate: 1.0, Pitch: 1.0}
	err := q.engine.Speak(req, func(cancelled bool) {
		q.finish(gen, cancelled)
	})
	if err != nil {
		// A failed synthesis counts as finished so the session loop
		// keeps moving instead of waiting on playback forever.
		q.logger.Error().Err(err).Msg("Synthesis failed")
		q.finish(gen, false)
	}
}

// CancelAll stops any in-flight utterance. Its completion callback is
// suppressed. Idempotent.
func (q *Queue) CancelAll() {
	q.mu.Lock()
	q.gen++
	q.speaking = false
	q.mu.Unlock()

	q.engine.Cancel()
}

// Speaking reports whether an utterance is currently audible.
func (q *Queue) Speaking() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.speaking
}

func (q *Queue) finish(gen uint64, cancelled bool) {
	q.mu.Lock()
	if q.gen != gen || cancelled {
		q.mu.Unlock()
		return
	}
	q.speaking = false
	cb := q.onComplete
	q.mu.Unlock()

	if cb != nil {
		cb()
	}
}
