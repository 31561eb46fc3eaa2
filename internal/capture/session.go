package capture

import (
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/carepulse/voiceassist/internal/voice"
)

// Callbacks receives session-level events. Any callback may be nil.
type Callbacks struct {
	OnStarted    func()
	OnTranscript func(voice.Transcript)
	OnError      func(kind voice.ErrorKind)
	OnEnded      func()
}

// Session wraps one recognition engine and exposes start/stop with the
// domain event contract. It joins engine chunks into the cumulative
// text for the current run and maps engine error codes onto the domain
// taxonomy. At most one engine run is active at a time.
type Session struct {
	engine   Engine
	language string
	cb       Callbacks
	logger   zerolog.Logger

	mu     sync.Mutex
	active bool
	chunks []string
}

// NewSession creates a capture session around engine. A nil engine
// means the platform has no recognition capability and the feature
// must not be offered; voice.ErrNotSupported is returned.
func NewSession(engine Engine, language string, cb Callbacks, logger zerolog.Logger) (*Session, error) {
	if engine == nil {
		return nil, voice.ErrNotSupported
	}
	s := &Session{
		engine:   engine,
		language: language,
		cb:       cb,
		logger:   logger.With().Str("component", "capture").Logger(),
	}
	engine.SetHandlers(Handlers{
		OnStart:  s.handleStart,
		OnResult: s.handleResult,
		OnError:  s.handleError,
		OnEnd:    s.handleEnd,
	})
	return s, nil
}

// Start begins a new engine run. Calling Start while a run is active
// is a no-op: the microphone is a singleton resource.
func (s *Session) Start() error {
	s.mu.Lock()
	if s.active {
		s.mu.Unlock()
		return nil
	}
	s.active = true
	s.chunks = s.chunks[:0]
	s.mu.Unlock()

	if err := s.engine.Start(); err != nil {
		s.mu.Lock()
		s.active = false
		s.mu.Unlock()
		s.logger.Error().Err(err).Msg("Engine start failed")
		return err
	}
	return nil
}

// Stop ends the current engine run gracefully. No-op if not active.
func (s *Session) Stop() {
	s.mu.Lock()
	active := s.active
	s.mu.Unlock()
	if !active {
		return
	}
	s.engine.Stop()
}

// Abort ends the current engine run immediately, discarding buffered
// results. No-op if not active.
func (s *Session) Abort() {
	s.mu.Lock()
	active := s.active
	s.mu.Unlock()
	if !active {
		return
	}
	s.engine.Abort()
}

// Active reports whether an engine run is in progress.
func (s *Session) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// Language returns the language tag the session was created with.
func (s *Session) Language() string {
	return s.language
}

func (s *Session) handleStart() {
	s.logger.Debug().Str("language", s.language).Msg("Recognition active")
	if s.cb.OnStarted != nil {
		s.cb.OnStarted()
	}
}

func (s *Session) handleResult(chunks []string, isFinal bool) {
	s.mu.Lock()
	for _, c := range chunks {
		if strings.TrimSpace(c) == "" {
			continue
		}
		s.chunks = append(s.chunks, strings.TrimSpace(c))
	}
	text := strings.Join(s.chunks, " ")
	s.mu.Unlock()

	if text == "" {
		return
	}
	if s.cb.OnTranscript != nil {
		s.cb.OnTranscript(voice.Transcript{
			Text:      text,
			IsFinal:   isFinal,
			Timestamp: time.Now(),
		})
	}
}

func (s *Session) handleError(code ErrorCode) {
	kind := mapErrorCode(code)
	s.logger.Warn().Str("code", string(code)).Str("kind", string(kind)).Msg("Recognition error")
	if code == CodeAborted {
		// An abort is always caller-initiated; not an error upward.
		return
	}
	if s.cb.OnError != nil {
		s.cb.OnError(kind)
	}
}

func (s *Session) handleEnd() {
	s.mu.Lock()
	s.active = false
	s.mu.Unlock()

	s.logger.Debug().Msg("Recognition ended")
	if s.cb.OnEnded != nil {
		s.cb.OnEnded()
	}
}

func mapErrorCode(code ErrorCode) voice.ErrorKind {
	switch code {
	case CodeNotAllowed:
		return voice.ErrorPermissionDenied
	case CodeServiceNotAllowed:
		return voice.ErrorServiceDenied
	case CodeNoSpeech:
		return voice.ErrorNoSpeech
	default:
		return voice.ErrorOther
	}
}
