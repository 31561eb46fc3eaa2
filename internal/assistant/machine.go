// Package assistant implements the hands-free voice assistant session
// state machine: it wires capture, silence debouncing, command
// resolution, and speech playback into a single loop, and owns
// permission and mode state.
package assistant

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/carepulse/voiceassist/internal/bus"
	"github.com/carepulse/voiceassist/internal/capture"
	"github.com/carepulse/voiceassist/internal/synth"
	"github.com/carepulse/voiceassist/internal/voice"
)

// Resolver turns a finalized utterance into exactly one outcome.
type Resolver interface {
	Resolve(ctx context.Context, u voice.Utterance, handsFree bool, sessionContext map[string]any) voice.CommandOutcome
}

// Config tunes the session state machine.
type Config struct {
	QuietWindow     time.Duration // silence before an utterance finalizes
	RetryBackoff    time.Duration // fixed delay before retrying transient capture errors
	NotificationTTL time.Duration // auto-hide delay for user-facing banners
	Language        string
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		QuietWindow:     voice.DefaultQuietWindow,
		RetryBackoff:    1 * time.Second,
		NotificationTTL: 5 * time.Second,
		Language:        "en-US",
	}
}

// Machine is the voice assistant session orchestrator. It owns exactly
// one live capture session, one debouncer, and one playback queue, and
// moves through Idle, Listening, Processing, and Speaking. All
// transitions run on the single Run goroutine; only one of capturing,
// processing, or speaking is active at any instant.
type Machine struct {
	cfg      *Config
	logger   zerolog.Logger
	bus      *bus.EventBus
	resolver Resolver

	session   *capture.Session
	debouncer *voice.SilenceDebouncer
	queue     *synth.Queue
	notifier  *notifier
	history   *voice.TurnHistory

	events    chan event
	done      chan struct{}
	finished  chan struct{}
	closeOnce sync.Once

	sessionID string

	// Snapshot state, written only by the run goroutine (and New).
	stateMu          sync.RWMutex
	state            voice.AssistantState
	handsFree        bool
	permissionDenied bool

	// Run-goroutine-private turn tracking.
	turn         uint64
	turnText     string
	retryTimer   *time.Timer
	retryPending bool
}

// New builds a machine around a recognition engine, a synthesis
// engine, and a resolver. A nil capture engine means the platform has
// no recognition capability: a "not supported" banner is published
// and voice.ErrNotSupported returned.
func New(captureEngine capture.Engine, synthEngine synth.Engine, resolver Resolver, eventBus *bus.EventBus, cfg *Config, logger zerolog.Logger) (*Machine, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	m := &Machine{
		cfg:       cfg,
		logger:    logger.With().Str("component", "assistant").Logger(),
		bus:       eventBus,
		resolver:  resolver,
		notifier:  newNotifier(eventBus, cfg.NotificationTTL),
		history:   voice.NewTurnHistory(voice.DefaultHistoryConfig()),
		events:    make(chan event, 32),
		done:      make(chan struct{}),
		finished:  make(chan struct{}),
		sessionID: uuid.NewString(),
		state:     voice.StateIdle,
	}

	session, err := capture.NewSession(captureEngine, cfg.Language, capture.Callbacks{
		OnStarted: func() {
			m.bus.Publish(bus.Event{Type: bus.EventTypeListeningStarted, Data: nil})
		},
		OnTranscript: func(tr voice.Transcript) {
			m.debouncer.OnTranscriptUpdate(tr)
			m.bus.Publish(bus.Event{
				Type: bus.EventTypeTranscriptDelta,
				Data: map[string]any{"text": tr.Text, "isFinal": tr.IsFinal},
			})
		},
		OnError: func(kind voice.ErrorKind) {
			m.post(event{kind: evCaptureError, errKind: kind})
		},
		OnEnded: func() {
			m.post(event{kind: evCaptureEnded})
		},
	}, logger)
	if err != nil {
		m.notifier.show(msgNotSupported)
		return nil, err
	}
	m.session = session

	m.debouncer = voice.NewSilenceDebouncer(cfg.QuietWindow, func(u voice.Utterance) {
		m.post(event{kind: evUtterance, utterance: u})
	})

	m.queue = synth.NewQueue(synthEngine, func() {
		m.post(event{kind: evPlaybackComplete})
	}, logger)

	return m, nil
}

// Run consumes events until ctx is cancelled or Close is called. It
// must be running for the machine to make progress.
func (m *Machine) Run(ctx context.Context) {
	defer close(m.finished)
	defer m.teardown()

	for {
		select {
		case <-ctx.Done():
			return
		case <-m.done:
			return
		case e := <-m.events:
			m.handle(e)
		}
	}
}

// Close tears the session down: capture aborted, playback cancelled,
// timers cleared. Idempotent.
func (m *Machine) Close() {
	m.closeOnce.Do(func() { close(m.done) })
	<-m.finished
}

// ToggleListen starts listening from Idle or stops an active
// simple-mode listen. Refused while permission is denied.
func (m *Machine) ToggleListen() {
	m.post(event{kind: evToggleListen})
}

// EnterHandsFree switches to hands-free mode and starts the
// continuous listen loop. Refused while permission is denied.
func (m *Machine) EnterHandsFree() {
	m.post(event{kind: evEnterHandsFree})
}

// ExitHandsFree leaves hands-free mode, cancelling playback and
// capture unconditionally.
func (m *Machine) ExitHandsFree() {
	m.post(event{kind: evExitHandsFree})
}

// State returns the current assistant state.
func (m *Machine) State() voice.AssistantState {
	m.stateMu.RLock()
	defer m.stateMu.RUnlock()
	return m.state
}

// HandsFree reports whether hands-free mode is active.
func (m *Machine) HandsFree() bool {
	m.stateMu.RLock()
	defer m.stateMu.RUnlock()
	return m.handsFree
}

// PermissionDenied reports whether capture is disabled by a fatal
// permission failure.
func (m *Machine) PermissionDenied() bool {
	m.stateMu.RLock()
	defer m.stateMu.RUnlock()
	return m.permissionDenied
}

func (m *Machine) post(e event) {
	select {
	case m.events <- e:
	case <-m.done:
	}
}

func (m *Machine) handle(e event) {
	m.logger.Trace().Str("event", e.kind.String()).Msg("Dispatch")
	switch e.kind {
	case evToggleListen:
		m.handleToggleListen()
	case evEnterHandsFree:
		m.handleEnterHandsFree()
	case evExitHandsFree:
		m.handleExitHandsFree()
	case evUtterance:
		m.handleUtterance(e.utterance)
	case evOutcome:
		m.handleOutcome(e.turn, e.outcome)
	case evCaptureError:
		m.handleCaptureError(e.errKind)
	case evCaptureEnded:
		m.handleCaptureEnded()
	case evPlaybackComplete:
		m.handlePlaybackComplete()
	case evRetryElapsed:
		m.handleRetryElapsed()
	}
}

func (m *Machine) handleToggleListen() {
	if m.PermissionDenied() {
		m.notifier.show(msgPermissionDenied)
		return
	}

	switch m.State() {
	case voice.StateIdle:
		m.startListening()
	case voice.StateListening:
		if m.HandsFree() {
			// the overlay's exit affordance handles hands-free
			return
		}
		m.session.Stop()
		m.debouncer.Cancel()
		m.setState(voice.StateIdle)
		m.bus.Publish(bus.Event{Type: bus.EventTypeListeningStopped, Data: nil})
	}
}

func (m *Machine) handleEnterHandsFree() {
	if m.PermissionDenied() {
		m.notifier.show(msgPermissionDenied)
		return
	}
	if m.HandsFree() {
		return
	}

	m.setHandsFree(true)
	m.bus.Publish(bus.Event{Type: bus.EventTypeHandsFreeEntered, Data: nil})
	m.stopTurn()
	m.startListening()
}

func (m *Machine) handleExitHandsFree() {
	if m.HandsFree() {
		m.setHandsFree(false)
		m.bus.Publish(bus.Event{Type: bus.EventTypeHandsFreeExited, Data: nil})
	}
	m.stopTurn()
	m.history.Clear()
	m.setState(voice.StateIdle)
}

func (m *Machine) handleUtterance(u voice.Utterance) {
	if m.State() != voice.StateListening {
		m.logger.Debug().Uint64("turn", u.Turn).Msg("Utterance outside listening, dropping")
		return
	}

	// Recognition never runs concurrently with processing.
	m.session.Stop()
	m.turn = u.Turn
	m.turnText = u.Text
	m.setState(voice.StateProcessing)
	m.bus.Publish(bus.Event{
		Type: bus.EventTypeUtterance,
		Data: map[string]any{"text": u.Text, "turn": u.Turn},
	})

	handsFree := m.HandsFree()
	sessionCtx := map[string]any{
		"sessionId":   m.sessionID,
		"handsFree":   handsFree,
		"language":    m.cfg.Language,
		"recentTurns": m.history.Recent(5),
	}

	// The resolver may block on the classifier; run it off-loop and
	// tag the result with the turn so stale replies are discarded.
	go func() {
		out := m.resolver.Resolve(context.Background(), u, handsFree, sessionCtx)
		m.post(event{kind: evOutcome, turn: u.Turn, outcome: out})
	}()
}

func (m *Machine) handleOutcome(turn uint64, out voice.CommandOutcome) {
	if m.State() != voice.StateProcessing || turn != m.turn {
		m.logger.Debug().Uint64("turn", turn).Str("kind", string(out.Kind)).Msg("Stale outcome, discarding")
		return
	}

	switch out.Kind {
	case voice.OutcomeSpeak:
		m.history.Add(m.turnText, out.Text)
		m.speak(out.Text)

	case voice.OutcomeNavigate:
		m.history.Add(m.turnText, "")
		m.bus.Publish(bus.Event{
			Type: bus.EventTypeNavigate,
			Data: map[string]any{"target": out.Target},
		})
		m.afterAction("Okay, opening that for you.")

	case voice.OutcomeLogData:
		m.history.Add(m.turnText, "")
		m.bus.Publish(bus.Event{
			Type: bus.EventTypeLogData,
			Data: map[string]any{"payload": out.Payload},
		})
		m.afterAction("Okay, I noted that.")

	case voice.OutcomeExitHandsFree:
		m.handleExitHandsFree()

	case voice.OutcomeUnknown:
		// Simple mode ignores unmatched input silently.
		if m.HandsFree() {
			m.startListening()
		} else {
			m.setState(voice.StateIdle)
		}
	}
}

// afterAction closes out a navigate/log turn: hands-free speaks a
// short acknowledgment so the loop continues; simple mode returns to
// idle with no speech.
func (m *Machine) afterAction(ack string) {
	if m.HandsFree() {
		m.speak(ack)
		return
	}
	m.setState(voice.StateIdle)
}

func (m *Machine) speak(text string) {
	if text == "" {
		m.setState(voice.StateIdle)
		return
	}
	m.setState(voice.StateSpeaking)
	m.bus.Publish(bus.Event{Type: bus.EventTypeSpeakingStarted, Data: map[string]any{"text": text}})
	m.queue.Speak(text)
}

func (m *Machine) handlePlaybackComplete() {
	if m.State() != voice.StateSpeaking {
		return
	}
	m.bus.Publish(bus.Event{Type: bus.EventTypeSpeakingStopped, Data: nil})

	if m.HandsFree() {
		m.startListening()
		return
	}
	m.setState(voice.StateIdle)
}

func (m *Machine) handleCaptureError(kind voice.ErrorKind) {
	if kind.Fatal() {
		m.logger.Warn().Str("kind", string(kind)).Msg("Fatal capture error, disabling voice features")
		m.setPermissionDenied(true)
		if m.HandsFree() {
			m.setHandsFree(false)
			m.bus.Publish(bus.Event{Type: bus.EventTypeHandsFreeExited, Data: nil})
		}
		m.stopTurn()
		m.setState(voice.StateIdle)
		m.notifier.show(msgPermissionDenied)
		return
	}

	if kind == voice.ErrorNoSpeech {
		// Benign silence; the engine's end event decides what happens next.
		return
	}

	// Transient failure: fixed-delay retry, skipped while speaking or
	// once permission has been denied.
	if m.PermissionDenied() || m.State() == voice.StateSpeaking {
		return
	}
	m.scheduleRetry()
}

func (m *Machine) handleCaptureEnded() {
	if m.State() != voice.StateListening {
		return
	}

	if m.retryPending {
		// The retry timer owns the restart.
		return
	}

	if m.HandsFree() {
		// The engine recognizes one utterance at a time; looping is our job.
		m.restartCapture()
		return
	}

	if m.debouncer.Pending() {
		// Finalization is imminent; stay listening until it lands.
		return
	}
	m.setState(voice.StateIdle)
	m.bus.Publish(bus.Event{Type: bus.EventTypeListeningStopped, Data: nil})
}

func (m *Machine) handleRetryElapsed() {
	m.retryPending = false
	if m.PermissionDenied() || m.State() != voice.StateListening {
		return
	}
	m.restartCapture()
}

func (m *Machine) startListening() {
	if m.PermissionDenied() {
		return
	}
	m.debouncer.Cancel()
	m.cancelRetry()
	m.setState(voice.StateListening)
	m.restartCapture()
}

func (m *Machine) restartCapture() {
	if err := m.session.Start(); err != nil {
		// The engine reports the failure through its error callback;
		// recovery is handled there.
		m.logger.Debug().Err(err).Msg("Capture start failed")
	}
}

func (m *Machine) scheduleRetry() {
	m.cancelRetry()
	m.retryPending = true
	m.retryTimer = time.AfterFunc(m.cfg.RetryBackoff, func() {
		m.post(event{kind: evRetryElapsed})
	})
}

func (m *Machine) cancelRetry() {
	if m.retryTimer != nil {
		m.retryTimer.Stop()
		m.retryTimer = nil
	}
	m.retryPending = false
}

// stopTurn cancels every in-flight resource: the pending debounce,
// the retry timer, playback, and capture. All of it is idempotent.
func (m *Machine) stopTurn() {
	m.cancelRetry()
	m.debouncer.Cancel()
	m.queue.CancelAll()
	m.session.Stop()
}

func (m *Machine) teardown() {
	m.stopTurn()
	m.session.Abort()
	m.notifier.stop()
	m.setState(voice.StateIdle)
	m.logger.Info().Msg("Assistant session torn down")
}

func (m *Machine) setState(s voice.AssistantState) {
	m.stateMu.Lock()
	old := m.state
	m.state = s
	m.stateMu.Unlock()

	if old == s {
		return
	}
	m.logger.Info().Str("old", old.String()).Str("new", s.String()).Msg("State changed")
	m.bus.Publish(bus.Event{
		Type: bus.EventTypeStateChanged,
		Data: map[string]any{"old": old.String(), "new": s.String()},
	})
}

func (m *Machine) setHandsFree(on bool) {
	m.stateMu.Lock()
	m.handsFree = on
	m.stateMu.Unlock()
}

func (m *Machine) setPermissionDenied(denied bool) {
	m.stateMu.Lock()
	m.permissionDenied = denied
	m.stateMu.Unlock()
}
