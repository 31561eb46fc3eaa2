package capture

import (
	"errors"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"github.com/carepulse/voiceassist/internal/voice"
)

var errStartFailed = errors.New("engine start failed")

// fakeEngine drives session callbacks from the test.
type fakeEngine struct {
	mu       sync.Mutex
	handlers Handlers
	starts   int
	stops    int
	aborts   int
	startErr error
}

func (f *fakeEngine) SetHandlers(h Handlers) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers = h
}

func (f *fakeEngine) Start() error {
	f.mu.Lock()
	f.starts++
	err := f.startErr
	f.mu.Unlock()
	return err
}

func (f *fakeEngine) Stop() {
	f.mu.Lock()
	f.stops++
	f.mu.Unlock()
}

func (f *fakeEngine) Abort() {
	f.mu.Lock()
	f.aborts++
	f.mu.Unlock()
}

func (f *fakeEngine) h() Handlers {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.handlers
}

func (f *fakeEngine) counts() (starts, stops, aborts int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.starts, f.stops, f.aborts
}

func TestNewSession_NilEngineNotSupported(t *testing.T) {
	_, err := NewSession(nil, "en-US", Callbacks{}, zerolog.Nop())
	if err != voice.ErrNotSupported {
		t.Fatalf("expected ErrNotSupported, got %v", err)
	}
}

func TestSession_StartIsIdempotentWhileActive(t *testing.T) {
	engine := &fakeEngine{}
	s, err := NewSession(engine, "en-US", Callbacks{}, zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}

	if err := s.Start(); err != nil {
		t.Fatal(err)
	}
	if err := s.Start(); err != nil {
		t.Fatal(err)
	}

	starts, _, _ := engine.counts()
	if starts != 1 {
		t.Errorf("second Start while active must not reach the engine, got %d starts", starts)
	}
	if !s.Active() {
		t.Error("expected session active after start")
	}
}

func TestSession_StartFailureLeavesInactive(t *testing.T) {
	engine := &fakeEngine{startErr: errStartFailed}
	s, _ := NewSession(engine, "en-US", Callbacks{}, zerolog.Nop())

	if err := s.Start(); err == nil {
		t.Fatal("expected start error")
	}
	if s.Active() {
		t.Error("failed start must leave the session inactive")
	}
}

func TestSession_StopAndAbortNoopWhenIdle(t *testing.T) {
	engine := &fakeEngine{}
	s, _ := NewSession(engine, "en-US", Callbacks{}, zerolog.Nop())

	s.Stop()
	s.Abort()

	_, stops, aborts := engine.counts()
	if stops != 0 || aborts != 0 {
		t.Errorf("stop/abort on idle session must be no-ops, got stops=%d aborts=%d", stops, aborts)
	}
}

func TestSession_JoinsChunksIntoCumulativeText(t *testing.T) {
	engine := &fakeEngine{}
	var transcripts []voice.Transcript
	s, _ := NewSession(engine, "en-US", Callbacks{
		OnTranscript: func(tr voice.Transcript) { transcripts = append(transcripts, tr) },
	}, zerolog.Nop())

	if err := s.Start(); err != nil {
		t.Fatal(err)
	}
	engine.h().OnResult([]string{"go to"}, false)
	engine.h().OnResult([]string{"dashboard"}, true)

	if len(transcripts) != 2 {
		t.Fatalf("expected 2 transcripts, got %d", len(transcripts))
	}
	if transcripts[0].Text != "go to" {
		t.Errorf("unexpected first transcript %q", transcripts[0].Text)
	}
	if transcripts[1].Text != "go to dashboard" {
		t.Errorf("expected cumulative text, got %q", transcripts[1].Text)
	}
	if !transcripts[1].IsFinal {
		t.Error("expected final flag on second transcript")
	}
}

func TestSession_ChunksResetOnRestart(t *testing.T) {
	engine := &fakeEngine{}
	var last voice.Transcript
	s, _ := NewSession(engine, "en-US", Callbacks{
		OnTranscript: func(tr voice.Transcript) { last = tr },
	}, zerolog.Nop())

	_ = s.Start()
	engine.h().OnResult([]string{"first run"}, true)
	engine.h().OnEnd()

	_ = s.Start()
	engine.h().OnResult([]string{"second run"}, false)

	if last.Text != "second run" {
		t.Errorf("expected fresh text after restart, got %q", last.Text)
	}
}

func TestSession_ErrorCodeMapping(t *testing.T) {
	cases := []struct {
		code ErrorCode
		want voice.ErrorKind
	}{
		{CodeNotAllowed, voice.ErrorPermissionDenied},
		{CodeServiceNotAllowed, voice.ErrorServiceDenied},
		{CodeNoSpeech, voice.ErrorNoSpeech},
		{CodeNetwork, voice.ErrorOther},
		{CodeAudioCapture, voice.ErrorOther},
	}

	for _, tc := range cases {
		engine := &fakeEngine{}
		var got voice.ErrorKind
		s, _ := NewSession(engine, "en-US", Callbacks{
			OnError: func(kind voice.ErrorKind) { got = kind },
		}, zerolog.Nop())
		_ = s.Start()

		engine.h().OnError(tc.code)
		if got != tc.want {
			t.Errorf("code %s: expected %s, got %s", tc.code, tc.want, got)
		}
	}
}

func TestSession_AbortedIsNotSurfaced(t *testing.T) {
	engine := &fakeEngine{}
	called := false
	s, _ := NewSession(engine, "en-US", Callbacks{
		OnError: func(voice.ErrorKind) { called = true },
	}, zerolog.Nop())
	_ = s.Start()

	engine.h().OnError(CodeAborted)
	if called {
		t.Error("caller-initiated abort must not surface as an error")
	}
}

func TestSession_EndedClearsActive(t *testing.T) {
	engine := &fakeEngine{}
	ended := false
	s, _ := NewSession(engine, "en-US", Callbacks{
		OnEnded: func() { ended = true },
	}, zerolog.Nop())
	_ = s.Start()

	engine.h().OnEnd()
	if !ended {
		t.Error("expected OnEnded callback")
	}
	if s.Active() {
		t.Error("session must be inactive after engine end")
	}

	// A new run is now allowed.
	_ = s.Start()
	starts, _, _ := engine.counts()
	if starts != 2 {
		t.Errorf("expected restart to reach the engine, got %d starts", starts)
	}
}
