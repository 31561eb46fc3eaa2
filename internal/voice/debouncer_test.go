package voice

import (
	"sync"
	"testing"
	"time"
)

type utteranceRecorder struct {
	mu   sync.Mutex
	utts []Utterance
}

func (r *utteranceRecorder) record(u Utterance) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.utts = append(r.utts, u)
}

func (r *utteranceRecorder) snapshot() []Utterance {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Utterance, len(r.utts))
	copy(out, r.utts)
	return out
}

func (r *utteranceRecorder) waitFor(t *testing.T, n int, timeout time.Duration) []Utterance {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if utts := r.snapshot(); len(utts) >= n {
			return utts
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("expected %d utterances within %v, got %d", n, timeout, len(r.snapshot()))
	return nil
}

func TestSilenceDebouncer_EmitsOnceAfterQuietWindow(t *testing.T) {
	rec := &utteranceRecorder{}
	d := NewSilenceDebouncer(40*time.Millisecond, rec.record)

	// Updates spaced well under the window must collapse into a single
	// utterance carrying the latest cumulative text.
	d.OnTranscriptUpdate(Transcript{Text: "go to", Timestamp: time.Now()})
	time.Sleep(10 * time.Millisecond)
	d.OnTranscriptUpdate(Transcript{Text: "go to dashboard", Timestamp: time.Now()})

	utts := rec.waitFor(t, 1, time.Second)
	if len(utts) != 1 {
		t.Fatalf("expected exactly 1 utterance, got %d", len(utts))
	}
	if utts[0].Text != "go to dashboard" {
		t.Errorf("expected latest cumulative text, got %q", utts[0].Text)
	}
	if utts[0].Turn != 1 {
		t.Errorf("expected turn 1, got %d", utts[0].Turn)
	}

	// No further emission without new updates.
	time.Sleep(100 * time.Millisecond)
	if got := len(rec.snapshot()); got != 1 {
		t.Errorf("expected no extra emissions, got %d", got)
	}
}

func TestSilenceDebouncer_EachUpdateRestartsWindow(t *testing.T) {
	rec := &utteranceRecorder{}
	d := NewSilenceDebouncer(50*time.Millisecond, rec.record)

	for i := 0; i < 4; i++ {
		d.OnTranscriptUpdate(Transcript{Text: "still talking", Timestamp: time.Now()})
		time.Sleep(20 * time.Millisecond)
		if got := len(rec.snapshot()); got != 0 {
			t.Fatalf("utterance emitted while updates still arriving (iteration %d)", i)
		}
	}

	rec.waitFor(t, 1, time.Second)
}

func TestSilenceDebouncer_CancelDropsPendingFragment(t *testing.T) {
	rec := &utteranceRecorder{}
	d := NewSilenceDebouncer(30*time.Millisecond, rec.record)

	d.OnTranscriptUpdate(Transcript{Text: "half a sent", Timestamp: time.Now()})
	if !d.Pending() {
		t.Fatal("expected pending fragment before cancel")
	}
	d.Cancel()
	if d.Pending() {
		t.Fatal("expected no pending fragment after cancel")
	}

	time.Sleep(80 * time.Millisecond)
	if got := len(rec.snapshot()); got != 0 {
		t.Errorf("cancelled cycle must not emit, got %d utterances", got)
	}
}

func TestSilenceDebouncer_EmptyTextNeverEmits(t *testing.T) {
	rec := &utteranceRecorder{}
	d := NewSilenceDebouncer(20*time.Millisecond, rec.record)

	d.OnTranscriptUpdate(Transcript{Text: "   ", Timestamp: time.Now()})
	time.Sleep(60 * time.Millisecond)
	if got := len(rec.snapshot()); got != 0 {
		t.Errorf("whitespace-only transcript must not finalize, got %d", got)
	}
}

func TestSilenceDebouncer_TurnCounterIncrementsPerCycle(t *testing.T) {
	rec := &utteranceRecorder{}
	d := NewSilenceDebouncer(20*time.Millisecond, rec.record)

	d.OnTranscriptUpdate(Transcript{Text: "first", Timestamp: time.Now()})
	rec.waitFor(t, 1, time.Second)
	d.OnTranscriptUpdate(Transcript{Text: "second", Timestamp: time.Now()})
	utts := rec.waitFor(t, 2, time.Second)

	if utts[0].Turn != 1 || utts[1].Turn != 2 {
		t.Errorf("expected turns 1,2 got %d,%d", utts[0].Turn, utts[1].Turn)
	}
}

func TestErrorKind_Fatal(t *testing.T) {
	if !ErrorPermissionDenied.Fatal() {
		t.Error("permission denied must be fatal")
	}
	if !ErrorServiceDenied.Fatal() {
		t.Error("service denied must be fatal")
	}
	if ErrorNoSpeech.Fatal() {
		t.Error("no-speech is benign")
	}
	if ErrorOther.Fatal() {
		t.Error("transient errors are not fatal")
	}
}
