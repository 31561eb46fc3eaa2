package voice

import (
	"strings"
	"sync"
	"time"

	"github.com/bep/debounce"
)

// DefaultQuietWindow is the silence period after which accumulated
// transcript text is considered a complete utterance.
const DefaultQuietWindow = 1500 * time.Millisecond

// SilenceDebouncer turns a stream of transcript updates into a single
// finalized Utterance once no further updates arrive for the quiet
// window. Each update restarts the pending window (debounce, not
// throttle). An engine-reported final flag does not shorten the window;
// the debouncer always waits for silence so the speaker can correct
// themselves.
type SilenceDebouncer struct {
	mu          sync.Mutex
	window      time.Duration
	debounced   func(func())
	latest      string
	gen         uint64
	turn        uint64
	onFinalized func(Utterance)
}

// NewSilenceDebouncer creates a debouncer that invokes onFinalized with
// the accumulated text after window of silence. A zero window falls
// back to DefaultQuietWindow.
func NewSilenceDebouncer(window time.Duration, onFinalized func(Utterance)) *SilenceDebouncer {
	if window <= 0 {
		window = DefaultQuietWindow
	}
	return &SilenceDebouncer{
		window:      window,
		debounced:   debounce.New(window),
		onFinalized: onFinalized,
	}
}

// OnTranscriptUpdate records the latest transcript and restarts the
// quiet window. The transcript carries the cumulative session text, so
// only the most recent update matters.
func (d *SilenceDebouncer) OnTranscriptUpdate(t Transcript) {
	d.mu.Lock()
	d.latest = t.Text
	gen := d.gen
	d.mu.Unlock()

	d.debounced(func() { d.fire(gen) })
}

// Cancel drops any pending emission. The transcript fragment
// accumulated so far is discarded.
func (d *SilenceDebouncer) Cancel() {
	d.mu.Lock()
	d.gen++
	d.latest = ""
	d.mu.Unlock()
}

// Pending reports whether transcript text is waiting to be finalized.
func (d *SilenceDebouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return strings.TrimSpace(d.latest) != ""
}

// fire runs on the debounce timer goroutine. The generation check makes
// Cancel effective even though the underlying timer cannot be stopped:
// a cancelled cycle's callback sees a stale generation and does nothing.
func (d *SilenceDebouncer) fire(gen uint64) {
	d.mu.Lock()
	if gen != d.gen {
		d.mu.Unlock()
		return
	}
	text := strings.TrimSpace(d.latest)
	if text == "" {
		d.mu.Unlock()
		return
	}
	d.gen++
	d.turn++
	u := Utterance{Text: text, FinalizedAt: time.Now(), Turn: d.turn}
	d.latest = ""
	emit := d.onFinalized
	d.mu.Unlock()

	if emit != nil {
		emit(u)
	}
}
