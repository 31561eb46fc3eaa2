package assistant

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/carepulse/voiceassist/internal/bus"
)

// User-facing notification texts. These are the only technical
// failures the user ever sees; everything else recovers silently.
const (
	msgNotSupported     = "Voice features are not supported on this device."
	msgPermissionDenied = "Microphone access is blocked. Enable it in settings to use voice features."
)

// notifier publishes user-facing banners on the bus and hides them
// again after a fixed delay. Pending hide timers are stopped on
// teardown.
type notifier struct {
	bus *bus.EventBus
	ttl time.Duration

	mu     sync.Mutex
	timers map[string]*time.Timer
}

func newNotifier(eventBus *bus.EventBus, ttl time.Duration) *notifier {
	return &notifier{
		bus:    eventBus,
		ttl:    ttl,
		timers: make(map[string]*time.Timer),
	}
}

// show publishes a banner and schedules its auto-hide.
func (n *notifier) show(message string) {
	id := uuid.NewString()
	n.bus.Publish(bus.Event{
		Type: bus.EventTypeNotificationShow,
		Data: map[string]any{"id": id, "message": message},
	})

	if n.ttl <= 0 {
		return
	}
	n.mu.Lock()
	n.timers[id] = time.AfterFunc(n.ttl, func() { n.hide(id) })
	n.mu.Unlock()
}

func (n *notifier) hide(id string) {
	n.mu.Lock()
	delete(n.timers, id)
	n.mu.Unlock()

	n.bus.Publish(bus.Event{
		Type: bus.EventTypeNotificationHide,
		Data: map[string]any{"id": id},
	})
}

// stop cancels all pending hide timers.
func (n *notifier) stop() {
	n.mu.Lock()
	defer n.mu.Unlock()
	for id, t := range n.timers {
		t.Stop()
		delete(n.timers, id)
	}
}
