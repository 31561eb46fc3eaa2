package voice

import (
	"sync"
	"time"
)

// Exchange is one completed turn: what the user said and what the
// assistant said or did in response.
type Exchange struct {
	UserText      string    `json:"userText"`
	AssistantText string    `json:"assistantText"`
	Timestamp     time.Time `json:"timestamp"`
}

// HistoryConfig tunes the turn history.
type HistoryConfig struct {
	MaxTurns          int           // retained exchanges (default 10)
	InactivityTimeout time.Duration // history expires after this much silence (default 5m)
}

// DefaultHistoryConfig returns sensible defaults.
func DefaultHistoryConfig() HistoryConfig {
	return HistoryConfig{
		MaxTurns:          10,
		InactivityTimeout: 5 * time.Minute,
	}
}

// TurnHistory keeps a rolling window of recent exchanges. It is sent
// along with classification requests so the service can resolve
// references to earlier turns. History expires after a period of
// inactivity so stale context never leaks into a new conversation.
type TurnHistory struct {
	mu           sync.RWMutex
	exchanges    []Exchange
	lastActivity time.Time
	cfg          HistoryConfig
}

// NewTurnHistory creates a turn history with the given config.
func NewTurnHistory(cfg HistoryConfig) *TurnHistory {
	if cfg.MaxTurns <= 0 {
		cfg.MaxTurns = 10
	}
	if cfg.InactivityTimeout <= 0 {
		cfg.InactivityTimeout = 5 * time.Minute
	}
	return &TurnHistory{
		exchanges:    make([]Exchange, 0, cfg.MaxTurns),
		lastActivity: time.Now(),
		cfg:          cfg,
	}
}

// Add records a completed turn, trimming to the configured window.
func (h *TurnHistory) Add(userText, assistantText string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.expiredLocked() {
		h.exchanges = h.exchanges[:0]
	}

	h.exchanges = append(h.exchanges, Exchange{
		UserText:      userText,
		AssistantText: assistantText,
		Timestamp:     time.Now(),
	})
	h.lastActivity = time.Now()

	if len(h.exchanges) > h.cfg.MaxTurns {
		h.exchanges = h.exchanges[len(h.exchanges)-h.cfg.MaxTurns:]
	}
}

// Recent returns up to n of the most recent exchanges, oldest first.
// Nil if the history is empty or expired.
func (h *TurnHistory) Recent(n int) []Exchange {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if len(h.exchanges) == 0 || h.expiredLocked() {
		return nil
	}

	start := len(h.exchanges) - n
	if start < 0 {
		start = 0
	}
	out := make([]Exchange, len(h.exchanges)-start)
	copy(out, h.exchanges[start:])
	return out
}

// Len returns the number of retained exchanges.
func (h *TurnHistory) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.exchanges)
}

// Clear drops all history.
func (h *TurnHistory) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.exchanges = h.exchanges[:0]
}

func (h *TurnHistory) expiredLocked() bool {
	if len(h.exchanges) == 0 {
		return false
	}
	return time.Since(h.lastActivity) > h.cfg.InactivityTimeout
}
