package intent

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Health is one observation of the classifier service.
type Health struct {
	Online    bool
	Latency   time.Duration
	CheckedAt time.Time
}

// MonitorConfig tunes the classifier health monitor.
type MonitorConfig struct {
	Interval time.Duration // time between background checks
	Timeout  time.Duration // per-probe timeout
}

// DefaultMonitorConfig returns sensible defaults.
func DefaultMonitorConfig() *MonitorConfig {
	return &MonitorConfig{
		Interval: 30 * time.Second,
		Timeout:  2 * time.Second,
	}
}

// HealthMonitor tracks classifier availability so the host can surface
// degraded-mode hints. The resolver itself never consults it: every
// classification attempt carries its own timeout and local fallback,
// so a stale health reading can never silence the assistant.
type HealthMonitor struct {
	serverURL  string
	cfg        *MonitorConfig
	httpClient *http.Client
	logger     zerolog.Logger

	mu       sync.Mutex
	last     Health
	onChange func(Health)
	stopCh   chan struct{}
	running  bool
}

// NewHealthMonitor creates a monitor for the classifier at serverURL.
func NewHealthMonitor(serverURL string, cfg *MonitorConfig, logger zerolog.Logger) *HealthMonitor {
	if cfg == nil {
		cfg = DefaultMonitorConfig()
	}
	return &HealthMonitor{
		serverURL:  serverURL,
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger.With().Str("component", "classifier-health").Logger(),
		stopCh:     make(chan struct{}),
	}
}

// SetOnChange registers a callback invoked whenever the online status
// flips.
func (m *HealthMonitor) SetOnChange(fn func(Health)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onChange = fn
}

// Start begins background checking. No-op if already running.
func (m *HealthMonitor) Start() {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return
	}
	m.running = true
	m.stopCh = make(chan struct{})
	stop := m.stopCh
	m.mu.Unlock()

	go m.Check()

	go func() {
		ticker := time.NewTicker(m.cfg.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				m.Check()
			case <-stop:
				return
			}
		}
	}()
}

// Stop ends background checking.
func (m *HealthMonitor) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		close(m.stopCh)
		m.running = false
	}
}

// Last returns the most recent observation.
func (m *HealthMonitor) Last() Health {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.last
}

// Check probes the classifier once and records the result.
func (m *HealthMonitor) Check() Health {
	start := time.Now()
	h := Health{CheckedAt: start}

	ctx, cancel := context.WithTimeout(context.Background(), m.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.serverURL+"/v1/health", nil)
	if err == nil {
		resp, derr := m.httpClient.Do(req)
		if derr == nil {
			resp.Body.Close()
			h.Online = resp.StatusCode == http.StatusOK
		}
	}
	h.Latency = time.Since(start)

	m.mu.Lock()
	flipped := h.Online != m.last.Online || m.last.CheckedAt.IsZero()
	m.last = h
	cb := m.onChange
	m.mu.Unlock()

	if flipped {
		m.logger.Info().Bool("online", h.Online).Dur("latency", h.Latency).Msg("Classifier availability changed")
		if cb != nil {
			cb(h)
		}
	}
	return h
}
