package intent

import (
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestHealthMonitorCheckOnline(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/health", r.URL.Path)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	m := NewHealthMonitor(server.URL, nil, zerolog.Nop())
	h := m.Check()

	assert.True(t, h.Online)
	assert.True(t, m.Last().Online)
}

func TestHealthMonitorCheckOffline(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	m := NewHealthMonitor(server.URL, nil, zerolog.Nop())
	assert.False(t, m.Check().Online)
}

func TestHealthMonitorUnreachableIsOffline(t *testing.T) {
	m := NewHealthMonitor("http://127.0.0.1:1", &MonitorConfig{
		Interval: time.Minute,
		Timeout:  200 * time.Millisecond,
	}, zerolog.Nop())

	assert.False(t, m.Check().Online)
}

func TestHealthMonitorChangeCallbackFiresOnFlip(t *testing.T) {
	var healthy atomic.Bool
	healthy.Store(true)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if healthy.Load() {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	m := NewHealthMonitor(server.URL, nil, zerolog.Nop())

	var changes atomic.Int32
	m.SetOnChange(func(Health) { changes.Add(1) })

	m.Check() // first observation always reports
	m.Check() // unchanged, silent
	healthy.Store(false)
	m.Check() // flip

	assert.Equal(t, int32(2), changes.Load())
}

func TestHealthMonitorStartStopIdempotent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	m := NewHealthMonitor(server.URL, &MonitorConfig{
		Interval: 10 * time.Millisecond,
		Timeout:  time.Second,
	}, zerolog.Nop())

	m.Start()
	m.Start()
	time.Sleep(30 * time.Millisecond)
	m.Stop()
	m.Stop()

	assert.True(t, m.Last().Online)
}
