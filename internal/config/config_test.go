package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 1500*time.Millisecond, cfg.Assistant.QuietWindow)
	assert.Equal(t, time.Second, cfg.Assistant.RetryBackoff)
	assert.Equal(t, "en-US", cfg.Assistant.Language)
	assert.Equal(t, 5*time.Second, cfg.Classifier.Timeout)
	assert.Equal(t, 1.0, cfg.Playback.Rate)
	assert.Equal(t, 1.0, cfg.Playback.Pitch)
	assert.Equal(t, 16000, cfg.Capture.SampleRate)
	assert.True(t, cfg.Capture.InterimResults)
}

func TestGetConfigDir(t *testing.T) {
	dir, err := GetConfigDir()
	assert.NoError(t, err)
	assert.Contains(t, dir, ".voiceassist")
}
