package intent

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_Classify(t *testing.T) {
	var gotReq ClassifyRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/intent", r.URL.Path)
		require.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))

		json.NewEncoder(w).Encode(Classification{
			Intent:         IntentAdvice,
			SpeechResponse: "Let's talk about that.",
		})
	}))
	defer server.Close()

	c := NewClient(&ClientConfig{ServerURL: server.URL, Timeout: time.Second}, zerolog.Nop())
	result, err := c.Classify(context.Background(), "I feel dizzy", map[string]any{"sessionId": "abc"})

	require.NoError(t, err)
	assert.Equal(t, IntentAdvice, result.Intent)
	assert.Equal(t, "Let's talk about that.", result.SpeechResponse)
	assert.Equal(t, "I feel dizzy", gotReq.Utterance)
	assert.Equal(t, "abc", gotReq.SessionContext["sessionId"])
}

func TestClient_NonJSONResponseIsError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>gateway error</html>"))
	}))
	defer server.Close()

	c := NewClient(&ClientConfig{ServerURL: server.URL, Timeout: time.Second}, zerolog.Nop())
	_, err := c.Classify(context.Background(), "hello", nil)

	require.Error(t, err)
}

func TestClient_MissingIntentTagIsError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"speech_response": "orphan reply"})
	}))
	defer server.Close()

	c := NewClient(&ClientConfig{ServerURL: server.URL, Timeout: time.Second}, zerolog.Nop())
	_, err := c.Classify(context.Background(), "hello", nil)

	require.Error(t, err)
}

func TestClient_ErrorStatusIsError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	c := NewClient(&ClientConfig{ServerURL: server.URL, Timeout: time.Second}, zerolog.Nop())
	_, err := c.Classify(context.Background(), "hello", nil)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}

func TestClient_TimeoutIsError(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer server.Close()
	defer close(release)

	c := NewClient(&ClientConfig{ServerURL: server.URL, Timeout: 50 * time.Millisecond}, zerolog.Nop())
	start := time.Now()
	_, err := c.Classify(context.Background(), "hello", nil)

	require.Error(t, err)
	assert.Less(t, time.Since(start), 2*time.Second, "timeout must bound the round trip")
}
