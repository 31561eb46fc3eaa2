package intent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// Intent tags returned by the classification service.
const (
	IntentNavigation = "NAVIGATION"
	IntentLogData    = "LOG_DATA"
	IntentAdvice     = "ADVICE"
	IntentUnknown    = "UNKNOWN"
)

// ClientConfig configures the intent classification client.
type ClientConfig struct {
	ServerURL string        // e.g. "http://localhost:8080"
	Timeout   time.Duration // bound on one classification round trip
}

// DefaultClientConfig returns sensible defaults.
func DefaultClientConfig() *ClientConfig {
	return &ClientConfig{
		ServerURL: "http://localhost:8080",
		Timeout:   5 * time.Second,
	}
}

// ClassifyRequest is the wire request for one utterance.
type ClassifyRequest struct {
	Utterance      string         `json:"utterance"`
	SessionContext map[string]any `json:"sessionContext"`
}

// Classification is the wire response.
type Classification struct {
	Intent         string `json:"intent"`
	ActionValue    string `json:"action_value"`
	SpeechResponse string `json:"speech_response"`
}

// Client talks to the remote intent classification service.
type Client struct {
	config     *ClientConfig
	httpClient *http.Client
	logger     zerolog.Logger
}

// NewClient creates an intent classification client.
func NewClient(cfg *ClientConfig, logger zerolog.Logger) *Client {
	if cfg == nil {
		cfg = DefaultClientConfig()
	}
	return &Client{
		config: cfg,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		logger: logger.With().Str("component", "intent-client").Logger(),
	}
}

// Classify sends one utterance for classification. Any transport,
// status, or decode failure is returned as an error; the caller falls
// back to the local table.
func (c *Client) Classify(ctx context.Context, utterance string, sessionContext map[string]any) (*Classification, error) {
	body, err := json.Marshal(ClassifyRequest{
		Utterance:      utterance,
		SessionContext: sessionContext,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	url := c.config.ServerURL + "/v1/intent"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("classification request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("classification request failed: %d - %s", resp.StatusCode, string(payload))
	}

	var result Classification
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode classification: %w", err)
	}
	if result.Intent == "" {
		return nil, fmt.Errorf("classification missing intent tag")
	}

	c.logger.Debug().
		Str("intent", result.Intent).
		Dur("latency", time.Since(start)).
		Msg("Utterance classified")

	return &result, nil
}
