package capture

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// WSEngineConfig configures the websocket streaming recognizer.
type WSEngineConfig struct {
	URL            string        `json:"url"`
	APIKey         string        `json:"api_key"`
	Model          string        `json:"model"`
	Language       string        `json:"language"`
	SampleRate     int           `json:"sample_rate"`
	Encoding       string        `json:"encoding"`
	Channels       int           `json:"channels"`
	InterimResults bool          `json:"interim_results"`
	DialTimeout    time.Duration `json:"dial_timeout"`
}

// DefaultWSEngineConfig returns sensible defaults for a streaming
// recognizer endpoint.
func DefaultWSEngineConfig() *WSEngineConfig {
	return &WSEngineConfig{
		Model:          "nova-2",
		Language:       "en-US",
		SampleRate:     16000,
		Encoding:       "linear16",
		Channels:       1,
		InterimResults: true,
		DialTimeout:    10 * time.Second,
	}
}

// WSEngine is a recognition Engine backed by a websocket streaming
// speech-to-text service. One Start/Stop cycle maps to one websocket
// connection; results arrive as JSON messages on a read loop.
type WSEngine struct {
	config *WSEngineConfig
	logger zerolog.Logger

	mu       sync.Mutex
	handlers Handlers
	conn     *websocket.Conn
	closed   chan struct{}
}

// NewWSEngine creates a websocket streaming recognizer.
func NewWSEngine(config *WSEngineConfig, logger zerolog.Logger) *WSEngine {
	if config == nil {
		config = DefaultWSEngineConfig()
	}
	return &WSEngine{
		config: config,
		logger: logger.With().Str("engine", "ws-recognizer").Logger(),
	}
}

// SetHandlers registers event callbacks.
func (e *WSEngine) SetHandlers(h Handlers) {
	e.mu.Lock()
	e.handlers = h
	e.mu.Unlock()
}

type wsResultMessage struct {
	Type    string `json:"type"`
	IsFinal bool   `json:"is_final,omitempty"`
	Error   string `json:"error,omitempty"`
	Channel struct {
		Alternatives []struct {
			Transcript string `json:"transcript"`
		} `json:"alternatives,omitempty"`
	} `json:"channel,omitempty"`
}

// Start dials the streaming endpoint and begins the read loop.
func (e *WSEngine) Start() error {
	e.mu.Lock()
	if e.conn != nil {
		e.mu.Unlock()
		return nil
	}
	e.mu.Unlock()

	if e.config.URL == "" {
		return fmt.Errorf("streaming recognizer URL not configured")
	}

	url := fmt.Sprintf("%s?model=%s&language=%s&encoding=%s&sample_rate=%d&channels=%d&interim_results=%t",
		e.config.URL,
		e.config.Model,
		e.config.Language,
		e.config.Encoding,
		e.config.SampleRate,
		e.config.Channels,
		e.config.InterimResults,
	)

	header := http.Header{}
	if e.config.APIKey != "" {
		header.Set("Authorization", "Token "+e.config.APIKey)
	}

	dialer := websocket.Dialer{HandshakeTimeout: e.config.DialTimeout}
	conn, resp, err := dialer.Dial(url, header)
	if err != nil {
		code := CodeNetwork
		if resp != nil && (resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden) {
			code = CodeServiceNotAllowed
		}
		e.logger.Error().Err(err).Msg("Streaming recognizer dial failed")
		e.emitError(code)
		return fmt.Errorf("websocket dial: %w", err)
	}

	e.mu.Lock()
	if e.conn != nil {
		// Lost the race to a concurrent Start; keep the first run.
		e.mu.Unlock()
		_ = conn.Close()
		return nil
	}
	e.conn = conn
	e.closed = make(chan struct{})
	closed := e.closed
	e.mu.Unlock()
	go e.readLoop(conn, closed)

	e.logger.Info().Str("language", e.config.Language).Msg("Connected to streaming recognizer")
	e.emit(func(h Handlers) {
		if h.OnStart != nil {
			h.OnStart()
		}
	})
	return nil
}

// Stop asks the service to flush and close the stream. Buffered
// results may still arrive before the read loop ends.
func (e *WSEngine) Stop() {
	e.mu.Lock()
	conn := e.conn
	e.mu.Unlock()
	if conn == nil {
		return
	}
	msg, _ := json.Marshal(map[string]string{"type": "CloseStream"})
	if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
		e.logger.Debug().Err(err).Msg("Close message failed, dropping connection")
		e.teardown()
	}
}

// Abort drops the connection immediately.
func (e *WSEngine) Abort() {
	e.teardown()
}

// WriteAudio forwards a chunk of captured audio to the service.
func (e *WSEngine) WriteAudio(chunk []byte) error {
	e.mu.Lock()
	conn := e.conn
	e.mu.Unlock()
	if conn == nil {
		return fmt.Errorf("recognizer not started")
	}
	return conn.WriteMessage(websocket.BinaryMessage, chunk)
}

func (e *WSEngine) readLoop(conn *websocket.Conn, closed chan struct{}) {
	defer e.finish(conn)

	sawSpeech := false
	for {
		select {
		case <-closed:
			return
		default:
		}

		_, data, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-closed:
				// Caller-initiated abort; not an error upward.
				return
			default:
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				if !sawSpeech {
					e.emitError(CodeNoSpeech)
				}
				return
			}
			e.logger.Warn().Err(err).Msg("Streaming recognizer read failed")
			e.emitError(CodeNetwork)
			return
		}

		var msg wsResultMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			e.logger.Debug().Err(err).Msg("Skipping malformed recognizer message")
			continue
		}

		switch msg.Type {
		case "Results":
			chunks := make([]string, 0, len(msg.Channel.Alternatives))
			for _, alt := range msg.Channel.Alternatives {
				if alt.Transcript != "" {
					chunks = append(chunks, alt.Transcript)
				}
			}
			if len(chunks) == 0 {
				continue
			}
			sawSpeech = true
			isFinal := msg.IsFinal
			e.emit(func(h Handlers) {
				if h.OnResult != nil {
					h.OnResult(chunks, isFinal)
				}
			})
		case "Error":
			e.logger.Warn().Str("detail", msg.Error).Msg("Streaming recognizer error message")
			e.emitError(CodeNetwork)
			return
		}
	}
}

// finish closes the connection (if still ours) and emits OnEnd exactly
// once per engine run.
func (e *WSEngine) finish(conn *websocket.Conn) {
	e.mu.Lock()
	if e.conn == conn {
		e.conn = nil
	}
	e.mu.Unlock()
	_ = conn.Close()

	e.emit(func(h Handlers) {
		if h.OnEnd != nil {
			h.OnEnd()
		}
	})
}

func (e *WSEngine) teardown() {
	e.mu.Lock()
	conn := e.conn
	e.conn = nil
	if e.closed != nil {
		close(e.closed)
		e.closed = nil
	}
	e.mu.Unlock()

	if conn != nil {
		_ = conn.Close()
	}
}

func (e *WSEngine) emit(fn func(Handlers)) {
	e.mu.Lock()
	h := e.handlers
	e.mu.Unlock()
	fn(h)
}

func (e *WSEngine) emitError(code ErrorCode) {
	e.emit(func(h Handlers) {
		if h.OnError != nil {
			h.OnError(code)
		}
	})
}
