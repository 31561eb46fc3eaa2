package synth

import (
	"fmt"
	"os/exec"
	"runtime"
	"strconv"
	"sync"

	"github.com/rs/zerolog"
)

// LocalEngine synthesizes speech through the system speech command:
// 'say' on macOS, 'espeak' elsewhere. It is the zero-configuration
// engine used when no remote synthesizer is configured.
type LocalEngine struct {
	logger zerolog.Logger

	mu  sync.Mutex
	cmd *exec.Cmd
}

// NewLocalEngine creates a system-command synthesizer.
func NewLocalEngine(logger zerolog.Logger) *LocalEngine {
	return &LocalEngine{
		logger: logger.With().Str("engine", "local-tts").Logger(),
	}
}

// Available reports whether a system speech command exists.
func (e *LocalEngine) Available() bool {
	_, err := exec.LookPath(e.binary())
	return err == nil
}

func (e *LocalEngine) binary() string {
	if runtime.GOOS == "darwin" {
		return "say"
	}
	return "espeak"
}

// Speak starts the speech command and reports completion from a
// waiter goroutine. A Cancel between Start and Wait surfaces as
// done(true).
func (e *LocalEngine) Speak(req Request, done func(cancelled bool)) error {
	bin := e.binary()
	var args []string
	if bin == "say" {
		// macOS rate is words per minute; 175 is the neutral rate.
		args = []string{"-r", strconv.Itoa(int(175 * req.Rate)), req.Text}
	} else {
		args = []string{"-s", strconv.Itoa(int(160 * req.Rate)), req.Text}
	}

	cmd := exec.Command(bin, args...)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start %s: %w", bin, err)
	}

	e.mu.Lock()
	e.cmd = cmd
	e.mu.Unlock()

	e.logger.Debug().Int("textLen", len(req.Text)).Msg("Speaking")

	go func() {
		err := cmd.Wait()

		e.mu.Lock()
		cancelled := e.cmd != cmd
		if !cancelled {
			e.cmd = nil
		}
		e.mu.Unlock()

		if err != nil && !cancelled {
			e.logger.Warn().Err(err).Msg("Speech command exited with error")
		}
		if done != nil {
			done(cancelled)
		}
	}()
	return nil
}

// Cancel kills any in-flight speech command. Idempotent.
func (e *LocalEngine) Cancel() {
	e.mu.Lock()
	cmd := e.cmd
	e.cmd = nil
	e.mu.Unlock()

	if cmd != nil && cmd.Process != nil {
		_ = cmd.Process.Kill()
	}
}
