package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/carepulse/voiceassist/internal/assistant"
	"github.com/carepulse/voiceassist/internal/bus"
	"github.com/carepulse/voiceassist/internal/capture"
	"github.com/carepulse/voiceassist/internal/config"
	"github.com/carepulse/voiceassist/internal/intent"
	"github.com/carepulse/voiceassist/internal/logging"
	"github.com/carepulse/voiceassist/internal/synth"
)

type flags struct {
	handsFree bool
	offline   bool
	level     string
}

func parseFlags() *flags {
	f := &flags{}
	flag.BoolVar(&f.handsFree, "handsfree", false, "Enter hands-free mode on startup")
	flag.BoolVar(&f.offline, "offline", false, "Skip the remote classifier; local keyword table only")
	flag.StringVar(&f.level, "level", "", "Log level override (debug, info, warn, error)")
	flag.Parse()
	return f
}

func main() {
	f := parseFlags()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	logCfg := &logging.Config{
		LogDir:  cfg.Logging.Dir,
		Level:   logging.LogLevel(cfg.Logging.Level),
		Console: cfg.Logging.Console,
	}
	if logCfg.LogDir == "" {
		logCfg = logging.DefaultConfig()
		logCfg.Level = logging.LogLevel(cfg.Logging.Level)
		logCfg.Console = cfg.Logging.Console
	}
	if f.level != "" {
		logCfg.Level = logging.LogLevel(f.level)
	}

	logger, err := logging.New(logCfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logging: %v\n", err)
		os.Exit(1)
	}
	defer logger.Close()

	log := logger.Component("main")
	log.Info().Msg("Hands-free voice assistant session starting")

	eventBus := bus.NewEventBus()
	subscribeOutcomes(eventBus, logger)

	engine := capture.NewWSEngine(&capture.WSEngineConfig{
		URL:            cfg.Capture.EngineURL,
		APIKey:         cfg.Capture.APIKey,
		Model:          cfg.Capture.Model,
		Language:       cfg.Assistant.Language,
		SampleRate:     cfg.Capture.SampleRate,
		Encoding:       cfg.Capture.Encoding,
		Channels:       cfg.Capture.Channels,
		InterimResults: cfg.Capture.InterimResults,
		DialTimeout:    cfg.Capture.DialTimeout,
	}, logger.Zerolog())

	var classifier intent.Classifier
	if !f.offline && cfg.Classifier.ServerURL != "" {
		classifier = intent.NewClient(&intent.ClientConfig{
			ServerURL: cfg.Classifier.ServerURL,
			Timeout:   cfg.Classifier.Timeout,
		}, logger.Zerolog())

		monitor := intent.NewHealthMonitor(cfg.Classifier.ServerURL, nil, logger.Zerolog())
		monitor.SetOnChange(func(h intent.Health) {
			if h.Online {
				log.Info().Dur("latency", h.Latency).Msg("Classifier reachable")
				return
			}
			log.Warn().Msg("Classifier unreachable; hands-free falls back to the local table")
		})
		monitor.Start()
		defer monitor.Stop()
	} else {
		log.Info().Msg("Running without a classifier; hands-free uses the local table only")
	}
	resolver := intent.NewResolver(classifier, logger.Zerolog())

	machine, err := assistant.New(engine, synth.NewLocalEngine(logger.Zerolog()), resolver, eventBus, &assistant.Config{
		QuietWindow:     cfg.Assistant.QuietWindow,
		RetryBackoff:    cfg.Assistant.RetryBackoff,
		NotificationTTL: cfg.Assistant.NotificationTTL,
		Language:        cfg.Assistant.Language,
	}, logger.Zerolog())
	if err != nil {
		log.Error().Err(err).Msg("Voice features unavailable on this platform")
		os.Exit(1)
	}

	watcher, err := config.Watch(func(next *config.Config) {
		// Engine and classifier endpoints are bound at startup; only
		// note the change so the operator knows a restart applies it.
		log.Info().Msg("Config changed on disk; capture and classifier settings apply on next start")
	}, logger.Zerolog())
	if err != nil {
		log.Warn().Err(err).Msg("Config hot-reload unavailable")
	} else {
		defer watcher.Close()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Info().Msg("Shutdown signal received")
		cancel()
	}()

	go readCommands(machine, cancel, logger)

	if f.handsFree {
		machine.EnterHandsFree()
	}

	fmt.Println("Commands: listen | handsfree | exit | quit")
	machine.Run(ctx)
	log.Info().Msg("Session ended")
}

// subscribeOutcomes surfaces bus events a host application would route
// to its screens.
func subscribeOutcomes(eventBus *bus.EventBus, logger *logging.Logger) {
	log := logger.Component("outcomes")

	eventBus.Subscribe(bus.EventTypeStateChanged, func(e bus.Event) {
		log.Info().Interface("transition", e.Data).Msg("State")
	})
	eventBus.Subscribe(bus.EventTypeNavigate, func(e bus.Event) {
		log.Info().Interface("target", e.Data["target"]).Msg("Navigate")
	})
	eventBus.Subscribe(bus.EventTypeLogData, func(e bus.Event) {
		log.Info().Interface("payload", e.Data["payload"]).Msg("Log data")
	})
	eventBus.Subscribe(bus.EventTypeNotificationShow, func(e bus.Event) {
		fmt.Printf("\n[notice] %v\n", e.Data["message"])
	})
	eventBus.Subscribe(bus.EventTypeTranscriptDelta, func(e bus.Event) {
		log.Debug().Interface("text", e.Data["text"]).Msg("Transcript")
	})
}

// readCommands drives the session from stdin, standing in for the host
// application's microphone button and hands-free overlay.
func readCommands(machine *assistant.Machine, cancel context.CancelFunc, logger *logging.Logger) {
	log := logger.Component("main")
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		switch strings.TrimSpace(strings.ToLower(scanner.Text())) {
		case "listen", "l":
			machine.ToggleListen()
		case "handsfree", "h":
			machine.EnterHandsFree()
		case "exit", "e":
			machine.ExitHandsFree()
		case "quit", "q":
			cancel()
			return
		case "":
		default:
			fmt.Println("Commands: listen | handsfree | exit | quit")
		}
	}
	if err := scanner.Err(); err != nil {
		log.Warn().Err(err).Msg("Stdin closed")
	}
}
