// hearth - voice assistant daemon: wake detection, recording, cloud
// turn processing, playback, and a web control panel.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mkarlsen/hearth/internal/config"
	"github.com/mkarlsen/hearth/internal/log"
	"github.com/mkarlsen/hearth/pkg/assistant"
	"github.com/mkarlsen/hearth/pkg/audioio"
	"github.com/mkarlsen/hearth/pkg/llm"
	"github.com/mkarlsen/hearth/pkg/netwatch"
	"github.com/mkarlsen/hearth/pkg/stt"
	"github.com/mkarlsen/hearth/pkg/tts"
	"github.com/mkarlsen/hearth/pkg/web"
)

func main() {
	var (
		logLevel    = flag.String("log-level", "info", "Log level: debug, info, warn, error")
		backend     = flag.String("audio", "mock", "Audio backend: mock, file")
		device      = flag.String("device", "", "Audio device or file path for the file backend")
		webPort     = flag.String("web-port", config.WebPort(), "Control panel port")
		wakeEnabled = flag.Bool("wake", true, "Enable wake detection")
		sensitivity = flag.Float64("sensitivity", config.Float("HEARTH_SENSITIVITY", 0.5), "Wake sensitivity in [0,1]")
	)
	flag.Parse()

	log.Init(*logLevel)
	logger := log.L()

	googleKey := config.GoogleAPIKey()
	if googleKey == "" {
		logger.Error("GOOGLE_API_KEY is required")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	sourceCfg := audioio.DefaultConfig()
	sourceCfg.Backend = audioio.Backend(*backend)
	sourceCfg.Device = *device
	source, err := audioio.NewSource(sourceCfg, logger)
	if err != nil {
		logger.Error("audio source init failed", "error", err)
		os.Exit(1)
	}
	defer source.Close()

	sink := audioio.NewMockSink(sourceCfg, logger)
	defer sink.Close()

	recognizer, err := stt.NewGoogle(ctx, googleKey,
		stt.WithLanguage(config.LanguageCode()),
		stt.WithLogger(logger),
	)
	if err != nil {
		logger.Error("speech recognizer init failed", "error", err)
		os.Exit(1)
	}
	defer recognizer.Close()

	brain, err := llm.NewGemini(ctx, googleKey, llm.WithLogger(logger))
	if err != nil {
		logger.Error("language model init failed", "error", err)
		os.Exit(1)
	}
	defer brain.Close()

	speaker, err := buildSpeaker(googleKey, logger)
	if err != nil {
		logger.Error("speech synthesis init failed", "error", err)
		os.Exit(1)
	}
	defer speaker.Close()

	cfg := assistant.DefaultConfig()
	cfg.WakeEnabled = *wakeEnabled
	cfg.Wake.Sensitivity = *sensitivity
	cfg.Wake.EnergyThreshold = config.Float("HEARTH_ENERGY_THRESHOLD", cfg.Wake.EnergyThreshold)
	cfg.Record.VoiceThreshold = config.Float("HEARTH_VOICE_THRESHOLD", cfg.Record.VoiceThreshold)
	cfg.Record.SilenceTimeout = config.Duration("HEARTH_SILENCE_TIMEOUT", cfg.Record.SilenceTimeout)

	var watcher *netwatch.Watcher
	online := func() bool { return true }

	a, err := assistant.NewAssistant(cfg, source, sink, recognizer, brain, speaker, func() bool { return online() }, logger)
	if err != nil {
		logger.Error("assistant init failed", "error", err)
		os.Exit(1)
	}

	watchCfg := netwatch.DefaultConfig()
	watchCfg.ProbeURL = config.DefaultProbeURL
	watcher, err = netwatch.NewWatcher(watchCfg, a.ReportConnectivity, logger)
	if err != nil {
		logger.Error("connectivity watcher init failed", "error", err)
		os.Exit(1)
	}
	online = watcher.IsOnline
	if err := watcher.Start(ctx); err != nil {
		logger.Error("connectivity watcher start failed", "error", err)
		os.Exit(1)
	}
	defer watcher.Stop()

	panel := web.NewServer(*webPort, a, logger)
	go func() {
		if err := panel.Start(); err != nil {
			logger.Error("control panel stopped", "error", err)
		}
	}()
	defer panel.Shutdown()

	logger.Info("hearth starting",
		"audio", *backend,
		"wake_enabled", *wakeEnabled,
		"web_port", *webPort,
	)

	if err := a.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("assistant exited", "error", err)
		os.Exit(1)
	}

	// Give the panel a moment to flush its last broadcast.
	time.Sleep(100 * time.Millisecond)
	logger.Info("hearth stopped")
}

// buildSpeaker stacks the synthesis providers: Google first, then
// ElevenLabs streaming when its credentials are present.
func buildSpeaker(googleKey string, logger *slog.Logger) (tts.Provider, error) {
	google, err := tts.NewGoogle(googleKey, tts.WithLanguage(config.LanguageCode()))
	if err != nil {
		return nil, err
	}

	elevenKey := config.ElevenLabsKey()
	elevenVoice := config.ElevenLabsVoice()
	if elevenKey == "" || elevenVoice == "" {
		return google, nil
	}

	eleven, err := tts.NewElevenLabs(elevenKey, elevenVoice)
	if err != nil {
		logger.Warn("elevenlabs fallback unavailable", "error", err)
		return google, nil
	}

	return tts.NewChain(google, eleven)
}
