package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/danielgtaylor/huma/v2/humacli"

	"github.com/milady-ai/streamnode/cmd"
	"github.com/milady-ai/streamnode/internal/api"
	"github.com/milady-ai/streamnode/internal/browser"
	"github.com/milady-ai/streamnode/internal/config"
	"github.com/milady-ai/streamnode/internal/destination"
	"github.com/milady-ai/streamnode/internal/display"
	"github.com/milady-ai/streamnode/internal/encoder"
	"github.com/milady-ai/streamnode/internal/events"
	"github.com/milady-ai/streamnode/internal/logging"
	"github.com/milady-ai/streamnode/internal/metrics"
	"github.com/milady-ai/streamnode/internal/pipeline"
	"github.com/milady-ai/streamnode/internal/settings"
	"github.com/milady-ai/streamnode/internal/voice"
)

// Options for the CLI - flat structure with toml mapping.
type Options struct {
	Config string `help:"Path to configuration file" short:"c" default:"config.toml"`

	// Server settings
	Port string `help:"Port to listen on" short:"p" default:":8090" toml:"server.port" env:"SERVER_PORT"`

	// Storage settings
	DataDir string `help:"Data directory for persisted settings and frames" default:"./data" toml:"storage.data_dir" env:"DATA_DIR"`

	// Logging settings
	LoggingLevel    string `help:"Global logging level (debug, info, warn, error)" default:"info" toml:"logging.level" env:"LOGGING_LEVEL"`
	LoggingFormat   string `help:"Logging format (text, json)" default:"text" toml:"logging.format" env:"LOGGING_FORMAT"`
	LoggingPipeline string `help:"Pipeline logging level" default:"info" toml:"logging.pipeline" env:"LOGGING_PIPELINE"`
	LoggingEncoder  string `help:"Encoder logging level" default:"info" toml:"logging.encoder" env:"LOGGING_ENCODER"`
	LoggingAPI      string `help:"API logging level" default:"info" toml:"logging.api" env:"LOGGING_API"`
	LoggingVoice    string `help:"Voice logging level" default:"info" toml:"logging.voice" env:"LOGGING_VOICE"`
	LoggingProcess  string `help:"Process supervision logging level" default:"info" toml:"logging.process" env:"LOGGING_PROCESS"`
}

func main() {
	cli := humacli.New(func(hooks humacli.Hooks, opts *Options) {
		if loadErr := config.LoadConfig(opts, nil); loadErr != nil {
			slog.Warn("Failed to load config", "error", loadErr)
		}

		// The [logging] table may carry levels for modules without dedicated
		// flags (browser, settings, ...); the flagged modules then override
		// with their CLI > env > TOML precedence already resolved above.
		logCfg := config.LoadLoggingConfig(opts.Config)
		logCfg.Level = opts.LoggingLevel
		logCfg.Format = opts.LoggingFormat
		logCfg.Modules["pipeline"] = opts.LoggingPipeline
		logCfg.Modules["ffmpeg"] = opts.LoggingEncoder
		logCfg.Modules["api"] = opts.LoggingAPI
		logCfg.Modules["voice"] = opts.LoggingVoice
		logCfg.Modules["process"] = opts.LoggingProcess
		logging.Initialize(logCfg)
		logger := logging.GetLogger("main")

		if dir := os.Getenv("STREAMNODE_DATA_DIR"); dir != "" {
			opts.DataDir = dir
		}

		bus := events.New()
		metrics.Wire(bus)

		store, err := settings.NewStore(opts.DataDir)
		if err != nil {
			logger.Error("Failed to initialize settings store", "error", err)
			os.Exit(1)
		}

		// Refresh the settings cache when the file changes on disk, so
		// edits made outside the API take effect without a restart.
		settingsWatcher := config.NewConfigWatcher(
			store.SettingsPath(),
			func(path string) (*settings.VisualSettings, error) {
				data, readErr := os.ReadFile(path)
				if readErr != nil {
					return nil, readErr
				}
				var parsed settings.VisualSettings
				if unmarshalErr := json.Unmarshal(data, &parsed); unmarshalErr != nil {
					return nil, unmarshalErr
				}
				return &parsed, nil
			},
			logging.GetLogger("settings"),
			config.WithDebounce[*settings.VisualSettings](500*time.Millisecond),
		)
		settingsWatcher.OnReload(func(*settings.VisualSettings) {
			store.Reload()
			bus.Publish(events.SettingsChangedEvent{Timestamp: time.Now().UTC().Format(time.RFC3339)})
		})

		registry := destination.NewRegistry()
		registry.Register(destination.NewCustomRTMP())

		ffmpeg := encoder.NewFFmpeg()
		orchestrator := pipeline.New(
			ffmpeg,
			registry,
			display.NewSupervisor(),
			browser.NewChromium(),
			bus,
			opts.DataDir,
		)

		gate := voice.NewGate(voice.NopSpeaker{}, store, bus, orchestrator.Running)

		server := api.NewServer(&api.Options{
			Orchestrator:      orchestrator,
			Encoder:           ffmpeg,
			Registry:          registry,
			Store:             store,
			Gate:              gate,
			Bus:               bus,
			PrometheusHandler: metrics.GetHandler(),
		})

		hooks.OnStart(func() {
			if watchErr := settingsWatcher.Start(); watchErr != nil {
				logger.Warn("Settings watcher not started", "error", watchErr)
			}

			logger.Info("Starting HTTP server", "port", opts.Port)
			if startErr := server.Start(opts.Port); startErr != nil && !errors.Is(startErr, http.ErrServerClosed) {
				logger.Error("Failed to start HTTP server", "error", startErr)
				os.Exit(1)
			}
		})

		hooks.OnStop(func() {
			logger.Info("Shutting down server")
			if stopErr := server.Stop(); stopErr != nil {
				logger.Error("Error stopping HTTP server", "error", stopErr)
			}

			ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			if offErr := orchestrator.GoOffline(ctx); offErr != nil {
				logger.Error("Error stopping pipeline", "error", offErr)
			}

			if watchErr := settingsWatcher.Stop(); watchErr != nil {
				logger.Warn("Error stopping settings watcher", "error", watchErr)
			}
		})
	})

	cli.Root().AddCommand(cmd.CreateDetectCmd())

	cli.Run()
}
