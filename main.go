package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/afero"

	"rotary-phone-lamps/capture"
	"rotary-phone-lamps/command"
	"rotary-phone-lamps/config"
	"rotary-phone-lamps/gpio"
	"rotary-phone-lamps/handset"
	"rotary-phone-lamps/lamp"
	"rotary-phone-lamps/metrics"
	"rotary-phone-lamps/recognition"
	"rotary-phone-lamps/recording"
	"rotary-phone-lamps/rotary"
	"rotary-phone-lamps/session"
	"rotary-phone-lamps/speech_to_text"
	"rotary-phone-lamps/voice_activity_detection"
)

var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	modelFlag := flag.String("m", "", "recognizer model path, overrides recognizer.model_path")
	flag.Parse()

	fileSys := afero.NewOsFs()

	cfg, err := config.Load(fileSys, *configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "rotary-phone-lamps: %v\n", err)
		return 1
	}

	if *modelFlag != "" {
		cfg.Recognizer.ModelPath = *modelFlag
	}

	logger := newLogger(cfg.LogLevel)
	slog.SetDefault(logger)

	logger.Info("starting",
		"version", version,
		"config", *configPath,
		"engine", cfg.Recognizer.Engine,
		"lamps", len(cfg.Lamps.Names),
		"commands", len(cfg.Commands),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := serve(ctx, fileSys, cfg, logger); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("fatal", "err", err)
		return 1
	}

	logger.Info("goodbye")
	return 0
}

func serve(ctx context.Context, fileSys afero.Fs, cfg *config.Config, logger *slog.Logger) error {
	met, metricsHandler, shutdownMetrics, err := buildMetrics(cfg)
	if err != nil {
		return fmt.Errorf("metrics: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownMetrics(shutdownCtx); err != nil {
			logger.Warn("error shutting down metrics", "err", err)
		}
	}()

	grammar, err := cfg.Grammar()
	if err != nil {
		return err
	}

	// Lamps and the action queue that owns them.
	lamps, err := lamp.New(&lamp.Config{
		Count:     len(cfg.Lamps.Names),
		Receivers: cfg.Lamps.Receivers,
		Transmitter: &lamp.RFTransmitter{
			Path:      cfg.Lamps.Transmitter,
			Pin:       cfg.Lamps.RFPin,
			EmitterID: cfg.Lamps.EmitterID,
			Logger:    logger,
		},
		Policy:  cfg.Lamps.Update,
		Timeout: time.Duration(cfg.Lamps.Timeout),
		Logger:  logger,
		Metrics: met,
	})
	if err != nil {
		return fmt.Errorf("lamp.New: %w", err)
	}

	queue, err := command.NewQueue(&command.QueueConfig{
		Lamps:   lamps,
		Customs: command.BuiltinCustoms(),
		Logger:  logger,
		Metrics: met,
	})
	if err != nil {
		return fmt.Errorf("command.NewQueue: %w", err)
	}

	dispatcher, err := command.New(&command.Config{
		Grammar:  grammar,
		Executor: queue,
		Logger:   logger,
	})
	if err != nil {
		return fmt.Errorf("command.New: %w", err)
	}

	// Audio capture.
	opener, closeAudio, err := buildOpener(fileSys, cfg, logger)
	if err != nil {
		return err
	}
	defer closeAudio()

	capt, err := capture.New(&capture.Config{
		Opener:       opener,
		WarmupChunks: cfg.Audio.WarmupChunks,
		QueueSize:    cfg.Audio.QueueSize,
		Logger:       logger,
		Metrics:      met,
	})
	if err != nil {
		return fmt.Errorf("capture.New: %w", err)
	}

	// Recognition.
	engine, err := buildEngine(cfg, dispatcher.Phrases())
	if err != nil {
		return err
	}
	defer engine.Close()

	var recorder recording.Interface
	if cfg.Recording.Path != "" {
		recorder, err = recording.New(&recording.Config{
			FileSys:    fileSys,
			Path:       cfg.Recording.Path,
			SampleRate: cfg.Audio.SampleRate,
		})
		if err != nil {
			return fmt.Errorf("recording.New: %w", err)
		}
	}

	worker, err := recognition.New(&recognition.Config{
		Engine:          engine,
		Frames:          capt.Frames(),
		Meter:           voice_activity_detection.NewMeter(cfg.VAD.Meter),
		Threshold:       cfg.VAD.Threshold,
		LookbackChunks:  cfg.VAD.LookbackChunks,
		MaxSilentChunks: cfg.VAD.MaxSilentChunks,
		Recorder:        recorder,
		Logger:          logger,
		Metrics:         met,
	})
	if err != nil {
		return fmt.Errorf("recognition.New: %w", err)
	}

	// Handset and dial.
	phone, err := handset.New(&handset.Config{Logger: logger})
	if err != nil {
		return fmt.Errorf("handset.New: %w", err)
	}

	dial, err := rotary.New(&rotary.Config{Executor: queue})
	if err != nil {
		return fmt.Errorf("rotary.New: %w", err)
	}

	var watcher session.Runner
	if config.Enabled(cfg.GPIO.Enabled) {
		if err := gpio.InitHost(); err != nil {
			return err
		}

		watcher, err = gpio.New(&gpio.Config{
			Lines:  session.Lines(cfg.GPIO, phone, dial),
			Logger: logger,
		})
		if err != nil {
			return fmt.Errorf("gpio.New: %w", err)
		}
	} else {
		logger.Warn("gpio disabled, handset and dial will not respond")
	}

	loop, err := session.New(&session.Config{
		Handset:    phone,
		Capture:    capt,
		Results:    worker.Results(),
		Dispatcher: dispatcher,
		Logger:     logger,
		Metrics:    met,
	})
	if err != nil {
		return fmt.Errorf("session.New: %w", err)
	}

	app, err := session.NewApp(&session.AppConfig{
		Session:        loop,
		Worker:         worker,
		Queue:          queue,
		Watcher:        watcher,
		MetricsHandler: metricsHandler,
		MetricsAddr:    cfg.Metrics.ListenAddr,
		ResetLamps:     config.Enabled(cfg.Lamps.ResetOnStart),
		Logger:         logger,
	})
	if err != nil {
		return fmt.Errorf("session.NewApp: %w", err)
	}

	return app.Run(ctx)
}

func buildMetrics(cfg *config.Config) (*metrics.Metrics, http.Handler, func(context.Context) error, error) {
	if cfg.Metrics.ListenAddr == "" {
		return metrics.Noop(), nil, func(context.Context) error { return nil }, nil
	}

	mp, handler, shutdown, err := metrics.InitProvider(version)
	if err != nil {
		return nil, nil, nil, err
	}

	met, err := metrics.New(mp)
	if err != nil {
		_ = shutdown(context.Background())
		return nil, nil, nil, err
	}

	return met, handler, shutdown, nil
}

// buildOpener returns the microphone, or the replay file when one is
// configured, and a function releasing it.
func buildOpener(fileSys afero.Fs, cfg *config.Config, logger *slog.Logger) (capture.Opener, func(), error) {
	if cfg.Audio.ReplayFile != "" {
		replay, err := capture.NewReplay(&capture.ReplayConfig{
			FileSys:         fileSys,
			Path:            cfg.Audio.ReplayFile,
			SampleRate:      cfg.Audio.SampleRate,
			FramesPerBuffer: cfg.Audio.FramesPerBuffer,
			Logger:          logger,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("capture.NewReplay: %w", err)
		}

		logger.Info("replaying audio file instead of the microphone", "path", cfg.Audio.ReplayFile)
		return replay, func() {}, nil
	}

	terminate, err := capture.InitPortAudio(logger)
	if err != nil {
		return nil, nil, err
	}

	return &capture.PortAudio{
		SampleRate:      float64(cfg.Audio.SampleRate),
		FramesPerBuffer: cfg.Audio.FramesPerBuffer,
		Device:          cfg.Audio.Device,
	}, terminate, nil
}

func buildEngine(cfg *config.Config, phrases []string) (speech_to_text.Engine, error) {
	switch cfg.Recognizer.Engine {
	case config.EngineWhisper:
		engine, err := speech_to_text.NewWhisper(&speech_to_text.WhisperConfig{
			ModelPath:  cfg.Recognizer.ModelPath,
			Language:   cfg.Recognizer.Language,
			SampleRate: cfg.Audio.SampleRate,
		})
		if err != nil {
			return nil, fmt.Errorf("speech_to_text.NewWhisper: %w", err)
		}
		return engine, nil

	default:
		voskCfg := &speech_to_text.VoskConfig{
			ModelPath:  cfg.Recognizer.ModelPath,
			SampleRate: float64(cfg.Audio.SampleRate),
		}
		if config.Enabled(cfg.Recognizer.RestrictGrammar) {
			voskCfg.Phrases = phrases
		}

		engine, err := speech_to_text.NewVosk(voskCfg)
		if err != nil {
			return nil, fmt.Errorf("speech_to_text.NewVosk: %w", err)
		}
		return engine, nil
	}
}

func newLogger(level config.LogLevel) *slog.Logger {
	var lvl slog.Level
	switch level {
	case config.LogDebug:
		lvl = slog.LevelDebug
	case config.LogWarn:
		lvl = slog.LevelWarn
	case config.LogError:
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
