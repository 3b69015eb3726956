package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"rotary-phone-lamps/command"
	"rotary-phone-lamps/config"
	"rotary-phone-lamps/gpio"
	"rotary-phone-lamps/handset"
	"rotary-phone-lamps/lamp"
	"rotary-phone-lamps/rotary"
)

const shutdownTimeout = 5 * time.Second

// Runner is a long-lived component of the application.
type Runner interface {
	Run(ctx context.Context) error
}

// App runs every component of the phone in its own goroutine. The first one
// to fail cancels the rest.
type App struct {
	loop        Interface
	worker      Runner
	queue       *command.Queue
	watcher     Runner
	metrics     http.Handler
	metricsAddr string
	resetLamps  bool
	logger      *slog.Logger
}

type AppConfig struct {
	Session Interface
	// Worker is the recognition worker feeding Session.
	Worker Runner
	Queue  *command.Queue
	// Watcher delivers hardware edges; nil when GPIO is disabled.
	Watcher Runner
	// MetricsHandler is served on MetricsAddr when both are set.
	MetricsHandler http.Handler
	MetricsAddr    string
	// ResetLamps switches every lamp off before the first session.
	ResetLamps bool
	Logger     *slog.Logger
}

func NewApp(cfg *AppConfig) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}

	if cfg.Session == nil {
		return nil, fmt.Errorf("session is nil")
	}

	if cfg.Worker == nil {
		return nil, fmt.Errorf("worker is nil")
	}

	if cfg.Queue == nil {
		return nil, fmt.Errorf("queue is nil")
	}

	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is nil")
	}

	return &App{
		loop:        cfg.Session,
		worker:      cfg.Worker,
		queue:       cfg.Queue,
		watcher:     cfg.Watcher,
		metrics:     cfg.MetricsHandler,
		metricsAddr: cfg.MetricsAddr,
		resetLamps:  cfg.ResetLamps,
		logger:      cfg.Logger,
	}, nil
}

func (a *App) Run(ctx context.Context) error {
	if a.resetLamps {
		a.queue.Submit(command.SourceStartup, command.Action{Kind: command.AllOff, Lamp: lamp.All})
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error { return a.queue.Run(ctx) })
	g.Go(func() error { return a.worker.Run(ctx) })
	g.Go(func() error { return a.loop.Run(ctx) })

	if a.watcher != nil {
		g.Go(func() error { return a.watcher.Run(ctx) })
	}

	if a.metrics != nil && a.metricsAddr != "" {
		srv := &http.Server{Addr: a.metricsAddr, Handler: a.metricsMux()}

		g.Go(func() error {
			a.logger.Info("serving metrics", "addr", a.metricsAddr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics: serve: %w", err)
			}
			return nil
		})

		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	return g.Wait()
}

func (a *App) metricsMux() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", a.metrics)
	return mux
}

// Lines binds the configured GPIO inputs to the handset monitor and the
// rotary decoder.
func Lines(cfg config.GPIOConfig, h handset.Interface, dial *rotary.Decoder) []gpio.Line {
	return []gpio.Line{
		{
			Name:       "handset",
			Pin:        cfg.Handset.Pin,
			ActiveLow:  cfg.Handset.ActiveLow,
			OnActive:   h.Lift,
			OnInactive: h.PutDown,
		},
		{
			Name:       "dial_engaged",
			Pin:        cfg.DialEngaged.Pin,
			ActiveLow:  cfg.DialEngaged.ActiveLow,
			OnActive:   dial.Engage,
			OnInactive: dial.Release,
		},
		{
			Name:      "dial_pulse",
			Pin:       cfg.DialPulse.Pin,
			ActiveLow: cfg.DialPulse.ActiveLow,
			OnActive:  dial.Pulse,
		},
	}
}
