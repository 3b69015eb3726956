// Package gpio turns input pin levels into logical edge callbacks.
package gpio

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"
)

// Pin is the part of a periph input pin the watcher uses.
type Pin interface {
	In(pull gpio.Pull, edge gpio.Edge) error
	WaitForEdge(timeout time.Duration) bool
	Read() gpio.Level
	Halt() error
}

// Line is one watched input. OnActive and OnInactive run on the watcher's
// goroutine for the line and must not block.
type Line struct {
	Name       string
	Pin        string
	ActiveLow  bool
	OnActive   func()
	OnInactive func()
}

type Watcher struct {
	lines  []Line
	lookup func(name string) (Pin, error)
	poll   time.Duration
	logger *slog.Logger
}

type Config struct {
	Lines []Line
	// Lookup resolves pin names; nil uses the host's GPIO registry.
	Lookup func(name string) (Pin, error)
	// Poll bounds each edge wait so cancellation is noticed.
	Poll   time.Duration
	Logger *slog.Logger
}

func New(cfg *Config) (*Watcher, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}

	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is nil")
	}

	for i, l := range cfg.Lines {
		if l.Pin == "" {
			return nil, fmt.Errorf("lines[%d]: pin is empty", i)
		}
	}

	lookup := cfg.Lookup
	if lookup == nil {
		lookup = hostLookup
	}

	poll := cfg.Poll
	if poll <= 0 {
		poll = 100 * time.Millisecond
	}

	return &Watcher{
		lines:  cfg.Lines,
		lookup: lookup,
		poll:   poll,
		logger: cfg.Logger,
	}, nil
}

// InitHost loads the periph host drivers.
func InitHost() error {
	if _, err := host.Init(); err != nil {
		return fmt.Errorf("gpio: init host: %w", err)
	}
	return nil
}

func hostLookup(name string) (Pin, error) {
	p := gpioreg.ByName(name)
	if p == nil {
		return nil, fmt.Errorf("gpio: no pin named %q", name)
	}
	return p, nil
}

// Run watches every line until ctx ends.
func (w *Watcher) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	for _, l := range w.lines {
		pin, err := w.lookup(l.Pin)
		if err != nil {
			return err
		}

		pull := gpio.PullDown
		if l.ActiveLow {
			pull = gpio.PullUp
		}

		if err := pin.In(pull, gpio.BothEdges); err != nil {
			return fmt.Errorf("gpio: configure %s (%s): %w", l.Name, l.Pin, err)
		}

		g.Go(func() error {
			defer pin.Halt()
			return w.watch(ctx, l, pin)
		})
	}

	return g.Wait()
}

func (w *Watcher) watch(ctx context.Context, l Line, pin Pin) error {
	active := w.isActive(l, pin.Read())
	w.logger.Info("watching gpio line", "line", l.Name, "pin", l.Pin, "active", active)

	if active {
		fire(l.OnActive)
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		if !pin.WaitForEdge(w.poll) {
			continue
		}

		now := w.isActive(l, pin.Read())
		if now == active {
			continue
		}
		active = now

		if active {
			fire(l.OnActive)
		} else {
			fire(l.OnInactive)
		}
	}
}

func (w *Watcher) isActive(l Line, level gpio.Level) bool {
	if l.ActiveLow {
		return level == gpio.Low
	}
	return level == gpio.High
}

func fire(fn func()) {
	if fn != nil {
		fn()
	}
}
