package gpio

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"periph.io/x/conn/v3/gpio"
)

// fakePin replays a list of levels, one per edge.
type fakePin struct {
	mu     sync.Mutex
	level  gpio.Level
	levels []gpio.Level
	pull   gpio.Pull
	halted bool
}

func (p *fakePin) In(pull gpio.Pull, _ gpio.Edge) error {
	p.pull = pull
	return nil
}

func (p *fakePin) WaitForEdge(timeout time.Duration) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.levels) == 0 {
		time.Sleep(time.Millisecond)
		return false
	}

	p.level = p.levels[0]
	p.levels = p.levels[1:]
	return true
}

func (p *fakePin) Read() gpio.Level {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.level
}

func (p *fakePin) Halt() error {
	p.halted = true
	return nil
}

func (p *fakePin) drained() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.levels) == 0
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestWatcher(t *testing.T) {
	t.Run("delivers one callback per level change", func(t *testing.T) {
		pin := &fakePin{
			level:  gpio.High,
			levels: []gpio.Level{gpio.Low, gpio.Low, gpio.High, gpio.High, gpio.Low},
		}

		var mu sync.Mutex
		var events []string

		w, err := New(&Config{
			Lines: []Line{{
				Name:       "handset",
				Pin:        "GPIO23",
				ActiveLow:  true,
				OnActive:   func() { mu.Lock(); events = append(events, "active"); mu.Unlock() },
				OnInactive: func() { mu.Lock(); events = append(events, "inactive"); mu.Unlock() },
			}},
			Lookup: func(string) (Pin, error) { return pin, nil },
			Poll:   time.Millisecond,
			Logger: discardLogger(),
		})
		if err != nil {
			t.Fatalf("error creating watcher: %v", err)
		}

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() { done <- w.Run(ctx) }()

		deadline := time.Now().Add(time.Second)
		for !pin.drained() && time.Now().Before(deadline) {
			time.Sleep(time.Millisecond)
		}
		time.Sleep(5 * time.Millisecond)

		cancel()
		if err := <-done; !errors.Is(err, context.Canceled) {
			t.Errorf("expected canceled, got %v", err)
		}

		mu.Lock()
		defer mu.Unlock()

		expected := []string{"active", "inactive", "active"}
		if len(events) != len(expected) {
			t.Fatalf("expected %v, got %v", expected, events)
		}
		for i := range expected {
			if events[i] != expected[i] {
				t.Errorf("expected %v, got %v", expected, events)
			}
		}

		if pin.pull != gpio.PullUp || !pin.halted {
			t.Errorf("expected pull-up and halt, got %v halted=%v", pin.pull, pin.halted)
		}
	})

	t.Run("initially active line fires once at start", func(t *testing.T) {
		pin := &fakePin{level: gpio.High}
		fired := make(chan struct{}, 4)

		w, err := New(&Config{
			Lines:  []Line{{Name: "dial", Pin: "GPIO12", OnActive: func() { fired <- struct{}{} }}},
			Lookup: func(string) (Pin, error) { return pin, nil },
			Poll:   time.Millisecond,
			Logger: discardLogger(),
		})
		if err != nil {
			t.Fatalf("error creating watcher: %v", err)
		}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go w.Run(ctx)

		select {
		case <-fired:
		case <-time.After(time.Second):
			t.Fatalf("expected the initial active callback")
		}
	})

	t.Run("unknown pin fails", func(t *testing.T) {
		w, err := New(&Config{
			Lines:  []Line{{Name: "pulse", Pin: "GPIO99"}},
			Lookup: func(name string) (Pin, error) { return nil, errors.New("no pin") },
			Logger: discardLogger(),
		})
		if err != nil {
			t.Fatalf("error creating watcher: %v", err)
		}

		if err := w.Run(context.Background()); err == nil {
			t.Errorf("expected error")
		}
	})

	t.Run("empty pin name is rejected", func(t *testing.T) {
		if _, err := New(&Config{Lines: []Line{{Name: "x"}}, Logger: discardLogger()}); err == nil {
			t.Errorf("expected error")
		}
	})
}
