package rotary

import (
	"fmt"
	"sync"

	"rotary-phone-lamps/command"
	"rotary-phone-lamps/lamp"
)

// Decoder counts dial pulses between engage and release and turns the count
// into a lamp action: one pulse is all off, n >= 2 pulses toggles lamp n-2.
// Its methods are edge handlers and never block.
type Decoder struct {
	executor command.Executor

	mu       sync.Mutex
	counting bool
	pulses   int
}

type Config struct {
	Executor command.Executor
}

func New(cfg *Config) (*Decoder, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}

	if cfg.Executor == nil {
		return nil, fmt.Errorf("executor is nil")
	}

	return &Decoder{executor: cfg.Executor}, nil
}

func (d *Decoder) Engage() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.counting = true
	d.pulses = 0
}

func (d *Decoder) Pulse() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.counting {
		d.pulses++
	}
}

// Release ends the gesture and submits its action, if any.
func (d *Decoder) Release() {
	d.mu.Lock()
	if !d.counting {
		d.mu.Unlock()
		return
	}

	pulses := d.pulses
	d.counting = false
	d.pulses = 0
	d.mu.Unlock()

	if action, ok := Decode(pulses); ok {
		d.executor.Submit(command.SourceDial, action)
	}
}

// Decode maps a pulse count to its action.
func Decode(pulses int) (command.Action, bool) {
	switch {
	case pulses <= 0:
		return command.Action{}, false
	case pulses == 1:
		return command.Action{Kind: command.AllOff, Lamp: lamp.All}, true
	default:
		return command.Action{Kind: command.Toggle, Lamp: pulses - 2}, true
	}
}
