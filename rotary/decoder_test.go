package rotary

import (
	"testing"

	"rotary-phone-lamps/command"
)

type fakeExecutor struct {
	got []command.Action
}

func (f *fakeExecutor) Submit(source string, a command.Action) bool {
	if source != command.SourceDial {
		panic("unexpected source " + source)
	}
	f.got = append(f.got, a)
	return true
}

func newDecoder(t *testing.T) (*Decoder, *fakeExecutor) {
	t.Helper()

	exec := &fakeExecutor{}
	d, err := New(&Config{Executor: exec})
	if err != nil {
		t.Fatalf("error creating decoder: %v", err)
	}
	return d, exec
}

func dial(d *Decoder, pulses int) {
	d.Engage()
	for i := 0; i < pulses; i++ {
		d.Pulse()
	}
	d.Release()
}

func TestNew(t *testing.T) {
	if _, err := New(nil); err == nil {
		t.Errorf("expected error for nil config")
	}

	if _, err := New(&Config{}); err == nil {
		t.Errorf("expected error for nil executor")
	}
}

func TestDecoder(t *testing.T) {
	t.Run("no pulses does nothing", func(t *testing.T) {
		d, exec := newDecoder(t)
		dial(d, 0)

		if len(exec.got) != 0 {
			t.Errorf("expected no action, got %v", exec.got)
		}
	})

	t.Run("one pulse turns everything off", func(t *testing.T) {
		d, exec := newDecoder(t)
		dial(d, 1)

		if len(exec.got) != 1 || exec.got[0].Kind != command.AllOff {
			t.Errorf("expected all off, got %v", exec.got)
		}
	})

	t.Run("n pulses toggle lamp n-2", func(t *testing.T) {
		for pulses := 2; pulses <= 10; pulses++ {
			d, exec := newDecoder(t)
			dial(d, pulses)

			if len(exec.got) != 1 || exec.got[0] != (command.Action{Kind: command.Toggle, Lamp: pulses - 2}) {
				t.Errorf("%d pulses: expected toggle(%d), got %v", pulses, pulses-2, exec.got)
			}
		}
	})

	t.Run("pulses while idle are ignored", func(t *testing.T) {
		d, exec := newDecoder(t)

		d.Pulse()
		d.Pulse()
		dial(d, 3)

		if len(exec.got) != 1 || exec.got[0].Lamp != 1 {
			t.Errorf("expected toggle(1), got %v", exec.got)
		}
	})

	t.Run("counter resets between gestures", func(t *testing.T) {
		d, exec := newDecoder(t)

		dial(d, 4)
		dial(d, 1)
		dial(d, 2)

		expected := []command.Action{
			{Kind: command.Toggle, Lamp: 2},
			{Kind: command.AllOff, Lamp: -1},
			{Kind: command.Toggle, Lamp: 0},
		}

		if len(exec.got) != len(expected) {
			t.Fatalf("expected %v, got %v", expected, exec.got)
		}
		for i := range expected {
			if exec.got[i] != expected[i] {
				t.Errorf("expected %v, got %v", expected[i], exec.got[i])
			}
		}
	})

	t.Run("release without engage does nothing", func(t *testing.T) {
		d, exec := newDecoder(t)

		d.Release()

		if len(exec.got) != 0 {
			t.Errorf("expected no action, got %v", exec.got)
		}
	})
}
