package command

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"
)

type submitted struct {
	source string
	action Action
}

type fakeExecutor struct {
	got []submitted
}

func (f *fakeExecutor) Submit(source string, a Action) bool {
	f.got = append(f.got, submitted{source, a})
	return true
}

type fakeLamps struct {
	calls chan string
	on    []bool
}

func newFakeLamps(n int) *fakeLamps {
	return &fakeLamps{calls: make(chan string, 64), on: make([]bool, n)}
}

func (f *fakeLamps) record(s string)  { f.calls <- s }
func (f *fakeLamps) TurnOn(idx int)   { f.record("on " + string(rune('0'+idx))) }
func (f *fakeLamps) TurnOff(idx int)  { f.record("off " + string(rune('0'+idx))) }
func (f *fakeLamps) Toggle(idx int)   { f.record("toggle " + string(rune('0'+idx))) }
func (f *fakeLamps) AllOn()           { f.record("all on") }
func (f *fakeLamps) AllOff()          { f.record("all off") }
func (f *fakeLamps) RandomOn()        { f.record("random on") }
func (f *fakeLamps) RandomOff()       { f.record("random off") }
func (f *fakeLamps) States() []bool   { return f.on }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var grammar = []Rule{
	{Phrase: "turn on green", Action: Action{Kind: TurnOn, Lamp: 0}},
	{Phrase: "turn off green", Action: Action{Kind: TurnOff, Lamp: 0}},
	{Phrase: "turn on turtle", Action: Action{Kind: TurnOn, Lamp: 1}},
	{Phrase: "Good Night", Action: Action{Kind: AllOff}},
	{Phrase: "green", Action: Action{Kind: Toggle, Lamp: 0}},
	{Phrase: "engage party mode", Action: Action{Kind: Custom, Custom: "party"}},
}

func newDispatcher(t *testing.T, exec Executor) Interface {
	t.Helper()

	d, err := New(&Config{Grammar: grammar, Executor: exec, Logger: discardLogger()})
	if err != nil {
		t.Fatalf("error creating dispatcher: %v", err)
	}
	return d
}

func TestNew(t *testing.T) {
	if _, err := New(nil); err == nil {
		t.Errorf("expected error for nil config")
	}

	if _, err := New(&Config{Grammar: []Rule{{Phrase: " !! ", Action: Action{Kind: AllOn}}}, Executor: &fakeExecutor{}, Logger: discardLogger()}); err == nil {
		t.Errorf("expected error for an empty phrase")
	}

	if _, err := New(&Config{Grammar: []Rule{{Phrase: "lights", Action: Action{Kind: "dim"}}}, Executor: &fakeExecutor{}, Logger: discardLogger()}); err == nil {
		t.Errorf("expected error for an unknown kind")
	}
}

func TestDispatcher_Dispatch(t *testing.T) {
	t.Run("a single phrase triggers its action once", func(t *testing.T) {
		exec := &fakeExecutor{}
		d := newDispatcher(t, exec)

		if !d.Dispatch("please turn on turtle now") {
			t.Fatalf("expected a match")
		}

		if len(exec.got) != 1 || exec.got[0].action != (Action{Kind: TurnOn, Lamp: 1}) || exec.got[0].source != SourceVoice {
			t.Errorf("unexpected submissions %v", exec.got)
		}
	})

	t.Run("no phrase triggers nothing", func(t *testing.T) {
		exec := &fakeExecutor{}
		d := newDispatcher(t, exec)

		if d.Dispatch("what a lovely day") || d.Dispatch("") {
			t.Errorf("expected no match")
		}

		if len(exec.got) != 0 {
			t.Errorf("expected no submissions, got %v", exec.got)
		}
	})

	t.Run("the earlier declared phrase wins", func(t *testing.T) {
		exec := &fakeExecutor{}
		d := newDispatcher(t, exec)

		d.Dispatch("good night and turn on green")

		if len(exec.got) != 1 || exec.got[0].action != (Action{Kind: TurnOn, Lamp: 0}) {
			t.Errorf("unexpected submissions %v", exec.got)
		}
	})

	t.Run("matching ignores case and punctuation", func(t *testing.T) {
		exec := &fakeExecutor{}
		d := newDispatcher(t, exec)

		rule, ok := d.Match("GOOD   night!")
		if !ok || rule.Action.Kind != AllOff {
			t.Errorf("expected all off, got %v %v", rule, ok)
		}
	})

	t.Run("a phrase contained in a longer word still matches", func(t *testing.T) {
		exec := &fakeExecutor{}
		d := newDispatcher(t, exec)

		rule, ok := d.Match("greenhouse")
		if !ok || rule.Action.Kind != Toggle {
			t.Errorf("expected toggle, got %v %v", rule, ok)
		}
	})
}

func TestDispatcher_Phrases(t *testing.T) {
	d := newDispatcher(t, &fakeExecutor{})

	phrases := d.Phrases()
	if len(phrases) != len(grammar) || phrases[3] != "good night" {
		t.Errorf("unexpected phrases %v", phrases)
	}
}

func TestApply(t *testing.T) {
	cases := []struct {
		action   Action
		expected []string
	}{
		{Action{Kind: TurnOn, Lamp: 1}, []string{"on 1"}},
		{Action{Kind: TurnOff, Lamp: 0}, []string{"off 0"}},
		{Action{Kind: Toggle, Lamp: 2}, []string{"toggle 2"}},
		{Action{Kind: AllOn}, []string{"all on"}},
		{Action{Kind: AllOff}, []string{"all off"}},
		{Action{Kind: RandomOn}, []string{"random on"}},
		{Action{Kind: RandomOff}, []string{"random off"}},
		{Action{Kind: Custom, Custom: "party"}, []string{"random on", "random on"}},
	}

	for _, tc := range cases {
		t.Run(tc.action.String(), func(t *testing.T) {
			lamps := newFakeLamps(2)

			if err := Apply(lamps, BuiltinCustoms(), tc.action); err != nil {
				t.Fatalf("expected nil, got %v", err)
			}

			close(lamps.calls)
			var got []string
			for c := range lamps.calls {
				got = append(got, c)
			}

			if len(got) != len(tc.expected) {
				t.Fatalf("expected %v, got %v", tc.expected, got)
			}
			for i := range got {
				if got[i] != tc.expected[i] {
					t.Errorf("expected %v, got %v", tc.expected, got)
				}
			}
		})
	}

	t.Run("unknown custom action", func(t *testing.T) {
		if err := Apply(newFakeLamps(1), nil, Action{Kind: Custom, Custom: "disco"}); err == nil {
			t.Errorf("expected error")
		}
	})
}

func TestQueue(t *testing.T) {
	t.Run("applies submitted actions in order", func(t *testing.T) {
		lamps := newFakeLamps(2)
		q, err := NewQueue(&QueueConfig{Lamps: lamps, Logger: discardLogger()})
		if err != nil {
			t.Fatalf("error creating queue: %v", err)
		}

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() { done <- q.Run(ctx) }()

		q.Submit(SourceDial, Action{Kind: AllOff})
		q.Submit(SourceVoice, Action{Kind: TurnOn, Lamp: 1})

		for _, expected := range []string{"all off", "on 1"} {
			select {
			case got := <-lamps.calls:
				if got != expected {
					t.Errorf("expected %q, got %q", expected, got)
				}
			case <-time.After(time.Second):
				t.Fatalf("action %q not applied", expected)
			}
		}

		cancel()
		if err := <-done; !errors.Is(err, context.Canceled) {
			t.Errorf("expected canceled, got %v", err)
		}
	})

	t.Run("full queue rejects without blocking", func(t *testing.T) {
		q, err := NewQueue(&QueueConfig{Lamps: newFakeLamps(1), Size: 1, Logger: discardLogger()})
		if err != nil {
			t.Fatalf("error creating queue: %v", err)
		}

		if !q.Submit(SourceDial, Action{Kind: AllOn}) {
			t.Errorf("expected first submit to be accepted")
		}

		if q.Submit(SourceDial, Action{Kind: AllOff}) {
			t.Errorf("expected second submit to be rejected")
		}
	})
}
