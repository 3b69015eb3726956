package config

import (
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/spf13/afero"

	"rotary-phone-lamps/command"
	"rotary-phone-lamps/lamp"
)

const exampleYAML = `
log_level: debug
audio:
  sample_rate: 48000
  frames_per_buffer: 2048
  warmup_chunks: 3
vad:
  threshold: 750
  lookback_chunks: 5
  max_silent_chunks: 6
recognizer:
  engine: vosk
  model_path: vosk-model-small-en-us-0.3
lamps:
  update: confirmed
  reset_on_start: false
  timeout: 5s
  names: [green, Turtle]
commands:
  - {phrase: turn on green, action: turn_on, lamp: green}
  - {phrase: turn off turtle, action: turn_off, lamp: turtle}
  - {phrase: let there be light, action: all_on}
  - {phrase: toggle everything, action: toggle, lamp: all}
  - {phrase: engage party mode, action: custom, custom: party}
`

func TestLoad(t *testing.T) {
	t.Run("reads a file from the filesystem", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		if err := afero.WriteFile(fs, "config.yaml", []byte(exampleYAML), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}

		cfg, err := Load(fs, "config.yaml")
		if err != nil {
			t.Fatalf("expected nil, got %v", err)
		}

		if cfg.LogLevel != LogDebug || cfg.Audio.WarmupChunks != 3 || cfg.VAD.Threshold != 750 {
			t.Errorf("unexpected values %+v", cfg)
		}

		if cfg.Lamps.Update != lamp.Confirmed || Enabled(cfg.Lamps.ResetOnStart) {
			t.Errorf("unexpected lamps config %+v", cfg.Lamps)
		}

		if time.Duration(cfg.Lamps.Timeout) != 5*time.Second {
			t.Errorf("expected 5s, got %v", time.Duration(cfg.Lamps.Timeout))
		}
	})

	t.Run("missing file", func(t *testing.T) {
		if _, err := Load(afero.NewMemMapFs(), "nope.yaml"); !errors.Is(err, os.ErrNotExist) {
			t.Errorf("expected not-exist error, got %v", err)
		}
	})
}

func TestLoadFromReader_Defaults(t *testing.T) {
	cfg, err := LoadFromReader(strings.NewReader("recognizer: {model_path: model}\n"))
	if err != nil {
		t.Fatalf("expected nil, got %v", err)
	}

	if cfg.LogLevel != LogInfo {
		t.Errorf("expected %q, got %q", LogInfo, cfg.LogLevel)
	}

	if cfg.Audio.SampleRate != 48000 || cfg.Audio.FramesPerBuffer != 2048 || cfg.Audio.WarmupChunks != 2 {
		t.Errorf("unexpected audio defaults %+v", cfg.Audio)
	}

	if cfg.Recognizer.Engine != EngineVosk || !Enabled(cfg.Recognizer.RestrictGrammar) {
		t.Errorf("unexpected recognizer defaults %+v", cfg.Recognizer)
	}

	if cfg.Lamps.RFPin != 15 || cfg.Lamps.EmitterID != 1337 || !Enabled(cfg.Lamps.ResetOnStart) {
		t.Errorf("unexpected lamp defaults %+v", cfg.Lamps)
	}

	if cfg.VAD.LookbackChunks != 4 || cfg.VAD.MaxSilentChunks != 8 {
		t.Errorf("unexpected vad defaults %+v", cfg.VAD)
	}

	if !Enabled(cfg.GPIO.Enabled) {
		t.Errorf("expected gpio to be enabled by default")
	}

	if cfg.GPIO.Handset.Pin != "GPIO23" || cfg.GPIO.DialPulse.Pin != "GPIO25" || cfg.GPIO.DialEngaged.Pin != "GPIO12" {
		t.Errorf("unexpected gpio defaults %+v", cfg.GPIO)
	}
}

func TestLoadFromReader_ExplicitValues(t *testing.T) {
	t.Run("zero counts are kept", func(t *testing.T) {
		cfg, err := LoadFromReader(strings.NewReader(`
recognizer: {model_path: model}
audio: {warmup_chunks: 0}
vad: {lookback_chunks: 0, max_silent_chunks: 0}
`))
		if err != nil {
			t.Fatalf("expected nil, got %v", err)
		}

		if cfg.Audio.WarmupChunks != 0 || cfg.VAD.LookbackChunks != 0 || cfg.VAD.MaxSilentChunks != 0 {
			t.Errorf("expected zero counts, got warmup %d, lookback %d, max silent %d",
				cfg.Audio.WarmupChunks, cfg.VAD.LookbackChunks, cfg.VAD.MaxSilentChunks)
		}

		if cfg.Audio.SampleRate != 48000 || cfg.VAD.Threshold != 600 {
			t.Errorf("expected untouched fields to keep defaults, got %+v %+v", cfg.Audio, cfg.VAD)
		}
	})

	t.Run("gpio can be disabled", func(t *testing.T) {
		cfg, err := LoadFromReader(strings.NewReader("recognizer: {model_path: model}\ngpio: {enabled: false}\n"))
		if err != nil {
			t.Fatalf("expected nil, got %v", err)
		}

		if Enabled(cfg.GPIO.Enabled) {
			t.Errorf("expected gpio to be disabled")
		}

		if cfg.GPIO.DialPulse.Pin != "GPIO25" {
			t.Errorf("expected default dial pulse pin, got %q", cfg.GPIO.DialPulse.Pin)
		}
	})
}

func TestLoadFromReader_Invalid(t *testing.T) {
	cases := []struct {
		name string
		yaml string
		want string
	}{
		{"unknown field", "recognizer: {model_path: m}\nlamps: {colour: red}\n", "colour"},
		{"missing model", "log_level: info\n", "recognizer.model_path"},
		{"bad engine", "recognizer: {engine: sphinx, model_path: m}\n", "recognizer.engine"},
		{"bad meter", "recognizer: {model_path: m}\nvad: {meter: zcr}\n", "vad.meter"},
		{"negative lookback", "recognizer: {model_path: m}\nvad: {lookback_chunks: -1}\n", "vad.lookback_chunks"},
		{"bad policy", "recognizer: {model_path: m}\nlamps: {update: later}\n", "lamps.update"},
		{"duplicate lamp", "recognizer: {model_path: m}\nlamps: {names: [green, Green]}\n", "duplicate"},
		{"reserved lamp", "recognizer: {model_path: m}\nlamps: {names: [all]}\n", "reserved"},
		{"unknown lamp", "recognizer: {model_path: m}\ncommands: [{phrase: a, action: turn_on, lamp: blue}]\n", "unknown lamp"},
		{"unknown action", "recognizer: {model_path: m}\ncommands: [{phrase: a, action: dim}]\n", "commands[0].action"},
		{"empty phrase", "recognizer: {model_path: m}\ncommands: [{phrase: ' ', action: all_on}]\n", "commands[0].phrase"},
		{"unknown custom", "recognizer: {model_path: m}\ncommands: [{phrase: a, action: custom, custom: disco}]\n", "disco"},
		{"bad duration", "recognizer: {model_path: m}\nlamps: {timeout: soon}\n", "duration"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := LoadFromReader(strings.NewReader(tc.yaml))
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Errorf("expected error containing %q, got %v", tc.want, err)
			}
		})
	}

	t.Run("all problems are reported together", func(t *testing.T) {
		_, err := LoadFromReader(strings.NewReader("log_level: loud\nvad: {threshold: -1}\n"))
		if err == nil {
			t.Fatalf("expected error")
		}

		for _, want := range []string{"log_level", "vad.threshold", "recognizer.model_path"} {
			if !strings.Contains(err.Error(), want) {
				t.Errorf("expected %q in %v", want, err)
			}
		}
	})
}

func TestConfig_Grammar(t *testing.T) {
	cfg, err := LoadFromReader(strings.NewReader(exampleYAML))
	if err != nil {
		t.Fatalf("expected nil, got %v", err)
	}

	rules, err := cfg.Grammar()
	if err != nil {
		t.Fatalf("expected nil, got %v", err)
	}

	expected := []command.Rule{
		{Phrase: "turn on green", Action: command.Action{Kind: command.TurnOn, Lamp: 0}},
		{Phrase: "turn off turtle", Action: command.Action{Kind: command.TurnOff, Lamp: 1}},
		{Phrase: "let there be light", Action: command.Action{Kind: command.AllOn, Lamp: lamp.All}},
		{Phrase: "toggle everything", Action: command.Action{Kind: command.Toggle, Lamp: lamp.All}},
		{Phrase: "engage party mode", Action: command.Action{Kind: command.Custom, Lamp: lamp.All, Custom: "party"}},
	}

	if len(rules) != len(expected) {
		t.Fatalf("expected %d rules, got %d", len(expected), len(rules))
	}

	for i := range expected {
		if rules[i] != expected[i] {
			t.Errorf("rule %d: expected %+v, got %+v", i, expected[i], rules[i])
		}
	}
}
