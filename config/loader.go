package config

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"rotary-phone-lamps/command"
	"rotary-phone-lamps/lamp"
	"rotary-phone-lamps/voice_activity_detection"
)

// AllLamps is the lamp name that addresses every lamp.
const AllLamps = "all"

const (
	EngineVosk    = "vosk"
	EngineWhisper = "whisper"
)

// Load reads and validates the YAML configuration at path.
func Load(fileSys afero.Fs, path string) (*Config, error) {
	f, err := fileSys.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes YAML from r, fills in defaults and validates.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}

	ApplyDefaults(cfg)

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns a configuration holding every default. Counts for which
// zero is meaningful are only defaulted here, so an explicit zero in a file
// decoded over it survives.
func Default() *Config {
	cfg := &Config{
		Audio: AudioConfig{WarmupChunks: 2},
		VAD: VADConfig{
			LookbackChunks:  4,
			MaxSilentChunks: 8,
		},
	}
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults fills in unset fields whose zero value is never valid.
func ApplyDefaults(cfg *Config) {
	if cfg.LogLevel == "" {
		cfg.LogLevel = LogInfo
	}

	if cfg.Audio.SampleRate == 0 {
		cfg.Audio.SampleRate = 48000
	}
	if cfg.Audio.FramesPerBuffer == 0 {
		cfg.Audio.FramesPerBuffer = 2048
	}
	if cfg.Audio.QueueSize == 0 {
		cfg.Audio.QueueSize = 256
	}

	if cfg.VAD.Meter == "" {
		cfg.VAD.Meter = voice_activity_detection.MeterRMS
	}
	if cfg.VAD.Threshold == 0 {
		cfg.VAD.Threshold = 600
	}

	if cfg.Recognizer.Engine == "" {
		cfg.Recognizer.Engine = EngineVosk
	}

	if cfg.Lamps.Transmitter == "" {
		cfg.Lamps.Transmitter = "/home/pi/piHomeEasy/piHomeEasy"
	}
	if cfg.Lamps.RFPin == 0 {
		cfg.Lamps.RFPin = 15
	}
	if cfg.Lamps.EmitterID == 0 {
		cfg.Lamps.EmitterID = 1337
	}
	if cfg.Lamps.Update == "" {
		cfg.Lamps.Update = lamp.Optimistic
	}

	if cfg.GPIO.Handset.Pin == "" {
		cfg.GPIO.Handset = LineConfig{Pin: "GPIO23", ActiveLow: true}
	}
	if cfg.GPIO.DialPulse.Pin == "" {
		cfg.GPIO.DialPulse = LineConfig{Pin: "GPIO25", ActiveLow: true}
	}
	if cfg.GPIO.DialEngaged.Pin == "" {
		cfg.GPIO.DialEngaged = LineConfig{Pin: "GPIO12", ActiveLow: true}
	}
}

// Validate returns every problem found in cfg, joined.
func Validate(cfg *Config) error {
	var errs []error

	if !cfg.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("log_level %q is invalid; valid values: debug, info, warn, error", cfg.LogLevel))
	}

	// Audio
	if cfg.Audio.SampleRate <= 0 {
		errs = append(errs, fmt.Errorf("audio.sample_rate must be positive"))
	}
	if cfg.Audio.FramesPerBuffer <= 0 {
		errs = append(errs, fmt.Errorf("audio.frames_per_buffer must be positive"))
	}
	if cfg.Audio.WarmupChunks < 0 {
		errs = append(errs, fmt.Errorf("audio.warmup_chunks must not be negative"))
	}
	if cfg.Audio.QueueSize < 0 {
		errs = append(errs, fmt.Errorf("audio.queue_size must not be negative"))
	}

	// VAD
	if voice_activity_detection.NewMeter(cfg.VAD.Meter) == nil {
		errs = append(errs, fmt.Errorf("vad.meter %q is invalid; valid values: rms, flux", cfg.VAD.Meter))
	}
	if cfg.VAD.Threshold <= 0 {
		errs = append(errs, fmt.Errorf("vad.threshold must be positive"))
	}
	if cfg.VAD.LookbackChunks < 0 {
		errs = append(errs, fmt.Errorf("vad.lookback_chunks must not be negative"))
	}
	if cfg.VAD.MaxSilentChunks < 0 {
		errs = append(errs, fmt.Errorf("vad.max_silent_chunks must not be negative"))
	}

	// Recognizer
	switch cfg.Recognizer.Engine {
	case EngineVosk, EngineWhisper:
	default:
		errs = append(errs, fmt.Errorf("recognizer.engine %q is invalid; valid values: vosk, whisper", cfg.Recognizer.Engine))
	}
	if cfg.Recognizer.ModelPath == "" {
		errs = append(errs, fmt.Errorf("recognizer.model_path is required"))
	}

	// Lamps
	if !cfg.Lamps.Update.IsValid() {
		errs = append(errs, fmt.Errorf("lamps.update %q is invalid; valid values: optimistic, confirmed", cfg.Lamps.Update))
	}
	names := make(map[string]int, len(cfg.Lamps.Names))
	for i, name := range cfg.Lamps.Names {
		key := strings.ToLower(name)
		switch {
		case key == "":
			errs = append(errs, fmt.Errorf("lamps.names[%d] is empty", i))
		case key == AllLamps:
			errs = append(errs, fmt.Errorf("lamps.names[%d] %q is reserved", i, name))
		default:
			if prev, ok := names[key]; ok {
				errs = append(errs, fmt.Errorf("lamps.names[%d] %q is a duplicate of lamps.names[%d]", i, name, prev))
			}
			names[key] = i
		}
	}
	if len(cfg.Lamps.Receivers) > len(cfg.Lamps.Names) {
		errs = append(errs, fmt.Errorf("lamps.receivers has more entries than lamps.names"))
	}

	// Commands
	customs := command.BuiltinCustoms()
	for i, c := range cfg.Commands {
		prefix := fmt.Sprintf("commands[%d]", i)
		if strings.TrimSpace(c.Phrase) == "" {
			errs = append(errs, fmt.Errorf("%s.phrase is required", prefix))
		}
		if !c.Action.IsValid() {
			errs = append(errs, fmt.Errorf("%s.action %q is invalid", prefix, c.Action))
			continue
		}
		if c.Action.NeedsLamp() {
			if _, err := lampIndex(names, c.Lamp); err != nil {
				errs = append(errs, fmt.Errorf("%s.lamp: %w", prefix, err))
			}
		}
		if c.Action == command.Custom {
			if _, ok := customs[c.Custom]; !ok {
				errs = append(errs, fmt.Errorf("%s.custom %q is not a known custom action", prefix, c.Custom))
			}
		}
	}

	return errors.Join(errs...)
}

// Grammar converts the configured commands, in order, to dispatcher rules.
func (cfg *Config) Grammar() ([]command.Rule, error) {
	names := make(map[string]int, len(cfg.Lamps.Names))
	for i, name := range cfg.Lamps.Names {
		names[strings.ToLower(name)] = i
	}

	rules := make([]command.Rule, 0, len(cfg.Commands))
	for i, c := range cfg.Commands {
		action := command.Action{Kind: c.Action, Lamp: lamp.All, Custom: c.Custom}

		if c.Action.NeedsLamp() {
			idx, err := lampIndex(names, c.Lamp)
			if err != nil {
				return nil, fmt.Errorf("commands[%d].lamp: %w", i, err)
			}
			action.Lamp = idx
		}

		rules = append(rules, command.Rule{Phrase: c.Phrase, Action: action})
	}

	return rules, nil
}

func lampIndex(names map[string]int, name string) (int, error) {
	key := strings.ToLower(name)
	if key == AllLamps {
		return lamp.All, nil
	}

	idx, ok := names[key]
	if !ok {
		return 0, fmt.Errorf("unknown lamp %q", name)
	}
	return idx, nil
}
