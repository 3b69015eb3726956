package config

import (
	"rotary-phone-lamps/command"
	"rotary-phone-lamps/lamp"
)

type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

type Config struct {
	LogLevel   LogLevel         `yaml:"log_level"`
	Audio      AudioConfig      `yaml:"audio"`
	VAD        VADConfig        `yaml:"vad"`
	Recognizer RecognizerConfig `yaml:"recognizer"`
	Recording  RecordingConfig  `yaml:"recording"`
	Lamps      LampsConfig      `yaml:"lamps"`
	GPIO       GPIOConfig       `yaml:"gpio"`
	Commands   []CommandConfig  `yaml:"commands"`
	Metrics    MetricsConfig    `yaml:"metrics"`
}

type AudioConfig struct {
	// SampleRate must be one the device accepts.
	SampleRate int `yaml:"sample_rate"`
	// FramesPerBuffer is the chunk size. Too small and the driver drops
	// frames.
	FramesPerBuffer int    `yaml:"frames_per_buffer"`
	WarmupChunks    int    `yaml:"warmup_chunks"`
	QueueSize       int    `yaml:"queue_size"`
	Device          string `yaml:"device"`
	ReplayFile      string `yaml:"replay_file"`
}

type VADConfig struct {
	Meter           string  `yaml:"meter"`
	Threshold       float64 `yaml:"threshold"`
	LookbackChunks  int     `yaml:"lookback_chunks"`
	MaxSilentChunks int     `yaml:"max_silent_chunks"`
}

type RecognizerConfig struct {
	Engine          string `yaml:"engine"`
	ModelPath       string `yaml:"model_path"`
	Language        string `yaml:"language"`
	RestrictGrammar *bool  `yaml:"restrict_grammar"`
}

type RecordingConfig struct {
	Path string `yaml:"path"`
}

type LampsConfig struct {
	Transmitter  string            `yaml:"transmitter"`
	RFPin        int               `yaml:"rf_pin"`
	EmitterID    int               `yaml:"emitter_id"`
	Update       lamp.UpdatePolicy `yaml:"update"`
	ResetOnStart *bool             `yaml:"reset_on_start"`
	Timeout      Duration          `yaml:"timeout"`
	Names        []string          `yaml:"names"`
	// Receivers optionally overrides the receiver id per lamp index.
	Receivers []int `yaml:"receivers"`
}

type LineConfig struct {
	Pin       string `yaml:"pin"`
	ActiveLow bool   `yaml:"active_low"`
}

type GPIOConfig struct {
	// Enabled defaults to true; disable it to run without the phone wired up.
	Enabled     *bool      `yaml:"enabled"`
	Handset     LineConfig `yaml:"handset"`
	DialPulse   LineConfig `yaml:"dial_pulse"`
	DialEngaged LineConfig `yaml:"dial_engaged"`
}

type CommandConfig struct {
	Phrase string       `yaml:"phrase"`
	Action command.Kind `yaml:"action"`
	// Lamp is a lamp name, or "all".
	Lamp   string `yaml:"lamp"`
	Custom string `yaml:"custom"`
}

type MetricsConfig struct {
	ListenAddr string `yaml:"listen_addr"`
}

// Enabled reads an optional flag, defaulting to true.
func Enabled(flag *bool) bool {
	return flag == nil || *flag
}
