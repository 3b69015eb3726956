package command

import (
	"fmt"
	"log/slog"
	"strings"
)

type dispatcherImpl struct {
	rules    []Rule
	phrases  []string
	executor Executor
	logger   *slog.Logger
}

type Config struct {
	// Grammar is ordered; earlier rules win.
	Grammar  []Rule
	Executor Executor
	Logger   *slog.Logger
}

func New(cfg *Config) (Interface, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}

	if cfg.Executor == nil {
		return nil, fmt.Errorf("executor is nil")
	}

	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is nil")
	}

	rules := make([]Rule, len(cfg.Grammar))
	phrases := make([]string, len(cfg.Grammar))

	for i, rule := range cfg.Grammar {
		phrase := normalize(rule.Phrase)
		if phrase == "" {
			return nil, fmt.Errorf("grammar[%d]: phrase is empty", i)
		}

		if !rule.Action.Kind.IsValid() {
			return nil, fmt.Errorf("grammar[%d]: unknown action kind %q", i, rule.Action.Kind)
		}

		rules[i] = Rule{Phrase: phrase, Action: rule.Action}
		phrases[i] = phrase
	}

	return &dispatcherImpl{
		rules:    rules,
		phrases:  phrases,
		executor: cfg.Executor,
		logger:   cfg.Logger,
	}, nil
}

func (d *dispatcherImpl) Phrases() []string {
	phrases := make([]string, len(d.phrases))
	copy(phrases, d.phrases)
	return phrases
}

func (d *dispatcherImpl) Match(text string) (Rule, bool) {
	normalized := normalize(text)

	for _, rule := range d.rules {
		if strings.Contains(normalized, rule.Phrase) {
			return rule, true
		}
	}

	return Rule{}, false
}

func (d *dispatcherImpl) Dispatch(text string) bool {
	rule, ok := d.Match(text)
	if !ok {
		d.logger.Info("no command in transcript", "text", text)
		return false
	}

	d.logger.Info("command matched", "phrase", rule.Phrase, "action", rule.Action.String())

	return d.executor.Submit(SourceVoice, rule.Action)
}

// normalize lowercases s, drops everything but letters, digits and spaces,
// and collapses runs of spaces.
func normalize(s string) string {
	cleaned := strings.Map(func(r rune) rune {
		if r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' {
			return r
		}

		if r == ' ' || r == '\t' || r == '\n' {
			return ' '
		}

		return -1
	}, s)

	return strings.Join(strings.Fields(strings.ToLower(cleaned)), " ")
}
