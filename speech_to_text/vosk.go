package speech_to_text

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	vosk "github.com/alphacep/vosk-api/go"
)

type voskEngine struct {
	model      *vosk.VoskModel
	sampleRate float64
	grammar    string
}

type VoskConfig struct {
	ModelPath  string
	SampleRate float64
	// Phrases restricts the vocabulary to their words; empty allows any word.
	Phrases []string
}

func NewVosk(cfg *VoskConfig) (Engine, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}

	if cfg.ModelPath == "" {
		return nil, fmt.Errorf("modelPath is empty")
	}

	if cfg.SampleRate <= 0 {
		return nil, fmt.Errorf("sampleRate must be positive")
	}

	vosk.SetLogLevel(-1)

	model, err := vosk.NewModel(cfg.ModelPath)
	if err != nil {
		return nil, fmt.Errorf("vosk: load model %q: %w", cfg.ModelPath, err)
	}

	grammar := ""
	if len(cfg.Phrases) > 0 {
		grammar, err = Grammar(cfg.Phrases)
		if err != nil {
			model.Free()
			return nil, err
		}
	}

	return &voskEngine{
		model:      model,
		sampleRate: cfg.SampleRate,
		grammar:    grammar,
	}, nil
}

func (e *voskEngine) NewRecognizer() (Recognizer, error) {
	var (
		rec *vosk.VoskRecognizer
		err error
	)

	if e.grammar != "" {
		rec, err = vosk.NewRecognizerGrm(e.model, e.sampleRate, e.grammar)
	} else {
		rec, err = vosk.NewRecognizer(e.model, e.sampleRate)
	}
	if err != nil {
		return nil, fmt.Errorf("vosk: create recognizer: %w", err)
	}

	return &voskRecognizer{rec: rec}, nil
}

func (e *voskEngine) Close() error {
	e.model.Free()
	return nil
}

type voskRecognizer struct {
	rec *vosk.VoskRecognizer
}

func (r *voskRecognizer) AcceptWaveform(pcm []byte) error {
	if r.rec.AcceptWaveform(pcm) < 0 {
		return fmt.Errorf("vosk: accept waveform failed")
	}
	return nil
}

func (r *voskRecognizer) FinalResult() (string, error) {
	return r.rec.FinalResult(), nil
}

func (r *voskRecognizer) Close() error {
	r.rec.Free()
	return nil
}

// Grammar builds a vosk grammar from the distinct words of phrases, plus the
// unknown-word token so out-of-vocabulary speech does not get forced into a
// command.
func Grammar(phrases []string) (string, error) {
	seen := make(map[string]bool)
	words := make([]string, 0)

	for _, phrase := range phrases {
		for _, word := range strings.Fields(strings.ToLower(phrase)) {
			if seen[word] {
				continue
			}
			seen[word] = true
			words = append(words, word)
		}
	}

	sort.Strings(words)
	words = append(words, "[unk]")

	raw, err := json.Marshal(words)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}
