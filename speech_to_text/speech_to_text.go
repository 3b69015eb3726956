package speech_to_text

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"
	"github.com/go-audio/audio"
)

type whisperEngine struct {
	model      whisper.Model
	language   string
	sampleRate int
}

type WhisperConfig struct {
	ModelPath string
	Language  string
	// SampleRate of the PCM handed to recognizers; it is resampled to the
	// rate whisper expects.
	SampleRate int
}

func NewWhisper(cfg *WhisperConfig) (Engine, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}

	if cfg.ModelPath == "" {
		return nil, fmt.Errorf("modelPath is empty")
	}

	if cfg.SampleRate <= 0 {
		return nil, fmt.Errorf("sampleRate must be positive")
	}

	model, err := whisper.New(cfg.ModelPath)
	if err != nil {
		return nil, fmt.Errorf("whisper: load model %q: %w", cfg.ModelPath, err)
	}

	return &whisperEngine{
		model:      model,
		language:   cfg.Language,
		sampleRate: cfg.SampleRate,
	}, nil
}

func (e *whisperEngine) NewRecognizer() (Recognizer, error) {
	return &whisperRecognizer{engine: e}, nil
}

func (e *whisperEngine) Close() error {
	return e.model.Close()
}

// whisperRecognizer collects the session's audio and runs whisper once, in
// FinalResult.
type whisperRecognizer struct {
	engine  *whisperEngine
	samples []int
}

func (r *whisperRecognizer) AcceptWaveform(pcm []byte) error {
	for i := 0; i+1 < len(pcm); i += 2 {
		r.samples = append(r.samples, int(int16(binary.LittleEndian.Uint16(pcm[i:]))))
	}
	return nil
}

func (r *whisperRecognizer) FinalResult() (string, error) {
	if len(r.samples) == 0 {
		return encodeResult("")
	}

	wavBuffer := &audio.IntBuffer{
		Format: &audio.Format{
			NumChannels: 1,
			SampleRate:  r.engine.sampleRate,
		},
		Data:           r.samples,
		SourceBitDepth: 16,
	}

	data := normalize(wavBuffer.AsFloat32Buffer().Data)
	data = resample(data, r.engine.sampleRate, whisper.SampleRate)

	context, err := r.engine.model.NewContext()
	if err != nil {
		return "", fmt.Errorf("whisper: create context: %w", err)
	}

	if r.engine.language != "" {
		if err := context.SetLanguage(r.engine.language); err != nil {
			return "", fmt.Errorf("whisper: set language %q: %w", r.engine.language, err)
		}
	}

	if err := context.Process(data, nil, nil, nil); err != nil {
		return "", fmt.Errorf("whisper: process audio: %w", err)
	}

	segments, err := outputSegments(context)
	if err != nil {
		return "", err
	}

	return encodeResult(strings.Join(segments, " "))
}

func (r *whisperRecognizer) Close() error {
	r.samples = nil
	return nil
}

func outputSegments(context whisper.Context) ([]string, error) {
	var texts []string

	for {
		segment, err := context.NextSegment()
		if errors.Is(err, io.EOF) {
			return keepSpoken(texts), nil
		} else if err != nil {
			return nil, fmt.Errorf("whisper: read segment: %w", err)
		}

		texts = append(texts, segment.Text)
	}
}

// keepSpoken drops annotation segments such as "[BLANK_AUDIO]" or "(music)"
// and repeated segments.
func keepSpoken(texts []string) []string {
	seenText := make(map[string]bool)
	kept := make([]string, 0, len(texts))

	for _, text := range texts {
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}

		if text[0] == '(' || text[0] == '[' ||
			text[len(text)-1] == ')' || text[len(text)-1] == ']' {
			continue
		}

		if seenText[text] {
			continue
		}
		seenText[text] = true

		kept = append(kept, text)
	}

	return kept
}

// normalize scales 16-bit sample values into [-1, 1).
func normalize(samples []float32) []float32 {
	for i := range samples {
		samples[i] /= 32768
	}
	return samples
}

// resample converts between rates by linear interpolation.
func resample(samples []float32, from, to int) []float32 {
	if from == to || from <= 0 || to <= 0 || len(samples) == 0 {
		return samples
	}

	n := int(int64(len(samples)) * int64(to) / int64(from))
	out := make([]float32, n)
	ratio := float64(from) / float64(to)

	for i := range out {
		pos := float64(i) * ratio
		idx := int(pos)
		frac := float32(pos - float64(idx))

		if idx+1 < len(samples) {
			out[i] = samples[idx]*(1-frac) + samples[idx+1]*frac
		} else {
			out[i] = samples[len(samples)-1]
		}
	}

	return out
}
