package recognition

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"rotary-phone-lamps/capture"
	"rotary-phone-lamps/metrics"
	"rotary-phone-lamps/recording"
	"rotary-phone-lamps/speech_to_text"
	"rotary-phone-lamps/voice_activity_detection"
)

type workerImpl struct {
	engine   speech_to_text.Engine
	frames   <-chan capture.Frame
	results  chan string
	gate     *voice_activity_detection.Gate
	lookback int
	recorder recording.Interface
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

type Config struct {
	Engine speech_to_text.Engine
	Frames <-chan capture.Frame
	// Meter measures chunk energy; nil uses RMS.
	Meter voice_activity_detection.Meter
	// Threshold is the level a chunk must exceed to count as sound.
	Threshold float64
	// LookbackChunks is how many chunks before onset reach the recognizer.
	LookbackChunks int
	// MaxSilentChunks is the trailing silence allowed after onset.
	MaxSilentChunks int
	// Recorder is optional.
	Recorder recording.Interface
	Logger   *slog.Logger
	Metrics  *metrics.Metrics
}

func New(cfg *Config) (Interface, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}

	if cfg.Engine == nil {
		return nil, fmt.Errorf("engine is nil")
	}

	if cfg.Frames == nil {
		return nil, fmt.Errorf("frames is nil")
	}

	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is nil")
	}

	if cfg.LookbackChunks < 0 || cfg.MaxSilentChunks < 0 {
		return nil, fmt.Errorf("chunk counts must not be negative")
	}

	met := cfg.Metrics
	if met == nil {
		met = metrics.Noop()
	}

	return &workerImpl{
		engine:   cfg.Engine,
		frames:   cfg.Frames,
		results:  make(chan string, 1),
		gate:     voice_activity_detection.NewGate(cfg.Meter, cfg.Threshold, cfg.MaxSilentChunks),
		lookback: cfg.LookbackChunks,
		recorder: cfg.Recorder,
		logger:   cfg.Logger,
		metrics:  met,
	}, nil
}

func (w *workerImpl) Results() <-chan string {
	return w.results
}

func (w *workerImpl) Run(ctx context.Context) error {
	for {
		result, err := w.session(ctx)
		if err != nil {
			return err
		}

		select {
		case w.results <- result:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// session consumes frames up to and including one sentinel and returns the
// recognizer's final result for them.
func (w *workerImpl) session(ctx context.Context) (string, error) {
	rec, err := w.engine.NewRecognizer()
	if err != nil {
		return "", fmt.Errorf("recognition: fatal: %w", err)
	}
	defer rec.Close()

	w.gate.Reset()
	if w.recorder != nil {
		w.recorder.Begin()
	}

	queue := newPending(w.lookback)
	fed := make(chan error, 1)
	go func() {
		fed <- w.feed(ctx, rec, queue)
	}()

	var (
		chunks    int
		discarded int
		bailed    bool
	)

	for ended := false; !ended; {
		select {
		case <-ctx.Done():
			queue.close()
			<-fed
			return "", ctx.Err()

		case frame := <-w.frames:
			if frame.IsSentinel() {
				ended = true
				break
			}

			chunks++
			if w.recorder != nil {
				w.recorder.Append(frame.PCM)
			}

			if bailed {
				discarded++
				continue
			}

			switch w.gate.Observe(frame.PCM) {
			case voice_activity_detection.Onset:
				w.logger.Debug("speech detected", "chunk", chunks)
				queue.release()
				queue.add(frame.PCM)
			case voice_activity_detection.Bail:
				w.logger.Debug("trailing silence, ending utterance", "chunk", chunks)
				queue.add(frame.PCM)
				queue.close()
				bailed = true
			default:
				queue.add(frame.PCM)
			}
		}
	}

	finalStart := time.Now()

	queue.close()
	if err := <-fed; err != nil {
		return "", fmt.Errorf("recognition: fatal: %w", err)
	}

	result, err := rec.FinalResult()
	if err != nil {
		return "", fmt.Errorf("recognition: fatal: final result: %w", err)
	}

	w.metrics.RecognitionDuration.Record(ctx, time.Since(finalStart).Seconds())

	w.logger.Info("session recognized",
		"chunks", chunks,
		"speech", w.gate.Detected(),
		"discarded", discarded,
		"result", result,
	)

	if w.recorder != nil {
		if err := w.recorder.Finish(); err != nil {
			w.logger.Warn("error saving recording", "err", err)
		}
	}

	return result, nil
}

// feed hands released chunks to the recognizer in order until the queue is
// closed and empty.
func (w *workerImpl) feed(ctx context.Context, rec speech_to_text.Recognizer, queue *pending) error {
	for {
		chunk, ok := queue.next()
		if !ok {
			return nil
		}

		if err := rec.AcceptWaveform(chunk); err != nil {
			// keep draining so the session loop never waits on a dead feed
			for _, ok := queue.next(); ok; _, ok = queue.next() {
			}
			return err
		}

		w.metrics.ChunksRecognized.Add(ctx, 1)
	}
}
