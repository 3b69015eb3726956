package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"rotary-phone-lamps/capture"
	"rotary-phone-lamps/command"
	"rotary-phone-lamps/handset"
	"rotary-phone-lamps/metrics"
	"rotary-phone-lamps/speech_to_text"
)

type sessionImpl struct {
	handset    handset.Interface
	capture    capture.Interface
	results    <-chan string
	dispatcher command.Interface
	logger     *slog.Logger
	metrics    *metrics.Metrics
}

type Config struct {
	Handset handset.Interface
	Capture capture.Interface
	// Results is the recognition worker's transcript channel.
	Results    <-chan string
	Dispatcher command.Interface
	Logger     *slog.Logger
	Metrics    *metrics.Metrics
}

func New(cfg *Config) (Interface, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}

	if cfg.Handset == nil {
		return nil, fmt.Errorf("handset is nil")
	}

	if cfg.Capture == nil {
		return nil, fmt.Errorf("capture is nil")
	}

	if cfg.Results == nil {
		return nil, fmt.Errorf("results is nil")
	}

	if cfg.Dispatcher == nil {
		return nil, fmt.Errorf("dispatcher is nil")
	}

	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is nil")
	}

	met := cfg.Metrics
	if met == nil {
		met = metrics.Noop()
	}

	return &sessionImpl{
		handset:    cfg.Handset,
		capture:    cfg.Capture,
		results:    cfg.Results,
		dispatcher: cfg.Dispatcher,
		logger:     cfg.Logger,
		metrics:    met,
	}, nil
}

func (s *sessionImpl) Run(ctx context.Context) error {
	s.logger.Info("waiting for handset")

	for {
		if err := s.handset.WaitActive(ctx); err != nil {
			return err
		}

		text, err := s.listen(ctx)
		if err != nil {
			return err
		}

		s.metrics.Sessions.Add(ctx, 1)

		if text == "" {
			s.logger.Info("no command heard")
			continue
		}

		s.logger.Info("heard", "text", text)
		s.dispatcher.Dispatch(text)
	}
}

// listen captures audio until the handset goes back down, then waits for
// the worker's transcript of that session.
func (s *sessionImpl) listen(ctx context.Context) (string, error) {
	s.logger.Info("handset lifted, listening")

	if err := s.capture.Start(); err != nil {
		return "", fmt.Errorf("session: start capture: %w", err)
	}

	waitErr := s.handset.WaitIdle(ctx)

	// Stop queues the sentinel, so the worker always sees the session end.
	if err := s.capture.Stop(ctx); err != nil {
		return "", fmt.Errorf("session: stop capture: %w", err)
	}

	if waitErr != nil {
		return "", waitErr
	}

	s.logger.Info("handset down, recognizing")

	var raw string
	select {
	case raw = <-s.results:
	case <-ctx.Done():
		return "", ctx.Err()
	}

	transcript, err := speech_to_text.ParseResult(raw)
	switch {
	case errors.Is(err, speech_to_text.ErrNoText):
		return "", nil
	case err != nil:
		s.logger.Warn("unreadable recognizer result", "raw", raw, "err", err)
		return "", nil
	}

	return transcript.Text, nil
}
