package capture

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"rotary-phone-lamps/metrics"
)

var ErrNotStarted = errors.New("capture: not started")

const defaultQueueSize = 256

type captureImpl struct {
	opener  Opener
	warmup  int64
	frames  chan Frame
	logger  *slog.Logger
	metrics *metrics.Metrics

	mu     sync.Mutex
	stream Stream

	streaming atomic.Bool
	seen      atomic.Int64
	queued    atomic.Int64
	dropped   atomic.Int64
}

type Config struct {
	Opener Opener
	// WarmupChunks are discarded after every reopen of the device.
	WarmupChunks int
	QueueSize    int
	Logger       *slog.Logger
	Metrics      *metrics.Metrics
}

func New(cfg *Config) (Interface, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}

	if cfg.Opener == nil {
		return nil, fmt.Errorf("opener is nil")
	}

	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is nil")
	}

	if cfg.WarmupChunks < 0 {
		return nil, fmt.Errorf("warmupChunks is negative")
	}

	queueSize := cfg.QueueSize
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}

	met := cfg.Metrics
	if met == nil {
		met = metrics.Noop()
	}

	return &captureImpl{
		opener:  cfg.Opener,
		warmup:  int64(cfg.WarmupChunks),
		frames:  make(chan Frame, queueSize),
		logger:  cfg.Logger,
		metrics: met,
	}, nil
}

func (c *captureImpl) Frames() <-chan Frame {
	return c.frames
}

func (c *captureImpl) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.streaming.Load() {
		return nil
	}

	if c.stream == nil {
		stream, err := c.opener.Open(c.onAudio)
		if err != nil {
			return fmt.Errorf("capture: open stream: %w", err)
		}

		c.stream = stream
	}

	c.seen.Store(0)
	c.queued.Store(0)
	c.dropped.Store(0)
	c.streaming.Store(true)

	if err := c.stream.Start(); err != nil {
		c.streaming.Store(false)
		return fmt.Errorf("capture: start stream: %w", err)
	}

	c.logger.Info("capture started")

	return nil
}

func (c *captureImpl) Stop(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.streaming.Load() {
		return ErrNotStarted
	}

	// No callback delivers anything past this point, so the sentinel below
	// is the last frame of the session.
	c.streaming.Store(false)

	var errs []error
	if err := c.stream.Stop(); err != nil {
		errs = append(errs, fmt.Errorf("capture: stop stream: %w", err))
	}
	if err := c.stream.Close(); err != nil {
		errs = append(errs, fmt.Errorf("capture: close stream: %w", err))
	}
	c.stream = nil

	// The sentinel may not be dropped, so wait for room unless ctx ends
	// first, which only happens when nothing reads the queue any more.
	select {
	case c.frames <- Sentinel:
	default:
		select {
		case c.frames <- Sentinel:
		case <-ctx.Done():
			errs = append(errs, fmt.Errorf("capture: queue end of session: %w", ctx.Err()))
		}
	}

	c.logger.Info("capture stopped",
		"chunks", c.seen.Load(),
		"queued", c.queued.Load(),
		"dropped", c.dropped.Load(),
	)

	return errors.Join(errs...)
}

// onAudio runs on the driver thread. It must return without blocking.
func (c *captureImpl) onAudio(in []int16) {
	if !c.streaming.Load() {
		return
	}

	if c.seen.Add(1) <= c.warmup {
		return
	}

	pcm := make([]byte, len(in)*2)
	for i, s := range in {
		binary.LittleEndian.PutUint16(pcm[i*2:], uint16(s))
	}

	select {
	case c.frames <- Frame{PCM: pcm}:
		c.queued.Add(1)
		c.metrics.ChunksCaptured.Add(context.Background(), 1)
	default:
		c.dropped.Add(1)
		c.metrics.ChunksDropped.Add(context.Background(), 1)
	}
}
