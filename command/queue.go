package command

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"rotary-phone-lamps/lamp"
	"rotary-phone-lamps/metrics"
)

const defaultQueueSize = 16

type queued struct {
	source string
	action Action
}

// Queue is the single owner of the lamp controller. Voice commands and the
// rotary dial both submit to it, and Run applies their actions one at a time.
type Queue struct {
	actions chan queued
	lamps   lamp.Interface
	customs map[string]CustomFunc
	logger  *slog.Logger
	metrics *metrics.Metrics
}

type QueueConfig struct {
	Lamps   lamp.Interface
	Customs map[string]CustomFunc
	Size    int
	Logger  *slog.Logger
	Metrics *metrics.Metrics
}

func NewQueue(cfg *QueueConfig) (*Queue, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}

	if cfg.Lamps == nil {
		return nil, fmt.Errorf("lamps is nil")
	}

	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is nil")
	}

	size := cfg.Size
	if size <= 0 {
		size = defaultQueueSize
	}

	met := cfg.Metrics
	if met == nil {
		met = metrics.Noop()
	}

	return &Queue{
		actions: make(chan queued, size),
		lamps:   cfg.Lamps,
		customs: cfg.Customs,
		logger:  cfg.Logger,
		metrics: met,
	}, nil
}

func (q *Queue) Submit(source string, a Action) bool {
	select {
	case q.actions <- queued{source: source, action: a}:
		q.metrics.Commands.Add(context.Background(), 1, metric.WithAttributes(
			attribute.String("source", source),
			attribute.String("action", string(a.Kind)),
		))
		return true
	default:
		q.logger.Warn("action queue full, dropping action", "source", source, "action", a.String())
		return false
	}
}

func (q *Queue) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case item := <-q.actions:
			if err := Apply(q.lamps, q.customs, item.action); err != nil {
				q.logger.Warn("error applying action", "source", item.source, "action", item.action.String(), "err", err)
			}
		}
	}
}
