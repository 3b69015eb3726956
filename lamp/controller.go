package lamp

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"rotary-phone-lamps/metrics"
)

type controllerImpl struct {
	states      []bool
	receivers   []int
	transmitter Transmitter
	policy      UpdatePolicy
	timeout     time.Duration
	rand        *rand.Rand
	logger      *slog.Logger
	metrics     *metrics.Metrics
}

type Config struct {
	// Count fixes the number of lamps.
	Count int
	// Receivers maps lamp index to receiver id; missing entries use the index.
	Receivers   []int
	Transmitter Transmitter
	Policy      UpdatePolicy
	// Timeout bounds one transmission; zero means no bound.
	Timeout time.Duration
	Rand    *rand.Rand
	Logger  *slog.Logger
	Metrics *metrics.Metrics
}

func New(cfg *Config) (Interface, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}

	if cfg.Count < 0 {
		return nil, fmt.Errorf("count is negative")
	}

	if cfg.Transmitter == nil {
		return nil, fmt.Errorf("transmitter is nil")
	}

	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is nil")
	}

	policy := cfg.Policy
	if policy == "" {
		policy = Optimistic
	}
	if !policy.IsValid() {
		return nil, fmt.Errorf("unknown update policy %q", policy)
	}

	receivers := make([]int, cfg.Count)
	for i := range receivers {
		receivers[i] = i
		if i < len(cfg.Receivers) {
			receivers[i] = cfg.Receivers[i]
		}
	}

	rnd := cfg.Rand
	if rnd == nil {
		rnd = rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0))
	}

	met := cfg.Metrics
	if met == nil {
		met = metrics.Noop()
	}

	return &controllerImpl{
		states:      make([]bool, cfg.Count),
		receivers:   receivers,
		transmitter: cfg.Transmitter,
		policy:      policy,
		timeout:     cfg.Timeout,
		rand:        rnd,
		logger:      cfg.Logger,
		metrics:     met,
	}, nil
}

func (c *controllerImpl) TurnOn(idx int) {
	c.logger.Info("turn on", "lamp", idx)
	c.set(idx, true)
}

func (c *controllerImpl) TurnOff(idx int) {
	c.logger.Info("turn off", "lamp", idx)
	c.set(idx, false)
}

func (c *controllerImpl) Toggle(idx int) {
	c.logger.Info("toggle", "lamp", idx)

	if !c.valid(idx) {
		return
	}

	if idx == All {
		c.set(All, !c.allOn())
		return
	}

	c.set(idx, !c.states[idx])
}

func (c *controllerImpl) AllOn() {
	c.logger.Info("all on")
	c.set(All, true)
}

func (c *controllerImpl) AllOff() {
	c.logger.Info("all off")
	c.set(All, false)
}

func (c *controllerImpl) RandomOn() {
	c.random(true)
}

func (c *controllerImpl) RandomOff() {
	c.random(false)
}

func (c *controllerImpl) States() []bool {
	states := make([]bool, len(c.states))
	copy(states, c.states)
	return states
}

// random switches one lamp, chosen uniformly among those not already in the
// target state.
func (c *controllerImpl) random(on bool) {
	candidates := make([]int, 0, len(c.states))
	for i, state := range c.states {
		if state != on {
			candidates = append(candidates, i)
		}
	}

	if len(candidates) == 0 {
		c.logger.Info("no lamp to switch at random", "on", on)
		return
	}

	idx := candidates[c.rand.IntN(len(candidates))]
	c.logger.Info("random switch", "lamp", idx, "on", on)
	c.set(idx, on)
}

func (c *controllerImpl) valid(idx int) bool {
	if idx >= len(c.states) {
		c.logger.Warn("no lamp at index", "lamp", idx, "lamps", len(c.states))
		return false
	}

	if idx < All {
		c.logger.Warn("bad lamp index", "lamp", idx)
		return false
	}

	return true
}

func (c *controllerImpl) allOn() bool {
	for _, state := range c.states {
		if !state {
			return false
		}
	}
	return len(c.states) > 0
}

func (c *controllerImpl) set(idx int, on bool) {
	if !c.valid(idx) {
		return
	}

	if c.policy == Optimistic {
		c.apply(idx, on)
	}

	receiver := All
	if idx != All {
		receiver = c.receivers[idx]
	}

	if err := c.transmit(receiver, on); err != nil {
		c.logger.Warn("transmitter failed", "lamp", idx, "receiver", receiver, "on", on, "err", err)
		return
	}

	if c.policy == Confirmed {
		c.apply(idx, on)
	}
}

func (c *controllerImpl) apply(idx int, on bool) {
	if idx == All {
		for i := range c.states {
			c.states[i] = on
		}
		return
	}

	c.states[idx] = on
}

func (c *controllerImpl) transmit(receiver int, on bool) error {
	ctx := context.Background()
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	err := c.transmitter.Transmit(ctx, receiver, on)

	status := "ok"
	if err != nil {
		status = "error"
	}
	c.metrics.Transmissions.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))

	return err
}
