package recognition

import (
	"sync"

	"rotary-phone-lamps/ring_buffer"
)

// pending sits between the gate and the recognizer feed. Until released it
// is a bounded lookback; once released it grows and hands chunks out oldest
// first.
type pending struct {
	mu       sync.Mutex
	cond     *sync.Cond
	buffer   ring_buffer.Interface
	released bool
	closed   bool
}

func newPending(lookback int) *pending {
	p := &pending{buffer: ring_buffer.New(lookback)}
	p.cond = sync.NewCond(&p.mu)
	return p
}

func (p *pending) add(chunk []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.buffer.Add(chunk)
	if p.released {
		p.cond.Signal()
	}
}

// release stops eviction and lets next hand out chunks.
func (p *pending) release() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.buffer.Unbound()
	p.released = true
	p.cond.Signal()
}

// close ends the session; next drains what is left and then reports done.
func (p *pending) close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.closed = true
	p.cond.Signal()
}

func (p *pending) next() ([]byte, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for {
		if p.released || p.closed {
			if chunk, ok := p.buffer.Pop(); ok {
				return chunk, true
			}
		}

		if p.closed {
			return nil, false
		}

		p.cond.Wait()
	}
}
