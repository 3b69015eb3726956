package handset

import "context"

type State int

const (
	Idle State = iota
	Active
)

func (s State) String() string {
	if s == Active {
		return "active"
	}
	return "idle"
}

type Interface interface {
	// Lift and PutDown are edge handlers. They never block.
	Lift()
	PutDown()

	State() State
	WaitActive(ctx context.Context) error
	WaitIdle(ctx context.Context) error
}
