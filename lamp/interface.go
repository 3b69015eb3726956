package lamp

import "context"

// All addresses every lamp at once.
const All = -1

// Interface is not safe for concurrent use; callers serialise access.
type Interface interface {
	TurnOn(idx int)
	TurnOff(idx int)
	Toggle(idx int)
	AllOn()
	AllOff()
	RandomOn()
	RandomOff()
	States() []bool
}

// Transmitter switches a receiver, or every receiver for All.
type Transmitter interface {
	Transmit(ctx context.Context, receiver int, on bool) error
}

type UpdatePolicy string

const (
	// Optimistic updates the state before transmitting and keeps it even
	// when the transmitter fails.
	Optimistic UpdatePolicy = "optimistic"
	// Confirmed updates the state only after a successful transmission.
	Confirmed UpdatePolicy = "confirmed"
)

func (p UpdatePolicy) IsValid() bool {
	return p == Optimistic || p == Confirmed
}
