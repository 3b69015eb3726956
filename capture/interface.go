package capture

import "context"

// Frame is one item of the chunk stream. PCM holds 16-bit little-endian mono
// samples; a frame with End set and no PCM closes the session.
type Frame struct {
	PCM []byte
	End bool
}

// Sentinel is the single end-of-session frame.
var Sentinel = Frame{End: true}

func (f Frame) IsSentinel() bool {
	return f.End
}

// Stream is an opened device stream.
type Stream interface {
	Start() error
	Stop() error
	Close() error
}

// Opener opens a device stream that invokes cb once per captured buffer, on
// the driver's own thread.
type Opener interface {
	Open(cb func(in []int16)) (Stream, error)
}

type Interface interface {
	// Start opens the device if needed and begins streaming chunks.
	Start() error
	// Stop halts and closes the device, then queues exactly one Sentinel. It
	// waits for room in the queue until ctx ends.
	Stop(ctx context.Context) error
	Frames() <-chan Frame
}
