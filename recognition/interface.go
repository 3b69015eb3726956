package recognition

import "context"

type Interface interface {
	// Run handles sessions until ctx ends or the recognizer fails. A
	// recognizer failure is returned and is fatal to the worker.
	Run(ctx context.Context) error
	// Results delivers one JSON result per session, in session order.
	Results() <-chan string
}
