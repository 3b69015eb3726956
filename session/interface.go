package session

import "context"

type Interface interface {
	// Run serves handset sessions one after another until ctx ends or a
	// collaborator fails.
	Run(ctx context.Context) error
}
