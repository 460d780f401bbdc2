package statussource

import (
	"context"

	"github.com/notifyhub/queue-watch/internal/domain"
)

// Source reads the current status of one queue entry from the queue backend.
// Mocking this interface in tests gives full control over poll results
// without making real HTTP calls.
type Source interface {
	FetchStatus(ctx context.Context, id domain.QueueID) (*domain.StatusSnapshot, error)
}

// SourceFunc adapts a plain function to Source.
type SourceFunc func(ctx context.Context, id domain.QueueID) (*domain.StatusSnapshot, error)

func (f SourceFunc) FetchStatus(ctx context.Context, id domain.QueueID) (*domain.StatusSnapshot, error) {
	return f(ctx, id)
}
