package secondary

import (
	"context"

	"gitlab.com/judge-dispatch.net/internal/domain"
)

// TaskJournal keeps queued and in-flight tasks across restarts
type TaskJournal interface {
	Save(ctx context.Context, task *domain.Task) error
	Remove(ctx context.Context, taskID string) error
	// LoadAll returns journaled tasks in their original enqueue order
	LoadAll(ctx context.Context) ([]*domain.Task, error)
}
