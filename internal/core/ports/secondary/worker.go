package secondary

import (
	"context"

	"gitlab.com/judge-dispatch.net/internal/domain"
)

// WorkerRegistry resolves a judge client credential. A missing client is nil, nil.
type WorkerRegistry interface {
	FindByKey(ctx context.Context, key string) (*domain.JudgeClient, error)
}

type JudgeClientRepository interface {
	WorkerRegistry

	FindByID(ctx context.Context, id int) (*domain.JudgeClient, error)

	List(ctx context.Context) ([]*domain.JudgeClient, error)

	// Create inserts the client and fills in its ID and CreatedAt
	Create(ctx context.Context, client *domain.JudgeClient) error

	UpdateKey(ctx context.Context, id int, key string) error

	Delete(ctx context.Context, id int) error
}
