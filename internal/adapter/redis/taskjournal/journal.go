package taskjournal

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/vmihailenco/msgpack"

	"gitlab.com/judge-dispatch.net/internal/core/ports/primary"
	"gitlab.com/judge-dispatch.net/internal/core/ports/secondary"
	"gitlab.com/judge-dispatch.net/internal/domain"
)

const journalKey = "JudgeQueue_Journal"

var _ secondary.TaskJournal = (*Journal)(nil)

// record is the msgpack layout of one journaled task
type record struct {
	ID         string          `msgpack:"id"`
	Type       string          `msgpack:"type"`
	Payload    []byte          `msgpack:"payload"`
	Meta       domain.TaskMeta `msgpack:"meta"`
	EnqueuedAt int64           `msgpack:"enqueuedAt"`
}

// Journal implements the TaskJournal interface with a Redis hash
type Journal struct {
	redisClient redis.UniversalClient
	logger      primary.Logger
	now         func() time.Time
}

func NewJournal(redisClient redis.UniversalClient, logger primary.Logger) *Journal {
	return &Journal{
		redisClient: redisClient,
		logger:      logger,
		now:         time.Now,
	}
}

// Save journals task. A task already journaled keeps its first enqueue time.
func (j *Journal) Save(ctx context.Context, task *domain.Task) error {
	data, err := msgpack.Marshal(&record{
		ID:         task.ID,
		Type:       task.Type,
		Payload:    []byte(task.Payload),
		Meta:       task.Meta,
		EnqueuedAt: j.now().UnixNano(),
	})
	if err != nil {
		return fmt.Errorf("failed to encode task %s: %w", task.ID, err)
	}

	if err := j.redisClient.HSetNX(ctx, journalKey, task.ID, data).Err(); err != nil {
		j.logger.Error("Failed to journal task", "taskId", task.ID, "error", err)
		return fmt.Errorf("failed to journal task: %w", err)
	}
	return nil
}

func (j *Journal) Remove(ctx context.Context, taskID string) error {
	if err := j.redisClient.HDel(ctx, journalKey, taskID).Err(); err != nil {
		j.logger.Error("Failed to remove journaled task", "taskId", taskID, "error", err)
		return fmt.Errorf("failed to remove journaled task: %w", err)
	}
	return nil
}

func (j *Journal) LoadAll(ctx context.Context) ([]*domain.Task, error) {
	entries, err := j.redisClient.HGetAll(ctx, journalKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load task journal: %w", err)
	}

	records := make([]record, 0, len(entries))
	for taskID, data := range entries {
		var rec record
		if err := msgpack.Unmarshal([]byte(data), &rec); err != nil {
			j.logger.Warn("Dropping unreadable journal entry", "taskId", taskID, "error", err)
			continue
		}
		records = append(records, rec)
	}

	sort.SliceStable(records, func(a, b int) bool {
		if records[a].EnqueuedAt == records[b].EnqueuedAt {
			return records[a].ID < records[b].ID
		}
		return records[a].EnqueuedAt < records[b].EnqueuedAt
	})

	tasks := make([]*domain.Task, 0, len(records))
	for _, rec := range records {
		tasks = append(tasks, &domain.Task{
			ID:      rec.ID,
			Type:    rec.Type,
			Payload: rec.Payload,
			Meta:    rec.Meta,
		})
	}
	return tasks, nil
}
