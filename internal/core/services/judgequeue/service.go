package judgequeue

import (
	"context"
	"encoding/json"

	"gitlab.com/judge-dispatch.net/internal/domain"
)

// ProgressSink receives progress reports of dispatched tasks. Returning true marks the task
// finished and a per-task sink is then forgotten.
type ProgressSink func(ctx context.Context, meta domain.TaskMeta, progress json.RawMessage) (finished bool)

// IJudgeQueueService is the scheduler shared by every judge connection
type IJudgeQueueService interface {
	// PushTask enqueues task. atFront places it in the requeue class, ahead of the backlog,
	// and counts against the redelivery cap.
	PushTask(ctx context.Context, task *domain.Task, atFront bool) error

	// SubmitTask adds a task from a producer, refusing ids the queue already holds
	SubmitTask(ctx context.Context, task *domain.Task, atFront bool) error

	// ReturnTask puts back a consumed task that was never delivered
	ReturnTask(ctx context.Context, task *domain.Task) error

	// EnqueueTask registers sink for the task's progress and pushes it to the backlog
	EnqueueTask(ctx context.Context, task *domain.Task, sink ProgressSink) error

	// ConsumeTask blocks until a task is available or ctx is done
	ConsumeTask(ctx context.Context) (*domain.Task, error)

	// AcknowledgeTask records that a worker took ownership of the task for good
	AcknowledgeTask(ctx context.Context, taskID string)

	// OnTaskProgress routes a progress report. Unknown tasks are dropped with a warning.
	OnTaskProgress(ctx context.Context, meta domain.TaskMeta, progress json.RawMessage)

	RegisterProgressReceiver(taskType string, sink ProgressSink)

	DeadLetters() []domain.DeadLetter
	RetryDeadLetter(ctx context.Context, taskID string) error

	Stats() domain.QueueStats

	// Restore reloads journaled tasks into the backlog
	Restore(ctx context.Context) (int, error)

	Close()
}
