package publishers

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"gitlab.com/judge-dispatch.net/internal/core/ports/primary"
	"gitlab.com/judge-dispatch.net/internal/core/services/judgequeue"
	"gitlab.com/judge-dispatch.net/internal/domain"
	"gitlab.com/judge-dispatch.net/internal/gateway/defs"
	"gitlab.com/judge-dispatch.net/internal/static/errs"
	"gitlab.com/judge-dispatch.net/internal/tracing"
)

var _ primary.TaskPublisher = (*TaskPublisher)(nil)

// TaskPublisher sends a consumed task to a worker slot. The task stays in the
// connection's in-flight set until the worker acks the delivery id.
type TaskPublisher struct {
	QueueService judgequeue.IJudgeQueueService
	Logger       primary.Logger
}

func NewTaskPublisher(queueService judgequeue.IJudgeQueueService, logger primary.Logger) *TaskPublisher {
	return &TaskPublisher{
		QueueService: queueService,
		Logger:       logger,
	}
}

func (p *TaskPublisher) PublishTask(ctx context.Context, peer primary.Peer, slotID interface{}, task *domain.Task) (err error) {
	_, span := tracing.StartSpan(ctx, "judge.deliverTask", trace.SpanKindProducer,
		attribute.String("taskId", task.ID),
		attribute.String("connectionId", peer.ConnectionID()),
	)
	defer func() { tracing.EndSpan(span, err) }()

	deliveryID, ok := peer.Track(task)
	if !ok {
		// teardown already drained the in-flight set, the task never left the server
		if returnErr := p.QueueService.ReturnTask(context.WithoutCancel(ctx), task); returnErr != nil {
			p.Logger.Error("Failed to return task", "taskId", task.ID, "error", returnErr)
		}
		return &errs.StaleConnectionError{ConnectionID: peer.ConnectionID(), Reason: "closed before delivery"}
	}

	if err := peer.Request(defs.EventTask, deliveryID, slotID, task); err != nil {
		// teardown requeues the tracked task
		peer.Close("task delivery failed")
		return fmt.Errorf("failed to send task %s: %w", task.ID, err)
	}

	p.Logger.Info("Task delivered", "taskId", task.ID, "connectionId", peer.ConnectionID(), "deliveryId", deliveryID)
	return nil
}
