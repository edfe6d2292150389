package handlers

import (
	"context"

	"gitlab.com/judge-dispatch.net/internal/core/ports/primary"
	"gitlab.com/judge-dispatch.net/internal/core/services/judgequeue"
)

var _ primary.EventHandler = (*AckHandler)(nil)

// AckHandler settles a task delivery once the worker confirms it
type AckHandler struct {
	QueueService judgequeue.IJudgeQueueService
	Logger       primary.Logger
}

func NewAckHandler(queueService judgequeue.IJudgeQueueService, logger primary.Logger) *AckHandler {
	return &AckHandler{
		QueueService: queueService,
		Logger:       logger,
	}
}

func (h *AckHandler) HandleEvent(ctx context.Context, peer primary.Peer, id uint64, args []interface{}) error {
	task, ok := peer.Acknowledge(id)
	if !ok {
		h.Logger.Warn("Ack for unknown delivery", "connectionId", peer.ConnectionID(), "deliveryId", id)
		return nil
	}

	h.QueueService.AcknowledgeTask(ctx, task.ID)
	h.Logger.Debug("Task acknowledged", "taskId", task.ID, "connectionId", peer.ConnectionID())
	return nil
}
