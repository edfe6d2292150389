package handlers

import (
	"context"
	"errors"

	"gitlab.com/judge-dispatch.net/internal/core/ports/primary"
	"gitlab.com/judge-dispatch.net/internal/core/services/judgeclient"
	"gitlab.com/judge-dispatch.net/internal/core/services/judgequeue"
	"gitlab.com/judge-dispatch.net/internal/domain"
	"gitlab.com/judge-dispatch.net/internal/static/errs"
)

var _ primary.EventHandler = (*ConsumeTaskHandler)(nil)

// ConsumeTaskHandler fetches one task for a worker slot. The wait happens in its own
// goroutine bound to the connection context, so other events keep flowing.
type ConsumeTaskHandler struct {
	QueueService       judgequeue.IJudgeQueueService
	JudgeClientService judgeclient.IJudgeClientService
	Publisher          primary.TaskPublisher
	Logger             primary.Logger
}

func NewConsumeTaskHandler(
	queueService judgequeue.IJudgeQueueService,
	judgeClientService judgeclient.IJudgeClientService,
	publisher primary.TaskPublisher,
	logger primary.Logger,
) *ConsumeTaskHandler {
	return &ConsumeTaskHandler{
		QueueService:       queueService,
		JudgeClientService: judgeClientService,
		Publisher:          publisher,
		Logger:             logger,
	}
}

func (h *ConsumeTaskHandler) HandleEvent(_ context.Context, peer primary.Peer, id uint64, args []interface{}) error {
	var slotID interface{}
	if len(args) > 0 {
		slotID = args[0]
	}

	go h.consumeOnce(peer, slotID)
	return nil
}

func (h *ConsumeTaskHandler) consumeOnce(peer primary.Peer, slotID interface{}) {
	ctx := peer.Context()

	if !h.checkConnection(ctx, peer) {
		return
	}

	task, err := h.QueueService.ConsumeTask(ctx)
	if err != nil {
		if ctx.Err() == nil && !errors.Is(err, errs.ErrQueueClosed) {
			h.Logger.Error("Failed to consume task", "connectionId", peer.ConnectionID(), "error", err)
		}
		return
	}

	if !h.checkConnection(ctx, peer) {
		h.giveBack(ctx, peer, task)
		return
	}

	if err := h.Publisher.PublishTask(ctx, peer, slotID, task); err != nil {
		h.Logger.Warn("Task delivery failed", "taskId", task.ID, "connectionId", peer.ConnectionID(), "error", err)
	}
}

// checkConnection reports whether the peer is open and still holds its judge client's session.
// A superseded peer is closed.
func (h *ConsumeTaskHandler) checkConnection(ctx context.Context, peer primary.Peer) bool {
	if ctx.Err() != nil {
		return false
	}

	valid, err := h.JudgeClientService.CheckSession(ctx, peer.JudgeClient(), peer.ConnectionID())
	if err != nil {
		if ctx.Err() == nil {
			h.Logger.Error("Failed to check session", "connectionId", peer.ConnectionID(), "error", err)
		}
		return false
	}
	if !valid {
		stale := &errs.StaleConnectionError{ConnectionID: peer.ConnectionID(), Reason: "session superseded"}
		h.Logger.Warn("Closing stale connection", "error", stale)
		peer.Close(stale.Reason)
		return false
	}
	return ctx.Err() == nil
}

// giveBack returns a task the worker never saw, so it keeps its place and delivery count
func (h *ConsumeTaskHandler) giveBack(ctx context.Context, peer primary.Peer, task *domain.Task) {
	if err := h.QueueService.ReturnTask(context.WithoutCancel(ctx), task); err != nil {
		h.Logger.Error("Failed to return task", "taskId", task.ID, "error", err)
		return
	}
	h.Logger.Info("Connection lost before delivery, task returned", "taskId", task.ID, "connectionId", peer.ConnectionID())
}
