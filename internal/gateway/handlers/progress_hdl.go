package handlers

import (
	"context"
	"encoding/json"

	"gitlab.com/judge-dispatch.net/internal/core/ports/primary"
	"gitlab.com/judge-dispatch.net/internal/core/services/judgequeue"
	"gitlab.com/judge-dispatch.net/internal/domain"
	"gitlab.com/judge-dispatch.net/internal/gateway/defs"
)

var _ primary.EventHandler = (*ProgressHandler)(nil)

// ProgressHandler forwards task progress to the queue's receivers.
// Accepts (taskMeta, progress) or a single {taskMeta, progress} object.
type ProgressHandler struct {
	QueueService judgequeue.IJudgeQueueService
	Logger       primary.Logger
}

func NewProgressHandler(queueService judgequeue.IJudgeQueueService, logger primary.Logger) *ProgressHandler {
	return &ProgressHandler{
		QueueService: queueService,
		Logger:       logger,
	}
}

func (h *ProgressHandler) HandleEvent(ctx context.Context, peer primary.Peer, id uint64, args []interface{}) error {
	var metaArg, progressArg interface{}
	switch len(args) {
	case 0:
	case 1:
		var message defs.ProgressMessage
		if err := defs.DecodeArg(args[0], &message); err != nil {
			h.reject(peer, "Invalid progress message")
			return err
		}
		metaArg, progressArg = message.TaskMeta, message.Progress
	default:
		metaArg, progressArg = args[0], args[1]
	}

	var meta domain.TaskMeta
	if metaArg != nil {
		if err := defs.DecodeArg(metaArg, &meta); err != nil {
			h.reject(peer, "Invalid task meta")
			return err
		}
	}
	if meta.TaskID == "" {
		h.reject(peer, "Progress without task id")
		return nil
	}

	var progress json.RawMessage
	if progressArg != nil {
		raw, err := defs.RawArg(progressArg)
		if err != nil {
			h.reject(peer, "Invalid progress payload")
			return err
		}
		progress = raw
	}

	h.QueueService.OnTaskProgress(ctx, meta, progress)
	return nil
}

func (h *ProgressHandler) reject(peer primary.Peer, message string) {
	h.Logger.Warn(message, "connectionId", peer.ConnectionID())
	_ = peer.Emit(defs.EventError, defs.ErrorData{Code: defs.CodeInvalidProgress, Message: message})
}
