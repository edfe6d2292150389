package handlers

import (
	"context"
	"fmt"

	"gitlab.com/judge-dispatch.net/internal/core/ports/primary"
	"gitlab.com/judge-dispatch.net/internal/core/services/judgeclient"
	"gitlab.com/judge-dispatch.net/internal/gateway/defs"
)

var _ primary.EventHandler = (*SystemInfoHandler)(nil)

// SystemInfoHandler stores the hardware/software report a judge sends after ready
type SystemInfoHandler struct {
	JudgeClientService judgeclient.IJudgeClientService
	Logger             primary.Logger
}

func NewSystemInfoHandler(judgeClientService judgeclient.IJudgeClientService, logger primary.Logger) *SystemInfoHandler {
	return &SystemInfoHandler{
		JudgeClientService: judgeClientService,
		Logger:             logger,
	}
}

func (h *SystemInfoHandler) HandleEvent(ctx context.Context, peer primary.Peer, id uint64, args []interface{}) error {
	if len(args) == 0 || args[0] == nil {
		_ = peer.Emit(defs.EventError, defs.ErrorData{Code: defs.CodeInvalidSystemInfo, Message: "Missing system info"})
		return fmt.Errorf("systemInfo without payload")
	}

	info, err := defs.RawArg(args[0])
	if err != nil {
		_ = peer.Emit(defs.EventError, defs.ErrorData{Code: defs.CodeInvalidSystemInfo, Message: "Invalid system info"})
		return err
	}

	client := peer.JudgeClient()
	if err := h.JudgeClientService.UpdateSystemInfo(ctx, client, info); err != nil {
		return fmt.Errorf("failed to store system info: %w", err)
	}

	h.Logger.Debug("System info updated", "judgeClientId", client.ID, "connectionId", peer.ConnectionID())
	return nil
}
