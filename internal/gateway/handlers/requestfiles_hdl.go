package handlers

import (
	"context"
	"fmt"

	"gitlab.com/judge-dispatch.net/internal/core/ports/primary"
	"gitlab.com/judge-dispatch.net/internal/core/ports/secondary"
	"gitlab.com/judge-dispatch.net/internal/gateway/defs"
)

var _ primary.EventHandler = (*RequestFilesHandler)(nil)

// RequestFilesHandler answers a list of file ids with download links in the same order
type RequestFilesHandler struct {
	FileService secondary.FileService
	Logger      primary.Logger
}

func NewRequestFilesHandler(fileService secondary.FileService, logger primary.Logger) *RequestFilesHandler {
	return &RequestFilesHandler{
		FileService: fileService,
		Logger:      logger,
	}
}

func (h *RequestFilesHandler) HandleEvent(ctx context.Context, peer primary.Peer, id uint64, args []interface{}) error {
	var fileIDs []string
	if len(args) > 0 {
		if err := defs.DecodeArg(args[0], &fileIDs); err != nil {
			_ = peer.Emit(defs.EventError, defs.ErrorData{Code: defs.CodeRequestFilesFailed, Message: "Invalid file id list"})
			return err
		}
	}

	urls := make([]string, 0, len(fileIDs))
	for _, fileID := range fileIDs {
		url, err := h.FileService.GetDownloadLink(ctx, fileID, nil, true)
		if err != nil {
			_ = peer.Emit(defs.EventError, defs.ErrorData{Code: defs.CodeRequestFilesFailed, Message: "Failed to create download link"})
			return fmt.Errorf("failed to create download link for %s: %w", fileID, err)
		}
		urls = append(urls, url)
	}

	if id == 0 {
		h.Logger.Warn("requestFiles without request id, dropping reply", "connectionId", peer.ConnectionID())
		return nil
	}
	return peer.Reply(id, urls)
}
