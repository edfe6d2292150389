package secondary

import "context"

type FileService interface {
	GetDownloadLink(ctx context.Context, fileID string, filename *string, ephemeral bool) (string, error)
}
