package filelink

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"gitlab.com/judge-dispatch.net/internal/config"
	"gitlab.com/judge-dispatch.net/internal/core/ports/primary"
	"gitlab.com/judge-dispatch.net/internal/core/ports/secondary"
)

var _ secondary.FileService = (*Service)(nil)

// Service issues signed download links for stored files
type Service struct {
	cfg    *config.FileLinkCfg
	jwt    primary.JWTService
	logger primary.Logger
}

func NewService(cfg *config.FileLinkCfg, jwt primary.JWTService, logger primary.Logger) *Service {
	return &Service{
		cfg:    cfg,
		jwt:    jwt,
		logger: logger,
	}
}

// GetDownloadLink returns <base>/<fileID>?token=<jwt>. Ephemeral links expire sooner.
func (s *Service) GetDownloadLink(ctx context.Context, fileID string, filename *string, ephemeral bool) (string, error) {
	if fileID == "" {
		return "", fmt.Errorf("file id is required")
	}

	claims := map[string]interface{}{
		"fid": fileID,
	}
	if filename != nil {
		claims["fn"] = *filename
	}

	ttl := s.cfg.TTL
	if ephemeral {
		ttl = s.cfg.EphemeralTTL
	}

	token, err := s.jwt.GenerateTokenHMAC(ctx, claims, ttl)
	if err != nil {
		s.logger.Error("Failed to sign download link", "fileId", fileID, "error", err)
		return "", fmt.Errorf("failed to sign download link: %w", err)
	}

	query := url.Values{}
	query.Set("token", token)
	if filename != nil {
		query.Set("filename", *filename)
	}

	return fmt.Sprintf("%s/%s?%s", strings.TrimRight(s.cfg.BaseURL, "/"), url.PathEscape(fileID), query.Encode()), nil
}
