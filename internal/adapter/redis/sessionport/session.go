package sessionport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-redis/redis/v8"

	"gitlab.com/judge-dispatch.net/internal/core/ports/primary"
	"gitlab.com/judge-dispatch.net/internal/core/ports/secondary"
	"gitlab.com/judge-dispatch.net/internal/static/errs"
)

const (
	sessionKeyPrefix    = "JudgeClient_SessionId_"
	systemInfoKeyPrefix = "JudgeClient_SystemInfo_"
)

var _ secondary.SessionStore = (*SessionRepository)(nil)

// releaseScript deletes the session and system info only if the session still holds ARGV[1]
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	redis.call("DEL", KEYS[1], KEYS[2])
	return 1
end
return 0
`)

// SessionRepository implements the SessionStore interface with Redis
type SessionRepository struct {
	redisClient redis.UniversalClient
	logger      primary.Logger
}

// NewSessionRepository creates a new Redis session store
func NewSessionRepository(redisClient redis.UniversalClient, logger primary.Logger) *SessionRepository {
	return &SessionRepository{
		redisClient: redisClient,
		logger:      logger,
	}
}

func sessionKey(judgeClientID int) string {
	return fmt.Sprintf("%s%d", sessionKeyPrefix, judgeClientID)
}

func systemInfoKey(judgeClientID int) string {
	return fmt.Sprintf("%s%d", systemInfoKeyPrefix, judgeClientID)
}

// BeginSession makes connectionID the only valid session of the judge client
func (r *SessionRepository) BeginSession(ctx context.Context, judgeClientID int, connectionID string) error {
	if err := r.redisClient.Set(ctx, sessionKey(judgeClientID), connectionID, 0).Err(); err != nil {
		r.logger.Error("Failed to begin session", "judgeClientId", judgeClientID, "error", err)
		return fmt.Errorf("failed to begin session: %w", err)
	}
	return nil
}

func (r *SessionRepository) currentSession(ctx context.Context, judgeClientID int) (string, error) {
	current, err := r.redisClient.Get(ctx, sessionKey(judgeClientID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", nil
		}
		r.logger.Error("Failed to get session", "judgeClientId", judgeClientID, "error", err)
		return "", fmt.Errorf("failed to get session: %w", err)
	}
	return current, nil
}

func (r *SessionRepository) IsSessionValid(ctx context.Context, judgeClientID int, connectionID string) (bool, error) {
	current, err := r.currentSession(ctx, judgeClientID)
	if err != nil {
		return false, err
	}
	return current != "" && current == connectionID, nil
}

func (r *SessionRepository) EndSession(ctx context.Context, judgeClientID int) error {
	if err := r.redisClient.Del(ctx, sessionKey(judgeClientID), systemInfoKey(judgeClientID)).Err(); err != nil {
		r.logger.Error("Failed to end session", "judgeClientId", judgeClientID, "error", err)
		return fmt.Errorf("failed to end session: %w", err)
	}
	return nil
}

func (r *SessionRepository) ReleaseSession(ctx context.Context, judgeClientID int, connectionID string) (bool, error) {
	released, err := releaseScript.Run(ctx, r.redisClient,
		[]string{sessionKey(judgeClientID), systemInfoKey(judgeClientID)}, connectionID).Int()
	if err != nil {
		r.logger.Error("Failed to release session", "judgeClientId", judgeClientID, "connectionId", connectionID, "error", err)
		return false, fmt.Errorf("failed to release session: %w", err)
	}
	return released == 1, nil
}

func (r *SessionRepository) SetSystemInfo(ctx context.Context, judgeClientID int, info json.RawMessage) error {
	if !json.Valid(info) {
		return fmt.Errorf("system info is not valid json: %w", errs.ErrMalformedCachedData)
	}
	if err := r.redisClient.Set(ctx, systemInfoKey(judgeClientID), []byte(info), 0).Err(); err != nil {
		r.logger.Error("Failed to save system info", "judgeClientId", judgeClientID, "error", err)
		return fmt.Errorf("failed to save system info: %w", err)
	}
	return nil
}

func (r *SessionRepository) GetSystemInfo(ctx context.Context, judgeClientID int) (json.RawMessage, error) {
	data, err := r.redisClient.Get(ctx, systemInfoKey(judgeClientID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		r.logger.Error("Failed to get system info", "judgeClientId", judgeClientID, "error", err)
		return nil, fmt.Errorf("failed to get system info: %w", err)
	}

	if !json.Valid(data) {
		r.logger.Warn("Ignoring malformed system info", "judgeClientId", judgeClientID, "error", errs.ErrMalformedCachedData)
		return nil, nil
	}
	return json.RawMessage(data), nil
}

func (r *SessionRepository) IsOnline(ctx context.Context, judgeClientID int) (bool, error) {
	current, err := r.currentSession(ctx, judgeClientID)
	if err != nil {
		return false, err
	}
	return current != "", nil
}
