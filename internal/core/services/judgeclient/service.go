package judgeclient

import (
	"context"
	"encoding/json"

	"gitlab.com/judge-dispatch.net/internal/domain"
)

// IJudgeClientService manages judge client identities and their live sessions
type IJudgeClientService interface {
	// FindByKey resolves a handshake credential. Unknown keys yield nil, nil.
	FindByKey(ctx context.Context, key string) (*domain.JudgeClient, error)

	// BeginSession binds connectionID as the client's only valid session
	BeginSession(ctx context.Context, client *domain.JudgeClient, connectionID string) error

	// CheckSession reports whether connectionID still holds the client's session
	CheckSession(ctx context.Context, client *domain.JudgeClient, connectionID string) (bool, error)

	// ReleaseSession ends the session if it still belongs to connectionID
	ReleaseSession(ctx context.Context, client *domain.JudgeClient, connectionID string) error

	UpdateSystemInfo(ctx context.Context, client *domain.JudgeClient, info json.RawMessage) error

	AddJudgeClient(ctx context.Context, name string, allowedHosts []string) (*domain.JudgeClient, error)

	// ResetJudgeClientKey issues a new key and drops the live session
	ResetJudgeClientKey(ctx context.Context, id int) (*domain.JudgeClient, error)

	DeleteJudgeClient(ctx context.Context, id int) error

	ListJudgeClients(ctx context.Context, showSensitive bool) ([]*domain.JudgeClientInfo, error)

	GetJudgeClientInfo(ctx context.Context, id int, showSensitive bool) (*domain.JudgeClientInfo, error)

	// SetDisconnectNotifier installs the hook that closes live connections of a client
	SetDisconnectNotifier(notifier func(judgeClientID int))
}
