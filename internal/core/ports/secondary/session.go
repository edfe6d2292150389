package secondary

import (
	"context"
	"encoding/json"
)

// SessionStore binds a judge client to its single live connection
type SessionStore interface {
	// BeginSession overwrites any existing session of the client
	BeginSession(ctx context.Context, judgeClientID int, connectionID string) error

	IsSessionValid(ctx context.Context, judgeClientID int, connectionID string) (bool, error)

	// EndSession removes the session and cached system info. Idempotent.
	EndSession(ctx context.Context, judgeClientID int) error

	// ReleaseSession ends the session only while it still belongs to connectionID
	ReleaseSession(ctx context.Context, judgeClientID int, connectionID string) (bool, error)

	SetSystemInfo(ctx context.Context, judgeClientID int, info json.RawMessage) error

	// GetSystemInfo returns nil for absent or unreadable data
	GetSystemInfo(ctx context.Context, judgeClientID int) (json.RawMessage, error)

	IsOnline(ctx context.Context, judgeClientID int) (bool, error)
}
