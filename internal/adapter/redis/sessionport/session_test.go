package sessionport

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitlab.com/judge-dispatch.net/internal/adapter/logging"
)

func newTestRepository(t *testing.T) (*SessionRepository, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewSessionRepository(client, logging.NewNopLogger()), mr
}

func TestNewSessionSupersedesPrevious(t *testing.T) {
	repo, _ := newTestRepository(t)
	ctx := context.Background()

	require.NoError(t, repo.BeginSession(ctx, 1, "conn-a"))
	require.NoError(t, repo.BeginSession(ctx, 1, "conn-b"))

	valid, err := repo.IsSessionValid(ctx, 1, "conn-a")
	require.NoError(t, err)
	assert.False(t, valid)

	valid, err = repo.IsSessionValid(ctx, 1, "conn-b")
	require.NoError(t, err)
	assert.True(t, valid)

	online, err := repo.IsOnline(ctx, 1)
	require.NoError(t, err)
	assert.True(t, online)
}

func TestSessionKeysAreSharedWithOtherProcesses(t *testing.T) {
	repo, mr := newTestRepository(t)
	require.NoError(t, repo.BeginSession(context.Background(), 42, "conn-x"))

	stored, err := mr.Get("JudgeClient_SessionId_42")
	require.NoError(t, err)
	assert.Equal(t, "conn-x", stored)
}

func TestEndSessionIsIdempotent(t *testing.T) {
	repo, mr := newTestRepository(t)
	ctx := context.Background()

	require.NoError(t, repo.BeginSession(ctx, 5, "conn"))
	require.NoError(t, repo.SetSystemInfo(ctx, 5, json.RawMessage(`{"cpu":"x86"}`)))

	require.NoError(t, repo.EndSession(ctx, 5))
	require.NoError(t, repo.EndSession(ctx, 5))

	assert.False(t, mr.Exists("JudgeClient_SessionId_5"))
	assert.False(t, mr.Exists("JudgeClient_SystemInfo_5"))
	online, err := repo.IsOnline(ctx, 5)
	require.NoError(t, err)
	assert.False(t, online)
}

func TestReleaseSessionOnlyRemovesOwnSession(t *testing.T) {
	repo, _ := newTestRepository(t)
	ctx := context.Background()

	require.NoError(t, repo.BeginSession(ctx, 2, "old"))
	require.NoError(t, repo.BeginSession(ctx, 2, "new"))

	released, err := repo.ReleaseSession(ctx, 2, "old")
	require.NoError(t, err)
	assert.False(t, released)
	valid, err := repo.IsSessionValid(ctx, 2, "new")
	require.NoError(t, err)
	assert.True(t, valid)

	released, err = repo.ReleaseSession(ctx, 2, "new")
	require.NoError(t, err)
	assert.True(t, released)
	online, err := repo.IsOnline(ctx, 2)
	require.NoError(t, err)
	assert.False(t, online)
}

func TestSystemInfo(t *testing.T) {
	repo, mr := newTestRepository(t)
	ctx := context.Background()

	info, err := repo.GetSystemInfo(ctx, 9)
	require.NoError(t, err)
	assert.Nil(t, info)

	require.NoError(t, repo.SetSystemInfo(ctx, 9, json.RawMessage(`{"cores":8}`)))
	info, err = repo.GetSystemInfo(ctx, 9)
	require.NoError(t, err)
	assert.JSONEq(t, `{"cores":8}`, string(info))

	assert.Error(t, repo.SetSystemInfo(ctx, 9, json.RawMessage(`{broken`)))

	require.NoError(t, mr.Set("JudgeClient_SystemInfo_9", "{not json"))
	info, err = repo.GetSystemInfo(ctx, 9)
	require.NoError(t, err)
	assert.Nil(t, info)
}

func TestEmptySessionIsNeverValid(t *testing.T) {
	repo, _ := newTestRepository(t)
	valid, err := repo.IsSessionValid(context.Background(), 77, "")
	require.NoError(t, err)
	assert.False(t, valid)
}
