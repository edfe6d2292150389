package judgeclient

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitlab.com/judge-dispatch.net/internal/adapter/logging"
	"gitlab.com/judge-dispatch.net/internal/adapter/redis/sessionport"
	"gitlab.com/judge-dispatch.net/internal/domain"
	"gitlab.com/judge-dispatch.net/internal/static/errs"
)

type memoryRepository struct {
	mu      sync.Mutex
	nextID  int
	clients map[int]*domain.JudgeClient
}

func newMemoryRepository() *memoryRepository {
	return &memoryRepository{clients: make(map[int]*domain.JudgeClient)}
}

func (m *memoryRepository) FindByKey(ctx context.Context, key string) (*domain.JudgeClient, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.clients {
		if c.Key == key {
			cp := *c
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memoryRepository) FindByID(ctx context.Context, id int) (*domain.JudgeClient, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.clients[id]
	if !ok {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

func (m *memoryRepository) List(ctx context.Context) ([]*domain.JudgeClient, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*domain.JudgeClient, 0, len(m.clients))
	for _, c := range m.clients {
		cp := *c
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memoryRepository) Create(ctx context.Context, client *domain.JudgeClient) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	client.ID = m.nextID
	client.CreatedAt = time.Now()
	cp := *client
	m.clients[client.ID] = &cp
	return nil
}

func (m *memoryRepository) UpdateKey(ctx context.Context, id int, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.clients[id]
	if !ok {
		return errs.ErrJudgeClientNotFound
	}
	c.Key = key
	return nil
}

func (m *memoryRepository) Delete(ctx context.Context, id int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.clients[id]; !ok {
		return errs.ErrJudgeClientNotFound
	}
	delete(m.clients, id)
	return nil
}

type fixture struct {
	svc      *JudgeClientService
	sessions *sessionport.SessionRepository
	kicked   []int
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	counter := 0
	keys := func() (string, error) {
		counter++
		return "key-" + string(rune('a'+counter-1)), nil
	}

	f := &fixture{sessions: sessionport.NewSessionRepository(client, logging.NewNopLogger())}
	f.svc = NewJudgeClientService(newMemoryRepository(), f.sessions, keys, logging.NewNopLogger())
	f.svc.SetDisconnectNotifier(func(id int) { f.kicked = append(f.kicked, id) })
	return f
}

func TestAddAndFindByKey(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	client, err := f.svc.AddJudgeClient(ctx, "  judge-1 ", []string{"10.0.0.2"})
	require.NoError(t, err)
	assert.Equal(t, "judge-1", client.Name)
	assert.Equal(t, "key-a", client.Key)

	found, err := f.svc.FindByKey(ctx, "key-a")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, client.ID, found.ID)

	missing, err := f.svc.FindByKey(ctx, "bad-key")
	require.NoError(t, err)
	assert.Nil(t, missing)

	_, err = f.svc.AddJudgeClient(ctx, " ", nil)
	assert.Error(t, err)
}

func TestSessionLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	client, err := f.svc.AddJudgeClient(ctx, "judge", nil)
	require.NoError(t, err)

	require.NoError(t, f.svc.BeginSession(ctx, client, "conn-1"))
	require.NoError(t, f.svc.BeginSession(ctx, client, "conn-2"))

	ok, err := f.svc.CheckSession(ctx, client, "conn-1")
	require.NoError(t, err)
	assert.False(t, ok)

	// the superseded connection going away leaves the new session alone
	require.NoError(t, f.svc.ReleaseSession(ctx, client, "conn-1"))
	ok, err = f.svc.CheckSession(ctx, client, "conn-2")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, f.svc.ReleaseSession(ctx, client, "conn-2"))
	online, err := f.sessions.IsOnline(ctx, client.ID)
	require.NoError(t, err)
	assert.False(t, online)
}

func TestResetKeyEndsSessionAndKicks(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	client, err := f.svc.AddJudgeClient(ctx, "judge", nil)
	require.NoError(t, err)
	require.NoError(t, f.svc.BeginSession(ctx, client, "conn"))

	updated, err := f.svc.ResetJudgeClientKey(ctx, client.ID)
	require.NoError(t, err)
	assert.Equal(t, "key-b", updated.Key)
	assert.Equal(t, []int{client.ID}, f.kicked)

	online, err := f.sessions.IsOnline(ctx, client.ID)
	require.NoError(t, err)
	assert.False(t, online)

	old, err := f.svc.FindByKey(ctx, "key-a")
	require.NoError(t, err)
	assert.Nil(t, old)

	_, err = f.svc.ResetJudgeClientKey(ctx, 999)
	assert.ErrorIs(t, err, errs.ErrJudgeClientNotFound)
}

func TestDeleteEndsSessionAndKicks(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	client, err := f.svc.AddJudgeClient(ctx, "judge", nil)
	require.NoError(t, err)
	require.NoError(t, f.svc.BeginSession(ctx, client, "conn"))

	require.NoError(t, f.svc.DeleteJudgeClient(ctx, client.ID))
	assert.Equal(t, []int{client.ID}, f.kicked)

	_, err = f.svc.GetJudgeClientInfo(ctx, client.ID, false)
	assert.ErrorIs(t, err, errs.ErrJudgeClientNotFound)
	assert.ErrorIs(t, f.svc.DeleteJudgeClient(ctx, client.ID), errs.ErrJudgeClientNotFound)
}

func TestInfoHidesSensitiveFields(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	client, err := f.svc.AddJudgeClient(ctx, "judge", []string{"h1"})
	require.NoError(t, err)
	require.NoError(t, f.svc.BeginSession(ctx, client, "conn"))
	require.NoError(t, f.svc.UpdateSystemInfo(ctx, client, json.RawMessage(`{"cpu":"arm64"}`)))

	public, err := f.svc.GetJudgeClientInfo(ctx, client.ID, false)
	require.NoError(t, err)
	assert.Nil(t, public.Key)
	assert.Nil(t, public.AllowedHosts)
	assert.True(t, public.Online)
	assert.JSONEq(t, `{"cpu":"arm64"}`, string(public.SystemInfo))

	list, err := f.svc.ListJudgeClients(ctx, true)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.NotNil(t, list[0].Key)
	assert.Equal(t, client.Key, *list[0].Key)
	assert.Equal(t, []string{"h1"}, list[0].AllowedHosts)
}
