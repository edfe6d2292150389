package judgeclientrepo

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitlab.com/judge-dispatch.net/internal/adapter/logging"
	"gitlab.com/judge-dispatch.net/internal/domain"
	"gitlab.com/judge-dispatch.net/internal/static/errs"
)

var judgeClientColumns = []string{"id", "name", "key", "allowed_hosts", "created_at"}

func newTestRepository(t *testing.T) (*JudgeClientRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		_ = db.Close()
	})
	return NewJudgeClientRepository(sqlx.NewDb(db, "postgres"), logging.NewNopLogger(), "public"), mock
}

func TestFindByKey(t *testing.T) {
	repo, mock := newTestRepository(t)
	created := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

	mock.ExpectQuery("SELECT id, name, key, allowed_hosts, created_at FROM public.judge_client WHERE key = $1 LIMIT 1").
		WithArgs("secret").
		WillReturnRows(sqlmock.NewRows(judgeClientColumns).AddRow(7, "judge-1", "secret", "{10.0.0.1}", created))

	client, err := repo.FindByKey(context.Background(), "secret")
	require.NoError(t, err)
	require.NotNil(t, client)
	assert.Equal(t, 7, client.ID)
	assert.Equal(t, "judge-1", client.Name)
	assert.Equal(t, pq.StringArray{"10.0.0.1"}, client.AllowedHosts)
	assert.Equal(t, created, client.CreatedAt)
}

func TestFindByKeyMissing(t *testing.T) {
	repo, mock := newTestRepository(t)

	mock.ExpectQuery("SELECT id, name, key, allowed_hosts, created_at FROM public.judge_client WHERE key = $1 LIMIT 1").
		WithArgs("bad-key").
		WillReturnRows(sqlmock.NewRows(judgeClientColumns))

	client, err := repo.FindByKey(context.Background(), "bad-key")
	require.NoError(t, err)
	assert.Nil(t, client)

	client, err = repo.FindByKey(context.Background(), "")
	require.NoError(t, err)
	assert.Nil(t, client)
}

func TestList(t *testing.T) {
	repo, mock := newTestRepository(t)
	now := time.Now()

	mock.ExpectQuery("SELECT id, name, key, allowed_hosts, created_at FROM public.judge_client ORDER BY id ASC").
		WillReturnRows(sqlmock.NewRows(judgeClientColumns).
			AddRow(1, "a", "ka", "{}", now).
			AddRow(2, "b", "kb", "{}", now))

	clients, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, clients, 2)
	assert.Equal(t, "b", clients[1].Name)
}

func TestCreate(t *testing.T) {
	repo, mock := newTestRepository(t)
	created := time.Date(2024, 5, 6, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery("INSERT INTO public.judge_client (name, key, allowed_hosts) VALUES ($1, $2, $3) RETURNING id, created_at").
		WithArgs("judge-2", "k2", pq.StringArray{"host"}).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(12, created))

	client := &domain.JudgeClient{Name: "judge-2", Key: "k2", AllowedHosts: pq.StringArray{"host"}}
	require.NoError(t, repo.Create(context.Background(), client))
	assert.Equal(t, 12, client.ID)
	assert.Equal(t, created, client.CreatedAt)
}

func TestUpdateKeyAndDelete(t *testing.T) {
	repo, mock := newTestRepository(t)
	ctx := context.Background()

	mock.ExpectExec("UPDATE public.judge_client SET key = $1 WHERE id = $2").
		WithArgs("new", 3).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM public.judge_client WHERE id = $1").
		WithArgs(3).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM public.judge_client WHERE id = $1").
		WithArgs(4).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.UpdateKey(ctx, 3, "new"))
	require.NoError(t, repo.Delete(ctx, 3))
	assert.ErrorIs(t, repo.Delete(ctx, 4), errs.ErrJudgeClientNotFound)
}
