package judgeclientrepo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"gitlab.com/judge-dispatch.net/internal/core/ports/primary"
	"gitlab.com/judge-dispatch.net/internal/core/ports/secondary"
	"gitlab.com/judge-dispatch.net/internal/domain"
	"gitlab.com/judge-dispatch.net/internal/static/errs"
	querybuilder "gitlab.com/judge-dispatch.net/internal/utils"
)

var _ secondary.JudgeClientRepository = (*JudgeClientRepository)(nil)

// JudgeClientRepository implements the JudgeClientRepository interface with PostgreSQL
type JudgeClientRepository struct {
	db     *sqlx.DB
	logger primary.Logger
	schema string
}

// NewJudgeClientRepository creates a new PostgreSQL judge client repository
func NewJudgeClientRepository(db *sqlx.DB, logger primary.Logger, schema string) *JudgeClientRepository {
	return &JudgeClientRepository{
		db:     db,
		logger: logger,
		schema: schema,
	}
}

func (r *JudgeClientRepository) findOne(ctx context.Context, clause string, arg interface{}) (*domain.JudgeClient, error) {
	tbl := domain.GetJudgeClientTable()
	query, args, err := querybuilder.NewQueryBuilder(r.schema).
		Select(tbl.Columns()...).
		From(tbl.TableName()).
		Where(clause, arg).
		Limit(1).
		Build()
	if err != nil {
		return nil, err
	}

	var client domain.JudgeClient
	if err := r.db.GetContext(ctx, &client, r.db.Rebind(query), args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error("Failed to get judge client", "error", err)
		return nil, fmt.Errorf("failed to get judge client: %w", err)
	}
	return &client, nil
}

// FindByKey returns the judge client holding key, or nil when there is none
func (r *JudgeClientRepository) FindByKey(ctx context.Context, key string) (*domain.JudgeClient, error) {
	if key == "" {
		return nil, nil
	}
	return r.findOne(ctx, fmt.Sprintf("%s = ?", domain.GetJudgeClientTable().Key), key)
}

func (r *JudgeClientRepository) FindByID(ctx context.Context, id int) (*domain.JudgeClient, error) {
	return r.findOne(ctx, fmt.Sprintf("%s = ?", domain.GetJudgeClientTable().ID), id)
}

func (r *JudgeClientRepository) List(ctx context.Context) ([]*domain.JudgeClient, error) {
	tbl := domain.GetJudgeClientTable()
	query, args, err := querybuilder.NewQueryBuilder(r.schema).
		Select(tbl.Columns()...).
		From(tbl.TableName()).
		OrderBy(tbl.ID, true).
		Build()
	if err != nil {
		return nil, err
	}

	clients := make([]*domain.JudgeClient, 0)
	if err := r.db.SelectContext(ctx, &clients, r.db.Rebind(query), args...); err != nil {
		r.logger.Error("Failed to list judge clients", "error", err)
		return nil, fmt.Errorf("failed to list judge clients: %w", err)
	}
	return clients, nil
}

func (r *JudgeClientRepository) Create(ctx context.Context, client *domain.JudgeClient) error {
	tbl := domain.GetJudgeClientTable()
	query, args, err := querybuilder.NewQueryBuilder(r.schema).
		Insert(tbl.Name, tbl.Key, tbl.AllowedHosts).
		Into(tbl.TableName()).
		Values(client.Name, client.Key, client.AllowedHosts).
		Returning(tbl.ID, tbl.CreatedAt).
		Build()
	if err != nil {
		return err
	}

	row := r.db.QueryRowxContext(ctx, r.db.Rebind(query), args...)
	if err := row.Scan(&client.ID, &client.CreatedAt); err != nil {
		r.logger.Error("Failed to create judge client", "name", client.Name, "error", err)
		return fmt.Errorf("failed to create judge client: %w", err)
	}
	return nil
}

func (r *JudgeClientRepository) UpdateKey(ctx context.Context, id int, key string) error {
	tbl := domain.GetJudgeClientTable()
	query, args, err := querybuilder.NewQueryBuilder(r.schema).
		Update(tbl.TableName(), querybuilder.UpdateData{tbl.Key: key}).
		Where(fmt.Sprintf("%s = ?", tbl.ID), id).
		Build()
	if err != nil {
		return err
	}
	return r.execAffectingOne(ctx, "update judge client key", id, query, args)
}

func (r *JudgeClientRepository) Delete(ctx context.Context, id int) error {
	tbl := domain.GetJudgeClientTable()
	query, args, err := querybuilder.NewQueryBuilder(r.schema).
		Delete(tbl.TableName()).
		Where(fmt.Sprintf("%s = ?", tbl.ID), id).
		Build()
	if err != nil {
		return err
	}
	return r.execAffectingOne(ctx, "delete judge client", id, query, args)
}

func (r *JudgeClientRepository) execAffectingOne(ctx context.Context, op string, id int, query string, args []interface{}) error {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(query), args...)
	if err != nil {
		r.logger.Error("Failed to "+op, "judgeClientId", id, "error", err)
		return fmt.Errorf("failed to %s: %w", op, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to %s: %w", op, err)
	}
	if affected == 0 {
		return errs.ErrJudgeClientNotFound
	}
	return nil
}

// EnsureTableExists creates the judge_client table if it doesn't exist
func (r *JudgeClientRepository) EnsureTableExists(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS judge_client (
			id SERIAL PRIMARY KEY,
			name VARCHAR(80) NOT NULL,
			key VARCHAR(40) NOT NULL UNIQUE,
			allowed_hosts TEXT[] NOT NULL DEFAULT '{}',
			created_at TIMESTAMP NOT NULL DEFAULT NOW()
		)
	`

	if _, err := r.db.ExecContext(ctx, query); err != nil {
		r.logger.Error("Failed to create judge_client table", "error", err)
		return fmt.Errorf("failed to create judge_client table: %w", err)
	}
	return nil
}
