// Package views_repo persists saved list views. The whole view set of one
// user+module scope is a single JSONB document, written atomically, which
// keeps Set a true replace.
package views_repo

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"crmforge/internal/infrastructure/storage/postgres"
	"crmforge/internal/views"
)

// Store implements views.Store over PostgreSQL.
type Store struct{}

func New() *Store {
	return &Store{}
}

func (s *Store) builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

func (s *Store) querier(ctx context.Context) postgres.Querier {
	return postgres.MustGetTxManager(ctx).GetQuerier(ctx)
}

type viewsRow struct {
	Views []byte `db:"views"`
}

func (s *Store) Get(ctx context.Context, scope views.Scope) ([]views.View, error) {
	q := s.builder().
		Select("views").
		From("saved_views").
		Where(squirrel.Eq{"user_id": scope.UserID}).
		Where(squirrel.Eq{"module": scope.Module}).
		Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var row viewsRow
	if err := pgxscan.Get(ctx, s.querier(ctx), &row, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return []views.View{}, nil
		}
		return nil, fmt.Errorf("get saved views: %w", err)
	}

	var out []views.View
	if err := json.Unmarshal(row.Views, &out); err != nil {
		return nil, fmt.Errorf("decode saved views: %w", err)
	}
	return out, nil
}

func (s *Store) Set(ctx context.Context, scope views.Scope, viewSet []views.View) error {
	encoded, err := json.Marshal(viewSet)
	if err != nil {
		return fmt.Errorf("encode saved views: %w", err)
	}

	q := s.builder().
		Insert("saved_views").
		SetMap(map[string]any{
			"user_id": scope.UserID,
			"module":  scope.Module,
			"views":   encoded,
		}).
		Suffix("ON CONFLICT (user_id, module) DO UPDATE SET views = EXCLUDED.views")

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build upsert: %w", err)
	}
	if _, err := s.querier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("save views: %w", err)
	}
	return nil
}
