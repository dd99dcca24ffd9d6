// Package record_repo provides the PostgreSQL record store. All modules
// share one table; the module column partitions it and the attributes JSONB
// column holds the field values.
//
// In Database-per-Tenant architecture:
// - TxManager is obtained from context per-request
// - No tenant filtering in queries (isolation is physical)
package record_repo

import (
	"context"
	"fmt"
	"strings"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"crmforge/internal/core/apperror"
	"crmforge/internal/core/entity"
	"crmforge/internal/core/id"
	"crmforge/internal/domain"
	"crmforge/internal/domain/filter"
	"crmforge/internal/infrastructure/storage/postgres"
)

const tableName = "records"

// selectCols come from the db tags on entity.Record, so the envelope struct
// stays the single source of truth for the column list.
var selectCols = postgres.ExtractDBColumns[entity.Record]()

// envelopeCols are the fixed columns filters and sorts may address directly;
// every other field name resolves into the attributes JSONB.
var envelopeCols = map[string]bool{
	"id":            true,
	"created_at":    true,
	"updated_at":    true,
	"created_by":    true,
	"updated_by":    true,
	"version":       true,
	"deletion_mark": true,
}

// Repo implements records.Repository over PostgreSQL.
type Repo struct{}

func New() *Repo {
	return &Repo{}
}

func (r *Repo) builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

func (r *Repo) querier(ctx context.Context) postgres.Querier {
	return postgres.MustGetTxManager(ctx).GetQuerier(ctx)
}

func (r *Repo) baseSelect() squirrel.SelectBuilder {
	return r.builder().Select(selectCols...).From(tableName)
}

func (r *Repo) Create(ctx context.Context, rec *entity.Record) error {
	q := r.builder().
		Insert(tableName).
		SetMap(postgres.StructToMap(*rec))

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := r.querier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert record: %w", err)
	}
	return nil
}

func (r *Repo) GetByID(ctx context.Context, module string, recordID id.ID) (entity.Record, error) {
	var rec entity.Record

	q := r.baseSelect().
		Where(squirrel.Eq{"module": module}).
		Where(squirrel.Eq{"id": recordID}).
		Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return rec, fmt.Errorf("build query: %w", err)
	}
	if err := pgxscan.Get(ctx, r.querier(ctx), &rec, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return rec, apperror.NewNotFound(module, recordID.String())
		}
		return rec, fmt.Errorf("get record: %w", err)
	}
	return rec, nil
}

// Update writes the record under an optimistic version check. The caller has
// already bumped rec.Version; the row must still hold the previous one.
func (r *Repo) Update(ctx context.Context, rec *entity.Record) error {
	q := r.builder().
		Update(tableName).
		SetMap(map[string]any{
			"attributes": rec.Values,
			"version":    rec.Version,
			"updated_at": rec.UpdatedAt,
			"updated_by": rec.UpdatedBy,
		}).
		Where(squirrel.Eq{"id": rec.ID}).
		Where(squirrel.Eq{"module": rec.Module}).
		Where(squirrel.Eq{"version": rec.Version - 1})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	result, err := r.querier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update record: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperror.NewConcurrentModification(rec.Module, rec.ID.String())
	}
	return nil
}

func (r *Repo) SetDeletionMark(ctx context.Context, module string, recordID id.ID, marked bool) error {
	q := r.builder().
		Update(tableName).
		Set("deletion_mark", marked).
		Set("version", squirrel.Expr("version + 1")).
		Where(squirrel.Eq{"id": recordID}).
		Where(squirrel.Eq{"module": module})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	result, err := r.querier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("set deletion mark: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperror.NewNotFound(module, recordID.String())
	}
	return nil
}

func (r *Repo) List(ctx context.Context, module string, f domain.ListFilter) (domain.ListResult[entity.Record], error) {
	result := domain.ListResult[entity.Record]{
		Limit:  f.Limit,
		Offset: f.Offset,
	}

	q := r.baseSelect().Where(squirrel.Eq{"module": module})

	if !f.IncludeDeleted {
		q = q.Where(squirrel.Eq{"deletion_mark": false})
	}
	if len(f.IDs) > 0 {
		q = q.Where(squirrel.Eq{"id": f.IDs})
	}
	if f.Search != "" {
		// Search hits the whole value bag; good enough for typeahead-scale
		// data, a trigram index covers larger tenants.
		q = q.Where(squirrel.ILike{"attributes::text": "%" + f.Search + "%"})
	}

	var err error
	q, err = applyFilters(q, f.Filters)
	if err != nil {
		return result, err
	}

	countQ := r.builder().Select("COUNT(*)").FromSelect(q, "sub")
	countSQL, countArgs, err := countQ.ToSql()
	if err != nil {
		return result, fmt.Errorf("build count query: %w", err)
	}

	querier := r.querier(ctx)
	if err := querier.QueryRow(ctx, countSQL, countArgs...).Scan(&result.TotalCount); err != nil {
		return result, fmt.Errorf("count records: %w", err)
	}

	orderBy, err := parseOrderBy(f.OrderBy)
	if err != nil {
		return result, err
	}
	q = q.OrderBy(orderBy)

	if f.Limit > 0 {
		q = q.Limit(uint64(f.Limit))
	}
	if f.Offset > 0 {
		q = q.Offset(uint64(f.Offset))
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return result, fmt.Errorf("build query: %w", err)
	}
	if err := pgxscan.Select(ctx, querier, &result.Items, sql, args...); err != nil {
		return result, fmt.Errorf("list records: %w", err)
	}
	return result, nil
}

// Search backs reference-field typeahead: substring match on the target
// module's display field.
func (r *Repo) Search(ctx context.Context, module, query, displayField string, limit int) ([]entity.Record, error) {
	if err := validFieldName(displayField); err != nil {
		return nil, err
	}

	expr := attrExpr(displayField)
	q := r.baseSelect().
		Where(squirrel.Eq{"module": module}).
		Where(squirrel.Eq{"deletion_mark": false}).
		Where(squirrel.ILike{expr: "%" + query + "%"}).
		OrderBy(expr).
		Limit(uint64(limit))

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build search: %w", err)
	}

	var items []entity.Record
	if err := pgxscan.Select(ctx, r.querier(ctx), &items, sql, args...); err != nil {
		return nil, fmt.Errorf("search records: %w", err)
	}
	return items, nil
}

// attrExpr addresses a value-bag field as text.
func attrExpr(field string) string {
	return fmt.Sprintf("attributes->>'%s'", field)
}

// validFieldName guards the JSONB path against injection: field names come
// from metadata but arrive through request parameters too.
func validFieldName(field string) error {
	if field == "" {
		return fmt.Errorf("empty field name")
	}
	for _, r := range field {
		ok := r == '_' ||
			(r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') ||
			(r >= '0' && r <= '9')
		if !ok {
			return fmt.Errorf("invalid field name: %q", field)
		}
	}
	return nil
}

// column resolves a filter/sort field to a SQL expression: envelope columns
// pass through, everything else goes into the attributes JSONB.
func column(field string) (string, error) {
	if envelopeCols[field] {
		return field, nil
	}
	if err := validFieldName(field); err != nil {
		return "", err
	}
	return attrExpr(field), nil
}

func applyFilters(q squirrel.SelectBuilder, items []filter.Item) (squirrel.SelectBuilder, error) {
	for _, item := range items {
		col, err := column(item.Field)
		if err != nil {
			return q, err
		}

		switch item.Operator {
		case filter.Equal:
			q = q.Where(squirrel.Eq{col: filterValue(col, item.Value)})
		case filter.NotEqual:
			q = q.Where(squirrel.NotEq{col: filterValue(col, item.Value)})
		case filter.LessOrEqual:
			q = q.Where(squirrel.LtOrEq{numericCol(col, item.Value): item.Value})
		case filter.GreaterOrEqual:
			q = q.Where(squirrel.GtOrEq{numericCol(col, item.Value): item.Value})
		case filter.InList:
			q = q.Where(squirrel.Eq{col: stringValues(item.Value)})
		case filter.NotInList:
			q = q.Where(squirrel.NotEq{col: stringValues(item.Value)})
		case filter.Contains:
			q = q.Where(squirrel.ILike{col: fmt.Sprintf("%%%v%%", item.Value)})
		case filter.NotContains:
			q = q.Where(squirrel.NotILike{col: fmt.Sprintf("%%%v%%", item.Value)})
		case filter.IsNull:
			q = q.Where(squirrel.Eq{col: nil})
		case filter.IsNotNull:
			q = q.Where(squirrel.NotEq{col: nil})
		default:
			return q, fmt.Errorf("unsupported filter operator: %s", item.Operator)
		}
	}
	return q, nil
}

// filterValue stringifies comparison values for JSONB text expressions;
// envelope columns keep their native types.
func filterValue(col string, value any) any {
	if !strings.HasPrefix(col, "attributes") || value == nil {
		return value
	}
	if s, ok := value.(string); ok {
		return s
	}
	return fmt.Sprint(value)
}

// numericCol casts a JSONB text expression to numeric when the comparison
// value is a number, so range filters on amounts compare numerically.
func numericCol(col string, value any) string {
	if !strings.HasPrefix(col, "attributes") {
		return col
	}
	switch value.(type) {
	case int, int64, float64:
		return fmt.Sprintf("(%s)::numeric", col)
	}
	return col
}

func stringValues(value any) []any {
	items, ok := value.([]any)
	if !ok {
		return []any{fmt.Sprint(value)}
	}
	out := make([]any, len(items))
	for i, item := range items {
		if s, ok := item.(string); ok {
			out[i] = s
		} else {
			out[i] = fmt.Sprint(item)
		}
	}
	return out
}

func parseOrderBy(orderBy string) (string, error) {
	if orderBy == "" {
		orderBy = "-created_at"
	}
	dir := "ASC"
	field := orderBy
	if strings.HasPrefix(orderBy, "-") {
		dir = "DESC"
		field = orderBy[1:]
	}

	col, err := column(field)
	if err != nil {
		return "", fmt.Errorf("invalid order field: %w", err)
	}
	return col + " " + dir, nil
}
