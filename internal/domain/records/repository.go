// Package records provides the module-agnostic record store: every CRM
// module (leads, deals, contacts, tenant-defined ones) persists through the
// same service, with field descriptors supplying the per-module shape.
package records

import (
	"context"

	"crmforge/internal/core/entity"
	"crmforge/internal/core/id"
	"crmforge/internal/domain"
)

// Repository defines persistence for records of one tenant. Implementations
// must return apperror.NewNotFound for missing ids and
// apperror.NewConcurrentModification on a version conflict.
type Repository interface {
	Create(ctx context.Context, rec *entity.Record) error

	GetByID(ctx context.Context, module string, recordID id.ID) (entity.Record, error)

	// Update applies an optimistic version check: the stored version must
	// equal rec.Version-1.
	Update(ctx context.Context, rec *entity.Record) error

	// SetDeletionMark soft-deletes or restores a record.
	SetDeletionMark(ctx context.Context, module string, recordID id.ID, marked bool) error

	List(ctx context.Context, module string, f domain.ListFilter) (domain.ListResult[entity.Record], error)

	// Search performs the typeahead query behind reference fields: substring
	// match on the module's display field, capped at limit.
	Search(ctx context.Context, module, query, displayField string, limit int) ([]entity.Record, error)
}
