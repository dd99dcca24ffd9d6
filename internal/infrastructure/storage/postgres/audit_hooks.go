package postgres

import (
	"context"

	"crmforge/internal/core/entity"
	"crmforge/internal/domain"
	"crmforge/internal/domain/records"
)

// RegisterRecordAudit wires the audit trail into the record lifecycle.
// After-hooks only: a failed audit write is logged by the service and never
// rolls back the record operation.
func RegisterRecordAudit(svc *records.Service, audit *AuditService) {
	svc.Hooks().On(domain.AfterCreate, func(ctx context.Context, rec entity.Record) error {
		return audit.LogChange(ctx, rec.Module, rec.ID, AuditActionCreate, Diff(nil, rec.Values))
	})
	svc.Hooks().On(domain.AfterUpdate, func(ctx context.Context, rec entity.Record) error {
		return audit.LogChange(ctx, rec.Module, rec.ID, AuditActionUpdate, Diff(nil, rec.Values))
	})
	svc.Hooks().On(domain.AfterDelete, func(ctx context.Context, rec entity.Record) error {
		return audit.LogChange(ctx, rec.Module, rec.ID, AuditActionDelete, nil)
	})
}
