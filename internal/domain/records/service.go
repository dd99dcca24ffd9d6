package records

import (
	"context"
	"sync"

	"crmforge/internal/core/apperror"
	appctx "crmforge/internal/core/context"
	"crmforge/internal/core/entity"
	"crmforge/internal/core/id"
	"crmforge/internal/core/tenant"
	"crmforge/internal/core/tx"
	"crmforge/internal/domain"
	"crmforge/internal/forms"
	"crmforge/internal/metadata"
	"crmforge/pkg/logger"
)

// Service provides record CRUD for every module. Field descriptors come
// from the metadata source at call time, so tenant schema changes take
// effect without redeploying.
//
// In database-per-tenant mode TxManager is nil and is taken from the
// request context instead.
type Service struct {
	repo      Repository
	source    metadata.Source
	validator *forms.Validator
	txManager tx.Manager
	hooks     *domain.HookRegistry[entity.Record]
}

type ServiceConfig struct {
	Repo      Repository
	Source    metadata.Source
	Validator *forms.Validator
	TxManager tx.Manager // optional
}

func NewService(cfg ServiceConfig) *Service {
	return &Service{
		repo:      cfg.Repo,
		source:    cfg.Source,
		validator: cfg.Validator,
		txManager: cfg.TxManager,
		hooks:     domain.NewHookRegistry[entity.Record](),
	}
}

// Hooks returns the lifecycle hook registry (audit wiring registers here).
func (s *Service) Hooks() *domain.HookRegistry[entity.Record] {
	return s.hooks
}

func (s *Service) getTxManager(ctx context.Context) (tx.Manager, error) {
	if s.txManager != nil {
		return s.txManager, nil
	}
	return tenant.GetTxManager(ctx)
}

// fields loads the module's full, ordered field list.
func (s *Service) fields(ctx context.Context, module string) ([]metadata.FieldDescriptor, error) {
	system, custom, err := s.source.GetFieldsForModule(ctx, module)
	if err != nil {
		return nil, apperror.NewMetadataFetch(module, err)
	}
	layout, err := s.source.GetActiveLayout(ctx, module, metadata.ViewEdit)
	if err != nil {
		// A missing layout is not fatal; fall back to plain ordering.
		logger.Warn(ctx, "layout load failed, using field order",
			"module", module, "error", err)
		layout = nil
	}
	return metadata.ResolveOrder(system, custom, layout), nil
}

// activeRole returns the caller's role for visibility filtering; "" for
// anonymous (public form) requests.
func activeRole(ctx context.Context) string {
	if u := appctx.GetUser(ctx); u != nil && len(u.Roles) > 0 {
		return u.Roles[0]
	}
	return ""
}

func (s *Service) List(ctx context.Context, module string, f domain.ListFilter) (domain.ListResult[entity.Record], error) {
	return s.repo.List(ctx, module, f)
}

func (s *Service) GetByID(ctx context.Context, module string, recordID id.ID) (entity.Record, error) {
	return s.repo.GetByID(ctx, module, recordID)
}

// Create validates values against the module's schema and inserts the
// record. Validation failures return the aggregated field errors; the
// repository is never reached.
func (s *Service) Create(ctx context.Context, module string, values entity.Values) (entity.Record, error) {
	fields, err := s.fields(ctx, module)
	if err != nil {
		return entity.Record{}, err
	}

	if errs := s.validator.ValidateAll(ctx, fields, values, activeRole(ctx)); len(errs) > 0 {
		return entity.Record{}, apperror.NewFieldErrors(errs)
	}

	rec := entity.NewRecord(module, values)
	rec.CreatedBy = appctx.GetUserID(ctx)
	rec.UpdatedBy = rec.CreatedBy

	if err := s.hooks.Run(ctx, domain.BeforeCreate, rec); err != nil {
		return entity.Record{}, err
	}

	txm, err := s.getTxManager(ctx)
	if err != nil {
		return entity.Record{}, apperror.NewInternal(err).WithDetail("missing", "tx_manager")
	}
	if err := txm.RunInTransaction(ctx, func(ctx context.Context) error {
		return s.repo.Create(ctx, &rec)
	}); err != nil {
		return entity.Record{}, err
	}

	if err := s.hooks.Run(ctx, domain.AfterCreate, rec); err != nil {
		logger.Warn(ctx, "after-create hook failed", "module", module, "error", err)
	}
	return rec, nil
}

// Update merges values into the stored record and saves it under an
// optimistic version check. expectedVersion is the version the caller last
// read; a mismatch fails with a concurrent-modification error.
func (s *Service) Update(ctx context.Context, module string, recordID id.ID, values entity.Values, expectedVersion int) (entity.Record, error) {
	rec, err := s.repo.GetByID(ctx, module, recordID)
	if err != nil {
		return entity.Record{}, err
	}
	if rec.Version != expectedVersion {
		return entity.Record{}, apperror.NewConcurrentModification(module, recordID.String())
	}

	merged := rec.Values.Clone()
	if merged == nil {
		merged = make(entity.Values)
	}
	for k, v := range values {
		merged[k] = v
	}

	fields, err := s.fields(ctx, module)
	if err != nil {
		return entity.Record{}, err
	}
	if errs := s.validator.ValidateAll(ctx, fields, merged, activeRole(ctx)); len(errs) > 0 {
		return entity.Record{}, apperror.NewFieldErrors(errs)
	}

	rec.Values = merged
	rec.UpdatedBy = appctx.GetUserID(ctx)
	rec.Touch()

	if err := s.hooks.Run(ctx, domain.BeforeUpdate, rec); err != nil {
		return entity.Record{}, err
	}

	txm, err := s.getTxManager(ctx)
	if err != nil {
		return entity.Record{}, apperror.NewInternal(err).WithDetail("missing", "tx_manager")
	}
	if err := txm.RunInTransaction(ctx, func(ctx context.Context) error {
		return s.repo.Update(ctx, &rec)
	}); err != nil {
		return entity.Record{}, err
	}

	if err := s.hooks.Run(ctx, domain.AfterUpdate, rec); err != nil {
		logger.Warn(ctx, "after-update hook failed", "module", module, "error", err)
	}
	return rec, nil
}

// Remove soft-deletes one record.
func (s *Service) Remove(ctx context.Context, module string, recordID id.ID) error {
	rec, err := s.repo.GetByID(ctx, module, recordID)
	if err != nil {
		return err
	}

	if err := s.hooks.Run(ctx, domain.BeforeDelete, rec); err != nil {
		return err
	}

	txm, err := s.getTxManager(ctx)
	if err != nil {
		return apperror.NewInternal(err).WithDetail("missing", "tx_manager")
	}
	if err := txm.RunInTransaction(ctx, func(ctx context.Context) error {
		return s.repo.SetDeletionMark(ctx, module, recordID, true)
	}); err != nil {
		return err
	}

	if err := s.hooks.Run(ctx, domain.AfterDelete, rec); err != nil {
		logger.Warn(ctx, "after-delete hook failed", "module", module, "error", err)
	}
	return nil
}

// BulkResult reports the outcome of a bulk operation: per-id errors, no
// cross-record rollback.
type BulkResult struct {
	Removed []id.ID         `json:"removed"`
	Failed  map[id.ID]error `json:"-"`
}

// BulkRemove soft-deletes records concurrently. Each record succeeds or
// fails on its own; one failure never rolls back the others.
func (s *Service) BulkRemove(ctx context.Context, module string, ids []id.ID) BulkResult {
	var (
		mu     sync.Mutex
		wg     sync.WaitGroup
		result = BulkResult{Failed: make(map[id.ID]error)}
	)

	for _, recordID := range ids {
		wg.Add(1)
		go func(recordID id.ID) {
			defer wg.Done()
			if err := s.Remove(ctx, module, recordID); err != nil {
				mu.Lock()
				result.Failed[recordID] = err
				mu.Unlock()
				return
			}
			mu.Lock()
			result.Removed = append(result.Removed, recordID)
			mu.Unlock()
		}(recordID)
	}
	wg.Wait()
	return result
}

// SearchOptions runs the reference typeahead query for a field pointing at
// this module and maps matches to id/label options.
func (s *Service) SearchOptions(ctx context.Context, module, query, displayField string, limit int) ([]entity.Record, error) {
	return s.repo.Search(ctx, module, query, displayField, limit)
}
