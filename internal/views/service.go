package views

import (
	"context"

	"crmforge/internal/core/apperror"
	"crmforge/internal/core/id"
)

// Service applies view-set semantics on top of a Store: upsert by id and a
// single-default invariant per scope.
type Service struct {
	store Store
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

func (s *Service) List(ctx context.Context, scope Scope) ([]View, error) {
	return s.store.Get(ctx, scope)
}

// Save inserts or updates one view. A nil id means insert. Marking a view
// default clears the flag on every other view in the scope.
func (s *Service) Save(ctx context.Context, scope Scope, view View) (View, error) {
	existing, err := s.store.Get(ctx, scope)
	if err != nil {
		return View{}, err
	}

	if id.IsNil(view.ID) {
		view.ID = id.New()
		existing = append(existing, view)
	} else {
		found := false
		for i := range existing {
			if existing[i].ID == view.ID {
				existing[i] = view
				found = true
				break
			}
		}
		if !found {
			return View{}, apperror.NewNotFound("view", view.ID.String())
		}
	}

	if view.IsDefault {
		for i := range existing {
			if existing[i].ID != view.ID {
				existing[i].IsDefault = false
			}
		}
	}

	if err := s.store.Set(ctx, scope, existing); err != nil {
		return View{}, err
	}
	return view, nil
}

func (s *Service) Delete(ctx context.Context, scope Scope, viewID id.ID) error {
	existing, err := s.store.Get(ctx, scope)
	if err != nil {
		return err
	}

	kept := existing[:0]
	for _, v := range existing {
		if v.ID != viewID {
			kept = append(kept, v)
		}
	}
	if len(kept) == len(existing) {
		return apperror.NewNotFound("view", viewID.String())
	}
	return s.store.Set(ctx, scope, kept)
}
