// Package views stores per-user saved list views: named filter sets with
// column and sort preferences for one module. The storage backend is
// injected through the Store interface; the engine never talks to a browser
// storage API or any other concrete medium directly.
package views

import (
	"context"

	"crmforge/internal/core/id"
	"crmforge/internal/domain/filter"
)

// View is one saved list configuration.
type View struct {
	ID        id.ID         `json:"id"`
	Name      string        `json:"name"`
	Filters   []filter.Item `json:"filters,omitempty"`
	Columns   []string      `json:"columns,omitempty"`
	SortField string        `json:"sortField,omitempty"`
	SortDesc  bool          `json:"sortDesc,omitempty"`
	IsDefault bool          `json:"isDefault,omitempty"`
}

// Scope addresses one user's views for one module.
type Scope struct {
	UserID id.ID
	Module string
}

// Store is the injected persistence boundary for saved views.
type Store interface {
	// Get returns the views saved under scope; a scope with no saved views
	// yields an empty slice, not an error.
	Get(ctx context.Context, scope Scope) ([]View, error)
	// Set replaces the full view set under scope.
	Set(ctx context.Context, scope Scope, views []View) error
}
