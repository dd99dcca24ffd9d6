// Package domain provides shared types for record list queries and
// lifecycle hooks.
package domain

import (
	"context"

	"crmforge/internal/core/id"
	"crmforge/internal/domain/filter"
)

// ListFilter contains the common filtering options for record lists.
type ListFilter struct {
	// Search performs a substring search on searchable text fields.
	Search string

	// IDs restricts the result to specific records.
	IDs []id.ID

	// IncludeDeleted includes soft-deleted records.
	IncludeDeleted bool

	// Filters holds the saved-view or ad-hoc filter rows.
	Filters []filter.Item

	// OrderBy names the sort field; a "-" prefix means descending
	// (e.g. "-created_at").
	OrderBy string

	Limit  int
	Offset int
}

// DefaultListFilter returns sensible defaults.
func DefaultListFilter() ListFilter {
	return ListFilter{
		Limit:   50,
		OrderBy: "-created_at",
	}
}

// ListResult contains one page of results plus the total match count.
type ListResult[T any] struct {
	Items      []T   `json:"items"`
	TotalCount int64 `json:"totalCount"`
	Limit      int   `json:"limit"`
	Offset     int   `json:"offset"`
}

// HookEvent represents a record lifecycle event.
type HookEvent string

const (
	BeforeCreate HookEvent = "before_create"
	AfterCreate  HookEvent = "after_create"
	BeforeUpdate HookEvent = "before_update"
	AfterUpdate  HookEvent = "after_update"
	BeforeDelete HookEvent = "before_delete"
	AfterDelete  HookEvent = "after_delete"
)

// Hook is a function that runs at a lifecycle point. A before-hook error
// aborts the operation; after-hook errors are logged and swallowed.
type Hook[T any] func(ctx context.Context, entity T) error

// HookRegistry stores lifecycle hooks for an entity type.
type HookRegistry[T any] struct {
	hooks map[HookEvent][]Hook[T]
}

func NewHookRegistry[T any]() *HookRegistry[T] {
	return &HookRegistry[T]{hooks: make(map[HookEvent][]Hook[T])}
}

// On registers a hook for the event.
func (r *HookRegistry[T]) On(event HookEvent, hook Hook[T]) {
	r.hooks[event] = append(r.hooks[event], hook)
}

// Run executes all hooks for the event, stopping at the first error.
func (r *HookRegistry[T]) Run(ctx context.Context, event HookEvent, entity T) error {
	for _, hook := range r.hooks[event] {
		if err := hook(ctx, entity); err != nil {
			return err
		}
	}
	return nil
}
