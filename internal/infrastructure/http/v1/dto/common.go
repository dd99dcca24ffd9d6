// Package dto provides Data Transfer Objects for API requests/responses.
package dto

import (
	"time"

	"crmforge/internal/core/entity"
	"crmforge/internal/core/id"
	"crmforge/internal/domain"
	"crmforge/internal/domain/filter"
)

// --- Pagination ---

// PaginationRequest contains pagination parameters.
type PaginationRequest struct {
	Page     int `form:"page" binding:"min=1"`
	PageSize int `form:"pageSize" binding:"min=1,max=100"`
}

// Defaults sets default pagination values.
func (p *PaginationRequest) Defaults() {
	if p.Page == 0 {
		p.Page = 1
	}
	if p.PageSize == 0 {
		p.PageSize = 20
	}
}

// Offset calculates SQL offset.
func (p *PaginationRequest) Offset() int {
	return (p.Page - 1) * p.PageSize
}

// PaginationResponse contains pagination metadata.
type PaginationResponse struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"pageSize"`
	TotalItems int64 `json:"totalItems"`
	TotalPages int   `json:"totalPages"`
}

// NewPaginationResponse creates pagination response.
func NewPaginationResponse(page, pageSize int, totalItems int64) PaginationResponse {
	totalPages := int(totalItems) / pageSize
	if int(totalItems)%pageSize > 0 {
		totalPages++
	}
	return PaginationResponse{
		Page:       page,
		PageSize:   pageSize,
		TotalItems: totalItems,
		TotalPages: totalPages,
	}
}

// --- List Response ---

// ListResponse wraps list results with pagination.
type ListResponse struct {
	Items      any   `json:"items"`
	TotalCount int64 `json:"totalCount"`
	Limit      int   `json:"limit"`
	Offset     int   `json:"offset"`
}

// GenericListResponse wraps list results with pagination (generic version).
type GenericListResponse[T any] struct {
	Data       []T                `json:"data"`
	Pagination PaginationResponse `json:"pagination"`
}

// --- Record DTOs ---

// RecordResponse contains a record envelope and its value bag.
type RecordResponse struct {
	ID           string        `json:"id"`
	Module       string        `json:"module"`
	Values       entity.Values `json:"values"`
	DeletionMark bool          `json:"deletionMark"`
	Version      int           `json:"version"`
	CreatedAt    time.Time     `json:"createdAt"`
	UpdatedAt    time.Time     `json:"updatedAt"`
	CreatedBy    string        `json:"createdBy,omitempty"`
	UpdatedBy    string        `json:"updatedBy,omitempty"`
}

// FromRecord creates RecordResponse from entity.Record.
func FromRecord(r entity.Record) RecordResponse {
	return RecordResponse{
		ID:           r.ID.String(),
		Module:       r.Module,
		Values:       r.Values,
		DeletionMark: r.DeletionMark,
		Version:      r.Version,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
		CreatedBy:    r.CreatedBy,
		UpdatedBy:    r.UpdatedBy,
	}
}

// FromRecords converts a slice of records.
func FromRecords(recs []entity.Record) []RecordResponse {
	out := make([]RecordResponse, 0, len(recs))
	for _, r := range recs {
		out = append(out, FromRecord(r))
	}
	return out
}

// CreateRecordRequest for creating records.
type CreateRecordRequest struct {
	Values entity.Values `json:"values" binding:"required"`
}

// UpdateRecordRequest for updating records with optimistic locking.
type UpdateRecordRequest struct {
	Values  entity.Values `json:"values" binding:"required"`
	Version int           `json:"version" binding:"required,min=1"`
}

// FilterItem is a single list filter condition.
type FilterItem struct {
	Field    string `json:"field" binding:"required"`
	Operator string `json:"operator" binding:"required"`
	Value    any    `json:"value"`
}

// ListRecordsRequest for filtered record listing.
type ListRecordsRequest struct {
	Search         string       `json:"search"`
	IDs            []string     `json:"ids"`
	IncludeDeleted bool         `json:"includeDeleted"`
	Filters        []FilterItem `json:"filters"`
	OrderBy        string       `json:"orderBy"`
	Limit          int          `json:"limit" binding:"omitempty,min=1,max=200"`
	Offset         int          `json:"offset" binding:"omitempty,min=0"`
}

// ToListFilter converts the request into a domain filter.
func (r ListRecordsRequest) ToListFilter() (domain.ListFilter, error) {
	f := domain.DefaultListFilter()
	f.Search = r.Search
	f.IncludeDeleted = r.IncludeDeleted
	if r.OrderBy != "" {
		f.OrderBy = r.OrderBy
	}
	if r.Limit > 0 {
		f.Limit = r.Limit
	}
	f.Offset = r.Offset
	ids, err := id.ParseAll(r.IDs)
	if err != nil {
		return f, err
	}
	f.IDs = ids
	for _, item := range r.Filters {
		f.Filters = append(f.Filters, filter.Item{
			Field:    item.Field,
			Operator: filter.ComparisonType(item.Operator),
			Value:    item.Value,
		})
	}
	return f, nil
}

// BulkRemoveRequest for batch soft deletes.
type BulkRemoveRequest struct {
	IDs []string `json:"ids" binding:"required,min=1"`
}

// BulkRemoveResponse reports per-record outcomes.
type BulkRemoveResponse struct {
	Removed int               `json:"removed"`
	Failed  map[string]string `json:"failed,omitempty"`
}

// --- ID Response ---

// IDResponse for create operations.
type IDResponse struct {
	ID string `json:"id"`
}

// NewIDResponse creates ID response.
func NewIDResponse(i id.ID) IDResponse {
	return IDResponse{ID: i.String()}
}

// --- Success Response ---

// SuccessResponse for operations without data.
type SuccessResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// --- Error Response ---

// ErrorResponse for error details.
type ErrorResponse struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// --- Deletion ---
type SetDeletionMarkRequest struct {
	Marked bool `json:"marked"`
}
