package dto

import (
	"crmforge/internal/core/id"
	"crmforge/internal/domain/filter"
	"crmforge/internal/views"
)

// ViewResponse is one saved list view.
type ViewResponse struct {
	ID        string       `json:"id"`
	Name      string       `json:"name"`
	Filters   []FilterItem `json:"filters"`
	Columns   []string     `json:"columns"`
	SortField string       `json:"sortField,omitempty"`
	SortDesc  bool         `json:"sortDesc"`
	IsDefault bool         `json:"isDefault"`
}

// FromView creates ViewResponse from views.View.
func FromView(v views.View) ViewResponse {
	items := make([]FilterItem, 0, len(v.Filters))
	for _, f := range v.Filters {
		items = append(items, FilterItem{
			Field:    f.Field,
			Operator: string(f.Operator),
			Value:    f.Value,
		})
	}
	return ViewResponse{
		ID:        v.ID.String(),
		Name:      v.Name,
		Filters:   items,
		Columns:   v.Columns,
		SortField: v.SortField,
		SortDesc:  v.SortDesc,
		IsDefault: v.IsDefault,
	}
}

// SaveViewRequest creates or updates a saved view. A nil ID inserts.
type SaveViewRequest struct {
	ID        *string      `json:"id"`
	Name      string       `json:"name" binding:"required"`
	Filters   []FilterItem `json:"filters"`
	Columns   []string     `json:"columns"`
	SortField string       `json:"sortField"`
	SortDesc  bool         `json:"sortDesc"`
	IsDefault bool         `json:"isDefault"`
}

// ToView converts the request into a domain view.
func (r SaveViewRequest) ToView() (views.View, error) {
	v := views.View{
		Name:      r.Name,
		Columns:   r.Columns,
		SortField: r.SortField,
		SortDesc:  r.SortDesc,
		IsDefault: r.IsDefault,
	}
	if r.ID != nil {
		parsed, err := id.Parse(*r.ID)
		if err != nil {
			return v, err
		}
		v.ID = parsed
	}
	for _, item := range r.Filters {
		v.Filters = append(v.Filters, filter.Item{
			Field:    item.Field,
			Operator: filter.ComparisonType(item.Operator),
			Value:    item.Value,
		})
	}
	return v, nil
}
