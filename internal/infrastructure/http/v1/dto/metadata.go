package dto

import (
	"crmforge/internal/metadata"
)

// --- Modules ---

// ModuleResponse describes one registered business module.
type ModuleResponse struct {
	Name   string `json:"name"`
	Label  string `json:"label"`
	Fields int    `json:"fields"`
}

// FromModuleDef creates ModuleResponse from metadata.ModuleDef.
func FromModuleDef(def metadata.ModuleDef) ModuleResponse {
	return ModuleResponse{
		Name:   def.Name,
		Label:  def.Label,
		Fields: len(def.SystemFields),
	}
}

// --- Fields ---

// FieldsResponse returns a module's schema split into system and custom
// fields, plus the layout-resolved display order.
type FieldsResponse struct {
	Module  string                     `json:"module"`
	System  []metadata.FieldDescriptor `json:"system"`
	Custom  []metadata.FieldDescriptor `json:"custom"`
	Ordered []metadata.FieldDescriptor `json:"ordered"`
}

// SaveFieldRequest carries a field definition for create or update. The
// payload is intentionally the raw heterogeneous shape; normalization
// happens server-side.
type SaveFieldRequest struct {
	metadata.RawField
}

// --- Layouts ---

// SaveLayoutRequest replaces the active layout for a module + view type.
type SaveLayoutRequest struct {
	ViewType string                   `json:"viewType" binding:"required"`
	Sections []metadata.LayoutSection `json:"sections" binding:"required"`
}

// LayoutResponse wraps an optional layout.
type LayoutResponse struct {
	Layout *metadata.Layout `json:"layout"`
}

// --- Form definitions ---

// SaveFormDefinitionRequest creates or replaces a named form definition.
type SaveFormDefinitionRequest struct {
	ID       string                 `json:"id" binding:"required"`
	Name     string                 `json:"name" binding:"required"`
	IsPublic bool                   `json:"isPublic"`
	Mappings []metadata.FormMapping `json:"mappings" binding:"required"`
	Settings metadata.FormSettings  `json:"settings"`
}

// CacheStatsResponse reports schema cache occupancy.
type CacheStatsResponse struct {
	Modules int `json:"modules"`
	Layouts int `json:"layouts"`
	Forms   int `json:"forms"`
}
