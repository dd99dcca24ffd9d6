package entity

import (
	"time"

	"crmforge/internal/core/id"
)

// Record is one tenant record of any module (leads, deals, contacts, ...).
// All records share this envelope; the module's field descriptors give the
// Values bag its shape.
type Record struct {
	ID     id.ID  `db:"id" json:"id"`
	Module string `db:"module" json:"module"`

	Values Values `db:"attributes" json:"values,omitempty"`

	// DeletionMark marks a soft-deleted record.
	DeletionMark bool `db:"deletion_mark" json:"deletionMark"`

	// Version for optimistic locking, incremented on each update.
	Version int `db:"version" json:"version"`

	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
	CreatedBy string    `db:"created_by" json:"createdBy,omitempty"`
	UpdatedBy string    `db:"updated_by" json:"updatedBy,omitempty"`
}

// NewRecord creates a record for module with a generated UUIDv7 id and
// version 1.
func NewRecord(module string, values Values) Record {
	now := time.Now().UTC()
	return Record{
		ID:        id.New(),
		Module:    module,
		Values:    values,
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Touch bumps the version and the update timestamp.
func (r *Record) Touch() {
	r.Version++
	r.UpdatedAt = time.Now().UTC()
}

// MarkDeleted sets the deletion mark.
func (r *Record) MarkDeleted() {
	r.DeletionMark = true
}

// SetValue adds or updates one field value.
func (r *Record) SetValue(key string, value any) {
	if r.Values == nil {
		r.Values = make(Values)
	}
	r.Values[key] = value
}
