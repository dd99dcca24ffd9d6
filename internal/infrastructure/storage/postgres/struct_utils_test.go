package postgres

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"crmforge/internal/core/entity"
	"crmforge/internal/core/id"
)

type taggedEnvelope struct {
	entity.Record
	Extra   string `db:"extra" json:"extra"`
	Skipped string `json:"skipped"`
	Ignored string `db:"-"`
}

func TestExtractDBColumns_RecordEnvelope(t *testing.T) {
	cols := ExtractDBColumns[entity.Record]()

	expected := []string{
		"id", "module", "attributes", "deletion_mark", "version",
		"created_at", "updated_at", "created_by", "updated_by",
	}
	assert.ElementsMatch(t, expected, cols)
}

func TestExtractDBColumns_EmbeddedAndIgnored(t *testing.T) {
	cols := ExtractDBColumns[taggedEnvelope]()

	assert.Contains(t, cols, "id")
	assert.Contains(t, cols, "attributes")
	assert.Contains(t, cols, "extra")
	assert.NotContains(t, cols, "skipped")
	assert.NotContains(t, cols, "-")
}

func TestStructToMap_Record(t *testing.T) {
	now := time.Now().UTC()
	rec := entity.Record{
		ID:           id.New(),
		Module:       "deals",
		Values:       entity.Values{"name": "Acme renewal", "amount": 1500.0},
		DeletionMark: false,
		Version:      3,
		CreatedAt:    now,
		UpdatedAt:    now,
		CreatedBy:    "u-1",
	}

	m := StructToMap(rec)

	assert.Equal(t, rec.ID, m["id"])
	assert.Equal(t, "deals", m["module"])
	assert.Equal(t, rec.Values, m["attributes"])
	assert.Equal(t, 3, m["version"])
	assert.Equal(t, now, m["created_at"])
	assert.Equal(t, "u-1", m["created_by"])
}

func TestStructToMap_EmbeddedFlattens(t *testing.T) {
	env := taggedEnvelope{
		Record: entity.Record{ID: id.New(), Module: "leads", Version: 1},
		Extra:  "x",
	}

	m := StructToMap(env)

	assert.Equal(t, env.ID, m["id"])
	assert.Equal(t, "leads", m["module"])
	assert.Equal(t, "x", m["extra"])
	_, hasSkipped := m["skipped"]
	assert.False(t, hasSkipped)
}

func TestStructToMap_NonStruct(t *testing.T) {
	assert.Nil(t, StructToMap(42))
}
