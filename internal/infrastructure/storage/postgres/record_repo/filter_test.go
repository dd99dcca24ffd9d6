package record_repo

import (
	"testing"

	"crmforge/internal/domain/filter"
)

func TestApplyFilters_SQL(t *testing.T) {
	repo := New()

	tests := []struct {
		name    string
		item    filter.Item
		wantSQL string
	}{
		{
			name:    "equal on value bag field",
			item:    filter.Item{Field: "stage", Operator: filter.Equal, Value: "won"},
			wantSQL: "SELECT id, module, attributes, deletion_mark, version, created_at, updated_at, created_by, updated_by FROM records WHERE attributes->>'stage' = $1",
		},
		{
			name:    "equal on envelope column",
			item:    filter.Item{Field: "created_by", Operator: filter.Equal, Value: "u-1"},
			wantSQL: "SELECT id, module, attributes, deletion_mark, version, created_at, updated_at, created_by, updated_by FROM records WHERE created_by = $1",
		},
		{
			name:    "numeric range casts the JSONB text",
			item:    filter.Item{Field: "amount", Operator: filter.GreaterOrEqual, Value: 1000},
			wantSQL: "SELECT id, module, attributes, deletion_mark, version, created_at, updated_at, created_by, updated_by FROM records WHERE (attributes->>'amount')::numeric >= $1",
		},
		{
			name:    "contains uses ILIKE",
			item:    filter.Item{Field: "name", Operator: filter.Contains, Value: "acme"},
			wantSQL: "SELECT id, module, attributes, deletion_mark, version, created_at, updated_at, created_by, updated_by FROM records WHERE attributes->>'name' ILIKE $1",
		},
		{
			name:    "null check",
			item:    filter.Item{Field: "account", Operator: filter.IsNull},
			wantSQL: "SELECT id, module, attributes, deletion_mark, version, created_at, updated_at, created_by, updated_by FROM records WHERE attributes->>'account' IS NULL",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := applyFilters(repo.baseSelect(), []filter.Item{tt.item})
			if err != nil {
				t.Fatalf("applyFilters failed: %v", err)
			}
			sql, _, err := q.ToSql()
			if err != nil {
				t.Fatalf("ToSql failed: %v", err)
			}
			if sql != tt.wantSQL {
				t.Errorf("SQL mismatch\nwant: %s\ngot:  %s", tt.wantSQL, sql)
			}
		})
	}
}

func TestApplyFilters_RejectsBadFieldName(t *testing.T) {
	_, err := applyFilters(New().baseSelect(), []filter.Item{
		{Field: "name'; DROP TABLE records;--", Operator: filter.Equal, Value: "x"},
	})
	if err == nil {
		t.Fatal("expected error for malicious field name")
	}
}

func TestParseOrderBy(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", "created_at DESC"},
		{"-created_at", "created_at DESC"},
		{"created_at", "created_at ASC"},
		{"name", "attributes->>'name' ASC"},
		{"-amount", "attributes->>'amount' DESC"},
	}
	for _, tt := range tests {
		got, err := parseOrderBy(tt.in)
		if err != nil {
			t.Fatalf("parseOrderBy(%q) failed: %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("parseOrderBy(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
