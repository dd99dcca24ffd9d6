package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crmforge/internal/core/entity"
	"crmforge/internal/metadata"
)

func TestBulkRemove_ReportsCountAndPerIDFailures(t *testing.T) {
	gin.SetMode(gin.TestMode)

	source := &staticSource{
		system: []metadata.FieldDescriptor{
			{APIName: "lastName", FieldType: metadata.TypeText},
		},
	}
	repo := newMemRepo()
	ctx := context.Background()

	var ids []string
	for i := 0; i < 2; i++ {
		rec := entity.NewRecord("leads", entity.Values{"lastName": "x"})
		require.NoError(t, repo.Create(ctx, &rec))
		ids = append(ids, rec.ID.String())
	}
	stuck := entity.NewRecord("leads", entity.Values{"lastName": "y"})
	require.NoError(t, repo.Create(ctx, &stuck))
	repo.failOn[stuck.ID] = errors.New("row locked")
	ids = append(ids, stuck.ID.String())

	h := NewRecordsHandler(NewBaseHandler(), newTestRecordsService(repo, source), leadsRegistry())
	r := gin.New()
	r.POST("/modules/:module/records/bulk-remove", h.BulkRemove)

	body, _ := json.Marshal(map[string]any{"ids": ids})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/modules/leads/records/bulk-remove", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		Removed int               `json:"removed"`
		Failed  map[string]string `json:"failed"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Removed)
	require.Len(t, resp.Failed, 1)
	assert.Contains(t, resp.Failed, stuck.ID.String())
}
