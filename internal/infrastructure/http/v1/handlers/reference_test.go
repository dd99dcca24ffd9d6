package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crmforge/internal/core/id"
	"crmforge/internal/domain/auth"
	"crmforge/internal/metadata"
)

// staticUsers is a fixed-result UserSearcher.
type staticUsers struct {
	users      []auth.User
	lastFilter auth.UserFilter
}

func (s *staticUsers) ListUsers(_ context.Context, filter auth.UserFilter) ([]auth.User, int, error) {
	s.lastFilter = filter
	return s.users, len(s.users), nil
}

func ownerSource() *staticSource {
	return &staticSource{
		system: []metadata.FieldDescriptor{
			{APIName: "lastName", FieldType: metadata.TypeText},
			{APIName: "owner", FieldType: metadata.TypeUserLookup,
				ReferenceConfig: &metadata.ReferenceConfig{TargetModule: "users", DisplayField: "name"}},
		},
	}
}

func newReferenceTestRouter(users UserSearcher) *gin.Engine {
	gin.SetMode(gin.TestMode)
	source := ownerSource()
	h := NewReferenceHandler(NewBaseHandler(), newTestRecordsService(newMemRepo(), source), source, leadsRegistry(), users)
	r := gin.New()
	r.GET("/modules/:module/fields/:apiName/options", h.Options)
	return r
}

func TestReferenceOptions_UserLookupSearchesUserStore(t *testing.T) {
	adaID := id.New()
	searcher := &staticUsers{users: []auth.User{
		{ID: adaID, Email: "ada@example.com", FirstName: "Ada", LastName: "Lovelace"},
	}}
	r := newReferenceTestRouter(searcher)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/modules/leads/fields/owner/options?q=ada", nil)
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		Items []struct {
			ID    string `json:"id"`
			Label string `json:"label"`
		} `json:"items"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Items, 1)
	assert.Equal(t, adaID.String(), resp.Items[0].ID)
	assert.Equal(t, "Ada Lovelace", resp.Items[0].Label)

	assert.Equal(t, "ada", searcher.lastFilter.Search)
	if assert.NotNil(t, searcher.lastFilter.IsActive) {
		assert.True(t, *searcher.lastFilter.IsActive)
	}
}

func TestReferenceOptions_UserLookupWithoutAuthWiring(t *testing.T) {
	r := newReferenceTestRouter(nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/modules/leads/fields/owner/options?q=ada", nil)
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Items []any `json:"items"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Empty(t, resp.Items)
}
