package search

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"curated/internal/config"
	"curated/internal/models"
)

func newFakeES(t *testing.T, handler http.HandlerFunc) (*ElasticsearchClient, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		if r.Method == http.MethodHead {
			w.WriteHeader(http.StatusOK)
			return
		}
		handler(w, r)
	}))

	c, err := NewElasticsearchClient(config.ElasticsearchConfig{URL: srv.URL, Index: "experiences", MaxRetries: 0})
	require.NoError(t, err)
	return c, srv
}

func TestSearchParsesHits(t *testing.T) {
	var body map[string]interface{}
	c, srv := newFakeES(t, func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/experiences/_search"))
		raw, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(raw, &body))
		_, _ = w.Write([]byte(`{"hits":{"total":{"value":1},"hits":[{"_source":{"id":"e-1","title":"Sunset kayak","price":50,"status":"approved"}}]}}`))
	})
	defer srv.Close()

	res, err := c.Search(context.Background(), "kayak", "", 2, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.Total)
	require.Len(t, res.Items, 1)
	assert.Equal(t, "Sunset kayak", res.Items[0].Title)
	assert.Equal(t, models.Money(5000), res.Items[0].Price)
	assert.Equal(t, float64(10), body["from"])
	assert.Equal(t, float64(10), body["size"])
}

func TestIndexAndDeleteExperience(t *testing.T) {
	var paths []string
	c, srv := newFakeES(t, func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.Method+" "+r.URL.Path)
		if r.Method == http.MethodDelete {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"result":"not_found"}`))
			return
		}
		_, _ = w.Write([]byte(`{"result":"created"}`))
	})
	defer srv.Close()

	require.NoError(t, c.IndexExperience(context.Background(), &models.Experience{ID: "e-1", Title: "x"}))
	require.NoError(t, c.DeleteExperience(context.Background(), "e-1"), "404 on delete is not an error")
	assert.Equal(t, []string{"PUT /experiences/_doc/e-1", "DELETE /experiences/_doc/e-1"}, paths)
}

func TestBuildSearchQueryAlwaysFiltersApproved(t *testing.T) {
	q := buildSearchQuery("", "food")
	filter := q["bool"].(map[string]interface{})["filter"].([]map[string]interface{})
	require.Len(t, filter, 2)
	assert.Equal(t, map[string]interface{}{"status": models.ExperienceStatusApproved}, filter[0]["term"])
}
