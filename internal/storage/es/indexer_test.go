package es

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/DjordjeVuckovic/lantern/internal/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedRequest struct {
	Method string
	Path   string
	Body   string
}

type fakeCluster struct {
	mu          sync.Mutex
	requests    []recordedRequest
	indexExists bool
}

func (f *fakeCluster) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)

	f.mu.Lock()
	f.requests = append(f.requests, recordedRequest{Method: r.Method, Path: r.URL.Path, Body: string(body)})
	exists := f.indexExists
	f.mu.Unlock()

	w.Header().Set("X-Elastic-Product", "Elasticsearch")
	w.Header().Set("Content-Type", "application/json")

	switch {
	case r.Method == http.MethodHead && r.URL.Path == "/articles":
		if !exists {
			w.WriteHeader(http.StatusNotFound)
		}
	case r.Method == http.MethodPut && r.URL.Path == "/articles":
		_, _ = w.Write([]byte(`{"acknowledged":true,"shards_acknowledged":true,"index":"articles"}`))
	case r.Method == http.MethodPut && strings.HasPrefix(r.URL.Path, "/articles/_doc/"):
		id := strings.TrimPrefix(r.URL.Path, "/articles/_doc/")
		_, _ = w.Write([]byte(`{"_index":"articles","_id":"` + id + `","_version":1,"result":"created",` +
			`"_shards":{"total":1,"successful":1,"failed":0},"_seq_no":0,"_primary_term":1}`))
	case r.Method == http.MethodDelete:
		id := strings.TrimPrefix(r.URL.Path, "/articles/_doc/")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"_index":"articles","_id":"` + id + `","_version":1,"result":"not_found",` +
			`"_shards":{"total":1,"successful":1,"failed":0},"_seq_no":0,"_primary_term":1}`))
	default:
		_, _ = w.Write([]byte(`{}`))
	}
}

func (f *fakeCluster) recorded() []recordedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]recordedRequest(nil), f.requests...)
}

func newTestIndexer(t *testing.T, cluster *fakeCluster) *Indexer {
	t.Helper()
	srv := httptest.NewServer(cluster)
	t.Cleanup(srv.Close)

	idx, err := NewIndexer(context.Background(), ClientConfig{Addresses: []string{srv.URL}, IndexName: "articles"})
	require.NoError(t, err)
	return idx
}

func TestNewIndexer_CreatesMissingIndex(t *testing.T) {
	cluster := &fakeCluster{}
	newTestIndexer(t, cluster)

	reqs := cluster.recorded()
	require.Len(t, reqs, 2)
	assert.Equal(t, http.MethodHead, reqs[0].Method)
	assert.Equal(t, http.MethodPut, reqs[1].Method)
	assert.Contains(t, reqs[1].Body, `"slug"`)
	assert.Contains(t, reqs[1].Body, analyzerName)
}

func TestNewIndexer_ExistingIndex(t *testing.T) {
	cluster := &fakeCluster{indexExists: true}
	newTestIndexer(t, cluster)

	assert.Len(t, cluster.recorded(), 1)
}

func TestNewIndexer_IncompleteConfig(t *testing.T) {
	_, err := NewIndexer(context.Background(), ClientConfig{IndexName: "articles"})
	assert.Error(t, err)
}

func TestIndexer_IndexPublishedArticle(t *testing.T) {
	cluster := &fakeCluster{indexExists: true}
	idx := newTestIndexer(t, cluster)
	indexedAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	idx.now = func() time.Time { return indexedAt }

	a := domain.Article{
		ID:        uuid.New(),
		Title:     "Bridge reopens",
		Slug:      "bridge-reopens",
		Body:      "<p>secret markup</p>",
		Excerpt:   "The bridge reopens",
		Locality:  "Riverside",
		Published: true,
	}
	require.NoError(t, idx.IndexArticle(context.Background(), a))

	reqs := cluster.recorded()
	last := reqs[len(reqs)-1]
	assert.Equal(t, http.MethodPut, last.Method)
	assert.Equal(t, "/articles/_doc/"+a.ID.String(), last.Path)

	var doc ArticleDocument
	require.NoError(t, json.Unmarshal([]byte(last.Body), &doc))
	assert.Equal(t, "bridge-reopens", doc.Slug)
	assert.Equal(t, "Riverside", doc.Locality)
	assert.Equal(t, indexedAt, doc.IndexedAt)
	assert.NotContains(t, last.Body, "secret markup")
}

func TestIndexer_DraftIsRemoved(t *testing.T) {
	cluster := &fakeCluster{indexExists: true}
	idx := newTestIndexer(t, cluster)

	a := domain.Article{ID: uuid.New(), Slug: "draft", Published: false}
	require.NoError(t, idx.IndexArticle(context.Background(), a))

	reqs := cluster.recorded()
	last := reqs[len(reqs)-1]
	assert.Equal(t, http.MethodDelete, last.Method)
	assert.Equal(t, "/articles/_doc/"+a.ID.String(), last.Path)
}
