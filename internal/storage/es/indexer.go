// Package es mirrors published articles into an Elasticsearch index for
// the portal's search frontend.
package es

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/DjordjeVuckovic/lantern/internal/domain"
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/typedapi/types"
)

type Indexer struct {
	client    *elasticsearch.TypedClient
	indexName string
	now       func() time.Time
}

func NewIndexer(ctx context.Context, config ClientConfig) (*Indexer, error) {
	client, err := newClient(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create Elasticsearch client: %w", err)
	}

	idx := &Indexer{
		client:    client,
		indexName: config.IndexName,
		now:       time.Now,
	}
	if err := idx.EnsureIndex(ctx); err != nil {
		return nil, fmt.Errorf("failed to ensure index exists: %w", err)
	}
	return idx, nil
}

// IndexArticle upserts a published article and removes a draft, so an
// article taken offline by an edit disappears from search.
func (e *Indexer) IndexArticle(ctx context.Context, article domain.Article) error {
	id := article.ID.String()

	if !article.Published {
		_, err := e.client.Delete(e.indexName, id).Do(ctx)
		var esErr *types.ElasticsearchError
		if err != nil && !(errors.As(err, &esErr) && esErr.Status == http.StatusNotFound) {
			return fmt.Errorf("failed to remove draft from index: %w", err)
		}
		slog.Debug("draft removed from index", "id", id, "index", e.indexName)
		return nil
	}

	res, err := e.client.Index(e.indexName).
		Id(id).
		Document(toDocument(article, e.now())).
		Do(ctx)
	if err != nil {
		return fmt.Errorf("failed to index document: %w", err)
	}

	slog.Info("document indexed successfully", "id", id, "index", e.indexName, "result", res.Result)
	return nil
}

func (e *Indexer) EnsureIndex(ctx context.Context) error {
	exists, err := e.client.Indices.Exists(e.indexName).Do(ctx)
	if err != nil {
		return fmt.Errorf("failed to check if index exists: %w", err)
	}
	if exists {
		slog.Info("Index already exists", "index", e.indexName)
		return nil
	}

	settings := buildSettings()
	mappings := buildMapping()

	res, err := e.client.Indices.Create(e.indexName).
		Settings(&settings).
		Mappings(&mappings).
		Do(ctx)
	if err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}
	if !res.Acknowledged {
		return fmt.Errorf("index creation was not acknowledged")
	}

	slog.Info("Index created successfully", "index", e.indexName)
	return nil
}

// Healthy pings the cluster.
func (e *Indexer) Healthy(ctx context.Context) bool {
	ok, err := e.client.Ping().IsSuccess(ctx)
	return err == nil && ok
}
