// Package storage defines the persistence contracts of the publishing
// pipeline. Backends live in subpackages and are selected by Type.
package storage

import (
	"context"
	"errors"

	"github.com/DjordjeVuckovic/lantern/internal/domain"
	"github.com/DjordjeVuckovic/lantern/pkg/pagination"
	"github.com/google/uuid"
)

// ErrSlugTaken is returned by InsertArticle when another article already
// holds the slug.
var ErrSlugTaken = errors.New("slug already taken")

// ArticleReader lookups return apperr.ErrNotFound for missing articles.
type ArticleReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (domain.Article, error)
	GetBySlug(ctx context.Context, slug string) (domain.Article, error)
	SlugExists(ctx context.Context, slug string) (bool, error)
	// ListPublished returns one page of published articles, newest first,
	// and the total number of published articles.
	ListPublished(ctx context.Context, page pagination.OffsetRequest) ([]domain.Article, int64, error)
}

// Tx is the unit of work used by a publish or edit. Writes made through it
// become visible together or not at all.
type Tx interface {
	InsertArticle(ctx context.Context, article domain.Article) error
	UpdateArticle(ctx context.Context, article domain.Article) error
	AppendAudit(ctx context.Context, entry domain.AuditLogEntry) error
}

type ViewCounter interface {
	// IncrementViews adds one view atomically.
	IncrementViews(ctx context.Context, id uuid.UUID) error
	// TopViewed returns articles ordered by view count descending, ties
	// broken by the most recent creation time.
	TopViewed(ctx context.Context, limit int) ([]domain.Article, error)
	ViewSummary(ctx context.Context) (domain.ViewSummary, error)
}

type Store interface {
	ArticleReader
	ViewCounter
	AppendAudit(ctx context.Context, entry domain.AuditLogEntry) error
	// WithTx runs fn in a transaction, committing when fn returns nil.
	WithTx(ctx context.Context, fn func(tx Tx) error) error
}

type Type string

const (
	PG    Type = "pg"
	InMem Type = "in_mem"
)

type StorerError string

const (
	ErrUnsupportedStorer StorerError = "unsupported storer type: %s"
)

func (e StorerError) Error() string {
	return string(e)
}
