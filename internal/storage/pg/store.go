package pg

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/DjordjeVuckovic/lantern/internal/apperr"
	"github.com/DjordjeVuckovic/lantern/internal/domain"
	"github.com/DjordjeVuckovic/lantern/internal/storage"
	"github.com/DjordjeVuckovic/lantern/pkg/pagination"
	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const (
	uniqueViolation   = "23505"
	slugConstraint    = "articles_slug_key"
	articleColumnList = "id, title, slug, body, excerpt, media_reference, media_kind, category, keywords, author, locality, view_count, published, created_at, updated_at"
)

var articleColumns = []string{
	"id", "title", "slug", "body", "excerpt", "media_reference", "media_kind", "category",
	"keywords", "author", "locality", "view_count", "published", "created_at", "updated_at",
}

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// Store is the Postgres implementation of storage.Store.
type Store struct {
	db DB
}

var _ storage.Store = (*Store)(nil)

func NewStore(db DB) *Store {
	return &Store{db: db}
}

func NewStoreFromPool(pool *ConnectionPool) *Store {
	return &Store{db: pool.conn}
}

func (s *Store) GetByID(ctx context.Context, id uuid.UUID) (domain.Article, error) {
	row := s.db.QueryRow(ctx, "SELECT "+articleColumnList+" FROM articles WHERE id = $1", id)
	a, err := scanArticle(row)
	if err != nil {
		return domain.Article{}, notFoundOr(err, "failed to get article by id")
	}
	return a, nil
}

func (s *Store) GetBySlug(ctx context.Context, slug string) (domain.Article, error) {
	row := s.db.QueryRow(ctx, "SELECT "+articleColumnList+" FROM articles WHERE slug = $1", slug)
	a, err := scanArticle(row)
	if err != nil {
		return domain.Article{}, notFoundOr(err, "failed to get article by slug")
	}
	return a, nil
}

func (s *Store) SlugExists(ctx context.Context, slug string) (bool, error) {
	var exists bool
	err := s.db.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM articles WHERE slug = $1)", slug).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check slug: %w", err)
	}
	return exists, nil
}

func (s *Store) ListPublished(ctx context.Context, page pagination.OffsetRequest) ([]domain.Article, int64, error) {
	countSQL, countArgs, err := psql.Select("COUNT(*)").
		From("articles").
		Where(sq.Eq{"published": true}).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build count query: %w", err)
	}

	var total int64
	if err := s.db.QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count published articles: %w", err)
	}

	listSQL, listArgs, err := psql.Select(articleColumns...).
		From("articles").
		Where(sq.Eq{"published": true}).
		OrderBy("created_at DESC", "id").
		Limit(uint64(page.Size)).
		Offset(uint64(page.Offset())).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build feed query: %w", err)
	}

	articles, err := s.queryArticles(ctx, listSQL, listArgs...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list published articles: %w", err)
	}
	return articles, total, nil
}

func (s *Store) IncrementViews(ctx context.Context, id uuid.UUID) error {
	tag, err := s.db.Exec(ctx, "UPDATE articles SET view_count = view_count + 1 WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to increment views: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("article %s: %w", id, apperr.ErrNotFound)
	}
	return nil
}

func (s *Store) TopViewed(ctx context.Context, limit int) ([]domain.Article, error) {
	if limit <= 0 {
		return []domain.Article{}, nil
	}

	query, args, err := psql.Select(articleColumns...).
		From("articles").
		OrderBy("view_count DESC", "created_at DESC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build ranking query: %w", err)
	}

	articles, err := s.queryArticles(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to rank articles: %w", err)
	}
	return articles, nil
}

func (s *Store) ViewSummary(ctx context.Context) (domain.ViewSummary, error) {
	var sum domain.ViewSummary
	err := s.db.QueryRow(ctx, `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE published),
		       COALESCE(SUM(view_count), 0)::BIGINT
		FROM articles
	`).Scan(&sum.Articles, &sum.PublishedArticles, &sum.TotalViews)
	if err != nil {
		return domain.ViewSummary{}, fmt.Errorf("failed to summarize views: %w", err)
	}
	if sum.Articles > 0 {
		sum.AverageViews = float64(sum.TotalViews) / float64(sum.Articles)
	}
	return sum, nil
}

func (s *Store) AppendAudit(ctx context.Context, entry domain.AuditLogEntry) error {
	return appendAudit(ctx, s.db, entry)
}

// WithTx runs fn inside a database transaction. The transaction is rolled
// back when fn fails and committed otherwise.
func (s *Store) WithTx(ctx context.Context, fn func(tx storage.Tx) error) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := fn(&txStore{tx: tx}); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			slog.Error("failed to roll back transaction", "error", rbErr)
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (s *Store) queryArticles(ctx context.Context, query string, args ...any) ([]domain.Article, error) {
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	articles := make([]domain.Article, 0)
	for rows.Next() {
		a, err := scanArticle(rows)
		if err != nil {
			return nil, err
		}
		articles = append(articles, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return articles, nil
}

type txStore struct {
	tx pgx.Tx
}

func (t *txStore) InsertArticle(ctx context.Context, a domain.Article) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO articles (`+articleColumnList+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`,
		a.ID, a.Title, a.Slug, a.Body, a.Excerpt, a.MediaReference, string(a.MediaKind), a.Category,
		a.Keywords, a.Author, a.Locality, a.ViewCount, a.Published, a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation && pgErr.ConstraintName == slugConstraint {
			return fmt.Errorf("insert %q: %w", a.Slug, storage.ErrSlugTaken)
		}
		return fmt.Errorf("failed to insert article: %w", err)
	}
	return nil
}

// UpdateArticle writes the editable fields. id, slug, author, view_count
// and created_at are never touched.
func (t *txStore) UpdateArticle(ctx context.Context, a domain.Article) error {
	tag, err := t.tx.Exec(ctx, `
		UPDATE articles
		SET title = $2, body = $3, excerpt = $4, media_reference = $5, media_kind = $6,
		    category = $7, keywords = $8, locality = $9, published = $10, updated_at = $11
		WHERE id = $1
	`,
		a.ID, a.Title, a.Body, a.Excerpt, a.MediaReference, string(a.MediaKind),
		a.Category, a.Keywords, a.Locality, a.Published, a.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update article: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("article %s: %w", a.ID, apperr.ErrNotFound)
	}
	return nil
}

func (t *txStore) AppendAudit(ctx context.Context, entry domain.AuditLogEntry) error {
	return appendAudit(ctx, t.tx, entry)
}

func appendAudit(ctx context.Context, q querier, e domain.AuditLogEntry) error {
	_, err := q.Exec(ctx, `
		INSERT INTO audit_log (id, actor_id, action, outcome, detail, remote_addr, "timestamp")
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, e.ID, e.ActorID, string(e.Action), string(e.Outcome), e.Detail, e.RemoteAddr, e.Timestamp)
	if err != nil {
		return fmt.Errorf("failed to append audit entry: %w", err)
	}
	return nil
}

func scanArticle(row pgx.Row) (domain.Article, error) {
	var (
		a    domain.Article
		kind string
	)
	err := row.Scan(
		&a.ID,
		&a.Title,
		&a.Slug,
		&a.Body,
		&a.Excerpt,
		&a.MediaReference,
		&kind,
		&a.Category,
		&a.Keywords,
		&a.Author,
		&a.Locality,
		&a.ViewCount,
		&a.Published,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		return domain.Article{}, err
	}
	a.MediaKind = domain.MediaKind(kind)
	return a, nil
}

func notFoundOr(err error, msg string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return apperr.ErrNotFound
	}
	return fmt.Errorf("%s: %w", msg, err)
}
