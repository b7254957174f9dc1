package in_mem

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/DjordjeVuckovic/lantern/internal/apperr"
	"github.com/DjordjeVuckovic/lantern/internal/domain"
	"github.com/DjordjeVuckovic/lantern/internal/storage"
	"github.com/DjordjeVuckovic/lantern/pkg/pagination"
	"github.com/google/uuid"
)

// Store keeps articles and the audit log in process memory. It is used by
// tests and by single-node deployments without a database.
type Store struct {
	mu       sync.RWMutex
	articles map[uuid.UUID]domain.Article
	slugs    map[string]uuid.UUID
	audit    []domain.AuditLogEntry
}

var _ storage.Store = (*Store)(nil)

func NewStore() *Store {
	return &Store{
		articles: make(map[uuid.UUID]domain.Article),
		slugs:    make(map[string]uuid.UUID),
	}
}

func (s *Store) GetByID(_ context.Context, id uuid.UUID) (domain.Article, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.articles[id]
	if !ok {
		return domain.Article{}, fmt.Errorf("article %s: %w", id, apperr.ErrNotFound)
	}
	return a, nil
}

func (s *Store) GetBySlug(_ context.Context, slug string) (domain.Article, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.slugs[slug]
	if !ok {
		return domain.Article{}, fmt.Errorf("article %q: %w", slug, apperr.ErrNotFound)
	}
	return s.articles[id], nil
}

func (s *Store) SlugExists(_ context.Context, slug string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.slugs[slug]
	return ok, nil
}

func (s *Store) ListPublished(_ context.Context, page pagination.OffsetRequest) ([]domain.Article, int64, error) {
	s.mu.RLock()
	published := make([]domain.Article, 0, len(s.articles))
	for _, a := range s.articles {
		if a.Published {
			published = append(published, a)
		}
	}
	s.mu.RUnlock()

	sort.Slice(published, func(i, j int) bool {
		return published[i].CreatedAt.After(published[j].CreatedAt)
	})

	total := int64(len(published))
	start := page.Offset()
	if start >= len(published) {
		return []domain.Article{}, total, nil
	}
	end := min(start+page.Size, len(published))
	return published[start:end], total, nil
}

func (s *Store) IncrementViews(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.articles[id]
	if !ok {
		return fmt.Errorf("article %s: %w", id, apperr.ErrNotFound)
	}
	a.ViewCount++
	s.articles[id] = a
	return nil
}

func (s *Store) TopViewed(_ context.Context, limit int) ([]domain.Article, error) {
	if limit <= 0 {
		return []domain.Article{}, nil
	}

	s.mu.RLock()
	all := make([]domain.Article, 0, len(s.articles))
	for _, a := range s.articles {
		all = append(all, a)
	}
	s.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool {
		if all[i].ViewCount != all[j].ViewCount {
			return all[i].ViewCount > all[j].ViewCount
		}
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})

	if len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

func (s *Store) ViewSummary(_ context.Context) (domain.ViewSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var sum domain.ViewSummary
	for _, a := range s.articles {
		sum.Articles++
		sum.TotalViews += a.ViewCount
		if a.Published {
			sum.PublishedArticles++
		}
	}
	if sum.Articles > 0 {
		sum.AverageViews = float64(sum.TotalViews) / float64(sum.Articles)
	}
	return sum, nil
}

func (s *Store) AppendAudit(_ context.Context, entry domain.AuditLogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.audit = append(s.audit, entry)
	return nil
}

// AuditLog returns a copy of the audit entries in append order.
func (s *Store) AuditLog() []domain.AuditLogEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.AuditLogEntry(nil), s.audit...)
}

// WithTx stages writes and applies them under one lock acquisition. A slug
// claimed by another writer between staging and commit fails the commit
// with storage.ErrSlugTaken.
func (s *Store) WithTx(ctx context.Context, fn func(tx storage.Tx) error) error {
	t := &tx{store: s}
	if err := fn(t); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("transaction aborted: %w", err)
	}
	return s.commit(t)
}

func (s *Store) commit(t *tx) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, a := range t.inserts {
		if _, taken := s.slugs[a.Slug]; taken {
			return fmt.Errorf("insert %q: %w", a.Slug, storage.ErrSlugTaken)
		}
		if _, exists := s.articles[a.ID]; exists {
			return fmt.Errorf("article %s already exists", a.ID)
		}
	}
	for _, a := range t.updates {
		if _, ok := s.articles[a.ID]; !ok {
			return fmt.Errorf("article %s: %w", a.ID, apperr.ErrNotFound)
		}
	}

	for _, a := range t.inserts {
		s.articles[a.ID] = a
		s.slugs[a.Slug] = a.ID
	}
	for _, a := range t.updates {
		s.articles[a.ID] = mergeEdit(s.articles[a.ID], a)
	}
	s.audit = append(s.audit, t.audit...)
	return nil
}

// mergeEdit applies the editable fields of next onto current. Identity,
// slug, author and counters stay as stored.
func mergeEdit(current, next domain.Article) domain.Article {
	current.Title = next.Title
	current.Body = next.Body
	current.Excerpt = next.Excerpt
	current.MediaReference = next.MediaReference
	current.MediaKind = next.MediaKind
	current.Category = next.Category
	current.Keywords = next.Keywords
	current.Locality = next.Locality
	current.Published = next.Published
	current.UpdatedAt = next.UpdatedAt
	return current
}

type tx struct {
	store   *Store
	inserts []domain.Article
	updates []domain.Article
	audit   []domain.AuditLogEntry
}

func (t *tx) InsertArticle(_ context.Context, article domain.Article) error {
	t.store.mu.RLock()
	_, taken := t.store.slugs[article.Slug]
	t.store.mu.RUnlock()

	if taken || t.stagedSlug(article.Slug) {
		return fmt.Errorf("insert %q: %w", article.Slug, storage.ErrSlugTaken)
	}
	t.inserts = append(t.inserts, article)
	return nil
}

func (t *tx) UpdateArticle(_ context.Context, article domain.Article) error {
	t.store.mu.RLock()
	_, ok := t.store.articles[article.ID]
	t.store.mu.RUnlock()

	if !ok {
		return fmt.Errorf("article %s: %w", article.ID, apperr.ErrNotFound)
	}
	t.updates = append(t.updates, article)
	return nil
}

func (t *tx) AppendAudit(_ context.Context, entry domain.AuditLogEntry) error {
	t.audit = append(t.audit, entry)
	return nil
}

func (t *tx) stagedSlug(slug string) bool {
	for _, a := range t.inserts {
		if a.Slug == slug {
			return true
		}
	}
	return false
}
