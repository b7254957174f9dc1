// Package publishing composes the gate, sanitizer, media ingester, slug
// generator and store into the create/edit article operation and the
// public read path.
package publishing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/DjordjeVuckovic/lantern/internal/analytics"
	"github.com/DjordjeVuckovic/lantern/internal/apperr"
	"github.com/DjordjeVuckovic/lantern/internal/auth"
	"github.com/DjordjeVuckovic/lantern/internal/domain"
	"github.com/DjordjeVuckovic/lantern/internal/media"
	"github.com/DjordjeVuckovic/lantern/internal/metrics"
	"github.com/DjordjeVuckovic/lantern/internal/sanitize"
	"github.com/DjordjeVuckovic/lantern/internal/slug"
	"github.com/DjordjeVuckovic/lantern/internal/storage"
	"github.com/google/uuid"
)

// Authorizer admits a session token for a gated action.
type Authorizer interface {
	Authorize(ctx context.Context, token string, action auth.Action, remoteAddr string) (domain.Session, error)
}

type MediaStore interface {
	Ingest(ctx context.Context, filename string, content io.Reader, declaredSize int64) (media.Stored, error)
	Remove(name string) error
}

// Enhancer post-processes stored media. Its failures never fail a publish.
type Enhancer interface {
	Enhance(ctx context.Context, stored media.Stored) error
	Discard(name string) error
}

// Indexer mirrors committed articles into a search index. Best-effort.
type Indexer interface {
	IndexArticle(ctx context.Context, article domain.Article) error
}

type Upload struct {
	Filename string
	Size     int64
	Content  io.Reader
}

// Request carries the validated fields of a publish or edit form.
type Request struct {
	Token      string
	RemoteAddr string

	Title     string
	Body      string
	Category  string
	Keywords  string
	Locality  string
	Published bool

	// Media replaces the current attachment when set.
	Media *Upload
	// ClearMedia drops the current attachment on edit.
	ClearMedia bool
}

type Config struct {
	Slug          slug.Config
	ExcerptLength int
}

func DefaultConfig() Config {
	return Config{
		Slug:          slug.DefaultConfig(),
		ExcerptLength: sanitize.DefaultExcerptLength,
	}
}

type Pipeline struct {
	gate      Authorizer
	store     storage.Store
	media     MediaStore
	sanitizer *sanitize.Sanitizer
	slugs     *slug.Generator
	views     *analytics.Aggregator
	enhancer  Enhancer
	indexer   Indexer
	metrics   *metrics.Collector
	now       func() time.Time
	cfg       Config
}

type Option func(*Pipeline)

func WithEnhancer(e Enhancer) Option {
	return func(p *Pipeline) { p.enhancer = e }
}

func WithIndexer(i Indexer) Option {
	return func(p *Pipeline) { p.indexer = i }
}

func WithMetrics(m *metrics.Collector) Option {
	return func(p *Pipeline) { p.metrics = m }
}

func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

func NewPipeline(cfg Config, gate Authorizer, store storage.Store, mediaStore MediaStore, opts ...Option) *Pipeline {
	if cfg.ExcerptLength <= 0 {
		cfg.ExcerptLength = sanitize.DefaultExcerptLength
	}

	p := &Pipeline{
		gate:      gate,
		store:     store,
		media:     mediaStore,
		sanitizer: sanitize.New(),
		now:       time.Now,
		cfg:       cfg,
	}
	for _, opt := range opts {
		opt(p)
	}

	p.slugs = slug.NewGenerator(store, cfg.Slug).WithClock(p.now)
	p.views = analytics.NewAggregator(store, p.metrics)
	return p
}

// Views exposes the aggregator behind RecordView for the dashboard.
func (p *Pipeline) Views() *analytics.Aggregator {
	return p.views
}

// Admit passes a session token through the gate for action. Callers that
// must authorize before reading the rest of a request use Admit and then
// PublishAs or EditAs.
func (p *Pipeline) Admit(ctx context.Context, token string, action auth.Action, remoteAddr string) (domain.Session, error) {
	started := p.now()
	session, err := p.gate.Authorize(ctx, token, action, remoteAddr)
	if err != nil {
		p.metrics.Publication(string(action), "denied", time.Since(started))
		return domain.Session{}, err
	}
	return session, nil
}

// Reject audits an admitted request that failed before reaching the
// pipeline, such as a form that did not bind, and returns cause.
func (p *Pipeline) Reject(ctx context.Context, session domain.Session, action auth.Action, remoteAddr string, cause error) error {
	audited, ok := action.AuditAction()
	if !ok {
		return fmt.Errorf("%w: %q", auth.ErrUnknownAction, action)
	}
	p.auditFailure(ctx, session, audited, remoteAddr, cause)
	p.metrics.Publication(string(action), "failure", 0)
	return cause
}

// Publish creates an article. The article row and its audit entry are
// written in one transaction; media stored for a failed publish is removed.
func (p *Pipeline) Publish(ctx context.Context, req Request) (domain.Article, error) {
	session, err := p.Admit(ctx, req.Token, auth.ActionPublish, req.RemoteAddr)
	if err != nil {
		return domain.Article{}, err
	}
	return p.PublishAs(ctx, session, req)
}

// PublishAs is Publish for a session already admitted by Admit.
func (p *Pipeline) PublishAs(ctx context.Context, session domain.Session, req Request) (domain.Article, error) {
	started := p.now()

	article, err := p.publish(ctx, session, req)
	if err != nil {
		p.auditFailure(ctx, session, domain.AuditPublish, req.RemoteAddr, err)
		p.metrics.Publication(string(auth.ActionPublish), "failure", time.Since(started))
		return domain.Article{}, err
	}

	p.afterCommit(ctx, article, req.Media != nil)
	p.metrics.Publication(string(auth.ActionPublish), "success", time.Since(started))
	slog.Info("article published", "id", article.ID, "slug", article.Slug, "actor", session.ActorID)
	return article, nil
}

func (p *Pipeline) publish(ctx context.Context, session domain.Session, req Request) (domain.Article, error) {
	title, err := validateTitle(req.Title)
	if err != nil {
		return domain.Article{}, err
	}

	body := p.sanitizer.Sanitize(req.Body)
	now := p.now()
	article := domain.Article{
		ID:        uuid.New(),
		Title:     title,
		Body:      body,
		Excerpt:   sanitize.Excerpt(body, p.cfg.ExcerptLength),
		Category:  strings.TrimSpace(req.Category),
		Keywords:  strings.TrimSpace(req.Keywords),
		Author:    session.Author,
		Locality:  strings.TrimSpace(req.Locality),
		Published: req.Published,
		CreatedAt: now,
		UpdatedAt: now,
	}

	stored, err := p.ingest(ctx, req.Media)
	if err != nil {
		return domain.Article{}, err
	}
	if stored != nil {
		article.MediaReference = stored.Name
		article.MediaKind = stored.Kind
	}

	if err := p.insertWithRetry(ctx, session, &article, req.RemoteAddr); err != nil {
		p.discardMedia(stored)
		return domain.Article{}, err
	}
	return article, nil
}

// insertWithRetry derives the slug and persists the article. A unique
// violation from a concurrent writer gets exactly one fresh slug.
func (p *Pipeline) insertWithRetry(ctx context.Context, session domain.Session, article *domain.Article, remoteAddr string) error {
	for attempt := 0; attempt < 2; attempt++ {
		s, err := p.slugs.Generate(ctx, article.Title, article.Locality)
		if err != nil {
			return err
		}
		article.Slug = s

		err = p.store.WithTx(ctx, func(tx storage.Tx) error {
			if err := tx.InsertArticle(ctx, *article); err != nil {
				return err
			}
			entry := domain.NewAuditEntry(session.ActorID, domain.AuditPublish, domain.OutcomeSuccess, article.Slug, p.now())
			entry.RemoteAddr = remoteAddr
			return tx.AppendAudit(ctx, entry)
		})
		if err == nil {
			return nil
		}
		if !errors.Is(err, storage.ErrSlugTaken) {
			return fmt.Errorf("failed to store article: %w", err)
		}
		slog.Warn("slug claimed concurrently, regenerating", "slug", article.Slug)
	}
	return fmt.Errorf("%w: slug %q kept colliding on insert", apperr.ErrSlugCollisionExhausted, article.Slug)
}

// Edit updates the body, media and metadata of an article. Identity, slug,
// author and view count never change.
func (p *Pipeline) Edit(ctx context.Context, id uuid.UUID, req Request) (domain.Article, error) {
	session, err := p.Admit(ctx, req.Token, auth.ActionEdit, req.RemoteAddr)
	if err != nil {
		return domain.Article{}, err
	}
	return p.EditAs(ctx, session, id, req)
}

// EditAs is Edit for a session already admitted by Admit.
func (p *Pipeline) EditAs(ctx context.Context, session domain.Session, id uuid.UUID, req Request) (domain.Article, error) {
	started := p.now()

	article, replaced, err := p.edit(ctx, session, id, req)
	if err != nil {
		p.auditFailure(ctx, session, domain.AuditEdit, req.RemoteAddr, err)
		p.metrics.Publication(string(auth.ActionEdit), "failure", time.Since(started))
		return domain.Article{}, err
	}

	if replaced != "" {
		p.discardMedia(&media.Stored{Name: replaced})
	}
	p.afterCommit(ctx, article, req.Media != nil)
	p.metrics.Publication(string(auth.ActionEdit), "success", time.Since(started))
	slog.Info("article edited", "id", article.ID, "slug", article.Slug, "actor", session.ActorID)
	return article, nil
}

func (p *Pipeline) edit(ctx context.Context, session domain.Session, id uuid.UUID, req Request) (domain.Article, string, error) {
	title, err := validateTitle(req.Title)
	if err != nil {
		return domain.Article{}, "", err
	}

	current, err := p.store.GetByID(ctx, id)
	if err != nil {
		return domain.Article{}, "", err
	}

	updated := current
	updated.Title = title
	updated.Body = p.sanitizer.Sanitize(req.Body)
	updated.Excerpt = sanitize.Excerpt(updated.Body, p.cfg.ExcerptLength)
	updated.Category = strings.TrimSpace(req.Category)
	updated.Keywords = strings.TrimSpace(req.Keywords)
	updated.Locality = strings.TrimSpace(req.Locality)
	updated.Published = req.Published
	updated.UpdatedAt = advance(current.UpdatedAt, p.now())

	stored, err := p.ingest(ctx, req.Media)
	if err != nil {
		return domain.Article{}, "", err
	}

	var replaced string
	switch {
	case stored != nil:
		updated.MediaReference = stored.Name
		updated.MediaKind = stored.Kind
		replaced = current.MediaReference
	case req.ClearMedia:
		updated.MediaReference = ""
		updated.MediaKind = domain.MediaKindNone
		replaced = current.MediaReference
	}

	err = p.store.WithTx(ctx, func(tx storage.Tx) error {
		if err := tx.UpdateArticle(ctx, updated); err != nil {
			return err
		}
		entry := domain.NewAuditEntry(session.ActorID, domain.AuditEdit, domain.OutcomeSuccess, updated.Slug, p.now())
		entry.RemoteAddr = req.RemoteAddr
		return tx.AppendAudit(ctx, entry)
	})
	if err != nil {
		p.discardMedia(stored)
		if errors.Is(err, apperr.ErrNotFound) {
			return domain.Article{}, "", err
		}
		return domain.Article{}, "", fmt.Errorf("failed to store edit: %w", err)
	}
	return updated, replaced, nil
}

// RecordView counts a read of the article. It never fails the caller.
func (p *Pipeline) RecordView(ctx context.Context, id uuid.UUID) {
	p.views.RecordView(ctx, id)
}

func (p *Pipeline) ingest(ctx context.Context, upload *Upload) (*media.Stored, error) {
	if upload == nil {
		return nil, nil
	}
	stored, err := p.media.Ingest(ctx, upload.Filename, upload.Content, upload.Size)
	if err != nil {
		var mErr *apperr.MediaError
		if errors.As(err, &mErr) {
			p.metrics.MediaRejected()
		}
		return nil, err
	}
	return &stored, nil
}

func (p *Pipeline) discardMedia(stored *media.Stored) {
	if stored == nil || stored.Name == "" {
		return
	}
	if err := p.media.Remove(stored.Name); err != nil {
		slog.Error("failed to remove orphaned media", "name", stored.Name, "error", err)
	}
	if p.enhancer != nil {
		if err := p.enhancer.Discard(stored.Name); err != nil {
			slog.Warn("failed to remove thumbnail", "name", stored.Name, "error", err)
		}
	}
}

// afterCommit runs the best-effort follow-ups of a committed write.
func (p *Pipeline) afterCommit(ctx context.Context, article domain.Article, newMedia bool) {
	if newMedia && p.enhancer != nil {
		stored := media.Stored{Name: article.MediaReference, Kind: article.MediaKind}
		if err := p.enhancer.Enhance(ctx, stored); err != nil {
			slog.Warn("media enhancement failed", "name", stored.Name, "error", err)
		}
	}
	if p.indexer != nil {
		if err := p.indexer.IndexArticle(ctx, article); err != nil {
			slog.Warn("failed to update search index", "id", article.ID, "error", err)
		}
	}
}

func (p *Pipeline) auditFailure(ctx context.Context, session domain.Session, action domain.AuditAction, remoteAddr string, cause error) {
	entry := domain.NewAuditEntry(session.ActorID, action, domain.OutcomeFailure, failureDetail(cause), p.now())
	entry.RemoteAddr = remoteAddr
	if err := p.store.AppendAudit(ctx, entry); err != nil {
		slog.Error("failed to audit rejected write", "action", action, "actor", session.ActorID, "error", err)
	}
}

func failureDetail(err error) string {
	var vErr *apperr.ValidationError
	var mErr *apperr.MediaError
	switch {
	case errors.As(err, &vErr):
		return "validation: " + vErr.Message
	case errors.As(err, &mErr):
		return "media rejected: " + mErr.Reason
	case errors.Is(err, apperr.ErrNotFound):
		return "article not found"
	default:
		return "internal error"
	}
}

func validateTitle(raw string) (string, error) {
	title := strings.TrimSpace(raw)
	switch {
	case title == "":
		return "", apperr.NewFieldValidation("invalid article", map[string]string{"title": "is required"})
	case utf8.RuneCountInString(title) > domain.ArticleTitleMaxLength:
		return "", apperr.NewFieldValidation("invalid article",
			map[string]string{"title": fmt.Sprintf("must be at most %d characters", domain.ArticleTitleMaxLength)})
	}
	return title, nil
}

// advance returns now, or a microsecond past prev when the clock has not
// moved, so every persisted edit moves updatedAt forward.
func advance(prev, now time.Time) time.Time {
	if now.After(prev) {
		return now
	}
	return prev.Add(time.Microsecond)
}
