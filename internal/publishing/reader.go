package publishing

import (
	"context"
	"fmt"

	"github.com/DjordjeVuckovic/lantern/internal/apperr"
	"github.com/DjordjeVuckovic/lantern/internal/domain"
	"github.com/DjordjeVuckovic/lantern/pkg/pagination"
)

// Feed returns a page of published articles, newest first.
func (p *Pipeline) Feed(ctx context.Context, page pagination.OffsetRequest) (*pagination.OffsetResult[domain.Article], error) {
	if err := page.Validate(); err != nil {
		return nil, err
	}

	articles, total, err := p.store.ListPublished(ctx, page)
	if err != nil {
		return nil, fmt.Errorf("failed to load feed: %w", err)
	}
	return pagination.NewOffsetResult(articles, total, page.Page, page.Size), nil
}

// Read returns a published article by slug and counts the view. The
// returned count includes this read when it was stored. Drafts are
// reported as not found.
func (p *Pipeline) Read(ctx context.Context, slug string) (domain.Article, error) {
	article, err := p.store.GetBySlug(ctx, slug)
	if err != nil {
		return domain.Article{}, err
	}
	if !article.Published {
		return domain.Article{}, apperr.ErrNotFound
	}

	if p.views.RecordView(ctx, article.ID) {
		article.ViewCount++
	}
	return article, nil
}
