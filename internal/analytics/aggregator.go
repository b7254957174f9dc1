// Package analytics counts article views and produces the ranking and
// totals shown on the staff dashboard.
package analytics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/DjordjeVuckovic/lantern/internal/apperr"
	"github.com/DjordjeVuckovic/lantern/internal/domain"
	"github.com/DjordjeVuckovic/lantern/internal/metrics"
	"github.com/DjordjeVuckovic/lantern/internal/storage"
	"github.com/DjordjeVuckovic/lantern/pkg/utils"
	"github.com/google/uuid"
)

const (
	DefaultRankLimit = 10
	MaxRankLimit     = 100
)

type Aggregator struct {
	views   storage.ViewCounter
	metrics *metrics.Collector
}

func NewAggregator(views storage.ViewCounter, m *metrics.Collector) *Aggregator {
	return &Aggregator{views: views, metrics: m}
}

// RecordView counts one view and reports whether it was stored. Failures
// are logged and never reach the reader.
func (a *Aggregator) RecordView(ctx context.Context, id uuid.UUID) bool {
	err := a.views.IncrementViews(ctx, id)
	a.metrics.View(err == nil)
	if err == nil {
		return true
	}
	if errors.Is(err, apperr.ErrNotFound) {
		slog.Debug("view for unknown article dropped", "id", id)
		return false
	}
	slog.Warn("failed to record view", "id", id, "error", err)
	return false
}

// Rank returns the most viewed articles with 1-based positions. Equal view
// counts are ordered by the most recent creation time.
func (a *Aggregator) Rank(ctx context.Context, limit int) ([]domain.RankedArticle, error) {
	if limit < 0 {
		return nil, apperr.NewFieldValidation("invalid ranking request", map[string]string{"limit": "must not be negative"})
	}
	if limit == 0 {
		limit = DefaultRankLimit
	}
	limit = min(limit, MaxRankLimit)

	articles, err := a.views.TopViewed(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to rank articles: %w", err)
	}

	ranked := make([]domain.RankedArticle, len(articles))
	for i, article := range articles {
		ranked[i] = domain.RankedArticle{Position: i + 1, Article: article}
	}
	return ranked, nil
}

func (a *Aggregator) Summary(ctx context.Context) (domain.ViewSummary, error) {
	sum, err := a.views.ViewSummary(ctx)
	if err != nil {
		return domain.ViewSummary{}, fmt.Errorf("failed to summarize views: %w", err)
	}
	sum.AverageViews = utils.RoundDecimal(sum.AverageViews, 2)
	return sum, nil
}
