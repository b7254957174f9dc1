package router

import (
	"context"
	"net/http"

	"github.com/DjordjeVuckovic/lantern/internal/domain"
	"github.com/DjordjeVuckovic/lantern/internal/dto"
	"github.com/labstack/echo/v4"
)

type SessionVerifier interface {
	Session(token string) (domain.Session, error)
}

type Dashboard interface {
	Rank(ctx context.Context, limit int) ([]domain.RankedArticle, error)
	Summary(ctx context.Context) (domain.ViewSummary, error)
}

type StatsRouter struct {
	e           *echo.Echo
	sessions    SessionVerifier
	dashboard   Dashboard
	mediaPrefix string
}

func NewStatsRouter(e *echo.Echo, sessions SessionVerifier, dashboard Dashboard, mediaPrefix string) *StatsRouter {
	return &StatsRouter{e: e, sessions: sessions, dashboard: dashboard, mediaPrefix: mediaPrefix}
}

func (r *StatsRouter) Bind() {
	g := r.e.Group("/admin/stats", r.requireSession)
	g.GET("/ranking", r.ranking)
	g.GET("/summary", r.summary)
}

func (r *StatsRouter) requireSession(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if _, err := r.sessions.Session(sessionToken(c)); err != nil {
			return err
		}
		return next(c)
	}
}

// ranking godoc
// @Summary Most viewed articles
// @Tags admin
// @Produce json
// @Param limit query int false "Number of entries (default 10, max 100)"
// @Success 200 {object} dto.RankingResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 401 {object} dto.ErrorResponse
// @Router /admin/stats/ranking [get]
func (r *StatsRouter) ranking(c echo.Context) error {
	var q dto.RankingQuery
	if err := c.Bind(&q); err != nil {
		return err
	}
	if err := c.Validate(&q); err != nil {
		return err
	}

	ranked, err := r.dashboard.Rank(c.Request().Context(), q.Limit)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, dto.FromRanking(ranked, r.mediaPrefix))
}

// summary godoc
// @Summary View totals
// @Tags admin
// @Produce json
// @Success 200 {object} dto.SummaryResponse
// @Failure 401 {object} dto.ErrorResponse
// @Router /admin/stats/summary [get]
func (r *StatsRouter) summary(c echo.Context) error {
	s, err := r.dashboard.Summary(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, dto.SummaryResponse{
		Articles:          s.Articles,
		PublishedArticles: s.PublishedArticles,
		TotalViews:        s.TotalViews,
		AverageViews:      s.AverageViews,
	})
}
