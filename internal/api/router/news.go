package router

import (
	"context"
	"net/http"

	"github.com/DjordjeVuckovic/lantern/internal/domain"
	"github.com/DjordjeVuckovic/lantern/internal/dto"
	"github.com/DjordjeVuckovic/lantern/pkg/pagination"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

type NewsReader interface {
	Feed(ctx context.Context, page pagination.OffsetRequest) (*pagination.OffsetResult[domain.Article], error)
	Read(ctx context.Context, slug string) (domain.Article, error)
	RecordView(ctx context.Context, id uuid.UUID)
}

type NewsRouter struct {
	e            *echo.Echo
	news         NewsReader
	mediaPrefix  string
	middlewares  []echo.MiddlewareFunc
	viewThrottle func(ip string) bool
}

type NewsRouterOption func(*NewsRouter)

// WithNewsMiddleware adds middleware to the feed and read routes, e.g. a
// per-IP throttle. The view route never gets it: it always answers 202.
func WithNewsMiddleware(m ...echo.MiddlewareFunc) NewsRouterOption {
	return func(r *NewsRouter) { r.middlewares = append(r.middlewares, m...) }
}

// WithViewThrottle sets the per-IP check for the view route. Throttled
// views are dropped silently.
func WithViewThrottle(allow func(ip string) bool) NewsRouterOption {
	return func(r *NewsRouter) { r.viewThrottle = allow }
}

func NewNewsRouter(e *echo.Echo, news NewsReader, mediaPrefix string, opts ...NewsRouterOption) *NewsRouter {
	r := &NewsRouter{e: e, news: news, mediaPrefix: mediaPrefix}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *NewsRouter) Bind() {
	g := r.e.Group("/api/news")
	g.GET("", r.feed, r.middlewares...)
	g.GET("/:slug", r.read, r.middlewares...)
	g.POST("/:id/views", r.recordView)
}

// feed godoc
// @Summary Published articles
// @Description Newest first, offset paginated.
// @Tags news
// @Produce json
// @Param page query int false "Page (default 1)"
// @Param size query int false "Page size (default 20, max 100)"
// @Success 200 {object} dto.FeedResponse
// @Failure 400 {object} dto.ErrorResponse
// @Router /api/news [get]
func (r *NewsRouter) feed(c echo.Context) error {
	var page pagination.OffsetRequest
	if err := c.Bind(&page); err != nil {
		return err
	}
	if err := c.Validate(&page); err != nil {
		return err
	}

	result, err := r.news.Feed(c.Request().Context(), page)
	if err != nil {
		return err
	}

	items := make([]dto.Article, len(result.Items))
	for i, a := range result.Items {
		items[i] = dto.Summary(a, r.mediaPrefix)
	}
	return c.JSON(http.StatusOK, dto.FeedResponse{
		Items:   items,
		Total:   result.Total,
		Page:    result.Page,
		Size:    result.Size,
		HasMore: result.HasMore,
	})
}

// read godoc
// @Summary Read an article
// @Description Returns one published article and counts the view.
// @Tags news
// @Produce json
// @Param slug path string true "Article slug"
// @Success 200 {object} dto.Article
// @Failure 404 {object} dto.ErrorResponse
// @Router /api/news/{slug} [get]
func (r *NewsRouter) read(c echo.Context) error {
	article, err := r.news.Read(c.Request().Context(), c.Param("slug"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, dto.FromArticle(article, r.mediaPrefix))
}

// recordView godoc
// @Summary Count a view
// @Description Always accepted. Unknown or malformed ids and throttled clients are ignored.
// @Tags news
// @Param id path string true "Article ID"
// @Success 202
// @Router /api/news/{id}/views [post]
func (r *NewsRouter) recordView(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.NoContent(http.StatusAccepted)
	}
	if r.viewThrottle != nil && !r.viewThrottle(c.RealIP()) {
		return c.NoContent(http.StatusAccepted)
	}
	r.news.RecordView(c.Request().Context(), id)
	return c.NoContent(http.StatusAccepted)
}
