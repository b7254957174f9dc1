package router

import (
	"context"
	"errors"
	"net/http"

	"github.com/DjordjeVuckovic/lantern/internal/apperr"
	"github.com/DjordjeVuckovic/lantern/internal/auth"
	"github.com/DjordjeVuckovic/lantern/internal/domain"
	"github.com/DjordjeVuckovic/lantern/internal/dto"
	"github.com/DjordjeVuckovic/lantern/internal/publishing"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

const mediaField = "media"

type Publisher interface {
	Admit(ctx context.Context, token string, action auth.Action, remoteAddr string) (domain.Session, error)
	Reject(ctx context.Context, session domain.Session, action auth.Action, remoteAddr string, cause error) error
	PublishAs(ctx context.Context, session domain.Session, req publishing.Request) (domain.Article, error)
	EditAs(ctx context.Context, session domain.Session, id uuid.UUID, req publishing.Request) (domain.Article, error)
}

// AdminRouter serves the staff write endpoints. The session is admitted
// before the form is read, so anonymous callers never get field feedback
// and uploads are not parsed for them.
type AdminRouter struct {
	e         *echo.Echo
	publisher Publisher
}

func NewAdminRouter(e *echo.Echo, publisher Publisher) *AdminRouter {
	return &AdminRouter{e: e, publisher: publisher}
}

func (r *AdminRouter) Bind() {
	g := r.e.Group("/admin/articles")
	g.POST("", r.publish)
	g.PUT("/:id", r.edit)
}

// publish godoc
// @Summary Publish an article
// @Tags admin
// @Accept multipart/form-data
// @Produce json
// @Param title formData string true "Title"
// @Param body formData string false "HTML body"
// @Param category formData string false "Category"
// @Param keywords formData string false "Keywords"
// @Param locality formData string false "Locality"
// @Param published formData bool false "Publish immediately"
// @Param media formData file false "Image or video"
// @Success 201 {object} dto.PublishResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 401 {object} dto.ErrorResponse
// @Failure 422 {object} dto.ErrorResponse
// @Failure 429 {object} dto.ErrorResponse
// @Router /admin/articles [post]
func (r *AdminRouter) publish(c echo.Context) error {
	ctx := c.Request().Context()

	session, err := r.publisher.Admit(ctx, sessionToken(c), auth.ActionPublish, c.RealIP())
	if err != nil {
		return err
	}

	req, closeMedia, err := r.readForm(c)
	if err != nil {
		return r.publisher.Reject(ctx, session, auth.ActionPublish, c.RealIP(), err)
	}
	defer closeMedia()

	article, err := r.publisher.PublishAs(ctx, session, req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, dto.PublishResponse{ID: article.ID, Slug: article.Slug})
}

// edit godoc
// @Summary Edit an article
// @Description Replaces body, media and metadata. The slug and author never change.
// @Tags admin
// @Accept multipart/form-data
// @Produce json
// @Param id path string true "Article ID"
// @Param title formData string true "Title"
// @Param body formData string false "HTML body"
// @Param clear_media formData bool false "Drop the current media"
// @Param media formData file false "Replacement image or video"
// @Success 200 {object} dto.PublishResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 401 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /admin/articles/{id} [put]
func (r *AdminRouter) edit(c echo.Context) error {
	ctx := c.Request().Context()

	session, err := r.publisher.Admit(ctx, sessionToken(c), auth.ActionEdit, c.RealIP())
	if err != nil {
		return err
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return r.publisher.Reject(ctx, session, auth.ActionEdit, c.RealIP(),
			apperr.NewFieldValidation("invalid article id", map[string]string{"id": "must be a UUID"}))
	}

	req, closeMedia, err := r.readForm(c)
	if err != nil {
		return r.publisher.Reject(ctx, session, auth.ActionEdit, c.RealIP(), err)
	}
	defer closeMedia()

	article, err := r.publisher.EditAs(ctx, session, id, req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, dto.PublishResponse{ID: article.ID, Slug: article.Slug})
}

func (r *AdminRouter) readForm(c echo.Context) (publishing.Request, func(), error) {
	noop := func() {}

	var form dto.ArticleForm
	if err := c.Bind(&form); err != nil {
		return publishing.Request{}, noop, err
	}
	if err := c.Validate(&form); err != nil {
		return publishing.Request{}, noop, err
	}

	req := publishing.Request{
		RemoteAddr: c.RealIP(),
		Title:      form.Title,
		Body:       form.Body,
		Category:   form.Category,
		Keywords:   form.Keywords,
		Locality:   form.Locality,
		Published:  form.Published,
		ClearMedia: form.ClearMedia,
	}

	fh, err := c.FormFile(mediaField)
	switch {
	case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
		return req, noop, nil
	case err != nil:
		return publishing.Request{}, noop, apperr.NewValidationWrap("invalid media upload", err)
	}

	f, err := fh.Open()
	if err != nil {
		return publishing.Request{}, noop, apperr.NewValidationWrap("invalid media upload", err)
	}
	req.Media = &publishing.Upload{Filename: fh.Filename, Size: fh.Size, Content: f}
	return req, func() { _ = f.Close() }, nil
}
