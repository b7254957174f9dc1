package router

import (
	"github.com/labstack/echo/v4"
)

// FileResolver maps a bare stored name to a file on disk.
type FileResolver interface {
	Path(name string) (string, error)
}

type MediaRouter struct {
	e          *echo.Echo
	files      FileResolver
	thumbnails FileResolver
}

func NewMediaRouter(e *echo.Echo, files FileResolver, thumbnails FileResolver) *MediaRouter {
	return &MediaRouter{e: e, files: files, thumbnails: thumbnails}
}

func (r *MediaRouter) Bind() {
	r.e.GET("/media/:name", serveFrom(r.files))
	if r.thumbnails != nil {
		r.e.GET("/media/:name/thumbnail", serveFrom(r.thumbnails))
	}
}

func serveFrom(files FileResolver) echo.HandlerFunc {
	return func(c echo.Context) error {
		path, err := files.Path(c.Param("name"))
		if err != nil {
			return err
		}
		c.Response().Header().Set("Cache-Control", "public, max-age=86400, immutable")
		return c.File(path)
	}
}
