package apperr

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
)

func GlobalErrorHandler() echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		var ve *ValidationError
		if errors.As(err, &ve) {
			body := map[string]any{"error": ve.Message, "title": "validation error"}
			if len(ve.Fields) > 0 {
				body["fields"] = ve.Fields
			}
			_ = c.JSON(http.StatusBadRequest, body)
			return
		}

		var me *MediaError
		if errors.As(err, &me) {
			_ = c.JSON(http.StatusUnprocessableEntity, map[string]string{"error": me.Reason, "title": "rejected media"})
			return
		}

		switch {
		case errors.Is(err, ErrRateLimited):
			_ = c.JSON(http.StatusTooManyRequests, map[string]string{"error": "too many requests, retry later"})
			return
		case errors.Is(err, ErrInvalidCredentials):
			_ = c.JSON(http.StatusUnauthorized, map[string]string{"error": "invalid credentials"})
			return
		case errors.Is(err, ErrSessionExpired):
			_ = c.JSON(http.StatusUnauthorized, map[string]string{"error": "authentication required"})
			return
		case errors.Is(err, ErrNotFound):
			_ = c.JSON(http.StatusNotFound, map[string]string{"error": "not found"})
			return
		}

		var he *echo.HTTPError
		if errors.As(err, &he) {
			msg := fmt.Sprintf("%v", he.Message)
			_ = c.JSON(he.Code, map[string]string{"error": msg})
			return
		}

		slog.Error("Unhandled error", "error", err, "uri", c.Request().RequestURI)
		_ = c.JSON(http.StatusInternalServerError, map[string]string{"error": "internal server error"})
	}
}
