package router

import (
	"context"
	"net/http"
	"time"

	"github.com/DjordjeVuckovic/lantern/internal/domain"
	"github.com/DjordjeVuckovic/lantern/internal/dto"
	"github.com/labstack/echo/v4"
)

type Authenticator interface {
	Authenticate(ctx context.Context, creds domain.Credentials) (domain.Session, error)
	RejectLogin(ctx context.Context, remoteAddr string, cause error) error
}

type AuthRouter struct {
	e            *echo.Echo
	auth         Authenticator
	secureCookie bool
}

type AuthRouterOption func(*AuthRouter)

// WithSecureCookie marks the session cookie Secure. Enable behind TLS.
func WithSecureCookie(secure bool) AuthRouterOption {
	return func(r *AuthRouter) { r.secureCookie = secure }
}

func NewAuthRouter(e *echo.Echo, auth Authenticator, opts ...AuthRouterOption) *AuthRouter {
	r := &AuthRouter{e: e, auth: auth}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *AuthRouter) Bind() {
	g := r.e.Group("/auth")
	g.POST("/login", r.login)
	g.POST("/logout", r.logout)
}

// login godoc
// @Summary Staff login
// @Description Checks staff credentials and opens a session. The token is returned and set as an HttpOnly cookie.
// @Tags auth
// @Accept json,x-www-form-urlencoded
// @Produce json
// @Param credentials body dto.LoginRequest true "Staff credentials"
// @Success 200 {object} dto.LoginResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 401 {object} dto.ErrorResponse
// @Failure 429 {object} dto.ErrorResponse
// @Router /auth/login [post]
func (r *AuthRouter) login(c echo.Context) error {
	ctx := c.Request().Context()

	var req dto.LoginRequest
	if err := c.Bind(&req); err != nil {
		return r.auth.RejectLogin(ctx, c.RealIP(), err)
	}
	if err := c.Validate(&req); err != nil {
		return r.auth.RejectLogin(ctx, c.RealIP(), err)
	}

	session, err := r.auth.Authenticate(ctx, domain.Credentials{
		Email:      req.Email,
		Password:   req.Password,
		RemoteAddr: c.RealIP(),
	})
	if err != nil {
		return err
	}

	c.SetCookie(sessionCookie(session.Token, session.ExpiresAt, r.secureCookie))
	return c.JSON(http.StatusOK, dto.LoginResponse{
		Token:     session.Token,
		Author:    session.Author,
		ExpiresAt: session.ExpiresAt,
	})
}

// logout godoc
// @Summary Staff logout
// @Tags auth
// @Success 204
// @Router /auth/logout [post]
func (r *AuthRouter) logout(c echo.Context) error {
	cookie := sessionCookie("", time.Unix(0, 0), r.secureCookie)
	cookie.MaxAge = -1
	c.SetCookie(cookie)
	return c.NoContent(http.StatusNoContent)
}
