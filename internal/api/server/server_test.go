package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
)

type stubHealth struct{ ok bool }

func (s stubHealth) Healthy(context.Context) bool { return s.ok }

func newTestServer(health stubHealth) *Server {
	cfg := &Config{Port: "8080", CorsOrigins: []string{"*"}, BodyLimit: "1K"}
	return New(cfg, health).
		SetupMiddlewares().
		SetupErrorHandler().
		SetupHealthChecks("/health")
}

func TestServer_HealthCheck(t *testing.T) {
	tests := []struct {
		name   string
		ok     bool
		status int
	}{
		{"healthy", true, http.StatusOK},
		{"unhealthy", false, http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(stubHealth{ok: tt.ok})
			rec := httptest.NewRecorder()
			s.Echo.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
			assert.Equal(t, tt.status, rec.Code)
		})
	}
}

func TestServer_BodyLimit(t *testing.T) {
	s := newTestServer(stubHealth{ok: true})
	s.Echo.POST("/upload", func(c echo.Context) error {
		return c.NoContent(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodPost, "/upload", strings.NewReader(strings.Repeat("x", 4096)))
	rec := httptest.NewRecorder()
	s.Echo.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Contains(t, rec.Body.String(), `"error"`)
}

func TestValidatePort(t *testing.T) {
	assert.NoError(t, validatePort("8080"))
	assert.Error(t, validatePort("http"))
	assert.Error(t, validatePort("70000"))
}

func TestLoadConfig(t *testing.T) {
	t.Setenv("ENV", "production")
	t.Setenv("ENV_PATH", "does-not-exist.env")
	t.Setenv("PORT", "9090")
	t.Setenv("CORS_ORIGINS", "https://lantern.news, ,https://admin.lantern.news")
	t.Setenv("BODY_LIMIT", "")

	cfg, err := LoadConfig()
	assert.NoError(t, err)
	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, []string{"https://lantern.news", "https://admin.lantern.news"}, cfg.CorsOrigins)
	assert.Equal(t, defaultBodyLimit, cfg.BodyLimit)
}
