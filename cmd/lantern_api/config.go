package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/DjordjeVuckovic/lantern/internal/auth"
	"github.com/DjordjeVuckovic/lantern/internal/media"
	"github.com/DjordjeVuckovic/lantern/internal/storage/factory"
	"github.com/DjordjeVuckovic/lantern/pkg/config/env"
)

type AppConfig struct {
	ENV string
}

func NewAppConfig() *AppConfig {
	return &AppConfig{
		ENV: os.Getenv("ENV"),
	}
}

type LanternConfig struct {
	StorageConfig factory.StorageConfig
	Auth          auth.Config
	StaffFile     string

	// RedisURL moves login and publish limiter state to Redis when set.
	RedisURL string

	Media      media.Config
	ThumbDir   string
	ThumbWidth int

	// ViewRate and ViewBurst throttle the public news endpoints per IP.
	ViewRate     float64
	ViewBurst    int
	SecureCookie bool

	LogLevel  slog.Level
	LogFormat string
}

func (as *AppConfig) Load() (*LanternConfig, error) {
	err := env.LoadDotEnv(as.ENV, "cmd/lantern_api/.env")
	if err != nil {
		slog.Info("Failed to .env load environment variables, continuing with existing environment variables", "error", err)
	}

	storageCfg, err := factory.LoadEnv()
	if err != nil {
		slog.Error("Failed to load storage configuration from environment", "error", err)
		return nil, err
	}

	authCfg, err := loadAuth()
	if err != nil {
		return nil, err
	}

	staffFile := env.String("STAFF_FILE", "")
	if staffFile == "" {
		return nil, errors.New("STAFF_FILE environment variable is not set")
	}

	maxBytes, err := env.Int64("MEDIA_MAX_BYTES", media.DefaultMaxBytes)
	if err != nil {
		return nil, err
	}
	mediaDir := env.String("MEDIA_DIR", "data/media")

	thumbWidth, err := env.Int("THUMB_WIDTH", media.DefaultThumbnailWidth)
	if err != nil {
		return nil, err
	}

	viewRate, err := env.Float("VIEW_RATE_PER_SEC", 5)
	if err != nil {
		return nil, err
	}
	viewBurst, err := env.Int("VIEW_BURST", 20)
	if err != nil {
		return nil, err
	}

	secureCookie, err := env.Bool("SECURE_COOKIE", as.ENV == "production")
	if err != nil {
		return nil, err
	}

	level, err := parseLevel(env.String("LOG_LEVEL", "info"))
	if err != nil {
		return nil, err
	}

	return &LanternConfig{
		StorageConfig: *storageCfg,
		Auth:          authCfg,
		StaffFile:     staffFile,
		RedisURL:      env.String("REDIS_URL", ""),
		Media:         media.Config{Dir: mediaDir, MaxBytes: maxBytes},
		ThumbDir:      env.String("THUMB_DIR", mediaDir+"/thumbs"),
		ThumbWidth:    thumbWidth,
		ViewRate:      viewRate,
		ViewBurst:     viewBurst,
		SecureCookie:  secureCookie,
		LogLevel:      level,
		LogFormat:     strings.ToLower(env.String("LOG_FORMAT", "text")),
	}, nil
}

func loadAuth() (auth.Config, error) {
	cfg := auth.DefaultConfig()

	secret := os.Getenv("SESSION_SECRET")
	if len(secret) < auth.MinSecretLength {
		return auth.Config{}, fmt.Errorf("SESSION_SECRET must be at least %d bytes", auth.MinSecretLength)
	}
	cfg.SessionSecret = []byte(secret)

	var err error
	if cfg.SessionTTL, err = env.Duration("SESSION_TTL", cfg.SessionTTL); err != nil {
		return auth.Config{}, err
	}
	if cfg.LoginLimit.Max, err = env.Int("LOGIN_MAX_ATTEMPTS", cfg.LoginLimit.Max); err != nil {
		return auth.Config{}, err
	}
	if cfg.LoginLimit.Window, err = env.Duration("LOGIN_WINDOW", cfg.LoginLimit.Window); err != nil {
		return auth.Config{}, err
	}
	if cfg.ActionLimit.Max, err = env.Int("PUBLISH_MAX_ATTEMPTS", cfg.ActionLimit.Max); err != nil {
		return auth.Config{}, err
	}
	if cfg.ActionLimit.Window, err = env.Duration("PUBLISH_WINDOW", cfg.ActionLimit.Window); err != nil {
		return auth.Config{}, err
	}
	if cfg.BcryptCost, err = env.Int("BCRYPT_COST", cfg.BcryptCost); err != nil {
		return auth.Config{}, err
	}
	if cfg.LoginLimit.Max <= 0 || cfg.ActionLimit.Max <= 0 {
		return auth.Config{}, errors.New("rate limit ceilings must be positive")
	}
	if cfg.LoginLimit.Window <= 0 || cfg.ActionLimit.Window <= 0 || cfg.SessionTTL <= 0 {
		return auth.Config{}, errors.New("rate limit windows and session TTL must be positive")
	}
	return cfg, nil
}

func parseLevel(raw string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(raw)); err != nil {
		return 0, fmt.Errorf("invalid LOG_LEVEL %q: %w", raw, err)
	}
	return level, nil
}

func newLogger(level slog.Level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	if format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}
