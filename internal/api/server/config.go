package server

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/DjordjeVuckovic/lantern/pkg/config/env"
	"github.com/DjordjeVuckovic/lantern/pkg/utils"
)

const defaultBodyLimit = "34M"

type Config struct {
	Port        string
	UseHttp2    bool
	CorsOrigins []string
	// BodyLimit caps request bodies before handlers run, in echo's size
	// notation (e.g. "34M"). It sits slightly above the media ceiling so
	// multipart overhead still fits.
	BodyLimit string
}

func LoadConfig() (*Config, error) {
	err := env.LoadDotEnv(os.Getenv("ENV"), "cmd/lantern_api/.env")
	if err != nil {
		slog.Info("Skipping .env ...", "error", err)
	}

	useHttp2 := os.Getenv("USE_HTTP2") == "true"

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	if err := validatePort(port); err != nil {
		return nil, fmt.Errorf("invalid port: %w", err)
	}

	origins := utils.RemoveEmptyStrings(strings.Split(os.Getenv("CORS_ORIGINS"), ","))
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	bodyLimit := os.Getenv("BODY_LIMIT")
	if bodyLimit == "" {
		bodyLimit = defaultBodyLimit
	}

	return &Config{
		Port:        port,
		UseHttp2:    useHttp2,
		CorsOrigins: origins,
		BodyLimit:   bodyLimit,
	}, nil
}

func validatePort(port string) error {
	portNum, err := strconv.Atoi(port)

	if err != nil {
		return errors.New("port must be a number")
	}

	if portNum < 1 || portNum > 65535 {
		return errors.New("port must be between 1 and 65535")
	}

	return nil
}
