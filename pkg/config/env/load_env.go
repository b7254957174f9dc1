package env

import (
	"log/slog"
	"os"

	"github.com/joho/godotenv"
)

// LoadDotEnv loads a .env file into the process environment. ENV_PATH
// overrides defaultPath. A missing file is an error only when env is
// "local" or unset; deployed environments configure the process directly.
// Variables already set in the environment win over the file.
func LoadDotEnv(env string, defaultPath string) error {
	path := os.Getenv("ENV_PATH")
	if path == "" {
		slog.Debug("ENV_PATH is not set, using default path", "defaultPath", defaultPath)
		path = defaultPath
	}

	if err := godotenv.Load(path); err != nil {
		if env == "local" || env == "" {
			return err
		}
		slog.Debug("Skipping .env", "path", path, "env", env)
	}
	return nil
}
