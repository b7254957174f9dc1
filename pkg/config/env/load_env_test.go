package env

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDotEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("LANTERN_DOTENV_VALUE=from-file\n"), 0o600))
	t.Setenv("ENV_PATH", path)
	t.Setenv("LANTERN_DOTENV_VALUE", "")
	require.NoError(t, os.Unsetenv("LANTERN_DOTENV_VALUE"))

	require.NoError(t, LoadDotEnv("local", "unused"))
	assert.Equal(t, "from-file", os.Getenv("LANTERN_DOTENV_VALUE"))
}

func TestLoadDotEnv_Missing(t *testing.T) {
	t.Setenv("ENV_PATH", filepath.Join(t.TempDir(), "missing.env"))

	assert.Error(t, LoadDotEnv("local", "unused"))
	assert.NoError(t, LoadDotEnv("production", "unused"))
}
