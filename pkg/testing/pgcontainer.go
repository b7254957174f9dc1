// Package testing starts throwaway backing services for integration tests
// built with the "integration" tag.
package testing

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

const defaultPGImage = "postgres:17.5"

type PGContainer struct {
	Container  testcontainers.Container
	ConnString string
}

// NewPGContainerWithCleanup starts Postgres with every db/migrations
// *.up.sql applied in order. LANTERN_TEST_PG_IMAGE overrides the image.
func NewPGContainerWithCleanup(ctx context.Context, tb testing.TB) *PGContainer {
	tb.Helper()

	script, err := writeMigrationScript(tb.TempDir())
	if err != nil {
		tb.Fatalf("failed to prepare migrations: %v", err)
	}

	pgContainer, err := postgres.Run(ctx,
		imageOr("LANTERN_TEST_PG_IMAGE", defaultPGImage),
		postgres.WithDatabase("lantern_test_db"),
		postgres.WithUsername("lantern"),
		postgres.WithPassword("lantern"),
		postgres.WithInitScripts(script),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		tb.Fatalf("failed to start postgres container: %v", err)
	}
	tb.Cleanup(func() {
		if err := testcontainers.TerminateContainer(pgContainer); err != nil {
			tb.Logf("failed to terminate postgres container: %v", err)
		}
	})

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		tb.Fatalf("failed to get connection string: %v", err)
	}

	return &PGContainer{Container: pgContainer, ConnString: connStr}
}

// writeMigrationScript joins the up migrations into one init script.
// Migration files carry no trailing semicolon, so one is added per file.
func writeMigrationScript(dir string) (string, error) {
	_, self, _, _ := runtime.Caller(0)
	migrationsDir := filepath.Join(filepath.Dir(self), "..", "..", "db", "migrations")

	files, err := filepath.Glob(filepath.Join(migrationsDir, "*.up.sql"))
	if err != nil {
		return "", fmt.Errorf("failed to find migration files: %w", err)
	}
	if len(files) == 0 {
		return "", fmt.Errorf("no migrations found in %s", migrationsDir)
	}
	sort.Strings(files)

	parts := make([]string, 0, len(files))
	for _, f := range files {
		content, err := os.ReadFile(f)
		if err != nil {
			return "", fmt.Errorf("failed to read migration file %s: %w", f, err)
		}
		parts = append(parts, strings.TrimRight(strings.TrimSpace(string(content)), ";")+";")
	}

	path := filepath.Join(dir, "migrations.sql")
	if err := os.WriteFile(path, []byte(strings.Join(parts, "\n\n")+"\n"), 0o600); err != nil {
		return "", fmt.Errorf("failed to write migrations: %w", err)
	}
	return path, nil
}

func imageOr(envKey, def string) string {
	if img := strings.TrimSpace(os.Getenv(envKey)); img != "" {
		return img
	}
	return def
}
