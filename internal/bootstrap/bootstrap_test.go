package bootstrap

import (
	"context"
	"net/http"
	"path/filepath"
	"testing"

	"github.com/goldyy12/files/internal/config"
	"github.com/rs/zerolog"
	"github.com/steinfletcher/apitest"
	jsonpath "github.com/steinfletcher/apitest-jsonpath"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T, backend string) config.Config {
	dir := t.TempDir()
	cfg := config.Defaults()
	cfg.Database = filepath.Join(dir, "db", "files.db")
	cfg.StorageRoot = filepath.Join(dir, "uploads")
	cfg.SessionSecret = "0123456789abcdef0123456789abcdef"
	cfg.SessionBackend = backend
	require.NoError(t, cfg.Validate())
	return cfg
}

func TestBuild(t *testing.T) {
	for _, backend := range []string{config.BackendSQLite, config.BackendMemory} {
		t.Run(backend, func(t *testing.T) {
			ctx := context.Background()
			c, err := Build(ctx, testConfig(t, backend))
			require.NoError(t, err)
			defer c.Close()

			apitest.Handler(c.Handler(zerolog.Nop())).
				Get("/healthz").
				Expect(t).
				Status(http.StatusOK).
				Assert(jsonpath.Equal("$.status", "ok")).
				End()

			counts, err := c.Sweeper.RunOnce(ctx)
			require.NoError(t, err)
			require.Equal(t, map[string]int{"sessions": 0, "deletions": 0}, counts)
		})
	}
}

func TestBuildRejectsShortSecret(t *testing.T) {
	cfg := testConfig(t, config.BackendSQLite)
	cfg.SessionSecret = "short"
	_, err := Build(context.Background(), cfg)
	require.Error(t, err)
}
