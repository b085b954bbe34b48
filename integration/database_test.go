//go:build database

package integration

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/huangsam/cruxreport/internal/iocache"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// startContainer starts a container and returns the host:port of its first exposed port.
func startContainer(t *testing.T, req testcontainers.ContainerRequest, port string) (string, string) {
	t.Helper()
	ctx := context.Background()

	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Terminate(ctx) })

	host, err := c.Host(ctx)
	require.NoError(t, err)
	mapped, err := c.MappedPort(ctx, nat.Port(port))
	require.NoError(t, err)
	return host, mapped.Port()
}

// exerciseBackends runs a fetch with the given backends, then the status,
// migrate and clear commands against them.
func exerciseBackends(t *testing.T, backend, connStr string) {
	srv := newFakeCrux(t, "https://a.example")
	home := t.TempDir()
	env := map[string]string{
		"CRUX_API_URL":          srv.URL,
		"CRUX_API_KEY":          "test-key",
		"CRUX_CACHE_BACKEND":    backend,
		"CRUX_CACHE_DB_CONNECT": connStr,
		"CRUX_RUN_BACKEND":      backend,
		"CRUX_RUN_DB_CONNECT":   connStr,
		"CRUX_RETRY_DELAY":      "0s",
	}

	_, err := runCruxCommand(t, home, env, "cache", "clear")
	require.NoError(t, err)
	_, err = runCruxCommand(t, home, env, "runs", "clear")
	require.NoError(t, err)
	_, err = runCruxCommand(t, home, env, "runs", "migrate")
	require.NoError(t, err)

	_, err = runCruxCommand(t, home, env, "fetch", "https://a.example", "https://b.example", "--log-level", "error")
	require.NoError(t, err)

	out, err := runCruxCommand(t, home, env, "cache", "status")
	require.NoError(t, err)
	assert.Contains(t, out, backend)

	out, err = runCruxCommand(t, home, env, "runs", "status")
	require.NoError(t, err)
	assert.Contains(t, out, backend)
}

// TestCruxWithMySQL tests the cruxreport CLI with a MySQL backend.
func TestCruxWithMySQL(t *testing.T) {
	host, port := startContainer(t, testcontainers.ContainerRequest{
		Image:        "mysql:8",
		ExposedPorts: []string{"3306/tcp"},
		Env: map[string]string{
			"MYSQL_ROOT_PASSWORD": "secret123",
			"MYSQL_DATABASE":      "cruxreport",
		},
		WaitingFor: wait.ForLog("port: 3306  MySQL Community Server").WithStartupTimeout(60 * time.Second),
	}, "3306")

	exerciseBackends(t, "mysql", fmt.Sprintf("root:secret123@tcp(%s:%s)/cruxreport?parseTime=true", host, port))
}

// TestCruxWithPostgres tests the cruxreport CLI with a PostgreSQL backend.
func TestCruxWithPostgres(t *testing.T) {
	host, port := startContainer(t, testcontainers.ContainerRequest{
		Image:        "postgres:18-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_HOST_AUTH_METHOD": "trust",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).WithStartupTimeout(60 * time.Second),
	}, "5432")

	exerciseBackends(t, "postgresql", fmt.Sprintf("host=%s port=%s user=postgres dbname=postgres sslmode=disable", host, port))
}

// TestRedisCacheStore round-trips a response through the Redis cache backend.
func TestRedisCacheStore(t *testing.T) {
	host, port := startContainer(t, testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(30 * time.Second),
	}, "6379")
	connStr := fmt.Sprintf("redis://%s:%s/0", host, port)

	store, err := iocache.NewRedisCacheStore("crux_cache", connStr, time.Minute)
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	now := time.Now().Unix()
	require.NoError(t, store.Set("k1", []byte(`{"cls":{}}`), 1, now))

	data, version, ts, err := store.Get("k1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"cls":{}}`, string(data))
	assert.Equal(t, 1, version)
	assert.Equal(t, now, ts)

	status, err := store.GetStatus()
	require.NoError(t, err)
	assert.True(t, status.Connected)
	assert.EqualValues(t, 1, status.TotalEntries)

	require.NoError(t, iocache.ClearCache("redis", "", connStr))
	_, _, _, err = store.Get("k1")
	assert.ErrorIs(t, err, redis.Nil)

	exerciseRedisCLI(t, connStr)
}

// exerciseRedisCLI runs the binary with the Redis response cache.
func exerciseRedisCLI(t *testing.T, connStr string) {
	srv := newFakeCrux(t, "https://a.example")
	home := t.TempDir()
	env := map[string]string{
		"CRUX_API_URL":          srv.URL,
		"CRUX_API_KEY":          "test-key",
		"CRUX_CACHE_BACKEND":    "redis",
		"CRUX_CACHE_DB_CONNECT": connStr,
	}
	_, err := runCruxCommand(t, home, env, "fetch", "https://a.example", "--log-level", "error")
	require.NoError(t, err)

	out, err := runCruxCommand(t, home, env, "cache", "status")
	require.NoError(t, err)
	assert.Contains(t, out, "redis")
}
