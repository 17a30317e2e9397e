package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// TestRunLockIntegration exercises the run lock against a real Redis container
func TestRunLockIntegration(t *testing.T) {
	if testing.Short() || os.Getenv("INTEGRATION") == "" {
		t.Skip("set INTEGRATION=1 to run against a Redis container")
	}

	ctx := context.Background()
	redisContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections"),
		},
		Started: true,
	})
	require.NoError(t, err)
	defer redisContainer.Terminate(ctx)

	host, err := redisContainer.Host(ctx)
	require.NoError(t, err)
	port, err := redisContainer.MappedPort(ctx, "6379")
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{Addr: host + ":" + port.Port()})
	defer client.Close()

	lock := NewRunLock(client, time.Hour)
	day := time.Date(2026, 3, 11, 0, 0, 0, 0, time.UTC)

	ok, err := lock.Acquire(ctx, "shooter-introduction", day, "replica-a")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = lock.Acquire(ctx, "shooter-introduction", day, "replica-b")
	require.NoError(t, err)
	assert.False(t, ok, "second replica must not run the same day")

	require.NoError(t, lock.Release(ctx, "shooter-introduction", day, "replica-b"))
	ttl, err := client.TTL(ctx, "run_lock:shooter-introduction:2026-03-11").Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0), "release by a non-owner must keep the lock")

	require.NoError(t, lock.Release(ctx, "shooter-introduction", day, "replica-a"))
	ok, err = lock.Acquire(ctx, "shooter-introduction", day, "replica-b")
	require.NoError(t, err)
	assert.True(t, ok)
}
