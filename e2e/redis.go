package e2e

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/glizzus/toribot/internal/cache"
	"github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
)

var (
	once           sync.Once
	redisContainer *tcredis.RedisContainer
	connStr        string
	startErr       error
	wg             sync.WaitGroup
)

// UseRedis signals that the test is using Redis as its cache.
// This will either provision or reuse a Redis container for the test.
// Do not expect a clean state; the instance is shared across tests, so
// tests should namespace their keys.
func UseRedis(t *testing.T) string {
	t.Helper()

	once.Do(func() {
		ctx := context.Background()
		redisContainer, startErr = tcredis.Run(ctx, "redis:7-alpine")
		if startErr != nil {
			return
		}
		connStr, startErr = redisContainer.ConnectionString(ctx)
	})

	if startErr != nil {
		t.Fatalf("failed to start redis container: %v", startErr)
	}
	wg.Add(1)
	t.Cleanup(wg.Done)

	return connStr
}

// GetCache creates a Redis cache whose keys start with prefix.
func GetCache(t *testing.T, connStr, prefix string) *cache.Redis {
	t.Helper()
	opts, err := redis.ParseURL(connStr)
	if err != nil {
		t.Fatalf("failed to parse redis url: %v", err)
	}

	client := redis.NewClient(opts)
	t.Cleanup(func() { client.Close() })
	if err := client.Ping(t.Context()).Err(); err != nil {
		t.Fatalf("failed to ping redis: %v", err)
	}
	return cache.NewRedis(client, prefix)
}

func TerminateRedisForE2E() {
	wg.Wait()
	if redisContainer != nil {
		err := testcontainers.TerminateContainer(redisContainer)
		if err != nil {
			fmt.Printf("failed to terminate redis container: %v", err)
		}
	}
}
