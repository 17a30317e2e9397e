package cache

import (
	"context"
	"fmt"
	"time"

	"ms-scheduling/internal/logger"

	"github.com/go-redis/redis/v8"
)

// NewClient connects to redis and checks the connection with a ping.
func NewClient(addr string, log *logger.Logger) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		DB:       0,
		PoolSize: 10,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}
	if log != nil {
		log.Info("REDIS", fmt.Sprintf("Connected to Redis at %s", addr))
	}
	return client, nil
}
