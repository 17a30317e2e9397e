package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// RunLock makes sure a named daily job runs once per day across replicas.
type RunLock struct {
	Client *redis.Client
	TTL    time.Duration
}

func NewRunLock(client *redis.Client, ttl time.Duration) *RunLock {
	return &RunLock{Client: client, TTL: ttl}
}

func runLockKey(job string, day time.Time) string {
	return fmt.Sprintf("run_lock:%s:%s", job, day.Format("2006-01-02"))
}

// Acquire claims the job for day. It reports false when another owner holds it.
func (l *RunLock) Acquire(ctx context.Context, job string, day time.Time, owner string) (bool, error) {
	return l.Client.SetNX(ctx, runLockKey(job, day), owner, l.TTL).Result()
}

// Release frees the claim if owner still holds it.
func (l *RunLock) Release(ctx context.Context, job string, day time.Time, owner string) error {
	key := runLockKey(job, day)
	val, err := l.Client.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil
	}
	if err != nil {
		return err
	}
	if val != owner {
		return nil
	}
	return l.Client.Del(ctx, key).Err()
}
