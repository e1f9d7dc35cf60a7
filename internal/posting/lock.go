package posting

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrConcurrentOrchestration indicates another orchestration is in flight
// for the same source document. Surfaced to the caller immediately; no
// audit entry is written since no work was performed.
var ErrConcurrentOrchestration = errors.New("posting: orchestration already in progress for document")

// Locker guards at-most-one in-flight orchestration per source document.
type Locker interface {
	Acquire(ctx context.Context, sourceDocID uuid.UUID) (release func(), err error)
}

// DocLockKey builds the redis key for a source document's orchestration lock.
func DocLockKey(sourceDocID uuid.UUID) string {
	return fmt.Sprintf("posting:doc:%s:lock", sourceDocID)
}

// releaseScript deletes the lock only when still held by this owner.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLock implements Locker with SET NX PX semantics.
type RedisLock struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisLock(client *redis.Client, ttl time.Duration) *RedisLock {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &RedisLock{client: client, ttl: ttl}
}

func (l *RedisLock) Acquire(ctx context.Context, sourceDocID uuid.UUID) (func(), error) {
	if l == nil || l.client == nil {
		return nil, fmt.Errorf("posting: lock not initialised")
	}
	key := DocLockKey(sourceDocID)
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("posting: acquire lock: %w", err)
	}
	if !ok {
		return nil, ErrConcurrentOrchestration
	}
	release := func() {
		// Best effort: an expired lock has already been released by redis.
		_, _ = releaseScript.Run(context.WithoutCancel(ctx), l.client, []string{key}, token).Result()
	}
	return release, nil
}
