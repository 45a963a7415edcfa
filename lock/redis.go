package lock

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	defaultTTL  = 30 * time.Second
	pollEvery   = 100 * time.Millisecond
	keyPrefix   = "attendance:lock:"
	releaseWait = 2 * time.Second
)

// Only the holder's token may delete the key.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Redis is a lock shared by every instance using the same Redis.
type Redis struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// NewRedis returns a lock whose keys expire after ttl if never released.
func NewRedis(client redis.UniversalClient, ttl time.Duration) *Redis {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &Redis{client: client, ttl: ttl}
}

func (l *Redis) Lock(ctx context.Context, key string) (func(), error) {
	k := keyPrefix + key
	token := uuid.NewString()

	t := time.NewTicker(pollEvery)
	defer t.Stop()

	for {
		ok, err := l.client.SetNX(ctx, k, token, l.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("set nx: %w", err)
		}
		if ok {
			return func() { l.release(k, token) }, nil
		}

		select {
		case <-t.C:
		case <-ctx.Done():
			return nil, fmt.Errorf("wait for %s: %w", k, ctx.Err())
		}
	}
}

func (l *Redis) release(key, token string) {
	ctx, cancel := context.WithTimeout(context.Background(), releaseWait)
	defer cancel()

	if err := releaseScript.Run(ctx, l.client, []string{key}, token).Err(); err != nil {
		log.Printf("Release lock %s: %v.", key, err)
	}
}
