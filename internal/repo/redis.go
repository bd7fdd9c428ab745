package repo

import (
	"context"
	"fmt"

	"github.com/go-redis/redis/v8"
)

// Redis backs sessions and the shared rate limiter.
type Redis struct{ C *redis.Client }

// OpenRedis dials addr and fails unless the server answers a PING.
func OpenRedis(ctx context.Context, addr, password string) (*Redis, error) {
	c := redis.NewClient(&redis.Options{Addr: addr, Password: password})
	if err := c.Ping(ctx).Err(); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("redis %s: %w", addr, err)
	}
	return &Redis{C: c}, nil
}

func (r *Redis) Ping(ctx context.Context) error { return r.C.Ping(ctx).Err() }
func (r *Redis) Close() error                   { return r.C.Close() }
