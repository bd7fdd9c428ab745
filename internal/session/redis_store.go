package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
)

// RedisStore keeps each session as one JSON value. Every Get pushes the expiry out by ttl.
type RedisStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisStore(rdb *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{rdb: rdb, ttl: ttl}
}

func key(id string) string { return fmt.Sprintf("library:sess:%s", id) }
func userSetKey(email string) string {
	return fmt.Sprintf("library:user_sessions:%s", strings.ToLower(email))
}

func (s *RedisStore) Create(ctx context.Context) (string, *Session, error) {
	id, err := NewID()
	if err != nil {
		return "", nil, err
	}
	sess := &Session{IssuedAt: time.Now().Unix()}
	if err := s.Save(ctx, id, sess); err != nil {
		return "", nil, err
	}
	return id, sess, nil
}

func (s *RedisStore) Get(ctx context.Context, id string) (*Session, error) {
	if id == "" {
		return nil, ErrNotFound
	}
	pipe := s.rdb.TxPipeline()
	get := pipe.Get(ctx, key(id))
	pipe.Expire(ctx, key(id), s.ttl)
	_, err := pipe.Exec(ctx)
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	b, err := get.Bytes()
	if err != nil {
		return nil, err
	}
	var sess Session
	if err := json.Unmarshal(b, &sess); err != nil {
		return nil, err
	}
	if email := sess.Email(); sess.IsAuthenticated && email != "" {
		if err := s.rdb.Expire(ctx, userSetKey(email), s.ttl).Err(); err != nil {
			return nil, err
		}
	}
	return &sess, nil
}

func (s *RedisStore) Save(ctx context.Context, id string, sess *Session) error {
	b, err := json.Marshal(sess)
	if err != nil {
		return err
	}
	pipe := s.rdb.TxPipeline()
	pipe.Set(ctx, key(id), b, s.ttl)
	if email := sess.Email(); sess.IsAuthenticated && email != "" {
		pipe.SAdd(ctx, userSetKey(email), id)
		pipe.Expire(ctx, userSetKey(email), s.ttl)
	}
	_, err = pipe.Exec(ctx)
	return err
}

func (s *RedisStore) Destroy(ctx context.Context, id string) error {
	sess, _ := s.Get(ctx, id)
	pipe := s.rdb.TxPipeline()
	pipe.Del(ctx, key(id))
	if email := sess.Email(); email != "" {
		pipe.SRem(ctx, userSetKey(email), id)
	}
	_, err := pipe.Exec(ctx)
	return err
}

func (s *RedisStore) RevokeUser(ctx context.Context, email string) error {
	ids, err := s.rdb.SMembers(ctx, userSetKey(email)).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return err
	}
	pipe := s.rdb.TxPipeline()
	for _, sid := range ids {
		pipe.Del(ctx, key(sid))
	}
	pipe.Del(ctx, userSetKey(email))
	_, err = pipe.Exec(ctx)
	return err
}
