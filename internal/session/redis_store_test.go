package session_test

import (
	"context"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tazhibayda/library-service/internal/session"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
)

func newRedis(t *testing.T) *redis.Client {
	t.Helper()
	if testing.Short() {
		t.Skip("redis container test skipped in -short mode")
	}
	ctx := context.Background()
	rc, err := tcredis.Run(ctx, "redis:7")
	if err != nil {
		t.Skipf("redis container unavailable: %v", err)
	}
	t.Cleanup(func() { _ = rc.Terminate(ctx) })

	uri, err := rc.ConnectionString(ctx)
	require.NoError(t, err)
	opts, err := redis.ParseURL(uri)
	require.NoError(t, err)
	cli := redis.NewClient(opts)
	t.Cleanup(func() { _ = cli.Close() })
	return cli
}

func TestRedisStore_Lifecycle(t *testing.T) {
	cli := newRedis(t)
	ctx := context.Background()
	st := session.NewRedisStore(cli, time.Minute)

	id, sess, err := st.Create(ctx)
	require.NoError(t, err)

	sess.IsAuthenticated = true
	sess.User = &session.User{Email: "ann@example.com", GivenName: "Ann", FamilyName: "Lee"}
	require.NoError(t, st.Save(ctx, id, sess))

	got, err := st.Get(ctx, id)
	require.NoError(t, err)
	assert.True(t, got.IsAuthenticated)
	assert.Equal(t, "Ann", got.User.GivenName)

	ttl, err := cli.TTL(ctx, "library:sess:"+id).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))

	require.NoError(t, st.Destroy(ctx, id))
	require.NoError(t, st.Destroy(ctx, id))
	_, err = st.Get(ctx, id)
	assert.ErrorIs(t, err, session.ErrNotFound)
}

func TestRedisStore_RevokeUser(t *testing.T) {
	cli := newRedis(t)
	ctx := context.Background()
	st := session.NewRedisStore(cli, time.Minute)

	id, sess, err := st.Create(ctx)
	require.NoError(t, err)
	sess.IsAuthenticated = true
	sess.User = &session.User{Email: "gone@example.com"}
	require.NoError(t, st.Save(ctx, id, sess))

	require.NoError(t, st.RevokeUser(ctx, "gone@example.com"))
	_, err = st.Get(ctx, id)
	assert.ErrorIs(t, err, session.ErrNotFound)
}

func TestRedisStore_GetSlidesExpiry(t *testing.T) {
	cli := newRedis(t)
	ctx := context.Background()
	st := session.NewRedisStore(cli, time.Hour)

	id, sess, err := st.Create(ctx)
	require.NoError(t, err)
	sess.IsAuthenticated = true
	sess.User = &session.User{Email: "ann@example.com"}
	require.NoError(t, st.Save(ctx, id, sess))

	require.NoError(t, cli.Expire(ctx, "library:sess:"+id, 5*time.Second).Err())
	require.NoError(t, cli.Expire(ctx, "library:user_sessions:ann@example.com", 5*time.Second).Err())

	_, err = st.Get(ctx, id)
	require.NoError(t, err)

	ttl, err := cli.TTL(ctx, "library:sess:"+id).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, 50*time.Minute)
	ttl, err = cli.TTL(ctx, "library:user_sessions:ann@example.com").Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, 50*time.Minute)
}
