package session_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tazhibayda/library-service/internal/session"
)

func TestMemoryStore_Lifecycle(t *testing.T) {
	ctx := context.Background()
	st := session.NewMemoryStore(time.Hour)

	id, sess, err := st.Create(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, id)
	assert.False(t, sess.IsAuthenticated)

	sess.IsAuthenticated = true
	sess.User = &session.User{Email: "ann@example.com", GivenName: "Ann", FamilyName: "Lee"}
	require.NoError(t, st.Save(ctx, id, sess))

	got, err := st.Get(ctx, id)
	require.NoError(t, err)
	assert.True(t, got.IsAuthenticated)
	assert.Equal(t, "ann@example.com", got.Email())

	require.NoError(t, st.Destroy(ctx, id))
	_, err = st.Get(ctx, id)
	assert.ErrorIs(t, err, session.ErrNotFound)

	// destroying twice is fine
	require.NoError(t, st.Destroy(ctx, id))
}

func TestMemoryStore_GetReturnsCopy(t *testing.T) {
	ctx := context.Background()
	st := session.NewMemoryStore(time.Hour)
	id, sess, err := st.Create(ctx)
	require.NoError(t, err)
	sess.User = &session.User{Email: "a@example.com"}
	require.NoError(t, st.Save(ctx, id, sess))

	got, _ := st.Get(ctx, id)
	got.User.Email = "changed@example.com"

	again, _ := st.Get(ctx, id)
	assert.Equal(t, "a@example.com", again.Email())
}

func TestMemoryStore_RevokeUser(t *testing.T) {
	ctx := context.Background()
	st := session.NewMemoryStore(time.Hour)
	auth := func(email string) string {
		id, s, err := st.Create(ctx)
		require.NoError(t, err)
		s.IsAuthenticated = true
		s.User = &session.User{Email: email}
		require.NoError(t, st.Save(ctx, id, s))
		return id
	}
	a1, a2, b := auth("a@example.com"), auth("A@example.com"), auth("b@example.com")

	require.NoError(t, st.RevokeUser(ctx, "a@example.com"))

	for _, id := range []string{a1, a2} {
		_, err := st.Get(ctx, id)
		assert.ErrorIs(t, err, session.ErrNotFound)
	}
	_, err := st.Get(ctx, b)
	assert.NoError(t, err)
}

func TestSession_EmailNil(t *testing.T) {
	var s *session.Session
	assert.Equal(t, "", s.Email())
	assert.Equal(t, "", (&session.Session{}).Email())
}

func TestMemoryStore_SlidingExpiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	st := session.NewMemoryStore(time.Hour)
	st.SetClock(func() time.Time { return now })

	id, _, err := st.Create(ctx)
	require.NoError(t, err)

	now = now.Add(50 * time.Minute)
	_, err = st.Get(ctx, id)
	require.NoError(t, err)

	// 100 minutes after creation, but only 50 since the last read
	now = now.Add(50 * time.Minute)
	_, err = st.Get(ctx, id)
	require.NoError(t, err)

	now = now.Add(time.Hour)
	_, err = st.Get(ctx, id)
	assert.ErrorIs(t, err, session.ErrNotFound)
}

func TestMemoryStore_SavePrunesExpired(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	st := session.NewMemoryStore(time.Minute)
	st.SetClock(func() time.Time { return now })

	for i := 0; i < 5; i++ {
		_, _, err := st.Create(ctx)
		require.NoError(t, err)
	}
	now = now.Add(2 * time.Minute)
	_, _, err := st.Create(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, st.Len())
}

func TestMemoryStore_ZeroTTLKeeps(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	st := session.NewMemoryStore(0)
	st.SetClock(func() time.Time { return now })

	id, _, err := st.Create(ctx)
	require.NoError(t, err)
	now = now.Add(24 * 365 * time.Hour)
	_, err = st.Get(ctx, id)
	assert.NoError(t, err)
}
