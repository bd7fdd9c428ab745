package repo_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tazhibayda/library-service/internal/domain"
	"github.com/tazhibayda/library-service/internal/repo"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/mongodb"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func newStore(t *testing.T) *repo.Store {
	t.Helper()
	if testing.Short() {
		t.Skip("mongo container test skipped in -short mode")
	}
	ctx := context.Background()
	mc, err := mongodb.Run(ctx, "mongo:6")
	if err != nil {
		t.Skipf("mongo container unavailable: %v", err)
	}
	t.Cleanup(func() { _ = testcontainers.TerminateContainer(mc) })

	uri, err := mc.ConnectionString(ctx)
	require.NoError(t, err)
	store, err := repo.NewStore(ctx, uri, "library_test")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close(ctx) })
	require.NoError(t, store.EnsureIndexes(ctx))
	return store
}

func TestStore_Integration(t *testing.T) {
	store := newStore(t)

	t.Run("book CRUD and invalid ids", func(t *testing.T) {
		ctx := context.Background()
		b := &domain.Book{Title: "Dune", Author: "Herbert", Genre: "SF", YearPublished: 1965, CopiesAvailable: 2}
		require.NoError(t, store.Books.Insert(ctx, b))
		require.False(t, b.ID.IsZero())

		got, err := store.Books.Find(ctx, bson.M{"author": "Herbert"})
		require.NoError(t, err)
		require.Len(t, got, 1)

		up, err := store.Books.UpdateByID(ctx, b.ID.Hex(), bson.M{"title": "Dune Messiah"})
		require.NoError(t, err)
		assert.Equal(t, "Dune Messiah", up.Title)

		_, err = store.Books.FindByID(ctx, "not-hex")
		assert.ErrorIs(t, err, domain.ErrNotFound)
		_, err = store.Books.UpdateByID(ctx, primitive.NewObjectID().Hex(), bson.M{"title": "x"})
		assert.ErrorIs(t, err, domain.ErrNotFound)

		_, err = store.Books.FindOneAndDelete(ctx, b.ID.Hex())
		require.NoError(t, err)
		_, err = store.Books.FindOneAndDelete(ctx, b.ID.Hex())
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("copy reservation never goes negative", func(t *testing.T) {
		ctx := context.Background()
		b := &domain.Book{Title: "Emma", Author: "Austen", Genre: "Novel", CopiesAvailable: 3}
		require.NoError(t, store.Books.Insert(ctx, b))

		var (
			wg sync.WaitGroup
			mu sync.Mutex
			ok int
		)
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if _, err := store.ReserveCopy(ctx, b.ID.Hex()); err == nil {
					mu.Lock()
					ok++
					mu.Unlock()
				} else {
					assert.ErrorIs(t, err, domain.ErrNoCopies)
				}
			}()
		}
		wg.Wait()
		assert.Equal(t, 3, ok)

		_, err := store.ReserveCopy(ctx, primitive.NewObjectID().Hex())
		assert.ErrorIs(t, err, domain.ErrNotFound)

		require.NoError(t, store.ReleaseCopy(ctx, b.ID.Hex()))
		require.NoError(t, store.ReleaseCopy(ctx, "b1"))
		cur, err := store.Books.FindByID(ctx, b.ID.Hex())
		require.NoError(t, err)
		assert.Equal(t, 1, cur.CopiesAvailable)
	})

	t.Run("borrow transitions", func(t *testing.T) {
		ctx := context.Background()
		now := time.Now()
		br := domain.NewBorrow("b1", "u1", now)
		require.NoError(t, store.InsertBorrow(ctx, br))

		from := domain.StatusBorrowed
		got, err := store.TransitionBorrow(ctx, br.ID.Hex(), &from, domain.StatusReturned, now)
		require.NoError(t, err)
		assert.Equal(t, domain.StatusReturned, got.Status)
		require.NotNil(t, got.ReturnedAt)

		_, err = store.TransitionBorrow(ctx, br.ID.Hex(), &from, domain.StatusReturned, now)
		assert.ErrorIs(t, err, domain.ErrNotFound)

		got, err = store.TransitionBorrow(ctx, br.ID.Hex(), nil, domain.StatusBorrowed, now)
		require.NoError(t, err)
		assert.Nil(t, got.ReturnedAt)

		list, err := store.ListBorrows(ctx, "u1", "b1")
		require.NoError(t, err)
		assert.Len(t, list, 1)
		list, err = store.ListBorrows(ctx, "u2", "")
		require.NoError(t, err)
		assert.Empty(t, list)

		_, err = store.DeleteBorrow(ctx, br.ID.Hex())
		require.NoError(t, err)
		_, err = store.FindBorrow(ctx, br.ID.Hex())
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("oauth upsert keeps existing users", func(t *testing.T) {
		ctx := context.Background()
		u, created, err := store.EnsureOAuthUser(ctx, &domain.User{GoogleID: "g1", Email: "Ada@Example.com", Name: "Ada L"})
		require.NoError(t, err)
		assert.True(t, created)
		assert.Equal(t, "ada@example.com", u.Email)
		assert.Equal(t, domain.RoleUser, u.Role)

		_, err = store.SetRole(ctx, "ada@example.com", domain.RoleAdmin)
		require.NoError(t, err)

		again, created, err := store.EnsureOAuthUser(ctx, &domain.User{GoogleID: "g1", Email: "ada@example.com", Name: "Other"})
		require.NoError(t, err)
		assert.False(t, created)
		assert.Equal(t, domain.RoleAdmin, again.Role)
		assert.Equal(t, "Ada L", again.Name)

		err = store.Users.Insert(ctx, &domain.User{Email: "ada@example.com"})
		assert.True(t, errors.Is(err, domain.ErrDuplicate))
	})

	t.Run("concurrent first sign-in creates one user", func(t *testing.T) {
		ctx := context.Background()
		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, _, err := store.EnsureOAuthUser(ctx, &domain.User{Email: "race@example.com"})
				assert.NoError(t, err)
			}()
		}
		wg.Wait()
		users, err := store.Users.Find(ctx, bson.M{"email": "race@example.com"})
		require.NoError(t, err)
		assert.Len(t, users, 1)
	})

	t.Run("ping", func(t *testing.T) {
		assert.NoError(t, store.Ping(context.Background()))
	})
}

func TestIsDup(t *testing.T) {
	assert.False(t, repo.IsDup(errors.New("boom")))
	assert.False(t, repo.IsDup(nil))
}

func TestOpenRedis_Unreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	r, err := repo.OpenRedis(ctx, "127.0.0.1:1", "")
	require.Error(t, err)
	assert.Nil(t, r)
	assert.Contains(t, err.Error(), "127.0.0.1:1")
}
