package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"github.com/tazhibayda/library-service/internal/auth"
	"github.com/tazhibayda/library-service/internal/borrow"
	"github.com/tazhibayda/library-service/internal/domain"
	api "github.com/tazhibayda/library-service/internal/http"
	"github.com/tazhibayda/library-service/internal/oauth"
	"github.com/tazhibayda/library-service/internal/queue"
	"github.com/tazhibayda/library-service/internal/security"
	"github.com/tazhibayda/library-service/internal/session"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/oauth2"
)

// memCollection is an in-memory api.Collection. Documents go through bson so filters and
// $set use the stored field names, as they would against Mongo.
type memCollection[T any] struct {
	mu    sync.Mutex
	docs  map[string]bson.M
	order []string
	setID func(*T, primitive.ObjectID)
	fail  error
}

func newMem[T any](setID func(*T, primitive.ObjectID)) *memCollection[T] {
	return &memCollection[T]{docs: map[string]bson.M{}, setID: setID}
}

func toM(v any) bson.M {
	raw, err := bson.Marshal(v)
	if err != nil {
		panic(err)
	}
	var m bson.M
	if err := bson.Unmarshal(raw, &m); err != nil {
		panic(err)
	}
	return m
}

func fromM[T any](m bson.M) *T {
	raw, err := bson.Marshal(m)
	if err != nil {
		panic(err)
	}
	v := new(T)
	if err := bson.Unmarshal(raw, v); err != nil {
		panic(err)
	}
	return v
}

func (m *memCollection[T]) Find(_ context.Context, filter bson.M) ([]T, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return nil, m.fail
	}
	out := make([]T, 0)
	for _, id := range m.order {
		doc, ok := m.docs[id]
		if !ok || !matches(doc, filter) {
			continue
		}
		out = append(out, *fromM[T](doc))
	}
	return out, nil
}

func matches(doc, filter bson.M) bool {
	for k, want := range filter {
		if fmt.Sprint(doc[k]) != fmt.Sprint(want) {
			return false
		}
	}
	return true
}

func (m *memCollection[T]) FindByID(_ context.Context, id string) (*T, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return nil, m.fail
	}
	doc, ok := m.docs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return fromM[T](doc), nil
}

func (m *memCollection[T]) Insert(_ context.Context, v *T) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return m.fail
	}
	oid := primitive.NewObjectID()
	m.setID(v, oid)
	m.docs[oid.Hex()] = toM(v)
	m.order = append(m.order, oid.Hex())
	return nil
}

func (m *memCollection[T]) UpdateByID(_ context.Context, id string, set bson.M) (*T, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return nil, m.fail
	}
	doc, ok := m.docs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	for k, v := range toM(set) {
		doc[k] = v
	}
	return fromM[T](doc), nil
}

func (m *memCollection[T]) FindOneAndDelete(_ context.Context, id string) (*T, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return nil, m.fail
	}
	doc, ok := m.docs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	delete(m.docs, id)
	return fromM[T](doc), nil
}

// accounts serves FindUserByEmail and EnsureOAuthUser from the users collection.
type accounts struct {
	users *memCollection[domain.User]
	fail  error
}

func (a *accounts) FindUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	if a.fail != nil {
		return nil, a.fail
	}
	found, _ := a.users.Find(ctx, bson.M{"email": strings.ToLower(email)})
	if len(found) == 0 {
		return nil, domain.ErrNotFound
	}
	return &found[0], nil
}

func (a *accounts) EnsureOAuthUser(ctx context.Context, u *domain.User) (*domain.User, bool, error) {
	if got, err := a.FindUserByEmail(ctx, u.Email); err == nil {
		return got, false, nil
	}
	if err := a.users.Insert(ctx, u); err != nil {
		return nil, false, err
	}
	return u, true, nil
}

// borrowStore adapts a memCollection to borrow.Repository and borrow.Inventory.
type borrowStore struct {
	borrows *memCollection[domain.Borrow]
	books   *memCollection[domain.Book]
}

func (s *borrowStore) InsertBorrow(ctx context.Context, b *domain.Borrow) error {
	return s.borrows.Insert(ctx, b)
}

func (s *borrowStore) FindBorrow(ctx context.Context, id string) (*domain.Borrow, error) {
	return s.borrows.FindByID(ctx, id)
}

func (s *borrowStore) DeleteBorrow(ctx context.Context, id string) (*domain.Borrow, error) {
	return s.borrows.FindOneAndDelete(ctx, id)
}

func (s *borrowStore) ListBorrows(ctx context.Context, userID, bookID string) ([]domain.Borrow, error) {
	f := bson.M{}
	if userID != "" {
		f["user_id"] = userID
	}
	if bookID != "" {
		f["book_id"] = bookID
	}
	return s.borrows.Find(ctx, f)
}

func (s *borrowStore) TransitionBorrow(ctx context.Context, id string, from *domain.BorrowStatus, to domain.BorrowStatus, now time.Time) (*domain.Borrow, error) {
	cur, err := s.borrows.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if from != nil && cur.Status != *from {
		return nil, domain.ErrNotFound
	}
	set := bson.M{"status": to, "returned_at": nil}
	if to == domain.StatusReturned {
		set["returned_at"] = now.UTC()
	}
	return s.borrows.UpdateByID(ctx, id, set)
}

func (s *borrowStore) ReserveCopy(ctx context.Context, bookID string) (*domain.Book, error) {
	b, err := s.books.FindByID(ctx, bookID)
	if err != nil {
		return nil, err
	}
	if b.CopiesAvailable <= 0 {
		return nil, domain.ErrNoCopies
	}
	return s.books.UpdateByID(ctx, bookID, bson.M{"copies_available": b.CopiesAvailable - 1})
}

func (s *borrowStore) ReleaseCopy(ctx context.Context, bookID string) error {
	b, err := s.books.FindByID(ctx, bookID)
	if err != nil {
		return nil
	}
	_, err = s.books.UpdateByID(ctx, bookID, bson.M{"copies_available": b.CopiesAvailable + 1})
	return err
}

// fakeGoogle accepts the code "good" and returns a fixed profile.
type fakeGoogle struct {
	profile oauth.Profile
}

func (f *fakeGoogle) MakeState(raw string) string { return raw + ".sig" }
func (f *fakeGoogle) VerifyState(got string) bool { return strings.HasSuffix(got, ".sig") }
func (f *fakeGoogle) AuthURL(state string) (string, error) {
	return "https://accounts.example.com/auth?state=" + state, nil
}

func (f *fakeGoogle) Exchange(_ context.Context, code string) (*oauth2.Token, error) {
	if code != "good" {
		return nil, fmt.Errorf("bad code %q", code)
	}
	return &oauth2.Token{AccessToken: "at"}, nil
}

func (f *fakeGoogle) FetchProfile(context.Context, *oauth2.Token) (*oauth.Profile, error) {
	p := f.profile
	return &p, nil
}

type testEnv struct {
	T        *testing.T
	Ctx      context.Context
	Books    *memCollection[domain.Book]
	Users    *memCollection[domain.User]
	Reviews  *memCollection[domain.Review]
	Borrows  *memCollection[domain.Borrow]
	Accounts *accounts
	Sessions *session.MemoryStore
	Events   *queue.Recorder
	Router   *gin.Engine
}

func newTestEnv(t *testing.T, strict bool) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)
	security.Cost = bcrypt.MinCost

	e := &testEnv{
		T:        t,
		Ctx:      context.Background(),
		Books:    newMem(func(b *domain.Book, id primitive.ObjectID) { b.ID = id }),
		Users:    newMem(func(u *domain.User, id primitive.ObjectID) { u.ID = id }),
		Reviews:  newMem(func(r *domain.Review, id primitive.ObjectID) { r.ID = id }),
		Borrows:  newMem(func(b *domain.Borrow, id primitive.ObjectID) { b.ID = id }),
		Sessions: session.NewMemoryStore(time.Hour),
		Events:   &queue.Recorder{},
	}
	e.Accounts = &accounts{users: e.Users}
	store := &borrowStore{borrows: e.Borrows, books: e.Books}

	h := api.NewHandler(api.Deps{
		Books:    e.Books,
		Users:    e.Users,
		Reviews:  e.Reviews,
		Accounts: e.Accounts,
		Borrows:  borrow.NewManager(store, store, e.Events, borrow.Options{Strict: strict}),
		Sessions: e.Sessions,
		OAuth: &fakeGoogle{profile: oauth.Profile{
			ID: "g-1", Email: "Ada@Example.com", GivenName: "Ada", FamilyName: "Lovelace",
		}},
		SessionTTL:      time.Hour,
		RateLimitPerMin: 100,
		Health: map[string]api.Check{
			"mongo": func(context.Context) error { return nil },
		},
	})
	e.Router = api.NewRouter(h)
	return e
}

// login stores an authenticated session for email and returns its cookie.
func (e *testEnv) login(email string) *http.Cookie {
	e.T.Helper()
	id, s, err := e.Sessions.Create(e.Ctx)
	require.NoError(e.T, err)
	s.IsAuthenticated = true
	s.User = &session.User{Email: email}
	require.NoError(e.T, e.Sessions.Save(e.Ctx, id, s))
	return &http.Cookie{Name: auth.CookieName, Value: id}
}

func (e *testEnv) addUser(email string, role domain.Role) *domain.User {
	e.T.Helper()
	u := &domain.User{Email: email, Name: email, Role: role}
	require.NoError(e.T, e.Users.Insert(e.Ctx, u))
	return u
}

func (e *testEnv) admin() *http.Cookie {
	e.addUser("admin@example.com", domain.RoleAdmin)
	return e.login("admin@example.com")
}

func (e *testEnv) do(method, path, body string, cookie *http.Cookie) *httptest.ResponseRecorder {
	e.T.Helper()
	var rd *bytes.Buffer
	if body != "" {
		rd = bytes.NewBufferString(body)
	} else {
		rd = &bytes.Buffer{}
	}
	req := httptest.NewRequest(method, path, rd)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if cookie != nil {
		req.AddCookie(cookie)
	}
	w := httptest.NewRecorder()
	e.Router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func sessionCookie(t *testing.T, w *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range w.Result().Cookies() {
		if c.Name == auth.CookieName {
			return c
		}
	}
	t.Fatal("no session cookie set")
	return nil
}
