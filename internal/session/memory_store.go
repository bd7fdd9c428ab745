package session

import (
	"context"
	"strings"
	"sync"
	"time"
)

type memEntry struct {
	sess    Session
	expires time.Time
}

// MemoryStore keeps sessions in process memory. Used when no Redis address is configured
// and in tests. Sessions expire ttl after their last Get or Save; a ttl of zero keeps them
// until Destroy.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]memEntry
	ttl      time.Duration
	now      func() time.Time
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{sessions: make(map[string]memEntry), ttl: ttl, now: time.Now}
}

func (m *MemoryStore) Create(ctx context.Context) (string, *Session, error) {
	id, err := NewID()
	if err != nil {
		return "", nil, err
	}
	sess := &Session{IssuedAt: m.now().Unix()}
	return id, sess, m.Save(ctx, id, sess)
}

func (m *MemoryStore) Get(_ context.Context, id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	now := m.now()
	if m.ttl > 0 {
		if !now.Before(e.expires) {
			delete(m.sessions, id)
			return nil, ErrNotFound
		}
		e.expires = now.Add(m.ttl)
		m.sessions[id] = e
	}
	return clone(&e.sess), nil
}

func (m *MemoryStore) Save(_ context.Context, id string, sess *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[id] = memEntry{sess: *clone(sess), expires: m.now().Add(m.ttl)}
	m.prune()
	return nil
}

// prune drops expired entries; callers hold mu.
func (m *MemoryStore) prune() {
	if m.ttl <= 0 {
		return
	}
	now := m.now()
	for id, e := range m.sessions {
		if !now.Before(e.expires) {
			delete(m.sessions, id)
		}
	}
}

func (m *MemoryStore) Destroy(_ context.Context, id string) error {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) RevokeUser(_ context.Context, email string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, e := range m.sessions {
		if strings.EqualFold(e.sess.Email(), email) {
			delete(m.sessions, id)
		}
	}
	return nil
}

func clone(s *Session) *Session {
	cp := *s
	if s.User != nil {
		u := *s.User
		cp.User = &u
	}
	return &cp
}
