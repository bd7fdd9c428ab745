package session

import "time"

func (m *MemoryStore) SetClock(now func() time.Time) { m.now = now }

func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}
