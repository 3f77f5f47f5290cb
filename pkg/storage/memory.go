package storage

import (
	"context"
	"sync"
	"time"

	"github.com/Sriram-PR/wiki-bot/pkg/models"
)

// MemoryStore is the default in-process SessionStore. Sessions are lost on restart.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[int64]memoryEntry
	ttl      time.Duration
	now      func() time.Time
}

type memoryEntry struct {
	session   models.QuizSession
	expiresAt time.Time // zero = never
}

// NewMemoryStore creates an empty store. ttl <= 0 disables expiry.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		sessions: make(map[int64]memoryEntry),
		ttl:      ttl,
		now:      time.Now,
	}
}

func (m *MemoryStore) expired(e memoryEntry) bool {
	return !e.expiresAt.IsZero() && !m.now().Before(e.expiresAt)
}

// Get returns a copy so callers can mutate it before Put. An expired session is removed.
func (m *MemoryStore) Get(_ context.Context, chatID int64) (*models.QuizSession, bool, error) {
	m.mu.RLock()
	e, ok := m.sessions[chatID]
	m.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	if m.expired(e) {
		m.mu.Lock()
		// A concurrent Put may have refreshed the entry
		if cur, ok := m.sessions[chatID]; ok && m.expired(cur) {
			delete(m.sessions, chatID)
		}
		m.mu.Unlock()
		return nil, false, nil
	}
	sess := e.session
	sess.Questions = append([]models.QuizQuestion(nil), e.session.Questions...)
	return &sess, true, nil
}

func (m *MemoryStore) Put(_ context.Context, sess *models.QuizSession) error {
	e := memoryEntry{session: *sess}
	e.session.Questions = append([]models.QuizQuestion(nil), sess.Questions...)
	if m.ttl > 0 {
		e.expiresAt = m.now().Add(m.ttl)
	}
	m.mu.Lock()
	m.sessions[sess.ChatID] = e
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, chatID int64) error {
	m.mu.Lock()
	delete(m.sessions, chatID)
	m.mu.Unlock()
	return nil
}

// Count drops expired sessions as a side effect
func (m *MemoryStore) Count(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sweepLocked()
	return len(m.sessions), nil
}

// sweepLocked deletes expired sessions. Callers hold mu.
func (m *MemoryStore) sweepLocked() {
	for id, e := range m.sessions {
		if m.expired(e) {
			delete(m.sessions, id)
		}
	}
}

// RunGC periodically evicts expired sessions until ctx is done
func (m *MemoryStore) RunGC(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.mu.Lock()
			m.sweepLocked()
			m.mu.Unlock()
		case <-ctx.Done():
			return
		}
	}
}

func (m *MemoryStore) Close() error { return nil }
