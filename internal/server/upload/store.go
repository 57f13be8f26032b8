package upload

import (
	"fmt"
	"sync"
	"time"

	"github.com/ava-vs/chunkvault/internal/common"
	"github.com/ava-vs/chunkvault/internal/server/models"
)

// SessionStore holds in-flight upload sessions. Every mutation of a session
// runs under that session's own lock, so concurrent chunk admissions for
// the same upload serialize their read-modify-write instead of losing
// updates, while different uploads never contend.
type SessionStore interface {
	// Create registers a new session keyed by its UploadID.
	Create(session *models.UploadSession) error
	// View runs fn with the session under its lock, read-only.
	View(uploadID string, fn func(s *models.UploadSession)) error
	// Update runs fn with the session under its lock. When fn returns
	// remove=true with a nil error the session is deleted atomically,
	// so no later call can observe it (at-most-once completion).
	Update(uploadID string, fn func(s *models.UploadSession) (remove bool, err error)) error
	// ExpiredBefore returns copies of sessions created before cutoff.
	ExpiredBefore(cutoff time.Time) []*models.UploadSession
	// Len reports the number of live sessions.
	Len() int
}

type sessionEntry struct {
	mu      sync.Mutex
	session *models.UploadSession
	removed bool
}

// MemorySessionStore is the in-memory SessionStore. The outer mutex guards
// only the map; per-session work happens under the entry lock.
type MemorySessionStore struct {
	mu       sync.Mutex
	sessions map[string]*sessionEntry
}

func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{sessions: make(map[string]*sessionEntry)}
}

func (m *MemorySessionStore) Create(session *models.UploadSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sessions[session.UploadID]; ok {
		return fmt.Errorf("%w: duplicate upload id %s", common.ErrStorageUnavailable, session.UploadID)
	}
	m.sessions[session.UploadID] = &sessionEntry{session: session}
	return nil
}

func (m *MemorySessionStore) lookup(uploadID string) (*sessionEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.sessions[uploadID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", common.ErrSessionNotFound, uploadID)
	}
	return e, nil
}

func (m *MemorySessionStore) View(uploadID string, fn func(s *models.UploadSession)) error {
	e, err := m.lookup(uploadID)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.removed {
		return fmt.Errorf("%w: %s", common.ErrSessionNotFound, uploadID)
	}
	fn(e.session)
	return nil
}

func (m *MemorySessionStore) Update(uploadID string, fn func(s *models.UploadSession) (bool, error)) error {
	e, err := m.lookup(uploadID)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	// The entry may have been completed or swept between the map lookup
	// and taking its lock.
	if e.removed {
		return fmt.Errorf("%w: %s", common.ErrSessionNotFound, uploadID)
	}

	remove, err := fn(e.session)
	if remove && err == nil {
		e.removed = true
		m.mu.Lock()
		delete(m.sessions, uploadID)
		m.mu.Unlock()
	}
	return err
}

func (m *MemorySessionStore) ExpiredBefore(cutoff time.Time) []*models.UploadSession {
	m.mu.Lock()
	entries := make([]*sessionEntry, 0, len(m.sessions))
	for _, e := range m.sessions {
		entries = append(entries, e)
	}
	m.mu.Unlock()

	var expired []*models.UploadSession
	for _, e := range entries {
		e.mu.Lock()
		if !e.removed && e.session.CreatedAt.Before(cutoff) {
			expired = append(expired, copySession(e.session))
		}
		e.mu.Unlock()
	}
	return expired
}

func (m *MemorySessionStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

func copySession(s *models.UploadSession) *models.UploadSession {
	cp := *s
	cp.UploadedChunks = make(map[int]struct{}, len(s.UploadedChunks))
	for k := range s.UploadedChunks {
		cp.UploadedChunks[k] = struct{}{}
	}
	return &cp
}
