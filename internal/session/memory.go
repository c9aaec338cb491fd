package session

import (
	"context"
	"sync"

	"github.com/m3rciful/ledgerbot/core/telegram/state"
)

type memoryManager struct {
	mu       sync.RWMutex
	sessions map[int64]*Session
}

// NewMemoryManager constructs the in-memory Manager. Sessions live for the
// process lifetime or until explicitly cleared.
func NewMemoryManager() Manager {
	return &memoryManager{sessions: make(map[int64]*Session)}
}

// Get returns a snapshot of the user's session, or a fresh idle session.
func (m *memoryManager) Get(_ context.Context, userID int64) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if sess, ok := m.sessions[userID]; ok {
		return sess.Clone(), nil
	}
	return NewSession(), nil
}

// Update applies fn to the user's session under the manager lock, creating
// the session if necessary.
func (m *memoryManager) Update(_ context.Context, userID int64, fn func(*Session)) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess, ok := m.sessions[userID]
	if !ok {
		sess = NewSession()
		m.sessions[userID] = sess
	}
	fn(sess)
	return nil
}

// Clear removes the session entirely.
func (m *memoryManager) Clear(_ context.Context, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, userID)
	return nil
}

// CurrentStep reports the user's active step, or idle when no session exists.
func (m *memoryManager) CurrentStep(userID int64) state.Step {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if sess, ok := m.sessions[userID]; ok {
		return sess.Step
	}
	return state.StepIdle
}
