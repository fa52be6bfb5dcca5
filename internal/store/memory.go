// internal/store/memory.go
//
// In-memory registry of live game sessions.
// Sessions are held only while they are being played; finished games go to
// the history store.
//
// Characteristics:
//   - Stores *game.Session objects keyed by ID in a map.
//   - Concurrency-safe via RWMutex (concurrent reads allowed, writes exclusive).
//   - State is lost when the process restarts.
//   - ErrNotFound is returned for missing session IDs.
//   - Expire drops sessions saved for longer than a cutoff (abandoned games).

package store

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/robalobadob/countryle/internal/game"
)

// ErrNotFound is returned by Get for an unknown session ID.
var ErrNotFound = errors.New("store: session not found")

// Store defines the registry interface for live sessions.
type Store interface {
	// Save registers or replaces a session.
	Save(ctx context.Context, s *game.Session) error

	// Get retrieves a session by ID.
	Get(ctx context.Context, id string) (*game.Session, error)

	// Delete forgets a session. Unknown IDs are ignored.
	Delete(ctx context.Context, id string) error

	// Expire forgets every session whose start time is before cutoff and
	// returns their IDs.
	Expire(ctx context.Context, cutoff time.Time) ([]string, error)
}

// item pairs a session with its start time, captured on Save so Expire never
// reads a session another goroutine may be mutating.
type item struct {
	session *game.Session
	started time.Time
}

// memory is an in-memory map-based Store implementation.
type memory struct {
	mu       sync.RWMutex
	sessions map[string]item
}

// NewMemoryStore constructs a new in-memory Store.
func NewMemoryStore() Store {
	return &memory{sessions: make(map[string]item)}
}

func (m *memory) Save(_ context.Context, s *game.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = item{session: s, started: s.StartedAt}
	return nil
}

func (m *memory) Get(_ context.Context, id string) (*game.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if it, ok := m.sessions[id]; ok {
		return it.session, nil
	}
	return nil, ErrNotFound
}

func (m *memory) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

func (m *memory) Expire(_ context.Context, cutoff time.Time) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []string
	for id, it := range m.sessions {
		if it.started.Before(cutoff) {
			ids = append(ids, id)
			delete(m.sessions, id)
		}
	}
	return ids, nil
}
