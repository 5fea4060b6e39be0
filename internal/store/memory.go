// internal/store/memory.go
//
// In-memory store for hosted game sessions. This is the ephemeral persistence
// layer: one Entry per active game, keyed by ID, gone on restart. The engine
// stays pure; everything the HTTP layer needs to serve a game hangs off the
// Entry (session, draw recorder, live-update hub, owner).
//
// Concurrency-safe via RWMutex. Errors are returned for missing IDs on Get.

package store

import (
	"context"
	"errors"
	"sync"

	"flipmatch/internal/config"
	"flipmatch/internal/game"
	"flipmatch/internal/render"
)

// ErrNotFound is returned by Get for unknown session IDs.
var ErrNotFound = errors.New("session not found")

// Broadcaster fans session updates out to live subscribers. Implemented by
// the HTTP layer's websocket hub; the store only carries it across restarts.
type Broadcaster interface {
	Publish(snap game.Snapshot)
}

// Entry is one hosted session and its attachments.
type Entry struct {
	ID       string
	Owner    string // user ID, empty for guest games
	Config   config.Game
	Session  *game.Session
	Recorder *render.Recorder
	Hub      Broadcaster
}

// Store is the persistence interface for hosted sessions. Implementations
// may be backed by memory (this package), Redis, etc.
type Store interface {
	// Save persists or replaces an entry under its ID.
	Save(ctx context.Context, e *Entry) error

	// Get retrieves an entry by ID; ErrNotFound if missing.
	Get(ctx context.Context, id string) (*Entry, error)

	// Delete removes an entry. Removing an unknown ID is not an error.
	Delete(ctx context.Context, id string) error
}

type memory struct {
	mu      sync.RWMutex
	entries map[string]*Entry
}

// NewMemoryStore constructs an empty in-memory Store.
func NewMemoryStore() Store {
	return &memory{entries: make(map[string]*Entry)}
}

func (m *memory) Save(ctx context.Context, e *Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[e.ID] = e
	return nil
}

func (m *memory) Get(ctx context.Context, id string) (*Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if e, ok := m.entries[id]; ok {
		return e, nil
	}
	return nil, ErrNotFound
}

func (m *memory) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, id)
	return nil
}
