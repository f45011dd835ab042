package dialog

import (
	"context"
	"sync"

	"github.com/thebtf/notekeeper/pkg/models"
)

// Store keeps one State per owner. Get on an unseen owner returns IdleState.
type Store interface {
	Get(ctx context.Context, owner models.OwnerID) (State, error)
	Set(ctx context.Context, owner models.OwnerID, s State) error
	Clear(ctx context.Context, owner models.OwnerID) error
}

// MemoryStore is the process-local Store. State is lost on restart.
type MemoryStore struct {
	mu     sync.RWMutex
	states map[models.OwnerID]State
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{states: make(map[models.OwnerID]State)}
}

// Get implements Store.
func (m *MemoryStore) Get(_ context.Context, owner models.OwnerID) (State, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.states[owner], nil
}

// Set implements Store. Setting IdleState drops the entry.
func (m *MemoryStore) Set(_ context.Context, owner models.OwnerID, s State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s.IsIdle() {
		delete(m.states, owner)
		return nil
	}
	m.states[owner] = s
	return nil
}

// Clear implements Store.
func (m *MemoryStore) Clear(_ context.Context, owner models.OwnerID) error {
	m.mu.Lock()
	delete(m.states, owner)
	m.mu.Unlock()
	return nil
}

// PendingCount returns how many owners are mid-action.
func (m *MemoryStore) PendingCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.states)
}
