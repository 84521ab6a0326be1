// Package session is the boundary to the per-browser session: a small string key/value slot
// addressed by a session id.
package session

import (
	"context"
	"sync"
)

// CartKey is the slot holding a guest cart.
const CartKey = "hottub_cart"

type Session interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
}

type Store interface {
	Open(id string) Session
}

// MemoryStore keeps sessions in process memory. Sessions are lost on restart.
type MemoryStore struct {
	mu   sync.Mutex
	data map[string]map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: map[string]map[string]string{}}
}

func (s *MemoryStore) Open(id string) Session {
	return &memorySession{store: s, id: id}
}

type memorySession struct {
	store *MemoryStore
	id    string
}

func (m *memorySession) Get(_ context.Context, key string) (string, bool, error) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	v, ok := m.store.data[m.id][key]
	return v, ok, nil
}

func (m *memorySession) Set(_ context.Context, key, value string) error {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	slots, ok := m.store.data[m.id]
	if !ok {
		slots = map[string]string{}
		m.store.data[m.id] = slots
	}
	slots[key] = value
	return nil
}

func (m *memorySession) Remove(_ context.Context, key string) error {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	delete(m.store.data[m.id], key)
	return nil
}
