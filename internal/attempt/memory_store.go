package attempt

import (
	"encoding/json"
	"sync"
)

// MemoryStore is an in-process Store, used by tests and by ephemeral
// session hosts.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string]json.RawMessage
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: map[string]json.RawMessage{}}
}

func (m *MemoryStore) Get(key string, v any) bool {
	m.mu.RLock()
	raw, ok := m.data[key]
	m.mu.RUnlock()
	if !ok {
		return false
	}
	return json.Unmarshal(raw, v) == nil
}

func (m *MemoryStore) Set(key string, v any) {
	raw, err := json.Marshal(v)
	if err != nil {
		return
	}
	m.mu.Lock()
	m.data[key] = raw
	m.mu.Unlock()
}

func (m *MemoryStore) Delete(key string) {
	m.mu.Lock()
	delete(m.data, key)
	m.mu.Unlock()
}
