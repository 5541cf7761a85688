package attempt

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
)

// FileStore persists the key-value namespace as a single JSON document on
// disk, the durable equivalent of browser local storage. All operations
// are best-effort: a corrupt or unreadable file reads as empty, and write
// failures are swallowed.
type FileStore struct {
	path string
	mu   sync.Mutex
	data map[string]json.RawMessage
}

// NewFileStore loads (or initializes) the document at path.
func NewFileStore(path string) *FileStore {
	s := &FileStore{path: path, data: map[string]json.RawMessage{}}
	raw, err := os.ReadFile(path)
	if err == nil {
		// Corrupt content degrades to an empty store.
		_ = json.Unmarshal(raw, &s.data)
	}
	if s.data == nil {
		s.data = map[string]json.RawMessage{}
	}
	return s
}

func (s *FileStore) Get(key string, v any) bool {
	s.mu.Lock()
	raw, ok := s.data[key]
	s.mu.Unlock()
	if !ok {
		return false
	}
	return json.Unmarshal(raw, v) == nil
}

func (s *FileStore) Set(key string, v any) {
	raw, err := json.Marshal(v)
	if err != nil {
		return
	}
	s.mu.Lock()
	s.data[key] = raw
	s.flush()
	s.mu.Unlock()
}

func (s *FileStore) Delete(key string) {
	s.mu.Lock()
	delete(s.data, key)
	s.flush()
	s.mu.Unlock()
}

// flush writes the whole document via a temp file and rename so a crash
// mid-write never leaves a truncated document. Caller holds the mutex.
func (s *FileStore) flush() {
	raw, err := json.Marshal(s.data)
	if err != nil {
		return
	}
	tmp := s.path + ".tmp"
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return
	}
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return
	}
	_ = os.Rename(tmp, s.path)
}
