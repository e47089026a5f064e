package database

import (
	"sort"
	"strings"
	"sync"

	"github.com/carritosync/carrito/internal/domain"
	"github.com/pkg/errors"
)

var errWriteFailed = errors.New("kv write failed")

// MemoryKV is an in-memory domain.KVStore. It backs tests and ephemeral
// runs where no sqlite file is wanted; semantics match KVRepo
// (absent key reads as nil, last write wins).
type MemoryKV struct {
	mu      sync.RWMutex
	entries map[string][]byte

	// FailWrites makes Set/Delete return an error; tests use it to exercise
	// snapshot write-failure paths.
	FailWrites bool
}

func NewMemoryKV() *MemoryKV {
	return &MemoryKV{
		entries: make(map[string][]byte),
	}
}

var _ domain.KVStore = (*MemoryKV)(nil)

func (m *MemoryKV) Get(key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	value, ok := m.entries[key]
	if !ok {
		return nil, nil
	}
	out := make([]byte, len(value))
	copy(out, value)
	return out, nil
}

func (m *MemoryKV) Set(key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailWrites {
		return errWriteFailed
	}

	stored := make([]byte, len(value))
	copy(stored, value)
	m.entries[key] = stored
	return nil
}

func (m *MemoryKV) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailWrites {
		return errWriteFailed
	}

	delete(m.entries, key)
	return nil
}

func (m *MemoryKV) ListKeys(prefix string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	keys := make([]string, 0, len(m.entries))
	for key := range m.entries {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys, nil
}
