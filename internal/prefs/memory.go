package prefs

import (
	"context"
	"strings"
	"sync"
)

// Memory implements Store with an in-process map. It is the default store
// and doubles as the test fake.
type Memory struct {
	mu     sync.RWMutex
	values map[string]bool
}

// NewMemory creates a new in-memory preference store
func NewMemory() *Memory {
	return &Memory{
		values: make(map[string]bool),
	}
}

// GetBool retrieves a stored boolean
func (m *Memory) GetBool(_ context.Context, key string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	value, found := m.values[key]
	if !found {
		return false, ErrNotFound
	}
	return value, nil
}

// SetBool stores a boolean value
func (m *Memory) SetBool(_ context.Context, key string, value bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.values[key] = value
	return nil
}

// Delete removes a stored value
func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.values, key)
	return nil
}

// Keys returns all stored keys with the given prefix
func (m *Memory) Keys(_ context.Context, prefix string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var keys []string
	for key := range m.values {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	return keys, nil
}

// Close releases the store
func (m *Memory) Close() error {
	return nil
}
