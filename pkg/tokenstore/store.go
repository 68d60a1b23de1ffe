// Package tokenstore holds the raw access credential in durable client
// storage. It is a pure container: no decoding or validation happens here.
package tokenstore

import "sync"

// Store is durable key/value access to the credential string. All operations
// are synchronous and have no side effects beyond the underlying storage.
type Store interface {
	// Get returns the stored credential and whether one is present.
	Get() (string, bool)

	// Set replaces the stored credential.
	Set(token string)

	// Clear removes the stored credential. Clearing an empty store is a no-op.
	Clear()
}

// Memory is an in-process Store, the default for a single client instance.
type Memory struct {
	mu    sync.RWMutex
	token string
	set   bool
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) Get() (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.token, m.set
}

func (m *Memory) Set(token string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = token
	m.set = true
}

func (m *Memory) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = ""
	m.set = false
}
