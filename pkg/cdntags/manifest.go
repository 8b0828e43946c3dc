package cdntags

import (
	"slices"
	"sync"
)

// Manifest is the host's list of assets to precompile. Tags only appends to it.
type Manifest interface {
	Append(names ...string)
	Names() []string
}

// MemoryManifest keeps precompile entries in insertion order, ignoring
// duplicates, and guards access with a RWMutex.
type MemoryManifest struct {
	mu    sync.RWMutex
	names []string
	seen  map[string]struct{}
}

// NewMemoryManifest initialises a manifest holding the given entries.
func NewMemoryManifest(initial ...string) *MemoryManifest {
	m := &MemoryManifest{seen: make(map[string]struct{}, len(initial))}
	m.Append(initial...)
	return m
}

// Append adds names not already present.
func (m *MemoryManifest) Append(names ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.seen == nil {
		m.seen = make(map[string]struct{}, len(names))
	}
	for _, name := range names {
		if _, ok := m.seen[name]; ok {
			continue
		}
		m.seen[name] = struct{}{}
		m.names = append(m.names, name)
	}
}

// Names returns a defensive copy of the entries.
func (m *MemoryManifest) Names() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if len(m.names) == 0 {
		return []string{}
	}
	return slices.Clone(m.names)
}

// Contains reports whether name has been registered.
func (m *MemoryManifest) Contains(name string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, ok := m.seen[name]
	return ok
}
