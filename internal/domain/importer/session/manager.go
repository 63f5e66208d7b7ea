package session

import (
	"sync"

	"github.com/FACorreiaa/statement-import/internal/domain/importer/mapping"
)

// Manager creates sessions and remembers confirmed column mappings per
// header fingerprint, so re-uploading a statement from the same bank
// skips manual mapping work.
type Manager struct {
	deps Dependencies
	memo *mappingMemo
}

// NewManager wires a session factory over shared dependencies.
func NewManager(deps Dependencies) *Manager {
	return &Manager{deps: deps, memo: newMappingMemo()}
}

// StartSession creates a fresh session sharing the manager's mapping memo.
func (m *Manager) StartSession() *Session {
	s := New(m.deps)
	s.memo = m.memo
	return s
}

// mappingMemo is a process-local cache of header fingerprint to the last
// mapping the user carried through to validation. Unlike sessions it is
// shared, so it carries its own lock.
type mappingMemo struct {
	mu       sync.RWMutex
	byHeader map[string]mapping.ColumnMapping
}

func newMappingMemo() *mappingMemo {
	return &mappingMemo{byHeader: make(map[string]mapping.ColumnMapping)}
}

func (c *mappingMemo) lookup(fingerprint string) (mapping.ColumnMapping, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	m, ok := c.byHeader[fingerprint]
	if !ok {
		return mapping.ColumnMapping{}, false
	}
	return m.Clone(), true
}

func (c *mappingMemo) remember(fingerprint string, m mapping.ColumnMapping) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.byHeader[fingerprint] = m.Clone()
}
