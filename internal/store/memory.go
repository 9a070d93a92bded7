package store

import (
	"context"
	"fmt"
	"sync"
)

// MemoryStore is an in-memory implementation of the Store interface.
// It keeps packs in catalogue order and uses an RWMutex for thread-safe access.
// This implementation is suitable for development, testing, or single-instance deployments.
type MemoryStore struct {
	mu   sync.RWMutex
	meta Meta
	// packs is kept in insertion order; index maps id -> position.
	packs []Pack
	index map[string]int
}

// NewMemoryStore creates a new, empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		meta:  ensureMeta(Meta{}),
		packs: []Pack{},
		index: make(map[string]int),
	}
}

// ListPacks returns deep copies of all packs in catalogue order.
func (m *MemoryStore) ListPacks(ctx context.Context) ([]Pack, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]Pack, 0, len(m.packs))
	for _, p := range m.packs {
		cp, err := copyPack(p)
		if err != nil {
			return nil, err
		}
		result = append(result, cp)
	}
	return result, nil
}

// GetPack retrieves a single pack by id.
func (m *MemoryStore) GetPack(ctx context.Context, id string) (*Pack, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	i, exists := m.index[id]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrPackNotFound, id)
	}
	cp, err := copyPack(m.packs[i])
	if err != nil {
		return nil, err
	}
	return &cp, nil
}

// UpsertPack replaces an existing pack in place or appends a new one.
func (m *MemoryStore) UpsertPack(ctx context.Context, pack Pack) error {
	pack.Normalize()
	stored, err := copyPack(pack)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if i, exists := m.index[pack.ID]; exists {
		m.packs[i] = stored
		return nil
	}
	m.index[pack.ID] = len(m.packs)
	m.packs = append(m.packs, stored)
	return nil
}

// DeletePack removes a pack and keeps the remaining order.
func (m *MemoryStore) DeletePack(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	i, exists := m.index[id]
	if !exists {
		// Idempotent: no error if pack doesn't exist
		return nil
	}
	m.packs = append(m.packs[:i], m.packs[i+1:]...)
	m.reindex()
	return nil
}

// ClonePack appends a copy of the pack under "<id>_copy".
func (m *MemoryStore) ClonePack(ctx context.Context, id string) (*Pack, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	i, exists := m.index[id]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrPackNotFound, id)
	}
	clone, err := cloneOf(m.packs[i], func(id string) bool {
		_, taken := m.index[id]
		return taken
	})
	if err != nil {
		return nil, err
	}
	m.index[clone.ID] = len(m.packs)
	m.packs = append(m.packs, clone)

	out, err := copyPack(clone)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Export returns a copy of the catalogue.
func (m *MemoryStore) Export(ctx context.Context) (PackFile, error) {
	packs, err := m.ListPacks(ctx)
	if err != nil {
		return PackFile{}, err
	}
	m.mu.RLock()
	meta := m.meta
	m.mu.RUnlock()
	return PackFile{Meta: meta, Packs: packs}, nil
}

// Import replaces the catalogue. Later duplicates of an id win.
func (m *MemoryStore) Import(ctx context.Context, file PackFile) error {
	packs := make([]Pack, 0, len(file.Packs))
	for _, p := range file.Packs {
		p.Normalize()
		cp, err := copyPack(p)
		if err != nil {
			return err
		}
		packs = append(packs, cp)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.meta = ensureMeta(file.Meta)
	m.packs = make([]Pack, 0, len(packs))
	m.index = make(map[string]int, len(packs))
	for _, p := range packs {
		if i, exists := m.index[p.ID]; exists {
			m.packs[i] = p
			continue
		}
		m.index[p.ID] = len(m.packs)
		m.packs = append(m.packs, p)
	}
	return nil
}

// Close is a no-op for MemoryStore as there are no resources to release.
func (m *MemoryStore) Close() error {
	return nil
}

func (m *MemoryStore) reindex() {
	m.index = make(map[string]int, len(m.packs))
	for i, p := range m.packs {
		m.index[p.ID] = i
	}
}
