package cache

import (
	"sync"

	"github.com/dshills/codecheck/internal/analysis"
)

// Store maps fingerprints to normalized results.
type Store interface {
	Get(fingerprint string) (analysis.Entry, bool)
	Put(fingerprint string, entry analysis.Entry) error
}

// Memory is an unbounded in-process store. Entries live until Clear or
// process exit; Put overwrites unconditionally.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]analysis.Entry
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{entries: make(map[string]analysis.Entry)}
}

// Get retrieves an entry by fingerprint.
func (m *Memory) Get(fingerprint string) (analysis.Entry, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entries[fingerprint]
	return e, ok
}

// Put stores an entry, replacing any previous one.
func (m *Memory) Put(fingerprint string, entry analysis.Entry) error {
	m.mu.Lock()
	m.entries[fingerprint] = entry
	m.mu.Unlock()
	return nil
}

// Len returns the number of entries.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// Clear removes all entries.
func (m *Memory) Clear() {
	m.mu.Lock()
	m.entries = make(map[string]analysis.Entry)
	m.mu.Unlock()
}

// Layered checks memory first and falls back to disk, promoting disk hits.
type Layered struct {
	mem  *Memory
	disk *Disk
}

// NewLayered combines a memory store with an optional disk store. A nil or
// disabled disk leaves only the memory layer.
func NewLayered(mem *Memory, disk *Disk) *Layered {
	if mem == nil {
		mem = NewMemory()
	}
	return &Layered{mem: mem, disk: disk}
}

// Get retrieves an entry from the first layer that has it.
func (l *Layered) Get(fingerprint string) (analysis.Entry, bool) {
	if e, ok := l.mem.Get(fingerprint); ok {
		return e, true
	}
	if l.disk == nil {
		return analysis.Entry{}, false
	}
	e, ok := l.disk.Get(fingerprint)
	if ok {
		_ = l.mem.Put(fingerprint, e)
	}
	return e, ok
}

// Put writes through to every layer. A disk failure is returned after the
// memory layer has been updated.
func (l *Layered) Put(fingerprint string, entry analysis.Entry) error {
	_ = l.mem.Put(fingerprint, entry)
	if l.disk == nil {
		return nil
	}
	return l.disk.Put(fingerprint, entry)
}

// Memory returns the memory layer.
func (l *Layered) Memory() *Memory {
	return l.mem
}

// Disk returns the disk layer, which may be nil.
func (l *Layered) Disk() *Disk {
	return l.disk
}

// Clear empties both layers.
func (l *Layered) Clear() error {
	l.mem.Clear()
	if l.disk == nil {
		return nil
	}
	return l.disk.Clear()
}
