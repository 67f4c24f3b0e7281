// Package store persists games and hand sessions as JSON records addressed
// by incrementing numeric ids.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
)

// ErrNotFound is returned by Get for unknown ids.
var ErrNotFound = errors.New("record not found")

// Kind names a family of records with its own id sequence.
type Kind string

const (
	KindGame    Kind = "game"
	KindSession Kind = "session"
)

// Store is the persistence boundary for the dealer and the engine.
type Store interface {
	// Next reserves the next id for kind. Ids start at 1.
	Next(ctx context.Context, kind Kind) (uint64, error)
	Put(ctx context.Context, kind Kind, id uint64, v any) error
	Get(ctx context.Context, kind Kind, id uint64, v any) error
	Close() error
}

// Memory is a Store backed by maps. Each instance owns its own sequences,
// so independent engines never share ids.
type Memory struct {
	mu      sync.RWMutex
	seq     map[Kind]uint64
	records map[Kind]map[uint64][]byte
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		seq:     make(map[Kind]uint64),
		records: make(map[Kind]map[uint64][]byte),
	}
}

func (m *Memory) Next(ctx context.Context, kind Kind) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq[kind]++
	return m.seq[kind], nil
}

func (m *Memory) Put(ctx context.Context, kind Kind, id uint64, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s %d: %w", kind, id, err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.records[kind] == nil {
		m.records[kind] = make(map[uint64][]byte)
	}
	m.records[kind][id] = data
	return nil
}

func (m *Memory) Get(ctx context.Context, kind Kind, id uint64, v any) error {
	m.mu.RLock()
	data, ok := m.records[kind][id]
	m.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s %d", ErrNotFound, kind, id)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s %d: %w", kind, id, err)
	}
	return nil
}

func (m *Memory) Close() error { return nil }
