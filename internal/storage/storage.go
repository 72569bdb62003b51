// Package storage keeps small pieces of per-table client state, such as the
// row and column order snapshots written by the reorder plugins.
package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
)

// ErrNotFound is returned by Get when the key holds no value.
var ErrNotFound = errors.New("storage key not found")

// Store is a string key-value store.
type Store interface {
	Get(key string) ([]byte, error)
	Set(key string, value []byte) error
	Delete(key string) error
}

// Key builds the storage key for one kind of state of one table.
func Key(tableID, kind string) string {
	return strings.Join([]string{"tableflow", tableID, kind}, ":")
}

// Snapshot records an order together with the column ids it was taken
// against. A snapshot whose columns no longer match the live table is stale.
type Snapshot struct {
	Order     []int    `json:"order"`
	Columns   []string `json:"columns"`
	Timestamp int64    `json:"timestamp"`
}

// Matches reports whether the snapshot was taken against columns.
func (s Snapshot) Matches(columns []string) bool {
	if len(s.Columns) != len(columns) {
		return false
	}
	for i := range columns {
		if s.Columns[i] != columns[i] {
			return false
		}
	}
	return true
}

// SaveSnapshot stamps and stores snap under key.
func SaveSnapshot(s Store, key string, snap Snapshot) error {
	if snap.Timestamp == 0 {
		snap.Timestamp = time.Now().UnixMilli()
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	return s.Set(key, data)
}

// LoadSnapshot reads the snapshot under key. ok is false when nothing is
// stored.
func LoadSnapshot(s Store, key string) (snap Snapshot, ok bool, err error) {
	data, err := s.Get(key)
	if errors.Is(err, ErrNotFound) {
		return Snapshot{}, false, nil
	}
	if err != nil {
		return Snapshot{}, false, err
	}
	if err := json.Unmarshal(data, &snap); err != nil {
		return Snapshot{}, false, fmt.Errorf("failed to parse snapshot %q: %w", key, err)
	}
	return snap, true, nil
}

// Memory is an in-process Store.
type Memory struct {
	mu     sync.RWMutex
	values map[string][]byte
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{values: make(map[string][]byte)}
}

// Get returns a copy of the value stored under key.
func (m *Memory) Get(key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

// Set stores a copy of value under key.
func (m *Memory) Set(key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = append([]byte(nil), value...)
	return nil
}

// Delete removes key.
func (m *Memory) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	return nil
}
