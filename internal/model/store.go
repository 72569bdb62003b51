package model

import (
	"sort"
	"sync"
)

// CellKey addresses a cell by row and column id.
type CellKey struct {
	RowID    string
	ColumnID string
}

// CellState is the logical state of one managed cell.
type CellState struct {
	Value        string
	InitialValue string
	// Owner is the plugin that claimed the cell's primary rendering.
	Owner string
	// Flagged marks a change that is not expressible as a string diff.
	Flagged bool
}

// Modified reports whether the cell differs from its saved baseline.
func (s CellState) Modified() bool {
	return s.Value != s.InitialValue || s.Flagged
}

// Store is the keyed source of truth for cell and row state. The rendering
// layer reflects it into the document; plugins never read attributes to learn
// state.
type Store struct {
	mu      sync.RWMutex
	cells   map[CellKey]*CellState
	flagged map[string]bool
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		cells:   make(map[CellKey]*CellState),
		flagged: make(map[string]bool),
	}
}

// Seed initializes a cell with value as both current and initial value. An
// existing owner is preserved.
func (s *Store) Seed(key CellKey, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if st, ok := s.cells[key]; ok {
		st.Value = value
		st.InitialValue = value
		st.Flagged = false
		return
	}
	s.cells[key] = &CellState{Value: value, InitialValue: value}
}

// Get returns a copy of the cell state.
func (s *Store) Get(key CellKey) (CellState, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, ok := s.cells[key]
	if !ok {
		return CellState{}, false
	}
	return *st, true
}

// SetValue writes the current value and reports whether it changed.
func (s *Store) SetValue(key CellKey, value string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.ensure(key)
	if st.Value == value {
		return false
	}
	st.Value = value
	return true
}

// SetFlag sets or clears the explicit modified flag.
func (s *Store) SetFlag(key CellKey, on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensure(key).Flagged = on
}

// Claim assigns owner to the cell when it is unclaimed or already owned by
// owner. It reports whether owner holds the cell afterwards. Cells that were
// never seeded cannot be claimed.
func (s *Store) Claim(key CellKey, owner string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.cells[key]
	if !ok {
		return false
	}
	if st.Owner != "" && st.Owner != owner {
		return false
	}
	st.Owner = owner
	return true
}

// Owner returns the plugin that owns the cell.
func (s *Store) Owner(key CellKey) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if st, ok := s.cells[key]; ok {
		return st.Owner
	}
	return ""
}

// Release clears ownership held by owner.
func (s *Store) Release(key CellKey, owner string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st, ok := s.cells[key]; ok && st.Owner == owner {
		st.Owner = ""
	}
}

// FlagRow records a plugin-level modified override for a row.
func (s *Store) FlagRow(rowID string, on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if on {
		s.flagged[rowID] = true
	} else {
		delete(s.flagged, rowID)
	}
}

// CellModified reports the derived modified state of one cell.
func (s *Store) CellModified(key CellKey) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.cells[key]
	return ok && st.Modified()
}

// RowModified is the OR over the row's cells plus the row override.
func (s *Store) RowModified(rowID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.flagged[rowID] {
		return true
	}
	for key, st := range s.cells {
		if key.RowID == rowID && st.Modified() {
			return true
		}
	}
	return false
}

// Baseline moves every cell of the row to the clean state and drops the row
// override.
func (s *Store) Baseline(rowID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, st := range s.cells {
		if key.RowID == rowID {
			st.InitialValue = st.Value
			st.Flagged = false
		}
	}
	delete(s.flagged, rowID)
}

// RowCells returns the row's cell keys sorted by column id.
func (s *Store) RowCells(rowID string) []CellKey {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var keys []CellKey
	for key := range s.cells {
		if key.RowID == rowID {
			keys = append(keys, key)
		}
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].ColumnID < keys[j].ColumnID })
	return keys
}

// PurgeRow removes all state for the row.
func (s *Store) PurgeRow(rowID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key := range s.cells {
		if key.RowID == rowID {
			delete(s.cells, key)
		}
	}
	delete(s.flagged, rowID)
}

// Reset drops all state.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cells = make(map[CellKey]*CellState)
	s.flagged = make(map[string]bool)
}

// Len returns the number of tracked cells.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.cells)
}

func (s *Store) ensure(key CellKey) *CellState {
	st, ok := s.cells[key]
	if !ok {
		st = &CellState{}
		s.cells[key] = st
	}
	return st
}
