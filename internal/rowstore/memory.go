package rowstore

import (
	"context"
	"fmt"
	"sync"
)

// MemStore is an in-memory Store used for tests and the no-persistence mode.
// Safe for concurrent use.
type MemStore struct {
	mu     sync.RWMutex
	tables map[string][][]string
}

// NewMemStore creates an empty MemStore.
func NewMemStore() *MemStore {
	return &MemStore{tables: make(map[string][][]string)}
}

// CreateTable creates a table with the given header row. Replaces any
// existing table of the same name.
func (m *MemStore) CreateTable(name string, header []string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tables[name] = [][]string{cloneRow(header)}
}

// ReadAll returns a copy of the table's rows, header first.
func (m *MemStore) ReadAll(_ context.Context, table string) ([][]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rows, ok := m.tables[table]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrTableNotFound, table)
	}
	out := make([][]string, len(rows))
	for i, r := range rows {
		out[i] = cloneRow(r)
	}
	return out, nil
}

// Append adds a row and returns its index.
func (m *MemStore) Append(_ context.Context, table string, row []string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rows, ok := m.tables[table]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrTableNotFound, table)
	}
	m.tables[table] = append(rows, cloneRow(row))
	return len(rows), nil
}

// SetCell overwrites one cell in place.
func (m *MemStore) SetCell(_ context.Context, table string, row, col int, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rows, ok := m.tables[table]
	if !ok {
		return fmt.Errorf("%w: %s", ErrTableNotFound, table)
	}
	if row < 0 || row >= len(rows) || col < 0 || col >= len(rows[row]) {
		return fmt.Errorf("%w: table %s row %d col %d", ErrCellOutOfRange, table, row, col)
	}
	rows[row][col] = value
	return nil
}

func cloneRow(row []string) []string {
	out := make([]string, len(row))
	copy(out, row)
	return out
}
