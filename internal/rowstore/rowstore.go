// Package rowstore defines the append-only tabular storage boundary used for
// the event history and the responsible-party directory. Tables are ordered
// sequences of string rows with the header row always at index 0.
package rowstore

import (
	"context"
	"errors"
)

// ErrTableNotFound reports that a named table does not exist in the store.
// Fatal for a request: there is nowhere to persist.
var ErrTableNotFound = errors.New("table not found")

// ErrCellOutOfRange reports a SetCell target outside the table's bounds.
var ErrCellOutOfRange = errors.New("cell reference out of range")

// Store is the persistence collaborator. Implementations give no
// transactional guarantee across calls; callers that need read-then-append
// atomicity must serialize externally.
type Store interface {
	// ReadAll returns every row of the table in order, header included at
	// index 0.
	ReadAll(ctx context.Context, table string) ([][]string, error)

	// Append adds a row after the last existing row and returns its index
	// in the ReadAll ordering.
	Append(ctx context.Context, table string, row []string) (int, error)

	// SetCell overwrites a single cell, addressed by row and column index
	// in the ReadAll ordering.
	SetCell(ctx context.Context, table string, row, col int, value string) error
}
