// Package dedup detects exact repeats of previously ingested events.
package dedup

import (
	"context"
	"fmt"

	"github.com/guaxindiba/firenotify/internal/rowstore"
)

// Columns maps the history table's quadruple fields to column indices.
type Columns struct {
	Region    int
	Timestamp int
	Lat       int
	Lng       int
}

// Checker scans event history for an exact-match quadruple.
type Checker struct {
	store rowstore.Store
	table string
	cols  Columns
}

// NewChecker creates a Checker over the given history table.
func NewChecker(store rowstore.Store, table string, cols Columns) *Checker {
	return &Checker{store: store, table: table, cols: cols}
}

// FindDuplicate returns the row index of the first history row whose region,
// timestamp, lat and lng all equal the given values byte-for-byte, and true.
// Equality is intentionally exact string comparison: a retry of an identical
// request is a no-op, while any altered field (even pure formatting, -22.9 vs
// -22.90) counts as a new event.
func (c *Checker) FindDuplicate(ctx context.Context, regionID, timestamp, lat, lng string) (int, bool, error) {
	rows, err := c.store.ReadAll(ctx, c.table)
	if err != nil {
		return 0, false, fmt.Errorf("scan history for duplicates: %w", err)
	}

	maxCol := max(c.cols.Region, c.cols.Timestamp, c.cols.Lat, c.cols.Lng)
	for i := 1; i < len(rows); i++ { // row 0 is the header
		row := rows[i]
		if len(row) <= maxCol {
			continue
		}
		if row[c.cols.Region] == regionID &&
			row[c.cols.Timestamp] == timestamp &&
			row[c.cols.Lat] == lat &&
			row[c.cols.Lng] == lng {
			return i, true, nil
		}
	}
	return 0, false, nil
}
