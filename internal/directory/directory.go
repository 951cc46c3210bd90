// Package directory resolves the responsible notification address for a
// region from the externally maintained directory table.
package directory

import (
	"context"
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/guaxindiba/firenotify/internal/rowstore"
)

// Columns maps the directory table's fields to column indices.
type Columns struct {
	Region  int
	Address int
}

// Resolver looks up notification targets by region. The directory is edited
// by hand outside this system, so an optional TTL cache bounds staleness
// while avoiding a full table read on every request. A TTL of zero disables
// caching entirely.
type Resolver struct {
	store rowstore.Store
	table string
	cols  Columns
	cache *gocache.Cache
}

// NewResolver creates a Resolver over the directory table.
func NewResolver(store rowstore.Store, table string, cols Columns, cacheTTL time.Duration) *Resolver {
	r := &Resolver{store: store, table: table, cols: cols}
	if cacheTTL > 0 {
		r.cache = gocache.New(cacheTTL, 2*cacheTTL)
	}
	return r
}

// Resolve returns the address of the first directory row whose region column
// matches regionID exactly, and true. A miss is a business outcome, not an
// error. Duplicate directory rows resolve first-match by row order.
func (r *Resolver) Resolve(ctx context.Context, regionID string) (string, bool, error) {
	if r.cache != nil {
		if cached, ok := r.cache.Get(regionID); ok {
			address := cached.(string)
			return address, address != "", nil
		}
	}

	rows, err := r.store.ReadAll(ctx, r.table)
	if err != nil {
		return "", false, fmt.Errorf("read responsible directory: %w", err)
	}

	maxCol := max(r.cols.Region, r.cols.Address)
	address := ""
	for i := 1; i < len(rows); i++ { // row 0 is the header
		row := rows[i]
		if len(row) <= maxCol {
			continue
		}
		if row[r.cols.Region] == regionID {
			address = row[r.cols.Address]
			break
		}
	}

	if r.cache != nil {
		// Misses are cached too, as the empty string.
		r.cache.SetDefault(regionID, address)
	}
	return address, address != "", nil
}
