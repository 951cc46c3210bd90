package rowstore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var (
	historyHeader   = []string{"region", "timestamp", "lat", "lng", "notified"}
	directoryHeader = []string{"region", "address"}
)

// seededStore is the common fixture: a Store with a history table containing
// only its header.
type seededStore interface {
	Store
}

func newSeededMemStore(t *testing.T) seededStore {
	t.Helper()
	s := NewMemStore()
	s.CreateTable("historico", historyHeader)
	s.CreateTable("responsaveis", directoryHeader)
	return s
}

func newSeededGormStore(t *testing.T) seededStore {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "rows.db")), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	s, err := NewGormStore(db)
	require.NoError(t, err)
	require.NoError(t, s.EnsureTable(context.Background(), "historico", historyHeader))
	require.NoError(t, s.EnsureTable(context.Background(), "responsaveis", directoryHeader))
	return s
}

// Both implementations must satisfy the same contract.
func TestStoreContract(t *testing.T) {
	impls := map[string]func(*testing.T) seededStore{
		"mem":  newSeededMemStore,
		"gorm": newSeededGormStore,
	}
	for name, newStore := range impls {
		t.Run(name, func(t *testing.T) {
			t.Run("header at index zero", func(t *testing.T) {
				s := newStore(t)
				rows, err := s.ReadAll(context.Background(), "historico")
				require.NoError(t, err)
				require.Len(t, rows, 1)
				assert.Equal(t, historyHeader, rows[0])
			})

			t.Run("append returns ordered indices", func(t *testing.T) {
				s := newStore(t)
				ctx := context.Background()

				idx, err := s.Append(ctx, "historico", []string{"R1", "08/12/2025 20:00:00", "-22.9", "-43.2", ""})
				require.NoError(t, err)
				assert.Equal(t, 1, idx)

				idx, err = s.Append(ctx, "historico", []string{"R2", "09/12/2025 21:00:00", "-21.0", "-41.0", ""})
				require.NoError(t, err)
				assert.Equal(t, 2, idx)

				rows, err := s.ReadAll(ctx, "historico")
				require.NoError(t, err)
				require.Len(t, rows, 3)
				assert.Equal(t, "R1", rows[1][0])
				assert.Equal(t, "R2", rows[2][0])
			})

			t.Run("set cell", func(t *testing.T) {
				s := newStore(t)
				ctx := context.Background()

				idx, err := s.Append(ctx, "historico", []string{"R1", "08/12/2025 20:00:00", "-22.9", "-43.2", ""})
				require.NoError(t, err)

				require.NoError(t, s.SetCell(ctx, "historico", idx, 4, "notified"))

				rows, err := s.ReadAll(ctx, "historico")
				require.NoError(t, err)
				assert.Equal(t, "notified", rows[idx][4])
			})

			t.Run("set cell out of range", func(t *testing.T) {
				s := newStore(t)
				ctx := context.Background()

				err := s.SetCell(ctx, "historico", 42, 0, "x")
				assert.ErrorIs(t, err, ErrCellOutOfRange)

				err = s.SetCell(ctx, "historico", 0, 99, "x")
				assert.ErrorIs(t, err, ErrCellOutOfRange)
			})

			t.Run("missing table", func(t *testing.T) {
				s := newStore(t)
				ctx := context.Background()

				_, err := s.ReadAll(ctx, "nonexistent")
				assert.ErrorIs(t, err, ErrTableNotFound)

				_, err = s.Append(ctx, "nonexistent", []string{"x"})
				assert.ErrorIs(t, err, ErrTableNotFound)

				err = s.SetCell(ctx, "nonexistent", 0, 0, "x")
				assert.ErrorIs(t, err, ErrTableNotFound)
			})
		})
	}
}

func TestMemStore_ReadAllReturnsCopies(t *testing.T) {
	s := newSeededMemStore(t)
	ctx := context.Background()

	_, err := s.Append(ctx, "historico", []string{"R1", "t", "lat", "lng", ""})
	require.NoError(t, err)

	rows, err := s.ReadAll(ctx, "historico")
	require.NoError(t, err)
	rows[1][0] = "mutated"

	again, err := s.ReadAll(ctx, "historico")
	require.NoError(t, err)
	assert.Equal(t, "R1", again[1][0], "callers must not be able to mutate stored rows")
}

func TestGormStore_EnsureTableIdempotent(t *testing.T) {
	s := newSeededGormStore(t).(*GormStore)
	ctx := context.Background()

	_, err := s.Append(ctx, "historico", []string{"R1", "t", "lat", "lng", ""})
	require.NoError(t, err)

	// A second EnsureTable must not wipe existing rows.
	require.NoError(t, s.EnsureTable(ctx, "historico", historyHeader))

	rows, err := s.ReadAll(ctx, "historico")
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}
