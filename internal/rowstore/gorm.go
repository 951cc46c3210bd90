package rowstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// storedRow is the gorm model backing every table: one record per row,
// ordered within a table by Pos. Cells are stored as a JSON array so tables
// of different widths share one schema.
type storedRow struct {
	ID    uint   `gorm:"primaryKey"`
	Table string `gorm:"column:table_name;size:64;index:idx_table_pos,unique,priority:1"`
	Pos   int    `gorm:"index:idx_table_pos,unique,priority:2"`
	Cells string
}

func (storedRow) TableName() string { return "rows" }

// GormStore persists tables in a relational database through gorm.
// A table exists once its header row (Pos 0) has been written.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore runs the schema migration and returns a GormStore.
func NewGormStore(db *gorm.DB) (*GormStore, error) {
	if err := db.AutoMigrate(&storedRow{}); err != nil {
		return nil, fmt.Errorf("migrate row store schema: %w", err)
	}
	return &GormStore{db: db}, nil
}

// EnsureTable writes the header row for a table if it does not exist yet,
// so a fresh deployment can serve requests immediately.
func (g *GormStore) EnsureTable(ctx context.Context, table string, header []string) error {
	var count int64
	if err := g.db.WithContext(ctx).Model(&storedRow{}).
		Where("table_name = ? AND pos = 0", table).Count(&count).Error; err != nil {
		return fmt.Errorf("check table %s: %w", table, err)
	}
	if count > 0 {
		return nil
	}
	cells, err := encodeCells(header)
	if err != nil {
		return err
	}
	if err := g.db.WithContext(ctx).Create(&storedRow{Table: table, Pos: 0, Cells: cells}).Error; err != nil {
		return fmt.Errorf("create table %s: %w", table, err)
	}
	return nil
}

// ReadAll returns the table's rows ordered by position, header first.
func (g *GormStore) ReadAll(ctx context.Context, table string) ([][]string, error) {
	var records []storedRow
	if err := g.db.WithContext(ctx).
		Where("table_name = ?", table).Order("pos ASC").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("read table %s: %w", table, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrTableNotFound, table)
	}
	rows := make([][]string, len(records))
	for i := range records {
		cells, err := decodeCells(records[i].Cells)
		if err != nil {
			return nil, fmt.Errorf("read table %s row %d: %w", table, records[i].Pos, err)
		}
		rows[i] = cells
	}
	return rows, nil
}

// Append inserts a row after the table's last position and returns the new
// position. The read-max-then-insert pair runs inside a database transaction
// so concurrent appends cannot claim the same position.
func (g *GormStore) Append(ctx context.Context, table string, row []string) (int, error) {
	cells, err := encodeCells(row)
	if err != nil {
		return 0, err
	}
	var pos int
	err = g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var maxPos *int
		if err := tx.Model(&storedRow{}).
			Where("table_name = ?", table).Select("MAX(pos)").Scan(&maxPos).Error; err != nil {
			return fmt.Errorf("append to table %s: %w", table, err)
		}
		if maxPos == nil {
			return fmt.Errorf("%w: %s", ErrTableNotFound, table)
		}
		pos = *maxPos + 1
		if err := tx.Create(&storedRow{Table: table, Pos: pos, Cells: cells}).Error; err != nil {
			return fmt.Errorf("append to table %s: %w", table, err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return pos, nil
}

// SetCell overwrites one cell of an existing row.
func (g *GormStore) SetCell(ctx context.Context, table string, row, col int, value string) error {
	var record storedRow
	err := g.db.WithContext(ctx).
		Where("table_name = ? AND pos = ?", table, row).First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			var count int64
			if cErr := g.db.WithContext(ctx).Model(&storedRow{}).
				Where("table_name = ?", table).Count(&count).Error; cErr == nil && count == 0 {
				return fmt.Errorf("%w: %s", ErrTableNotFound, table)
			}
			return fmt.Errorf("%w: table %s row %d", ErrCellOutOfRange, table, row)
		}
		return fmt.Errorf("set cell in table %s: %w", table, err)
	}
	cells, err := decodeCells(record.Cells)
	if err != nil {
		return fmt.Errorf("set cell in table %s: %w", table, err)
	}
	if col < 0 || col >= len(cells) {
		return fmt.Errorf("%w: table %s row %d col %d", ErrCellOutOfRange, table, row, col)
	}
	cells[col] = value
	encoded, err := encodeCells(cells)
	if err != nil {
		return err
	}
	if err := g.db.WithContext(ctx).Model(&storedRow{}).
		Where("id = ?", record.ID).Update("cells", encoded).Error; err != nil {
		return fmt.Errorf("set cell in table %s: %w", table, err)
	}
	return nil
}

func encodeCells(cells []string) (string, error) {
	b, err := json.Marshal(cells)
	if err != nil {
		return "", fmt.Errorf("encode row cells: %w", err)
	}
	return string(b), nil
}

func decodeCells(encoded string) ([]string, error) {
	var cells []string
	if err := json.Unmarshal([]byte(encoded), &cells); err != nil {
		return nil, fmt.Errorf("decode row cells: %w", err)
	}
	return cells, nil
}
