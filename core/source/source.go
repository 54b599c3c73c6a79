package source

import (
	"context"
	"fmt"
	"strings"

	"dw-importer/core/catalog"
	"dw-importer/core/row"
)

// Producer supplies one table's staged snapshot.
type Producer interface {
	// Snapshot fetches and parses the extract for the given table. A
	// snapshot with zero records is valid; a missing or unreadable
	// extract is an error.
	Snapshot(ctx context.Context, table *catalog.Table) (*Snapshot, error)
}

// Snapshot holds one table's raw extract records alongside the header
// mapping needed to decode them. Records stay untyped until Decode so
// that a bad cell only fails its own record.
type Snapshot struct {
	table   *catalog.Table
	columns []row.Column
	indexes []int
	records [][]string
}

// Count returns the number of data records in the snapshot.
func (s *Snapshot) Count() int {
	return len(s.records)
}

// Decode converts record i into a typed row per the table schema.
func (s *Snapshot) Decode(i int) (row.Row, error) {
	rec := s.records[i]
	r := make(row.Row, len(s.columns))
	for j, col := range s.columns {
		idx := s.indexes[j]
		if idx >= len(rec) {
			return nil, fmt.Errorf("record %d: missing field for column %s", i, col.Name)
		}
		v, err := row.Coerce(rec[idx], col.Type)
		if err != nil {
			return nil, fmt.Errorf("column %s: %w", col.Name, err)
		}
		r[col.Name] = v
	}
	return r, nil
}

// RowID returns a human-readable identifier for record i, built from the
// table's key columns when they carry values, otherwise the data line
// number (1-based, header excluded).
func (s *Snapshot) RowID(i int) string {
	rec := s.records[i]
	parts := make([]string, 0, len(s.table.KeyColumns))
	for _, kc := range s.table.KeyColumns {
		for j, col := range s.columns {
			if col.Name != kc {
				continue
			}
			if idx := s.indexes[j]; idx < len(rec) && strings.TrimSpace(rec[idx]) != "" {
				parts = append(parts, fmt.Sprintf("%s=%s", kc, strings.TrimSpace(rec[idx])))
			}
		}
	}
	if len(parts) == 0 {
		return fmt.Sprintf("line %d", i+2)
	}
	return strings.Join(parts, ",")
}
