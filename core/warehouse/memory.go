package warehouse

import (
	"context"
	"fmt"
	"sync"
	"time"

	"dw-importer/core/catalog"
	"dw-importer/core/row"
)

// MemoryStore is an in-memory Store. Dry runs use it to execute the full
// import pipeline without touching the warehouse; tests use it as a
// deterministic target.
type MemoryStore struct {
	mu     sync.Mutex
	tables map[string]map[string]memRow
}

type memRow struct {
	data          row.Row
	firstInserted time.Time
	lastUpdated   time.Time
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{tables: make(map[string]map[string]memRow)}
}

// Seed inserts a row directly, outside any unit of work. Intended for
// priming dry runs and tests with pre-existing warehouse state.
func (s *MemoryStore) Seed(table *catalog.Table, key row.Key, r row.Row, firstInserted, lastUpdated time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows := s.tables[table.Name]
	if rows == nil {
		rows = make(map[string]memRow)
		s.tables[table.Name] = rows
	}
	rows[key.Encode()] = memRow{data: r.Clone(), firstInserted: firstInserted, lastUpdated: lastUpdated}
}

// Provenance returns the provenance timestamps for a key, for inspecting
// outcomes after a run.
func (s *MemoryStore) Provenance(table *catalog.Table, key row.Key) (firstInserted, lastUpdated time.Time, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	mr, ok := s.tables[table.Name][key.Encode()]
	if !ok {
		return time.Time{}, time.Time{}, false
	}
	return mr.firstInserted, mr.lastUpdated, true
}

// Begin snapshots the table; writes become visible only on Commit.
func (s *MemoryStore) Begin(_ context.Context, table *catalog.Table) (Tx, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snapshot := make(map[string]memRow, len(s.tables[table.Name]))
	for k, v := range s.tables[table.Name] {
		snapshot[k] = memRow{data: v.data.Clone(), firstInserted: v.firstInserted, lastUpdated: v.lastUpdated}
	}
	return &memTx{store: s, table: table, rows: snapshot}, nil
}

func (s *MemoryStore) Count(_ context.Context, table *catalog.Table) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tables[table.Name]), nil
}

func (s *MemoryStore) CountTouched(_ context.Context, table *catalog.Table, now time.Time) (int, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return countTouchedRows(s.tables[table.Name], now)
}

func (s *MemoryStore) MissingKeys(_ context.Context, table *catalog.Table, keys []row.Key) ([]row.Key, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows := s.tables[table.Name]
	var missing []row.Key
	for _, key := range keys {
		if _, ok := rows[key.Encode()]; !ok {
			missing = append(missing, key)
		}
	}
	return missing, nil
}

func (s *MemoryStore) SampleColumn(_ context.Context, table *catalog.Table, column string, limit int) ([]row.Value, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := table.ColumnType(column); !ok {
		return nil, fmt.Errorf("table %s has no column %s", table.Name, column)
	}
	var values []row.Value
	for _, mr := range s.tables[table.Name] {
		if len(values) >= limit {
			break
		}
		v := mr.data.Get(column)
		if v.IsNull() {
			continue
		}
		values = append(values, v)
	}
	return values, nil
}

func (s *MemoryStore) OrphanCount(_ context.Context, child *catalog.Table, ref catalog.Ref) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	parents := make(map[string]bool)
	// Parent keys live either in the stored key encoding (single-column
	// keys) or in the row data for declared columns.
	for enc, mr := range s.tables[ref.ParentTable] {
		if v := mr.data.Get(ref.ParentColumn); !v.IsNull() {
			parents[v.String()] = true
		} else {
			parents[enc] = true
		}
	}
	orphans := 0
	for _, mr := range s.tables[child.Name] {
		fk := mr.data.Get(ref.Column)
		if fk.IsNull() {
			continue
		}
		if !parents[fk.String()] {
			orphans++
		}
	}
	return orphans, nil
}

type memTx struct {
	store *MemoryStore
	table *catalog.Table
	rows  map[string]memRow
	done  bool
}

func (t *memTx) Get(_ context.Context, key row.Key) (row.Row, bool, error) {
	mr, ok := t.rows[key.Encode()]
	if !ok {
		return nil, false, nil
	}
	return mr.data.Clone(), true, nil
}

func (t *memTx) Insert(_ context.Context, key row.Key, r row.Row, now time.Time) error {
	enc := key.Encode()
	if _, exists := t.rows[enc]; exists {
		return fmt.Errorf("duplicate key %s in %s", key, t.table.Name)
	}
	kept := make(row.Row, len(t.table.Columns))
	for _, c := range t.table.Columns {
		kept[c.Name] = r.Get(c.Name)
	}
	t.rows[enc] = memRow{data: kept, firstInserted: now, lastUpdated: now}
	return nil
}

func (t *memTx) Update(_ context.Context, key row.Key, r row.Row, now time.Time) error {
	enc := key.Encode()
	mr, exists := t.rows[enc]
	if !exists {
		return fmt.Errorf("no row %s in %s", key, t.table.Name)
	}
	kept := make(row.Row, len(t.table.Columns))
	for _, c := range t.table.Columns {
		kept[c.Name] = r.Get(c.Name)
	}
	mr.data = kept
	mr.lastUpdated = now
	t.rows[enc] = mr
	return nil
}

func (t *memTx) CountTouched(_ context.Context, now time.Time) (int, int, error) {
	return countTouchedRows(t.rows, now)
}

func (t *memTx) Commit() error {
	if t.done {
		return fmt.Errorf("transaction on %s already finished", t.table.Name)
	}
	t.done = true
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	t.store.tables[t.table.Name] = t.rows
	return nil
}

func (t *memTx) Rollback() error {
	t.done = true
	return nil
}

func countTouchedRows(rows map[string]memRow, now time.Time) (int, int, error) {
	inserted, updated := 0, 0
	for _, mr := range rows {
		switch {
		case mr.firstInserted.Equal(now):
			inserted++
		case mr.lastUpdated.Equal(now):
			updated++
		}
	}
	return inserted, updated, nil
}
