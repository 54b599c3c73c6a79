package warehouse

import (
	"context"
	"fmt"
	"strings"
	"time"

	"dw-importer/core/catalog"
	"dw-importer/core/database"
	"dw-importer/core/row"

	"gorm.io/gorm"
)

// GormStore is the MySQL-backed warehouse store.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore wraps an open gorm connection.
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// Preflight verifies that the target table exists and carries the key,
// tracked and provenance columns before any merge is attempted. A table
// failing preflight is unusable for the whole run.
func (s *GormStore) Preflight(ctx context.Context, table *catalog.Table) error {
	cols, err := database.TableColumns(s.db.WithContext(ctx), table.Name)
	if err != nil {
		return fmt.Errorf("inspect %s: %w", table.Name, err)
	}
	have := make(map[string]bool, len(cols))
	for _, c := range cols {
		have[strings.ToLower(c.Field)] = true
	}
	var missing []string
	for _, c := range table.AllColumns() {
		if !have[strings.ToLower(c.Name)] {
			missing = append(missing, c.Name)
		}
	}
	for _, c := range []string{ColFirstInserted, ColLastUpdated} {
		if !have[c] {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("table %s is missing columns: %s", table.Name, strings.Join(missing, ", "))
	}
	return nil
}

// Begin opens a database transaction scoped to one table.
func (s *GormStore) Begin(ctx context.Context, table *catalog.Table) (Tx, error) {
	tx := s.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return nil, fmt.Errorf("begin %s: %w", table.Name, tx.Error)
	}
	return &gormTx{db: tx, table: table}, nil
}

func (s *GormStore) Count(ctx context.Context, table *catalog.Table) (int, error) {
	var n int64
	err := s.db.WithContext(ctx).Table(table.Name).Count(&n).Error
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", table.Name, err)
	}
	return int(n), nil
}

func (s *GormStore) CountTouched(ctx context.Context, table *catalog.Table, now time.Time) (int, int, error) {
	return countTouched(s.db.WithContext(ctx), table, now)
}

func (s *GormStore) MissingKeys(ctx context.Context, table *catalog.Table, keys []row.Key) ([]row.Key, error) {
	var missing []row.Key
	for _, key := range keys {
		q := s.db.WithContext(ctx).Table(table.Name)
		for i, col := range key.Columns() {
			q = q.Where(col+" = ?", key.Values()[i].Driver())
		}
		var n int64
		if err := q.Count(&n).Error; err != nil {
			return nil, fmt.Errorf("lookup %s in %s: %w", key, table.Name, err)
		}
		if n == 0 {
			missing = append(missing, key)
		}
	}
	return missing, nil
}

func (s *GormStore) SampleColumn(ctx context.Context, table *catalog.Table, column string, limit int) ([]row.Value, error) {
	typ, ok := table.ColumnType(column)
	if !ok {
		return nil, fmt.Errorf("table %s has no column %s", table.Name, column)
	}
	var recs []map[string]any
	err := s.db.WithContext(ctx).
		Table(table.Name).
		Select(column).
		Where(column + " IS NOT NULL").
		Limit(limit).
		Find(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("sample %s.%s: %w", table.Name, column, err)
	}
	values := make([]row.Value, 0, len(recs))
	for _, rec := range recs {
		v, err := row.Coerce(rec[column], typ)
		if err != nil {
			// Keep the raw form; the validator flags it as nonconforming.
			v = row.Text(fmt.Sprintf("%v", rec[column]))
		}
		values = append(values, v)
	}
	return values, nil
}

func (s *GormStore) OrphanCount(ctx context.Context, child *catalog.Table, ref catalog.Ref) (int, error) {
	query := fmt.Sprintf(
		"SELECT COUNT(*) FROM %s c WHERE c.%s IS NOT NULL AND NOT EXISTS (SELECT 1 FROM %s p WHERE p.%s = c.%s)",
		child.Name, ref.Column, ref.ParentTable, ref.ParentColumn, ref.Column,
	)
	var n int64
	if err := s.db.WithContext(ctx).Raw(query).Scan(&n).Error; err != nil {
		return 0, fmt.Errorf("referential check %s.%s: %w", child.Name, ref.Column, err)
	}
	return int(n), nil
}

type gormTx struct {
	db    *gorm.DB
	table *catalog.Table
}

func (t *gormTx) Get(ctx context.Context, key row.Key) (row.Row, bool, error) {
	cols := make([]string, 0, len(t.table.Columns))
	for _, c := range t.table.Columns {
		cols = append(cols, c.Name)
	}
	q := t.db.WithContext(ctx).Table(t.table.Name).Select(cols)
	for i, col := range key.Columns() {
		q = q.Where(col+" = ?", key.Values()[i].Driver())
	}
	var recs []map[string]any
	if err := q.Limit(1).Find(&recs).Error; err != nil {
		return nil, false, fmt.Errorf("get %s from %s: %w", key, t.table.Name, err)
	}
	if len(recs) == 0 {
		return nil, false, nil
	}
	r := make(row.Row, len(t.table.Columns))
	for _, c := range t.table.Columns {
		v, err := row.Coerce(recs[0][c.Name], row.Type(c.Type))
		if err != nil {
			return nil, false, fmt.Errorf("get %s from %s: column %s: %w", key, t.table.Name, c.Name, err)
		}
		r[c.Name] = v
	}
	return r, true, nil
}

func (t *gormTx) Insert(ctx context.Context, key row.Key, r row.Row, now time.Time) error {
	rec := make(map[string]any, len(r)+len(key.Columns())+2)
	for i, col := range key.Columns() {
		rec[col] = key.Values()[i].Driver()
	}
	for _, c := range t.table.Columns {
		rec[c.Name] = r.Get(c.Name).Driver()
	}
	rec[ColFirstInserted] = now
	rec[ColLastUpdated] = now
	if err := t.db.WithContext(ctx).Table(t.table.Name).Create(rec).Error; err != nil {
		return fmt.Errorf("insert %s into %s: %w", key, t.table.Name, err)
	}
	return nil
}

func (t *gormTx) Update(ctx context.Context, key row.Key, r row.Row, now time.Time) error {
	changes := make(map[string]any, len(t.table.Columns)+1)
	for _, c := range t.table.Columns {
		changes[c.Name] = r.Get(c.Name).Driver()
	}
	changes[ColLastUpdated] = now
	q := t.db.WithContext(ctx).Table(t.table.Name)
	for i, col := range key.Columns() {
		q = q.Where(col+" = ?", key.Values()[i].Driver())
	}
	if err := q.Updates(changes).Error; err != nil {
		return fmt.Errorf("update %s in %s: %w", key, t.table.Name, err)
	}
	return nil
}

func (t *gormTx) CountTouched(ctx context.Context, now time.Time) (int, int, error) {
	return countTouched(t.db.WithContext(ctx), t.table, now)
}

func (t *gormTx) Commit() error {
	if err := t.db.Commit().Error; err != nil {
		return fmt.Errorf("commit %s: %w", t.table.Name, err)
	}
	return nil
}

func (t *gormTx) Rollback() error {
	return t.db.Rollback().Error
}

func countTouched(db *gorm.DB, table *catalog.Table, now time.Time) (int, int, error) {
	var inserted, updated int64
	err := db.Table(table.Name).Where(ColFirstInserted+" = ?", now).Count(&inserted).Error
	if err != nil {
		return 0, 0, fmt.Errorf("count inserted in %s: %w", table.Name, err)
	}
	err = db.Table(table.Name).
		Where(ColLastUpdated+" = ?", now).
		Where(ColFirstInserted+" <> ?", now).
		Count(&updated).Error
	if err != nil {
		return 0, 0, fmt.Errorf("count updated in %s: %w", table.Name, err)
	}
	return int(inserted), int(updated), nil
}
