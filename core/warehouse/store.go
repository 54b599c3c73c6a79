// Package warehouse provides access to the durable target tables an
// import reconciles into.
//
// Store is the narrow surface the engine and the validator need: keyed
// lookups and writes inside a per-table unit of work, plus the read-only
// queries validation is built on. Two implementations exist: a
// gorm/MySQL store for live runs and an in-memory store for dry runs
// and tests. Every target table carries two provenance columns besides
// its business columns, first_inserted and last_updated, and those are
// the only extra fields a Store ever writes.
package warehouse

import (
	"context"
	"time"

	"dw-importer/core/catalog"
	"dw-importer/core/row"
)

// Provenance column names present on every warehouse table.
const (
	ColFirstInserted = "first_inserted"
	ColLastUpdated   = "last_updated"
)

// Store is the read side of the warehouse plus the entry point for
// per-table units of work.
type Store interface {
	// Begin opens a unit of work for one table. All of a table's merge
	// writes commit together or not at all.
	Begin(ctx context.Context, table *catalog.Table) (Tx, error)

	// Count returns the total number of rows in the table.
	Count(ctx context.Context, table *catalog.Table) (int, error)

	// CountTouched re-derives how many rows this run inserted
	// (first_inserted equals now) and updated (last_updated equals now
	// but first_inserted does not).
	CountTouched(ctx context.Context, table *catalog.Table, now time.Time) (inserted, updated int, err error)

	// MissingKeys returns the subset of keys with no matching row.
	MissingKeys(ctx context.Context, table *catalog.Table, keys []row.Key) ([]row.Key, error)

	// SampleColumn returns up to limit non-null raw values of a column,
	// coerced to the declared type where possible; values that cannot
	// be coerced are returned as text so the caller can flag them.
	SampleColumn(ctx context.Context, table *catalog.Table, column string, limit int) ([]row.Value, error)

	// OrphanCount counts child rows whose non-null ref column has no
	// matching parent key.
	OrphanCount(ctx context.Context, child *catalog.Table, ref catalog.Ref) (int, error)
}

// Tx is one table's unit of work. Writes are invisible outside the Tx
// until Commit.
type Tx interface {
	// Get looks up the row for a key. The returned row contains the
	// tracked business columns only.
	Get(ctx context.Context, key row.Key) (row.Row, bool, error)

	// Insert writes a new row with both provenance timestamps set to now.
	Insert(ctx context.Context, key row.Key, r row.Row, now time.Time) error

	// Update rewrites the tracked columns of an existing row and
	// advances last_updated to now. first_inserted is never touched.
	Update(ctx context.Context, key row.Key, r row.Row, now time.Time) error

	// CountTouched is Store.CountTouched scoped to this Tx, so counts
	// can be derived before commit.
	CountTouched(ctx context.Context, now time.Time) (inserted, updated int, err error)

	Commit() error
	Rollback() error
}
