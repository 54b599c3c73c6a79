package warehouse

import (
	"context"
	"testing"
	"time"

	"dw-importer/core/catalog"
	"dw-importer/core/row"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var boatsTable = catalog.Table{
	Name:       "dw_boats",
	KeyColumns: []string{"id"},
	Columns: []catalog.Column{
		{Name: "name", Type: "text"},
		{Name: "berth_id", Type: "integer"},
	},
}

var berthsTable = catalog.Table{
	Name:       "dw_berths",
	KeyColumns: []string{"id"},
	Columns:    []catalog.Column{{Name: "pier", Type: "text"}},
}

func mustKey(t *testing.T, id int64) row.Key {
	t.Helper()
	k, err := row.KeyOf(row.Row{"id": row.Int(id)}, []string{"id"})
	require.NoError(t, err)
	return k
}

func TestMemoryStore_TxLifecycle(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	now := time.Date(2024, 3, 1, 6, 0, 0, 0, time.UTC)

	tx, err := store.Begin(ctx, &boatsTable)
	require.NoError(t, err)

	key := mustKey(t, 1)
	require.NoError(t, tx.Insert(ctx, key, row.Row{"name": row.Text("Halcyon"), "berth_id": row.Int(7)}, now))

	// Uncommitted writes are invisible outside the Tx.
	n, err := store.Count(ctx, &boatsTable)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	ins, upd, err := tx.CountTouched(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 1, ins)
	assert.Equal(t, 0, upd)

	require.NoError(t, tx.Commit())

	n, err = store.Count(ctx, &boatsTable)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	first, last, ok := store.Provenance(&boatsTable, key)
	require.True(t, ok)
	assert.Equal(t, now, first)
	assert.Equal(t, now, last)
}

func TestMemoryStore_RollbackDiscards(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	now := time.Now()

	tx, err := store.Begin(ctx, &boatsTable)
	require.NoError(t, err)
	require.NoError(t, tx.Insert(ctx, mustKey(t, 1), row.Row{"name": row.Text("x")}, now))
	require.NoError(t, tx.Rollback())

	n, err := store.Count(ctx, &boatsTable)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestMemoryStore_UpdateAdvancesOnlyLastUpdated(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	run1 := time.Date(2024, 3, 1, 6, 0, 0, 0, time.UTC)
	run2 := run1.Add(24 * time.Hour)
	key := mustKey(t, 1)

	store.Seed(&boatsTable, key, row.Row{"name": row.Text("Halcyon"), "berth_id": row.Int(7)}, run1, run1)

	tx, err := store.Begin(ctx, &boatsTable)
	require.NoError(t, err)
	require.NoError(t, tx.Update(ctx, key, row.Row{"name": row.Text("Halcyon II"), "berth_id": row.Int(7)}, run2))

	ins, upd, err := tx.CountTouched(ctx, run2)
	require.NoError(t, err)
	assert.Equal(t, 0, ins)
	assert.Equal(t, 1, upd)

	require.NoError(t, tx.Commit())

	first, last, ok := store.Provenance(&boatsTable, key)
	require.True(t, ok)
	assert.Equal(t, run1, first)
	assert.Equal(t, run2, last)
}

func TestMemoryStore_MissingKeys(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	now := time.Now()
	store.Seed(&boatsTable, mustKey(t, 1), row.Row{"name": row.Text("a")}, now, now)

	missing, err := store.MissingKeys(ctx, &boatsTable, []row.Key{mustKey(t, 1), mustKey(t, 2), mustKey(t, 3)})
	require.NoError(t, err)
	require.Len(t, missing, 2)
}

func TestMemoryStore_OrphanCount(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	now := time.Now()

	store.Seed(&berthsTable, mustKey(t, 7), row.Row{"pier": row.Text("A")}, now, now)
	store.Seed(&boatsTable, mustKey(t, 1), row.Row{"name": row.Text("a"), "berth_id": row.Int(7)}, now, now)
	store.Seed(&boatsTable, mustKey(t, 2), row.Row{"name": row.Text("b"), "berth_id": row.Int(99)}, now, now)
	// Null foreign key is "no relation", never an orphan.
	store.Seed(&boatsTable, mustKey(t, 3), row.Row{"name": row.Text("c"), "berth_id": row.Null()}, now, now)

	orphans, err := store.OrphanCount(ctx, &boatsTable, catalog.Ref{
		Column: "berth_id", ParentTable: "dw_berths", ParentColumn: "id",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, orphans)
}

func TestMemoryStore_SampleColumn(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	now := time.Now()
	store.Seed(&boatsTable, mustKey(t, 1), row.Row{"name": row.Text("a"), "berth_id": row.Int(7)}, now, now)
	store.Seed(&boatsTable, mustKey(t, 2), row.Row{"name": row.Null(), "berth_id": row.Int(8)}, now, now)

	// Nulls are skipped.
	values, err := store.SampleColumn(ctx, &boatsTable, "name", 10)
	require.NoError(t, err)
	require.Len(t, values, 1)
	assert.Equal(t, row.KindText, values[0].Kind())

	_, err = store.SampleColumn(ctx, &boatsTable, "no_such_column", 10)
	assert.Error(t, err)
}
