package warehouse

import (
	"context"
	"testing"
	"time"

	"dw-importer/core/catalog"
	"dw-importer/core/row"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to open mock sql db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	dialector := mysql.New(mysql.Config{
		Conn:                      db,
		SkipInitializeWithVersion: true,
	})

	gormDB, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		t.Fatalf("Failed to open gorm db: %v", err)
	}

	return gormDB, mock
}

func TestGormStore_Count(t *testing.T) {
	db, mock := setupMockDB(t)
	store := NewGormStore(db)

	mock.ExpectQuery("SELECT count\\(\\*\\) FROM `dw_boats`").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(12))

	n, err := store.Count(context.Background(), &boatsTable)
	require.NoError(t, err)
	assert.Equal(t, 12, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormStore_CountTouched(t *testing.T) {
	db, mock := setupMockDB(t)
	store := NewGormStore(db)
	now := time.Date(2024, 3, 1, 6, 0, 0, 0, time.UTC)

	mock.ExpectQuery("SELECT count\\(\\*\\) FROM `dw_boats` WHERE first_inserted = ?").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))
	mock.ExpectQuery("SELECT count\\(\\*\\) FROM `dw_boats` WHERE last_updated = \\? AND first_inserted <> ?").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))

	ins, upd, err := store.CountTouched(context.Background(), &boatsTable, now)
	require.NoError(t, err)
	assert.Equal(t, 3, ins)
	assert.Equal(t, 2, upd)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormStore_TxInsertAndUpdate(t *testing.T) {
	db, mock := setupMockDB(t)
	store := NewGormStore(db)
	now := time.Date(2024, 3, 1, 6, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO `dw_boats`").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("UPDATE `dw_boats` SET").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	tx, err := store.Begin(context.Background(), &boatsTable)
	require.NoError(t, err)

	key := mustKey(t, 1)
	require.NoError(t, tx.Insert(context.Background(), key, row.Row{
		"name":     row.Text("Halcyon"),
		"berth_id": row.Int(7),
	}, now))

	require.NoError(t, tx.Update(context.Background(), key, row.Row{
		"name":     row.Text("Halcyon II"),
		"berth_id": row.Null(),
	}, now))

	require.NoError(t, tx.Commit())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormStore_TxGet(t *testing.T) {
	db, mock := setupMockDB(t)
	store := NewGormStore(db)

	rows := sqlmock.NewRows([]string{"name", "berth_id"}).AddRow("Halcyon", 7)
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT `name`,`berth_id` FROM `dw_boats` WHERE id = ?").
		WillReturnRows(rows)
	mock.ExpectRollback()

	tx, err := store.Begin(context.Background(), &boatsTable)
	require.NoError(t, err)

	got, found, err := tx.Get(context.Background(), mustKey(t, 1))
	require.NoError(t, err)
	require.True(t, found)
	assert.True(t, got.Get("name").Equal(row.Text("Halcyon")))
	assert.True(t, got.Get("berth_id").Equal(row.Int(7)))

	require.NoError(t, tx.Rollback())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormStore_OrphanCount(t *testing.T) {
	db, mock := setupMockDB(t)
	store := NewGormStore(db)

	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM dw_boats c WHERE c.berth_id IS NOT NULL AND NOT EXISTS").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(4))

	n, err := store.OrphanCount(context.Background(), &boatsTable, catalog.Ref{
		Column: "berth_id", ParentTable: "dw_berths", ParentColumn: "id",
	})
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormStore_Preflight(t *testing.T) {
	db, mock := setupMockDB(t)
	store := NewGormStore(db)

	t.Run("all columns present", func(t *testing.T) {
		cols := sqlmock.NewRows([]string{"Field", "Type", "Null", "Key", "Default", "Extra"}).
			AddRow("id", "int", "NO", "PRI", nil, "").
			AddRow("name", "varchar(255)", "YES", "", nil, "").
			AddRow("berth_id", "int", "YES", "", nil, "").
			AddRow("first_inserted", "datetime", "NO", "", nil, "").
			AddRow("last_updated", "datetime", "NO", "", nil, "")
		mock.ExpectQuery("SHOW COLUMNS FROM `dw_boats`").WillReturnRows(cols)

		assert.NoError(t, store.Preflight(context.Background(), &boatsTable))
	})

	t.Run("missing provenance columns", func(t *testing.T) {
		cols := sqlmock.NewRows([]string{"Field", "Type", "Null", "Key", "Default", "Extra"}).
			AddRow("id", "int", "NO", "PRI", nil, "").
			AddRow("name", "varchar(255)", "YES", "", nil, "").
			AddRow("berth_id", "int", "YES", "", nil, "")
		mock.ExpectQuery("SHOW COLUMNS FROM `dw_boats`").WillReturnRows(cols)

		err := store.Preflight(context.Background(), &boatsTable)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "first_inserted")
	})
}
