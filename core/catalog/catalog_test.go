package catalog

import (
	"testing"

	"dw-importer/core/row"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func marinaSystem() System {
	return System{
		Name: "marina",
		Tables: []Table{
			{
				Name:         "dw_berths",
				SourceObject: "exports/marina/berths.csv",
				KeyColumns:   []string{"id"},
				Columns: []Column{
					{Name: "pier", Type: "text"},
					{Name: "max_length", Type: "decimal"},
				},
			},
			{
				Name:         "dw_boats",
				SourceObject: "exports/marina/boats.csv",
				KeyColumns:   []string{"id"},
				Columns: []Column{
					{Name: "name", Type: "text"},
					{Name: "berth_id", Type: "integer"},
				},
				Refs: []Ref{{Column: "berth_id", ParentTable: "dw_berths", ParentColumn: "id"}},
			},
		},
	}
}

func TestSystemValidate(t *testing.T) {
	t.Run("valid system", func(t *testing.T) {
		s := marinaSystem()
		require.NoError(t, s.Validate())
	})

	t.Run("duplicate table", func(t *testing.T) {
		s := marinaSystem()
		s.Tables = append(s.Tables, Table{Name: "dw_boats", KeyColumns: []string{"id"}})
		assert.ErrorContains(t, s.Validate(), "duplicate table")
	})

	t.Run("missing key columns", func(t *testing.T) {
		s := marinaSystem()
		s.Tables[0].KeyColumns = nil
		assert.ErrorContains(t, s.Validate(), "no key columns")
	})

	t.Run("unknown column type", func(t *testing.T) {
		s := marinaSystem()
		s.Tables[0].Columns[0].Type = "varchar"
		assert.ErrorContains(t, s.Validate(), "unknown type")
	})

	t.Run("ref to unknown table", func(t *testing.T) {
		s := marinaSystem()
		s.Tables[1].Refs[0].ParentTable = "dw_owners"
		assert.ErrorContains(t, s.Validate(), "unknown table")
	})
}

func TestTableColumnHelpers(t *testing.T) {
	s := marinaSystem()
	boats, ok := s.TableByName("dw_boats")
	require.True(t, ok)

	tracked := boats.Tracked()
	require.Len(t, tracked, 2)
	assert.Equal(t, row.TypeText, tracked[0].Type)

	typ, ok := boats.ColumnType("berth_id")
	require.True(t, ok)
	assert.Equal(t, row.TypeInteger, typ)

	// Undeclared key column defaults to integer.
	typ, ok = boats.ColumnType("id")
	require.True(t, ok)
	assert.Equal(t, row.TypeInteger, typ)

	all := boats.AllColumns()
	require.Len(t, all, 3)
	assert.Equal(t, "id", all[0].Name)
}
