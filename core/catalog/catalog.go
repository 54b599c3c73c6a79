// Package catalog describes the table pairs an import run reconciles.
//
// Each logical source system (for example a marina management system and
// a sales system) contributes a set of tables. A Table is pure
// configuration: key columns, tracked columns with their types, the
// snapshot object to stage from, and any referential links. One generic
// engine parameterized by these values replaces a handwritten merge per
// table.
package catalog

import (
	"fmt"

	"dw-importer/core/row"
)

// Column is one column of a table pair: its name and logical type.
type Column struct {
	Name string `mapstructure:"name" json:"name"`
	Type string `mapstructure:"type" json:"type"`
}

// Ref declares a referential link from a column of this table to the key
// column of a parent table. Null foreign keys mean "no relation" and are
// never a violation.
type Ref struct {
	Column       string `mapstructure:"column" json:"column"`
	ParentTable  string `mapstructure:"parent_table" json:"parent_table"`
	ParentColumn string `mapstructure:"parent_column" json:"parent_column"`
}

// Table describes one staging/warehouse table pair.
type Table struct {
	// Name is the warehouse table name.
	Name string `mapstructure:"name" json:"name"`
	// SourceObject is the snapshot object to stage rows from, relative
	// to the snapshot bucket (e.g. "exports/marina/boats.csv.gz").
	SourceObject string `mapstructure:"source_object" json:"source_object"`
	// KeyColumns form the natural key. May be composite.
	KeyColumns []string `mapstructure:"key_columns" json:"key_columns"`
	// Columns are the tracked non-key columns subject to change
	// detection, in order.
	Columns []Column `mapstructure:"columns" json:"columns"`
	// Refs are referential links checked after all tables have merged.
	Refs []Ref `mapstructure:"refs" json:"refs"`
}

// System is one logical source system with its tables. Systems are
// reconciled independently of each other.
type System struct {
	Name   string  `mapstructure:"name" json:"name"`
	Tables []Table `mapstructure:"tables" json:"tables"`
}

// Tracked returns the tracked columns as typed comparator columns.
func (t *Table) Tracked() []row.Column {
	out := make([]row.Column, len(t.Columns))
	for i, c := range t.Columns {
		out[i] = row.Column{Name: c.Name, Type: row.Type(c.Type)}
	}
	return out
}

// ColumnType returns the declared type of a column, searching tracked
// and key columns. Key columns not listed under Columns default to
// integer unless declared.
func (t *Table) ColumnType(name string) (row.Type, bool) {
	for _, c := range t.Columns {
		if c.Name == name {
			return row.Type(c.Type), true
		}
	}
	for _, c := range t.KeyColumns {
		if c == name {
			return row.TypeInteger, true
		}
	}
	return "", false
}

// AllColumns returns key columns followed by tracked columns, with key
// columns not declared under Columns typed as integers.
func (t *Table) AllColumns() []row.Column {
	out := make([]row.Column, 0, len(t.KeyColumns)+len(t.Columns))
	declared := make(map[string]bool, len(t.Columns))
	for _, c := range t.Columns {
		declared[c.Name] = true
	}
	for _, k := range t.KeyColumns {
		if !declared[k] {
			out = append(out, row.Column{Name: k, Type: row.TypeInteger})
		}
	}
	for _, c := range t.Columns {
		out = append(out, row.Column{Name: c.Name, Type: row.Type(c.Type)})
	}
	return out
}

// Validate checks a system definition for the faults that would
// otherwise surface mid-run: unnamed tables, missing key columns, bad
// column types, refs pointing at unknown tables.
func (s *System) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("system has no name")
	}
	names := make(map[string]bool, len(s.Tables))
	for i := range s.Tables {
		t := &s.Tables[i]
		if t.Name == "" {
			return fmt.Errorf("system %s: table %d has no name", s.Name, i)
		}
		if names[t.Name] {
			return fmt.Errorf("system %s: duplicate table %s", s.Name, t.Name)
		}
		names[t.Name] = true
		if len(t.KeyColumns) == 0 {
			return fmt.Errorf("system %s: table %s has no key columns", s.Name, t.Name)
		}
		for _, c := range t.Columns {
			switch row.Type(c.Type) {
			case row.TypeInteger, row.TypeDecimal, row.TypeText, row.TypeTimestamp:
			default:
				return fmt.Errorf("system %s: table %s: column %s has unknown type %q", s.Name, t.Name, c.Name, c.Type)
			}
		}
	}
	for i := range s.Tables {
		t := &s.Tables[i]
		for _, r := range t.Refs {
			if !names[r.ParentTable] {
				return fmt.Errorf("system %s: table %s: ref %s points at unknown table %s", s.Name, t.Name, r.Column, r.ParentTable)
			}
		}
	}
	return nil
}

// TableByName finds a table within the system.
func (s *System) TableByName(name string) (*Table, bool) {
	for i := range s.Tables {
		if s.Tables[i].Name == name {
			return &s.Tables[i], true
		}
	}
	return nil, false
}
