package row

import (
	"strings"
)

// Row maps column names to typed values. Columns absent from the map are
// treated as null.
type Row map[string]Value

// Get returns the value for a column, or null if the column is absent.
func (r Row) Get(column string) Value {
	return r[column]
}

// Clone returns a shallow copy of the row. Values are immutable, so a
// shallow copy is a full copy.
func (r Row) Clone() Row {
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Key is the natural key of a row: one or more column values extracted
// in key-column order. Keys identify rows across the staging and
// warehouse copies of a table.
type Key struct {
	columns []string
	values  []Value
}

// KeyOf extracts the key for the given key columns from a row. It fails
// if any key column is null or an empty string; rows without a usable
// identity must not reach the warehouse.
func KeyOf(r Row, keyColumns []string) (Key, error) {
	values := make([]Value, len(keyColumns))
	for i, col := range keyColumns {
		v := r.Get(col)
		if v.IsNull() {
			return Key{}, &KeyError{Column: col, Reason: "null"}
		}
		if v.Kind() == KindText && strings.TrimSpace(v.Text()) == "" {
			return Key{}, &KeyError{Column: col, Reason: "empty"}
		}
		values[i] = v
	}
	return Key{columns: keyColumns, values: values}, nil
}

// Columns returns the key column names in order.
func (k Key) Columns() []string {
	return k.columns
}

// Values returns the key values in column order.
func (k Key) Values() []Value {
	return k.values
}

// Encode returns a canonical string form of the key, usable as a map
// index. Composite keys are joined with an out-of-band separator.
func (k Key) Encode() string {
	parts := make([]string, len(k.values))
	for i, v := range k.values {
		parts[i] = v.String()
	}
	return strings.Join(parts, "\x1f")
}

// String renders the key for logs and error messages.
func (k Key) String() string {
	parts := make([]string, len(k.values))
	for i, v := range k.values {
		parts[i] = k.columns[i] + "=" + v.String()
	}
	return strings.Join(parts, ",")
}
