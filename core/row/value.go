package row

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Type identifies the logical column type of a Value.
type Type string

const (
	// TypeInteger is a whole number column.
	TypeInteger Type = "integer"
	// TypeDecimal is an exact-numeric column. Values keep their lexical
	// form and are compared at full precision, never as floats.
	TypeDecimal Type = "decimal"
	// TypeText is a character column.
	TypeText Type = "text"
	// TypeTimestamp is a temporal column.
	TypeTimestamp Type = "timestamp"
)

// Kind is the runtime kind of a Value. It matches Type except for the
// additional null kind.
type Kind uint8

const (
	KindNull Kind = iota
	KindInteger
	KindDecimal
	KindText
	KindTimestamp
)

// Value is a single typed cell. The zero Value is null. Decimals carry
// both the parsed number, for comparison, and the lexical form they
// arrived in, for round-tripping to the driver.
type Value struct {
	kind Kind
	i    int64
	s    string
	d    decimal.Decimal
	t    time.Time
}

// Null returns the null Value.
func Null() Value {
	return Value{}
}

// Int returns an integer Value.
func Int(v int64) Value {
	return Value{kind: KindInteger, i: v}
}

// Decimal returns an exact-numeric Value from its lexical form,
// e.g. "1234.5600". The form must parse as a decimal number; Decimal
// panics otherwise. Untrusted input goes through Coerce instead.
func Decimal(lexical string) Value {
	return Value{kind: KindDecimal, s: lexical, d: decimal.RequireFromString(lexical)}
}

// Text returns a text Value.
func Text(v string) Value {
	return Value{kind: KindText, s: v}
}

// Time returns a timestamp Value.
func Time(v time.Time) Value {
	return Value{kind: KindTimestamp, t: v}
}

// Kind returns the runtime kind of the value.
func (v Value) Kind() Kind {
	return v.kind
}

// IsNull reports whether the value is null.
func (v Value) IsNull() bool {
	return v.kind == KindNull
}

// Int64 returns the integer payload. Valid only for KindInteger.
func (v Value) Int64() int64 {
	return v.i
}

// Text returns the text payload. Valid only for KindText.
func (v Value) Text() string {
	return v.s
}

// Lexical returns the decimal lexical form. Valid only for KindDecimal.
func (v Value) Lexical() string {
	return v.s
}

// Time returns the timestamp payload. Valid only for KindTimestamp.
func (v Value) Time() time.Time {
	return v.t
}

// Matches reports whether the value's kind conforms to the given column
// type. Null conforms to every type.
func (v Value) Matches(t Type) bool {
	switch v.kind {
	case KindNull:
		return true
	case KindInteger:
		return t == TypeInteger
	case KindDecimal:
		return t == TypeDecimal
	case KindText:
		return t == TypeText
	case KindTimestamp:
		return t == TypeTimestamp
	}
	return false
}

// Equal reports exact equality between two values of the same kind.
// Decimals are compared numerically at full precision, so "1.50" equals
// "1.5". Comparing values of different kinds returns false.
func (v Value) Equal(other Value) bool {
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindInteger:
		return v.i == other.i
	case KindDecimal:
		return v.d.Equal(other.d)
	case KindText:
		return v.s == other.s
	case KindTimestamp:
		return v.t.Equal(other.t)
	}
	return false
}

// Driver returns the value in a form suitable for a database driver:
// nil for null, int64, string, or time.Time otherwise.
func (v Value) Driver() any {
	switch v.kind {
	case KindNull:
		return nil
	case KindInteger:
		return v.i
	case KindDecimal:
		return v.s
	case KindText:
		return v.s
	case KindTimestamp:
		return v.t
	}
	return nil
}

// String renders the value for logs and error messages.
func (v Value) String() string {
	switch v.kind {
	case KindNull:
		return "NULL"
	case KindInteger:
		return fmt.Sprintf("%d", v.i)
	case KindDecimal:
		return v.s
	case KindText:
		return v.s
	case KindTimestamp:
		return v.t.Format(time.RFC3339)
	}
	return "NULL"
}
