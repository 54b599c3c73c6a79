package row

import "fmt"

// CoercionError reports a raw datum that cannot be interpreted as its
// column's type. Callers match it with errors.As to recognize data
// faults without reading messages.
type CoercionError struct {
	Type Type
	msg  string
}

func (e *CoercionError) Error() string { return e.msg }

func coercionErr(t Type, format string, args ...any) *CoercionError {
	return &CoercionError{Type: t, msg: fmt.Sprintf(format, args...)}
}

// KeyError reports a key column whose value cannot identify a row.
// Reason is "null" for null or absent values and "empty" for blank
// text.
type KeyError struct {
	Column string
	Reason string
}

func (e *KeyError) Error() string {
	return fmt.Sprintf("key column %s is %s", e.Column, e.Reason)
}
