package row

import (
	"fmt"
	"time"
)

// Column describes one tracked column: its name and logical type.
type Column struct {
	Name string
	Type Type
}

// Sentinels used as the stand-in for null during comparison. Each is out
// of the domain of real business data for its type, so a null never
// accidentally equals a concrete value while null == null always holds.
var (
	sentinelInteger   = Int(-999999999)
	sentinelDecimal   = Decimal("-999999999.999999")
	sentinelText      = Text("\x00<null>")
	sentinelTimestamp = Time(time.Date(1900, 1, 1, 0, 0, 0, 0, time.UTC))
)

// sentinelFor returns the null stand-in for a column type.
func sentinelFor(t Type) Value {
	switch t {
	case TypeInteger:
		return sentinelInteger
	case TypeDecimal:
		return sentinelDecimal
	case TypeTimestamp:
		return sentinelTimestamp
	default:
		return sentinelText
	}
}

// Unchanged reports whether target and source agree on every tracked
// column under NULL-safe equality. A value whose kind contradicts the
// declared column type on either side is a configuration fault, not a
// data condition, and is returned as an error.
func Unchanged(target, source Row, tracked []Column) (bool, error) {
	unchanged := true
	for _, col := range tracked {
		tv := target.Get(col.Name)
		sv := source.Get(col.Name)
		if !tv.Matches(col.Type) {
			return false, fmt.Errorf("column %s: target value %s does not conform to type %s", col.Name, tv, col.Type)
		}
		if !sv.Matches(col.Type) {
			return false, fmt.Errorf("column %s: source value %s does not conform to type %s", col.Name, sv, col.Type)
		}
		if tv.IsNull() {
			tv = sentinelFor(col.Type)
		}
		if sv.IsNull() {
			sv = sentinelFor(col.Type)
		}
		if !tv.Equal(sv) {
			unchanged = false
		}
	}
	return unchanged, nil
}
