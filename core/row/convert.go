package row

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Timestamp layouts accepted when coercing from text. MySQL DATETIME
// scans as "2006-01-02 15:04:05"; extracted snapshots carry RFC 3339.
var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Coerce converts a raw scanned or parsed value into a typed Value for
// the given column type. It handles the representations the MySQL
// driver and CSV decoding actually produce: nil, the integer family,
// floats, strings, byte slices and time.Time. A value that cannot be
// interpreted as the column type is a row-level data error, reported as
// a *CoercionError.
func Coerce(raw any, t Type) (Value, error) {
	if raw == nil {
		return Null(), nil
	}
	switch t {
	case TypeInteger:
		return coerceInteger(raw)
	case TypeDecimal:
		return coerceDecimal(raw)
	case TypeTimestamp:
		return coerceTimestamp(raw)
	case TypeText:
		return coerceText(raw)
	}
	return Null(), fmt.Errorf("unknown column type %q", t)
}

func coerceInteger(raw any) (Value, error) {
	switch v := raw.(type) {
	case int:
		return Int(int64(v)), nil
	case int64:
		return Int(v), nil
	case int32:
		return Int(int64(v)), nil
	case int16:
		return Int(int64(v)), nil
	case int8:
		return Int(int64(v)), nil
	case uint:
		return Int(int64(v)), nil
	case uint64:
		return Int(int64(v)), nil
	case uint32:
		return Int(int64(v)), nil
	case float64:
		if v != float64(int64(v)) {
			return Null(), coercionErr(TypeInteger, "value %v is not a whole number", v)
		}
		return Int(int64(v)), nil
	case []byte:
		return parseInteger(string(v))
	case string:
		return parseInteger(v)
	}
	return Null(), coercionErr(TypeInteger, "cannot interpret %T as integer", raw)
}

func parseInteger(s string) (Value, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Null(), nil
	}
	i, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return Null(), coercionErr(TypeInteger, "value %q is not an integer", s)
	}
	return Int(i), nil
}

func coerceDecimal(raw any) (Value, error) {
	var lexical string
	switch v := raw.(type) {
	case string:
		lexical = strings.TrimSpace(v)
	case []byte:
		lexical = strings.TrimSpace(string(v))
	case float64:
		lexical = strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		lexical = strconv.FormatFloat(float64(v), 'f', -1, 32)
	case int:
		lexical = strconv.Itoa(v)
	case int64:
		lexical = strconv.FormatInt(v, 10)
	default:
		return Null(), coercionErr(TypeDecimal, "cannot interpret %T as decimal", raw)
	}
	if lexical == "" {
		return Null(), nil
	}
	d, err := decimal.NewFromString(lexical)
	if err != nil {
		return Null(), coercionErr(TypeDecimal, "value %q is not a decimal number", lexical)
	}
	return Value{kind: KindDecimal, s: lexical, d: d}, nil
}

func coerceTimestamp(raw any) (Value, error) {
	switch v := raw.(type) {
	case time.Time:
		return Time(v), nil
	case []byte:
		return parseTimestamp(string(v))
	case string:
		return parseTimestamp(v)
	}
	return Null(), coercionErr(TypeTimestamp, "cannot interpret %T as timestamp", raw)
}

func parseTimestamp(s string) (Value, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Null(), nil
	}
	for _, layout := range timeLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return Time(ts), nil
		}
	}
	return Null(), coercionErr(TypeTimestamp, "value %q is not a timestamp", s)
}

func coerceText(raw any) (Value, error) {
	switch v := raw.(type) {
	case string:
		return Text(v), nil
	case []byte:
		return Text(string(v)), nil
	default:
		return Text(fmt.Sprintf("%v", v)), nil
	}
}
