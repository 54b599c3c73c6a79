// Package row defines the typed row model shared by the staging and
// warehouse sides of an import.
//
// A Row maps column names to typed Values (integer, decimal, text,
// timestamp or null). Equality between two rows is NULL-safe: null
// values are replaced by an out-of-domain sentinel per type before
// comparison, so null == null holds and a null never compares equal to
// a concrete value. This keeps "nothing changed" detection deterministic
// and avoids pointless updates that would advance audit timestamps.
package row
