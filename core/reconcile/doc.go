// Package reconcile implements the generic staging-to-warehouse merge.
//
// One engine, parameterized by a catalog.Table, replaces a handwritten
// upsert per table: for every staged row it inserts when the key is
// absent, updates when the key exists and any tracked column differs
// under NULL-safe comparison, and writes nothing when the row is
// unchanged. Skipping unchanged rows is what keeps last_updated from
// drifting on idle data, which in turn makes repeated runs over an
// unchanged snapshot no-ops.
//
// Each table's merge runs inside a single store transaction; inserted
// and updated counts are re-derived from the provenance timestamps
// rather than trusted from loop accumulators, so they stay consistent
// even when individual rows fail and are skipped.
package reconcile
