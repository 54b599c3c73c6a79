// Package importer orchestrates an import run end to end.
//
// A run walks every configured system and, per table: fetches the staged
// snapshot, decodes it into typed rows, merges the rows into the
// warehouse, and validates the result. Referential links are checked once
// per system, after all of its tables have merged, because a child's
// parent may merge later in the same run.
//
// Failures stay as contained as their cause allows. A bad record fails
// only itself, a table-level fault (missing extract, comparator type
// disagreement, failed commit) aborts only its table, and only losing the
// warehouse entirely aborts the run. Every table gets a status (success,
// warning, error or skipped) and the run summary aggregates them with a
// success rate, the per-stage error ledger, and totals. The Reporter
// publishes the summary as JSON to object storage where the report server
// picks it up.
package importer
