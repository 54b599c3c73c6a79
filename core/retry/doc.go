// Package retry wraps the batch operations of an import run with
// failure classification, bounded retry and row-level fallback.
//
// Failures escalate through three scopes. A RowError concerns a single
// row of one table; it is recorded and never aborts the batch. A
// TableFatalError makes one table's operation unrecoverable and aborts
// that table only. A RunFatalError means the warehouse itself is
// unreachable and ends the run.
//
// Transient causes (lost connections, lock waits) are retried with
// increasing delay; permanent causes (constraint violations, type
// coercion failures) are not. Retryability is not reachability: a lock
// wait that outlasts its retries fails only the table that hit it,
// while a lost connection ends the run.
package retry
