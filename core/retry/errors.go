package retry

import "fmt"

// Stage names the phase of an import in which a failure occurred.
type Stage string

const (
	StageStaging    Stage = "staging"
	StageMerge      Stage = "merge"
	StageValidation Stage = "validation"
)

// Category is the coarse cause of a captured failure.
type Category string

const (
	CategoryConstraint   Category = "constraint"
	CategoryType         Category = "type"
	CategoryConnectivity Category = "connectivity"
	CategoryNullKey      Category = "null-key"
	CategoryUnknown      Category = "unknown"
)

// RowError captures the failure of a single row. Row errors are counted
// and reported but never propagate beyond the table they belong to.
type RowError struct {
	Table    string   `json:"table"`
	RowID    string   `json:"row_id"`
	Stage    Stage    `json:"stage"`
	Category Category `json:"category"`
	Message  string   `json:"message"`
}

func (e RowError) Error() string {
	return fmt.Sprintf("%s: row %s: %s failure (%s): %s", e.Table, e.RowID, e.Stage, e.Category, e.Message)
}

// TableFatalError marks one table's operation as unrecoverable after
// retries. It aborts that table only; sibling tables keep processing.
type TableFatalError struct {
	Table string
	Stage Stage
	Err   error
}

func (e *TableFatalError) Error() string {
	return fmt.Sprintf("%s: %s failed: %v", e.Table, e.Stage, e.Err)
}

func (e *TableFatalError) Unwrap() error {
	return e.Err
}

// RunFatalError means the warehouse cannot be reached at all. It carries
// enough context to diagnose without re-running.
type RunFatalError struct {
	Table string
	Stage Stage
	Err   error
}

func (e *RunFatalError) Error() string {
	return fmt.Sprintf("run aborted at %s/%s: %v", e.Table, e.Stage, e.Err)
}

func (e *RunFatalError) Unwrap() error {
	return e.Err
}
