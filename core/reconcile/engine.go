package reconcile

import (
	"context"
	"fmt"
	"time"

	"dw-importer/core/catalog"
	"dw-importer/core/retry"
	"dw-importer/core/row"
	"dw-importer/core/warehouse"

	"go.uber.org/zap"
)

// Result reports one table's merge. Inserted and Updated are re-derived
// from provenance timestamps equal to the run's `now`; Unchanged is the
// remainder of staged rows that needed no write.
type Result struct {
	Staged    int
	Inserted  int
	Updated   int
	Unchanged int
	Failed    int
	RowErrors []retry.RowError
}

// Engine merges staged rows into warehouse tables.
type Engine struct {
	store warehouse.Store
	log   *zap.Logger
}

// NewEngine creates an Engine. A nil logger disables logging.
func NewEngine(store warehouse.Store, log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{store: store, log: log}
}

// Reconcile merges the staged rows of one table. now stamps every write
// of this call, which makes runs deterministic and lets counts be
// re-derived afterwards.
//
// A row with a null or empty key, or a row the store rejects for a
// permanent per-row cause, is captured as a RowError and does not stop
// the batch. A connectivity loss, a comparator type fault or a failed
// commit aborts the whole table: the transaction rolls back and a
// TableFatalError is returned, leaving the table as it was before the
// call.
func (e *Engine) Reconcile(ctx context.Context, table *catalog.Table, rows []row.Row, now time.Time) (Result, error) {
	res := Result{Staged: len(rows)}
	tracked := table.Tracked()

	tx, err := e.store.Begin(ctx, table)
	if err != nil {
		return Result{}, &retry.TableFatalError{Table: table.Name, Stage: retry.StageMerge, Err: err}
	}

	fatal := func(cause error) (Result, error) {
		_ = tx.Rollback()
		return Result{Staged: len(rows)}, &retry.TableFatalError{Table: table.Name, Stage: retry.StageMerge, Err: cause}
	}

	for i, r := range rows {
		key, err := row.KeyOf(r, table.KeyColumns)
		if err != nil {
			res.Failed++
			res.RowErrors = append(res.RowErrors, retry.RowError{
				Table:    table.Name,
				RowID:    fmt.Sprintf("row %d", i+1),
				Stage:    retry.StageStaging,
				Category: retry.CategoryNullKey,
				Message:  err.Error(),
			})
			continue
		}

		existing, found, err := tx.Get(ctx, key)
		if err != nil {
			if retry.Classify(err) == retry.CategoryConnectivity {
				return fatal(err)
			}
			res.Failed++
			res.RowErrors = append(res.RowErrors, rowError(table.Name, key, err))
			continue
		}

		if !found {
			if err := tx.Insert(ctx, key, r, now); err != nil {
				if retry.Classify(err) == retry.CategoryConnectivity {
					return fatal(err)
				}
				res.Failed++
				res.RowErrors = append(res.RowErrors, rowError(table.Name, key, err))
			}
			continue
		}

		same, err := row.Unchanged(existing, r, tracked)
		if err != nil {
			// A type disagreement between the two copies of a column is
			// a configuration fault, not a data condition.
			return fatal(err)
		}
		if same {
			continue
		}

		if err := tx.Update(ctx, key, r, now); err != nil {
			if retry.Classify(err) == retry.CategoryConnectivity {
				return fatal(err)
			}
			res.Failed++
			res.RowErrors = append(res.RowErrors, rowError(table.Name, key, err))
		}
	}

	inserted, updated, err := tx.CountTouched(ctx, now)
	if err != nil {
		return fatal(err)
	}
	res.Inserted = inserted
	res.Updated = updated
	res.Unchanged = res.Staged - res.Inserted - res.Updated - res.Failed

	if err := tx.Commit(); err != nil {
		return Result{Staged: len(rows)}, &retry.TableFatalError{Table: table.Name, Stage: retry.StageMerge, Err: err}
	}

	e.log.Debug("table merged",
		zap.String("table", table.Name),
		zap.Int("staged", res.Staged),
		zap.Int("inserted", res.Inserted),
		zap.Int("updated", res.Updated),
		zap.Int("unchanged", res.Unchanged),
		zap.Int("failed", res.Failed))

	return res, nil
}

func rowError(table string, key row.Key, err error) retry.RowError {
	return retry.RowError{
		Table:    table,
		RowID:    key.String(),
		Stage:    retry.StageMerge,
		Category: retry.Classify(err),
		Message:  err.Error(),
	}
}
