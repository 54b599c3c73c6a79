// Package validate re-derives consistency facts about a table pair
// after its merge and reports discrepancies without mutating data.
//
// Checks are independent and accumulated; a failing check never stops
// the ones after it. Referential checks run separately, after every
// table of a system has merged, because they read across tables.
package validate

import (
	"context"
	"fmt"
	"time"

	"dw-importer/core/catalog"
	"dw-importer/core/row"
	"dw-importer/core/warehouse"

	"go.uber.org/zap"
)

// Kind classifies a validation finding.
type Kind string

const (
	KindRowCountMismatch Kind = "row-count-mismatch"
	KindMissingInTarget  Kind = "missing-in-target"
	KindNullKey          Kind = "null-key"
	KindTypeMismatch     Kind = "type-mismatch"
	KindReferential      Kind = "referential-violation"
)

// Severity ranks a finding. Warnings are reported but do not fail the
// table; errors do.
type Severity string

const (
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Issue is one validation finding.
type Issue struct {
	Table    string   `json:"table"`
	Kind     Kind     `json:"kind"`
	Severity Severity `json:"severity"`
	Detail   string   `json:"detail"`
}

// Report collects the findings for one table.
type Report struct {
	Issues []Issue `json:"issues"`
}

// Passed reports whether no finding has error severity.
func (r *Report) Passed() bool {
	for _, is := range r.Issues {
		if is.Severity == SeverityError {
			return false
		}
	}
	return true
}

// Warnings counts warning-severity findings.
func (r *Report) Warnings() int {
	n := 0
	for _, is := range r.Issues {
		if is.Severity == SeverityWarning {
			n++
		}
	}
	return n
}

// Errors counts error-severity findings.
func (r *Report) Errors() int {
	n := 0
	for _, is := range r.Issues {
		if is.Severity == SeverityError {
			n++
		}
	}
	return n
}

func (r *Report) add(table string, kind Kind, sev Severity, format string, args ...any) {
	r.Issues = append(r.Issues, Issue{
		Table:    table,
		Kind:     kind,
		Severity: sev,
		Detail:   fmt.Sprintf(format, args...),
	})
}

// Snapshot carries the staging-side facts validation checks against:
// how many rows were staged, a sample of their keys, and how many rows
// arrived without a usable key.
type Snapshot struct {
	RowCount    int
	SampleKeys  []row.Key
	NullKeyRows int
}

// Config controls sampling.
type Config struct {
	// KeySampleSize is how many staged keys are spot-checked for
	// existence in the target.
	KeySampleSize int `mapstructure:"key_sample_size" default:"5"`
	// TypeSampleSize is how many target values per column are checked
	// for type conformance.
	TypeSampleSize int `mapstructure:"type_sample_size" default:"10"`
}

// Validator runs post-merge consistency checks against the warehouse.
type Validator struct {
	store warehouse.Store
	cfg   Config
	log   *zap.Logger
}

// New creates a Validator. A nil logger disables logging.
func New(store warehouse.Store, cfg Config, log *zap.Logger) *Validator {
	if cfg.KeySampleSize <= 0 {
		cfg.KeySampleSize = 5
	}
	if cfg.TypeSampleSize <= 0 {
		cfg.TypeSampleSize = 10
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Validator{store: store, cfg: cfg, log: log}
}

// ValidateTable runs the per-table checks for one merged table. now is
// the timestamp the merge stamped its writes with.
//
// The row-count check compares staged rows against rows touched this
// run; legitimately unchanged rows are excluded from the touched count,
// so a shortfall is only a warning. The real guarantee is the existence
// check: every sampled staged key must exist in the target.
func (v *Validator) ValidateTable(ctx context.Context, table *catalog.Table, snap Snapshot, now time.Time) Report {
	var rep Report

	// 1. Row-count reconciliation. A zero now means validation is
	// running standalone, outside a merge; there is no touched count to
	// reconcile then.
	if !now.IsZero() {
		inserted, updated, err := v.store.CountTouched(ctx, table, now)
		if err != nil {
			rep.add(table.Name, KindRowCountMismatch, SeverityWarning, "could not derive touched counts: %v", err)
		} else if touched := inserted + updated; touched != snap.RowCount {
			rep.add(table.Name, KindRowCountMismatch, SeverityWarning,
				"staged %d rows but touched %d (%d inserted, %d updated); unchanged rows are not counted",
				snap.RowCount, touched, inserted, updated)
		}
	}

	// 2. Sampled key existence.
	sample := snap.SampleKeys
	if len(sample) > v.cfg.KeySampleSize {
		sample = sample[:v.cfg.KeySampleSize]
	}
	if len(sample) > 0 {
		missing, err := v.store.MissingKeys(ctx, table, sample)
		if err != nil {
			rep.add(table.Name, KindMissingInTarget, SeverityError, "existence check failed: %v", err)
		} else {
			for _, key := range missing {
				rep.add(table.Name, KindMissingInTarget, SeverityError, "staged key %s not found in target", key)
			}
		}
	}

	// 3. Null keys. The merge already rejects these; finding any here
	// means rows slipped past it.
	if snap.NullKeyRows > 0 {
		rep.add(table.Name, KindNullKey, SeverityError, "%d staged rows with null or empty key", snap.NullKeyRows)
	}

	// 4. Type conformance, reported once per column.
	for _, col := range table.Tracked() {
		values, err := v.store.SampleColumn(ctx, table, col.Name, v.cfg.TypeSampleSize)
		if err != nil {
			rep.add(table.Name, KindTypeMismatch, SeverityError, "could not sample column %s: %v", col.Name, err)
			continue
		}
		for _, val := range values {
			if !val.Matches(col.Type) {
				rep.add(table.Name, KindTypeMismatch, SeverityError,
					"column %s: value %s does not conform to type %s", col.Name, val, col.Type)
				break
			}
		}
	}

	v.log.Debug("table validated",
		zap.String("table", table.Name),
		zap.Int("issues", len(rep.Issues)),
		zap.Bool("passed", rep.Passed()))

	return rep
}

// ValidateRefs checks every referential link of a system. It must run
// after all the system's tables have merged, since a child's parent may
// merge later in the same run. Findings are keyed by child table name.
func (v *Validator) ValidateRefs(ctx context.Context, system *catalog.System) map[string][]Issue {
	out := make(map[string][]Issue)
	for i := range system.Tables {
		child := &system.Tables[i]
		for _, ref := range child.Refs {
			orphans, err := v.store.OrphanCount(ctx, child, ref)
			if err != nil {
				out[child.Name] = append(out[child.Name], Issue{
					Table: child.Name, Kind: KindReferential, Severity: SeverityError,
					Detail: fmt.Sprintf("referential check %s -> %s.%s failed: %v", ref.Column, ref.ParentTable, ref.ParentColumn, err),
				})
				continue
			}
			if orphans > 0 {
				out[child.Name] = append(out[child.Name], Issue{
					Table: child.Name, Kind: KindReferential, Severity: SeverityError,
					Detail: fmt.Sprintf("%d orphaned rows: %s references missing %s.%s", orphans, ref.Column, ref.ParentTable, ref.ParentColumn),
				})
			}
		}
	}
	return out
}
