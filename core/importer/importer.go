package importer

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"dw-importer/core/catalog"
	"dw-importer/core/logger"
	"dw-importer/core/reconcile"
	"dw-importer/core/retry"
	"dw-importer/core/row"
	"dw-importer/core/source"
	"dw-importer/core/validate"
	"dw-importer/core/warehouse"
)

// preflighter is implemented by stores that can verify a target table's
// shape before any rows are merged into it.
type preflighter interface {
	Preflight(ctx context.Context, table *catalog.Table) error
}

// Options wires an Importer together.
type Options struct {
	Store    warehouse.Store
	Producer source.Producer
	Retry    retry.Config
	Validate validate.Config
	Log      *zap.Logger
	// DryRun marks the summary; callers choose the store accordingly.
	DryRun bool
}

// Importer runs imports. One Importer serves one run; the error ledger
// inside its handler accumulates for the run's lifetime.
type Importer struct {
	store     warehouse.Store
	producer  source.Producer
	handler   *retry.Handler
	engine    *reconcile.Engine
	validator *validate.Validator
	log       *zap.Logger
	dryRun    bool
}

// New creates an Importer from the given options.
func New(opts Options) *Importer {
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}
	return &Importer{
		store:     opts.Store,
		producer:  opts.Producer,
		handler:   retry.NewHandler(opts.Retry, log),
		engine:    reconcile.NewEngine(opts.Store, log),
		validator: validate.New(opts.Store, opts.Validate, log),
		log:       log,
		dryRun:    opts.DryRun,
	}
}

// Run imports every table of every given system and returns the run
// summary. now stamps all warehouse writes of the run.
//
// Tables fail independently; a table-level fault is recorded and its
// siblings continue. Only an unreachable warehouse aborts the run, in
// which case the summary covers what was processed up to that point and
// the returned error is a *retry.RunFatalError.
func (imp *Importer) Run(ctx context.Context, systems []catalog.System, now time.Time) (*RunSummary, error) {
	start := time.Now()
	sum := &RunSummary{
		RunID:     uuid.NewString(),
		StartedAt: now,
		DryRun:    imp.dryRun,
	}

	imp.log = logger.WithRunID(imp.log, sum.RunID)
	imp.log.Info("import run starting",
		zap.Int("systems", len(systems)),
		zap.Bool("dry_run", imp.dryRun))

	var runFatal error
	for i := range systems {
		system := &systems[i]
		sys := SystemSummary{System: system.Name}

		for j := range system.Tables {
			table := &system.Tables[j]
			m, fatal := imp.importTable(ctx, table, now)
			sys.Tables = append(sys.Tables, m)
			if fatal != nil {
				runFatal = fatal
				break
			}
		}

		if runFatal == nil {
			// Referential links are checked only once every table of
			// the system has had its chance to merge.
			for child, issues := range imp.validator.ValidateRefs(ctx, system) {
				for k := range sys.Tables {
					if sys.Tables[k].Table == child {
						sys.Tables[k].Issues = append(sys.Tables[k].Issues, issues...)
					}
				}
				for _, is := range issues {
					imp.handler.Record(retry.RowError{
						Table:    child,
						RowID:    "-",
						Stage:    retry.StageValidation,
						Category: retry.CategoryConstraint,
						Message:  is.Detail,
					})
				}
			}
		}

		sum.Systems = append(sum.Systems, sys)
		if runFatal != nil {
			break
		}
	}

	if runFatal != nil {
		sum.State = retry.StateFatalAbort
		sum.Fatal = runFatal.Error()
	}
	sum.Errors = imp.handler.Summary()
	sum.ElapsedMS = time.Since(start).Milliseconds()
	sum.finalize()
	return sum, runFatal
}

// importTable runs one table through staging, merge and validation. The
// second return is non-nil only when the warehouse is gone and the whole
// run must stop.
func (imp *Importer) importTable(ctx context.Context, table *catalog.Table, now time.Time) (TableMetrics, error) {
	m := TableMetrics{Table: table.Name}
	start := time.Now()
	defer func() { m.ElapsedMS = time.Since(start).Milliseconds() }()

	if pf, ok := imp.store.(preflighter); ok {
		if err := pf.Preflight(ctx, table); err != nil {
			imp.log.Error("preflight failed", zap.String("table", table.Name), zap.Error(err))
			m.Fatal = err.Error()
			return m, nil
		}
	}

	var snap *source.Snapshot
	err := imp.handler.Do(ctx, table.Name, retry.StageStaging, func(ctx context.Context) error {
		s, err := imp.producer.Snapshot(ctx, table)
		if err != nil {
			return err
		}
		snap = s
		return nil
	})
	if err != nil {
		imp.log.Error("staging failed", zap.String("table", table.Name), zap.Error(err))
		m.Fatal = err.Error()
		return m, nil
	}

	m.Staged = snap.Count()
	if m.Staged == 0 {
		imp.log.Info("snapshot empty, skipping table", zap.String("table", table.Name))
		m.Status = StatusSkipped
		return m, nil
	}

	rows, out := imp.decode(ctx, table, snap)
	m.Failed += out.Failed
	m.RowErrors = append(m.RowErrors, out.RowErrors...)
	if out.State == retry.StateFatalAbort {
		m.Fatal = out.Fatal.Error()
		return m, nil
	}

	var res reconcile.Result
	err = imp.handler.Do(ctx, table.Name, retry.StageMerge, func(ctx context.Context) error {
		r, err := imp.engine.Reconcile(ctx, table, rows, now)
		if err != nil {
			return err
		}
		res = r
		return nil
	})
	if err != nil {
		m.Fatal = err.Error()
		if retry.Unreachable(err) {
			// Losing the warehouse dooms every remaining table too.
			// Contention that outlasted the retries stays a table-level
			// fault; the siblings get their chance.
			return m, &retry.RunFatalError{Table: table.Name, Stage: retry.StageMerge, Err: err}
		}
		imp.log.Error("merge failed", zap.String("table", table.Name), zap.Error(err))
		return m, nil
	}

	m.Inserted = res.Inserted
	m.Updated = res.Updated
	m.Unchanged = res.Unchanged
	m.Failed += res.Failed
	m.RowErrors = append(m.RowErrors, res.RowErrors...)
	for _, re := range res.RowErrors {
		imp.handler.Record(re)
	}

	rep := imp.validator.ValidateTable(ctx, table, validate.Snapshot{
		RowCount:   m.Staged,
		SampleKeys: sampleKeys(rows, table),
	}, now)
	m.Issues = append(m.Issues, rep.Issues...)
	for _, is := range rep.Issues {
		if is.Severity != validate.SeverityError {
			continue
		}
		imp.handler.Record(retry.RowError{
			Table:    table.Name,
			RowID:    "-",
			Stage:    retry.StageValidation,
			Category: categoryFor(is.Kind),
			Message:  is.Detail,
		})
	}

	imp.log.Info("table imported",
		zap.String("table", table.Name),
		zap.Int("staged", m.Staged),
		zap.Int("inserted", m.Inserted),
		zap.Int("updated", m.Updated),
		zap.Int("unchanged", m.Unchanged),
		zap.Int("failed", m.Failed))
	return m, nil
}

// decode turns the snapshot's raw records into typed rows. The whole
// snapshot is tried first; on a bad record it falls back to one record
// at a time so only the malformed ones are lost.
func (imp *Importer) decode(ctx context.Context, table *catalog.Table, snap *source.Snapshot) ([]row.Row, retry.Outcome) {
	var rows []row.Row

	all := func(context.Context) error {
		decoded := make([]row.Row, 0, snap.Count())
		for i := 0; i < snap.Count(); i++ {
			r, err := snap.Decode(i)
			if err != nil {
				return err
			}
			decoded = append(decoded, r)
		}
		rows = decoded
		return nil
	}
	one := func(_ context.Context, i int) error {
		r, err := snap.Decode(i)
		if err != nil {
			return err
		}
		rows = append(rows, r)
		return nil
	}

	out := imp.handler.Batch(ctx, table.Name, retry.StageStaging, snap.Count(), all, one, snap.RowID)
	return rows, out
}

// sampleKeys collects the keys of the staged rows for the existence
// check; the validator trims the sample to its configured size. Rows
// without a usable key were already rejected by the merge.
func sampleKeys(rows []row.Row, table *catalog.Table) []row.Key {
	keys := make([]row.Key, 0, len(rows))
	for _, r := range rows {
		key, err := row.KeyOf(r, table.KeyColumns)
		if err != nil {
			continue
		}
		keys = append(keys, key)
	}
	return keys
}

func categoryFor(kind validate.Kind) retry.Category {
	switch kind {
	case validate.KindNullKey:
		return retry.CategoryNullKey
	case validate.KindTypeMismatch:
		return retry.CategoryType
	case validate.KindReferential:
		return retry.CategoryConstraint
	default:
		return retry.CategoryUnknown
	}
}
