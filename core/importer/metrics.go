package importer

import (
	"time"

	"go.uber.org/zap"

	"dw-importer/core/retry"
	"dw-importer/core/validate"
)

// Status is the terminal outcome of one table's import.
type Status string

const (
	// StatusSuccess means every staged row landed with no findings.
	StatusSuccess Status = "success"
	// StatusWarning means the table completed but with row failures or
	// warning-level validation findings.
	StatusWarning Status = "warning"
	// StatusError means the table aborted or validation found errors.
	StatusError Status = "error"
	// StatusSkipped means the snapshot staged zero rows. Not a fault:
	// an empty extract is a valid statement that nothing exists.
	StatusSkipped Status = "skipped"
)

// TableMetrics is one table's line in the run report.
type TableMetrics struct {
	Table     string           `json:"table"`
	Status    Status           `json:"status"`
	Staged    int              `json:"staged"`
	Inserted  int              `json:"inserted"`
	Updated   int              `json:"updated"`
	Unchanged int              `json:"unchanged"`
	Failed    int              `json:"failed"`
	ElapsedMS int64            `json:"elapsed_ms"`
	RowErrors []retry.RowError `json:"row_errors,omitempty"`
	Issues    []validate.Issue `json:"issues,omitempty"`
	Fatal     string           `json:"fatal,omitempty"`
}

// classify derives the status from what the table accumulated. Skipped
// is assigned earlier, when the snapshot turns out empty.
func (m *TableMetrics) classify() {
	if m.Status == StatusSkipped {
		return
	}
	if m.Fatal != "" {
		m.Status = StatusError
		return
	}
	for _, is := range m.Issues {
		if is.Severity == validate.SeverityError {
			m.Status = StatusError
			return
		}
	}
	if len(m.RowErrors) > 0 || len(m.Issues) > 0 {
		m.Status = StatusWarning
		return
	}
	m.Status = StatusSuccess
}

// SystemSummary aggregates one logical source system.
type SystemSummary struct {
	System      string         `json:"system"`
	Tables      []TableMetrics `json:"tables"`
	Processed   int            `json:"processed"`
	Succeeded   int            `json:"succeeded"`
	Warnings    int            `json:"warnings"`
	Failures    int            `json:"failures"`
	Skipped     int            `json:"skipped"`
	SuccessRate float64        `json:"success_rate"`
}

// finalize classifies every table and derives the system counters. The
// success rate counts tables with zero errors over all processed
// tables: a table that errored or lost even one row is out, a table
// with only warning-level findings still counts, and an empty snapshot
// counts because nothing about it failed.
func (s *SystemSummary) finalize() {
	clean := 0
	for i := range s.Tables {
		t := &s.Tables[i]
		t.classify()
		switch t.Status {
		case StatusSuccess:
			s.Succeeded++
		case StatusWarning:
			s.Warnings++
		case StatusError:
			s.Failures++
		case StatusSkipped:
			s.Skipped++
		}
		if t.Status != StatusError && t.Failed == 0 && len(t.RowErrors) == 0 {
			clean++
		}
	}
	s.Processed = len(s.Tables)
	if s.Processed > 0 {
		s.SuccessRate = float64(clean) / float64(s.Processed) * 100
	}
}

// RunSummary is the machine-readable report of one import run.
type RunSummary struct {
	RunID     string                                 `json:"run_id"`
	StartedAt time.Time                              `json:"started_at"`
	ElapsedMS int64                                  `json:"elapsed_ms"`
	DryRun    bool                                   `json:"dry_run"`
	State     retry.State                            `json:"state"`
	Systems   []SystemSummary                        `json:"systems"`
	Staged    int                                    `json:"staged"`
	Inserted  int                                    `json:"inserted"`
	Updated   int                                    `json:"updated"`
	Unchanged int                                    `json:"unchanged"`
	Failed    int                                    `json:"failed"`
	Errors    map[retry.Stage]map[retry.Category]int `json:"errors_by_stage,omitempty"`
	Fatal     string                                 `json:"fatal,omitempty"`
}

// finalize rolls system totals up and settles the run state. The run is
// a partial success when any table errored or any row failed; a fatal
// abort is set by the orchestrator before finalize runs.
func (s *RunSummary) finalize() {
	failures := 0
	for i := range s.Systems {
		sys := &s.Systems[i]
		sys.finalize()
		failures += sys.Failures
		for _, t := range sys.Tables {
			s.Staged += t.Staged
			s.Inserted += t.Inserted
			s.Updated += t.Updated
			s.Unchanged += t.Unchanged
			s.Failed += t.Failed
		}
	}
	if s.State == retry.StateFatalAbort {
		return
	}
	if failures > 0 || s.Failed > 0 {
		s.State = retry.StatePartialSuccess
	} else {
		s.State = retry.StateSuccess
	}
}

// reportCap bounds the table and error lists rendered to the console;
// the JSON report always carries everything.
const reportCap = 10

// Log renders the run to the console the way operators read it: one
// headline, per-system counters, and the first few problems in full.
func (s *RunSummary) Log(log *zap.Logger) {
	log.Info("import run finished",
		zap.String("run_id", s.RunID),
		zap.String("state", string(s.State)),
		zap.Bool("dry_run", s.DryRun),
		zap.Int64("elapsed_ms", s.ElapsedMS),
		zap.Int("staged", s.Staged),
		zap.Int("inserted", s.Inserted),
		zap.Int("updated", s.Updated),
		zap.Int("unchanged", s.Unchanged),
		zap.Int("failed", s.Failed))

	for _, sys := range s.Systems {
		log.Info("system summary",
			zap.String("system", sys.System),
			zap.Int("processed", sys.Processed),
			zap.Int("succeeded", sys.Succeeded),
			zap.Int("warnings", sys.Warnings),
			zap.Int("failures", sys.Failures),
			zap.Int("skipped", sys.Skipped),
			zap.Float64("success_rate", sys.SuccessRate))

		if failed := tablesWith(sys.Tables, StatusError); len(failed) > 0 {
			log.Warn("failed tables", zap.String("system", sys.System), zap.Strings("tables", failed))
		}
		if warned := tablesWith(sys.Tables, StatusWarning); len(warned) > 0 {
			log.Warn("tables with warnings", zap.String("system", sys.System), zap.Strings("tables", warned))
		}

		shown := 0
		for _, t := range sys.Tables {
			for _, re := range t.RowErrors {
				if shown == reportCap {
					break
				}
				log.Warn("row error",
					zap.String("table", re.Table),
					zap.String("row", re.RowID),
					zap.String("stage", string(re.Stage)),
					zap.String("category", string(re.Category)),
					zap.String("message", re.Message))
				shown++
			}
		}
	}

	if s.Fatal != "" {
		log.Error("run aborted", zap.String("cause", s.Fatal))
	}
}

func tablesWith(tables []TableMetrics, status Status) []string {
	var out []string
	for _, t := range tables {
		if t.Status == status {
			out = append(out, t.Table)
			if len(out) == reportCap {
				break
			}
		}
	}
	return out
}
