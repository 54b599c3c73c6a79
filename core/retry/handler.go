package retry

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// State is the terminal state of one wrapped batch operation.
type State string

const (
	// StateSuccess means every item succeeded.
	StateSuccess State = "success"
	// StatePartialSuccess means some rows failed individually but the
	// batch as a whole completed.
	StatePartialSuccess State = "partial_success"
	// StateFatalAbort means the operation could not complete at all.
	StateFatalAbort State = "fatal_abort"
)

// Outcome is the result of a wrapped batch operation.
type Outcome struct {
	State     State
	Succeeded int
	Failed    int
	RowErrors []RowError
	// Fatal is set when State is StateFatalAbort.
	Fatal error
}

// Config controls retry behavior.
type Config struct {
	// MaxAttempts is the total number of attempts for a transient
	// failure, including the first.
	MaxAttempts int `mapstructure:"max_attempts" default:"3"`
	// BackoffMS is the delay before the first retry, in milliseconds.
	// Each further retry doubles it.
	BackoffMS int `mapstructure:"backoff_ms" default:"500"`
}

// Handler wraps batch operations with retry, row fallback and an error
// ledger. A single Handler is shared across one run; its ledger feeds
// the run summary.
type Handler struct {
	cfg   Config
	log   *zap.Logger
	sleep func(time.Duration)

	mu     sync.Mutex
	ledger []RowError
}

// NewHandler creates a Handler. A nil logger disables logging.
func NewHandler(cfg Config, log *zap.Logger) *Handler {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.BackoffMS <= 0 {
		cfg.BackoffMS = 500
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{cfg: cfg, log: log, sleep: time.Sleep}
}

// Do runs op, retrying transient failures with doubling backoff up to
// the configured attempt count. Permanent failures return immediately.
// The error returned after exhausted retries is the last one observed.
func (h *Handler) Do(ctx context.Context, table string, stage Stage, op func(context.Context) error) error {
	delay := time.Duration(h.cfg.BackoffMS) * time.Millisecond
	var err error
	for attempt := 1; attempt <= h.cfg.MaxAttempts; attempt++ {
		err = op(ctx)
		if err == nil {
			return nil
		}
		if !Transient(err) {
			return err
		}
		if attempt == h.cfg.MaxAttempts {
			break
		}
		h.log.Warn("transient failure, retrying",
			zap.String("table", table),
			zap.String("stage", string(stage)),
			zap.Int("attempt", attempt),
			zap.Duration("backoff", delay),
			zap.Error(err))
		h.sleep(delay)
		delay *= 2
	}
	return fmt.Errorf("%s %s: retries exhausted after %d attempts: %w", table, stage, h.cfg.MaxAttempts, err)
}

// Batch attempts a whole-batch operation, and on a permanent batch
// failure re-attempts it one row at a time, recording each row's outcome
// independently. rowID names row i for error reporting. The batch is
// never aborted because individual rows failed; only a connectivity loss
// that survives retries becomes a fatal outcome.
func (h *Handler) Batch(
	ctx context.Context,
	table string,
	stage Stage,
	n int,
	batch func(context.Context) error,
	rowOp func(context.Context, int) error,
	rowID func(int) string,
) Outcome {
	if n == 0 {
		return Outcome{State: StateSuccess}
	}

	err := h.Do(ctx, table, stage, batch)
	if err == nil {
		return Outcome{State: StateSuccess, Succeeded: n}
	}
	if Classify(err) == CategoryConnectivity {
		return Outcome{State: StateFatalAbort, Failed: n, Fatal: err}
	}

	h.log.Warn("batch failed, falling back to row-by-row",
		zap.String("table", table),
		zap.String("stage", string(stage)),
		zap.Error(err))

	out := Outcome{}
	for i := 0; i < n; i++ {
		rowErr := h.Do(ctx, table, stage, func(ctx context.Context) error {
			return rowOp(ctx, i)
		})
		if rowErr == nil {
			out.Succeeded++
			continue
		}
		if Classify(rowErr) == CategoryConnectivity {
			// The target went away mid-fallback; everything not yet
			// written counts as failed.
			out.Failed += n - i
			out.State = StateFatalAbort
			out.Fatal = rowErr
			return out
		}
		re := RowError{
			Table:    table,
			RowID:    rowID(i),
			Stage:    stage,
			Category: Classify(rowErr),
			Message:  rowErr.Error(),
		}
		out.Failed++
		out.RowErrors = append(out.RowErrors, re)
		h.Record(re)
	}

	if out.Failed > 0 {
		out.State = StatePartialSuccess
	} else {
		out.State = StateSuccess
	}
	return out
}

// Record appends a row error to the run ledger.
func (h *Handler) Record(e RowError) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.ledger = append(h.ledger, e)
}

// Ledger returns a copy of all row errors captured so far.
func (h *Handler) Ledger() []RowError {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]RowError, len(h.ledger))
	copy(out, h.ledger)
	return out
}

// Summary aggregates the ledger by stage and category.
func (h *Handler) Summary() map[Stage]map[Category]int {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make(map[Stage]map[Category]int)
	for _, e := range h.ledger {
		if out[e.Stage] == nil {
			out[e.Stage] = make(map[Category]int)
		}
		out[e.Stage][e.Category]++
	}
	return out
}
