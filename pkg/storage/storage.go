// Package storage records run history: one row per run plus one row per
// per-file outcome, so past runs can be reviewed after the console output is
// gone.
package storage

import (
	"context"
	"errors"

	"github.com/kasuboski/nfosync/pkg/storage/sqlite/schema/gen/model"
)

var ErrNotFound = errors.New("not found in storage")

// Outcome labels for run_outcomes rows.
const (
	OutcomeUpdated     = "updated"
	OutcomeSkipped     = "skipped"
	OutcomeFailed      = "failed"
	OutcomeUnsupported = "unsupported"
)

// RunStorage persists runs and their per-file outcomes.
type RunStorage interface {
	// Init brings the schema up to date.
	Init(ctx context.Context) error
	// CreateRun records the start of a run.
	CreateRun(ctx context.Context, run model.Runs) error
	// FinishRun stamps the end time and final counters of a run.
	FinishRun(ctx context.Context, run model.Runs) error
	// CreateOutcome appends one per-file outcome to a run.
	CreateOutcome(ctx context.Context, outcome model.RunOutcomes) (int64, error)
	// ListRuns returns the most recent runs, newest first.
	ListRuns(ctx context.Context, limit int64) ([]*model.Runs, error)
	// ListOutcomes returns the outcomes recorded for one run.
	ListOutcomes(ctx context.Context, runID string) ([]*model.RunOutcomes, error)
}
