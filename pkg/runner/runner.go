// Package runner drives a full reconciliation run: discover sidecar files,
// resolve each one against the catalog, plan and apply edits, and sync
// artwork. Files are processed sequentially; a single file's failure is an
// outcome, not an abort.
package runner

import (
	"context"
	"fmt"
	"path"
	"time"

	"github.com/google/uuid"
	"github.com/kasuboski/nfosync/pkg/catalog"
	fileio "github.com/kasuboski/nfosync/pkg/io"
	"github.com/kasuboski/nfosync/pkg/library"
	"github.com/kasuboski/nfosync/pkg/logger"
	"github.com/kasuboski/nfosync/pkg/machine"
	"github.com/kasuboski/nfosync/pkg/match"
	"github.com/kasuboski/nfosync/pkg/nfo"
	"github.com/kasuboski/nfosync/pkg/storage"
	"github.com/kasuboski/nfosync/pkg/storage/sqlite/schema/gen/model"
	"github.com/kasuboski/nfosync/pkg/updater"
)

// fileState is the lifecycle of one sidecar file inside a run.
type fileState string

const (
	statePending  fileState = "pending"
	stateResolved fileState = "resolved"
	statePlanned  fileState = "planned"
	stateUpdated  fileState = "updated"
	stateSkipped  fileState = "skipped"
	stateFailed   fileState = "failed"
)

func newFileMachine() *machine.StateMachine[fileState] {
	return machine.New(statePending,
		machine.From(statePending).To(stateResolved, stateSkipped, stateFailed),
		machine.From(stateResolved).To(statePlanned, stateSkipped, stateFailed),
		machine.From(statePlanned).To(stateUpdated, stateSkipped, stateFailed),
	)
}

// transition advances a file's lifecycle. A refused transition means the
// pipeline took an impossible path for the state the file is in; that is a
// bug worth surfacing, not hiding.
func transition(ctx context.Context, m *machine.StateMachine[fileState], to fileState) {
	if err := m.Transition(to); err != nil {
		logger.FromCtx(ctx).Errorw("invalid file lifecycle transition", "from", m.Current(), "to", to, "error", err)
	}
}

// Options configure a run.
type Options struct {
	DryRun              bool
	AllowUnlock         bool
	UpdateArtwork       bool
	AlwaysUpdateArtwork bool
	Delay               time.Duration
	ArtworkExtensions   []string
}

// Runner executes reconciliation runs.
type Runner struct {
	client   catalog.Client
	resolver *match.Resolver
	lib      library.Library
	store    storage.RunStorage
	planner  updater.Planner
	executor updater.Executor
	artwork  updater.ArtworkMatcher
	opts     Options
}

// New wires a Runner. store may be nil to disable run history.
func New(client catalog.Client, resolver *match.Resolver, lib library.Library, store storage.RunStorage, opts Options) *Runner {
	files := &fileio.SidecarFileSystem{}

	return &Runner{
		client:   client,
		resolver: resolver,
		lib:      lib,
		store:    store,
		planner:  updater.NewPlanner(opts.AllowUnlock),
		executor: updater.NewExecutor(client, opts.AllowUnlock, opts.DryRun, opts.Delay),
		artwork: updater.NewArtworkMatcher(client, files, updater.ArtworkOptions{
			Enabled:     opts.UpdateArtwork,
			AllowUnlock: opts.AllowUnlock,
			DryRun:      opts.DryRun,
			Delay:       opts.Delay,
			Extensions:  opts.ArtworkExtensions,
		}),
		opts: opts,
	}
}

// Run processes every media unit under the scan root and returns the
// aggregated results. Only a user quit or a discovery failure ends the run
// early; everything else becomes a per-file outcome.
func (r *Runner) Run(ctx context.Context) (*Results, error) {
	log := logger.FromCtx(ctx)

	results := &Results{RunID: uuid.NewString()}
	run := model.Runs{
		ID:        results.RunID,
		StartedAt: time.Now().UTC(),
		ScanPath:  r.lib.Root(),
		DryRun:    r.opts.DryRun,
	}

	if r.store != nil {
		if err := r.store.CreateRun(ctx, run); err != nil {
			log.Warnw("couldn't record run start", "error", err)
		}
	}

	units, err := r.lib.Units(ctx)
	if err != nil {
		return nil, fmt.Errorf("couldn't discover sidecar files: %w", err)
	}

	log.Infow("starting run", "run", results.RunID, "units", len(units), "dryRun", r.opts.DryRun)

	for _, unit := range units {
		if err := r.processUnit(ctx, unit, results); err != nil {
			if err == match.ErrQuit {
				log.Infow("run ended by user")
				break
			}
			return results, err
		}
	}

	if r.store != nil {
		now := time.Now().UTC()
		run.FinishedAt = &now
		run.Processed = int32(results.Processed)
		run.Updated = int32(len(results.Updated))
		run.Skipped = int32(len(results.Skipped))
		run.Failed = int32(len(results.Failed))
		if err := r.store.FinishRun(ctx, run); err != nil {
			log.Warnw("couldn't record run end", "error", err)
		}
	}

	return results, nil
}

// processUnit handles one media unit. For show units the show is resolved
// once up front; failing that skips the whole unit.
func (r *Runner) processUnit(ctx context.Context, unit library.Unit, results *Results) error {
	log := logger.FromCtx(ctx, "unit", unit.Name)
	log.Infow("processing unit", "files", len(unit.Files))

	var show *catalog.Entity
	if unit.Kind == catalog.KindShow {
		res, err := r.resolver.Resolve(ctx, unit.Name, catalog.KindShow, nil)
		if err != nil {
			return err
		}
		if !res.Selected() {
			log.Warnw("couldn't resolve show, skipping unit", "reason", res.Reason)
			results.skipped(fmt.Sprintf("%s: unit skipped, %s", unit.Name, res.Reason))
			r.recordOutcome(ctx, model.RunOutcomes{
				RunID:   results.RunID,
				File:    unit.Path,
				Title:   unit.Name,
				Outcome: storage.OutcomeSkipped,
				Detail:  res.Reason,
			})
			return nil
		}
		show = res.Entity
	}

	for _, file := range unit.Files {
		if err := r.processFile(ctx, file, show, results); err != nil {
			return err
		}
	}

	return nil
}

// processFile runs the classify, resolve, plan, execute, artwork pipeline
// for one sidecar file.
func (r *Runner) processFile(ctx context.Context, file string, show *catalog.Entity, results *Results) error {
	log := logger.FromCtx(ctx, "file", file)
	results.Processed++
	m := newFileMachine()

	rec, err := nfo.ParseFile(r.lib.Abs(file))
	if err != nil {
		log.Errorw("couldn't parse sidecar", "error", err)
		transition(ctx, m, stateFailed)
		results.failed(fmt.Sprintf("%s: malformed sidecar", file))
		r.recordOutcome(ctx, model.RunOutcomes{
			RunID: results.RunID, File: file, Outcome: storage.OutcomeFailed, Detail: "malformed sidecar",
		})
		return nil
	}

	title := rec.Title
	if title == "" {
		title = path.Base(file)
	}

	if rec.Kind == catalog.KindUnknown {
		log.Warnw("unrecognized document type, skipping")
		transition(ctx, m, stateSkipped)
		results.skipped(fmt.Sprintf("%s: unrecognized document type", file))
		r.recordOutcome(ctx, model.RunOutcomes{
			RunID: results.RunID, File: file, Title: title, Outcome: storage.OutcomeSkipped, Detail: "unrecognized document type",
		})
		return nil
	}

	var res match.Resolution
	if show != nil {
		res, err = r.resolver.ResolveInShow(ctx, rec, show)
	} else {
		if rec.Title == "" {
			transition(ctx, m, stateFailed)
			results.failed(fmt.Sprintf("%s: sidecar has no title", file))
			r.recordOutcome(ctx, model.RunOutcomes{
				RunID: results.RunID, File: file, Outcome: storage.OutcomeFailed, Detail: "sidecar has no title",
			})
			return nil
		}
		res, err = r.resolver.Resolve(ctx, rec.Title, rec.Kind, nil)
	}
	if err != nil {
		// user quit or chooser failure ends the run
		return err
	}
	if !res.Selected() {
		transition(ctx, m, stateSkipped)
		results.skipped(fmt.Sprintf("%s: %s", title, res.Reason))
		r.recordOutcome(ctx, model.RunOutcomes{
			RunID: results.RunID, File: file, Title: title, Outcome: storage.OutcomeSkipped, Detail: res.Reason,
		})
		return nil
	}

	transition(ctx, m, stateResolved)
	entity := res.Entity
	ctx = logger.WithCtx(ctx, logger.FromCtx(ctx, "title", entity.Title))

	plan := r.planner.Plan(ctx, rec, entity)
	transition(ctx, m, statePlanned)

	for _, field := range plan.Unsupported {
		results.unsupported(fmt.Sprintf("%s: field %s not exposed for %s", title, field, entity.Kind))
		r.recordOutcome(ctx, model.RunOutcomes{
			RunID: results.RunID, File: file, Title: title, Outcome: storage.OutcomeUnsupported,
			Detail: fmt.Sprintf("field %s not exposed for %s", field, entity.Kind),
		})
	}
	for _, field := range plan.PolicySkips {
		results.skipped(fmt.Sprintf("%s: field %s locked, unlocking disallowed", title, field))
		r.recordOutcome(ctx, model.RunOutcomes{
			RunID: results.RunID, File: file, Title: title, Outcome: storage.OutcomeSkipped,
			Detail: fmt.Sprintf("field %s locked, unlocking disallowed", field),
		})
	}

	entity, applied, err := r.executor.Execute(ctx, entity, plan)
	if err != nil {
		if !applied {
			log.Errorw("couldn't apply edits", "error", err)
			transition(ctx, m, stateFailed)
			results.failed(fmt.Sprintf("%s: %v", title, err))
			r.recordOutcome(ctx, model.RunOutcomes{
				RunID: results.RunID, File: file, Title: title, Outcome: storage.OutcomeFailed, Detail: err.Error(),
			})
			return nil
		}
		// edits landed but the reload didn't; stale attributes only
		log.Warnw("reload after update failed", "error", err)
	}

	var art updater.ArtworkResult
	if !plan.Empty() || r.opts.AlwaysUpdateArtwork {
		art = r.artwork.Sync(ctx, r.lib.Abs(file), entity)
	}
	for _, s := range art.Skipped {
		results.skipped(s)
	}
	for _, f := range art.Failed {
		results.failed(f)
	}

	switch {
	case applied || (r.opts.DryRun && !plan.Empty()):
		transition(ctx, m, stateUpdated)
		results.updated(fmt.Sprintf("%s (%d edits)", title, len(plan.Ops)))
		r.recordOutcome(ctx, model.RunOutcomes{
			RunID: results.RunID, File: file, Title: title, Outcome: storage.OutcomeUpdated,
			Detail: fmt.Sprintf("%d edits", len(plan.Ops)),
		})
	case len(art.Uploaded) > 0:
		transition(ctx, m, stateUpdated)
		results.updated(fmt.Sprintf("%s (artwork only)", title))
		r.recordOutcome(ctx, model.RunOutcomes{
			RunID: results.RunID, File: file, Title: title, Outcome: storage.OutcomeUpdated, Detail: "artwork only",
		})
	default:
		transition(ctx, m, stateSkipped)
		results.skipped(fmt.Sprintf("%s: nothing to update", title))
		r.recordOutcome(ctx, model.RunOutcomes{
			RunID: results.RunID, File: file, Title: title, Outcome: storage.OutcomeSkipped, Detail: "nothing to update",
		})
	}

	return nil
}

// recordOutcome persists one outcome row, best effort.
func (r *Runner) recordOutcome(ctx context.Context, outcome model.RunOutcomes) {
	if r.store == nil {
		return
	}

	if _, err := r.store.CreateOutcome(ctx, outcome); err != nil {
		logger.FromCtx(ctx).Warnw("couldn't record outcome", "file", outcome.File, "error", err)
	}
}
