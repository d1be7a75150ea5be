package updater

import (
	"context"
	"fmt"
	"time"

	"github.com/kasuboski/nfosync/pkg/catalog"
	"github.com/kasuboski/nfosync/pkg/logger"
)

// maxTagBatch keeps tag mutations within the service's request size limits.
const maxTagBatch = 5

// Executor applies validated plans against the catalog service.
type Executor struct {
	client      catalog.Client
	allowUnlock bool
	dryRun      bool
	delay       time.Duration
}

func NewExecutor(client catalog.Client, allowUnlock, dryRun bool, delay time.Duration) Executor {
	return Executor{
		client:      client,
		allowUnlock: allowUnlock,
		dryRun:      dryRun,
		delay:       delay,
	}
}

// Execute commits a plan to the entity. It returns the reloaded entity and
// whether a write was applied; in dry-run mode it only logs the intended
// effects and applies nothing.
func (e Executor) Execute(ctx context.Context, entity *catalog.Entity, plan Plan) (*catalog.Entity, bool, error) {
	log := logger.FromCtx(ctx, "title", entity.Title)

	if plan.Empty() {
		return entity, false, nil
	}

	if e.dryRun {
		log.Infow("dry run, planned edits", "count", len(plan.Ops))
		for _, op := range plan.Ops {
			log.Infof("  %s", op)
		}
		return entity, false, nil
	}

	batch := catalog.NewEditBatch()
	for _, op := range plan.Ops {
		if op.Tag {
			e.queueTagEdits(batch, op)
			continue
		}

		// writing a field also sets or clears its lock flag,
		// consistently with the unlock policy
		batch.EditField(op.Field, op.NewValue, e.allowUnlock)
	}

	log.Debugw("committing edits", "ops", len(plan.Ops))
	if err := e.client.ApplyEdits(ctx, entity, batch); err != nil {
		return entity, false, fmt.Errorf("couldn't apply edits: %w", err)
	}

	sleep(ctx, e.delay)

	reloaded, err := e.client.Get(ctx, entity.Key)
	if err != nil {
		return entity, true, fmt.Errorf("couldn't reload entity after edits: %w", err)
	}

	log.Infow("updated entity", "ops", len(plan.Ops))
	return reloaded, true, nil
}

// queueTagEdits turns one TagOp into chunked tag mutations. With unlocking
// allowed the whole collection is replaced; otherwise only missing tags are
// appended and nothing is ever removed.
func (e Executor) queueTagEdits(batch *catalog.EditBatch, op Op) {
	if e.allowUnlock {
		for _, chunk := range chunkTags(op.ExistingTags) {
			batch.EditTags(op.Field, chunk, true, true)
		}
		for _, chunk := range chunkTags(op.NewTags) {
			batch.EditTags(op.Field, chunk, false, true)
		}
		return
	}

	for _, chunk := range chunkTags(missingTags(op.NewTags, op.ExistingTags)) {
		batch.EditTags(op.Field, chunk, false, true)
	}
}

func chunkTags(tags []string) [][]string {
	var chunks [][]string
	for len(tags) > maxTagBatch {
		chunks = append(chunks, tags[:maxTagBatch])
		tags = tags[maxTagBatch:]
	}
	if len(tags) > 0 {
		chunks = append(chunks, tags)
	}
	return chunks
}

// sleep waits the inter-operation delay, a self-imposed rate limit after
// each successful mutating call.
func sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}

	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
