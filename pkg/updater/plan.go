// Package updater plans and executes the minimal set of mutations that
// brings a catalog entity in line with a parsed sidecar record.
package updater

import (
	"context"
	"fmt"
	"strings"

	"github.com/kasuboski/nfosync/pkg/catalog"
	"github.com/kasuboski/nfosync/pkg/logger"
	"github.com/kasuboski/nfosync/pkg/nfo"
)

// tagSeparators is the class of characters a combined tag string is split on.
const tagSeparators = ",/|;"

// Op is one planned mutation: a scalar field edit or a tag-set
// reconciliation, depending on Tag.
type Op struct {
	Field string
	Tag   bool

	NewValue string
	OldValue string

	NewTags      []string
	ExistingTags []string
}

// Plan is the validated, ordered list of mutations for one entity, together
// with everything that was deliberately left out of it.
type Plan struct {
	Ops []Op
	// PolicySkips are fields left alone because they are locked and
	// unlocking is disallowed.
	PolicySkips []string
	// Unsupported are planned ops dropped because this entity kind does
	// not expose the target field.
	Unsupported []string
}

// Empty reports whether the plan requires no mutations.
func (p Plan) Empty() bool {
	return len(p.Ops) == 0
}

// Planner computes update plans.
type Planner struct {
	allowUnlock bool
}

func NewPlanner(allowUnlock bool) Planner {
	return Planner{allowUnlock: allowUnlock}
}

// Plan diffs a sidecar record against an entity's current attributes. Empty
// record values are no-ops, unchanged scalars are skipped, locked fields are
// skipped when unlocking is disallowed, and a validation pass drops ops the
// entity kind cannot support.
func (p Planner) Plan(ctx context.Context, rec *nfo.Record, entity *catalog.Entity) Plan {
	log := logger.FromCtx(ctx, "title", entity.Title, "kind", entity.Kind)

	var plan Plan
	planned := make(map[string]struct{})

	for _, mapping := range supportedFields {
		value, ok := rec.Fields[mapping.Logical]
		if !ok || value.Empty() {
			continue
		}

		if _, done := planned[mapping.Remote]; done {
			log.Debugw("field already planned through an alias", "field", mapping.Logical)
			continue
		}

		if mapping.Tag {
			op, ok := p.planTags(ctx, mapping.Remote, value, entity)
			if !ok {
				continue
			}
			plan.Ops = append(plan.Ops, op)
			planned[mapping.Remote] = struct{}{}
			continue
		}

		newValue := strings.TrimSpace(value.Scalars[0])
		if newValue == "" {
			continue
		}

		current, _ := entity.Field(mapping.Remote)
		current = strings.TrimSpace(current)
		if newValue == current {
			log.Debugw("field unchanged", "field", mapping.Remote)
			continue
		}

		if entity.FieldLock(mapping.Remote) == catalog.LockLocked && !p.allowUnlock {
			log.Debugw("field locked and unlocking disallowed", "field", mapping.Remote)
			plan.PolicySkips = append(plan.PolicySkips, mapping.Remote)
			continue
		}

		plan.Ops = append(plan.Ops, Op{
			Field:    mapping.Remote,
			NewValue: newValue,
			OldValue: current,
		})
		planned[mapping.Remote] = struct{}{}
	}

	return p.validate(ctx, plan, entity)
}

// planTags builds a tag reconciliation op. It returns false when the field
// resolves to nothing to apply, which keeps repeated runs idempotent.
func (p Planner) planTags(ctx context.Context, field string, value nfo.Value, entity *catalog.Entity) (Op, bool) {
	log := logger.FromCtx(ctx, "title", entity.Title, "field", field)

	var raw []string
	for _, s := range value.Scalars {
		raw = append(raw, splitTags(s)...)
	}
	for _, sub := range value.Subs {
		name := sub["tag"]
		if name == "" {
			name = sub["name"]
		}
		if name != "" {
			raw = append(raw, name)
		}
	}

	newTags := make([]string, 0, len(raw))
	seen := make(map[string]struct{}, len(raw))
	for _, tag := range raw {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		// a token still carrying a separator was never split apart;
		// dropping it beats guessing at its pieces
		if strings.ContainsAny(tag, tagSeparators) {
			log.Debugw("dropping combined tag", "tag", tag)
			continue
		}
		lowered := strings.ToLower(tag)
		if _, ok := seen[lowered]; ok {
			continue
		}
		seen[lowered] = struct{}{}
		newTags = append(newTags, tag)
	}

	if len(newTags) == 0 {
		return Op{}, false
	}

	existing := normalizeTags(entity.TagFields[field])

	if p.allowUnlock {
		if equalTagSets(newTags, existing) {
			log.Debugw("tag set already matches")
			return Op{}, false
		}
	} else if len(missingTags(newTags, existing)) == 0 {
		log.Debugw("no new tags to append")
		return Op{}, false
	}

	return Op{
		Field:        field,
		Tag:          true,
		NewTags:      newTags,
		ExistingTags: existing,
	}, true
}

// validate drops ops this entity kind cannot carry, recording each drop as
// a distinct unsupported-field outcome.
func (p Planner) validate(ctx context.Context, plan Plan, entity *catalog.Entity) Plan {
	log := logger.FromCtx(ctx, "title", entity.Title, "kind", entity.Kind)
	caps := catalog.KindCapabilities(entity.Kind)

	validated := plan.Ops[:0:0]
	for _, op := range plan.Ops {
		supported := caps.SupportsField(op.Field)
		if op.Tag {
			supported = caps.SupportsTags(op.Field)
		}

		if !supported {
			log.Debugw("field not exposed by this entity type", "field", op.Field)
			plan.Unsupported = append(plan.Unsupported, op.Field)
			continue
		}

		validated = append(validated, op)
	}

	plan.Ops = validated
	return plan
}

// splitTags breaks a combined tag string on the separator class.
func splitTags(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return strings.ContainsRune(tagSeparators, r)
	})
}

// normalizeTags trims and case-insensitively dedupes while preserving
// first-seen order and casing.
func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		lowered := strings.ToLower(t)
		if _, ok := seen[lowered]; ok {
			continue
		}
		seen[lowered] = struct{}{}
		out = append(out, t)
	}
	return out
}

// equalTagSets compares two ordered tag lists case-insensitively.
func equalTagSets(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !strings.EqualFold(a[i], b[i]) {
			return false
		}
	}
	return true
}

// missingTags returns the tags in want that are absent from have,
// case-insensitively.
func missingTags(want, have []string) []string {
	existing := make(map[string]struct{}, len(have))
	for _, t := range have {
		existing[strings.ToLower(t)] = struct{}{}
	}

	var missing []string
	for _, t := range want {
		if _, ok := existing[strings.ToLower(t)]; !ok {
			missing = append(missing, t)
		}
	}
	return missing
}

// String renders an op for dry-run logging.
func (o Op) String() string {
	if o.Tag {
		return fmt.Sprintf("tags %s: new=%v existing=%v", o.Field, o.NewTags, o.ExistingTags)
	}
	return fmt.Sprintf("field %s: %q -> %q", o.Field, o.OldValue, o.NewValue)
}
