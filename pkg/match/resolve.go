package match

import (
	"context"
	"errors"
	"fmt"

	"github.com/kasuboski/nfosync/pkg/catalog"
	"github.com/kasuboski/nfosync/pkg/logger"
	"github.com/kasuboski/nfosync/pkg/normalize"
)

// ErrQuit is returned by a Chooser when the user ends the whole run.
var ErrQuit = errors.New("selection aborted by user")

// Chooser presents candidates for interactive selection. A nil entity with a
// nil error means the user declined every candidate.
type Chooser interface {
	Choose(ctx context.Context, title string, candidates []*catalog.Entity) (*catalog.Entity, error)
}

// Resolution is the terminal outcome of one resolution call: exactly one
// selected entity, or none with the reason it was skipped.
type Resolution struct {
	Entity *catalog.Entity
	Reason string
}

// Selected reports whether a candidate was chosen.
func (r Resolution) Selected() bool {
	return r.Entity != nil
}

// Resolver turns a title search into zero-or-one catalog entity.
type Resolver struct {
	client     catalog.Client
	chooser    Chooser
	unattended bool
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithChooser enables interactive selection for ambiguous matches.
func WithChooser(c Chooser) ResolverOption {
	return func(r *Resolver) {
		r.chooser = c
		r.unattended = false
	}
}

// NewResolver creates a Resolver. Without a Chooser it runs unattended and
// resolves ambiguity by skipping.
func NewResolver(client catalog.Client, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		client:     client,
		unattended: true,
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Resolve searches the catalog for title and applies the selection policy.
// Only ErrQuit and chooser I/O failures surface as errors; not finding a
// match is a Resolution with a reason, and the run continues.
func (r *Resolver) Resolve(ctx context.Context, title string, kind catalog.MediaKind, parent *catalog.Entity) (Resolution, error) {
	log := logger.FromCtx(ctx)

	searchTitle, year := normalize.ExtractYear(title)

	candidates := r.gatherCandidates(ctx, searchTitle, kind, parent)
	result := Score(searchTitle, candidates, ScoreOptions{
		Year:   year,
		Parent: parent,
		Kind:   kind,
	})

	if len(result.Candidates) == 0 {
		log.Warnw("no candidate found", "title", title)
		return Resolution{Reason: "no candidate found"}, nil
	}

	switch {
	case result.Confident && result.ExcellentCount == 1:
		log.Infow("matched automatically", "title", title, "match", result.BestMatch.Title, "score", result.BestScore)
		return Resolution{Entity: result.BestMatch}, nil

	case result.ExcellentCount > 1:
		if r.unattended {
			log.Warnw("multiple excellent matches, skipping", "title", title, "count", result.ExcellentCount)
			return Resolution{Reason: fmt.Sprintf("%d excellent matches, ambiguous", result.ExcellentCount)}, nil
		}
		return r.choose(ctx, title, result.Entities()[:result.ExcellentCount])

	default:
		if r.unattended {
			log.Warnw("no confident match, skipping", "title", title, "bestScore", result.BestScore)
			return Resolution{Reason: fmt.Sprintf("no confident match (best score %d)", result.BestScore)}, nil
		}

		entities := result.Entities()
		if len(entities) == 1 {
			// A lone uncertain candidate is accepted when a human is
			// already in the loop.
			log.Infow("accepted single candidate", "title", title, "match", entities[0].Title)
			return Resolution{Entity: entities[0]}, nil
		}

		return r.choose(ctx, title, entities)
	}
}

func (r *Resolver) choose(ctx context.Context, title string, candidates []*catalog.Entity) (Resolution, error) {
	entity, err := r.chooser.Choose(ctx, title, candidates)
	if err != nil {
		return Resolution{}, err
	}

	if entity == nil {
		return Resolution{Reason: "user did not select any match"}, nil
	}

	return Resolution{Entity: entity}, nil
}

// gatherCandidates collects entities to score: children of the parent when
// the search is scoped to seasons or episodes, a full catalog search
// otherwise. Scoped collection failures degrade to the full search.
func (r *Resolver) gatherCandidates(ctx context.Context, title string, kind catalog.MediaKind, parent *catalog.Entity) []*catalog.Entity {
	log := logger.FromCtx(ctx)

	if parent != nil {
		var scoped []*catalog.Entity
		var err error

		switch kind {
		case catalog.KindSeason:
			scoped, err = r.client.Children(ctx, parent.Key)
		case catalog.KindEpisode:
			scoped, err = r.episodesOf(ctx, parent)
		}

		if err != nil {
			log.Debugw("scoped candidate collection failed", "title", title, "parent", parent.Title, "error", err)
		}
		if len(scoped) > 0 {
			log.Debugw("using scoped candidates", "title", title, "count", len(scoped))
			return scoped
		}
	}

	candidates, err := r.client.Search(ctx, title)
	if err != nil {
		log.Errorw("catalog search failed", "title", title, "error", err)
		return nil
	}

	return candidates
}

// episodesOf lists all episodes reachable under a show or season.
func (r *Resolver) episodesOf(ctx context.Context, parent *catalog.Entity) ([]*catalog.Entity, error) {
	children, err := r.client.Children(ctx, parent.Key)
	if err != nil {
		return nil, err
	}

	if parent.Kind == catalog.KindSeason {
		return children, nil
	}

	var episodes []*catalog.Entity
	for _, season := range children {
		eps, err := r.client.Children(ctx, season.Key)
		if err != nil {
			continue
		}
		episodes = append(episodes, eps...)
	}

	return episodes, nil
}
