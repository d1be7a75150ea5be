// Package match resolves ambiguous local titles to catalog entities.
package match

import (
	"sort"
	"strings"

	"github.com/kasuboski/nfosync/pkg/catalog"
	"github.com/kasuboski/nfosync/pkg/normalize"
)

// ConfidenceThreshold is the minimum score treated as an excellent match.
const ConfidenceThreshold = 99

// noiseKeywords mark extras that should never outrank the main feature.
var noiseKeywords = []string{"sample", "trailer", "teaser", "promo", "deleted scene", "behind the scenes"}

// ScoredCandidate pairs a candidate with its match score (0-100).
type ScoredCandidate struct {
	Score     int
	Candidate *catalog.Entity
}

// Result is a ranked match list with a confidence verdict.
type Result struct {
	Candidates     []ScoredCandidate
	BestMatch      *catalog.Entity
	BestScore      int
	Confident      bool
	ExcellentCount int
}

// Entities returns the ranked candidates without their scores.
func (r Result) Entities() []*catalog.Entity {
	out := make([]*catalog.Entity, 0, len(r.Candidates))
	for _, c := range r.Candidates {
		out = append(out, c.Candidate)
	}
	return out
}

// ScoreOptions carry the optional search context.
type ScoreOptions struct {
	// Year extracted from the search title, 0 when unknown.
	Year int
	// Parent scopes the search to children of a resolved entity.
	Parent *catalog.Entity
	// Kind excludes candidates of a different media kind when set.
	Kind catalog.MediaKind
}

// Score ranks candidates against a search title.
//
// Exact normalized title matches score 99, or 100 when the year also
// matches. A candidate merely containing the search title scores 20, plus 5
// when it starts with it. Noise keywords knock 50 off (floored at 1), and
// candidates that are children of the supplied parent gain 30. Ties keep
// their original discovery order.
func Score(searchTitle string, candidates []*catalog.Entity, opts ScoreOptions) Result {
	searchTitle = strings.TrimSpace(searchTitle)
	normSearch := normalize.Title(searchTitle)
	if normSearch == "" {
		return Result{}
	}

	// The parent itself may be the thing being searched for; no need to
	// score anything else when it is.
	if parent := opts.Parent; parent != nil {
		if normalize.Title(parent.Title) == normSearch && (opts.Year == 0 || parent.Year == opts.Year) {
			return Result{
				Candidates:     []ScoredCandidate{{Score: 100, Candidate: parent}},
				BestMatch:      parent,
				BestScore:      100,
				Confident:      true,
				ExcellentCount: 1,
			}
		}
	}

	scored := make([]ScoredCandidate, 0, len(candidates))
	for _, cand := range candidates {
		if opts.Kind != "" && opts.Kind != catalog.KindUnknown && cand.Kind != "" && cand.Kind != opts.Kind {
			continue
		}

		normCand := normalize.Title(cand.Title)

		score := 0
		switch {
		case normCand == normSearch:
			score = 99
			if opts.Year != 0 && cand.Year == opts.Year {
				score = 100
			}
		case strings.Contains(normCand, normSearch):
			score = 20
			if strings.HasPrefix(strings.ToLower(cand.Title), strings.ToLower(searchTitle)) {
				score += 5
			}
		}

		lowerCand := strings.ToLower(cand.Title)
		for _, k := range noiseKeywords {
			if strings.Contains(lowerCand, k) {
				score = max(score-50, 1)
				break
			}
		}

		if opts.Parent != nil && isChildOf(cand, opts.Parent) {
			score += 30
		}

		scored = append(scored, ScoredCandidate{Score: max(score, 0), Candidate: cand})
	}

	if len(scored) == 0 {
		return Result{}
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	excellent := 0
	for _, s := range scored {
		if s.Score >= ConfidenceThreshold {
			excellent++
		}
	}

	best := scored[0]
	return Result{
		Candidates:     scored,
		BestMatch:      best.Candidate,
		BestScore:      best.Score,
		Confident:      best.Score >= ConfidenceThreshold,
		ExcellentCount: excellent,
	}
}

// isChildOf reports whether the candidate structurally belongs to parent,
// either by key reference or by normalized title equality.
func isChildOf(cand, parent *catalog.Entity) bool {
	if parent.Key != "" {
		if cand.ParentKey == parent.Key || cand.GrandparentKey == parent.Key {
			return true
		}
	}

	parentTitle := normalize.Title(parent.Title)
	if parentTitle == "" {
		return false
	}

	if cand.ParentTitle != "" && normalize.Title(cand.ParentTitle) == parentTitle {
		return true
	}
	if cand.GrandparentTitle != "" && normalize.Title(cand.GrandparentTitle) == parentTitle {
		return true
	}

	return false
}
