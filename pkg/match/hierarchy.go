package match

import (
	"context"

	"github.com/kasuboski/nfosync/pkg/catalog"
	"github.com/kasuboski/nfosync/pkg/logger"
	"github.com/kasuboski/nfosync/pkg/nfo"
)

// ResolveInShow resolves a sidecar record whose parent already resolved to a
// show. Seasons and episodes are addressed directly by number first; every
// failed tier degrades to the next, ending at title-based resolution scoped
// to the show.
func (r *Resolver) ResolveInShow(ctx context.Context, rec *nfo.Record, show *catalog.Entity) (Resolution, error) {
	log := logger.FromCtx(ctx)

	switch rec.Kind {
	case catalog.KindShow:
		return Resolution{Entity: show}, nil

	case catalog.KindSeason:
		seasonNum, ok := rec.SeasonNumber()
		if !ok {
			break
		}

		log.Infow("looking up season directly", "show", show.Title, "season", seasonNum)
		season, err := r.client.Child(ctx, show.Key, seasonNum)
		if err != nil {
			log.Warnw("direct season lookup failed, falling back to search", "show", show.Title, "season", seasonNum, "error", err)
			break
		}
		return Resolution{Entity: season}, nil

	case catalog.KindEpisode:
		seasonNum, okS := rec.SeasonNumber()
		episodeNum, okE := rec.EpisodeNumber()
		if !okS || !okE {
			break
		}

		log.Infow("looking up episode directly", "show", show.Title, "season", seasonNum, "episode", episodeNum)
		if episode := r.findEpisode(ctx, show, seasonNum, episodeNum); episode != nil {
			return Resolution{Entity: episode}, nil
		}

		log.Warnw("direct episode lookup failed, falling back to search", "show", show.Title, "season", seasonNum, "episode", episodeNum)
	}

	return r.Resolve(ctx, rec.Title, rec.Kind, show)
}

// findEpisode addresses an episode by season and episode number, scanning
// the season's episode list when index addressing fails.
func (r *Resolver) findEpisode(ctx context.Context, show *catalog.Entity, seasonNum, episodeNum int) *catalog.Entity {
	log := logger.FromCtx(ctx)

	season, err := r.client.Child(ctx, show.Key, seasonNum)
	if err != nil {
		log.Debugw("season lookup failed", "show", show.Title, "season", seasonNum, "error", err)
		return nil
	}

	episode, err := r.client.Child(ctx, season.Key, episodeNum)
	if err == nil {
		return episode
	}
	log.Debugw("episode index lookup failed, scanning season", "show", show.Title, "season", seasonNum, "episode", episodeNum, "error", err)

	episodes, err := r.client.Children(ctx, season.Key)
	if err != nil {
		log.Debugw("season episode listing failed", "show", show.Title, "season", seasonNum, "error", err)
		return nil
	}

	for _, ep := range episodes {
		if ep.Index == episodeNum {
			return ep
		}
	}

	return nil
}
