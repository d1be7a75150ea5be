package cmd

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/kasuboski/nfosync/pkg/catalog"
	"github.com/kasuboski/nfosync/pkg/match"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func promptCandidates() []*catalog.Entity {
	return []*catalog.Entity{
		{Key: "/library/metadata/1", Title: "Dune", Year: 1984, Kind: catalog.KindMovie},
		{Key: "/library/metadata/2", Title: "Dune", Year: 2021, Kind: catalog.KindMovie},
	}
}

func TestPrompterChoose(t *testing.T) {
	ctx := context.Background()

	t.Run("selects by number", func(t *testing.T) {
		var out bytes.Buffer
		p := newPrompter(strings.NewReader("2\n"), &out)

		entity, err := p.Choose(ctx, "Dune", promptCandidates())
		require.NoError(t, err)
		require.NotNil(t, entity)
		assert.Equal(t, "/library/metadata/2", entity.Key)
		assert.Contains(t, out.String(), "Dune (1984) [movie]")
		assert.Contains(t, out.String(), "Dune (2021) [movie]")
	})

	t.Run("skip", func(t *testing.T) {
		var out bytes.Buffer
		p := newPrompter(strings.NewReader("s\n"), &out)

		entity, err := p.Choose(ctx, "Dune", promptCandidates())
		require.NoError(t, err)
		assert.Nil(t, entity)
	})

	t.Run("empty line skips", func(t *testing.T) {
		var out bytes.Buffer
		p := newPrompter(strings.NewReader("\n"), &out)

		entity, err := p.Choose(ctx, "Dune", promptCandidates())
		require.NoError(t, err)
		assert.Nil(t, entity)
	})

	t.Run("quit", func(t *testing.T) {
		var out bytes.Buffer
		p := newPrompter(strings.NewReader("q\n"), &out)

		_, err := p.Choose(ctx, "Dune", promptCandidates())
		assert.ErrorIs(t, err, match.ErrQuit)
	})

	t.Run("retries invalid input", func(t *testing.T) {
		var out bytes.Buffer
		p := newPrompter(strings.NewReader("nope\n7\n1\n"), &out)

		entity, err := p.Choose(ctx, "Dune", promptCandidates())
		require.NoError(t, err)
		require.NotNil(t, entity)
		assert.Equal(t, "/library/metadata/1", entity.Key)
		assert.Contains(t, out.String(), "not a valid selection")
	})

	t.Run("eof is an error", func(t *testing.T) {
		var out bytes.Buffer
		p := newPrompter(strings.NewReader(""), &out)

		_, err := p.Choose(ctx, "Dune", promptCandidates())
		assert.Error(t, err)
	})
}

func TestDescribe(t *testing.T) {
	episode := &catalog.Entity{
		Title:            "Pilot",
		ParentTitle:      "Season 1",
		GrandparentTitle: "Severance",
		Kind:             catalog.KindEpisode,
	}
	assert.Equal(t, "Severance / Season 1 / Pilot [episode]", describe(episode))

	season := &catalog.Entity{
		Title:       "Season 1",
		ParentTitle: "Severance",
		Kind:        catalog.KindSeason,
	}
	assert.Equal(t, "Severance / Season 1 [season]", describe(season))
}
