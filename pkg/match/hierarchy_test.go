package match

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/kasuboski/nfosync/pkg/catalog"
	"github.com/kasuboski/nfosync/pkg/catalog/mocks"
	"github.com/kasuboski/nfosync/pkg/nfo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func parseRecord(t *testing.T, doc string) *nfo.Record {
	t.Helper()
	rec, err := nfo.Parse(strings.NewReader(doc))
	require.NoError(t, err)
	return rec
}

func TestResolveInShow_ShowReusesParent(t *testing.T) {
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	client := mocks.NewMockClient(ctrl)

	show := &catalog.Entity{Key: "10", Title: "Severance", Kind: catalog.KindShow}
	rec := parseRecord(t, `<tvshow><title>Severance</title></tvshow>`)

	r := NewResolver(client)
	res, err := r.ResolveInShow(ctx, rec, show)
	require.NoError(t, err)
	assert.Equal(t, show, res.Entity)
}

func TestResolveInShow_SeasonDirectLookup(t *testing.T) {
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	client := mocks.NewMockClient(ctrl)

	show := &catalog.Entity{Key: "10", Title: "Severance", Kind: catalog.KindShow}
	season := &catalog.Entity{Key: "11", Title: "Season 2", Kind: catalog.KindSeason, Index: 2}
	client.EXPECT().Child(ctx, "10", 2).Return(season, nil)

	rec := parseRecord(t, `<season><title>Season 2</title><season>2</season></season>`)

	r := NewResolver(client)
	res, err := r.ResolveInShow(ctx, rec, show)
	require.NoError(t, err)
	assert.Equal(t, season, res.Entity)
}

func TestResolveInShow_SeasonWithoutNumberFallsBack(t *testing.T) {
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	client := mocks.NewMockClient(ctrl)

	show := &catalog.Entity{Key: "10", Title: "Severance", Kind: catalog.KindShow}
	client.EXPECT().Children(ctx, "10").Return([]*catalog.Entity{
		{Key: "11", Title: "Season 2", Kind: catalog.KindSeason, ParentKey: "10"},
	}, nil)

	rec := parseRecord(t, `<season><title>Season 2</title></season>`)

	r := NewResolver(client)
	res, err := r.ResolveInShow(ctx, rec, show)
	require.NoError(t, err)
	require.True(t, res.Selected())
	assert.Equal(t, "11", res.Entity.Key)
}

func TestResolveInShow_EpisodeDirectLookup(t *testing.T) {
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	client := mocks.NewMockClient(ctrl)

	show := &catalog.Entity{Key: "10", Title: "Severance", Kind: catalog.KindShow}
	season := &catalog.Entity{Key: "11", Kind: catalog.KindSeason, Index: 1}
	episode := &catalog.Entity{Key: "12", Title: "Half Loop", Kind: catalog.KindEpisode, Index: 2}

	client.EXPECT().Child(ctx, "10", 1).Return(season, nil)
	client.EXPECT().Child(ctx, "11", 2).Return(episode, nil)

	rec := parseRecord(t, `<episodedetails><title>Half Loop</title><season>1</season><episode>2</episode></episodedetails>`)

	r := NewResolver(client)
	res, err := r.ResolveInShow(ctx, rec, show)
	require.NoError(t, err)
	assert.Equal(t, episode, res.Entity)
}

func TestResolveInShow_EpisodeLinearScanFallback(t *testing.T) {
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	client := mocks.NewMockClient(ctrl)

	show := &catalog.Entity{Key: "10", Title: "Severance", Kind: catalog.KindShow}
	season := &catalog.Entity{Key: "11", Kind: catalog.KindSeason, Index: 1}
	episode := &catalog.Entity{Key: "13", Title: "Half Loop", Kind: catalog.KindEpisode, Index: 2}

	client.EXPECT().Child(ctx, "10", 1).Return(season, nil)
	client.EXPECT().Child(ctx, "11", 2).Return(nil, catalog.ErrNotFound)
	client.EXPECT().Children(ctx, "11").Return([]*catalog.Entity{
		{Key: "12", Title: "Good News About Hell", Kind: catalog.KindEpisode, Index: 1},
		episode,
	}, nil)

	rec := parseRecord(t, `<episodedetails><title>Half Loop</title><season>1</season><episode>2</episode></episodedetails>`)

	r := NewResolver(client)
	res, err := r.ResolveInShow(ctx, rec, show)
	require.NoError(t, err)
	assert.Equal(t, episode, res.Entity)
}

func TestResolveInShow_EpisodeTotalFailureFallsBackToSearch(t *testing.T) {
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	client := mocks.NewMockClient(ctrl)

	show := &catalog.Entity{Key: "10", Title: "Severance", Kind: catalog.KindShow}
	boom := errors.New("expected testing error")

	client.EXPECT().Child(ctx, "10", 1).Return(nil, boom)
	// scoped episode gathering inside the title-based fallback
	client.EXPECT().Children(ctx, "10").Return([]*catalog.Entity{
		{Key: "11", Kind: catalog.KindSeason, Index: 1},
	}, nil)
	client.EXPECT().Children(ctx, "11").Return([]*catalog.Entity{
		{Key: "12", Title: "Half Loop", Kind: catalog.KindEpisode, Index: 2, GrandparentKey: "10"},
	}, nil)

	rec := parseRecord(t, `<episodedetails><title>Half Loop</title><season>1</season><episode>2</episode></episodedetails>`)

	r := NewResolver(client)
	res, err := r.ResolveInShow(ctx, rec, show)
	require.NoError(t, err)
	require.True(t, res.Selected())
	assert.Equal(t, "12", res.Entity.Key)
}
