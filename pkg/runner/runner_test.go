package runner

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/kasuboski/nfosync/pkg/catalog"
	"github.com/kasuboski/nfosync/pkg/catalog/mocks"
	"github.com/kasuboski/nfosync/pkg/library"
	"github.com/kasuboski/nfosync/pkg/match"
	"github.com/kasuboski/nfosync/pkg/storage"
	"github.com/kasuboski/nfosync/pkg/storage/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func writeSidecar(t *testing.T, root, rel, doc string) {
	t.Helper()

	p := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte(doc), 0o644))
}

func duneEntity() *catalog.Entity {
	return &catalog.Entity{
		Key:            "/library/metadata/100",
		Title:          "Dune",
		Year:           2021,
		Kind:           catalog.KindMovie,
		LibrarySection: "1",
		Fields: map[string]string{
			"title":   "Dune",
			"summary": "Old plot",
		},
		TagFields: map[string][]string{},
		Locks:     map[string]bool{},
	}
}

func TestRun_DryRun(t *testing.T) {
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	client := mocks.NewMockClient(ctrl)

	root := t.TempDir()
	writeSidecar(t, root, "movies/Dune (2021)/Dune (2021).nfo",
		`<movie><title>Dune</title><plot>New plot</plot></movie>`)

	client.EXPECT().Search(gomock.Any(), gomock.Any()).Return([]*catalog.Entity{duneEntity()}, nil)

	r := New(client, match.NewResolver(client), library.New(root), nil, Options{DryRun: true})
	results, err := r.Run(ctx)
	require.NoError(t, err)

	assert.Equal(t, 1, results.Processed)
	require.Len(t, results.Updated, 1)
	assert.Contains(t, results.Updated[0], "1 edits")
	assert.Empty(t, results.Failed)
}

func TestRun_AppliesEdits(t *testing.T) {
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	client := mocks.NewMockClient(ctrl)

	root := t.TempDir()
	writeSidecar(t, root, "movies/Dune (2021)/Dune (2021).nfo",
		`<movie><title>Dune</title><plot>New plot</plot></movie>`)

	entity := duneEntity()
	client.EXPECT().Search(gomock.Any(), gomock.Any()).Return([]*catalog.Entity{entity}, nil)
	client.EXPECT().ApplyEdits(gomock.Any(), entity, gomock.Any()).Return(nil)
	client.EXPECT().Get(gomock.Any(), entity.Key).Return(duneEntity(), nil)

	r := New(client, match.NewResolver(client), library.New(root), nil, Options{})
	results, err := r.Run(ctx)
	require.NoError(t, err)

	assert.Equal(t, 1, results.Processed)
	require.Len(t, results.Updated, 1)
	assert.Empty(t, results.Failed)
}

func TestRun_SkipsUnmatched(t *testing.T) {
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	client := mocks.NewMockClient(ctrl)

	root := t.TempDir()
	writeSidecar(t, root, "movies/Obscure (1971)/Obscure (1971).nfo",
		`<movie><title>Obscure</title><plot>A plot</plot></movie>`)

	client.EXPECT().Search(gomock.Any(), gomock.Any()).Return(nil, nil)

	r := New(client, match.NewResolver(client), library.New(root), nil, Options{})
	results, err := r.Run(ctx)
	require.NoError(t, err)

	assert.Equal(t, 1, results.Processed)
	assert.Empty(t, results.Updated)
	require.Len(t, results.Skipped, 1)
	assert.Contains(t, results.Skipped[0], "no candidate found")
}

func TestRun_UnresolvedShowSkipsUnit(t *testing.T) {
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	client := mocks.NewMockClient(ctrl)

	root := t.TempDir()
	writeSidecar(t, root, "tv/Unknown Show/Season 01/Unknown Show - s01e01.nfo",
		`<episodedetails><title>Pilot</title></episodedetails>`)

	// one search for the show, none for the episode
	client.EXPECT().Search(gomock.Any(), gomock.Any()).Return(nil, nil)

	r := New(client, match.NewResolver(client), library.New(root), nil, Options{})
	results, err := r.Run(ctx)
	require.NoError(t, err)

	assert.Equal(t, 0, results.Processed)
	require.Len(t, results.Skipped, 1)
	assert.Contains(t, results.Skipped[0], "unit skipped")
}

func TestRun_MalformedSidecar(t *testing.T) {
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	client := mocks.NewMockClient(ctrl)

	root := t.TempDir()
	writeSidecar(t, root, "movies/Bad (2000)/Bad (2000).nfo", "definitely not markup")

	r := New(client, match.NewResolver(client), library.New(root), nil, Options{})
	results, err := r.Run(ctx)
	require.NoError(t, err)

	assert.Equal(t, 1, results.Processed)
	require.Len(t, results.Failed, 1)
	assert.Contains(t, results.Failed[0], "malformed sidecar")
}

func TestRun_NothingToUpdate(t *testing.T) {
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	client := mocks.NewMockClient(ctrl)

	root := t.TempDir()
	writeSidecar(t, root, "movies/Dune (2021)/Dune (2021).nfo",
		`<movie><title>Dune</title><plot>Old plot</plot></movie>`)

	client.EXPECT().Search(gomock.Any(), gomock.Any()).Return([]*catalog.Entity{duneEntity()}, nil)

	r := New(client, match.NewResolver(client), library.New(root), nil, Options{})
	results, err := r.Run(ctx)
	require.NoError(t, err)

	assert.Equal(t, 1, results.Processed)
	assert.Empty(t, results.Updated)
	require.Len(t, results.Skipped, 1)
	assert.Contains(t, results.Skipped[0], "nothing to update")
}

func TestFileMachine(t *testing.T) {
	m := newFileMachine()
	assert.Equal(t, statePending, m.Current())

	require.NoError(t, m.Transition(stateResolved))
	require.NoError(t, m.Transition(statePlanned))
	require.NoError(t, m.Transition(stateUpdated))

	// terminal states refuse further moves
	assert.Error(t, m.Transition(stateSkipped))

	m = newFileMachine()
	assert.Error(t, m.Transition(statePlanned))
	assert.False(t, m.CanTransition(stateUpdated))
}

func TestTransition_InvalidMoveKeepsState(t *testing.T) {
	m := newFileMachine()

	transition(context.Background(), m, stateUpdated)
	assert.Equal(t, statePending, m.Current())

	transition(context.Background(), m, stateResolved)
	assert.Equal(t, stateResolved, m.Current())
}

func TestRun_LockedFieldRecorded(t *testing.T) {
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	client := mocks.NewMockClient(ctrl)

	root := t.TempDir()
	writeSidecar(t, root, "movies/Dune (2021)/Dune (2021).nfo",
		`<movie><title>Dune</title><plot>New plot</plot></movie>`)

	entity := duneEntity()
	entity.Locks["summary"] = true
	client.EXPECT().Search(gomock.Any(), gomock.Any()).Return([]*catalog.Entity{entity}, nil)

	store, err := sqlite.New(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	require.NoError(t, store.Init(ctx))

	r := New(client, match.NewResolver(client), library.New(root), store, Options{})
	results, err := r.Run(ctx)
	require.NoError(t, err)

	require.Len(t, results.Skipped, 2)
	assert.Contains(t, results.Skipped[0], "locked")

	outcomes, err := store.ListOutcomes(ctx, results.RunID)
	require.NoError(t, err)
	require.Len(t, outcomes, 2)
	assert.Equal(t, storage.OutcomeSkipped, outcomes[0].Outcome)
	assert.Contains(t, outcomes[0].Detail, "summary locked")
	assert.Contains(t, outcomes[1].Detail, "nothing to update")
}

func TestRun_PersistsHistory(t *testing.T) {
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	client := mocks.NewMockClient(ctrl)

	root := t.TempDir()
	writeSidecar(t, root, "movies/Dune (2021)/Dune (2021).nfo",
		`<movie><title>Dune</title><plot>New plot</plot></movie>`)

	client.EXPECT().Search(gomock.Any(), gomock.Any()).Return([]*catalog.Entity{duneEntity()}, nil)

	store, err := sqlite.New(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	require.NoError(t, store.Init(ctx))

	r := New(client, match.NewResolver(client), library.New(root), store, Options{DryRun: true})
	results, err := r.Run(ctx)
	require.NoError(t, err)

	runs, err := store.ListRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, results.RunID, runs[0].ID)
	assert.True(t, runs[0].DryRun)
	require.NotNil(t, runs[0].FinishedAt)
	assert.Equal(t, int32(1), runs[0].Processed)
	assert.Equal(t, int32(1), runs[0].Updated)

	outcomes, err := store.ListOutcomes(ctx, results.RunID)
	require.NoError(t, err)
	require.Len(t, outcomes, 1)
	assert.Equal(t, storage.OutcomeUpdated, outcomes[0].Outcome)
	assert.Equal(t, "Dune", outcomes[0].Title)
}
