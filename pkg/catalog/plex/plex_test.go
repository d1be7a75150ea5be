package plex

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"testing"

	"github.com/kasuboski/nfosync/pkg/catalog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	c, err := New(server.URL, "test-token")
	require.NoError(t, err)
	return c
}

func TestNew_RejectsBadURL(t *testing.T) {
	_, err := New("not a url", "token")
	assert.Error(t, err)

	_, err = New("", "token")
	assert.Error(t, err)
}

func TestPing(t *testing.T) {
	t.Run("healthy server", func(t *testing.T) {
		c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "test-token", r.URL.Query().Get("X-Plex-Token"))
			w.Write([]byte(`<MediaContainer machineIdentifier="abc123" friendlyName="plex"/>`))
		}))

		require.NoError(t, c.Ping(context.Background()))
	})

	t.Run("unauthorized", func(t *testing.T) {
		c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		}))

		assert.Error(t, c.Ping(context.Background()))
	})

	t.Run("no identity in answer", func(t *testing.T) {
		c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`<MediaContainer size="0"/>`))
		}))

		assert.Error(t, c.Ping(context.Background()))
	})
}

func TestSearch(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "matrix", r.URL.Query().Get("query"))
		w.Write([]byte(`<MediaContainer size="3">
  <Video ratingKey="101" type="movie" title="The Matrix" year="1999" librarySectionID="1" studio="Warner Bros.">
    <Genre tag="Action"/>
    <Genre tag="Sci-Fi"/>
    <Field name="summary" locked="1"/>
  </Video>
  <Directory ratingKey="202" type="show" title="The Matrix Chronicles" year="2003" librarySectionID="2"/>
  <Track ratingKey="303" type="track" title="Matrix Theme"/>
</MediaContainer>`))
	}))

	found, err := c.Search(context.Background(), "matrix")
	require.NoError(t, err)
	require.Len(t, found, 2)

	movie := found[0]
	assert.Equal(t, "101", movie.Key)
	assert.Equal(t, catalog.KindMovie, movie.Kind)
	assert.Equal(t, 1999, movie.Year)
	assert.Equal(t, "1", movie.LibrarySection)
	assert.Equal(t, "Warner Bros.", movie.Fields["studio"])
	assert.Equal(t, "1999", movie.Fields["year"])
	assert.Equal(t, []string{"Action", "Sci-Fi"}, movie.TagFields["genres"])
	assert.Equal(t, catalog.LockLocked, movie.FieldLock("summary"))
	assert.Equal(t, catalog.LockUnknown, movie.FieldLock("title"))

	show := found[1]
	assert.Equal(t, catalog.KindShow, show.Kind)
}

func TestGet(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/library/metadata/101", r.URL.Path)
			w.Write([]byte(`<MediaContainer size="1">
  <Video ratingKey="101" type="movie" title="Dune" year="2021" rating="8.1" contentRating="PG-13" originallyAvailableAt="2021-10-22" librarySectionID="1">
    <Director tag="Denis Villeneuve"/>
    <Writer tag="Jon Spaihts"/>
    <Role tag="Timothée Chalamet"/>
    <Country tag="United States of America"/>
  </Video>
</MediaContainer>`))
		}))

		entity, err := c.Get(context.Background(), "101")
		require.NoError(t, err)
		assert.Equal(t, "Dune", entity.Title)
		assert.Equal(t, "8.1", entity.Fields["rating"])
		assert.Equal(t, "PG-13", entity.Fields["contentRating"])
		assert.Equal(t, "2021-10-22", entity.Fields["originallyAvailableAt"])
		assert.Equal(t, []string{"Denis Villeneuve"}, entity.TagFields["directors"])
		assert.Equal(t, []string{"Jon Spaihts"}, entity.TagFields["writers"])
		assert.Equal(t, []string{"Timothée Chalamet"}, entity.TagFields["actors"])
		assert.Equal(t, []string{"United States of America"}, entity.TagFields["countries"])
	})

	t.Run("missing key", func(t *testing.T) {
		c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}))

		_, err := c.Get(context.Background(), "999")
		assert.ErrorIs(t, err, catalog.ErrNotFound)
	})

	t.Run("empty container", func(t *testing.T) {
		c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`<MediaContainer size="0"/>`))
		}))

		_, err := c.Get(context.Background(), "999")
		assert.ErrorIs(t, err, catalog.ErrNotFound)
	})
}

func TestChildren_CachesListing(t *testing.T) {
	calls := 0
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		assert.Equal(t, "/library/metadata/202/children", r.URL.Path)
		w.Write([]byte(`<MediaContainer size="3">
  <Directory title="All episodes"/>
  <Directory ratingKey="301" type="season" title="Season 1" index="1" parentRatingKey="202"/>
  <Directory ratingKey="302" type="season" title="Season 2" index="2" parentRatingKey="202"/>
</MediaContainer>`))
	}))

	children, err := c.Children(context.Background(), "202")
	require.NoError(t, err)
	require.Len(t, children, 2)
	assert.Equal(t, "301", children[0].Key)
	assert.Equal(t, 1, children[0].Index)

	_, err = c.Children(context.Background(), "202")
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestChild(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<MediaContainer size="2">
  <Video ratingKey="401" type="episode" title="Pilot" index="1" parentRatingKey="301"/>
  <Video ratingKey="402" type="episode" title="Second" index="2" parentRatingKey="301"/>
</MediaContainer>`))
	}))

	ep, err := c.Child(context.Background(), "301", 2)
	require.NoError(t, err)
	assert.Equal(t, "402", ep.Key)

	_, err = c.Child(context.Background(), "301", 9)
	assert.ErrorIs(t, err, catalog.ErrNotFound)
}

func TestApplyEdits(t *testing.T) {
	entity := &catalog.Entity{
		Key:            "101",
		ParentKey:      "50",
		Kind:           catalog.KindMovie,
		LibrarySection: "1",
	}

	t.Run("field, tag, and lock edits", func(t *testing.T) {
		var query url.Values
		c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPut, r.Method)
			assert.Equal(t, "/library/sections/1/all", r.URL.Path)
			query = r.URL.Query()
			w.Write([]byte(`<MediaContainer size="0"/>`))
		}))

		batch := catalog.NewEditBatch().
			EditField("summary", "new summary", true).
			EditTags("genres", []string{"Action", "Drama"}, false, true).
			EditTags("genres", []string{"Old"}, true, true).
			SetFieldLock("thumb", false)

		require.NoError(t, c.ApplyEdits(context.Background(), entity, batch))

		assert.Equal(t, "1", query.Get("type"))
		assert.Equal(t, "101", query.Get("id"))
		assert.Equal(t, "new summary", query.Get("summary.value"))
		assert.Equal(t, "1", query.Get("summary.locked"))
		assert.Equal(t, "Action", query.Get("genre[0].tag.tag"))
		assert.Equal(t, "Drama", query.Get("genre[1].tag.tag"))
		assert.Equal(t, "Old", query.Get("genre[].tag.tag-"))
		assert.Equal(t, "1", query.Get("genre.locked"))
		assert.Equal(t, "0", query.Get("thumb.locked"))
	})

	t.Run("chunked tag edits keep every chunk", func(t *testing.T) {
		var query url.Values
		c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			query = r.URL.Query()
			w.Write([]byte(`<MediaContainer size="0"/>`))
		}))

		batch := catalog.NewEditBatch().
			EditTags("actors", []string{"o1", "o2", "o3", "o4", "o5"}, true, true).
			EditTags("actors", []string{"o6"}, true, true).
			EditTags("actors", []string{"a", "b", "c", "d", "e"}, false, true).
			EditTags("actors", []string{"f"}, false, true)

		require.NoError(t, c.ApplyEdits(context.Background(), entity, batch))

		for n, want := range []string{"a", "b", "c", "d", "e", "f"} {
			assert.Equal(t, want, query.Get(fmt.Sprintf("actor[%d].tag.tag", n)))
		}
		assert.Equal(t, "o1,o2,o3,o4,o5,o6", query.Get("actor[].tag.tag-"))
		assert.Equal(t, "1", query.Get("actor.locked"))
	})

	t.Run("empty batch is a no-op", func(t *testing.T) {
		c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Error("unexpected request")
		}))

		require.NoError(t, c.ApplyEdits(context.Background(), entity, catalog.NewEditBatch()))
	})

	t.Run("unknown kind refused", func(t *testing.T) {
		c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Error("unexpected request")
		}))

		bad := &catalog.Entity{Key: "1", Kind: catalog.KindUnknown, LibrarySection: "1"}
		err := c.ApplyEdits(context.Background(), bad, catalog.NewEditBatch().EditField("title", "x", false))
		assert.Error(t, err)
	})

	t.Run("edits invalidate cached children", func(t *testing.T) {
		listings := 0
		c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodGet {
				listings++
			}
			w.Write([]byte(`<MediaContainer size="1">
  <Video ratingKey="101" type="movie" title="x" index="1"/>
</MediaContainer>`))
		}))

		_, err := c.Children(context.Background(), "50")
		require.NoError(t, err)

		batch := catalog.NewEditBatch().EditField("title", "y", false)
		require.NoError(t, c.ApplyEdits(context.Background(), entity, batch))

		_, err = c.Children(context.Background(), "50")
		require.NoError(t, err)
		assert.Equal(t, 2, listings)
	})
}

func TestUpload(t *testing.T) {
	art := filepath.Join(t.TempDir(), "poster.jpg")
	require.NoError(t, os.WriteFile(art, []byte("image-bytes"), 0o644))

	t.Run("posts file body", func(t *testing.T) {
		var gotPath string
		var gotBody []byte
		c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			gotPath = r.URL.Path
			gotBody, _ = io.ReadAll(r.Body)
			w.WriteHeader(http.StatusOK)
		}))

		require.NoError(t, c.Upload(context.Background(), "101", catalog.ArtPoster, art))
		assert.Equal(t, "/library/metadata/101/posters", gotPath)
		assert.Equal(t, "image-bytes", string(gotBody))
	})

	t.Run("theme endpoint", func(t *testing.T) {
		var gotPath string
		c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotPath = r.URL.Path
			w.WriteHeader(http.StatusOK)
		}))

		require.NoError(t, c.Upload(context.Background(), "101", catalog.ArtTheme, art))
		assert.Equal(t, "/library/metadata/101/themes", gotPath)
	})

	t.Run("missing file", func(t *testing.T) {
		c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Error("unexpected request")
		}))

		assert.Error(t, c.Upload(context.Background(), "101", catalog.ArtPoster, "/does/not/exist.jpg"))
	})
}

func TestRefresh(t *testing.T) {
	var gotPath, gotMethod string
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotMethod = r.Method
		w.WriteHeader(http.StatusOK)
	}))

	require.NoError(t, c.Refresh(context.Background(), "101"))
	assert.Equal(t, "/library/metadata/101/refresh", gotPath)
	assert.Equal(t, http.MethodPut, gotMethod)
}
