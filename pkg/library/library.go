// Package library discovers sidecar metadata files under a scan root and
// groups them into per-media-unit batches. A unit is one movie or show
// directory directly below a recognized library root; its files are handled
// together so the show can be resolved once.
package library

import (
	"context"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/kasuboski/nfosync/pkg/catalog"
	"github.com/kasuboski/nfosync/pkg/logger"
)

// library roots recognized by name, case-insensitively
var (
	showRoots  = rootSet("tv", "serie", "series", "show", "shows", "tvshow", "tvshows")
	movieRoots = rootSet("movie", "movies")
)

func rootSet(names ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(names))
	for _, n := range names {
		m[n] = struct{}{}
	}
	return m
}

// Unit is one media unit and the sidecar files found inside it.
type Unit struct {
	// Name is the unit's directory name, e.g. "The Matrix (1999)".
	Name string
	// Path is the unit directory relative to the scan root.
	Path string
	// Kind is the unit's media kind inferred from its library root.
	Kind catalog.MediaKind
	// Files are the unit's sidecar files relative to the scan root, sorted.
	Files []string
}

type Library struct {
	fsys fs.FS
	root string
}

// New opens the scan root on the local filesystem.
func New(root string) Library {
	return Library{fsys: os.DirFS(root), root: root}
}

// NewFromFS uses an arbitrary filesystem rooted at root.
func NewFromFS(fsys fs.FS, root string) Library {
	return Library{fsys: fsys, root: root}
}

// Root returns the scan root the library was opened at.
func (l Library) Root() string {
	return l.root
}

// Abs converts a unit-relative path back to a real filesystem path.
func (l Library) Abs(rel string) string {
	return filepath.Join(l.root, filepath.FromSlash(rel))
}

// FindSidecars walks the scan root for .nfo files and returns them sorted.
func (l Library) FindSidecars(ctx context.Context) ([]string, error) {
	log := logger.FromCtx(ctx)

	var found []string
	err := fs.WalkDir(l.fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			// just skip this dir for now if there's an issue
			log.Debugw("skipping unreadable path", "path", p, "error", err)
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			return nil
		}

		if strings.EqualFold(path.Ext(p), ".nfo") {
			found = append(found, p)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(found)
	return found, nil
}

// Units groups discovered sidecar files into media units. A file belongs to
// the first directory below the first recognized library root on its path;
// files outside any recognized root are ignored.
func (l Library) Units(ctx context.Context) ([]Unit, error) {
	log := logger.FromCtx(ctx)

	files, err := l.FindSidecars(ctx)
	if err != nil {
		return nil, err
	}

	var units []Unit
	index := make(map[string]int)

	for _, file := range files {
		unitPath, kind, ok := unitOf(file)
		if !ok {
			log.Debugw("sidecar outside recognized library roots", "file", file)
			continue
		}

		i, ok := index[unitPath]
		if !ok {
			i = len(units)
			index[unitPath] = i
			units = append(units, Unit{
				Name: path.Base(unitPath),
				Path: unitPath,
				Kind: kind,
			})
		}

		units[i].Files = append(units[i].Files, file)
	}

	return units, nil
}

// unitOf finds the media unit a sidecar file belongs to. The unit is the
// directory directly below the first recognized root; a file sitting in the
// root itself has no unit.
func unitOf(file string) (string, catalog.MediaKind, bool) {
	parts := strings.Split(path.Clean(file), "/")

	for i, part := range parts {
		lowered := strings.ToLower(part)

		var kind catalog.MediaKind
		if _, ok := showRoots[lowered]; ok {
			kind = catalog.KindShow
		} else if _, ok := movieRoots[lowered]; ok {
			kind = catalog.KindMovie
		} else {
			continue
		}

		// need a directory between the root and the file itself
		if i+2 >= len(parts) {
			return "", catalog.KindUnknown, false
		}

		return path.Join(parts[:i+2]...), kind, true
	}

	return "", catalog.KindUnknown, false
}
