package updater

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/kasuboski/nfosync/pkg/catalog"
	fileio "github.com/kasuboski/nfosync/pkg/io"
	"github.com/kasuboski/nfosync/pkg/logger"
)

// artworkClasses maps filename keywords to upload slots. Order matters;
// the first keyword found in the stem wins.
var artworkClasses = []struct {
	keyword string
	kind    catalog.ArtKind
}{
	{"poster", catalog.ArtPoster},
	{"fanart", catalog.ArtArt},
	{"backdrop", catalog.ArtArt},
	{"background", catalog.ArtArt},
	{"art", catalog.ArtArt},
	{"theme", catalog.ArtTheme},
}

var imageExtensions = map[string]struct{}{
	"jpg":  {},
	"jpeg": {},
	"png":  {},
	"tbn":  {},
	"webp": {},
}

var audioExtensions = map[string]struct{}{
	"mp3": {},
	"m4a": {},
}

// ArtworkFile is one matched sibling file with its classification.
type ArtworkFile struct {
	Path string
	Kind catalog.ArtKind
	Size int64
}

// ArtworkResult accumulates per-file outcomes of one artwork pass.
type ArtworkResult struct {
	Uploaded []string
	Skipped  []string
	Failed   []string
}

// ArtworkOptions configure the artwork matcher.
type ArtworkOptions struct {
	Enabled     bool
	AllowUnlock bool
	DryRun      bool
	Delay       time.Duration
	Extensions  []string
}

// ArtworkMatcher locates companion artwork and theme files next to a
// sidecar file and associates them with the resolved entity.
type ArtworkMatcher struct {
	client catalog.Client
	files  fileio.FileIO
	opts   ArtworkOptions
}

func NewArtworkMatcher(client catalog.Client, files fileio.FileIO, opts ArtworkOptions) ArtworkMatcher {
	return ArtworkMatcher{
		client: client,
		files:  files,
		opts:   opts,
	}
}

// Sync finds sibling files sharing the sidecar's filename stem and uploads
// each one independently; a single file's failure never blocks the rest.
func (a ArtworkMatcher) Sync(ctx context.Context, sidecarPath string, entity *catalog.Entity) ArtworkResult {
	log := logger.FromCtx(ctx, "title", entity.Title)

	var result ArtworkResult

	if !a.opts.Enabled {
		log.Debug("artwork updates are disabled")
		return result
	}

	found := a.findSiblings(ctx, sidecarPath)
	if len(found) == 0 {
		log.Infow("no artwork files found", "sidecar", sidecarPath)
		return result
	}

	caps := catalog.KindCapabilities(entity.Kind)

	for _, art := range found {
		name := filepath.Base(art.Path)
		log.Infow("processing artwork", "file", name, "kind", art.Kind, "size", humanize.Bytes(uint64(art.Size)))

		if !caps.SupportsUpload(art.Kind) {
			log.Warnw("entity type does not accept this upload", "file", name, "kind", art.Kind)
			result.Skipped = append(result.Skipped, fmt.Sprintf("%s: %s upload not supported for %s", name, art.Kind, entity.Kind))
			continue
		}

		if proceed := a.ensureUnlocked(ctx, entity, art, &result); !proceed {
			continue
		}

		if a.opts.DryRun {
			log.Infow("dry run, would upload", "file", name, "kind", art.Kind)
			continue
		}

		if err := a.client.Upload(ctx, entity.Key, art.Kind, art.Path); err != nil {
			log.Errorw("artwork upload failed", "file", name, "error", err)
			result.Failed = append(result.Failed, fmt.Sprintf("%s: upload failed", name))
			continue
		}

		log.Infow("uploaded artwork", "file", name, "kind", art.Kind)
		result.Uploaded = append(result.Uploaded, name)
		sleep(ctx, a.opts.Delay)

		// best effort; a failed refresh only means stale reads
		if err := a.client.Refresh(ctx, entity.Key); err != nil {
			log.Debugw("refresh after upload failed", "error", err)
		} else if _, err := a.client.Get(ctx, entity.Key); err != nil {
			log.Debugw("reload after upload failed", "error", err)
		}
	}

	return result
}

// findSiblings probes for files named after the sidecar's stem with any of
// the allowed extensions and classifies each one.
func (a ArtworkMatcher) findSiblings(ctx context.Context, sidecarPath string) []ArtworkFile {
	log := logger.FromCtx(ctx)

	dir := filepath.Dir(sidecarPath)
	base := filepath.Base(sidecarPath)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	lowerStem := strings.ToLower(stem)

	var found []ArtworkFile
	for _, ext := range a.opts.Extensions {
		ext = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(ext)), ".")
		if ext == "" {
			continue
		}

		candidate := filepath.Join(dir, stem+"."+ext)
		info, err := a.files.Stat(candidate)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}

		kind, ok := classifyArtwork(lowerStem, ext)
		if !ok {
			log.Debugw("sibling file has no artwork classification", "file", candidate)
			continue
		}

		found = append(found, ArtworkFile{Path: candidate, Kind: kind, Size: info.Size()})
	}

	return found
}

// classifyArtwork picks the upload slot for a file by keyword, defaulting
// keyword-less image files to poster and audio files to theme music.
func classifyArtwork(lowerStem, ext string) (catalog.ArtKind, bool) {
	for _, c := range artworkClasses {
		if strings.Contains(lowerStem, c.keyword) {
			return c.kind, true
		}
	}

	if _, ok := imageExtensions[ext]; ok {
		return catalog.ArtPoster, true
	}
	if _, ok := audioExtensions[ext]; ok {
		return catalog.ArtTheme, true
	}

	return "", false
}

// ensureUnlocked checks the artwork slot's lock flag and, when allowed,
// clears it before upload. It reports whether the upload should proceed.
func (a ArtworkMatcher) ensureUnlocked(ctx context.Context, entity *catalog.Entity, art ArtworkFile, result *ArtworkResult) bool {
	log := logger.FromCtx(ctx, "title", entity.Title)
	name := filepath.Base(art.Path)

	lockField := art.Kind.LockField()
	if lockField == "" {
		return true
	}

	// an unknown lock state means the service couldn't answer for this
	// entity type; treat it as unlocked
	if entity.FieldLock(lockField) != catalog.LockLocked {
		return true
	}

	if !a.opts.AllowUnlock {
		log.Warnw("artwork slot locked and unlocking disallowed", "file", name, "field", lockField)
		result.Skipped = append(result.Skipped, fmt.Sprintf("%s: field %s locked", name, lockField))
		return false
	}

	log.Infow("unlocking artwork slot", "file", name, "field", lockField)
	if a.opts.DryRun {
		return true
	}

	batch := catalog.NewEditBatch().SetFieldLock(lockField, false)
	if err := a.client.ApplyEdits(ctx, entity, batch); err != nil {
		log.Errorw("couldn't unlock artwork slot", "file", name, "field", lockField, "error", err)
		result.Failed = append(result.Failed, fmt.Sprintf("%s: unlock failed for %s", name, lockField))
		return false
	}

	if reloaded, err := a.client.Get(ctx, entity.Key); err == nil {
		*entity = *reloaded
	}

	return true
}
