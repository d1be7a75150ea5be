// Package catalog defines the contract against the remote media catalog
// service. Implementations provide search, hierarchical addressing, batched
// metadata edits, and artwork upload; the rest of the pipeline only speaks
// through these types.
package catalog

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("not found in catalog")

// MediaKind identifies the type of a catalog entity or sidecar record.
type MediaKind string

const (
	KindMovie   MediaKind = "movie"
	KindShow    MediaKind = "show"
	KindSeason  MediaKind = "season"
	KindEpisode MediaKind = "episode"
	KindUnknown MediaKind = "unknown"
)

// LockState reports whether a field is protected from automatic overwrite.
// Unknown means the service could not answer for this field on this entity
// type; callers treat it as unlocked.
type LockState int

const (
	LockUnknown LockState = iota
	LockUnlocked
	LockLocked
)

// ArtKind classifies an artwork upload slot.
type ArtKind string

const (
	ArtPoster ArtKind = "poster"
	ArtArt    ArtKind = "art"
	ArtTheme  ArtKind = "theme"
)

// LockField is the remote field whose lock flag guards this artwork slot.
func (a ArtKind) LockField() string {
	switch a {
	case ArtPoster:
		return "thumb"
	case ArtArt:
		return "art"
	case ArtTheme:
		return "theme"
	default:
		return ""
	}
}

// Entity is a read-only snapshot of a catalog record. Identity fields are
// owned by the service and never mutated here; changes go through
// Client.ApplyEdits.
type Entity struct {
	Key              string
	ParentKey        string
	GrandparentKey   string
	Title            string
	ParentTitle      string
	GrandparentTitle string
	Year             int
	Kind             MediaKind
	Index            int
	LibrarySection   string

	Fields    map[string]string
	TagFields map[string][]string
	Locks     map[string]bool
}

// Field returns the entity's current value for a scalar field.
func (e *Entity) Field(name string) (string, bool) {
	v, ok := e.Fields[name]
	return v, ok
}

// Tags returns the entity's current values for a tag collection.
func (e *Entity) Tags(name string) ([]string, bool) {
	v, ok := e.TagFields[name]
	return v, ok
}

// FieldLock reports the lock state of a field on this snapshot.
func (e *Entity) FieldLock(field string) LockState {
	locked, ok := e.Locks[field]
	if !ok {
		return LockUnknown
	}
	if locked {
		return LockLocked
	}
	return LockUnlocked
}

// Client is the remote catalog service.
type Client interface {
	// Ping verifies the session; failure here is fatal for a run.
	Ping(ctx context.Context) error
	// Search performs a title/keyword search across all libraries.
	Search(ctx context.Context, query string) ([]*Entity, error)
	// Get reloads the full attribute set for an entity.
	Get(ctx context.Context, key string) (*Entity, error)
	// Children enumerates seasons of a show or episodes of a season.
	Children(ctx context.Context, key string) ([]*Entity, error)
	// Child addresses a season or episode directly by index.
	Child(ctx context.Context, key string, index int) (*Entity, error)
	// ApplyEdits commits a batch of metadata edits to an entity.
	ApplyEdits(ctx context.Context, entity *Entity, batch *EditBatch) error
	// Upload associates an artwork or theme file with an entity.
	Upload(ctx context.Context, key string, kind ArtKind, path string) error
	// Refresh asks the service to re-scan an entity's metadata.
	Refresh(ctx context.Context, key string) error
}
