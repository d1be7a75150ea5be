package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestArtKindLockField(t *testing.T) {
	assert.Equal(t, "thumb", ArtPoster.LockField())
	assert.Equal(t, "art", ArtArt.LockField())
	assert.Equal(t, "theme", ArtTheme.LockField())
	assert.Equal(t, "", ArtKind("bogus").LockField())
}

func TestEntityFieldLock(t *testing.T) {
	e := &Entity{Locks: map[string]bool{"summary": true, "title": false}}

	assert.Equal(t, LockLocked, e.FieldLock("summary"))
	assert.Equal(t, LockUnlocked, e.FieldLock("title"))
	assert.Equal(t, LockUnknown, e.FieldLock("theme"))
}
