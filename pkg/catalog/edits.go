package catalog

// FieldEdit sets a scalar field value. Locked controls whether the field's
// lock flag is set or cleared by the write.
type FieldEdit struct {
	Field  string
	Value  string
	Locked bool
}

// TagEdit adds or removes entries from a tag collection.
type TagEdit struct {
	Field  string
	Tags   []string
	Remove bool
	Locked bool
}

// LockEdit toggles only the lock flag of a field.
type LockEdit struct {
	Field  string
	Locked bool
}

// EditBatch collects edits to commit in a single ApplyEdits call,
// preserving the order they were queued in.
type EditBatch struct {
	FieldEdits []FieldEdit
	TagEdits   []TagEdit
	LockEdits  []LockEdit
}

func NewEditBatch() *EditBatch {
	return &EditBatch{}
}

// EditField queues a scalar field write.
func (b *EditBatch) EditField(field, value string, locked bool) *EditBatch {
	b.FieldEdits = append(b.FieldEdits, FieldEdit{Field: field, Value: value, Locked: locked})
	return b
}

// EditTags queues a tag collection mutation.
func (b *EditBatch) EditTags(field string, tags []string, remove, locked bool) *EditBatch {
	b.TagEdits = append(b.TagEdits, TagEdit{Field: field, Tags: tags, Remove: remove, Locked: locked})
	return b
}

// SetFieldLock queues a lock-only change.
func (b *EditBatch) SetFieldLock(field string, locked bool) *EditBatch {
	b.LockEdits = append(b.LockEdits, LockEdit{Field: field, Locked: locked})
	return b
}

// Empty reports whether the batch holds no edits.
func (b *EditBatch) Empty() bool {
	return len(b.FieldEdits) == 0 && len(b.TagEdits) == 0 && len(b.LockEdits) == 0
}
