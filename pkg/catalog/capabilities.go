package catalog

// Capabilities declares which scalar fields, tag collections, and upload
// slots a given entity kind actually exposes. Planned mutations are checked
// against this table instead of probing the remote object at write time.
type Capabilities struct {
	Fields  map[string]struct{}
	Tags    map[string]struct{}
	Uploads map[ArtKind]struct{}
}

func set[T comparable](vs ...T) map[T]struct{} {
	m := make(map[T]struct{}, len(vs))
	for _, v := range vs {
		m[v] = struct{}{}
	}
	return m
}

var kindCapabilities = map[MediaKind]Capabilities{
	KindMovie: {
		Fields:  set("title", "originalTitle", "summary", "studio", "originallyAvailableAt", "year", "contentRating", "rating"),
		Tags:    set("genres", "countries", "directors", "writers", "actors"),
		Uploads: set(ArtPoster, ArtArt, ArtTheme),
	},
	KindShow: {
		Fields:  set("title", "originalTitle", "summary", "studio", "originallyAvailableAt", "year", "contentRating", "rating"),
		Tags:    set("genres", "actors"),
		Uploads: set(ArtPoster, ArtArt, ArtTheme),
	},
	KindSeason: {
		Fields:  set("title", "summary", "year"),
		Tags:    set[string](),
		Uploads: set(ArtPoster, ArtArt),
	},
	KindEpisode: {
		Fields:  set("title", "summary", "originallyAvailableAt", "contentRating", "rating", "year"),
		Tags:    set("directors", "writers"),
		Uploads: set(ArtPoster),
	},
}

// KindCapabilities returns the capability set for a media kind. Unknown
// kinds expose nothing.
func KindCapabilities(k MediaKind) Capabilities {
	c, ok := kindCapabilities[k]
	if !ok {
		return Capabilities{}
	}
	return c
}

// SupportsField reports whether the kind exposes a scalar field.
func (c Capabilities) SupportsField(field string) bool {
	_, ok := c.Fields[field]
	return ok
}

// SupportsTags reports whether the kind exposes a tag collection.
func (c Capabilities) SupportsTags(field string) bool {
	_, ok := c.Tags[field]
	return ok
}

// SupportsUpload reports whether the kind accepts an artwork upload slot.
func (c Capabilities) SupportsUpload(kind ArtKind) bool {
	_, ok := c.Uploads[kind]
	return ok
}
