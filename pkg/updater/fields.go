package updater

// fieldMapping ties a logical sidecar field to its remote catalog field.
type fieldMapping struct {
	Logical string
	Remote  string
	Tag     bool
}

// supportedFields is the fixed vocabulary of sidecar fields the planner
// understands, in planning order. Aliases map to the same remote field; the
// first alias that carries a value wins.
var supportedFields = []fieldMapping{
	{Logical: "title", Remote: "title"},
	{Logical: "originaltitle", Remote: "originalTitle"},
	{Logical: "plot", Remote: "summary"},
	{Logical: "summary", Remote: "summary"},
	{Logical: "overview", Remote: "summary"},
	{Logical: "studio", Remote: "studio"},
	{Logical: "premiered", Remote: "originallyAvailableAt"},
	{Logical: "year", Remote: "year"},
	{Logical: "mpaa", Remote: "contentRating"},
	{Logical: "contentrating", Remote: "contentRating"},
	{Logical: "rating", Remote: "rating"},

	{Logical: "genres", Remote: "genres", Tag: true},
	{Logical: "genre", Remote: "genres", Tag: true},
	{Logical: "country", Remote: "countries", Tag: true},
	{Logical: "countries", Remote: "countries", Tag: true},
	{Logical: "directors", Remote: "directors", Tag: true},
	{Logical: "director", Remote: "directors", Tag: true},
	{Logical: "writers", Remote: "writers", Tag: true},
	{Logical: "writer", Remote: "writers", Tag: true},
	{Logical: "actors", Remote: "actors", Tag: true},
	{Logical: "actor", Remote: "actors", Tag: true},
}
