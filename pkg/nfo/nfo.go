// Package nfo parses NFO sidecar metadata files into flat records.
//
// An NFO document is structured markup whose root tag names the media kind.
// Child elements become named fields; a field holds either ordered scalar
// values or ordered sub-records (one level deep, e.g. <actor><name>..</name>).
// Anything nested deeper is collapsed to its text content.
package nfo

import (
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/kasuboski/nfosync/pkg/catalog"
)

// Value is the content of one record field: ordered scalar occurrences
// plus ordered sub-records.
type Value struct {
	Scalars []string
	Subs    []map[string]string
}

// Empty reports whether the field carried no usable content.
func (v Value) Empty() bool {
	return len(v.Scalars) == 0 && len(v.Subs) == 0
}

// Record is a parsed sidecar file.
type Record struct {
	Kind   catalog.MediaKind
	Title  string
	Fields map[string]Value
}

var kindByRootTag = map[string]catalog.MediaKind{
	"movie":          catalog.KindMovie,
	"moviedetail":    catalog.KindMovie,
	"moviedetails":   catalog.KindMovie,
	"show":           catalog.KindShow,
	"showdetail":     catalog.KindShow,
	"showdetails":    catalog.KindShow,
	"tvshow":         catalog.KindShow,
	"serie":          catalog.KindShow,
	"tvserie":        catalog.KindShow,
	"season":         catalog.KindSeason,
	"seasondetail":   catalog.KindSeason,
	"seasondetails":  catalog.KindSeason,
	"episode":        catalog.KindEpisode,
	"episodedetail":  catalog.KindEpisode,
	"episodedetails": catalog.KindEpisode,
}

type xmlNode struct {
	XMLName xml.Name
	Text    string    `xml:",chardata"`
	Nodes   []xmlNode `xml:",any"`
}

// Parse reads an NFO document from r.
func Parse(r io.Reader) (*Record, error) {
	var root xmlNode
	if err := xml.NewDecoder(r).Decode(&root); err != nil {
		return nil, fmt.Errorf("couldn't parse nfo document: %w", err)
	}

	kind, ok := kindByRootTag[strings.ToLower(root.XMLName.Local)]
	if !ok {
		kind = catalog.KindUnknown
	}

	rec := &Record{
		Kind:   kind,
		Fields: make(map[string]Value),
	}

	for _, child := range root.Nodes {
		name := strings.ToLower(child.XMLName.Local)
		v := rec.Fields[name]

		if len(child.Nodes) == 0 {
			if text := strings.TrimSpace(child.Text); text != "" {
				v.Scalars = append(v.Scalars, text)
			}
		} else {
			v.Subs = append(v.Subs, subRecord(child))
		}

		rec.Fields[name] = v
	}

	rec.Title = rec.Scalar("title")

	return rec, nil
}

// ParseFile reads and parses the NFO file at path.
func ParseFile(path string) (*Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("couldn't open nfo file: %w", err)
	}
	defer f.Close()

	return Parse(f)
}

// subRecord flattens a nested element into a flat name/value map. Repeated
// child tags keep their first occurrence; deeper structure collapses to text.
func subRecord(n xmlNode) map[string]string {
	sub := make(map[string]string, len(n.Nodes))
	for _, c := range n.Nodes {
		name := strings.ToLower(c.XMLName.Local)
		if _, ok := sub[name]; ok {
			continue
		}
		if text := strings.TrimSpace(c.Text); text != "" {
			sub[name] = text
		}
	}
	return sub
}

// Scalar returns the first scalar value of a field, or "" when absent.
func (r *Record) Scalar(name string) string {
	v, ok := r.Fields[name]
	if !ok || len(v.Scalars) == 0 {
		return ""
	}
	return v.Scalars[0]
}

// SeasonNumber returns the parsed season number if the record carries one.
func (r *Record) SeasonNumber() (int, bool) {
	return r.number("season", "seasonnumber")
}

// EpisodeNumber returns the parsed episode number if the record carries one.
func (r *Record) EpisodeNumber() (int, bool) {
	return r.number("episode", "episodenumber")
}

func (r *Record) number(names ...string) (int, bool) {
	for _, name := range names {
		s := r.Scalar(name)
		if s == "" {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil {
			continue
		}
		return n, true
	}
	return 0, false
}
