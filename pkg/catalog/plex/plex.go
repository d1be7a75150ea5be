// Package plex implements catalog.Client against a Plex Media Server's XML
// API. Metadata reads decode MediaContainer documents; edits go through the
// section-wide PUT endpoint with field.value/field.locked parameters; artwork
// and theme files are POSTed to the item's upload endpoints.
package plex

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/kasuboski/nfosync/pkg/cache"
	"github.com/kasuboski/nfosync/pkg/catalog"
	nfohttp "github.com/kasuboski/nfosync/pkg/http"
	"github.com/kasuboski/nfosync/pkg/logger"
)

// type codes the edit endpoint expects per media kind
var kindTypeCodes = map[catalog.MediaKind]int{
	catalog.KindMovie:   1,
	catalog.KindShow:    2,
	catalog.KindSeason:  3,
	catalog.KindEpisode: 4,
}

// tagWireNames maps a tag collection to the element name the edit endpoint
// uses for it.
var tagWireNames = map[string]string{
	"genres":    "genre",
	"countries": "country",
	"directors": "director",
	"writers":   "writer",
	"actors":    "actor",
}

// uploadPaths maps an artwork slot to its upload endpoint segment.
var uploadPaths = map[catalog.ArtKind]string{
	catalog.ArtPoster: "posters",
	catalog.ArtArt:    "arts",
	catalog.ArtTheme:  "themes",
}

type Client struct {
	baseURL  *url.URL
	token    string
	http     nfohttp.HTTPClient
	children *cache.Cache[string, []*catalog.Entity]
}

var _ catalog.Client = (*Client)(nil)

type ClientOption func(*Client)

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(h nfohttp.HTTPClient) ClientOption {
	return func(c *Client) {
		c.http = h
	}
}

// New builds a client for the server at rawURL authenticating with token.
func New(rawURL, token string, opts ...ClientOption) (*Client, error) {
	base, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("couldn't parse server url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("server url %q needs a scheme and host", rawURL)
	}

	c := &Client{
		baseURL:  base,
		token:    token,
		http:     nfohttp.NewRateLimitedHTTPClient(),
		children: cache.New[string, []*catalog.Entity](),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// mediaContainer is the envelope of every XML response.
type mediaContainer struct {
	XMLName           xml.Name       `xml:"MediaContainer"`
	MachineIdentifier string         `xml:"machineIdentifier,attr"`
	Size              int            `xml:"size,attr"`
	Items             []metadataItem `xml:",any"`
}

// metadataItem is one Video or Directory element. Plex reports movies and
// episodes as Video and shows and seasons as Directory; the type attribute
// disambiguates.
type metadataItem struct {
	XMLName               xml.Name
	RatingKey             string  `xml:"ratingKey,attr"`
	ParentRatingKey       string  `xml:"parentRatingKey,attr"`
	GrandparentRatingKey  string  `xml:"grandparentRatingKey,attr"`
	Type                  string  `xml:"type,attr"`
	Title                 string  `xml:"title,attr"`
	ParentTitle           string  `xml:"parentTitle,attr"`
	GrandparentTitle      string  `xml:"grandparentTitle,attr"`
	OriginalTitle         string  `xml:"originalTitle,attr"`
	Summary               string  `xml:"summary,attr"`
	Studio                string  `xml:"studio,attr"`
	Year                  int     `xml:"year,attr"`
	Index                 int     `xml:"index,attr"`
	ContentRating         string  `xml:"contentRating,attr"`
	Rating                float64 `xml:"rating,attr"`
	OriginallyAvailableAt string  `xml:"originallyAvailableAt,attr"`
	LibrarySectionID      string  `xml:"librarySectionID,attr"`

	Genres    []tagElement   `xml:"Genre"`
	Countries []tagElement   `xml:"Country"`
	Directors []tagElement   `xml:"Director"`
	Writers   []tagElement   `xml:"Writer"`
	Roles     []tagElement   `xml:"Role"`
	Fields    []fieldElement `xml:"Field"`
}

type tagElement struct {
	Tag string `xml:"tag,attr"`
}

type fieldElement struct {
	Name   string `xml:"name,attr"`
	Locked bool   `xml:"locked,attr"`
}

func (i metadataItem) toEntity() *catalog.Entity {
	e := &catalog.Entity{
		Key:              i.RatingKey,
		ParentKey:        i.ParentRatingKey,
		GrandparentKey:   i.GrandparentRatingKey,
		Title:            i.Title,
		ParentTitle:      i.ParentTitle,
		GrandparentTitle: i.GrandparentTitle,
		Year:             i.Year,
		Kind:             kindOf(i.Type),
		Index:            i.Index,
		LibrarySection:   i.LibrarySectionID,
		Fields:           make(map[string]string),
		TagFields:        make(map[string][]string),
		Locks:            make(map[string]bool),
	}

	setField := func(name, value string) {
		if value != "" {
			e.Fields[name] = value
		}
	}
	setField("title", i.Title)
	setField("originalTitle", i.OriginalTitle)
	setField("summary", i.Summary)
	setField("studio", i.Studio)
	setField("originallyAvailableAt", i.OriginallyAvailableAt)
	setField("contentRating", i.ContentRating)
	if i.Year > 0 {
		e.Fields["year"] = strconv.Itoa(i.Year)
	}
	if i.Rating > 0 {
		e.Fields["rating"] = strconv.FormatFloat(i.Rating, 'f', -1, 64)
	}

	setTags := func(name string, elems []tagElement) {
		if len(elems) == 0 {
			return
		}
		tags := make([]string, 0, len(elems))
		for _, t := range elems {
			if t.Tag != "" {
				tags = append(tags, t.Tag)
			}
		}
		e.TagFields[name] = tags
	}
	setTags("genres", i.Genres)
	setTags("countries", i.Countries)
	setTags("directors", i.Directors)
	setTags("writers", i.Writers)
	setTags("actors", i.Roles)

	for _, f := range i.Fields {
		if f.Name != "" {
			e.Locks[f.Name] = f.Locked
		}
	}

	return e
}

func kindOf(t string) catalog.MediaKind {
	switch t {
	case "movie":
		return catalog.KindMovie
	case "show":
		return catalog.KindShow
	case "season":
		return catalog.KindSeason
	case "episode":
		return catalog.KindEpisode
	default:
		return catalog.KindUnknown
	}
}

// Ping verifies the server answers with its identity for this token.
func (c *Client) Ping(ctx context.Context) error {
	container, err := c.get(ctx, "/", nil)
	if err != nil {
		return fmt.Errorf("couldn't reach server: %w", err)
	}

	if container.MachineIdentifier == "" {
		return fmt.Errorf("server answered without a machine identifier")
	}

	logger.FromCtx(ctx).Debugw("connected to server", "machineIdentifier", container.MachineIdentifier)
	return nil
}

// Search runs a title search across all libraries.
func (c *Client) Search(ctx context.Context, query string) ([]*catalog.Entity, error) {
	params := url.Values{}
	params.Set("query", query)

	container, err := c.get(ctx, "/search", params)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	var found []*catalog.Entity
	for _, item := range container.Items {
		if item.RatingKey == "" || kindOf(item.Type) == catalog.KindUnknown {
			continue
		}
		found = append(found, item.toEntity())
	}

	return found, nil
}

// Get reloads the full metadata of one item.
func (c *Client) Get(ctx context.Context, key string) (*catalog.Entity, error) {
	container, err := c.get(ctx, "/library/metadata/"+key, nil)
	if err != nil {
		return nil, err
	}

	if len(container.Items) == 0 {
		return nil, catalog.ErrNotFound
	}

	return container.Items[0].toEntity(), nil
}

// Children lists a show's seasons or a season's episodes. Listings are
// cached for the lifetime of the client; edits invalidate them.
func (c *Client) Children(ctx context.Context, key string) ([]*catalog.Entity, error) {
	if cached, ok := c.children.Get(key); ok {
		return cached, nil
	}

	container, err := c.get(ctx, "/library/metadata/"+key+"/children", nil)
	if err != nil {
		return nil, err
	}

	var children []*catalog.Entity
	for _, item := range container.Items {
		// synthetic listings like "All episodes" have no rating key
		if item.RatingKey == "" {
			continue
		}
		children = append(children, item.toEntity())
	}

	c.children.Set(key, children)
	return children, nil
}

// Child addresses one child of key by its index number.
func (c *Client) Child(ctx context.Context, key string, index int) (*catalog.Entity, error) {
	children, err := c.Children(ctx, key)
	if err != nil {
		return nil, err
	}

	for _, child := range children {
		if child.Index == index {
			return child, nil
		}
	}

	return nil, catalog.ErrNotFound
}

// ApplyEdits commits a batch through the section-wide edit endpoint.
func (c *Client) ApplyEdits(ctx context.Context, entity *catalog.Entity, batch *catalog.EditBatch) error {
	if batch.Empty() {
		return nil
	}

	typeCode, ok := kindTypeCodes[entity.Kind]
	if !ok {
		return fmt.Errorf("can't edit entity of kind %q", entity.Kind)
	}
	if entity.LibrarySection == "" {
		return fmt.Errorf("entity %s has no library section", entity.Key)
	}

	params := url.Values{}
	params.Set("type", strconv.Itoa(typeCode))
	params.Set("id", entity.Key)
	params.Set("includeExternalMedia", "1")

	for _, edit := range batch.FieldEdits {
		params.Set(edit.Field+".value", edit.Value)
		params.Set(edit.Field+".locked", boolFlag(edit.Locked))
	}

	// tag edits arrive chunked; adds keep one running index per collection
	// and removals collapse into one comma-joined minus key, so chunks
	// never overwrite each other in the flat parameter set
	addIndex := make(map[string]int)
	removals := make(map[string][]string)

	for _, edit := range batch.TagEdits {
		wire, ok := tagWireNames[edit.Field]
		if !ok {
			return fmt.Errorf("unknown tag collection %q", edit.Field)
		}
		if edit.Remove {
			removals[wire] = append(removals[wire], edit.Tags...)
		} else {
			for _, tag := range edit.Tags {
				params.Set(fmt.Sprintf("%s[%d].tag.tag", wire, addIndex[wire]), tag)
				addIndex[wire]++
			}
		}
		params.Set(wire+".locked", boolFlag(edit.Locked))
	}

	for wire, tags := range removals {
		params.Set(wire+"[].tag.tag-", strings.Join(tags, ","))
	}

	for _, edit := range batch.LockEdits {
		params.Set(edit.Field+".locked", boolFlag(edit.Locked))
	}

	path := "/library/sections/" + entity.LibrarySection + "/all"
	if err := c.call(ctx, http.MethodPut, path, params, nil, ""); err != nil {
		return err
	}

	// cached listings may now carry stale attributes
	c.children.Delete(entity.ParentKey)
	c.children.Delete(entity.Key)

	return nil
}

// Upload posts an artwork or theme file to the item's upload endpoint.
func (c *Client) Upload(ctx context.Context, key string, kind catalog.ArtKind, path string) error {
	segment, ok := uploadPaths[kind]
	if !ok {
		return fmt.Errorf("unknown artwork slot %q", kind)
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("couldn't open artwork file: %w", err)
	}
	defer f.Close()

	return c.call(ctx, http.MethodPost, "/library/metadata/"+key+"/"+segment, nil, f, "application/octet-stream")
}

// Refresh asks the server to re-scan the item's metadata. Cached child
// listings under the item are dropped since the re-scan may change them.
func (c *Client) Refresh(ctx context.Context, key string) error {
	if err := c.call(ctx, http.MethodPut, "/library/metadata/"+key+"/refresh", nil, nil, ""); err != nil {
		return err
	}

	c.children.Delete(key)
	return nil
}

// get issues a GET and decodes the MediaContainer envelope.
func (c *Client) get(ctx context.Context, path string, params url.Values) (*mediaContainer, error) {
	req, err := c.newRequest(ctx, http.MethodGet, path, params, nil, "")
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return nil, err
	}

	var container mediaContainer
	if err := xml.NewDecoder(resp.Body).Decode(&container); err != nil {
		return nil, fmt.Errorf("couldn't decode response: %w", err)
	}

	return &container, nil
}

// call issues a mutating request and discards the body.
func (c *Client) call(ctx context.Context, method, path string, params url.Values, body io.Reader, contentType string) error {
	req, err := c.newRequest(ctx, method, path, params, body, contentType)
	if err != nil {
		return err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	return checkStatus(resp)
}

func (c *Client) newRequest(ctx context.Context, method, path string, params url.Values, body io.Reader, contentType string) (*http.Request, error) {
	u := *c.baseURL
	u.Path = strings.TrimSuffix(u.Path, "/") + path

	if params == nil {
		params = url.Values{}
	}
	params.Set("X-Plex-Token", c.token)
	u.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, fmt.Errorf("couldn't create request: %w", err)
	}

	req.Header.Set("Accept", "application/xml")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	return req, nil
}

func checkStatus(resp *http.Response) error {
	switch {
	case resp.StatusCode == http.StatusNotFound:
		return catalog.ErrNotFound
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("server returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
}

func boolFlag(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
