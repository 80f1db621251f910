package rows

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"legacy-sync/internal/dump"
)

var (
	// ErrShortTuple is returned when a tuple has fewer columns than its table needs.
	ErrShortTuple = errors.New("tuple has too few columns")
	// ErrBadID is returned when an identifier column is not an integer.
	ErrBadID = errors.New("identifier is not an integer")
	// ErrUnknownTable is returned for tuples of tables the projector does not map.
	ErrUnknownTable = errors.New("unknown table")
)

// DateLayout is the format of datetime columns in the dump.
const DateLayout = "2006-01-02 15:04:05"

// Column indices of the posts table.
const (
	postID        = 0
	postAuthor    = 1
	postDate      = 2
	postContent   = 4
	postTitle     = 5
	postExcerpt   = 6
	postStatus    = 7
	postName      = 11
	postParent    = 17
	postGUID      = 18
	postMenuOrder = 19
	postType      = 20
	postMimeType  = 21
)

// minColumns is the smallest tuple accepted for each kind.
var minColumns = map[Kind]int{
	KindPost:             postType + 1,
	KindPostMeta:         4,
	KindTerm:             3,
	KindTermTaxonomy:     3,
	KindTermRelationship: 2,
}

// Tables holds the physical table names of one source schema.
type Tables struct {
	Posts             string
	PostMeta          string
	Terms             string
	TermTaxonomy      string
	TermRelationships string
}

// TablesFor returns the table names for a prefix such as "wp".
func TablesFor(prefix string) Tables {
	prefix = strings.TrimSuffix(prefix, "_")
	return Tables{
		Posts:             prefix + "_posts",
		PostMeta:          prefix + "_postmeta",
		Terms:             prefix + "_terms",
		TermTaxonomy:      prefix + "_term_taxonomy",
		TermRelationships: prefix + "_term_relationships",
	}
}

// Names returns every table name.
func (t Tables) Names() []string {
	return []string{t.Posts, t.PostMeta, t.Terms, t.TermTaxonomy, t.TermRelationships}
}

// KindOf maps a table name to its record kind.
func (t Tables) KindOf(table string) Kind {
	switch table {
	case t.Posts:
		return KindPost
	case t.PostMeta:
		return KindPostMeta
	case t.Terms:
		return KindTerm
	case t.TermTaxonomy:
		return KindTermTaxonomy
	case t.TermRelationships:
		return KindTermRelationship
	}
	return KindUnknown
}

// Stats counts projected and discarded rows per table kind.
type Stats struct {
	Projected map[string]int `json:"projected"`
	Skipped   map[string]int `json:"skipped"`
}

// Total returns the number of projected and skipped rows.
func (s Stats) Total() (projected, skipped int) {
	for _, n := range s.Projected {
		projected += n
	}
	for _, n := range s.Skipped {
		skipped += n
	}
	return projected, skipped
}

// Projector turns tuples into typed records and counts the rows it drops.
type Projector struct {
	tables Tables
	stats  Stats
}

// NewProjector creates a Projector for the given schema.
func NewProjector(tables Tables) *Projector {
	return &Projector{
		tables: tables,
		stats: Stats{
			Projected: make(map[string]int),
			Skipped:   make(map[string]int),
		},
	}
}

// Project maps a scanned tuple to its record. Malformed rows are counted and
// returned as errors for the caller to skip; they never abort a run.
func (p *Projector) Project(t dump.Tuple) (Record, error) {
	kind := p.tables.KindOf(t.Table)
	rec, err := Project(kind, t.Values)
	if err != nil {
		p.stats.Skipped[kind.String()]++
		return nil, fmt.Errorf("%s row at offset %d: %w", t.Table, t.Offset, err)
	}
	p.stats.Projected[kind.String()]++
	return rec, nil
}

// Stats returns a copy of the counters.
func (p *Projector) Stats() Stats {
	out := Stats{
		Projected: make(map[string]int, len(p.stats.Projected)),
		Skipped:   make(map[string]int, len(p.stats.Skipped)),
	}
	for k, v := range p.stats.Projected {
		out.Projected[k] = v
	}
	for k, v := range p.stats.Skipped {
		out.Skipped[k] = v
	}
	return out
}

// Project maps positional values to the record of the given kind.
func Project(kind Kind, values []dump.Value) (Record, error) {
	want, ok := minColumns[kind]
	if !ok {
		return nil, ErrUnknownTable
	}
	if len(values) < want {
		return nil, fmt.Errorf("%w: %s needs %d, got %d", ErrShortTuple, kind, want, len(values))
	}

	switch kind {
	case KindPost:
		return projectPost(values)
	case KindPostMeta:
		metaID, err := parseID(values[0])
		if err != nil {
			return nil, err
		}
		postID, err := parseID(values[1])
		if err != nil {
			return nil, err
		}
		return &PostMeta{MetaID: metaID, PostID: postID, Key: values[2].Str, Value: values[3].Str}, nil
	case KindTerm:
		id, err := parseID(values[0])
		if err != nil {
			return nil, err
		}
		return &Term{ID: id, Name: values[1].Str, Slug: values[2].Str}, nil
	case KindTermTaxonomy:
		taxID, err := parseID(values[0])
		if err != nil {
			return nil, err
		}
		termID, err := parseID(values[1])
		if err != nil {
			return nil, err
		}
		return &TermTaxonomy{TaxonomyID: taxID, TermID: termID, TaxonomyName: values[2].Str}, nil
	default:
		objectID, err := parseID(values[0])
		if err != nil {
			return nil, err
		}
		taxID, err := parseID(values[1])
		if err != nil {
			return nil, err
		}
		return &TermRelationship{ObjectID: objectID, TaxonomyID: taxID}, nil
	}
}

func projectPost(v []dump.Value) (*Post, error) {
	id, err := parseID(v[postID])
	if err != nil {
		return nil, err
	}
	parent, err := parseID(v[postParent])
	if err != nil {
		return nil, err
	}

	post := &Post{
		ID:        id,
		AuthorID:  parseInt(v[postAuthor]),
		DateLocal: ParseDate(v[postDate].Str),
		Content:   v[postContent].Str,
		Title:     v[postTitle].Str,
		Excerpt:   v[postExcerpt].Str,
		Status:    PostStatus(v[postStatus].Str),
		Slug:      v[postName].Str,
		ParentID:  parent,
		GUID:      v[postGUID].Str,
		MenuOrder: int(parseInt(v[postMenuOrder])),
		Type:      PostType(v[postType].Str),
	}
	if len(v) > postMimeType {
		post.MimeType = v[postMimeType].Str
	}
	return post, nil
}

// ParseDate parses a datetime column. Placeholders such as
// 0000-00-00 00:00:00 and unparsable values yield the zero time.
func ParseDate(s string) time.Time {
	t, err := time.ParseInLocation(DateLayout, s, time.UTC)
	if err != nil {
		return time.Time{}
	}
	return t
}

func parseID(v dump.Value) (int64, error) {
	if v.Null {
		return 0, nil
	}
	id, err := strconv.ParseInt(strings.TrimSpace(v.Str), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrBadID, v.Str)
	}
	return id, nil
}

func parseInt(v dump.Value) int64 {
	n, err := strconv.ParseInt(strings.TrimSpace(v.Str), 10, 64)
	if err != nil {
		return 0
	}
	return n
}
