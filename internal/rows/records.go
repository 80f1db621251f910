package rows

import "time"

// Kind identifies the source table a record was projected from.
type Kind int

const (
	KindUnknown Kind = iota
	KindPost
	KindPostMeta
	KindTerm
	KindTermTaxonomy
	KindTermRelationship
)

func (k Kind) String() string {
	switch k {
	case KindPost:
		return "posts"
	case KindPostMeta:
		return "postmeta"
	case KindTerm:
		return "terms"
	case KindTermTaxonomy:
		return "term_taxonomy"
	case KindTermRelationship:
		return "term_relationships"
	}
	return "unknown"
}

// Record is one projected row: *Post, *PostMeta, *Term, *TermTaxonomy or
// *TermRelationship.
type Record interface {
	Kind() Kind
}

// PostStatus is the post_status column. Unknown values are kept verbatim.
type PostStatus string

const (
	StatusPublish PostStatus = "publish"
	StatusDraft   PostStatus = "draft"
	StatusPending PostStatus = "pending"
	StatusPrivate PostStatus = "private"
	StatusFuture  PostStatus = "future"
	StatusInherit PostStatus = "inherit"
	StatusTrash   PostStatus = "trash"
)

// PostType is the post_type column. Unknown values are kept verbatim.
type PostType string

const (
	TypePost        PostType = "post"
	TypePage        PostType = "page"
	TypeAttachment  PostType = "attachment"
	TypePortfolio   PostType = "portfolio"
	TypeNavMenuItem PostType = "nav_menu_item"
	TypeRevision    PostType = "revision"
)

// Post is a row of the posts table.
type Post struct {
	ID        int64
	AuthorID  int64
	DateLocal time.Time // Zero for the 0000-00-00 placeholder
	Content   string    // Raw legacy markup
	Title     string
	Excerpt   string
	Status    PostStatus
	Slug      string
	ParentID  int64 // 0 means no parent
	GUID      string
	MenuOrder int
	Type      PostType
	MimeType  string
}

func (*Post) Kind() Kind { return KindPost }

// PostMeta is a row of the postmeta table.
type PostMeta struct {
	MetaID int64
	PostID int64
	Key    string
	Value  string // Opaque; sometimes a comma-joined id list
}

func (*PostMeta) Kind() Kind { return KindPostMeta }

// Term is a row of the terms table.
type Term struct {
	ID   int64
	Name string
	Slug string
}

func (*Term) Kind() Kind { return KindTerm }

// TermTaxonomy is a row of the term_taxonomy table.
type TermTaxonomy struct {
	TaxonomyID   int64
	TermID       int64
	TaxonomyName string
}

func (*TermTaxonomy) Kind() Kind { return KindTermTaxonomy }

// TermRelationship is a row of the term_relationships table.
type TermRelationship struct {
	ObjectID   int64
	TaxonomyID int64
}

func (*TermRelationship) Kind() Kind { return KindTermRelationship }
