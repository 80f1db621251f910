package relations

import (
	"strconv"
	"strings"

	"legacy-sync/internal/rows"
)

// Well-known postmeta keys.
const (
	MetaThumbnailID    = "_thumbnail_id"
	MetaAttachedFile   = "_wp_attached_file"
	MetaSEODescription = "_yoast_wpseo_metadesc"

	MetaMenuItemType     = "_menu_item_type"
	MetaMenuItemObject   = "_menu_item_object"
	MetaMenuItemObjectID = "_menu_item_object_id"
	MetaMenuItemParent   = "_menu_item_menu_item_parent"
	MetaMenuItemURL      = "_menu_item_url"
)

// TaxonomyNavMenu is the taxonomy that groups nav_menu_item posts into menus.
const TaxonomyNavMenu = "nav_menu"

// DefaultGalleryKeys are postmeta keys holding comma-separated attachment ids.
var DefaultGalleryKeys = []string{"_product_image_gallery", "_gallery_images", "gallery_images", "portfolio_gallery"}

// Stats counts what went into an Index.
type Stats struct {
	Posts           int `json:"posts"`
	Meta            int `json:"meta"`
	Terms           int `json:"terms"`
	Taxonomies      int `json:"taxonomies"`
	Relationships   int `json:"relationships"`
	DanglingParents int `json:"dangling_parents"`
}

// Index joins posts with their meta rows and taxonomy graph. It is built once
// per run by a Builder and is read-only afterwards.
type Index struct {
	byID             map[int64]*rows.Post
	metaByPost       map[int64][]*rows.PostMeta
	parentOf         map[int64]int64
	childrenOf       map[int64][]int64
	taxonomyName     map[int64]string
	taxonomyTerm     map[int64]int64
	terms            map[int64]*rows.Term
	objectTaxonomies map[int64][]int64
	uploadsPath      string
	stats            Stats
}

// Builder accumulates records into an Index in a single pass.
type Builder struct {
	idx *Index
}

// NewBuilder creates an empty Builder.
func NewBuilder() *Builder {
	return &Builder{idx: &Index{
		byID:             make(map[int64]*rows.Post),
		metaByPost:       make(map[int64][]*rows.PostMeta),
		parentOf:         make(map[int64]int64),
		childrenOf:       make(map[int64][]int64),
		taxonomyName:     make(map[int64]string),
		taxonomyTerm:     make(map[int64]int64),
		terms:            make(map[int64]*rows.Term),
		objectTaxonomies: make(map[int64][]int64),
	}}
}

// WithUploadsPath sets the root-relative uploads path used to build asset
// URLs for attachments that carry no guid, e.g. "/wp-content/uploads/".
func (b *Builder) WithUploadsPath(path string) *Builder {
	b.idx.uploadsPath = path
	return b
}

// Add indexes one record. Post bodies are only kept for attachments, which
// is all later joins need; the posts themselves are streamed again.
func (b *Builder) Add(rec rows.Record) {
	idx := b.idx
	switch r := rec.(type) {
	case *rows.Post:
		p := *r
		if p.Type != rows.TypeAttachment {
			p.Content = ""
		}
		idx.byID[p.ID] = &p
		if p.ParentID != 0 {
			idx.parentOf[p.ID] = p.ParentID
			idx.childrenOf[p.ParentID] = append(idx.childrenOf[p.ParentID], p.ID)
		}
		idx.stats.Posts++
	case *rows.PostMeta:
		idx.metaByPost[r.PostID] = append(idx.metaByPost[r.PostID], r)
		idx.stats.Meta++
	case *rows.Term:
		idx.terms[r.ID] = r
		idx.stats.Terms++
	case *rows.TermTaxonomy:
		idx.taxonomyName[r.TaxonomyID] = r.TaxonomyName
		idx.taxonomyTerm[r.TaxonomyID] = r.TermID
		idx.stats.Taxonomies++
	case *rows.TermRelationship:
		idx.objectTaxonomies[r.ObjectID] = append(idx.objectTaxonomies[r.ObjectID], r.TaxonomyID)
		idx.stats.Relationships++
	}
}

// Index finishes the build and returns the Index.
func (b *Builder) Index() *Index {
	idx := b.idx
	idx.stats.DanglingParents = 0
	for _, parent := range idx.parentOf {
		if _, ok := idx.byID[parent]; !ok {
			idx.stats.DanglingParents++
		}
	}
	return idx
}

// Stats returns the build counters.
func (x *Index) Stats() Stats {
	return x.stats
}

// Post returns the indexed post with the given id.
func (x *Index) Post(id int64) (*rows.Post, bool) {
	p, ok := x.byID[id]
	return p, ok
}

// Meta returns the first value stored under key for a post.
func (x *Index) Meta(postID int64, key string) (string, bool) {
	for _, m := range x.metaByPost[postID] {
		if m.Key == key {
			return m.Value, true
		}
	}
	return "", false
}

// MetaValues returns every value stored under key for a post, in dump order.
func (x *Index) MetaValues(postID int64, key string) []string {
	var out []string
	for _, m := range x.metaByPost[postID] {
		if m.Key == key {
			out = append(out, m.Value)
		}
	}
	return out
}

// ParentOf returns the parent of a post. Parents missing from the dump are
// reported as unresolved.
func (x *Index) ParentOf(id int64) (int64, bool) {
	parent, ok := x.parentOf[id]
	if !ok {
		return 0, false
	}
	if _, present := x.byID[parent]; !present {
		return parent, false
	}
	return parent, true
}

// Attachments returns the attachment children of a post in dump order.
func (x *Index) Attachments(parentID int64) []*rows.Post {
	var out []*rows.Post
	for _, id := range x.childrenOf[parentID] {
		if p, ok := x.byID[id]; ok && p.Type == rows.TypeAttachment {
			out = append(out, p)
		}
	}
	return out
}

// AttachmentURL returns the asset URL of an attachment post: its guid, or
// the uploads path joined with _wp_attached_file when the guid is empty.
func (x *Index) AttachmentURL(id int64) (string, bool) {
	p, ok := x.byID[id]
	if !ok {
		return "", false
	}
	if p.GUID != "" {
		return p.GUID, true
	}
	if file, ok := x.Meta(id, MetaAttachedFile); ok && file != "" && x.uploadsPath != "" {
		return strings.TrimSuffix(x.uploadsPath, "/") + "/" + strings.TrimPrefix(file, "/"), true
	}
	return "", false
}

// Image is an attachment referenced by a post through its meta.
type Image struct {
	AttachmentID int64
	URL          string
	Site         string // Insertion site: "thumbnail" or the gallery meta key
}

// SiteThumbnail marks the featured image slot.
const SiteThumbnail = "thumbnail"

// PostImages lists the images of a post: the featured image first, then every
// gallery list in key order. An attachment present in several sites is
// emitted once per site; ids that do not resolve are dropped.
func (x *Index) PostImages(postID int64, galleryKeys []string) []Image {
	var out []Image
	if v, ok := x.Meta(postID, MetaThumbnailID); ok {
		if id, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64); err == nil {
			if url, ok := x.AttachmentURL(id); ok {
				out = append(out, Image{AttachmentID: id, URL: url, Site: SiteThumbnail})
			}
		}
	}
	for _, key := range galleryKeys {
		for _, v := range x.MetaValues(postID, key) {
			for _, id := range ParseIDList(v) {
				if url, ok := x.AttachmentURL(id); ok {
					out = append(out, Image{AttachmentID: id, URL: url, Site: key})
				}
			}
		}
	}
	return out
}

// ParseIDList parses a comma-separated id list. Tokens that are not integers
// are skipped, so serialized structures yield nothing.
func ParseIDList(s string) []int64 {
	var ids []int64
	for _, part := range strings.Split(s, ",") {
		id, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
		if err != nil || id <= 0 {
			continue
		}
		ids = append(ids, id)
	}
	return ids
}

// TaxonomyName returns the taxonomy of a term_taxonomy id.
func (x *Index) TaxonomyName(taxonomyID int64) (string, bool) {
	name, ok := x.taxonomyName[taxonomyID]
	return name, ok
}

// TermsOf returns the terms attached to an object, restricted to the given
// taxonomies when any are named. Order follows the relationship rows.
func (x *Index) TermsOf(objectID int64, taxonomies ...string) []*rows.Term {
	var out []*rows.Term
	for _, taxID := range x.objectTaxonomies[objectID] {
		name, ok := x.taxonomyName[taxID]
		if !ok || (len(taxonomies) > 0 && !contains(taxonomies, name)) {
			continue
		}
		if term, ok := x.terms[x.taxonomyTerm[taxID]]; ok {
			out = append(out, term)
		}
	}
	return out
}

// MenuOf returns the nav menu containing a menu item.
func (x *Index) MenuOf(objectID int64) (*rows.Term, bool) {
	menus := x.TermsOf(objectID, TaxonomyNavMenu)
	if len(menus) == 0 {
		return nil, false
	}
	return menus[0], true
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
