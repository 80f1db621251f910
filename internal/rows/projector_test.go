package rows

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"legacy-sync/internal/dump"
)

// postTuple renders a 23-column posts tuple.
func postTuple(id int, title, status, typ string, parent int, guid string) string {
	return fmt.Sprintf("(%d,1,'2019-05-04 10:11:12','2019-05-04 08:11:12','<p>body %d</p>','%s','',"+
		"'%s','open','open','','slug-%d','','','2019-05-04 10:11:12','2019-05-04 08:11:12','',%d,'%s',3,'%s','image/jpeg',0)",
		id, id, title, status, id, parent, guid, typ)
}

func values(raw string) []dump.Value {
	return dump.Tokenize(strings.TrimSuffix(strings.TrimPrefix(raw, "("), ")"))
}

func TestProject(t *testing.T) {
	tests := []struct {
		name    string
		kind    Kind
		raw     string
		want    Record
		wantErr error
	}{
		{
			name: "post",
			kind: KindPost,
			raw:  postTuple(7, "Hello", "publish", "post", 0, "http://example.com/?p=7"),
			want: &Post{
				ID:        7,
				AuthorID:  1,
				DateLocal: time.Date(2019, 5, 4, 10, 11, 12, 0, time.UTC),
				Content:   "<p>body 7</p>",
				Title:     "Hello",
				Status:    StatusPublish,
				Slug:      "slug-7",
				GUID:      "http://example.com/?p=7",
				MenuOrder: 3,
				Type:      TypePost,
				MimeType:  "image/jpeg",
			},
		},
		{
			name: "unknown status and type pass through",
			kind: KindPost,
			raw:  postTuple(8, "X", "auto-draft", "wpcf7_contact_form", 2, ""),
			want: &Post{
				ID:        8,
				AuthorID:  1,
				DateLocal: time.Date(2019, 5, 4, 10, 11, 12, 0, time.UTC),
				Content:   "<p>body 8</p>",
				Title:     "X",
				Status:    PostStatus("auto-draft"),
				Slug:      "slug-8",
				ParentID:  2,
				MenuOrder: 3,
				Type:      PostType("wpcf7_contact_form"),
				MimeType:  "image/jpeg",
			},
		},
		{
			name: "postmeta",
			kind: KindPostMeta,
			raw:  "(11,7,'_thumbnail_id','42')",
			want: &PostMeta{MetaID: 11, PostID: 7, Key: "_thumbnail_id", Value: "42"},
		},
		{
			name: "term",
			kind: KindTerm,
			raw:  "(3,'Main Menu','main-menu',0)",
			want: &Term{ID: 3, Name: "Main Menu", Slug: "main-menu"},
		},
		{
			name: "term taxonomy",
			kind: KindTermTaxonomy,
			raw:  "(5,3,'nav_menu','',0,4)",
			want: &TermTaxonomy{TaxonomyID: 5, TermID: 3, TaxonomyName: "nav_menu"},
		},
		{
			name: "term relationship",
			kind: KindTermRelationship,
			raw:  "(99,5,0)",
			want: &TermRelationship{ObjectID: 99, TaxonomyID: 5},
		},
		{
			name:    "short post",
			kind:    KindPost,
			raw:     "(1,'x')",
			wantErr: ErrShortTuple,
		},
		{
			name:    "non-numeric id",
			kind:    KindPostMeta,
			raw:     "('abc',7,'k','v')",
			wantErr: ErrBadID,
		},
		{
			name:    "unknown kind",
			kind:    KindUnknown,
			raw:     "(1)",
			wantErr: ErrUnknownTable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Project(tt.kind, values(tt.raw))
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Project() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Project() unexpected error: %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Project() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestProjector_MalformedRowTolerance(t *testing.T) {
	var b strings.Builder
	b.WriteString("INSERT INTO `wp_posts` VALUES ")
	for i := 1; i <= 1000; i++ {
		if i > 1 {
			b.WriteString(",")
		}
		if i == 500 {
			b.WriteString("(500,1,'2019-05-04 10:11:12','truncated')")
			continue
		}
		b.WriteString(postTuple(i, fmt.Sprintf("Post %d", i), "publish", "post", 0, ""))
	}
	b.WriteString(";\n")

	tables := TablesFor("wp")
	projector := NewProjector(tables)
	sc := dump.NewScanner(strings.NewReader(b.String()), tables.Posts)

	var posts, failures int
	var lastID int64
	for sc.Next() {
		rec, err := projector.Project(sc.Tuple())
		if err != nil {
			if !errors.Is(err, ErrShortTuple) {
				t.Errorf("Project() error = %v, want ErrShortTuple", err)
			}
			failures++
			continue
		}
		posts++
		lastID = rec.(*Post).ID
	}
	if err := sc.Err(); err != nil {
		t.Fatalf("Scanner error = %v", err)
	}

	if posts != 999 {
		t.Errorf("projected posts = %d, want 999", posts)
	}
	if failures != 1 {
		t.Errorf("failures = %d, want 1", failures)
	}
	if lastID != 1000 {
		t.Errorf("last projected id = %d, want 1000 (processing must continue to the end)", lastID)
	}

	stats := projector.Stats()
	if stats.Skipped["posts"] != 1 || stats.Projected["posts"] != 999 {
		t.Errorf("Stats() = %+v, want 999 projected and 1 skipped posts", stats)
	}
	projected, skipped := stats.Total()
	if projected != 999 || skipped != 1 {
		t.Errorf("Stats().Total() = %d, %d, want 999, 1", projected, skipped)
	}
}

func TestTablesFor(t *testing.T) {
	tables := TablesFor("blog_")
	if tables.Posts != "blog_posts" || tables.TermRelationships != "blog_term_relationships" {
		t.Errorf("TablesFor() = %+v", tables)
	}
	for _, name := range tables.Names() {
		if tables.KindOf(name) == KindUnknown {
			t.Errorf("KindOf(%q) = unknown", name)
		}
	}
	if tables.KindOf("blog_users") != KindUnknown {
		t.Error("KindOf(blog_users) should be unknown")
	}
}

func TestParseDate(t *testing.T) {
	if got := ParseDate("0000-00-00 00:00:00"); !got.IsZero() {
		t.Errorf("ParseDate(zero placeholder) = %v, want zero time", got)
	}
	want := time.Date(2020, 1, 2, 3, 4, 5, 0, time.UTC)
	if got := ParseDate("2020-01-02 03:04:05"); !got.Equal(want) {
		t.Errorf("ParseDate() = %v, want %v", got, want)
	}
}
