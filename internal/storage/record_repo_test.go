package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func testRecord(id int64, title string) *Record {
	return &Record{
		ID:      id,
		Title:   title,
		Content: "<p>" + title + "</p>",
		Excerpt: title,
		Date:    time.Date(2019, 5, 3, 10, 0, 0, 0, time.UTC),
		Slug:    "post-" + title,
		Type:    "post",
		Status:  "publish",
		Terms:   []string{"category:news"},
		Meta:    map[string]string{"menu": "main"},
	}
}

func TestRecordRepo_UpsertAndGet(t *testing.T) {
	repo := NewRecordRepo(newTestDB(t))
	ctx := context.Background()

	if err := repo.Ping(ctx); err != nil {
		t.Fatalf("Ping() error = %v", err)
	}

	rec := testRecord(7, "first")
	if err := repo.Upsert(ctx, "posts", []*Record{rec}); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	if rec.ContentHash == "" {
		t.Fatal("Upsert() did not fill ContentHash")
	}

	got, err := repo.Get(ctx, "posts", 7)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if diff := cmp.Diff(rec, got, cmpopts.IgnoreFields(Record{}, "UpdatedAt")); diff != "" {
		t.Errorf("Get() mismatch (-want +got):\n%s", diff)
	}
	if got.UpdatedAt.IsZero() {
		t.Error("Get() UpdatedAt is zero")
	}

	updated := testRecord(7, "second")
	if err := repo.Upsert(ctx, "posts", []*Record{updated}); err != nil {
		t.Fatalf("Upsert() update error = %v", err)
	}
	got, err = repo.Get(ctx, "posts", 7)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Title != "second" {
		t.Errorf("Get() Title = %q, want second", got.Title)
	}

	if _, err := repo.Get(ctx, "pages", 7); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() other collection error = %v, want ErrNotFound", err)
	}
}

func TestRecordRepo_List(t *testing.T) {
	repo := NewRecordRepo(newTestDB(t))
	ctx := context.Background()

	page := testRecord(3, "about")
	page.Type = "page"
	records := []*Record{testRecord(2, "b"), page, testRecord(1, "a")}
	if err := repo.Upsert(ctx, "posts", records); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	tests := []struct {
		name   string
		filter Filter
		want   []int64
	}{
		{name: "all ordered by id", filter: Filter{}, want: []int64{1, 2, 3}},
		{name: "by ids", filter: Filter{IDs: []int64{3, 1, 99}}, want: []int64{1, 3}},
		{name: "empty id set", filter: Filter{IDs: []int64{}}, want: []int64{}},
		{name: "by type", filter: Filter{Type: "page"}, want: []int64{3}},
		{name: "paged", filter: Filter{Limit: 1, Offset: 1}, want: []int64{2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := repo.List(ctx, "posts", tt.filter)
			if err != nil {
				t.Fatalf("List() error = %v", err)
			}
			ids := []int64{}
			for _, r := range got {
				ids = append(ids, r.ID)
			}
			if diff := cmp.Diff(tt.want, ids); diff != "" {
				t.Errorf("List() ids mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestRecordRepo_UpsertIsAtomic(t *testing.T) {
	db := newTestDB(t)
	repo := NewRecordRepo(db)
	ctx := context.Background()

	// A trigger that rejects one id makes the second insert of the batch fail.
	_, err := db.Exec(`CREATE TRIGGER reject_13 BEFORE INSERT ON records
		WHEN NEW.id = 13 BEGIN SELECT RAISE(ABORT, 'rejected'); END;`)
	if err != nil {
		t.Fatalf("create trigger: %v", err)
	}

	err = repo.Upsert(ctx, "posts", []*Record{testRecord(12, "ok"), testRecord(13, "bad")})
	if err == nil {
		t.Fatal("Upsert() expected error, got nil")
	}

	if _, err := repo.Get(ctx, "posts", 12); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get(12) error = %v, want ErrNotFound after rollback", err)
	}
}

func TestRecordRepo_Remove(t *testing.T) {
	repo := NewRecordRepo(newTestDB(t))
	ctx := context.Background()

	if err := repo.Upsert(ctx, "posts", []*Record{testRecord(1, "a"), testRecord(2, "b")}); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	if err := repo.Remove(ctx, "posts", []int64{1, 42}); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}

	got, err := repo.List(ctx, "posts", Filter{})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(got) != 1 || got[0].ID != 2 {
		t.Errorf("List() after Remove = %+v, want only id 2", got)
	}
}

func TestRecord_ComputeHash(t *testing.T) {
	a := testRecord(1, "a")
	b := testRecord(1, "a")
	if a.ComputeHash() != b.ComputeHash() {
		t.Error("ComputeHash() differs for equal records")
	}

	b.UpdatedAt = time.Now()
	b.ContentHash = "ignored"
	if a.ComputeHash() != b.ComputeHash() {
		t.Error("ComputeHash() depends on UpdatedAt or ContentHash")
	}

	b.Meta = map[string]string{"menu": "footer"}
	if a.ComputeHash() == b.ComputeHash() {
		t.Error("ComputeHash() ignores Meta")
	}
}
