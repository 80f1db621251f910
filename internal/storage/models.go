package storage

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// timeLayout is fixed width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// Record is a migrated content record in the target store.
type Record struct {
	ID            int64             `json:"id"`
	Title         string            `json:"title"`
	Content       string            `json:"content"`
	Excerpt       string            `json:"excerpt"`
	Date          time.Time         `json:"date"`
	Slug          string            `json:"slug"`
	Type          string            `json:"type"`
	Status        string            `json:"status"`
	FeaturedImage string            `json:"featured_image,omitempty"`
	Terms         []string          `json:"terms,omitempty"`
	Meta          map[string]string `json:"meta,omitempty"`
	ContentHash   string            `json:"content_hash"`
	UpdatedAt     time.Time         `json:"updated_at"`
}

// ComputeHash returns the SHA256 hex digest over every migrated field.
// ContentHash and UpdatedAt are not part of the digest.
func (r *Record) ComputeHash() string {
	h := sha256.New()
	write := func(s string) {
		h.Write([]byte(strconv.Itoa(len(s))))
		h.Write([]byte{':'})
		h.Write([]byte(s))
	}

	write(strconv.FormatInt(r.ID, 10))
	write(r.Title)
	write(r.Content)
	write(r.Excerpt)
	write(r.Date.UTC().Format(timeLayout))
	write(r.Slug)
	write(r.Type)
	write(r.Status)
	write(r.FeaturedImage)
	write(strings.Join(r.Terms, "\x00"))
	// json.Marshal sorts map keys
	meta, _ := json.Marshal(r.Meta)
	write(string(meta))

	return hex.EncodeToString(h.Sum(nil))
}

// Filter narrows a List call. Zero values match everything.
type Filter struct {
	IDs    []int64
	Type   string
	Status string
	Limit  int
	Offset int
}

// Run is one persisted migration run.
type Run struct {
	ID         string
	StartedAt  time.Time
	FinishedAt time.Time
	State      string
	Summary    json.RawMessage
}
