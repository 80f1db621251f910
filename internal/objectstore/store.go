package objectstore

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_object_store.go -package=mocks legacy-sync/internal/objectstore ObjectStore

import (
	"context"
	"errors"
	"io"
	"net/url"
	"path"
	"strings"
	"time"
)

var (
	// ErrNotFound is returned when an object does not exist.
	ErrNotFound = errors.New("object not found")
	// ErrInvalidKey is returned for empty keys or keys escaping the store.
	ErrInvalidKey = errors.New("invalid object key")
)

// Entry describes a stored object.
type Entry struct {
	Key     string
	Size    int64
	ModTime time.Time
}

// ObjectStore defines the interface for media object storage.
// Keys are slash separated and relative to the store root.
type ObjectStore interface {
	// PutObject stores the contents of r under key, replacing any object.
	PutObject(ctx context.Context, key string, r io.Reader, contentType string) error
	// GetObject opens an object. Returns ErrNotFound if it does not exist.
	GetObject(ctx context.Context, key string) (io.ReadCloser, error)
	// ListObjects returns every object whose key starts with prefix.
	ListObjects(ctx context.Context, prefix string) ([]Entry, error)
	// PublicURL returns the URL the object is served at.
	PublicURL(key string) string
}

// CleanKey normalises a key and rejects keys that would leave the store.
func CleanKey(key string) (string, error) {
	key = strings.TrimPrefix(strings.ReplaceAll(key, "\\", "/"), "/")
	if key == "" {
		return "", ErrInvalidKey
	}
	cleaned := path.Clean(key)
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", ErrInvalidKey
	}
	return cleaned, nil
}

// JoinURL appends key to base, escaping each path segment.
func JoinURL(base, key string) string {
	parts := strings.Split(key, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return strings.TrimSuffix(base, "/") + "/" + strings.Join(parts, "/")
}
