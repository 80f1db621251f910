package objectstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

const tempPrefix = ".upload-"

// LocalStore keeps objects in a directory tree and serves them from a base
// URL, typically a CDN or static file server in front of the directory.
// It implements the ObjectStore interface. contentType is not persisted.
type LocalStore struct {
	root    string
	baseURL string
}

// NewLocalStore creates a LocalStore rooted at root, creating it if needed.
func NewLocalStore(root, baseURL string) (*LocalStore, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("public base url is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create object store root: %w", err)
	}
	return &LocalStore{root: root, baseURL: strings.TrimSuffix(baseURL, "/")}, nil
}

func (s *LocalStore) pathFor(key string) (string, string, error) {
	cleaned, err := CleanKey(key)
	if err != nil {
		return "", "", fmt.Errorf("%w: %q", err, key)
	}
	return cleaned, filepath.Join(s.root, filepath.FromSlash(cleaned)), nil
}

// PutObject writes the object through a temporary file and renames it into
// place, so readers never see a partial object.
func (s *LocalStore) PutObject(ctx context.Context, key string, r io.Reader, contentType string) error {
	_, dst, err := s.pathFor(key)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("failed to create object directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dst), tempPrefix+"*")
	if err != nil {
		return fmt.Errorf("failed to create temp object: %w", err)
	}
	defer func() {
		_ = os.Remove(tmp.Name())
	}()

	if _, err := io.Copy(tmp, r); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write object %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close object %s: %w", key, err)
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		return fmt.Errorf("failed to publish object %s: %w", key, err)
	}
	return nil
}

// GetObject opens an object for reading.
func (s *LocalStore) GetObject(ctx context.Context, key string) (io.ReadCloser, error) {
	_, p, err := s.pathFor(key)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open object %s: %w", key, err)
	}
	return f, nil
}

// ListObjects walks the tree and returns entries in key order.
func (s *LocalStore) ListObjects(ctx context.Context, prefix string) ([]Entry, error) {
	var entries []Entry
	err := filepath.WalkDir(s.root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() || strings.HasPrefix(d.Name(), tempPrefix) {
			return nil
		}

		rel, err := filepath.Rel(s.root, p)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		if !strings.HasPrefix(key, prefix) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}
		entries = append(entries, Entry{Key: key, Size: info.Size(), ModTime: info.ModTime()})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list objects: %w", err)
	}
	return entries, nil
}

// PublicURL returns baseURL joined with the escaped key.
func (s *LocalStore) PublicURL(key string) string {
	if cleaned, err := CleanKey(key); err == nil {
		key = cleaned
	}
	return JoinURL(s.baseURL, key)
}
