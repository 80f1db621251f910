package dump

import (
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"strings"
)

// Source opens a fresh stream over the same dump on every call, so a dump
// can be scanned more than once in a run.
type Source interface {
	Open() (io.ReadCloser, error)
	Name() string
}

// FileSource reads a dump from a file. Files ending in .gz are decompressed.
type FileSource struct {
	Path string
}

// Open opens the dump file.
func (f FileSource) Open() (io.ReadCloser, error) {
	file, err := os.Open(f.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open dump %s: %w", f.Path, err)
	}
	if !strings.HasSuffix(f.Path, ".gz") {
		return file, nil
	}

	zr, err := gzip.NewReader(file)
	if err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("failed to open gzip dump %s: %w", f.Path, err)
	}
	return &gzipFile{Reader: zr, file: file}, nil
}

// Name returns the dump path.
func (f FileSource) Name() string {
	return f.Path
}

type gzipFile struct {
	*gzip.Reader
	file *os.File
}

func (g *gzipFile) Close() error {
	zerr := g.Reader.Close()
	if err := g.file.Close(); err != nil {
		return err
	}
	return zerr
}

// StringSource serves a dump held in memory.
type StringSource string

// Open returns a reader over the string.
func (s StringSource) Open() (io.ReadCloser, error) {
	return io.NopCloser(strings.NewReader(string(s))), nil
}

// Name identifies the source in logs.
func (s StringSource) Name() string {
	return "memory"
}
