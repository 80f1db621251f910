package dump

import (
	"compress/gzip"
	"io"
	"os"
	"path/filepath"
	"testing"
)

func TestFileSource_Open(t *testing.T) {
	const content = "INSERT INTO `wp_posts` VALUES (1,'x');"
	tmpDir := t.TempDir()

	plain := filepath.Join(tmpDir, "dump.sql")
	if err := os.WriteFile(plain, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write dump: %v", err)
	}

	gzPath := filepath.Join(tmpDir, "dump.sql.gz")
	f, err := os.Create(gzPath)
	if err != nil {
		t.Fatalf("Failed to create gzip dump: %v", err)
	}
	zw := gzip.NewWriter(f)
	if _, err := zw.Write([]byte(content)); err != nil {
		t.Fatalf("Failed to write gzip dump: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("Failed to close gzip writer: %v", err)
	}
	_ = f.Close()

	tests := []struct {
		name    string
		path    string
		wantErr bool
	}{
		{name: "plain file", path: plain},
		{name: "gzip file", path: gzPath},
		{name: "missing file", path: filepath.Join(tmpDir, "missing.sql"), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := FileSource{Path: tt.path}
			rc, err := src.Open()
			if tt.wantErr {
				if err == nil {
					t.Fatal("Open() expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("Open() error = %v", err)
			}
			defer func() {
				_ = rc.Close()
			}()

			data, err := io.ReadAll(rc)
			if err != nil {
				t.Fatalf("ReadAll() error = %v", err)
			}
			if string(data) != content {
				t.Errorf("Open() content = %q, want %q", data, content)
			}
			if src.Name() != tt.path {
				t.Errorf("Name() = %v, want %v", src.Name(), tt.path)
			}
		})
	}
}

func TestStringSource_Open(t *testing.T) {
	src := StringSource("abc")
	for i := 0; i < 2; i++ {
		rc, err := src.Open()
		if err != nil {
			t.Fatalf("Open() error = %v", err)
		}
		data, _ := io.ReadAll(rc)
		if string(data) != "abc" {
			t.Errorf("Open() content = %q, want abc", data)
		}
	}
}
