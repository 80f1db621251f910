package assets

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/text/unicode/norm"
)

func newResolver(paths ...string) *Resolver {
	idx := NewIndex()
	for _, p := range paths {
		idx.Add(Candidate{Path: p, Source: "/src/" + p})
	}
	return NewResolver(idx, DefaultMinFuzzyLength)
}

func TestResolver_Precedence(t *testing.T) {
	cafe := norm.NFC.String("café.jpg")
	r := newResolver("2019/05/"+cafe, "2019/05/holiday-at-the-beach.jpg", "2019/05/a.jpg", "2020/01/photo.png")

	tests := []struct {
		name         string
		requested    string
		wantPath     string
		wantStrategy Strategy
	}{
		{
			name:         "exact",
			requested:    "2019/05/" + cafe,
			wantPath:     "2019/05/" + cafe,
			wantStrategy: StrategyExact,
		},
		{
			name:         "NFD request resolves through normalization",
			requested:    "2019/05/" + norm.NFD.String("café.jpg"),
			wantPath:     "2019/05/" + cafe,
			wantStrategy: StrategyNFC,
		},
		{
			name:         "percent-encoded request is decoded first",
			requested:    "2019/05/caf%C3%A9.jpg",
			wantPath:     "2019/05/" + cafe,
			wantStrategy: StrategyExact,
		},
		{
			name:         "resize suffix stripped",
			requested:    "2019/05/" + norm.NFC.String("café-150x150.jpg"),
			wantPath:     "2019/05/" + cafe,
			wantStrategy: StrategySuffixStripped,
		},
		{
			name:         "resize suffix stripped on NFD request",
			requested:    norm.NFD.String("café-1024x768.jpg"),
			wantPath:     "2019/05/" + cafe,
			wantStrategy: StrategySuffixStripped,
		},
		{
			name:         "scaled variant stripped",
			requested:    "2020/01/photo-scaled.png",
			wantPath:     "2020/01/photo.png",
			wantStrategy: StrategySuffixStripped,
		},
		{
			name:         "fuzzy substring",
			requested:    "2019/05/holiday-at-the-beach-edited.jpg",
			wantPath:     "2019/05/holiday-at-the-beach.jpg",
			wantStrategy: StrategyFuzzy,
		},
		{
			name:         "fuzzy is case-insensitive and tolerates a shorter request",
			requested:    "Holiday-At-The.jpeg",
			wantPath:     "2019/05/holiday-at-the-beach.jpg",
			wantStrategy: StrategyFuzzy,
		},
		{
			name:         "no match",
			requested:    "2019/05/unrelated-file-name.pdf",
			wantStrategy: StrategyNone,
		},
		{
			name:         "empty name",
			requested:    "2019/05/",
			wantStrategy: StrategyNone,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := r.Resolve(tt.requested)
			if got.Strategy != tt.wantStrategy {
				t.Errorf("Resolve(%q).Strategy = %v, want %v", tt.requested, got.Strategy, tt.wantStrategy)
			}
			if got.MatchedPath() != tt.wantPath {
				t.Errorf("Resolve(%q).MatchedPath() = %q, want %q", tt.requested, got.MatchedPath(), tt.wantPath)
			}
			if got.Matched() != (tt.wantPath != "") {
				t.Errorf("Resolve(%q).Matched() = %v", tt.requested, got.Matched())
			}
		})
	}
}

func TestResolver_FuzzyLowerBound(t *testing.T) {
	r := newResolver("2019/05/banana.jpg", "2019/05/ab.jpg")

	for _, requested := range []string{"a.jpg", "2019/05/nan.jpg", "b.jpg"} {
		t.Run(requested, func(t *testing.T) {
			got := r.Resolve(requested)
			if got.Strategy != StrategyNone || got.Matched() {
				t.Errorf("Resolve(%q) = %v %q, want no match", requested, got.Strategy, got.MatchedPath())
			}
		})
	}
}

func TestResolver_PrefersRequestedDirectory(t *testing.T) {
	r := newResolver("2018/01/logo.png", "2019/05/logo.png")

	if got := r.Resolve("2019/05/logo.png").MatchedPath(); got != "2019/05/logo.png" {
		t.Errorf("Resolve() = %q, want 2019/05/logo.png", got)
	}
	if got := r.Resolve("2017/03/logo.png").MatchedPath(); got != "2018/01/logo.png" {
		t.Errorf("Resolve() from another directory = %q, want first by path", got)
	}
	if got := r.Resolve("2019/05/logo-300x200.png").MatchedPath(); got != "2019/05/logo.png" {
		t.Errorf("Resolve() stripped = %q, want 2019/05/logo.png", got)
	}
}

func TestResolver_FuzzyPicksClosest(t *testing.T) {
	r := newResolver("2019/05/sunset-over-lake-final.jpg", "2019/05/sunset-over-lake.jpg")

	got := r.Resolve("2019/05/sunset-over-lake-v2.jpg")
	if got.Strategy != StrategyFuzzy || got.MatchedPath() != "2019/05/sunset-over-lake.jpg" {
		t.Errorf("Resolve() = %v %q, want fuzzy sunset-over-lake.jpg", got.Strategy, got.MatchedPath())
	}
}

func TestIndex_AddDirAndStored(t *testing.T) {
	root := t.TempDir()
	files := []string{"2019/05/a-photo.jpg", "2019/06/b-photo.jpg", ".cache/skip.jpg", "2019/05/.DS_Store"}
	for _, f := range files {
		full := filepath.Join(root, filepath.FromSlash(f))
		if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
			t.Fatalf("Failed to create dir: %v", err)
		}
		if err := os.WriteFile(full, []byte("x"), 0644); err != nil {
			t.Fatalf("Failed to create file: %v", err)
		}
	}

	idx := NewIndex()
	if err := idx.AddDir(context.Background(), root); err != nil {
		t.Fatalf("AddDir() error = %v", err)
	}
	idx.AddStored("2019/05/a-photo.jpg", "2021/01/remote-only.jpg")

	if idx.Len() != 3 {
		t.Errorf("Len() = %d, want 3", idx.Len())
	}

	merged, ok := idx.Lookup("2019/05/a-photo.jpg")
	if !ok {
		t.Fatal("Lookup(a-photo) not found")
	}
	if !merged.InStore || merged.Source != filepath.Join(root, "2019", "05", "a-photo.jpg") {
		t.Errorf("merged candidate = %+v, want local source and InStore", merged)
	}

	remote, ok := idx.Lookup("2021/01/remote-only.jpg")
	if !ok || remote.Source != "" || !remote.InStore {
		t.Errorf("remote candidate = %+v, %v", remote, ok)
	}
	if _, ok := idx.Lookup(".cache/skip.jpg"); ok {
		t.Error("hidden directory should be skipped")
	}
}

func TestIndex_AddDirCancelled(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "a.jpg"), []byte("x"), 0644); err != nil {
		t.Fatalf("Failed to create file: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := NewIndex().AddDir(ctx, root); err == nil {
		t.Error("AddDir() with cancelled context expected error, got nil")
	}
}

func TestStrategy_String(t *testing.T) {
	names := map[Strategy]string{
		StrategyNone:           "none",
		StrategyExact:          "exact",
		StrategyNFC:            "nfcNormalized",
		StrategyNFD:            "nfdNormalized",
		StrategySuffixStripped: "suffixStripped",
		StrategyFuzzy:          "fuzzySubstring",
	}
	for s, want := range names {
		if got := s.String(); got != want {
			t.Errorf("Strategy(%d).String() = %v, want %v", int(s), got, want)
		}
	}
}

func TestLevenshtein(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"abc", "", 3},
		{"kitten", "sitting", 3},
		{"café", "cafe", 1},
		{"photo", "photo-v2", 3},
	}
	for _, tt := range tests {
		t.Run(tt.a+"_"+tt.b, func(t *testing.T) {
			if got := levenshtein(tt.a, tt.b); got != tt.want {
				t.Errorf("levenshtein(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
			}
			if got := levenshtein(tt.b, tt.a); got != tt.want {
				t.Errorf("levenshtein symmetry failed for (%q, %q)", tt.b, tt.a)
			}
		})
	}
}
