package assets

import (
	"context"
	"fmt"
	"io/fs"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Candidate is a file the resolver may match a legacy reference against.
type Candidate struct {
	Path    string // Slash-separated, relative to the asset root, e.g. "2019/05/photo.jpg"
	Source  string // Local file to copy from; empty when only the object store has it
	InStore bool   // Already present in the object store

	stem string // Case-folded NFC basename without extension
}

// Index maps basenames to candidates under their discovered, NFC and NFD
// forms. It is filled once per run and only read afterwards.
type Index struct {
	byPath map[string]*Candidate
	exact  map[string][]*Candidate
	nfc    map[string][]*Candidate
	nfd    map[string][]*Candidate
	all    []*Candidate
	sorted bool
}

// NewIndex creates an empty Index.
func NewIndex() *Index {
	return &Index{
		byPath: make(map[string]*Candidate),
		exact:  make(map[string][]*Candidate),
		nfc:    make(map[string][]*Candidate),
		nfd:    make(map[string][]*Candidate),
	}
}

// Len returns the number of distinct candidate paths.
func (x *Index) Len() int {
	return len(x.byPath)
}

// Lookup returns the candidate registered at exactly rel.
func (x *Index) Lookup(rel string) (*Candidate, bool) {
	c, ok := x.byPath[rel]
	return c, ok
}

// Add registers a candidate. A path seen twice (locally and in the object
// store) is merged into one candidate.
func (x *Index) Add(c Candidate) {
	c.Path = strings.TrimPrefix(c.Path, "/")
	if existing, ok := x.byPath[c.Path]; ok {
		if existing.Source == "" {
			existing.Source = c.Source
		}
		existing.InStore = existing.InStore || c.InStore
		return
	}

	cand := &c
	base := path.Base(cand.Path)
	cand.stem = strings.ToLower(norm.NFC.String(stripExt(base)))

	x.byPath[cand.Path] = cand
	x.exact[base] = insertSorted(x.exact[base], cand)
	x.nfc[norm.NFC.String(base)] = insertSorted(x.nfc[norm.NFC.String(base)], cand)
	x.nfd[norm.NFD.String(base)] = insertSorted(x.nfd[norm.NFD.String(base)], cand)
	x.all = append(x.all, cand)
	x.sorted = false
}

// AddStored registers object-store keys, already relative to the asset prefix.
func (x *Index) AddStored(keys ...string) {
	for _, k := range keys {
		x.Add(Candidate{Path: k, InStore: true})
	}
}

// AddDir walks a local asset tree (usually <year>/<month>/<file>) and
// registers every regular file. Hidden files and directories are skipped.
func (x *Index) AddDir(ctx context.Context, root string) error {
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return fmt.Errorf("failed to access path %s: %w", p, err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if strings.HasPrefix(d.Name(), ".") && p != root {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}

		rel, err := filepath.Rel(root, p)
		if err != nil {
			return fmt.Errorf("failed to compute relative path for %s: %w", p, err)
		}
		x.Add(Candidate{Path: filepath.ToSlash(rel), Source: p})
		return nil
	})
}

// freeze orders the fuzzy candidate list. Called once the index is complete.
func (x *Index) freeze() {
	if !x.sorted {
		sort.Slice(x.all, func(i, j int) bool { return x.all[i].Path < x.all[j].Path })
		x.sorted = true
	}
}

func insertSorted(list []*Candidate, c *Candidate) []*Candidate {
	i := sort.Search(len(list), func(i int) bool { return list[i].Path >= c.Path })
	list = append(list, nil)
	copy(list[i+1:], list[i:])
	list[i] = c
	return list
}

func stripExt(name string) string {
	return strings.TrimSuffix(name, path.Ext(name))
}
