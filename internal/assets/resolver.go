package assets

import (
	"net/url"
	"path"
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// Strategy names the rule that matched a request.
type Strategy int

const (
	StrategyNone Strategy = iota
	StrategyExact
	StrategyNFC
	StrategyNFD
	StrategySuffixStripped
	StrategyFuzzy
)

func (s Strategy) String() string {
	switch s {
	case StrategyExact:
		return "exact"
	case StrategyNFC:
		return "nfcNormalized"
	case StrategyNFD:
		return "nfdNormalized"
	case StrategySuffixStripped:
		return "suffixStripped"
	case StrategyFuzzy:
		return "fuzzySubstring"
	}
	return "none"
}

// MarshalText renders the strategy name in JSON.
func (s Strategy) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// DefaultMinFuzzyLength is the shortest stem, in runes, allowed to take
// part in substring matching.
const DefaultMinFuzzyLength = 5

// resizeSuffix matches the dimension suffix image pipelines append before
// the extension ("photo-150x150.jpg"), and the "-scaled" big-image variant.
var resizeSuffix = regexp.MustCompile(`-(?:\d+x\d+|scaled)(\.[^./]+)$`)

// Resolution is the outcome of one Resolve call.
type Resolution struct {
	Candidate *Candidate
	Strategy  Strategy
}

// Matched reports whether a candidate was found.
func (r Resolution) Matched() bool {
	return r.Candidate != nil
}

// MatchedPath returns the matched candidate path, or "" when nothing matched.
func (r Resolution) MatchedPath() string {
	if r.Candidate == nil {
		return ""
	}
	return r.Candidate.Path
}

// Resolver finds the candidate behind a legacy file reference.
type Resolver struct {
	index          *Index
	minFuzzyLength int
}

// NewResolver creates a Resolver over a complete index. The index must not
// be modified afterwards.
func NewResolver(index *Index, minFuzzyLength int) *Resolver {
	if minFuzzyLength <= 0 {
		minFuzzyLength = DefaultMinFuzzyLength
	}
	index.freeze()
	return &Resolver{index: index, minFuzzyLength: minFuzzyLength}
}

// Resolve matches a requested relative path or file name. Strategies are
// tried in order and the first hit wins: exact, NFC, NFD, resize suffix
// stripped, then fuzzy substring.
func (r *Resolver) Resolve(requested string) Resolution {
	if decoded, err := url.PathUnescape(requested); err == nil {
		requested = decoded
	}
	requested = strings.TrimPrefix(requested, "/")
	dir, name := path.Split(requested)
	if name == "" {
		return Resolution{Strategy: StrategyNone}
	}
	dir = strings.TrimSuffix(dir, "/")

	if c, s := r.match(name, dir); c != nil {
		return Resolution{Candidate: c, Strategy: s}
	}

	stripped := resizeSuffix.ReplaceAllString(name, "$1")
	if stripped != name {
		if c, _ := r.match(stripped, dir); c != nil {
			return Resolution{Candidate: c, Strategy: StrategySuffixStripped}
		}
	}

	if c := r.fuzzy(stripped, dir); c != nil {
		return Resolution{Candidate: c, Strategy: StrategyFuzzy}
	}
	return Resolution{Strategy: StrategyNone}
}

func (r *Resolver) match(name, dir string) (*Candidate, Strategy) {
	if c := pick(r.index.exact[name], dir); c != nil {
		return c, StrategyExact
	}
	if c := pick(r.index.nfc[norm.NFC.String(name)], dir); c != nil {
		return c, StrategyNFC
	}
	if c := pick(r.index.nfd[norm.NFD.String(name)], dir); c != nil {
		return c, StrategyNFD
	}
	return nil, StrategyNone
}

// fuzzy returns the candidate whose stem contains, or is contained in, the
// requested stem. Both stems must reach the minimum length. Among several
// hits the closest by edit distance wins, then the one in the requested
// directory, then the first by path.
func (r *Resolver) fuzzy(name, dir string) *Candidate {
	stem := strings.ToLower(norm.NFC.String(stripExt(name)))
	if utf8.RuneCountInString(stem) < r.minFuzzyLength {
		return nil
	}

	var (
		best     *Candidate
		bestDist int
		bestDir  bool
	)
	for _, c := range r.index.all {
		if utf8.RuneCountInString(c.stem) < r.minFuzzyLength {
			continue
		}
		if !strings.Contains(c.stem, stem) && !strings.Contains(stem, c.stem) {
			continue
		}
		dist := levenshtein(c.stem, stem)
		sameDir := sameDirectory(c.Path, dir)
		if best == nil || dist < bestDist || (dist == bestDist && sameDir && !bestDir) {
			best, bestDist, bestDir = c, dist, sameDir
		}
	}
	return best
}

// pick prefers the candidate in the requested directory, then the first by path.
func pick(list []*Candidate, dir string) *Candidate {
	if len(list) == 0 {
		return nil
	}
	for _, c := range list {
		if sameDirectory(c.Path, dir) {
			return c
		}
	}
	return list[0]
}

func sameDirectory(candidatePath, dir string) bool {
	candidateDir := path.Dir(candidatePath)
	if candidateDir == "." {
		candidateDir = ""
	}
	return norm.NFC.String(candidateDir) == norm.NFC.String(dir)
}
