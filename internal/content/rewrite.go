package content

import (
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"legacy-sync/internal/assets"
)

// ErrUnsafeTarget is returned when the public URL of the target store would
// itself be matched by a legacy prefix, which would make rewriting
// non-idempotent.
var ErrUnsafeTarget = errors.New("target url contains a legacy prefix")

// AssetRef is one legacy asset reference found while rewriting.
type AssetRef struct {
	LegacyURL  string
	RelPath    string // Decoded path relative to the uploads root
	TargetURL  string // Empty when the reference was left untouched
	Resolution assets.Resolution
}

// Rewritten reports whether the reference was replaced.
func (a AssetRef) Rewritten() bool {
	return a.TargetURL != ""
}

// Rewriter replaces legacy upload URLs with object-store URLs.
type Rewriter struct {
	prefixes  []string
	publicURL func(rel string) string
	resolver  *assets.Resolver
}

// LegacyPrefixes expands domains and the uploads path into every historical
// URL form, longest first: with scheme, without scheme, bare host, then
// root-relative.
func LegacyPrefixes(domains []string, uploadsPath string) []string {
	uploads := "/" + strings.Trim(uploadsPath, "/") + "/"

	seen := make(map[string]bool)
	var out []string
	add := func(p string) {
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	for _, d := range domains {
		host := strings.TrimSpace(d)
		host = strings.TrimPrefix(strings.TrimPrefix(host, "https://"), "http://")
		host = strings.TrimPrefix(strings.TrimSuffix(host, "/"), "www.")
		if host == "" {
			continue
		}
		for _, h := range []string{"www." + host, host} {
			add("https://" + h + uploads)
			add("http://" + h + uploads)
			add("//" + h + uploads)
			add(h + uploads)
		}
	}
	add(uploads)

	sort.SliceStable(out, func(i, j int) bool { return len(out[i]) > len(out[j]) })
	return out
}

// NewRewriter creates a Rewriter. publicURL maps an uploads-relative path to
// its target URL. With a resolver, only references that resolve to a
// candidate are rewritten, to the candidate's path.
func NewRewriter(prefixes []string, publicURL func(rel string) string, resolver *assets.Resolver) (*Rewriter, error) {
	if len(prefixes) == 0 {
		return nil, fmt.Errorf("at least one legacy prefix is required")
	}
	r := &Rewriter{
		prefixes:  append([]string(nil), prefixes...),
		publicURL: publicURL,
		resolver:  resolver,
	}
	sort.SliceStable(r.prefixes, func(i, j int) bool { return len(r.prefixes[i]) > len(r.prefixes[j]) })

	probe := publicURL("probe.jpg")
	if _, refs := r.scan(probe, false); len(refs) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrUnsafeTarget, probe)
	}
	return r, nil
}

// Rewrite replaces every legacy reference in s. Each position is tried
// against the longest prefix first, so already-rewritten URLs never match.
func (r *Rewriter) Rewrite(s string) (string, []AssetRef) {
	return r.scan(s, true)
}

// RelPath returns the uploads-relative path of a legacy URL.
func (r *Rewriter) RelPath(u string) (string, bool) {
	for _, p := range r.prefixes {
		if strings.HasPrefix(u, p) {
			rel := u[len(p):]
			rel = rel[:pathEnd(rel)]
			if rel == "" {
				return "", false
			}
			return rel, true
		}
	}
	return "", false
}

func (r *Rewriter) scan(s string, rewrite bool) (string, []AssetRef) {
	var (
		b    strings.Builder
		refs []AssetRef
		last int
	)
	for i := 0; i < len(s); i++ {
		if i > 0 && isURLByte(s[i-1]) {
			continue
		}
		p := r.prefixAt(s, i)
		if p == "" {
			continue
		}
		end := i + len(p) + pathEnd(s[i+len(p):])
		raw := s[i+len(p) : end]
		if raw == "" {
			continue
		}

		ref := r.resolve(s[i:end], raw)
		refs = append(refs, ref)
		if rewrite && ref.Rewritten() {
			b.WriteString(s[last:i])
			b.WriteString(ref.TargetURL)
			last = end
		}
		i = end - 1
	}
	if !rewrite || last == 0 {
		return s, refs
	}
	b.WriteString(s[last:])
	return b.String(), refs
}

func (r *Rewriter) prefixAt(s string, i int) string {
	for _, p := range r.prefixes {
		if strings.HasPrefix(s[i:], p) {
			return p
		}
	}
	return ""
}

func (r *Rewriter) resolve(legacy, raw string) AssetRef {
	rel := raw
	if decoded, err := url.PathUnescape(raw); err == nil {
		rel = decoded
	}
	ref := AssetRef{LegacyURL: legacy, RelPath: rel}

	if r.resolver == nil {
		ref.TargetURL = r.publicURL(rel)
		return ref
	}
	ref.Resolution = r.resolver.Resolve(rel)
	if ref.Resolution.Matched() {
		ref.TargetURL = r.publicURL(ref.Resolution.MatchedPath())
	}
	return ref
}

// pathEnd returns the length of the URL path at the start of s.
func pathEnd(s string) int {
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case '"', '\'', '<', '>', '(', ')', '[', ']', '?', '#', '\\', ' ', '\t', '\n', '\r':
			return i
		}
	}
	return len(s)
}

func isURLByte(c byte) bool {
	switch {
	case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		return true
	}
	return strings.IndexByte("-._~%+/:@", c) >= 0
}
