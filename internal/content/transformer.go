package content

import (
	"html"
	"net/url"
	"strings"
)

// Media is an attachment or gallery image to merge into a record.
type Media struct {
	URL     string
	Caption string
}

// Context carries the per-record lookups the transformer needs.
type Context struct {
	// AttachmentURL resolves an attachment id referenced by a shortcode.
	AttachmentURL func(id int64) (string, bool)
	// Media is appended to the content unless already referenced by it.
	Media []Media
}

// Result is the outcome of transforming one record's content.
type Result struct {
	Content string
	Changed bool
	Assets  []AssetRef
}

// Unresolved returns the legacy references that were left untouched.
func (r Result) Unresolved() []AssetRef {
	var out []AssetRef
	for _, a := range r.Assets {
		if !a.Rewritten() {
			out = append(out, a)
		}
	}
	return out
}

// Transformer converts legacy post bodies into clean HTML for the target
// store. Passes run in a fixed order: shortcode rules, generic shortcode
// stripping, URL rewriting, attachment merging, then tag-kind correction.
// Running it on its own output leaves the content unchanged.
type Transformer struct {
	strip    *stripper
	rewriter *Rewriter
}

// NewTransformer creates a Transformer. rewriter may be nil to keep URLs.
func NewTransformer(rewriter *Rewriter, stripPrefixes []string) *Transformer {
	return &Transformer{
		strip:    newStripper(stripPrefixes),
		rewriter: rewriter,
	}
}

// Rewriter returns the URL rewriter, if any.
func (t *Transformer) Rewriter() *Rewriter {
	return t.rewriter
}

// Transform runs every pass over s.
func (t *Transformer) Transform(s string, ctx Context) Result {
	out := applyRules(s, ctx)
	out = t.strip.strip(out)

	var refs []AssetRef
	if t.rewriter != nil {
		out, refs = t.rewriter.Rewrite(out)
	}
	out, mediaRefs := t.merge(out, ctx.Media)
	refs = append(refs, mediaRefs...)
	out = correctTagKinds(out)

	return Result{
		Content: out,
		Changed: out != s,
		Assets:  refs,
	}
}

// merge appends media not already referenced by the rewritten body s. Each
// media URL is rewritten first, so two legacy names resolving to the same
// file count as one.
func (t *Transformer) merge(s string, media []Media) (string, []AssetRef) {
	if len(media) == 0 {
		return s, nil
	}

	seen := make(map[string]bool, len(media))
	var (
		b    strings.Builder
		refs []AssetRef
	)
	b.WriteString(s)
	for _, m := range media {
		if m.URL == "" {
			continue
		}
		target := m.URL
		var found []AssetRef
		if t.rewriter != nil {
			target, found = t.rewriter.Rewrite(m.URL)
		}
		key := t.mediaKey(target)
		if seen[key] || t.referenced(s, target, key) {
			continue
		}
		seen[key] = true
		refs = append(refs, found...)

		b.WriteString("\n")
		if m.Caption == "" {
			b.WriteString(mediaElement(target))
			continue
		}
		b.WriteString("<figure>")
		b.WriteString(mediaElement(target))
		b.WriteString("<figcaption>")
		b.WriteString(html.EscapeString(m.Caption))
		b.WriteString("</figcaption></figure>")
	}
	return b.String(), refs
}

// mediaKey is the uploads-relative path of a legacy URL, or the URL itself.
func (t *Transformer) mediaKey(u string) string {
	if t.rewriter != nil {
		if rel, ok := t.rewriter.RelPath(u); ok {
			return rel
		}
	}
	return u
}

func (t *Transformer) referenced(s, u, key string) bool {
	if strings.Contains(s, key) || strings.Contains(s, html.EscapeString(u)) {
		return true
	}
	if decoded, err := url.PathUnescape(key); err == nil && decoded != key && strings.Contains(s, decoded) {
		return true
	}
	if escaped := escapePath(key); escaped != key && strings.Contains(s, escaped) {
		return true
	}
	return false
}

// escapePath percent-encodes each segment of a slash separated path.
func escapePath(p string) string {
	parts := strings.Split(p, "/")
	for i, part := range parts {
		parts[i] = url.PathEscape(part)
	}
	return strings.Join(parts, "/")
}
