package content

import (
	"strings"
	"unicode/utf8"

	xhtml "golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// DefaultExcerptLength is the rune limit used for derived excerpts.
const DefaultExcerptLength = 160

// PlainText returns the visible text of an HTML fragment with whitespace
// collapsed, cut at a word boundary to at most limit runes. Script and style
// bodies are dropped. A limit of zero or less disables truncation.
func PlainText(s string, limit int) string {
	z := xhtml.NewTokenizer(strings.NewReader(s))
	var (
		words []string
		skip  bool
	)
	for {
		tt := z.Next()
		if tt == xhtml.ErrorToken {
			break
		}
		switch tt {
		case xhtml.StartTagToken:
			name, _ := z.TagName()
			a := atom.Lookup(name)
			skip = a == atom.Script || a == atom.Style
		case xhtml.EndTagToken:
			skip = false
		case xhtml.TextToken:
			if !skip {
				words = append(words, strings.Fields(string(z.Text()))...)
			}
		}
	}
	return truncate(strings.Join(words, " "), limit)
}

func truncate(s string, limit int) string {
	if limit <= 0 || utf8.RuneCountInString(s) <= limit {
		return s
	}
	out, n := s, 0
	for i := range s {
		if n == limit {
			out = s[:i]
			break
		}
		n++
	}
	if sp := strings.LastIndexByte(out, ' '); sp > 0 {
		out = out[:sp]
	}
	return strings.TrimSpace(out) + "…"
}
