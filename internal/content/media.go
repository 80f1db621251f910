package content

import (
	"html"
	"path"
	"strings"

	xhtml "golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var videoExts = map[string]bool{
	".mp4": true, ".m4v": true, ".mov": true, ".webm": true,
	".ogv": true, ".avi": true, ".wmv": true, ".mkv": true,
}

// IsVideoURL reports whether u points at a video file by extension.
func IsVideoURL(u string) bool {
	u = u[:pathEnd(u)]
	return videoExts[strings.ToLower(path.Ext(u))]
}

func imgElement(src, alt string) string {
	return `<img src="` + html.EscapeString(src) + `" alt="` + html.EscapeString(alt) + `">`
}

func videoElement(src string) string {
	return `<video controls src="` + html.EscapeString(src) + `"></video>`
}

// mediaElement renders src as a video or an image depending on its type.
func mediaElement(src string) string {
	if IsVideoURL(src) {
		return videoElement(src)
	}
	return imgElement(src, "")
}

// droppedImgAttrs have no meaning on a <video> element.
var droppedImgAttrs = map[string]bool{
	"src": true, "alt": true, "srcset": true, "sizes": true, "loading": true, "decoding": true,
}

// correctTagKinds rewrites <img> elements whose source is a video into
// <video> elements. Every other token is copied byte for byte.
func correctTagKinds(s string) string {
	if !strings.Contains(strings.ToLower(s), "<img") {
		return s
	}

	z := xhtml.NewTokenizer(strings.NewReader(s))
	var (
		b        strings.Builder
		consumed int
		changed  bool
	)
	for {
		tt := z.Next()
		if tt == xhtml.ErrorToken {
			break
		}
		raw := string(z.Raw())
		consumed += len(raw)

		if tt == xhtml.StartTagToken || tt == xhtml.SelfClosingTagToken {
			tok := z.Token()
			if tok.DataAtom == atom.Img {
				if src := attrValue(tok, "src"); IsVideoURL(src) {
					b.WriteString(videoFromImg(tok, src))
					changed = true
					continue
				}
			}
		}
		b.WriteString(raw)
	}
	if !changed {
		return s
	}
	if consumed < len(s) {
		b.WriteString(s[consumed:])
	}
	return b.String()
}

func attrValue(tok xhtml.Token, key string) string {
	for _, a := range tok.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func videoFromImg(tok xhtml.Token, src string) string {
	var b strings.Builder
	b.WriteString(`<video controls src="`)
	b.WriteString(html.EscapeString(src))
	b.WriteByte('"')
	for _, a := range tok.Attr {
		if droppedImgAttrs[a.Key] {
			continue
		}
		b.WriteByte(' ')
		b.WriteString(a.Key)
		b.WriteString(`="`)
		b.WriteString(html.EscapeString(a.Val))
		b.WriteByte('"')
	}
	b.WriteString("></video>")
	return b.String()
}
