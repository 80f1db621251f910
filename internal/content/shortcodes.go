package content

import (
	"html"
	"regexp"
	"strconv"
	"strings"
)

// DefaultStripPrefixes are page-builder shortcode families removed after the
// specific rules ran. Text between their tags is kept.
var DefaultStripPrefixes = []string{"vc_", "et_pb_", "fusion_", "av_", "mk_", "cs_", "x_", "tatsu_", "themify_", "su_"}

var (
	attrRe       = regexp.MustCompile(`([A-Za-z_][\w-]*)\s*=\s*(?:"([^"]*)"|'([^']*)'|([^\s\]"']+))`)
	imgTagRe     = regexp.MustCompile(`(?is)(?:<a\b[^>]*>\s*)?<img\b[^>]*>(?:\s*</a>)?`)
	captionRe    = regexp.MustCompile(`(?s)\[caption\b([^\]]*)\](.*?)\[/caption\]`)
	imageRe      = regexp.MustCompile(`\[(et_pb_image|vc_single_image|av_image|mk_image|image)\b([^\]]*)\]`)
	imageFrameRe = regexp.MustCompile(`(?s)\[fusion_imageframe\b([^\]]*)\](.*?)\[/fusion_imageframe\]`)
	videoRe      = regexp.MustCompile(`(?s)\[video\b([^\]]*)\](?:\s*\[/video\])?`)
	audioRe      = regexp.MustCompile(`(?s)\[audio\b([^\]]*)\](?:\s*\[/audio\])?`)
	embedRe      = regexp.MustCompile(`(?s)\[embed\b[^\]]*\]\s*(.*?)\s*\[/embed\]`)
	galleryRe    = regexp.MustCompile(`\[gallery\b([^\]]*)\]`)
	plainURLRe   = regexp.MustCompile(`^(?:https?:)?/[^\s<>"']*$`)
	digitsRe     = regexp.MustCompile(`^\d+$`)
)

// rule converts one shortcode family into HTML.
type rule struct {
	name  string
	re    *regexp.Regexp
	apply func(m []string, ctx Context) (string, bool)
}

// rules run in this order. caption handles the wrapped <img> before the
// image-bearing builders see it.
var rules = []rule{
	{name: "caption", re: captionRe, apply: captionRule},
	{name: "image", re: imageRe, apply: imageRule},
	{name: "imageframe", re: imageFrameRe, apply: imageFrameRule},
	{name: "video", re: videoRe, apply: mediaRule("video", "src", "mp4", "m4v", "webm", "ogv", "mov")},
	{name: "audio", re: audioRe, apply: mediaRule("audio", "src", "mp3", "m4a", "ogg", "wav")},
	{name: "embed", re: embedRe, apply: embedRule},
	{name: "gallery", re: galleryRe, apply: galleryRule},
}

func applyRules(s string, ctx Context) string {
	for _, r := range rules {
		if !r.re.MatchString(s) {
			continue
		}
		s = r.re.ReplaceAllStringFunc(s, func(match string) string {
			m := r.re.FindStringSubmatch(match)
			if out, ok := r.apply(m, ctx); ok {
				return out
			}
			return match
		})
	}
	return s
}

// parseAttrs reads key=value pairs from a shortcode's attribute text.
func parseAttrs(s string) map[string]string {
	attrs := make(map[string]string)
	for _, m := range attrRe.FindAllStringSubmatch(s, -1) {
		key := strings.ToLower(m[1])
		switch {
		case m[2] != "":
			attrs[key] = m[2]
		case m[3] != "":
			attrs[key] = m[3]
		default:
			attrs[key] = m[4]
		}
	}
	return attrs
}

func first(attrs map[string]string, keys ...string) string {
	for _, k := range keys {
		if v := strings.TrimSpace(attrs[k]); v != "" {
			return v
		}
	}
	return ""
}

// resolveSource turns an attachment id or URL attribute into a URL.
func resolveSource(v string, ctx Context) (string, bool) {
	if v == "" {
		return "", false
	}
	if digitsRe.MatchString(v) {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil || ctx.AttachmentURL == nil {
			return "", false
		}
		return ctx.AttachmentURL(id)
	}
	return html.UnescapeString(v), true
}

func captionRule(m []string, _ Context) (string, bool) {
	attrs := parseAttrs(m[1])
	inner := m[2]

	img := imgTagRe.FindString(inner)
	if img == "" {
		return "", false
	}
	text := strings.TrimSpace(strings.Replace(inner, img, "", 1))
	if c := first(attrs, "caption"); c != "" && text == "" {
		text = html.EscapeString(c)
	}

	var b strings.Builder
	b.WriteString(`<figure class="wp-caption">`)
	b.WriteString(img)
	if text != "" {
		b.WriteString("<figcaption>")
		b.WriteString(text)
		b.WriteString("</figcaption>")
	}
	b.WriteString("</figure>")
	return b.String(), true
}

func imageRule(m []string, ctx Context) (string, bool) {
	attrs := parseAttrs(m[2])
	src, ok := resolveSource(first(attrs, "src", "image", "url", "image_url"), ctx)
	if !ok {
		return "", false
	}
	return imgElement(src, first(attrs, "alt", "title_text", "title")), true
}

func imageFrameRule(m []string, ctx Context) (string, bool) {
	inner := strings.TrimSpace(m[2])
	if img := imgTagRe.FindString(inner); img != "" {
		return img, true
	}
	if plainURLRe.MatchString(inner) {
		return imgElement(html.UnescapeString(inner), first(parseAttrs(m[1]), "alt")), true
	}
	attrs := parseAttrs(m[1])
	src, ok := resolveSource(first(attrs, "image_id", "src"), ctx)
	if !ok {
		return "", false
	}
	return imgElement(src, first(attrs, "alt")), true
}

func mediaRule(tag string, keys ...string) func([]string, Context) (string, bool) {
	return func(m []string, ctx Context) (string, bool) {
		src, ok := resolveSource(first(parseAttrs(m[1]), keys...), ctx)
		if !ok {
			return "", false
		}
		return "<" + tag + ` controls src="` + html.EscapeString(src) + `"></` + tag + ">", true
	}
}

func embedRule(m []string, _ Context) (string, bool) {
	u := html.UnescapeString(strings.TrimSpace(m[1]))
	if u == "" {
		return "", true
	}
	esc := html.EscapeString(u)
	return `<a href="` + esc + `">` + esc + "</a>", true
}

func galleryRule(m []string, ctx Context) (string, bool) {
	attrs := parseAttrs(m[1])
	ids := strings.Split(first(attrs, "ids", "include"), ",")

	var b strings.Builder
	for _, raw := range ids {
		id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
		if err != nil || ctx.AttachmentURL == nil {
			continue
		}
		if u, ok := ctx.AttachmentURL(id); ok {
			b.WriteString(mediaElement(u))
		}
	}
	if b.Len() == 0 {
		return "", true
	}
	return `<div class="gallery">` + b.String() + "</div>", true
}

// stripper removes every remaining shortcode tag of the configured families.
type stripper struct {
	re *regexp.Regexp
}

func newStripper(prefixes []string) *stripper {
	if len(prefixes) == 0 {
		return &stripper{}
	}
	quoted := make([]string, 0, len(prefixes))
	for _, p := range prefixes {
		if p = strings.TrimSpace(p); p != "" {
			quoted = append(quoted, regexp.QuoteMeta(p))
		}
	}
	if len(quoted) == 0 {
		return &stripper{}
	}
	return &stripper{
		re: regexp.MustCompile(`\[/?(?:` + strings.Join(quoted, "|") + `)[\w-]*(?:\s[^\]]*)?/?\]`),
	}
}

func (s *stripper) strip(in string) string {
	if s.re == nil || !strings.Contains(in, "[") {
		return in
	}
	return s.re.ReplaceAllString(in, "")
}
