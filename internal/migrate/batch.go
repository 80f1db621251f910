package migrate

import (
	"context"
	"fmt"
	"mime"
	"os"
	"path"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"legacy-sync/internal/content"
	"legacy-sync/internal/contextutil"
	"legacy-sync/internal/relations"
	"legacy-sync/internal/rows"
	"legacy-sync/internal/storage"
)

// termTaxonomies are the taxonomies attached to migrated records.
var termTaxonomies = []string{"category", "post_tag"}

// CollectionFor returns the target collection of a post type.
func CollectionFor(t rows.PostType) string {
	switch t {
	case rows.TypePost:
		return "posts"
	case rows.TypePage:
		return "pages"
	case rows.TypeNavMenuItem:
		return "menu_items"
	}
	return string(t)
}

// prepared is one transformed record waiting to be written.
type prepared struct {
	collection string
	record     *storage.Record
	assets     []content.AssetRef // Rewritten references that may need mirroring
}

// processBatch transforms, mirrors and upserts one batch. Failures are
// recorded in the summary and never stop the run. Writes use a context that
// ignores cancellation so a started batch is never left half-written.
func (r *run) processBatch(ctx context.Context, posts []*rows.Post) {
	logger := contextutil.LoggerFromContext(ctx)
	writeCtx := context.WithoutCancel(ctx)

	r.transition(StateTransforming)
	items := make([]prepared, 0, len(posts))
	for _, p := range posts {
		items = append(items, r.prepare(p))
	}

	if r.opts.MirrorAssets {
		if err := r.mirror(writeCtx, items); err != nil {
			err = WrapError(KindWrite, "mirror assets", err)
			logger.ErrorContext(ctx, "batch failed", "batch", describeBatch(posts), "error", err)
			r.sum.addFailure(BatchFailure{
				Stage:   "mirror",
				FirstID: posts[0].ID,
				LastID:  posts[len(posts)-1].ID,
				Records: len(posts),
				Error:   err.Error(),
			})
			return
		}
	}

	r.transition(StateUpserting)
	var order []string
	groups := make(map[string][]*storage.Record)
	for _, it := range items {
		if _, ok := groups[it.collection]; !ok {
			order = append(order, it.collection)
		}
		groups[it.collection] = append(groups[it.collection], it.record)
	}
	for _, collection := range order {
		r.upsert(writeCtx, collection, groups[collection])
	}
}

// prepare builds the target record of a post.
func (r *run) prepare(p *rows.Post) prepared {
	res := r.transformer.Transform(p.Content, content.Context{
		AttachmentURL: r.idx.AttachmentURL,
		Media:         r.media(p),
	})
	refs := res.Assets
	if res.Changed {
		r.sum.Transformed++
	}

	rec := &storage.Record{
		ID:      p.ID,
		Title:   p.Title,
		Content: res.Content,
		Excerpt: r.excerpt(p, res.Content),
		Date:    p.DateLocal,
		Slug:    p.Slug,
		Type:    string(p.Type),
		Status:  string(p.Status),
		Terms:   r.terms(p.ID),
		Meta:    r.meta(p),
	}
	if p.Type == rows.TypeNavMenuItem && rec.Meta["label"] != "" {
		rec.Title = rec.Meta["label"]
	}

	featuredRewritten := false
	for _, img := range r.idx.PostImages(p.ID, nil) {
		if img.Site != relations.SiteThumbnail {
			continue
		}
		u, frefs := r.rewriter.Rewrite(img.URL)
		rec.FeaturedImage = u
		featuredRewritten = u != img.URL
		refs = append(refs, frefs...)
		break
	}

	r.countAssets(p.ID, refs)

	it := prepared{collection: CollectionFor(p.Type), record: rec}
	if res.Changed || featuredRewritten {
		for _, ref := range refs {
			if ref.Rewritten() {
				it.assets = append(it.assets, ref)
			}
		}
	}
	return it
}

// media lists child attachments and gallery images to merge into the body.
// The featured image is kept out of the body.
func (r *run) media(p *rows.Post) []content.Media {
	var thumbnail int64
	var media []content.Media
	for _, img := range r.idx.PostImages(p.ID, r.opts.GalleryKeys) {
		if img.Site == relations.SiteThumbnail {
			thumbnail = img.AttachmentID
			continue
		}
		media = append(media, content.Media{URL: img.URL})
	}
	for _, a := range r.idx.Attachments(p.ID) {
		if a.ID == thumbnail {
			continue
		}
		if u, ok := r.idx.AttachmentURL(a.ID); ok {
			media = append(media, content.Media{URL: u, Caption: strings.TrimSpace(a.Excerpt)})
		}
	}
	return media
}

// excerpt prefers the post's own excerpt, then the SEO description, then
// the start of the transformed body as plain text.
func (r *run) excerpt(p *rows.Post, body string) string {
	if e := strings.TrimSpace(p.Excerpt); e != "" {
		return e
	}
	if d, ok := r.idx.Meta(p.ID, relations.MetaSEODescription); ok && strings.TrimSpace(d) != "" {
		return strings.TrimSpace(d)
	}
	return content.PlainText(body, r.opts.ExcerptLength)
}

func (r *run) terms(id int64) []string {
	var out []string
	for _, tax := range termTaxonomies {
		for _, t := range r.idx.TermsOf(id, tax) {
			out = append(out, tax+":"+t.Slug)
		}
	}
	return out
}

func (r *run) meta(p *rows.Post) map[string]string {
	meta := make(map[string]string)
	if parent, ok := r.idx.ParentOf(p.ID); ok {
		meta["parent_id"] = strconv.FormatInt(parent, 10)
	}
	if p.MenuOrder != 0 {
		meta["menu_order"] = strconv.Itoa(p.MenuOrder)
	}
	if p.Type == rows.TypeNavMenuItem {
		if item, ok := r.idx.MenuItem(p); ok {
			meta["menu"] = item.Menu
			meta["menu_name"] = item.MenuName
			meta["label"] = item.Label
			meta["kind"] = item.Kind
			meta["object"] = item.Object
			meta["object_slug"] = item.ObjectSlug
			if item.ObjectID != 0 {
				meta["object_id"] = strconv.FormatInt(item.ObjectID, 10)
			}
			if item.ParentItem != 0 {
				meta["parent_item"] = strconv.FormatInt(item.ParentItem, 10)
			}
			if item.URL != "" {
				meta["url"] = item.URL
			}
		}
	}
	if len(meta) == 0 {
		return nil
	}
	return meta
}

func (r *run) countAssets(recordID int64, refs []content.AssetRef) {
	for _, ref := range refs {
		if !ref.Rewritten() {
			r.sum.addUnresolved(recordID, ref.LegacyURL)
			continue
		}
		r.sum.AssetsRewritten++
		if s := ref.Resolution.Strategy; ref.Resolution.Matched() {
			r.sum.Strategies[s.String()]++
		}
	}
}

// mirror uploads the local files behind rewritten references that the
// object store does not hold yet, with bounded concurrency.
func (r *run) mirror(ctx context.Context, items []prepared) error {
	type upload struct {
		key    string
		source string
	}

	var uploads []upload
	seen := make(map[string]bool)
	for _, it := range items {
		for _, ref := range it.assets {
			c := ref.Resolution.Candidate
			if c == nil || c.InStore || c.Source == "" {
				continue
			}
			key := r.objectKey(c.Path)
			if r.mirrored[key] || seen[key] {
				continue
			}
			seen[key] = true
			uploads = append(uploads, upload{key: key, source: c.Source})
		}
	}
	if len(uploads) == 0 {
		return nil
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.opts.UploadConcurrency)
	for _, u := range uploads {
		g.Go(func() error {
			err := r.upload(gctx, u.key, u.source)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				r.sum.MirrorFailures++
				return err
			}
			r.mirrored[u.key] = true
			r.sum.AssetsMirrored++
			return nil
		})
	}
	return g.Wait()
}

func (r *run) upload(ctx context.Context, key, source string) error {
	f, err := os.Open(source)
	if err != nil {
		return fmt.Errorf("failed to open asset %s: %w", source, err)
	}
	defer func() {
		_ = f.Close()
	}()

	if err := r.objects.PutObject(ctx, key, f, mime.TypeByExtension(path.Ext(key))); err != nil {
		return fmt.Errorf("failed to upload %s: %w", key, err)
	}
	contextutil.LoggerFromContext(ctx).DebugContext(ctx, "mirrored asset", "key", key)
	return nil
}

// upsert writes the records of one collection whose hash differs from the
// stored version. Unchanged records are not written again.
func (r *run) upsert(ctx context.Context, collection string, recs []*storage.Record) {
	logger := contextutil.LoggerFromContext(ctx)
	first, last := recs[0].ID, recs[len(recs)-1].ID

	fail := func(err error, n int) {
		err = WrapError(KindWrite, "upsert "+collection, err)
		logger.ErrorContext(ctx, "batch failed", "collection", collection, "first_id", first, "last_id", last, "error", err)
		r.sum.addFailure(BatchFailure{
			Stage:      "upsert",
			Collection: collection,
			FirstID:    first,
			LastID:     last,
			Records:    n,
			Error:      err.Error(),
		})
	}

	ids := make([]int64, len(recs))
	for i, rec := range recs {
		ids[i] = rec.ID
	}
	existing, err := r.records.List(ctx, collection, storage.Filter{IDs: ids})
	if err != nil {
		fail(err, len(recs))
		return
	}
	stored := make(map[int64]string, len(existing))
	for _, e := range existing {
		stored[e.ID] = e.ContentHash
	}

	changed := make([]*storage.Record, 0, len(recs))
	for _, rec := range recs {
		rec.ContentHash = rec.ComputeHash()
		if stored[rec.ID] == rec.ContentHash {
			r.sum.Unchanged++
			continue
		}
		changed = append(changed, rec)
	}
	if len(changed) == 0 {
		logger.DebugContext(ctx, "batch unchanged", "collection", collection, "first_id", first, "last_id", last)
		return
	}

	if err := r.records.Upsert(ctx, collection, changed); err != nil {
		fail(err, len(changed))
		return
	}
	r.sum.Written += len(changed)
	logger.InfoContext(ctx, "batch written", "collection", collection, "first_id", first, "last_id", last, "written", len(changed))
}

func describeBatch(posts []*rows.Post) string {
	return fmt.Sprintf("ids %d..%d", posts[0].ID, posts[len(posts)-1].ID)
}
