package migrate

import (
	"context"
	"path"
	"strings"
	"sync/atomic"
	"time"

	"legacy-sync/internal/assets"
	"legacy-sync/internal/content"
	"legacy-sync/internal/contextutil"
	"legacy-sync/internal/dump"
	"legacy-sync/internal/objectstore"
	"legacy-sync/internal/relations"
	"legacy-sync/internal/rows"
	"legacy-sync/internal/storage"
)

// DefaultBatchSize is the number of records written per target store call.
const DefaultBatchSize = 50

// DefaultUploadConcurrency bounds concurrent object uploads within a batch.
const DefaultUploadConcurrency = 4

// Options configures a Pipeline.
type Options struct {
	Tables       rows.Tables
	PostTypes    []rows.PostType
	PostStatuses []rows.PostStatus
	GalleryKeys  []string

	LegacyDomains []string
	UploadsPath   string
	StripPrefixes []string

	// AssetRoot is the local tree mirroring the legacy uploads layout.
	// When no candidates are known at all, URLs are rewritten by path with
	// no resolution and nothing is mirrored.
	AssetRoot      string
	ObjectPrefix   string
	FuzzyMinLength int
	MirrorAssets   bool

	BatchSize         int
	UploadConcurrency int
	ExcerptLength     int
}

// DefaultOptions returns Options for a standard "wp" schema.
func DefaultOptions() Options {
	return Options{
		Tables:            rows.TablesFor("wp"),
		PostTypes:         []rows.PostType{rows.TypePost, rows.TypePage},
		PostStatuses:      []rows.PostStatus{rows.StatusPublish},
		GalleryKeys:       relations.DefaultGalleryKeys,
		UploadsPath:       "/wp-content/uploads/",
		StripPrefixes:     content.DefaultStripPrefixes,
		ObjectPrefix:      "media",
		FuzzyMinLength:    assets.DefaultMinFuzzyLength,
		MirrorAssets:      true,
		BatchSize:         DefaultBatchSize,
		UploadConcurrency: DefaultUploadConcurrency,
		ExcerptLength:     content.DefaultExcerptLength,
	}
}

// Pipeline migrates one dump into the target store. Each Run streams the
// dump twice: once to build the relationship index from every table, then
// once more over the posts table to transform and write records in batches.
type Pipeline struct {
	source  dump.Source
	records storage.RecordStore
	objects objectstore.ObjectStore
	opts    Options
	state   atomic.Int32
}

// NewPipeline creates a new migration pipeline.
func NewPipeline(source dump.Source, records storage.RecordStore, objects objectstore.ObjectStore, opts Options) *Pipeline {
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.UploadConcurrency <= 0 {
		opts.UploadConcurrency = DefaultUploadConcurrency
	}
	if opts.ExcerptLength <= 0 {
		opts.ExcerptLength = content.DefaultExcerptLength
	}
	return &Pipeline{
		source:  source,
		records: records,
		objects: objects,
		opts:    opts,
	}
}

// State returns the stage the current or last run is in.
func (p *Pipeline) State() State {
	return State(p.state.Load())
}

func (p *Pipeline) setState(s State) {
	p.state.Store(int32(s))
}

// run holds everything built for a single Run.
type run struct {
	*Pipeline
	sum         *Summary
	idx         *relations.Index
	rewriter    *content.Rewriter
	transformer *content.Transformer
	types       map[rows.PostType]bool
	statuses    map[rows.PostStatus]bool
	mirrored    map[string]bool
}

// Run executes a full migration. A non-nil Summary is always returned; the
// error is set when the run ended in StateFailed.
func (p *Pipeline) Run(ctx context.Context, runID string) (*Summary, error) {
	logger := contextutil.LoggerFromContext(ctx).With("run_id", runID)
	ctx = contextutil.WithLogger(ctx, logger)

	r := &run{
		Pipeline: p,
		sum:      newSummary(runID),
		types:    make(map[rows.PostType]bool),
		statuses: make(map[rows.PostStatus]bool),
		mirrored: make(map[string]bool),
	}
	for _, t := range p.opts.PostTypes {
		r.types[t] = true
	}
	for _, s := range p.opts.PostStatuses {
		r.statuses[s] = true
	}

	logger.InfoContext(ctx, "starting migration", "source", p.source.Name(), "batch_size", p.opts.BatchSize)

	err := r.execute(ctx)
	r.sum.FinishedAt = time.Now().UTC()
	if err != nil {
		p.setState(StateFailed)
		r.sum.State = StateFailed
		r.sum.FailReason = err.Error()
		logger.ErrorContext(ctx, "migration failed", "error", err, "written", r.sum.Written)
		return r.sum, err
	}

	p.setState(StateDone)
	r.sum.State = StateDone
	logger.InfoContext(ctx, "migration completed",
		"selected", r.sum.Selected,
		"written", r.sum.Written,
		"unchanged", r.sum.Unchanged,
		"rows_skipped", r.sum.RowsSkipped,
		"assets_unresolved", r.sum.AssetsUnresolved,
		"write_failures", r.sum.WriteFailures,
		"duration", r.sum.FinishedAt.Sub(r.sum.StartedAt),
	)
	return r.sum, nil
}

func (r *run) execute(ctx context.Context) error {
	if err := r.records.Ping(ctx); err != nil {
		return WrapError(KindFatal, "ping target store", err)
	}

	r.transition(StateScanning)
	if err := r.buildIndex(ctx); err != nil {
		return err
	}

	r.transition(StateResolving)
	if err := r.prepareAssets(ctx); err != nil {
		return err
	}

	return r.syncPosts(ctx)
}

func (r *run) transition(s State) {
	r.setState(s)
	r.sum.State = s
}

// buildIndex streams every table once. Nothing is resolved before the index
// is complete.
func (r *run) buildIndex(ctx context.Context) error {
	logger := contextutil.LoggerFromContext(ctx)

	rc, err := r.source.Open()
	if err != nil {
		return WrapError(KindFatal, "open dump", err)
	}
	defer func() {
		_ = rc.Close()
	}()

	sc := dump.NewScanner(rc, r.opts.Tables.Names()...)
	proj := rows.NewProjector(r.opts.Tables)
	builder := relations.NewBuilder().WithUploadsPath(r.opts.UploadsPath)

	for sc.Next() {
		rec, err := proj.Project(sc.Tuple())
		if err != nil {
			logger.DebugContext(ctx, "skipping malformed row", "error", WrapError(KindMalformed, "project", err))
			continue
		}
		builder.Add(rec)
	}
	if err := sc.Err(); err != nil {
		return WrapError(KindFatal, "scan dump", err)
	}

	r.idx = builder.Index()
	r.sum.Scan = sc.Stats()
	r.sum.Rows = proj.Stats()
	r.sum.RowsParsed, r.sum.RowsSkipped = r.sum.Rows.Total()
	r.sum.Index = r.idx.Stats()

	logger.InfoContext(ctx, "relationship index built",
		"tuples", r.sum.Scan.Tuples,
		"rows_parsed", r.sum.RowsParsed,
		"rows_skipped", r.sum.RowsSkipped,
		"malformed_statements", r.sum.Scan.MalformedStatements,
		"dangling_parents", r.sum.Index.DanglingParents,
	)
	return nil
}

// prepareAssets builds the candidate index and the content transformer.
func (r *run) prepareAssets(ctx context.Context) error {
	logger := contextutil.LoggerFromContext(ctx)

	candidates := assets.NewIndex()
	if r.opts.AssetRoot != "" {
		if err := candidates.AddDir(ctx, r.opts.AssetRoot); err != nil {
			return WrapError(KindFatal, "index asset root", err)
		}
	}

	listPrefix := r.objectKey("")
	entries, err := r.objects.ListObjects(ctx, listPrefix)
	if err != nil {
		return WrapError(KindFatal, "list object store", err)
	}
	keys := make([]string, 0, len(entries))
	for _, e := range entries {
		keys = append(keys, strings.TrimPrefix(e.Key, listPrefix))
	}
	candidates.AddStored(keys...)

	var resolver *assets.Resolver
	if candidates.Len() > 0 {
		resolver = assets.NewResolver(candidates, r.opts.FuzzyMinLength)
	}

	rw, err := content.NewRewriter(
		content.LegacyPrefixes(r.opts.LegacyDomains, r.opts.UploadsPath),
		func(rel string) string { return r.objects.PublicURL(r.objectKey(rel)) },
		resolver,
	)
	if err != nil {
		return WrapError(KindFatal, "configure rewriter", err)
	}
	r.rewriter = rw
	r.transformer = content.NewTransformer(rw, r.opts.StripPrefixes)

	logger.InfoContext(ctx, "asset candidates indexed", "candidates", candidates.Len(), "stored", len(keys), "resolving", resolver != nil)
	return nil
}

// objectKey maps an uploads-relative path to its object store key.
func (r *run) objectKey(rel string) string {
	prefix := strings.Trim(r.opts.ObjectPrefix, "/")
	if rel == "" {
		if prefix == "" {
			return ""
		}
		return prefix + "/"
	}
	return path.Join(prefix, rel)
}

// syncPosts streams the posts table and processes selected posts in batches.
// Cancellation is honoured between batches only.
func (r *run) syncPosts(ctx context.Context) error {
	logger := contextutil.LoggerFromContext(ctx)

	rc, err := r.source.Open()
	if err != nil {
		return WrapError(KindFatal, "reopen dump", err)
	}
	defer func() {
		_ = rc.Close()
	}()

	sc := dump.NewScanner(rc, r.opts.Tables.Posts)
	proj := rows.NewProjector(r.opts.Tables)
	batch := make([]*rows.Post, 0, r.opts.BatchSize)
	batches := 0

	r.transition(StateProjecting)
	for sc.Next() {
		rec, err := proj.Project(sc.Tuple())
		if err != nil {
			continue
		}
		post, ok := rec.(*rows.Post)
		if !ok || !r.selected(post) {
			continue
		}
		r.sum.Selected++
		batch = append(batch, post)

		if len(batch) < r.opts.BatchSize {
			continue
		}
		if err := ctx.Err(); err != nil {
			return WrapError(KindFatal, "sync posts", err)
		}
		r.processBatch(ctx, batch)
		batches++
		batch = batch[:0]
		r.transition(StateProjecting)
	}
	if err := sc.Err(); err != nil {
		return WrapError(KindFatal, "scan posts", err)
	}

	if len(batch) > 0 {
		if err := ctx.Err(); err != nil {
			return WrapError(KindFatal, "sync posts", err)
		}
		r.processBatch(ctx, batch)
		batches++
	}

	logger.InfoContext(ctx, "posts synced", "batches", batches, "selected", r.sum.Selected)
	return nil
}

func (r *run) selected(p *rows.Post) bool {
	return r.types[p.Type] && r.statuses[p.Status]
}
