package sync

import (
	"context"
	"fmt"
	"log/slog"
	gosync "sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"

	"stargazer/internal/clock"
	"stargazer/internal/models"
	"stargazer/internal/remote"
)

const (
	otelScope      = "stargazer/sync"
	spanSync       = "sync.synchronize"
	metricPages    = "stargazer.sync.pages"
	metricInserted = "stargazer.sync.items.inserted"
	metricUpdated  = "stargazer.sync.items.updated"
	metricErrors   = "stargazer.sync.errors"

	// DefaultPageSize is the page size requested from the remote source
	DefaultPageSize = remote.MaxPageSize
	// DefaultMaxPages ends any walk that has not stopped on its own
	DefaultMaxPages = 1000
)

// TriggerType says why a synchronization was requested
type TriggerType int

const (
	// Refresh brings the store up to date (new subscription, pull-to-refresh).
	Refresh TriggerType = iota
	// Append fetches the page after the rows a reader has already loaded.
	Append
	// Prepend is never needed: the remote order is newest first.
	Prepend
)

func (t TriggerType) String() string {
	switch t {
	case Refresh:
		return "refresh"
	case Append:
		return "append"
	case Prepend:
		return "prepend"
	default:
		return fmt.Sprintf("trigger(%d)", int(t))
	}
}

// Trigger requests a synchronization
type Trigger struct {
	Type TriggerType
	// Loaded is the number of rows the reader holds; used by Append only.
	Loaded int
}

// Strategy names the walk an engine ran for a trigger
type Strategy string

// Strategies
const (
	StrategyNone        Strategy = "none"
	StrategyInitial     Strategy = "initial"
	StrategyIncremental Strategy = "incremental"
	StrategyAppend      Strategy = "append"
)

// Outcome summarizes a finished synchronization
type Outcome struct {
	EndOfData bool
	Strategy  Strategy
	RunID     string
	Pages     int
	Inserted  int
	Updated   int
}

// Config tunes an Engine
type Config struct {
	PageSize int
	MaxPages int
}

// Option configures an Engine
type Option func(*Engine)

// WithClock overrides the clock used for LastSyncTimestamp
func WithClock(c clock.Clock) Option {
	return func(e *Engine) { e.clock = c }
}

// WithIDGenerator overrides how run ids are generated
func WithIDGenerator(g clock.IDGenerator) Option {
	return func(e *Engine) { e.ids = g }
}

// Engine synchronizes starred repositories from a Source into a Store.
// Walks are serialized: a trigger arriving while another runs waits for it.
type Engine struct {
	source   Source
	store    Store
	pageSize int
	maxPages int
	clock    clock.Clock
	ids      clock.IDGenerator
	log      *slog.Logger
	progress *Broadcaster

	mu gosync.Mutex

	tracer      trace.Tracer
	cntPages    metric.Int64Counter
	cntInserted metric.Int64Counter
	cntUpdated  metric.Int64Counter
	cntErrors   metric.Int64Counter
}

// NewEngine creates an Engine. Zero Config fields take their defaults and the
// page size is clamped to what the remote serves.
func NewEngine(source Source, st Store, cfg Config, logger *slog.Logger, opts ...Option) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.PageSize == 0 {
		cfg.PageSize = DefaultPageSize
	}
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = DefaultMaxPages
	}

	meter := otel.Meter(otelScope)
	mustCounter := func(name, desc string) metric.Int64Counter {
		c, err := meter.Int64Counter(name, metric.WithDescription(desc))
		if err != nil {
			logger.Error("creating OTel counter", "name", name, "error", err)
			return noop.Int64Counter{}
		}
		return c
	}

	e := &Engine{
		source:   source,
		store:    st,
		pageSize: remote.ClampPageSize(cfg.PageSize),
		maxPages: cfg.MaxPages,
		clock:    clock.RealClock{},
		ids:      clock.UUIDGenerator{},
		log:      logger,
		progress: NewBroadcaster(),

		tracer:      otel.Tracer(otelScope),
		cntPages:    mustCounter(metricPages, "Number of remote pages merged"),
		cntInserted: mustCounter(metricInserted, "Number of repositories inserted"),
		cntUpdated:  mustCounter(metricUpdated, "Number of repositories refreshed"),
		cntErrors:   mustCounter(metricErrors, "Number of failed synchronizations"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Progress returns the engine's progress broadcaster
func (e *Engine) Progress() *Broadcaster {
	return e.progress
}

// PageSize returns the effective page size
func (e *Engine) PageSize() int {
	return e.pageSize
}

// Refresh is shorthand for Synchronize with a Refresh trigger
func (e *Engine) Refresh(ctx context.Context) (Outcome, error) {
	return e.Synchronize(ctx, Trigger{Type: Refresh})
}

// Synchronize runs the strategy the trigger calls for. On failure the
// returned error is a *Error, pages merged before it stay committed, and the
// sync metadata is left as it was.
func (e *Engine) Synchronize(ctx context.Context, trig Trigger) (Outcome, error) {
	if trig.Type == Prepend {
		return Outcome{EndOfData: true, Strategy: StrategyNone}, nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	r := &run{
		engine: e,
		id:     e.ids.New(),
	}
	r.log = e.log.With("run_id", r.id, "trigger", trig.Type.String())

	ctx, span := e.tracer.Start(ctx, spanSync, trace.WithAttributes(
		attribute.String("sync.trigger", trig.Type.String()),
		attribute.String("sync.run_id", r.id),
	))
	defer span.End()

	var (
		out Outcome
		err error
	)
	switch trig.Type {
	case Append:
		out, err = r.appendPage(ctx, trig.Loaded)
	case Refresh:
		out, err = r.refresh(ctx)
	default:
		err = &Error{Category: remote.CategoryUnknown, Err: fmt.Errorf("unsupported trigger %s", trig.Type)}
	}
	out.RunID = r.id

	if out.Pages > 0 {
		e.cntPages.Add(ctx, int64(out.Pages))
	}
	if out.Inserted > 0 {
		e.cntInserted.Add(ctx, int64(out.Inserted))
	}
	if out.Updated > 0 {
		e.cntUpdated.Add(ctx, int64(out.Updated))
	}
	span.SetAttributes(
		attribute.String("sync.strategy", string(out.Strategy)),
		attribute.Int("sync.pages", out.Pages),
		attribute.Int("sync.inserted", out.Inserted),
		attribute.Int("sync.updated", out.Updated),
		attribute.Bool("sync.end_of_data", out.EndOfData),
	)
	if err != nil {
		e.cntErrors.Add(ctx, 1, metric.WithAttributes(attribute.String("category", string(categoryOf(err)))))
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return out, err
}

func categoryOf(err error) remote.Category {
	return remote.CategoryOf(err)
}

// run carries the state of one Synchronize call
type run struct {
	engine *Engine
	id     string
	log    *slog.Logger
	phase  Phase
	loaded int
	out    Outcome
}

func (r *run) refresh(ctx context.Context) (Outcome, error) {
	e := r.engine
	e.progress.publish(Progress{Phase: PhaseIdle})
	if err := ctx.Err(); err != nil {
		return r.fail(0, remote.CategoryUnknown, err)
	}

	meta, err := e.store.Metadata(ctx, models.DataTypeStarredRepos)
	if err != nil {
		return r.fail(0, remote.CategoryPersistence, err)
	}

	if meta == nil || !meta.IsInitialSyncComplete {
		return r.initialSync(ctx, meta)
	}

	localNewest, err := e.store.MaxStarredAt(ctx)
	if err != nil {
		return r.fail(0, remote.CategoryPersistence, err)
	}
	if localNewest == nil {
		localNewest = meta.NewestStarredAt
	}
	if localNewest == nil {
		// Without a mark an incremental walk would never stop early.
		r.log.Info("no starring high-water mark recorded, running full walk")
		return r.initialSync(ctx, meta)
	}
	return r.incrementalSync(ctx, meta, *localNewest)
}

func (r *run) initialSync(ctx context.Context, prev *models.SyncMetadata) (Outcome, error) {
	e := r.engine
	r.start(PhaseInitialSync, StrategyInitial)
	r.log.Info("starting initial sync", "page_size", e.pageSize)

	var highWater *int64
	for page := 1; ; page++ {
		if page > e.maxPages {
			r.log.Warn("page limit reached, ending walk", "max_pages", e.maxPages)
			break
		}
		if err := ctx.Err(); err != nil {
			return r.fail(page, remote.CategoryUnknown, err)
		}

		repos, err := e.source.FetchPage(ctx, page, e.pageSize)
		if err != nil {
			return r.fail(page, remote.CategoryOf(err), err)
		}
		if len(repos) == 0 {
			break
		}

		if err := r.merge(ctx, page, repos); err != nil {
			return r.out, err
		}
		highWater = maxStarredAt(highWater, repos)

		if len(repos) < e.pageSize {
			break
		}
	}

	if highWater == nil && prev != nil {
		highWater = prev.NewestStarredAt
	}
	meta := &models.SyncMetadata{
		DataType:              models.DataTypeStarredRepos,
		LastSyncTimestamp:     e.clock.Now().UTC(),
		IsInitialSyncComplete: true,
		NewestStarredAt:       highWater,
	}
	if prev != nil {
		meta.LastItemCreatedAt = prev.LastItemCreatedAt
	}
	return r.complete(ctx, meta)
}

func (r *run) incrementalSync(ctx context.Context, prev *models.SyncMetadata, localNewest int64) (Outcome, error) {
	e := r.engine
	r.start(PhaseIncrementalSync, StrategyIncremental)
	r.log.Info("starting incremental sync", "newest_starred_at", models.FromMillis(localNewest))

	highWater := localNewest
	for page := 1; ; page++ {
		if page > e.maxPages {
			r.log.Warn("page limit reached, ending walk", "max_pages", e.maxPages)
			break
		}
		if err := ctx.Err(); err != nil {
			return r.fail(page, remote.CategoryUnknown, err)
		}

		repos, err := e.source.FetchPage(ctx, page, e.pageSize)
		if err != nil {
			return r.fail(page, remote.CategoryOf(err), err)
		}
		if len(repos) == 0 {
			break
		}

		fresh := make([]models.Repository, 0, len(repos))
		reachedKnown := false
		for _, repo := range repos {
			switch {
			case repo.StarredAt == nil:
				fresh = append(fresh, repo)
			case repo.StarredAfter(localNewest):
				fresh = append(fresh, repo)
				if repo.StarredAfter(highWater) {
					highWater = *repo.StarredAt
				}
			default:
				reachedKnown = true
			}
		}

		if len(fresh) > 0 {
			if err := r.merge(ctx, page, fresh); err != nil {
				return r.out, err
			}
		}

		if reachedKnown || len(repos) < e.pageSize {
			break
		}
	}

	meta := &models.SyncMetadata{
		DataType:              models.DataTypeStarredRepos,
		LastSyncTimestamp:     e.clock.Now().UTC(),
		IsInitialSyncComplete: true,
		NewestStarredAt:       &highWater,
		LastItemCreatedAt:     prev.LastItemCreatedAt,
	}
	return r.complete(ctx, meta)
}

func (r *run) appendPage(ctx context.Context, loaded int) (Outcome, error) {
	e := r.engine
	r.out.Strategy = StrategyAppend

	if loaded < 0 {
		loaded = 0
	}
	page := loaded/e.pageSize + 1
	r.log.Debug("appending page", "page", page, "loaded", loaded)

	repos, err := e.source.FetchPage(ctx, page, e.pageSize)
	if err != nil {
		return r.out, r.wrap(page, remote.CategoryOf(err), err)
	}
	if len(repos) > 0 {
		res, err := e.store.UpsertBatch(context.WithoutCancel(ctx), repos)
		if err != nil {
			return r.out, r.wrap(page, remote.CategoryPersistence, err)
		}
		r.out.Pages++
		r.out.Inserted += res.Inserted
		r.out.Updated += res.Updated
	}
	r.out.EndOfData = len(repos) < e.pageSize
	return r.out, nil
}

func (r *run) start(phase Phase, strategy Strategy) {
	r.phase = phase
	r.out.Strategy = strategy
	r.engine.progress.publish(Progress{Phase: phase, IsLoading: true})
}

// merge commits one page and reports progress. The commit is not tied to
// ctx cancellation so a fetched page is never half applied.
func (r *run) merge(ctx context.Context, page int, repos []models.Repository) error {
	res, err := r.engine.store.UpsertBatch(context.WithoutCancel(ctx), repos)
	if err != nil {
		_, err = r.fail(page, remote.CategoryPersistence, err)
		return err
	}

	r.loaded += res.Total()
	r.out.Pages++
	r.out.Inserted += res.Inserted
	r.out.Updated += res.Updated
	r.log.Debug("merged page", "page", page, "items", len(repos), "inserted", res.Inserted, "updated", res.Updated)

	r.engine.progress.publish(Progress{Phase: r.phase, LoadedCount: r.loaded, IsLoading: true})
	return nil
}

func (r *run) complete(ctx context.Context, meta *models.SyncMetadata) (Outcome, error) {
	if err := r.engine.store.SaveMetadata(context.WithoutCancel(ctx), meta); err != nil {
		return r.fail(r.out.Pages, remote.CategoryPersistence, err)
	}
	r.out.EndOfData = true
	r.engine.progress.publish(Progress{Phase: PhaseComplete, LoadedCount: r.loaded})
	r.log.Info("sync complete",
		"strategy", r.out.Strategy,
		"pages", r.out.Pages,
		"inserted", r.out.Inserted,
		"updated", r.out.Updated)
	return r.out, nil
}

func (r *run) wrap(page int, category remote.Category, err error) *Error {
	return &Error{Category: category, Page: page, Err: err}
}

func (r *run) fail(page int, category remote.Category, err error) (Outcome, error) {
	syncErr := r.wrap(page, category, err)
	r.log.Error("sync failed", "page", page, "category", category, "loaded", r.loaded, "error", err)
	phase := r.phase
	if phase == "" {
		phase = PhaseIdle
	}
	r.engine.progress.publish(Progress{Phase: phase, LoadedCount: r.loaded, Err: syncErr})
	return r.out, syncErr
}

func maxStarredAt(current *int64, repos []models.Repository) *int64 {
	for _, repo := range repos {
		if repo.StarredAt == nil {
			continue
		}
		if current == nil || *repo.StarredAt > *current {
			v := *repo.StarredAt
			current = &v
		}
	}
	return current
}
