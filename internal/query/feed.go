package query

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"stargazer/internal/models"
	"stargazer/internal/remote"
	"stargazer/internal/store"
)

// Status describes the feed's relationship with the remote source.
// It is one of Loading, Ready or Failed.
type Status interface {
	isStatus()
}

// Loading means a refresh is in flight
type Loading struct{}

// Ready means the last refresh succeeded, or none was requested
type Ready struct{}

// Failed means the last refresh failed. A dismissible failure still has
// local rows to show; a non-dismissible one leaves nothing to fall back on.
type Failed struct {
	Category    remote.Category
	Message     string
	Dismissible bool
}

func (Loading) isStatus() {}
func (Ready) isStatus()   {}
func (Failed) isStatus()  {}

// Snapshot is what a feed observer sees after each change
type Snapshot struct {
	Repos  []models.Repository
	Filter Filter
	Status Status
}

// RefreshFunc pulls fresh data from the remote source into the store
type RefreshFunc func(ctx context.Context) error

// Subscriber delivers a signal after each store commit
type Subscriber interface {
	Subscribe() *store.Subscription
}

// FeedOptions configures a Feed
type FeedOptions struct {
	Debounce time.Duration
	Logger   *slog.Logger
}

// ErrFeedStarted is returned by a second call to Start
var ErrFeedStarted = errors.New("feed already started")

// Feed keeps a filtered view of the store current. It re-queries after every
// store commit and every filter change, and publishes only the latest
// snapshot to its observer.
type Feed struct {
	query     *Query
	source    Subscriber
	refresh   RefreshFunc
	debouncer *Debouncer
	logger    *slog.Logger

	mu      sync.Mutex
	filter  Filter
	status  Status
	started bool

	wake chan struct{}
	out  chan Snapshot
}

// NewFeed creates a feed over q. refresh may be nil for a purely local view.
func NewFeed(q *Query, source Subscriber, refresh RefreshFunc, opts FeedOptions) *Feed {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Feed{
		query:     q,
		source:    source,
		refresh:   refresh,
		debouncer: NewDebouncer(opts.Debounce),
		logger:    logger,
		status:    Ready{},
		wake:      make(chan struct{}, 1),
		out:       make(chan Snapshot, 1),
	}
}

// Start begins observing the store and triggers the first refresh. The
// returned channel is closed once ctx is done.
func (f *Feed) Start(ctx context.Context) (<-chan Snapshot, error) {
	f.mu.Lock()
	if f.started {
		f.mu.Unlock()
		return nil, ErrFeedStarted
	}
	f.started = true
	if f.refresh != nil {
		f.status = Loading{}
	}
	f.mu.Unlock()

	sub := f.source.Subscribe()
	go f.loop(ctx, sub)
	if f.refresh != nil {
		go func() {
			_ = f.Refresh(ctx)
		}()
	}
	return f.out, nil
}

// Refresh pulls from the remote source and updates the status accordingly
func (f *Feed) Refresh(ctx context.Context) error {
	if f.refresh == nil {
		f.setStatus(Ready{})
		return nil
	}

	f.setStatus(Loading{})
	err := f.refresh(ctx)
	if err == nil {
		f.setStatus(Ready{})
		return nil
	}

	category := remote.CategoryOf(err)
	f.logger.Warn("refresh failed", "category", category, "error", err)

	n, countErr := f.query.Count(context.WithoutCancel(ctx), Filter{})
	f.setStatus(Failed{
		Category:    category,
		Message:     category.Message(),
		Dismissible: countErr == nil && n > 0,
	})
	return err
}

// SetFilter replaces the filter and re-queries immediately
func (f *Feed) SetFilter(filter Filter) {
	f.mu.Lock()
	f.filter = filter
	f.mu.Unlock()
	f.poke()
}

// SetSearch changes the search text once input has settled
func (f *Feed) SetSearch(text string) {
	text = strings.TrimSpace(text)
	f.debouncer.Submit(func() {
		f.mu.Lock()
		f.filter.Search = text
		f.mu.Unlock()
		f.poke()
	})
}

// Filter returns the filter currently applied
func (f *Feed) Filter() Filter {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.filter
}

// Status returns the current status
func (f *Feed) Status() Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.status
}

// Dismiss clears a dismissible failure. It reports whether anything changed.
func (f *Feed) Dismiss() bool {
	f.mu.Lock()
	failed, ok := f.status.(Failed)
	if !ok || !failed.Dismissible {
		f.mu.Unlock()
		return false
	}
	f.status = Ready{}
	f.mu.Unlock()
	f.poke()
	return true
}

func (f *Feed) setStatus(s Status) {
	f.mu.Lock()
	f.status = s
	f.mu.Unlock()
	f.poke()
}

func (f *Feed) poke() {
	select {
	case f.wake <- struct{}{}:
	default:
	}
}

func (f *Feed) loop(ctx context.Context, sub *store.Subscription) {
	defer close(f.out)
	defer sub.Close()
	defer f.debouncer.Cancel()

	f.emit(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-sub.C():
			if !ok {
				return
			}
			f.emit(ctx)
		case <-f.wake:
			f.emit(ctx)
		}
	}
}

func (f *Feed) emit(ctx context.Context) {
	f.mu.Lock()
	filter := f.filter
	status := f.status
	f.mu.Unlock()

	repos, err := f.query.List(ctx, filter)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		f.logger.Error("feed query failed", "error", err)
		repos = nil
		status = Failed{
			Category: remote.CategoryPersistence,
			Message:  remote.CategoryPersistence.Message(),
		}
	}

	snap := Snapshot{Repos: repos, Filter: filter, Status: status}
	// Replace an undelivered snapshot rather than queue behind it.
	select {
	case <-f.out:
	default:
	}
	select {
	case f.out <- snap:
	default:
	}
}
