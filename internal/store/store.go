// Package store is the local SQLite cache of starred repositories and the
// user's organization data (favorites, pins, tags, presets, sync metadata).
//
// Every committed write notifies active subscriptions so that readers can
// re-query the state they observe.
package store

import (
	"errors"

	"gorm.io/gorm"

	"stargazer/internal/clock"
)

var (
	// ErrNotFound is returned when a looked-up row does not exist
	ErrNotFound = errors.New("not found")
	// ErrDuplicate is returned when a unique name is already taken
	ErrDuplicate = errors.New("already exists")
)

// Store wraps a gorm handle with the mirror's read and write operations.
// It is safe for concurrent use.
type Store struct {
	db       *gorm.DB
	clock    clock.Clock
	notifier *notifier
}

// Option configures a Store
type Option func(*Store)

// WithClock overrides the clock used to stamp cached_at
func WithClock(c clock.Clock) Option {
	return func(s *Store) {
		s.clock = c
	}
}

// New returns a Store backed by database
func New(database *gorm.DB, opts ...Option) *Store {
	s := &Store{
		db:       database,
		clock:    clock.RealClock{},
		notifier: newNotifier(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// DB exposes the underlying handle for read-side query building
func (s *Store) DB() *gorm.DB {
	return s.db
}

// Subscribe registers for commit notifications. The caller must Close the
// subscription when done.
func (s *Store) Subscribe() *Subscription {
	return s.notifier.subscribe()
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
