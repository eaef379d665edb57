package sync

import (
	gosync "sync"
)

// Phase is the stage of the current or most recent walk
type Phase string

// Phases, in the order a walk passes through them
const (
	PhaseIdle            Phase = "idle"
	PhaseInitialSync     Phase = "initial_sync"
	PhaseIncrementalSync Phase = "incremental_sync"
	PhaseComplete        Phase = "complete"
)

// Progress is a snapshot of the engine's state
type Progress struct {
	Phase       Phase
	LoadedCount int
	IsLoading   bool
	Err         error
}

// Broadcaster holds the latest Progress and fans it out to subscribers.
// Each subscriber channel buffers one value; a newer value replaces one that
// has not been received yet.
type Broadcaster struct {
	mu      gosync.Mutex
	current Progress
	subs    map[chan Progress]struct{}
}

// NewBroadcaster returns a Broadcaster in the idle phase
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{
		current: Progress{Phase: PhaseIdle},
		subs:    make(map[chan Progress]struct{}),
	}
}

// Current returns the latest published value
func (b *Broadcaster) Current() Progress {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.current
}

// Subscribe returns a channel primed with the current value and a function
// that unsubscribes and closes it.
func (b *Broadcaster) Subscribe() (<-chan Progress, func()) {
	ch := make(chan Progress, 1)

	b.mu.Lock()
	ch <- b.current
	b.subs[ch] = struct{}{}
	b.mu.Unlock()

	var once gosync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, ch)
			close(ch)
			b.mu.Unlock()
		})
	}
	return ch, cancel
}

func (b *Broadcaster) publish(p Progress) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.current = p
	for ch := range b.subs {
		// Drop a stale undelivered value, then offer the new one.
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- p:
		default:
		}
	}
}
