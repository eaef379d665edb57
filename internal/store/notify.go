package store

import (
	"sync"
)

// Subscription receives a signal after every committed write. Signals
// coalesce: while one is pending, further commits do not queue more.
type Subscription struct {
	ch     chan struct{}
	n      *notifier
	closed bool
}

// C returns the channel that is signalled after each commit
func (s *Subscription) C() <-chan struct{} {
	return s.ch
}

// Close unregisters the subscription and closes its channel
func (s *Subscription) Close() {
	s.n.unsubscribe(s)
}

type notifier struct {
	mu   sync.Mutex
	subs map[*Subscription]struct{}
}

func newNotifier() *notifier {
	return &notifier{subs: make(map[*Subscription]struct{})}
}

func (n *notifier) subscribe() *Subscription {
	sub := &Subscription{ch: make(chan struct{}, 1), n: n}
	n.mu.Lock()
	n.subs[sub] = struct{}{}
	n.mu.Unlock()
	return sub
}

func (n *notifier) unsubscribe(sub *Subscription) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if sub.closed {
		return
	}
	sub.closed = true
	delete(n.subs, sub)
	close(sub.ch)
}

func (n *notifier) publish() {
	n.mu.Lock()
	defer n.mu.Unlock()
	for sub := range n.subs {
		select {
		case sub.ch <- struct{}{}:
		default:
		}
	}
}

// count returns the number of active subscriptions
func (n *notifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.subs)
}
