package sync

import (
	"context"
	"errors"
	"sync"

	"stargazer/internal/models"
	"stargazer/internal/store"
)

// --- Mock Source -------------------------------------------------------------

// mockSource serves a newest-first list of repositories in pages, the way the
// remote API does.
type mockSource struct {
	mu       sync.Mutex
	repos    []models.Repository
	failOn   map[int]error
	calls    []int
	inFlight int
	overlap  bool
}

func newMockSource(repos ...models.Repository) *mockSource {
	return &mockSource{repos: append([]models.Repository(nil), repos...), failOn: make(map[int]error)}
}

func (m *mockSource) FetchPage(ctx context.Context, page, perPage int) ([]models.Repository, error) {
	m.mu.Lock()
	m.inFlight++
	if m.inFlight > 1 {
		m.overlap = true
	}
	m.calls = append(m.calls, page)
	err := m.failOn[page]
	start := (page - 1) * perPage
	var out []models.Repository
	if start < len(m.repos) {
		end := start + perPage
		if end > len(m.repos) {
			end = len(m.repos)
		}
		out = append(out, m.repos[start:end]...)
	}
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		m.inFlight--
		m.mu.Unlock()
	}()

	if err != nil {
		return nil, err
	}
	return out, nil
}

// star puts newly starred repositories at the head of the list.
func (m *mockSource) star(repos ...models.Repository) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.repos = append(append([]models.Repository(nil), repos...), m.repos...)
}

func (m *mockSource) fail(page int, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failOn[page] = err
}

func (m *mockSource) heal() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failOn = make(map[int]error)
}

func (m *mockSource) pages() []int {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := append([]int(nil), m.calls...)
	m.calls = nil
	return out
}

// --- Failing Store -----------------------------------------------------------

var errDiskFull = errors.New("disk full")

// failingStore wraps a real store and fails the Nth UpsertBatch call.
type failingStore struct {
	*store.Store
	mu       sync.Mutex
	failAt   int
	upserts  int
	failMeta bool
}

func (f *failingStore) UpsertBatch(ctx context.Context, repos []models.Repository) (store.UpsertResult, error) {
	f.mu.Lock()
	f.upserts++
	n := f.upserts
	f.mu.Unlock()
	if n == f.failAt {
		return store.UpsertResult{}, errDiskFull
	}
	return f.Store.UpsertBatch(ctx, repos)
}

func (f *failingStore) SaveMetadata(ctx context.Context, meta *models.SyncMetadata) error {
	if f.failMeta {
		return errDiskFull
	}
	return f.Store.SaveMetadata(ctx, meta)
}
