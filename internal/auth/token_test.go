package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/zalando/go-keyring"
)

func TestLookup(t *testing.T) {
	keyring.MockInit()
	ctx := context.Background()

	t.Setenv(EnvToken, "")
	if _, err := Lookup(ctx); !errors.Is(err, ErrNoToken) {
		t.Errorf("Lookup() with nothing configured = %v, want ErrNoToken", err)
	}

	if err := Save("keyring-token"); err != nil {
		t.Fatalf("Save() error: %v", err)
	}
	token, err := Lookup(ctx)
	if err != nil || token != "keyring-token" {
		t.Errorf("Lookup() = %q, %v; want keyring-token", token, err)
	}

	t.Setenv(EnvToken, "env-token")
	token, err = Lookup(ctx)
	if err != nil || token != "env-token" {
		t.Errorf("Lookup() = %q, %v; env var should win", token, err)
	}

	t.Setenv(EnvToken, "")
	if err := Clear(); err != nil {
		t.Fatalf("Clear() error: %v", err)
	}
	if err := Clear(); err != nil {
		t.Errorf("second Clear() error: %v", err)
	}
	if _, err := Lookup(ctx); !errors.Is(err, ErrNoToken) {
		t.Errorf("Lookup() after Clear = %v, want ErrNoToken", err)
	}
}

func TestSaveRejectsEmpty(t *testing.T) {
	keyring.MockInit()
	if err := Save("   "); err == nil {
		t.Error("Save() with blank token expected error")
	}
}

type countingFetch struct {
	mu    sync.Mutex
	calls int
	value string
	err   error
}

func (f *countingFetch) fetch(ctx context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.value, f.err
}

func TestCachedSourceMemoizes(t *testing.T) {
	f := &countingFetch{value: "abc"}
	src := NewCachedSource(f.fetch)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		token, err := src.Token(ctx)
		if err != nil || token != "abc" {
			t.Fatalf("Token() = %q, %v", token, err)
		}
	}
	if f.calls != 1 {
		t.Errorf("fetch calls = %d, want 1", f.calls)
	}

	src.Invalidate()
	f.value = "def"
	token, _ := src.Token(ctx)
	if token != "def" {
		t.Errorf("Token() after Invalidate = %q, want def", token)
	}
	if f.calls != 2 {
		t.Errorf("fetch calls = %d, want 2", f.calls)
	}
}

func TestCachedSourceMissingTokenNotCached(t *testing.T) {
	f := &countingFetch{err: ErrNoToken}
	src := NewCachedSource(f.fetch)
	ctx := context.Background()

	token, err := src.Token(ctx)
	if err != nil || token != "" {
		t.Fatalf("Token() = %q, %v; want empty, nil", token, err)
	}

	f.err = nil
	f.value = "late"
	token, _ = src.Token(ctx)
	if token != "late" {
		t.Errorf("Token() = %q, want late", token)
	}
}

func TestCachedSourceConcurrentRefill(t *testing.T) {
	f := &countingFetch{value: "abc"}
	src := NewCachedSource(f.fetch)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			src.Token(context.Background())
		}()
	}
	wg.Wait()

	if f.calls != 1 {
		t.Errorf("fetch calls = %d, want 1", f.calls)
	}
}

func TestTransport(t *testing.T) {
	var gotAuth []string
	status := http.StatusOK
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = append(gotAuth, r.Header.Get("Authorization"))
		w.WriteHeader(status)
	}))
	defer srv.Close()

	f := &countingFetch{value: "secret"}
	src := NewCachedSource(f.fetch)
	client := &http.Client{Transport: &Transport{Source: src}}

	resp, err := client.Get(srv.URL)
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	resp.Body.Close()
	if gotAuth[0] != "Bearer secret" {
		t.Errorf("Authorization = %q, want Bearer secret", gotAuth[0])
	}

	status = http.StatusUnauthorized
	resp, err = client.Get(srv.URL)
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	resp.Body.Close()

	// The 401 dropped the cache, so the next request refetches.
	status = http.StatusOK
	resp, err = client.Get(srv.URL)
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	resp.Body.Close()
	if f.calls != 2 {
		t.Errorf("fetch calls = %d, want 2", f.calls)
	}
}

func TestTransportWithoutToken(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
	}))
	defer srv.Close()

	src := NewCachedSource(func(context.Context) (string, error) { return "", ErrNoToken })
	client := &http.Client{Transport: &Transport{Source: src}}

	resp, err := client.Get(srv.URL)
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	resp.Body.Close()
	if gotAuth != "" {
		t.Errorf("Authorization = %q, want none", gotAuth)
	}
}

func TestTransportTokenFailure(t *testing.T) {
	hit := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hit = true
	}))
	defer srv.Close()

	keyringDown := errors.New("secret service unavailable")
	src := NewCachedSource(func(context.Context) (string, error) { return "", keyringDown })
	client := &http.Client{Transport: &Transport{Source: src}}

	_, err := client.Get(srv.URL)
	var tokenErr *TokenError
	if !errors.As(err, &tokenErr) {
		t.Fatalf("Get() error = %v, want *TokenError", err)
	}
	if !errors.Is(err, keyringDown) {
		t.Errorf("Get() error = %v, want keyring error in chain", err)
	}
	if hit {
		t.Error("request was sent without a readable token")
	}
}
