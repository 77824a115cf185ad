package api

import (
	"context"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"
)

func newTestMediaURLs(resolve func(ctx context.Context, ref string) (string, error)) *mediaURLs {
	return &mediaURLs{
		resolve:    resolve,
		timeout:    time.Second,
		ttl:        time.Hour,
		now:        time.Now,
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		entries:    make(map[string]mediaURL),
		refreshing: make(map[string]bool),
	}
}

func TestMediaURLs_LookupDoesNotResolve(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	var calls atomic.Int32
	urls := newTestMediaURLs(func(ctx context.Context, ref string) (string, error) {
		calls.Add(1)
		select {
		case <-release:
		case <-ctx.Done():
		}
		return "http://media/" + ref, nil
	})

	done := make(chan string, 1)
	go func() { done <- urls.Lookup("a1") }()

	select {
	case got := <-done:
		if got != "" {
			t.Errorf("Lookup() on miss = %q, want empty", got)
		}
	case <-time.After(time.Second):
		t.Fatal("Lookup() blocked on a slow resolver")
	}
	if n := calls.Load(); n != 0 {
		t.Errorf("resolver called %d times by Lookup", n)
	}
}

func TestMediaURLs_WarmThenLookup(t *testing.T) {
	var calls atomic.Int32
	urls := newTestMediaURLs(func(_ context.Context, ref string) (string, error) {
		calls.Add(1)
		return "http://media/" + ref, nil
	})

	urls.Warm(context.Background(), "a1", "", "a1")
	if got := urls.Lookup("a1"); got != "http://media/a1" {
		t.Errorf("Lookup(a1) = %q", got)
	}
	if n := calls.Load(); n != 1 {
		t.Errorf("resolver calls = %d, want 1", n)
	}
}

func TestMediaURLs_ExpiredEntryServedWhileRefreshing(t *testing.T) {
	now := time.Unix(0, 0)
	refreshed := make(chan struct{}, 1)
	var calls atomic.Int32
	urls := newTestMediaURLs(func(_ context.Context, ref string) (string, error) {
		if calls.Add(1) > 1 {
			refreshed <- struct{}{}
			return "http://media/" + ref + "?v=2", nil
		}
		return "http://media/" + ref, nil
	})
	urls.now = func() time.Time { return now }

	urls.Warm(context.Background(), "a1")
	now = now.Add(2 * time.Hour)

	if got := urls.Lookup("a1"); got != "http://media/a1" {
		t.Errorf("Lookup() of expired entry = %q, want stale url", got)
	}
	select {
	case <-refreshed:
	case <-time.After(time.Second):
		t.Fatal("expired entry was not refreshed")
	}
}
