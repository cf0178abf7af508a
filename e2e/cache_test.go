package e2e_test

import (
	"errors"
	"testing"
	"time"

	"github.com/glizzus/toribot/e2e"
	"github.com/glizzus/toribot/internal/cache"
	"github.com/glizzus/toribot/internal/search"
	"github.com/glizzus/toribot/internal/search/searchtest"
	"github.com/google/go-cmp/cmp"
)

func TestRedisCache_GetSet(t *testing.T) {
	c := e2e.GetCache(t, e2e.UseRedis(t), "e2e-getset:")

	if _, err := c.Get(t.Context(), "missing"); !errors.Is(err, cache.ErrMiss) {
		t.Fatalf("expected ErrMiss, got %v", err)
	}

	if err := c.Set(t.Context(), "key", []byte("value"), time.Minute); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, err := c.Get(t.Context(), "key")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(got) != "value" {
		t.Errorf("Get() = %q, want %q", got, "value")
	}
}

func TestRedisCache_Expiry(t *testing.T) {
	c := e2e.GetCache(t, e2e.UseRedis(t), "e2e-expiry:")

	if err := c.Set(t.Context(), "key", []byte("value"), 100*time.Millisecond); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	time.Sleep(300 * time.Millisecond)

	if _, err := c.Get(t.Context(), "key"); !errors.Is(err, cache.ErrMiss) {
		t.Errorf("expected the key to expire, got %v", err)
	}
}

func TestCachedSearch_SharesRedis(t *testing.T) {
	connStr := e2e.UseRedis(t)

	fake := searchtest.NewFake()
	fake.Add("blueming", search.Video{ID: "D1PvIWdJ8xo", Title: "IU - Blueming", CategoryID: search.MusicCategoryID})

	req := search.Request{Query: "blueming", MaxResults: 1, MusicOnly: true}

	first := search.NewCached(fake, e2e.GetCache(t, connStr, "e2e-search:"), time.Minute)
	want, err := first.Search(t.Context(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// A second bot process sharing the instance sees the cached result.
	second := search.NewCached(fake, e2e.GetCache(t, connStr, "e2e-search:"), time.Minute)
	got, err := second.Search(t.Context(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("cached results mismatch (-want +got):\n%s", diff)
	}
	if n := fake.SearchCount(); n != 1 {
		t.Errorf("expected one upstream search, got %d", n)
	}
}
