package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/glizzus/toribot/internal/cache"
)

// DefaultCacheTTL is how long search results and video details are reused.
const DefaultCacheTTL = time.Hour

// Cached serves repeated searches and detail lookups from a cache. Cache
// failures are logged and fall through to the wrapped provider.
type Cached struct {
	next  Provider
	cache cache.Cache
	ttl   time.Duration
}

func NewCached(next Provider, c cache.Cache, ttl time.Duration) *Cached {
	return &Cached{next: next, cache: c, ttl: ttl}
}

func searchKey(req Request) string {
	return fmt.Sprintf("search:%t:%t:%d:%s", req.MusicOnly, req.ExcludeLive, req.MaxResults, strings.ToLower(strings.TrimSpace(req.Query)))
}

func videoKey(id string) string {
	return "video:" + id
}

func (c *Cached) Search(ctx context.Context, req Request) ([]Video, error) {
	key := searchKey(req)

	var videos []Video
	err := cache.GetJSON(ctx, c.cache, key, &videos)
	if err == nil {
		return videos, nil
	}
	if !errors.Is(err, cache.ErrMiss) {
		slog.Warn("failed to read search cache", "key", key, "error", err)
	}

	videos, err = c.next.Search(ctx, req)
	if err != nil {
		return nil, err
	}
	if err := cache.SetJSON(ctx, c.cache, key, videos, c.ttl); err != nil {
		slog.Warn("failed to write search cache", "key", key, "error", err)
	}
	return videos, nil
}

func (c *Cached) Videos(ctx context.Context, ids []string) ([]Video, error) {
	var (
		videos  []Video
		missing []string
	)
	for _, id := range ids {
		var v Video
		err := cache.GetJSON(ctx, c.cache, videoKey(id), &v)
		switch {
		case err == nil:
			videos = append(videos, v)
		case errors.Is(err, cache.ErrMiss):
			missing = append(missing, id)
		default:
			slog.Warn("failed to read video cache", "videoID", id, "error", err)
			missing = append(missing, id)
		}
	}
	if len(missing) == 0 {
		return videos, nil
	}

	fetched, err := c.next.Videos(ctx, missing)
	if err != nil {
		return nil, err
	}
	for _, v := range fetched {
		if err := cache.SetJSON(ctx, c.cache, videoKey(v.ID), v, c.ttl); err != nil {
			slog.Warn("failed to write video cache", "videoID", v.ID, "error", err)
		}
	}
	return append(videos, fetched...), nil
}

var _ Provider = &Cached{}
