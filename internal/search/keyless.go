package search

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/ppalone/ytsearch"
	"github.com/raitonoberu/ytmusic"
)

const (
	// lookupConcurrency bounds the web searches a single Videos call runs
	// at once.
	lookupConcurrency = 4
	// knownLimit caps the details remembered from music searches.
	knownLimit = 1024
)

// WebSearcher is the part of the YouTube web search client Keyless uses.
type WebSearcher interface {
	Search(ctx context.Context, query string) (ytsearch.SearchResponse, error)
}

// MusicSearcher runs a YouTube Music track search.
type MusicSearcher func(query string) (*ytmusic.SearchResult, error)

// Keyless is a Provider that needs no API credentials. Music searches go
// through YouTube Music, whose track results are music by construction, and
// their details are remembered so later lookups of the same IDs need no
// request. Other lookups go through YouTube's web search, which does not
// expose a category; every video found that way is reported as music.
type Keyless struct {
	web   WebSearcher
	music MusicSearcher

	mu    sync.Mutex
	known map[string]Video
}

func NewKeyless() *Keyless {
	return NewKeylessWith(ytsearch.NewClient(nil), func(query string) (*ytmusic.SearchResult, error) {
		return ytmusic.TrackSearch(query).Next()
	})
}

// NewKeylessWith returns a Keyless over the given clients.
func NewKeylessWith(web WebSearcher, music MusicSearcher) *Keyless {
	return &Keyless{
		web:   web,
		music: music,
		known: make(map[string]Video),
	}
}

func (k *Keyless) Search(ctx context.Context, req Request) ([]Video, error) {
	if req.MusicOnly {
		return k.searchMusic(ctx, req)
	}
	return k.searchWeb(ctx, req)
}

// searchMusic never returns live videos, so ExcludeLive needs no handling.
func (k *Keyless) searchMusic(ctx context.Context, req Request) ([]Video, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res, err := k.music(req.Query)
	if err != nil {
		return nil, fmt.Errorf("youtube music search %q failed: %w", req.Query, err)
	}

	var videos []Video
	for _, t := range res.Tracks {
		if t == nil || t.VideoID == "" {
			continue
		}
		v := Video{ID: t.VideoID, Title: t.Title, CategoryID: MusicCategoryID}
		if len(t.Artists) > 0 {
			v.Channel = t.Artists[0].Name
		}
		videos = append(videos, v)
		if req.MaxResults > 0 && len(videos) == req.MaxResults {
			break
		}
	}
	k.remember(videos)
	return videos, nil
}

func (k *Keyless) searchWeb(ctx context.Context, req Request) ([]Video, error) {
	res, err := k.web.Search(ctx, req.Query)
	if err != nil {
		return nil, fmt.Errorf("youtube search %q failed: %w", req.Query, err)
	}

	var videos []Video
	for _, r := range res.Results {
		if r.VideoID == "" {
			continue
		}
		v := webVideo(r)
		if req.ExcludeLive && v.Live {
			continue
		}
		videos = append(videos, v)
		if req.MaxResults > 0 && len(videos) == req.MaxResults {
			break
		}
	}
	return videos, nil
}

func (k *Keyless) remember(videos []Video) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if len(k.known)+len(videos) > knownLimit {
		clear(k.known)
	}
	for _, v := range videos {
		k.known[v.ID] = v
	}
}

// Videos answers IDs seen in music searches from memory and looks the rest
// up concurrently. IDs the web search does not echo are omitted. It fails
// only if ctx is done or every lookup failed.
func (k *Keyless) Videos(ctx context.Context, ids []string) ([]Video, error) {
	var (
		videos  []Video
		pending []string
	)
	k.mu.Lock()
	for _, id := range ids {
		if v, ok := k.known[id]; ok {
			videos = append(videos, v)
			continue
		}
		pending = append(pending, id)
	}
	k.mu.Unlock()
	if len(pending) == 0 {
		return videos, nil
	}

	type result struct {
		video Video
		found bool
		err   error
	}
	results := make([]result, len(pending))
	sem := make(chan struct{}, lookupConcurrency)
	var wg sync.WaitGroup
	for i, id := range pending {
		wg.Add(1)
		go func() {
			defer wg.Done()
			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				results[i].err = ctx.Err()
				return
			}
			defer func() { <-sem }()
			results[i].video, results[i].found, results[i].err = k.lookup(ctx, id)
		}()
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var firstErr error
	failed := 0
	for i, r := range results {
		switch {
		case r.err != nil:
			failed++
			if firstErr == nil {
				firstErr = r.err
			}
			slog.Warn("keyless lookup failed", "videoID", pending[i], "error", r.err)
		case r.found:
			videos = append(videos, r.video)
		default:
			slog.Debug("video not found by keyless lookup", "videoID", pending[i])
		}
	}
	if failed == len(results) {
		return nil, firstErr
	}
	return videos, nil
}

func (k *Keyless) lookup(ctx context.Context, id string) (Video, bool, error) {
	res, err := k.web.Search(ctx, id)
	if err != nil {
		return Video{}, false, fmt.Errorf("youtube lookup of %s failed: %w", id, err)
	}
	for _, r := range res.Results {
		if r.VideoID != id {
			continue
		}
		v := webVideo(r)
		v.CategoryID = MusicCategoryID
		return v, true, nil
	}
	return Video{}, false, nil
}

func webVideo(r ytsearch.VideoInfo) Video {
	return Video{
		ID:      r.VideoID,
		Title:   r.Title,
		Channel: r.Channel,
		// Live streams are listed without a duration.
		Live: r.Duration == "",
	}
}

var _ Provider = &Keyless{}
