// Package searchtest provides an in-memory search.Provider for tests.
package searchtest

import (
	"context"
	"strings"
	"sync"

	"github.com/glizzus/toribot/internal/search"
)

// Fake answers searches from a fixed table keyed by query and detail lookups
// from a catalogue of videos.
type Fake struct {
	mu sync.Mutex

	Results   map[string][]search.Video
	Catalogue map[string]search.Video

	SearchErr error
	VideosErr error

	Queries      []search.Request
	VideoLookups [][]string
}

func NewFake() *Fake {
	return &Fake{
		Results:   make(map[string][]search.Video),
		Catalogue: make(map[string]search.Video),
	}
}

// Add registers videos as the result of query and adds them to the catalogue.
func (f *Fake) Add(query string, videos ...search.Video) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Results[query] = append(f.Results[query], videos...)
	for _, v := range videos {
		f.Catalogue[v.ID] = v
	}
}

func (f *Fake) Search(ctx context.Context, req search.Request) ([]search.Video, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Queries = append(f.Queries, req)
	if f.SearchErr != nil {
		return nil, f.SearchErr
	}

	var out []search.Video
	for _, v := range f.Results[strings.TrimSpace(req.Query)] {
		if req.MusicOnly && !v.IsMusic() {
			continue
		}
		if req.ExcludeLive && v.Live {
			continue
		}
		out = append(out, search.Video{ID: v.ID, Title: v.Title, Channel: v.Channel})
		if req.MaxResults > 0 && len(out) == req.MaxResults {
			break
		}
	}
	return out, nil
}

func (f *Fake) Videos(ctx context.Context, ids []string) ([]search.Video, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.VideoLookups = append(f.VideoLookups, append([]string(nil), ids...))
	if f.VideosErr != nil {
		return nil, f.VideosErr
	}

	var out []search.Video
	for i := len(ids) - 1; i >= 0; i-- {
		if v, ok := f.Catalogue[ids[i]]; ok {
			out = append(out, v)
		}
	}
	return out, nil
}

// SearchCount reports how many searches reached the fake.
func (f *Fake) SearchCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Queries)
}

var _ search.Provider = &Fake{}
