package search

import (
	"context"
	"fmt"
	"strings"

	"github.com/glizzus/toribot/internal/track"
	"github.com/glizzus/toribot/internal/util"
)

// Resolver turns what a user typed into a playable track.
type Resolver struct {
	provider Provider
}

func NewResolver(p Provider) *Resolver {
	return &Resolver{provider: p}
}

// Resolve accepts either a YouTube URL or free text. URLs keep the video
// they point to; the title is looked up and falls back to the URL itself.
// Free text resolves to the first music result.
func (r *Resolver) Resolve(ctx context.Context, query string) (track.Track, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return track.Track{}, ErrNoResults
	}

	if track.IsYouTubeURL(query) {
		id, ok := track.ExtractVideoID(query)
		if !ok {
			return track.Track{}, fmt.Errorf("no video ID in %q: %w", query, ErrNoResults)
		}
		t := track.New(id, query)
		videos, err := r.provider.Videos(ctx, []string{id})
		if err != nil {
			return t, nil
		}
		if v, found := util.FindFirst(videos, func(v Video) bool {
			return v.ID == id && v.Title != ""
		}); found {
			t.Title = v.Title
		}
		return t, nil
	}

	videos, err := r.provider.Search(ctx, Request{Query: query, MaxResults: 1, MusicOnly: true})
	if err != nil {
		return track.Track{}, err
	}
	if len(videos) == 0 {
		return track.Track{}, fmt.Errorf("searching %q: %w", query, ErrNoResults)
	}
	return track.New(videos[0].ID, videos[0].Title), nil
}
