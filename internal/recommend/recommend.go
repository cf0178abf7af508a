// Package recommend picks the next track when autoplay runs out of queue.
package recommend

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"slices"
	"strings"
	"sync"

	"github.com/glizzus/toribot/internal/search"
	"github.com/glizzus/toribot/internal/title"
	"github.com/glizzus/toribot/internal/track"
)

const (
	// Candidates is how many search results are considered.
	Candidates = 20
	// TopN bounds the random pick to the most relevant filtered candidates.
	TopN = 5

	minQueryLength = 3
)

// Seed is the track that just finished plus the current history.
type Seed struct {
	VideoID string
	Title   string
	History []string
}

// Pick is a recommendation. ResetHistory is set when every candidate was in
// the history; the caller owns the history and is expected to clear it.
type Pick struct {
	Track        track.Track
	ResetHistory bool
}

// Selector finds a related track for a seed.
type Selector struct {
	provider search.Provider

	mu   sync.Mutex
	intn func(n int) int
}

func NewSelector(p search.Provider) *Selector {
	return NewSelectorWithRand(p, rand.IntN)
}

// NewSelectorWithRand is NewSelector with a custom source of randomness.
// intn must return a value in [0, n).
func NewSelectorWithRand(p search.Provider, intn func(n int) int) *Selector {
	return &Selector{provider: p, intn: intn}
}

// Query derives the search query for a raw video title. The parsed artist
// wins when it is long enough, then the first word of the parsed title,
// then the whole cleaned title.
func Query(rawTitle string) string {
	info := title.Parse(rawTitle)
	if len([]rune(info.Artist)) >= minQueryLength {
		return info.Artist
	}
	if fields := strings.Fields(info.Title); len(fields) > 0 && len([]rune(fields[0])) >= minQueryLength {
		return fields[0]
	}
	return title.Clean(rawTitle)
}

// Next returns a related track that is neither the seed nor in its
// history. It reports false when nothing suitable was found; failures of
// the search provider are logged and also reported as false.
func (s *Selector) Next(ctx context.Context, seed Seed) (Pick, bool) {
	if !track.ValidID(seed.VideoID) {
		return Pick{}, false
	}

	query := Query(seed.Title)
	if query == "" {
		return Pick{}, false
	}

	results, err := s.provider.Search(ctx, search.Request{
		Query:       query,
		MaxResults:  Candidates,
		MusicOnly:   true,
		ExcludeLive: true,
	})
	if err != nil {
		slog.Warn("recommendation search failed", "query", query, "error", err)
		return Pick{}, false
	}
	if len(results) == 0 {
		slog.Debug("recommendation search returned nothing", "query", query)
		return Pick{}, false
	}

	ids := make([]string, 0, len(results))
	for _, r := range results {
		ids = append(ids, r.ID)
	}
	details, err := s.provider.Videos(ctx, ids)
	if err != nil {
		slog.Warn("recommendation detail lookup failed", "query", query, "error", err)
		return Pick{}, false
	}

	eligible := filter(ids, details, seed.VideoID)
	fresh := slices.DeleteFunc(slices.Clone(eligible), func(v search.Video) bool {
		return slices.Contains(seed.History, v.ID)
	})

	pick := Pick{}
	candidates := fresh
	if len(fresh) == 0 {
		if len(eligible) == 0 {
			return Pick{}, false
		}
		pick.ResetHistory = true
		candidates = eligible
	}

	chosen := candidates[s.randomIndex(min(TopN, len(candidates)))]
	pick.Track = track.New(chosen.ID, chosen.Title)
	slog.Info("recommended next track", "seed", seed.VideoID, "query", query, "videoID", chosen.ID, "resetHistory", pick.ResetHistory)
	return pick, true
}

// filter keeps music, non-live, non-seed details in search order.
func filter(order []string, details []search.Video, seedID string) []search.Video {
	byID := make(map[string]search.Video, len(details))
	for _, d := range details {
		byID[d.ID] = d
	}

	var out []search.Video
	seen := make(map[string]struct{}, len(order))
	for _, id := range order {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		d, ok := byID[id]
		if !ok || !d.IsMusic() || d.Live || d.ID == seedID {
			continue
		}
		out = append(out, d)
	}
	return out
}

func (s *Selector) randomIndex(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.intn(n)
}
