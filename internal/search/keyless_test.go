package search_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/glizzus/toribot/internal/search"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/ppalone/ytsearch"
	"github.com/raitonoberu/ytmusic"
)

type fakeWeb struct {
	mu          sync.Mutex
	results     map[string][]ytsearch.VideoInfo
	err         error
	delay       time.Duration
	queries     []string
	inFlight    int
	maxInFlight int
}

func newFakeWeb() *fakeWeb {
	return &fakeWeb{results: make(map[string][]ytsearch.VideoInfo)}
}

func (w *fakeWeb) Search(ctx context.Context, query string) (ytsearch.SearchResponse, error) {
	w.mu.Lock()
	w.queries = append(w.queries, query)
	w.inFlight++
	w.maxInFlight = max(w.maxInFlight, w.inFlight)
	delay := w.delay
	w.mu.Unlock()

	time.Sleep(delay)

	w.mu.Lock()
	defer w.mu.Unlock()
	w.inFlight--
	if w.err != nil {
		return ytsearch.SearchResponse{}, w.err
	}
	return ytsearch.SearchResponse{Results: w.results[query]}, nil
}

func (w *fakeWeb) queryCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.queries)
}

func musicTracks(tracks ...*ytmusic.TrackItem) search.MusicSearcher {
	return func(string) (*ytmusic.SearchResult, error) {
		return &ytmusic.SearchResult{Tracks: tracks}, nil
	}
}

func noMusic(string) (*ytmusic.SearchResult, error) {
	return nil, errors.New("no music search expected")
}

var sortVideos = cmpopts.SortSlices(func(x, y search.Video) bool { return x.ID < y.ID })

func TestKeyless_VideosTrustsMusicSearch(t *testing.T) {
	web := newFakeWeb()
	k := search.NewKeylessWith(web, musicTracks(
		&ytmusic.TrackItem{VideoID: "aaaaaaaaaaa", Title: "Blueming", Artists: []ytmusic.Artist{{Name: "IU"}}},
		&ytmusic.TrackItem{VideoID: "bbbbbbbbbbb", Title: "Palette", Artists: []ytmusic.Artist{{Name: "IU"}}},
	))
	ctx := context.Background()

	found, err := k.Search(ctx, search.Request{Query: "iu", MaxResults: 20, MusicOnly: true, ExcludeLive: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ids := make([]string, 0, len(found))
	for _, v := range found {
		ids = append(ids, v.ID)
	}

	got, err := k.Videos(ctx, ids)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []search.Video{
		{ID: "aaaaaaaaaaa", Title: "Blueming", Channel: "IU", CategoryID: search.MusicCategoryID},
		{ID: "bbbbbbbbbbb", Title: "Palette", Channel: "IU", CategoryID: search.MusicCategoryID},
	}
	if diff := cmp.Diff(want, got, sortVideos); diff != "" {
		t.Errorf("Videos() mismatch (-want +got):\n%s", diff)
	}
	if n := web.queryCount(); n != 0 {
		t.Errorf("expected no web lookups for music search results, got %d", n)
	}
}

func TestKeyless_VideosLooksUpUnknownIDs(t *testing.T) {
	web := newFakeWeb()
	web.results["ccccccccccc"] = []ytsearch.VideoInfo{{VideoID: "ccccccccccc", Title: "Eight", Channel: "IU", Duration: "2:47"}}
	web.results["ddddddddddd"] = []ytsearch.VideoInfo{{VideoID: "zzzzzzzzzzz", Title: "Something else", Duration: "3:00"}}
	web.results["eeeeeeeeeee"] = []ytsearch.VideoInfo{{VideoID: "eeeeeeeeeee", Title: "lofi radio", Channel: "Lofi"}}
	k := search.NewKeylessWith(web, musicTracks(
		&ytmusic.TrackItem{VideoID: "aaaaaaaaaaa", Title: "Blueming"},
	))
	ctx := context.Background()

	if _, err := k.Search(ctx, search.Request{Query: "iu", MusicOnly: true}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, err := k.Videos(ctx, []string{"aaaaaaaaaaa", "ccccccccccc", "ddddddddddd", "eeeeeeeeeee"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []search.Video{
		{ID: "aaaaaaaaaaa", Title: "Blueming", CategoryID: search.MusicCategoryID},
		{ID: "ccccccccccc", Title: "Eight", Channel: "IU", CategoryID: search.MusicCategoryID},
		{ID: "eeeeeeeeeee", Title: "lofi radio", Channel: "Lofi", CategoryID: search.MusicCategoryID, Live: true},
	}
	if diff := cmp.Diff(want, got, sortVideos); diff != "" {
		t.Errorf("Videos() mismatch (-want +got):\n%s", diff)
	}
	if n := web.queryCount(); n != 3 {
		t.Errorf("expected a web lookup per unknown id, got %d", n)
	}
}

func TestKeyless_VideosBoundsConcurrency(t *testing.T) {
	web := newFakeWeb()
	web.delay = 10 * time.Millisecond
	var ids []string
	for _, c := range "abcdefghij" {
		id := string(c) + "0000000000"
		ids = append(ids, id)
		web.results[id] = []ytsearch.VideoInfo{{VideoID: id, Title: id, Duration: "3:00"}}
	}
	k := search.NewKeylessWith(web, noMusic)

	got, err := k.Videos(context.Background(), ids)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != len(ids) {
		t.Errorf("expected %d videos, got %d", len(ids), len(got))
	}
	web.mu.Lock()
	defer web.mu.Unlock()
	if web.maxInFlight > 4 {
		t.Errorf("expected at most 4 lookups at once, got %d", web.maxInFlight)
	}
}

func TestKeyless_VideosFailures(t *testing.T) {
	web := newFakeWeb()
	web.err = errors.New("rate limited")
	k := search.NewKeylessWith(web, noMusic)

	if _, err := k.Videos(context.Background(), []string{"aaaaaaaaaaa", "bbbbbbbbbbb"}); err == nil {
		t.Error("expected an error when every lookup fails")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	web.err = nil
	if _, err := k.Videos(ctx, []string{"aaaaaaaaaaa"}); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context cancellation, got %v", err)
	}
}

func TestKeyless_SearchWebExcludeLive(t *testing.T) {
	web := newFakeWeb()
	web.results["lofi"] = []ytsearch.VideoInfo{
		{VideoID: "aaaaaaaaaaa", Title: "lofi radio"},
		{VideoID: "bbbbbbbbbbb", Title: "lofi song", Duration: "2:10"},
	}
	k := search.NewKeylessWith(web, noMusic)

	got, err := k.Search(context.Background(), search.Request{Query: "lofi", ExcludeLive: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []search.Video{{ID: "bbbbbbbbbbb", Title: "lofi song"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Search() mismatch (-want +got):\n%s", diff)
	}
}
