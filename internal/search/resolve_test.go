package search_test

import (
	"context"
	"errors"
	"testing"

	"github.com/glizzus/toribot/internal/search"
	"github.com/glizzus/toribot/internal/search/searchtest"
	"github.com/glizzus/toribot/internal/track"
	"github.com/google/go-cmp/cmp"
)

func TestResolver_Resolve(t *testing.T) {
	fake := searchtest.NewFake()
	fake.Add("blueming",
		search.Video{ID: "ccccccccccc", Title: "Blueming (cover)", CategoryID: "22"},
		search.Video{ID: "aaaaaaaaaaa", Title: "IU - Blueming", CategoryID: search.MusicCategoryID},
	)
	fake.Add("catalogue only", search.Video{ID: "bbbbbbbbbbb", Title: "Known Title", CategoryID: search.MusicCategoryID})

	tests := []struct {
		name    string
		query   string
		want    track.Track
		wantErr error
	}{
		{
			name:  "free text picks first music result",
			query: "blueming",
			want:  track.New("aaaaaaaaaaa", "IU - Blueming"),
		},
		{
			name:  "url keeps its video and looks up the title",
			query: "https://youtu.be/bbbbbbbbbbb",
			want:  track.New("bbbbbbbbbbb", "Known Title"),
		},
		{
			name:  "url with unknown video falls back to the url as title",
			query: "https://www.youtube.com/watch?v=zzzzzzzzzzz",
			want:  track.New("zzzzzzzzzzz", "https://www.youtube.com/watch?v=zzzzzzzzzzz"),
		},
		{
			name:    "url without id",
			query:   "https://www.youtube.com/feed/trending",
			wantErr: search.ErrNoResults,
		},
		{
			name:    "no results",
			query:   "nothing matches this",
			wantErr: search.ErrNoResults,
		},
		{
			name:    "empty query",
			query:   "   ",
			wantErr: search.ErrNoResults,
		},
	}

	r := search.NewResolver(fake)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.Resolve(context.Background(), tt.query)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected error %v, got %v", tt.wantErr, err)
			}
			if tt.wantErr != nil {
				return
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Resolve() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
