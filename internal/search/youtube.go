package search

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"
)

// videosPerRequest is the id limit of a single videos.list call.
const videosPerRequest = 50

// YouTube is a Provider backed by the YouTube Data API v3.
type YouTube struct {
	service *youtube.Service
	limiter *rate.Limiter
}

// NewYouTube creates a provider authenticated with apiKey. Calls are
// throttled to rps requests per second.
func NewYouTube(ctx context.Context, apiKey string, rps float64, opts ...option.ClientOption) (*YouTube, error) {
	opts = append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)
	service, err := youtube.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create youtube service: %w", err)
	}

	limit := rate.Inf
	if rps > 0 {
		limit = rate.Limit(rps)
	}
	return &YouTube{
		service: service,
		limiter: rate.NewLimiter(limit, 1),
	}, nil
}

func (y *YouTube) Search(ctx context.Context, req Request) ([]Video, error) {
	if err := y.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	call := y.service.Search.List([]string{"snippet"}).
		Q(req.Query).
		Type("video").
		MaxResults(int64(req.MaxResults))
	if req.MusicOnly {
		call = call.VideoCategoryId(MusicCategoryID)
	}

	resp, err := call.Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("youtube search %q failed: %w", req.Query, err)
	}

	videos := make([]Video, 0, len(resp.Items))
	for _, item := range resp.Items {
		if item.Id == nil || item.Id.VideoId == "" || item.Snippet == nil {
			continue
		}
		v := Video{
			ID:      item.Id.VideoId,
			Title:   item.Snippet.Title,
			Channel: item.Snippet.ChannelTitle,
			Live:    item.Snippet.LiveBroadcastContent != "" && item.Snippet.LiveBroadcastContent != "none",
		}
		if req.MusicOnly {
			v.CategoryID = MusicCategoryID
		}
		// The API can only select broadcasts by event type, not exclude
		// them, so live results are dropped here.
		if req.ExcludeLive && v.Live {
			continue
		}
		videos = append(videos, v)
	}
	return videos, nil
}

func (y *YouTube) Videos(ctx context.Context, ids []string) ([]Video, error) {
	var videos []Video
	for start := 0; start < len(ids); start += videosPerRequest {
		end := min(start+videosPerRequest, len(ids))

		if err := y.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		resp, err := y.service.Videos.List([]string{"snippet"}).
			Id(ids[start:end]...).
			Context(ctx).
			Do()
		if err != nil {
			return nil, fmt.Errorf("youtube videos lookup failed: %w", err)
		}

		for _, item := range resp.Items {
			if item.Snippet == nil {
				continue
			}
			videos = append(videos, Video{
				ID:         item.Id,
				Title:      item.Snippet.Title,
				Channel:    item.Snippet.ChannelTitle,
				CategoryID: item.Snippet.CategoryId,
				Live:       item.Snippet.LiveBroadcastContent != "none",
			})
		}
	}
	return videos, nil
}

var _ Provider = &YouTube{}
