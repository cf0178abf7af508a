// Package search finds YouTube videos for play requests and recommendations.
//
// Two providers exist: YouTube talks to the Data API v3 and needs an API key,
// Keyless scrapes YouTube Music and YouTube search pages. Cached wraps either.
package search

import (
	"context"
	"errors"
)

// MusicCategoryID is the YouTube video category for music.
const MusicCategoryID = "10"

var ErrNoResults = errors.New("no results found")

// Request describes a video search.
type Request struct {
	Query      string
	MaxResults int
	// MusicOnly restricts results to the music category.
	MusicOnly bool
	// ExcludeLive drops live and upcoming broadcasts from the results.
	ExcludeLive bool
}

// Video is a search hit or a detail lookup result.
type Video struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	Channel    string `json:"channel,omitempty"`
	CategoryID string `json:"categoryId,omitempty"`
	Live       bool   `json:"live,omitempty"`
}

func (v Video) IsMusic() bool {
	return v.CategoryID == MusicCategoryID
}

// Provider is the search capability.
type Provider interface {
	// Search returns candidate videos in relevance order.
	Search(ctx context.Context, req Request) ([]Video, error)
	// Videos returns details for the given IDs. Unknown IDs are omitted and
	// the order of the result is unspecified.
	Videos(ctx context.Context, ids []string) ([]Video, error)
}
