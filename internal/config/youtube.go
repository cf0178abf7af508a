package config

import (
	"fmt"

	"github.com/sethvargo/go-envconfig"
)

type YouTubeConfig struct {
	// APIKey enables the Data API. Without it searches go through the
	// keyless providers.
	APIKey            string  `env:"YOUTUBE_API_KEY"`
	RequestsPerSecond float64 `env:"YOUTUBE_REQUESTS_PER_SECOND, default=5"`
}

func NewYouTubeConfigFromEnv() (*YouTubeConfig, error) {
	return NewYouTubeConfig(nil)
}

func NewYouTubeConfig(l envconfig.Lookuper) (*YouTubeConfig, error) {
	var cfg YouTubeConfig
	if err := process(l, &cfg); err != nil {
		return nil, err
	}
	if cfg.RequestsPerSecond <= 0 {
		return nil, fmt.Errorf("YOUTUBE_REQUESTS_PER_SECOND must be positive, got %v", cfg.RequestsPerSecond)
	}
	return &cfg, nil
}
