package config

import (
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
)

type MediaConfig struct {
	YtdlpPath    string        `env:"YTDLP_PATH, default=yt-dlp"`
	FFmpegPath   string        `env:"FFMPEG_PATH, default=ffmpeg"`
	CookieFile   string        `env:"YTDLP_COOKIES, default=./cookies.txt"`
	SettleDelay  time.Duration `env:"PIPELINE_SETTLE_DELAY, default=200ms"`
	ReadyTimeout time.Duration `env:"VOICE_READY_TIMEOUT, default=30s"`
	Autoplay     bool          `env:"AUTOPLAY_DEFAULT, default=true"`
}

func NewMediaConfigFromEnv() (*MediaConfig, error) {
	return NewMediaConfig(nil)
}

func NewMediaConfig(l envconfig.Lookuper) (*MediaConfig, error) {
	var cfg MediaConfig
	if err := process(l, &cfg); err != nil {
		return nil, err
	}
	if cfg.SettleDelay < 0 {
		return nil, fmt.Errorf("PIPELINE_SETTLE_DELAY must not be negative, got %s", cfg.SettleDelay)
	}
	if cfg.ReadyTimeout <= 0 {
		return nil, fmt.Errorf("VOICE_READY_TIMEOUT must be positive, got %s", cfg.ReadyTimeout)
	}
	return &cfg, nil
}
