package config

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/sethvargo/go-envconfig"
)

type LogConfig struct {
	Level string `env:"LOG_LEVEL, default=info"`
}

func NewLogConfigFromEnv() (*LogConfig, error) {
	return NewLogConfig(nil)
}

func NewLogConfig(l envconfig.Lookuper) (*LogConfig, error) {
	var cfg LogConfig
	if err := process(l, &cfg); err != nil {
		return nil, err
	}
	if _, err := cfg.SlogLevel(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *LogConfig) SlogLevel() (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(c.Level)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown LOG_LEVEL %q", c.Level)
	}
}
