package config

import (
	"github.com/sethvargo/go-envconfig"
)

// RedisConfig configures the shared cache. Without an address the bot
// caches in memory.
type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR"`
	Password string `env:"REDIS_PASSWORD"`
	Prefix   string `env:"REDIS_KEY_PREFIX, default=toribot:"`
}

func NewRedisConfigFromEnv() (*RedisConfig, error) {
	return NewRedisConfig(nil)
}

func NewRedisConfig(l envconfig.Lookuper) (*RedisConfig, error) {
	var cfg RedisConfig
	if err := process(l, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *RedisConfig) Enabled() bool {
	return c.Addr != ""
}
