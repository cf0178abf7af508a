package config

import (
	"context"

	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"
)

// LoadEnv loads variables from .env files, or ./.env when none are given.
// Variables already set in the environment win. A missing file is reported
// with an error satisfying os.IsNotExist.
func LoadEnv(files ...string) error {
	return godotenv.Load(files...)
}

// process fills target from l, or from the process environment when l is
// nil.
func process(l envconfig.Lookuper, target any) error {
	if l == nil {
		l = envconfig.OsLookuper()
	}
	return envconfig.ProcessWith(context.Background(), &envconfig.Config{
		Target:   target,
		Lookuper: l,
	})
}
