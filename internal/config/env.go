package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Env holds process-level settings read from the environment. Command
// line flags take precedence over these.
type Env struct {
	DBPath    string `env:"CHANNELFIT_DB" envDefault:"channelfit.db"`
	LogLevel  string `env:"CHANNELFIT_LOG_LEVEL" envDefault:"info"`
	Workers   int    `env:"CHANNELFIT_WORKERS" envDefault:"0"`
	OutputDir string `env:"CHANNELFIT_OUTPUT_DIR"`
}

// LoadEnv parses Env from the process environment.
func LoadEnv() (Env, error) {
	var e Env
	if err := env.Parse(&e); err != nil {
		return Env{}, fmt.Errorf("parse env: %w", err)
	}
	return e, nil
}

// Apply overlays environment settings onto cfg. A zero Workers leaves the
// file value alone.
func (e Env) Apply(cfg *FitConfig) {
	if e.Workers > 0 {
		cfg.Workers = ptrInt(e.Workers)
	}
}
