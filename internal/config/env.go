package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Server holds the ROGUE_* overrides of the server's process knobs. The
// values become flag defaults, so explicit flags still win.
type Server struct {
	DataDir      string `env:"ROGUE_DATA_DIR" envDefault:"./data"`
	TuningPath   string `env:"ROGUE_TUNING" envDefault:"./configs/tuning.yaml"`
	WorldConfig  string `env:"ROGUE_WORLD_CONFIG" envDefault:"./configs/world.cmds"`
	ObserveAddr  string `env:"ROGUE_OBSERVE_ADDR" envDefault:"127.0.0.1:8081"`
	IndexBackend string `env:"ROGUE_INDEX_BACKEND" envDefault:"sqlite"`
	DisableDB    bool   `env:"ROGUE_DISABLE_DB"`
}
