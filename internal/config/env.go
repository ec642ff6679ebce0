package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// EnvPrefix prefixes every environment variable read by LoadEnv.
const EnvPrefix = "TUIDICE_"

// LoadEnv overlays TUIDICE_* environment variables onto cfg. Variables that
// are unset leave the file value in place.
func LoadEnv(cfg FileConfig) (FileConfig, error) {
	var fromEnv RollConfig
	if err := env.ParseWithOptions(&fromEnv, env.Options{Prefix: EnvPrefix}); err != nil {
		return FileConfig{}, fmt.Errorf("failed to parse environment: %w", err)
	}
	out := cfg
	if fromEnv.MaxDice != nil {
		out.Roll.MaxDice = fromEnv.MaxDice
	}
	if fromEnv.MaxBatch != nil {
		out.Roll.MaxBatch = fromEnv.MaxBatch
	}
	if fromEnv.MaxRollsLen != nil {
		out.Roll.MaxRollsLen = fromEnv.MaxRollsLen
	}
	if fromEnv.Seed != nil {
		out.Roll.Seed = fromEnv.Seed
	}
	if fromEnv.Format != nil {
		out.Roll.Format = fromEnv.Format
	}
	if fromEnv.History != nil {
		out.Roll.History = fromEnv.History
	}
	return out, nil
}

// Load reads the config file at path and applies the environment overlay.
func Load(path string) (FileConfig, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return FileConfig{}, err
	}
	return LoadEnv(cfg)
}
