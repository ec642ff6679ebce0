// Package config provides configuration helpers and TOML parsing.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// FileConfig represents the TOML configuration file.
type FileConfig struct {
	Roll RollConfig `toml:"roll"`
}

// RollConfig maps roll-related settings. Nil fields were not set.
type RollConfig struct {
	MaxDice     *int    `toml:"max-dice" env:"MAX_DICE"`
	MaxBatch    *int    `toml:"max-batch" env:"MAX_BATCH"`
	MaxRollsLen *int    `toml:"max-rolls-len" env:"MAX_ROLLS_LEN"`
	Seed        *int64  `toml:"seed" env:"SEED"`
	Format      *string `toml:"format" env:"FORMAT"`
	History     *bool   `toml:"history" env:"HISTORY"`
}

// LoadConfig reads a TOML config from the given path. Missing file is not an error.
func LoadConfig(path string) (FileConfig, error) {
	if path == "" {
		return FileConfig{}, fmt.Errorf("config path is empty")
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, nil
		}
		return FileConfig{}, fmt.Errorf("failed to stat config: %w", err)
	}
	var cfg FileConfig
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return FileConfig{}, fmt.Errorf("failed to decode config: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return FileConfig{}, fmt.Errorf("unknown config key %q", undecoded[0].String())
	}
	return cfg, nil
}
