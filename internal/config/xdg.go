package config

import (
	"os"
	"path/filepath"
)

const appName = "tuidice"

// xdgDir returns the directory named by env, or fallback under the user's
// home directory when env is unset.
func xdgDir(env string, fallback ...string) string {
	if v := os.Getenv(env); v != "" {
		return v
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return "."
	}
	return filepath.Join(append([]string{home}, fallback...)...)
}

// DefaultDBPath returns $XDG_DATA_HOME/tuidice/tuidice.db.
func DefaultDBPath() string {
	return filepath.Join(xdgDir("XDG_DATA_HOME", ".local", "share"), appName, appName+".db")
}

// DefaultConfigPath returns $XDG_CONFIG_HOME/tuidice/config.toml.
func DefaultConfigPath() string {
	return filepath.Join(xdgDir("XDG_CONFIG_HOME", ".config"), appName, "config.toml")
}
