// Package xdg provides XDG Base Directory paths for Tessera.
package xdg

import (
	"os"
	"path/filepath"
)

const appName = "tessera"

// ConfigFileName is the name of the config file looked up in config directories.
const ConfigFileName = "tessera.yaml"

// ConfigDir returns the XDG config directory for tessera.
// Checks XDG_CONFIG_HOME first, falls back to ~/.config.
func ConfigDir() string {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		base = filepath.Join(os.Getenv("HOME"), ".config")
	}
	return filepath.Join(base, appName)
}

// FindConfig returns the first existing config file among dir/tessera.yaml and
// ConfigDir()/tessera.yaml, or "" if neither exists.
func FindConfig(dir string) string {
	for _, candidate := range []string{
		filepath.Join(dir, ConfigFileName),
		filepath.Join(ConfigDir(), ConfigFileName),
	} {
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate
		}
	}
	return ""
}
