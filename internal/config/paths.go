package config

import (
	"path/filepath"

	"github.com/adrg/xdg"
)

// Dir returns the per-user configuration directory.
func Dir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// DefaultFile is the config file name looked up in the working directory and
// in Dir.
func DefaultFile() string {
	return AppName + ".yaml"
}
