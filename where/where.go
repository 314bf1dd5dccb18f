// Package where resolves application-specific filesystem paths.
package where

import (
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
	"github.com/samber/lo"
	"github.com/vidplay-cli/vidplay/constant"
	"github.com/vidplay-cli/vidplay/filesystem"
)

// EnvConfigPath overrides the default configuration directory.
const EnvConfigPath = "VIDPLAY_CONFIG_PATH"

func ensureDir(path string) string {
	lo.Must0(filesystem.API().MkdirAll(path, os.ModePerm))
	return path
}

// Config resolves the configuration directory, honoring VIDPLAY_CONFIG_PATH first and XDG_CONFIG_HOME otherwise.
func Config() string {
	if custom, ok := os.LookupEnv(EnvConfigPath); ok {
		return ensureDir(custom)
	}
	return ensureDir(filepath.Join(xdg.ConfigHome, constant.Vidplay))
}

// Logs resolves the directory used for diagnostic logs.
func Logs() string {
	return ensureDir(filepath.Join(Config(), "logs"))
}

// State resolves the directory for data that survives restarts but is not configuration (XDG_STATE_HOME).
func State() string {
	return ensureDir(filepath.Join(xdg.StateHome, constant.Vidplay))
}

// History resolves the playback history database.
func History() string {
	return filepath.Join(State(), "history.db")
}
