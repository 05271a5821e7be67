// Package paths locates the per-user meshchat directories. MESHCHAT_HOME
// overrides both.
package paths

import (
	"os"
	"path/filepath"
)

const homeEnv = "MESHCHAT_HOME"

// ConfigDir holds config.yaml. It falls back to the temporary directory when
// the home directory is unknown.
func ConfigDir() string {
	if dir := os.Getenv(homeEnv); dir != "" {
		return filepath.Clean(dir)
	}
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "meshchat")
	}
	return filepath.Join(os.TempDir(), ".meshchat-config")
}

// DataDir holds logs and caches.
func DataDir() string {
	if dir := os.Getenv(homeEnv); dir != "" {
		return filepath.Join(filepath.Clean(dir), "data")
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".meshchat")
	}
	return filepath.Join(os.TempDir(), ".meshchat")
}

// ConfigFile is the default config file location.
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

// LogFile is the default debug log location.
func LogFile() string {
	return filepath.Join(DataDir(), "meshchat.debug.log")
}
