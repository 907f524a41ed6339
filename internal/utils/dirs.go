package utils

import (
	"fmt"
	"os"
	"path/filepath"
)

const appName = "tosk"

// ConfigDir returns the directory holding config.enc and settings.toml.
// TOSK_CONFIG_DIR overrides the platform default.
func ConfigDir() (string, error) {
	if dir := os.Getenv("TOSK_CONFIG_DIR"); dir != "" {
		return dir, nil
	}

	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user config directory: %w", err)
	}
	return filepath.Join(configDir, appName), nil
}

// DataDir returns the directory holding the planner's task files.
// TOSK_DATA_DIR overrides $XDG_DATA_HOME/tosk (or ~/.local/share/tosk).
func DataDir() (string, error) {
	if dir := os.Getenv("TOSK_DATA_DIR"); dir != "" {
		return dir, nil
	}

	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		dataDir = filepath.Join(homeDir, ".local", "share")
	}
	return filepath.Join(dataDir, appName), nil
}
