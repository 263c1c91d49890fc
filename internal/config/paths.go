package config

import (
	"os"
	"path/filepath"
)

// GetHome returns GITSMART_HOME or the ~/.gitsmart default
func GetHome() string {
	home := os.Getenv("GITSMART_HOME")
	if home == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return ".gitsmart"
		}
		return filepath.Join(homeDir, ".gitsmart")
	}
	return ExpandPath(home)
}

// GetDBPath returns $GITSMART_HOME/state.db
func GetDBPath() string {
	return filepath.Join(GetHome(), "state.db")
}

// GetSettingsPath returns $GITSMART_HOME/settings.json
func GetSettingsPath() string {
	return filepath.Join(GetHome(), "settings.json")
}

// GetServerLockPath returns $GITSMART_HOME/server.lock
func GetServerLockPath() string {
	return filepath.Join(GetHome(), "server.lock")
}

// GetHostKeyPath returns the SSH host key used by the companion server
func GetHostKeyPath() string {
	return filepath.Join(GetHome(), "ssh_host_ed25519")
}

// ExpandPath expands ~ to home directory
func ExpandPath(path string) string {
	if len(path) > 0 && path[0] == '~' {
		homeDir, err := os.UserHomeDir()
		if err == nil {
			if len(path) == 1 {
				return homeDir
			}
			return filepath.Join(homeDir, path[1:])
		}
	}
	return path
}
