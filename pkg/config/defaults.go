package config

import (
	"os"
	"path/filepath"
)

// defaultExportDirs returns the default billing export directories.
//
// Searches in order:
// 1. ~/.local/share/billscan/exports/
// 2. ./exports/
//
// Returns all directories that exist on the filesystem.
func defaultExportDirs() []string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		// Fallback to current directory if home dir not available
		return []string{"."}
	}

	candidates := []string{
		filepath.Join(homeDir, ".local", "share", "billscan", "exports"),
		"./exports",
	}

	var dirs []string
	for _, dir := range candidates {
		if _, err := os.Stat(dir); err == nil {
			dirs = append(dirs, dir)
		}
	}

	// If no directories found, return the current directory so a
	// fresh checkout with exports alongside still works.
	if len(dirs) == 0 {
		return []string{"."}
	}

	return dirs
}

// defaultDBPath returns the default database file path.
//
// Returns: ~/.config/billscan/billscan.db.
func defaultDBPath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "./billscan.db"
	}

	return filepath.Join(homeDir, ".config", "billscan", "billscan.db")
}

// defaultConfigPath returns the default configuration file path.
//
// Returns: ~/.config/billscan/config.yaml.
func defaultConfigPath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "./config.yaml"
	}

	return filepath.Join(homeDir, ".config", "billscan", "config.yaml")
}
