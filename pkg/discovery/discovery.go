// Package discovery provides functionality for discovering billing export
// files and mapping them to billing accounts.
//
// It scans configured directories for JSONL export files and extracts
// account and export-month information.
//
// Example usage:
//
//	d := discovery.New([]string{"~/.local/share/billscan/exports"}, logger.Default())
//	exports, err := d.Discover()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, exp := range exports {
//	    fmt.Printf("Export: %s, Account: %s\n", exp.FilePath, exp.AccountID)
//	}
package discovery

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Logger defines the logging interface used by the discovery package.
type Logger interface {
	Debug(msg string, keysAndValues ...interface{})
	Info(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// ExportFile represents a discovered billing export JSONL file.
type ExportFile struct {
	// AccountID is the billing account the export belongs to, taken
	// from the containing directory name. Empty for exports placed
	// directly in a base directory.
	AccountID string

	// Month is the export month in YYYY-MM form, taken from the
	// filename. Empty when the filename does not carry a month.
	Month string

	// FilePath is the absolute path to the JSONL file.
	FilePath string

	// Size is the file size in bytes.
	Size int64

	// ModTime is the last modification time.
	ModTime int64 // Unix timestamp
}

// Discoverer provides methods for discovering billing export files.
type Discoverer interface {
	// Discover scans configured directories and returns all export files found.
	//
	// Returns:
	//   - Slice of discovered export files, sorted by path
	//   - Error if directories cannot be accessed
	//
	// Skips files that are not JSONL exports.
	Discover() ([]ExportFile, error)

	// DiscoverAccount returns export files for a specific account directory.
	//
	// Parameters:
	//   - accountPath: Absolute or relative path to account directory
	//
	// Returns:
	//   - Slice of export files in the directory
	//   - Error if directory cannot be accessed
	DiscoverAccount(accountPath string) ([]ExportFile, error)
}

// discoverer implements the Discoverer interface.
type discoverer struct {
	baseDirs []string // export directories to scan
	logger   Logger
}

// New creates a new Discoverer instance.
//
// Parameters:
//   - baseDirs: List of base directories to scan
//   - logger: Logger instance for diagnostic messages
//
// Returns a configured Discoverer.
func New(baseDirs []string, logger Logger) Discoverer {
	return &discoverer{
		baseDirs: baseDirs,
		logger:   logger,
	}
}

// Discover implements Discoverer.Discover.
func (d *discoverer) Discover() ([]ExportFile, error) {
	var allExports []ExportFile

	for _, baseDir := range d.baseDirs {
		// Expand home directory if present
		expandedDir := expandHome(baseDir)

		// Check if directory exists
		if _, err := os.Stat(expandedDir); err != nil {
			if os.IsNotExist(err) {
				d.logger.Warn("directory not found, skipping", "path", expandedDir)
				continue
			}
			return nil, fmt.Errorf("failed to stat directory %s: %w", expandedDir, err)
		}

		// Scan directory for account subdirectories and loose exports
		exports, err := d.scanBaseDirectory(expandedDir)
		if err != nil {
			return nil, fmt.Errorf("failed to scan directory %s: %w", expandedDir, err)
		}

		allExports = append(allExports, exports...)
	}

	sort.Slice(allExports, func(i, j int) bool {
		return allExports[i].FilePath < allExports[j].FilePath
	})

	d.logger.Info("discovery complete", "total_exports", len(allExports))
	return allExports, nil
}

// DiscoverAccount implements Discoverer.DiscoverAccount.
func (d *discoverer) DiscoverAccount(accountPath string) ([]ExportFile, error) {
	expandedPath := expandHome(accountPath)

	// Check if directory exists
	if _, err := os.Stat(expandedPath); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrAccountNotFound, expandedPath)
		}
		return nil, fmt.Errorf("failed to stat directory %s: %w", expandedPath, err)
	}

	return d.scanAccountDirectory(expandedPath, filepath.Base(expandedPath))
}

// scanBaseDirectory scans a base directory for account subdirectories.
//
// Expected structure: basedir/account-id/YYYY-MM.jsonl, with loose
// *.jsonl files directly under basedir also accepted.
func (d *discoverer) scanBaseDirectory(baseDir string) ([]ExportFile, error) {
	var exports []ExportFile

	// Read all entries in base directory
	entries, err := os.ReadDir(baseDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory: %w", err)
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			// Loose export in the base directory; no account association.
			if exp, ok := d.exportFromEntry(baseDir, "", entry); ok {
				exports = append(exports, exp)
			}
			continue
		}

		accountPath := filepath.Join(baseDir, entry.Name())
		accountExports, err := d.scanAccountDirectory(accountPath, entry.Name())
		if err != nil {
			d.logger.Warn("failed to scan account directory",
				"path", accountPath,
				"error", err)
			continue
		}

		exports = append(exports, accountExports...)
	}

	return exports, nil
}

// scanAccountDirectory scans an account directory for export JSONL files.
func (d *discoverer) scanAccountDirectory(accountDir, accountID string) ([]ExportFile, error) {
	exports := make([]ExportFile, 0, 12) // Pre-allocate for a year of monthly exports

	// Read all files in account directory
	entries, err := os.ReadDir(accountDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		if exp, ok := d.exportFromEntry(accountDir, accountID, entry); ok {
			exports = append(exports, exp)
		}
	}

	d.logger.Debug("scanned account directory",
		"path", accountDir,
		"exports_found", len(exports))

	return exports, nil
}

// exportFromEntry builds an ExportFile from a directory entry, or
// reports false for entries that are not JSONL exports.
func (d *discoverer) exportFromEntry(dir, accountID string, entry os.DirEntry) (ExportFile, bool) {
	if !strings.HasSuffix(entry.Name(), ".jsonl") {
		return ExportFile{}, false
	}

	name := strings.TrimSuffix(entry.Name(), ".jsonl")

	// Monthly exports are named YYYY-MM.jsonl; other names are still
	// accepted but carry no month.
	month := ""
	if isValidMonth(name) {
		month = name
	}

	filePath := filepath.Join(dir, entry.Name())
	info, err := entry.Info()
	if err != nil {
		d.logger.Warn("failed to get file info",
			"path", filePath,
			"error", err)
		return ExportFile{}, false
	}

	return ExportFile{
		AccountID: accountID,
		Month:     month,
		FilePath:  filePath,
		Size:      info.Size(),
		ModTime:   info.ModTime().Unix(),
	}, true
}

// expandHome expands ~ in file paths to the user's home directory.
func expandHome(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return path
	}

	if path == "~" {
		return homeDir
	}

	return filepath.Join(homeDir, path[2:])
}

// isValidMonth performs basic validation on an export month name.
//
// Expected format: YYYY-MM
// Example: 2025-07.
func isValidMonth(name string) bool {
	if len(name) != 7 {
		return false
	}

	if name[4] != '-' {
		return false
	}

	for i, c := range name {
		if i == 4 {
			continue
		}
		if c < '0' || c > '9' {
			return false
		}
	}

	// Month must be 01-12.
	month := (int(name[5]-'0') * 10) + int(name[6]-'0')
	return month >= 1 && month <= 12
}
