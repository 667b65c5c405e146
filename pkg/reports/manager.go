package reports

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/cloudbill/billscan/pkg/logger"
)

// Bucket names.
var (
	bucketMeta     = []byte("report_meta")     // Name -> Summary
	bucketPayloads = []byte("report_payloads") // Name -> raw analysis output
)

// maxNameLength bounds report names so they stay usable as CLI arguments.
const maxNameLength = 64

// manager implements the Manager interface using BoltDB.
type manager struct {
	db     *bolt.DB
	logger logger.Logger
	config Config
}

// New creates a new report manager.
//
// Parameters:
//   - cfg: Manager configuration
//   - log: Logger instance
//
// Returns:
//   - Configured Manager
//   - Error if database cannot be opened
func New(cfg Config, log logger.Logger) (Manager, error) {
	// Set default timeout.
	if cfg.Timeout == 0 {
		cfg.Timeout = time.Second
	}

	// Expand home directory in path.
	dbPath := expandHome(cfg.DBPath)

	// Create directory if it doesn't exist.
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// Open database.
	db, err := bolt.Open(dbPath, 0600, &bolt.Options{
		Timeout: cfg.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Initialize buckets.
	if err := db.Update(func(tx *bolt.Tx) error {
		if _, createErr := tx.CreateBucketIfNotExists(bucketMeta); createErr != nil {
			return fmt.Errorf("failed to create meta bucket: %w", createErr)
		}
		if _, createErr := tx.CreateBucketIfNotExists(bucketPayloads); createErr != nil {
			return fmt.Errorf("failed to create payloads bucket: %w", createErr)
		}
		return nil
	}); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			log.Error("failed to close database after initialization error",
				"error", closeErr)
		}
		return nil, err
	}

	log.Info("report manager initialized", "db_path", dbPath)

	return &manager{
		db:     db,
		logger: log,
		config: cfg,
	}, nil
}

// Save implements Manager.Save.
func (m *manager) Save(report *Report) error {
	if report == nil || len(report.Payload) == 0 {
		return ErrInvalidReport
	}

	if !isValidName(report.Name) {
		return ErrInvalidName
	}

	if !report.Kind.Valid() {
		return ErrInvalidKind
	}

	report.CreatedAt = time.Now()

	return m.db.Update(func(tx *bolt.Tx) error {
		meta := tx.Bucket(bucketMeta)
		payloads := tx.Bucket(bucketPayloads)

		// Check if name is already taken.
		if meta.Get([]byte(report.Name)) != nil {
			return ErrNameConflict
		}

		// Marshal metadata without the payload.
		data, err := json.Marshal(Summary{
			Name:        report.Name,
			Kind:        report.Kind,
			CreatedAt:   report.CreatedAt,
			Params:      report.Params,
			Description: report.Description,
		})
		if err != nil {
			return fmt.Errorf("failed to marshal report metadata: %w", err)
		}

		if err := meta.Put([]byte(report.Name), data); err != nil {
			return fmt.Errorf("failed to store report metadata: %w", err)
		}

		if err := payloads.Put([]byte(report.Name), report.Payload); err != nil {
			return fmt.Errorf("failed to store report payload: %w", err)
		}

		m.logger.Info("report saved",
			"name", report.Name,
			"kind", report.Kind,
			"payload_bytes", len(report.Payload))

		return nil
	})
}

// Get implements Manager.Get.
func (m *manager) Get(name string) (*Report, error) {
	if !isValidName(name) {
		return nil, ErrInvalidName
	}

	var report *Report

	err := m.db.View(func(tx *bolt.Tx) error {
		meta := tx.Bucket(bucketMeta)
		payloads := tx.Bucket(bucketPayloads)

		data := meta.Get([]byte(name))
		if data == nil {
			return ErrReportNotFound
		}

		var s Summary
		if unmarshalErr := json.Unmarshal(data, &s); unmarshalErr != nil {
			return fmt.Errorf("failed to unmarshal report metadata: %w", unmarshalErr)
		}

		// Copy the payload out of the transaction; bolt memory is only
		// valid while the transaction is open.
		payload := payloads.Get([]byte(name))
		copied := make([]byte, len(payload))
		copy(copied, payload)

		report = &Report{
			Name:        s.Name,
			Kind:        s.Kind,
			CreatedAt:   s.CreatedAt,
			Params:      s.Params,
			Description: s.Description,
			Payload:     copied,
		}
		return nil
	})

	if err != nil {
		return nil, err
	}

	return report, nil
}

// List implements Manager.List.
func (m *manager) List() ([]*Summary, error) {
	summaries := make([]*Summary, 0, 10)

	err := m.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketMeta)

		return b.ForEach(func(k, v []byte) error {
			var s Summary
			if unmarshalErr := json.Unmarshal(v, &s); unmarshalErr != nil {
				m.logger.Warn("failed to unmarshal report metadata",
					"name", string(k),
					"error", unmarshalErr)
				return nil // Skip invalid entries.
			}

			summaries = append(summaries, &s)
			return nil
		})
	})

	if err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}

	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].Name < summaries[j].Name
	})

	return summaries, nil
}

// Delete implements Manager.Delete.
func (m *manager) Delete(name string) error {
	if !isValidName(name) {
		return ErrInvalidName
	}

	return m.db.Update(func(tx *bolt.Tx) error {
		meta := tx.Bucket(bucketMeta)
		payloads := tx.Bucket(bucketPayloads)

		if meta.Get([]byte(name)) == nil {
			// Report doesn't exist, no error.
			return nil
		}

		if err := meta.Delete([]byte(name)); err != nil {
			return fmt.Errorf("failed to delete report metadata: %w", err)
		}

		if err := payloads.Delete([]byte(name)); err != nil {
			return fmt.Errorf("failed to delete report payload: %w", err)
		}

		m.logger.Info("report deleted", "name", name)
		return nil
	})
}

// Close implements Manager.Close.
func (m *manager) Close() error {
	if err := m.db.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}

	m.logger.Info("report manager closed")
	return nil
}

// isValidName checks a report name for use as a database key and CLI
// argument.
//
// Names are 1-64 characters from [a-zA-Z0-9._-].
func isValidName(name string) bool {
	if name == "" || len(name) > maxNameLength {
		return false
	}

	for _, c := range name {
		switch {
		case c >= 'a' && c <= 'z':
		case c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9':
		case c == '.' || c == '_' || c == '-':
		default:
			return false
		}
	}

	return true
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
