package reader

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	bolt "go.etcd.io/bbolt"
)

// bucketPositions maps export file paths to byte offsets.
var bucketPositions = []byte("read_positions")

// BoltPositionStore persists read positions in a BoltDB file so a
// restarted watch session picks up where the previous one left off.
type BoltPositionStore struct {
	db *bolt.DB
}

// NewBoltPositionStore opens (or creates) the database at path and
// returns a position store backed by it. The parent directory is
// created if missing and ~ is expanded. The caller owns the store and
// must Close it; opening fails after one second if another process
// holds the database lock.
func NewBoltPositionStore(path string) (*BoltPositionStore, error) {
	dbPath := expandHome(path)

	if err := os.MkdirAll(filepath.Dir(dbPath), 0700); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := bolt.Open(dbPath, 0600, &bolt.Options{
		Timeout: time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open position database: %w", err)
	}

	if err := db.Update(func(tx *bolt.Tx) error {
		_, createErr := tx.CreateBucketIfNotExists(bucketPositions)
		return createErr
	}); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, fmt.Errorf("failed to create positions bucket: %w (close: %v)", err, closeErr)
		}
		return nil, fmt.Errorf("failed to create positions bucket: %w", err)
	}

	return &BoltPositionStore{db: db}, nil
}

// GetPosition implements PositionStore.GetPosition.
func (s *BoltPositionStore) GetPosition(path string) (int64, error) {
	var offset int64

	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketPositions).Get([]byte(path))
		if data == nil {
			// Unseen file: start from the beginning.
			return nil
		}

		parsed, parseErr := strconv.ParseInt(string(data), 10, 64)
		if parseErr != nil {
			return fmt.Errorf("corrupt offset for %s: %w", path, parseErr)
		}
		offset = parsed

		return nil
	})
	if err != nil {
		return 0, err
	}

	return offset, nil
}

// SetPosition implements PositionStore.SetPosition.
func (s *BoltPositionStore) SetPosition(path string, offset int64) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		key := []byte(path)
		val := []byte(strconv.FormatInt(offset, 10))

		if err := tx.Bucket(bucketPositions).Put(key, val); err != nil {
			return fmt.Errorf("failed to store position: %w", err)
		}
		return nil
	})
}

// Close releases the underlying database.
func (s *BoltPositionStore) Close() error {
	return s.db.Close()
}

// memoryPositionStore keeps positions in a map. Offsets are lost when
// the process exits.
type memoryPositionStore struct {
	mu        sync.RWMutex
	positions map[string]int64
}

// NewMemoryPositionStore creates a position store without persistence,
// for single-run reads and tests.
func NewMemoryPositionStore() PositionStore {
	return &memoryPositionStore{
		positions: make(map[string]int64),
	}
}

// GetPosition implements PositionStore.GetPosition.
func (s *memoryPositionStore) GetPosition(path string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.positions[path], nil
}

// SetPosition implements PositionStore.SetPosition.
func (s *memoryPositionStore) SetPosition(path string, offset int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.positions[path] = offset
	return nil
}

// expandHome expands a leading ~ to the user's home directory.
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
