package reader

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/cloudbill/billscan/pkg/billing"
	"github.com/cloudbill/billscan/pkg/logger"
	"github.com/cloudbill/billscan/pkg/source"
)

const (
	lineCompute = `{"billing_account_id":"01A2B3-C4D5E6","project":{"id":"prod-api","name":"Production API"},"service":{"description":"Compute Engine"},"cost":"12.50","currency":"USD"}
`
	lineStorage = `{"billing_account_id":"01A2B3-C4D5E6","project":{"id":"prod-api","name":"Production API"},"service":{"description":"Cloud Storage"},"cost":"3.75","currency":"USD"}
`
	lineNetwork = `{"billing_account_id":"01A2B3-C4D5E6","project":{"id":"analytics","name":"Analytics"},"service":{"description":"Networking"},"cost":"0.42","currency":"USD"}
`
)

func TestNew(t *testing.T) {
	store := NewMemoryPositionStore()
	p := billing.NewParser()

	r, err := New(Config{
		PositionStore: store,
		Parser:        p,
	}, logger.Noop())

	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if r == nil {
		t.Error("New() returned nil reader")
	}

	if closeErr := r.Close(); closeErr != nil {
		t.Errorf("Close() error = %v", closeErr)
	}
}

func TestNewMissingStore(t *testing.T) {
	p := billing.NewParser()

	_, err := New(Config{
		Parser: p,
	}, logger.Noop())

	if err == nil {
		t.Error("New() error = nil, want error for missing store")
	}
}

func TestNewMissingParser(t *testing.T) {
	store := NewMemoryPositionStore()

	_, err := New(Config{
		PositionStore: store,
	}, logger.Noop())

	if err == nil {
		t.Error("New() error = nil, want error for missing parser")
	}
}

func TestRead(t *testing.T) {
	tmpDir := t.TempDir()
	testFile := filepath.Join(tmpDir, "export.jsonl")

	// Create test file with JSONL content.
	if err := os.WriteFile(testFile, []byte(lineCompute+lineStorage), 0600); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}

	store := NewMemoryPositionStore()
	p := billing.NewParser()

	r, err := New(Config{
		PositionStore: store,
		Parser:        p,
	}, logger.Noop())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer func() {
		if closeErr := r.Close(); closeErr != nil {
			t.Errorf("Close() error = %v", closeErr)
		}
	}()

	ctx := context.Background()

	// First read should get all records.
	records, err := r.Read(ctx, testFile)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}

	if len(records) != 2 {
		t.Errorf("Read() returned %d records, want 2", len(records))
	}

	// Second read should get no new records.
	records, err = r.Read(ctx, testFile)
	if err != nil {
		t.Fatalf("Second Read() error = %v", err)
	}

	if len(records) != 0 {
		t.Errorf("Second Read() returned %d records, want 0", len(records))
	}

	// Append a new record.
	f, openErr := os.OpenFile(testFile, os.O_APPEND|os.O_WRONLY, 0600) // nolint:gosec // Test file with known path
	if openErr != nil {
		t.Fatalf("Failed to open file: %v", openErr)
	}
	if _, writeErr := f.WriteString(lineNetwork); writeErr != nil {
		if closeErr := f.Close(); closeErr != nil {
			t.Logf("Failed to close file: %v", closeErr)
		}
		t.Fatalf("Failed to append record: %v", writeErr)
	}
	if closeErr := f.Close(); closeErr != nil {
		t.Logf("Failed to close file: %v", closeErr)
	}

	// Third read should get the new record.
	records, err = r.Read(ctx, testFile)
	if err != nil {
		t.Fatalf("Third Read() error = %v", err)
	}

	if len(records) != 1 {
		t.Fatalf("Third Read() returned %d records, want 1", len(records))
	}

	if records[0].Project == nil || records[0].Project.ID != "analytics" {
		t.Errorf("Third Read() returned unexpected record: %+v", records[0])
	}
}

func TestReadFrom(t *testing.T) {
	tmpDir := t.TempDir()
	testFile := filepath.Join(tmpDir, "export.jsonl")

	if err := os.WriteFile(testFile, []byte(lineCompute+lineStorage), 0600); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}

	store := NewMemoryPositionStore()
	p := billing.NewParser()

	r, err := New(Config{
		PositionStore: store,
		Parser:        p,
	}, logger.Noop())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer func() {
		if closeErr := r.Close(); closeErr != nil {
			t.Errorf("Close() error = %v", closeErr)
		}
	}()

	ctx := context.Background()

	// Read from beginning.
	records, newOffset, err := r.ReadFrom(ctx, testFile, 0)
	if err != nil {
		t.Fatalf("ReadFrom() error = %v", err)
	}

	if len(records) != 2 {
		t.Errorf("ReadFrom() returned %d records, want 2", len(records))
	}

	if newOffset == 0 {
		t.Error("ReadFrom() newOffset = 0, want > 0")
	}

	// Verify position was not updated (ReadFrom doesn't update store).
	storedOffset, getErr := store.GetPosition(testFile)
	if getErr != nil {
		t.Fatalf("GetPosition() error = %v", getErr)
	}

	if storedOffset != 0 {
		t.Errorf("Stored offset = %d, want 0 (ReadFrom should not update)", storedOffset)
	}
}

func TestReadFromInvalidOffset(t *testing.T) {
	store := NewMemoryPositionStore()
	p := billing.NewParser()

	r, err := New(Config{
		PositionStore: store,
		Parser:        p,
	}, logger.Noop())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer func() {
		if closeErr := r.Close(); closeErr != nil {
			t.Errorf("Close() error = %v", closeErr)
		}
	}()

	ctx := context.Background()

	_, _, err = r.ReadFrom(ctx, "export.jsonl", -1)
	if err != ErrInvalidOffset {
		t.Errorf("ReadFrom() error = %v, want ErrInvalidOffset", err)
	}
}

func TestReadFileNotFound(t *testing.T) {
	tmpDir := t.TempDir()
	nonExistent := filepath.Join(tmpDir, "nonexistent.jsonl")

	store := NewMemoryPositionStore()
	p := billing.NewParser()

	r, err := New(Config{
		PositionStore: store,
		Parser:        p,
		MaxRetries:    0, // No retries for faster test.
	}, logger.Noop())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer func() {
		if closeErr := r.Close(); closeErr != nil {
			t.Errorf("Close() error = %v", closeErr)
		}
	}()

	ctx := context.Background()

	_, err = r.Read(ctx, nonExistent)
	if err == nil {
		t.Error("Read() error = nil, want error for non-existent file")
	}
}

func TestReadFileTruncated(t *testing.T) {
	tmpDir := t.TempDir()
	testFile := filepath.Join(tmpDir, "export.jsonl")

	if err := os.WriteFile(testFile, []byte(lineCompute), 0600); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}

	store := NewMemoryPositionStore()
	p := billing.NewParser()

	// Set position beyond file size (simulating truncation).
	if setErr := store.SetPosition(testFile, 10000); setErr != nil {
		t.Fatalf("SetPosition() error = %v", setErr)
	}

	r, err := New(Config{
		PositionStore: store,
		Parser:        p,
	}, logger.Noop())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer func() {
		if closeErr := r.Close(); closeErr != nil {
			t.Errorf("Close() error = %v", closeErr)
		}
	}()

	ctx := context.Background()

	// Should reset to beginning and read all records.
	records, err := r.Read(ctx, testFile)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}

	if len(records) != 1 {
		t.Errorf("Read() returned %d records, want 1", len(records))
	}
}

func TestReset(t *testing.T) {
	tmpDir := t.TempDir()
	testFile := filepath.Join(tmpDir, "export.jsonl")

	if err := os.WriteFile(testFile, []byte(lineCompute), 0600); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}

	store := NewMemoryPositionStore()
	p := billing.NewParser()

	r, err := New(Config{
		PositionStore: store,
		Parser:        p,
	}, logger.Noop())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer func() {
		if closeErr := r.Close(); closeErr != nil {
			t.Errorf("Close() error = %v", closeErr)
		}
	}()

	ctx := context.Background()

	// Read file.
	records, err := r.Read(ctx, testFile)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}

	if len(records) != 1 {
		t.Errorf("Read() returned %d records, want 1", len(records))
	}

	// Reset position.
	if resetErr := r.Reset(testFile); resetErr != nil {
		t.Fatalf("Reset() error = %v", resetErr)
	}

	// Read again should get the same record.
	records, err = r.Read(ctx, testFile)
	if err != nil {
		t.Fatalf("Second Read() error = %v", err)
	}

	if len(records) != 1 {
		t.Errorf("Second Read() returned %d records, want 1", len(records))
	}
}

func TestReadClosed(t *testing.T) {
	store := NewMemoryPositionStore()
	p := billing.NewParser()

	r, err := New(Config{
		PositionStore: store,
		Parser:        p,
	}, logger.Noop())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if closeErr := r.Close(); closeErr != nil {
		t.Errorf("Close() error = %v", closeErr)
	}

	ctx := context.Background()

	_, err = r.Read(ctx, "export.jsonl")
	if err != ErrReaderClosed {
		t.Errorf("Read() error = %v, want ErrReaderClosed", err)
	}
}

func TestReadContextCanceled(t *testing.T) {
	tmpDir := t.TempDir()
	testFile := filepath.Join(tmpDir, "export.jsonl")

	if err := os.WriteFile(testFile, []byte(lineCompute), 0600); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}

	store := NewMemoryPositionStore()
	p := billing.NewParser()

	r, err := New(Config{
		PositionStore: store,
		Parser:        p,
	}, logger.Noop())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer func() {
		if closeErr := r.Close(); closeErr != nil {
			t.Errorf("Close() error = %v", closeErr)
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	cancel() // Cancel immediately.

	_, err = r.Read(ctx, testFile)
	if err != context.Canceled {
		t.Errorf("Read() error = %v, want context.Canceled", err)
	}
}

func TestCloseTwice(t *testing.T) {
	store := NewMemoryPositionStore()
	p := billing.NewParser()

	r, err := New(Config{
		PositionStore: store,
		Parser:        p,
	}, logger.Noop())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if closeErr := r.Close(); closeErr != nil {
		t.Errorf("First Close() error = %v", closeErr)
	}

	// Second close should not error.
	if closeErr := r.Close(); closeErr != nil {
		t.Errorf("Second Close() error = %v", closeErr)
	}
}

func TestMemoryPositionStore(t *testing.T) {
	store := NewMemoryPositionStore()

	// Get non-existent position.
	offset, err := store.GetPosition("/test/path")
	if err != nil {
		t.Fatalf("GetPosition() error = %v", err)
	}

	if offset != 0 {
		t.Errorf("GetPosition() = %d, want 0 for non-existent path", offset)
	}

	// Set position.
	if setErr := store.SetPosition("/test/path", 12345); setErr != nil {
		t.Fatalf("SetPosition() error = %v", setErr)
	}

	// Get position.
	offset, err = store.GetPosition("/test/path")
	if err != nil {
		t.Fatalf("GetPosition() error = %v", err)
	}

	if offset != 12345 {
		t.Errorf("GetPosition() = %d, want 12345", offset)
	}

	// Update position.
	if setErr := store.SetPosition("/test/path", 67890); setErr != nil {
		t.Fatalf("SetPosition() error = %v", setErr)
	}

	// Get updated position.
	offset, err = store.GetPosition("/test/path")
	if err != nil {
		t.Fatalf("GetPosition() error = %v", err)
	}

	if offset != 67890 {
		t.Errorf("GetPosition() = %d, want 67890", offset)
	}
}

func TestBoltPositionStore(t *testing.T) {
	tmpDir := t.TempDir()
	// Nested path: the store must create missing parent directories.
	dbPath := filepath.Join(tmpDir, "state", "billscan.db")

	store, err := NewBoltPositionStore(dbPath)
	if err != nil {
		t.Fatalf("NewBoltPositionStore() error = %v", err)
	}

	// Unseen file starts from the beginning.
	offset, err := store.GetPosition("/exports/acct/2025-07.jsonl")
	if err != nil {
		t.Fatalf("GetPosition() error = %v", err)
	}
	if offset != 0 {
		t.Errorf("GetPosition() = %d, want 0 for unseen file", offset)
	}

	if setErr := store.SetPosition("/exports/acct/2025-07.jsonl", 4096); setErr != nil {
		t.Fatalf("SetPosition() error = %v", setErr)
	}

	offset, err = store.GetPosition("/exports/acct/2025-07.jsonl")
	if err != nil {
		t.Fatalf("GetPosition() error = %v", err)
	}
	if offset != 4096 {
		t.Errorf("GetPosition() = %d, want 4096", offset)
	}

	if closeErr := store.Close(); closeErr != nil {
		t.Fatalf("Close() error = %v", closeErr)
	}

	// Positions survive a restart.
	store, err = NewBoltPositionStore(dbPath)
	if err != nil {
		t.Fatalf("NewBoltPositionStore() reopen error = %v", err)
	}
	defer func() {
		if closeErr := store.Close(); closeErr != nil {
			t.Errorf("Close() error = %v", closeErr)
		}
	}()

	offset, err = store.GetPosition("/exports/acct/2025-07.jsonl")
	if err != nil {
		t.Fatalf("GetPosition() after reopen error = %v", err)
	}
	if offset != 4096 {
		t.Errorf("GetPosition() after reopen = %d, want 4096", offset)
	}
}

func TestBoltPositionStoreBadPath(t *testing.T) {
	tmpDir := t.TempDir()

	// Parent "directory" is a regular file.
	blocker := filepath.Join(tmpDir, "blocker")
	if err := os.WriteFile(blocker, []byte("x"), 0600); err != nil {
		t.Fatalf("Failed to create file: %v", err)
	}

	_, err := NewBoltPositionStore(filepath.Join(blocker, "billscan.db"))
	if err == nil {
		t.Error("NewBoltPositionStore() error = nil, want error for unusable path")
	}
}

func TestReadWithBoltPositions(t *testing.T) {
	tmpDir := t.TempDir()
	testFile := filepath.Join(tmpDir, "export.jsonl")
	dbPath := filepath.Join(tmpDir, "billscan.db")

	if err := os.WriteFile(testFile, []byte(lineCompute+lineStorage), 0600); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}

	ctx := context.Background()

	readAll := func() int {
		store, err := NewBoltPositionStore(dbPath)
		if err != nil {
			t.Fatalf("NewBoltPositionStore() error = %v", err)
		}
		defer func() {
			if closeErr := store.Close(); closeErr != nil {
				t.Errorf("Close() error = %v", closeErr)
			}
		}()

		r, err := New(Config{
			PositionStore: store,
			Parser:        billing.NewParser(),
		}, logger.Noop())
		if err != nil {
			t.Fatalf("New() error = %v", err)
		}
		defer func() {
			if closeErr := r.Close(); closeErr != nil {
				t.Errorf("Close() error = %v", closeErr)
			}
		}()

		records, err := r.Read(ctx, testFile)
		if err != nil {
			t.Fatalf("Read() error = %v", err)
		}
		return len(records)
	}

	// First session consumes the whole file.
	if got := readAll(); got != 2 {
		t.Errorf("first session read %d records, want 2", got)
	}

	// A new session with the same database resumes past consumed lines.
	if got := readAll(); got != 0 {
		t.Errorf("second session read %d records, want 0", got)
	}

	// Appended lines are picked up by the next session.
	f, err := os.OpenFile(testFile, os.O_APPEND|os.O_WRONLY, 0600) // nolint:gosec // Test file with known path
	if err != nil {
		t.Fatalf("Failed to open file: %v", err)
	}
	if _, err := f.WriteString(lineNetwork); err != nil {
		t.Fatalf("Failed to append record: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("Failed to close file: %v", err)
	}

	if got := readAll(); got != 1 {
		t.Errorf("third session read %d records, want 1", got)
	}
}

func TestReadEmptyFile(t *testing.T) {
	tmpDir := t.TempDir()
	testFile := filepath.Join(tmpDir, "empty.jsonl")

	// Create empty file.
	if err := os.WriteFile(testFile, []byte(""), 0600); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}

	store := NewMemoryPositionStore()
	p := billing.NewParser()

	r, err := New(Config{
		PositionStore: store,
		Parser:        p,
	}, logger.Noop())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer func() {
		if closeErr := r.Close(); closeErr != nil {
			t.Errorf("Close() error = %v", closeErr)
		}
	}()

	ctx := context.Background()

	records, err := r.Read(ctx, testFile)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}

	if len(records) != 0 {
		t.Errorf("Read() returned %d records, want 0 for empty file", len(records))
	}
}

func TestReadWithRetry(t *testing.T) {
	store := NewMemoryPositionStore()
	p := billing.NewParser()

	r, err := New(Config{
		PositionStore: store,
		Parser:        p,
		MaxRetries:    2,
		RetryDelay:    10 * time.Millisecond,
	}, logger.Noop())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer func() {
		if closeErr := r.Close(); closeErr != nil {
			t.Errorf("Close() error = %v", closeErr)
		}
	}()

	tmpDir := t.TempDir()
	testFile := filepath.Join(tmpDir, "export.jsonl")

	ctx := context.Background()

	// File doesn't exist, should retry.
	start := time.Now()
	_, err = r.Read(ctx, testFile)
	elapsed := time.Since(start)

	if err == nil {
		t.Error("Read() error = nil, want error for non-existent file")
	}

	// Should have retried (total attempts = 3: initial + 2 retries).
	// Minimum time: 2 retries * 10ms = 20ms.
	if elapsed < 20*time.Millisecond {
		t.Errorf("Read() took %v, expected at least 20ms for retries", elapsed)
	}

	t.Logf("Read with retries took %v for non-existent file", elapsed)
}

func TestProvider(t *testing.T) {
	tmpDir := t.TempDir()

	// Two files written out of sorted order; the provider must still
	// yield b.jsonl records before z.jsonl on every pass.
	fileZ := filepath.Join(tmpDir, "z.jsonl")
	fileB := filepath.Join(tmpDir, "b.jsonl")

	if err := os.WriteFile(fileZ, []byte(lineNetwork), 0600); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}
	if err := os.WriteFile(fileB, []byte(lineCompute+lineStorage), 0600); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}

	provider := NewProvider([]string{fileZ, fileB}, billing.NewParser(), logger.Noop())

	ctx := context.Background()

	for pass := 0; pass < 2; pass++ {
		src, err := provider.Open(ctx)
		if err != nil {
			t.Fatalf("pass %d: Open() error = %v", pass, err)
		}

		records, err := source.Collect(ctx, src)
		if err != nil {
			t.Fatalf("pass %d: Collect() error = %v", pass, err)
		}

		if len(records) != 3 {
			t.Fatalf("pass %d: got %d records, want 3", pass, len(records))
		}

		if records[0].Service == nil || records[0].Service.Description != "Compute Engine" {
			t.Errorf("pass %d: first record = %+v, want Compute Engine", pass, records[0])
		}
		if records[2].Service == nil || records[2].Service.Description != "Networking" {
			t.Errorf("pass %d: last record = %+v, want Networking", pass, records[2])
		}
	}
}

func TestProviderMissingFile(t *testing.T) {
	tmpDir := t.TempDir()
	provider := NewProvider([]string{filepath.Join(tmpDir, "missing.jsonl")}, billing.NewParser(), logger.Noop())

	ctx := context.Background()

	src, err := provider.Open(ctx)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	if _, err := src.Next(ctx); err == nil || err == io.EOF {
		t.Errorf("Next() error = %v, want read failure", err)
	}
}
