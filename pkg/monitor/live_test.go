package monitor

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloudbill/billscan/pkg/analyze"
	"github.com/cloudbill/billscan/pkg/billing"
	"github.com/cloudbill/billscan/pkg/discovery"
	"github.com/cloudbill/billscan/pkg/logger"
	"github.com/cloudbill/billscan/pkg/watcher"
)

// mockWatcher implements the watcher.Watcher interface for testing.
type mockWatcher struct {
	mu       sync.Mutex
	started  bool
	stopped  bool
	closed   bool
	paths    []string
	events   chan watcher.Event
	errors   chan error
	startErr error
	stopErr  error
	closeErr error
}

func newMockWatcher() *mockWatcher {
	return &mockWatcher{
		events: make(chan watcher.Event, 10),
		errors: make(chan error, 10),
	}
}

func (m *mockWatcher) Start(ctx context.Context, paths []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.startErr != nil {
		return m.startErr
	}
	m.started = true
	m.paths = paths
	return nil
}

func (m *mockWatcher) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stopErr != nil {
		return m.stopErr
	}
	m.stopped = true
	return nil
}

func (m *mockWatcher) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closeErr != nil {
		return m.closeErr
	}
	m.closed = true
	close(m.events)
	close(m.errors)
	return nil
}

func (m *mockWatcher) Events() <-chan watcher.Event {
	return m.events
}

func (m *mockWatcher) Errors() <-chan error {
	return m.errors
}

func (m *mockWatcher) Started() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.started
}

func (m *mockWatcher) Stopped() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stopped
}

func (m *mockWatcher) Paths() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string{}, m.paths...)
}

// mockReader implements the reader.Reader interface for testing.
type mockReader struct {
	mu       sync.Mutex
	records  map[string][]billing.Record
	resets   []string
	readErr  error
	resetErr error
	closed   bool
}

func newMockReader() *mockReader {
	return &mockReader{
		records: make(map[string][]billing.Record),
	}
}

func (m *mockReader) Read(ctx context.Context, path string) ([]billing.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.readErr != nil {
		return nil, m.readErr
	}
	records := m.records[path]
	// Clear records after reading (simulating incremental read)
	m.records[path] = nil
	return records, nil
}

func (m *mockReader) ReadFrom(ctx context.Context, path string, offset int64) ([]billing.Record, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.readErr != nil {
		return nil, 0, m.readErr
	}
	records := m.records[path]
	m.records[path] = nil
	return records, offset + 100, nil
}

func (m *mockReader) Reset(path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.resetErr != nil {
		return m.resetErr
	}
	m.resets = append(m.resets, path)
	return nil
}

func (m *mockReader) Resets() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.resets...)
}

func (m *mockReader) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func (m *mockReader) SetRecords(path string, records []billing.Record) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[path] = records
}

// mockDiscovery implements the discovery.Discoverer interface for testing.
type mockDiscovery struct {
	exports     []discovery.ExportFile
	discoverErr error
}

func newMockDiscovery(exports []discovery.ExportFile) *mockDiscovery {
	return &mockDiscovery{
		exports: exports,
	}
}

func (m *mockDiscovery) Discover() ([]discovery.ExportFile, error) {
	if m.discoverErr != nil {
		return nil, m.discoverErr
	}
	return m.exports, nil
}

func (m *mockDiscovery) DiscoverAccount(accountPath string) ([]discovery.ExportFile, error) {
	if m.discoverErr != nil {
		return nil, m.discoverErr
	}
	return m.exports, nil
}

// Helper to create test records.
func createTestRecord(service, cost string) billing.Record {
	return billing.Record{
		BillingAccountID: "01A2B3-C4D5E6",
		Service:          &billing.Service{Description: service},
		Cost:             decimal.RequireFromString(cost),
		Currency:         "USD",
	}
}

func TestNew(t *testing.T) {
	log := logger.New(logger.Config{Level: "error"})
	w := newMockWatcher()
	r := newMockReader()
	d := newMockDiscovery(nil)

	t.Run("creates monitor with default config", func(t *testing.T) {
		mon, err := New(Config{}, w, r, d, log)
		require.NoError(t, err)
		assert.NotNil(t, mon)
	})

	t.Run("sets default refresh interval and grouping", func(t *testing.T) {
		mon, err := New(Config{}, w, r, d, log)
		require.NoError(t, err)
		lm := mon.(*liveMonitor)
		assert.Equal(t, time.Second, lm.config.RefreshInterval)
		assert.Equal(t, []analyze.Dimension{analyze.DimService}, lm.config.GroupBy)
	})

	t.Run("uses custom refresh interval", func(t *testing.T) {
		mon, err := New(Config{RefreshInterval: 5 * time.Second}, w, r, d, log)
		require.NoError(t, err)
		lm := mon.(*liveMonitor)
		assert.Equal(t, 5*time.Second, lm.config.RefreshInterval)
	})

	t.Run("accepts account filter", func(t *testing.T) {
		accounts := []string{"01A2B3-C4D5E6", "F7G8H9-I0J1K2"}
		mon, err := New(Config{Accounts: accounts}, w, r, d, log)
		require.NoError(t, err)
		lm := mon.(*liveMonitor)
		assert.Equal(t, accounts, lm.config.Accounts)
	})

	t.Run("rejects unknown dimension", func(t *testing.T) {
		_, err := New(Config{GroupBy: []analyze.Dimension{"nonsense"}}, w, r, d, log)
		assert.ErrorIs(t, err, ErrInvalidConfig)
	})
}

func TestStart(t *testing.T) {
	log := logger.New(logger.Config{Level: "error"})

	t.Run("starts successfully with exports", func(t *testing.T) {
		w := newMockWatcher()
		r := newMockReader()
		exports := []discovery.ExportFile{
			{AccountID: "01A2B3-C4D5E6", FilePath: "/exports/01A2B3-C4D5E6/2025-07.jsonl"},
		}
		d := newMockDiscovery(exports)

		// Set up initial records
		r.SetRecords("/exports/01A2B3-C4D5E6/2025-07.jsonl", []billing.Record{
			createTestRecord("Compute Engine", "10"),
		})

		mon, err := New(Config{RefreshInterval: 100 * time.Millisecond}, w, r, d, log)
		require.NoError(t, err)

		require.NoError(t, mon.Start())

		// Watcher is pointed at the containing directory, not the file.
		assert.True(t, w.Started())
		assert.Contains(t, w.Paths(), "/exports/01A2B3-C4D5E6")

		require.NoError(t, mon.Stop())
	})

	t.Run("returns error when no exports found", func(t *testing.T) {
		w := newMockWatcher()
		r := newMockReader()
		d := newMockDiscovery([]discovery.ExportFile{})

		mon, err := New(Config{}, w, r, d, log)
		require.NoError(t, err)

		err = mon.Start()
		assert.Equal(t, ErrNoExports, err)
	})

	t.Run("returns error when discovery fails", func(t *testing.T) {
		w := newMockWatcher()
		r := newMockReader()
		d := newMockDiscovery(nil)
		d.discoverErr = assert.AnError

		mon, err := New(Config{}, w, r, d, log)
		require.NoError(t, err)

		err = mon.Start()
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed to discover exports")
	})

	t.Run("returns error when already running", func(t *testing.T) {
		w := newMockWatcher()
		r := newMockReader()
		exports := []discovery.ExportFile{
			{AccountID: "01A2B3-C4D5E6", FilePath: "/exports/01A2B3-C4D5E6/2025-07.jsonl"},
		}
		d := newMockDiscovery(exports)

		mon, err := New(Config{RefreshInterval: 100 * time.Millisecond}, w, r, d, log)
		require.NoError(t, err)

		require.NoError(t, mon.Start())

		err = mon.Start()
		assert.Equal(t, ErrMonitorRunning, err)

		_ = mon.Stop() // Ignore error in test cleanup
	})

	t.Run("returns error when closed", func(t *testing.T) {
		w := newMockWatcher()
		r := newMockReader()
		exports := []discovery.ExportFile{
			{AccountID: "01A2B3-C4D5E6", FilePath: "/exports/01A2B3-C4D5E6/2025-07.jsonl"},
		}
		d := newMockDiscovery(exports)

		mon, err := New(Config{}, w, r, d, log)
		require.NoError(t, err)

		require.NoError(t, mon.Close())

		err = mon.Start()
		assert.Equal(t, ErrMonitorClosed, err)
	})

	t.Run("filters exports by account", func(t *testing.T) {
		w := newMockWatcher()
		r := newMockReader()
		exports := []discovery.ExportFile{
			{AccountID: "keep", FilePath: "/exports/keep/2025-07.jsonl"},
			{AccountID: "drop", FilePath: "/exports/drop/2025-07.jsonl"},
		}
		d := newMockDiscovery(exports)

		mon, err := New(Config{
			Accounts:        []string{"keep"},
			RefreshInterval: 100 * time.Millisecond,
		}, w, r, d, log)
		require.NoError(t, err)

		require.NoError(t, mon.Start())

		paths := w.Paths()
		assert.Len(t, paths, 1)
		assert.Contains(t, paths, "/exports/keep")
		assert.NotContains(t, paths, "/exports/drop")

		_ = mon.Stop() // Ignore error in test cleanup
	})
}

func TestStop(t *testing.T) {
	log := logger.New(logger.Config{Level: "error"})

	t.Run("stops running monitor", func(t *testing.T) {
		w := newMockWatcher()
		r := newMockReader()
		exports := []discovery.ExportFile{
			{AccountID: "01A2B3-C4D5E6", FilePath: "/exports/01A2B3-C4D5E6/2025-07.jsonl"},
		}
		d := newMockDiscovery(exports)

		mon, err := New(Config{RefreshInterval: 100 * time.Millisecond}, w, r, d, log)
		require.NoError(t, err)

		require.NoError(t, mon.Start())

		err = mon.Stop()
		require.NoError(t, err)
		assert.True(t, w.Stopped())
	})

	t.Run("returns error when not running", func(t *testing.T) {
		w := newMockWatcher()
		r := newMockReader()
		d := newMockDiscovery(nil)

		mon, err := New(Config{}, w, r, d, log)
		require.NoError(t, err)

		err = mon.Stop()
		assert.Equal(t, ErrMonitorNotRunning, err)
	})
}

func TestResult(t *testing.T) {
	log := logger.New(logger.Config{Level: "error"})

	t.Run("aggregates initial records by service", func(t *testing.T) {
		w := newMockWatcher()
		r := newMockReader()
		exports := []discovery.ExportFile{
			{AccountID: "01A2B3-C4D5E6", FilePath: "/exports/01A2B3-C4D5E6/2025-07.jsonl"},
		}
		d := newMockDiscovery(exports)

		r.SetRecords("/exports/01A2B3-C4D5E6/2025-07.jsonl", []billing.Record{
			createTestRecord("Compute Engine", "10"),
			createTestRecord("Compute Engine", "20"),
			createTestRecord("Cloud Storage", "5"),
		})

		mon, err := New(Config{RefreshInterval: time.Hour}, w, r, d, log)
		require.NoError(t, err)

		require.NoError(t, mon.Start())
		defer func() { _ = mon.Stop() }()

		res := mon.Result()
		require.NotNil(t, res)
		require.Len(t, res.Groups, 2)

		compute := res.Groups["Compute Engine"]
		assert.Equal(t, int64(2), compute.Count)
		assert.True(t, compute.Sum.Equal(decimal.NewFromInt(30)), "sum = %s", compute.Sum)

		storage := res.Groups["Cloud Storage"]
		assert.Equal(t, int64(1), storage.Count)
	})

	t.Run("rewinds read positions before the initial read", func(t *testing.T) {
		w := newMockWatcher()
		r := newMockReader()
		exports := []discovery.ExportFile{
			{AccountID: "01A2B3-C4D5E6", FilePath: "/exports/01A2B3-C4D5E6/2025-07.jsonl"},
			{AccountID: "01A2B3-C4D5E6", FilePath: "/exports/01A2B3-C4D5E6/2025-08.jsonl"},
		}
		d := newMockDiscovery(exports)

		mon, err := New(Config{RefreshInterval: time.Hour}, w, r, d, log)
		require.NoError(t, err)

		require.NoError(t, mon.Start())
		defer func() { _ = mon.Stop() }()

		// A persistent position store may carry offsets from an earlier
		// session; the baseline must still cover whole files.
		resets := r.Resets()
		assert.Contains(t, resets, "/exports/01A2B3-C4D5E6/2025-07.jsonl")
		assert.Contains(t, resets, "/exports/01A2B3-C4D5E6/2025-08.jsonl")
	})

	t.Run("incorporates file change events", func(t *testing.T) {
		w := newMockWatcher()
		r := newMockReader()
		exports := []discovery.ExportFile{
			{AccountID: "01A2B3-C4D5E6", FilePath: "/exports/01A2B3-C4D5E6/2025-07.jsonl"},
		}
		d := newMockDiscovery(exports)

		mon, err := New(Config{RefreshInterval: time.Hour}, w, r, d, log)
		require.NoError(t, err)

		require.NoError(t, mon.Start())
		defer func() { _ = mon.Stop() }()

		// Simulate an append followed by a watcher event.
		r.SetRecords("/exports/01A2B3-C4D5E6/2025-07.jsonl", []billing.Record{
			createTestRecord("BigQuery", "42"),
		})
		w.events <- watcher.Event{
			Path:      "/exports/01A2B3-C4D5E6/2025-07.jsonl",
			Op:        watcher.OpWrite,
			Timestamp: time.Now(),
		}

		// The change triggers an immediate update.
		select {
		case update := <-mon.Updates():
			assert.Equal(t, int64(1), update.Delta.NewRecords)
			assert.True(t, update.Delta.CostAdded.Equal(decimal.NewFromInt(42)),
				"cost added = %s", update.Delta.CostAdded)
			require.NotNil(t, update.Result)
			assert.Equal(t, int64(1), update.Result.Groups["BigQuery"].Count)
		case <-time.After(2 * time.Second):
			t.Fatal("no update received after file change")
		}
	})
}

func TestClose(t *testing.T) {
	log := logger.New(logger.Config{Level: "error"})

	t.Run("close is idempotent", func(t *testing.T) {
		w := newMockWatcher()
		r := newMockReader()
		d := newMockDiscovery(nil)

		mon, err := New(Config{}, w, r, d, log)
		require.NoError(t, err)

		require.NoError(t, mon.Close())
		require.NoError(t, mon.Close())
	})

	t.Run("close stops a running monitor", func(t *testing.T) {
		w := newMockWatcher()
		r := newMockReader()
		exports := []discovery.ExportFile{
			{AccountID: "01A2B3-C4D5E6", FilePath: "/exports/01A2B3-C4D5E6/2025-07.jsonl"},
		}
		d := newMockDiscovery(exports)

		mon, err := New(Config{RefreshInterval: time.Hour}, w, r, d, log)
		require.NoError(t, err)

		require.NoError(t, mon.Start())
		require.NoError(t, mon.Close())

		// Updates channel is closed after Close.
		_, open := <-mon.Updates()
		assert.False(t, open)
	})
}
