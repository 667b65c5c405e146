package monitor

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cloudbill/billscan/pkg/analyze"
	"github.com/cloudbill/billscan/pkg/billing"
	"github.com/cloudbill/billscan/pkg/discovery"
	"github.com/cloudbill/billscan/pkg/logger"
	"github.com/cloudbill/billscan/pkg/reader"
	"github.com/cloudbill/billscan/pkg/source"
	"github.com/cloudbill/billscan/pkg/watcher"
)

// liveMonitor implements the LiveMonitor interface.
type liveMonitor struct {
	config    Config
	logger    logger.Logger
	watcher   watcher.Watcher
	reader    reader.Reader
	discovery discovery.Discoverer

	mu       sync.RWMutex
	running  bool
	closed   bool
	stopChan chan struct{}

	// Accumulated records; each snapshot re-aggregates them so the
	// one-shot aggregator contract is never violated.
	records   []billing.Record
	lastCount int64
	lastCost  decimal.Decimal

	// Update channel for consumers
	updates chan Update
}

// New creates a new live monitor.
//
// Parameters:
//   - cfg: Monitor configuration
//   - w: File watcher
//   - r: Incremental reader
//   - disc: Export discovery
//   - log: Logger instance
//
// Returns:
//   - Configured LiveMonitor
//   - Error if configuration is invalid
func New(cfg Config, w watcher.Watcher, r reader.Reader, disc discovery.Discoverer, log logger.Logger) (LiveMonitor, error) {
	// Validate configuration
	if cfg.RefreshInterval == 0 {
		cfg.RefreshInterval = time.Second
	}
	if len(cfg.GroupBy) == 0 {
		cfg.GroupBy = []analyze.Dimension{analyze.DimService}
	}
	for _, dim := range cfg.GroupBy {
		if _, err := analyze.ParseDimension(string(dim)); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
	}

	m := &liveMonitor{
		config:    cfg,
		logger:    log,
		watcher:   w,
		reader:    r,
		discovery: disc,
		stopChan:  make(chan struct{}),
		updates:   make(chan Update, 10),
		lastCost:  decimal.Zero,
	}

	log.Info("live monitor created",
		"refresh_interval", cfg.RefreshInterval,
		"group_by", cfg.GroupBy,
		"account_filter", cfg.Accounts)

	return m, nil
}

// Start implements LiveMonitor.Start.
func (m *liveMonitor) Start() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrMonitorClosed
	}
	if m.running {
		m.mu.Unlock()
		return ErrMonitorRunning
	}
	m.running = true
	m.mu.Unlock()

	// Discover export files
	exports, err := m.discovery.Discover()
	if err != nil {
		m.abortStart()
		return fmt.Errorf("failed to discover exports: %w", err)
	}

	// Filter exports if specified
	filtered := m.filterExports(exports)
	if len(filtered) == 0 {
		m.abortStart()
		return ErrNoExports
	}

	// Watch the containing directories so newly created export files
	// are picked up without a restart.
	watchDirs := make([]string, 0, len(filtered))
	seen := make(map[string]bool)
	for _, exp := range filtered {
		dir := filepath.Dir(exp.FilePath)
		if !seen[dir] {
			seen[dir] = true
			watchDirs = append(watchDirs, dir)
		}
	}

	m.logger.Info("monitoring exports",
		"files", len(filtered),
		"directories", len(watchDirs))

	// Initial read of all export files
	ctx := context.Background()
	m.initialRead(ctx, filtered)

	// Start file watcher
	if err := m.watcher.Start(ctx, watchDirs); err != nil {
		m.abortStart()
		return fmt.Errorf("failed to start watcher: %w", err)
	}

	// Start event processing
	go m.processEvents(ctx)

	// Start periodic updates
	go m.periodicUpdates()

	m.logger.Info("live monitor started")
	return nil
}

// abortStart reverts the running flag after a failed Start.
func (m *liveMonitor) abortStart() {
	m.mu.Lock()
	m.running = false
	m.mu.Unlock()
}

// Stop implements LiveMonitor.Stop.
func (m *liveMonitor) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrMonitorClosed
	}
	if !m.running {
		return ErrMonitorNotRunning
	}

	// Signal stop
	close(m.stopChan)
	m.running = false

	// Stop watcher
	if err := m.watcher.Stop(); err != nil {
		m.logger.Warn("failed to stop watcher", "error", err)
	}

	m.logger.Info("live monitor stopped")
	return nil
}

// Result implements LiveMonitor.Result.
func (m *liveMonitor) Result() *analyze.Result {
	m.mu.RLock()
	snapshot := make([]billing.Record, len(m.records))
	copy(snapshot, m.records)
	m.mu.RUnlock()

	return m.aggregate(snapshot)
}

// Updates implements LiveMonitor.Updates.
func (m *liveMonitor) Updates() <-chan Update {
	return m.updates
}

// filterExports filters exports based on configuration.
func (m *liveMonitor) filterExports(exports []discovery.ExportFile) []discovery.ExportFile {
	if len(m.config.Accounts) == 0 {
		return exports
	}

	// Build account ID set for quick lookup
	accountSet := make(map[string]bool)
	for _, id := range m.config.Accounts {
		accountSet[id] = true
	}

	// Filter exports
	filtered := make([]discovery.ExportFile, 0)
	for _, exp := range exports {
		if accountSet[exp.AccountID] {
			filtered = append(filtered, exp)
		}
	}

	return filtered
}

// initialRead reads all export files from the beginning.
func (m *liveMonitor) initialRead(ctx context.Context, exports []discovery.ExportFile) {
	for _, exp := range exports {
		// The in-memory baseline must cover whole files. A persistent
		// position store may hold offsets from a previous session, so
		// rewind before the first read; event-driven reads then resume
		// from the refreshed offsets.
		if err := m.reader.Reset(exp.FilePath); err != nil {
			m.logger.Warn("failed to reset read position",
				"path", exp.FilePath,
				"error", err)
			continue
		}

		records, err := m.reader.Read(ctx, exp.FilePath)
		if err != nil {
			m.logger.Warn("failed to read export file",
				"path", exp.FilePath,
				"error", err)
			continue
		}

		m.appendRecords(records)

		m.logger.Debug("initial read complete",
			"path", exp.FilePath,
			"records", len(records))
	}
}

// processEvents handles file change events from the watcher.
func (m *liveMonitor) processEvents(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return

		case <-m.stopChan:
			return

		case event, ok := <-m.watcher.Events():
			if !ok {
				m.logger.Info("watcher events channel closed")
				return
			}

			m.handleFileChange(ctx, event)

		case err, ok := <-m.watcher.Errors():
			if !ok {
				m.logger.Info("watcher errors channel closed")
				return
			}

			m.logger.Error("watcher error", "error", err)
		}
	}
}

// handleFileChange processes a file change event.
func (m *liveMonitor) handleFileChange(ctx context.Context, event watcher.Event) {
	if event.Op == watcher.OpRemove || event.Op == watcher.OpRename {
		// Already-aggregated records stay; the reader will start over
		// if the file reappears.
		m.logger.Debug("export file removed",
			"path", event.Path,
			"op", event.Op)
		return
	}

	m.logger.Debug("file change detected",
		"path", event.Path,
		"op", event.Op)

	// Read new records from the file
	records, err := m.reader.Read(ctx, event.Path)
	if err != nil {
		m.logger.Warn("failed to read file after change",
			"path", event.Path,
			"error", err)
		return
	}

	if len(records) == 0 {
		return
	}

	m.appendRecords(records)

	m.logger.Debug("processed file change",
		"path", event.Path,
		"new_records", len(records))

	// Trigger immediate update
	m.sendUpdate()
}

// appendRecords adds records to the accumulated set.
func (m *liveMonitor) appendRecords(records []billing.Record) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.records = append(m.records, records...)
}

// aggregate runs the configured aggregation over a record snapshot.
func (m *liveMonitor) aggregate(records []billing.Record) *analyze.Result {
	res, err := analyze.Run(context.Background(), source.FromRecords(records), analyze.Config{
		Key:   analyze.KeyByDimensions(m.config.GroupBy...),
		Value: analyze.CostValue,
	})
	if err != nil {
		// Config was validated in New and the slice source cannot fail.
		m.logger.Error("aggregation failed", "error", err)
		return &analyze.Result{Groups: map[string]analyze.Stats{}}
	}
	return res
}

// periodicUpdates sends periodic updates even if no file changes.
func (m *liveMonitor) periodicUpdates() {
	ticker := time.NewTicker(m.config.RefreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.stopChan:
			return

		case <-ticker.C:
			m.sendUpdate()
		}
	}
}

// sendUpdate sends an aggregation update to the updates channel.
func (m *liveMonitor) sendUpdate() {
	m.mu.Lock()

	if m.closed {
		m.mu.Unlock()
		return
	}

	snapshot := make([]billing.Record, len(m.records))
	copy(snapshot, m.records)

	cost := decimal.Zero
	for _, rec := range m.records[m.lastCount:] {
		cost = cost.Add(rec.Cost)
	}

	delta := DeltaStats{
		NewRecords: int64(len(m.records)) - m.lastCount,
		CostAdded:  cost,
	}

	m.lastCount = int64(len(m.records))
	m.lastCost = m.lastCost.Add(cost)

	m.mu.Unlock()

	// Aggregate outside the lock; snapshots can be large.
	result := m.aggregate(snapshot)

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return
	}

	// Send update (non-blocking)
	select {
	case m.updates <- Update{Timestamp: time.Now(), Result: result, Delta: delta}:
	default:
		m.logger.Warn("updates channel full, dropping update")
	}
}

// Close implements LiveMonitor.Close.
func (m *liveMonitor) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil
	}

	m.closed = true

	// Stop if running
	if m.running {
		close(m.stopChan)
		m.running = false
	}

	// Close update channel
	close(m.updates)

	m.logger.Info("live monitor closed")
	return nil
}
