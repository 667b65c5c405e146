package monitor

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/cloudbill/billscan/pkg/analyze"
)

// Config holds the configuration for the live monitor.
type Config struct {
	// Accounts to monitor (empty means all accounts)
	Accounts []string

	// GroupBy are the dimensions for the live aggregation.
	// Default: service.
	GroupBy []analyze.Dimension

	// RefreshInterval is the interval between updates when no file
	// changes arrive
	RefreshInterval time.Duration
}

// LiveMonitor provides real-time cost aggregation over changing exports.
type LiveMonitor interface {
	// Start begins monitoring. It returns once watching is established.
	Start() error

	// Stop stops the monitor gracefully
	Stop() error

	// Result returns the current aggregation result
	Result() *analyze.Result

	// Updates returns a channel for receiving live updates
	Updates() <-chan Update

	// Close closes the monitor and releases resources
	Close() error
}

// Update represents a live monitoring update event.
type Update struct {
	// Timestamp of the update
	Timestamp time.Time

	// Result contains the current aggregation result
	Result *analyze.Result

	// Delta contains the change since last update
	Delta DeltaStats
}

// DeltaStats represents changes since the last update.
type DeltaStats struct {
	// NewRecords is the number of new records processed
	NewRecords int64

	// CostAdded is the cost sum of the new records
	CostAdded decimal.Decimal
}
