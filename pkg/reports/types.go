// Package reports provides persistent storage for saved analysis runs.
//
// It maps user-friendly report names to analysis output, providing CRUD
// operations so that an expensive run over a large export set can be
// rendered again later without re-scanning.
//
// Example usage:
//
//	mgr, err := reports.New(reports.Config{
//	    DBPath: "~/.config/billscan/billscan.db",
//	}, logger.Default())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer mgr.Close()
//
//	payload, _ := json.Marshal(rows)
//	err = mgr.Save(&reports.Report{
//	    Name:    "july-outliers",
//	    Kind:    reports.KindOutliers,
//	    Params:  map[string]string{"threshold": "2.0"},
//	    Payload: payload,
//	})
package reports

import (
	"encoding/json"
	"time"
)

// Kind identifies the analysis that produced a report.
type Kind string

// Report kinds.
const (
	KindStats    Kind = "stats"
	KindOutliers Kind = "outliers"
	KindTrend    Kind = "trend"
	KindPairs    Kind = "pairs"
	KindBuckets  Kind = "buckets"
)

// Valid reports whether k names a known analysis.
func (k Kind) Valid() bool {
	switch k {
	case KindStats, KindOutliers, KindTrend, KindPairs, KindBuckets:
		return true
	}
	return false
}

// Report is one saved analysis run.
type Report struct {
	// Name is the user-friendly report name (must be unique).
	Name string `json:"name"`

	// Kind is the analysis that produced the report.
	Kind Kind `json:"kind"`

	// CreatedAt is the save timestamp.
	CreatedAt time.Time `json:"created_at"`

	// Params are the analysis parameters the run used, for display.
	Params map[string]string `json:"params,omitempty"`

	// Description is an optional free-form note.
	Description string `json:"description,omitempty"`

	// Payload is the serialized analysis output.
	Payload json.RawMessage `json:"-"`
}

// Summary is report metadata without the payload, as returned by List.
type Summary struct {
	Name        string            `json:"name"`
	Kind        Kind              `json:"kind"`
	CreatedAt   time.Time         `json:"created_at"`
	Params      map[string]string `json:"params,omitempty"`
	Description string            `json:"description,omitempty"`
}

// Manager provides saved-report CRUD operations.
type Manager interface {
	// Save stores a new report.
	//
	// Returns error if:
	//   - Name is empty or invalid
	//   - Kind is unknown
	//   - Name is already taken
	//   - Database operation fails
	Save(report *Report) error

	// Get retrieves a report, including its payload, by name.
	//
	// Returns:
	//   - Report if found
	//   - ErrReportNotFound if not found
	//   - Error for database failures
	Get(name string) (*Report, error)

	// List returns metadata for all saved reports, sorted by name.
	//
	// Payloads are not loaded.
	List() ([]*Summary, error)

	// Delete removes a saved report.
	//
	// Returns error if database operation fails.
	// Does not error if the report doesn't exist.
	Delete(name string) error

	// Close closes the database connection and releases resources.
	Close() error
}

// Config contains report manager configuration.
type Config struct {
	// DBPath is the BoltDB file path.
	DBPath string

	// Timeout is the database operation timeout (default: 1 second).
	Timeout time.Duration
}
