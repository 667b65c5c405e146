// Package billing provides the billing line-item model and JSONL parsing
// for cloud billing export files. Each line of an export file is one
// billing record: a single usage/charge event with optional nested
// project, service, SKU, location, and usage groups.
//
// The parser is designed to handle malformed lines gracefully by
// counting and skipping invalid entries rather than failing.
//
// Example usage:
//
//	p := billing.NewParser()
//	res, err := p.ParseFile("/path/to/export.jsonl", 0)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, rec := range res.Records {
//	    fmt.Printf("Cost: %s %s\n", rec.Cost, rec.Currency)
//	}
package billing

import (
	"time"

	"github.com/shopspring/decimal"
)

// Record represents a single billing line-item from an export file.
// Records are immutable once parsed; analyses never modify them.
//
// Invariant: Cost must be >= 0 (zero is valid: free-tier usage).
// Invariant: CurrencyConversionRate must be > 0 when set.
// Invariant: UsageStartTime <= UsageEndTime when both are present.
//
// Any nested group (Project, Service, SKU, Location, Usage) may be
// entirely absent; analyses that group by an absent dimension exclude
// the record rather than coercing it to a default key.
type Record struct {
	BillingAccountID string `json:"billing_account_id"`

	Project  *Project  `json:"project,omitempty"`
	Service  *Service  `json:"service,omitempty"`
	SKU      *SKU      `json:"sku,omitempty"`
	Location *Location `json:"location,omitempty"`

	Cost                   decimal.Decimal `json:"cost"`
	Currency               string          `json:"currency"`
	CurrencyConversionRate decimal.Decimal `json:"currency_conversion_rate"`

	Usage *Usage `json:"usage,omitempty"`

	// Zero values mean the timestamps were absent from the export.
	UsageStartTime time.Time `json:"usage_start_time"`
	UsageEndTime   time.Time `json:"usage_end_time"`
}

// Project identifies the billed project.
type Project struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Service identifies the billed cloud service.
type Service struct {
	Description string `json:"description"`
}

// SKU identifies the specific billable item within a service.
type SKU struct {
	Description string `json:"description"`
}

// Location identifies where the usage occurred.
type Location struct {
	Country string `json:"country"`
}

// Usage contains the metered quantity for a record.
type Usage struct {
	Amount      decimal.Decimal `json:"amount"`
	Unit        string          `json:"unit"`
	PricingUnit string          `json:"pricing_unit"`
}

// Day returns the calendar day of the usage start time in UTC.
// The second result is false when the record has no start time.
func (r *Record) Day() (time.Time, bool) {
	if r.UsageStartTime.IsZero() {
		return time.Time{}, false
	}
	t := r.UsageStartTime.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), true
}

// Validate checks if the record satisfies all invariants.
//
// Returns an error if:
//   - Cost is negative
//   - CurrencyConversionRate is set but not positive
//   - Both usage timestamps are present and start is after end
//
// Thread-safety: This method is read-only and thread-safe.
func (r *Record) Validate() error {
	if r.Cost.IsNegative() {
		return ErrNegativeCost
	}

	// A zero rate means the field was absent from the export.
	if r.CurrencyConversionRate.IsNegative() {
		return ErrInvalidConversionRate
	}

	if !r.UsageStartTime.IsZero() && !r.UsageEndTime.IsZero() &&
		r.UsageStartTime.After(r.UsageEndTime) {
		return ErrInvalidUsageWindow
	}

	if r.Usage != nil && r.Usage.Amount.IsNegative() {
		return ErrNegativeUsage
	}

	return nil
}
