// Package source defines the record source abstraction consumed by all
// analyses. A Source is a single forward scan over billing records; a
// Provider can open any number of fresh scans over the same record set,
// which two-pass analyses (outlier detection) require.
//
// The package ships an in-memory implementation; file-backed sources
// live in pkg/reader.
//
// Example usage:
//
//	provider := source.FromRecords(records)
//	src, err := provider.Open(ctx)
//	for {
//	    rec, err := src.Next(ctx)
//	    if err == io.EOF {
//	        break
//	    }
//	    ...
//	}
package source

import (
	"context"
	"io"

	"github.com/cloudbill/billscan/pkg/billing"
)

// Source yields billing records one at a time.
//
// Implementations return io.EOF after the last record. Any other error
// means the scan failed mid-stream; callers must treat results built
// from a failed scan as invalid rather than partial.
type Source interface {
	// Next returns the next record, or io.EOF when the scan is complete.
	//
	// Implementations that perform I/O should honor ctx cancellation.
	Next(ctx context.Context) (*billing.Record, error)
}

// Provider opens fresh scans over one record set.
//
// Every Open must yield the records in the same order, so positional
// record identity is stable across passes.
type Provider interface {
	// Open starts a new scan from the first record.
	Open(ctx context.Context) (Source, error)
}

// sliceSource scans an in-memory record slice.
type sliceSource struct {
	records []billing.Record
	next    int
}

// Next implements Source.Next.
func (s *sliceSource) Next(_ context.Context) (*billing.Record, error) {
	if s.next >= len(s.records) {
		return nil, io.EOF
	}
	rec := &s.records[s.next]
	s.next++
	return rec, nil
}

// sliceProvider opens scans over an in-memory record slice.
type sliceProvider struct {
	records []billing.Record
}

// Open implements Provider.Open.
func (p *sliceProvider) Open(_ context.Context) (Source, error) {
	return &sliceSource{records: p.records}, nil
}

// FromRecords returns a Provider over an in-memory record slice.
//
// The slice is not copied; callers must not mutate it while analyses
// are running.
func FromRecords(records []billing.Record) Provider {
	return &sliceProvider{records: records}
}

// Collect drains a source into a slice. Intended for small record sets
// and tests; large exports should be streamed through the analyses.
func Collect(ctx context.Context, src Source) ([]billing.Record, error) {
	var out []billing.Record
	for {
		rec, err := src.Next(ctx)
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		out = append(out, *rec)
	}
}
