package reader

import (
	"context"
	"fmt"
	"io"
	"sort"

	"github.com/cloudbill/billscan/pkg/billing"
	"github.com/cloudbill/billscan/pkg/logger"
	"github.com/cloudbill/billscan/pkg/source"
)

// fileProvider streams records out of a fixed set of export files.
//
// Files are visited in sorted path order and records within a file keep
// their line order, so every Open yields the same record sequence as
// long as the files do not change between passes.
type fileProvider struct {
	paths  []string
	parser billing.Parser
	logger logger.Logger
}

// NewProvider creates a source.Provider over the given export files.
//
// Parameters:
//   - paths: Export file paths; the order given does not matter
//   - p: Parser for the export format
//   - log: Logger instance
//
// Each Open replays all files from the beginning. Malformed lines are
// skipped with a warning, matching Reader behavior.
func NewProvider(paths []string, p billing.Parser, log logger.Logger) source.Provider {
	sorted := make([]string, len(paths))
	copy(sorted, paths)
	sort.Strings(sorted)

	return &fileProvider{
		paths:  sorted,
		parser: p,
		logger: log,
	}
}

// Open implements source.Provider.Open.
func (p *fileProvider) Open(ctx context.Context) (source.Source, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return &fileSource{provider: p}, nil
}

// fileSource iterates the provider's files one at a time, parsing each
// lazily on first touch.
type fileSource struct {
	provider *fileProvider

	next    int // index of the next unparsed file
	pending []billing.Record
	pos     int
}

// Next implements source.Source.Next.
func (s *fileSource) Next(ctx context.Context) (*billing.Record, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if s.pos < len(s.pending) {
			rec := &s.pending[s.pos]
			s.pos++
			return rec, nil
		}

		if s.next >= len(s.provider.paths) {
			return nil, io.EOF
		}

		path := s.provider.paths[s.next]
		s.next++

		res, err := s.provider.parser.ParseFile(path, 0)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}

		if res.Skipped > 0 {
			s.provider.logger.Warn("skipped malformed lines",
				"path", path,
				"skipped", res.Skipped)
		}

		s.pending = res.Records
		s.pos = 0
	}
}
