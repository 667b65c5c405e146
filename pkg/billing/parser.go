package billing

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
)

const (
	// MaxFileSize is the maximum allowed export file size (100MB).
	// Files larger than this will be rejected to prevent memory exhaustion.
	MaxFileSize = 100 * 1024 * 1024

	// MaxLineLength is the maximum allowed line length (1MB).
	MaxLineLength = 1024 * 1024
)

// ParseResult holds the outcome of parsing one export file.
type ParseResult struct {
	// Records are the successfully parsed line-items, in file order.
	Records []Record

	// NewOffset is the byte position after the last line read. It can be
	// passed back to ParseFile for incremental reading.
	NewOffset int64

	// Skipped is the number of malformed or invalid lines that were
	// dropped rather than failing the whole file.
	Skipped int
}

// Parser provides methods for parsing billing export JSONL files.
type Parser interface {
	// ParseFile reads a JSONL export file from the given offset.
	//
	// Parameters:
	//   - path: Path to the export file
	//   - offset: Byte offset to start reading from (0 for beginning)
	//
	// Returns:
	//   - ParseResult with records, post-read offset, and skipped count
	//   - Error if the file cannot be read or is too large
	//
	// Malformed lines are counted and skipped rather than causing failure.
	//
	// Thread-safety: This method is safe to call concurrently with
	// different files.
	ParseFile(path string, offset int64) (*ParseResult, error)

	// ParseLine parses a single JSONL line into a Record.
	//
	// Parameters:
	//   - line: A single line of JSONL (without newline character)
	//
	// Returns:
	//   - Parsed Record
	//   - Error if the line is not valid JSON or fails validation
	//
	// Thread-safety: This method is thread-safe.
	ParseLine(line string) (*Record, error)
}

// jsonlParser implements the Parser interface.
type jsonlParser struct{}

// NewParser creates a new Parser instance.
func NewParser() Parser {
	return &jsonlParser{}
}

// ParseFile implements Parser.ParseFile.
func (p *jsonlParser) ParseFile(path string, offset int64) (*ParseResult, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	if info.Size() > MaxFileSize {
		return nil, fmt.Errorf("%w: size=%d, max=%d",
			ErrFileTooLarge, info.Size(), MaxFileSize)
	}

	// #nosec G304: path is validated by caller
	f, err := os.Open(path) // nolint:gosec
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()

	// Seek to offset for incremental reading.
	if offset > 0 {
		if _, seekErr := f.Seek(offset, io.SeekStart); seekErr != nil {
			return nil, fmt.Errorf("failed to seek to offset %d: %w", offset, seekErr)
		}
	}

	result := &ParseResult{
		Records: make([]Record, 0, 100),
	}

	scanner := bufio.NewScanner(f)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, MaxLineLength)

	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := scanner.Text()

		rec, parseErr := p.ParseLine(line)
		if parseErr != nil {
			result.Skipped++
			continue
		}

		result.Records = append(result.Records, *rec)
	}

	if scanErr := scanner.Err(); scanErr != nil {
		return nil, fmt.Errorf("scanner error at line %d: %w", lineNum, scanErr)
	}

	newOffset, seekErr := f.Seek(0, io.SeekCurrent)
	if seekErr != nil {
		// If we can't get the offset, fall back to file size.
		newOffset = info.Size()
	}
	result.NewOffset = newOffset

	return result, nil
}

// ParseLine implements Parser.ParseLine.
func (p *jsonlParser) ParseLine(line string) (*Record, error) {
	if line == "" {
		return nil, fmt.Errorf("%w: empty line", ErrMalformedJSON)
	}

	var rec Record
	if err := json.Unmarshal([]byte(line), &rec); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedJSON, err)
	}

	if err := rec.Validate(); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	return &rec, nil
}
