package display

import (
	"fmt"
	"io"
	"os"

	"github.com/shopspring/decimal"
	"golang.org/x/term"
)

// New creates a new formatter based on configuration.
//
// Parameters:
//   - cfg: Formatter configuration
//
// Returns a configured Formatter.
func New(cfg Config) Formatter {
	// Set defaults.
	if cfg.Format == "" {
		cfg.Format = FormatTable
	}

	switch cfg.Format {
	case FormatJSON:
		return &jsonFormatter{config: cfg}
	case FormatSimple:
		return &simpleFormatter{config: cfg}
	case FormatTable:
		fallthrough
	default:
		return &tableFormatter{config: cfg}
	}
}

// formatMoney formats a decimal cost with two fractional digits.
func formatMoney(d decimal.Decimal) string {
	return d.StringFixed(2)
}

// formatCount formats a count with thousand separators.
func formatCount(n int64) string {
	if n < 0 {
		return "-" + formatCount(-n)
	}
	if n < 1000 {
		return fmt.Sprintf("%d", n)
	}

	// Convert to string and add commas.
	s := fmt.Sprintf("%d", n)
	result := ""
	for i, c := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			result += ","
		}
		result += string(c)
	}
	return result
}

// formatFloat formats a float with specified precision.
func formatFloat(f float64, precision int) string {
	format := fmt.Sprintf("%%.%df", precision)
	return fmt.Sprintf(format, f)
}

// formatStdDev formats an optional standard deviation.
func formatStdDev(sd *float64) string {
	if sd == nil {
		return "n/a"
	}
	return formatFloat(*sd, 2)
}

// validateDimensions validates dimension names.
func validateDimensions(dimensions []string) error {
	if len(dimensions) == 0 {
		return fmt.Errorf("no dimensions specified")
	}
	return nil
}

// writeHeader writes a section header.
func writeHeader(w io.Writer, title string, compact bool) error {
	if compact {
		_, err := fmt.Fprintf(w, "%s\n", title)
		return err
	}

	separator := ""
	for i := 0; i < len(title); i++ {
		separator += "="
	}

	_, err := fmt.Fprintf(w, "\n%s\n%s\n\n", title, separator)
	return err
}

// capRows applies the MaxRows cap to a row count. It returns how many
// rows to print and how many were hidden.
func capRows(total, maxRows int) (shown, hidden int) {
	if maxRows <= 0 || total <= maxRows {
		return total, 0
	}
	return maxRows, total - maxRows
}

// writeHidden notes rows suppressed by the MaxRows cap.
func writeHidden(w io.Writer, hidden int) error {
	if hidden == 0 {
		return nil
	}
	_, err := fmt.Fprintf(w, "... %d more rows\n", hidden)
	return err
}

// terminalWidth reports the column width of w when it is a terminal,
// or 0 when width cannot be determined.
func terminalWidth(w io.Writer) int {
	f, ok := w.(*os.File)
	if !ok {
		return 0
	}

	fd := int(f.Fd())
	if !term.IsTerminal(fd) {
		return 0
	}

	width, _, err := term.GetSize(fd)
	if err != nil {
		return 0
	}
	return width
}
