package analyze

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/cloudbill/billscan/pkg/billing"
)

// ParseDimension converts a dimension name to a Dimension.
func ParseDimension(name string) (Dimension, error) {
	switch Dimension(strings.ToLower(strings.TrimSpace(name))) {
	case DimService:
		return DimService, nil
	case DimProject:
		return DimProject, nil
	case DimSKU:
		return DimSKU, nil
	case DimLocation:
		return DimLocation, nil
	case DimDay:
		return DimDay, nil
	case DimCurrency:
		return DimCurrency, nil
	case DimAccount:
		return DimAccount, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnknownDimension, name)
	}
}

// KeyByDimensions builds a key function over the given dimensions, in
// order. Records missing any of the dimensions are excluded.
func KeyByDimensions(dims ...Dimension) KeyFunc {
	return func(r *billing.Record) (string, bool) {
		return buildKey(r, dims, "", false)
	}
}

// KeyWithUnknown is like KeyByDimensions but maps absent dimensions to
// the given sentinel label instead of excluding the record.
func KeyWithUnknown(label string, dims ...Dimension) KeyFunc {
	return func(r *billing.Record) (string, bool) {
		return buildKey(r, dims, label, true)
	}
}

// buildKey joins dimension values with KeySeparator. Values are
// escaped so that SplitKey recovers the original components even when
// a value contains the separator itself.
func buildKey(r *billing.Record, dims []Dimension, unknown string, useUnknown bool) (string, bool) {
	var b strings.Builder

	for i, dim := range dims {
		if i > 0 {
			b.WriteString(KeySeparator)
		}

		val, ok := DimensionValue(r, dim)
		if !ok {
			if !useUnknown {
				return "", false
			}
			val = unknown
		}
		b.WriteString(escapeKeyComponent(val))
	}

	return b.String(), true
}

// keyEscaper protects literal separators and backslashes inside
// dimension values.
var keyEscaper = strings.NewReplacer(`\`, `\\`, KeySeparator, `\`+KeySeparator)

// escapeKeyComponent escapes one dimension value for use in a
// composite key.
func escapeKeyComponent(val string) string {
	if !strings.ContainsAny(val, `\`+KeySeparator) {
		return val
	}
	return keyEscaper.Replace(val)
}

// DimensionValue extracts one dimension value from a record. The second
// result is false when the dimension's nested group is absent.
func DimensionValue(r *billing.Record, dim Dimension) (string, bool) {
	switch dim {
	case DimService:
		if r.Service == nil {
			return "", false
		}
		return r.Service.Description, true
	case DimProject:
		if r.Project == nil {
			return "", false
		}
		return r.Project.ID, true
	case DimSKU:
		if r.SKU == nil {
			return "", false
		}
		return r.SKU.Description, true
	case DimLocation:
		if r.Location == nil {
			return "", false
		}
		return r.Location.Country, true
	case DimDay:
		day, ok := r.Day()
		if !ok {
			return "", false
		}
		return day.Format(DayFormat), true
	case DimCurrency:
		if r.Currency == "" {
			return "", false
		}
		return r.Currency, true
	case DimAccount:
		if r.BillingAccountID == "" {
			return "", false
		}
		return r.BillingAccountID, true
	default:
		return "", false
	}
}

// SplitKey splits a composite group key into its dimension values,
// undoing the escaping buildKey applied. The inverse of the key
// functions: a value containing '|' or '\' round-trips unchanged.
func SplitKey(key string) []string {
	parts := make([]string, 0, 2)

	var b strings.Builder
	escaped := false

	for _, r := range key {
		switch {
		case escaped:
			b.WriteRune(r)
			escaped = false
		case r == '\\':
			escaped = true
		case r == '|':
			parts = append(parts, b.String())
			b.Reset()
		default:
			b.WriteRune(r)
		}
	}

	return append(parts, b.String())
}

// CostValue extracts the record's cost. Always present.
func CostValue(r *billing.Record) (decimal.Decimal, bool) {
	return r.Cost, true
}

// UsageValue extracts the record's usage amount; absent when the record
// carries no usage group.
func UsageValue(r *billing.Record) (decimal.Decimal, bool) {
	if r.Usage == nil {
		return decimal.Decimal{}, false
	}
	return r.Usage.Amount, true
}

// PositiveCost filters to records with cost > 0, the convention shared
// by outlier detection, trend smoothing, and co-occurrence analysis.
func PositiveCost(r *billing.Record) bool {
	return r.Cost.IsPositive()
}
