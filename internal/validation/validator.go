// =============================================================================
// Sales Import - Row Validator
// =============================================================================
//
// Checks mapped rows for required values and normalizes each value to its
// field type.
//
// REQUIRED FIELDS:
//   - Core fields are required in every mode.
//   - Batch-only fields (address, city, vendor by default) are required only
//     for batch imports. A single-invoice entry fills them from the selected
//     customer instead.
//
// NORMALIZATION:
//   - date   : "YYYY-MM-DD" string
//   - number : float64
//   - string : trimmed string; spreadsheet numbers rendered without exponent
//   Optional fields that are blank are left out of the formatted row.
//
// ERROR HANDLING:
//   Errors are collected per row, never returned. A missing required value
//   skips further checks for that field only; other fields on the same row
//   are still validated. Row numbers are 1-based and count the header row, so
//   they match what a user sees in the spreadsheet.
//
// =============================================================================

package validation

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ginjaninja78/sales-import/internal/fields"
	"github.com/ginjaninja78/sales-import/internal/spreadsheet"
)

// =============================================================================
// ERROR AND RESULT TYPES
// =============================================================================

// ParseError describes one rejected value.
type ParseError struct {
	// Row is the spreadsheet row number (header is row 1).
	Row int `json:"row" csv:"row"`

	// Field is the field key.
	Field string `json:"field" csv:"field"`

	// Value is the original value as text.
	Value string `json:"value" csv:"value"`

	Message string `json:"message" csv:"message"`
}

// Error implements the error interface.
func (e ParseError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("row %d, %s: %s", e.Row, e.Field, e.Message)
	}
	return fmt.Sprintf("row %d, %s: %s (value: %q)", e.Row, e.Field, e.Message, e.Value)
}

// ValidatedRow maps a field key to its normalized value.
type ValidatedRow map[string]any

// RowResult is the outcome for one row.
type RowResult struct {
	Row       int
	Valid     bool
	Errors    []ParseError
	Formatted ValidatedRow
}

// Summary aggregates the results of ValidateAllRows.
type Summary struct {
	// Results holds one entry per input row, in order.
	Results []RowResult

	// Valid holds the formatted rows that passed.
	Valid []ValidatedRow

	// Errors holds every error from every row.
	Errors []ParseError

	TotalRows    int
	ValidCount   int
	InvalidCount int
}

// =============================================================================
// VALIDATOR
// =============================================================================

// Validator validates rows against a field registry.
type Validator struct {
	Registry      *fields.Registry
	DateFormat    DateFormat
	CoreRequired  []string
	BatchRequired []string

	// OnRow, if set, is called after each row of ValidateAllRows.
	OnRow func(done, total int)
}

// DefaultCoreRequired are required in every mode.
var DefaultCoreRequired = []string{
	fields.KeySaleDate, fields.KeyFirstName, fields.KeyLastName, fields.KeyStatus, fields.KeyAmount,
}

// DefaultBatchRequired are required in batch mode only.
var DefaultBatchRequired = []string{fields.KeyAddress, fields.KeyCity, fields.KeyVendor}

// NewValidator returns a Validator with the default required sets.
func NewValidator(registry *fields.Registry, format DateFormat) *Validator {
	return &Validator{
		Registry:      registry,
		DateFormat:    format,
		CoreRequired:  DefaultCoreRequired,
		BatchRequired: DefaultBatchRequired,
	}
}

// requiredKeys returns the field keys required in the mode: the core set,
// the batch set outside single mode, and any field the registry marks
// required that is not batch-only.
func (v *Validator) requiredKeys(singleMode bool) map[string]bool {
	required := make(map[string]bool)
	batchOnly := make(map[string]bool, len(v.BatchRequired))
	for _, key := range v.BatchRequired {
		batchOnly[key] = true
	}

	for _, key := range v.CoreRequired {
		required[key] = true
	}
	if !singleMode {
		for key := range batchOnly {
			required[key] = true
		}
	}
	for _, def := range v.Registry.Definitions() {
		if def.Required && !batchOnly[def.Key] {
			required[def.Key] = true
		}
	}
	return required
}

// ValidateAndFormatRow checks one row.
//
// PARAMETERS:
//   - row: Field key to raw value.
//   - rowNumber: The row number to report in errors.
//   - singleMode: True for single-invoice entry; batch-only fields are then
//     optional.
//
// RETURNS:
//   - The row result. Valid is true when Errors is empty.
func (v *Validator) ValidateAndFormatRow(row spreadsheet.ParsedRow, rowNumber int, singleMode bool) RowResult {
	required := v.requiredKeys(singleMode)
	result := RowResult{Row: rowNumber, Formatted: make(ValidatedRow)}

	for _, def := range v.Registry.Definitions() {
		raw, present := row[def.Key]
		blank := !present || isBlank(raw)

		if blank {
			if required[def.Key] {
				result.Errors = append(result.Errors, ParseError{
					Row:     rowNumber,
					Field:   def.Key,
					Message: fmt.Sprintf("%s is required", def.Key),
				})
			}
			continue
		}

		value, err := v.formatValue(def, raw)
		if err != nil {
			result.Errors = append(result.Errors, ParseError{
				Row:     rowNumber,
				Field:   def.Key,
				Value:   displayValue(raw),
				Message: err.Error(),
			})
			continue
		}
		result.Formatted[def.Key] = value
	}

	result.Valid = len(result.Errors) == 0
	return result
}

// ValidateAllRows checks every row. Row i is reported as spreadsheet row
// i+2.
func (v *Validator) ValidateAllRows(rows []spreadsheet.ParsedRow, batchMode bool) *Summary {
	summary, _ := v.ValidateAllRowsContext(context.Background(), rows, batchMode)
	return summary
}

// ValidateAllRowsContext is ValidateAllRows with cancellation checked before
// each row. On cancellation the rows checked so far are returned with the
// context error.
func (v *Validator) ValidateAllRowsContext(ctx context.Context, rows []spreadsheet.ParsedRow, batchMode bool) (*Summary, error) {
	summary := &Summary{
		Results:   make([]RowResult, 0, len(rows)),
		TotalRows: len(rows),
	}

	for i, row := range rows {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		result := v.ValidateAndFormatRow(row, i+2, !batchMode)
		summary.Results = append(summary.Results, result)

		if result.Valid {
			summary.Valid = append(summary.Valid, result.Formatted)
			summary.ValidCount++
		} else {
			summary.Errors = append(summary.Errors, result.Errors...)
			summary.InvalidCount++
		}

		if v.OnRow != nil {
			v.OnRow(i+1, len(rows))
		}
	}

	return summary, nil
}

func (v *Validator) formatValue(def fields.Definition, raw any) (any, error) {
	switch def.Type {
	case fields.TypeDate:
		d, err := ValidateAndFormatDate(raw, v.DateFormat)
		if err != nil {
			return nil, fmt.Errorf("%s must be a date (%s)", def.Label, v.DateFormat.Expected())
		}
		return d, nil

	case fields.TypeNumber:
		n, err := NormalizeNumber(raw)
		if err != nil {
			return nil, fmt.Errorf("%s must be a number", def.Label)
		}
		return n, nil

	default:
		return displayValue(raw), nil
	}
}

// =============================================================================
// HELPERS
// =============================================================================

func isBlank(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(x) == ""
	default:
		return false
	}
}

// displayValue renders a raw cell value as text.
func displayValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	case time.Time:
		return x.Format(ISODate)
	default:
		return strings.TrimSpace(fmt.Sprint(x))
	}
}

// FormatErrors renders errors one per line. A positive limit caps the lines
// listed; the remainder is counted on a final line.
func FormatErrors(errs []ParseError, limit int) string {
	if len(errs) == 0 {
		return "No validation errors."
	}

	shown := errs
	if limit > 0 && len(errs) > limit {
		shown = errs[:limit]
	}

	var builder strings.Builder
	fmt.Fprintf(&builder, "Validation completed with %d error(s):\n\n", len(errs))
	for i, err := range shown {
		fmt.Fprintf(&builder, "%d. %s\n", i+1, err.Error())
	}
	if rest := len(errs) - len(shown); rest > 0 {
		fmt.Fprintf(&builder, "... and %d more\n", rest)
	}
	return builder.String()
}
