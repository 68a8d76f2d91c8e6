// =============================================================================
// Sales Import - Workbook Reader
// =============================================================================
//
// Reads worksheets from .xlsx (excelize) and legacy .xls (xlsReader) files
// into rows of typed cells.
//
// CELL VALUES:
//   - nil     : empty cell
//   - float64 : numeric cell, including date serials
//   - bool    : boolean cell (.xlsx only)
//   - string  : everything else, as stored (no number format applied)
//
// ROWS:
//   Row i of Sheet.Rows is worksheet row i+1. Blank rows inside the used range
//   are kept as empty slices so row numbers stay aligned; callers decide what
//   counts as data.
//
// =============================================================================

package xlsxparser

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrSheetNotFound is returned when a named worksheet does not exist.
	ErrSheetNotFound = errors.New("worksheet not found")

	// ErrNoWorksheets is returned for a workbook without worksheets.
	ErrNoWorksheets = errors.New("workbook has no worksheets")
)

// =============================================================================
// WORKBOOK
// =============================================================================

// Workbook is an opened spreadsheet file.
type Workbook interface {
	// SheetNames returns worksheet names in workbook order.
	SheetNames() []string

	// Rows returns every row of the named worksheet.
	Rows(sheet string) ([][]any, error)

	// Close releases the workbook.
	Close() error
}

// ResolveSheet returns name if the workbook has it, or the first worksheet
// when name is empty.
func ResolveSheet(wb Workbook, name string) (string, error) {
	names := wb.SheetNames()
	if len(names) == 0 {
		return "", ErrNoWorksheets
	}

	name = strings.TrimSpace(name)
	if name == "" {
		return names[0], nil
	}

	for _, n := range names {
		if n == name {
			return n, nil
		}
	}
	return "", fmt.Errorf("%w: %q (available: %s)", ErrSheetNotFound, name, strings.Join(names, ", "))
}

// IsBlank reports whether a cell holds nothing: nil or a blank string.
func IsBlank(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(x) == ""
	default:
		return false
	}
}

// IsRowBlank reports whether every cell of row is blank.
func IsRowBlank(row []any) bool {
	for _, cell := range row {
		if !IsBlank(cell) {
			return false
		}
	}
	return true
}

// CellText renders a header cell as text.
func CellText(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(x)
	case float64:
		return strings.TrimSpace(formatFloat(x))
	default:
		return strings.TrimSpace(fmt.Sprint(x))
	}
}
