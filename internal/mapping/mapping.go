// =============================================================================
// Sales Import - Mapping Generator
// =============================================================================
//
// Proposes which target field each spreadsheet column feeds.
//
// ASSIGNMENT ORDER:
//   Headers are processed left to right. For each header:
//     1. A remembered mapping for (pattern, header) wins if its field is free.
//     2. Otherwise the fuzzy matcher's best field is taken if it scores at
//        least Threshold and the field is free.
//     3. Otherwise the column is left unmapped for a human to resolve.
//
//   A field claimed by an earlier header is never reassigned to a later one,
//   even if the later header scores higher. The result is deterministic for a
//   given header order, not a global best assignment.
//
// =============================================================================

package mapping

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/ginjaninja78/sales-import/internal/fields"
	"github.com/ginjaninja78/sales-import/internal/match"
	"github.com/ginjaninja78/sales-import/internal/memory"
)

const (
	// DefaultThreshold is the minimum fuzzy score for automatic assignment.
	DefaultThreshold = 0.75

	// DefaultMemoryConfidence is the confidence given to remembered mappings.
	DefaultMemoryConfidence = 0.95

	// Unmap is accepted by ApplyOverrides to clear a column's field.
	Unmap = "-"
)

var (
	// ErrUnknownField is returned when an override names a field that does
	// not exist.
	ErrUnknownField = errors.New("unknown field")

	// ErrUnknownColumn is returned when an override names a column that is
	// not among the mappings.
	ErrUnknownColumn = errors.New("unknown column")

	// ErrDuplicateField is returned by Validate when two columns feed the
	// same field.
	ErrDuplicateField = errors.New("field mapped more than once")
)

// =============================================================================
// COLUMN MAPPING
// =============================================================================

// ColumnMapping assigns one source column to a target field.
type ColumnMapping struct {
	// ExcelColumn is the header text as it appears in the file.
	ExcelColumn string `json:"excelColumn"`

	// FieldKey is the target field. Empty means unmapped.
	FieldKey string `json:"fieldKey"`

	// Confidence is between 0 and 1.
	Confidence float64 `json:"confidence"`

	// Suggested is true when the assignment was made automatically.
	Suggested bool `json:"suggested"`
}

// Mapped reports whether the column feeds a field.
func (m ColumnMapping) Mapped() bool {
	return m.FieldKey != ""
}

// =============================================================================
// GENERATOR
// =============================================================================

// Generator builds column mappings.
type Generator struct {
	Threshold        float64
	MemoryConfidence float64
}

// Default returns a Generator with the standard threshold and memory
// confidence.
func Default() Generator {
	return Generator{
		Threshold:        DefaultThreshold,
		MemoryConfidence: DefaultMemoryConfidence,
	}
}

// GenerateColumnMappings proposes one mapping per header using the default
// Generator.
func GenerateColumnMappings(headers []string, defs []fields.Definition, previous memory.Memory, pattern string) []ColumnMapping {
	return Default().GenerateColumnMappings(headers, defs, previous, pattern)
}

// GenerateColumnMappings proposes one mapping per header.
//
// PARAMETERS:
//   - headers: source column headers in file order
//   - defs: target field definitions
//   - previous: remembered mappings, may be nil
//   - pattern: file pattern used to look up previous, may be empty
//
// RETURNS:
//   - One ColumnMapping per header, in header order. No two mappings share a
//     non-empty FieldKey.
func (g Generator) GenerateColumnMappings(headers []string, defs []fields.Definition, previous memory.Memory, pattern string) []ColumnMapping {
	known := make(map[string]bool, len(defs))
	for _, def := range defs {
		known[def.Key] = true
	}

	used := make(map[string]bool)
	mappings := make([]ColumnMapping, 0, len(headers))

	for _, header := range headers {
		if key, ok := previous.Lookup(pattern, header); ok && known[key] && !used[key] {
			used[key] = true
			mappings = append(mappings, ColumnMapping{
				ExcelColumn: header,
				FieldKey:    key,
				Confidence:  g.MemoryConfidence,
				Suggested:   true,
			})
			continue
		}

		best := match.FindBestFieldMatch(header, defs)
		if best.FieldKey != "" && best.Confidence >= g.Threshold && !used[best.FieldKey] {
			used[best.FieldKey] = true
			mappings = append(mappings, ColumnMapping{
				ExcelColumn: header,
				FieldKey:    best.FieldKey,
				Confidence:  best.Confidence,
				Suggested:   true,
			})
			continue
		}

		mappings = append(mappings, ColumnMapping{ExcelColumn: header})
	}

	return mappings
}

// =============================================================================
// OVERRIDES
// =============================================================================

// ApplyOverrides applies user choices (column -> field key) on top of
// mappings and returns the result. The input slice is not modified.
//
// An override assigns the field with confidence 1.0 and Suggested=false, and
// unmaps any other column that held the same field. An empty key or Unmap
// clears the column.
func ApplyOverrides(mappings []ColumnMapping, overrides map[string]string, defs []fields.Definition) ([]ColumnMapping, error) {
	known := make(map[string]bool, len(defs))
	for _, def := range defs {
		known[def.Key] = true
	}

	out := make([]ColumnMapping, len(mappings))
	copy(out, mappings)

	index := make(map[string]int, len(out))
	for i, m := range out {
		index[m.ExcelColumn] = i
	}

	// Sorted so that repeated runs produce the same result when two
	// overrides name the same field.
	columns := make([]string, 0, len(overrides))
	for column := range overrides {
		columns = append(columns, column)
	}
	sort.Strings(columns)

	for _, column := range columns {
		i, ok := index[column]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownColumn, column)
		}

		key := strings.TrimSpace(overrides[column])
		if key == "" || key == Unmap {
			out[i] = ColumnMapping{ExcelColumn: column}
			continue
		}
		if !known[key] {
			return nil, fmt.Errorf("%w: %q", ErrUnknownField, key)
		}

		for j := range out {
			if j != i && out[j].FieldKey == key {
				out[j] = ColumnMapping{ExcelColumn: out[j].ExcelColumn}
			}
		}
		out[i] = ColumnMapping{ExcelColumn: column, FieldKey: key, Confidence: 1.0}
	}

	return out, nil
}

// ParseOverride splits a "Column=field" flag value.
func ParseOverride(s string) (column, key string, err error) {
	i := strings.LastIndex(s, "=")
	if i <= 0 {
		return "", "", fmt.Errorf("invalid mapping %q: expected Column=field", s)
	}
	return strings.TrimSpace(s[:i]), strings.TrimSpace(s[i+1:]), nil
}

// =============================================================================
// HELPERS
// =============================================================================

// Validate reports an error if two mappings share a field.
func Validate(mappings []ColumnMapping) error {
	owner := make(map[string]string)
	for _, m := range mappings {
		if !m.Mapped() {
			continue
		}
		if prev, ok := owner[m.FieldKey]; ok {
			return fmt.Errorf("%w: %q from columns %q and %q", ErrDuplicateField, m.FieldKey, prev, m.ExcelColumn)
		}
		owner[m.FieldKey] = m.ExcelColumn
	}
	return nil
}

// Remembered returns the mapped columns as column -> field key, the shape
// stored in mapping memory.
func Remembered(mappings []ColumnMapping) map[string]string {
	columns := make(map[string]string, len(mappings))
	for _, m := range mappings {
		if m.Mapped() {
			columns[m.ExcelColumn] = m.FieldKey
		}
	}
	return columns
}

// Unmapped returns the headers that have no field.
func Unmapped(mappings []ColumnMapping) []string {
	var headers []string
	for _, m := range mappings {
		if !m.Mapped() {
			headers = append(headers, m.ExcelColumn)
		}
	}
	return headers
}

// MissingRequired returns the keys of required fields no column feeds, in
// definition order.
func MissingRequired(mappings []ColumnMapping, defs []fields.Definition, required []string) []string {
	mapped := make(map[string]bool, len(mappings))
	for _, m := range mappings {
		if m.Mapped() {
			mapped[m.FieldKey] = true
		}
	}

	want := make(map[string]bool, len(required))
	for _, key := range required {
		want[key] = true
	}

	var missing []string
	for _, def := range defs {
		if want[def.Key] && !mapped[def.Key] {
			missing = append(missing, def.Key)
		}
	}
	return missing
}
