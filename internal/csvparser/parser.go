// =============================================================================
// Sales Import - CSV Parser Module
// =============================================================================
//
// Parses CSV exports into headers and rows of strings.
//
// FEATURES:
//   - Configurable delimiter (comma, tab, pipe, semicolon or any character)
//   - ISO-8859-1 and Windows-1252 input decoded to UTF-8
//   - UTF-8 byte order mark stripped
//   - Lazy quotes and ragged rows tolerated
//
// ROW RULES:
//   - The first row with any non-blank cell is the header row.
//   - Columns whose header cell is blank are dropped.
//   - Rows where every cell is blank are not data rows.
//
// =============================================================================

package csvparser

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	"github.com/ginjaninja78/sales-import/internal/config"
)

var (
	// ErrEmpty is returned when the input has no non-blank row.
	ErrEmpty = errors.New("csv: file is empty")

	// ErrUnsupportedEncoding is returned for encodings other than UTF-8,
	// ISO-8859-1 and Windows-1252.
	ErrUnsupportedEncoding = errors.New("csv: unsupported encoding")
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// =============================================================================
// CSV DATA STRUCTURE
// =============================================================================

// CSVData represents a parsed CSV file.
type CSVData struct {
	// Headers are the non-blank header cells, trimmed, in file order.
	Headers []string

	// Rows are the data rows as header -> value. Missing cells are "".
	Rows []map[string]string

	// RowCount is the number of data rows.
	RowCount int
}

// =============================================================================
// PARSER FUNCTIONS
// =============================================================================

// Parse reads CSV content.
//
// PARAMETERS:
//   - data: The raw file content.
//   - settings: Delimiter and encoding.
//
// RETURNS:
//   - The parsed headers and rows.
//   - ErrEmpty if no row has content, or a wrapped read error.
func Parse(data []byte, settings config.CSVSettings) (*CSVData, error) {
	dec, err := decoder(settings.Encoding)
	if err != nil {
		return nil, err
	}

	var r io.Reader = bytes.NewReader(bytes.TrimPrefix(data, utf8BOM))
	if dec != nil {
		r = transform.NewReader(r, dec.NewDecoder())
	}

	csvReader := csv.NewReader(r)
	configureReader(csvReader, settings)

	allRows, err := csvReader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV: %w", err)
	}

	headerIndex := -1
	for i, row := range allRows {
		if !isRowEmpty(row) {
			headerIndex = i
			break
		}
	}
	if headerIndex < 0 {
		return nil, ErrEmpty
	}

	columns, headers := extractHeaders(allRows[headerIndex])
	rows := extractDataRows(allRows[headerIndex+1:], columns, headers)

	return &CSVData{
		Headers:  headers,
		Rows:     rows,
		RowCount: len(rows),
	}, nil
}

// decoder returns the charmap for name, or nil for UTF-8.
func decoder(name string) (encoding.Encoding, error) {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "", "UTF-8", "UTF8":
		return nil, nil
	case "ISO-8859-1", "LATIN1":
		return charmap.ISO8859_1, nil
	case "WINDOWS-1252", "CP1252":
		return charmap.Windows1252, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedEncoding, name)
	}
}

// configureReader configures the CSV reader based on the settings.
func configureReader(reader *csv.Reader, settings config.CSVSettings) {
	reader.Comma = Delimiter(settings.Delimiter)

	// Rows may be ragged.
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
}

// Delimiter resolves a configured delimiter name to a rune.
func Delimiter(s string) rune {
	switch s {
	case "\\t", "\t", "tab", "TAB":
		return '\t'
	case "|", "pipe", "PIPE":
		return '|'
	case ";", "semicolon", "SEMICOLON":
		return ';'
	}

	if r := []rune(s); len(r) > 0 {
		return r[0]
	}
	return ','
}

// extractHeaders returns the column indexes that have a header and the
// trimmed header text for each. A repeated header keeps its first column.
func extractHeaders(row []string) ([]int, []string) {
	var (
		columns []int
		headers []string
	)
	seen := make(map[string]bool)

	for i, cell := range row {
		header := strings.TrimSpace(cell)
		if header == "" || seen[header] {
			continue
		}
		seen[header] = true
		columns = append(columns, i)
		headers = append(headers, header)
	}

	return columns, headers
}

// extractDataRows converts the rows after the header to maps, skipping
// blank rows.
func extractDataRows(allRows [][]string, columns []int, headers []string) []map[string]string {
	rows := make([]map[string]string, 0, len(allRows))

	for _, row := range allRows {
		if isRowEmpty(row) {
			continue
		}

		rowMap := make(map[string]string, len(headers))
		for i, col := range columns {
			if col < len(row) {
				rowMap[headers[i]] = strings.TrimSpace(row[col])
			} else {
				rowMap[headers[i]] = ""
			}
		}

		rows = append(rows, rowMap)
	}

	return rows
}

// isRowEmpty checks if a row contains only empty values.
func isRowEmpty(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
