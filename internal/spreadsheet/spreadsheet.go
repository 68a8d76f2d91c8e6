// =============================================================================
// Sales Import - File Parser
// =============================================================================
//
// Turns an uploaded file into headers and rows keyed by target field.
//
// DISPATCH (by file extension):
//   - .csv        : internal/csvparser, cell values are strings
//   - .xlsx/.xlsm : internal/xlsxparser (excelize), typed cells
//   - .xls        : internal/xlsxparser (xlsReader), typed cells
//
// WORKSHEET RULES:
//   - Only the named worksheet is read, or the first one when no name is given.
//   - The first row is the header row. Blank header cells are dropped.
//   - Rows where every cell is empty are not data rows.
//
// =============================================================================

package spreadsheet

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ginjaninja78/sales-import/internal/config"
	"github.com/ginjaninja78/sales-import/internal/csvparser"
	"github.com/ginjaninja78/sales-import/internal/mapping"
	"github.com/ginjaninja78/sales-import/internal/xlsxparser"
)

var (
	// ErrUnsupportedFormat is returned for extensions other than .csv, .xlsx and .xls.
	ErrUnsupportedFormat = errors.New("unsupported file format")

	// ErrEmptyFile is returned when a file or worksheet has no header row.
	ErrEmptyFile = errors.New("file is empty")

	// ErrSheetNotFound is returned when the requested worksheet does not exist.
	ErrSheetNotFound = xlsxparser.ErrSheetNotFound

	// ErrNoWorksheets is returned for a workbook without worksheets.
	ErrNoWorksheets = xlsxparser.ErrNoWorksheets

	// ErrNotWorkbook is returned when worksheets are requested from a CSV file.
	ErrNotWorkbook = errors.New("file is not a workbook")
)

// =============================================================================
// TYPES
// =============================================================================

// Format is a supported input format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
	FormatXLS  Format = "xls"
)

// File is an uploaded file: its name (used for dispatch and mapping memory)
// and content.
type File struct {
	Name string
	Data []byte
}

// ReadFile loads a file from disk.
func ReadFile(path string) (File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return File{}, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return File{Name: filepath.Base(path), Data: data}, nil
}

// Worksheet describes one worksheet of a workbook.
type Worksheet struct {
	Name string `json:"name"`

	// RowCount is the number of non-blank rows below the header row.
	RowCount int `json:"rowCount"`
}

// ParsedRow maps a field key to the raw cell value: nil, string, float64 or
// bool.
type ParsedRow map[string]any

// ParsedData is the result of ParseFileWithMappings.
type ParsedData struct {
	Headers   []string
	Rows      []ParsedRow
	TotalRows int
}

// DetectFormat returns the format for a file name.
func DetectFormat(name string) (Format, error) {
	switch ext := strings.ToLower(filepath.Ext(name)); ext {
	case ".csv":
		return FormatCSV, nil
	case ".xlsx", ".xlsm":
		return FormatXLSX, nil
	case ".xls":
		return FormatXLS, nil
	default:
		if ext == "" {
			ext = "(none)"
		}
		return "", fmt.Errorf("%w: %s (expected .csv, .xlsx or .xls)", ErrUnsupportedFormat, ext)
	}
}

// =============================================================================
// PARSER
// =============================================================================

// Parser reads files of every supported format.
type Parser struct {
	csv config.CSVSettings
}

// NewParser returns a Parser using settings for CSV input.
func NewParser(settings config.CSVSettings) *Parser {
	return &Parser{csv: settings}
}

// ParseFileHeaders returns the non-blank headers of the file, or of the
// worksheet (first when empty) for workbooks.
func (p *Parser) ParseFileHeaders(file File, worksheet string) ([]string, error) {
	t, err := p.readTable(file, worksheet)
	if err != nil {
		return nil, err
	}
	return t.headers, nil
}

// ParseFileWithMappings reads every data row and keys its values by the
// mapped field. Unmapped columns are dropped.
//
// PARAMETERS:
//   - file: The uploaded file.
//   - mappings: Column to field assignments.
//   - worksheet: Worksheet name for workbooks; empty selects the first.
//
// RETURNS:
//   - The headers, mapped rows and row count.
//   - A fatal error for unsupported, unreadable or empty files.
func (p *Parser) ParseFileWithMappings(file File, mappings []mapping.ColumnMapping, worksheet string) (*ParsedData, error) {
	t, err := p.readTable(file, worksheet)
	if err != nil {
		return nil, err
	}

	fieldFor := make(map[string]string, len(mappings))
	for _, m := range mappings {
		if m.Mapped() {
			fieldFor[m.ExcelColumn] = m.FieldKey
		}
	}

	rows := make([]ParsedRow, 0, len(t.records))
	for _, record := range t.records {
		row := make(ParsedRow, len(fieldFor))
		for _, header := range t.headers {
			if key, ok := fieldFor[header]; ok {
				row[key] = record[header]
			}
		}
		rows = append(rows, row)
	}

	return &ParsedData{
		Headers:   t.headers,
		Rows:      rows,
		TotalRows: len(rows),
	}, nil
}

// GetExcelWorksheets lists the worksheets of a workbook with their data row
// counts. CSV files fail with ErrNotWorkbook.
func (p *Parser) GetExcelWorksheets(file File) ([]Worksheet, error) {
	format, err := DetectFormat(file.Name)
	if err != nil {
		return nil, err
	}
	if format == FormatCSV {
		return nil, ErrNotWorkbook
	}

	wb, err := openWorkbook(file, format)
	if err != nil {
		return nil, err
	}
	defer wb.Close()

	names := wb.SheetNames()
	if len(names) == 0 {
		return nil, ErrNoWorksheets
	}

	sheets := make([]Worksheet, 0, len(names))
	for _, name := range names {
		rows, err := wb.Rows(name)
		if err != nil {
			return nil, err
		}

		count := 0
		if len(rows) > 1 {
			for _, row := range rows[1:] {
				if !xlsxparser.IsRowBlank(row) {
					count++
				}
			}
		}
		sheets = append(sheets, Worksheet{Name: name, RowCount: count})
	}

	return sheets, nil
}

// =============================================================================
// TABLE READING
// =============================================================================

// table is a file reduced to its header row and non-blank data rows.
type table struct {
	headers []string
	records []map[string]any
}

func (p *Parser) readTable(file File, worksheet string) (*table, error) {
	format, err := DetectFormat(file.Name)
	if err != nil {
		return nil, err
	}
	if len(file.Data) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyFile, file.Name)
	}

	if format == FormatCSV {
		return p.readCSV(file)
	}

	wb, err := openWorkbook(file, format)
	if err != nil {
		return nil, err
	}
	defer wb.Close()

	sheet, err := xlsxparser.ResolveSheet(wb, worksheet)
	if err != nil {
		return nil, err
	}

	rows, err := wb.Rows(sheet)
	if err != nil {
		return nil, err
	}

	return tableFromRows(file.Name, sheet, rows)
}

func (p *Parser) readCSV(file File) (*table, error) {
	parsed, err := csvparser.Parse(file.Data, p.csv)
	if errors.Is(err, csvparser.ErrEmpty) {
		return nil, fmt.Errorf("%w: %s", ErrEmptyFile, file.Name)
	}
	if err != nil {
		return nil, err
	}

	records := make([]map[string]any, len(parsed.Rows))
	for i, row := range parsed.Rows {
		record := make(map[string]any, len(row))
		for header, value := range row {
			record[header] = value
		}
		records[i] = record
	}

	return &table{headers: parsed.Headers, records: records}, nil
}

func openWorkbook(file File, format Format) (xlsxparser.Workbook, error) {
	switch format {
	case FormatXLSX:
		return xlsxparser.OpenXLSX(file.Data)
	case FormatXLS:
		return xlsxparser.OpenXLS(file.Data)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
}

// tableFromRows treats rows[0] as the header row. A repeated header keeps
// its first column.
func tableFromRows(fileName, sheet string, rows [][]any) (*table, error) {
	if len(rows) == 0 || xlsxparser.IsRowBlank(rows[0]) {
		return nil, fmt.Errorf("%w: worksheet %q in %s has no header row", ErrEmptyFile, sheet, fileName)
	}

	var (
		columns []int
		headers []string
	)
	seen := make(map[string]bool)
	for i, cell := range rows[0] {
		header := xlsxparser.CellText(cell)
		if header == "" || seen[header] {
			continue
		}
		seen[header] = true
		columns = append(columns, i)
		headers = append(headers, header)
	}

	records := make([]map[string]any, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if xlsxparser.IsRowBlank(row) {
			continue
		}

		record := make(map[string]any, len(headers))
		for i, col := range columns {
			var value any
			if col < len(row) {
				value = row[col]
			}
			record[headers[i]] = value
		}
		records = append(records, record)
	}

	return &table{headers: headers, records: records}, nil
}
