package spreadsheet

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/ginjaninja78/sales-import/internal/config"
	"github.com/ginjaninja78/sales-import/internal/mapping"
)

func newParser() *Parser {
	return NewParser(config.Default().CSVSettings)
}

// workbook builds an .xlsx with the given sheets; a nil row is left empty.
func workbook(t *testing.T, names []string, sheets map[string][][]any) File {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	for i, name := range names {
		if i == 0 {
			require.NoError(t, f.SetSheetName("Sheet1", name))
		} else {
			_, err := f.NewSheet(name)
			require.NoError(t, err)
		}

		for r, row := range sheets[name] {
			if row == nil {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(1, r+1)
			require.NoError(t, err)
			require.NoError(t, f.SetSheetRow(name, cell, &row))
		}
	}

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return File{Name: "Sales_2024.xlsx", Data: buf.Bytes()}
}

func salesMappings() []mapping.ColumnMapping {
	return []mapping.ColumnMapping{
		{ExcelColumn: "Sale Date", FieldKey: "sale_date"},
		{ExcelColumn: "First", FieldKey: "first_name"},
		{ExcelColumn: "Amt", FieldKey: "amount"},
		{ExcelColumn: "Notes"},
	}
}

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		name    string
		want    Format
		wantErr bool
	}{
		{"a.csv", FormatCSV, false},
		{"A.CSV", FormatCSV, false},
		{"book.xlsx", FormatXLSX, false},
		{"book.xlsm", FormatXLSX, false},
		{"legacy.xls", FormatXLS, false},
		{"report.pdf", "", true},
		{"noext", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DetectFormat(tt.name)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnsupportedFormat)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseFileWithMappings_BlankRowExcluded(t *testing.T) {
	file := workbook(t, []string{"Sales"}, map[string][][]any{
		"Sales": {
			{"Sale Date", "First", "", "Amt", "Notes"},
			{45292, "Ann", "ignored", 100.5, "x"},
			{"", nil, "", "", ""},
			{"2024-01-03", "Bob", nil, "$1,234.56", nil},
		},
	})

	parsed, err := newParser().ParseFileWithMappings(file, salesMappings(), "")
	require.NoError(t, err)

	assert.Equal(t, []string{"Sale Date", "First", "Amt", "Notes"}, parsed.Headers)
	assert.Equal(t, 2, parsed.TotalRows)
	assert.Equal(t, []ParsedRow{
		{"sale_date": 45292.0, "first_name": "Ann", "amount": 100.5},
		{"sale_date": "2024-01-03", "first_name": "Bob", "amount": "$1,234.56"},
	}, parsed.Rows)
}

func TestParseFileWithMappings_NamedWorksheet(t *testing.T) {
	file := workbook(t, []string{"Summary", "Detail"}, map[string][][]any{
		"Summary": {{"Total"}, {3}},
		"Detail":  {{"Amt"}, {1}, {2}},
	})
	p := newParser()

	headers, err := p.ParseFileHeaders(file, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"Total"}, headers)

	parsed, err := p.ParseFileWithMappings(file, salesMappings(), "Detail")
	require.NoError(t, err)
	assert.Equal(t, 2, parsed.TotalRows)
	assert.Equal(t, ParsedRow{"amount": 1.0}, parsed.Rows[0])

	_, err = p.ParseFileHeaders(file, "Missing")
	assert.ErrorIs(t, err, ErrSheetNotFound)
}

func TestParseFileWithMappings_CSV(t *testing.T) {
	file := File{
		Name: "sales.csv",
		Data: []byte("Sale Date,First,Amt,Notes\n03/04/2024,Ann,\"$1,234.56\",hi\n,,,\n2024-01-03,Bob,,\n"),
	}

	parsed, err := newParser().ParseFileWithMappings(file, salesMappings(), "ignored")
	require.NoError(t, err)

	assert.Equal(t, 2, parsed.TotalRows)
	assert.Equal(t, ParsedRow{"sale_date": "03/04/2024", "first_name": "Ann", "amount": "$1,234.56"}, parsed.Rows[0])
	assert.Equal(t, ParsedRow{"sale_date": "2024-01-03", "first_name": "Bob", "amount": ""}, parsed.Rows[1])
}

func TestParseFileWithMappings_WhitespaceRowIsBlank(t *testing.T) {
	csvFile := File{
		Name: "sales.csv",
		Data: []byte("Sale Date,First,Amt,Notes\n2024-01-02,Ann,5,\n \t,  , ,\n2024-01-03,Bob,6,\n"),
	}
	parsed, err := newParser().ParseFileWithMappings(csvFile, salesMappings(), "")
	require.NoError(t, err)
	assert.Equal(t, 2, parsed.TotalRows)
	assert.Equal(t, "Bob", parsed.Rows[1]["first_name"])

	xlsx := workbook(t, []string{"Sales"}, map[string][][]any{
		"Sales": {
			{"Sale Date", "First", "Amt", "Notes"},
			{"2024-01-02", "Ann", 5, nil},
			{" ", "  ", nil, ""},
			{"2024-01-03", "Bob", 6, nil},
		},
	})
	parsed, err = newParser().ParseFileWithMappings(xlsx, salesMappings(), "")
	require.NoError(t, err)
	assert.Equal(t, 2, parsed.TotalRows)
	assert.Equal(t, "Bob", parsed.Rows[1]["first_name"])
}

func TestParseFileHeaders_Errors(t *testing.T) {
	p := newParser()

	_, err := p.ParseFileHeaders(File{Name: "x.txt", Data: []byte("a")}, "")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	_, err = p.ParseFileHeaders(File{Name: "x.csv"}, "")
	assert.ErrorIs(t, err, ErrEmptyFile)

	_, err = p.ParseFileHeaders(File{Name: "x.csv", Data: []byte("\n , \n")}, "")
	assert.ErrorIs(t, err, ErrEmptyFile)

	empty := workbook(t, []string{"Blank"}, map[string][][]any{"Blank": nil})
	_, err = p.ParseFileHeaders(empty, "")
	assert.ErrorIs(t, err, ErrEmptyFile)

	_, err = p.ParseFileHeaders(File{Name: "x.xlsx", Data: []byte("not a zip")}, "")
	assert.Error(t, err)
}

func TestGetExcelWorksheets(t *testing.T) {
	file := workbook(t, []string{"Sales", "Empty"}, map[string][][]any{
		"Sales": {{"Amt"}, {1}, nil, {2}, {""}},
		"Empty": nil,
	})

	sheets, err := newParser().GetExcelWorksheets(file)
	require.NoError(t, err)
	assert.Equal(t, []Worksheet{{Name: "Sales", RowCount: 2}, {Name: "Empty", RowCount: 0}}, sheets)

	_, err = newParser().GetExcelWorksheets(File{Name: "a.csv", Data: []byte("A\n1\n")})
	assert.ErrorIs(t, err, ErrNotWorkbook)
}

func TestReadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Sales 2024.csv")
	require.NoError(t, os.WriteFile(path, []byte("A\n1\n"), 0600))

	file, err := ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "Sales 2024.csv", file.Name)
	assert.Equal(t, []byte("A\n1\n"), file.Data)

	_, err = ReadFile(filepath.Join(t.TempDir(), "missing.csv"))
	assert.Error(t, err)
}
