package xlsxparser

import (
	"fmt"
	"os"
	"strings"

	"github.com/shakinm/xlsReader/xls"
)

// xlsWorkbook holds a legacy workbook read fully into memory.
type xlsWorkbook struct {
	names  []string
	sheets map[string][][]any
}

// OpenXLS reads legacy .xls content. The reader needs a file path, so the
// content is written to a temporary file for the duration of the read.
func OpenXLS(data []byte) (Workbook, error) {
	tmp, err := os.CreateTemp("", "salesimport-*.xls")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("failed to close temp file: %w", err)
	}

	workbook, err := xls.OpenFile(tmp.Name())
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}

	wb := &xlsWorkbook{sheets: make(map[string][][]any)}
	for i := 0; i < workbook.GetNumberSheets(); i++ {
		sheet, err := workbook.GetSheet(i)
		if err != nil || sheet == nil {
			continue
		}

		name := sheet.GetName()
		if _, dup := wb.sheets[name]; dup {
			continue
		}

		var rows [][]any
		for r := 0; r <= int(sheet.GetNumberRows()); r++ {
			row, err := sheet.GetRow(r)
			if err != nil || row == nil {
				rows = append(rows, nil)
				continue
			}

			var cells []any
			for _, col := range row.GetCols() {
				if col == nil {
					cells = append(cells, nil)
					continue
				}
				cells = append(cells, xlsValue(col.GetType(), col.GetString(), col.GetFloat64()))
			}
			rows = append(rows, cells)
		}

		wb.names = append(wb.names, name)
		wb.sheets[name] = trimTrailingBlankRows(rows)
	}

	return wb, nil
}

func (w *xlsWorkbook) SheetNames() []string {
	return w.names
}

func (w *xlsWorkbook) Rows(sheet string) ([][]any, error) {
	rows, ok := w.sheets[sheet]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrSheetNotFound, sheet)
	}
	return rows, nil
}

func (w *xlsWorkbook) Close() error {
	return nil
}

// xlsValue types a legacy cell from its record type name.
func xlsValue(recordType, text string, number float64) any {
	if strings.Contains(recordType, "Number") || strings.Contains(recordType, "Rk") {
		return number
	}
	if text == "" {
		return nil
	}
	return text
}

func trimTrailingBlankRows(rows [][]any) [][]any {
	end := len(rows)
	for end > 0 && IsRowBlank(rows[end-1]) {
		end--
	}
	return rows[:end]
}
