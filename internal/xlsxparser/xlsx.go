package xlsxparser

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/xuri/excelize/v2"
)

type xlsxWorkbook struct {
	f *excelize.File
}

// OpenXLSX opens .xlsx content.
func OpenXLSX(data []byte) (Workbook, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	return &xlsxWorkbook{f: f}, nil
}

func (w *xlsxWorkbook) SheetNames() []string {
	return w.f.GetSheetList()
}

func (w *xlsxWorkbook) Close() error {
	return w.f.Close()
}

// Rows reads raw cell values and types them by the stored cell type. Shared
// and inline strings stay strings even when they look numeric ("00123").
func (w *xlsxWorkbook) Rows(sheet string) ([][]any, error) {
	raw, err := w.f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("failed to read worksheet %q: %w", sheet, err)
	}

	rows := make([][]any, len(raw))
	for r, cells := range raw {
		row := make([]any, len(cells))
		for c, value := range cells {
			if value == "" {
				continue
			}

			cell, err := excelize.CoordinatesToCellName(c+1, r+1)
			if err != nil {
				return nil, err
			}
			cellType, err := w.f.GetCellType(sheet, cell)
			if err != nil {
				return nil, fmt.Errorf("failed to read cell %s: %w", cell, err)
			}

			row[c] = typedValue(cellType, value)
		}
		rows[r] = row
	}

	return rows, nil
}

func typedValue(cellType excelize.CellType, value string) any {
	switch cellType {
	case excelize.CellTypeUnset, excelize.CellTypeNumber:
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	case excelize.CellTypeBool:
		return value == "1" || value == "TRUE" || value == "true"
	}
	return value
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
