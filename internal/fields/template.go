// =============================================================================
// Sales Import - XLSX Field Template Loader
// =============================================================================
//
// Field definitions can be maintained in a spreadsheet instead of code. The
// template is a single worksheet with one definition per row:
//
//   | Column A  | Column B   | Column C | Column D | Column E                  |
//   |-----------|------------|----------|----------|---------------------------|
//   | Key       | Label      | Type     | Required | Aliases (";" separated)   |
//   | sale_date | Sale Date  | date     | yes      | sale date; date; sold on  |
//   | amount    | Amount     | number   | yes      | amount; amt; total        |
//   | notes     | Notes      | string   | no       | notes; comments           |
//
// Column positions are configurable via TemplateColumns.
//
// =============================================================================

package fields

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// TemplateColumns defines which template columns hold which attribute.
// Column indices are 0-based (A=0, B=1, ...).
type TemplateColumns struct {
	KeyColumn      int
	LabelColumn    int
	TypeColumn     int
	RequiredColumn int
	AliasesColumn  int

	// DataStartRow is the 0-based row where definitions begin.
	DataStartRow int
}

// DefaultTemplateColumns returns the layout shown in the file header.
func DefaultTemplateColumns() TemplateColumns {
	return TemplateColumns{
		KeyColumn:      0, // Column A
		LabelColumn:    1, // Column B
		TypeColumn:     2, // Column C
		RequiredColumn: 3, // Column D
		AliasesColumn:  4, // Column E
		DataStartRow:   1, // Row 2
	}
}

// LoadTemplate reads field definitions from an XLSX template using the
// default column layout.
func LoadTemplate(templatePath string) ([]Definition, error) {
	return LoadTemplateWithColumns(templatePath, DefaultTemplateColumns())
}

// LoadTemplateWithColumns reads field definitions from the first worksheet
// of an XLSX template.
//
// Blank rows and rows without a key are skipped. The returned definitions are
// not yet validated; pass them to NewRegistry.
func LoadTemplateWithColumns(templatePath string, columns TemplateColumns) ([]Definition, error) {
	f, err := excelize.OpenFile(templatePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open template file: %w", err)
	}
	defer f.Close()

	sheetName := f.GetSheetName(0)
	if sheetName == "" {
		return nil, fmt.Errorf("template file has no sheets")
	}

	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to read rows: %w", err)
	}

	var defs []Definition
	for i := columns.DataStartRow; i < len(rows); i++ {
		row := rows[i]
		if isRowEmpty(row) {
			continue
		}

		def, err := parseTemplateRow(row, columns)
		if err != nil {
			return nil, fmt.Errorf("error parsing row %d: %w", i+1, err)
		}
		if def.Key == "" {
			continue
		}
		defs = append(defs, def)
	}

	return defs, nil
}

// parseTemplateRow extracts one Definition from a template row.
func parseTemplateRow(row []string, columns TemplateColumns) (Definition, error) {
	getCell := func(index int) string {
		if index >= 0 && index < len(row) {
			return strings.TrimSpace(row[index])
		}
		return ""
	}

	t, err := ParseType(getCell(columns.TypeColumn))
	if err != nil {
		return Definition{}, err
	}

	def := Definition{
		Key:      getCell(columns.KeyColumn),
		Label:    getCell(columns.LabelColumn),
		Type:     t,
		Required: parseRequired(getCell(columns.RequiredColumn)),
	}

	for _, alias := range strings.Split(getCell(columns.AliasesColumn), ";") {
		if alias = strings.TrimSpace(alias); alias != "" {
			def.Aliases = append(def.Aliases, alias)
		}
	}

	return def, nil
}

// parseRequired accepts the usual spreadsheet spellings of yes/no.
func parseRequired(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "required", "req", "r", "yes", "y", "true", "1", "mandatory":
		return true
	default:
		return false
	}
}

func isRowEmpty(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
