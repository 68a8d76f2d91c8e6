// =============================================================================
// Sales Import - Main Entry Point
// =============================================================================
//
// salesimport maps the columns of sales spreadsheets (CSV, XLSX, XLS) to the
// agency's sale fields, validates every row and exports the valid ones.
//
// USAGE:
//   salesimport import FILE     - Import a spreadsheet
//   salesimport headers FILE    - Show the proposed column mapping
//   salesimport sheets FILE     - List the worksheets of a workbook
//   salesimport fields          - List the target fields
//   salesimport memory ...      - Inspect or clear remembered mappings
//   salesimport version         - Display the application version
//
// ARCHITECTURE:
//   - cmd/           : CLI command definitions (Cobra)
//   - internal/      : Parsing, matching, validation and export
//   - pkg/           : File helpers shared by commands
//   - configs/       : Example configuration
//
// =============================================================================

package main

import (
	"github.com/ginjaninja78/sales-import/cmd"
)

func main() {
	cmd.Execute()
}
