// =============================================================================
// Sales Import - Inspection Commands
// =============================================================================
//
// Commands that read a file without importing it.
//
// COMMAND USAGE:
//   salesimport sheets FILE                 # worksheets and data row counts
//   salesimport headers FILE [--sheet S]    # proposed column mapping
//
// =============================================================================

package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/sales-import/internal/importer"
	"github.com/ginjaninja78/sales-import/internal/mapping"
	"github.com/ginjaninja78/sales-import/internal/spreadsheet"
)

var sheetsCmd = &cobra.Command{
	Use:   "sheets FILE",
	Short: "List the worksheets of a workbook",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		file, err := spreadsheet.ReadFile(args[0])
		if err != nil {
			return err
		}

		sheets, err := spreadsheet.NewParser(cfg.CSVSettings).GetExcelWorksheets(file)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, titleStyle.Render(file.Name))

		t := newTable(out, "Worksheet", "Rows")
		for _, sheet := range sheets {
			t.row(sheet.Name, strconv.Itoa(sheet.RowCount))
		}
		return t.flush()
	},
}

// headersSheet is the --sheet flag of the headers command.
var headersSheet string

var headersCmd = &cobra.Command{
	Use:   "headers FILE",
	Short: "Show the proposed column mapping for a file",
	Long: `Reads the header row of FILE and shows the field each column would be
mapped to, with its confidence and where the choice came from. Columns left
unmapped are listed with the closest fields.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		file, err := spreadsheet.ReadFile(args[0])
		if err != nil {
			return err
		}

		im, _, closeStore, err := newImporter(cmd.Context())
		if err != nil {
			return err
		}
		defer closeStore()

		proposal, err := im.Propose(cmd.Context(), file, headersSheet)
		if err != nil {
			return err
		}

		return printProposal(cmd, im, proposal, proposal.Mappings)
	},
}

func init() {
	headersCmd.Flags().StringVar(&headersSheet, "sheet", "", "worksheet name (default: first worksheet)")

	rootCmd.AddCommand(sheetsCmd)
	rootCmd.AddCommand(headersCmd)
}

// printProposal shows mappings (the proposal's, or the user's edit of them)
// with suggestions and missing required fields.
func printProposal(cmd *cobra.Command, im *importer.Importer, proposal *importer.Proposal, mappings []mapping.ColumnMapping) error {
	out := cmd.OutOrStdout()
	missingCore, missingBatch := im.MissingRequired(mappings)

	title := proposal.FileName
	if proposal.Worksheet != "" {
		title += " [" + proposal.Worksheet + "]"
	}
	fmt.Fprintln(out, titleStyle.Render(title))
	if proposal.Pattern != "" {
		note := "pattern: " + proposal.Pattern
		if proposal.Remembered {
			note += " (remembered)"
		}
		fmt.Fprintln(out, subtleStyle.Render(note))
	}

	t := newTable(out, "Column", "Field", "Confidence", "Source")
	for _, m := range mappings {
		if !m.Mapped() {
			t.row(m.ExcelColumn, "-", "-", subtleStyle.Render("unmapped"))
			continue
		}
		t.row(m.ExcelColumn, m.FieldKey, fmt.Sprintf("%.0f%%", m.Confidence*100), source(m, proposal))
	}
	if err := t.flush(); err != nil {
		return err
	}

	unmapped := mapping.Unmapped(mappings)
	if len(unmapped) > 0 {
		fmt.Fprintln(out)
		for _, header := range unmapped {
			if s := proposal.Suggestions[header]; len(s) > 0 {
				fmt.Fprintf(out, "%s %s: did you mean %s?\n", warningIcon, header, strings.Join(s, ", "))
			}
		}
	}

	if len(missingCore) > 0 {
		fmt.Fprintln(out, errorStyle.Render(fmt.Sprintf("%s no column for required fields: %s",
			errorIcon, strings.Join(missingCore, ", "))))
	}
	if len(missingBatch) > 0 {
		fmt.Fprintln(out, warningStyle.Render(fmt.Sprintf("%s no column for batch fields: %s",
			warningIcon, strings.Join(missingBatch, ", "))))
	}

	return nil
}

func source(m mapping.ColumnMapping, proposal *importer.Proposal) string {
	switch {
	case !m.Suggested:
		return "manual"
	case proposal.FromMemory[m.ExcelColumn]:
		return "memory"
	default:
		return "match"
	}
}
