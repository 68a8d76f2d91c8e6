// =============================================================================
// Sales Import - Import Command
// =============================================================================
//
// This file defines the 'import' command, which maps, validates and exports
// the rows of one sales spreadsheet.
//
// COMMAND USAGE:
//   salesimport import FILE [flags]
//
// FLAGS:
//   --sheet        : Worksheet to import (default: first worksheet)
//   --batch        : Batch import; address, city and vendor become required
//   --map          : Column=field override, repeatable ("Column=-" unmaps)
//   --remember     : Store the confirmed mapping for files with this pattern
//   --date-format  : auto, US, ISO or EU
//   --format       : Export format: json, xml or csv
//   --dry-run      : Validate and report without writing any file
//   --archive      : Move FILE to the archive directory after importing
//
// IMPORT PIPELINE:
//   1. Read the file and propose a mapping for each header
//   2. Apply --map overrides and show the result
//   3. Parse, transform and validate every row
//   4. Remember the mapping if asked
//   5. Export valid rows, write the error log and the summary
//   6. Archive the input file
//
// =============================================================================

package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/ginjaninja78/sales-import/internal/export"
	"github.com/ginjaninja78/sales-import/internal/fields"
	"github.com/ginjaninja78/sales-import/internal/importer"
	"github.com/ginjaninja78/sales-import/internal/mapping"
	"github.com/ginjaninja78/sales-import/internal/spreadsheet"
	"github.com/ginjaninja78/sales-import/internal/validation"
	"github.com/ginjaninja78/sales-import/pkg/utils"
)

// maxErrorsShown caps the row errors printed to the terminal. The error log
// always holds all of them.
const maxErrorsShown = 10

// =============================================================================
// COMMAND FLAGS
// =============================================================================

// importSheet is the worksheet to import.
var importSheet string

// batchMode makes the batch-only fields required.
var batchMode bool

// mapOverrides are raw "Column=field" values.
var mapOverrides []string

// remember stores the confirmed mapping in mapping memory.
var remember bool

// dateFormat overrides the configured date format.
var dateFormat string

// exportFormat overrides the configured export format.
var exportFormat string

// dryRun validates without writing output files or memory.
var dryRun bool

// archiveInput moves the input file to the archive directory.
var archiveInput bool

// =============================================================================
// IMPORT COMMAND DEFINITION
// =============================================================================

var importCmd = &cobra.Command{
	Use:   "import FILE",
	Short: "Import a sales spreadsheet",
	Long: `Maps the columns of FILE (CSV, XLSX or XLS) to sales fields, validates
every row and exports the valid ones.

Columns are matched by name. Mappings confirmed with --remember are reused
for later files whose names share the same pattern, so "March_Sales_2024.xlsx"
and "April_Sales_2024.xlsx" both use what was stored for "sales".

Rows that fail validation are reported and written to an error log in the
output directory. They never stop the import.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runImport(cmd, args[0])
	},
}

// =============================================================================
// INITIALIZATION
// =============================================================================

func init() {
	rootCmd.AddCommand(importCmd)

	flags := importCmd.Flags()
	flags.StringVar(&importSheet, "sheet", "", "worksheet name (default: first worksheet)")
	flags.BoolVar(&batchMode, "batch", false, "batch import: address, city and vendor are required")
	flags.StringArrayVar(&mapOverrides, "map", nil, `override a mapping, "Column=field" ("Column=-" leaves it unmapped)`)
	flags.BoolVar(&remember, "remember", false, "remember the mapping for files with the same name pattern")
	flags.StringVar(&dateFormat, "date-format", "", "date format: auto, US, ISO or EU (default from config)")
	flags.StringVar(&exportFormat, "format", "", "export format: json, xml or csv (default from config)")
	flags.BoolVar(&dryRun, "dry-run", false, "validate and report without writing any file")
	flags.BoolVar(&archiveInput, "archive", false, "move the file to the archive directory after importing")
}

// =============================================================================
// MAIN IMPORT FUNCTION
// =============================================================================

func runImport(cmd *cobra.Command, path string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	if dateFormat != "" {
		cfg.DateFormat = dateFormat
	}

	format, err := export.ParseFormat(cfg.Output.Format)
	if exportFormat != "" {
		format, err = export.ParseFormat(exportFormat)
	}
	if err != nil {
		return err
	}

	// =========================================================================
	// STEP 1: Read and propose
	// =========================================================================

	file, err := spreadsheet.ReadFile(path)
	if err != nil {
		return err
	}

	im, registry, closeStore, err := newImporter(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	proposal, err := im.Propose(ctx, file, importSheet)
	if err != nil {
		return err
	}

	// =========================================================================
	// STEP 2: Apply overrides
	// =========================================================================

	mappings, err := applyMapFlags(proposal.Mappings, registry.Definitions())
	if err != nil {
		return err
	}

	if err := printProposal(cmd, im, proposal, mappings); err != nil {
		return err
	}
	fmt.Fprintln(out)

	// =========================================================================
	// STEP 3: Parse, transform and validate
	// =========================================================================

	var bar *progressbar.ProgressBar
	progress := func(done, total int) {
		if bar == nil {
			bar = newProgressBar(total)
		}
		if err := bar.Add(1); err != nil {
			logger.Warn("failed to update progress bar", "error", err)
		}
	}

	result, err := im.Run(ctx, file, importer.Request{
		Worksheet: importSheet,
		Mappings:  mappings,
		BatchMode: batchMode,
		Remember:  remember && !dryRun,
		Progress:  progress,
	})
	if bar != nil {
		_ = bar.Finish()
	}
	if err != nil {
		return err
	}

	summary := utils.ImportSummary{
		ImportID:    result.ID,
		InputFile:   path,
		Worksheet:   result.Worksheet,
		BatchMode:   result.BatchMode,
		DryRun:      dryRun,
		StartTime:   result.Started,
		EndTime:     result.Finished,
		TotalRows:   result.Summary.TotalRows,
		ValidRows:   result.Summary.ValidCount,
		InvalidRows: result.Summary.InvalidCount,
		TotalAmount: result.Totals.Amount.StringFixed(2),
		ByVendor:    amountLines(result.Totals.ByVendor),
		ByStatus:    amountLines(result.Totals.ByStatus),
	}

	// =========================================================================
	// STEP 4: Write output files
	// =========================================================================

	if !dryRun {
		if err := writeOutputs(result, registry.Definitions(), format, &summary); err != nil {
			return err
		}
	}

	// =========================================================================
	// STEP 5: Archive
	// =========================================================================

	if archiveInput && !dryRun {
		archived, err := utils.NewFileManager(cfg.ArchiveDir).ArchiveInputFile(path)
		if err != nil {
			return err
		}
		summary.ArchivePath = archived
		logger.Info("archived input file", "file", path, "archive", archived)
	}

	// =========================================================================
	// STEP 6: Summary
	// =========================================================================

	if !dryRun {
		summaryPath, err := utils.WriteSummaryLog(summary, cfg.OutputDir)
		if err != nil {
			logger.Warn("failed to write import summary", "error", err)
		} else {
			logger.Debug("wrote import summary", "path", summaryPath)
		}
	}

	printRowErrors(result.Summary.Errors, summary.ErrorLog)
	printSummary(cmd, result, summary)
	return nil
}

// applyMapFlags applies the --map values to mappings.
func applyMapFlags(mappings []mapping.ColumnMapping, defs []fields.Definition) ([]mapping.ColumnMapping, error) {
	if len(mapOverrides) == 0 {
		return mappings, nil
	}

	overrides := make(map[string]string, len(mapOverrides))
	for _, raw := range mapOverrides {
		column, key, err := mapping.ParseOverride(raw)
		if err != nil {
			return nil, err
		}
		overrides[column] = key
	}
	return mapping.ApplyOverrides(mappings, overrides, defs)
}

// writeOutputs exports the valid rows and writes the error log, recording
// the paths in summary.
func writeOutputs(result *importer.Result, defs []fields.Definition, format export.Format, summary *utils.ImportSummary) error {
	if err := cfg.EnsureDirs(); err != nil {
		return err
	}

	name := utils.GenerateOutputFileName(cfg.Output.FileNameFormat, map[string]string{
		"uuid":     result.ID,
		"pattern":  result.Pattern,
		"original": strings.TrimSuffix(result.FileName, filepath.Ext(result.FileName)),
	}) + format.Extension()
	outputPath := filepath.Join(cfg.OutputDir, name)

	f, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create export file: %w", err)
	}
	if err := export.Write(f, result.Summary.Valid, defs, format); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to export rows: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close export file: %w", err)
	}
	summary.OutputFile = outputPath
	logger.Info("exported valid rows", "path", outputPath, "rows", len(result.Summary.Valid), "format", string(format))

	if len(result.Summary.Errors) > 0 {
		logPath, err := utils.WriteErrorLog(result.Summary.Errors, cfg.OutputDir)
		if err != nil {
			return err
		}
		summary.ErrorLog = logPath
	}

	return nil
}

// =============================================================================
// OUTPUT HELPERS
// =============================================================================

func newProgressBar(total int) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription("[cyan][bold]Validating rows...[reset]"),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprintln(os.Stderr)
		}),
	)
}

func amountLines(totals map[string]decimal.Decimal) []utils.AmountLine {
	keys := importer.SortedKeys(totals)
	lines := make([]utils.AmountLine, 0, len(keys))
	for _, key := range keys {
		lines = append(lines, utils.AmountLine{Name: key, Amount: totals[key].StringFixed(2)})
	}
	return lines
}

func printRowErrors(errs []validation.ParseError, logPath string) {
	if len(errs) == 0 {
		return
	}

	fmt.Fprintln(os.Stderr, errorStyle.Render(strings.TrimRight(validation.FormatErrors(errs, maxErrorsShown), "\n")))
	if logPath != "" {
		fail("all row errors written to %s", logPath)
	}
}

func printSummary(cmd *cobra.Command, result *importer.Result, summary utils.ImportSummary) {
	var b strings.Builder

	heading := successStyle.Render(successIcon + " Import complete")
	if result.Summary.InvalidCount > 0 {
		heading = warningStyle.Render(warningIcon + " Import complete with row errors")
	}
	if dryRun {
		heading += subtleStyle.Render(" (dry run)")
	}
	b.WriteString(heading + "\n\n")

	mode := "single"
	if result.BatchMode {
		mode = "batch"
	}
	fmt.Fprintf(&b, "Mode:     %s\n", mode)
	fmt.Fprintf(&b, "Rows:     %d\n", result.Summary.TotalRows)
	fmt.Fprintf(&b, "Valid:    %s\n", successStyle.Render(strconv.Itoa(result.Summary.ValidCount)))
	fmt.Fprintf(&b, "Invalid:  %s\n", errorStyle.Render(strconv.Itoa(result.Summary.InvalidCount)))
	fmt.Fprintf(&b, "Amount:   %s\n", summary.TotalAmount)
	fmt.Fprintf(&b, "Duration: %s", result.Finished.Sub(result.Started).Round(time.Millisecond))

	if len(summary.ByVendor) > 0 {
		b.WriteString("\n\n" + headerStyle.Render("By vendor"))
		for _, line := range summary.ByVendor {
			fmt.Fprintf(&b, "\n  %-20s %12s", displayName(line.Name), line.Amount)
		}
	}

	if result.Remembered {
		b.WriteString("\n\n" + subtleStyle.Render("mapping remembered for "+result.Pattern))
	}
	if summary.OutputFile != "" {
		b.WriteString("\n" + subtleStyle.Render("output: "+summary.OutputFile))
	}
	if summary.ArchivePath != "" {
		b.WriteString("\n" + subtleStyle.Render("archived: "+summary.ArchivePath))
	}

	fmt.Fprintln(cmd.OutOrStdout(), boxStyle.Render(b.String()))
}

func displayName(name string) string {
	if name == "" {
		return "(none)"
	}
	return name
}
