// =============================================================================
// Sales Import - File Manager Utility
// =============================================================================
//
// This module provides file utilities for the import tool, including:
//   - Output file naming
//   - Archival of imported files
//   - Error log generation (CSV)
//   - Import summary generation
//
// ARCHIVAL STRATEGY:
//   - Imported files are moved to the archive directory only when asked
//   - An existing archive file is never overwritten; the new one gets a
//     timestamp suffix
//   - Error logs and summaries are created in the output directory
//
// =============================================================================

package utils

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/google/uuid"

	"github.com/ginjaninja78/sales-import/internal/validation"
)

const timestampLayout = "20060102_150405"

// =============================================================================
// FILE MANAGER
// =============================================================================

// FileManager handles archival of imported files.
type FileManager struct {
	// ArchiveDir receives imported files.
	ArchiveDir string

	// UseTimestampSubdirs creates date-based subdirectories in the archive.
	// Example: archive/2024/01/15/sales.xlsx
	UseTimestampSubdirs bool

	// now is replaced in tests.
	now func() time.Time
}

// NewFileManager creates a FileManager for archiveDir.
func NewFileManager(archiveDir string) *FileManager {
	return &FileManager{ArchiveDir: archiveDir, now: time.Now}
}

// =============================================================================
// FILE ARCHIVAL
// =============================================================================

// ArchiveInputFile moves an imported file to the archive directory.
//
// PARAMETERS:
//   - filePath: The path to the file to archive.
//
// RETURNS:
//   - The path to the archived file.
//   - An error if archival fails. The original is left in place.
func (fm *FileManager) ArchiveInputFile(filePath string) (string, error) {
	archivePath := fm.getArchivePath(filePath)

	if err := os.MkdirAll(filepath.Dir(archivePath), 0o755); err != nil {
		return "", fmt.Errorf("failed to create archive directory: %w", err)
	}

	if err := os.Rename(filePath, archivePath); err != nil {
		// Rename fails across devices; copy and delete instead.
		if err := copyFile(filePath, archivePath); err != nil {
			return "", fmt.Errorf("failed to copy file to archive: %w", err)
		}
		if err := os.Remove(filePath); err != nil {
			return "", fmt.Errorf("failed to remove original file: %w", err)
		}
	}

	return archivePath, nil
}

// getArchivePath constructs the archive path for a file.
func (fm *FileManager) getArchivePath(filePath string) string {
	now := fm.now()
	fileName := filepath.Base(filePath)

	dir := fm.ArchiveDir
	if fm.UseTimestampSubdirs {
		dir = filepath.Join(dir,
			fmt.Sprintf("%d", now.Year()),
			fmt.Sprintf("%02d", now.Month()),
			fmt.Sprintf("%02d", now.Day()),
		)
	}

	path := filepath.Join(dir, fileName)
	if FileExists(path) {
		ext := filepath.Ext(fileName)
		path = filepath.Join(dir, fmt.Sprintf("%s_%s%s", strings.TrimSuffix(fileName, ext), now.Format(timestampLayout), ext))
	}
	return path
}

// =============================================================================
// OUTPUT FILE NAMING
// =============================================================================

// GenerateOutputFileName generates a unique output file name.
//
// PARAMETERS:
//   - format: The format string for the file name.
//     Placeholders:
//     {uuid}      - A random UUID, unless params supplies one
//     {timestamp} - Current timestamp (YYYYMMDD_HHMMSS)
//     {date}      - Current date (YYYYMMDD)
//     {time}      - Current time (HHMMSS)
//     {pattern}   - Mapping memory pattern of the input file
//     {original}  - Original file name (without extension)
//   - params: Placeholder values, keyed without braces.
//
// RETURNS:
//   - The generated file name, without extension. Path separators in values
//     are replaced with underscores.
//
// EXAMPLE:
//
//	format: "{pattern}_{timestamp}_{uuid}"
//	params: {"pattern": "march_sales"}
//	output: "march_sales_20240115_143022_a1b2c3d4-e5f6-7890-abcd-ef1234567890"
func GenerateOutputFileName(format string, params map[string]string) string {
	now := time.Now()

	replacements := map[string]string{
		"{uuid}":      uuid.New().String(),
		"{timestamp}": now.Format(timestampLayout),
		"{date}":      now.Format("20060102"),
		"{time}":      now.Format("150405"),
	}
	for key, value := range params {
		replacements["{"+key+"}"] = value
	}

	pairs := make([]string, 0, len(replacements)*2)
	for placeholder, value := range replacements {
		pairs = append(pairs, placeholder, sanitize(value))
	}
	result := strings.NewReplacer(pairs...).Replace(format)

	// Placeholders with no value, such as {pattern} for an all-digit name.
	for strings.Contains(result, "__") {
		result = strings.ReplaceAll(result, "__", "_")
	}
	result = strings.Trim(result, "_")
	if result == "" {
		result = replacements["{uuid}"]
	}
	return result
}

func sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', 0:
			return '_'
		}
		return r
	}, s)
}

// =============================================================================
// ERROR LOG GENERATION
// =============================================================================

// WriteErrorLog writes row errors to a CSV file (row, field, value, message).
//
// PARAMETERS:
//   - errs: The row errors to write.
//   - outputDir: The directory to write the log file.
//
// RETURNS:
//   - The path to the error log file, or "" when errs is empty.
//   - An error if writing fails.
func WriteErrorLog(errs []validation.ParseError, outputDir string) (string, error) {
	if len(errs) == 0 {
		return "", nil
	}

	logPath := filepath.Join(outputDir, fmt.Sprintf("error_log_%s.csv", time.Now().Format(timestampLayout)))

	file, err := os.Create(logPath)
	if err != nil {
		return "", fmt.Errorf("failed to create error log: %w", err)
	}
	defer file.Close()

	if err := gocsv.MarshalFile(&errs, file); err != nil {
		return "", fmt.Errorf("failed to write error log: %w", err)
	}

	return logPath, nil
}

// =============================================================================
// IMPORT SUMMARY
// =============================================================================

// ImportSummary contains summary information about one import.
type ImportSummary struct {
	ImportID  string
	InputFile string
	Worksheet string
	BatchMode bool
	DryRun    bool
	StartTime time.Time
	EndTime   time.Time

	TotalRows   int
	ValidRows   int
	InvalidRows int

	// TotalAmount and the per-group amounts are preformatted.
	TotalAmount string
	ByVendor    []AmountLine
	ByStatus    []AmountLine

	OutputFile  string
	ErrorLog    string
	ArchivePath string
}

// AmountLine is one group of an amount breakdown.
type AmountLine struct {
	Name   string
	Amount string
}

// WriteSummaryLog writes an import summary to a text file.
//
// PARAMETERS:
//   - summary: The import summary.
//   - outputDir: The directory to write the summary file.
//
// RETURNS:
//   - The path to the summary file.
//   - An error if writing fails.
func WriteSummaryLog(summary ImportSummary, outputDir string) (string, error) {
	summaryPath := filepath.Join(outputDir, fmt.Sprintf("import_summary_%s.txt", summary.EndTime.Format(timestampLayout)))

	file, err := os.Create(summaryPath)
	if err != nil {
		return "", fmt.Errorf("failed to create summary file: %w", err)
	}
	defer file.Close()

	writer := bufio.NewWriter(file)
	writeSummary(writer, summary)

	if err := writer.Flush(); err != nil {
		return "", fmt.Errorf("failed to flush summary file: %w", err)
	}

	return summaryPath, nil
}

func writeSummary(w io.Writer, summary ImportSummary) {
	mode := "single"
	if summary.BatchMode {
		mode = "batch"
	}

	fmt.Fprintf(w, "Sales Import - Import Summary\n"+
		"================================================================================\n\n"+
		"Run Information:\n"+
		"  Import ID:      %s\n"+
		"  Input File:     %s\n",
		summary.ImportID, summary.InputFile)
	if summary.Worksheet != "" {
		fmt.Fprintf(w, "  Worksheet:      %s\n", summary.Worksheet)
	}
	fmt.Fprintf(w, "  Mode:           %s\n"+
		"  Dry Run:        %t\n"+
		"  Start Time:     %s\n"+
		"  End Time:       %s\n"+
		"  Duration:       %s\n\n"+
		"Statistics:\n"+
		"  Total Rows:     %d\n"+
		"  Valid Rows:     %d\n"+
		"  Invalid Rows:   %d\n"+
		"  Total Amount:   %s\n\n",
		mode,
		summary.DryRun,
		summary.StartTime.Format("2006-01-02 15:04:05"),
		summary.EndTime.Format("2006-01-02 15:04:05"),
		summary.EndTime.Sub(summary.StartTime).String(),
		summary.TotalRows,
		summary.ValidRows,
		summary.InvalidRows,
		summary.TotalAmount)

	writeAmounts(w, "Amount by Vendor", summary.ByVendor)
	writeAmounts(w, "Amount by Status", summary.ByStatus)

	fmt.Fprintf(w, "Files:\n")
	for _, file := range [][2]string{
		{"Output:", summary.OutputFile},
		{"Error Log:", summary.ErrorLog},
		{"Archive:", summary.ArchivePath},
	} {
		if file[1] != "" {
			fmt.Fprintf(w, "  %-15s %s\n", file[0], file[1])
		}
	}

	fmt.Fprintf(w, "\n================================================================================\n"+
		"End of Summary\n")
}

func writeAmounts(w io.Writer, title string, lines []AmountLine) {
	if len(lines) == 0 {
		return
	}
	fmt.Fprintf(w, "%s:\n", title)
	fmt.Fprintf(w, "--------------------------------------------------------------------------------\n")
	for _, line := range lines {
		name := line.Name
		if name == "" {
			name = "(none)"
		}
		fmt.Fprintf(w, "  %-30s %s\n", name, line.Amount)
	}
	fmt.Fprintln(w)
}

// =============================================================================
// UTILITY FUNCTIONS
// =============================================================================

// copyFile copies a file from src to dst.
func copyFile(src, dst string) error {
	sourceFile, err := os.Open(src)
	if err != nil {
		return err
	}
	defer sourceFile.Close()

	destFile, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer destFile.Close()

	if _, err := io.Copy(destFile, sourceFile); err != nil {
		return err
	}

	return destFile.Sync()
}

// FileExists checks if a file exists.
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return !os.IsNotExist(err)
}
