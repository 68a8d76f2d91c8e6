package utils

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/sales-import/internal/validation"
)

func TestGenerateOutputFileName(t *testing.T) {
	name := GenerateOutputFileName("{pattern}_{timestamp}_{uuid}", map[string]string{"pattern": "march_sales"})
	assert.Regexp(t, regexp.MustCompile(`^march_sales_\d{8}_\d{6}_[0-9a-f-]{36}$`), name)

	name = GenerateOutputFileName("{original}-{date}", map[string]string{"original": "a/b:c"})
	assert.Regexp(t, regexp.MustCompile(`^a_b_c-\d{8}$`), name)

	name = GenerateOutputFileName("{pattern}_{uuid}", map[string]string{"pattern": "", "uuid": "fixed"})
	assert.Equal(t, "fixed", name)

	name = GenerateOutputFileName("{pattern}", nil)
	assert.Equal(t, "{pattern}", name)

	name = GenerateOutputFileName("{pattern}", map[string]string{"pattern": ""})
	assert.Len(t, name, 36)
}

func TestArchiveInputFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "sales.csv")
	require.NoError(t, os.WriteFile(src, []byte("a,b\n"), 0o644))

	fm := NewFileManager(filepath.Join(dir, "archive"))
	fm.now = func() time.Time { return time.Date(2024, 1, 15, 14, 30, 22, 0, time.UTC) }

	archived, err := fm.ArchiveInputFile(src)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "archive", "sales.csv"), archived)
	assert.False(t, FileExists(src))
	assert.True(t, FileExists(archived))

	// A second file with the same name does not overwrite the first.
	require.NoError(t, os.WriteFile(src, []byte("c,d\n"), 0o644))
	second, err := fm.ArchiveInputFile(src)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "archive", "sales_20240115_143022.csv"), second)

	data, err := os.ReadFile(archived)
	require.NoError(t, err)
	assert.Equal(t, "a,b\n", string(data))
}

func TestArchiveInputFile_TimestampSubdirs(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "sales.xlsx")
	require.NoError(t, os.WriteFile(src, []byte("x"), 0o644))

	fm := NewFileManager(filepath.Join(dir, "archive"))
	fm.UseTimestampSubdirs = true
	fm.now = func() time.Time { return time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC) }

	archived, err := fm.ArchiveInputFile(src)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "archive", "2024", "03", "05", "sales.xlsx"), archived)
}

func TestArchiveInputFile_Missing(t *testing.T) {
	fm := NewFileManager(t.TempDir())
	_, err := fm.ArchiveInputFile(filepath.Join(t.TempDir(), "nope.csv"))
	assert.Error(t, err)
}

func TestWriteErrorLog(t *testing.T) {
	dir := t.TempDir()

	path, err := WriteErrorLog(nil, dir)
	require.NoError(t, err)
	assert.Empty(t, path)

	errs := []validation.ParseError{
		{Row: 3, Field: "vendor", Message: "vendor is required"},
		{Row: 4, Field: "amount", Value: "1,2", Message: "Amount must be a number"},
	}
	path, err = WriteErrorLog(errs, dir)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(path, ".csv"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "row,field,value,message\n"))

	var decoded []validation.ParseError
	require.NoError(t, gocsv.UnmarshalBytes(data, &decoded))
	assert.Equal(t, errs, decoded)
}

func TestWriteErrorLog_BadDir(t *testing.T) {
	_, err := WriteErrorLog([]validation.ParseError{{Row: 2}}, filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}

func TestWriteSummaryLog(t *testing.T) {
	dir := t.TempDir()
	start := time.Date(2024, 1, 15, 14, 30, 0, 0, time.UTC)

	path, err := WriteSummaryLog(ImportSummary{
		ImportID:    "abc",
		InputFile:   "sales.xlsx",
		Worksheet:   "March",
		BatchMode:   true,
		StartTime:   start,
		EndTime:     start.Add(2 * time.Second),
		TotalRows:   3,
		ValidRows:   2,
		InvalidRows: 1,
		TotalAmount: "1210.75",
		ByVendor:    []AmountLine{{Name: "Acme", Amount: "1210.75"}},
		ByStatus:    []AmountLine{{Name: "", Amount: "1210.75"}},
		ErrorLog:    "output/error_log.csv",
	}, dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "import_summary_20240115_143002.txt"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(data)

	assert.Contains(t, out, "Import ID:      abc")
	assert.Contains(t, out, "Worksheet:      March")
	assert.Contains(t, out, "Mode:           batch")
	assert.Contains(t, out, "Duration:       2s")
	assert.Contains(t, out, "Invalid Rows:   1")
	assert.Contains(t, out, "Amount by Vendor:")
	assert.Contains(t, out, "(none)")
	assert.Contains(t, out, "Error Log:      output/error_log.csv")
	assert.NotContains(t, out, "Output:")
	assert.NotContains(t, out, "Archive:")
}
