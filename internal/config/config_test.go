package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "./output", cfg.OutputDir)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "auto", cfg.DateFormat)
	assert.Equal(t, 0.75, cfg.Match.Threshold)
	assert.Equal(t, 0.95, cfg.Match.MemoryConfidence)
	assert.Equal(t, MemoryBackendFile, cfg.Memory.Backend)
	assert.Equal(t, "./.salesimport/mappings.json", cfg.Memory.Path)
	assert.Equal(t, ",", cfg.CSVSettings.Delimiter)
	assert.Equal(t, []string{"sale_date", "first_name", "last_name", "status", "amount"}, cfg.Required.Core)
	assert.Equal(t, []string{"address", "city", "vendor"}, cfg.Required.BatchOnly)
	assert.Equal(t, OutputJSON, cfg.Output.Format)
	assert.NoError(t, cfg.Validate())
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
date_format: EU
match:
  threshold: 0.8
memory:
  backend: SQLite
  profile: agency-42
csv_settings:
  delimiter: tab
  encoding: Windows-1252
required:
  batch_only: [vendor]
transformation_rules:
  - field: status
    actions:
      - type: lookup
        lookup_table:
          A: approved
output:
  format: XML
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "EU", cfg.DateFormat)
	assert.Equal(t, 0.8, cfg.Match.Threshold)
	assert.Equal(t, 0.95, cfg.Match.MemoryConfidence)
	assert.Equal(t, MemoryBackendSQLite, cfg.Memory.Backend)
	assert.Equal(t, "./.salesimport/memory.db", cfg.Memory.Path)
	assert.Equal(t, "agency-42", cfg.Memory.Profile)
	assert.Equal(t, "tab", cfg.CSVSettings.Delimiter)
	assert.Equal(t, []string{"vendor"}, cfg.Required.BatchOnly)
	assert.Equal(t, OutputXML, cfg.Output.Format)
	require.Len(t, cfg.TransformationRules, 1)
	assert.Equal(t, "approved", cfg.TransformationRules[0].Actions[0].LookupTable["A"])
}

func TestLoad_EmptyPath(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"log level", "log_level: loud"},
		{"date format", "date_format: mayan"},
		{"threshold", "match:\n  threshold: 1.5"},
		{"backend", "memory:\n  backend: redis"},
		{"encoding", "csv_settings:\n  encoding: EBCDIC"},
		{"output", "output:\n  format: pdf"},
		{"rule without field", "transformation_rules:\n  - actions: [{type: trim}]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestParse_Malformed(t *testing.T) {
	_, err := Parse([]byte("output: [unclosed"))
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalidConfig)
}

func TestEnsureDirs(t *testing.T) {
	dir := t.TempDir()
	cfg := Default()
	cfg.OutputDir = filepath.Join(dir, "out")
	cfg.ArchiveDir = filepath.Join(dir, "archive", "nested")

	require.NoError(t, cfg.EnsureDirs())
	assert.DirExists(t, cfg.OutputDir)
	assert.DirExists(t, cfg.ArchiveDir)
}

func TestLoad_ExampleConfig(t *testing.T) {
	cfg, err := Load(filepath.Join("..", "..", "configs", "salesimport.yaml"))
	require.NoError(t, err)

	assert.Equal(t, MemoryBackendFile, cfg.Memory.Backend)
	assert.Equal(t, OutputJSON, cfg.Output.Format)
	assert.Equal(t, []string{"address", "city", "vendor"}, cfg.Required.BatchOnly)
	require.Len(t, cfg.TransformationRules, 3)
	assert.Equal(t, "pending", cfg.TransformationRules[0].Actions[2].Value)
	assert.Equal(t, "approved", cfg.TransformationRules[0].Actions[2].LookupTable["paid"])
}
