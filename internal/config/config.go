// =============================================================================
// Sales Import - Configuration Module
// =============================================================================
//
// Loads the application configuration from a single YAML file.
//
// CONFIGURATION FILE (config.yaml):
//   Directories, logging, date handling, matcher thresholds, mapping memory
//   backend, CSV parsing, required-field sets, transformation rules and output
//   settings. Every key is optional; missing keys take the defaults below.
//
// OVERRIDES:
//   The command layer locates the file and applies flag and SALESIMPORT_*
//   environment overrides on top of what is loaded here.
//
// =============================================================================

package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig is wrapped by every validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// Memory backends.
const (
	MemoryBackendFile   = "file"
	MemoryBackendSQLite = "sqlite"
	MemoryBackendNone   = "none"
)

// Output formats.
const (
	OutputJSON = "json"
	OutputXML  = "xml"
	OutputCSV  = "csv"
)

// =============================================================================
// CONFIGURATION STRUCTURE
// =============================================================================

// Config holds the application configuration.
type Config struct {
	// =========================================================================
	// DIRECTORY SETTINGS
	// =========================================================================

	// OutputDir receives exported rows, error logs and summaries.
	// Default: "./output"
	OutputDir string `yaml:"output_dir"`

	// ArchiveDir receives imported files when archiving is requested.
	// Default: "./archive"
	ArchiveDir string `yaml:"archive_dir"`

	// =========================================================================
	// LOGGING SETTINGS
	// =========================================================================

	// LogLevel is one of "debug", "info", "warn", "error".
	// Default: "info"
	LogLevel string `yaml:"log_level"`

	// LogFormat is "console" or "json".
	// Default: "console"
	LogFormat string `yaml:"log_format"`

	// =========================================================================
	// IMPORT SETTINGS
	// =========================================================================

	// DateFormat controls how date strings are read: "auto", "US", "ISO" or "EU".
	// Default: "auto"
	DateFormat string `yaml:"date_format"`

	// Match tunes automatic column assignment.
	Match MatchSettings `yaml:"match"`

	// Memory selects where confirmed mappings are remembered.
	Memory MemorySettings `yaml:"memory"`

	// CSVSettings controls CSV parsing.
	CSVSettings CSVSettings `yaml:"csv_settings"`

	// Required lists the fields every row must carry.
	Required RequiredSettings `yaml:"required"`

	// FieldsTemplate is an optional XLSX file replacing the built-in field
	// definitions.
	FieldsTemplate string `yaml:"fields_template"`

	// TransformationRules are applied to mapped values before validation.
	TransformationRules []TransformationRule `yaml:"transformation_rules"`

	// =========================================================================
	// OUTPUT SETTINGS
	// =========================================================================

	// Output controls the export of validated rows.
	Output OutputSettings `yaml:"output"`
}

// MatchSettings tunes the mapping generator.
type MatchSettings struct {
	// Threshold is the minimum fuzzy score for automatic assignment.
	// Default: 0.75
	Threshold float64 `yaml:"threshold"`

	// MemoryConfidence is the confidence reported for remembered mappings.
	// Default: 0.95
	MemoryConfidence float64 `yaml:"memory_confidence"`
}

// MemorySettings selects the mapping memory store.
type MemorySettings struct {
	// Backend is "file", "sqlite" or "none".
	// Default: "file"
	Backend string `yaml:"backend"`

	// Path is the JSON file or SQLite database.
	// Default: "./.salesimport/mappings.json" (file) or
	// "./.salesimport/memory.db" (sqlite)
	Path string `yaml:"path"`

	// Profile scopes SQLite rows to one user or account.
	// Default: "default"
	Profile string `yaml:"profile"`
}

// CSVSettings contains settings for parsing CSV files.
type CSVSettings struct {
	// Delimiter is the field separator. Accepts a single character or one of
	// "tab", "pipe", "semicolon".
	// Default: ","
	Delimiter string `yaml:"delimiter"`

	// Encoding is "UTF-8", "ISO-8859-1" or "Windows-1252".
	// Default: "UTF-8"
	Encoding string `yaml:"encoding"`
}

// RequiredSettings lists required field keys.
type RequiredSettings struct {
	// Core fields are required in every mode.
	// Default: sale_date, first_name, last_name, status, amount
	Core []string `yaml:"core"`

	// BatchOnly fields are required only for batch imports.
	// Default: address, city, vendor
	BatchOnly []string `yaml:"batch_only"`
}

// OutputSettings controls exported files.
type OutputSettings struct {
	// Format is "json", "xml" or "csv".
	// Default: "json"
	Format string `yaml:"format"`

	// FileNameFormat names export files.
	// Placeholders: {uuid} {timestamp} {date} {time} {pattern} {original}
	// Default: "{pattern}_{timestamp}_{uuid}"
	FileNameFormat string `yaml:"file_name_format"`
}

// =============================================================================
// TRANSFORMATION RULE STRUCTURE
// =============================================================================

// TransformationRule defines transformations for one field.
type TransformationRule struct {
	// Field is the target field key.
	Field string `yaml:"field"`

	// Actions are applied in order.
	Actions []TransformationAction `yaml:"actions"`
}

// TransformationAction defines a single transformation action.
type TransformationAction struct {
	// Type is the action name, for example "trim", "uppercase", "lookup".
	Type string `yaml:"type"`

	// Value is the action parameter: the string to prepend, the replacement,
	// the default value or the source field key.
	Value string `yaml:"value"`

	// Find is the substring or pattern for "replace" and "regex_replace".
	Find string `yaml:"find,omitempty"`

	// LookupTable maps input values to output values for "lookup".
	LookupTable map[string]string `yaml:"lookup_table,omitempty"`
}

// =============================================================================
// CONFIGURATION LOADING FUNCTIONS
// =============================================================================

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// Load reads the configuration from a YAML file. An empty path returns the
// defaults.
//
// PARAMETERS:
//   - path: The path to the configuration file.
//
// RETURNS:
//   - A pointer to the Config struct.
//   - An error if the file cannot be read, parsed or validated.
func Load(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return Parse(data)
}

// Parse decodes, defaults and validates a YAML document.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// applyDefaults sets default values for any unset configuration options.
func applyDefaults(cfg *Config) {
	if cfg.OutputDir == "" {
		cfg.OutputDir = "./output"
	}
	if cfg.ArchiveDir == "" {
		cfg.ArchiveDir = "./archive"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.LogFormat == "" {
		cfg.LogFormat = "console"
	}
	if cfg.DateFormat == "" {
		cfg.DateFormat = "auto"
	}

	if cfg.Match.Threshold == 0 {
		cfg.Match.Threshold = 0.75
	}
	if cfg.Match.MemoryConfidence == 0 {
		cfg.Match.MemoryConfidence = 0.95
	}

	if cfg.Memory.Backend == "" {
		cfg.Memory.Backend = MemoryBackendFile
	}
	cfg.Memory.Backend = strings.ToLower(cfg.Memory.Backend)
	if cfg.Memory.Path == "" {
		cfg.Memory.Path = DefaultMemoryPath(cfg.Memory.Backend)
	}
	if cfg.Memory.Profile == "" {
		cfg.Memory.Profile = "default"
	}

	if cfg.CSVSettings.Delimiter == "" {
		cfg.CSVSettings.Delimiter = ","
	}
	if cfg.CSVSettings.Encoding == "" {
		cfg.CSVSettings.Encoding = "UTF-8"
	}

	if cfg.Required.Core == nil {
		cfg.Required.Core = []string{"sale_date", "first_name", "last_name", "status", "amount"}
	}
	if cfg.Required.BatchOnly == nil {
		cfg.Required.BatchOnly = []string{"address", "city", "vendor"}
	}

	if cfg.Output.Format == "" {
		cfg.Output.Format = OutputJSON
	}
	cfg.Output.Format = strings.ToLower(cfg.Output.Format)
	if cfg.Output.FileNameFormat == "" {
		cfg.Output.FileNameFormat = "{pattern}_{timestamp}_{uuid}"
	}
}

// DefaultMemoryPath returns the store location used when memory.path is not
// set.
func DefaultMemoryPath(backend string) string {
	if backend == MemoryBackendSQLite {
		return "./.salesimport/memory.db"
	}
	return "./.salesimport/mappings.json"
}

// Validate checks the configuration for values the importer cannot use.
func (c *Config) Validate() error {
	if !slices.Contains([]string{"debug", "info", "warn", "error"}, strings.ToLower(c.LogLevel)) {
		return fmt.Errorf("%w: log_level %q", ErrInvalidConfig, c.LogLevel)
	}
	if !slices.Contains([]string{"console", "text", "json"}, strings.ToLower(c.LogFormat)) {
		return fmt.Errorf("%w: log_format %q", ErrInvalidConfig, c.LogFormat)
	}
	if !slices.Contains([]string{"auto", "us", "iso", "eu"}, strings.ToLower(c.DateFormat)) {
		return fmt.Errorf("%w: date_format %q", ErrInvalidConfig, c.DateFormat)
	}

	if c.Match.Threshold < 0 || c.Match.Threshold > 1 {
		return fmt.Errorf("%w: match.threshold must be between 0 and 1", ErrInvalidConfig)
	}
	if c.Match.MemoryConfidence < 0 || c.Match.MemoryConfidence > 1 {
		return fmt.Errorf("%w: match.memory_confidence must be between 0 and 1", ErrInvalidConfig)
	}

	switch c.Memory.Backend {
	case MemoryBackendFile, MemoryBackendSQLite, MemoryBackendNone:
	default:
		return fmt.Errorf("%w: memory.backend %q", ErrInvalidConfig, c.Memory.Backend)
	}

	switch strings.ToUpper(c.CSVSettings.Encoding) {
	case "UTF-8", "UTF8", "ISO-8859-1", "LATIN1", "WINDOWS-1252", "CP1252":
	default:
		return fmt.Errorf("%w: csv_settings.encoding %q", ErrInvalidConfig, c.CSVSettings.Encoding)
	}

	switch c.Output.Format {
	case OutputJSON, OutputXML, OutputCSV:
	default:
		return fmt.Errorf("%w: output.format %q", ErrInvalidConfig, c.Output.Format)
	}

	for i, rule := range c.TransformationRules {
		if strings.TrimSpace(rule.Field) == "" {
			return fmt.Errorf("%w: transformation_rules[%d] has no field", ErrInvalidConfig, i)
		}
	}

	return nil
}

// EnsureDirs creates the output and archive directories.
func (c *Config) EnsureDirs() error {
	for _, dir := range []string{c.OutputDir, c.ArchiveDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}
