// =============================================================================
// Sales Import - Importer
// =============================================================================
//
// Drives one import session for a single uploaded file.
//
// IMPORT PIPELINE:
//   1. Propose: read the headers, derive the file pattern, look up mapping
//      memory and generate column mappings with suggestions for the headers
//      left unmapped.
//   2. The caller confirms or edits the mappings.
//   3. Run: check the mappings, parse every row, apply transformation rules,
//      validate, remember the mappings if asked and total the valid rows.
//
// Nothing is written to disk here. Exports and logs are the caller's choice.
//
// =============================================================================

package importer

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ginjaninja78/sales-import/internal/config"
	"github.com/ginjaninja78/sales-import/internal/fields"
	"github.com/ginjaninja78/sales-import/internal/mapping"
	"github.com/ginjaninja78/sales-import/internal/match"
	"github.com/ginjaninja78/sales-import/internal/memory"
	"github.com/ginjaninja78/sales-import/internal/spreadsheet"
	"github.com/ginjaninja78/sales-import/internal/transform"
	"github.com/ginjaninja78/sales-import/internal/validation"
)

// SuggestionCount is the number of candidate fields offered per unmapped
// header.
const SuggestionCount = 3

// =============================================================================
// RESULT STRUCTURES
// =============================================================================

// Proposal is the mapping offered to the user before an import runs.
type Proposal struct {
	FileName  string
	Worksheet string

	// Pattern is the mapping memory key for FileName. Empty when the name
	// has no usable pattern.
	Pattern string

	Headers  []string
	Mappings []mapping.ColumnMapping

	// Remembered is true when memory held an entry for Pattern.
	Remembered bool

	// FromMemory marks the headers whose mapping came from memory.
	FromMemory map[string]bool

	// Suggestions lists candidate field keys for each unmapped header.
	Suggestions map[string][]string

	// MissingCore and MissingBatch are required fields no column feeds. The
	// batch list only matters for batch imports.
	MissingCore  []string
	MissingBatch []string
}

// Request is a confirmed import.
type Request struct {
	Worksheet string
	Mappings  []mapping.ColumnMapping

	// BatchMode makes address, city and vendor required.
	BatchMode bool

	// Remember stores the mappings under the file pattern.
	Remember bool

	// Progress, if set, is called after each validated row.
	Progress func(done, total int)
}

// Totals sums the amounts of valid rows.
type Totals struct {
	Rows     int
	Amount   decimal.Decimal
	ByVendor map[string]decimal.Decimal
	ByStatus map[string]decimal.Decimal
}

// Result is the outcome of Run.
type Result struct {
	// ID tags the import for output file names and logs.
	ID string

	FileName  string
	Worksheet string
	Pattern   string
	BatchMode bool
	Mappings  []mapping.ColumnMapping

	Summary *validation.Summary
	Totals  Totals

	// Remembered is true when the mappings were handed to mapping memory.
	Remembered bool

	Started  time.Time
	Finished time.Time
}

// =============================================================================
// IMPORTER
// =============================================================================

// Importer runs import sessions. It holds no per-session state and may be
// shared.
type Importer struct {
	registry    *fields.Registry
	parser      *spreadsheet.Parser
	memory      *memory.Manager
	transformer *transform.Transformer
	validator   validation.Validator
	generator   mapping.Generator
	suggester   *match.Suggester
	logger      *slog.Logger
}

// New creates an Importer.
//
// PARAMETERS:
//   - cfg: Application configuration (match tuning, date format, required fields).
//   - registry: The field definitions.
//   - parser: The file parser.
//   - mem: Mapping memory; nil disables it.
//   - transformer: Transformation rules; nil applies none.
//   - logger: Logger; nil uses slog.Default().
//
// RETURNS:
//   - The Importer, or an error if cfg names an unknown date format or a
//     required field the registry does not define.
func New(cfg *config.Config, registry *fields.Registry, parser *spreadsheet.Parser, mem *memory.Manager, transformer *transform.Transformer, logger *slog.Logger) (*Importer, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if mem == nil {
		mem = memory.NewManager(nil, logger)
	}

	format, err := validation.ParseDateFormat(cfg.DateFormat)
	if err != nil {
		return nil, err
	}

	for _, key := range append(append([]string{}, cfg.Required.Core...), cfg.Required.BatchOnly...) {
		if !registry.Has(key) {
			return nil, fmt.Errorf("%w: required field %q is not defined", mapping.ErrUnknownField, key)
		}
	}

	validator := validation.NewValidator(registry, format)
	if len(cfg.Required.Core) > 0 {
		validator.CoreRequired = cfg.Required.Core
	}
	if len(cfg.Required.BatchOnly) > 0 {
		validator.BatchRequired = cfg.Required.BatchOnly
	}

	defs := registry.Definitions()

	return &Importer{
		registry:    registry,
		parser:      parser,
		memory:      mem,
		transformer: transformer,
		validator:   *validator,
		generator:   mapping.Generator{Threshold: cfg.Match.Threshold, MemoryConfidence: cfg.Match.MemoryConfidence},
		suggester:   match.NewSuggester(defs),
		logger:      logger,
	}, nil
}

// =============================================================================
// PROPOSE
// =============================================================================

// Propose reads the headers of file and proposes a mapping for each.
func (im *Importer) Propose(ctx context.Context, file spreadsheet.File, worksheet string) (*Proposal, error) {
	headers, err := im.parser.ParseFileHeaders(file, worksheet)
	if err != nil {
		return nil, err
	}

	pattern := memory.GetFilePattern(file.Name)

	var previous memory.Memory
	if pattern != "" {
		previous = im.memory.LoadMappingMemory(ctx)
	}

	defs := im.registry.Definitions()
	mappings := im.generator.GenerateColumnMappings(headers, defs, previous, pattern)

	proposal := &Proposal{
		FileName:    file.Name,
		Worksheet:   worksheet,
		Pattern:     pattern,
		Headers:     headers,
		Mappings:    mappings,
		Remembered:  len(previous[pattern]) > 0,
		FromMemory:  make(map[string]bool),
		Suggestions: make(map[string][]string),
	}

	for _, m := range mappings {
		if key, ok := previous.Lookup(pattern, m.ExcelColumn); ok && m.Mapped() && key == m.FieldKey {
			proposal.FromMemory[m.ExcelColumn] = true
		}
	}

	for _, header := range mapping.Unmapped(mappings) {
		if s := im.suggester.Suggest(header, SuggestionCount); len(s) > 0 {
			proposal.Suggestions[header] = s
		}
	}

	proposal.MissingCore, proposal.MissingBatch = im.MissingRequired(mappings)

	im.logger.Debug("proposed mappings",
		"file", file.Name,
		"pattern", pattern,
		"headers", len(headers),
		"unmapped", len(mapping.Unmapped(mappings)),
		"remembered", proposal.Remembered)

	return proposal, nil
}

// MissingRequired returns the required fields no mapping feeds: those
// required in every mode, and those required only for batch imports.
func (im *Importer) MissingRequired(mappings []mapping.ColumnMapping) (core, batch []string) {
	defs := im.registry.Definitions()
	return mapping.MissingRequired(mappings, defs, im.coreRequired()),
		mapping.MissingRequired(mappings, defs, im.validator.BatchRequired)
}

// coreRequired is the configured core set plus any registry field marked
// required that is not batch-only.
func (im *Importer) coreRequired() []string {
	batchOnly := make(map[string]bool, len(im.validator.BatchRequired))
	for _, key := range im.validator.BatchRequired {
		batchOnly[key] = true
	}

	keys := append([]string{}, im.validator.CoreRequired...)
	for _, def := range im.registry.Definitions() {
		if def.Required && !batchOnly[def.Key] {
			keys = append(keys, def.Key)
		}
	}
	return keys
}

// =============================================================================
// RUN
// =============================================================================

// Run imports file with confirmed mappings.
//
// RETURNS:
//   - The result, with row errors in Result.Summary.
//   - An error for duplicate mappings, unreadable files or cancellation.
//     Row-level problems are never returned as errors.
func (im *Importer) Run(ctx context.Context, file spreadsheet.File, req Request) (*Result, error) {
	result := &Result{
		ID:        uuid.New().String(),
		FileName:  file.Name,
		Worksheet: req.Worksheet,
		Pattern:   memory.GetFilePattern(file.Name),
		BatchMode: req.BatchMode,
		Mappings:  req.Mappings,
		Started:   time.Now(),
	}

	if err := mapping.Validate(req.Mappings); err != nil {
		return nil, err
	}

	// Parse
	data, err := im.parser.ParseFileWithMappings(file, req.Mappings, req.Worksheet)
	if err != nil {
		return nil, err
	}
	im.logger.Debug("parsed file", "import_id", result.ID, "file", file.Name, "rows", data.TotalRows)

	// Transform
	rows := im.transformer.TransformRows(data.Rows)

	// Validate
	validator := im.validator
	validator.OnRow = req.Progress
	summary, err := validator.ValidateAllRowsContext(ctx, rows, req.BatchMode)
	if err != nil {
		return nil, fmt.Errorf("import of %s interrupted: %w", file.Name, err)
	}
	result.Summary = summary

	// Remember
	if req.Remember && result.Pattern != "" && im.memory.Enabled() {
		im.memory.SaveMappingMemory(ctx, result.Pattern, mapping.Remembered(req.Mappings))
		result.Remembered = true
	}

	result.Totals = ComputeTotals(summary.Valid)
	result.Finished = time.Now()

	im.logger.Info("import complete",
		"import_id", result.ID,
		"file", file.Name,
		"rows", summary.TotalRows,
		"valid", summary.ValidCount,
		"invalid", summary.InvalidCount,
		"amount", result.Totals.Amount.StringFixed(2),
		"duration", result.Finished.Sub(result.Started))

	return result, nil
}

// =============================================================================
// TOTALS
// =============================================================================

// ComputeTotals sums the amount of each row, overall and per vendor and
// status. Rows without a vendor or status are counted under "".
func ComputeTotals(rows []validation.ValidatedRow) Totals {
	totals := Totals{
		Rows:     len(rows),
		Amount:   decimal.Zero,
		ByVendor: make(map[string]decimal.Decimal),
		ByStatus: make(map[string]decimal.Decimal),
	}

	for _, row := range rows {
		amount := decimal.Zero
		if v, ok := row[fields.KeyAmount]; ok {
			if d, err := validation.ParseDecimal(v); err == nil {
				amount = d
			}
		}

		vendor, _ := row[fields.KeyVendor].(string)
		status, _ := row[fields.KeyStatus].(string)

		totals.Amount = totals.Amount.Add(amount)
		totals.ByVendor[vendor] = totals.ByVendor[vendor].Add(amount)
		totals.ByStatus[status] = totals.ByStatus[status].Add(amount)
	}

	return totals
}

// SortedKeys returns the keys of a totals map in order.
func SortedKeys(m map[string]decimal.Decimal) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
