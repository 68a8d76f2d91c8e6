// =============================================================================
// Sales Import - Mapping Memory
// =============================================================================
//
// Remembers column mappings a user confirmed, keyed by a pattern derived from
// the file name, so that the next file with a similar name ("sales_2025.xlsx"
// after "sales_2024.xlsx") starts from the same choices.
//
// STORAGE:
//   - FileStore   : JSON document on local disk (single user, last writer wins)
//   - SQLiteStore : one row per (profile, pattern, column), for shared installs
//
// FAILURE POLICY:
//   Persistence is best effort. The Manager logs read/write failures and
//   behaves as if no memory exists; callers never see these errors.
//
// =============================================================================

package memory

import (
	"context"
	"log/slog"
	"path/filepath"
	"regexp"
	"strings"
)

// Memory maps a file pattern to {excel column -> field key}.
type Memory map[string]map[string]string

// Lookup returns the remembered field for column under pattern.
func (m Memory) Lookup(pattern, column string) (string, bool) {
	if m == nil || pattern == "" {
		return "", false
	}
	columns, ok := m[pattern]
	if !ok {
		return "", false
	}
	key, ok := columns[column]
	return key, ok && key != ""
}

// Patterns returns the number of remembered patterns.
func (m Memory) Patterns() int {
	return len(m)
}

// =============================================================================
// FILE PATTERN
// =============================================================================

var (
	digitRunRegex  = regexp.MustCompile(`\d+`)
	separatorRegex = regexp.MustCompile(`[\s_-]+`)
)

// GetFilePattern derives the memory key for a file name.
//
// The name is lowercased, its extension dropped, digit runs removed and runs
// of whitespace, underscores and hyphens collapsed to one underscore. Leading
// and trailing underscores are trimmed. Dated variants of the same export
// therefore share a pattern.
func GetFilePattern(filename string) string {
	name := strings.ToLower(filepath.Base(strings.TrimSpace(filename)))
	name = strings.TrimSuffix(name, filepath.Ext(name))
	name = digitRunRegex.ReplaceAllString(name, "")
	name = separatorRegex.ReplaceAllString(name, "_")
	return strings.Trim(strings.TrimSpace(name), "_")
}

// =============================================================================
// STORE
// =============================================================================

// Store persists mapping memory.
type Store interface {
	// Load returns every remembered pattern.
	Load(ctx context.Context) (Memory, error)

	// Put replaces the columns remembered for pattern.
	Put(ctx context.Context, pattern string, columns map[string]string) error

	// Clear forgets everything.
	Clear(ctx context.Context) error
}

// =============================================================================
// MANAGER
// =============================================================================

// Manager wraps a Store with the degrade-on-failure policy.
type Manager struct {
	store  Store
	logger *slog.Logger
}

// NewManager creates a Manager. A nil store disables memory.
func NewManager(store Store, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{store: store, logger: logger}
}

// Enabled reports whether a store is configured.
func (m *Manager) Enabled() bool {
	return m != nil && m.store != nil
}

// LoadMappingMemory returns the stored memory, or nil when none is available
// or the store cannot be read.
func (m *Manager) LoadMappingMemory(ctx context.Context) Memory {
	if !m.Enabled() {
		return nil
	}

	mem, err := m.store.Load(ctx)
	if err != nil {
		m.logger.Warn("mapping memory unavailable", "error", err)
		return nil
	}
	if len(mem) == 0 {
		return nil
	}
	return mem
}

// SaveMappingMemory replaces what is remembered for pattern with columns
// (excel column -> field key). Entries with an empty field key are skipped.
// Failures are logged and dropped.
func (m *Manager) SaveMappingMemory(ctx context.Context, pattern string, columns map[string]string) {
	if !m.Enabled() || pattern == "" {
		return
	}

	kept := make(map[string]string, len(columns))
	for column, key := range columns {
		if key != "" {
			kept[column] = key
		}
	}

	if err := m.store.Put(ctx, pattern, kept); err != nil {
		m.logger.Warn("failed to save mapping memory", "pattern", pattern, "error", err)
		return
	}

	m.logger.Debug("saved mapping memory", "pattern", pattern, "columns", len(kept))
}

// Forget clears all stored memory.
func (m *Manager) Forget(ctx context.Context) error {
	if !m.Enabled() {
		return nil
	}
	return m.store.Clear(ctx)
}
