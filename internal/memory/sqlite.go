package memory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// SchemaVersion is the schema version SQLiteStore migrates to.
const SchemaVersion = 2

// DefaultProfile is used when no profile is configured.
const DefaultProfile = "default"

// ErrEmptyPath is returned when no database path is given.
var ErrEmptyPath = errors.New("memory: database path cannot be empty")

type migration struct {
	up          func(*sql.Tx) error
	description string
	version     int
}

var migrations = []migration{
	{
		version:     1,
		description: "Mapping memory table",
		up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
				CREATE TABLE IF NOT EXISTS mapping_memory (
					profile TEXT NOT NULL,
					pattern TEXT NOT NULL,
					excel_column TEXT NOT NULL,
					field_key TEXT NOT NULL,
					updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					PRIMARY KEY (profile, pattern, excel_column)
				)
			`)
			return err
		},
	},
	{
		version:     2,
		description: "Index patterns per profile",
		up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`CREATE INDEX IF NOT EXISTS idx_mapping_memory_profile ON mapping_memory(profile, pattern)`)
			return err
		},
	},
}

// SQLiteStore keeps mapping memory in SQLite, one row per remembered column.
// Rows are scoped by profile so several users or accounts can share a
// database.
type SQLiteStore struct {
	db      *sql.DB
	profile string
}

// NewSQLiteStore opens (creating if needed) the database at dbPath. Call
// Migrate before use.
func NewSQLiteStore(dbPath, profile string) (*SQLiteStore, error) {
	if strings.TrimSpace(dbPath) == "" {
		return nil, ErrEmptyPath
	}
	if strings.TrimSpace(profile) == "" {
		profile = DefaultProfile
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0750); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &SQLiteStore{db: db, profile: profile}, nil
}

// Profile returns the profile rows are scoped to.
func (s *SQLiteStore) Profile() string {
	return s.profile
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Migrate brings the schema up to SchemaVersion.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	var current int
	if err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&current); err != nil {
		return fmt.Errorf("failed to get schema version: %w", err)
	}

	for _, m := range migrations {
		if m.version <= current {
			continue
		}

		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}

		if err := m.up(tx); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to apply migration %d: %w", m.version, err)
		}

		if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", m.version)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to update schema version: %w", err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %d: %w", m.version, err)
		}

		slog.Debug("applied migration", "version", m.version, "description", m.description)
	}

	var final int
	if err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&final); err != nil {
		return fmt.Errorf("failed to verify schema version: %w", err)
	}
	if final != SchemaVersion {
		return fmt.Errorf("schema version mismatch: expected %d, got %d", SchemaVersion, final)
	}

	return nil
}

// Load returns every pattern remembered for the store's profile.
func (s *SQLiteStore) Load(ctx context.Context) (Memory, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT pattern, excel_column, field_key
		FROM mapping_memory
		WHERE profile = ?
		ORDER BY pattern, excel_column
	`, s.profile)
	if err != nil {
		return nil, fmt.Errorf("failed to query mapping memory: %w", err)
	}
	defer func() { _ = rows.Close() }()

	mem := Memory{}
	for rows.Next() {
		var pattern, column, key string
		if err := rows.Scan(&pattern, &column, &key); err != nil {
			return nil, fmt.Errorf("failed to scan mapping memory: %w", err)
		}
		if mem[pattern] == nil {
			mem[pattern] = make(map[string]string)
		}
		mem[pattern][column] = key
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read mapping memory: %w", err)
	}
	return mem, nil
}

// Put replaces the columns remembered for pattern in one transaction.
func (s *SQLiteStore) Put(ctx context.Context, pattern string, columns map[string]string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM mapping_memory WHERE profile = ? AND pattern = ?`,
		s.profile, pattern,
	); err != nil {
		return fmt.Errorf("failed to clear pattern %q: %w", pattern, err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO mapping_memory (profile, pattern, excel_column, field_key, updated_at)
		VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for column, key := range columns {
		if _, err := stmt.ExecContext(ctx, s.profile, pattern, column, key); err != nil {
			return fmt.Errorf("failed to save column %q: %w", column, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit mapping memory: %w", err)
	}
	return nil
}

// Clear forgets everything remembered for the store's profile.
func (s *SQLiteStore) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM mapping_memory WHERE profile = ?`, s.profile); err != nil {
		return fmt.Errorf("failed to clear mapping memory: %w", err)
	}
	return nil
}
