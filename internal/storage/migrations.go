package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/LoremIpsumMaestro/supply-chain-specialist-sub001/internal/common"
)

// ExpectedSchemaVersion is the latest schema version that the application expects.
// If the database cannot be migrated to this version, it's a fatal error.
const ExpectedSchemaVersion = 3

// Migration represents a database schema migration.
type Migration struct {
	Up          func(*sql.Tx) error
	Description string
	Version     int
}

func execAll(tx *sql.Tx, queries []string) error {
	for _, query := range queries {
		if _, err := tx.Exec(query); err != nil {
			return fmt.Errorf("failed to execute query: %w", err)
		}
	}
	return nil
}

var migrations = []Migration{
	{
		Version:     1,
		Description: "Initial schema",
		Up: func(tx *sql.Tx) error {
			return execAll(tx, []string{
				`CREATE TABLE IF NOT EXISTS conversations (
					id TEXT PRIMARY KEY,
					user_id TEXT NOT NULL,
					created_at DATETIME NOT NULL
				)`,
				`CREATE INDEX idx_conversations_user ON conversations(user_id)`,

				`CREATE TABLE IF NOT EXISTS files (
					id TEXT PRIMARY KEY,
					user_id TEXT NOT NULL,
					conversation_id TEXT REFERENCES conversations(id) ON DELETE CASCADE,
					file_name TEXT NOT NULL,
					created_at DATETIME NOT NULL
				)`,
				`CREATE INDEX idx_files_conversation ON files(conversation_id)`,

				`CREATE TABLE IF NOT EXISTS fragments (
					file_id TEXT NOT NULL REFERENCES files(id) ON DELETE CASCADE,
					id TEXT NOT NULL,
					seq INTEGER NOT NULL,
					content TEXT NOT NULL,
					source_kind TEXT NOT NULL CHECK (source_kind IN ('spreadsheet_cell', 'pdf_page')),
					file_name TEXT NOT NULL,
					sheet_name TEXT,
					cell_ref TEXT,
					page_number INTEGER,
					extracted_date TEXT,
					numeric_value REAL,
					metric_key TEXT,
					record_id TEXT,
					role TEXT,
					PRIMARY KEY (file_id, id)
				)`,
				`CREATE INDEX idx_fragments_metric ON fragments(file_id, metric_key, extracted_date)`,
			})
		},
	},
	{
		Version:     2,
		Description: "Add alerts",
		Up: func(tx *sql.Tx) error {
			return execAll(tx, []string{
				`CREATE TABLE IF NOT EXISTS alerts (
					id TEXT PRIMARY KEY,
					user_id TEXT NOT NULL,
					file_id TEXT NOT NULL REFERENCES files(id) ON DELETE CASCADE,
					conversation_id TEXT REFERENCES conversations(id) ON DELETE CASCADE,
					alert_type TEXT NOT NULL CHECK (alert_type IN ('negative_stock', 'date_inconsistency', 'negative_quantity', 'lead_time_outlier')),
					severity TEXT NOT NULL CHECK (severity IN ('critical', 'warning', 'info')),
					message TEXT NOT NULL,
					value TEXT NOT NULL,
					source_metadata TEXT NOT NULL,
					fingerprint TEXT NOT NULL,
					created_at DATETIME NOT NULL,
					UNIQUE (file_id, fingerprint)
				)`,
				`CREATE INDEX idx_alerts_file ON alerts(file_id)`,
				`CREATE INDEX idx_alerts_conversation ON alerts(conversation_id)`,
				`CREATE INDEX idx_alerts_user ON alerts(user_id)`,
				`CREATE INDEX idx_alerts_severity ON alerts(severity)`,
			})
		},
	},
	{
		Version:     3,
		Description: "Add file temporal summary",
		Up: func(tx *sql.Tx) error {
			if _, err := tx.Exec(`ALTER TABLE files ADD COLUMN temporal_summary TEXT`); err != nil {
				return fmt.Errorf("failed to add temporal_summary column: %w", err)
			}
			return nil
		},
	},
}

// Migrate applies all pending database migrations.
func (s *SQLiteStorage) Migrate(ctx context.Context) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	var currentVersion int
	err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&currentVersion)
	if err != nil {
		return fmt.Errorf("failed to get schema version: %w", err)
	}

	for _, migration := range migrations {
		if migration.Version <= currentVersion {
			continue
		}

		tx, txErr := s.db.BeginTx(ctx, nil)
		if txErr != nil {
			return fmt.Errorf("failed to begin transaction: %w", txErr)
		}

		if upErr := migration.Up(tx); upErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d failed: %w", migration.Version, upErr)
		}

		if _, execErr := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", migration.Version)); execErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to update schema version: %w", execErr)
		}

		if commitErr := tx.Commit(); commitErr != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, commitErr)
		}

		slog.Info("Applied migration",
			"version", migration.Version,
			"description", migration.Description)
	}

	var finalVersion int
	err = s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&finalVersion)
	if err != nil {
		return fmt.Errorf("failed to verify final schema version: %w", err)
	}

	if finalVersion != ExpectedSchemaVersion {
		return fmt.Errorf("%w: schema version mismatch: expected %d, got %d", common.ErrDatabaseCorrupted, ExpectedSchemaVersion, finalVersion)
	}

	return nil
}

// SchemaVersion returns the schema version the database is at.
func (s *SQLiteStorage) SchemaVersion(ctx context.Context) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}

	var version int
	if err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to get schema version: %w", err)
	}
	return version, nil
}
